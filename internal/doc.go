// Package internal holds helpers shared by the careauth engine that are not
// part of the public API: opaque identifier generation and OTP material.
package internal
