// Package token issues and verifies the signed authenticated-session flag.
//
// The token is written exactly once, when a verification attempt reaches its
// success state, and is the only durable proof of authentication the guard
// accepts. It carries the display name and an explicit expiry; nothing else.
package token
