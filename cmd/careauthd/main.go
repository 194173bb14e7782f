// Command careauthd serves the TRYGVE onboarding and verification flow over
// HTTP.
//
// With no REDIS_ADDR set it runs entirely self-contained: an embedded
// miniredis instance backs the stores and a development challenger prints
// issued codes to the log instead of sending SMS.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"

	careauth "github.com/trygve-health/careauth"
	"github.com/trygve-health/careauth/web"
)

type serverConfig struct {
	Addr      string `env:"CAREAUTH_ADDR" envDefault:":8080"`
	RedisAddr string `env:"CAREAUTH_REDIS_ADDR"`
	LogFormat string `env:"CAREAUTH_LOG_FORMAT" envDefault:"text"`
}

// devCodeSink surfaces issued verification codes in the log so the flow can
// be exercised without an SMS provider. Only events that carry a challenge
// reference resolvable by the development challenger produce output.
type devCodeSink struct {
	challenger *careauth.DevChallenger
	log        *slog.Logger
}

func (s devCodeSink) Emit(_ context.Context, event careauth.AuditEvent) {
	ref, ok := event.Metadata["challenge_ref"]
	if !ok {
		return
	}
	code, ok := s.challenger.IssuedCode(ref)
	if !ok {
		return
	}
	s.log.Info("verification code issued", "phone", event.Phone, "code", code)
}

func main() {
	var srvCfg serverConfig
	if err := env.Parse(&srvCfg); err != nil {
		slog.Error("parsing server config", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler
	if srvCfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, nil)
	} else {
		handler = slog.NewTextHandler(os.Stderr, nil)
	}
	log := slog.New(handler)

	var cfg careauth.Config
	if err := env.Parse(&cfg); err != nil {
		log.Error("parsing auth config", "error", err)
		os.Exit(1)
	}

	rdb, cleanup, err := openRedis(srvCfg.RedisAddr, log)
	if err != nil {
		log.Error("starting redis", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	devMode := srvCfg.RedisAddr == ""
	if cfg.Token.Secret == "" {
		if !devMode {
			log.Error("AUTH_TOKEN_SECRET is required when a Redis address is configured")
			os.Exit(1)
		}
		cfg.Token.Secret = randomSecret()
		log.Warn("no token secret configured, generated an ephemeral one")
	}

	challenger := careauth.NewDevChallenger()

	builder := careauth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithChallenger(challenger).
		WithLogger(log)
	if devMode {
		builder.WithAuditSink(devCodeSink{challenger: challenger, log: log})
	} else {
		builder.WithAuditSink(careauth.NewJSONWriterSink(os.Stdout))
	}

	engine, err := builder.Build()
	if err != nil {
		log.Error("building engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	srv := &http.Server{
		Addr:              srvCfg.Addr,
		Handler:           web.NewHandler(engine, log).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("listening", "addr", srvCfg.Addr, "dev", devMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("serving", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown", "error", err)
	}
}

func openRedis(addr string, log *slog.Logger) (*redis.Client, func(), error) {
	if addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, err
	}
	log.Info("using embedded redis", "addr", mr.Addr())
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func randomSecret() string {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
