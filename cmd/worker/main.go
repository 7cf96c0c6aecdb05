package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/rasoiyaa/backend-store/internal/config"
	"github.com/rasoiyaa/backend-store/internal/notify"
	"github.com/rasoiyaa/backend-store/internal/obs"
)

// The worker drains the email queue: login codes and order confirmations.
// It shares nothing with the API process except Redis and configuration.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	asynqOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}

	var mail notify.EmailSender
	switch envOrDefault("EMAIL_DRIVER", "log") {
	case "noop":
		mail = notify.NopEmailSender{}
	default:
		mail = notify.LogEmailSender{Logger: logger}
	}

	worker := &notify.Worker{Mail: mail, Logger: logger}

	srv := asynq.NewServer(asynqOpt, asynq.Config{
		Concurrency: envInt("WORKER_CONCURRENCY", 5),
		Queues:      map[string]int{"default": 1},
	})

	mux := asynq.NewServeMux()
	worker.Register(mux)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logger.Info().Msg("shutdown signal received")
		srv.Shutdown()
	}()

	logger.Info().Msg("worker starting")
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker stopped with error")
	}
	logger.Info().Msg("worker shutdown complete")
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}
