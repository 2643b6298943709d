package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"feedback-bot/handler"
	"feedback-bot/internal/app"
	"feedback-bot/internal/config"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// ---- Configuration (read only here) ----
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"), os.Getenv)
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	if cfg.ReviewBackend != config.BackendDynamoDB {
		slog.Warn("review backend is not dynamodb; reviews are lost when the container is recycled", "backend", cfg.ReviewBackend)
	}

	// ---- Clients ----
	a, err := app.Wire(ctx, cfg, nil, logger)
	if err != nil {
		slog.Error("failed to wire application", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	h, err := handler.NewHandler(a.Dispatcher, cfg.WebhookSecret, logger)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}
