// Package app wires configuration into a ready dispatcher for both entry
// points.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"feedback-bot/internal/config"
	"feedback-bot/internal/conversation"
	"feedback-bot/internal/domain"
	"feedback-bot/internal/integrations/paramstore"
	"feedback-bot/internal/integrations/telegram"
	"feedback-bot/internal/metrics"
	"feedback-bot/internal/notify"
	"feedback-bot/internal/repository"
	"feedback-bot/internal/usecase"
)

// App holds the wired components. Close releases the review store.
type App struct {
	Dispatcher *usecase.Dispatcher
	Telegram   *telegram.Client
	Operators  domain.OperatorSet

	close func() error
}

func (a *App) Close() error {
	if a.close == nil {
		return nil
	}
	return a.close()
}

// Wire builds the stores, the Telegram client and the dispatcher described
// by cfg. AWS clients are created only when a setting needs them.
func Wire(ctx context.Context, cfg config.Config, recorder metrics.Recorder, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}

	needsAWS := cfg.ParamPrefix != "" || cfg.ReviewBackend == config.BackendDynamoDB || cfg.SessionsTable != ""
	var (
		params *paramstore.Client
		dynamo *awsdynamodb.Client
	)
	if needsAWS {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("app: load AWS config: %w", err)
		}
		params, err = paramstore.New(awsssm.NewFromConfig(awsCfg))
		if err != nil {
			return nil, fmt.Errorf("app: create SSM client: %w", err)
		}
		dynamo = awsdynamodb.NewFromConfig(awsCfg)
	}

	operators, err := loadOperators(ctx, cfg, params)
	if err != nil {
		return nil, err
	}
	if operators.Len() == 0 {
		logger.Warn("no operators configured; new reviews will not be forwarded")
	}

	var tgOpts []telegram.Option
	if cfg.BotToken != "" {
		tgOpts = append(tgOpts, telegram.WithToken(cfg.BotToken))
	}
	var getter telegram.Getter
	if params != nil {
		getter = params
	}
	tg, err := telegram.NewClient(getter, cfg.ParamPrefix, tgOpts...)
	if err != nil {
		return nil, fmt.Errorf("app: create telegram client: %w", err)
	}

	a := &App{Telegram: tg, Operators: operators}
	var reviews usecase.ReviewStore
	switch cfg.ReviewBackend {
	case config.BackendDynamoDB:
		rc, err := repository.NewReviewClient(dynamo, cfg.ReviewsTable)
		if err != nil {
			return nil, fmt.Errorf("app: create review client: %w", err)
		}
		reviews = rc
	default:
		db, err := repository.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		reviews = db
		a.close = db.Close
	}

	var sessions conversation.Store = conversation.NewMemoryStore()
	if cfg.SessionsTable != "" {
		sc, err := repository.NewSessionClient(dynamo, cfg.SessionsTable)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("app: create session client: %w", err)
		}
		sessions = sc
	}

	router, err := notify.NewRouter(tg, operators, recorder, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Dispatcher, err = usecase.NewDispatcher(reviews, sessions, tg, router, operators, usecase.DispatcherConfig{
		AskSubject:   cfg.AskSubject,
		WelcomeImage: cfg.WelcomeImage,
		Recorder:     recorder,
		Logger:       logger,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// loadOperators prefers the inline list and falls back to
// <ParamPrefix>/operators. A missing parameter means no operators.
func loadOperators(ctx context.Context, cfg config.Config, params *paramstore.Client) (domain.OperatorSet, error) {
	if cfg.Operators != "" {
		set, err := domain.ParseOperatorSet(cfg.Operators)
		if err != nil {
			return domain.OperatorSet{}, fmt.Errorf("app: OPERATORS: %w", err)
		}
		return set, nil
	}
	if params == nil {
		return domain.OperatorSet{}, errors.New("app: no operator source configured")
	}
	items, err := params.GetStringList(ctx, cfg.ParamPrefix+"/operators")
	if errors.Is(err, paramstore.ErrNotFound) {
		return domain.NewOperatorSet(), nil
	}
	if err != nil {
		return domain.OperatorSet{}, fmt.Errorf("app: load operators: %w", err)
	}
	set, err := domain.ParseOperatorSet(strings.Join(items, ","))
	if err != nil {
		return domain.OperatorSet{}, fmt.Errorf("app: operators parameter: %w", err)
	}
	return set, nil
}
