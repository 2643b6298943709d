package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"feedback-bot/internal/domain"
)

// HandleFunc processes one inbound update.
type HandleFunc func(ctx context.Context, u domain.Update) error

// Poller feeds the long-polling update channel to a single handler one
// update at a time.
type Poller struct {
	client      *Client
	handle      HandleFunc
	logger      *slog.Logger
	pollTimeout int
}

func NewPoller(client *Client, handle HandleFunc, logger *slog.Logger) (*Poller, error) {
	if client == nil {
		return nil, errors.New("telegram: client must not be nil")
	}
	if handle == nil {
		return nil, errors.New("telegram: handler must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	// the library reports polling failures through its package logger
	_ = tgbotapi.SetLogger(libLogger{logger: logger})
	return &Poller{client: client, handle: handle, logger: logger, pollTimeout: 50}, nil
}

// Run polls until ctx is cancelled. Handler errors are logged and the update
// is acknowledged anyway so a failing update is not redelivered forever.
func (p *Poller) Run(ctx context.Context) error {
	api, err := p.client.bot(ctx)
	if err != nil {
		return err
	}
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = p.pollTimeout
	cfg.AllowedUpdates = []string{"message", "callback_query"}

	updates := api.GetUpdatesChan(cfg)
	defer api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, open := <-updates:
			if !open {
				return errors.New("telegram: update channel closed")
			}
			event, ok := ToDomain(raw)
			if !ok {
				continue
			}
			if err := p.handle(ctx, event); err != nil {
				p.logger.Error("failed to handle update", "update_id", raw.UpdateID, "err", err)
			}
		}
	}
}

var tokenInText = regexp.MustCompile(`bot\d+:[A-Za-z0-9_-]+`)

// libLogger routes tgbotapi log lines to slog with the token masked.
type libLogger struct {
	logger *slog.Logger
}

func (l libLogger) Println(v ...interface{}) {
	l.log(strings.TrimSpace(fmt.Sprintln(v...)))
}

func (l libLogger) Printf(format string, v ...interface{}) {
	l.log(fmt.Sprintf(format, v...))
}

func (l libLogger) log(msg string) {
	l.logger.Warn("telegram client", "msg", tokenInText.ReplaceAllString(msg, "bot<token>"))
}
