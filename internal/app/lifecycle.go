package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"feedback-bot/internal/domain"
	"feedback-bot/internal/notify"
)

const (
	NoticeStarted = "Бот включился"
	NoticeStopped = "Бот отключился"
)

var noticeTimeout = 10 * time.Second

// RunWithNotices tells the primary operator the bot started, runs fn and
// tells them it stopped on every return, panics included. A cancelled ctx is
// a clean stop. Failed notices are only logged.
func RunWithNotices(ctx context.Context, sender notify.Sender, operators domain.OperatorSet, logger *slog.Logger, fn func(context.Context) error) error {
	if logger == nil {
		logger = slog.Default()
	}
	primary, hasPrimary := operators.Primary()
	notice := func(text string) {
		if !hasPrimary || sender == nil {
			return
		}
		// ctx may already be cancelled when the stop notice goes out
		noticeCtx, cancel := context.WithTimeout(context.Background(), noticeTimeout)
		defer cancel()
		if err := sender.SendText(noticeCtx, primary, text); err != nil {
			logger.Warn("failed to send lifecycle notice", "operator_id", primary, "notice", text, "err", err)
		}
	}

	notice(NoticeStarted)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("bot panicked", "panic", r)
			notice(NoticeStopped)
			panic(r)
		}
	}()

	err := fn(ctx)
	notice(NoticeStopped)
	if errors.Is(err, context.Canceled) {
		logger.Info("bot stopped")
		return nil
	}
	return err
}
