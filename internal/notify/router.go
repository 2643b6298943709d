// Package notify fans new-review notifications out to operators.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"feedback-bot/internal/domain"
	"feedback-bot/internal/metrics"
)

// ReplyButtonText labels the reply affordance on review messages.
const ReplyButtonText = "Ответить"

// Sender delivers a text message with optional inline buttons.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string, buttons ...[]domain.Button) error
}

// NewReview carries everything an operator sees about a fresh submission.
type NewReview struct {
	ReviewID         int64
	RespondentID     int64
	RespondentHandle string
	Answers          domain.Answers
}

// Delivery is the outcome of one notification attempt.
type Delivery struct {
	OperatorID int64
	Err        error
}

// Report collects per-operator outcomes of a fan-out.
type Report struct {
	Deliveries []Delivery
}

// Failed returns the deliveries that did not succeed.
func (r Report) Failed() []Delivery {
	var out []Delivery
	for _, d := range r.Deliveries {
		if d.Err != nil {
			out = append(out, d)
		}
	}
	return out
}

// Router sends notifications to every configured operator.
type Router struct {
	sender    Sender
	operators domain.OperatorSet
	recorder  metrics.Recorder
	logger    *slog.Logger
}

func NewRouter(sender Sender, operators domain.OperatorSet, recorder metrics.Recorder, logger *slog.Logger) (*Router, error) {
	if sender == nil {
		return nil, errors.New("notify: sender must not be nil")
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{sender: sender, operators: operators, recorder: recorder, logger: logger}, nil
}

// NotifyNewReview attempts delivery to each operator independently. A failed
// attempt is logged and recorded; it never stops the remaining attempts.
func (r *Router) NotifyNewReview(ctx context.Context, n NewReview) Report {
	text := NewReviewText(n)
	buttons := ReplyKeyboard(n.ReviewID, n.RespondentID)

	ids := r.operators.IDs()
	report := Report{Deliveries: make([]Delivery, 0, len(ids))}
	for _, id := range ids {
		err := r.sender.SendText(ctx, id, text, buttons...)
		r.recorder.ObserveDelivery("notify", err == nil)
		if err != nil {
			r.logger.Error("failed to notify operator",
				"operator_id", id,
				"review_id", n.ReviewID,
				"err", err,
			)
		}
		report.Deliveries = append(report.Deliveries, Delivery{OperatorID: id, Err: err})
	}
	return report
}

// NewReviewText renders the operator notification for a fresh review.
func NewReviewText(n NewReview) string {
	handle := n.RespondentHandle
	if handle == "" {
		handle = "неизвестно"
	}
	return fmt.Sprintf("📩 Новый отзыв #%d от @%s (id: %d):\n\n%s",
		n.ReviewID, handle, n.RespondentID, n.Answers.Display())
}

// ReplyKeyboard returns the single reply button bound to a review.
func ReplyKeyboard(reviewID, respondentID int64) [][]domain.Button {
	return [][]domain.Button{{{Text: ReplyButtonText, Payload: FormatAnswerToken(reviewID, respondentID)}}}
}
