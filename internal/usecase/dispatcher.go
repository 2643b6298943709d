package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"feedback-bot/internal/conversation"
	"feedback-bot/internal/domain"
	"feedback-bot/internal/metrics"
	"feedback-bot/internal/notify"
)

// legacyStartPayload is the payload of the "start review" button sent by
// earlier deployments. Pressing it starts the survey like /start.
const legacyStartPayload = "start_review"

const (
	outcomeOK      = "ok"
	outcomeIgnored = "ignored"
	outcomeRefused = "refused"
	outcomeError   = "error"
)

type ReviewStore interface {
	Create(ctx context.Context, respondentID int64, handle, body string) (int64, error)
	Get(ctx context.Context, id int64) (domain.Review, error)
	ListUnanswered(ctx context.Context) ([]domain.Review, error)
	ListAnswered(ctx context.Context) ([]domain.Review, error)
	MarkAnswered(ctx context.Context, id int64, reply string) error
	CountDistinctRespondents(ctx context.Context) (int, error)
	CountTotalReviews(ctx context.Context) (int, error)
}

// Gateway is the outbound side of the chat transport.
type Gateway interface {
	SendText(ctx context.Context, chatID int64, text string, rows ...[]domain.Button) error
	SendImage(ctx context.Context, chatID int64, imageRef, caption string) error
	AckButton(ctx context.Context, callbackID, text string) error
}

type Notifier interface {
	NotifyNewReview(ctx context.Context, n notify.NewReview) notify.Report
}

type DispatcherConfig struct {
	// AskSubject enables the "desired future topics" question.
	AskSubject bool
	// WelcomeImage is a URL or file id sent with the greeting; empty sends
	// the greeting as plain text.
	WelcomeImage string
	Recorder     metrics.Recorder
	Logger       *slog.Logger
}

// Dispatcher routes inbound updates to the survey, the operator reply flow
// and the operator-only commands.
type Dispatcher struct {
	reviews   ReviewStore
	sessions  conversation.Store
	gateway   Gateway
	notifier  Notifier
	operators domain.OperatorSet
	machine   conversation.Machine

	welcomeImage string
	recorder     metrics.Recorder
	logger       *slog.Logger
}

func NewDispatcher(reviews ReviewStore, sessions conversation.Store, gateway Gateway, notifier Notifier, operators domain.OperatorSet, cfg DispatcherConfig) (*Dispatcher, error) {
	if reviews == nil {
		return nil, errors.New("usecase: review store must not be nil")
	}
	if sessions == nil {
		return nil, errors.New("usecase: session store must not be nil")
	}
	if gateway == nil {
		return nil, errors.New("usecase: gateway must not be nil")
	}
	if notifier == nil {
		return nil, errors.New("usecase: notifier must not be nil")
	}
	if cfg.Recorder == nil {
		cfg.Recorder = metrics.Nop{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Dispatcher{
		reviews:      reviews,
		sessions:     sessions,
		gateway:      gateway,
		notifier:     notifier,
		operators:    operators,
		machine:      conversation.Machine{AskSubject: cfg.AskSubject},
		welcomeImage: strings.TrimSpace(cfg.WelcomeImage),
		recorder:     cfg.Recorder,
		logger:       cfg.Logger,
	}, nil
}

// Handle processes one update. Updates for the same user must be handled
// sequentially.
func (d *Dispatcher) Handle(ctx context.Context, u domain.Update) error {
	corrID := CorrelationID(ctx)
	if corrID == "" {
		corrID = uuid.NewString()
	}
	log := d.logger.With("correlation_id", corrID, "update_id", u.ID, "user_id", u.From.ID)

	var (
		outcome string
		err     error
	)
	switch u.Kind {
	case domain.UpdateCommand:
		outcome, err = d.handleCommand(ctx, log, u)
	case domain.UpdateText:
		outcome, err = d.handleText(ctx, log, u)
	case domain.UpdateButton:
		outcome, err = d.handleButton(ctx, log, u)
	default:
		err = newError(ErrorInvalidInput, "unknown_update_kind", nil)
	}
	if err != nil {
		outcome = outcomeError
		log.Error("update failed", "kind", u.Kind, "err", err)
	}
	d.recorder.ObserveUpdate(string(u.Kind), outcome)
	return err
}

func (d *Dispatcher) handleCommand(ctx context.Context, log *slog.Logger, u domain.Update) (string, error) {
	switch u.Command {
	case "start":
		return d.startSurvey(ctx, log, u)
	case "reviews", "all_reviews", "answer", "stats", "admin", "help":
	default:
		// Unknown verbs such as "/10 would visit again" are ordinary answers.
		return d.handleText(ctx, log, u)
	}

	if !d.operators.Contains(u.From.ID) {
		log.Info("operator command refused", "command", u.Command)
		d.send(ctx, log, "refusal", chatOf(u), textOperatorOnly)
		return outcomeRefused, nil
	}

	switch u.Command {
	case "reviews":
		return d.listUnanswered(ctx, log, u)
	case "all_reviews":
		return d.listAll(ctx, log, u)
	case "answer":
		return d.answerByID(ctx, log, u)
	case "stats":
		return d.stats(ctx, log, u)
	default:
		d.send(ctx, log, "help", chatOf(u), textHelp)
		return outcomeOK, nil
	}
}

func (d *Dispatcher) startSurvey(ctx context.Context, log *slog.Logger, u domain.Update) (string, error) {
	if err := d.sessions.Save(ctx, u.From.ID, d.machine.Start()); err != nil {
		return "", newError(ErrorStorage, "save_session", err)
	}
	chat := chatOf(u)
	if d.welcomeImage != "" {
		err := d.gateway.SendImage(ctx, chat, d.welcomeImage, textGreeting)
		d.recorder.ObserveDelivery("greeting", err == nil)
		if err != nil {
			log.Warn("failed to send welcome image, falling back to text", "err", err)
			d.send(ctx, log, "greeting", chat, textGreeting)
		}
	} else {
		d.send(ctx, log, "greeting", chat, textGreeting)
	}
	d.send(ctx, log, "prompt", chat, textAskSource, domain.SourceKeyboard()...)
	return outcomeOK, nil
}

func (d *Dispatcher) handleText(ctx context.Context, log *slog.Logger, u domain.Update) (string, error) {
	session, err := d.sessions.Load(ctx, u.From.ID)
	if err != nil {
		return "", newError(ErrorStorage, "load_session", err)
	}
	next, step := d.machine.Text(session, u.Text)
	switch step {
	case conversation.StepAdvanced:
		if err := d.sessions.Save(ctx, u.From.ID, next); err != nil {
			return "", newError(ErrorStorage, "save_session", err)
		}
		d.prompt(ctx, log, chatOf(u), next.Stage)
		return outcomeOK, nil
	case conversation.StepCompleted:
		return d.completeSurvey(ctx, log, u, next.Scratch)
	case conversation.StepOperatorReply:
		return d.submitReply(ctx, log, u, session)
	default:
		return outcomeIgnored, nil
	}
}

func (d *Dispatcher) completeSurvey(ctx context.Context, log *slog.Logger, u domain.Update, answers domain.Answers) (string, error) {
	chat := chatOf(u)
	id, err := d.reviews.Create(ctx, u.From.ID, u.From.Username, domain.ComposeBody(answers))
	if err != nil {
		// The session stays at its last question so the respondent can resend.
		d.send(ctx, log, "save_failed", chat, textSaveFailed)
		return "", newError(ErrorStorage, "create_review", err)
	}
	log.Info("review stored", "review_id", id)

	if err := d.sessions.Reset(ctx, u.From.ID); err != nil {
		log.Error("failed to reset session", "err", err)
	}
	d.send(ctx, log, "thanks", chat, textThanks)

	report := d.notifier.NotifyNewReview(ctx, notify.NewReview{
		ReviewID:         id,
		RespondentID:     u.From.ID,
		RespondentHandle: u.From.Username,
		Answers:          answers,
	})
	if failed := report.Failed(); len(failed) > 0 {
		log.Warn("some operators were not notified", "review_id", id, "failed", len(failed))
	}
	return outcomeOK, nil
}

func (d *Dispatcher) handleButton(ctx context.Context, log *slog.Logger, u domain.Update) (string, error) {
	payload := strings.TrimSpace(u.Payload)

	if notify.IsAnswerToken(payload) {
		if !d.operators.Contains(u.From.ID) {
			d.ack(ctx, log, u, textAccessDenied)
			return outcomeRefused, nil
		}
		d.ack(ctx, log, u, "")
		reviewID, respondentID, err := notify.ParseAnswerToken(payload)
		if err != nil {
			log.Warn("malformed answer token", "payload", payload, "err", err)
			d.send(ctx, log, "reply_prompt", chatOf(u), textBadToken)
			return outcomeOK, nil
		}
		return d.beginReply(ctx, log, u, reviewID, respondentID, true)
	}

	d.ack(ctx, log, u, "")
	if payload == legacyStartPayload {
		return d.startSurvey(ctx, log, u)
	}

	session, err := d.sessions.Load(ctx, u.From.ID)
	if err != nil {
		return "", newError(ErrorStorage, "load_session", err)
	}
	next, step := d.machine.SelectSource(session, payload)
	if step != conversation.StepAdvanced {
		return outcomeIgnored, nil
	}
	if err := d.sessions.Save(ctx, u.From.ID, next); err != nil {
		return "", newError(ErrorStorage, "save_session", err)
	}
	d.prompt(ctx, log, chatOf(u), next.Stage)
	return outcomeOK, nil
}

// beginReply switches an operator into reply mode for a review. With
// checkRespondent set, respondentID must match the stored review.
func (d *Dispatcher) beginReply(ctx context.Context, log *slog.Logger, u domain.Update, reviewID, respondentID int64, checkRespondent bool) (string, error) {
	chat := chatOf(u)
	r, err := d.reviews.Get(ctx, reviewID)
	if errors.Is(err, domain.ErrNotFound) {
		d.send(ctx, log, "reply_prompt", chat, textReviewNotFound(reviewID))
		return outcomeOK, nil
	}
	if err != nil {
		return "", newError(ErrorStorage, "get_review", err)
	}
	if r.Answered {
		d.send(ctx, log, "reply_prompt", chat, textAlreadyAnswered(reviewID))
		return outcomeOK, nil
	}
	if checkRespondent && respondentID != r.RespondentID {
		log.Warn("answer token respondent mismatch", "review_id", reviewID, "token_respondent", respondentID, "stored_respondent", r.RespondentID)
		d.send(ctx, log, "reply_prompt", chat, textBadToken)
		return outcomeOK, nil
	}
	if err := d.sessions.Save(ctx, u.From.ID, d.machine.BeginReply(r.ID, r.RespondentID)); err != nil {
		return "", newError(ErrorStorage, "save_session", err)
	}
	d.send(ctx, log, "reply_prompt", chat, textEnterReply(reviewID))
	return outcomeOK, nil
}

func (d *Dispatcher) answerByID(ctx context.Context, log *slog.Logger, u domain.Update) (string, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(u.Args), 10, 64)
	if err != nil || id <= 0 {
		d.send(ctx, log, "reply_prompt", chatOf(u), textAnswerUsage)
		return outcomeOK, nil
	}
	return d.beginReply(ctx, log, u, id, 0, false)
}

func (d *Dispatcher) submitReply(ctx context.Context, log *slog.Logger, u domain.Update, session domain.Session) (string, error) {
	chat := chatOf(u)
	reset := func() {
		if err := d.sessions.Reset(ctx, u.From.ID); err != nil {
			log.Error("failed to reset session", "err", err)
		}
	}

	r, err := d.reviews.Get(ctx, session.ReviewID)
	if errors.Is(err, domain.ErrNotFound) {
		reset()
		d.send(ctx, log, "reply_result", chat, textReviewNotFound(session.ReviewID))
		return outcomeOK, nil
	}
	if err != nil {
		return "", newError(ErrorStorage, "get_review", err)
	}
	if r.Answered {
		reset()
		d.send(ctx, log, "reply_result", chat, textAlreadyAnswered(r.ID))
		return outcomeOK, nil
	}

	err = d.gateway.SendText(ctx, session.RespondentID, textReplyToUser+u.Text)
	d.recorder.ObserveDelivery("reply", err == nil)
	if err != nil {
		log.Error("failed to deliver reply", "review_id", r.ID, "respondent_id", session.RespondentID, "err", err)
		reset()
		d.send(ctx, log, "reply_result", chat, textDeliveryFailed(err))
		return outcomeOK, nil
	}

	if err := d.reviews.MarkAnswered(ctx, r.ID, u.Text); err != nil {
		reset()
		d.send(ctx, log, "reply_result", chat, textMarkFailed(r.ID))
		return "", newError(ErrorStorage, "mark_answered", err)
	}
	reset()
	log.Info("review answered", "review_id", r.ID)
	d.send(ctx, log, "reply_result", chat, textReplySent)
	return outcomeOK, nil
}

func (d *Dispatcher) listUnanswered(ctx context.Context, log *slog.Logger, u domain.Update) (string, error) {
	reviews, err := d.reviews.ListUnanswered(ctx)
	if err != nil {
		return "", newError(ErrorStorage, "list_unanswered", err)
	}
	chat := chatOf(u)
	if len(reviews) == 0 {
		d.send(ctx, log, "list", chat, textNoNewReviews)
		return outcomeOK, nil
	}
	for _, r := range reviews {
		d.send(ctx, log, "list", chat, reviewText(r), notify.ReplyKeyboard(r.ID, r.RespondentID)...)
	}
	return outcomeOK, nil
}

func (d *Dispatcher) listAll(ctx context.Context, log *slog.Logger, u domain.Update) (string, error) {
	unanswered, err := d.reviews.ListUnanswered(ctx)
	if err != nil {
		return "", newError(ErrorStorage, "list_unanswered", err)
	}
	answered, err := d.reviews.ListAnswered(ctx)
	if err != nil {
		return "", newError(ErrorStorage, "list_answered", err)
	}
	chat := chatOf(u)
	if len(unanswered) == 0 && len(answered) == 0 {
		d.send(ctx, log, "list", chat, textNoReviews)
		return outcomeOK, nil
	}

	d.send(ctx, log, "list", chat, textUnansweredHead)
	if len(unanswered) == 0 {
		d.send(ctx, log, "list", chat, textNoUnanswered)
	}
	for _, r := range unanswered {
		d.send(ctx, log, "list", chat, reviewText(r), notify.ReplyKeyboard(r.ID, r.RespondentID)...)
	}

	d.send(ctx, log, "list", chat, textAnsweredHead)
	if len(answered) == 0 {
		d.send(ctx, log, "list", chat, textNoAnswered)
	}
	for _, r := range answered {
		d.send(ctx, log, "list", chat, reviewText(r))
	}
	return outcomeOK, nil
}

func (d *Dispatcher) stats(ctx context.Context, log *slog.Logger, u domain.Update) (string, error) {
	respondents, err := d.reviews.CountDistinctRespondents(ctx)
	if err != nil {
		return "", newError(ErrorStorage, "count_respondents", err)
	}
	total, err := d.reviews.CountTotalReviews(ctx)
	if err != nil {
		return "", newError(ErrorStorage, "count_reviews", err)
	}
	d.send(ctx, log, "stats", chatOf(u), textStats(respondents, total))
	return outcomeOK, nil
}

// prompt asks the question belonging to stage.
func (d *Dispatcher) prompt(ctx context.Context, log *slog.Logger, chat int64, stage domain.Stage) {
	switch stage {
	case domain.StageAwaitingSourceChoice:
		d.send(ctx, log, "prompt", chat, textAskSource, domain.SourceKeyboard()...)
	case domain.StageAwaitingCustomSource:
		d.send(ctx, log, "prompt", chat, textAskCustomSource)
	case domain.StageAwaitingFreeReview:
		d.send(ctx, log, "prompt", chat, textAskFreeReview)
	case domain.StageAwaitingSubject:
		d.send(ctx, log, "prompt", chat, textAskSubject)
	}
}

// send delivers a message. Failures are logged and counted, not returned.
func (d *Dispatcher) send(ctx context.Context, log *slog.Logger, purpose string, chat int64, text string, rows ...[]domain.Button) {
	err := d.gateway.SendText(ctx, chat, text, rows...)
	d.recorder.ObserveDelivery(purpose, err == nil)
	if err != nil {
		log.Error("failed to send message", "purpose", purpose, "chat_id", chat, "err", err)
	}
}

func (d *Dispatcher) ack(ctx context.Context, log *slog.Logger, u domain.Update, text string) {
	if u.CallbackID == "" {
		return
	}
	if err := d.gateway.AckButton(ctx, u.CallbackID, text); err != nil {
		log.Warn("failed to acknowledge button", "err", err)
	}
}

type correlationKey struct{}

// WithCorrelationID tags ctx with the id used in log lines for one update.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

func chatOf(u domain.Update) int64 {
	if u.ChatID != 0 {
		return u.ChatID
	}
	return u.From.ID
}
