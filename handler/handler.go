// Package handler adapts API Gateway webhook calls from Telegram to the
// update dispatcher.
package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"feedback-bot/internal/domain"
	"feedback-bot/internal/integrations/telegram"
	"feedback-bot/internal/usecase"
)

const (
	headerCorrelationID = "X-Correlation-Id"
	headerSecretToken   = "X-Telegram-Bot-Api-Secret-Token"
)

type UpdateHandler interface {
	Handle(ctx context.Context, u domain.Update) error
}

type Handler struct {
	updates UpdateHandler
	secret  string
	logger  *slog.Logger
}

type okResponse struct {
	OK bool `json:"ok"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewHandler builds the webhook handler. An empty secret disables the
// secret token check.
func NewHandler(updates UpdateHandler, secret string, logger *slog.Logger) (*Handler, error) {
	if updates == nil {
		return nil, errors.New("handler: update handler must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{updates: updates, secret: secret, logger: logger}, nil
}

// Handle answers 200 for every well-formed update, including ones whose
// processing failed, so Telegram does not redeliver them.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := header(req.Headers, headerCorrelationID)
	if corrID == "" {
		corrID = uuid.NewString()
	}
	log := h.logger.With("correlation_id", corrID)

	if h.secret != "" {
		got := header(req.Headers, headerSecretToken)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			log.Warn("rejected webhook call with bad secret token")
			return respond(http.StatusUnauthorized, corrID, errorResponse{Error: "unauthorized"}), nil
		}
	}

	u, ok, err := telegram.DecodeUpdate([]byte(req.Body))
	if err != nil {
		log.Warn("invalid webhook body", "err", err)
		return respond(http.StatusBadRequest, corrID, errorResponse{Error: string(usecase.ErrorInvalidInput)}), nil
	}
	if !ok {
		log.Debug("skipping unsupported update")
		return respond(http.StatusOK, corrID, okResponse{OK: true}), nil
	}

	if err := h.updates.Handle(usecase.WithCorrelationID(ctx, corrID), u); err != nil {
		var ucErr *usecase.Error
		if errors.As(err, &ucErr) {
			log.Error("update handling failed", "update_id", u.ID, "code", ucErr.Code, "reason", ucErr.Reason, "err", ucErr.Err)
		} else {
			log.Error("update handling failed", "update_id", u.ID, "err", err)
		}
	}
	return respond(http.StatusOK, corrID, okResponse{OK: true}), nil
}

func respond(status int, corrID string, body any) events.APIGatewayProxyResponse {
	b, _ := json.Marshal(body)
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":      "application/json",
			headerCorrelationID: corrID,
		},
		Body: string(b),
	}
}

// header looks a name up case-insensitively; API Gateway passes headers
// through as the client sent them.
func header(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return strings.TrimSpace(v)
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
