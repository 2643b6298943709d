// Package telegram is the messaging gateway used by the dispatcher, built on
// the telegram-bot-api client.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"feedback-bot/internal/domain"
)

const defaultBaseURL = "https://api.telegram.org"

// tokenPayload is the expected JSON shape stored in SSM for the bot token.
type tokenPayload struct {
	Token string `json:"token"`
}

type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// APIError is a Bot API call that returned ok=false.
type APIError struct {
	StatusCode  int
	Method      string
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: %s failed with status %d: %s", e.Method, e.StatusCode, e.Description)
}

func (e *APIError) HTTPStatusCode() int {
	return e.StatusCode
}

// Blocked reports whether the recipient blocked the bot or is deactivated.
func (e *APIError) Blocked() bool {
	return e.StatusCode == http.StatusForbidden
}

// Client sends through a lazily created tgbotapi.BotAPI. The token comes
// from WithToken or from the parameter store; a failed bot setup is retried
// on the next call.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	getter      Getter
	paramPrefix string
	staticToken string

	mu  sync.Mutex
	api *tgbotapi.BotAPI
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithToken sets the bot token directly and skips the parameter store.
func WithToken(token string) Option {
	return func(c *Client) {
		c.staticToken = strings.TrimSpace(token)
	}
}

// NewClient creates a Client. Unless WithToken is given, the token is read
// from "<paramPrefix>/telegram-token" on first use.
func NewClient(ps Getter, paramPrefix string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:     defaultBaseURL,
		httpClient:  &http.Client{Timeout: 70 * time.Second},
		getter:      ps,
		paramPrefix: strings.TrimRight(strings.TrimSpace(paramPrefix), "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.staticToken == "" {
		if ps == nil {
			return nil, errors.New("telegram: paramstore getter must not be nil without a static token")
		}
		if c.paramPrefix == "" {
			return nil, errors.New("telegram: parameter prefix must not be empty")
		}
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 70 * time.Second}
	}
	return c, nil
}

// apiEndpoint is the tgbotapi endpoint format: base + "/bot<token>/<method>".
func apiEndpoint(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	return base + "/bot%s/%s"
}

// bot returns the BotAPI, creating it (getMe included) on first success.
func (c *Client) bot(ctx context.Context) (*tgbotapi.BotAPI, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.api != nil {
		return c.api, nil
	}
	token := c.staticToken
	if token == "" {
		var err error
		token, err = fetchTokenFromParamStore(ctx, c.getter, c.paramPrefix+"/telegram-token")
		if err != nil {
			return nil, err
		}
	}
	api, err := tgbotapi.NewBotAPIWithClient(token, apiEndpoint(c.baseURL), c.httpClient)
	if err != nil {
		return nil, mapError("getMe", err)
	}
	c.api = api
	return api, nil
}

func keyboard(rows [][]domain.Button) tgbotapi.InlineKeyboardMarkup {
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Payload))
		}
		out = append(out, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(out...)
}

// SendText sends a plain-text message, with an inline keyboard when rows are given.
func (c *Client) SendText(ctx context.Context, chatID int64, text string, rows ...[]domain.Button) error {
	api, err := c.bot(ctx)
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if len(rows) > 0 {
		msg.ReplyMarkup = keyboard(rows)
	}
	if _, err := api.Send(msg); err != nil {
		return mapError("sendMessage", err)
	}
	return nil
}

// SendImage sends a photo by URL or file_id with a caption.
func (c *Client) SendImage(ctx context.Context, chatID int64, imageRef, caption string) error {
	imageRef = strings.TrimSpace(imageRef)
	if imageRef == "" {
		return errors.New("telegram: image reference must not be empty")
	}
	api, err := c.bot(ctx)
	if err != nil {
		return err
	}
	var file tgbotapi.RequestFileData = tgbotapi.FileID(imageRef)
	if strings.HasPrefix(imageRef, "http://") || strings.HasPrefix(imageRef, "https://") {
		file = tgbotapi.FileURL(imageRef)
	}
	photo := tgbotapi.NewPhoto(chatID, file)
	photo.Caption = caption
	if _, err := api.Send(photo); err != nil {
		return mapError("sendPhoto", err)
	}
	return nil
}

// AckButton answers a callback query; a non-empty text is shown as an alert.
func (c *Client) AckButton(ctx context.Context, callbackID, text string) error {
	api, err := c.bot(ctx)
	if err != nil {
		return err
	}
	cb := tgbotapi.NewCallback(callbackID, text)
	cb.ShowAlert = text != ""
	if _, err := api.Request(cb); err != nil {
		return mapError("answerCallbackQuery", err)
	}
	return nil
}

// DeleteWebhook switches the bot to getUpdates delivery.
func (c *Client) DeleteWebhook(ctx context.Context, dropPending bool) error {
	api, err := c.bot(ctx)
	if err != nil {
		return err
	}
	if _, err := api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: dropPending}); err != nil {
		return mapError("deleteWebhook", err)
	}
	return nil
}

// mapError turns Bot API refusals into *APIError and strips the request URL,
// which carries the token, from transport errors.
func mapError(method string, err error) error {
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) {
		return &APIError{StatusCode: tgErr.Code, Method: method, Description: tgErr.Message}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	return fmt.Errorf("telegram: %s request failed: %w", method, err)
}

func fetchTokenFromParamStore(ctx context.Context, getter Getter, name string) (string, error) {
	if getter == nil {
		return "", errors.New("telegram: paramstore getter is nil")
	}
	raw, err := getter.GetParameter(ctx, name)
	if err != nil {
		return "", fmt.Errorf("telegram: fetch token from paramstore: %w", err)
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("telegram: unmarshal paramstore token value as JSON: %w", err)
	}
	if tp.Token == "" {
		return "", errors.New("telegram: bot token is empty")
	}
	return tp.Token, nil
}
