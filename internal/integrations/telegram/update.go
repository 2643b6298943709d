package telegram

import (
	"encoding/json"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"feedback-bot/internal/domain"
)

// DecodeUpdate parses a webhook body. ok is false for updates the bot has no
// use for.
func DecodeUpdate(body []byte) (u domain.Update, ok bool, err error) {
	var raw tgbotapi.Update
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.Update{}, false, fmt.Errorf("telegram: decode update: %w", err)
	}
	u, ok = ToDomain(raw)
	return u, ok, nil
}

// ToDomain converts a Bot API update into a dispatcher event. Edits,
// stickers and messages from bots report false.
func ToDomain(u tgbotapi.Update) (domain.Update, bool) {
	switch {
	case u.CallbackQuery != nil:
		cb := u.CallbackQuery
		if cb.From == nil {
			return domain.Update{}, false
		}
		chatID := cb.From.ID
		if cb.Message != nil && cb.Message.Chat != nil {
			chatID = cb.Message.Chat.ID
		}
		return domain.Update{
			ID:         int64(u.UpdateID),
			Kind:       domain.UpdateButton,
			From:       domain.User{ID: cb.From.ID, Username: cb.From.UserName},
			ChatID:     chatID,
			Payload:    cb.Data,
			CallbackID: cb.ID,
		}, true
	case u.Message != nil:
		m := u.Message
		if m.From == nil || m.From.IsBot || m.Chat == nil {
			return domain.Update{}, false
		}
		text := m.Text
		if text == "" {
			text = m.Caption
		}
		if strings.TrimSpace(text) == "" {
			return domain.Update{}, false
		}
		out := domain.Update{
			ID:     int64(u.UpdateID),
			Kind:   domain.UpdateText,
			From:   domain.User{ID: m.From.ID, Username: m.From.UserName},
			ChatID: m.Chat.ID,
			Text:   text,
		}
		if m.IsCommand() {
			out.Kind = domain.UpdateCommand
			out.Command = strings.ToLower(m.Command())
			out.Args = strings.TrimSpace(m.CommandArguments())
		}
		return out, true
	}
	return domain.Update{}, false
}
