package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lpwatch/lpwatch/internal/logger"

	"github.com/rs/zerolog"
)

const (
	defaultTelegramAPI = "https://api.telegram.org"
	sendTimeout        = 15 * time.Second
)

// Telegram sends alerts through the Telegram Bot API using MarkdownV2.
type Telegram struct {
	apiBase string
	token   string
	chatID  string
	http    *http.Client
	logger  zerolog.Logger
}

// NewTelegram creates a Telegram notifier. Token and chat ID are required;
// pick the console notifier instead when they are not configured.
func NewTelegram(token, chatID string) (*Telegram, error) {
	if token == "" || chatID == "" {
		return nil, errors.New("telegram token and chat ID are required")
	}
	return &Telegram{
		apiBase: defaultTelegramAPI,
		token:   token,
		chatID:  chatID,
		http:    &http.Client{Timeout: sendTimeout},
		logger:  logger.GetForComponent("telegram_notifier"),
	}, nil
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send posts the message to the configured chat.
func (t *Telegram) Send(ctx context.Context, message string) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:    t.chatID,
		Text:      message,
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		return fmt.Errorf("failed to marshal telegram message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request failed: %w", err)
	}
	defer resp.Body.Close()

	var out sendMessageResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&out); err != nil {
		return fmt.Errorf("failed to decode telegram response: %w", err)
	}
	if !out.OK {
		return fmt.Errorf("telegram rejected message: %s", out.Description)
	}

	t.logger.Info().Str("chatID", t.chatID).Msg("Notification delivered to Telegram")
	return nil
}

// escapeMarkdownV2 escapes every character Telegram's MarkdownV2 parser
// treats as markup. Applied to dynamic values only, never to the template.
func escapeMarkdownV2(s string) string {
	const special = `_*[]()~` + "`" + `>#+-=|{}.!\`
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(special, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
