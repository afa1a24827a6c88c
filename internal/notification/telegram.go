package notification

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultTelegramAPI is the Telegram Bot API host.
const DefaultTelegramAPI = "https://api.telegram.org"

// Telegram length limits.
const (
	maxMessageLen = 4096
	maxCaptionLen = 1024
)

// TelegramNotifier sends alerts through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	client   *resty.Client
}

// NewTelegramNotifier creates a notifier for chatID using botToken.
func NewTelegramNotifier(botToken, chatID string) *TelegramNotifier {
	return NewTelegramNotifierAt(DefaultTelegramAPI, botToken, chatID)
}

// NewTelegramNotifierAt is NewTelegramNotifier against a custom API host.
func NewTelegramNotifierAt(apiBase, botToken, chatID string) *TelegramNotifier {
	client := resty.New()
	client.SetBaseURL(apiBase)
	client.SetTimeout(15 * time.Second)
	return &TelegramNotifier{botToken: botToken, chatID: chatID, client: client}
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *TelegramNotifier) Send(ctx context.Context, alert Alert) error {
	text := formatTelegram(alert)
	if alert.ImagePath != "" {
		if _, err := os.Stat(alert.ImagePath); err == nil {
			return t.sendPhoto(ctx, alert.ImagePath, clip(text, maxCaptionLen))
		}
		slog.Warn("telegram: image missing, sending text only", "path", alert.ImagePath)
	}
	return t.sendMessage(ctx, clip(text, maxMessageLen))
}

func (t *TelegramNotifier) sendMessage(ctx context.Context, text string) error {
	var out telegramResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"chat_id":    t.chatID,
			"text":       text,
			"parse_mode": "MarkdownV2",
		}).
		SetResult(&out).
		SetError(&out).
		Post(t.method("sendMessage"))
	return t.check("sendMessage", resp, err, out)
}

func (t *TelegramNotifier) sendPhoto(ctx context.Context, path, caption string) error {
	var out telegramResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"chat_id":    t.chatID,
			"caption":    caption,
			"parse_mode": "MarkdownV2",
		}).
		SetFile("photo", path).
		SetResult(&out).
		SetError(&out).
		Post(t.method("sendPhoto"))
	return t.check("sendPhoto", resp, err, out)
}

func (t *TelegramNotifier) method(name string) string {
	return fmt.Sprintf("/bot%s/%s", t.botToken, name)
}

func (t *TelegramNotifier) check(method string, resp *resty.Response, err error, out telegramResponse) error {
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	if resp.StatusCode() != 200 || !out.OK {
		return fmt.Errorf("telegram %s: status %d: %s", method, resp.StatusCode(), out.Description)
	}
	return nil
}

// formatTelegram renders alert as MarkdownV2: bold title, body, optional link.
func formatTelegram(alert Alert) string {
	var buf bytes.Buffer
	if alert.Title != "" {
		buf.WriteString("*")
		buf.WriteString(escapeMarkdown(alert.Title))
		buf.WriteString("*\n\n")
	}
	buf.WriteString(escapeMarkdown(alert.Message))
	if alert.Link != "" {
		buf.WriteString("\n\n")
		buf.WriteString(escapeMarkdown(alert.Link))
	}
	return buf.String()
}

// escapeMarkdown escapes the characters MarkdownV2 reserves.
func escapeMarkdown(s string) string {
	specials := []byte{'_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!', '\\'}
	var buf bytes.Buffer
	for i := 0; i < len(s); i++ {
		if bytes.IndexByte(specials, s[i]) >= 0 {
			buf.WriteByte('\\')
		}
		buf.WriteByte(s[i])
	}
	return buf.String()
}

// clip truncates s to at most n bytes without splitting an escape sequence
// or a UTF-8 rune.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && (s[cut]&0xC0) == 0x80 {
		cut--
	}
	if cut > 0 && s[cut-1] == '\\' {
		cut--
	}
	return s[:cut]
}
