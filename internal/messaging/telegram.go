// Package messaging is the C9 adapter: a thin HTTP client against the
// Telegram Bot API, built on a pooled, timeout-bounded net/http.Client.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/liquidwatch/engine/internal/domain"
	"github.com/liquidwatch/engine/internal/infrastructure/httpclient"
)

const (
	apiBaseURL = "https://api.telegram.org"

	// sendTimeout bounds every send so a Telegram outage can never block a
	// caller's goroutine indefinitely.
	sendTimeout = 8 * time.Second
)

// Sender is the C9 contract consumed by the alert and reporting layers.
type Sender interface {
	Send(ctx context.Context, chatID string, message string) error
}

// TelegramSender sends messages via the Bot API's sendMessage endpoint.
type TelegramSender struct {
	token   string
	baseURL string
	pool    *httpclient.ClientPool
}

func NewTelegramSender(token string) *TelegramSender {
	return &TelegramSender{
		token:   token,
		baseURL: apiBaseURL,
		pool: httpclient.NewClientPool(httpclient.ClientConfig{
			MaxConcurrency: 16,
			RequestTimeout: sendTimeout,
			UserAgent:      "liquidwatch/1.0",
		}),
	}
}

// Send posts message to chatID, which is either a subscriber's numeric
// ChatID or the configured broadcast channel identifier. An HTTP 403 maps to
// domain.ErrRecipientBlocked; anything else transient is returned as-is for
// the caller to log and drop (§7's error taxonomy: no retry either way).
func (t *TelegramSender) Send(ctx context.Context, chatID string, message string) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	form := url.Values{}
	form.Set("chat_id", chatID)
	form.Set("text", message)
	form.Set("parse_mode", "Markdown")

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", domain.ErrTransientUpstream, err)
	}
	req.URL.RawQuery = form.Encode()
	req.Header.Set("Accept", "application/json")

	resp, err := t.pool.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: telegram send: %v", domain.ErrTransientUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: chat %s", domain.ErrRecipientBlocked, chatID)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var body struct {
			Description string `json:"description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return fmt.Errorf("%w: telegram HTTP %d: %s", domain.ErrTransientUpstream, resp.StatusCode, body.Description)
	}
	return nil
}

// ChatIDString renders a subscriber's numeric chat id the way the Bot API
// expects it in the chat_id form field.
func ChatIDString(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

// Ping calls getMe to verify the bot token is valid and Telegram is
// reachable, for the /healthz dependency check.
func (t *TelegramSender) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/bot%s/getMe", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", domain.ErrTransientUpstream, err)
	}

	resp, err := t.pool.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: telegram getMe: %v", domain.ErrTransientUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: telegram getMe HTTP %d", domain.ErrTransientUpstream, resp.StatusCode)
	}
	return nil
}

var _ Sender = (*TelegramSender)(nil)
