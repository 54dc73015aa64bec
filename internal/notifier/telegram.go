package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

// maxMessageLen is the Bot API cap on sendMessage text.
const maxMessageLen = 4096

// Telegram pushes trade events to a chat or channel through the Bot API.
// Text goes out without a parse mode so the symbols, underscores and percent
// signs in trade lines can never break entity parsing.
type Telegram struct {
	botToken string
	chatID   string
	client   *http.Client
	apiBase  string
	backoff  time.Duration
}

func NewTelegram(botToken, chatID string) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 15 * time.Second},
		apiBase:  "https://api.telegram.org",
		backoff:  time.Second,
	}
}

type sendMessageRequest struct {
	ChatID             string `json:"chat_id"`
	Text               string `json:"text"`
	DisableLinkPreview bool   `json:"disable_web_page_preview"`
}

// SendText posts one message, truncating to the API cap. Transport errors,
// throttling and server errors are retried up to 3 times with linear
// backoff; any other API rejection is permanent and returned immediately.
func (t *Telegram) SendText(text string) error {
	if t.botToken == "" || t.chatID == "" {
		return fmt.Errorf("telegram notifier is not fully configured")
	}
	if runes := []rune(text); len(runes) > maxMessageLen {
		text = string(runes[:maxMessageLen])
	}
	body, _ := json.Marshal(sendMessageRequest{ChatID: t.chatID, Text: text, DisableLinkPreview: true})
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		resp, err := t.client.Post(url, "application/json", bytes.NewReader(body))
		if err != nil {
			lastErr = err
			time.Sleep(time.Duration(attempt) * t.backoff)
			continue
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		resp.Body.Close()
		if resp.StatusCode/100 == 2 {
			return nil
		}
		lastErr = fmt.Errorf("telegram status=%d: %s", resp.StatusCode, apiDescription(raw))
		if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
			return lastErr
		}
		time.Sleep(time.Duration(attempt) * t.backoff)
	}
	return lastErr
}

func apiDescription(raw []byte) string {
	if desc := gjson.GetBytes(raw, "description").String(); desc != "" {
		return desc
	}
	return "no description"
}
