package brain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pilot/internal/logger"
	"pilot/internal/skill"
)

// ChatMessage is one entry in an OpenAI-compatible conversation.
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// ToolCall is a model-requested skill invocation.
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ToolCallFunction `json:"function"`
}

type ToolCallFunction struct {
	Name string `json:"name"`
	// Arguments is a JSON-encoded object string, per the wire format.
	Arguments string `json:"arguments"`
}

// ChatClient talks to an OpenAI-compatible /v1/chat/completions endpoint
// (OpenAI, DeepSeek, Qwen and similar all speak this shape).
type ChatClient struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	// MaxRetries bounds retries on 429/5xx; 0 means the default of 2.
	MaxRetries int
}

// Configured reports whether credentials are present.
func (c *ChatClient) Configured() bool {
	return c != nil && strings.TrimSpace(c.APIKey) != "" && strings.TrimSpace(c.Model) != ""
}

// Chat runs one completion. Tools may be nil for plain text turns.
func (c *ChatClient) Chat(ctx context.Context, messages []ChatMessage, tools []skill.ToolSchema) (ChatMessage, error) {
	if !c.Configured() {
		return ChatMessage{}, fmt.Errorf("model client is not configured, set ai.api_key and ai.model")
	}
	timeout := c.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 2
	}

	url := endpointURL(c.BaseURL)
	body := map[string]any{
		"model":       c.Model,
		"messages":    messages,
		"temperature": 0.5,
	}
	if len(tools) > 0 {
		body["tools"] = tools
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return ChatMessage{}, err
	}
	logger.LogModelRequest("chat", systemOf(messages), lastUserOf(messages), string(payload))

	httpc := &http.Client{Timeout: timeout}
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return ChatMessage{}, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.APIKey)

		resp, err := httpc.Do(req)
		if err != nil {
			return ChatMessage{}, err
		}
		if resp.StatusCode/100 == 2 {
			var r struct {
				Choices []struct {
					Message ChatMessage `json:"message"`
				} `json:"choices"`
			}
			derr := json.NewDecoder(resp.Body).Decode(&r)
			resp.Body.Close()
			if derr != nil {
				return ChatMessage{}, derr
			}
			if len(r.Choices) == 0 {
				return ChatMessage{}, fmt.Errorf("model returned empty choices")
			}
			msg := r.Choices[0].Message
			logger.LogModelResponse("chat", msg.Content)
			return msg, nil
		}

		var eresp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&eresp)
		resp.Body.Close()
		msg := strings.TrimSpace(eresp.Error.Message)
		if msg == "" {
			msg = resp.Status
		}
		lastErr = fmt.Errorf("model status=%d: %s", resp.StatusCode, msg)
		if !retryable(resp.StatusCode) || attempt == maxRetries {
			break
		}
		wait := retryWait(resp.Header.Get("Retry-After"), attempt)
		select {
		case <-ctx.Done():
			return ChatMessage{}, ctx.Err()
		case <-time.After(wait):
		}
	}
	return ChatMessage{}, lastErr
}

func endpointURL(base string) string {
	url := strings.TrimSpace(base)
	if url == "" {
		url = "https://api.openai.com/v1"
	}
	url = strings.TrimRight(url, "/")
	// Tolerate configs that already include the completions path.
	url = strings.TrimSuffix(url, "/chat/completions")
	return url + "/chat/completions"
}

func retryable(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}

func retryWait(retryAfter string, attempt int) time.Duration {
	if retryAfter != "" {
		if secs, err := strconv.Atoi(retryAfter); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	wait := 800 * time.Millisecond << attempt
	if wait > 8*time.Second {
		wait = 8 * time.Second
	}
	return wait
}

func systemOf(messages []ChatMessage) string {
	for _, m := range messages {
		if m.Role == "system" {
			return m.Content
		}
	}
	return ""
}

func lastUserOf(messages []ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}
