// Package executor talks to the external action-execution service that owns
// wallets and order routing. The core never retries on its own; a failed
// invocation surfaces to the caller as a failed trade or skill result.
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// DefaultTimeout is the hard deadline for one action invocation.
const DefaultTimeout = 30 * time.Second

// Client is a thin HTTP client for the execution collaborator.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client against baseURL. A non-positive timeout falls
// back to DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Configured reports whether an endpoint has been set. An unconfigured
// executor is a configuration error, not a process-fatal condition.
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != ""
}

// Invoke submits one named action. The collaborator may answer with a plain
// string or a structured JSON body; both are tolerated. A timeout or non-2xx
// status is an error outcome, never retried here.
func (c *Client) Invoke(ctx context.Context, action string, args map[string]any) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("executor is not configured, set executor.base_url")
	}
	payload := map[string]any{"action": action, "args": args}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("executor: encode %s: %w", action, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/invoke", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("executor: %s: %w", action, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("executor: read %s response: %w", action, err)
	}
	text := strings.TrimSpace(string(raw))

	if resp.StatusCode/100 != 2 {
		msg := extractError(text)
		if msg == "" {
			msg = resp.Status
		}
		return "", fmt.Errorf("executor: %s failed: %s", action, msg)
	}
	return extractResult(text), nil
}

// extractResult handles both body shapes: a bare string and a structured
// envelope carrying result/response/error fields.
func extractResult(body string) string {
	if !gjson.Valid(body) {
		return body
	}
	parsed := gjson.Parse(body)
	if parsed.Type == gjson.String {
		return parsed.String()
	}
	for _, key := range []string{"result", "response", "message"} {
		if v := parsed.Get(key); v.Exists() {
			return v.String()
		}
	}
	return body
}

func extractError(body string) string {
	if !gjson.Valid(body) {
		return body
	}
	parsed := gjson.Parse(body)
	for _, key := range []string{"error", "error.message", "message"} {
		if v := parsed.Get(key); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}
