package market

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

const (
	// DefaultResearchDeadline bounds one submit-then-poll cycle. Research
	// jobs run remotely and can take minutes; anything slower is treated as
	// failed, not retried.
	DefaultResearchDeadline = 120 * time.Second
	researchPollInterval    = 2 * time.Second
)

// Outcome is the research collaborator's terminal answer. Timeout and failed
// are both error outcomes.
type Outcome struct {
	Success  bool
	Response string
	Error    string
}

// ResearchClient submits a free-text prompt to the research/trading API and
// polls the job until it settles.
type ResearchClient struct {
	baseURL  string
	http     *http.Client
	deadline time.Duration
	pollGap  time.Duration
}

// ResearchConfig configures the collaborator endpoint.
type ResearchConfig struct {
	BaseURL  string
	Deadline time.Duration
}

func NewResearchClient(cfg ResearchConfig) *ResearchClient {
	deadline := cfg.Deadline
	if deadline <= 0 {
		deadline = DefaultResearchDeadline
	}
	return &ResearchClient{
		baseURL:  strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		http:     &http.Client{Timeout: 30 * time.Second},
		deadline: deadline,
		pollGap:  researchPollInterval,
	}
}

// Configured reports whether the endpoint is set.
func (c *ResearchClient) Configured() bool {
	return c != nil && c.baseURL != ""
}

// Prompt submits text and polls until the job completes, fails, or the
// deadline passes.
func (c *ResearchClient) Prompt(ctx context.Context, text string) Outcome {
	if !c.Configured() {
		return Outcome{Error: "research API is not configured, set research.base_url"}
	}
	ctx, cancel := context.WithTimeout(ctx, c.deadline)
	defer cancel()

	jobID, err := c.submit(ctx, text)
	if err != nil {
		return Outcome{Error: err.Error()}
	}

	ticker := time.NewTicker(c.pollGap)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return Outcome{Error: fmt.Sprintf("research job %s timed out after %s", jobID, c.deadline)}
		case <-ticker.C:
		}
		done, out := c.poll(ctx, jobID)
		if done {
			return out
		}
	}
}

func (c *ResearchClient) submit(ctx context.Context, text string) (string, error) {
	body, _ := json.Marshal(map[string]string{"prompt": text})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/prompt", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("research: submit: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("research: submit status=%d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	parsed := gjson.ParseBytes(raw)
	for _, key := range []string{"jobId", "job_id", "id"} {
		if v := parsed.Get(key); v.Exists() && v.String() != "" {
			return v.String(), nil
		}
	}
	return "", fmt.Errorf("research: submit response carries no job id: %s", strings.TrimSpace(string(raw)))
}

// poll returns done=false while the job is still pending or a transient
// fetch error occurred; the overall deadline bounds how long we keep trying.
func (c *ResearchClient) poll(ctx context.Context, jobID string) (bool, Outcome) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/prompt/"+jobID, nil)
	if err != nil {
		return true, Outcome{Error: err.Error()}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false, Outcome{}
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if resp.StatusCode/100 != 2 {
		return false, Outcome{}
	}
	parsed := gjson.ParseBytes(raw)
	switch strings.ToLower(parsed.Get("status").String()) {
	case "completed", "complete", "done", "success":
		return true, Outcome{Success: true, Response: firstOf(parsed, "response", "result", "output")}
	case "failed", "error", "timeout":
		msg := firstOf(parsed, "error", "message")
		if msg == "" {
			msg = "research job failed"
		}
		return true, Outcome{Error: msg}
	default:
		return false, Outcome{}
	}
}

func firstOf(parsed gjson.Result, keys ...string) string {
	for _, key := range keys {
		if v := parsed.Get(key); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}
