// Package brain is the per-conversation tool-orchestration loop: it gives a
// language model the skill catalog as invocable tools, executes what the
// model asks for, and returns the model's final reply. After every exchange
// a detached reflection step appends a one-sentence takeaway to the ledger's
// learnings.
package brain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"pilot/internal/ledger"
	"pilot/internal/logger"
	"pilot/internal/skill"
)

// ModelClient abstracts the chat completion endpoint for testing.
type ModelClient interface {
	Chat(ctx context.Context, messages []ChatMessage, tools []skill.ToolSchema) (ChatMessage, error)
}

// Brain handles one inbound chat message end to end:
// received -> model call 1 -> execute tools -> model call 2 -> respond.
type Brain struct {
	model    ModelClient
	registry *skill.Registry
	store    *ledger.Store
	profiles *Profiles

	reflectWG sync.WaitGroup
}

func New(model ModelClient, registry *skill.Registry, store *ledger.Store) *Brain {
	return &Brain{
		model:    model,
		registry: registry,
		store:    store,
		profiles: NewProfiles(),
	}
}

// Profiles exposes the session map (admin/status surfaces).
func (b *Brain) Profiles() *Profiles { return b.profiles }

// HandleMessage processes one user message and returns the reply text.
// Collaborator failures come back as an error the transport renders as a
// plain-text explanation; the process never sees a stack trace.
func (b *Brain) HandleMessage(ctx context.Context, chatID, userName, text string) (string, error) {
	b.profiles.Touch(chatID, userName)
	b.profiles.Append(chatID, ChatMessage{Role: "user", Content: text})

	// The system context is rebuilt from the live ledger on every request,
	// never cached across ticks of changing state.
	messages := append([]ChatMessage{{Role: "system", Content: b.systemContext()}}, b.profiles.History(chatID)...)

	first, err := b.model.Chat(ctx, messages, b.registry.ToolSchemas())
	if err != nil {
		return "", fmt.Errorf("the model is unreachable right now: %w, try again in a minute", err)
	}

	reply := first.Content
	if len(first.ToolCalls) > 0 {
		messages = append(messages, first)
		for _, call := range first.ToolCalls {
			result := b.executeTool(ctx, call)
			messages = append(messages, ChatMessage{
				Role:       "tool",
				ToolCallID: call.ID,
				Name:       call.Function.Name,
				Content:    result,
			})
		}
		second, err := b.model.Chat(ctx, messages, b.registry.ToolSchemas())
		if err != nil {
			return "", fmt.Errorf("the model dropped out mid-exchange: %w, try again", err)
		}
		reply = second.Content
	}

	if strings.TrimSpace(reply) == "" {
		reply = "Done."
	}
	b.profiles.Append(chatID, ChatMessage{Role: "assistant", Content: reply})
	b.reflect(text, reply)
	return reply, nil
}

// executeTool runs one requested skill. Failures such as unknown names, bad
// arguments or handler errors become textual results injected into the tool
// response slot so the second model call can recover gracefully.
func (b *Brain) executeTool(ctx context.Context, call ToolCall) string {
	name := call.Function.Name
	s, ok := b.registry.Get(name)
	if !ok {
		return fmt.Sprintf("error: unknown skill %q. Available skills: %s", name, strings.Join(b.registry.Names(), ", "))
	}
	var params map[string]any
	if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &params); err != nil {
			return fmt.Sprintf("error: arguments for %s are not valid JSON: %v", name, err)
		}
	}
	result, err := s.Invoke(ctx, params)
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return result
}

// systemContext assembles the model's working context from the live ledger.
func (b *Brain) systemContext() string {
	snap := b.store.Snapshot()
	open := ledger.OpenPositions(snap)

	var b2 strings.Builder
	b2.WriteString("You are a crypto-trading assistant managing a simulated portfolio. ")
	b2.WriteString("Use the available skills to act; answer concisely.\n\n")

	fmt.Fprintf(&b2, "Current state:\n- open positions: %d\n", len(open))
	for _, t := range open {
		fmt.Fprintf(&b2, "  - %s amount %s entry %s (%s)\n", t.Symbol, t.Amount, t.Price, t.Reason)
	}
	fmt.Fprintf(&b2, "- total trades: %d, win rate %.1f%%, total P&L %s%%\n", snap.TotalTrades, snap.WinRate, snap.TotalPnL)
	s := snap.Settings
	fmt.Fprintf(&b2, "- settings: maxMarketCap $%.0f, maxBuyAmount %s, TP %.1f%%, SL %.1f%%, interval %d min, max positions %d, autoTrade %v\n",
		s.MaxMarketCap, s.MaxBuyAmount, s.TakeProfitPct, s.StopLossPct, s.ScanIntervalMin, s.MaxOpenPositions, s.AutoTradeEnabled)

	if n := len(snap.Learnings); n > 0 {
		b2.WriteString("\nRecent learnings:\n")
		start := n - 5
		if start < 0 {
			start = 0
		}
		for _, note := range snap.Learnings[start:] {
			fmt.Fprintf(&b2, "- %s\n", note)
		}
	}

	b2.WriteString("\nAvailable skills:\n")
	b2.WriteString(b.registry.Describe())
	return b2.String()
}

// reflect asks the model for a one-sentence takeaway in a detached goroutine.
// Learning is best-effort: every failure is logged and swallowed, nothing
// propagates to the reply path.
func (b *Brain) reflect(userText, reply string) {
	b.reflectWG.Add(1)
	go func() {
		defer b.reflectWG.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Warnf("Brain: reflection panicked: %v", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		prompt := fmt.Sprintf(
			"User said: %q\nYou replied: %q\nState one short takeaway about this user's trading preferences or the market, as a single sentence. Reply with the sentence only.",
			userText, reply)
		msg, err := b.model.Chat(ctx, []ChatMessage{{Role: "user", Content: prompt}}, nil)
		if err != nil {
			logger.Debugf("Brain: reflection skipped: %v", err)
			return
		}
		note := strings.TrimSpace(msg.Content)
		if note == "" {
			return
		}
		if err := b.store.Mutate(func(l *ledger.Ledger) error {
			l.AppendLearning(note)
			return nil
		}); err != nil {
			logger.Warnf("Brain: learning not persisted: %v", err)
		}
	}()
}

// Wait blocks until in-flight reflections finish; used on shutdown.
func (b *Brain) Wait() { b.reflectWG.Wait() }
