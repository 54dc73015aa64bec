package brain

import (
	"sync"
	"time"
)

// MaxHistory bounds the per-chat conversation context. Truncation is lossy
// by design: older context is dropped, not summarized.
const MaxHistory = 40

// Profile is the in-memory state of one chat session. Profiles are never
// persisted; a process restart starts every conversation fresh.
type Profile struct {
	ChatID           string
	Name             string
	History          []ChatMessage
	LastSeen         time.Time
	InteractionCount int
}

// Profiles is a concurrency-safe map of chat sessions.
type Profiles struct {
	mu     sync.Mutex
	byChat map[string]*Profile
}

func NewProfiles() *Profiles {
	return &Profiles{byChat: make(map[string]*Profile)}
}

// Touch records activity for a chat, creating the profile if needed.
func (p *Profiles) Touch(chatID, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	prof := p.byChat[chatID]
	if prof == nil {
		prof = &Profile{ChatID: chatID}
		p.byChat[chatID] = prof
	}
	if name != "" {
		prof.Name = name
	}
	prof.LastSeen = time.Now()
	prof.InteractionCount++
}

// Append adds messages to a chat's history, truncating to MaxHistory.
func (p *Profiles) Append(chatID string, msgs ...ChatMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	prof := p.byChat[chatID]
	if prof == nil {
		prof = &Profile{ChatID: chatID, LastSeen: time.Now()}
		p.byChat[chatID] = prof
	}
	prof.History = append(prof.History, msgs...)
	if len(prof.History) > MaxHistory {
		prof.History = prof.History[len(prof.History)-MaxHistory:]
	}
}

// History returns a copy of a chat's message history.
func (p *Profiles) History(chatID string) []ChatMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	prof := p.byChat[chatID]
	if prof == nil {
		return nil
	}
	return append([]ChatMessage(nil), prof.History...)
}

// Get returns a snapshot of one profile.
func (p *Profiles) Get(chatID string) (Profile, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	prof := p.byChat[chatID]
	if prof == nil {
		return Profile{}, false
	}
	out := *prof
	out.History = append([]ChatMessage(nil), prof.History...)
	return out, true
}
