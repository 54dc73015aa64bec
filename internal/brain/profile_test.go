package brain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfiles_Touch(t *testing.T) {
	p := NewProfiles()
	p.Touch("c1", "sam")
	p.Touch("c1", "")
	p.Touch("c1", "sammy")

	prof, ok := p.Get("c1")
	assert.True(t, ok)
	assert.Equal(t, "sammy", prof.Name)
	assert.Equal(t, 3, prof.InteractionCount)
	assert.False(t, prof.LastSeen.IsZero())
}

func TestProfiles_HistoryCap(t *testing.T) {
	p := NewProfiles()
	for i := 0; i < MaxHistory+10; i++ {
		p.Append("c1", ChatMessage{Role: "user", Content: fmt.Sprintf("msg %d", i)})
	}

	history := p.History("c1")
	assert.Len(t, history, MaxHistory)
	// oldest entries are dropped, newest kept
	assert.Equal(t, "msg 10", history[0].Content)
	assert.Equal(t, fmt.Sprintf("msg %d", MaxHistory+9), history[len(history)-1].Content)
}

func TestProfiles_HistoryIsACopy(t *testing.T) {
	p := NewProfiles()
	p.Append("c1", ChatMessage{Role: "user", Content: "original"})

	history := p.History("c1")
	history[0].Content = "mutated"
	assert.Equal(t, "original", p.History("c1")[0].Content)
}

func TestProfiles_SessionsAreIndependent(t *testing.T) {
	p := NewProfiles()
	p.Append("c1", ChatMessage{Role: "user", Content: "one"})
	p.Append("c2", ChatMessage{Role: "user", Content: "two"})

	assert.Len(t, p.History("c1"), 1)
	assert.Len(t, p.History("c2"), 1)
	assert.Empty(t, p.History("c3"))
}
