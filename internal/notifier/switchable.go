package notifier

import "sync/atomic"

// Switchable wraps a sink with a runtime on/off toggle so config hot reload
// can mute notifications without rebuilding the dependency graph.
type Switchable struct {
	inner   TextNotifier
	enabled atomic.Bool
}

// NewSwitchable wraps inner; a nil inner behaves like Noop.
func NewSwitchable(inner TextNotifier, enabled bool) *Switchable {
	if inner == nil {
		inner = Noop{}
	}
	s := &Switchable{inner: inner}
	s.enabled.Store(enabled)
	return s
}

// SetEnabled flips the toggle.
func (s *Switchable) SetEnabled(enabled bool) {
	s.enabled.Store(enabled)
}

// Enabled reports the current toggle state.
func (s *Switchable) Enabled() bool {
	return s.enabled.Load()
}

// SendText forwards to the wrapped sink when enabled, otherwise drops.
func (s *Switchable) SendText(text string) error {
	if !s.enabled.Load() {
		return nil
	}
	return s.inner.SendText(text)
}
