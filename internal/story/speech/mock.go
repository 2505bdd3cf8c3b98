package speech

import (
	"context"
	"sync"
	"time"
)

// MockSpeaker records utterances without producing sound. Used in tests
// and as a silent fallback when no engine is available.
type MockSpeaker struct {
	mu         sync.Mutex
	utterances []Utterance
	delay      time.Duration
	cancelled  bool
	pending    chan struct{}
}

// Utterance is one recorded Speak call.
type Utterance struct {
	Text   string
	Params VoiceParams
}

func NewMockSpeaker() *MockSpeaker {
	return &MockSpeaker{}
}

// SetDelay makes each utterance take the given time before OnEnd fires,
// so tests can observe an utterance mid-flight.
func (m *MockSpeaker) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

func (m *MockSpeaker) Speak(text string, params VoiceParams, events Events) error {
	m.mu.Lock()
	m.cancelLocked()

	m.utterances = append(m.utterances, Utterance{Text: text, Params: params})
	m.cancelled = false
	cancel := make(chan struct{})
	m.pending = cancel
	delay := m.delay
	m.mu.Unlock()

	if events.OnStart != nil {
		events.OnStart()
	}

	go func() {
		select {
		case <-time.After(delay):
		case <-cancel:
			return
		}

		m.mu.Lock()
		if m.pending == cancel {
			m.pending = nil
		}
		m.mu.Unlock()

		if events.OnEnd != nil {
			events.OnEnd()
		}
	}()

	return nil
}

func (m *MockSpeaker) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelLocked()
	m.cancelled = true
}

func (m *MockSpeaker) cancelLocked() {
	if m.pending != nil {
		close(m.pending)
		m.pending = nil
	}
}

// Utterances returns a copy of everything spoken so far.
func (m *MockSpeaker) Utterances() []Utterance {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Utterance, len(m.utterances))
	copy(out, m.utterances)
	return out
}

// Cancelled reports whether Cancel was called after the last utterance.
func (m *MockSpeaker) Cancelled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancelled
}

// ScriptedRecognizer emits a fixed sequence of events, one session per
// Start call.
type ScriptedRecognizer struct {
	mu      sync.Mutex
	script  []Event
	stopped bool
}

func NewScriptedRecognizer(events ...Event) *ScriptedRecognizer {
	return &ScriptedRecognizer{script: events}
}

func (r *ScriptedRecognizer) Start(ctx context.Context) (<-chan Event, error) {
	r.mu.Lock()
	var next *Event
	if len(r.script) > 0 {
		next = &r.script[0]
		r.script = r.script[1:]
	}
	r.mu.Unlock()

	ch := make(chan Event, 1)
	if next != nil {
		ch <- *next
	}
	close(ch)
	return ch, nil
}

func (r *ScriptedRecognizer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
}

// Stopped reports whether Stop has been called.
func (r *ScriptedRecognizer) Stopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopped
}
