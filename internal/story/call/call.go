// Package call runs a simulated phone call with a roster character. The
// character greets the user, replies through a chat backend and optionally
// vocalizes its lines through a local speech engine.
package call

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/raushan95a/HeartTales/internal/domain/story"
	"github.com/raushan95a/HeartTales/internal/generation"
	"github.com/raushan95a/HeartTales/internal/story/speech"
)

type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateActive     State = "active"
	StateEnded      State = "ended"
)

const greetingFormat = "Hey %s! Great to see you! What's up?"

// fallbackReply is spoken when the chat backend fails, so the call never
// goes silent on an error.
const fallbackReply = "Sorry, I'm having trouble hearing you... can you say that again?"

// Config tunes a session. Zero values get sensible defaults.
type Config struct {
	// ConnectDelay is how long the simulated ringing lasts before the
	// character picks up. Defaults to 2s.
	ConnectDelay time.Duration

	// TickInterval drives the call duration counter. Defaults to 1s.
	TickInterval time.Duration

	// OnMessage is invoked for every message appended to the transcript.
	OnMessage func(story.ChatMessage)

	// OnState is invoked on every state transition.
	OnState func(State)

	Logger *logrus.Logger
}

// Session is one live call. All methods are safe for concurrent use.
type Session struct {
	character  story.Character
	profile    story.UserProfile
	replier    generation.ChatReplier
	recognizer speech.Recognizer
	speaker    speech.Speaker
	cfg        Config
	log        *logrus.Logger

	mu        sync.Mutex
	state     State
	messages  []story.ChatMessage
	duration  time.Duration
	pending   bool
	speaking  bool
	listening bool
	speakerOn bool
	done      chan struct{}
}

func NewSession(character story.Character, profile story.UserProfile, replier generation.ChatReplier, recognizer speech.Recognizer, speaker speech.Speaker, cfg Config) *Session {
	if cfg.ConnectDelay <= 0 {
		cfg.ConnectDelay = 2 * time.Second
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Session{
		character:  character,
		profile:    profile,
		replier:    replier,
		recognizer: recognizer,
		speaker:    speaker,
		cfg:        cfg,
		log:        log,
		state:      StateIdle,
		speakerOn:  true,
		done:       make(chan struct{}),
	}
}

// Start begins ringing. After the connect delay the character picks up
// with a greeting and the session becomes active.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return fmt.Errorf("call already started")
	}
	s.setStateLocked(StateConnecting)
	s.mu.Unlock()

	go s.runTicker()

	go func() {
		select {
		case <-time.After(s.cfg.ConnectDelay):
		case <-s.done:
			return
		case <-ctx.Done():
			s.End()
			return
		}

		s.mu.Lock()
		if s.state != StateConnecting {
			s.mu.Unlock()
			return
		}
		s.setStateLocked(StateActive)
		greeting := fmt.Sprintf(greetingFormat, s.profile.Name)
		s.appendLocked(story.RoleCharacter, greeting)
		s.mu.Unlock()

		s.speak(greeting)
	}()

	return nil
}

func (s *Session) runTicker() {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			// The timer runs from the moment the call starts ringing.
			if s.state == StateConnecting || s.state == StateActive {
				s.duration += s.cfg.TickInterval
			}
			s.mu.Unlock()
		case <-s.done:
			return
		}
	}
}

// Submit sends a user message to the character. Empty messages and
// messages submitted while a reply is still pending are ignored.
func (s *Session) Submit(ctx context.Context, text string) {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	if s.state != StateActive || text == "" || s.pending {
		s.mu.Unlock()
		return
	}

	history := make([]generation.ChatTurn, 0, len(s.messages))
	for _, m := range s.messages {
		history = append(history, generation.ChatTurn{Role: m.Role, Text: m.Text})
	}
	s.appendLocked(story.RoleUser, text)
	s.pending = true
	s.mu.Unlock()

	go func() {
		reply, err := s.replier.GenerateChatReply(ctx, s.character, s.profile, history, text)
		if err != nil {
			s.log.WithError(err).Warn("chat reply failed, using fallback")
			reply = fallbackReply
		}

		s.mu.Lock()
		if s.state != StateActive {
			s.pending = false
			s.mu.Unlock()
			return
		}
		s.appendLocked(story.RoleCharacter, reply)
		s.pending = false
		s.mu.Unlock()

		s.speak(reply)
	}()
}

func (s *Session) speak(text string) {
	s.mu.Lock()
	on := s.speakerOn && s.speaker != nil
	s.mu.Unlock()
	if !on {
		return
	}

	// A slightly raised or lowered pitch makes the voice feel in
	// character even on generic OS engines.
	pitch := 0.9
	if s.character.Gender == story.GenderFemale {
		pitch = 1.3
	}

	err := s.speaker.Speak(text, speech.VoiceParams{
		Pitch:  pitch,
		Rate:   1.0,
		Volume: 1.0,
	}, speech.Events{
		OnStart: func() { s.setSpeaking(true) },
		OnEnd:   func() { s.setSpeaking(false) },
		OnError: func(err error) {
			s.log.WithError(err).Warn("speech synthesis failed")
			s.setSpeaking(false)
		},
	})
	if err != nil {
		s.log.WithError(err).Warn("could not start speech synthesis")
	}
}

func (s *Session) setSpeaking(v bool) {
	s.mu.Lock()
	s.speaking = v
	s.mu.Unlock()
}

// StartListening opens one microphone capture session. The transcript,
// if any, is submitted as a user message. Returns speech.ErrUnsupported
// when no recognizer is available.
func (s *Session) StartListening(ctx context.Context) error {
	if s.recognizer == nil {
		return speech.ErrUnsupported
	}

	s.mu.Lock()
	if s.state != StateActive || s.listening {
		s.mu.Unlock()
		return nil
	}
	s.listening = true
	s.mu.Unlock()

	events, err := s.recognizer.Start(ctx)
	if err != nil {
		s.mu.Lock()
		s.listening = false
		s.mu.Unlock()
		return err
	}

	go func() {
		for ev := range events {
			if ev.Err != nil {
				s.log.WithError(ev.Err).Warn("speech recognition failed")
				continue
			}
			if t := strings.TrimSpace(ev.Transcript); t != "" {
				s.Submit(ctx, t)
			}
		}
		s.mu.Lock()
		s.listening = false
		s.mu.Unlock()
	}()

	return nil
}

// StopListening ends the current capture session, triggering
// transcription of whatever was recorded.
func (s *Session) StopListening() {
	if s.recognizer != nil {
		s.recognizer.Stop()
	}
}

// SetSpeakerOn toggles vocalization. Turning the speaker off cancels any
// utterance already in progress.
func (s *Session) SetSpeakerOn(on bool) {
	s.mu.Lock()
	s.speakerOn = on
	s.mu.Unlock()

	if !on && s.speaker != nil {
		s.speaker.Cancel()
		s.setSpeaking(false)
	}
}

// End hangs up. Safe to call more than once.
func (s *Session) End() {
	s.mu.Lock()
	if s.state == StateEnded {
		s.mu.Unlock()
		return
	}
	s.setStateLocked(StateEnded)
	close(s.done)
	s.mu.Unlock()

	if s.recognizer != nil {
		s.recognizer.Stop()
	}
	if s.speaker != nil {
		s.speaker.Cancel()
	}
}

func (s *Session) appendLocked(role story.ChatRole, text string) {
	msg := story.ChatMessage{
		ID:        uuid.New().String(),
		Role:      role,
		Text:      text,
		Timestamp: time.Now(),
	}
	s.messages = append(s.messages, msg)
	if s.cfg.OnMessage != nil {
		go s.cfg.OnMessage(msg)
	}
}

func (s *Session) setStateLocked(state State) {
	s.state = state
	if s.cfg.OnState != nil {
		go s.cfg.OnState(state)
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Messages returns a copy of the transcript so far.
func (s *Session) Messages() []story.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]story.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Duration is how long the call has been running since dialing started,
// counted in ticks.
func (s *Session) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func (s *Session) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

func (s *Session) Listening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listening
}

func (s *Session) SpeakerOn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speakerOn
}
