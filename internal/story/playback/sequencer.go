package playback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/raushan95a/HeartTales/internal/generation"
)

// Item is one playable dialogue line. Audio carries pre-associated base64
// audio from story generation; when empty the sequencer fetches it on
// demand from the synthesizer.
type Item struct {
	Key     string
	Text    string
	Speaker string
	Voice   string
	Audio   string
}

// Player turns a base64 audio payload into sound, blocking until playback
// finishes or the context is cancelled.
type Player interface {
	Play(ctx context.Context, audioB64 string) error
}

var ErrBusy = errors.New("a play-all sequence is already running")

type Config struct {
	// Gap is the pause between consecutive items. Defaults to 300ms.
	Gap     time.Duration
	OnFocus func(Item)
	Logger  *logrus.Entry
}

// Sequencer plays ordered dialogue audio one item at a time with a
// two-item look-ahead. A single playback token is shared by PlayAll and
// PlayOne, so at most one item sounds system-wide: PlayOne grabs the token
// between PlayAll items, which pauses the sequence and lets it resume.
type Sequencer struct {
	synth   generation.SpeechSynthesizer
	player  Player
	gap     time.Duration
	onFocus func(Item)
	log     *logrus.Entry

	token chan struct{}

	mu       sync.Mutex
	cache    map[string]string
	inflight map[string]*fetch
	running  bool
	stopped  bool
	current  string
}

type fetch struct {
	done  chan struct{}
	audio string
	err   error
}

func NewSequencer(synth generation.SpeechSynthesizer, player Player, cfg Config) *Sequencer {
	if cfg.Gap == 0 {
		cfg.Gap = 300 * time.Millisecond
	}
	if cfg.OnFocus == nil {
		cfg.OnFocus = func(Item) {}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &Sequencer{
		synth:    synth,
		player:   player,
		gap:      cfg.Gap,
		onFocus:  cfg.OnFocus,
		log:      cfg.Logger,
		token:    make(chan struct{}, 1),
		cache:    make(map[string]string),
		inflight: make(map[string]*fetch),
	}
	s.token <- struct{}{}
	return s
}

// getAudio returns the audio for an item, fetching at most once per key.
// Failed fetches are not cached, so a later attempt retries the backend.
func (s *Sequencer) getAudio(ctx context.Context, item Item) (string, error) {
	s.mu.Lock()
	if audio, ok := s.cache[item.Key]; ok {
		s.mu.Unlock()
		return audio, nil
	}
	if item.Audio != "" {
		s.cache[item.Key] = item.Audio
		s.mu.Unlock()
		return item.Audio, nil
	}
	if f, ok := s.inflight[item.Key]; ok {
		s.mu.Unlock()
		<-f.done
		return f.audio, f.err
	}
	f := &fetch{done: make(chan struct{})}
	s.inflight[item.Key] = f
	s.mu.Unlock()

	audio, err := s.synth.GenerateSpeechAudio(ctx, item.Text, item.Voice)

	s.mu.Lock()
	delete(s.inflight, item.Key)
	if err == nil {
		s.cache[item.Key] = audio
	}
	s.mu.Unlock()

	f.audio, f.err = audio, err
	close(f.done)
	return audio, err
}

// PlayAll plays the items in order. It returns ErrBusy if a sequence is
// already running. Stop halts the loop after the current item.
func (s *Sequencer) PlayAll(ctx context.Context, items []Item) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrBusy
	}
	s.running = true
	s.stopped = false
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	for i, item := range items {
		s.mu.Lock()
		stopped := s.stopped
		s.mu.Unlock()
		if stopped {
			return nil
		}

		// Look-ahead: warm the next two items while this one plays.
		for _, next := range lookAhead(items, i, 2) {
			go func(it Item) {
				if _, err := s.getAudio(context.WithoutCancel(ctx), it); err != nil {
					s.log.WithError(err).WithField("key", it.Key).Debug("prefetch failed")
				}
			}(next)
		}

		if err := s.playLocked(ctx, item); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			s.log.WithError(err).WithField("key", item.Key).Warn("skipping item")
		}

		if i < len(items)-1 {
			select {
			case <-time.After(s.gap):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

// PlayOne plays a single item, independent of any running sequence. It
// waits for the shared playback token, so it never overlaps other audio.
func (s *Sequencer) PlayOne(ctx context.Context, item Item) error {
	return s.playLocked(ctx, item)
}

func (s *Sequencer) playLocked(ctx context.Context, item Item) error {
	select {
	case <-s.token:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() {
		s.mu.Lock()
		s.current = ""
		s.mu.Unlock()
		s.token <- struct{}{}
	}()

	s.mu.Lock()
	s.current = item.Key
	s.mu.Unlock()
	s.onFocus(item)

	audio, err := s.getAudio(ctx, item)
	if err != nil {
		return err
	}
	return s.player.Play(ctx, audio)
}

// Stop ends a running PlayAll after the current item completes.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}

// Playing reports whether a PlayAll sequence is active.
func (s *Sequencer) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Current returns the key of the item playing right now, if any.
func (s *Sequencer) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func lookAhead(items []Item, i, n int) []Item {
	var out []Item
	for j := i + 1; j <= i+n && j < len(items); j++ {
		out = append(out, items[j])
	}
	return out
}
