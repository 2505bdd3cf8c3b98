package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSynth struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]int // remaining failures per text
}

func newCountingSynth() *countingSynth {
	return &countingSynth{calls: map[string]int{}, fail: map[string]int{}}
}

func (c *countingSynth) GenerateSpeechAudio(ctx context.Context, text, voiceID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[text]++
	if c.fail[text] > 0 {
		c.fail[text]--
		return "", errors.New("synth down")
	}
	return "YXVkaW8t" + voiceID, nil
}

type recordingPlayer struct {
	mu      sync.Mutex
	played  []string
	busy    bool
	overlap bool
	delay   time.Duration
}

func (r *recordingPlayer) Play(ctx context.Context, audioB64 string) error {
	r.mu.Lock()
	if r.busy {
		r.overlap = true
	}
	r.busy = true
	r.played = append(r.played, audioB64)
	r.mu.Unlock()

	if r.delay > 0 {
		time.Sleep(r.delay)
	}

	r.mu.Lock()
	r.busy = false
	r.mu.Unlock()
	return nil
}

func testItems() []Item {
	return []Item{
		{Key: "0-0", Text: "Look at this map!", Speaker: "Alex", Voice: "Puck"},
		{Key: "0-1", Text: "Let's follow it.", Speaker: "Rose", Voice: "Kore"},
		{Key: "1-0", Text: "Almost there.", Speaker: "Alex", Voice: "Puck"},
	}
}

func newTestSequencer(synth *countingSynth, player Player) *Sequencer {
	return NewSequencer(synth, player, Config{Gap: time.Millisecond})
}

func TestPlayAllInOrder(t *testing.T) {
	synth := newCountingSynth()
	player := &recordingPlayer{}
	s := newTestSequencer(synth, player)

	require.NoError(t, s.PlayAll(context.Background(), testItems()))
	assert.Equal(t, []string{"YXVkaW8tPuck", "YXVkaW8tKore", "YXVkaW8tPuck"}, player.played)
	assert.False(t, player.overlap)
	assert.False(t, s.Playing())
}

func TestCacheIdempotence(t *testing.T) {
	synth := newCountingSynth()
	s := newTestSequencer(synth, &recordingPlayer{})
	item := testItems()[0]

	require.NoError(t, s.PlayOne(context.Background(), item))
	require.NoError(t, s.PlayOne(context.Background(), item))
	assert.Equal(t, 1, synth.calls[item.Text], "backend invoked at most once per key")
}

func TestFailedFetchNotCached(t *testing.T) {
	synth := newCountingSynth()
	item := testItems()[0]
	synth.fail[item.Text] = 1
	s := newTestSequencer(synth, &recordingPlayer{})

	require.Error(t, s.PlayOne(context.Background(), item))
	require.NoError(t, s.PlayOne(context.Background(), item))
	assert.Equal(t, 2, synth.calls[item.Text], "failure must not be cached")
}

func TestPreAssociatedAudioSkipsBackend(t *testing.T) {
	synth := newCountingSynth()
	s := newTestSequencer(synth, &recordingPlayer{})
	item := Item{Key: "0-0", Text: "Hello", Voice: "Kore", Audio: "cHJlbG9hZGVk"}

	require.NoError(t, s.PlayOne(context.Background(), item))
	assert.Zero(t, synth.calls["Hello"])
}

func TestStopHaltsAfterCurrentItem(t *testing.T) {
	synth := newCountingSynth()
	player := &recordingPlayer{delay: 5 * time.Millisecond}
	s := newTestSequencer(synth, player)

	done := make(chan error, 1)
	go func() { done <- s.PlayAll(context.Background(), testItems()) }()

	// Wait for the first item to start, then stop.
	require.Eventually(t, func() bool {
		player.mu.Lock()
		defer player.mu.Unlock()
		return len(player.played) > 0
	}, time.Second, time.Millisecond)
	s.Stop()

	require.NoError(t, <-done)
	player.mu.Lock()
	defer player.mu.Unlock()
	assert.Less(t, len(player.played), 3, "stop must prevent remaining items")
}

func TestPlayAllWhileRunningIsBusy(t *testing.T) {
	synth := newCountingSynth()
	player := &recordingPlayer{delay: 10 * time.Millisecond}
	s := newTestSequencer(synth, player)

	go func() { _ = s.PlayAll(context.Background(), testItems()) }()
	require.Eventually(t, s.Playing, time.Second, time.Millisecond)

	err := s.PlayAll(context.Background(), testItems())
	assert.ErrorIs(t, err, ErrBusy)
	s.Stop()
}

func TestPlayOneNeverOverlapsPlayAll(t *testing.T) {
	synth := newCountingSynth()
	player := &recordingPlayer{delay: 3 * time.Millisecond}
	s := newTestSequencer(synth, player)

	done := make(chan error, 1)
	go func() { done <- s.PlayAll(context.Background(), testItems()) }()

	require.Eventually(t, s.Playing, time.Second, time.Millisecond)
	require.NoError(t, s.PlayOne(context.Background(), Item{Key: "solo", Text: "Again!", Voice: "Fenrir"}))

	require.NoError(t, <-done)
	assert.False(t, player.overlap, "only one item may play system-wide")
}

func TestLookAheadPrefetches(t *testing.T) {
	synth := newCountingSynth()
	s := newTestSequencer(synth, &recordingPlayer{delay: 2 * time.Millisecond})

	require.NoError(t, s.PlayAll(context.Background(), testItems()))

	// Every distinct line is fetched exactly once even though items 1 and 2
	// were both prefetched and played.
	synth.mu.Lock()
	defer synth.mu.Unlock()
	assert.Equal(t, 1, synth.calls["Let's follow it."])
	assert.Equal(t, 1, synth.calls["Almost there."])
}
