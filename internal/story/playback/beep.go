package playback

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

// BeepPlayer plays base64 MP3 payloads through the system speaker. The
// speaker is initialized once, at the sample rate of the first clip;
// later clips are resampled to it.
type BeepPlayer struct {
	mu          sync.Mutex
	initialized bool
	rate        beep.SampleRate
}

func NewBeepPlayer() *BeepPlayer {
	return &BeepPlayer{}
}

func (p *BeepPlayer) Play(ctx context.Context, audioB64 string) error {
	data, err := base64.StdEncoding.DecodeString(audioB64)
	if err != nil {
		return fmt.Errorf("failed to decode audio payload: %w", err)
	}

	streamer, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return fmt.Errorf("failed to decode MP3: %w", err)
	}
	defer streamer.Close()

	p.mu.Lock()
	if !p.initialized {
		if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
			p.mu.Unlock()
			return fmt.Errorf("failed to init speaker: %w", err)
		}
		p.rate = format.SampleRate
		p.initialized = true
	}
	rate := p.rate
	p.mu.Unlock()

	var stream beep.Streamer = streamer
	if format.SampleRate != rate {
		stream = beep.Resample(4, format.SampleRate, rate, streamer)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(stream, beep.Callback(func() { close(done) })))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}
