// Package speech abstracts local speech I/O for call sessions: a Speaker
// that vocalizes text through an OS engine and a Recognizer that turns
// microphone input into transcripts.
package speech

import (
	"context"
	"errors"
)

var ErrUnsupported = errors.New("speech recognition is not supported on this system")

// VoiceParams select the timbre of an utterance. Pitch 1.0 is neutral.
type VoiceParams struct {
	Pitch  float64
	Rate   float64
	Volume float64
	Voice  string
}

// Events report the lifecycle of one utterance. Any callback may be nil.
type Events struct {
	OnStart func()
	OnEnd   func()
	OnError func(error)
}

// Speaker vocalizes one utterance at a time. Starting a new utterance
// cancels any utterance still in progress.
type Speaker interface {
	Speak(text string, params VoiceParams, events Events) error
	Cancel()
}

// Event is one recognition result: a transcript or a terminal error.
type Event struct {
	Transcript string
	Err        error
}

// Recognizer captures one utterance per Start call. The returned channel
// closes when the session ends; Stop cancels an in-flight session.
type Recognizer interface {
	Start(ctx context.Context) (<-chan Event, error)
	Stop()
}
