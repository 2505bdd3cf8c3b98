package speech

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Transcriber converts a recorded audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// MicRecognizer records from the default microphone with a command line
// capture tool and sends the clip through a Transcriber. Each Start call
// opens one capture session; Stop ends the recording and triggers
// transcription.
type MicRecognizer struct {
	transcriber Transcriber
	recordPath  string
	recordArgs  func(outFile string) []string

	mu   sync.Mutex
	cmd  *exec.Cmd
	stop chan struct{}
}

func NewMicRecognizer(transcriber Transcriber) (*MicRecognizer, error) {
	path, args, err := findCaptureTool()
	if err != nil {
		return nil, err
	}
	return &MicRecognizer{
		transcriber: transcriber,
		recordPath:  path,
		recordArgs:  args,
	}, nil
}

func findCaptureTool() (string, func(string) []string, error) {
	if path, err := exec.LookPath("arecord"); err == nil {
		return path, func(out string) []string {
			return []string{"-f", "cd", "-t", "wav", out}
		}, nil
	}
	if path, err := exec.LookPath("sox"); err == nil {
		return path, func(out string) []string {
			return []string{"-d", "-t", "wav", out}
		}, nil
	}
	return "", nil, ErrUnsupported
}

func (r *MicRecognizer) Start(ctx context.Context) (<-chan Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd != nil {
		return nil, fmt.Errorf("recognition already in progress")
	}

	outFile := filepath.Join(os.TempDir(), fmt.Sprintf("capture-%d.wav", time.Now().UnixNano()))

	cmd := exec.Command(r.recordPath, r.recordArgs(outFile)...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start recording: %w", err)
	}

	stop := make(chan struct{})
	r.cmd = cmd
	r.stop = stop

	events := make(chan Event, 1)

	go func() {
		defer close(events)
		defer os.Remove(outFile)

		select {
		case <-stop:
		case <-ctx.Done():
		}

		// Interrupt so the capture tool flushes the wav header.
		if cmd.Process != nil {
			_ = cmd.Process.Signal(os.Interrupt)
		}
		_ = cmd.Wait()

		r.mu.Lock()
		if r.cmd == cmd {
			r.cmd = nil
			r.stop = nil
		}
		r.mu.Unlock()

		if ctx.Err() != nil {
			return
		}

		text, err := r.transcriber.Transcribe(ctx, outFile)
		if err != nil {
			events <- Event{Err: err}
			return
		}
		events <- Event{Transcript: strings.TrimSpace(text)}
	}()

	return events, nil
}

func (r *MicRecognizer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop != nil {
		close(r.stop)
		r.stop = nil
	}
}
