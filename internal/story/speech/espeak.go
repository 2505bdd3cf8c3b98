package speech

import (
	"fmt"
	"os/exec"
	"strconv"
	"sync"
)

// ESpeakSpeaker vocalizes through eSpeak/eSpeak-NG. Each Speak call kills
// any utterance still running, so only one sounds at a time.
type ESpeakSpeaker struct {
	path string

	mu  sync.Mutex
	cmd *exec.Cmd
	gen int
}

func newESpeakSpeaker() (*ESpeakSpeaker, error) {
	path, err := findESpeakExecutable()
	if err != nil {
		return nil, fmt.Errorf("eSpeak not found: %w", err)
	}
	if err := exec.Command(path, "--version").Run(); err != nil {
		return nil, fmt.Errorf("eSpeak test failed: %w", err)
	}
	return &ESpeakSpeaker{path: path}, nil
}

func findESpeakExecutable() (string, error) {
	candidates := []string{"espeak-ng", "espeak"}
	for _, candidate := range candidates {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("eSpeak executable not found in PATH")
}

func (e *ESpeakSpeaker) Speak(text string, params VoiceParams, events Events) error {
	e.mu.Lock()
	e.cancelLocked()

	args := []string{}
	if params.Voice != "" && params.Voice != "default" {
		args = append(args, "-v", params.Voice)
	}

	// eSpeak pitch range is 0-99 with 50 neutral.
	pitch := clampInt(int(50*params.Pitch), 0, 99)
	args = append(args, "-p", strconv.Itoa(pitch))

	// Speed in words per minute, default is 175.
	rate := params.Rate
	if rate == 0 {
		rate = 1.0
	}
	args = append(args, "-s", strconv.Itoa(int(175*rate)))

	// Amplitude 0-200, default is 100.
	volume := params.Volume
	if volume == 0 {
		volume = 1.0
	}
	args = append(args, "-a", strconv.Itoa(clampInt(int(100*volume), 0, 200)))

	args = append(args, text)

	cmd := exec.Command(e.path, args...)
	if err := cmd.Start(); err != nil {
		e.mu.Unlock()
		if events.OnError != nil {
			events.OnError(err)
		}
		return fmt.Errorf("failed to start eSpeak: %w", err)
	}

	e.cmd = cmd
	e.gen++
	gen := e.gen
	e.mu.Unlock()

	if events.OnStart != nil {
		events.OnStart()
	}

	go func() {
		_ = cmd.Wait()

		e.mu.Lock()
		if e.gen == gen {
			e.cmd = nil
		}
		e.mu.Unlock()

		if events.OnEnd != nil {
			events.OnEnd()
		}
	}()

	return nil
}

func (e *ESpeakSpeaker) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelLocked()
}

func (e *ESpeakSpeaker) cancelLocked() {
	if e.cmd != nil && e.cmd.Process != nil {
		_ = e.cmd.Process.Kill()
	}
	e.cmd = nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
