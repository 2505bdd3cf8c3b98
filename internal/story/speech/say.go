package speech

import (
	"fmt"
	"os/exec"
	"sync"
)

// SaySpeaker uses the macOS built-in 'say' command.
type SaySpeaker struct {
	mu  sync.Mutex
	cmd *exec.Cmd
	gen int
}

func newSaySpeaker() *SaySpeaker {
	return &SaySpeaker{}
}

func (s *SaySpeaker) Speak(text string, params VoiceParams, events Events) error {
	s.mu.Lock()
	s.cancelLocked()

	args := []string{}
	if params.Voice != "" && params.Voice != "default" {
		args = append(args, "-v", params.Voice)
	}

	rate := params.Rate
	if rate == 0 {
		rate = 1.0
	}
	args = append(args, "-r", fmt.Sprintf("%.0f", 175*rate))
	args = append(args, text)

	cmd := exec.Command("say", args...)
	if err := cmd.Start(); err != nil {
		s.mu.Unlock()
		if events.OnError != nil {
			events.OnError(err)
		}
		return fmt.Errorf("failed to start say: %w", err)
	}

	s.cmd = cmd
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	if events.OnStart != nil {
		events.OnStart()
	}

	go func() {
		_ = cmd.Wait()

		s.mu.Lock()
		if s.gen == gen {
			s.cmd = nil
		}
		s.mu.Unlock()

		if events.OnEnd != nil {
			events.OnEnd()
		}
	}()

	return nil
}

func (s *SaySpeaker) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

func (s *SaySpeaker) cancelLocked() {
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	s.cmd = nil
}
