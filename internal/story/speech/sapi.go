package speech

import (
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// SAPISpeaker drives the Windows Speech API through PowerShell.
type SAPISpeaker struct {
	mu  sync.Mutex
	cmd *exec.Cmd
	gen int
}

func newSAPISpeaker() *SAPISpeaker {
	return &SAPISpeaker{}
}

func (s *SAPISpeaker) Speak(text string, params VoiceParams, events Events) error {
	s.mu.Lock()
	s.cancelLocked()

	rate := params.Rate
	if rate == 0 {
		rate = 1.0
	}
	volume := params.Volume
	if volume == 0 {
		volume = 1.0
	}

	script := fmt.Sprintf(`Add-Type -AssemblyName System.Speech;
		$synth = New-Object System.Speech.Synthesis.SpeechSynthesizer;
		$synth.Rate = %d;
		$synth.Volume = %d;
		$synth.Speak("%s")`,
		int(rate*10)-10, // SAPI range is -10 to 10
		clampInt(int(volume*100), 0, 100),
		strings.ReplaceAll(text, `"`, "'"))

	cmd := exec.Command("powershell", "-Command", script)
	if err := cmd.Start(); err != nil {
		s.mu.Unlock()
		if events.OnError != nil {
			events.OnError(err)
		}
		return fmt.Errorf("failed to start SAPI synthesis: %w", err)
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

func (s *SAPISpeaker) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

func (s *SAPISpeaker) cancelLocked() {
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	s.cmd = nil
}
