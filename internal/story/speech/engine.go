package speech

import (
	"fmt"
	"runtime"
)

type EngineType string

const (
	EngineTypeMock   EngineType = "mock"
	EngineTypeESpeak EngineType = "espeak"
	EngineTypeSay    EngineType = "say"  // macOS only
	EngineTypeSAPI   EngineType = "sapi" // Windows only
	EngineTypeAuto   EngineType = "auto" // Choose best for platform
)

func (e EngineType) String() string {
	return string(e)
}

// NewSpeaker creates a speaker engine of the given type.
func NewSpeaker(kind string) (Speaker, error) {
	if kind == EngineTypeAuto.String() {
		kind = bestEngineForPlatform().String()
	}

	switch kind {
	case EngineTypeMock.String():
		return NewMockSpeaker(), nil

	case EngineTypeESpeak.String():
		return newESpeakSpeaker()

	case EngineTypeSay.String():
		if runtime.GOOS != "darwin" {
			return nil, fmt.Errorf("say engine only supports macOS")
		}
		return newSaySpeaker(), nil

	case EngineTypeSAPI.String():
		if runtime.GOOS != "windows" {
			return nil, fmt.Errorf("SAPI engine only supports Windows")
		}
		return newSAPISpeaker(), nil

	default:
		return nil, fmt.Errorf("unsupported speech engine type: %s", kind)
	}
}

func bestEngineForPlatform() EngineType {
	switch runtime.GOOS {
	case "windows":
		return EngineTypeSAPI
	case "darwin":
		return EngineTypeSay
	default:
		return EngineTypeESpeak
	}
}

// AvailableEngines returns the engines usable on the current platform.
func AvailableEngines() []EngineType {
	engines := []EngineType{EngineTypeMock, EngineTypeESpeak}
	switch runtime.GOOS {
	case "windows":
		engines = append(engines, EngineTypeSAPI)
	case "darwin":
		engines = append(engines, EngineTypeSay)
	}
	return engines
}
