package speech

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSpeakerMock(t *testing.T) {
	spk, err := NewSpeaker("mock")
	require.NoError(t, err)
	assert.IsType(t, &MockSpeaker{}, spk)
}

func TestNewSpeakerUnknown(t *testing.T) {
	_, err := NewSpeaker("gramophone")
	assert.Error(t, err)
}

func TestMockSpeakerCancelsPreviousUtterance(t *testing.T) {
	spk := NewMockSpeaker()
	spk.SetDelay(time.Second)

	var firstEnded bool
	require.NoError(t, spk.Speak("one", VoiceParams{}, Events{OnEnd: func() { firstEnded = true }}))
	require.NoError(t, spk.Speak("two", VoiceParams{}, Events{}))

	utterances := spk.Utterances()
	require.Len(t, utterances, 2)
	assert.Equal(t, "one", utterances[0].Text)
	assert.Equal(t, "two", utterances[1].Text)

	// The first utterance was cut off, so its OnEnd never fires.
	time.Sleep(20 * time.Millisecond)
	assert.False(t, firstEnded)
}

func TestClampInt(t *testing.T) {
	assert.Equal(t, 0, clampInt(-5, 0, 99))
	assert.Equal(t, 99, clampInt(150, 0, 99))
	assert.Equal(t, 42, clampInt(42, 0, 99))
}
