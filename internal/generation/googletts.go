package generation

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	texttospeechpb "google.golang.org/genproto/googleapis/cloud/texttospeech/v1"
)

// GoogleSynthesizer implements SpeechSynthesizer on Google Cloud
// Text-to-Speech. Roster voice ids map onto the Chirp3 HD voice family.
type GoogleSynthesizer struct {
	client *texttospeech.Client
}

func NewGoogleSynthesizer(ctx context.Context) (*GoogleSynthesizer, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create TTS client: %w", err)
	}
	return &GoogleSynthesizer{client: client}, nil
}

func (g *GoogleSynthesizer) GenerateSpeechAudio(ctx context.Context, text, voiceID string) (string, error) {
	if voiceID == "" {
		voiceID = "Zephyr"
	}

	resp, err := g.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: "en-US",
			Name:         "en-US-Chirp3-HD-" + voiceID,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
		},
	})
	if err != nil {
		return "", &GenerationError{Stage: "audio", Err: err}
	}
	return base64.StdEncoding.EncodeToString(resp.AudioContent), nil
}

func (g *GoogleSynthesizer) Close() error {
	return g.client.Close()
}

// HasGoogleCredentials reports whether Google Cloud credentials are
// configured in the environment.
func HasGoogleCredentials() bool {
	_, ok := os.LookupEnv("GOOGLE_APPLICATION_CREDENTIALS")
	return ok
}

// NewSynthesizer selects a speech backend. "auto" prefers Google Cloud when
// credentials are present, matching how the reading engine is chosen.
func NewSynthesizer(ctx context.Context, kind string, fallback *Client) (SpeechSynthesizer, error) {
	switch kind {
	case "google":
		return NewGoogleSynthesizer(ctx)
	case "openai":
		return fallback, nil
	case "auto":
		if HasGoogleCredentials() {
			return NewGoogleSynthesizer(ctx)
		}
		return fallback, nil
	default:
		return nil, fmt.Errorf("unsupported tts type: %s", kind)
	}
}
