package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/raushan95a/HeartTales/internal/domain/story"
)

// GenerationError wraps a backend failure with the stage it happened in.
type GenerationError struct {
	Stage string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s generation failed: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// StoryContext carries everything the text backend needs to draft a story.
type StoryContext struct {
	Profile    story.UserProfile
	Characters []story.Character
	Prompt     string
}

// StoryDraft is the structured result of the text stage, before ids, images
// and audio are attached.
type StoryDraft struct {
	Title    string       `json:"title"`
	Synopsis string       `json:"synopsis"`
	Scenes   []SceneDraft `json:"scenes"`
}

type SceneDraft struct {
	VisualDescription string          `json:"visual_description"`
	Narration         string          `json:"narration"`
	Dialogue          []DialogueDraft `json:"dialogue"`
}

type DialogueDraft struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// ChatTurn is one prior exchange in a call session, as seen by the backend.
type ChatTurn struct {
	Role story.ChatRole
	Text string
}

type TextGenerator interface {
	GenerateStoryText(ctx context.Context, sc StoryContext) (*StoryDraft, error)
}

type ImageGenerator interface {
	// GenerateImage returns a displayable image handle (a data URI).
	GenerateImage(ctx context.Context, description string) (string, error)
}

type SpeechSynthesizer interface {
	// GenerateSpeechAudio returns base64 encoded audio for the given text.
	GenerateSpeechAudio(ctx context.Context, text, voiceID string) (string, error)
}

type ChatReplier interface {
	GenerateChatReply(ctx context.Context, character story.Character, profile story.UserProfile, history []ChatTurn, message string) (string, error)
}

// ParseStoryDraft parses a model response into a StoryDraft. Accidental
// markdown code fences are stripped before decoding. The result must be a
// JSON object containing a "scenes" array; anything else is malformed.
func ParseStoryDraft(raw string) (*StoryDraft, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	text = strings.TrimSpace(text)

	if text == "" {
		return nil, errors.New("empty response from model")
	}

	var draft StoryDraft
	if err := json.Unmarshal([]byte(text), &draft); err != nil {
		return nil, fmt.Errorf("malformed JSON from model: %w", err)
	}
	if draft.Scenes == nil {
		return nil, errors.New("model response missing 'scenes' array")
	}

	if draft.Title == "" {
		draft.Title = "Untitled Story"
	}
	if draft.Synopsis == "" {
		draft.Synopsis = "A short adventure."
	}
	for i := range draft.Scenes {
		if draft.Scenes[i].VisualDescription == "" {
			draft.Scenes[i].VisualDescription = "A generic scene."
		}
		if draft.Scenes[i].Dialogue == nil {
			draft.Scenes[i].Dialogue = []DialogueDraft{}
		}
	}
	return &draft, nil
}
