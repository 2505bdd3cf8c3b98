package generation

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/raushan95a/HeartTales/internal/domain/story"
)

const defaultTimeout = 300 * time.Second

// imageStylePrefix is prepended to every scene's visual description.
const imageStylePrefix = "Manga style illustration, black and white or muted colors, dramatic lighting, high quality line art. "

// openaiVoices maps roster voice ids to synthesis voices.
var openaiVoices = map[string]openai.SpeechVoice{
	"Puck":   openai.VoiceEcho,
	"Charon": openai.VoiceOnyx,
	"Kore":   openai.VoiceNova,
	"Fenrir": openai.VoiceFable,
	"Zephyr": openai.VoiceAlloy,
}

// Client implements the text, image, speech and chat backends on top of an
// OpenAI-compatible API.
type Client struct {
	api        *openai.Client
	textModel  string
	chatModel  string
	imageModel string
	retryDelay time.Duration
}

type ClientConfig struct {
	APIKey     string
	BaseURL    string
	TextModel  string
	ChatModel  string
	ImageModel string
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("missing API key (set ai.api_key or OPENAI_API_KEY)")
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	config.HTTPClient = &http.Client{Timeout: defaultTimeout}

	if cfg.TextModel == "" {
		cfg.TextModel = "gpt-4o-mini"
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = cfg.TextModel
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = "dall-e-3"
	}

	return &Client{
		api:        openai.NewClientWithConfig(config),
		textModel:  cfg.TextModel,
		chatModel:  cfg.ChatModel,
		imageModel: cfg.ImageModel,
		retryDelay: 1500 * time.Millisecond,
	}, nil
}

func storySystemInstruction(profile story.UserProfile) string {
	return fmt.Sprintf(`You are a strict JSON Data Generator API.

Task: Generate a 3-scene comic story where the main protagonist (%s) interacts with the supporting characters.

CONSTRAINTS:
1. Output raw JSON only. No markdown formatting.
2. "visual_description": MAX 15 words. Describe the scene visually.
3. "narration": MAX 10 words.
4. "dialogue": MAX 2 items per scene. Text MAX 10 words.
5. TOTAL SCENES: Exactly 3.
6. Ensure %s is an active participant.

JSON Schema:
{
  "title": "String",
  "synopsis": "String (Max 20 words)",
  "scenes": [
    {
      "visual_description": "String",
      "narration": "String",
      "dialogue": [{ "speaker": "String", "text": "String" }]
    }
  ]
}`, profile.Name, profile.Name)
}

func storyInputContext(sc StoryContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "MAIN PROTAGONIST (USER):\n- Name: %s\n- Gender: %s\n- Description: %s\n", sc.Profile.Name, sc.Profile.Gender, sc.Profile.Description)
	fmt.Fprintf(&b, "(Refer to this character as %q or \"Me\" in the story structure, but consistent name in dialogue speaker fields).\n\n", sc.Profile.Name)
	b.WriteString("SUPPORTING CHARACTERS:\n")
	for _, c := range sc.Characters {
		fmt.Fprintf(&b, "- %s (%s, %s): %s. %s\n", c.Name, c.Relation, c.Gender, c.Traits, c.Description)
	}
	fmt.Fprintf(&b, "\nUSER STORY IDEA:\n%s\n", sc.Prompt)
	return b.String()
}

func (c *Client) GenerateStoryText(ctx context.Context, sc StoryContext) (*StoryDraft, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.textModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: storySystemInstruction(sc.Profile)},
			{Role: openai.ChatMessageRoleUser, Content: storyInputContext(sc)},
		},
		MaxTokens: 4000,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, &GenerationError{Stage: "text", Err: err}
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, &GenerationError{Stage: "text", Err: errors.New("no response from model")}
	}

	draft, err := ParseStoryDraft(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, &GenerationError{Stage: "text", Err: err}
	}
	return draft, nil
}

func isTransient(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "500") ||
		strings.Contains(msg, "Rpc failed") ||
		strings.Contains(msg, "rate limit")
}

func (c *Client) GenerateImage(ctx context.Context, description string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		resp, err := c.api.CreateImage(ctx, openai.ImageRequest{
			Model:          c.imageModel,
			Prompt:         imageStylePrefix + description,
			N:              1,
			Size:           openai.CreateImageSize1792x1024,
			ResponseFormat: openai.CreateImageResponseFormatB64JSON,
		})
		if err == nil {
			if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
				return "", &GenerationError{Stage: "image", Err: errors.New("no image data in response")}
			}
			return "data:image/png;base64," + resp.Data[0].B64JSON, nil
		}

		lastErr = err
		if attempt < 3 && isTransient(err) {
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return "", &GenerationError{Stage: "image", Err: ctx.Err()}
			}
			continue
		}
		break
	}
	return "", &GenerationError{Stage: "image", Err: lastErr}
}

func (c *Client) GenerateSpeechAudio(ctx context.Context, text, voiceID string) (string, error) {
	voice, ok := openaiVoices[voiceID]
	if !ok {
		voice = openai.VoiceAlloy
	}

	resp, err := c.api.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model: openai.TTSModel1,
		Input: text,
		Voice: voice,
	})
	if err != nil {
		return "", &GenerationError{Stage: "audio", Err: err}
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return "", &GenerationError{Stage: "audio", Err: err}
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func chatSystemInstruction(character story.Character, profile story.UserProfile) string {
	return fmt.Sprintf(`You are roleplaying as a character in a conversation. Stay COMPLETELY in character at all times.

CHARACTER YOU ARE PLAYING:
- Name: %s
- Gender: %s
- Relationship to the user: %s
- Personality traits: %s
- Description: %s

THE USER TALKING TO YOU:
- Name: %s
- Gender: %s

RULES:
1. Respond as %s would, based on their personality traits and relationship.
2. Keep responses conversational and natural, like a real video call.
3. Keep responses concise - 1-3 sentences max, like natural speech.
4. Show emotion and personality consistent with the character traits.
5. Address the user by their name (%s) occasionally.
6. Never break character or mention being an AI.`,
		character.Name, character.Gender, character.Relation, character.Traits, character.Description,
		profile.Name, profile.Gender, character.Name, profile.Name)
}

func (c *Client) GenerateChatReply(ctx context.Context, character story.Character, profile story.UserProfile, history []ChatTurn, message string) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: chatSystemInstruction(character, profile)},
	}
	for _, turn := range history {
		role := openai.ChatMessageRoleAssistant
		if turn.Role == story.RoleUser {
			role = openai.ChatMessageRoleUser
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Text})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: message})

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.chatModel,
		Messages:  messages,
		MaxTokens: 200,
	})
	if err != nil {
		return "", &GenerationError{Stage: "chat", Err: err}
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &GenerationError{Stage: "chat", Err: errors.New("no response from model")}
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Transcribe converts a recorded audio file to text.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (string, error) {
	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: audioPath,
	})
	if err != nil {
		return "", &GenerationError{Stage: "transcription", Err: err}
	}
	return strings.TrimSpace(resp.Text), nil
}
