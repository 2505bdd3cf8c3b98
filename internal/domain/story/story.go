package story

import "time"

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

// Character is one entry in the user's roster. Stories embed a snapshot
// copy, so editing or deleting a roster character never changes a story.
type Character struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Gender      Gender `json:"gender"`
	Relation    string `json:"relation"`
	Traits      string `json:"traits"`
	Description string `json:"description"`
	AvatarColor string `json:"avatar_color"`
	Voice       string `json:"voice"`
}

// UserProfile is the user's in-story persona. Singleton, created on first
// story generation and editable afterwards.
type UserProfile struct {
	Name        string `json:"name"`
	Gender      Gender `json:"gender"`
	Description string `json:"description"`
	Voice       string `json:"voice"`
}

type SpeakerKind string

const (
	SpeakerUser      SpeakerKind = "user"
	SpeakerCharacter SpeakerKind = "character"
	SpeakerOther     SpeakerKind = "other"
)

// SpeakerRef is the resolved identity of a dialogue speaker. It is computed
// once when the story is generated so that viewers and playback never have
// to re-match free-text speaker names.
type SpeakerRef struct {
	Kind        SpeakerKind `json:"kind"`
	CharacterID string      `json:"character_id,omitempty"`
	Voice       string      `json:"voice"`
}

// Dialogue is one spoken line inside a scene. AudioData holds the base64
// encoded synthesized audio; it stays empty when synthesis failed.
type Dialogue struct {
	Speaker   string      `json:"speaker"`
	Text      string      `json:"text"`
	Ref       *SpeakerRef `json:"ref,omitempty"`
	AudioData string      `json:"audio_data,omitempty"`
}

// Scene is one panel of a story. ImageURL is a data URI populated by the
// pipeline; it stays empty when image generation failed for this scene.
type Scene struct {
	ID                string     `json:"id"`
	VisualDescription string     `json:"visual_description"`
	Narration         string     `json:"narration"`
	Dialogue          []Dialogue `json:"dialogue"`
	ImageURL          string     `json:"image_url,omitempty"`
}

// Story is self-contained: it carries snapshots of the profile and the
// characters that starred in it, so it renders correctly even after the
// live roster changes.
type Story struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Synopsis    string      `json:"synopsis"`
	CreatedAt   time.Time   `json:"created_at"`
	UserProfile UserProfile `json:"user_profile"`
	Characters  []Character `json:"characters"`
	Scenes      []Scene     `json:"scenes"`
}

type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleCharacter ChatRole = "character"
)

// ChatMessage lives only for the duration of one call session.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      ChatRole  `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// DefaultVoice is used whenever a speaker cannot be matched to the profile
// or a known character.
const DefaultVoice = "Zephyr"

var VoiceOptions = []string{"Puck", "Charon", "Kore", "Fenrir", "Zephyr"}

var RelationOptions = []string{
	"Friend", "Mother", "Father", "Brother", "Sister",
	"Partner", "Colleague", "Pet", "Other",
}

var AvatarColors = []string{
	"red", "orange", "amber", "green", "emerald", "teal", "cyan",
	"blue", "indigo", "violet", "purple", "fuchsia", "pink", "rose",
}
