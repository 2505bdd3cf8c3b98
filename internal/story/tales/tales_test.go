package tales

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raushan95a/HeartTales/internal/domain/story"
)

func storyFixture() *story.Story {
	return &story.Story{
		ID:          "st-1",
		Title:       "The Picnic",
		UserProfile: story.UserProfile{Name: "Sam", Voice: "Fenrir"},
		Characters: []story.Character{
			{ID: "c1", Name: "Rose", Gender: story.GenderFemale, Voice: "Kore", AvatarColor: "pink"},
		},
		Scenes: []story.Scene{
			{
				ID: "scene-a",
				Dialogue: []story.Dialogue{
					{Speaker: "Rose", Text: "Race you!", Ref: &story.SpeakerRef{Kind: story.SpeakerCharacter, CharacterID: "c1", Voice: "Kore"}, AudioData: "QUJD"},
					{Speaker: "Me", Text: "You're on!"},
				},
			},
			{
				ID: "scene-b",
				Dialogue: []story.Dialogue{
					{Speaker: "Narrator", Text: "And off they went."},
				},
			},
		},
	}
}

func TestPlaybackItemsFlattenInOrder(t *testing.T) {
	items := playbackItems(storyFixture())

	require.Len(t, items, 3)
	assert.Equal(t, "scene-a/0", items[0].Key)
	assert.Equal(t, "scene-a/1", items[1].Key)
	assert.Equal(t, "scene-b/0", items[2].Key)
}

func TestPlaybackItemsUseSpeakerRefVoice(t *testing.T) {
	items := playbackItems(storyFixture())

	assert.Equal(t, "Kore", items[0].Voice)
	assert.Equal(t, "QUJD", items[0].Audio)
}

func TestPlaybackItemsLegacyLinesFallBackToNameMatching(t *testing.T) {
	items := playbackItems(storyFixture())

	// "Me" has no ref and resolves to the profile voice.
	assert.Equal(t, "Fenrir", items[1].Voice)
	// Unknown speakers get the default voice.
	assert.Equal(t, story.DefaultVoice, items[2].Voice)
}

func TestFindStoryByIDAndNumber(t *testing.T) {
	app := &Tales{stories: []story.Story{*storyFixture()}}

	require.NotNil(t, app.findStory("st-1"))
	require.NotNil(t, app.findStory("1"))
	assert.Nil(t, app.findStory("2"))
	assert.Nil(t, app.findStory("nope"))
}

func TestParseGender(t *testing.T) {
	g, ok := parseGender("female")
	require.True(t, ok)
	assert.Equal(t, story.GenderFemale, g)

	g, ok = parseGender(" M ")
	require.True(t, ok)
	assert.Equal(t, story.GenderMale, g)

	_, ok = parseGender("robot")
	assert.False(t, ok)
}
