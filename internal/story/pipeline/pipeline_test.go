package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raushan95a/HeartTales/internal/domain/story"
	"github.com/raushan95a/HeartTales/internal/generation"
)

type fakeText struct {
	draft *generation.StoryDraft
	err   error
}

func (f *fakeText) GenerateStoryText(ctx context.Context, sc generation.StoryContext) (*generation.StoryDraft, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.draft, nil
}

type fakeImage struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
}

func (f *fakeImage) GenerateImage(ctx context.Context, description string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, description)
	f.mu.Unlock()
	if f.fail[description] {
		return "", errors.New("image backend down")
	}
	return "data:image/png;base64,aW1n", nil
}

type speechCall struct {
	text, voice string
	start, end  time.Time
}

type fakeSpeech struct {
	mu    sync.Mutex
	calls []speechCall
	busy  bool
	fail  map[string]bool
}

func (f *fakeSpeech) GenerateSpeechAudio(ctx context.Context, text, voiceID string) (string, error) {
	f.mu.Lock()
	if f.busy {
		f.mu.Unlock()
		return "", errors.New("overlapping speech request")
	}
	f.busy = true
	call := speechCall{text: text, voice: voiceID, start: time.Now()}
	f.mu.Unlock()

	time.Sleep(2 * time.Millisecond)

	f.mu.Lock()
	call.end = time.Now()
	f.calls = append(f.calls, call)
	f.busy = false
	f.mu.Unlock()

	if f.fail[text] {
		return "", errors.New("speech backend down")
	}
	return "YXVkaW8=", nil
}

func threeSceneDraft() *generation.StoryDraft {
	return &generation.StoryDraft{
		Title:    "The Treasure Hunt",
		Synopsis: "A map leads to gold.",
		Scenes: []generation.SceneDraft{
			{
				VisualDescription: "Dusty attic with an old chest",
				Narration:         "They found a map.",
				Dialogue: []generation.DialogueDraft{
					{Speaker: "Alex", Text: "Look at this map!"},
					{Speaker: "Rose", Text: "Let's follow it."},
				},
			},
			{
				VisualDescription: "Forest path at dusk",
				Narration:         "The hunt began.",
				Dialogue: []generation.DialogueDraft{
					{Speaker: "Me", Text: "Almost there."},
				},
			},
			{
				VisualDescription: "Open chest glowing with coins",
				Narration:         "Treasure at last.",
				Dialogue: []generation.DialogueDraft{
					{Speaker: "Captain Bones", Text: "Who goes there?"},
				},
			},
		},
	}
}

var (
	testProfile = story.UserProfile{Name: "Alex", Gender: story.GenderMale, Voice: "Puck"}
	testChars   = []story.Character{
		{ID: "c1", Name: "Rose", Gender: story.GenderFemale, Relation: "Sister", Voice: "Kore"},
	}
)

func newTestGenerator(b Backends, onProgress func(Progress)) *Generator {
	return New(b, Config{AudioDelay: time.Millisecond, OnProgress: onProgress})
}

func TestGenerateFullRun(t *testing.T) {
	speech := &fakeSpeech{}
	g := newTestGenerator(Backends{
		Text:   &fakeText{draft: threeSceneDraft()},
		Image:  &fakeImage{},
		Speech: speech,
	}, nil)

	st, err := g.Generate(context.Background(), testProfile, testChars, "treasure hunt")
	require.NoError(t, err)

	assert.Len(t, st.Scenes, 3)
	assert.NotEmpty(t, st.ID)
	assert.Equal(t, testProfile, st.UserProfile)
	assert.Equal(t, testChars, st.Characters)

	seen := map[string]bool{}
	for _, sc := range st.Scenes {
		assert.NotEmpty(t, sc.ID)
		assert.False(t, seen[sc.ID], "scene ids must be unique")
		seen[sc.ID] = true
		assert.NotEmpty(t, sc.ImageURL)
		assert.LessOrEqual(t, len(sc.Dialogue), 2)
		for _, d := range sc.Dialogue {
			assert.NotEmpty(t, d.AudioData)
			require.NotNil(t, d.Ref)
		}
	}

	// Voice resolution: profile name and "Me" use the profile voice,
	// known characters use their own, strangers fall back.
	assert.Equal(t, "Puck", st.Scenes[0].Dialogue[0].Ref.Voice)
	assert.Equal(t, "Kore", st.Scenes[0].Dialogue[1].Ref.Voice)
	assert.Equal(t, "Puck", st.Scenes[1].Dialogue[0].Ref.Voice)
	assert.Equal(t, story.DefaultVoice, st.Scenes[2].Dialogue[0].Ref.Voice)

	require.Len(t, speech.calls, 4)
	assert.Equal(t, "Look at this map!", speech.calls[0].text)
	assert.Equal(t, "Let's follow it.", speech.calls[1].text)
	assert.Equal(t, "Almost there.", speech.calls[2].text)
	assert.Equal(t, "Who goes there?", speech.calls[3].text)
}

func TestGenerateTextFailureIsFatal(t *testing.T) {
	g := newTestGenerator(Backends{
		Text:   &fakeText{err: &generation.GenerationError{Stage: "text", Err: errors.New("malformed JSON from model")}},
		Image:  &fakeImage{},
		Speech: &fakeSpeech{},
	}, nil)

	st, err := g.Generate(context.Background(), testProfile, testChars, "treasure hunt")
	require.Error(t, err)
	assert.Nil(t, st)

	var genErr *generation.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "text", genErr.Stage)
}

func TestGeneratePartialImageFailure(t *testing.T) {
	g := newTestGenerator(Backends{
		Text:   &fakeText{draft: threeSceneDraft()},
		Image:  &fakeImage{fail: map[string]bool{"Forest path at dusk": true}},
		Speech: &fakeSpeech{},
	}, nil)

	st, err := g.Generate(context.Background(), testProfile, testChars, "treasure hunt")
	require.NoError(t, err)
	require.Len(t, st.Scenes, 3)

	withImage := 0
	for _, sc := range st.Scenes {
		if sc.ImageURL != "" {
			withImage++
		}
	}
	assert.Equal(t, 2, withImage)
	assert.Empty(t, st.Scenes[1].ImageURL)
}

func TestGeneratePartialAudioFailure(t *testing.T) {
	g := newTestGenerator(Backends{
		Text:   &fakeText{draft: threeSceneDraft()},
		Image:  &fakeImage{},
		Speech: &fakeSpeech{fail: map[string]bool{"Almost there.": true}},
	}, nil)

	st, err := g.Generate(context.Background(), testProfile, testChars, "treasure hunt")
	require.NoError(t, err)
	assert.Empty(t, st.Scenes[1].Dialogue[0].AudioData)
	assert.NotEmpty(t, st.Scenes[0].Dialogue[0].AudioData)
	assert.NotEmpty(t, st.Scenes[2].Dialogue[0].AudioData)
}

func TestGenerateAudioNeverOverlaps(t *testing.T) {
	speech := &fakeSpeech{}
	g := newTestGenerator(Backends{
		Text:   &fakeText{draft: threeSceneDraft()},
		Image:  &fakeImage{},
		Speech: speech,
	}, nil)

	_, err := g.Generate(context.Background(), testProfile, testChars, "treasure hunt")
	require.NoError(t, err)

	require.Len(t, speech.calls, 4)
	for i := 1; i < len(speech.calls); i++ {
		assert.True(t, !speech.calls[i].start.Before(speech.calls[i-1].end),
			"speech call %d started before call %d finished", i, i-1)
	}
}

func TestGenerateProgressMonotonic(t *testing.T) {
	var mu sync.Mutex
	var reports []float64
	g := newTestGenerator(Backends{
		Text:   &fakeText{draft: threeSceneDraft()},
		Image:  &fakeImage{fail: map[string]bool{"Forest path at dusk": true}},
		Speech: &fakeSpeech{fail: map[string]bool{"Almost there.": true}},
	}, func(p Progress) {
		mu.Lock()
		reports = append(reports, p.Percent)
		mu.Unlock()
	})

	_, err := g.Generate(context.Background(), testProfile, testChars, "treasure hunt")
	require.NoError(t, err)

	require.NotEmpty(t, reports)
	for i := 1; i < len(reports); i++ {
		assert.GreaterOrEqual(t, reports[i], reports[i-1], "progress went backwards at report %d", i)
	}
	assert.Equal(t, 100.0, reports[len(reports)-1])
}

func TestGenerateNoCharactersIsValid(t *testing.T) {
	g := newTestGenerator(Backends{
		Text:   &fakeText{draft: threeSceneDraft()},
		Image:  &fakeImage{},
		Speech: &fakeSpeech{},
	}, nil)

	st, err := g.Generate(context.Background(), testProfile, nil, "a solo adventure")
	require.NoError(t, err)
	assert.Len(t, st.Scenes, 3)
	assert.Empty(t, st.Characters)
}

func TestGenerateNoDialogueSkipsAudio(t *testing.T) {
	draft := &generation.StoryDraft{
		Title: "Silent Film", Synopsis: "No one speaks.",
		Scenes: []generation.SceneDraft{
			{VisualDescription: "Empty stage", Dialogue: []generation.DialogueDraft{}},
		},
	}
	speech := &fakeSpeech{}
	var last float64
	g := newTestGenerator(Backends{
		Text: &fakeText{draft: draft}, Image: &fakeImage{}, Speech: speech,
	}, func(p Progress) { last = p.Percent })

	_, err := g.Generate(context.Background(), testProfile, nil, "quiet")
	require.NoError(t, err)
	assert.Empty(t, speech.calls)
	assert.Equal(t, 100.0, last)
}
