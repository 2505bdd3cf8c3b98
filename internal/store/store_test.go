package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raushan95a/HeartTales/internal/domain/story"
)

func TestLoadAbsent(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	var chars []story.Character
	found, err := s.Load(KeyCharacters, &chars)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, chars)
}

func TestSaveLoadRoundtrip(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	in := []story.Character{
		{ID: "c1", Name: "Rose", Gender: story.GenderFemale, Relation: "Sister", Voice: "Kore"},
	}
	require.NoError(t, s.Save(KeyCharacters, in))

	var out []story.Character
	found, err := s.Load(KeyCharacters, &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, in, out)
}

func TestClear(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Save(KeyProfile, story.UserProfile{Name: "Alex"}))
	require.NoError(t, s.Clear(KeyProfile))
	require.NoError(t, s.Clear(KeyProfile)) // idempotent

	var p story.UserProfile
	found, err := s.Load(KeyProfile, &p)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCorruptRecordTreatedAsAbsent(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "stories.json"), []byte("{not json"), 0644))

	var stories []story.Story
	found, err := s.Load(KeyStories, &stories)
	require.NoError(t, err)
	assert.False(t, found)
}
