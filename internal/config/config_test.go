package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/f3rmion/kakitori/internal/recognizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
	assert.True(t, s.Game.SkipEnabled)
	assert.Equal(t, 5, s.Game.ProblemCount)
	assert.Equal(t, recognizer.DefaultTopN, s.Recognizer.TopN)
	assert.True(t, s.History)
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(`
game:
  skip_enabled: false
  problem_count: 42
recognizer:
  label_url: ./label.js
  top_n: 0
  load_timeout: 90s
`), 0644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.False(t, s.Game.SkipEnabled)
	assert.Equal(t, 10, s.Game.ProblemCount, "clamped")
	assert.Equal(t, "./label.js", s.Recognizer.LabelURL)
	assert.Equal(t, recognizer.DefaultModelURL, s.Recognizer.ModelURL)
	assert.Equal(t, recognizer.DefaultTopN, s.Recognizer.TopN)
	assert.Equal(t, 90*time.Second, s.Recognizer.LoadTimeout)
	assert.True(t, s.History)
}

func TestLoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("game: [unterminated"), 0644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "parsing settings file")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)

	s := Default()
	s.Game.ProblemCount = 8
	s.Game.Shuffle = true
	s.Recognizer.TopN = 3
	s.DataDir = "/srv/problems"
	require.NoError(t, Save(path, s))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestNormalize(t *testing.T) {
	s := &Settings{}
	s.Game.ProblemCount = 1
	s.Recognizer.LoadTimeout = -time.Second
	s.Normalize()

	assert.Equal(t, 2, s.Game.ProblemCount)
	assert.Equal(t, recognizer.DefaultModelURL, s.Recognizer.ModelURL)
	assert.Equal(t, recognizer.DefaultLabelURL, s.Recognizer.LabelURL)
	assert.Equal(t, DefaultLoadTimeout, s.Recognizer.LoadTimeout)
	assert.False(t, s.Game.SkipEnabled, "booleans are left alone")
}
