// Package config handles loading and saving user settings for kakitori.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/f3rmion/kakitori/internal/game"
	"github.com/f3rmion/kakitori/internal/recognizer"
	"gopkg.in/yaml.v3"
)

// FileName is the settings file inside the config directory.
const FileName = "config.yaml"

// DefaultLoadTimeout bounds classifier initialization.
const DefaultLoadTimeout = 60 * time.Second

// Settings holds all user configuration.
type Settings struct {
	Game       GameSettings       `yaml:"game"`
	Recognizer RecognizerSettings `yaml:"recognizer"`
	DataDir    string             `yaml:"data_dir"` // Directory of <grade>.csv files; empty uses the built-in sets
	History    bool               `yaml:"history"`  // Record round outcomes
}

// GameSettings controls a practice game.
type GameSettings struct {
	SkipEnabled  bool `yaml:"skip_enabled"`
	ProblemCount int  `yaml:"problem_count"` // 2..10
	Shuffle      bool `yaml:"shuffle"`
	Sound        bool `yaml:"sound"` // Ring the terminal bell on each verdict
}

// RecognizerSettings locates and tunes the classifier.
type RecognizerSettings struct {
	ModelURL    string        `yaml:"model_url"`    // model.json URL or path
	LabelURL    string        `yaml:"label_url"`    // label.js or JSON vocabulary URL or path
	TopN        int           `yaml:"top_n"`        // Candidates that count as a match
	LoadTimeout time.Duration `yaml:"load_timeout"` // e.g. "60s"
}

// Default returns the settings used when no file exists.
func Default() *Settings {
	return &Settings{
		Game: GameSettings{
			SkipEnabled:  true,
			ProblemCount: game.DefaultProblems,
			Sound:        true,
		},
		Recognizer: RecognizerSettings{
			ModelURL:    recognizer.DefaultModelURL,
			LabelURL:    recognizer.DefaultLabelURL,
			TopN:        recognizer.DefaultTopN,
			LoadTimeout: DefaultLoadTimeout,
		},
		History: true,
	}
}

// Normalize clamps out-of-range values and fills empty ones with defaults.
func (s *Settings) Normalize() {
	d := Default()

	s.Game.ProblemCount = game.ClampCount(s.Game.ProblemCount)
	if s.Recognizer.ModelURL == "" {
		s.Recognizer.ModelURL = d.Recognizer.ModelURL
	}
	if s.Recognizer.LabelURL == "" {
		s.Recognizer.LabelURL = d.Recognizer.LabelURL
	}
	if s.Recognizer.TopN < 1 {
		s.Recognizer.TopN = d.Recognizer.TopN
	}
	if s.Recognizer.LoadTimeout <= 0 {
		s.Recognizer.LoadTimeout = d.Recognizer.LoadTimeout
	}
}

// Load reads settings from a YAML file. A missing file yields the defaults;
// keys absent from the file keep their default values.
func Load(path string) (*Settings, error) {
	s := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading settings file: %w", err)
	}

	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing settings file: %w", err)
	}
	s.Normalize()

	return s, nil
}

// Save writes settings to a YAML file, creating its directory.
func Save(path string, s *Settings) error {
	out, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("writing settings file: %w", err)
	}

	return nil
}

// GetConfigDir returns the default configuration directory.
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "kakitori"), nil
}

// EnsureConfigDir creates dir if it doesn't exist.
func EnsureConfigDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	return nil
}
