// Package views holds the screens of the kakitori TUI.
package views

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/f3rmion/kakitori/internal/config"
	"github.com/f3rmion/kakitori/internal/history"
	"github.com/f3rmion/kakitori/internal/kakitori"
	"github.com/f3rmion/kakitori/internal/verdict"
)

// Classifier is the part of the recognizer session the screens drive.
type Classifier interface {
	Init(ctx context.Context) error
	Ready() bool
}

// Recorder stores round outcomes.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
}

// StartGameMsg asks the app to start a game on a grade.
type StartGameMsg struct {
	Grade string
}

// OpenSettingsMsg asks the app to show the settings screen.
type OpenSettingsMsg struct{}

// HomeMsg returns to the title screen.
type HomeMsg struct{}

// GameOverMsg is sent when the last problem is answered or skipped.
type GameOverMsg struct {
	Grade   string
	Score   int
	Total   int
	Message string
	Results []kakitori.RoundResult
}

// RetryMsg asks the app to replay the finished game.
type RetryMsg struct{}

// SettingsSavedMsg carries settings written by the settings screen.
type SettingsSavedMsg struct {
	Settings *config.Settings
	Err      error
}

// ClassifierLoadedMsg reports the end of a classifier initialization.
type ClassifierLoadedMsg struct {
	Err error
}

// JudgedMsg carries the outcome of a judge request.
type JudgedMsg struct {
	Target  string
	Verdict verdict.Verdict
	Err     error
}

// nextProblemMsg ends the feedback pause after a correct answer.
type nextProblemMsg struct{}

// LoadClassifier initializes c in the background.
func LoadClassifier(c Classifier) tea.Cmd {
	return func() tea.Msg {
		return ClassifierLoadedMsg{Err: c.Init(context.Background())}
	}
}
