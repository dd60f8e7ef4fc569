package views

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/f3rmion/kakitori/internal/config"
	"github.com/f3rmion/kakitori/internal/game"
)

// Settings view styles
var (
	settingsTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#EA580C")).
				MarginBottom(1)

	settingsPathStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#6B7280")).
				Italic(true).
				MarginBottom(1)

	settingsLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FDBA74")).
				Width(22)

	settingsRowStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#F9FAFB"))

	settingsActiveStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#1F2937")).
				Background(lipgloss.Color("#FDBA74"))

	settingsMutedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#6B7280"))

	settingsErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#EF4444"))

	settingsHelpStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#6B7280")).
				MarginTop(1)
)

type settingsField int

const (
	fieldSkip settingsField = iota
	fieldProblems
	fieldShuffle
	fieldTopN
	fieldHistory
	fieldSound
	numFields
)

// maxTopN bounds the candidate count offered in the editor.
const maxTopN = 20

// SettingsModel edits the game settings and writes them to the config file.
type SettingsModel struct {
	draft config.Settings
	path  string

	field settingsField
	dirty bool
	err   error

	width  int
	height int
}

// NewSettingsModel edits a copy of s; saving writes to path.
func NewSettingsModel(s *config.Settings, path string) SettingsModel {
	return SettingsModel{draft: *s, path: path}
}

// SetSize updates the view dimensions.
func (m *SettingsModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// SetError shows a save failure.
func (m *SettingsModel) SetError(err error) { m.err = err }

// Update handles messages.
func (m SettingsModel) Update(msg tea.Msg) (SettingsModel, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch km.String() {
	case "j", "down", "tab":
		m.field = (m.field + 1) % numFields
	case "k", "up", "shift+tab":
		m.field = (m.field + numFields - 1) % numFields
	case "l", "right", "+":
		m.adjust(1)
	case "h", "left", "-":
		m.adjust(-1)
	case " ":
		m.adjust(1)
	case "enter", "ctrl+s":
		return m, m.save()
	case "esc":
		return m, func() tea.Msg { return HomeMsg{} }
	}
	return m, nil
}

func (m *SettingsModel) adjust(delta int) {
	g := &m.draft.Game
	switch m.field {
	case fieldSkip:
		g.SkipEnabled = !g.SkipEnabled
	case fieldProblems:
		g.ProblemCount = game.ClampCount(g.ProblemCount + delta)
	case fieldShuffle:
		g.Shuffle = !g.Shuffle
	case fieldTopN:
		m.draft.Recognizer.TopN = min(max(m.draft.Recognizer.TopN+delta, 1), maxTopN)
	case fieldHistory:
		m.draft.History = !m.draft.History
	case fieldSound:
		g.Sound = !g.Sound
	}
	m.dirty = true
	m.err = nil
}

func (m SettingsModel) save() tea.Cmd {
	s := m.draft
	path := m.path
	return func() tea.Msg {
		s.Normalize()
		return SettingsSavedMsg{Settings: &s, Err: config.Save(path, &s)}
	}
}

// View renders the settings editor.
func (m SettingsModel) View() string {
	var b strings.Builder

	b.WriteString(settingsTitleStyle.Render("せってい"))
	b.WriteString("\n")
	b.WriteString(settingsPathStyle.Render(m.path))
	b.WriteString("\n")

	rows := []struct {
		label string
		value string
	}{
		{"スキップ", onOff(m.draft.Game.SkipEnabled)},
		{"もんだいのかず", fmt.Sprintf("‹ %d ›", m.draft.Game.ProblemCount)},
		{"シャッフル", onOff(m.draft.Game.Shuffle)},
		{"こうほのかず (top N)", fmt.Sprintf("‹ %d ›", m.draft.Recognizer.TopN)},
		{"きろく", onOff(m.draft.History)},
		{"おと", onOff(m.draft.Game.Sound)},
	}
	for i, r := range rows {
		value := settingsRowStyle.Render(r.value)
		if settingsField(i) == m.field {
			value = settingsActiveStyle.Render(r.value)
		}
		b.WriteString(settingsLabelStyle.Render(r.label))
		b.WriteString(value)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(settingsMutedStyle.Render("model: " + m.draft.Recognizer.ModelURL))
	b.WriteString("\n")
	if m.draft.DataDir != "" {
		b.WriteString(settingsMutedStyle.Render("data:  " + m.draft.DataDir))
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString(settingsErrorStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	} else if m.dirty {
		b.WriteString(settingsMutedStyle.Render("(unsaved)"))
		b.WriteString("\n")
	}

	b.WriteString(settingsHelpStyle.Render("j/k: move • h/l/space: change • enter: save • esc: back"))
	return b.String()
}

func onOff(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}
