package views

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/f3rmion/kakitori/internal/problem"
)

var (
	titleLogoStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#EA580C")).
			MarginBottom(1)

	titleTaglineStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#9CA3AF")).
				MarginBottom(1)

	titleItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F9FAFB")).
			Padding(0, 2)

	titleItemActiveStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#1F2937")).
				Background(lipgloss.Color("#FDBA74")).
				Padding(0, 2)

	titleInfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")).
			MarginTop(1)

	titleErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444"))
)

// TitleModel lists the problem sets to practice.
type TitleModel struct {
	grades   []string
	selected int
	err      error
	notice   string

	width  int
	height int
}

// NewTitleModel lists the sets in dataDir, or the built-in sets.
func NewTitleModel(dataDir string) TitleModel {
	grades, err := problem.Grades(dataDir)
	return TitleModel{grades: grades, err: err}
}

// SetSize updates the view dimensions.
func (m *TitleModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// SetNotice shows a one-line message under the list, e.g. a load failure.
func (m *TitleModel) SetNotice(s string) { m.notice = s }

// Selected returns the highlighted grade, or "" when there are none.
func (m TitleModel) Selected() string {
	if m.selected < len(m.grades) {
		return m.grades[m.selected]
	}
	return ""
}

// Update handles messages.
func (m TitleModel) Update(msg tea.Msg) (TitleModel, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch km.String() {
	case "j", "down":
		if m.selected < len(m.grades)-1 {
			m.selected++
		}
	case "k", "up":
		if m.selected > 0 {
			m.selected--
		}
	case "enter", " ":
		if grade := m.Selected(); grade != "" {
			m.notice = ""
			return m, func() tea.Msg { return StartGameMsg{Grade: grade} }
		}
	case "s":
		return m, func() tea.Msg { return OpenSettingsMsg{} }
	}
	return m, nil
}

// View renders the grade list.
func (m TitleModel) View() string {
	var b strings.Builder

	b.WriteString(titleLogoStyle.Render("かきとり"))
	b.WriteString("\n")
	b.WriteString(titleTaglineStyle.Render("よみがなのかんじを かいてみよう"))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(titleErrorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	}
	if len(m.grades) == 0 {
		b.WriteString(titleInfoStyle.Render("(no problem sets)"))
		b.WriteString("\n")
	}

	for i, g := range m.grades {
		style := titleItemStyle
		if i == m.selected {
			style = titleItemActiveStyle
		}
		b.WriteString(style.Render(problem.Label(g)))
		b.WriteString("\n")
	}

	if m.notice != "" {
		b.WriteString(titleErrorStyle.Render(m.notice))
		b.WriteString("\n")
	}
	b.WriteString(titleInfoStyle.Render("enter: はじめる • s: せってい"))
	return b.String()
}
