package views

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/f3rmion/kakitori/internal/clipboard"
	"github.com/f3rmion/kakitori/internal/kakitori"
	"github.com/f3rmion/kakitori/internal/problem"
)

var (
	resultMessageStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#EA580C")).
				MarginBottom(1)

	resultScoreStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#F9FAFB"))

	resultGoodStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444"))

	resultBadStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6"))

	resultMutedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#6B7280"))

	resultBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FDBA74")).
			Padding(1, 3)
)

type copiedMsg struct{ err error }

type clearCopiedMsg struct{}

// copyText is replaced in tests.
var copyText = clipboard.Write

// ResultModel is the end-of-game screen.
type ResultModel struct {
	over   GameOverMsg
	copied bool
	err    error

	width  int
	height int
}

// NewResultModel shows the outcome of a finished game.
func NewResultModel(over GameOverMsg) ResultModel {
	return ResultModel{over: over}
}

// SetSize updates the view dimensions.
func (m *ResultModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Update handles messages.
func (m ResultModel) Update(msg tea.Msg) (ResultModel, tea.Cmd) {
	switch msg := msg.(type) {
	case copiedMsg:
		m.copied, m.err = msg.err == nil, msg.err
		return m, tea.Tick(2*time.Second, func(time.Time) tea.Msg { return clearCopiedMsg{} })
	case clearCopiedMsg:
		m.copied, m.err = false, nil
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "r", "enter":
			return m, func() tea.Msg { return RetryMsg{} }
		case "esc", "h":
			return m, func() tea.Msg { return HomeMsg{} }
		case "y":
			text := m.Summary()
			return m, func() tea.Msg { return copiedMsg{err: copyText(context.Background(), text)} }
		}
	}
	return m, nil
}

// Summary is the plain-text result that "y" copies.
func (m ResultModel) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "かきとり %s %d/%d %s\n", problem.Label(m.over.Grade), m.over.Score, m.over.Total, m.over.Message)
	for _, r := range m.over.Results {
		mark := "⭕"
		if !r.Correct {
			mark = "❌"
		}
		b.WriteString(mark)
	}
	return b.String()
}

// View renders the score and the per-problem outcomes.
func (m ResultModel) View() string {
	var b strings.Builder

	b.WriteString(resultMessageStyle.Render(m.over.Message))
	b.WriteString("\n")
	b.WriteString(resultScoreStyle.Render(fmt.Sprintf("%s  %d / %d もん せいかい",
		problem.Label(m.over.Grade), m.over.Score, m.over.Total)))
	b.WriteString("\n\n")

	for i, r := range m.over.Results {
		b.WriteString(resultLine(i, r))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.err != nil:
		b.WriteString(playErrorStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	case m.copied:
		b.WriteString(resultGoodStyle.Render("コピーしました"))
		b.WriteString("\n")
	}
	b.WriteString(resultMutedStyle.Render("r: もういちど • y: コピー • esc: もどる"))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, resultBoxStyle.Render(b.String()))
}

func resultLine(i int, r kakitori.RoundResult) string {
	mark := resultGoodStyle.Render("⭕")
	if !r.Correct {
		mark = resultBadStyle.Render("❌")
	}

	line := fmt.Sprintf("%2d. %s  %s%s%s", i+1, r.Problem.Kanji, r.Problem.Pre, r.Problem.Reading, r.Problem.Post)
	switch {
	case r.Skipped:
		line += resultMutedStyle.Render("  (スキップ)")
	case r.Attempts > 1:
		line += resultMutedStyle.Render(fmt.Sprintf("  (%d かいめ)", r.Attempts))
	}
	return mark + " " + line
}
