package views

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/f3rmion/kakitori/internal/history"
	"github.com/f3rmion/kakitori/internal/problem"
)

// recentLimit is how many rounds the history screen lists.
const recentLimit = 15

var (
	histTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#EA580C")).
			MarginBottom(1)

	histHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FDBA74"))

	histTabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")).
			Padding(0, 2)

	histTabActiveStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#1F2937")).
				Background(lipgloss.Color("#FDBA74")).
				Padding(0, 2)

	histMutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
)

// HistoryReader is the read side of the round history.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
	Stats(ctx context.Context) ([]history.KanjiStats, error)
}

// HistoryLoadedMsg carries a fresh read of the history store.
type HistoryLoadedMsg struct {
	Recent []history.Entry
	Stats  []history.KanjiStats
	Err    error
}

// LoadHistory reads r in the background.
func LoadHistory(r HistoryReader) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		recent, err := r.Recent(ctx, recentLimit)
		if err != nil {
			return HistoryLoadedMsg{Err: err}
		}
		stats, err := r.Stats(ctx)
		return HistoryLoadedMsg{Recent: recent, Stats: stats, Err: err}
	}
}

// HistoryModel shows recent rounds and per-kanji accuracy.
type HistoryModel struct {
	reader HistoryReader
	recent []history.Entry
	stats  []history.KanjiStats
	err    error

	tab     int // 0 = recent, 1 = weakest kanji
	scrollY int

	width  int
	height int
}

// NewHistoryModel creates a history screen. reader may be nil when
// recording is off.
func NewHistoryModel(reader HistoryReader) HistoryModel {
	return HistoryModel{reader: reader}
}

// Refresh reloads the history.
func (m HistoryModel) Refresh() tea.Cmd {
	if m.reader == nil {
		return nil
	}
	return LoadHistory(m.reader)
}

// SetSize updates the view dimensions.
func (m *HistoryModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Update handles messages.
func (m HistoryModel) Update(msg tea.Msg) (HistoryModel, tea.Cmd) {
	switch msg := msg.(type) {
	case HistoryLoadedMsg:
		m.recent, m.stats, m.err = msg.Recent, msg.Stats, msg.Err
		m.scrollY = 0
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "right", "l", "shift+tab", "left", "h":
			m.tab = 1 - m.tab
			m.scrollY = 0
		case "j", "down":
			m.scrollY++
		case "k", "up":
			if m.scrollY > 0 {
				m.scrollY--
			}
		case "g":
			m.scrollY = 0
		case "R":
			return m, m.Refresh()
		case "esc":
			return m, func() tea.Msg { return HomeMsg{} }
		}
	}
	return m, nil
}

// View renders the active tab.
func (m HistoryModel) View() string {
	var b strings.Builder

	b.WriteString(histTitleStyle.Render("きろく"))
	b.WriteString("\n")

	tabs := []string{"さいきん", "にがてなかんじ"}
	for i, t := range tabs {
		if i == m.tab {
			b.WriteString(histTabActiveStyle.Render(t))
		} else {
			b.WriteString(histTabStyle.Render(t))
		}
	}
	b.WriteString("\n\n")

	switch {
	case m.reader == nil:
		b.WriteString(histMutedStyle.Render("(history is off)"))
	case m.err != nil:
		b.WriteString(playErrorStyle.Render("Error: " + m.err.Error()))
	case m.tab == 0:
		b.WriteString(m.renderRecent())
	default:
		b.WriteString(m.renderStats())
	}

	b.WriteString("\n")
	b.WriteString(histMutedStyle.Render("tab: switch • j/k: scroll • R: reload • esc: back"))
	return b.String()
}

func (m HistoryModel) renderRecent() string {
	if len(m.recent) == 0 {
		return histMutedStyle.Render("(no rounds yet)") + "\n"
	}

	lines := []string{histHeaderStyle.Render(fmt.Sprintf("%-16s %-8s %-4s %s", "date", "grade", "", "sentence"))}
	for _, e := range m.recent {
		mark := resultGoodStyle.Render("⭕")
		if !e.Correct {
			mark = resultBadStyle.Render("❌")
		}
		line := fmt.Sprintf("%-16s %-8s %s %s  %s",
			e.PlayedAt.Format("2006-01-02 15:04"), problem.Label(e.Grade), mark, e.Kanji, e.Sentence)
		if len(e.Candidates) > 0 && !e.Correct {
			line += histMutedStyle.Render("  → " + strings.Join(e.Candidates, " "))
		}
		lines = append(lines, line)
	}
	return m.window(lines)
}

func (m HistoryModel) renderStats() string {
	if len(m.stats) == 0 {
		return histMutedStyle.Render("(no rounds yet)") + "\n"
	}

	lines := []string{histHeaderStyle.Render(fmt.Sprintf("%-4s %6s %6s %6s %8s", "", "rounds", "ok", "skip", "accuracy"))}
	for _, s := range m.stats {
		lines = append(lines, fmt.Sprintf("%-4s %6d %6d %6d %7.0f%%",
			s.Kanji, s.Rounds, s.Correct, s.Skipped, s.Accuracy()*100))
	}
	return m.window(lines)
}

// window keeps the header row and scrolls the rest.
func (m HistoryModel) window(lines []string) string {
	h := max(m.height-8, 3)
	body := lines[1:]
	start := min(m.scrollY, max(len(body)-1, 0))
	end := min(start+h, len(body))
	return lines[0] + "\n" + strings.Join(body[start:end], "\n") + "\n"
}
