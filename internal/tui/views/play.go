package views

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/f3rmion/kakitori/internal/game"
	"github.com/f3rmion/kakitori/internal/history"
	"github.com/f3rmion/kakitori/internal/kakitori"
	"github.com/f3rmion/kakitori/internal/logging"
	"github.com/f3rmion/kakitori/internal/problem"
	"github.com/f3rmion/kakitori/internal/recognizer"
	"github.com/f3rmion/kakitori/internal/tui/bigchar"
	"github.com/mattn/go-runewidth"
)

// Rows above the pad: header, blank, sentence, blank, then the pad border.
const (
	padTop  = 5
	padLeft = 3 // Margin of 2 plus the border
)

// feedbackDelay is how long a correct answer stays on screen.
const feedbackDelay = time.Second

var (
	playHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#EA580C"))

	playGradeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CA3AF"))

	playSentenceStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#F9FAFB"))

	playReadingStyle = lipgloss.NewStyle().
				Bold(true).
				Underline(true).
				Foreground(lipgloss.Color("#F97316"))

	playCorrectStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#EF4444"))

	playWrongStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6"))

	playErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Italic(true)

	playMutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	playAnswerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#22C55E")).
			MarginLeft(4)
)

type playKeys struct {
	Judge key.Binding
	Clear key.Binding
	Skip  key.Binding
	Retry key.Binding
	Back  key.Binding
}

func (k playKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Judge, k.Clear, k.Skip, k.Retry, k.Back}
}

func (k playKeys) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

func newPlayKeys() playKeys {
	return playKeys{
		Judge: key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "こたえあわせ")),
		Clear: key.NewBinding(key.WithKeys("c", "backspace"), key.WithHelp("c", "けす")),
		Skip:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "スキップ")),
		Retry: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "よみこみなおす"), key.WithDisabled()),
		Back:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "もどる")),
	}
}

type feedback int

const (
	feedbackNone feedback = iota
	feedbackCorrect
	feedbackWrong
	feedbackError
)

// PlayModel is the practice screen: the sentence with its blank, the drawing
// pad and the judge controls.
type PlayModel struct {
	judge      *game.Judge
	classifier Classifier
	recorder   Recorder
	game       *game.Game
	grade      string
	pad        *Pad

	spinner spinner.Model
	help    help.Model
	keys    playKeys
	bell    io.Writer

	loading  bool
	loadErr  error
	judging  bool
	feedback feedback
	status   string

	// The problem just solved, shown during the feedback pause.
	answered    kakitori.Problem
	answeredIdx int

	width  int
	height int
}

// NewPlayModel creates a practice screen for g. recorder may be nil.
func NewPlayModel(judge *game.Judge, classifier Classifier, recorder Recorder, g *game.Game, grade string) PlayModel {
	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#F97316"))),
	)

	pad := NewPad(judge.Canvas(), PadCols, PadRows)
	pad.SetOrigin(padLeft, padTop)

	m := PlayModel{
		judge:      judge,
		classifier: classifier,
		recorder:   recorder,
		game:       g,
		grade:      grade,
		pad:        pad,
		spinner:    sp,
		help:       help.New(),
		keys:       newPlayKeys(),
		loading:    !classifier.Ready(),
	}
	m.keys.Skip.SetEnabled(g.SkipEnabled())
	m.pad.Clear()
	return m
}

// Init starts the spinner while the classifier loads.
func (m PlayModel) Init() tea.Cmd {
	if m.loading {
		return m.spinner.Tick
	}
	return nil
}

// SetSize updates the view dimensions.
func (m *PlayModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width
}

// Update handles messages.
func (m PlayModel) Update(msg tea.Msg) (PlayModel, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !m.loading && !m.judging {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ClassifierLoadedMsg:
		m.loading = false
		m.loadErr = msg.Err
		m.keys.Retry.SetEnabled(msg.Err != nil)
		return m, nil

	case JudgedMsg:
		return m.judged(msg)

	case nextProblemMsg:
		m.pad.Clear()
		m.feedback = feedbackNone
		m.status = ""
		if m.game.Done() {
			return m, m.gameOver()
		}
		return m, nil

	case tea.MouseMsg:
		// Drawing continues while a judgment is outstanding; only the
		// judge key waits for it.
		if m.feedback == feedbackCorrect {
			return m, nil
		}
		if m.pad.HandleMouse(msg) && m.feedback == feedbackWrong {
			m.feedback = feedbackNone
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m PlayModel) handleKey(msg tea.KeyMsg) (PlayModel, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return HomeMsg{} }

	case key.Matches(msg, m.keys.Retry):
		m.loading = true
		m.loadErr = nil
		m.keys.Retry.SetEnabled(false)
		return m, tea.Batch(m.spinner.Tick, LoadClassifier(m.classifier))

	case key.Matches(msg, m.keys.Clear):
		if m.feedback != feedbackCorrect {
			m.pad.Clear()
			m.feedback = feedbackNone
			m.status = ""
		}
		return m, nil

	case key.Matches(msg, m.keys.Judge):
		return m.requestJudge()

	case key.Matches(msg, m.keys.Skip):
		return m.skip()
	}
	return m, nil
}

func (m PlayModel) requestJudge() (PlayModel, tea.Cmd) {
	p, ok := m.game.Current()
	if !ok || m.feedback == feedbackCorrect || m.judging || m.judge.Busy() {
		return m, nil
	}
	if !m.judge.Ready() {
		m.feedback = feedbackError
		m.status = "じゅんびちゅうです。すこしまってね"
		return m, nil
	}

	m.judging = true
	judge := m.judge
	target := p.Kanji
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		v, err := judge.Judge(context.Background(), target)
		return JudgedMsg{Target: target, Verdict: v, Err: err}
	})
}

// SetBell makes verdicts audible: one terminal bell for a correct drawing,
// two for a wrong one. A nil writer keeps the screen silent.
func (m *PlayModel) SetBell(w io.Writer) { m.bell = w }

func (m PlayModel) ring(correct bool) tea.Cmd {
	if m.bell == nil {
		return nil
	}
	w, seq := m.bell, "\a\a"
	if correct {
		seq = "\a"
	}
	return func() tea.Msg {
		if _, err := io.WriteString(w, seq); err != nil {
			logging.L().Debug("ringing bell failed", "err", err)
		}
		return nil
	}
}

func (m PlayModel) judged(msg JudgedMsg) (PlayModel, tea.Cmd) {
	m.judging = false

	if msg.Err != nil {
		if errors.Is(msg.Err, game.ErrJudgeInFlight) {
			return m, nil
		}
		logging.L().Error("judging failed", "target", msg.Target, "err", msg.Err)
		m.feedback = feedbackError
		m.status = "はんていできませんでした: " + msg.Err.Error()
		if errors.Is(msg.Err, recognizer.ErrNotReady) {
			m.status = "じゅんびちゅうです。すこしまってね"
		}
		return m, nil
	}

	r, err := m.game.Answer(msg.Verdict)
	if err != nil {
		// The problem moved on (skip) while the judgment was running.
		logging.L().Debug("stale verdict dropped", "target", msg.Target, "err", err)
		return m, nil
	}

	if !r.Correct {
		m.feedback = feedbackWrong
		m.status = "ざんねん！ " + candidateList(msg.Verdict.Candidates)
		return m, m.ring(false)
	}

	m.feedback = feedbackCorrect
	m.status = "せいかい！"
	m.answered = r.Problem
	m.answeredIdx = m.game.Index() - 1
	m.record(r.Problem.Kanji, r)
	return m, tea.Batch(
		m.ring(true),
		tea.Tick(feedbackDelay, func(time.Time) tea.Msg { return nextProblemMsg{} }),
	)
}

func (m PlayModel) skip() (PlayModel, tea.Cmd) {
	if m.feedback == feedbackCorrect {
		return m, nil
	}
	r, err := m.game.Skip()
	if errors.Is(err, game.ErrSkipDisabled) || errors.Is(err, game.ErrFinished) {
		return m, nil
	}

	m.record(r.Problem.Kanji, r)
	m.pad.Clear()
	m.feedback = feedbackNone
	m.status = ""
	if m.game.Done() {
		return m, m.gameOver()
	}
	return m, nil
}

func (m PlayModel) record(kanji string, r kakitori.RoundResult) {
	if m.recorder == nil {
		return
	}
	if err := m.recorder.Record(context.Background(), history.FromRound(m.grade, r, time.Now())); err != nil {
		logging.L().Warn("recording round failed", "kanji", kanji, "err", err)
	}
}

func (m PlayModel) gameOver() tea.Cmd {
	g, grade := m.game, m.grade
	return func() tea.Msg {
		return GameOverMsg{
			Grade:   grade,
			Score:   g.Score(),
			Total:   g.Total(),
			Message: g.Message(),
			Results: g.Results(),
		}
	}
}

// View renders the practice screen.
func (m PlayModel) View() string {
	var b strings.Builder

	p, ok := m.game.Current()
	idx := m.game.Index()
	if m.feedback == feedbackCorrect {
		p, ok, idx = m.answered, true, m.answeredIdx
	}
	if !ok {
		return ""
	}

	b.WriteString(playHeaderStyle.Render(fmt.Sprintf("もんだい %d / %d", idx+1, m.game.Total())))
	b.WriteString("  ")
	b.WriteString(playGradeStyle.Render(problem.Label(m.grade)))
	b.WriteString("\n\n")

	b.WriteString(m.renderSentence(p.Pre, p.Reading, p.Post))
	b.WriteString("\n\n")

	pad := lipgloss.NewStyle().MarginLeft(padLeft - 1).Render(m.pad.View(m.judging || m.loading))
	if m.feedback == feedbackCorrect {
		if art := bigchar.GetCached(p.Kanji, 16, 8); art != "" {
			pad = lipgloss.JoinHorizontal(lipgloss.Center, pad, playAnswerStyle.Render(art))
		} else {
			pad = lipgloss.JoinHorizontal(lipgloss.Center, pad, playAnswerStyle.Render(p.Kanji))
		}
	}
	b.WriteString(pad)
	b.WriteString("\n")

	b.WriteString("  ")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString("  ")
	b.WriteString(m.help.View(m.keys))

	return b.String()
}

// renderSentence centers the sentence over the pad with the reading
// underlined in place of the kanji.
func (m PlayModel) renderSentence(pre, reading, post string) string {
	width := runewidth.StringWidth(pre + reading + post)
	indent := max((PadCols+2-width)/2, 0) + padLeft - 1

	return strings.Repeat(" ", indent) +
		playSentenceStyle.Render(pre) +
		playReadingStyle.Render(reading) +
		playSentenceStyle.Render(post)
}

func (m PlayModel) renderStatus() string {
	switch {
	case m.loading:
		return m.spinner.View() + playMutedStyle.Render(" モデルをよみこみちゅう…")
	case m.loadErr != nil:
		return playErrorStyle.Render("モデルをよみこめませんでした。r でもういちど")
	case m.judging:
		return m.spinner.View() + playMutedStyle.Render(" はんていちゅう…")
	}

	switch m.feedback {
	case feedbackCorrect:
		return playCorrectStyle.Render("⭕ " + m.status)
	case feedbackWrong:
		return playWrongStyle.Render("❌ " + m.status)
	case feedbackError:
		return playErrorStyle.Render(m.status)
	}

	n := len(m.pad.canvas.Strokes())
	if n == 0 {
		return playMutedStyle.Render("マウスでかんじをかいてね")
	}
	return playMutedStyle.Render(fmt.Sprintf("%d かく", n))
}

func candidateList(cs []recognizer.Result) string {
	if len(cs) == 0 {
		return ""
	}
	chars := make([]string, len(cs))
	for i, c := range cs {
		chars[i] = c.Char
	}
	return "(" + strings.Join(chars, " ") + ")"
}
