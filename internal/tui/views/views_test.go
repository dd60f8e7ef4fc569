package views

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/f3rmion/kakitori/internal/canvas"
	"github.com/f3rmion/kakitori/internal/config"
	"github.com/f3rmion/kakitori/internal/game"
	"github.com/f3rmion/kakitori/internal/history"
	"github.com/f3rmion/kakitori/internal/kakitori"
	"github.com/f3rmion/kakitori/internal/problem"
	"github.com/f3rmion/kakitori/internal/recognizer"
	"github.com/f3rmion/kakitori/internal/verdict"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

type stubClassifier struct {
	ready   bool
	results []recognizer.Result
	err     error
	inits   int
}

func (c *stubClassifier) Init(context.Context) error {
	c.inits++
	return nil
}

func (c *stubClassifier) Ready() bool { return c.ready }

func (c *stubClassifier) Predict(context.Context, *tensor.Dense, int) ([]recognizer.Result, error) {
	return c.results, c.err
}

type memRecorder struct {
	mu      sync.Mutex
	entries []history.Entry
}

func (r *memRecorder) Record(_ context.Context, e history.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// drain runs cmd and any batched commands, returning the messages they
// produce. Commands that would sleep are not run.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, drain(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func find[T any](msgs []tea.Msg) (T, bool) {
	for _, m := range msgs {
		if v, ok := m.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func twoProblems(t *testing.T) []kakitori.Problem {
	t.Helper()
	a, err := problem.ParseProblem("[やま]にのぼる", "山")
	require.NoError(t, err)
	b, err := problem.ParseProblem("[かわ]であそぶ", "川")
	require.NoError(t, err)
	return []kakitori.Problem{a, b}
}

func newPlay(t *testing.T, cl *stubClassifier, rec Recorder) (PlayModel, *game.Game) {
	t.Helper()
	g, err := game.New(twoProblems(t), game.Options{Count: 2, SkipEnabled: true})
	require.NoError(t, err)

	judge := game.NewJudge(canvas.New(0, 0), cl, verdict.DefaultPolicy)
	m := NewPlayModel(judge, cl, rec, g, "grade1")
	m.SetSize(80, 40)
	return m, g
}

func draw(m PlayModel) PlayModel {
	for _, ev := range []tea.MouseMsg{
		{X: padLeft + 10, Y: padTop + 5, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft},
		{X: padLeft + 30, Y: padTop + 15, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft},
		{X: padLeft + 30, Y: padTop + 15, Action: tea.MouseActionRelease},
	} {
		m, _ = m.Update(ev)
	}
	return m
}

func TestPadMapsCellsToCanvas(t *testing.T) {
	c := canvas.New(280, 20)
	p := NewPad(c, PadCols, PadRows)
	p.SetOrigin(3, 5)

	assert.True(t, p.Contains(3, 5))
	assert.True(t, p.Contains(3+PadCols-1, 5+PadRows-1))
	assert.False(t, p.Contains(3+PadCols, 5))
	assert.False(t, p.Contains(2, 5))

	// Presses outside the pad or with other buttons are ignored.
	assert.False(t, p.HandleMouse(tea.MouseMsg{X: 0, Y: 0, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}))
	assert.False(t, p.HandleMouse(tea.MouseMsg{X: 4, Y: 6, Action: tea.MouseActionPress, Button: tea.MouseButtonRight}))
	assert.Empty(t, c.Strokes())

	assert.True(t, p.HandleMouse(tea.MouseMsg{X: 3, Y: 5, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}))
	require.Len(t, c.Strokes(), 1)
	first := c.Strokes()[0].Points[0]
	assert.InDelta(t, 0.5*280/PadCols, first.X, 1e-9)
	assert.InDelta(t, 0.5*280/PadRows, first.Y, 1e-9)

	// Dragging off the pad ends the stroke.
	assert.True(t, p.HandleMouse(tea.MouseMsg{X: 100, Y: 5, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft}))
	assert.False(t, c.Drawing())

	p.Clear()
	assert.Empty(t, c.Strokes())
	assert.NotEmpty(t, p.View(false))
}

func TestPlayCorrectThenSkip(t *testing.T) {
	cl := &stubClassifier{ready: true, results: []recognizer.Result{{Char: "山", Score: 90}, {Char: "出", Score: 5}}}
	rec := &memRecorder{}
	m, g := newPlay(t, cl, rec)
	assert.Nil(t, m.Init())

	m = draw(m)
	require.Len(t, m.pad.canvas.Strokes(), 1)

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, m.judging)
	judged, ok := find[JudgedMsg](drain(cmd))
	require.True(t, ok)
	assert.Equal(t, "山", judged.Target)

	m, cmd = m.Update(judged)
	require.NotNil(t, cmd, "a correct answer schedules the next problem")
	assert.Equal(t, feedbackCorrect, m.feedback)
	assert.Equal(t, 1, g.Score())
	assert.Contains(t, m.View(), "もんだい 1 / 2")
	require.Len(t, rec.entries, 1)
	assert.True(t, rec.entries[0].Correct)
	assert.Equal(t, "grade1", rec.entries[0].Grade)

	// Input is frozen during the pause.
	m, _ = m.Update(keyRunes("s"))
	assert.Equal(t, 1, g.Index())

	m, _ = m.Update(nextProblemMsg{})
	assert.Equal(t, feedbackNone, m.feedback)
	assert.Empty(t, m.pad.canvas.Strokes())
	assert.Contains(t, m.View(), "もんだい 2 / 2")

	m, cmd = m.Update(keyRunes("s"))
	over, ok := find[GameOverMsg](drain(cmd))
	require.True(t, ok)
	assert.Equal(t, 1, over.Score)
	assert.Equal(t, 2, over.Total)
	assert.Equal(t, game.MessageTryHard, over.Message)
	require.Len(t, over.Results, 2)
	assert.True(t, over.Results[1].Skipped)
	assert.Len(t, rec.entries, 2)
}

func TestPlayWrongAnswerKeepsProblem(t *testing.T) {
	cl := &stubClassifier{ready: true, results: []recognizer.Result{{Char: "出", Score: 80}, {Char: "石", Score: 10}}}
	rec := &memRecorder{}
	m, g := newPlay(t, cl, rec)

	m = draw(m)
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeySpace})
	judged, ok := find[JudgedMsg](drain(cmd))
	require.True(t, ok)

	m, cmd = m.Update(judged)
	assert.Nil(t, cmd)
	assert.Equal(t, feedbackWrong, m.feedback)
	assert.Equal(t, 0, g.Index())
	assert.Equal(t, 1, g.Attempts())
	assert.Empty(t, rec.entries)
	assert.Contains(t, m.View(), "出 石")

	m, _ = m.Update(keyRunes("c"))
	assert.Empty(t, m.pad.canvas.Strokes())
	assert.Equal(t, feedbackNone, m.feedback)
}

func TestPlayDrawsWhileJudging(t *testing.T) {
	cl := &stubClassifier{ready: true, results: []recognizer.Result{{Char: "出", Score: 80}}}
	m, _ := newPlay(t, cl, nil)
	c := m.pad.canvas

	m, _ = m.Update(tea.MouseMsg{X: padLeft + 10, Y: padTop + 5, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m, cmd := m.Update(keyRunes(" "))
	require.True(t, m.judging)
	require.NotNil(t, cmd)

	// The judgment has not come back yet; the pen keeps moving.
	m, _ = m.Update(tea.MouseMsg{X: padLeft + 20, Y: padTop + 10, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
	m, _ = m.Update(tea.MouseMsg{X: padLeft + 20, Y: padTop + 10, Action: tea.MouseActionRelease})

	strokes := c.Strokes()
	require.Len(t, strokes, 1)
	assert.Len(t, strokes[0].Points, 2)
	assert.False(t, c.Drawing())

	// A second judge request waits for the first.
	m, cmd = m.Update(keyRunes(" "))
	assert.Nil(t, cmd)

	judged, ok := find[JudgedMsg](drain(func() tea.Msg {
		v, err := m.judge.Judge(context.Background(), "山")
		return JudgedMsg{Target: "山", Verdict: v, Err: err}
	}))
	require.True(t, ok)
	m, _ = m.Update(judged)
	assert.False(t, m.judging)
	assert.Equal(t, feedbackWrong, m.feedback)
}

func TestPlayRingsBellOnVerdict(t *testing.T) {
	cl := &stubClassifier{ready: true, results: []recognizer.Result{{Char: "出", Score: 80}}}
	m, _ := newPlay(t, cl, nil)
	var bell strings.Builder
	m.SetBell(&bell)

	m = draw(m)
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	judged, ok := find[JudgedMsg](drain(cmd))
	require.True(t, ok)
	m, cmd = m.Update(judged)
	drain(cmd)
	assert.Equal(t, "\a\a", bell.String(), "wrong rings twice")

	bell.Reset()
	cl.results = []recognizer.Result{{Char: "山", Score: 90}}
	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	judged, ok = find[JudgedMsg](drain(cmd))
	require.True(t, ok)
	_, cmd = m.Update(judged)
	msgs := drain(cmd)
	assert.Equal(t, "\a", bell.String(), "correct rings once")
	_, ok = find[nextProblemMsg](msgs)
	assert.True(t, ok)
}

func TestPlaySilentWithoutBell(t *testing.T) {
	cl := &stubClassifier{ready: true, results: []recognizer.Result{{Char: "出", Score: 80}}}
	m, _ := newPlay(t, cl, nil)

	m = draw(m)
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	judged, ok := find[JudgedMsg](drain(cmd))
	require.True(t, ok)
	_, cmd = m.Update(judged)
	assert.Nil(t, cmd)
}

func TestPlayJudgeFailureIsNotWrong(t *testing.T) {
	cl := &stubClassifier{ready: true, err: errors.New("inference exploded")}
	m, g := newPlay(t, cl, nil)

	m = draw(m)
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	judged, ok := find[JudgedMsg](drain(cmd))
	require.True(t, ok)
	require.Error(t, judged.Err)

	m, _ = m.Update(judged)
	assert.Equal(t, feedbackError, m.feedback)
	assert.Equal(t, 0, g.Attempts())
	assert.Contains(t, m.View(), "inference exploded")
}

func TestPlayWhileLoading(t *testing.T) {
	cl := &stubClassifier{}
	m, _ := newPlay(t, cl, nil)
	assert.True(t, m.loading)
	assert.NotNil(t, m.Init())

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, feedbackError, m.feedback)

	m, _ = m.Update(ClassifierLoadedMsg{Err: errors.New("offline")})
	assert.False(t, m.loading)
	assert.Contains(t, m.View(), "r でもういちど")

	m, cmd = m.Update(keyRunes("r"))
	assert.True(t, m.loading)
	loaded, ok := find[ClassifierLoadedMsg](drain(cmd))
	require.True(t, ok)
	assert.NoError(t, loaded.Err)
	assert.Equal(t, 1, cl.inits)
}

func TestPlaySkipDisabled(t *testing.T) {
	g, err := game.New(twoProblems(t), game.Options{Count: 2})
	require.NoError(t, err)
	cl := &stubClassifier{ready: true}
	m := NewPlayModel(game.NewJudge(canvas.New(0, 0), cl, verdict.DefaultPolicy), cl, nil, g, "grade1")

	m, cmd := m.Update(keyRunes("s"))
	assert.Nil(t, cmd)
	assert.Equal(t, 0, g.Index())
}

func TestSettingsEditAndSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kakitori", config.FileName)
	m := NewSettingsModel(config.Default(), path)

	m, _ = m.Update(keyRunes(" ")) // skip off
	m, _ = m.Update(keyRunes("j"))
	m, _ = m.Update(keyRunes("l"))
	m, _ = m.Update(keyRunes("l"))
	m, _ = m.Update(keyRunes("j"))
	m, _ = m.Update(keyRunes("j"))
	m, _ = m.Update(keyRunes("h")) // top N 5 -> 4
	m, _ = m.Update(keyRunes("j"))
	m, _ = m.Update(keyRunes("j"))
	m, _ = m.Update(keyRunes(" ")) // sound off
	assert.Contains(t, m.View(), "おと")
	assert.Contains(t, m.View(), "(unsaved)")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	saved, ok := find[SettingsSavedMsg](drain(cmd))
	require.True(t, ok)
	require.NoError(t, saved.Err)
	assert.False(t, saved.Settings.Game.SkipEnabled)
	assert.Equal(t, 7, saved.Settings.Game.ProblemCount)
	assert.Equal(t, 4, saved.Settings.Recognizer.TopN)
	assert.False(t, saved.Settings.Game.Sound)

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, saved.Settings.Game, loaded.Game)
}

func TestSettingsCountStaysInRange(t *testing.T) {
	m := NewSettingsModel(config.Default(), filepath.Join(t.TempDir(), config.FileName))
	m, _ = m.Update(keyRunes("j"))
	for range 20 {
		m, _ = m.Update(keyRunes("l"))
	}
	assert.Equal(t, game.MaxProblems, m.draft.Game.ProblemCount)
	for range 20 {
		m, _ = m.Update(keyRunes("h"))
	}
	assert.Equal(t, game.MinProblems, m.draft.Game.ProblemCount)
}

func TestTitleStartsSelectedGrade(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "grade1.csv"), []byte("[やま],山\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "grade2.csv"), []byte("[かぜ],風\n"), 0644))

	m := NewTitleModel(dir)
	assert.Contains(t, m.View(), "2ねんせい")

	m, _ = m.Update(keyRunes("j"))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	start, ok := find[StartGameMsg](drain(cmd))
	require.True(t, ok)
	assert.Equal(t, "grade2", start.Grade)

	_, cmd = m.Update(keyRunes("s"))
	_, ok = find[OpenSettingsMsg](drain(cmd))
	assert.True(t, ok)
}

func TestFilePickerSelectsCSV(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sets"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sets", "mine.csv"), []byte("[やま],山\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0644))

	m := NewFilePickerModel(dir)
	// "..", then the sets directory; the text file is filtered out.
	require.Len(t, m.entries, 2)

	m, _ = m.Update(keyRunes("j"))
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, filepath.Join(dir, "sets"), m.Dir())

	m, _ = m.Update(keyRunes("j"))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	sel, ok := find[ProblemFileSelectedMsg](drain(cmd))
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "sets", "mine.csv"), sel.Path)
}

func TestResultKeys(t *testing.T) {
	probs := twoProblems(t)
	m := NewResultModel(GameOverMsg{
		Grade: "grade1", Score: 2, Total: 2, Message: game.MessagePerfect,
		Results: []kakitori.RoundResult{
			{Problem: probs[0], Correct: true, Attempts: 1},
			{Problem: probs[1], Correct: true, Attempts: 3},
		},
	})
	m.SetSize(80, 30)

	view := m.View()
	assert.Contains(t, view, game.MessagePerfect)
	assert.Contains(t, view, "2 / 2")
	assert.Contains(t, view, "3 かいめ")

	_, cmd := m.Update(keyRunes("r"))
	_, ok := find[RetryMsg](drain(cmd))
	assert.True(t, ok)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	_, ok = find[HomeMsg](drain(cmd))
	assert.True(t, ok)
}

func TestResultCopiesSummary(t *testing.T) {
	var copied string
	old := copyText
	copyText = func(_ context.Context, s string) error {
		copied = s
		return nil
	}
	t.Cleanup(func() { copyText = old })

	probs := twoProblems(t)
	m := NewResultModel(GameOverMsg{
		Grade: "grade1", Score: 1, Total: 2, Message: game.MessageTryHard,
		Results: []kakitori.RoundResult{
			{Problem: probs[0], Correct: true, Attempts: 1},
			{Problem: probs[1], Skipped: true},
		},
	})

	m, cmd := m.Update(keyRunes("y"))
	msgs := drain(cmd)
	require.Len(t, msgs, 1)
	assert.Equal(t, "かきとり 1ねんせい 1/2 "+game.MessageTryHard+"\n⭕❌", copied)

	m, _ = m.Update(msgs[0])
	assert.Contains(t, m.View(), "コピーしました")
	m, _ = m.Update(clearCopiedMsg{})
	assert.NotContains(t, m.View(), "コピーしました")
}

func TestHistoryView(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), history.FileName))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	probs := twoProblems(t)
	ctx := context.Background()
	require.NoError(t, store.Record(ctx, history.Entry{Grade: "grade1", Kanji: "山", Sentence: probs[0].Sentence, Correct: true, Attempts: 1}))
	require.NoError(t, store.Record(ctx, history.Entry{Grade: "grade1", Kanji: "川", Sentence: probs[1].Sentence, Skipped: true, Attempts: 2, Candidates: []string{"州"}}))

	m := NewHistoryModel(store)
	m.SetSize(100, 30)
	loaded, ok := find[HistoryLoadedMsg](drain(m.Refresh()))
	require.True(t, ok)
	require.NoError(t, loaded.Err)

	m, _ = m.Update(loaded)
	assert.Contains(t, m.View(), "州")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Contains(t, m.View(), "accuracy")

	assert.Nil(t, NewHistoryModel(nil).Refresh())
	assert.Contains(t, NewHistoryModel(nil).View(), "history is off")
}
