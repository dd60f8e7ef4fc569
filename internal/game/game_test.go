package game

import (
	"testing"

	"github.com/f3rmion/kakitori/internal/kakitori"
	"github.com/f3rmion/kakitori/internal/recognizer"
	"github.com/f3rmion/kakitori/internal/verdict"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func problems(kanji ...string) []kakitori.Problem {
	out := make([]kakitori.Problem, len(kanji))
	for i, k := range kanji {
		out[i] = kakitori.Problem{ID: k, Sentence: "[よみ]", Reading: "よみ", Kanji: k}
	}
	return out
}

func correct(target string) verdict.Verdict {
	return verdict.Verdict{Target: target, Correct: true, Candidates: []recognizer.Result{{Char: target, Score: 90}}}
}

func wrong(target string) verdict.Verdict {
	return verdict.Verdict{Target: target, Candidates: []recognizer.Result{{Char: "x", Score: 90}}}
}

func TestClampCount(t *testing.T) {
	assert.Equal(t, DefaultProblems, ClampCount(0))
	assert.Equal(t, MinProblems, ClampCount(1))
	assert.Equal(t, MinProblems, ClampCount(-4))
	assert.Equal(t, 7, ClampCount(7))
	assert.Equal(t, MaxProblems, ClampCount(50))
}

func TestNewTakesFirstProblems(t *testing.T) {
	g, err := New(problems("一", "二", "三", "四", "五", "六", "七"), Options{Count: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, g.Total())

	p, ok := g.Current()
	require.True(t, ok)
	assert.Equal(t, "一", p.Kanji)

	g, err = New(problems("一", "二"), Options{Count: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, g.Total(), "bounded by the pool")

	_, err = New(nil, Options{})
	assert.ErrorIs(t, err, ErrNoProblems)
}

func TestShuffleIsSeeded(t *testing.T) {
	pool := problems("一", "二", "三", "四", "五", "六", "七", "八", "九", "十")
	kanji := func(g *Game) []string {
		var out []string
		for !g.Done() {
			p, _ := g.Current()
			out = append(out, p.Kanji)
			_, err := g.Answer(correct(p.Kanji))
			require.NoError(t, err)
		}
		return out
	}

	a, err := New(pool, Options{Count: 5, Shuffle: true, Seed: 42})
	require.NoError(t, err)
	b, err := New(pool, Options{Count: 5, Shuffle: true, Seed: 42})
	require.NoError(t, err)

	first := kanji(a)
	assert.Equal(t, first, kanji(b))
	assert.Len(t, first, 5)
	seen := map[string]bool{}
	for _, k := range first {
		assert.False(t, seen[k], "duplicate %s", k)
		seen[k] = true
	}
}

func TestAnswerFlow(t *testing.T) {
	g, err := New(problems("山", "川"), Options{Count: 2})
	require.NoError(t, err)

	r, err := g.Answer(wrong("山"))
	require.NoError(t, err)
	assert.False(t, r.Correct)
	assert.Equal(t, 1, g.Attempts())
	assert.Equal(t, 0, g.Index(), "incorrect answers stay on the problem")

	r, err = g.Answer(correct("山"))
	require.NoError(t, err)
	assert.True(t, r.Correct)
	assert.Equal(t, 2, r.Attempts)
	assert.Equal(t, "山", r.Candidates[0].Char)
	assert.Equal(t, 1, g.Index())
	assert.Equal(t, 0, g.Attempts())

	_, err = g.Answer(correct("山"))
	assert.Error(t, err, "stale verdict for the previous problem")

	_, err = g.Answer(correct("川"))
	require.NoError(t, err)
	assert.True(t, g.Done())
	assert.Equal(t, 2, g.Score())

	_, ok := g.Current()
	assert.False(t, ok)
	_, err = g.Answer(correct("川"))
	assert.ErrorIs(t, err, ErrFinished)

	results := g.Results()
	require.Len(t, results, 2)
	assert.Equal(t, "山", results[0].Problem.Kanji)
	assert.Equal(t, "川", results[1].Problem.Kanji)
}

func TestSkip(t *testing.T) {
	g, err := New(problems("山", "川"), Options{Count: 2})
	require.NoError(t, err)
	_, err = g.Skip()
	assert.ErrorIs(t, err, ErrSkipDisabled)

	g, err = New(problems("山", "川"), Options{Count: 2, SkipEnabled: true})
	require.NoError(t, err)

	_, err = g.Answer(wrong("山"))
	require.NoError(t, err)
	r, err := g.Skip()
	require.NoError(t, err)
	assert.True(t, r.Skipped)
	assert.False(t, r.Correct)
	assert.Equal(t, 1, r.Attempts)
	assert.Equal(t, []kakitori.Candidate{{Char: "x", Score: 90}}, r.Candidates, "keeps the last wrong guesses")

	p, _ := g.Current()
	assert.Equal(t, "川", p.Kanji)
	r, err = g.Skip()
	require.NoError(t, err)
	assert.Empty(t, r.Candidates, "nothing carries over from the previous problem")
	assert.True(t, g.Done())
	assert.Equal(t, 0, g.Score())

	_, err = g.Skip()
	assert.ErrorIs(t, err, ErrFinished)
}

func TestRetry(t *testing.T) {
	g, err := New(problems("山", "川"), Options{Count: 2, SkipEnabled: true})
	require.NoError(t, err)
	_, _ = g.Answer(correct("山"))
	_, _ = g.Skip()
	require.True(t, g.Done())

	g.Retry()
	assert.False(t, g.Done())
	assert.Equal(t, 0, g.Score())
	assert.Empty(t, g.Results())
	p, _ := g.Current()
	assert.Equal(t, "山", p.Kanji)
}

func TestMessage(t *testing.T) {
	tests := []struct {
		score, total int
		want         string
	}{
		{5, 5, MessagePerfect},
		{4, 5, MessageGreat},
		{8, 10, MessageGreat},
		{7, 10, MessageTryHard},
		{0, 5, MessageTryHard},
		{0, 0, MessageTryHard},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Message(tt.score, tt.total), "%d/%d", tt.score, tt.total)
	}

	g, err := New(problems("山", "川"), Options{Count: 2})
	require.NoError(t, err)
	_, _ = g.Answer(correct("山"))
	_, _ = g.Answer(correct("川"))
	assert.Equal(t, MessagePerfect, g.Message())
}
