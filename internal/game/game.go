package game

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/f3rmion/kakitori/internal/kakitori"
	"github.com/f3rmion/kakitori/internal/verdict"
)

// Problem count bounds offered in settings.
const (
	MinProblems     = 2
	MaxProblems     = 10
	DefaultProblems = 5
)

// Result messages by score.
const (
	MessagePerfect = "たいへんよくできました！"
	MessageGreat   = "すごい！"
	MessageTryHard = "がんばったね！"
)

var (
	// ErrSkipDisabled is returned by Skip when skipping is turned off.
	ErrSkipDisabled = errors.New("skipping is disabled")
	// ErrFinished is returned when answering after the last problem.
	ErrFinished = errors.New("game is finished")
	// ErrNoProblems is returned by New for an empty problem set.
	ErrNoProblems = errors.New("no problems to play")
)

// Options configures a game.
type Options struct {
	Count       int   // Problems per game, clamped to MinProblems..MaxProblems
	SkipEnabled bool  // Whether Skip is allowed
	Shuffle     bool  // Draw problems in random order instead of file order
	Seed        int64 // Shuffle seed
}

// ClampCount bounds n to MinProblems..MaxProblems. Zero means the default.
func ClampCount(n int) int {
	switch {
	case n == 0:
		return DefaultProblems
	case n < MinProblems:
		return MinProblems
	case n > MaxProblems:
		return MaxProblems
	default:
		return n
	}
}

// Game sequences problems and keeps score. It is not safe for concurrent
// use; the UI owns it.
type Game struct {
	pool []kakitori.Problem
	opts Options
	rng  *rand.Rand

	problems []kakitori.Problem
	pos      int
	score    int
	attempts int
	last     []kakitori.Candidate // of the latest judgment on the current problem
	results  []kakitori.RoundResult
}

// New starts a game drawn from pool.
func New(pool []kakitori.Problem, opts Options) (*Game, error) {
	if len(pool) == 0 {
		return nil, ErrNoProblems
	}
	opts.Count = ClampCount(opts.Count)

	g := &Game{
		pool: pool,
		opts: opts,
		rng:  rand.New(rand.NewSource(opts.Seed)),
	}
	g.deal()
	return g, nil
}

func (g *Game) deal() {
	n := min(g.opts.Count, len(g.pool))
	g.problems = make([]kakitori.Problem, 0, n)
	if g.opts.Shuffle {
		for _, i := range g.rng.Perm(len(g.pool))[:n] {
			g.problems = append(g.problems, g.pool[i])
		}
	} else {
		g.problems = append(g.problems, g.pool[:n]...)
	}

	g.pos, g.score, g.attempts = 0, 0, 0
	g.last = nil
	g.results = nil
}

// Current returns the problem being played, or false once the game is done.
func (g *Game) Current() (kakitori.Problem, bool) {
	if g.Done() {
		return kakitori.Problem{}, false
	}
	return g.problems[g.pos], true
}

// Index is the zero-based position of the current problem.
func (g *Game) Index() int { return g.pos }

// Attempts counts judgments made on the current problem so far.
func (g *Game) Attempts() int { return g.attempts }

// SkipEnabled reports whether Skip is allowed.
func (g *Game) SkipEnabled() bool { return g.opts.SkipEnabled }

// Answer applies a verdict for the current problem. A correct verdict
// scores and advances; an incorrect one counts an attempt and stays.
func (g *Game) Answer(v verdict.Verdict) (kakitori.RoundResult, error) {
	p, ok := g.Current()
	if !ok {
		return kakitori.RoundResult{}, ErrFinished
	}
	if v.Target != p.Kanji {
		return kakitori.RoundResult{}, fmt.Errorf("verdict for %q, current problem is %q", v.Target, p.Kanji)
	}

	g.attempts++
	r := kakitori.RoundResult{
		Problem:    p,
		Correct:    v.Correct,
		Attempts:   g.attempts,
		Candidates: candidates(v),
	}
	g.last = r.Candidates
	if v.Correct {
		g.score++
		g.advance(r)
	}
	return r, nil
}

// Skip gives up on the current problem, recording it as incorrect along
// with the candidates of the last wrong judgment, if any.
func (g *Game) Skip() (kakitori.RoundResult, error) {
	if !g.opts.SkipEnabled {
		return kakitori.RoundResult{}, ErrSkipDisabled
	}
	p, ok := g.Current()
	if !ok {
		return kakitori.RoundResult{}, ErrFinished
	}

	r := kakitori.RoundResult{Problem: p, Skipped: true, Attempts: g.attempts, Candidates: g.last}
	g.advance(r)
	return r, nil
}

func (g *Game) advance(r kakitori.RoundResult) {
	g.results = append(g.results, r)
	g.pos++
	g.attempts = 0
	g.last = nil
}

// Done reports whether every problem has been answered or skipped.
func (g *Game) Done() bool { return g.pos >= len(g.problems) }

// Score is the number of problems answered correctly.
func (g *Game) Score() int { return g.score }

// Total is the number of problems in this game.
func (g *Game) Total() int { return len(g.problems) }

// Results returns the finished rounds in order.
func (g *Game) Results() []kakitori.RoundResult {
	return append([]kakitori.RoundResult(nil), g.results...)
}

// Retry starts over with a fresh deal and zero score.
func (g *Game) Retry() { g.deal() }

// Message is the encouragement shown on the result screen.
func (g *Game) Message() string { return Message(g.score, len(g.problems)) }

// Message picks the result message for score out of total.
func Message(score, total int) string {
	switch {
	case total > 0 && score >= total:
		return MessagePerfect
	case total > 0 && score*100 >= total*80:
		return MessageGreat
	default:
		return MessageTryHard
	}
}

func candidates(v verdict.Verdict) []kakitori.Candidate {
	out := make([]kakitori.Candidate, len(v.Candidates))
	for i, c := range v.Candidates {
		out[i] = kakitori.Candidate{Char: c.Char, Score: c.Score}
	}
	return out
}
