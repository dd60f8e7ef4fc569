// Package verdict decides whether a drawing counts as the target kanji.
package verdict

import "github.com/f3rmion/kakitori/internal/recognizer"

// Verdict is the outcome of judging one drawing.
type Verdict struct {
	Target     string              `json:"target"`
	Correct    bool                `json:"correct"`
	Candidates []recognizer.Result `json:"candidates"` // Ranked, at most Policy.TopN
}

// Policy accepts a drawing when the target appears anywhere among the top
// TopN candidates. There is no confidence threshold.
type Policy struct {
	TopN int
}

// DefaultPolicy matches the classifier's default candidate count.
var DefaultPolicy = Policy{TopN: recognizer.DefaultTopN}

// Limit returns the effective candidate count.
func (p Policy) Limit() int {
	if p.TopN < 1 {
		return recognizer.DefaultTopN
	}
	return p.TopN
}

// Decide judges ranked results against target.
func (p Policy) Decide(results []recognizer.Result, target string) Verdict {
	if n := p.Limit(); len(results) > n {
		results = results[:n]
	}
	return Verdict{
		Target:     target,
		Correct:    IsMatch(results, target),
		Candidates: append([]recognizer.Result(nil), results...),
	}
}

// IsMatch reports whether target is the character of any result.
func IsMatch(results []recognizer.Result, target string) bool {
	for _, r := range results {
		if r.Char == target {
			return true
		}
	}
	return false
}
