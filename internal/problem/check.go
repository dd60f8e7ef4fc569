package problem

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/f3rmion/kakitori/internal/kakitori"
)

// Issue is a data problem found by Check.
type Issue struct {
	Index  int    // Position in the checked slice
	Kanji  string // Answer of the offending problem
	Reason string
}

func (i Issue) String() string {
	return fmt.Sprintf("#%d %s: %s", i.Index+1, i.Kanji, i.Reason)
}

// Check reports problems that cannot be judged fairly: answers that are not
// a single kanji, empty readings, repeated sentences, and, when allowed is
// non-nil, answers outside the allowed kanji.
func Check(problems []kakitori.Problem, allowed map[string]bool) []Issue {
	var issues []Issue
	seen := make(map[string]int)

	for i, p := range problems {
		add := func(format string, args ...any) {
			issues = append(issues, Issue{Index: i, Kanji: p.Kanji, Reason: fmt.Sprintf(format, args...)})
		}

		r, size := utf8.DecodeRuneInString(p.Kanji)
		switch {
		case size != len(p.Kanji):
			add("answer is %d characters, want 1", utf8.RuneCountInString(p.Kanji))
		case !unicode.Is(unicode.Han, r):
			add("answer is not a kanji")
		}

		if p.Reading == "" {
			add("empty reading")
		}

		if prev, ok := seen[p.Sentence]; ok {
			add("duplicate of #%d", prev+1)
		} else {
			seen[p.Sentence] = i
		}

		if allowed != nil && !allowed[p.Kanji] {
			add("not in the grade's kanji list")
		}
	}

	return issues
}
