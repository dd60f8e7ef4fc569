// Package problem loads fill-in-the-kanji problem sets.
//
// A problem set is a CSV file with one problem per row: a sentence in which
// the target kanji's reading is bracketed, and the kanji itself.
//
//	# comment
//	[やま]にのぼる,山
//	あかい[はな],花
package problem

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/f3rmion/kakitori/internal/kakitori"
	"github.com/f3rmion/kakitori/internal/logging"
	"github.com/google/uuid"
)

var sentencePattern = regexp.MustCompile(`^(.*?)\[(.*?)\](.*?)$`)

// ErrInvalidSentence is returned by ParseProblem for a sentence without a
// bracketed reading.
var ErrInvalidSentence = errors.New("sentence has no [reading]")

// ParseProblem builds a problem from a raw sentence and its kanji.
func ParseProblem(sentence, kanji string) (kakitori.Problem, error) {
	m := sentencePattern.FindStringSubmatch(sentence)
	if m == nil {
		return kakitori.Problem{}, fmt.Errorf("%w: %q", ErrInvalidSentence, sentence)
	}
	return kakitori.Problem{
		ID:       uuid.NewString(),
		Sentence: sentence,
		Pre:      m[1],
		Reading:  m[2],
		Post:     m[3],
		Kanji:    strings.TrimSpace(kanji),
	}, nil
}

// Parse reads a problem set. Comment lines, blank lines, short rows and rows
// with empty cells are skipped, as are sentences without a bracketed
// reading (logged at warn level).
func Parse(r io.Reader) ([]kakitori.Problem, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var problems []kakitori.Problem
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading problem set: %w", err)
		}
		if len(row) < 2 {
			continue
		}

		sentence, kanji := row[0], strings.TrimSpace(row[1])
		if sentence == "" || kanji == "" {
			continue
		}

		p, err := ParseProblem(sentence, kanji)
		if err != nil {
			line, _ := cr.FieldPos(0)
			logging.L().Warn("skipping problem", "line", line, "err", err)
			continue
		}
		problems = append(problems, p)
	}

	return problems, nil
}

// Write writes problems in the format Parse reads, after an optional
// comment line.
func Write(w io.Writer, comment string, problems []kakitori.Problem) error {
	if comment != "" {
		if _, err := fmt.Fprintf(w, "# %s\n", comment); err != nil {
			return err
		}
	}

	cw := csv.NewWriter(w)
	for _, p := range problems {
		if err := cw.Write([]string{p.Sentence, p.Kanji}); err != nil {
			return fmt.Errorf("writing problem %s: %w", p.Kanji, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
