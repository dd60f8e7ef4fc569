package anki

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/f3rmion/kakitori/internal/kakitori"
	"github.com/f3rmion/kakitori/internal/problem"
)

var (
	tagPattern = regexp.MustCompile(`<[^>]*>`)
	// Anki furigana: an optional space, the base text, then [reading].
	furiganaPattern = regexp.MustCompile(` ?([^ \[\]]+)\[([^\]]*)\]`)
)

// Skipped is a note that could not become a problem.
type Skipped struct {
	NoteID int64
	Reason string
}

// Problems converts notes into problems. The sentence field holds Anki
// furigana such as "山[やま]に 登[のぼ]る"; the kanji field holds the answer.
// The reading attached to the answer becomes the blank and all other
// furigana is dropped.
func (d *Deck) Problems(sentenceField, kanjiField string) ([]kakitori.Problem, []Skipped) {
	var (
		problems []kakitori.Problem
		skipped  []Skipped
	)
	for _, n := range d.Notes {
		skip := func(format string, args ...any) {
			skipped = append(skipped, Skipped{NoteID: n.ID, Reason: fmt.Sprintf(format, args...)})
		}

		raw, ok := d.Field(n, sentenceField)
		if !ok {
			skip("no field %q", sentenceField)
			continue
		}
		kanji, ok := d.Field(n, kanjiField)
		if !ok {
			skip("no field %q", kanjiField)
			continue
		}
		kanji = PlainText(kanji)
		if utf8.RuneCountInString(kanji) != 1 {
			skip("answer %q is not a single character", kanji)
			continue
		}

		sentence, ok := Blank(PlainText(raw), kanji)
		if !ok {
			skip("no furigana for %s in the sentence", kanji)
			continue
		}
		p, err := problem.ParseProblem(sentence, kanji)
		if err != nil {
			skip("%v", err)
			continue
		}
		problems = append(problems, p)
	}
	return problems, skipped
}

// PlainText strips HTML tags and entities from a field.
func PlainText(s string) string {
	s = strings.ReplaceAll(s, "<br>", " ")
	s = tagPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(html.UnescapeString(s))
}

// Blank rewrites a furigana sentence into problem form: the first furigana
// whose base is kanji becomes "[reading]" and other bases lose their
// readings. It reports false when kanji has no furigana.
func Blank(sentence, kanji string) (string, bool) {
	found := false
	out := furiganaPattern.ReplaceAllStringFunc(sentence, func(m string) string {
		sub := furiganaPattern.FindStringSubmatch(m)
		prefix, base := splitBase(sub[1])
		if !found && base == kanji {
			found = true
			return prefix + "[" + sub[2] + "]"
		}
		return prefix + base
	})
	return out, found
}

// splitBase separates leading kana from the kanji the reading belongs to,
// for furigana written without the delimiting space.
func splitBase(s string) (prefix, base string) {
	i := len(s)
	for i > 0 {
		r, size := utf8.DecodeLastRuneInString(s[:i])
		if !unicode.Is(unicode.Han, r) && r != '々' {
			break
		}
		i -= size
	}
	if i == len(s) {
		return "", s
	}
	return s[:i], s[i:]
}
