package recognizer

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/tidwall/gjson"
)

var (
	// label.js ships the vocabulary as a JS object literal:
	//   var kanji_dict = {'一': 0, '二': 1, ...}
	dictBlock = regexp.MustCompile(`kanji_dict\s*=\s*\{([\s\S]*?)\}`)
	dictEntry = regexp.MustCompile(`'([^']+)':\s*(\d+)`)
)

type labelEntry struct {
	char  string
	index int
}

// ParseLabels decodes a label vocabulary. It accepts the label.js script
// published with the model, a JSON object mapping characters to output
// indices, or a JSON array of characters in output order.
func ParseLabels(payload []byte) ([]string, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty vocabulary payload")
	}

	var entries []labelEntry
	switch {
	case trimmed[0] == '[' && gjson.ValidBytes(trimmed):
		for i, value := range gjson.ParseBytes(trimmed).Array() {
			entries = append(entries, labelEntry{char: value.String(), index: i})
		}
	case trimmed[0] == '{' && gjson.ValidBytes(trimmed):
		gjson.ParseBytes(trimmed).ForEach(func(key, value gjson.Result) bool {
			entries = append(entries, labelEntry{char: key.String(), index: int(value.Int())})
			return true
		})
	default:
		m := dictBlock.FindSubmatch(trimmed)
		if m == nil {
			return nil, fmt.Errorf("no kanji_dict object in vocabulary payload")
		}
		for _, e := range dictEntry.FindAllSubmatch(m[1], -1) {
			idx, err := strconv.Atoi(string(e[2]))
			if err != nil {
				return nil, fmt.Errorf("parsing index for %q: %w", e[1], err)
			}
			entries = append(entries, labelEntry{char: string(e[1]), index: idx})
		}
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("vocabulary has no entries")
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].index < entries[j].index })

	labels := make([]string, len(entries))
	for i, e := range entries {
		if e.index != i {
			return nil, fmt.Errorf("vocabulary index %d for %q, want %d", e.index, e.char, i)
		}
		if e.char == "" {
			return nil, fmt.Errorf("empty label at index %d", i)
		}
		labels[i] = e.char
	}

	return labels, nil
}
