package problem

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/f3rmion/kakitori/internal/kakitori"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProblem(t *testing.T) {
	tests := []struct {
		sentence, kanji string
		pre, reading    string
		post            string
	}{
		{"[にち]ようび", "日", "", "にち", "ようび"},
		{"あかい[はな]", " 花 ", "あかい", "はな", ""},
		{"おおきな[いし]をひろう", "石", "おおきな", "いし", "をひろう"},
		{"[]がない", "空", "", "", "がない"},
	}

	for _, tt := range tests {
		t.Run(tt.sentence, func(t *testing.T) {
			p, err := ParseProblem(tt.sentence, tt.kanji)
			require.NoError(t, err)
			assert.Equal(t, tt.sentence, p.Sentence)
			assert.Equal(t, tt.pre, p.Pre)
			assert.Equal(t, tt.reading, p.Reading)
			assert.Equal(t, tt.post, p.Post)
			assert.Equal(t, strings.TrimSpace(tt.kanji), p.Kanji)
			assert.NotEmpty(t, p.ID)
		})
	}

	_, err := ParseProblem("かっこがない", "山")
	assert.ErrorIs(t, err, ErrInvalidSentence)
}

func TestParse(t *testing.T) {
	input := strings.Join([]string{
		"# grade 1",
		"[やま]にのぼる,山",
		"",
		"あかい[はな],花 ",
		"かっこなし,川",
		"[みず]をのむ",
		"[き]のぼり,",
		",木",
		`"[て]を,あらう",手`,
		"[め]をとじる,目,extra",
	}, "\n")

	problems, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	var got []string
	for _, p := range problems {
		got = append(got, p.Kanji)
	}
	assert.Equal(t, []string{"山", "花", "手", "目"}, got)
	assert.Equal(t, "[て]を,あらう", problems[2].Sentence)
	assert.Equal(t, "を,あらう", problems[2].Post)

	ids := map[string]bool{}
	for _, p := range problems {
		assert.False(t, ids[p.ID], "ids are unique")
		ids[p.ID] = true
	}
}

func TestBuiltinGrades(t *testing.T) {
	grades, err := Grades("")
	require.NoError(t, err)
	assert.Contains(t, grades, "grade1")

	problems, err := LoadGrade("", "grade1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(problems), 20)
	assert.Empty(t, Check(problems, nil), "built-in data is clean")

	_, err = LoadGrade("", "grade99")
	assert.Error(t, err)
	_, err = LoadGrade("", "../grade1")
	assert.Error(t, err)
}

func TestGradesFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "grade2.csv"), []byte("[かぜ]がふく,風\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.csv"), []byte("[うみ]へいく,海\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	grades, err := Grades(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"custom", "grade2"}, grades)

	problems, err := LoadGrade(dir, "grade2")
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Equal(t, "風", problems[0].Kanji)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "my-set.csv")
	require.NoError(t, os.WriteFile(path, []byte("# mine\n[うみ]へいく,海\n[そら]がある,空\n"), 0644))

	problems, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, problems, 2)
	assert.Equal(t, "空", problems[1].Kanji)
	assert.Equal(t, "my-set", SetName(path))

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "1ねんせい", Label("grade1"))
	assert.Equal(t, "6ねんせい", Label("grade6"))
	assert.Equal(t, "custom", Label("custom"))
}

func TestCheck(t *testing.T) {
	problems := []kakitori.Problem{
		{Sentence: "[やま]にのぼる", Reading: "やま", Kanji: "山"},
		{Sentence: "[あした]", Reading: "あした", Kanji: "明日"},
		{Sentence: "[か]", Reading: "か", Kanji: "か"},
		{Sentence: "[]いし", Reading: "", Kanji: "石"},
		{Sentence: "[やま]にのぼる", Reading: "やま", Kanji: "山"},
	}

	issues := Check(problems, map[string]bool{"山": true, "石": true})

	reasons := map[int][]string{}
	for _, is := range issues {
		reasons[is.Index] = append(reasons[is.Index], is.Reason)
	}
	assert.Empty(t, reasons[0])
	assert.Contains(t, reasons[1], "answer is 2 characters, want 1")
	assert.Contains(t, reasons[2], "answer is not a kanji")
	assert.Contains(t, reasons[3], "empty reading")
	assert.Equal(t, []string{"duplicate of #1"}, reasons[4])
	assert.Contains(t, reasons[2], "not in the grade's kanji list")
	assert.Equal(t, "#2 明日: answer is 2 characters, want 1", issues[0].String())
}

func TestExportBuiltin(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	written, err := ExportBuiltin(dir)
	require.NoError(t, err)
	require.NotEmpty(t, written)

	grades, err := Grades(dir)
	require.NoError(t, err)
	builtinGrades, err := Grades("")
	require.NoError(t, err)
	assert.Equal(t, builtinGrades, grades)

	// A second export leaves edited files alone.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "grade1.csv"), []byte("[うみ],海\n"), 0644))
	written, err = ExportBuiltin(dir)
	require.NoError(t, err)
	assert.Empty(t, written)

	problems, err := LoadGrade(dir, "grade1")
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Equal(t, "海", problems[0].Kanji)
}

func TestWriteRoundTrip(t *testing.T) {
	a, err := ParseProblem("[て]を,あらう", "手")
	require.NoError(t, err)
	b, err := ParseProblem("[め]をとじる", "目")
	require.NoError(t, err)

	var buf strings.Builder
	require.NoError(t, Write(&buf, "from a deck", []kakitori.Problem{a, b}))
	assert.True(t, strings.HasPrefix(buf.String(), "# from a deck\n"))

	got, err := Parse(strings.NewReader(buf.String()))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a.Sentence, got[0].Sentence)
	assert.Equal(t, "目", got[1].Kanji)
}
