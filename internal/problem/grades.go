package problem

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/f3rmion/kakitori/internal/kakitori"
)

//go:embed data/*.csv
var builtin embed.FS

var gradeNumber = regexp.MustCompile(`^grade(\d+)$`)

// LoadGrade loads the named problem set, e.g. "grade1". With a non-empty
// dir it reads <dir>/<grade>.csv, otherwise the built-in set.
func LoadGrade(dir, grade string) ([]kakitori.Problem, error) {
	if grade == "" || strings.ContainsAny(grade, `/\`) {
		return nil, fmt.Errorf("invalid grade %q", grade)
	}

	var (
		data []byte
		err  error
	)
	if dir != "" {
		data, err = os.ReadFile(filepath.Join(dir, grade+".csv"))
	} else {
		data, err = builtin.ReadFile("data/" + grade + ".csv")
	}
	if err != nil {
		return nil, fmt.Errorf("loading grade %s: %w", grade, err)
	}

	problems, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing grade %s: %w", grade, err)
	}
	return problems, nil
}

// LoadFile loads a problem set from an arbitrary CSV file.
func LoadFile(path string) ([]kakitori.Problem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening problem file: %w", err)
	}
	defer f.Close()

	problems, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return problems, nil
}

// SetName is the name a problem file is listed and recorded under.
func SetName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// Grades lists the available problem sets in name order. With a non-empty
// dir it lists the CSV files there, otherwise the built-in sets.
func Grades(dir string) ([]string, error) {
	var fsys fs.FS = builtin
	pattern := "data/*.csv"
	if dir != "" {
		fsys, pattern = os.DirFS(dir), "*.csv"
	}

	matches, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("listing grades: %w", err)
	}

	grades := make([]string, 0, len(matches))
	for _, m := range matches {
		grades = append(grades, strings.TrimSuffix(filepath.Base(m), ".csv"))
	}
	sort.Strings(grades)
	return grades, nil
}

// ExportBuiltin writes the built-in sets into dir as <grade>.csv, as a
// starting point for a custom data directory. Existing files are kept.
func ExportBuiltin(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	matches, err := fs.Glob(builtin, "data/*.csv")
	if err != nil {
		return nil, err
	}

	var written []string
	for _, m := range matches {
		dst := filepath.Join(dir, filepath.Base(m))
		if _, err := os.Stat(dst); err == nil {
			continue
		}
		data, err := builtin.ReadFile(m)
		if err != nil {
			return written, err
		}
		if err := os.WriteFile(dst, data, 0644); err != nil {
			return written, fmt.Errorf("writing %s: %w", dst, err)
		}
		written = append(written, dst)
	}
	return written, nil
}

// Label returns the display name of a grade: "grade1" is "1ねんせい".
// Other names are returned unchanged.
func Label(grade string) string {
	if m := gradeNumber.FindStringSubmatch(grade); m != nil {
		return m[1] + "ねんせい"
	}
	return grade
}
