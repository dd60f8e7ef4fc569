package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/f3rmion/kakitori/internal/kakitori"
	"github.com/f3rmion/kakitori/internal/problem"
	"github.com/f3rmion/kakitori/internal/recognizer"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check [grade|file.csv]...",
	Short: "Check problem sets for answers that cannot be judged",
	Long: `Report problems whose answer is not a single kanji, whose reading is
empty, or whose sentence repeats an earlier one.

With --allowed, answers must also appear in the given text file (any
kanji in it count). With --vocab, answers must be in the classifier's
vocabulary, since a kanji the model cannot output can never be judged
correct.

Without arguments every available grade is checked.

Example:
  kakitori check
  kakitori check grade1 --allowed grade1-kanji.txt
  kakitori check my-set.csv --vocab`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().String("allowed", "", "text file listing the kanji answers may use")
	checkCmd.Flags().Bool("vocab", false, "require answers to be in the classifier vocabulary")
}

func runCheck(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}

	allowed, err := allowedKanji(cmd, s.Recognizer.LabelURL)
	if err != nil {
		return err
	}

	sets := args
	if len(sets) == 0 {
		if sets, err = problem.Grades(s.DataDir); err != nil {
			return err
		}
	}

	total := 0
	for _, name := range sets {
		var problems []kakitori.Problem
		if strings.HasSuffix(strings.ToLower(name), ".csv") {
			problems, err = problem.LoadFile(name)
		} else {
			problems, err = problem.LoadGrade(s.DataDir, name)
		}
		if err != nil {
			return err
		}

		issues := problem.Check(problems, allowed)
		total += len(issues)
		fmt.Printf("%s: %d problems, %d issues\n", name, len(problems), len(issues))
		for _, is := range issues {
			fmt.Printf("  %s\n", is)
		}
	}

	if total > 0 {
		return fmt.Errorf("%d issues found", total)
	}
	return nil
}

// allowedKanji builds the allowed answer set from the flags, or returns nil
// when neither restricts it.
func allowedKanji(cmd *cobra.Command, labelURL string) (map[string]bool, error) {
	path, _ := cmd.Flags().GetString("allowed")
	vocab, _ := cmd.Flags().GetBool("vocab")

	var allowed map[string]bool
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading allowed kanji: %w", err)
		}
		allowed = make(map[string]bool)
		for _, r := range string(data) {
			if unicode.Is(unicode.Han, r) {
				allowed[string(r)] = true
			}
		}
	}

	if !vocab {
		return allowed, nil
	}

	payload, err := recognizer.NewHTTPFetcher(0).Fetch(context.Background(), labelURL)
	if err != nil {
		return nil, fmt.Errorf("fetching vocabulary: %w", err)
	}
	labels, err := recognizer.ParseLabels(payload)
	if err != nil {
		return nil, err
	}

	inVocab := make(map[string]bool, len(labels))
	for _, l := range labels {
		inVocab[l] = true
	}
	if allowed == nil {
		return inVocab, nil
	}
	for k := range allowed {
		if !inVocab[k] {
			delete(allowed, k)
		}
	}
	return allowed, nil
}
