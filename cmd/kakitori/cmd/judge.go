package cmd

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/f3rmion/kakitori/internal/preprocess"
	"github.com/f3rmion/kakitori/internal/verdict"
	"github.com/spf13/cobra"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var judgeCmd = &cobra.Command{
	Use:   "judge <image>",
	Short: "Judge a handwriting image against a kanji",
	Long: `Run a drawing through the same normalize, classify and verdict steps the
TUI uses. The image should be dark ink on a light background; PNG, JPEG,
BMP and WebP are accepted.

Example:
  kakitori judge drawing.png --target 山
  kakitori judge drawing.png --target 山 --top 10`,
	Args: cobra.ExactArgs(1),
	RunE: runJudge,
}

func init() {
	rootCmd.AddCommand(judgeCmd)
	judgeCmd.Flags().StringP("target", "t", "", "kanji the drawing should be")
	judgeCmd.Flags().IntP("top", "n", 0, "candidates that count as a match (default from settings)")
	judgeCmd.MarkFlagRequired("target")
}

func runJudge(cmd *cobra.Command, args []string) error {
	target, _ := cmd.Flags().GetString("target")
	topN, _ := cmd.Flags().GetInt("top")

	s, err := loadSettings()
	if err != nil {
		return err
	}
	if topN < 1 {
		topN = s.Recognizer.TopN
	}

	img, err := decodeImage(args[0])
	if err != nil {
		return err
	}
	input, err := preprocess.Normalize(img)
	if err != nil {
		return fmt.Errorf("normalizing %s: %w", args[0], err)
	}

	ctx := context.Background()
	session := newSession(s)
	fmt.Fprintln(os.Stderr, "Loading classifier...")
	if err := session.Init(ctx); err != nil {
		return err
	}

	policy := verdict.Policy{TopN: topN}
	results, err := session.Predict(ctx, input, policy.Limit())
	if err != nil {
		return fmt.Errorf("classifying: %w", err)
	}
	v := policy.Decide(results, target)

	for i, r := range v.Candidates {
		mark := " "
		if r.Char == target {
			mark = "*"
		}
		fmt.Printf("%s %d. %s  %6.2f%%\n", mark, i+1, r.Char, r.Score)
	}
	fmt.Println()
	if v.Correct {
		fmt.Printf("⭕ %s: correct\n", target)
	} else {
		fmt.Printf("❌ %s: not in the top %d\n", target, policy.Limit())
	}
	return nil
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}
