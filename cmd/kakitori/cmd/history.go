package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/f3rmion/kakitori/internal/history"
	"github.com/f3rmion/kakitori/internal/problem"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent rounds and per-kanji accuracy",
	Long: `Show the rounds recorded by the TUI.

By default the most recent rounds are listed. With --stats, each kanji
is listed with its accuracy, weakest first.`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 20, "number of rounds to show")
	historyCmd.Flags().Bool("stats", false, "show per-kanji accuracy")
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	stats, _ := cmd.Flags().GetBool("stats")

	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	if stats {
		return printStats(ctx, store)
	}

	entries, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No rounds recorded yet.")
		return nil
	}
	for _, e := range entries {
		mark := "⭕"
		switch {
		case e.Skipped:
			mark = "➖"
		case !e.Correct:
			mark = "❌"
		}
		line := fmt.Sprintf("%s  %-10s %s %s  %s", e.PlayedAt.Format("2006-01-02 15:04"), problem.Label(e.Grade), mark, e.Kanji, e.Sentence)
		if e.Attempts > 1 {
			line += fmt.Sprintf("  (%d tries)", e.Attempts)
		}
		if !e.Correct && len(e.Candidates) > 0 {
			line += "  → " + strings.Join(e.Candidates, " ")
		}
		fmt.Println(line)
	}
	return nil
}

func printStats(ctx context.Context, store *history.Store) error {
	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}
	if len(stats) == 0 {
		fmt.Println("No rounds recorded yet.")
		return nil
	}

	fmt.Printf("%-4s %6s %6s %6s %8s %8s\n", "", "rounds", "ok", "skip", "tries", "accuracy")
	for _, s := range stats {
		fmt.Printf("%-4s %6d %6d %6d %8d %7.0f%%\n", s.Kanji, s.Rounds, s.Correct, s.Skipped, s.Attempts, s.Accuracy()*100)
	}
	return nil
}
