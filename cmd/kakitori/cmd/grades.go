package cmd

import (
	"fmt"

	"github.com/f3rmion/kakitori/internal/problem"
	"github.com/spf13/cobra"
)

var gradesCmd = &cobra.Command{
	Use:   "grades",
	Short: "List the available problem sets",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}

		grades, err := problem.Grades(s.DataDir)
		if err != nil {
			return err
		}
		for _, g := range grades {
			problems, err := problem.LoadGrade(s.DataDir, g)
			if err != nil {
				fmt.Printf("%-10s %-10s error: %v\n", g, problem.Label(g), err)
				continue
			}
			fmt.Printf("%-10s %-10s %3d problems\n", g, problem.Label(g), len(problems))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(gradesCmd)
}
