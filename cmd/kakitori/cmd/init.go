package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/f3rmion/kakitori/internal/config"
	"github.com/f3rmion/kakitori/internal/problem"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize kakitori configuration",
	Long: `Write a default config.yaml to your config directory.

With --data, the built-in problem sets are also copied to a data
directory next to it and config.yaml is pointed at them, so you can edit
or add sets.

With --fetch, the classifier model and vocabulary are downloaded once to
check that they are reachable.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "overwrite existing configuration")
	initCmd.Flags().Bool("data", false, "export the built-in problem sets for editing")
	initCmd.Flags().Bool("fetch", false, "download the classifier to check it loads")
}

func runInit(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")
	exportData, _ := cmd.Flags().GetBool("data")
	fetch, _ := cmd.Flags().GetBool("fetch")

	configDir := getConfigDir()
	path := settingsPath()

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config already exists: %s\nUse --force to overwrite", path)
	}

	fmt.Printf("Initializing kakitori configuration in %s\n\n", configDir)

	s := config.Default()
	if exportData {
		dataDir := filepath.Join(configDir, "data")
		written, err := problem.ExportBuiltin(dataDir)
		if err != nil {
			return err
		}
		for _, w := range written {
			fmt.Printf("  Created %s\n", w)
		}
		s.DataDir = dataDir
	}

	if err := config.Save(path, s); err != nil {
		return err
	}
	fmt.Printf("  Created %s\n", config.FileName)

	if fetch {
		fmt.Println()
		fmt.Printf("Fetching classifier from %s ...\n", s.Recognizer.ModelURL)
		start := time.Now()
		session := newSession(s)
		if err := session.Init(context.Background()); err != nil {
			return err
		}
		fmt.Printf("  %d kanji loaded in %s\n", len(session.Labels()), time.Since(start).Round(time.Millisecond))
	}

	fmt.Println()
	fmt.Println("Configuration initialized!")
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Run 'kakitori' to start practicing")
	fmt.Println("  2. Run 'kakitori grades' to see the problem sets")
	return nil
}
