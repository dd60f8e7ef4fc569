// Package cmd contains all CLI commands for kakitori.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/f3rmion/kakitori/internal/config"
	"github.com/f3rmion/kakitori/internal/history"
	"github.com/f3rmion/kakitori/internal/logging"
	"github.com/f3rmion/kakitori/internal/recognizer"
	"github.com/f3rmion/kakitori/internal/tfjs"
	"github.com/f3rmion/kakitori/internal/tui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// LogFileName is where the TUI writes its log, inside the config directory.
const LogFileName = "kakitori.log"

var cfgFile string

// logFile is open while the TUI runs.
var logFile *os.File

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "kakitori",
	Short: "Kanji writing practice in the terminal",
	Long: `kakitori shows a sentence with one word written in kana and asks you to
write its kanji with the mouse. Your drawing is judged by a handwriting
classifier: it counts as correct when the kanji is among the top
candidates.

Running 'kakitori' without arguments launches the interactive TUI.

Settings are read from config.yaml in the config directory and can be
overridden with KAKITORI_* environment variables, e.g.
KAKITORI_RECOGNIZER_MODEL_URL or KAKITORI_GAME_PROBLEM_COUNT.`,
	PersistentPostRun: func(*cobra.Command, []string) {
		if logFile != nil {
			logFile.Close()
		}
	},
	RunE: runTUI,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Assigned here rather than in the literal: setup refers to rootCmd.
	rootCmd.PersistentPreRunE = setup
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config directory (default is $HOME/.config/kakitori)")
	rootCmd.PersistentFlags().Bool("verbose", false, "verbose output")
	rootCmd.PersistentFlags().String("model", "", "model.json URL or path")
	rootCmd.PersistentFlags().String("labels", "", "kanji vocabulary URL or path")
	rootCmd.PersistentFlags().String("data-dir", "", "directory of <grade>.csv problem sets")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("recognizer.model_url", rootCmd.PersistentFlags().Lookup("model"))
	viper.BindPFlag("recognizer.label_url", rootCmd.PersistentFlags().Lookup("labels"))
	viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
}

// overridable lists the settings keys that flags and the environment may
// override.
var overridable = []string{
	"data_dir",
	"history",
	"game.skip_enabled",
	"game.problem_count",
	"game.shuffle",
	"game.sound",
	"recognizer.model_url",
	"recognizer.label_url",
	"recognizer.top_n",
	"recognizer.load_timeout",
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.Set("config_dir", cfgFile)
	} else {
		dir, err := config.GetConfigDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error finding home directory:", err)
			os.Exit(1)
		}
		viper.Set("config_dir", dir)
	}

	viper.SetEnvPrefix("KAKITORI")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, key := range overridable {
		viper.BindEnv(key)
	}
}

// getConfigDir returns the configuration directory path.
func getConfigDir() string {
	return viper.GetString("config_dir")
}

func settingsPath() string {
	return filepath.Join(getConfigDir(), config.FileName)
}

// setup configures logging. The TUI owns the terminal, so it logs to a
// file; other commands log to stderr.
func setup(cmd *cobra.Command, _ []string) error {
	var w io.Writer = os.Stderr
	if cmd == rootCmd {
		if err := config.EnsureConfigDir(getConfigDir()); err != nil {
			return err
		}
		f, err := os.OpenFile(filepath.Join(getConfigDir(), LogFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		logFile, w = f, f
	}

	level := slog.LevelWarn
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	logging.Set(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
	return nil
}

// loadSettings reads config.yaml and applies flag and environment
// overrides.
func loadSettings() (*config.Settings, error) {
	s, err := config.Load(settingsPath())
	if err != nil {
		return nil, err
	}

	if viper.IsSet("data_dir") {
		s.DataDir = viper.GetString("data_dir")
	}
	if viper.IsSet("history") {
		s.History = viper.GetBool("history")
	}
	if viper.IsSet("game.skip_enabled") {
		s.Game.SkipEnabled = viper.GetBool("game.skip_enabled")
	}
	if viper.IsSet("game.problem_count") {
		s.Game.ProblemCount = viper.GetInt("game.problem_count")
	}
	if viper.IsSet("game.shuffle") {
		s.Game.Shuffle = viper.GetBool("game.shuffle")
	}
	if viper.IsSet("game.sound") {
		s.Game.Sound = viper.GetBool("game.sound")
	}
	if viper.IsSet("recognizer.model_url") {
		s.Recognizer.ModelURL = viper.GetString("recognizer.model_url")
	}
	if viper.IsSet("recognizer.label_url") {
		s.Recognizer.LabelURL = viper.GetString("recognizer.label_url")
	}
	if viper.IsSet("recognizer.top_n") {
		s.Recognizer.TopN = viper.GetInt("recognizer.top_n")
	}
	if viper.IsSet("recognizer.load_timeout") {
		s.Recognizer.LoadTimeout = viper.GetDuration("recognizer.load_timeout")
	}

	s.Normalize()
	return s, nil
}

// newSession builds the classifier session for s.
func newSession(s *config.Settings) *recognizer.Session {
	return recognizer.NewSession(recognizer.Config{
		ModelURL:    s.Recognizer.ModelURL,
		LabelURL:    s.Recognizer.LabelURL,
		LoadTimeout: s.Recognizer.LoadTimeout,
	}, tfjs.Acquire, recognizer.NewHTTPFetcher(s.Recognizer.LoadTimeout))
}

func openHistory() (*history.Store, error) {
	if err := config.EnsureConfigDir(getConfigDir()); err != nil {
		return nil, err
	}
	return history.Open(filepath.Join(getConfigDir(), history.FileName))
}

// runTUI launches the practice TUI.
func runTUI(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	log := logging.L()

	opts := tui.Options{
		Settings:     s,
		SettingsPath: settingsPath(),
		Classifier:   newSession(s),
		Bell:         os.Stdout,
	}
	if s.History {
		store, err := openHistory()
		if err != nil {
			// Practice still works without history.
			log.Warn("history unavailable", "err", err)
		} else {
			defer store.Close()
			opts.History = store
		}
	}

	log.Info("starting", "model", s.Recognizer.ModelURL, "data_dir", s.DataDir)

	p := tea.NewProgram(
		tui.NewApp(opts),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}
