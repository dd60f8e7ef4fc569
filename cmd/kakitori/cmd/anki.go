package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/f3rmion/kakitori/internal/anki"
	"github.com/f3rmion/kakitori/internal/problem"
	"github.com/spf13/cobra"
)

var ankiCmd = &cobra.Command{
	Use:   "anki",
	Short: "Work with Anki decks",
	Long:  `Commands for turning Anki .apkg decks into problem sets.`,
}

var ankiInspectCmd = &cobra.Command{
	Use:   "inspect <file.apkg>",
	Short: "Inspect an Anki deck",
	Long: `Show the decks, note fields and note count of an Anki .apkg file, to
find the field names for 'anki import'.

Example:
  kakitori anki inspect kanji.apkg`,
	Args: cobra.ExactArgs(1),
	RunE: runAnkiInspect,
}

var ankiImportCmd = &cobra.Command{
	Use:   "import <file.apkg>",
	Short: "Convert an Anki deck into a problem set",
	Long: `Read notes whose sentence field uses Anki furigana, like
"山[やま]に 登[のぼ]る", and whose kanji field holds a single kanji. The
answer's reading becomes the blank; other readings are dropped.

Without --output the set is written into the data directory as
<name>.csv, where the TUI lists it.

Examples:
  kakitori anki import kanji.apkg --sentence Sentence --kanji Kanji
  kakitori anki import kanji.apkg --name grade2
  kakitori anki import kanji.apkg --output -`,
	Args: cobra.ExactArgs(1),
	RunE: runAnkiImport,
}

func init() {
	rootCmd.AddCommand(ankiCmd)
	ankiCmd.AddCommand(ankiInspectCmd)
	ankiCmd.AddCommand(ankiImportCmd)

	ankiImportCmd.Flags().String("sentence", "Sentence", "field holding the furigana sentence")
	ankiImportCmd.Flags().String("kanji", "Kanji", "field holding the answer kanji")
	ankiImportCmd.Flags().String("name", "", "problem set name (default: the deck file name)")
	ankiImportCmd.Flags().StringP("output", "o", "", "output CSV path, or - for stdout")
}

func runAnkiInspect(cmd *cobra.Command, args []string) error {
	d, err := anki.Open(args[0])
	if err != nil {
		return err
	}
	defer d.Close()

	fmt.Print(d.Summary())
	for i, n := range d.Notes {
		if i == 3 {
			break
		}
		fmt.Printf("\n  Note %d:\n", n.ID)
		for _, name := range d.FieldNames() {
			if v, ok := d.Field(n, name); ok {
				fmt.Printf("    %-12s %s\n", name+":", anki.PlainText(v))
			}
		}
	}
	return nil
}

func runAnkiImport(cmd *cobra.Command, args []string) error {
	sentenceField, _ := cmd.Flags().GetString("sentence")
	kanjiField, _ := cmd.Flags().GetString("kanji")
	name, _ := cmd.Flags().GetString("name")
	output, _ := cmd.Flags().GetString("output")

	d, err := anki.Open(args[0])
	if err != nil {
		return err
	}
	defer d.Close()

	problems, skipped := d.Problems(sentenceField, kanjiField)
	for _, s := range skipped {
		fmt.Fprintf(os.Stderr, "  skipped note %d: %s\n", s.NoteID, s.Reason)
	}
	if len(problems) == 0 {
		return fmt.Errorf("no problems in %s (fields: %v)", args[0], d.FieldNames())
	}

	if name == "" {
		name = problem.SetName(args[0])
	}
	if output == "" {
		s, err := loadSettings()
		if err != nil {
			return err
		}
		dir := s.DataDir
		if dir == "" {
			dir = filepath.Join(getConfigDir(), "data")
			fmt.Fprintf(os.Stderr, "No data_dir set; writing to %s (set data_dir in %s to use it)\n", dir, settingsPath())
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating data dir: %w", err)
		}
		output = filepath.Join(dir, name+".csv")
	}

	var w io.Writer = os.Stdout
	if output != "-" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", output, err)
		}
		defer f.Close()
		w = f
	}

	if err := problem.Write(w, "imported from "+filepath.Base(args[0]), problems); err != nil {
		return err
	}
	if output != "-" {
		fmt.Fprintf(os.Stderr, "Wrote %d problems to %s (%d notes skipped)\n", len(problems), output, len(skipped))
	}
	return nil
}
