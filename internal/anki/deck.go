// Package anki reads Anki .apkg decks so their notes can become problem
// sets.
package anki

import (
	"archive/zip"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
)

// Deck is an opened .apkg file.
type Deck struct {
	path    string
	tempDir string
	db      *sql.DB

	Models map[int64]*Model
	Names  []string // Deck names
	Notes  []*Note
}

// Model is an Anki note type.
type Model struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Fields []Field `json:"flds"`
}

// Field is one field of a note type.
type Field struct {
	Name string `json:"name"`
	Ord  int    `json:"ord"`
}

// Note is one Anki note.
type Note struct {
	ID      int64
	ModelID int64
	Tags    string
	Fields  []string // Split from the 0x1f-separated flds column
}

// Open extracts and reads the deck at path. Close removes the extracted
// files.
func Open(path string) (*Deck, error) {
	d := &Deck{path: path, Models: make(map[int64]*Model)}

	tempDir, err := os.MkdirTemp("", "kakitori-anki-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	d.tempDir = tempDir

	if err := d.extract(); err != nil {
		d.Close()
		return nil, err
	}

	dbPath := filepath.Join(tempDir, "collection.anki21")
	if _, err := os.Stat(dbPath); err != nil {
		dbPath = filepath.Join(tempDir, "collection.anki2")
	}
	if _, err := os.Stat(dbPath); err != nil {
		d.Close()
		return nil, fmt.Errorf("%s: no collection database", path)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}
	d.db = db

	if err := d.loadCollection(); err != nil {
		d.Close()
		return nil, err
	}
	if err := d.loadNotes(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (d *Deck) extract() error {
	r, err := zip.OpenReader(d.path)
	if err != nil {
		return fmt.Errorf("opening zip: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		// Media files are not needed.
		if !strings.HasPrefix(f.Name, "collection.anki2") {
			continue
		}

		dst := filepath.Join(d.tempDir, filepath.Base(f.Name))
		if err := extractFile(f, dst); err != nil {
			return fmt.Errorf("extracting %s: %w", f.Name, err)
		}
	}
	return nil
}

func extractFile(f *zip.File, dst string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func (d *Deck) loadCollection() error {
	var models, decks string
	if err := d.db.QueryRow("SELECT models, decks FROM col").Scan(&models, &decks); err != nil {
		return fmt.Errorf("reading collection: %w", err)
	}

	var modelMap map[string]json.RawMessage
	if err := json.Unmarshal([]byte(models), &modelMap); err != nil {
		return fmt.Errorf("parsing models: %w", err)
	}
	for _, raw := range modelMap {
		var m Model
		if err := json.Unmarshal(raw, &m); err != nil {
			continue // Skip malformed models
		}
		d.Models[m.ID] = &m
	}

	var deckMap map[string]struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(decks), &deckMap); err != nil {
		return fmt.Errorf("parsing decks: %w", err)
	}
	for _, dk := range deckMap {
		d.Names = append(d.Names, dk.Name)
	}
	sort.Strings(d.Names)
	return nil
}

func (d *Deck) loadNotes() error {
	rows, err := d.db.Query("SELECT id, mid, tags, flds FROM notes ORDER BY id")
	if err != nil {
		return fmt.Errorf("querying notes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			n    Note
			flds string
		)
		if err := rows.Scan(&n.ID, &n.ModelID, &n.Tags, &flds); err != nil {
			return fmt.Errorf("scanning note: %w", err)
		}
		n.Fields = strings.Split(flds, "\x1f")
		d.Notes = append(d.Notes, &n)
	}
	return rows.Err()
}

// Field returns the named field of a note, matched case-insensitively.
func (d *Deck) Field(n *Note, name string) (string, bool) {
	m := d.Models[n.ModelID]
	if m == nil {
		return "", false
	}
	for _, f := range m.Fields {
		if strings.EqualFold(f.Name, name) && f.Ord < len(n.Fields) {
			return n.Fields[f.Ord], true
		}
	}
	return "", false
}

// FieldNames lists the distinct field names across all note types.
func (d *Deck) FieldNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range d.Models {
		for _, f := range m.Fields {
			if !seen[f.Name] {
				seen[f.Name] = true
				names = append(names, f.Name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// Close releases the database and removes the extracted files.
func (d *Deck) Close() error {
	if d.db != nil {
		d.db.Close()
	}
	if d.tempDir != "" {
		return os.RemoveAll(d.tempDir)
	}
	return nil
}

// Summary describes the deck contents.
func (d *Deck) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Anki deck: %s\n", d.path)
	fmt.Fprintf(&sb, "  Decks: %s\n", strings.Join(d.Names, ", "))
	fmt.Fprintf(&sb, "  Note types: %d\n", len(d.Models))
	fmt.Fprintf(&sb, "  Fields: %s\n", strings.Join(d.FieldNames(), ", "))
	fmt.Fprintf(&sb, "  Notes: %d\n", len(d.Notes))
	return sb.String()
}
