// Package history records the outcome of each practice round in a local
// SQLite database. Only outcomes and candidate characters are stored, never
// drawings.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/f3rmion/kakitori/internal/kakitori"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// FileName is the database file name inside the config directory.
const FileName = "history.db"

const schema = `
CREATE TABLE IF NOT EXISTS rounds (
	id         TEXT PRIMARY KEY,
	played_at  INTEGER NOT NULL,
	grade      TEXT NOT NULL,
	kanji      TEXT NOT NULL,
	sentence   TEXT NOT NULL,
	correct    INTEGER NOT NULL,
	skipped    INTEGER NOT NULL,
	attempts   INTEGER NOT NULL,
	candidates TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS rounds_played_at ON rounds (played_at);
CREATE INDEX IF NOT EXISTS rounds_kanji ON rounds (kanji);
`

// Entry is one recorded round.
type Entry struct {
	ID         string
	PlayedAt   time.Time
	Grade      string
	Kanji      string
	Sentence   string
	Correct    bool
	Skipped    bool
	Attempts   int
	Candidates []string // Characters of the last judgment, best first
}

// FromRound converts a finished round into an entry.
func FromRound(grade string, r kakitori.RoundResult, at time.Time) Entry {
	e := Entry{
		PlayedAt: at,
		Grade:    grade,
		Kanji:    r.Problem.Kanji,
		Sentence: r.Problem.Sentence,
		Correct:  r.Correct,
		Skipped:  r.Skipped,
		Attempts: r.Attempts,
	}
	for _, c := range r.Candidates {
		e.Candidates = append(e.Candidates, c.Char)
	}
	return e
}

// KanjiStats aggregates the rounds played for one kanji.
type KanjiStats struct {
	Kanji    string
	Rounds   int
	Correct  int
	Skipped  int
	Attempts int // Judgments across all rounds
}

// Accuracy is the share of rounds answered correctly, in [0,1].
func (s KanjiStats) Accuracy() float64 {
	if s.Rounds == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Rounds)
}

// Store is a history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores e. A missing ID or time is filled in.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.PlayedAt.IsZero() {
		e.PlayedAt = time.Now()
	}
	if e.Candidates == nil {
		e.Candidates = []string{}
	}

	candidates, err := json.Marshal(e.Candidates)
	if err != nil {
		return fmt.Errorf("encoding candidates: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rounds (id, played_at, grade, kanji, sentence, correct, skipped, attempts, candidates)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.PlayedAt.UnixNano(), e.Grade, e.Kanji, e.Sentence,
		e.Correct, e.Skipped, e.Attempts, string(candidates),
	)
	if err != nil {
		return fmt.Errorf("recording round: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, played_at, grade, kanji, sentence, correct, skipped, attempts, candidates
		FROM rounds
		ORDER BY played_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying rounds: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			playedAt   int64
			candidates string
		)
		if err := rows.Scan(&e.ID, &playedAt, &e.Grade, &e.Kanji, &e.Sentence,
			&e.Correct, &e.Skipped, &e.Attempts, &candidates); err != nil {
			return nil, fmt.Errorf("scanning round: %w", err)
		}
		e.PlayedAt = time.Unix(0, playedAt)
		if err := json.Unmarshal([]byte(candidates), &e.Candidates); err != nil {
			return nil, fmt.Errorf("decoding candidates for %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading rounds: %w", err)
	}

	return entries, nil
}

// Stats aggregates rounds per kanji, weakest first.
func (s *Store) Stats(ctx context.Context) ([]KanjiStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kanji, COUNT(*), SUM(correct), SUM(skipped), SUM(attempts)
		FROM rounds
		GROUP BY kanji
		ORDER BY CAST(SUM(correct) AS REAL) / COUNT(*) ASC, COUNT(*) DESC, kanji ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying stats: %w", err)
	}
	defer rows.Close()

	var stats []KanjiStats
	for rows.Next() {
		var ks KanjiStats
		if err := rows.Scan(&ks.Kanji, &ks.Rounds, &ks.Correct, &ks.Skipped, &ks.Attempts); err != nil {
			return nil, fmt.Errorf("scanning stats: %w", err)
		}
		stats = append(stats, ks)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading stats: %w", err)
	}

	return stats, nil
}
