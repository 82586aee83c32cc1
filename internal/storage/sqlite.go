package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/open-spaced-repetition/go-fsrs"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS records (
	deck_id          TEXT NOT NULL,
	question_id      TEXT NOT NULL,
	attempts         INTEGER NOT NULL DEFAULT 0,
	fails            INTEGER NOT NULL DEFAULT 0,
	points           INTEGER NOT NULL DEFAULT 0,
	streak           INTEGER NOT NULL DEFAULT 0,
	mastered         INTEGER NOT NULL DEFAULT 0,
	due              TIMESTAMP NOT NULL,
	last_score       REAL NOT NULL DEFAULT 0,
	last_reviewed_at TIMESTAMP,
	fsrs             TEXT NOT NULL DEFAULT '{}',
	PRIMARY KEY (deck_id, question_id)
);

CREATE TABLE IF NOT EXISTS attempts (
	id          TEXT PRIMARY KEY,
	deck_id     TEXT NOT NULL,
	question_id TEXT NOT NULL,
	passed      INTEGER NOT NULL,
	score       REAL NOT NULL,
	answer      TEXT NOT NULL DEFAULT '',
	timestamp   TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_attempts_key ON attempts (deck_id, question_id);
CREATE INDEX IF NOT EXISTS idx_attempts_timestamp ON attempts (timestamp);
`

// recordRow maps the records table; the FSRS card is stored as a JSON blob.
type recordRow struct {
	DeckID         string       `db:"deck_id"`
	QuestionID     string       `db:"question_id"`
	Attempts       int          `db:"attempts"`
	Fails          int          `db:"fails"`
	Points         int          `db:"points"`
	Streak         int          `db:"streak"`
	Mastered       bool         `db:"mastered"`
	Due            time.Time    `db:"due"`
	LastScore      float64      `db:"last_score"`
	LastReviewedAt sql.NullTime `db:"last_reviewed_at"`
	FSRS           string       `db:"fsrs"`
}

type attemptRow struct {
	ID         string    `db:"id"`
	DeckID     string    `db:"deck_id"`
	QuestionID string    `db:"question_id"`
	Passed     bool      `db:"passed"`
	Score      float64   `db:"score"`
	Answer     string    `db:"answer"`
	Timestamp  time.Time `db:"timestamp"`
}

// SQLiteStore implements Store on a local SQLite database. Unlike the file
// store, writes are durable per statement, so Load and Save are no-ops.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath and initializes
// the schema.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// SQLite doesn't support multiple writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// GetRecord retrieves the record for a (deck, question) pair.
func (s *SQLiteStore) GetRecord(deckID, questionID string) (Record, error) {
	var row recordRow
	err := s.db.Get(&row,
		`SELECT * FROM records WHERE deck_id = ? AND question_id = ?`,
		deckID, questionID)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to query record: %w", err)
	}
	return row.toRecord()
}

// PutRecord inserts or replaces a record.
func (s *SQLiteStore) PutRecord(rec Record) error {
	if rec.DeckID == "" || rec.QuestionID == "" {
		return errors.New("record deck_id and question_id are required")
	}

	row, err := toRow(rec)
	if err != nil {
		return err
	}
	_, err = s.db.NamedExec(`
		INSERT OR REPLACE INTO records
			(deck_id, question_id, attempts, fails, points, streak, mastered,
			 due, last_score, last_reviewed_at, fsrs)
		VALUES
			(:deck_id, :question_id, :attempts, :fails, :points, :streak, :mastered,
			 :due, :last_score, :last_reviewed_at, :fsrs)`, row)
	if err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}
	return nil
}

// ListRecords returns all records, or only those for deckID when non-empty.
func (s *SQLiteStore) ListRecords(deckID string) ([]Record, error) {
	var rows []recordRow
	var err error
	if deckID == "" {
		err = s.db.Select(&rows, `SELECT * FROM records`)
	} else {
		err = s.db.Select(&rows, `SELECT * FROM records WHERE deck_id = ?`, deckID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// AddAttempt appends an attempt to the log.
func (s *SQLiteStore) AddAttempt(a Attempt) error {
	if a.ID == "" {
		return errors.New("attempt id is required")
	}
	_, err := s.db.NamedExec(`
		INSERT INTO attempts (id, deck_id, question_id, passed, score, answer, timestamp)
		VALUES (:id, :deck_id, :question_id, :passed, :score, :answer, :timestamp)`,
		attemptRow(a))
	if err != nil {
		return fmt.Errorf("failed to insert attempt: %w", err)
	}
	return nil
}

// AttemptsFor returns the attempt log for a (deck, question) pair.
func (s *SQLiteStore) AttemptsFor(deckID, questionID string) ([]Attempt, error) {
	var rows []attemptRow
	err := s.db.Select(&rows,
		`SELECT * FROM attempts WHERE deck_id = ? AND question_id = ? ORDER BY timestamp`,
		deckID, questionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	return toAttempts(rows), nil
}

// AttemptsSince returns all attempts recorded at or after the given time.
func (s *SQLiteStore) AttemptsSince(since time.Time) ([]Attempt, error) {
	var rows []attemptRow
	err := s.db.Select(&rows,
		`SELECT * FROM attempts WHERE timestamp >= ? ORDER BY timestamp`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	return toAttempts(rows), nil
}

// Load is a no-op; the schema is initialized when the store is opened.
func (s *SQLiteStore) Load() error { return nil }

// Save is a no-op; every write is committed immediately.
func (s *SQLiteStore) Save() error { return nil }

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func toRow(rec Record) (recordRow, error) {
	fsrsJSON, err := json.Marshal(rec.FSRS)
	if err != nil {
		return recordRow{}, fmt.Errorf("failed to marshal fsrs state: %w", err)
	}
	row := recordRow{
		DeckID:     rec.DeckID,
		QuestionID: rec.QuestionID,
		Attempts:   rec.Attempts,
		Fails:      rec.Fails,
		Points:     rec.Points,
		Streak:     rec.Streak,
		Mastered:   rec.Mastered,
		Due:        rec.Due,
		LastScore:  rec.LastScore,
		FSRS:       string(fsrsJSON),
	}
	if !rec.LastReviewedAt.IsZero() {
		row.LastReviewedAt = sql.NullTime{Time: rec.LastReviewedAt, Valid: true}
	}
	return row, nil
}

func (row recordRow) toRecord() (Record, error) {
	var card fsrs.Card
	if row.FSRS != "" && row.FSRS != "{}" {
		if err := json.Unmarshal([]byte(row.FSRS), &card); err != nil {
			return Record{}, fmt.Errorf("failed to unmarshal fsrs state: %w", err)
		}
	}
	rec := Record{
		DeckID:     row.DeckID,
		QuestionID: row.QuestionID,
		Attempts:   row.Attempts,
		Fails:      row.Fails,
		Points:     row.Points,
		Streak:     row.Streak,
		Mastered:   row.Mastered,
		Due:        row.Due,
		LastScore:  row.LastScore,
		FSRS:       card,
	}
	if row.LastReviewedAt.Valid {
		rec.LastReviewedAt = row.LastReviewedAt.Time
	}
	return rec, nil
}

func toAttempts(rows []attemptRow) []Attempt {
	attempts := make([]Attempt, 0, len(rows))
	for _, row := range rows {
		attempts = append(attempts, Attempt(row))
	}
	return attempts
}
