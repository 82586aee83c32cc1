// Package storage persists per-question progress records and attempt logs.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/open-spaced-repetition/go-fsrs"
)

// Record tracks mastery progress for one (deck, question) pair. It is owned
// by the store; decks reference it by key lookup, never by embedding.
type Record struct {
	DeckID         string    `json:"deck_id"`
	QuestionID     string    `json:"question_id"`
	Attempts       int       `json:"attempts"`
	Fails          int       `json:"fails"`
	Points         int       `json:"points"`
	Streak         int       `json:"streak"`
	Mastered       bool      `json:"mastered"`
	Due            time.Time `json:"due"`
	LastScore      float64   `json:"last_score"`
	LastReviewedAt time.Time `json:"last_reviewed_at,omitempty"`
	// Scheduling state for the FSRS spacing strategy; unused (zero) under
	// the fixed-interval strategy.
	FSRS fsrs.Card `json:"fsrs"`
}

// Key returns the composite map key for this record.
func (r Record) Key() string {
	return RecordKey(r.DeckID, r.QuestionID)
}

// RecordKey builds the composite key for a (deck, question) pair.
func RecordKey(deckID, questionID string) string {
	return deckID + "/" + questionID
}

// Attempt is one graded answer, kept as an append-only log entry.
type Attempt struct {
	ID         string    `json:"id"`
	DeckID     string    `json:"deck_id"`
	QuestionID string    `json:"question_id"`
	Passed     bool      `json:"passed"`
	Score      float64   `json:"score"`
	Answer     string    `json:"answer,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// progressFile is the document stored in the JSON progress file.
type progressFile struct {
	Records     map[string]Record `json:"records"`
	Attempts    []Attempt         `json:"attempts"`
	LastUpdated time.Time         `json:"last_updated"`
}

// ErrRecordNotFound is returned when no progress record exists for a key.
var ErrRecordNotFound = errors.New("progress record not found")

// Store is the persistence interface for progress data.
type Store interface {
	// Record operations
	GetRecord(deckID, questionID string) (Record, error)
	PutRecord(rec Record) error
	ListRecords(deckID string) ([]Record, error)

	// Attempt log operations
	AddAttempt(a Attempt) error
	AttemptsFor(deckID, questionID string) ([]Attempt, error)
	AttemptsSince(since time.Time) ([]Attempt, error)

	// Lifecycle operations
	Load() error
	Save() error
	Close() error
}

// FileStore implements Store using a single JSON file, read whole at startup
// and written whole after updates.
type FileStore struct {
	filePath string
	store    progressFile
	mu       sync.RWMutex
}

// NewFileStore creates a FileStore for the given path. Call Load before use.
func NewFileStore(filePath string) *FileStore {
	return &FileStore{
		filePath: filePath,
		store: progressFile{
			Records:  make(map[string]Record),
			Attempts: []Attempt{},
		},
	}
}

// GetRecord retrieves the record for a (deck, question) pair.
func (fs *FileStore) GetRecord(deckID, questionID string) (Record, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	rec, exists := fs.store.Records[RecordKey(deckID, questionID)]
	if !exists {
		return Record{}, ErrRecordNotFound
	}
	return rec, nil
}

// PutRecord inserts or replaces a record.
func (fs *FileStore) PutRecord(rec Record) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if rec.DeckID == "" || rec.QuestionID == "" {
		return errors.New("record deck_id and question_id are required")
	}
	fs.store.Records[rec.Key()] = rec
	fs.store.LastUpdated = time.Now()
	return nil
}

// ListRecords returns all records, or only those for deckID when non-empty.
func (fs *FileStore) ListRecords(deckID string) ([]Record, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	result := make([]Record, 0, len(fs.store.Records))
	for _, rec := range fs.store.Records {
		if deckID == "" || rec.DeckID == deckID {
			result = append(result, rec)
		}
	}
	return result, nil
}

// AddAttempt appends an attempt to the log.
func (fs *FileStore) AddAttempt(a Attempt) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if a.ID == "" {
		return errors.New("attempt id is required")
	}
	fs.store.Attempts = append(fs.store.Attempts, a)
	fs.store.LastUpdated = time.Now()
	return nil
}

// AttemptsFor returns the attempt log for a (deck, question) pair.
func (fs *FileStore) AttemptsFor(deckID, questionID string) ([]Attempt, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	var attempts []Attempt
	for _, a := range fs.store.Attempts {
		if a.DeckID == deckID && a.QuestionID == questionID {
			attempts = append(attempts, a)
		}
	}
	return attempts, nil
}

// AttemptsSince returns all attempts recorded at or after the given time.
func (fs *FileStore) AttemptsSince(since time.Time) ([]Attempt, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	var attempts []Attempt
	for _, a := range fs.store.Attempts {
		if !a.Timestamp.Before(since) {
			attempts = append(attempts, a)
		}
	}
	return attempts, nil
}

// save writes the store to disk. Assumes the write lock is held.
func (fs *FileStore) save() error {
	if fs.store.Records == nil {
		fs.store.Records = make(map[string]Record)
	}
	if fs.store.Attempts == nil {
		fs.store.Attempts = []Attempt{}
	}
	fs.store.LastUpdated = time.Now()

	dataBytes, err := json.MarshalIndent(fs.store, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal progress data: %w", err)
	}

	dir := filepath.Dir(fs.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write to a temporary file and rename so a crash mid-write cannot
	// leave a truncated progress file behind.
	tempFile := fs.filePath + ".tmp"
	if err := os.WriteFile(tempFile, dataBytes, 0644); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tempFile, fs.filePath); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

// Load reads the progress file. A missing or empty file means no progress
// yet and initializes a fresh store.
func (fs *FileStore) Load() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, err := os.Stat(fs.filePath); os.IsNotExist(err) {
		fs.store = progressFile{
			Records:  make(map[string]Record),
			Attempts: []Attempt{},
		}
		if saveErr := fs.save(); saveErr != nil {
			return fmt.Errorf("failed to save initial empty store: %w", saveErr)
		}
		return nil
	}

	data, err := os.ReadFile(fs.filePath)
	if err != nil {
		return fmt.Errorf("failed to read progress file: %w", err)
	}

	if len(data) == 0 {
		fs.store = progressFile{
			Records:  make(map[string]Record),
			Attempts: []Attempt{},
		}
		return nil
	}

	var store progressFile
	if err := json.Unmarshal(data, &store); err != nil {
		return fmt.Errorf("failed to unmarshal progress data: %w", err)
	}

	if store.Records == nil {
		store.Records = make(map[string]Record)
	}
	if store.Attempts == nil {
		store.Attempts = []Attempt{}
	}

	fs.store = store
	return nil
}

// Save writes the progress data to the file atomically.
func (fs *FileStore) Save() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.save()
}

// Close is a no-op for the file store.
func (fs *FileStore) Close() error {
	return nil
}
