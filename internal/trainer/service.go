// Package trainer wires decks, grading, session building, spacing, and
// progress persistence into one service.
package trainer

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lumio-app/lumio/internal/deck"
	"github.com/lumio-app/lumio/internal/grader"
	"github.com/lumio-app/lumio/internal/scheduler"
	"github.com/lumio-app/lumio/internal/session"
	"github.com/lumio-app/lumio/internal/storage"
)

// ErrDeckNotFound is returned for operations on an unknown deck ID.
var ErrDeckNotFound = errors.New("deck not found")

// ErrQuestionNotFound is returned for operations on an unknown question ID.
var ErrQuestionNotFound = errors.New("question not found")

// Options configures a Service.
type Options struct {
	// Per-deck daily quota; 0 means take every due question
	DailyQuota int
	// Consecutive passes required to mark a question mastered
	MasteryStreak int
	// Directory new decks are imported into
	DecksDir string
	// Logger; a development zap logger is built when nil
	Logger *zap.Logger
}

// Service manages study sessions and progress for a set of loaded decks.
type Service struct {
	Storage  storage.Store
	Strategy scheduler.Strategy
	Logger   *zap.Logger

	decks         map[string]deck.Deck
	order         []string
	quota         int
	masteryStreak int
	decksDir      string
}

// New creates a Service over the given decks, store, and spacing strategy.
func New(decks []deck.Deck, store storage.Store, strategy scheduler.Strategy, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logConfig := zap.NewDevelopmentConfig()
		logConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		built, err := logConfig.Build(zap.AddStacktrace(zapcore.ErrorLevel))
		if err != nil {
			fmt.Printf("Error initializing zap logger: %v. Falling back to no-op logger.\n", err)
			built = zap.NewNop()
		}
		logger = built
	}

	byID := make(map[string]deck.Deck, len(decks))
	order := make([]string, 0, len(decks))
	for _, d := range decks {
		byID[d.ID] = d
		order = append(order, d.ID)
	}

	masteryStreak := opts.MasteryStreak
	if masteryStreak <= 0 {
		masteryStreak = 2
	}

	return &Service{
		Storage:       store,
		Strategy:      strategy,
		Logger:        logger,
		decks:         byID,
		order:         order,
		quota:         opts.DailyQuota,
		masteryStreak: masteryStreak,
		decksDir:      opts.DecksDir,
	}
}

// DeckSummary describes one deck and its current progress counts.
type DeckSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Questions int    `json:"questions"`
	Due       int    `json:"due"`
	Mastered  int    `json:"mastered"`
}

// ListDecks returns summaries for all loaded decks in load order.
func (s *Service) ListDecks(now time.Time) ([]DeckSummary, error) {
	summaries := make([]DeckSummary, 0, len(s.order))
	for _, id := range s.order {
		d := s.decks[id]
		summary := DeckSummary{ID: d.ID, Name: d.Name, Questions: len(d.Questions)}

		endOfToday := startOfDay(now).AddDate(0, 0, 1)
		for _, q := range d.Questions {
			rec, err := s.Storage.GetRecord(d.ID, q.ID)
			if err == storage.ErrRecordNotFound {
				summary.Due++
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("error reading progress for deck %s: %w", d.ID, err)
			}
			if rec.Mastered {
				summary.Mastered++
			} else if rec.Due.Before(endOfToday) {
				summary.Due++
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Deck returns the loaded deck with the given ID.
func (s *Service) Deck(deckID string) (deck.Deck, error) {
	d, ok := s.decks[deckID]
	if !ok {
		return deck.Deck{}, fmt.Errorf("%w: %s", ErrDeckNotFound, deckID)
	}
	return d, nil
}

// BuildSession computes today's session across the selected decks. An empty
// deckIDs slice selects every loaded deck. The session interleaves decks
// round-robin and caps each deck's contribution at the daily quota.
func (s *Service) BuildSession(deckIDs []string, now time.Time) ([]session.Item, error) {
	if len(deckIDs) == 0 {
		deckIDs = s.order
	}

	selected := make([]deck.Deck, 0, len(deckIDs))
	for _, id := range deckIDs {
		d, ok := s.decks[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrDeckNotFound, id)
		}
		selected = append(selected, d)
	}

	progress := func(deckID, questionID string) (storage.Record, bool) {
		rec, err := s.Storage.GetRecord(deckID, questionID)
		if err != nil {
			return storage.Record{}, false
		}
		return rec, true
	}

	items := session.Build(selected, progress, now, s.quota)
	s.Logger.Debug("built session",
		zap.Strings("decks", deckIDs),
		zap.Int("quota", s.quota),
		zap.Int("items", len(items)))
	return items, nil
}

// Verdict is the feedback for one submitted answer.
type Verdict struct {
	Result  grader.Result  `json:"result"`
	Points  int            `json:"points"`
	Example string         `json:"example,omitempty"`
	Record  storage.Record `json:"record"`
}

// SubmitAnswer grades an answer, updates the question's progress record
// (attempts, fails, points, streak, mastery, due date), logs the attempt,
// and persists the store.
func (s *Service) SubmitAnswer(deckID, questionID, answer string, now time.Time) (Verdict, error) {
	d, ok := s.decks[deckID]
	if !ok {
		return Verdict{}, fmt.Errorf("%w: %s", ErrDeckNotFound, deckID)
	}
	q, ok := d.Question(questionID)
	if !ok {
		return Verdict{}, fmt.Errorf("%w: %s/%s", ErrQuestionNotFound, deckID, questionID)
	}

	result := grader.Grade(q, answer)
	points := grader.Points(result)

	rec, err := s.Storage.GetRecord(deckID, questionID)
	if err == storage.ErrRecordNotFound {
		rec = storage.Record{DeckID: deckID, QuestionID: questionID}
	} else if err != nil {
		return Verdict{}, fmt.Errorf("error getting progress record: %w", err)
	}

	rec.Attempts++
	rec.LastScore = result.Effective
	rec.LastReviewedAt = now
	if result.Passed {
		rec.Streak++
		rec.Points += points
		if rec.Streak >= s.masteryStreak {
			rec.Mastered = true
		}
	} else {
		rec.Fails++
		rec.Streak = 0
	}

	outcome := s.Strategy.Next(rec, result.Passed, now)
	rec.Due = outcome.Due
	rec.FSRS = outcome.FSRS

	s.Logger.Debug("graded answer",
		zap.String("deck_id", deckID),
		zap.String("question_id", questionID),
		zap.Bool("passed", result.Passed),
		zap.Float64("effective", result.Effective),
		zap.Int("streak", rec.Streak),
		zap.Time("due", rec.Due))

	if err := s.Storage.PutRecord(rec); err != nil {
		return Verdict{}, fmt.Errorf("error updating progress record: %w", err)
	}

	attempt := storage.Attempt{
		ID:         uuid.New().String(),
		DeckID:     deckID,
		QuestionID: questionID,
		Passed:     result.Passed,
		Score:      result.Effective,
		Answer:     answer,
		Timestamp:  now,
	}
	if err := s.Storage.AddAttempt(attempt); err != nil {
		return Verdict{}, fmt.Errorf("error logging attempt: %w", err)
	}

	if err := s.Storage.Save(); err != nil {
		return Verdict{}, fmt.Errorf("error saving progress: %w", err)
	}

	return Verdict{
		Result:  result,
		Points:  points,
		Example: q.Example,
		Record:  rec,
	}, nil
}

// Stats aggregates progress over all decks.
type Stats struct {
	TotalQuestions int     `json:"total_questions"`
	DueToday       int     `json:"due_today"`
	Mastered       int     `json:"mastered"`
	AttemptsToday  int     `json:"attempts_today"`
	RetentionRate  float64 `json:"retention_rate"`
}

// OverallStats computes totals across every loaded deck, plus today's
// attempt count and retention (passed attempts / attempts today).
func (s *Service) OverallStats(now time.Time) (Stats, error) {
	var stats Stats

	summaries, err := s.ListDecks(now)
	if err != nil {
		return Stats{}, err
	}
	for _, sum := range summaries {
		stats.TotalQuestions += sum.Questions
		stats.DueToday += sum.Due
		stats.Mastered += sum.Mastered
	}

	attempts, err := s.Storage.AttemptsSince(startOfDay(now))
	if err != nil {
		return Stats{}, fmt.Errorf("error reading attempt log: %w", err)
	}
	passed := 0
	for _, a := range attempts {
		if a.Passed {
			passed++
		}
	}
	stats.AttemptsToday = len(attempts)
	if len(attempts) > 0 {
		stats.RetentionRate = float64(passed) / float64(len(attempts)) * 100.0
	}
	return stats, nil
}

// DeckProgress returns the progress records for one deck.
func (s *Service) DeckProgress(deckID string) ([]storage.Record, error) {
	if _, ok := s.decks[deckID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeckNotFound, deckID)
	}
	return s.Storage.ListRecords(deckID)
}

// ImportDeck imports questions from a spreadsheet, writes them as a new
// deck file in the decks directory, and registers the deck.
func (s *Service) ImportDeck(cfg deck.ImportConfig, deckID string) (deck.Deck, *deck.ImportResult, error) {
	if deckID == "" {
		stem := filepath.Base(cfg.FilePath)
		deckID = stem[:len(stem)-len(filepath.Ext(stem))]
	}
	if _, exists := s.decks[deckID]; exists {
		return deck.Deck{}, nil, fmt.Errorf("deck %q already exists", deckID)
	}

	questions, result, err := deck.Import(cfg)
	if err != nil {
		return deck.Deck{}, nil, fmt.Errorf("error importing deck: %w", err)
	}
	if len(questions) == 0 {
		return deck.Deck{}, result, deck.ErrNoQuestions
	}

	path := filepath.Join(s.decksDir, deckID+".json")
	if err := deck.WriteDeckFile(path, questions); err != nil {
		return deck.Deck{}, result, err
	}

	d := deck.Deck{
		ID:        deckID,
		Name:      deck.PrettyName(deckID + ".json"),
		Path:      path,
		Questions: questions,
	}
	s.decks[d.ID] = d
	s.order = append(s.order, d.ID)

	s.Logger.Info("imported deck",
		zap.String("deck_id", d.ID),
		zap.Int("questions", len(questions)),
		zap.Int("skipped", result.Skipped))
	return d, result, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
