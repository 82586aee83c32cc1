// Package session builds the daily question session across selected decks.
package session

import (
	"time"

	"github.com/lumio-app/lumio/internal/deck"
	"github.com/lumio-app/lumio/internal/storage"
)

// Item is one question scheduled into a session.
type Item struct {
	DeckID   string        `json:"deck_id"`
	DeckName string        `json:"deck_name"`
	Question deck.Question `json:"question"`
}

// ProgressFunc looks up the progress record for a question. The second
// return value is false when the question has never been reviewed, in which
// case it is due immediately.
type ProgressFunc func(deckID, questionID string) (storage.Record, bool)

// Build computes the daily session: for each deck, the questions due today
// or earlier (capped at quota per deck, 0 meaning no cap), merged
// round-robin across decks so no single deck dominates the session.
// Mastered questions and questions that reached their repeat limit are
// excluded.
func Build(decks []deck.Deck, progress ProgressFunc, now time.Time, quota int) []Item {
	endOfToday := startOfDay(now).AddDate(0, 0, 1)

	perDeck := make([][]Item, 0, len(decks))
	for _, d := range decks {
		var due []Item
		for _, q := range d.Questions {
			if quota > 0 && len(due) == quota {
				break
			}
			rec, ok := progress(d.ID, q.ID)
			if ok {
				if rec.Mastered {
					continue
				}
				if q.MaxRepeats > 0 && rec.Attempts >= q.MaxRepeats {
					continue
				}
				if !rec.Due.Before(endOfToday) {
					continue
				}
			}
			due = append(due, Item{DeckID: d.ID, DeckName: d.Name, Question: q})
		}
		if len(due) > 0 {
			perDeck = append(perDeck, due)
		}
	}

	return interleave(perDeck)
}

// interleave merges per-deck item lists round-robin, preserving each deck's
// internal order.
func interleave(perDeck [][]Item) []Item {
	total := 0
	for _, items := range perDeck {
		total += len(items)
	}

	merged := make([]Item, 0, total)
	for i := 0; len(merged) < total; i++ {
		for _, items := range perDeck {
			if i < len(items) {
				merged = append(merged, items[i])
			}
		}
	}
	return merged
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
