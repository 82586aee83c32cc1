package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/lumio-app/lumio/internal/deck"
	"github.com/lumio-app/lumio/internal/storage"
)

var testNow = time.Date(2025, 6, 10, 14, 30, 0, 0, time.UTC)

// deckOf builds a deck with n questions q1..qn.
func deckOf(id string, n int) deck.Deck {
	questions := make([]deck.Question, n)
	for i := range questions {
		questions[i] = deck.Question{
			ID:        fmt.Sprintf("q%d", i+1),
			Prompt:    fmt.Sprintf("prompt %d", i+1),
			Rubric:    []deck.Group{{"keyword"}},
			MinWords:  5,
			PassRatio: 0.7,
		}
	}
	return deck.Deck{ID: id, Name: id, Questions: questions}
}

// noProgress reports every question as never reviewed (due immediately).
func noProgress(deckID, questionID string) (storage.Record, bool) {
	return storage.Record{}, false
}

func TestBuildCapsAtQuota(t *testing.T) {
	decks := []deck.Deck{deckOf("a", 12)}

	items := Build(decks, noProgress, testNow, 5)
	if len(items) != 5 {
		t.Errorf("Expected session of 5 items, got %d", len(items))
	}
}

func TestBuildTakesAllWhenFewerThanQuota(t *testing.T) {
	decks := []deck.Deck{deckOf("a", 3)}

	items := Build(decks, noProgress, testNow, 10)
	if len(items) != 3 {
		t.Errorf("Expected session of 3 items, got %d", len(items))
	}
}

func TestBuildZeroQuotaIsUnlimited(t *testing.T) {
	decks := []deck.Deck{deckOf("a", 25)}

	items := Build(decks, noProgress, testNow, 0)
	if len(items) != 25 {
		t.Errorf("Expected session of 25 items, got %d", len(items))
	}
}

func TestBuildEmptyWhenNothingDue(t *testing.T) {
	decks := []deck.Deck{deckOf("a", 4)}
	tomorrow := testNow.AddDate(0, 0, 1)
	progress := func(deckID, questionID string) (storage.Record, bool) {
		return storage.Record{DeckID: deckID, QuestionID: questionID, Due: tomorrow.AddDate(0, 0, 1)}, true
	}

	items := Build(decks, progress, testNow, 10)
	if len(items) != 0 {
		t.Errorf("Expected empty session, got %d items", len(items))
	}
}

func TestBuildIncludesDueToday(t *testing.T) {
	decks := []deck.Deck{deckOf("a", 2)}
	// Due earlier today: still counts as due.
	dueToday := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	progress := func(deckID, questionID string) (storage.Record, bool) {
		return storage.Record{DeckID: deckID, QuestionID: questionID, Due: dueToday, Attempts: 1}, true
	}

	items := Build(decks, progress, testNow, 10)
	if len(items) != 2 {
		t.Errorf("Expected 2 due items, got %d", len(items))
	}
}

func TestBuildExcludesMastered(t *testing.T) {
	decks := []deck.Deck{deckOf("a", 3)}
	progress := func(deckID, questionID string) (storage.Record, bool) {
		rec := storage.Record{DeckID: deckID, QuestionID: questionID}
		if questionID == "q2" {
			rec.Mastered = true
		}
		return rec, true
	}

	items := Build(decks, progress, testNow, 10)
	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(items))
	}
	for _, item := range items {
		if item.Question.ID == "q2" {
			t.Error("Expected mastered question q2 to be excluded")
		}
	}
}

func TestBuildExcludesExhaustedRepeats(t *testing.T) {
	d := deckOf("a", 2)
	d.Questions[0].MaxRepeats = 3
	progress := func(deckID, questionID string) (storage.Record, bool) {
		return storage.Record{DeckID: deckID, QuestionID: questionID, Attempts: 3}, true
	}

	items := Build([]deck.Deck{d}, progress, testNow, 10)
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}
	if items[0].Question.ID != "q2" {
		t.Errorf("Expected q2 to remain, got %s", items[0].Question.ID)
	}
}

func TestBuildRoundRobinAcrossDecks(t *testing.T) {
	decks := []deck.Deck{deckOf("a", 3), deckOf("b", 3), deckOf("c", 2)}

	items := Build(decks, noProgress, testNow, 10)
	if len(items) != 8 {
		t.Fatalf("Expected 8 items, got %d", len(items))
	}

	wantDecks := []string{"a", "b", "c", "a", "b", "c", "a", "b"}
	for i, want := range wantDecks {
		if items[i].DeckID != want {
			t.Errorf("Position %d: expected deck %s, got %s", i, want, items[i].DeckID)
		}
	}
}

// assertFair verifies the fairness property: a deck never contributes two
// consecutive items while another deck still has items remaining later in
// the session.
func assertFair(t *testing.T, items []Item) {
	t.Helper()
	for i := 0; i+1 < len(items); i++ {
		if items[i].DeckID != items[i+1].DeckID {
			continue
		}
		for j := i + 2; j < len(items); j++ {
			if items[j].DeckID != items[i].DeckID {
				t.Fatalf("Deck %s contributed positions %d and %d consecutively while deck %s still had items",
					items[i].DeckID, i, i+1, items[j].DeckID)
			}
		}
	}
}

func TestBuildFairnessUnevenDecks(t *testing.T) {
	decks := []deck.Deck{deckOf("a", 1), deckOf("b", 5), deckOf("c", 3)}

	items := Build(decks, noProgress, testNow, 0)
	if len(items) != 9 {
		t.Fatalf("Expected 9 items, got %d", len(items))
	}
	assertFair(t, items)
}

func TestBuildPreservesDeckOrder(t *testing.T) {
	decks := []deck.Deck{deckOf("a", 4)}

	items := Build(decks, noProgress, testNow, 0)
	for i, item := range items {
		want := fmt.Sprintf("q%d", i+1)
		if item.Question.ID != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, item.Question.ID)
		}
	}
}
