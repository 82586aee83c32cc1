// Package main provides the Lumio trainer MCP server.
package main

import (
	"github.com/lumio-app/lumio/internal/deck"
	"github.com/lumio-app/lumio/internal/session"
	"github.com/lumio-app/lumio/internal/storage"
	"github.com/lumio-app/lumio/internal/trainer"
)

// DeckListResponse is the response structure for list_decks.
type DeckListResponse struct {
	Decks []trainer.DeckSummary `json:"decks"`
}

// SessionResponse is the response structure for get_session.
type SessionResponse struct {
	Items []session.Item `json:"items"`
	Count int            `json:"count"`
}

// AnswerResponse is the response structure for submit_answer.
type AnswerResponse struct {
	Success bool            `json:"success"`
	Verdict trainer.Verdict `json:"verdict"`
}

// ProgressResponse is the response structure for get_progress.
type ProgressResponse struct {
	Stats   *trainer.Stats   `json:"stats,omitempty"`
	Records []storage.Record `json:"records,omitempty"`
}

// ImportResponse is the response structure for import_deck.
type ImportResponse struct {
	Success bool              `json:"success"`
	DeckID  string            `json:"deck_id"`
	Name    string            `json:"name"`
	Result  deck.ImportResult `json:"result"`
}
