// Package main provides the Lumio trainer MCP server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/lumio-app/lumio/internal/deck"
	"github.com/lumio-app/lumio/internal/trainer"
)

// handleListDecks handles the list_decks tool request by returning summaries
// for every loaded deck.
func handleListDecks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, ok := ctx.Value("service").(*trainer.Service)
	if !ok || s == nil {
		return mcp.NewToolResultError("Service not available"), nil
	}

	decks, err := s.ListDecks(time.Now())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error listing decks: %v", err)), nil
	}

	jsonBytes, err := json.MarshalIndent(DeckListResponse{Decks: decks}, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// handleGetSession handles the get_session tool request by building today's
// session across the selected decks. An empty session is a valid result and
// returned as such, for the client to render the empty state.
func handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, ok := ctx.Value("service").(*trainer.Service)
	if !ok || s == nil {
		return mcp.NewToolResultError("Service not available"), nil
	}

	var deckIDs []string
	if idsInterface, ok := request.Params.Arguments["deck_ids"].([]interface{}); ok {
		for _, id := range idsInterface {
			if idStr, ok := id.(string); ok {
				deckIDs = append(deckIDs, idStr)
			}
		}
	}

	items, err := s.BuildSession(deckIDs, time.Now())
	if err != nil {
		if errors.Is(err, trainer.ErrDeckNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("Unknown deck: %v", err)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Error building session: %v", err)), nil
	}

	jsonBytes, err := json.MarshalIndent(SessionResponse{Items: items, Count: len(items)}, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// handleSubmitAnswer handles the submit_answer tool request by grading the
// answer and updating the question's progress record.
func handleSubmitAnswer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	deckID, ok := request.Params.Arguments["deck_id"].(string)
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: deck_id"), nil
	}
	questionID, ok := request.Params.Arguments["question_id"].(string)
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: question_id"), nil
	}
	answer, ok := request.Params.Arguments["answer"].(string)
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: answer"), nil
	}

	s, ok := ctx.Value("service").(*trainer.Service)
	if !ok || s == nil {
		return mcp.NewToolResultError("Service not available"), nil
	}

	verdict, err := s.SubmitAnswer(deckID, questionID, answer, time.Now())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error submitting answer: %v", err)), nil
	}

	jsonBytes, err := json.MarshalIndent(AnswerResponse{Success: true, Verdict: verdict}, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// handleGetProgress handles the get_progress tool request. Without a
// deck_id it returns overall statistics; with one it returns the deck's
// per-question records.
func handleGetProgress(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, ok := ctx.Value("service").(*trainer.Service)
	if !ok || s == nil {
		return mcp.NewToolResultError("Service not available"), nil
	}

	deckID, _ := request.Params.Arguments["deck_id"].(string)

	var response ProgressResponse
	if deckID == "" {
		stats, err := s.OverallStats(time.Now())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Error computing stats: %v", err)), nil
		}
		response.Stats = &stats
	} else {
		records, err := s.DeckProgress(deckID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Error reading deck progress: %v", err)), nil
		}
		response.Records = records
	}

	jsonBytes, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// handleImportDeck handles the import_deck tool request by importing a
// spreadsheet into the decks directory.
func handleImportDeck(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	file, ok := request.Params.Arguments["file"].(string)
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: file"), nil
	}
	deckID, _ := request.Params.Arguments["deck_id"].(string)

	s, ok := ctx.Value("service").(*trainer.Service)
	if !ok || s == nil {
		return mcp.NewToolResultError("Service not available"), nil
	}

	cfg := deck.DefaultImportConfig()
	cfg.FilePath = file

	d, result, err := s.ImportDeck(cfg, deckID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error importing deck: %v", err)), nil
	}

	response := ImportResponse{
		Success: true,
		DeckID:  d.ID,
		Name:    d.Name,
		Result:  *result,
	}
	jsonBytes, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// handleProgressResource generates a resource with per-deck progress
// summaries so clients can show an overview without calling tools.
func handleProgressResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	s, ok := ctx.Value("service").(*trainer.Service)
	if !ok || s == nil {
		return nil, fmt.Errorf("service not available")
	}

	decks, err := s.ListDecks(time.Now())
	if err != nil {
		return nil, fmt.Errorf("error listing decks: %w", err)
	}

	jsonBytes, err := json.MarshalIndent(decks, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("error marshaling deck summaries: %w", err)
	}

	textContent := mcp.TextResourceContents{
		URI:      "deck-progress",
		MIMEType: "application/json",
		Text:     string(jsonBytes),
	}

	var contents []mcp.ResourceContents
	contents = append(contents, textContent)
	return contents, nil
}
