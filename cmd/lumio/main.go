package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lumio-app/lumio/internal/config"
	"github.com/lumio-app/lumio/internal/deck"
	"github.com/lumio-app/lumio/internal/scheduler"
	"github.com/lumio-app/lumio/internal/storage"
	"github.com/lumio-app/lumio/internal/trainer"
)

const lumioServerInfo = `
This is Lumio, a flashcard trainer for free-text questions graded against
keyword rubrics. Follow this study workflow:

1. SESSION PHASE:
   - Call get_session for the decks the student selected
   - Present one question prompt at a time, in the order returned
   - Never reveal the example answer before the student has responded

2. ANSWER PHASE:
   - Collect the student's free-text answer and call submit_answer
   - The verdict reports pass/fail, the word count check, and which rubric
     groups were matched

3. FEEDBACK PHASE:
   - Show the pass/fail verdict and coverage, then the example answer
   - For unmatched rubric groups, point out what the answer was missing
   - Failed questions come back in a later session automatically

4. PROGRESS PHASE:
   - Use get_progress for attempts, fails, points, streaks, and mastery
   - A question is mastered after consecutive passes and leaves the rotation
`

func main() {
	cfg := config.Load()

	decksDir := flag.String("decks", cfg.DecksDir, "Path to the decks directory")
	progressPath := flag.String("progress", cfg.ProgressPath, "Path to the progress file or database")
	storeKind := flag.String("store", cfg.Store, "Progress store backend: file or sqlite")
	strategyName := flag.String("strategy", cfg.Strategy, "Spacing strategy: doubling or fsrs")
	quota := flag.Int("quota", cfg.DailyQuota, "Per-deck daily question quota (0 = unlimited)")
	flag.Parse()

	store, err := openStore(*storeKind, *progressPath)
	if err != nil {
		fmt.Printf("Error opening progress store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	decks, report, err := deck.LoadDir(*decksDir)
	if err != nil {
		fmt.Printf("Error loading decks: %v\n", err)
		os.Exit(1)
	}
	for _, skipped := range report.Skipped {
		fmt.Fprintf(os.Stderr, "Skipping malformed deck %s: %v\n", skipped.File, skipped.Err)
	}

	strategy, err := scheduler.ByName(*strategyName)
	if err != nil {
		fmt.Printf("Error selecting spacing strategy: %v\n", err)
		os.Exit(1)
	}

	svc := trainer.New(decks, store, strategy, trainer.Options{
		DailyQuota:    *quota,
		MasteryStreak: cfg.MasteryStreak,
		DecksDir:      *decksDir,
	})

	s := server.NewMCPServer(
		"Lumio Trainer MCP",
		"1.0.0",
		server.WithInstructions(lumioServerInfo),
		server.WithResourceCapabilities(true, true),
		server.WithToolCapabilities(true),
		server.WithLogging(),
	)

	// Context with the service for tool handlers
	ctx := context.WithValue(context.Background(), "service", svc)

	listDecksTool := mcp.NewTool("list_decks",
		mcp.WithDescription(
			"List all loaded decks with question, due, and mastered counts. "+
				"Use this first so the student can pick which decks to study.",
		),
	)

	getSessionTool := mcp.NewTool("get_session",
		mcp.WithDescription(
			"Build today's study session for the selected decks. "+
				"Returns the due questions (capped per deck at the daily quota), "+
				"interleaved across decks so no single deck dominates. "+
				"Present the prompts one at a time and do NOT reveal example answers.",
		),
		mcp.WithArray("deck_ids",
			mcp.Description("Deck IDs to include; empty selects all decks"),
		),
	)

	submitAnswerTool := mcp.NewTool("submit_answer",
		mcp.WithDescription(
			"Grade the student's free-text answer for a question. "+
				"The verdict includes pass/fail, word count vs minimum, matched "+
				"rubric groups, points, the example answer, and the updated "+
				"progress record. Show the verdict before the example answer.",
		),
		mcp.WithString("deck_id",
			mcp.Required(),
			mcp.Description("The deck the question belongs to"),
		),
		mcp.WithString("question_id",
			mcp.Required(),
			mcp.Description("The ID of the question being answered"),
		),
		mcp.WithString("answer",
			mcp.Required(),
			mcp.Description("The student's free-text answer"),
		),
	)

	getProgressTool := mcp.NewTool("get_progress",
		mcp.WithDescription(
			"Get progress statistics: overall totals, or per-question records "+
				"for one deck when deck_id is given.",
		),
		mcp.WithString("deck_id",
			mcp.Description("Limit to one deck's per-question records"),
		),
	)

	importDeckTool := mcp.NewTool("import_deck",
		mcp.WithDescription(
			"Import a new deck from an XLSX or CSV file into the decks "+
				"directory. Columns: A=id, B=prompt, C=rubric (groups separated "+
				"by ';', keywords within a group by '|'), D=min_words, "+
				"E=pass_ratio, F=example.",
		),
		mcp.WithString("file",
			mcp.Required(),
			mcp.Description("Path to the XLSX or CSV file"),
		),
		mcp.WithString("deck_id",
			mcp.Description("ID for the new deck; defaults to the file name"),
		),
	)

	s.AddTool(listDecksTool, func(reqCtx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleListDecks(ctx, request)
	})
	s.AddTool(getSessionTool, func(reqCtx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleGetSession(ctx, request)
	})
	s.AddTool(submitAnswerTool, func(reqCtx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleSubmitAnswer(ctx, request)
	})
	s.AddTool(getProgressTool, func(reqCtx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleGetProgress(ctx, request)
	})
	s.AddTool(importDeckTool, func(reqCtx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleImportDeck(ctx, request)
	})

	if err := server.ServeStdio(s); err != nil {
		log.Fatalf("Error serving MCP server: %v", err)
	}
}

// openStore builds the configured progress store backend and loads it.
func openStore(kind, path string) (storage.Store, error) {
	switch kind {
	case "", "file":
		fs := storage.NewFileStore(path)
		if err := fs.Load(); err != nil {
			return nil, err
		}
		return fs, nil
	case "sqlite":
		return storage.NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown store backend %q", kind)
	}
}
