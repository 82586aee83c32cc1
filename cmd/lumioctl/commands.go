package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lumio-app/lumio/internal/deck"
	"github.com/lumio-app/lumio/internal/grader"
)

var decksCmd = &cobra.Command{
	Use:   "decks",
	Short: "List decks with due and mastered counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := newService()
		if err != nil {
			return err
		}
		defer cleanup()

		decks, err := svc.ListDecks(time.Now())
		if err != nil {
			return err
		}
		if len(decks) == 0 {
			fmt.Println("No decks found. Put *.json deck files in the decks directory.")
			return nil
		}

		fmt.Printf("%-24s %-32s %9s %5s %9s\n", "ID", "NAME", "QUESTIONS", "DUE", "MASTERED")
		for _, d := range decks {
			fmt.Printf("%-24s %-32s %9d %5d %9d\n", d.ID, d.Name, d.Questions, d.Due, d.Mastered)
		}
		return nil
	},
}

var sessionCmd = &cobra.Command{
	Use:   "session [deck-id ...]",
	Short: "Run today's study session interactively",
	Long: `Builds today's session for the given decks (all decks when none are
named) and prompts for an answer to each question in turn.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := newService()
		if err != nil {
			return err
		}
		defer cleanup()

		items, err := svc.BuildSession(args, time.Now())
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("Nothing due today. Come back tomorrow.")
			return nil
		}

		reader := bufio.NewReader(os.Stdin)
		passed := 0
		for i, item := range items {
			fmt.Printf("\n[%d/%d] %s\n%s\n> ", i+1, len(items), item.DeckName, item.Question.Prompt)

			answer, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("cannot read answer: %w", err)
			}

			verdict, err := svc.SubmitAnswer(item.DeckID, item.Question.ID, strings.TrimSpace(answer), time.Now())
			if err != nil {
				return err
			}
			printVerdict(verdict.Result, item.Question, verdict.Points)
			if verdict.Result.Passed {
				passed++
			}
		}

		fmt.Printf("\nSession done: %d/%d passed.\n", passed, len(items))
		return nil
	},
}

var answerCmd = &cobra.Command{
	Use:   "answer <deck-id> <question-id> <answer text>",
	Short: "Grade a single answer",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := newService()
		if err != nil {
			return err
		}
		defer cleanup()

		verdict, err := svc.SubmitAnswer(args[0], args[1], strings.Join(args[2:], " "), time.Now())
		if err != nil {
			return err
		}

		d, err := svc.Deck(args[0])
		if err != nil {
			return err
		}
		q, _ := d.Question(args[1])
		printVerdict(verdict.Result, q, verdict.Points)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show overall progress statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := newService()
		if err != nil {
			return err
		}
		defer cleanup()

		stats, err := svc.OverallStats(time.Now())
		if err != nil {
			return err
		}

		fmt.Printf("Questions:      %d\n", stats.TotalQuestions)
		fmt.Printf("Due today:      %d\n", stats.DueToday)
		fmt.Printf("Mastered:       %d\n", stats.Mastered)
		fmt.Printf("Attempts today: %d\n", stats.AttemptsToday)
		if stats.AttemptsToday > 0 {
			fmt.Printf("Retention:      %.1f%%\n", stats.RetentionRate)
		}
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file.xlsx|file.csv>",
	Short: "Import a deck from a spreadsheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := newService()
		if err != nil {
			return err
		}
		defer cleanup()

		cfg := deck.DefaultImportConfig()
		cfg.FilePath = args[0]
		deckID, _ := cmd.Flags().GetString("deck-id")

		d, result, err := svc.ImportDeck(cfg, deckID)
		if err != nil {
			return err
		}

		fmt.Printf("Imported deck %q (%s): %d questions, %d skipped.\n",
			d.ID, d.Name, result.Imported, result.Skipped)
		for _, e := range result.Errors {
			fmt.Fprintf(os.Stderr, "  %s\n", e)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().String("deck-id", "", "ID for the new deck (defaults to the file name)")
}

func printVerdict(result grader.Result, q deck.Question, points int) {
	status := "FAILED"
	if result.Passed {
		status = "PASSED"
	}
	fmt.Printf("\n%s  score %.1f%% (coverage %.1f%%, needs >= %.1f%%)\n",
		status, result.Effective*100, result.Coverage*100, q.PassRatio*100)
	fmt.Printf("Words: %d (min %d)   Rubric: %d/%d groups   Points: %d\n",
		result.WordCount, q.MinWords, result.HitCount, result.Total, points)

	for i, group := range q.Rubric {
		label := fmt.Sprintf("group %d", i+1)
		if len(group) > 0 {
			label = group[0]
		}
		if i < len(result.Groups) && result.Groups[i].Hit {
			fmt.Printf("  [x] %s (matched: %q)\n", label, result.Groups[i].Matched)
		} else {
			fmt.Printf("  [ ] %s\n", label)
		}
	}

	if q.Example != "" {
		fmt.Printf("Example answer:\n%s\n", q.Example)
	}
}
