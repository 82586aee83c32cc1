// Command lumioctl is a terminal front end for the Lumio trainer.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lumio-app/lumio/internal/config"
	"github.com/lumio-app/lumio/internal/deck"
	"github.com/lumio-app/lumio/internal/scheduler"
	"github.com/lumio-app/lumio/internal/storage"
	"github.com/lumio-app/lumio/internal/trainer"
)

var rootCmd = &cobra.Command{
	Use:   "lumioctl",
	Short: "A flashcard trainer for free-text questions",
	Long: `Lumioctl runs study sessions over decks of free-text questions.
Answers are graded against keyword rubrics; progress, points, and
due dates persist between sessions.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func main() {
	rootCmd.AddCommand(decksCmd, sessionCmd, answerCmd, statsCmd, importCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// newService builds a Service from the environment configuration. The
// returned cleanup func closes the store.
func newService() (*trainer.Service, func(), error) {
	cfg := config.Load()

	var store storage.Store
	switch cfg.Store {
	case "", "file":
		fs := storage.NewFileStore(cfg.ProgressPath)
		if err := fs.Load(); err != nil {
			return nil, nil, fmt.Errorf("cannot load progress file: %w", err)
		}
		store = fs
	case "sqlite":
		ss, err := storage.NewSQLiteStore(cfg.ProgressPath)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot open progress database: %w", err)
		}
		store = ss
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store)
	}

	decks, report, err := deck.LoadDir(cfg.DecksDir)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("cannot load decks: %w", err)
	}
	for _, skipped := range report.Skipped {
		fmt.Fprintf(os.Stderr, "Skipping malformed deck %s: %v\n", skipped.File, skipped.Err)
	}

	strategy, err := scheduler.ByName(cfg.Strategy)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	svc := trainer.New(decks, store, strategy, trainer.Options{
		DailyQuota:    cfg.DailyQuota,
		MasteryStreak: cfg.MasteryStreak,
		DecksDir:      cfg.DecksDir,
		Logger:        zap.NewNop(), // keep terminal output clean
	})
	return svc, func() { store.Close() }, nil
}
