// Package config loads trainer settings from the environment, with optional
// .env file support.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings for the trainer.
type Config struct {
	// Directory containing *.json deck files
	DecksDir string
	// Path to the progress file (JSON store) or database (sqlite store)
	ProgressPath string
	// Progress store backend: "file" or "sqlite"
	Store string
	// Per-deck daily question quota; 0 takes every due question
	DailyQuota int
	// Consecutive passes required before a question counts as mastered
	MasteryStreak int
	// Spacing strategy: "doubling" or "fsrs"
	Strategy string
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		DecksDir:      "./decks",
		ProgressPath:  "./progress.json",
		Store:         "file",
		DailyQuota:    10,
		MasteryStreak: 2,
		Strategy:      "doubling",
	}
}

// Load reads configuration from a .env file (if present) and LUMIO_*
// environment variables, falling back to defaults.
func Load() Config {
	// Missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg := Default()
	if v := os.Getenv("LUMIO_DECKS_DIR"); v != "" {
		cfg.DecksDir = v
	}
	if v := os.Getenv("LUMIO_PROGRESS_PATH"); v != "" {
		cfg.ProgressPath = v
	}
	if v := os.Getenv("LUMIO_STORE"); v != "" {
		cfg.Store = v
	}
	if v, err := strconv.Atoi(os.Getenv("LUMIO_DAILY_QUOTA")); err == nil && v >= 0 {
		cfg.DailyQuota = v
	}
	if v, err := strconv.Atoi(os.Getenv("LUMIO_MASTERY_STREAK")); err == nil && v > 0 {
		cfg.MasteryStreak = v
	}
	if v := os.Getenv("LUMIO_STRATEGY"); v != "" {
		cfg.Strategy = v
	}
	return cfg
}
