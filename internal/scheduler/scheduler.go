// Package scheduler provides pluggable spacing strategies that decide when
// a question is next due after a graded attempt.
package scheduler

import (
	"fmt"
	"time"

	"github.com/open-spaced-repetition/go-fsrs"

	"github.com/lumio-app/lumio/internal/storage"
)

// Outcome is the scheduling decision for one graded attempt.
type Outcome struct {
	Due          time.Time
	IntervalDays int
	// Updated FSRS card state; for strategies that don't use FSRS this is
	// the record's state passed through unchanged.
	FSRS fsrs.Card
}

// Strategy computes the next due date from a record that has already been
// updated with the attempt's outcome (attempts, streak, fails).
type Strategy interface {
	Name() string
	Next(rec storage.Record, passed bool, now time.Time) Outcome
}

// ByName returns the strategy registered under the given name.
func ByName(name string) (Strategy, error) {
	switch name {
	case "", "doubling":
		return NewDoubling(), nil
	case "fsrs":
		return NewFSRS(), nil
	default:
		return nil, fmt.Errorf("unknown spacing strategy %q", name)
	}
}

// Doubling is a fixed-interval strategy: the interval starts at BaseDays,
// doubles with each consecutive pass, and is capped at CapDays. A fail
// resets the interval and schedules the question for the next day.
type Doubling struct {
	BaseDays int
	CapDays  int
}

// NewDoubling returns the doubling strategy with default intervals.
func NewDoubling() *Doubling {
	return &Doubling{BaseDays: 1, CapDays: 180}
}

func (d *Doubling) Name() string { return "doubling" }

// Next implements Strategy. After a pass the due date never moves backward:
// the new due date is at least the record's current one.
func (d *Doubling) Next(rec storage.Record, passed bool, now time.Time) Outcome {
	today := startOfDay(now)

	if !passed {
		return Outcome{
			Due:          today.AddDate(0, 0, 1),
			IntervalDays: d.BaseDays,
			FSRS:         rec.FSRS,
		}
	}

	interval := d.BaseDays
	for i := 1; i < rec.Streak && interval < d.CapDays; i++ {
		interval *= 2
	}
	if interval > d.CapDays {
		interval = d.CapDays
	}

	due := today.AddDate(0, 0, interval)
	if due.Before(rec.Due) {
		due = rec.Due
	}
	return Outcome{Due: due, IntervalDays: interval, FSRS: rec.FSRS}
}

// FSRS schedules with the go-fsrs algorithm, rating a pass as Good and a
// fail as Again.
type FSRS struct {
	parameters fsrs.Parameters
}

// NewFSRS returns the FSRS strategy with default parameters.
func NewFSRS() *FSRS {
	return &FSRS{parameters: fsrs.DefaultParam()}
}

// NewFSRSWithParams returns the FSRS strategy with custom parameters.
func NewFSRSWithParams(params fsrs.Parameters) *FSRS {
	return &FSRS{parameters: params}
}

func (f *FSRS) Name() string { return "fsrs" }

// Next implements Strategy.
func (f *FSRS) Next(rec storage.Record, passed bool, now time.Time) Outcome {
	card := rec.FSRS
	if card.Due.IsZero() {
		// First review of this question: seed a new FSRS card.
		card = fsrs.Card{Due: now, State: fsrs.New}
	}

	rating := fsrs.Good
	if !passed {
		rating = fsrs.Again
	}

	updated := f.parameters.Repeat(card, now)[rating].Card

	due := updated.Due
	if passed && due.Before(rec.Due) {
		due = rec.Due
	}
	return Outcome{
		Due:          due,
		IntervalDays: int(updated.ScheduledDays),
		FSRS:         updated,
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
