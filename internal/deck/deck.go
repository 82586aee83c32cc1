// Package deck loads deck definitions from JSON files in a decks directory.
package deck

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Default grading parameters applied when a deck file omits them.
const (
	DefaultPassRatio = 0.7
	DefaultMinWords  = 20
)

// ErrNoQuestions is returned when a deck file contains no text questions.
var ErrNoQuestions = errors.New("no text questions found in deck")

// Group is a set of interchangeable keywords; the group is satisfied if any
// one of its keywords appears in the answer.
type Group []string

// Question is a single free-text question with its grading rubric.
type Question struct {
	ID         string  `json:"id"`
	Prompt     string  `json:"prompt"`
	Rubric     []Group `json:"rubric"`
	PassRatio  float64 `json:"pass_ratio"`
	MinWords   int     `json:"min_words"`
	MaxRepeats int     `json:"max_repeats,omitempty"`
	Example    string  `json:"example,omitempty"`
}

// Deck is a named, ordered collection of questions loaded from one file.
type Deck struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Path      string     `json:"-"`
	Questions []Question `json:"questions"`
}

// Question returns the question with the given ID, if present.
func (d *Deck) Question(id string) (Question, bool) {
	for _, q := range d.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// fileQuestion is the on-disk question shape. Pointers distinguish absent
// fields from zero values so defaults can be applied.
type fileQuestion struct {
	Type       string   `json:"type"`
	ID         string   `json:"id"`
	Prompt     string   `json:"prompt"`
	Rubric     []Group  `json:"rubric"`
	PassRatio  *float64 `json:"pass_ratio,omitempty"`
	MinWords   *int     `json:"min_words,omitempty"`
	MaxRepeats *int     `json:"max_repeats,omitempty"`
	Example    string   `json:"example,omitempty"`
}

// LoadDeck parses a single deck file. The file must contain a JSON array of
// question objects; entries whose "type" is not "text" are skipped.
func LoadDeck(path string) (Deck, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Deck{}, fmt.Errorf("failed to read deck file: %w", err)
	}

	var raw []fileQuestion
	if err := json.Unmarshal(data, &raw); err != nil {
		return Deck{}, fmt.Errorf("deck JSON must be an array of question objects: %w", err)
	}

	questions := make([]Question, 0, len(raw))
	for i, fq := range raw {
		if fq.Type != "text" {
			continue
		}

		q := Question{
			ID:        fq.ID,
			Prompt:    strings.TrimSpace(fq.Prompt),
			Rubric:    fq.Rubric,
			PassRatio: DefaultPassRatio,
			MinWords:  DefaultMinWords,
			Example:   strings.TrimSpace(fq.Example),
		}
		if q.ID == "" {
			q.ID = fmt.Sprintf("q%d", i+1)
		}
		if fq.PassRatio != nil {
			q.PassRatio = *fq.PassRatio
		}
		if fq.MinWords != nil {
			q.MinWords = *fq.MinWords
		}
		if fq.MaxRepeats != nil {
			q.MaxRepeats = *fq.MaxRepeats
		}

		if err := validateQuestion(q); err != nil {
			return Deck{}, err
		}
		questions = append(questions, q)
	}

	if len(questions) == 0 {
		return Deck{}, ErrNoQuestions
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Deck{
		ID:        stem,
		Name:      PrettyName(filepath.Base(path)),
		Path:      path,
		Questions: questions,
	}, nil
}

func validateQuestion(q Question) error {
	if q.Prompt == "" {
		return fmt.Errorf("question %q: missing or empty prompt", q.ID)
	}
	if len(q.Rubric) == 0 {
		return fmt.Errorf("question %q: missing or empty rubric", q.ID)
	}
	for gi, group := range q.Rubric {
		if len(group) == 0 {
			return fmt.Errorf("question %q: rubric group %d is empty", q.ID, gi+1)
		}
		for _, kw := range group {
			if strings.TrimSpace(kw) == "" {
				return fmt.Errorf("question %q: rubric group %d contains an empty keyword", q.ID, gi+1)
			}
		}
	}
	if q.PassRatio < 0 || q.PassRatio > 1 {
		return fmt.Errorf("question %q: pass_ratio must be in [0,1], got %v", q.ID, q.PassRatio)
	}
	if q.MinWords < 0 {
		return fmt.Errorf("question %q: min_words must be >= 0, got %d", q.ID, q.MinWords)
	}
	return nil
}

// SkippedDeck reports one deck file that failed to load.
type SkippedDeck struct {
	File string
	Err  error
}

// LoadReport summarizes a directory load.
type LoadReport struct {
	Loaded  int
	Skipped []SkippedDeck
}

// LoadDir loads every *.json deck in dir, sorted by filename. Malformed deck
// files do not abort the load; they are recorded in the report and skipped.
func LoadDir(dir string) ([]Deck, LoadReport, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, LoadReport{}, fmt.Errorf("failed to read decks directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Slice(files, func(i, j int) bool {
		return strings.ToLower(files[i]) < strings.ToLower(files[j])
	})

	var decks []Deck
	var report LoadReport
	for _, name := range files {
		d, err := LoadDeck(filepath.Join(dir, name))
		if err != nil {
			report.Skipped = append(report.Skipped, SkippedDeck{File: name, Err: err})
			continue
		}
		decks = append(decks, d)
		report.Loaded++
	}
	return decks, report, nil
}

var spaceRun = regexp.MustCompile(`\s+`)

// PrettyName derives a display name from a deck filename:
// "Mathe_fuer_Info_2.json" becomes "Mathe Fuer Info 2".
func PrettyName(filename string) string {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	stem = strings.NewReplacer("_", " ", "-", " ").Replace(stem)
	stem = strings.TrimSpace(spaceRun.ReplaceAllString(stem, " "))

	words := strings.Split(stem, " ")
	for i, w := range words {
		if w == "" || strings.ContainsAny(w, "0123456789") {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// WriteDeckFile marshals questions into the deck JSON format at path,
// creating parent directories as needed.
func WriteDeckFile(path string, questions []Question) error {
	raw := make([]fileQuestion, 0, len(questions))
	for _, q := range questions {
		pr := q.PassRatio
		mw := q.MinWords
		fq := fileQuestion{
			Type:      "text",
			ID:        q.ID,
			Prompt:    q.Prompt,
			Rubric:    q.Rubric,
			PassRatio: &pr,
			MinWords:  &mw,
			Example:   q.Example,
		}
		if q.MaxRepeats > 0 {
			mr := q.MaxRepeats
			fq.MaxRepeats = &mr
		}
		raw = append(raw, fq)
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal deck: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create decks directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write deck file: %w", err)
	}
	return nil
}
