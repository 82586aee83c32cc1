// Package grader evaluates free-text answers against keyword-group rubrics.
package grader

import (
	"math"
	"regexp"
	"strings"

	"github.com/lumio-app/lumio/internal/deck"
)

// lengthPenalty scales the coverage score when the answer is shorter than
// the question's minimum word count. A short answer can still show partial
// rubric coverage in the feedback, but it can never pass.
const lengthPenalty = 0.85

var (
	umlauts = strings.NewReplacer("ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss")
	// Keep word characters, whitespace, and the math symbols that show up
	// in technical answers; everything else becomes a space.
	nonWord  = regexp.MustCompile(`[^\p{L}\p{N}_\s=*+\-/<>()]`)
	spaceRun = regexp.MustCompile(`\s+`)
)

// Normalize lowercases text, folds German umlauts, strips punctuation, and
// collapses whitespace so keyword matching is case- and accent-insensitive.
func Normalize(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	t = umlauts.Replace(t)
	t = nonWord.ReplaceAllString(t, " ")
	return strings.TrimSpace(spaceRun.ReplaceAllString(t, " "))
}

// WordCount counts whitespace-delimited tokens in normalized text.
func WordCount(norm string) int {
	if norm == "" {
		return 0
	}
	return len(strings.Fields(norm))
}

// GroupResult reports whether one rubric group was satisfied and, if so,
// which keyword matched.
type GroupResult struct {
	Hit     bool   `json:"hit"`
	Matched string `json:"matched,omitempty"`
}

// Result is the verdict for one graded answer.
type Result struct {
	WordCount int           `json:"word_count"`
	HitCount  int           `json:"hit_count"`
	Total     int           `json:"total"`
	Coverage  float64       `json:"coverage"`
	Effective float64       `json:"effective"`
	Passed    bool          `json:"passed"`
	LengthOK  bool          `json:"length_ok"`
	Groups    []GroupResult `json:"groups"`
}

// Grade evaluates an answer against a question's rubric. A group is
// satisfied if any of its keywords appears in the normalized answer.
// The answer passes iff it meets the minimum word count and the coverage
// ratio (satisfied groups / total groups) reaches the pass ratio.
func Grade(q deck.Question, answer string) Result {
	norm := Normalize(answer)
	wc := WordCount(norm)

	groups := make([]GroupResult, len(q.Rubric))
	hits := 0
	for i, group := range q.Rubric {
		for _, keyword := range group {
			if kw := Normalize(keyword); kw != "" && strings.Contains(norm, kw) {
				groups[i] = GroupResult{Hit: true, Matched: keyword}
				hits++
				break
			}
		}
	}

	total := len(q.Rubric)
	if total < 1 {
		total = 1
	}
	coverage := float64(hits) / float64(total)

	lengthOK := wc >= q.MinWords
	effective := coverage
	if !lengthOK {
		effective = coverage * lengthPenalty
	}

	return Result{
		WordCount: wc,
		HitCount:  hits,
		Total:     total,
		Coverage:  coverage,
		Effective: effective,
		Passed:    lengthOK && effective >= q.PassRatio,
		LengthOK:  lengthOK,
		Groups:    groups,
	}
}

// Points converts a result's effective score into points on a 0-100 scale.
func Points(r Result) int {
	return int(math.Round(r.Effective * 100))
}
