package grader

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/lumio-app/lumio/internal/deck"
)

// rubricOf builds a rubric with n single-keyword groups kw0..kw(n-1).
func rubricOf(n int) []deck.Group {
	rubric := make([]deck.Group, n)
	for i := range rubric {
		rubric[i] = deck.Group{fmt.Sprintf("kw%d", i)}
	}
	return rubric
}

// answerMatching returns an answer containing the first matched keywords of
// the rubric plus filler words up to the requested total word count.
func answerMatching(matched, totalWords int) string {
	words := make([]string, 0, totalWords)
	for i := 0; i < matched; i++ {
		words = append(words, fmt.Sprintf("kw%d", i))
	}
	for len(words) < totalWords {
		words = append(words, "filler")
	}
	return strings.Join(words, " ")
}

// TestGradeProperties checks the grader invariants over generated inputs:
// coverage is exactly matched/total, grading is deterministic, coverage is
// monotonic in the number of matched groups, and answers below the minimum
// word count never pass.
func TestGradeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("coverage equals matched/total", prop.ForAll(
		func(total, matched, extraWords int) bool {
			if matched > total {
				matched = total
			}
			q := deck.Question{
				ID:        "q",
				Prompt:    "p",
				Rubric:    rubricOf(total),
				MinWords:  0,
				PassRatio: 1.0,
			}
			result := Grade(q, answerMatching(matched, matched+extraWords))
			return result.Coverage == float64(matched)/float64(total) &&
				result.HitCount == matched &&
				result.Total == total
		},
		gen.IntRange(1, 8),
		gen.IntRange(0, 8),
		gen.IntRange(0, 10),
	))

	properties.Property("grading is deterministic", prop.ForAll(
		func(total, matched int) bool {
			if matched > total {
				matched = total
			}
			q := deck.Question{
				ID:        "q",
				Prompt:    "p",
				Rubric:    rubricOf(total),
				MinWords:  1,
				PassRatio: 0.5,
			}
			answer := answerMatching(matched, matched+3)
			first := Grade(q, answer)
			second := Grade(q, answer)
			return first.Coverage == second.Coverage &&
				first.Effective == second.Effective &&
				first.Passed == second.Passed
		},
		gen.IntRange(1, 8),
		gen.IntRange(0, 8),
	))

	properties.Property("coverage is monotonic in matched groups", prop.ForAll(
		func(total, matched int) bool {
			if matched >= total {
				matched = total - 1
			}
			q := deck.Question{
				ID:        "q",
				Prompt:    "p",
				Rubric:    rubricOf(total),
				MinWords:  0,
				PassRatio: 1.0,
			}
			fewer := Grade(q, answerMatching(matched, matched+2))
			more := Grade(q, answerMatching(matched+1, matched+3))
			return more.Coverage > fewer.Coverage
		},
		gen.IntRange(1, 8),
		gen.IntRange(0, 8),
	))

	properties.Property("answers below min_words never pass", prop.ForAll(
		func(total, minWords int) bool {
			q := deck.Question{
				ID:        "q",
				Prompt:    "p",
				Rubric:    rubricOf(total),
				MinWords:  minWords,
				PassRatio: 0.0,
			}
			// Full rubric coverage, but one word short of the minimum.
			result := Grade(q, answerMatching(total, minWords-1))
			return !result.Passed
		},
		gen.IntRange(1, 6),
		gen.IntRange(7, 20),
	))

	properties.TestingRun(t)
}
