package deck

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeDeck(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Error writing deck file: %v", err)
	}
	return path
}

func TestLoadDeck(t *testing.T) {
	path := writeDeck(t, t.TempDir(), "Bio_Grundlagen.json", `[
		{
			"type": "text",
			"id": "mito",
			"prompt": "What do mitochondria do?",
			"rubric": [["mitochondria"], ["powerhouse", "energy"]],
			"pass_ratio": 0.5,
			"min_words": 10,
			"max_repeats": 5,
			"example": "They produce energy."
		},
		{
			"type": "text",
			"prompt": "Describe osmosis.",
			"rubric": [["membrane"]]
		}
	]`)

	d, err := LoadDeck(path)
	if err != nil {
		t.Fatalf("Error loading deck: %v", err)
	}

	if d.ID != "Bio_Grundlagen" {
		t.Errorf("Expected ID 'Bio_Grundlagen', got %q", d.ID)
	}
	if d.Name != "Bio Grundlagen" {
		t.Errorf("Expected name 'Bio Grundlagen', got %q", d.Name)
	}
	if len(d.Questions) != 2 {
		t.Fatalf("Expected 2 questions, got %d", len(d.Questions))
	}

	want := Question{
		ID:         "mito",
		Prompt:     "What do mitochondria do?",
		Rubric:     []Group{{"mitochondria"}, {"powerhouse", "energy"}},
		PassRatio:  0.5,
		MinWords:   10,
		MaxRepeats: 5,
		Example:    "They produce energy.",
	}
	if diff := cmp.Diff(want, d.Questions[0]); diff != "" {
		t.Errorf("Question mismatch (-want +got):\n%s", diff)
	}

	// Defaults and auto-generated ID on the second question
	second := d.Questions[1]
	if second.ID != "q2" {
		t.Errorf("Expected auto-generated ID 'q2', got %q", second.ID)
	}
	if second.PassRatio != DefaultPassRatio {
		t.Errorf("Expected default pass_ratio %v, got %v", DefaultPassRatio, second.PassRatio)
	}
	if second.MinWords != DefaultMinWords {
		t.Errorf("Expected default min_words %d, got %d", DefaultMinWords, second.MinWords)
	}
	if second.MaxRepeats != 0 {
		t.Errorf("Expected unlimited repeats (0), got %d", second.MaxRepeats)
	}
}

func TestLoadDeckSkipsNonTextEntries(t *testing.T) {
	path := writeDeck(t, t.TempDir(), "mixed.json", `[
		{"type": "image", "prompt": "Label the diagram.", "rubric": [["nucleus"]]},
		{"type": "text", "prompt": "Name the organelle.", "rubric": [["nucleus"]]}
	]`)

	d, err := LoadDeck(path)
	if err != nil {
		t.Fatalf("Error loading deck: %v", err)
	}
	if len(d.Questions) != 1 {
		t.Errorf("Expected 1 text question, got %d", len(d.Questions))
	}
}

func TestLoadDeckValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not an array", `{"questions": []}`},
		{"missing prompt", `[{"type": "text", "rubric": [["a"]]}]`},
		{"missing rubric", `[{"type": "text", "prompt": "p"}]`},
		{"empty rubric group", `[{"type": "text", "prompt": "p", "rubric": [[]]}]`},
		{"blank keyword", `[{"type": "text", "prompt": "p", "rubric": [["  "]]}]`},
		{"pass_ratio out of range", `[{"type": "text", "prompt": "p", "rubric": [["a"]], "pass_ratio": 1.5}]`},
		{"negative min_words", `[{"type": "text", "prompt": "p", "rubric": [["a"]], "min_words": -1}]`},
	}

	dir := t.TempDir()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeDeck(t, dir, "bad.json", tc.content)
			if _, err := LoadDeck(path); err == nil {
				t.Errorf("Expected error for %s", tc.name)
			}
		})
	}
}

func TestLoadDeckNoQuestions(t *testing.T) {
	path := writeDeck(t, t.TempDir(), "empty.json", `[{"type": "image", "prompt": "p", "rubric": [["a"]]}]`)

	_, err := LoadDeck(path)
	if !errors.Is(err, ErrNoQuestions) {
		t.Errorf("Expected ErrNoQuestions, got %v", err)
	}
}

func TestLoadDirSkipsMalformedDecks(t *testing.T) {
	dir := t.TempDir()
	writeDeck(t, dir, "alpha.json", `[{"type": "text", "prompt": "p", "rubric": [["a"]]}]`)
	writeDeck(t, dir, "broken.json", `{not json`)
	writeDeck(t, dir, "zeta.json", `[{"type": "text", "prompt": "p", "rubric": [["z"]]}]`)
	writeDeck(t, dir, "notes.txt", `not a deck`)

	decks, report, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("Error loading directory: %v", err)
	}

	if len(decks) != 2 {
		t.Fatalf("Expected 2 decks, got %d", len(decks))
	}
	// Sorted by filename
	if decks[0].ID != "alpha" || decks[1].ID != "zeta" {
		t.Errorf("Expected decks [alpha zeta], got [%s %s]", decks[0].ID, decks[1].ID)
	}
	if report.Loaded != 2 {
		t.Errorf("Expected report.Loaded == 2, got %d", report.Loaded)
	}
	if len(report.Skipped) != 1 || report.Skipped[0].File != "broken.json" {
		t.Errorf("Expected broken.json to be skipped, got %+v", report.Skipped)
	}
}

func TestLoadDirMissing(t *testing.T) {
	if _, _, err := LoadDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("Expected error for missing directory")
	}
}

func TestDeckQuestionLookup(t *testing.T) {
	d := Deck{Questions: []Question{{ID: "q1"}, {ID: "q2"}}}

	if q, ok := d.Question("q2"); !ok || q.ID != "q2" {
		t.Errorf("Expected to find q2, got %+v ok=%v", q, ok)
	}
	if _, ok := d.Question("q9"); ok {
		t.Error("Expected lookup of unknown ID to fail")
	}
}

func TestPrettyName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Mathe_fuer_Info_2.json", "Mathe Fuer Info 2"},
		{"bio-grundlagen.json", "Bio Grundlagen"},
		{"simple.json", "Simple"},
		{"already Pretty.json", "Already Pretty"},
		{"v2_release.json", "v2 Release"},
	}
	for _, tc := range tests {
		if got := PrettyName(tc.in); got != tc.want {
			t.Errorf("PrettyName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestWriteDeckFileRoundTrip(t *testing.T) {
	questions := []Question{
		{
			ID:         "q1",
			Prompt:     "What is an acid?",
			Rubric:     []Group{{"proton", "hydrogen"}, {"donor"}},
			PassRatio:  0.6,
			MinWords:   5,
			MaxRepeats: 3,
			Example:    "An acid donates protons.",
		},
		{
			ID:        "q2",
			Prompt:    "What is a base?",
			Rubric:    []Group{{"acceptor"}},
			PassRatio: DefaultPassRatio,
			MinWords:  DefaultMinWords,
		},
	}

	path := filepath.Join(t.TempDir(), "sub", "chem.json")
	if err := WriteDeckFile(path, questions); err != nil {
		t.Fatalf("Error writing deck file: %v", err)
	}

	d, err := LoadDeck(path)
	if err != nil {
		t.Fatalf("Error loading written deck: %v", err)
	}
	if diff := cmp.Diff(questions, d.Questions); diff != "" {
		t.Errorf("Questions mismatch after round-trip (-want +got):\n%s", diff)
	}
}
