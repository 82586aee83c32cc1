package deck

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ImportConfig defines how spreadsheet columns map onto question fields.
// Rubric cells hold keyword groups separated by GroupSeparator, with
// keywords inside a group separated by KeywordSeparator.
type ImportConfig struct {
	FilePath         string // Path to the Excel or CSV file
	SheetName        string // Sheet to import (Excel only)
	IDColumn         string // Column with the question id (optional)
	PromptColumn     string // Column with the prompt text
	RubricColumn     string // Column with the rubric keyword groups
	MinWordsColumn   string // Column with the minimum word count (optional)
	PassRatioColumn  string // Column with the pass ratio (optional)
	ExampleColumn    string // Column with the example answer (optional)
	StartRow         int    // Row to start importing from (1-based)
	GroupSeparator   string
	KeywordSeparator string
}

// DefaultImportConfig returns the default column mapping.
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		SheetName:        "Sheet1",
		IDColumn:         "A",
		PromptColumn:     "B",
		RubricColumn:     "C",
		MinWordsColumn:   "D",
		PassRatioColumn:  "E",
		ExampleColumn:    "F",
		StartRow:         2, // skip header row
		GroupSeparator:   ";",
		KeywordSeparator: "|",
	}
}

// ImportResult holds the outcome of an import operation.
type ImportResult struct {
	TotalProcessed int
	Imported       int
	Skipped        int
	Errors         []string
}

// Import reads questions from an Excel or CSV file. Rows that cannot be
// turned into a valid question are skipped and reported in the result.
func Import(config ImportConfig) ([]Question, *ImportResult, error) {
	ext := strings.ToLower(filepath.Ext(config.FilePath))
	if ext == ".csv" {
		return importFromCSV(config)
	}
	return importFromExcel(config)
}

func importFromExcel(config ImportConfig) ([]Question, *ImportResult, error) {
	f, err := excelize.OpenFile(config.FilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(config.SheetName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %q: %w", config.SheetName, err)
	}
	return importRows(config, rows)
}

func importFromCSV(config ImportConfig) ([]Question, *ImportResult, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read CSV file: %w", err)
		}
		rows = append(rows, record)
	}
	return importRows(config, rows)
}

func importRows(config ImportConfig, rows [][]string) ([]Question, *ImportResult, error) {
	result := &ImportResult{}
	var questions []Question

	start := config.StartRow
	if start < 1 {
		start = 1
	}

	for i := start - 1; i < len(rows); i++ {
		row := rows[i]
		result.TotalProcessed++

		q := Question{
			ID:        cell(row, config.IDColumn),
			Prompt:    strings.TrimSpace(cell(row, config.PromptColumn)),
			PassRatio: DefaultPassRatio,
			MinWords:  DefaultMinWords,
			Example:   strings.TrimSpace(cell(row, config.ExampleColumn)),
		}
		if q.ID == "" {
			q.ID = fmt.Sprintf("q%d", len(questions)+1)
		}

		for _, groupText := range strings.Split(cell(row, config.RubricColumn), config.GroupSeparator) {
			var group Group
			for _, kw := range strings.Split(groupText, config.KeywordSeparator) {
				if kw = strings.TrimSpace(kw); kw != "" {
					group = append(group, kw)
				}
			}
			if len(group) > 0 {
				q.Rubric = append(q.Rubric, group)
			}
		}

		if v := strings.TrimSpace(cell(row, config.MinWordsColumn)); v != "" {
			mw, err := strconv.Atoi(v)
			if err != nil {
				result.Skipped++
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: invalid min_words %q", i+1, v))
				continue
			}
			q.MinWords = mw
		}
		if v := strings.TrimSpace(cell(row, config.PassRatioColumn)); v != "" {
			pr, err := strconv.ParseFloat(v, 64)
			if err != nil {
				result.Skipped++
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: invalid pass_ratio %q", i+1, v))
				continue
			}
			q.PassRatio = pr
		}

		if err := validateQuestion(q); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}

		questions = append(questions, q)
		result.Imported++
	}

	return questions, result, nil
}

// cell returns the value at the given column letter ("A", "B", ... "AA"),
// or "" if the column is unset or past the end of the row.
func cell(row []string, column string) string {
	if column == "" {
		return ""
	}
	idx := 0
	for _, c := range strings.ToUpper(column) {
		if c < 'A' || c > 'Z' {
			return ""
		}
		idx = idx*26 + int(c-'A') + 1
	}
	idx-- // to 0-based
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
