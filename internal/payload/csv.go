package payload

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Delimiters recognized by DetectDelimiter
const (
	DelimiterComma     = ','
	DelimiterSemicolon = ';'
	DelimiterTab       = '\t'
)

// DetectDelimiter picks the delimiter that appears most consistently across the first
// non-empty lines. Comma wins when nothing else is found.
func DetectDelimiter(data []byte) rune {
	sample := data
	if len(sample) > 2000 {
		sample = sample[:2000]
	}

	lines := make([]string, 0, 5)
	for _, line := range strings.Split(string(sample), "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
			if len(lines) >= 5 {
				break
			}
		}
	}
	if len(lines) == 0 {
		return DelimiterComma
	}

	best := rune(DelimiterComma)
	bestScore := 0.0
	for _, delim := range []rune{DelimiterComma, DelimiterSemicolon, DelimiterTab} {
		counts := make([]int, len(lines))
		sum := 0
		for i, line := range lines {
			counts[i] = strings.Count(line, string(delim))
			sum += counts[i]
		}
		avg := float64(sum) / float64(len(lines))
		if avg == 0 {
			continue
		}

		variance := 0.0
		for _, c := range counts {
			d := float64(c) - avg
			variance += d * d
		}
		variance /= float64(len(lines))

		if score := avg / (1.0 + variance); score > bestScore {
			bestScore = score
			best = delim
		}
	}
	return best
}

// decodeCSV reads a header row followed by data rows. Each data row becomes an object keyed
// by the header; blank lines are dropped and short rows omit their missing columns.
func decodeCSV(data []byte) ([]any, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = DetectDelimiter(data)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []any{}, nil
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	columns := cleanHeader(header)

	rows := make([]any, 0)
	for line := 2; ; line++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv line %d: %w", line, err)
		}
		if row := recordToRow(columns, record); row != nil {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func cleanHeader(header []string) []string {
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}
	return columns
}

// recordToRow returns nil for rows with no non-empty cell
func recordToRow(columns, record []string) map[string]any {
	row := make(map[string]any, len(columns))
	empty := true
	for i, col := range columns {
		if col == "" || i >= len(record) {
			continue
		}
		value := strings.TrimSpace(record[i])
		if value != "" {
			empty = false
		}
		row[col] = value
	}
	if empty {
		return nil
	}
	return row
}
