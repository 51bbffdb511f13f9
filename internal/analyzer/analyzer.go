// Package analyzer profiles extracted rows to infer column types and suggest field mappings
// while a vendor's Mapping Definition is being authored.
package analyzer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/kosarica/catalog-service/internal/shape"
)

// DefaultSampleSize is the number of rows profiled when no size is given
const DefaultSampleSize = 100

const maxSampleValues = 5

// ColumnType is the inferred type of a column
type ColumnType string

const (
	TypeString  ColumnType = "string"
	TypeNumber  ColumnType = "number"
	TypeBoolean ColumnType = "boolean"
	TypeUnknown ColumnType = "unknown"
)

// numeric-looking strings such as "$10.00", "1.234,56 €" or "12"
var numericStringRe = regexp.MustCompile(`(?i)^\s*[$€£¥]?\s*-?\d[\d,. \x{00A0}]*\s*(?:[$€£¥]|usd|eur|gbp)?\s*$`)

// Column is the profile of one raw column across the sampled rows
type Column struct {
	Name         string     `json:"name"`
	SampleValues []any      `json:"sampleValues"`
	InferredType ColumnType `json:"inferredType"`
	UniqueCount  int        `json:"uniqueCount"`
	NullCount    int        `json:"nullCount"`
}

// Analysis is the analyzer output for one payload
type Analysis struct {
	Shape       shape.Shape `json:"shape"`
	TotalRows   int         `json:"totalRows"`
	SampledRows int         `json:"sampledRows"`
	Columns     []Column    `json:"columns"`
	Suggestions Suggestions `json:"suggestions"`
}

// Analyze profiles the first sampleSize rows of a detected payload and suggests mappings
func Analyze(detected *shape.Result, sampleSize int) *Analysis {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	rows := detected.Rows
	if len(rows) > sampleSize {
		rows = rows[:sampleSize]
	}

	columns := Profile(rows)
	return &Analysis{
		Shape:       detected.Shape,
		TotalRows:   len(detected.Rows),
		SampledRows: len(rows),
		Columns:     columns,
		Suggestions: Suggest(columns, len(rows)),
	}
}

// Profile computes one Column per key in the union of the rows' keys, in first-seen order
func Profile(rows []shape.Row) []Column {
	order := make([]string, 0)
	seen := make(map[string]bool)
	for _, row := range rows {
		for _, key := range sortedKeys(row.Fields) {
			if !seen[key] {
				seen[key] = true
				order = append(order, key)
			}
		}
	}

	columns := make([]Column, 0, len(order))
	for _, name := range order {
		columns = append(columns, profileColumn(name, rows))
	}
	return columns
}

func profileColumn(name string, rows []shape.Row) Column {
	col := Column{
		Name:         name,
		SampleValues: make([]any, 0, maxSampleValues),
		InferredType: TypeUnknown,
	}
	distinct := make(map[string]bool)
	typed := false

	for _, row := range rows {
		value, ok := row.Fields[name]
		if !ok || isNull(value) {
			col.NullCount++
			continue
		}

		if !typed {
			col.InferredType = inferType(value)
			typed = true
		}

		key := fmt.Sprintf("%T:%v", value, value)
		if !distinct[key] {
			distinct[key] = true
			if len(col.SampleValues) < maxSampleValues {
				col.SampleValues = append(col.SampleValues, value)
			}
		}
	}

	col.UniqueCount = len(distinct)
	return col
}

func isNull(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	}
	return false
}

func inferType(value any) ColumnType {
	switch v := value.(type) {
	case bool:
		return TypeBoolean
	case float64, float32, int, int64:
		return TypeNumber
	case string:
		if numericStringRe.MatchString(v) {
			return TypeNumber
		}
		return TypeString
	default:
		return TypeUnknown
	}
}

// keys within one row are taken in sorted order; maps carry no document order
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
