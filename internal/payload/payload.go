// Package payload decodes vendor catalog files (JSON, CSV, XLSX) into extracted rows.
// Tabular sources always come out as the array shape, one object per data row.
package payload

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kosarica/catalog-service/internal/shape"
)

// Format of a raw vendor payload
type Format string

const (
	FormatAuto Format = ""
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var zipMagic = []byte("PK\x03\x04")

// Options selects how a payload is decoded
type Options struct {
	Format Format
	// Sheet names the XLSX worksheet; the first sheet is used when empty
	Sheet string
	// Shape, when set, is the only accepted payload shape
	Shape shape.Shape
}

// ParseFormat maps a user supplied format name
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatAuto, FormatJSON, FormatCSV, FormatXLSX:
		return f, nil
	case "tsv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported payload format %q", name)
	}
}

// FormatFromFilename guesses the format from a file extension
func FormatFromFilename(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return FormatJSON
	case ".csv", ".tsv", ".txt":
		return FormatCSV
	case ".xlsx", ".xlsm":
		return FormatXLSX
	default:
		return FormatAuto
	}
}

// Sniff guesses the format from content
func Sniff(data []byte) Format {
	if bytes.HasPrefix(data, zipMagic) {
		return FormatXLSX
	}
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(data, utf8BOM), " \t\r\n")
	if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') {
		return FormatJSON
	}
	return FormatCSV
}

// Decode extracts rows from a raw payload. JSON payloads keep their detected shape; JSON
// shape problems and a mismatch with opts.Shape surface as *shape.ShapeError.
func Decode(data []byte, opts Options) (*shape.Result, error) {
	result, err := decode(data, opts)
	if err != nil {
		return nil, err
	}
	if err := shape.Expect(result, opts.Shape); err != nil {
		return nil, err
	}
	return result, nil
}

func decode(data []byte, opts Options) (*shape.Result, error) {
	format := opts.Format
	if format == FormatAuto {
		format = Sniff(data)
	}

	if format == FormatXLSX {
		rows, err := decodeXLSX(data, opts.Sheet)
		if err != nil {
			return nil, err
		}
		return shape.DetectValue(rows)
	}

	text, _, err := ToUTF8(data)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatJSON:
		return shape.Detect(text)
	case FormatCSV:
		rows, err := decodeCSV(text)
		if err != nil {
			return nil, err
		}
		return shape.DetectValue(rows)
	default:
		return nil, fmt.Errorf("unsupported payload format %q", format)
	}
}
