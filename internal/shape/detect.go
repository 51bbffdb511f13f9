// Package shape classifies the structural shape of a raw vendor payload and extracts its rows.
package shape

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Shape is the detected structure of a payload root
type Shape string

const (
	// ShapeArray is a JSON array of row objects
	ShapeArray Shape = "array"
	// ShapeFlat is a JSON object whose values are row objects keyed by an intrinsic id
	ShapeFlat Shape = "flat"
)

// ShapeError reports a payload root that is neither an array nor an object of objects
type ShapeError struct {
	Reason string
}

func (e *ShapeError) Error() string {
	if e.Reason == "" {
		return "unrecognized JSON structure"
	}
	return "unrecognized JSON structure: " + e.Reason
}

// IsShapeError reports whether err is (or wraps) a ShapeError
func IsShapeError(err error) bool {
	var se *ShapeError
	return errors.As(err, &se)
}

// Expect checks a detected result against a required shape. An empty want accepts any shape.
func Expect(result *Result, want Shape) error {
	if want == "" || result.Shape == want {
		return nil
	}
	return &ShapeError{Reason: fmt.Sprintf("expected %s payload, got %s", want, result.Shape)}
}

// Row is one extracted row. IntrinsicKey is set only for flat payloads.
type Row struct {
	IntrinsicKey *string       `json:"intrinsicKey,omitempty"`
	Fields       map[string]any `json:"fields"`
}

// Result is the detected shape plus the ordered rows
type Result struct {
	Shape Shape `json:"shape"`
	Rows  []Row `json:"rows"`
	// Skipped counts array elements that were not objects
	Skipped int `json:"skipped,omitempty"`
}

// Detect classifies raw JSON bytes. Row order follows document order for both shapes.
func Detect(raw []byte) (*Result, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil, &ShapeError{Reason: "empty payload"}
		}
		return nil, &ShapeError{Reason: err.Error()}
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return nil, &ShapeError{Reason: fmt.Sprintf("root is a %T", tok)}
	}

	switch delim {
	case '[':
		return detectArray(dec)
	case '{':
		return detectFlat(dec)
	default:
		return nil, &ShapeError{Reason: "unexpected delimiter " + delim.String()}
	}
}

// DetectValue classifies an already-decoded value. Flat rows come out in map iteration
// order, so callers that care about ordering should prefer Detect.
func DetectValue(v any) (*Result, error) {
	switch root := v.(type) {
	case []any:
		result := &Result{Shape: ShapeArray, Rows: make([]Row, 0, len(root))}
		for _, el := range root {
			fields, ok := el.(map[string]any)
			if !ok {
				result.Skipped++
				continue
			}
			result.Rows = append(result.Rows, Row{Fields: fields})
		}
		return result, nil
	case map[string]any:
		result := &Result{Shape: ShapeFlat, Rows: make([]Row, 0, len(root))}
		for key, val := range root {
			fields, ok := val.(map[string]any)
			if !ok {
				return nil, &ShapeError{Reason: fmt.Sprintf("value for key %q is not an object", key)}
			}
			k := key
			result.Rows = append(result.Rows, Row{IntrinsicKey: &k, Fields: fields})
		}
		return result, nil
	default:
		return nil, &ShapeError{Reason: fmt.Sprintf("root is a %T", v)}
	}
}

func detectArray(dec *json.Decoder) (*Result, error) {
	result := &Result{Shape: ShapeArray, Rows: make([]Row, 0)}
	for dec.More() {
		var el any
		if err := dec.Decode(&el); err != nil {
			return nil, &ShapeError{Reason: err.Error()}
		}
		fields, ok := el.(map[string]any)
		if !ok {
			result.Skipped++
			continue
		}
		result.Rows = append(result.Rows, Row{Fields: fields})
	}
	if _, err := dec.Token(); err != nil {
		return nil, &ShapeError{Reason: err.Error()}
	}
	return result, nil
}

func detectFlat(dec *json.Decoder) (*Result, error) {
	result := &Result{Shape: ShapeFlat, Rows: make([]Row, 0)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, &ShapeError{Reason: err.Error()}
		}
		key, ok := tok.(string)
		if !ok {
			return nil, &ShapeError{Reason: "object key is not a string"}
		}

		var val any
		if err := dec.Decode(&val); err != nil {
			return nil, &ShapeError{Reason: err.Error()}
		}
		fields, ok := val.(map[string]any)
		if !ok {
			return nil, &ShapeError{Reason: fmt.Sprintf("value for key %q is not an object", key)}
		}
		result.Rows = append(result.Rows, Row{IntrinsicKey: &key, Fields: fields})
	}
	if _, err := dec.Token(); err != nil {
		return nil, &ShapeError{Reason: err.Error()}
	}
	return result, nil
}
