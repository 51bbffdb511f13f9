// Package mapping holds the declarative Mapping Definition that tells the normalizer how
// raw vendor columns map onto canonical product fields, plus the transform engine applied
// to each mapped value.
package mapping

import (
	"time"

	"github.com/kosarica/catalog-service/internal/shape"
)

// SourceType selects where a field mapping reads its value from
type SourceType string

const (
	// SourceColumn reads the named column of the row
	SourceColumn SourceType = "column"
	// SourceConstant uses a fixed value for every row
	SourceConstant SourceType = "constant"
)

// FieldMapping maps one canonical field to a raw column (or constant) and a transform chain
type FieldMapping struct {
	Type       SourceType  `json:"type" jsonschema:"enum=column,enum=constant"`
	Column     string      `json:"column,omitempty"`
	Value      any         `json:"value,omitempty"`
	Transforms []Transform `json:"transforms,omitempty"`
	// ValueMap is an enum remap table applied to the transformed value (status only)
	ValueMap map[string]string `json:"valueMap,omitempty"`
}

// PriceMapping maps a raw column to a price tier in a currency
type PriceMapping struct {
	FieldMapping
	Tier     string `json:"tier"`
	Currency string `json:"currency"`
}

// SpecMapping maps a raw column to a canonical spec key
type SpecMapping struct {
	FieldMapping
	Key string `json:"key"`
}

// Definition is the persisted, versioned description of a vendor's catalog layout
type Definition struct {
	VendorCode string         `json:"vendorCode" jsonschema:"required"`
	Version    int            `json:"version,omitempty"`
	Shape      *shape.Shape   `json:"shape,omitempty" jsonschema:"enum=array,enum=flat"`
	SKU        *FieldMapping  `json:"sku,omitempty"`
	Name       *FieldMapping  `json:"name,omitempty"`
	Collection *FieldMapping  `json:"collection,omitempty"`
	Status     *FieldMapping  `json:"status,omitempty"`
	Prices     []PriceMapping `json:"prices"`
	Specs      []SpecMapping  `json:"specs,omitempty"`
	UpdatedAt  *time.Time     `json:"updatedAt,omitempty"`
	UpdatedBy  string         `json:"updatedBy,omitempty"`
}

// Column is a shorthand for a column field mapping
func Column(name string, transforms ...Transform) *FieldMapping {
	return &FieldMapping{Type: SourceColumn, Column: name, Transforms: transforms}
}

// Constant is a shorthand for a constant field mapping
func Constant(value any) *FieldMapping {
	return &FieldMapping{Type: SourceConstant, Value: value}
}

// Resolve reads the mapped value from a row and runs the transform chain over it.
// A nil result means the value is absent.
func (m *FieldMapping) Resolve(fields map[string]any) any {
	if m == nil {
		return nil
	}

	var value any
	switch m.Type {
	case SourceConstant:
		value = m.Value
	default:
		if m.Column == "" {
			return nil
		}
		value = fields[m.Column]
	}

	return ApplyChain(value, m.Transforms)
}
