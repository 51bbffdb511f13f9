package mapping

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/kosarica/catalog-service/internal/shape"
)

// ValidationError carries every problem found in a Mapping Definition
type ValidationError struct {
	Messages []string `json:"messages"`
}

func (e *ValidationError) Error() string {
	return "invalid mapping: " + strings.Join(e.Messages, "; ")
}

// IsValidationError reports whether err is (or wraps) a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Validate runs the pre-flight checks. It returns nil or a *ValidationError listing all
// problems, never just the first one.
func Validate(def *Definition) error {
	if def == nil {
		return &ValidationError{Messages: []string{"mapping definition is required"}}
	}

	var msgs []string

	if strings.TrimSpace(def.VendorCode) == "" {
		msgs = append(msgs, "vendorCode is required")
	}
	if def.Shape != nil && *def.Shape != shape.ShapeArray && *def.Shape != shape.ShapeFlat {
		msgs = append(msgs, fmt.Sprintf("shape must be %q or %q, got %q", shape.ShapeArray, shape.ShapeFlat, *def.Shape))
	}

	switch {
	case def.SKU == nil:
		msgs = append(msgs, "sku mapping is required")
	case def.SKU.Type != SourceConstant && def.SKU.Column == "":
		msgs = append(msgs, "sku mapping requires a column")
	}

	if def.Name == nil || def.Name.Column == "" {
		msgs = append(msgs, "name mapping with a column is required")
	}
	if def.Collection == nil || def.Collection.Column == "" {
		msgs = append(msgs, "collection mapping with a column is required")
	}

	if len(def.Prices) == 0 {
		msgs = append(msgs, "at least one price mapping is required")
	}
	seenPrices := make(map[string]int)
	for i, p := range def.Prices {
		if strings.TrimSpace(p.Tier) == "" {
			msgs = append(msgs, fmt.Sprintf("prices[%d]: tier is required", i))
		}
		if strings.TrimSpace(p.Currency) == "" {
			msgs = append(msgs, fmt.Sprintf("prices[%d]: currency is required", i))
		}
		if p.Type != SourceConstant && p.Column == "" {
			msgs = append(msgs, fmt.Sprintf("prices[%d]: column is required", i))
		}
		key := p.Tier + ":" + p.Currency
		if prev, ok := seenPrices[key]; ok && p.Tier != "" && p.Currency != "" {
			msgs = append(msgs, fmt.Sprintf("prices[%d]: duplicates tier/currency of prices[%d]", i, prev))
		}
		seenPrices[key] = i
	}

	for i, s := range def.Specs {
		if strings.TrimSpace(s.Key) == "" {
			msgs = append(msgs, fmt.Sprintf("specs[%d]: key is required", i))
		}
		if s.Type != SourceConstant && s.Column == "" {
			msgs = append(msgs, fmt.Sprintf("specs[%d]: column is required", i))
		}
	}

	msgs = append(msgs, validateTransforms("sku", def.SKU)...)
	msgs = append(msgs, validateTransforms("name", def.Name)...)
	msgs = append(msgs, validateTransforms("collection", def.Collection)...)
	msgs = append(msgs, validateTransforms("status", def.Status)...)
	for i := range def.Prices {
		msgs = append(msgs, validateTransforms(fmt.Sprintf("prices[%d]", i), &def.Prices[i].FieldMapping)...)
	}
	for i := range def.Specs {
		msgs = append(msgs, validateTransforms(fmt.Sprintf("specs[%d]", i), &def.Specs[i].FieldMapping)...)
	}

	if len(msgs) > 0 {
		return &ValidationError{Messages: msgs}
	}
	return nil
}

func validateTransforms(field string, m *FieldMapping) []string {
	if m == nil {
		return nil
	}
	var msgs []string
	for i, t := range m.Transforms {
		if !isKnownTransform(t.Type) {
			msgs = append(msgs, fmt.Sprintf("%s.transforms[%d]: unknown transform %q", field, i, t.Type))
			continue
		}
		if t.Type == TransformRegexReplace {
			if _, err := regexp.Compile(t.Pattern); err != nil {
				msgs = append(msgs, fmt.Sprintf("%s.transforms[%d]: invalid pattern: %v", field, i, err))
			}
		}
	}
	return msgs
}

func isKnownTransform(t TransformType) bool {
	for _, known := range KnownTransforms {
		if known == t {
			return true
		}
	}
	return false
}
