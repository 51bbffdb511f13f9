package mapping

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseNumeric(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  float64
	}{
		{"dollar price", "$10.00", 10},
		{"plain integer string", "42", 42},
		{"float passthrough", 12.5, 12.5},
		{"int passthrough", 7, 7},
		{"us thousands", "1,234.56", 1234.56},
		{"european decimal", "1.234,56", 1234.56},
		{"lone comma thousands", "1,234", 1234},
		{"decimal comma", "12,5", 12.5},
		{"euro suffix", "19,99 €", 19.99},
		{"currency code", "USD 15", 15},
		{"trailing unit", "10in", 10},
		{"nbsp grouping", "1 000", 1000},
		{"garbage", "abc", 0},
		{"empty", "", 0},
		{"nil", nil, 0},
		{"nan text", "nan", 0},
		{"NaN text", "NaN", 0},
		{"inf text", "inf", 0},
		{"infinity text", "Infinity", 0},
		{"negative infinity text", "-Infinity", 0},
		{"nan float", math.NaN(), 0},
		{"inf float", math.Inf(1), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ParseNumeric(tt.input), 0.0001)
		})
	}
}

func TestStripUnits(t *testing.T) {
	assert.Equal(t, "10", StripUnits("10in"))
	assert.Equal(t, "12.5", StripUnits(" 12.5 cm "))
	assert.Equal(t, "3", StripUnits("3 lbs"))
	assert.Equal(t, "Cream", StripUnits("Cream"))
	assert.Equal(t, "Walnut", StripUnits("Walnut"))
}

func TestApplyChainOrder(t *testing.T) {
	chain := []Transform{
		{Type: TransformTrim},
		{Type: TransformUppercase},
		{Type: TransformRegexReplace, Pattern: `\s+`, Replacement: "-"},
	}
	assert.Equal(t, "OAK-TABLE", ApplyChain("  oak   table ", chain))

	// the same transforms in another order produce a different value
	reversed := []Transform{
		{Type: TransformRegexReplace, Pattern: `\s+`, Replacement: "-"},
		{Type: TransformTrim},
	}
	assert.Equal(t, "-oak-table-", ApplyChain("  oak   table ", reversed))
}

func TestApplyChainSkipsNil(t *testing.T) {
	chain := []Transform{{Type: TransformNumericParse}}
	assert.Nil(t, ApplyChain(nil, chain))
}

func TestApply(t *testing.T) {
	tests := []struct {
		name  string
		value any
		t     Transform
		want  any
	}{
		{"trim", "  x  ", Transform{Type: TransformTrim}, "x"},
		{"lowercase", "ABC", Transform{Type: TransformLowercase}, "abc"},
		{"uppercase number", 12.0, Transform{Type: TransformUppercase}, "12"},
		{"remove commas", "1,2,3", Transform{Type: TransformRemoveCommas}, "123"},
		{"numeric parse", "$1,299.00", Transform{Type: TransformNumericParse}, 1299.0},
		{"regex without replacement", "SKU-001", Transform{Type: TransformRegexReplace, Pattern: `^SKU-`}, "001"},
		{"invalid regex leaves value", "abc", Transform{Type: TransformRegexReplace, Pattern: `(`}, "abc"},
		{"unknown type leaves value", "abc", Transform{Type: "reverse"}, "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Apply(tt.value, tt.t))
		})
	}
}

func TestResolve(t *testing.T) {
	fields := map[string]any{"List Price": "$10.00", "Theme": " Alpha "}

	assert.Equal(t, 10.0, Column("List Price", Transform{Type: TransformNumericParse}).Resolve(fields))
	assert.Equal(t, "Alpha", Column("Theme", Transform{Type: TransformTrim}).Resolve(fields))
	assert.Equal(t, "USD", Constant("USD").Resolve(fields))
	assert.Nil(t, Column("Missing", Transform{Type: TransformTrim}).Resolve(fields))

	var nilMapping *FieldMapping
	assert.Nil(t, nilMapping.Resolve(fields))
}
