package mapping

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TransformType names one of the supported value transforms
type TransformType string

const (
	TransformTrim         TransformType = "trim"
	TransformUppercase    TransformType = "uppercase"
	TransformLowercase    TransformType = "lowercase"
	TransformNumericParse TransformType = "numeric-parse"
	TransformStripUnits   TransformType = "strip-units"
	TransformRemoveCommas TransformType = "remove-commas"
	TransformRegexReplace TransformType = "regex-replace"
)

// KnownTransforms lists every transform type the engine understands
var KnownTransforms = []TransformType{
	TransformTrim,
	TransformUppercase,
	TransformLowercase,
	TransformNumericParse,
	TransformStripUnits,
	TransformRemoveCommas,
	TransformRegexReplace,
}

// Transform is a single step of a transform chain
type Transform struct {
	Type        TransformType `json:"type" jsonschema:"enum=trim,enum=uppercase,enum=lowercase,enum=numeric-parse,enum=strip-units,enum=remove-commas,enum=regex-replace"`
	Pattern     string        `json:"pattern,omitempty"`
	Replacement string        `json:"replacement,omitempty"`
}

var (
	// trailing unit token after a digit, longest alternatives first
	unitSuffixRe = regexp.MustCompile(`(?i)(\d)\s*(in|cm|mm|ft|lbs|lb|kg|oz|m|g)\.?\s*$`)
	// currency symbols and codes removed before numeric parsing
	currencyRe = regexp.MustCompile(`(?i)[$€£¥₹¢]|\b(usd|eur|gbp|cad|aud|hrk|kn)\b`)

	regexCache sync.Map // pattern -> *regexp.Regexp
)

// ApplyChain folds the transforms over value in declared order.
// A nil value skips the chain entirely.
func ApplyChain(value any, chain []Transform) any {
	if value == nil {
		return nil
	}
	for _, t := range chain {
		value = Apply(value, t)
	}
	return value
}

// Apply runs a single transform. Transforms never fail: numeric-parse yields 0 on bad input
// and an invalid regex leaves the value untouched.
func Apply(value any, t Transform) any {
	if value == nil {
		return nil
	}

	switch t.Type {
	case TransformTrim:
		return strings.TrimSpace(Stringify(value))
	case TransformUppercase:
		return cases.Upper(language.Und).String(Stringify(value))
	case TransformLowercase:
		return cases.Lower(language.Und).String(Stringify(value))
	case TransformNumericParse:
		return ParseNumeric(value)
	case TransformStripUnits:
		return StripUnits(Stringify(value))
	case TransformRemoveCommas:
		return strings.ReplaceAll(Stringify(value), ",", "")
	case TransformRegexReplace:
		re, err := compilePattern(t.Pattern)
		if err != nil {
			log.Warn().Err(err).Str("pattern", t.Pattern).Msg("Invalid regex-replace pattern, value left unchanged")
			return value
		}
		return re.ReplaceAllString(Stringify(value), t.Replacement)
	default:
		log.Warn().Str("type", string(t.Type)).Msg("Unknown transform type, value left unchanged")
		return value
	}
}

// StripUnits removes a trailing unit token (in/cm/mm/ft/m/lb/kg/oz/g) and trims
func StripUnits(s string) string {
	return strings.TrimSpace(unitSuffixRe.ReplaceAllString(strings.TrimSpace(s), "${1}"))
}

// ParseNumeric converts a value to a float64. Strings have currency symbols, whitespace,
// thousands separators and a trailing unit stripped first. Returns 0 when nothing parses.
func ParseNumeric(value any) float64 {
	switch v := value.(type) {
	case nil:
		return 0
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return v
	case float32:
		return ParseNumeric(float64(v))
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case bool:
		if v {
			return 1
		}
		return 0
	}

	s := currencyRe.ReplaceAllString(Stringify(value), "")
	s = StripUnits(s)
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\u00A0' || r == '\t' {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return 0
	}

	s = normalizeSeparators(s)

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// normalizeSeparators resolves thousands vs decimal separators.
// "1,234.56" and "1.234,56" both become "1234.56"; a lone comma followed by exactly
// three digits ("1,234") is a thousands separator, otherwise it is a decimal comma.
func normalizeSeparators(s string) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastComma < 0:
		return s
	case lastDot > lastComma:
		return strings.ReplaceAll(s, ",", "")
	case lastDot >= 0:
		// European: dots group thousands, the comma is decimal
		s = strings.ReplaceAll(s, ".", "")
		return strings.Replace(s, ",", ".", 1)
	}

	// only commas present
	if strings.Count(s, ",") > 1 || len(s)-lastComma-1 == 3 {
		return strings.ReplaceAll(s, ",", "")
	}
	return strings.Replace(s, ",", ".", 1)
}

// Stringify renders a raw value in its string form. Whole floats drop the fraction.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	if cached, ok := regexCache.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	regexCache.Store(pattern, re)
	return re, nil
}
