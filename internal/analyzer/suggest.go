package analyzer

import (
	"strings"

	"github.com/kosarica/catalog-service/internal/mapping"
)

// DefaultPriceTier is the tier assigned to the suggested price column in a draft mapping
const DefaultPriceTier = "MSRP"

var (
	skuNames        = []string{"sku", "item number", "item_number", "itemnumber", "item no", "item #", "code", "product code", "part number", "part_number"}
	nameHints       = []string{"name", "description", "title"}
	collectionHints = []string{"collection", "series", "family", "group"}
	priceHints      = []string{"price", "msrp", "cost", "list"}
	preferredPrice  = []string{"msrp", "list"}
)

// Suggestions lists candidate columns per canonical field, best first
type Suggestions struct {
	SKU        []string `json:"sku"`
	Name       []string `json:"name"`
	Collection []string `json:"collection"`
	Price      []string `json:"price"`
	// PreferredPrice is the MSRP/List match when one exists, otherwise the first price candidate
	PreferredPrice string `json:"preferredPrice,omitempty"`
}

// Suggest applies the naming heuristics to profiled columns
func Suggest(columns []Column, sampled int) Suggestions {
	s := Suggestions{
		SKU:        make([]string, 0),
		Name:       make([]string, 0),
		Collection: make([]string, 0),
		Price:      make([]string, 0),
	}

	for _, col := range columns {
		lower := strings.ToLower(strings.TrimSpace(col.Name))

		if containsExact(skuNames, lower) {
			s.SKU = append(s.SKU, col.Name)
		}
		if containsAny(lower, nameHints) {
			s.Name = append(s.Name, col.Name)
		}
		if containsAny(lower, collectionHints) {
			s.Collection = append(s.Collection, col.Name)
		}
		if col.InferredType == TypeNumber && containsAny(lower, priceHints) {
			s.Price = append(s.Price, col.Name)
			if s.PreferredPrice == "" && containsAny(lower, preferredPrice) {
				s.PreferredPrice = col.Name
			}
		}
	}

	// high-uniqueness string columns stand in when no column is named like a sku
	if len(s.SKU) == 0 && sampled > 0 {
		for _, col := range columns {
			if col.InferredType == TypeString && float64(col.UniqueCount)/float64(sampled) > 0.9 {
				s.SKU = append(s.SKU, col.Name)
			}
		}
	}

	if s.PreferredPrice == "" && len(s.Price) > 0 {
		s.PreferredPrice = s.Price[0]
	}

	return s
}

// DraftMapping turns the suggestions into a starting Mapping Definition. The draft is not
// validated; fields without a candidate are left unset for the operator to fill in.
func DraftMapping(vendorCode string, a *Analysis, currency string) *mapping.Definition {
	shp := a.Shape
	def := &mapping.Definition{
		VendorCode: vendorCode,
		Shape:      &shp,
		Prices:     make([]mapping.PriceMapping, 0, 1),
	}

	trim := mapping.Transform{Type: mapping.TransformTrim}
	if len(a.Suggestions.SKU) > 0 {
		def.SKU = mapping.Column(a.Suggestions.SKU[0], trim)
	}
	if len(a.Suggestions.Name) > 0 {
		def.Name = mapping.Column(a.Suggestions.Name[0], trim)
	}
	if len(a.Suggestions.Collection) > 0 {
		def.Collection = mapping.Column(a.Suggestions.Collection[0], trim)
	}
	if a.Suggestions.PreferredPrice != "" {
		def.Prices = append(def.Prices, mapping.PriceMapping{
			FieldMapping: *mapping.Column(a.Suggestions.PreferredPrice, mapping.Transform{Type: mapping.TransformNumericParse}),
			Tier:         DefaultPriceTier,
			Currency:     currency,
		})
	}

	return def
}

func containsExact(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsAny(s string, hints []string) bool {
	for _, h := range hints {
		if strings.Contains(s, h) {
			return true
		}
	}
	return false
}
