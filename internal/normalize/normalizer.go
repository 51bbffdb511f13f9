// Package normalize turns extracted vendor rows into canonical products using a Mapping
// Definition. Rows that cannot produce a product are skipped, never fatal.
package normalize

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kosarica/catalog-service/internal/mapping"
	"github.com/kosarica/catalog-service/internal/shape"
	"github.com/kosarica/catalog-service/internal/types"
)

// Skip reasons
const (
	ReasonMissingSKU   = "missing_sku"
	ReasonMissingName  = "missing_name"
	ReasonDuplicateSKU = "duplicate_sku"
)

// RowSkip is a soft, per-row failure. The row is excluded and the batch continues.
type RowSkip struct {
	Row    int    `json:"row"`
	Key    string `json:"key,omitempty"`
	SKU    string `json:"sku,omitempty"`
	Reason string `json:"reason"`
}

func (s *RowSkip) Error() string {
	if s.Key != "" {
		return fmt.Sprintf("row %d (%s) skipped: %s", s.Row, s.Key, s.Reason)
	}
	return fmt.Sprintf("row %d skipped: %s", s.Row, s.Reason)
}

// Result holds the canonical products plus every skipped row
type Result struct {
	Products []types.Product `json:"products"`
	Skipped  []RowSkip       `json:"skipped"`
}

// Normalizer applies one validated Mapping Definition
type Normalizer struct {
	def    *mapping.Definition
	logger zerolog.Logger
}

// New validates the definition and returns a normalizer for it. Validation failures are
// returned as *mapping.ValidationError and block normalization entirely.
func New(def *mapping.Definition, logger zerolog.Logger) (*Normalizer, error) {
	if err := mapping.Validate(def); err != nil {
		return nil, err
	}
	return &Normalizer{
		def:    def,
		logger: logger.With().Str("component", "normalizer").Str("vendor", def.VendorCode).Logger(),
	}, nil
}

// Normalize converts all rows. Duplicate SKUs keep the first occurrence so productIds stay
// unique within the batch.
func (n *Normalizer) Normalize(rows []shape.Row) *Result {
	result := &Result{
		Products: make([]types.Product, 0, len(rows)),
		Skipped:  make([]RowSkip, 0),
	}
	seen := make(map[string]int, len(rows))

	for i, row := range rows {
		product, skip := n.NormalizeRow(i, row)
		if skip == nil {
			if first, dup := seen[product.ProductID]; dup {
				skip = &RowSkip{Row: i, Key: rowKey(row), SKU: product.SKU, Reason: ReasonDuplicateSKU}
				n.logger.Warn().
					Int("row", i).
					Str("sku", product.SKU).
					Int("firstRow", first).
					Msg("Duplicate SKU in batch, row skipped")
			} else {
				seen[product.ProductID] = i
				result.Products = append(result.Products, *product)
				continue
			}
		} else {
			n.logger.Warn().
				Int("row", i).
				Str("key", skip.Key).
				Str("reason", skip.Reason).
				Msg("Row skipped")
		}
		result.Skipped = append(result.Skipped, *skip)
	}

	n.logger.Debug().
		Int("rows", len(rows)).
		Int("products", len(result.Products)).
		Int("skipped", len(result.Skipped)).
		Msg("Normalization complete")

	return result
}

// NormalizeRow converts a single row. The second return is non-nil when the row is skipped.
func (n *Normalizer) NormalizeRow(index int, row shape.Row) (*types.Product, *RowSkip) {
	def := n.def

	// intrinsic key wins over the sku column
	var sku string
	if row.IntrinsicKey != nil && strings.TrimSpace(*row.IntrinsicKey) != "" {
		sku = strings.TrimSpace(*row.IntrinsicKey)
	} else {
		sku = strings.TrimSpace(mapping.Stringify(def.SKU.Resolve(row.Fields)))
	}
	if sku == "" {
		return nil, &RowSkip{Row: index, Key: rowKey(row), Reason: ReasonMissingSKU}
	}

	name := mapping.Stringify(def.Name.Resolve(row.Fields))
	if strings.TrimSpace(name) == "" {
		return nil, &RowSkip{Row: index, Key: rowKey(row), SKU: sku, Reason: ReasonMissingName}
	}

	collectionName := mapping.Stringify(def.Collection.Resolve(row.Fields))

	status := types.StatusActive
	if def.Status != nil {
		status = NormalizeStatus(def.Status.Resolve(row.Fields), def.Status.ValueMap)
	}

	product := &types.Product{
		ProductID:      types.ProductID(def.VendorCode, sku),
		VendorCode:     def.VendorCode,
		SKU:            sku,
		Name:           name,
		CollectionCode: Slugify(collectionName),
		CollectionName: collectionName,
		Status:         status,
		Prices:         make([]types.Price, 0, len(def.Prices)),
		Specs:          make(map[string]any, len(def.Specs)),
	}

	for _, pm := range def.Prices {
		amount := mapping.ParseNumeric(pm.Resolve(row.Fields))
		if amount <= 0 {
			continue
		}
		product.SetPrice(types.Price{Tier: pm.Tier, Currency: pm.Currency, Amount: amount})
	}

	for _, sm := range def.Specs {
		value := sm.Resolve(row.Fields)
		if value == nil {
			continue
		}
		product.Specs[sm.Key] = value
	}

	return product, nil
}

func rowKey(row shape.Row) string {
	if row.IntrinsicKey != nil {
		return *row.IntrinsicKey
	}
	return ""
}
