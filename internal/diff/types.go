// Package diff classifies incoming canonical products against a vendor's persisted catalog
// and narrows the result with the operator's safety toggles.
package diff

import (
	"encoding/json"

	"github.com/kosarica/catalog-service/internal/types"
)

// Kind is the bucket a product diff belongs to
type Kind string

const (
	KindAdd         Kind = "add"
	KindUpdate      Kind = "update"
	KindPriceChange Kind = "price_change"
	KindDiscontinue Kind = "discontinue"
)

// ProductDiff is implemented by the four diff variants
type ProductDiff interface {
	Kind() Kind
	ID() string
}

// AddDiff is a product not present in the persisted catalog
type AddDiff struct {
	ProductID string        `json:"productId"`
	Incoming  types.Product `json:"incoming"`
}

// UpdateDiff is a product with at least one field-level change. Price deltas ride along as
// an annotation and never decide the bucket.
type UpdateDiff struct {
	ProductID    string              `json:"productId"`
	Incoming     types.Product       `json:"incoming"`
	Existing     types.Product       `json:"existing"`
	Changes      []types.FieldChange `json:"changes"`
	PriceChanges []types.PriceChange `json:"priceChanges,omitempty"`
}

// PriceChangeDiff is a product whose only differences are prices
type PriceChangeDiff struct {
	ProductID    string              `json:"productId"`
	Incoming     types.Product       `json:"incoming"`
	Existing     types.Product       `json:"existing"`
	PriceChanges []types.PriceChange `json:"priceChanges"`
}

// DiscontinueDiff is a persisted product missing from the incoming batch
type DiscontinueDiff struct {
	ProductID string        `json:"productId"`
	Existing  types.Product `json:"existing"`
}

func (d AddDiff) Kind() Kind         { return KindAdd }
func (d UpdateDiff) Kind() Kind      { return KindUpdate }
func (d PriceChangeDiff) Kind() Kind { return KindPriceChange }
func (d DiscontinueDiff) Kind() Kind { return KindDiscontinue }

func (d AddDiff) ID() string         { return d.ProductID }
func (d UpdateDiff) ID() string      { return d.ProductID }
func (d PriceChangeDiff) ID() string { return d.ProductID }
func (d DiscontinueDiff) ID() string { return d.ProductID }

// MarshalJSON adds the variant tag
func (d AddDiff) MarshalJSON() ([]byte, error) {
	type alias AddDiff
	return json.Marshal(struct {
		Type Kind `json:"type"`
		alias
	}{KindAdd, alias(d)})
}

// MarshalJSON adds the variant tag
func (d UpdateDiff) MarshalJSON() ([]byte, error) {
	type alias UpdateDiff
	return json.Marshal(struct {
		Type Kind `json:"type"`
		alias
	}{KindUpdate, alias(d)})
}

// MarshalJSON adds the variant tag
func (d PriceChangeDiff) MarshalJSON() ([]byte, error) {
	type alias PriceChangeDiff
	return json.Marshal(struct {
		Type Kind `json:"type"`
		alias
	}{KindPriceChange, alias(d)})
}

// MarshalJSON adds the variant tag
func (d DiscontinueDiff) MarshalJSON() ([]byte, error) {
	type alias DiscontinueDiff
	return json.Marshal(struct {
		Type Kind `json:"type"`
		alias
	}{KindDiscontinue, alias(d)})
}

// Summary holds bucket counts. NewProducts + UpdatedProducts + PriceOnlyChanges + Unchanged
// always equals TotalIncoming.
type Summary struct {
	TotalIncoming    int `json:"totalIncoming"`
	NewProducts      int `json:"newProducts"`
	UpdatedProducts  int `json:"updatedProducts"`
	PriceOnlyChanges int `json:"priceOnlyChanges"`
	Unchanged        int `json:"unchanged"`
	Discontinued     int `json:"discontinued"`
}

// ImportPreview is the bucketed diff of one import
type ImportPreview struct {
	VendorCode       string            `json:"vendorCode"`
	Adds             []AddDiff         `json:"adds"`
	Updates          []UpdateDiff      `json:"updates"`
	PriceChanges     []PriceChangeDiff `json:"priceChanges"`
	Discontinuations []DiscontinueDiff `json:"discontinuations"`
	Summary          Summary           `json:"summary"`
}

// NewPreview returns an empty preview for a vendor
func NewPreview(vendorCode string, totalIncoming int) *ImportPreview {
	p := &ImportPreview{
		VendorCode:       vendorCode,
		Adds:             make([]AddDiff, 0),
		Updates:          make([]UpdateDiff, 0),
		PriceChanges:     make([]PriceChangeDiff, 0),
		Discontinuations: make([]DiscontinueDiff, 0),
	}
	p.Summary.TotalIncoming = totalIncoming
	p.Recount()
	return p
}

// Recount derives the summary from the bucket sizes
func (p *ImportPreview) Recount() {
	p.Summary.NewProducts = len(p.Adds)
	p.Summary.UpdatedProducts = len(p.Updates)
	p.Summary.PriceOnlyChanges = len(p.PriceChanges)
	p.Summary.Discontinued = len(p.Discontinuations)
	p.Summary.Unchanged = p.Summary.TotalIncoming -
		(p.Summary.NewProducts + p.Summary.UpdatedProducts + p.Summary.PriceOnlyChanges)
}

// Entries flattens the buckets in commit order: add, update, price_change, discontinue
func (p *ImportPreview) Entries() []ProductDiff {
	out := make([]ProductDiff, 0, len(p.Adds)+len(p.Updates)+len(p.PriceChanges)+len(p.Discontinuations))
	for _, d := range p.Adds {
		out = append(out, d)
	}
	for _, d := range p.Updates {
		out = append(out, d)
	}
	for _, d := range p.PriceChanges {
		out = append(out, d)
	}
	for _, d := range p.Discontinuations {
		out = append(out, d)
	}
	return out
}

// IsEmpty reports whether the preview would change nothing
func (p *ImportPreview) IsEmpty() bool {
	return len(p.Adds) == 0 && len(p.Updates) == 0 && len(p.PriceChanges) == 0 && len(p.Discontinuations) == 0
}
