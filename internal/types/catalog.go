package types

import (
	"fmt"
	"time"
)

// ProductStatus represents the lifecycle status of a catalog product
type ProductStatus string

const (
	StatusActive       ProductStatus = "active"
	StatusDiscontinued ProductStatus = "discontinued"
	StatusArchived     ProductStatus = "archived"
)

// Price is a single price point, unique per (tier, currency) within a product
type Price struct {
	Tier     string  `json:"tier"`
	Currency string  `json:"currency"`
	Amount   float64 `json:"amount"`
}

// Key returns the "tier:currency" lookup key for the price
func (p Price) Key() string {
	return PriceKey(p.Tier, p.Currency)
}

// PriceKey builds the lookup key for a tier/currency pair
func PriceKey(tier, currency string) string {
	return tier + ":" + currency
}

// Product is the canonical, vendor-agnostic product record
type Product struct {
	ProductID      string         `json:"productId"`
	VendorCode     string         `json:"vendorCode"`
	SKU            string         `json:"sku"`
	Name           string         `json:"name"`
	CollectionCode string         `json:"collectionCode"`
	CollectionName string         `json:"collectionName"`
	Status         ProductStatus  `json:"status"`
	Prices         []Price        `json:"prices"`
	Specs          map[string]any `json:"specs"`
}

// ProductID builds the catalog-wide identifier "<vendorCode>:<sku>"
func ProductID(vendorCode, sku string) string {
	return vendorCode + ":" + sku
}

// Clone returns a deep-enough copy: prices and the top level of specs are copied
func (p Product) Clone() Product {
	out := p
	if p.Prices != nil {
		out.Prices = make([]Price, len(p.Prices))
		copy(out.Prices, p.Prices)
	}
	if p.Specs != nil {
		out.Specs = make(map[string]any, len(p.Specs))
		for k, v := range p.Specs {
			out.Specs[k] = v
		}
	}
	return out
}

// PriceFor returns the price stored for tier/currency, if any
func (p Product) PriceFor(tier, currency string) (Price, bool) {
	key := PriceKey(tier, currency)
	for _, price := range p.Prices {
		if price.Key() == key {
			return price, true
		}
	}
	return Price{}, false
}

// SetPrice inserts or replaces the price keyed by tier:currency
func (p *Product) SetPrice(price Price) {
	for i := range p.Prices {
		if p.Prices[i].Key() == price.Key() {
			p.Prices[i] = price
			return
		}
	}
	p.Prices = append(p.Prices, price)
}

// SetSpec sets a single spec key, allocating the map when needed
func (p *Product) SetSpec(key string, value any) {
	if p.Specs == nil {
		p.Specs = make(map[string]any)
	}
	p.Specs[key] = value
}

// Spec keys written by commits rather than by vendor data
const (
	SpecIntroduction     = "introduction"
	SpecIntroductionDate = "introductionDate"
	SpecLastPriceUpdate  = "lastPriceUpdate"
	SpecDiscontinuedDate = "discontinuedDate"
)

// IsManagedSpec reports whether key is one of the commit-stamped spec keys
func IsManagedSpec(key string) bool {
	switch key {
	case SpecIntroduction, SpecIntroductionDate, SpecLastPriceUpdate, SpecDiscontinuedDate:
		return true
	}
	return false
}

// FieldChange is a single field-level difference between existing and incoming records.
// Spec fields are addressed as "specs.<key>".
type FieldChange struct {
	Field    string `json:"field"`
	OldValue any    `json:"oldValue"`
	NewValue any    `json:"newValue"`
}

// PriceChange describes a new or changed price tuple
type PriceChange struct {
	Tier          string   `json:"tier"`
	Currency      string   `json:"currency"`
	OldAmount     *float64 `json:"oldAmount,omitempty"`
	NewAmount     float64  `json:"newAmount"`
	ChangePercent *float64 `json:"changePercent,omitempty"`
}

// SafetyToggles is the flat boolean policy bag selected by the operator
type SafetyToggles struct {
	PricesOnly                bool `json:"pricesOnly"`
	SpecsOnly                 bool `json:"specsOnly"`
	DontChangeCollections     bool `json:"dontChangeCollections"`
	MarkMissingAsDiscontinued bool `json:"markMissingAsDiscontinued"`
	TagNewAsIntroductions     bool `json:"tagNewAsIntroductions"`
}

// CommitError records a per-product failure during commit
type CommitError struct {
	ProductID string `json:"productId"`
	Error     string `json:"error"`
}

// CommitSummary counts what a commit applied
type CommitSummary struct {
	Added        int `json:"added"`
	Updated      int `json:"updated"`
	PriceChanged int `json:"priceChanged"`
	Discontinued int `json:"discontinued"`
	Failed       int `json:"failed"`
}

// CommitResult is returned by every commit, successful or not
type CommitResult struct {
	Success   bool          `json:"success"`
	ImportID  string        `json:"importId"`
	Timestamp time.Time     `json:"timestamp"`
	Summary   CommitSummary `json:"summary"`
	Errors    []CommitError `json:"errors"`
}

// SystemErrorID is the productId used for batch-level (system) commit errors
const SystemErrorID = "_system"

// String implements fmt.Stringer for log output
func (r CommitResult) String() string {
	return fmt.Sprintf("import %s success=%t added=%d updated=%d priceChanged=%d discontinued=%d failed=%d",
		r.ImportID, r.Success, r.Summary.Added, r.Summary.Updated, r.Summary.PriceChanged,
		r.Summary.Discontinued, r.Summary.Failed)
}

// Float64Ptr returns a pointer to the given float64
func Float64Ptr(f float64) *float64 {
	return &f
}
