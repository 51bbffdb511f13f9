package diff

import (
	"math"
	"sort"

	"github.com/kosarica/catalog-service/internal/types"
)

// Compared product fields, in reporting order
const (
	FieldSKU            = "sku"
	FieldName           = "name"
	FieldCollectionCode = "collectionCode"
	FieldCollectionName = "collectionName"
	FieldStatus         = "status"
)

// SpecFieldPrefix prefixes spec-level field changes: "specs.<key>"
const SpecFieldPrefix = "specs."

// Options tune diff generation
type Options struct {
	// IgnoreFields are comparator fields (or "specs.<key>") never reported as changes
	IgnoreFields []string
	// DetectDiscontinued populates the discontinue bucket
	DetectDiscontinued bool
}

// Generate classifies incoming products against the vendor's persisted products. Existing
// products of other vendors are ignored.
func Generate(vendorCode string, incoming, existing []types.Product, opts Options) *ImportPreview {
	preview := NewPreview(vendorCode, len(incoming))

	ignore := make(map[string]bool, len(opts.IgnoreFields))
	for _, f := range opts.IgnoreFields {
		ignore[f] = true
	}

	existingByID := make(map[string]types.Product, len(existing))
	for _, p := range existing {
		if p.VendorCode != vendorCode {
			continue
		}
		existingByID[p.ProductID] = p
	}

	incomingIDs := make(map[string]bool, len(incoming))
	for _, in := range incoming {
		incomingIDs[in.ProductID] = true

		current, found := existingByID[in.ProductID]
		if !found {
			preview.Adds = append(preview.Adds, AddDiff{ProductID: in.ProductID, Incoming: in})
			continue
		}

		changes := FieldChanges(current, in, ignore)
		priceChanges := PriceChanges(current, in)

		switch {
		case len(changes) > 0:
			preview.Updates = append(preview.Updates, UpdateDiff{
				ProductID:    in.ProductID,
				Incoming:     in,
				Existing:     current,
				Changes:      changes,
				PriceChanges: priceChanges,
			})
		case len(priceChanges) > 0:
			preview.PriceChanges = append(preview.PriceChanges, PriceChangeDiff{
				ProductID:    in.ProductID,
				Incoming:     in,
				Existing:     current,
				PriceChanges: priceChanges,
			})
		}
	}

	if opts.DetectDiscontinued {
		for _, p := range existing {
			if p.VendorCode != vendorCode || incomingIDs[p.ProductID] || p.Status == types.StatusDiscontinued {
				continue
			}
			preview.Discontinuations = append(preview.Discontinuations, DiscontinueDiff{
				ProductID: p.ProductID,
				Existing:  p,
			})
		}
	}

	preview.Recount()
	return preview
}

// FieldChanges compares the fixed comparator fields and then the specs key by key.
// Commit-stamped spec keys are only compared when the incoming product carries them.
func FieldChanges(existing, incoming types.Product, ignore map[string]bool) []types.FieldChange {
	changes := make([]types.FieldChange, 0)

	compare := func(field string, oldValue, newValue string) {
		if ignore[field] || oldValue == newValue {
			return
		}
		changes = append(changes, types.FieldChange{Field: field, OldValue: oldValue, NewValue: newValue})
	}
	compare(FieldSKU, existing.SKU, incoming.SKU)
	compare(FieldName, existing.Name, incoming.Name)
	compare(FieldCollectionCode, existing.CollectionCode, incoming.CollectionCode)
	compare(FieldCollectionName, existing.CollectionName, incoming.CollectionName)
	compare(FieldStatus, string(existing.Status), string(incoming.Status))

	for _, key := range specKeys(existing.Specs, incoming.Specs) {
		field := SpecFieldPrefix + key
		if ignore[field] {
			continue
		}
		oldValue, hadOld := existing.Specs[key]
		newValue, hasNew := incoming.Specs[key]
		if !hasNew && types.IsManagedSpec(key) {
			continue
		}
		if hadOld == hasNew && Equal(oldValue, newValue) {
			continue
		}
		changes = append(changes, types.FieldChange{Field: field, OldValue: oldValue, NewValue: newValue})
	}

	return changes
}

// PriceChanges reports every incoming price that is new or differs from the existing tuple
// with the same tier and currency. Existing prices missing from the incoming side are kept
// and not reported.
func PriceChanges(existing, incoming types.Product) []types.PriceChange {
	changes := make([]types.PriceChange, 0)
	for _, price := range incoming.Prices {
		current, found := existing.PriceFor(price.Tier, price.Currency)
		if !found {
			changes = append(changes, types.PriceChange{
				Tier:      price.Tier,
				Currency:  price.Currency,
				NewAmount: price.Amount,
			})
			continue
		}
		if floatEqual(current.Amount, price.Amount) {
			continue
		}

		change := types.PriceChange{
			Tier:      price.Tier,
			Currency:  price.Currency,
			OldAmount: types.Float64Ptr(current.Amount),
			NewAmount: price.Amount,
		}
		if current.Amount != 0 {
			change.ChangePercent = types.Float64Ptr(ChangePercent(current.Amount, price.Amount))
		}
		changes = append(changes, change)
	}
	return changes
}

// ChangePercent is (new-old)/old*100 rounded to 2 decimals
func ChangePercent(oldAmount, newAmount float64) float64 {
	return math.Round((newAmount-oldAmount)/oldAmount*100*100) / 100
}

func specKeys(a, b map[string]any) []string {
	keys := make([]string, 0, len(a)+len(b))
	seen := make(map[string]bool, len(a)+len(b))
	for k := range a {
		seen[k] = true
		keys = append(keys, k)
	}
	for k := range b {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
