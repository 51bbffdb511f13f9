package diff

import (
	"strings"

	"github.com/kosarica/catalog-service/internal/types"
)

// ApplyToggles narrows a preview according to the safety toggles and returns a new preview
// with a recomputed summary. The input preview is not modified.
//
// pricesOnly keeps only "price*" field changes on updates; an update left without field
// changes moves to the price_change bucket when it carries price deltas. Without price
// deltas it has nothing left to commit, so it leaves every bucket and is counted as
// unchanged. specsOnly keeps only "specs.*" changes, drops the price annotation
// of updates and empties the price_change bucket. dontChangeCollections drops collection
// changes. markMissingAsDiscontinued and tagNewAsIntroductions have no effect here.
func ApplyToggles(p *ImportPreview, toggles types.SafetyToggles) *ImportPreview {
	out := &ImportPreview{
		VendorCode:       p.VendorCode,
		Adds:             append(make([]AddDiff, 0, len(p.Adds)), p.Adds...),
		Updates:          make([]UpdateDiff, 0, len(p.Updates)),
		PriceChanges:     append(make([]PriceChangeDiff, 0, len(p.PriceChanges)), p.PriceChanges...),
		Discontinuations: append(make([]DiscontinueDiff, 0, len(p.Discontinuations)), p.Discontinuations...),
		Summary:          Summary{TotalIncoming: p.Summary.TotalIncoming},
	}

	for _, u := range p.Updates {
		u.Changes = FilterChanges(u.Changes, toggles)
		if toggles.SpecsOnly {
			u.PriceChanges = nil
		}

		if toggles.PricesOnly && len(u.Changes) == 0 {
			if len(u.PriceChanges) > 0 {
				out.PriceChanges = append(out.PriceChanges, PriceChangeDiff{
					ProductID:    u.ProductID,
					Incoming:     u.Incoming,
					Existing:     u.Existing,
					PriceChanges: u.PriceChanges,
				})
			}
			continue
		}
		out.Updates = append(out.Updates, u)
	}

	if toggles.SpecsOnly {
		out.PriceChanges = make([]PriceChangeDiff, 0)
	}

	out.Recount()
	return out
}

// FilterChanges returns the field changes that survive the toggles. The commit engine runs
// it again on every update it applies.
func FilterChanges(changes []types.FieldChange, toggles types.SafetyToggles) []types.FieldChange {
	out := make([]types.FieldChange, 0, len(changes))
	for _, c := range changes {
		if Allowed(c.Field, toggles) {
			out = append(out, c)
		}
	}
	return out
}

// Allowed reports whether a change to field may be applied under the toggles
func Allowed(field string, toggles types.SafetyToggles) bool {
	if toggles.PricesOnly && !strings.HasPrefix(field, "price") {
		return false
	}
	if toggles.SpecsOnly && !strings.HasPrefix(field, SpecFieldPrefix) {
		return false
	}
	if toggles.DontChangeCollections && (field == FieldCollectionCode || field == FieldCollectionName) {
		return false
	}
	return true
}
