package commit

import (
	"fmt"
	"strings"

	"github.com/kosarica/catalog-service/internal/diff"
	"github.com/kosarica/catalog-service/internal/types"
)

type appliedIDs struct {
	added        []string
	updated      []string
	priceChanged []string
	discontinued []string
}

// applier mutates an in-memory copy of the full catalog
type applier struct {
	products  []types.Product
	index     map[string]int
	toggles   types.SafetyToggles
	effective string
}

func newApplier(products []types.Product, toggles types.SafetyToggles, effective string) *applier {
	a := &applier{
		products:  products,
		index:     make(map[string]int, len(products)),
		toggles:   toggles,
		effective: effective,
	}
	for i, p := range products {
		a.index[p.ProductID] = i
	}
	return a
}

// apply processes the buckets in order add, update, price_change, discontinue. A failing
// product is reported through onError and the batch continues.
func (a *applier) apply(p *diff.ImportPreview, onError func(productID string, err error)) appliedIDs {
	var out appliedIDs

	run := func(productID string, fn func() error) bool {
		if err := safely(fn); err != nil {
			onError(productID, err)
			return false
		}
		return true
	}

	for _, d := range p.Adds {
		d := d
		if run(d.ProductID, func() error { return a.add(d) }) {
			out.added = append(out.added, d.ProductID)
		}
	}

	for _, d := range p.Updates {
		d := d
		if run(d.ProductID, func() error { return a.update(d) }) {
			out.updated = append(out.updated, d.ProductID)
		}
	}

	if !a.toggles.SpecsOnly {
		for _, d := range p.PriceChanges {
			d := d
			if run(d.ProductID, func() error { return a.priceChange(d) }) {
				out.priceChanged = append(out.priceChanged, d.ProductID)
			}
		}
	}

	if a.toggles.MarkMissingAsDiscontinued {
		for _, d := range p.Discontinuations {
			d := d
			if run(d.ProductID, func() error { return a.discontinue(d) }) {
				out.discontinued = append(out.discontinued, d.ProductID)
			}
		}
	}

	return out
}

func (a *applier) add(d diff.AddDiff) error {
	if d.ProductID == "" || d.Incoming.ProductID != d.ProductID {
		return fmt.Errorf("incoming product id %q does not match diff id %q", d.Incoming.ProductID, d.ProductID)
	}

	p := d.Incoming.Clone()
	if p.Specs == nil {
		p.Specs = make(map[string]any)
	}
	if a.toggles.TagNewAsIntroductions {
		p.SetSpec(types.SpecIntroduction, true)
		p.SetSpec(types.SpecIntroductionDate, a.effective)
	}

	// a product added since the preview is replaced rather than duplicated
	if idx, ok := a.index[p.ProductID]; ok {
		a.products[idx] = p
		return nil
	}
	a.index[p.ProductID] = len(a.products)
	a.products = append(a.products, p)
	return nil
}

func (a *applier) update(d diff.UpdateDiff) error {
	idx, ok := a.index[d.ProductID]
	if !ok {
		return fmt.Errorf("product %s not found in catalog", d.ProductID)
	}

	p := a.products[idx].Clone()
	for _, change := range diff.FilterChanges(d.Changes, a.toggles) {
		if err := setField(&p, change); err != nil {
			return err
		}
	}

	if !a.toggles.SpecsOnly && len(d.PriceChanges) > 0 {
		for _, pc := range d.PriceChanges {
			p.SetPrice(types.Price{Tier: pc.Tier, Currency: pc.Currency, Amount: pc.NewAmount})
		}
		p.SetSpec(types.SpecLastPriceUpdate, a.effective)
	}

	a.products[idx] = p
	return nil
}

func (a *applier) priceChange(d diff.PriceChangeDiff) error {
	idx, ok := a.index[d.ProductID]
	if !ok {
		return fmt.Errorf("product %s not found in catalog", d.ProductID)
	}

	p := a.products[idx].Clone()
	for _, price := range d.Incoming.Prices {
		if price.Amount <= 0 {
			return fmt.Errorf("invalid amount %v for %s", price.Amount, price.Key())
		}
		p.SetPrice(price)
	}
	for _, pc := range d.PriceChanges {
		p.SetPrice(types.Price{Tier: pc.Tier, Currency: pc.Currency, Amount: pc.NewAmount})
	}
	p.SetSpec(types.SpecLastPriceUpdate, a.effective)

	a.products[idx] = p
	return nil
}

func (a *applier) discontinue(d diff.DiscontinueDiff) error {
	idx, ok := a.index[d.ProductID]
	if !ok {
		return fmt.Errorf("product %s not found in catalog", d.ProductID)
	}

	p := a.products[idx].Clone()
	p.Status = types.StatusDiscontinued
	p.SetSpec(types.SpecDiscontinuedDate, a.effective)

	a.products[idx] = p
	return nil
}

// setField applies one field-level change. Spec changes touch only the addressed key and a
// nil new value removes the key.
func setField(p *types.Product, change types.FieldChange) error {
	if strings.HasPrefix(change.Field, diff.SpecFieldPrefix) {
		key := strings.TrimPrefix(change.Field, diff.SpecFieldPrefix)
		if key == "" {
			return fmt.Errorf("empty spec key in field %q", change.Field)
		}
		if change.NewValue == nil {
			delete(p.Specs, key)
			return nil
		}
		p.SetSpec(key, change.NewValue)
		return nil
	}

	value, ok := change.NewValue.(string)
	if !ok {
		return fmt.Errorf("field %s expects a string, got %T", change.Field, change.NewValue)
	}

	switch change.Field {
	case diff.FieldSKU:
		p.SKU = value
	case diff.FieldName:
		p.Name = value
	case diff.FieldCollectionCode:
		p.CollectionCode = value
	case diff.FieldCollectionName:
		p.CollectionName = value
	case diff.FieldStatus:
		status := types.ProductStatus(value)
		switch status {
		case types.StatusActive, types.StatusDiscontinued, types.StatusArchived:
			p.Status = status
		default:
			return fmt.Errorf("invalid status %q", value)
		}
	default:
		return fmt.Errorf("unsupported field %q", change.Field)
	}
	return nil
}

// safely runs fn and turns a panic into an error
func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
