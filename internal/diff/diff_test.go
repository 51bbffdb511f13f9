package diff

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosarica/catalog-service/internal/types"
)

func product(sku string, msrp float64) types.Product {
	return types.Product{
		ProductID:      types.ProductID("acme", sku),
		VendorCode:     "acme",
		SKU:            sku,
		Name:           "Product " + sku,
		CollectionCode: "alpha",
		CollectionName: "Alpha",
		Status:         types.StatusActive,
		Prices:         []types.Price{{Tier: "MSRP", Currency: "USD", Amount: msrp}},
		Specs:          map[string]any{},
	}
}

func assertPartition(t *testing.T, p *ImportPreview) {
	t.Helper()
	s := p.Summary
	assert.Equal(t, s.TotalIncoming, s.NewProducts+s.UpdatedProducts+s.PriceOnlyChanges+s.Unchanged)
	assert.Equal(t, len(p.Adds), s.NewProducts)
	assert.Equal(t, len(p.Updates), s.UpdatedProducts)
	assert.Equal(t, len(p.PriceChanges), s.PriceOnlyChanges)
	assert.Equal(t, len(p.Discontinuations), s.Discontinued)
}

func TestGenerateEmptyCatalogAllAdds(t *testing.T) {
	incoming := []types.Product{product("A", 10), product("B", 20), product("C", 30)}

	p := Generate("acme", incoming, nil, Options{DetectDiscontinued: true})
	assert.Len(t, p.Adds, 3)
	assert.Equal(t, 3, p.Summary.NewProducts)
	assert.Equal(t, 0, p.Summary.Unchanged)
	assert.Empty(t, p.Discontinuations)
	assertPartition(t, p)
}

func TestGeneratePriceChange(t *testing.T) {
	existing := []types.Product{product("A", 10.00)}
	incoming := []types.Product{product("A", 12.00)}

	p := Generate("acme", incoming, existing, Options{})
	require.Len(t, p.PriceChanges, 1)
	assert.Empty(t, p.Updates)

	pc := p.PriceChanges[0].PriceChanges
	require.Len(t, pc, 1)
	require.NotNil(t, pc[0].OldAmount)
	assert.Equal(t, 10.00, *pc[0].OldAmount)
	assert.Equal(t, 12.00, pc[0].NewAmount)
	require.NotNil(t, pc[0].ChangePercent)
	assert.Equal(t, 20.0, *pc[0].ChangePercent)
	assertPartition(t, p)
}

func TestGenerateNewPriceTier(t *testing.T) {
	existing := []types.Product{product("A", 10)}
	in := product("A", 10)
	in.Prices = append(in.Prices, types.Price{Tier: "Dealer", Currency: "USD", Amount: 6})

	p := Generate("acme", []types.Product{in}, existing, Options{})
	require.Len(t, p.PriceChanges, 1)
	pc := p.PriceChanges[0].PriceChanges
	require.Len(t, pc, 1)
	assert.Equal(t, "Dealer", pc[0].Tier)
	assert.Nil(t, pc[0].OldAmount)
	assert.Nil(t, pc[0].ChangePercent)
}

func TestGenerateSpecOnlyUpdate(t *testing.T) {
	old := product("A", 10)
	old.Specs = map[string]any{"Width": "10in", "Material": "Oak"}
	in := product("A", 10)
	in.Specs = map[string]any{"Material": "Oak", "Width": "12in"}

	p := Generate("acme", []types.Product{in}, []types.Product{old}, Options{})
	require.Len(t, p.Updates, 1)
	changes := p.Updates[0].Changes
	require.Len(t, changes, 1)
	assert.Equal(t, "specs.Width", changes[0].Field)
	assert.Equal(t, "10in", changes[0].OldValue)
	assert.Equal(t, "12in", changes[0].NewValue)
	assert.Empty(t, p.Updates[0].PriceChanges)
	assertPartition(t, p)
}

func TestGenerateUpdateCarriesPriceAnnotation(t *testing.T) {
	old := product("A", 10)
	in := product("A", 15)
	in.Name = "Renamed"

	p := Generate("acme", []types.Product{in}, []types.Product{old}, Options{})
	require.Len(t, p.Updates, 1)
	assert.Empty(t, p.PriceChanges)
	require.Len(t, p.Updates[0].Changes, 1)
	assert.Equal(t, FieldName, p.Updates[0].Changes[0].Field)
	require.Len(t, p.Updates[0].PriceChanges, 1)
	assert.Equal(t, 50.0, *p.Updates[0].PriceChanges[0].ChangePercent)
	assertPartition(t, p)
}

func TestGenerateIgnoreFields(t *testing.T) {
	old := product("A", 10)
	in := product("A", 10)
	in.Name = "Renamed"
	in.Specs = map[string]any{"internal": 1.0}

	p := Generate("acme", []types.Product{in}, []types.Product{old}, Options{IgnoreFields: []string{FieldName, "specs.internal"}})
	assert.Empty(t, p.Updates)
	assert.Equal(t, 1, p.Summary.Unchanged)
	assertPartition(t, p)
}

func TestGenerateUnchanged(t *testing.T) {
	old := product("A", 10)
	old.Specs = map[string]any{"dims": map[string]any{"w": 10.0, "h": 20.0}}
	in := product("A", 10)
	in.Specs = map[string]any{"dims": map[string]any{"h": 20, "w": 10}}

	p := Generate("acme", []types.Product{in}, []types.Product{old}, Options{})
	assert.True(t, p.IsEmpty())
	assert.Equal(t, 1, p.Summary.Unchanged)
}

func TestGenerateDiscontinue(t *testing.T) {
	gone := product("GONE", 10)
	already := product("OLD", 10)
	already.Status = types.StatusDiscontinued
	otherVendor := product("X", 10)
	otherVendor.VendorCode = "globex"
	otherVendor.ProductID = types.ProductID("globex", "X")

	existing := []types.Product{product("A", 10), gone, already, otherVendor}
	incoming := []types.Product{product("A", 10)}

	p := Generate("acme", incoming, existing, Options{DetectDiscontinued: true})
	require.Len(t, p.Discontinuations, 1)
	assert.Equal(t, "acme:GONE", p.Discontinuations[0].ProductID)
	assert.Equal(t, 1, p.Summary.Discontinued)
	assertPartition(t, p)

	p = Generate("acme", incoming, existing, Options{})
	assert.Empty(t, p.Discontinuations)
}

func TestGeneratePartitionMixed(t *testing.T) {
	existing := make([]types.Product, 0)
	incoming := make([]types.Product, 0)
	for i := 0; i < 40; i++ {
		sku := fmt.Sprintf("S-%02d", i)
		if i%4 != 0 {
			existing = append(existing, product(sku, 10))
		}
		in := product(sku, 10)
		switch i % 4 {
		case 1:
			in.Prices[0].Amount = 11
		case 2:
			in.Name = "changed"
		}
		incoming = append(incoming, in)
	}

	p := Generate("acme", incoming, existing, Options{})
	assert.Equal(t, 10, p.Summary.NewProducts)
	assert.Equal(t, 10, p.Summary.PriceOnlyChanges)
	assert.Equal(t, 10, p.Summary.UpdatedProducts)
	assert.Equal(t, 10, p.Summary.Unchanged)
	assertPartition(t, p)
}

func TestChangePercentRounding(t *testing.T) {
	assert.Equal(t, 33.33, ChangePercent(3, 4))
	assert.Equal(t, -12.5, ChangePercent(8, 7))
}

func TestProductDiffJSONCarriesType(t *testing.T) {
	p := Generate("acme", []types.Product{product("A", 10)}, nil, Options{})

	raw, err := json.Marshal(p)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	adds := decoded["adds"].([]any)
	require.Len(t, adds, 1)
	assert.Equal(t, "add", adds[0].(map[string]any)["type"])
	assert.Equal(t, "acme:A", adds[0].(map[string]any)["productId"])

	var back ImportPreview
	require.NoError(t, json.Unmarshal(raw, &back))
	require.Len(t, back.Adds, 1)
	assert.Equal(t, "acme:A", back.Adds[0].ID())
	assert.Equal(t, KindAdd, back.Entries()[0].Kind())
}

func TestGenerateIgnoresCommitStamps(t *testing.T) {
	old := product("A", 10)
	old.Specs = map[string]any{
		types.SpecLastPriceUpdate: "2026-01-01",
		types.SpecIntroduction:    true,
		"Width":                   "10in",
	}
	in := product("A", 10)
	in.Specs = map[string]any{"Width": "10in"}

	p := Generate("acme", []types.Product{in}, []types.Product{old}, Options{})
	assert.True(t, p.IsEmpty())

	// vendor data may still set a stamped key explicitly
	in.Specs[types.SpecIntroduction] = false
	p = Generate("acme", []types.Product{in}, []types.Product{old}, Options{})
	require.Len(t, p.Updates, 1)
	assert.Equal(t, "specs.introduction", p.Updates[0].Changes[0].Field)
}
