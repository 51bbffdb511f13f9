package diff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosarica/catalog-service/internal/types"
)

// mixedPreview has one update touching name, collection and a spec plus a price delta,
// one collection-only update without price deltas and one price-only change.
func mixedPreview() *ImportPreview {
	a := product("A", 10)
	aNew := product("A", 12)
	aNew.Name = "New name"
	aNew.CollectionCode = "beta"
	aNew.CollectionName = "Beta"
	aNew.Specs = map[string]any{"Width": "12in"}

	b := product("B", 10)
	bNew := product("B", 10)
	bNew.CollectionCode = "gamma"
	bNew.CollectionName = "Gamma"

	c := product("C", 10)
	cNew := product("C", 9)

	return Generate("acme",
		[]types.Product{aNew, bNew, cNew, product("D", 5)},
		[]types.Product{a, b, c},
		Options{})
}

func TestApplyTogglesNoop(t *testing.T) {
	p := mixedPreview()
	out := ApplyToggles(p, types.SafetyToggles{})
	assert.Equal(t, p.Summary, out.Summary)
	assert.Len(t, out.Updates, 2)
	assertPartition(t, out)
}

func TestApplyTogglesPricesOnly(t *testing.T) {
	p := mixedPreview()
	out := ApplyToggles(p, types.SafetyToggles{PricesOnly: true})

	for _, u := range out.Updates {
		for _, c := range u.Changes {
			assert.True(t, strings.HasPrefix(c.Field, "price"), "field %s survived pricesOnly", c.Field)
		}
	}
	assert.Empty(t, out.Updates)
	// A moves to price_change next to C, B had no price delta and becomes unchanged
	require.Len(t, out.PriceChanges, 2)
	assert.Equal(t, "acme:C", out.PriceChanges[0].ProductID)
	assert.Equal(t, "acme:A", out.PriceChanges[1].ProductID)
	assert.Equal(t, 1, out.Summary.NewProducts)
	assert.Equal(t, 1, out.Summary.Unchanged)
	assertPartition(t, out)

	// input untouched
	assert.Len(t, p.Updates, 2)
	assert.Len(t, p.Updates[0].Changes, 4)
}

func TestApplyTogglesSpecsOnly(t *testing.T) {
	out := ApplyToggles(mixedPreview(), types.SafetyToggles{SpecsOnly: true})

	assert.Empty(t, out.PriceChanges)
	require.Len(t, out.Updates, 2)
	for _, u := range out.Updates {
		assert.Empty(t, u.PriceChanges)
		for _, c := range u.Changes {
			assert.True(t, strings.HasPrefix(c.Field, SpecFieldPrefix))
		}
	}
	require.Len(t, out.Updates[0].Changes, 1)
	assert.Equal(t, "specs.Width", out.Updates[0].Changes[0].Field)
	assert.Empty(t, out.Updates[1].Changes)
	assertPartition(t, out)
}

func TestApplyTogglesDontChangeCollections(t *testing.T) {
	out := ApplyToggles(mixedPreview(), types.SafetyToggles{DontChangeCollections: true})

	require.Len(t, out.Updates, 2)
	fields := make([]string, 0)
	for _, c := range out.Updates[0].Changes {
		fields = append(fields, c.Field)
	}
	assert.Equal(t, []string{FieldName, "specs.Width"}, fields)
	assert.Empty(t, out.Updates[1].Changes)
	assert.Len(t, out.PriceChanges, 1)
	assertPartition(t, out)
}

func TestApplyTogglesCombined(t *testing.T) {
	out := ApplyToggles(mixedPreview(), types.SafetyToggles{PricesOnly: true, SpecsOnly: true})
	assert.Empty(t, out.Updates)
	assert.Empty(t, out.PriceChanges)
	assert.Equal(t, 3, out.Summary.Unchanged)
	assertPartition(t, out)
}

func TestAllowed(t *testing.T) {
	assert.True(t, Allowed("name", types.SafetyToggles{}))
	assert.False(t, Allowed("name", types.SafetyToggles{PricesOnly: true}))
	assert.True(t, Allowed("prices.MSRP:USD", types.SafetyToggles{PricesOnly: true}))
	assert.False(t, Allowed("status", types.SafetyToggles{SpecsOnly: true}))
	assert.True(t, Allowed("specs.Width", types.SafetyToggles{SpecsOnly: true, DontChangeCollections: true}))
	assert.False(t, Allowed(FieldCollectionName, types.SafetyToggles{DontChangeCollections: true}))
}
