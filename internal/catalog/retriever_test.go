package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easeaico/lens-assistant/internal/types"
)

type fakeStore struct {
	hits      []types.CatalogHit
	priceRng  types.PriceRange
	err       error
	lastQuery ProductFilter
}

var _ Store = (*fakeStore)(nil)

func (f *fakeStore) QueryProducts(_ context.Context, filter ProductFilter) ([]types.CatalogHit, error) {
	f.lastQuery = filter
	if f.err != nil {
		return nil, f.err
	}
	out := make([]types.CatalogHit, len(f.hits))
	copy(out, f.hits)
	return out, nil
}

func (f *fakeStore) PriceRange(_ context.Context, filter ProductFilter) (types.PriceRange, error) {
	f.lastQuery = filter
	return f.priceRng, f.err
}

type fakeVocab struct{}

func (fakeVocab) Brand(text string) string {
	for _, b := range []string{"Essilor", "Zeiss", "Hoya"} {
		if strings.Contains(strings.ToLower(text), strings.ToLower(b)) {
			return b
		}
	}
	return ""
}

func (fakeVocab) WantsPhotochromic(text string) bool {
	return strings.Contains(strings.ToLower(text), "transitions")
}

func (fakeVocab) WantsBlueCut(text string) bool {
	return strings.Contains(strings.ToLower(text), "blue light")
}

func qty(n int) *types.InventorySnapshot {
	return &types.InventorySnapshot{Quantity: &n}
}

func TestRetrieveRanksByScore(t *testing.T) {
	store := &fakeStore{hits: []types.CatalogHit{
		{SKU: "A", Index: 1.50, Inventory: qty(0)},
		{SKU: "B", Index: 1.67, Inventory: qty(3)},
		{SKU: "C", Index: 1.60, Inventory: qty(2), Coatings: []string{"AR", "HC"}},
		{SKU: "D", Index: 1.67, Inventory: qty(0), BlueCut: true},
	}}
	r := NewRetriever(store, fakeVocab{}, 0)

	hits, err := r.Retrieve(context.Background(), Query{Text: "verres 1.67 blue light"})
	require.NoError(t, err)
	require.Len(t, hits, 4)

	// B: 5 + 4 = 9; C: 5 + 4*(1-0.07/0.4) + 1 = 9.3; D: 4 + 2 = 6; A: 4*(1-0.17/0.4) = 2.3
	assert.Equal(t, []string{"C", "B", "D", "A"}, skus(hits))
	assert.True(t, store.lastQuery.RequireBlueCut)
	assert.True(t, store.lastQuery.RequireActiveInventory)
	assert.False(t, store.lastQuery.RequirePhotochromic)
	assert.InDelta(t, 9.0, hits[1].Score, 1e-9)
}

func TestRetrieveIsStableForTies(t *testing.T) {
	store := &fakeStore{hits: []types.CatalogHit{
		{SKU: "first", Index: 1.60},
		{SKU: "second", Index: 1.60},
		{SKU: "third", Index: 1.60},
	}}
	r := NewRetriever(store, fakeVocab{}, 2)

	hits, err := r.Retrieve(context.Background(), Query{Text: "zeiss"})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, skus(hits))
	assert.Equal(t, "Zeiss", store.lastQuery.Brand)
}

func TestRetrieveUsesRecommendationWhenTextHasNoIndex(t *testing.T) {
	store := &fakeStore{hits: []types.CatalogHit{
		{SKU: "low", Index: 1.50},
		{SKU: "mid", Index: 1.60, Photochromic: true},
	}}
	r := NewRetriever(store, fakeVocab{}, 0)

	hits, err := r.Retrieve(context.Background(), Query{
		Text:           "what do you suggest",
		Recommendation: types.Recommendation{RecommendedIndex: 1.60, WantPhotochromic: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "mid", hits[0].SKU)
	assert.InDelta(t, 6.0, hits[0].Score, 1e-9)
	// Recommendation wishes only score, they never filter.
	assert.False(t, store.lastQuery.RequirePhotochromic)
}

func TestRetrieveFailsFast(t *testing.T) {
	store := &fakeStore{err: types.ErrStorageUnavailable}
	r := NewRetriever(store, fakeVocab{}, 0)

	_, err := r.Retrieve(context.Background(), Query{Text: "hoya"})
	assert.True(t, errors.Is(err, types.ErrStorageUnavailable))
}

func TestExtractIndex(t *testing.T) {
	tests := []struct {
		text string
		want float64
		ok   bool
	}{
		{"indice 1.67 svp", 1.67, true},
		{"1,6 aminci", 1.60, true},
		{"verre 1.5", 1.50, true},
		{"index 1.74.", 1.74, true},
		{"SPH -1.50 CYL -0.50", 0, false},
		{"1.55", 0, false},
		{"11.67", 0, false},
	}
	for _, tt := range tests {
		got, ok := ExtractIndex(tt.text)
		assert.Equal(t, tt.ok, ok, tt.text)
		assert.Equal(t, tt.want, got, tt.text)
	}
}

func TestExtractSKU(t *testing.T) {
	assert.Equal(t, "ESS-160-AR", ExtractSKU("vous avez le sku: ess-160-ar ?"))
	assert.Equal(t, "", ExtractSKU("no reference here"))
}

func TestRetrieveRanksEveryCandidate(t *testing.T) {
	var hits []types.CatalogHit
	for i := 0; i < 100; i++ {
		hits = append(hits, types.CatalogHit{SKU: fmt.Sprintf("ESS-150-%03d", i), Index: 1.50, Inventory: qty(0)})
	}
	hits = append(hits, types.CatalogHit{SKU: "ZEI-167", Index: 1.67, Inventory: qty(4)})
	store := &fakeStore{hits: hits}
	r := NewRetriever(store, fakeVocab{}, 3)

	got, err := r.Retrieve(context.Background(), Query{Text: "do you have 1.67 lenses?"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "ZEI-167", got[0].SKU)
	assert.Equal(t, ProductFilter{RequireActiveInventory: true}, store.lastQuery)
}

func skus(hits []types.CatalogHit) []string {
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.SKU)
	}
	return out
}
