// Package catalog retrieves and ranks lens products for a customer turn.
package catalog

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/easeaico/lens-assistant/internal/types"
)

const (
	defaultLimit = 8

	inStockBonus     = 5.0
	indexBonusMax    = 4.0
	indexBonusRange  = 0.4
	featureBonus     = 2.0
	coatingBonusStep = 0.5
	coatingBonusMax  = 2.0
)

var (
	indexPattern = regexp.MustCompile(`(?:^|[^\d.,+-])1[.,](50|5|56|60|6|67|74)\b`)
	// rxValues masks prescription values so "SPH -1.50" is not read as an index.
	rxValues     = regexp.MustCompile(`(?i)\b(?:sph|cyl|ax(?:is|e))\s*[:=]?\s*[+-]?\s?\d+(?:[.,]\d+)?`)
	skuPattern   = regexp.MustCompile(`(?i)\bsku\s*[:#]?\s*([a-z0-9][a-z0-9-]{2,})`)
)

// ProductFilter narrows a storage query.
type ProductFilter struct {
	SKU                    string
	Brand                  string
	RequirePhotochromic    bool
	RequireBlueCut         bool
	RequireActiveInventory bool
}

// Store is the read side of the product catalog.
type Store interface {
	QueryProducts(ctx context.Context, filter ProductFilter) ([]types.CatalogHit, error)
	PriceRange(ctx context.Context, filter ProductFilter) (types.PriceRange, error)
}

// Vocabulary extracts catalog-relevant mentions from text.
type Vocabulary interface {
	Brand(text string) string
	WantsPhotochromic(text string) bool
	WantsBlueCut(text string) bool
}

// Query describes one retrieval.
type Query struct {
	Text           string
	Recommendation types.Recommendation
	Limit          int
}

// Retriever filters and ranks catalog products.
type Retriever struct {
	store Store
	vocab Vocabulary
	limit int
}

// NewRetriever returns a Retriever; limit <= 0 uses the default of 8.
func NewRetriever(store Store, vocab Vocabulary, limit int) *Retriever {
	if limit <= 0 {
		limit = defaultLimit
	}
	return &Retriever{store: store, vocab: vocab, limit: limit}
}

// plan is the resolved query: hard filters plus scoring preferences.
type plan struct {
	filter           ProductFilter
	desiredIndex     float64
	wantPhotochromic bool
	wantBlueCut      bool
}

func (r *Retriever) plan(q Query) plan {
	p := plan{
		filter: ProductFilter{
			SKU:                    ExtractSKU(q.Text),
			Brand:                  r.vocab.Brand(q.Text),
			RequirePhotochromic:    r.vocab.WantsPhotochromic(q.Text),
			RequireBlueCut:         r.vocab.WantsBlueCut(q.Text),
			RequireActiveInventory: true,
		},
		desiredIndex: q.Recommendation.RecommendedIndex,
	}
	if idx, ok := ExtractIndex(q.Text); ok {
		p.desiredIndex = idx
	}
	p.wantPhotochromic = p.filter.RequirePhotochromic || q.Recommendation.WantPhotochromic
	p.wantBlueCut = p.filter.RequireBlueCut || q.Recommendation.WantBlueCut
	return p
}

// Retrieve ranks every filtered product and returns at most Limit hits
// ordered by score; ties keep storage order.
func (r *Retriever) Retrieve(ctx context.Context, q Query) ([]types.CatalogHit, error) {
	p := r.plan(q)
	hits, err := r.store.QueryProducts(ctx, p.filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}

	for i := range hits {
		hits[i].Score = score(hits[i], p)
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	limit := q.Limit
	if limit <= 0 {
		limit = r.limit
	}
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// PriceRange aggregates the min/max active price over the same filters as Retrieve.
func (r *Retriever) PriceRange(ctx context.Context, q Query) (types.PriceRange, error) {
	p := r.plan(q)
	pr, err := r.store.PriceRange(ctx, p.filter)
	if err != nil {
		return types.PriceRange{}, fmt.Errorf("failed to query price range: %w", err)
	}
	return pr, nil
}

func score(hit types.CatalogHit, p plan) float64 {
	s := 0.0
	if hit.InStock() {
		s += inStockBonus
	}
	if p.desiredIndex > 0 {
		closeness := 1 - math.Abs(hit.Index-p.desiredIndex)/indexBonusRange
		s += indexBonusMax * math.Max(0, closeness)
	}
	if p.wantPhotochromic && hit.Photochromic {
		s += featureBonus
	}
	if p.wantBlueCut && hit.BlueCut {
		s += featureBonus
	}
	s += math.Min(coatingBonusMax, coatingBonusStep*float64(len(hit.Coatings)))
	return s
}

// ExtractIndex finds a standard index literal such as "1.67" or "1,6".
func ExtractIndex(text string) (float64, bool) {
	m := indexPattern.FindStringSubmatch(rxValues.ReplaceAllString(text, " "))
	if m == nil {
		return 0, false
	}
	digits := m[1]
	if len(digits) == 1 {
		digits += "0"
	}
	v, err := strconv.ParseFloat("1."+digits, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ExtractSKU returns an explicit "SKU xxx" reference, upper-cased.
func ExtractSKU(text string) string {
	m := skuPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.ToUpper(m[1])
}
