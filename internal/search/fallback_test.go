package search

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/misterblack0101/letsride-sub000/internal/catalog"
)

// --- Helpers ---

type stubLister struct {
	products []catalog.Product
	err      error
	calls    int
}

func (s *stubLister) FetchAll(context.Context) ([]catalog.Product, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.products, nil
}

func testProduct(id, name, brand string, rating float64) catalog.Product {
	return catalog.Product{
		ID:          id,
		Name:        name,
		Category:    "Bikes",
		SubCategory: "Mountain",
		Brand:       brand,
		Rating:      rating,
		ActualPrice: decimal.NewFromInt(1000),
	}
}

func newTestIndex(t *testing.T, lister *stubLister) *FallbackIndex {
	t.Helper()
	return NewFallbackIndex(lister, zaptest.NewLogger(t))
}

// --- Tests ---

func TestFallbackSearch_PhraseOutranksTokens(t *testing.T) {
	lister := &stubLister{products: []catalog.Product{
		testProduct("p1", "Trail Blazer 29", "Ridgeline", 4.0),
		testProduct("p2", "Blazer Jacket for Trail riders", "Velora", 5.0),
	}}
	idx := newTestIndex(t, lister)

	got, err := idx.Search(context.Background(), "trail blazer", 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// p1 contains the exact phrase (and in its name); p2 only matches the
	// individual tokens.
	assert.Equal(t, "p1", got[0].ID)
	assert.Equal(t, "p2", got[1].ID)
}

func TestFallbackSearch_RatingBreaksTies(t *testing.T) {
	lister := &stubLister{products: []catalog.Product{
		testProduct("low", "City Cruiser", "Velora", 3.0),
		testProduct("high", "City Cruiser", "Velora", 5.0),
	}}
	idx := newTestIndex(t, lister)

	got, err := idx.Search(context.Background(), "cruiser", 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "high", got[0].ID)
}

func TestFallbackSearch_BrandMatch(t *testing.T) {
	lister := &stubLister{products: []catalog.Product{
		testProduct("p1", "Trail Blazer", "Ridgeline", 4.0),
		testProduct("p2", "City Cruiser", "Velora", 4.0),
	}}
	idx := newTestIndex(t, lister)

	got, err := idx.Search(context.Background(), "velora", 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p2", got[0].ID)
}

func TestFallbackSearch_UnknownTokensShortCircuit(t *testing.T) {
	lister := &stubLister{products: []catalog.Product{
		testProduct("p1", "Trail Blazer", "Ridgeline", 4.0),
	}}
	idx := newTestIndex(t, lister)

	got, err := idx.Search(context.Background(), "zzgarbagequery", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFallbackSearch_PrefixMatches(t *testing.T) {
	lister := &stubLister{products: []catalog.Product{
		testProduct("p1", "Trail Blazer", "Ridgeline", 4.0),
	}}
	idx := newTestIndex(t, lister)

	// "blaz" is a word prefix: the index must not reject it.
	got, err := idx.Search(context.Background(), "blaz", 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestFallbackSearch_MidWordMatches(t *testing.T) {
	lister := &stubLister{products: []catalog.Product{
		testProduct("p1", "Bike Pro", "Ridgeline", 4.0),
	}}
	idx := newTestIndex(t, lister)

	// The scorer matches anywhere inside a word, so the prefilter must
	// not reject a query that starts mid-word.
	got, err := idx.Search(context.Background(), "ike", 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].ID)
}

func TestFallbackSearch_LimitAndOffset(t *testing.T) {
	lister := &stubLister{products: []catalog.Product{
		testProduct("p1", "City Cruiser", "Velora", 5.0),
		testProduct("p2", "City Cruiser", "Velora", 4.0),
		testProduct("p3", "City Cruiser", "Velora", 3.0),
	}}
	idx := newTestIndex(t, lister)
	ctx := context.Background()

	got, err := idx.Search(ctx, "cruiser", 2, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "p1", got[0].ID)

	got, err = idx.Search(ctx, "cruiser", 2, 2)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p3", got[0].ID)

	got, err = idx.Search(ctx, "cruiser", 2, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFallbackSnapshot_CachedWithinTTL(t *testing.T) {
	lister := &stubLister{products: []catalog.Product{
		testProduct("p1", "Trail Blazer", "Ridgeline", 4.0),
	}}
	idx := newTestIndex(t, lister)
	ctx := context.Background()

	_, err := idx.Search(ctx, "trail", 10, 0)
	require.NoError(t, err)
	_, err = idx.Search(ctx, "trail", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, lister.calls)
}

func TestFallbackSnapshot_ReloadsAfterTTL(t *testing.T) {
	lister := &stubLister{products: []catalog.Product{
		testProduct("p1", "Trail Blazer", "Ridgeline", 4.0),
	}}
	idx := newTestIndex(t, lister)

	current := time.Now()
	idx.now = func() time.Time { return current }
	ctx := context.Background()

	_, err := idx.Search(ctx, "trail", 10, 0)
	require.NoError(t, err)

	current = current.Add(snapshotTTL + time.Second)
	_, err = idx.Search(ctx, "trail", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, lister.calls)
}

func TestFallbackSnapshot_ServesStaleOnReloadFailure(t *testing.T) {
	lister := &stubLister{products: []catalog.Product{
		testProduct("p1", "Trail Blazer", "Ridgeline", 4.0),
	}}
	idx := newTestIndex(t, lister)

	current := time.Now()
	idx.now = func() time.Time { return current }
	ctx := context.Background()

	_, err := idx.Search(ctx, "trail", 10, 0)
	require.NoError(t, err)

	lister.err = errors.New("store down")
	current = current.Add(snapshotTTL + time.Second)

	got, err := idx.Search(ctx, "trail", 10, 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestFallbackSnapshot_FirstLoadFailureErrors(t *testing.T) {
	lister := &stubLister{err: errors.New("store down")}
	idx := newTestIndex(t, lister)

	_, err := idx.Search(context.Background(), "trail", 10, 0)
	require.Error(t, err)
}

func TestSuggest_PrefixFirstThenShorter(t *testing.T) {
	lister := &stubLister{products: []catalog.Product{
		testProduct("p1", "Trail Blazer 29", "Trailhead Supply", 4.0),
		testProduct("p2", "All-Trail Tire", "Velora", 4.0),
		testProduct("p3", "Trail Mix Rack", "Ridgeline", 4.0),
	}}
	idx := newTestIndex(t, lister)

	got, err := idx.Suggest(context.Background(), "trail")
	require.NoError(t, err)
	require.NotEmpty(t, got)
	// Prefix matches precede substring matches, shorter names first.
	assert.Equal(t, "Trail Mix Rack", got[0])
	assert.Contains(t, got, "All-Trail Tire")
}

func TestSuggest_CapsAtFive(t *testing.T) {
	products := []catalog.Product{
		testProduct("p1", "Trail One", "Trail Co", 4.0),
		testProduct("p2", "Trail Two", "Trail Works", 4.0),
		testProduct("p3", "Trail Three", "Trail Forge", 4.0),
		testProduct("p4", "Trail Four", "Trail Labs", 4.0),
	}
	lister := &stubLister{products: products}
	idx := newTestIndex(t, lister)

	got, err := idx.Suggest(context.Background(), "trail")
	require.NoError(t, err)
	assert.Len(t, got, maxSuggestions)
}
