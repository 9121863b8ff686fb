package search

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"go.uber.org/zap"

	"github.com/misterblack0101/letsride-sub000/internal/catalog"
)

// snapshotTTL bounds how long a catalog snapshot is served before a reload.
const snapshotTTL = 5 * time.Minute

// Scoring weights for the fallback ranker.
const (
	phraseScore      = 100.0
	tokenScoreScale  = 50.0
	nameBonus        = 75.0
	brandBonus       = 25.0
	bloomCapacity    = 1_000_000
	bloomFPR         = 0.01
	minTokenIndexLen = 2
)

// ProductLister supplies the full catalog for the snapshot.
type ProductLister interface {
	FetchAll(ctx context.Context) ([]catalog.Product, error)
}

// snapshot is an immutable catalog copy replaced as a unit.
type snapshot struct {
	products  []catalog.Product
	haystacks []string // lowercased searchable text, parallel to products
	tokens    *bloom.BloomFilter
	fetchedAt time.Time
}

// FallbackIndex scores products in memory over a TTL-cached snapshot. A
// reload failure serves the stale snapshot instead of erroring:
// availability over freshness.
type FallbackIndex struct {
	repo ProductLister
	log  *zap.Logger
	now  func() time.Time

	mu   sync.Mutex
	snap *snapshot
}

// NewFallbackIndex creates a FallbackIndex over the repository.
func NewFallbackIndex(repo ProductLister, log *zap.Logger) *FallbackIndex {
	return &FallbackIndex{repo: repo, log: log, now: time.Now}
}

// Search scores the snapshot against the query, orders by score descending
// with rating as the tie break, and returns the requested slice.
func (f *FallbackIndex) Search(ctx context.Context, query string, limit, offset int) ([]catalog.Product, error) {
	snap, err := f.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	phrase := strings.ToLower(query)
	tokens := strings.Fields(phrase)

	// A query whose tokens are all unknown to the snapshot cannot score.
	// The bloom filter indexes every word substring, so any token the
	// scorer could match via Contains is present in the filter.
	if !anyTokenKnown(snap.tokens, tokens) {
		return []catalog.Product{}, nil
	}

	type scored struct {
		product catalog.Product
		score   float64
	}
	var matches []scored
	for i, hay := range snap.haystacks {
		s := score(hay, strings.ToLower(snap.products[i].Name), strings.ToLower(snap.products[i].Brand), phrase, tokens)
		if s <= 0 {
			continue
		}
		matches = append(matches, scored{product: snap.products[i], score: s})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].product.Rating > matches[j].product.Rating
	})

	if offset > 0 {
		if offset >= len(matches) {
			matches = nil
		} else {
			matches = matches[offset:]
		}
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]catalog.Product, len(matches))
	for i, m := range matches {
		out[i] = m.product
	}
	return out, nil
}

// Suggest collects matching name/brand/category/subcategory strings,
// deduplicated, prioritizing entries that start with the query, then
// shorter entries, capped at five.
func (f *FallbackIndex) Suggest(ctx context.Context, query string) ([]string, error) {
	snap, err := f.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	seen := make(map[string]struct{})
	var candidates []string
	add := func(s string) {
		if s == "" || !strings.Contains(strings.ToLower(s), q) {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		candidates = append(candidates, s)
	}

	for _, p := range snap.products {
		add(p.Name)
		add(p.Brand)
		add(p.Category)
		add(p.SubCategory)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		pi := strings.HasPrefix(strings.ToLower(candidates[i]), q)
		pj := strings.HasPrefix(strings.ToLower(candidates[j]), q)
		if pi != pj {
			return pi
		}
		return len(candidates[i]) < len(candidates[j])
	})

	if len(candidates) > maxSuggestions {
		candidates = candidates[:maxSuggestions]
	}
	return candidates, nil
}

// snapshot returns the cached snapshot, reloading it after the TTL. The
// replacement is a single assignment of a fully built snapshot, so readers
// never observe a half-updated cache.
func (f *FallbackIndex) snapshot(ctx context.Context) (*snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.snap != nil && f.now().Sub(f.snap.fetchedAt) < snapshotTTL {
		return f.snap, nil
	}

	products, err := f.repo.FetchAll(ctx)
	if err != nil {
		if f.snap != nil {
			f.log.Warn("catalog snapshot reload failed, serving stale", zap.Error(err))
			return f.snap, nil
		}
		return nil, err
	}

	f.snap = buildSnapshot(products, f.now())
	return f.snap, nil
}

func buildSnapshot(products []catalog.Product, at time.Time) *snapshot {
	filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	haystacks := make([]string, len(products))
	for i, p := range products {
		hay := strings.ToLower(strings.Join([]string{
			p.Name, p.Brand, p.Category, p.SubCategory, p.Description,
		}, " "))
		haystacks[i] = hay
		// Query tokens contain no spaces, so a token the scorer matches
		// lies inside a single word; indexing all word substrings keeps
		// the prefilter free of false negatives.
		for _, word := range strings.Fields(hay) {
			for start := 0; start+minTokenIndexLen <= len(word); start++ {
				for end := start + minTokenIndexLen; end <= len(word); end++ {
					filter.AddString(word[start:end])
				}
			}
		}
	}
	return &snapshot{
		products:  products,
		haystacks: haystacks,
		tokens:    filter,
		fetchedAt: at,
	}
}

func anyTokenKnown(filter *bloom.BloomFilter, tokens []string) bool {
	for _, t := range tokens {
		if len(t) < minTokenIndexLen || filter.TestString(t) {
			return true
		}
	}
	return false
}

// score accumulates the fallback ranking signal for one candidate.
func score(haystack, name, brand, phrase string, tokens []string) float64 {
	var s float64
	if strings.Contains(haystack, phrase) {
		s += phraseScore
	}

	matched := 0
	for _, t := range tokens {
		if strings.Contains(haystack, t) {
			matched++
		}
	}
	if len(tokens) > 0 {
		s += float64(matched) / float64(len(tokens)) * tokenScoreScale
	}

	if strings.Contains(name, phrase) {
		s += nameBonus
	}
	if brand != "" && strings.Contains(brand, phrase) {
		s += brandBonus
	}
	return s
}
