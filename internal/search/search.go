// Package search adapts the external full-text index and provides an
// in-memory fallback scorer over a TTL-cached catalog snapshot.
package search

import (
	"context"
	"strings"

	"github.com/misterblack0101/letsride-sub000/internal/catalog"
)

// minQueryLength short-circuits trivially short queries before any backend
// call, as a cost control.
const minQueryLength = 2

// maxSuggestions caps the suggestion list.
const maxSuggestions = 5

// Service routes searches to the external index when configured and to the
// in-memory fallback otherwise.
type Service struct {
	remote   *RemoteClient
	fallback *FallbackIndex
}

// NewService creates a search Service. remote may be nil, in which case
// every search uses the fallback index.
func NewService(remote *RemoteClient, fallback *FallbackIndex) *Service {
	return &Service{remote: remote, fallback: fallback}
}

// Search returns scored products for the query. Queries shorter than two
// characters after trimming return an empty result without touching any
// backend.
func (s *Service) Search(ctx context.Context, query string, limit, offset int) ([]catalog.Product, error) {
	query = strings.TrimSpace(query)
	if len(query) < minQueryLength {
		return []catalog.Product{}, nil
	}
	if limit <= 0 {
		limit = 20
	}

	if s.remote != nil {
		return s.remote.Search(ctx, query, limit, offset)
	}
	return s.fallback.Search(ctx, query, limit, offset)
}

// Suggest returns up to five deduplicated name/brand/category/subcategory
// strings matching the query, prefix matches first, then shorter entries.
func (s *Service) Suggest(ctx context.Context, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if len(query) < minQueryLength {
		return []string{}, nil
	}
	return s.fallback.Suggest(ctx, query)
}
