// Package handler wires the HTTP API surface: public catalog browsing and
// search, the loading-event stream, and the admin panel endpoints.
package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/misterblack0101/letsride-sub000/internal/auth"
	"github.com/misterblack0101/letsride-sub000/internal/catalog"
	"github.com/misterblack0101/letsride-sub000/internal/loadstate"
	"github.com/misterblack0101/letsride-sub000/internal/search"
)

// Searcher is the search surface the handlers depend on.
type Searcher interface {
	Search(ctx context.Context, query string, limit, offset int) ([]catalog.Product, error)
	Suggest(ctx context.Context, query string) ([]string, error)
}

var _ Searcher = (*search.Service)(nil)

// Server holds the handler dependencies.
type Server struct {
	products  *catalog.Repository
	structure *catalog.StructureRepository
	admin     *catalog.AdminService
	searcher  Searcher
	events    *loadstate.Bus
	verifier  auth.Verifier
}

// New creates a Server.
func New(
	products *catalog.Repository,
	structure *catalog.StructureRepository,
	admin *catalog.AdminService,
	searcher Searcher,
	events *loadstate.Bus,
	verifier auth.Verifier,
) *Server {
	return &Server{
		products:  products,
		structure: structure,
		admin:     admin,
		searcher:  searcher,
		events:    events,
		verifier:  verifier,
	}
}

// Register attaches all routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", s.listProducts)
	mux.HandleFunc("GET /api/products/recommended", s.listRecommended)
	mux.HandleFunc("GET /api/products/{id}", s.getProduct)
	mux.HandleFunc("GET /api/products/{category}/{subCategory}", s.listByCategory)
	mux.HandleFunc("GET /api/search", s.search)
	mux.HandleFunc("GET /api/events", s.streamEvents)

	mux.HandleFunc("GET /api/admin/products", s.requireAuth(s.adminListProducts))
	mux.HandleFunc("POST /api/admin/products", s.requireAuth(s.adminCreateProduct))
	mux.HandleFunc("PUT /api/admin/products", s.requireAuth(s.adminUpdateProduct))
	mux.HandleFunc("DELETE /api/admin/products/{id}/image", s.requireAuth(s.adminRemoveImage))
	mux.HandleFunc("GET /api/admin/brands", s.requireAuth(s.adminListBrands))
	mux.HandleFunc("POST /api/admin/brands", s.requireAuth(s.adminAddBrand))
	mux.HandleFunc("DELETE /api/admin/brands", s.requireAuth(s.adminRemoveBrand))
}

// requireAuth guards admin endpoints: a valid bearer token or 401.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeUnauthorized(w)
			return
		}
		if _, err := s.verifier.Verify(r.Context(), token); err != nil {
			writeUnauthorized(w)
			return
		}
		next(w, r)
	}
}
