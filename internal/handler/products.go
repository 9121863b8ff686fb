package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/misterblack0101/letsride-sub000/internal/catalog"
	"github.com/misterblack0101/letsride-sub000/internal/loadstate"
	"github.com/misterblack0101/letsride-sub000/internal/pagination"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// browseRequest is the decoded query-parameter form of a listing request.
// The presence of lastId signals cursor mode; its absence, offset mode.
type browseRequest struct {
	filters catalog.Filters
	page    int
}

func parseBrowseRequest(r *http.Request) (browseRequest, error) {
	q := r.URL.Query()
	req := browseRequest{page: 1}

	req.filters.Categories = q["category"]
	req.filters.SubCategory = q.Get("subCategory")
	req.filters.Brands = q["brand"]
	req.filters.SortBy = q.Get("sort")

	if v := q.Get("minPrice"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return req, errors.New("minPrice must be a number")
		}
		req.filters.MinPrice = &d
	}
	if v := q.Get("maxPrice"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return req, errors.New("maxPrice must be a number")
		}
		req.filters.MaxPrice = &d
	}

	req.filters.PageSize = defaultPageSize
	if v := q.Get("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return req, errors.New("pageSize must be a positive integer")
		}
		if n > maxPageSize {
			n = maxPageSize
		}
		req.filters.PageSize = n
	}

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return req, errors.New("page must be a positive integer")
		}
		req.page = n
	}

	// A lastId encodes the client's cursor decision; without one, page N
	// maps to an explicit row offset.
	if lastID := q.Get("lastId"); lastID != "" {
		req.filters.CursorID = lastID
	} else if req.page > 1 {
		req.filters.PageOffset = (req.page - 1) * req.filters.PageSize
	}

	return req, nil
}

// eventKindFor classifies the navigation so display surfaces can react:
// price submits beat filter changes beat page moves.
func eventKindFor(r *http.Request) loadstate.Kind {
	q := r.URL.Query()
	if q.Get("minPrice") != "" || q.Get("maxPrice") != "" {
		return loadstate.KindPriceFilter
	}
	if len(q["category"]) > 0 || len(q["brand"]) > 0 || q.Get("subCategory") != "" || q.Get("sort") != "" {
		return loadstate.KindFilter
	}
	return loadstate.KindPagination
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	req, err := parseBrowseRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	s.events.Publish(loadstate.Event{Kind: eventKindFor(r)})

	page, err := s.products.FetchFiltered(r.Context(), req.filters)
	if err != nil {
		zctx.From(r.Context()).Error("fetch products failed", zap.Error(err))
		writeInternalError(w)
		return
	}

	count, err := s.products.Count(r.Context(), req.filters)
	if err != nil {
		zctx.From(r.Context()).Error("count products failed", zap.Error(err))
		writeInternalError(w)
		return
	}

	s.writeListing(w, page, req, count)
}

func (s *Server) listByCategory(w http.ResponseWriter, r *http.Request) {
	req, err := parseBrowseRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	category := r.PathValue("category")
	subCategory := r.PathValue("subCategory")

	s.events.Publish(loadstate.Event{Kind: eventKindFor(r)})

	req.filters.Categories = nil
	page, err := s.products.FetchByCategory(r.Context(), category, subCategory, req.filters)
	if err != nil {
		zctx.From(r.Context()).Error("fetch category failed",
			zap.String("category", category),
			zap.String("sub_category", subCategory),
			zap.Error(err),
		)
		writeInternalError(w)
		return
	}

	countFilters := req.filters
	countFilters.Categories = []string{category}
	countFilters.SubCategory = subCategory
	count, err := s.products.Count(r.Context(), countFilters)
	if err != nil {
		zctx.From(r.Context()).Error("count category failed", zap.Error(err))
		writeInternalError(w)
		return
	}

	s.writeListing(w, page, req, count)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	p, err := s.products.FetchByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "product not found")
			return
		}
		zctx.From(r.Context()).Error("fetch product failed", zap.String("id", id), zap.Error(err))
		writeInternalError(w)
		return
	}

	var e jx.Encoder
	encodeProduct(&e, *p)
	writeRaw(w, http.StatusOK, e.Bytes())
}

func (s *Server) listRecommended(w http.ResponseWriter, r *http.Request) {
	products, err := s.products.FetchRecommended(r.Context())
	if err != nil {
		zctx.From(r.Context()).Error("fetch recommended failed", zap.Error(err))
		writeInternalError(w)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	encodeProducts(&e, products)
	e.ObjEnd()
	writeRaw(w, http.StatusOK, e.Bytes())
}

// writeListing encodes one page plus the pagination metadata the controls
// need: totals, the visible page window, and the cursor for the next page.
func (s *Server) writeListing(w http.ResponseWriter, page catalog.Page, req browseRequest, count int64) {
	totalPages := int((count + int64(req.filters.PageSize) - 1) / int64(req.filters.PageSize))
	window := pagination.PageWindow(req.page, totalPages)

	var e jx.Encoder
	e.ObjStart()
	encodeProducts(&e, page.Products)
	e.FieldStart("page")
	e.Int(req.page)
	e.FieldStart("pageSize")
	e.Int(req.filters.PageSize)
	e.FieldStart("totalCount")
	e.Int64(count)
	e.FieldStart("totalPages")
	e.Int(totalPages)
	e.FieldStart("hasMore")
	e.Bool(page.HasMore)
	e.FieldStart("lastProductId")
	e.Str(page.LastID)
	e.FieldStart("window")
	e.ObjStart()
	e.FieldStart("pages")
	e.ArrStart()
	for _, p := range window.Pages {
		e.Int(p)
	}
	e.ArrEnd()
	e.FieldStart("showFirst")
	e.Bool(window.ShowFirst)
	e.FieldStart("showLast")
	e.Bool(window.ShowLast)
	e.FieldStart("leadingEllipsis")
	e.Bool(window.LeadingEllipsis)
	e.FieldStart("trailingEllipsis")
	e.Bool(window.TrailingEllipsis)
	e.ObjEnd()
	e.ObjEnd()
	writeRaw(w, http.StatusOK, e.Bytes())
}
