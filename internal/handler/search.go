package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/misterblack0101/letsride-sub000/internal/search"
)

const defaultSearchLimit = 20

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")

	if q.Get("type") == "suggestions" {
		suggestions, err := s.searcher.Suggest(r.Context(), query)
		if err != nil {
			zctx.From(r.Context()).Error("suggest failed", zap.String("query", query), zap.Error(err))
			writeInternalError(w)
			return
		}
		var e jx.Encoder
		e.ObjStart()
		e.FieldStart("suggestions")
		e.ArrStart()
		for _, sg := range suggestions {
			e.Str(sg)
		}
		e.ArrEnd()
		e.ObjEnd()
		writeRaw(w, http.StatusOK, e.Bytes())
		return
	}

	limit := defaultSearchLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "bad_request", "limit must be a positive integer")
			return
		}
		limit = n
	}
	offset := 0
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", "offset must be a non-negative integer")
			return
		}
		offset = n
	}

	products, err := s.searcher.Search(r.Context(), query, limit, offset)
	if err != nil {
		if errors.Is(err, search.ErrUnalignedOffset) {
			writeError(w, http.StatusBadRequest, "bad_request", "offset must be a multiple of limit")
			return
		}
		zctx.From(r.Context()).Error("search failed", zap.String("query", query), zap.Error(err))
		writeInternalError(w)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	encodeProducts(&e, products)
	e.FieldStart("query")
	e.Str(query)
	e.FieldStart("count")
	e.Int(len(products))
	e.ObjEnd()
	writeRaw(w, http.StatusOK, e.Bytes())
}
