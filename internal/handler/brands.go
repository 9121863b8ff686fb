package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/misterblack0101/letsride-sub000/internal/catalog"
)

// adminListBrands returns the flattened brand list, or the per-subcategory
// breakdown of one category when ?category is given.
func (s *Server) adminListBrands(w http.ResponseWriter, r *http.Request) {
	structure, err := s.structure.Load(r.Context())
	if err != nil {
		zctx.From(r.Context()).Error("load structure failed", zap.Error(err))
		writeInternalError(w)
		return
	}

	var e jx.Encoder
	if category := r.URL.Query().Get("category"); category != "" {
		bySub, err := structure.BrandsByCategory(category)
		if err != nil {
			writeError(w, http.StatusNotFound, "not_found", "category not found")
			return
		}
		e.ObjStart()
		e.FieldStart("category")
		e.Str(category)
		e.FieldStart("subCategories")
		e.ObjStart()
		for sub, brands := range bySub {
			e.FieldStart(sub)
			e.ArrStart()
			for _, b := range brands {
				e.Str(b)
			}
			e.ArrEnd()
		}
		e.ObjEnd()
		e.ObjEnd()
		writeRaw(w, http.StatusOK, e.Bytes())
		return
	}

	e.ObjStart()
	e.FieldStart("brands")
	e.ArrStart()
	for _, b := range structure.AllBrands() {
		e.Str(b)
	}
	e.ArrEnd()
	e.ObjEnd()
	writeRaw(w, http.StatusOK, e.Bytes())
}

type brandRequest struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	SubCategory string `json:"subCategory"`
}

func decodeBrandRequest(r *http.Request) (brandRequest, error) {
	var req brandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, errors.New("malformed brand body")
	}
	if req.Name == "" || req.Category == "" || req.SubCategory == "" {
		return req, errors.New("name, category and subCategory are required")
	}
	return req, nil
}

func (s *Server) adminAddBrand(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBrandRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	if err := s.structure.AddBrand(r.Context(), req.Name, req.Category, req.SubCategory); err != nil {
		if errors.Is(err, catalog.ErrBrandExists) {
			writeError(w, http.StatusConflict, "brand_exists", "brand already listed in subcategory")
			return
		}
		zctx.From(r.Context()).Error("add brand failed", zap.String("brand", req.Name), zap.Error(err))
		writeInternalError(w)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// adminRemoveBrand identifies the brand by query parameters; DELETE bodies
// are dropped by enough clients and proxies to be unusable.
func (s *Server) adminRemoveBrand(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := brandRequest{
		Name:        q.Get("name"),
		Category:    q.Get("category"),
		SubCategory: q.Get("subCategory"),
	}
	if req.SubCategory == "" {
		req.SubCategory = q.Get("subcategory")
	}
	if req.Name == "" || req.Category == "" || req.SubCategory == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "name, category and subCategory are required")
		return
	}

	if err := s.structure.RemoveBrand(r.Context(), req.Name, req.Category, req.SubCategory); err != nil {
		if errors.Is(err, catalog.ErrBrandNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "brand not listed in subcategory")
			return
		}
		zctx.From(r.Context()).Error("remove brand failed", zap.String("brand", req.Name), zap.Error(err))
		writeInternalError(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
