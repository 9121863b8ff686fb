package handler

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/misterblack0101/letsride-sub000/internal/catalog"
)

// maxUploadBytes caps a multipart create request, images included.
const maxUploadBytes = 32 << 20

// productPayload is the admin wire form of a product. Prices travel as
// JSON numbers and convert to decimals on the way in.
type productPayload struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Category           string   `json:"category"`
	SubCategory        string   `json:"subCategory"`
	Brand              string   `json:"brand"`
	Description        string   `json:"description"`
	Rating             float64  `json:"rating"`
	Inventory          int      `json:"inventory"`
	ActualPrice        float64  `json:"actualPrice"`
	Price              *float64 `json:"price"`
	DiscountPercentage *float64 `json:"discountPercentage"`
	IsRecommended      bool     `json:"isRecommended"`
	Images             []string `json:"images"`
	Image              string   `json:"image"`
}

func (p productPayload) toProduct() catalog.Product {
	out := catalog.Product{
		ID:                 p.ID,
		Name:               p.Name,
		Category:           p.Category,
		SubCategory:        p.SubCategory,
		Brand:              p.Brand,
		Description:        p.Description,
		Rating:             p.Rating,
		Inventory:          p.Inventory,
		ActualPrice:        decimal.NewFromFloat(p.ActualPrice),
		DiscountPercentage: p.DiscountPercentage,
		IsRecommended:      p.IsRecommended,
		Images:             p.Images,
		Image:              p.Image,
	}
	if p.Price != nil {
		d := decimal.NewFromFloat(*p.Price)
		out.Price = &d
	}
	if out.Images == nil {
		out.Images = []string{}
	}
	return out
}

func (s *Server) adminListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := catalog.AdminListOptions{
		StartAfterID: q.Get("lastId"),
		Search:       q.Get("search"),
		Category:     q.Get("category"),
		SubCategory:  q.Get("subCategory"),
		Brand:        q.Get("brand"),
	}
	if v := q.Get("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "bad_request", "pageSize must be a positive integer")
			return
		}
		opts.PageSize = n
	}

	page, err := s.admin.ListProducts(r.Context(), opts)
	if err != nil {
		zctx.From(r.Context()).Error("admin list failed", zap.Error(err))
		writeInternalError(w)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	encodeProducts(&e, page.Products)
	e.FieldStart("hasMore")
	e.Bool(page.HasMore)
	e.FieldStart("lastProductId")
	e.Str(page.LastID)
	e.ObjEnd()
	writeRaw(w, http.StatusOK, e.Bytes())
}

// adminCreateProduct accepts either a plain JSON product or a multipart
// form with a "product" JSON part plus "images" and optional "thumbnail"
// file parts.
func (s *Server) adminCreateProduct(w http.ResponseWriter, r *http.Request) {
	payload, images, thumbnail, closeFiles, err := decodeCreateRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	defer closeFiles()

	created, err := s.admin.CreateProduct(r.Context(), payload.toProduct(), images, thumbnail)
	if err != nil {
		if errors.Is(err, catalog.ErrInvalidProduct) {
			writeError(w, http.StatusBadRequest, "invalid_product", err.Error())
			return
		}
		zctx.From(r.Context()).Error("admin create failed", zap.Error(err))
		writeInternalError(w)
		return
	}

	var e jx.Encoder
	encodeProduct(&e, created)
	writeRaw(w, http.StatusCreated, e.Bytes())
}

// decodeCreateRequest returns the decoded payload plus a close func for the
// opened multipart file handles; the caller runs it once the uploads are
// consumed.
func decodeCreateRequest(r *http.Request) (productPayload, []catalog.PendingImage, *catalog.PendingImage, func(), error) {
	var payload productPayload
	noFiles := func() {}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return payload, nil, nil, noFiles, errors.New("missing content type")
	}

	if !strings.HasPrefix(mediaType, "multipart/") {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			return payload, nil, nil, noFiles, errors.Wrap(err, "decode product")
		}
		return payload, nil, nil, noFiles, nil
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return payload, nil, nil, noFiles, errors.Wrap(err, "parse multipart form")
	}

	var opened []io.Closer
	closeFiles := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	if err := json.Unmarshal([]byte(r.FormValue("product")), &payload); err != nil {
		return payload, nil, nil, noFiles, errors.Wrap(err, "decode product part")
	}

	var images []catalog.PendingImage
	for _, fh := range r.MultipartForm.File["images"] {
		f, err := fh.Open()
		if err != nil {
			closeFiles()
			return payload, nil, nil, noFiles, errors.Wrapf(err, "open image %q", fh.Filename)
		}
		opened = append(opened, f)
		images = append(images, catalog.PendingImage{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        f,
		})
	}

	var thumbnail *catalog.PendingImage
	if fhs := r.MultipartForm.File["thumbnail"]; len(fhs) > 0 {
		f, err := fhs[0].Open()
		if err != nil {
			closeFiles()
			return payload, nil, nil, noFiles, errors.Wrap(err, "open thumbnail")
		}
		opened = append(opened, f)
		thumbnail = &catalog.PendingImage{
			Name:        fhs[0].Filename,
			ContentType: fhs[0].Header.Get("Content-Type"),
			Data:        f,
		}
	}
	return payload, images, thumbnail, closeFiles, nil
}

func (s *Server) adminUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var payload productPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed product body")
		return
	}

	if err := s.admin.UpdateProduct(r.Context(), payload.toProduct()); err != nil {
		switch {
		case errors.Is(err, catalog.ErrInvalidProduct):
			writeError(w, http.StatusBadRequest, "invalid_product", err.Error())
		case errors.Is(err, catalog.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", "product not found")
		default:
			zctx.From(r.Context()).Error("admin update failed", zap.String("id", payload.ID), zap.Error(err))
			writeInternalError(w)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) adminRemoveImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	imageURL := r.URL.Query().Get("url")
	if imageURL == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "url query parameter is required")
		return
	}

	if err := s.admin.RemoveImage(r.Context(), id, imageURL); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "product not found")
			return
		}
		zctx.From(r.Context()).Error("admin remove image failed", zap.String("id", id), zap.Error(err))
		writeInternalError(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
