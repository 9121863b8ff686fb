package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/misterblack0101/letsride-sub000/internal/catalog"
)

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("error")
	e.ObjStart()
	e.FieldStart("code")
	e.Str(code)
	e.FieldStart("message")
	e.Str(message)
	e.ObjEnd()
	e.ObjEnd()
	writeRaw(w, status, e.Bytes())
}

func writeInternalError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, "internal", "internal server error")
}

func writeUnauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid credentials")
}

// encodeProduct writes the API shape of a product, including the derived
// fields the storefront renders directly.
func encodeProduct(e *jx.Encoder, p catalog.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("category")
	e.Str(p.Category)
	e.FieldStart("subCategory")
	e.Str(p.SubCategory)
	e.FieldStart("brand")
	e.Str(p.Brand)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("rating")
	e.Float64(p.Rating)
	e.FieldStart("inventory")
	e.Int(p.Inventory)
	e.FieldStart("actualPrice")
	e.Float64(p.ActualPrice.InexactFloat64())
	e.FieldStart("discountedPrice")
	e.Float64(p.DiscountedPrice().InexactFloat64())
	if pct := p.RoundedDiscountPercentage(); pct != nil {
		e.FieldStart("roundedDiscountPercentage")
		e.Int(*pct)
	}
	e.FieldStart("isRecommended")
	e.Bool(p.IsRecommended)
	e.FieldStart("images")
	e.ArrStart()
	for _, img := range p.Images {
		e.Str(img)
	}
	e.ArrEnd()
	e.FieldStart("image")
	e.Str(p.Image)
	e.FieldStart("brandLogo")
	e.Str(p.BrandLogo())
	e.FieldStart("slug")
	e.Str(p.Slug())
	e.ObjEnd()
}

// encodeProducts writes a "products" array field into an already-open object.
func encodeProducts(e *jx.Encoder, products []catalog.Product) {
	e.FieldStart("products")
	e.ArrStart()
	for _, p := range products {
		encodeProduct(e, p)
	}
	e.ArrEnd()
}
