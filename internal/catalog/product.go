// Package catalog holds the product domain: the validated Product record,
// the query builder, the repositories and the admin flows.
package catalog

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/misterblack0101/letsride-sub000/internal/docstore"
)

// Collection names used across the service.
const (
	ProductsCollection   = "products"
	CategoriesCollection = "categories"
)

// brandLogoBaseURL is the conventional storage location for brand logos.
const (
	brandLogoBaseURL  = "https://storage.googleapis.com/letsride-assets/brands/"
	defaultBrandLogo  = brandLogoBaseURL + "default.png"
	defaultInventory  = 1
	brandLogoImageExt = ".png"
)

var validate = validator.New()

// Product is a validated catalog record.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name" validate:"required"`
	Category    string  `json:"category" validate:"required"`
	SubCategory string  `json:"subCategory" validate:"required"`
	Brand       string  `json:"brand,omitempty"`
	Description string  `json:"description,omitempty"`
	Rating      float64 `json:"rating" validate:"gte=0,lte=5"`
	Inventory   int     `json:"inventory" validate:"gte=0"`

	// ActualPrice is the original price. Price, when set, overrides the
	// derived discounted price. DiscountPercentage applies when no
	// override is present.
	ActualPrice        decimal.Decimal  `json:"actualPrice"`
	Price              *decimal.Decimal `json:"price,omitempty"`
	DiscountPercentage *float64         `json:"discountPercentage,omitempty"`

	IsRecommended bool     `json:"isRecommended"`
	Images        []string `json:"images"`
	// Image is the designated thumbnail, distinct from Images.
	Image string `json:"image"`

	storedSlug string
}

// DiscountedPrice is the final price: the override price when present,
// otherwise actualPrice reduced by discountPercentage, otherwise
// actualPrice. It never exceeds ActualPrice.
func (p Product) DiscountedPrice() decimal.Decimal {
	if p.Price != nil {
		return *p.Price
	}
	if p.DiscountPercentage != nil {
		pct := decimal.NewFromFloat(*p.DiscountPercentage)
		factor := decimal.NewFromInt(1).Sub(pct.Div(decimal.NewFromInt(100)))
		return p.ActualPrice.Mul(factor)
	}
	return p.ActualPrice
}

// RoundedDiscountPercentage is floor(discountPercentage), nil iff the
// discount is absent.
func (p Product) RoundedDiscountPercentage() *int {
	if p.DiscountPercentage == nil {
		return nil
	}
	n := int(math.Floor(*p.DiscountPercentage))
	return &n
}

// BrandLogo is the conventional storage URL for the brand's logo, derived
// from the brand name (lowercased, spaces to hyphens), with a default when
// the brand is absent.
func (p Product) BrandLogo() string {
	if p.Brand == "" {
		return defaultBrandLogo
	}
	return brandLogoBaseURL + slugify(p.Brand) + brandLogoImageExt
}

// Slug is the stored slug when present, otherwise derived from the name.
func (p Product) Slug() string {
	if p.storedSlug != "" {
		return p.storedSlug
	}
	return slugify(p.Name)
}

func slugify(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
}

// Fields returns the persistent field map for the product, including the
// denormalized discountedPrice the store sorts price queries on.
func (p Product) Fields() map[string]any {
	fields := map[string]any{
		"name":            p.Name,
		"category":        p.Category,
		"subCategory":     p.SubCategory,
		"brand":           p.Brand,
		"description":     p.Description,
		"rating":          p.Rating,
		"inventory":       p.Inventory,
		"actualPrice":     p.ActualPrice.InexactFloat64(),
		"discountedPrice": p.DiscountedPrice().InexactFloat64(),
		"isRecommended":   p.IsRecommended,
		"images":          p.Images,
		"image":           p.Image,
		"slug":            p.Slug(),
	}
	if p.Price != nil {
		fields["price"] = p.Price.InexactFloat64()
	}
	if p.DiscountPercentage != nil {
		fields["discountPercentage"] = *p.DiscountPercentage
	}
	return fields
}

// InvalidRecordError describes a stored row that failed validation. The
// repositories drop such rows and log them instead of failing a listing.
type InvalidRecordError struct {
	ID     string
	Reason string
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("invalid product record %s: %s", e.ID, e.Reason)
}

// Decode turns a stored document into a Product, or reports why it is
// invalid. It never panics on malformed field types.
func Decode(doc docstore.Document) (Product, *InvalidRecordError) {
	invalid := func(reason string) (Product, *InvalidRecordError) {
		return Product{}, &InvalidRecordError{ID: doc.ID, Reason: reason}
	}

	actualPrice, ok := asFloat(doc.Fields["actualPrice"])
	if !ok {
		return invalid("actualPrice missing or not numeric")
	}
	if actualPrice < 0 {
		return invalid("actualPrice is negative")
	}

	p := Product{
		ID:          doc.ID,
		Name:        asString(doc.Fields["name"]),
		Category:    asString(doc.Fields["category"]),
		SubCategory: asString(doc.Fields["subCategory"]),
		Brand:       asString(doc.Fields["brand"]),
		Description: asString(doc.Fields["description"]),
		ActualPrice: decimal.NewFromFloat(actualPrice),
		Images:      asStringSlice(doc.Fields["images"]),
		Image:       asString(doc.Fields["image"]),
		storedSlug:  asString(doc.Fields["slug"]),
	}

	if v, ok := asFloat(doc.Fields["price"]); ok {
		d := decimal.NewFromFloat(v)
		p.Price = &d
	}
	if v, ok := asFloat(doc.Fields["discountPercentage"]); ok {
		if v < 0 || v > 100 {
			return invalid("discountPercentage out of range")
		}
		p.DiscountPercentage = &v
	}
	if v, ok := asFloat(doc.Fields["rating"]); ok {
		p.Rating = v
	}

	p.Inventory = defaultInventory
	if v, ok := asInt(doc.Fields["inventory"]); ok {
		p.Inventory = v
	}
	if v, ok := doc.Fields["isRecommended"].(bool); ok {
		p.IsRecommended = v
	}

	if err := validate.Struct(p); err != nil {
		return invalid(err.Error())
	}
	if p.DiscountedPrice().GreaterThan(p.ActualPrice) {
		return invalid("discounted price exceeds actual price")
	}
	return p, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func asInt(v any) (int, bool) {
	f, ok := asFloat(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func asStringSlice(v any) []string {
	switch vs := v.(type) {
	case []string:
		return vs
	case []any:
		out := make([]string, 0, len(vs))
		for _, e := range vs {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
