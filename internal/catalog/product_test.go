package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/misterblack0101/letsride-sub000/internal/docstore"
)

// --- Helpers ---

func validFields() map[string]any {
	return map[string]any{
		"name":        "Trail Blazer 29",
		"category":    "Bikes",
		"subCategory": "Mountain",
		"brand":       "Ridgeline",
		"rating":      4.5,
		"inventory":   3,
		"actualPrice": 1200.0,
		"images":      []string{"a.jpg", "b.jpg"},
		"image":       "a.jpg",
	}
}

func mustDecode(t *testing.T, id string, fields map[string]any) Product {
	t.Helper()
	p, invalid := Decode(docstore.Document{ID: id, Fields: fields})
	require.Nil(t, invalid)
	return p
}

// --- Tests ---

func TestDecode_Valid(t *testing.T) {
	p := mustDecode(t, "p1", validFields())

	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, "Trail Blazer 29", p.Name)
	assert.Equal(t, "Bikes", p.Category)
	assert.Equal(t, 3, p.Inventory)
	assert.True(t, p.ActualPrice.Equal(decimal.NewFromInt(1200)))
}

func TestDecode_MissingName(t *testing.T) {
	fields := validFields()
	delete(fields, "name")

	_, invalid := Decode(docstore.Document{ID: "p1", Fields: fields})
	require.NotNil(t, invalid)
	assert.Equal(t, "p1", invalid.ID)
}

func TestDecode_MissingActualPrice(t *testing.T) {
	fields := validFields()
	delete(fields, "actualPrice")

	_, invalid := Decode(docstore.Document{ID: "p1", Fields: fields})
	require.NotNil(t, invalid)
	assert.Contains(t, invalid.Reason, "actualPrice")
}

func TestDecode_NegativePrice(t *testing.T) {
	fields := validFields()
	fields["actualPrice"] = -10.0

	_, invalid := Decode(docstore.Document{ID: "p1", Fields: fields})
	require.NotNil(t, invalid)
}

func TestDecode_DiscountOutOfRange(t *testing.T) {
	fields := validFields()
	fields["discountPercentage"] = 140.0

	_, invalid := Decode(docstore.Document{ID: "p1", Fields: fields})
	require.NotNil(t, invalid)
}

func TestDecode_RatingOutOfRange(t *testing.T) {
	fields := validFields()
	fields["rating"] = 7.2

	_, invalid := Decode(docstore.Document{ID: "p1", Fields: fields})
	require.NotNil(t, invalid)
}

func TestDecode_OverridePriceAboveActual(t *testing.T) {
	fields := validFields()
	fields["price"] = 1500.0

	_, invalid := Decode(docstore.Document{ID: "p1", Fields: fields})
	require.NotNil(t, invalid)
	assert.Contains(t, invalid.Reason, "exceeds actual price")
}

func TestDecode_TolerantFieldTypes(t *testing.T) {
	fields := validFields()
	// Stores round-trip numbers through several widths.
	fields["actualPrice"] = int64(900)
	fields["inventory"] = float64(7)
	fields["images"] = []any{"x.jpg", 42, "y.jpg"}

	p := mustDecode(t, "p1", fields)
	assert.True(t, p.ActualPrice.Equal(decimal.NewFromInt(900)))
	assert.Equal(t, 7, p.Inventory)
	assert.Equal(t, []string{"x.jpg", "y.jpg"}, p.Images)
}

func TestDecode_DefaultInventory(t *testing.T) {
	fields := validFields()
	delete(fields, "inventory")

	p := mustDecode(t, "p1", fields)
	assert.Equal(t, defaultInventory, p.Inventory)
}

func TestDiscountedPrice_OverrideWins(t *testing.T) {
	override := decimal.NewFromInt(800)
	pct := 50.0
	p := Product{
		ActualPrice:        decimal.NewFromInt(1000),
		Price:              &override,
		DiscountPercentage: &pct,
	}
	assert.True(t, p.DiscountedPrice().Equal(override))
}

func TestDiscountedPrice_Percentage(t *testing.T) {
	pct := 25.0
	p := Product{
		ActualPrice:        decimal.NewFromInt(1000),
		DiscountPercentage: &pct,
	}
	assert.True(t, p.DiscountedPrice().Equal(decimal.NewFromInt(750)))
}

func TestDiscountedPrice_NoDiscount(t *testing.T) {
	p := Product{ActualPrice: decimal.NewFromInt(1000)}
	assert.True(t, p.DiscountedPrice().Equal(decimal.NewFromInt(1000)))
}

func TestRoundedDiscountPercentage(t *testing.T) {
	p := Product{ActualPrice: decimal.NewFromInt(100)}
	assert.Nil(t, p.RoundedDiscountPercentage())

	pct := 33.7
	p.DiscountPercentage = &pct
	got := p.RoundedDiscountPercentage()
	require.NotNil(t, got)
	assert.Equal(t, 33, *got)
}

func TestBrandLogo(t *testing.T) {
	p := Product{Brand: "Ridge Line Co"}
	assert.Equal(t, brandLogoBaseURL+"ridge-line-co"+brandLogoImageExt, p.BrandLogo())

	assert.Equal(t, defaultBrandLogo, Product{}.BrandLogo())
}

func TestSlug(t *testing.T) {
	p := Product{Name: "  Trail Blazer 29  "}
	assert.Equal(t, "trail-blazer-29", p.Slug())

	p.storedSlug = "custom-slug"
	assert.Equal(t, "custom-slug", p.Slug())
}

func TestFields_DenormalizedDiscountedPrice(t *testing.T) {
	pct := 10.0
	p := Product{
		Name:               "Trail Blazer 29",
		Category:           "Bikes",
		SubCategory:        "Mountain",
		ActualPrice:        decimal.NewFromInt(1000),
		DiscountPercentage: &pct,
	}

	fields := p.Fields()
	assert.Equal(t, 900.0, fields["discountedPrice"])
	assert.Equal(t, 1000.0, fields["actualPrice"])
	_, hasOverride := fields["price"]
	assert.False(t, hasOverride)
}
