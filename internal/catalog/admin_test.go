package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/misterblack0101/letsride-sub000/internal/docstore/memory"
	"github.com/misterblack0101/letsride-sub000/internal/objstore"
)

// --- Helpers ---

type adminFixture struct {
	svc   *AdminService
	store *memory.Store
	files *objstore.Memory
}

func newAdminFixture(t *testing.T) adminFixture {
	t.Helper()
	store := memory.New()
	files := objstore.NewMemory()
	return adminFixture{
		svc:   NewAdminService(store, files, zaptest.NewLogger(t)),
		store: store,
		files: files,
	}
}

func draftProduct(name string) Product {
	return Product{
		Name:        name,
		Category:    "Bikes",
		SubCategory: "Mountain",
		Brand:       "Ridgeline",
		ActualPrice: decimal.NewFromInt(1200),
		Rating:      4.5,
		Inventory:   3,
		Images:      []string{},
	}
}

func pendingImage(name string) PendingImage {
	return PendingImage{
		Name:        name,
		ContentType: "image/jpeg",
		Data:        strings.NewReader("not really a jpeg"),
	}
}

func (f adminFixture) productCount(t *testing.T) int {
	t.Helper()
	docs, err := f.store.Collection(ProductsCollection).Query().Documents(context.Background())
	require.NoError(t, err)
	return len(docs)
}

// --- Tests ---

func TestCreateProduct_UploadsAndAttachesImages(t *testing.T) {
	f := newAdminFixture(t)
	thumb := pendingImage("front.jpg")

	created, err := f.svc.CreateProduct(context.Background(),
		draftProduct("Trail Blazer 29"),
		[]PendingImage{pendingImage("side.jpg"), pendingImage("rear.jpg")},
		&thumb,
	)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Len(t, created.Images, 2)
	assert.Contains(t, created.Image, "thumbnail-front.jpg")
	assert.Equal(t, 3, f.files.Len())

	// The stored record carries the final URLs, not the empty phase-1 state.
	doc, err := f.store.Collection(ProductsCollection).Get(context.Background(), created.ID)
	require.NoError(t, err)
	stored, invalid := Decode(doc)
	require.Nil(t, invalid)
	assert.Equal(t, created.Images, stored.Images)
	assert.Equal(t, created.Image, stored.Image)
}

func TestCreateProduct_FirstImageIsDefaultThumbnail(t *testing.T) {
	f := newAdminFixture(t)

	created, err := f.svc.CreateProduct(context.Background(),
		draftProduct("Trail Blazer 29"),
		[]PendingImage{pendingImage("side.jpg")},
		nil,
	)
	require.NoError(t, err)
	require.Len(t, created.Images, 1)
	assert.Equal(t, created.Images[0], created.Image)
}

func TestCreateProduct_UploadFailureCompensates(t *testing.T) {
	f := newAdminFixture(t)
	f.files.UploadErr = errors.New("bucket unavailable")

	_, err := f.svc.CreateProduct(context.Background(),
		draftProduct("Trail Blazer 29"),
		[]PendingImage{pendingImage("side.jpg")},
		nil,
	)
	require.Error(t, err)

	// The phase-1 record must not survive the failed upload.
	assert.Equal(t, 0, f.productCount(t))
}

func TestCreateProduct_PartialUploadLeavesNoOrphans(t *testing.T) {
	f := newAdminFixture(t)
	f.files.UploadErr = errors.New("bucket unavailable")
	f.files.FailAfter = 1

	_, err := f.svc.CreateProduct(context.Background(),
		draftProduct("Trail Blazer 29"),
		[]PendingImage{pendingImage("side.jpg"), pendingImage("rear.jpg")},
		nil,
	)
	require.Error(t, err)

	// Neither the phase-1 record nor the first, already uploaded object
	// survives the rollback.
	assert.Equal(t, 0, f.productCount(t))
	assert.Equal(t, 0, f.files.Len())
}

func TestCreateProduct_RejectsInvalidInput(t *testing.T) {
	f := newAdminFixture(t)

	p := draftProduct("Trail Blazer 29")
	p.Category = ""
	_, err := f.svc.CreateProduct(context.Background(), p, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidProduct)
	assert.Equal(t, 0, f.productCount(t))

	p = draftProduct("Trail Blazer 29")
	pct := 120.0
	p.DiscountPercentage = &pct
	_, err = f.svc.CreateProduct(context.Background(), p, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidProduct)
}

func TestUpdateProduct(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateProduct(ctx, draftProduct("Trail Blazer 29"), nil, nil)
	require.NoError(t, err)

	created.Name = "Trail Blazer 29 v2"
	require.NoError(t, f.svc.UpdateProduct(ctx, created))

	doc, err := f.store.Collection(ProductsCollection).Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Trail Blazer 29 v2", doc.Fields["name"])
}

func TestUpdateProduct_Missing(t *testing.T) {
	f := newAdminFixture(t)

	p := draftProduct("Trail Blazer 29")
	p.ID = "nope"
	err := f.svc.UpdateProduct(context.Background(), p)
	assert.ErrorIs(t, err, ErrNotFound)

	p.ID = ""
	err = f.svc.UpdateProduct(context.Background(), p)
	assert.ErrorIs(t, err, ErrInvalidProduct)
}

func TestRemoveImage(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateProduct(ctx,
		draftProduct("Trail Blazer 29"),
		[]PendingImage{pendingImage("side.jpg"), pendingImage("rear.jpg")},
		nil,
	)
	require.NoError(t, err)
	removed := created.Images[0]

	require.NoError(t, f.svc.RemoveImage(ctx, created.ID, removed))

	doc, err := f.store.Collection(ProductsCollection).Get(ctx, created.ID)
	require.NoError(t, err)
	stored, invalid := Decode(doc)
	require.Nil(t, invalid)
	assert.NotContains(t, stored.Images, removed)
	// The removed image was also the thumbnail, which resets.
	assert.Empty(t, stored.Image)
	assert.False(t, f.files.Has(f.files.PathFromURL(removed)))
}

func TestRemoveImage_MissingProduct(t *testing.T) {
	f := newAdminFixture(t)

	err := f.svc.RemoveImage(context.Background(), "nope", "mem://whatever")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdminListProducts_SearchPrefix(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	col := f.store.Collection(ProductsCollection)
	require.NoError(t, col.Set(ctx, "p1", draftProduct("Trail Blazer 29").Fields()))
	require.NoError(t, col.Set(ctx, "p2", draftProduct("Trail Runner").Fields()))
	require.NoError(t, col.Set(ctx, "p3", draftProduct("City Cruiser").Fields()))

	page, err := f.svc.ListProducts(ctx, AdminListOptions{Search: "Trail"})
	require.NoError(t, err)
	require.Len(t, page.Products, 2)
	assert.False(t, page.HasMore)
}

func TestAdminListProducts_PagesByCursor(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	col := f.store.Collection(ProductsCollection)
	require.NoError(t, col.Set(ctx, "p1", draftProduct("Alpha").Fields()))
	require.NoError(t, col.Set(ctx, "p2", draftProduct("Bravo").Fields()))
	require.NoError(t, col.Set(ctx, "p3", draftProduct("Charlie").Fields()))

	first, err := f.svc.ListProducts(ctx, AdminListOptions{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first.Products, 2)
	assert.True(t, first.HasMore)
	assert.Equal(t, "Alpha", first.Products[0].Name)

	second, err := f.svc.ListProducts(ctx, AdminListOptions{PageSize: 2, StartAfterID: first.LastID})
	require.NoError(t, err)
	require.Len(t, second.Products, 1)
	assert.Equal(t, "Charlie", second.Products[0].Name)
	assert.False(t, second.HasMore)
}

func TestAdminListProducts_EqualityFilters(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	col := f.store.Collection(ProductsCollection)

	other := draftProduct("City Cruiser")
	other.SubCategory = "City"
	other.Brand = "Velora"
	require.NoError(t, col.Set(ctx, "p1", draftProduct("Trail Blazer 29").Fields()))
	require.NoError(t, col.Set(ctx, "p2", other.Fields()))

	page, err := f.svc.ListProducts(ctx, AdminListOptions{Category: "Bikes", Brand: "Velora"})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "City Cruiser", page.Products[0].Name)

	page, err = f.svc.ListProducts(ctx, AdminListOptions{SubCategory: "City"})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
}
