package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/misterblack0101/letsride-sub000/internal/docstore/memory"
)

func newTestStructureRepo(t *testing.T) *StructureRepository {
	t.Helper()
	return NewStructureRepository(memory.New(), zaptest.NewLogger(t))
}

func TestStructure_LoadEmpty(t *testing.T) {
	repo := newTestStructureRepo(t)

	s, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, s)
}

func TestStructure_AddAndLoad(t *testing.T) {
	repo := newTestStructureRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.AddBrand(ctx, "Ridgeline", "Bikes", "Mountain"))
	require.NoError(t, repo.AddBrand(ctx, "Velora", "Bikes", "Road"))
	require.NoError(t, repo.AddBrand(ctx, "Ridgeline", "Accessories", "Helmets"))

	s, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ridgeline"}, s["Bikes"]["Mountain"])
	assert.Equal(t, []string{"Velora"}, s["Bikes"]["Road"])
	assert.Equal(t, []string{"Ridgeline"}, s["Accessories"]["Helmets"])
}

func TestStructure_AddDuplicate(t *testing.T) {
	repo := newTestStructureRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.AddBrand(ctx, "Ridgeline", "Bikes", "Mountain"))
	err := repo.AddBrand(ctx, "Ridgeline", "Bikes", "Mountain")
	assert.ErrorIs(t, err, ErrBrandExists)

	// The same brand in another subcategory is a separate listing.
	require.NoError(t, repo.AddBrand(ctx, "Ridgeline", "Bikes", "Road"))
}

func TestStructure_RemoveBrand(t *testing.T) {
	repo := newTestStructureRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.AddBrand(ctx, "Ridgeline", "Bikes", "Mountain"))
	require.NoError(t, repo.RemoveBrand(ctx, "Ridgeline", "Bikes", "Mountain"))

	err := repo.RemoveBrand(ctx, "Ridgeline", "Bikes", "Mountain")
	assert.ErrorIs(t, err, ErrBrandNotFound)
}

func TestStructure_AllBrandsDeduplicated(t *testing.T) {
	s := Structure{
		"Bikes": {
			"Mountain": {"Ridgeline", "Velora"},
			"Road":     {"Velora"},
		},
		"Accessories": {
			"Helmets": {"Cascade"},
		},
	}
	assert.Equal(t, []string{"Cascade", "Ridgeline", "Velora"}, s.AllBrands())
}

func TestStructure_BrandsByCategory(t *testing.T) {
	s := Structure{
		"Bikes": {
			"Mountain": {"Velora", "Ridgeline"},
		},
	}

	bySub, err := s.BrandsByCategory("Bikes")
	require.NoError(t, err)
	assert.Equal(t, []string{"Ridgeline", "Velora"}, bySub["Mountain"])

	_, err = s.BrandsByCategory("Nope")
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestSaveStructure_RoundTrip(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	in := Structure{"Bikes": {"Mountain": {"Ridgeline"}}}
	require.NoError(t, SaveStructure(ctx, store, in))

	repo := NewStructureRepository(store, zaptest.NewLogger(t))
	out, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
