package catalog

import (
	"context"
	"sort"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/misterblack0101/letsride-sub000/internal/docstore"
	"github.com/misterblack0101/letsride-sub000/pkg/retry"
)

// structureDocID is the single document holding the whole category tree.
const structureDocID = "structure"

// Brand CRUD errors.
var (
	ErrBrandExists      = errors.New("brand already listed in subcategory")
	ErrBrandNotFound    = errors.New("brand not listed in subcategory")
	ErrCategoryNotFound = errors.New("category not found")
)

// Structure maps category -> subcategory -> brand names. The flattened
// brand views are pure derivations of this tree, recomputed on every read.
type Structure map[string]map[string][]string

// AllBrands flattens the tree into a sorted, deduplicated brand list.
func (s Structure) AllBrands() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, subs := range s {
		for _, brands := range subs {
			for _, b := range brands {
				if _, ok := seen[b]; ok {
					continue
				}
				seen[b] = struct{}{}
				out = append(out, b)
			}
		}
	}
	sort.Strings(out)
	return out
}

// BrandsByCategory returns subcategory -> sorted brands for one category.
func (s Structure) BrandsByCategory(category string) (map[string][]string, error) {
	subs, ok := s[category]
	if !ok {
		return nil, ErrCategoryNotFound
	}
	out := make(map[string][]string, len(subs))
	for sub, brands := range subs {
		cp := append([]string(nil), brands...)
		sort.Strings(cp)
		out[sub] = cp
	}
	return out, nil
}

// StructureRepository reads and mutates the category structure document.
type StructureRepository struct {
	categories docstore.Collection
	log        *zap.Logger
	retry      retry.Config
}

// NewStructureRepository creates a StructureRepository over the store.
func NewStructureRepository(store docstore.Store, log *zap.Logger) *StructureRepository {
	return &StructureRepository{
		categories: store.Collection(CategoriesCollection),
		log:        log,
		retry: retry.Config{
			Retryable: docstore.Retryable,
			Logger:    log,
		},
	}
}

// Load returns the category tree. An absent document is an empty tree.
func (r *StructureRepository) Load(ctx context.Context) (Structure, error) {
	doc, err := retry.DoWithResult(ctx, r.retry, func() (docstore.Document, error) {
		return r.categories.Get(ctx, structureDocID)
	})
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Structure{}, nil
		}
		return nil, errors.Wrap(err, "load category structure")
	}
	return decodeStructure(doc.Fields), nil
}

// AddBrand lists a brand under category/subcategory, creating both levels
// as needed. A brand must be unique within its subcategory listing.
func (r *StructureRepository) AddBrand(ctx context.Context, name, category, subCategory string) error {
	s, err := r.Load(ctx)
	if err != nil {
		return err
	}

	subs, ok := s[category]
	if !ok {
		subs = make(map[string][]string)
		s[category] = subs
	}
	for _, b := range subs[subCategory] {
		if b == name {
			return ErrBrandExists
		}
	}
	subs[subCategory] = append(subs[subCategory], name)

	return r.save(ctx, s)
}

// RemoveBrand unlists a brand from category/subcategory.
func (r *StructureRepository) RemoveBrand(ctx context.Context, name, category, subCategory string) error {
	s, err := r.Load(ctx)
	if err != nil {
		return err
	}

	brands := s[category][subCategory]
	idx := -1
	for i, b := range brands {
		if b == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrBrandNotFound
	}
	s[category][subCategory] = append(brands[:idx], brands[idx+1:]...)

	return r.save(ctx, s)
}

// SaveStructure replaces the whole category tree in one write. The seeder
// uses it to rebuild the tree from a product dump.
func SaveStructure(ctx context.Context, store docstore.Store, s Structure) error {
	col := store.Collection(CategoriesCollection)
	if err := col.Set(ctx, structureDocID, encodeStructure(s)); err != nil {
		return errors.Wrap(err, "save category structure")
	}
	return nil
}

func (r *StructureRepository) save(ctx context.Context, s Structure) error {
	err := retry.Do(ctx, r.retry, func() error {
		return r.categories.Set(ctx, structureDocID, encodeStructure(s))
	})
	if err != nil {
		return errors.Wrap(err, "save category structure")
	}
	return nil
}

func encodeStructure(s Structure) map[string]any {
	fields := make(map[string]any, len(s))
	for cat, subs := range s {
		sm := make(map[string]any, len(subs))
		for sub, brands := range subs {
			sm[sub] = map[string]any{"brands": brands}
		}
		fields[cat] = sm
	}
	return fields
}

func decodeStructure(fields map[string]any) Structure {
	s := make(Structure, len(fields))
	for cat, v := range fields {
		subsRaw, ok := v.(map[string]any)
		if !ok {
			continue
		}
		subs := make(map[string][]string, len(subsRaw))
		for sub, sv := range subsRaw {
			entry, ok := sv.(map[string]any)
			if !ok {
				continue
			}
			subs[sub] = asStringSlice(entry["brands"])
		}
		s[cat] = subs
	}
	return s
}
