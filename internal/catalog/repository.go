package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/misterblack0101/letsride-sub000/internal/docstore"
	"github.com/misterblack0101/letsride-sub000/pkg/retry"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Sort orders accepted by FetchFiltered.
const (
	SortName      = "name"
	SortPriceLow  = "price_low"
	SortPriceHigh = "price_high"
	SortRating    = "rating"
)

const defaultPageSize = 20

// Filters describes a product listing request.
type Filters struct {
	Categories  []string
	SubCategory string
	Brands      []string
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	SortBy      string
	PageSize    int

	// CursorID resumes after a previously seen product (cursor mode).
	// PageOffset skips a computed number of rows (offset mode). When both
	// are present the cursor wins.
	CursorID   string
	PageOffset int
}

// Page is one page of validated products.
type Page struct {
	Products []Product
	// LastID identifies the final row, usable as the next page's cursor.
	LastID  string
	HasMore bool
}

// Repository answers product queries against the document store, validating
// every returned record and discarding invalid ones.
type Repository struct {
	products docstore.Collection
	log      *zap.Logger
	retry    retry.Config
}

// NewRepository creates a Repository over the given store.
func NewRepository(store docstore.Store, log *zap.Logger) *Repository {
	return &Repository{
		products: store.Collection(ProductsCollection),
		log:      log,
		retry: retry.Config{
			Retryable: docstore.Retryable,
			Logger:    log,
		},
	}
}

// FetchFiltered returns one page of products matching the filters. An
// unresolvable cursor degrades to an un-cursored fetch; invalid rows are
// dropped with a warning and never fail the page.
func (r *Repository) FetchFiltered(ctx context.Context, f Filters) (Page, error) {
	pageSize := f.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	b := r.filterQuery(f)
	r.applySort(b, f.SortBy)

	if cursor, ok := r.resolveCursor(ctx, f.CursorID); ok {
		b.StartAfter(cursor)
	} else if f.PageOffset > 0 {
		b.Offset(f.PageOffset)
	}
	// One extra row tells us whether another page exists.
	b.Limit(pageSize + 1)

	docs, err := retry.DoWithResult(ctx, r.retry, func() ([]docstore.Document, error) {
		return b.Execute(ctx)
	})
	if err != nil {
		return Page{}, errors.Wrap(err, "fetch filtered products")
	}

	hasMore := len(docs) > pageSize
	if hasMore {
		docs = docs[:pageSize]
	}

	page := Page{
		Products: r.decodeAll(docs),
		HasMore:  hasMore,
	}
	if n := len(docs); n > 0 {
		page.LastID = docs[n-1].ID
	}
	return page, nil
}

// FetchByCategory returns products in the given category and subcategory.
// Callers pass decoded segment values; the HTTP router has already
// percent-decoded path values, so decoding again here would corrupt names
// containing literal %XX sequences.
func (r *Repository) FetchByCategory(ctx context.Context, category, subCategory string, f Filters) (Page, error) {
	f.Categories = []string{category}
	f.SubCategory = subCategory

	pageSize := f.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	b := r.filterQuery(f)
	r.applySort(b, f.SortBy)

	if cursor, ok := r.resolveCursor(ctx, f.CursorID); ok {
		b.StartAfter(cursor)
	} else if f.PageOffset > 0 {
		b.Offset(f.PageOffset)
	}
	b.Limit(pageSize + 1)

	docs, err := retry.DoWithResult(ctx, r.retry, func() ([]docstore.Document, error) {
		return b.Execute(ctx)
	})
	if err != nil {
		return Page{}, errors.Wrap(err, "fetch products by category")
	}

	hasMore := len(docs) > pageSize
	if hasMore {
		docs = docs[:pageSize]
	}
	page := Page{Products: r.decodeAll(docs), HasMore: hasMore}
	if n := len(docs); n > 0 {
		page.LastID = docs[n-1].ID
	}
	return page, nil
}

// FetchByID returns a single product. Absent and invalid records both
// report ErrNotFound; an invalid record is additionally logged.
func (r *Repository) FetchByID(ctx context.Context, id string) (*Product, error) {
	doc, err := retry.DoWithResult(ctx, r.retry, func() (docstore.Document, error) {
		return r.products.Get(ctx, id)
	})
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "fetch product %q", id)
	}

	p, invalid := Decode(doc)
	if invalid != nil {
		r.log.Warn("stored product failed validation",
			zap.String("id", invalid.ID),
			zap.String("reason", invalid.Reason),
		)
		return nil, ErrNotFound
	}
	return &p, nil
}

// FetchRecommended returns recommended products sorted by rating.
func (r *Repository) FetchRecommended(ctx context.Context) ([]Product, error) {
	b := NewQuery(r.products).
		Where("isRecommended", docstore.OpEqual, true).
		OrderBy("rating", docstore.Desc)

	docs, err := retry.DoWithResult(ctx, r.retry, func() ([]docstore.Document, error) {
		return b.Execute(ctx)
	})
	if err != nil {
		return nil, errors.Wrap(err, "fetch recommended products")
	}
	return r.decodeAll(docs), nil
}

// FetchAll returns every valid product. Used by the search fallback
// snapshot and the degraded count path.
func (r *Repository) FetchAll(ctx context.Context) ([]Product, error) {
	docs, err := retry.DoWithResult(ctx, r.retry, func() ([]docstore.Document, error) {
		return NewQuery(r.products).Execute(ctx)
	})
	if err != nil {
		return nil, errors.Wrap(err, "fetch all products")
	}
	return r.decodeAll(docs), nil
}

// Count returns how many products match the filters. It prefers the
// store's count aggregation and falls back to fetching and counting
// matching rows when aggregation is unsupported. The fallback costs
// O(matching rows); it trades performance, not correctness.
func (r *Repository) Count(ctx context.Context, f Filters) (int64, error) {
	q := r.filterQuery(f).Build()

	n, err := retry.DoWithResult(ctx, r.retry, func() (int64, error) {
		return q.Count(ctx)
	})
	if err == nil {
		return n, nil
	}
	if !errors.Is(err, docstore.ErrCountUnsupported) {
		return 0, errors.Wrap(err, "count products")
	}

	r.log.Warn("count aggregation unsupported, counting fetched rows")
	docs, err := retry.DoWithResult(ctx, r.retry, func() ([]docstore.Document, error) {
		return r.filterQuery(f).Execute(ctx)
	})
	if err != nil {
		return 0, errors.Wrap(err, "count products by fetch")
	}
	return int64(len(r.decodeAll(docs))), nil
}

// filterQuery builds the predicate set shared by listing and counting:
// category/brand memberships and price bounds. Sort, cursor and limit are
// left to the caller.
func (r *Repository) filterQuery(f Filters) *QueryBuilder {
	b := NewQuery(r.products).
		WhereIn("category", f.Categories).
		WhereIn("brand", f.Brands)
	if f.SubCategory != "" {
		b.Where("subCategory", docstore.OpEqual, f.SubCategory)
	}
	if f.MinPrice != nil {
		b.Where("discountedPrice", docstore.OpGreaterEqual, f.MinPrice.InexactFloat64())
	}
	if f.MaxPrice != nil {
		b.Where("discountedPrice", docstore.OpLessEqual, f.MaxPrice.InexactFloat64())
	}
	return b
}

func (r *Repository) applySort(b *QueryBuilder, sortBy string) {
	switch sortBy {
	case SortName:
		b.OrderBy("name", docstore.Asc)
	case SortPriceLow:
		b.OrderBy("discountedPrice", docstore.Asc)
	case SortPriceHigh:
		b.OrderBy("discountedPrice", docstore.Desc)
	default:
		b.OrderBy("rating", docstore.Desc)
	}
}

// resolveCursor looks up the cursor row. A cursor that no longer resolves
// (deleted or unknown) degrades the request to an un-cursored fetch.
func (r *Repository) resolveCursor(ctx context.Context, cursorID string) (docstore.Document, bool) {
	if cursorID == "" {
		return docstore.Document{}, false
	}
	doc, err := r.products.Get(ctx, cursorID)
	if err != nil {
		r.log.Warn("pagination cursor did not resolve, degrading to offset",
			zap.String("cursor_id", cursorID),
			zap.Error(err),
		)
		return docstore.Document{}, false
	}
	return doc, true
}

// decodeAll partitions documents into valid products and logged rejects.
// One corrupt record never fails the whole listing.
func (r *Repository) decodeAll(docs []docstore.Document) []Product {
	products := make([]Product, 0, len(docs))
	for _, doc := range docs {
		p, invalid := Decode(doc)
		if invalid != nil {
			r.log.Warn("dropping invalid product record",
				zap.String("id", invalid.ID),
				zap.String("reason", invalid.Reason),
			)
			continue
		}
		products = append(products, p)
	}
	return products
}
