package catalog

import (
	"context"
	"fmt"
	"io"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/misterblack0101/letsride-sub000/internal/docstore"
	"github.com/misterblack0101/letsride-sub000/internal/objstore"
)

// ErrInvalidProduct reports an admin payload that fails the product schema.
var ErrInvalidProduct = errors.New("invalid product")

// PendingImage is an image awaiting upload during product creation.
type PendingImage struct {
	Name        string
	ContentType string
	Data        io.Reader
}

// AdminListOptions narrows the admin product listing.
type AdminListOptions struct {
	PageSize     int
	StartAfterID string
	Search       string
	Category     string
	SubCategory  string
	Brand        string
}

// AdminService implements the product management flows behind the admin
// panel.
type AdminService struct {
	products docstore.Collection
	files    objstore.Storage
	log      *zap.Logger
}

// NewAdminService creates an AdminService.
func NewAdminService(store docstore.Store, files objstore.Storage, log *zap.Logger) *AdminService {
	return &AdminService{
		products: store.Collection(ProductsCollection),
		files:    files,
		log:      log,
	}
}

// CreateProduct runs the two-phase create: persist the record with empty
// image fields to obtain an identifier, upload the pending images under
// that identifier, then patch the record with the resulting URLs. When an
// upload or the patch fails, the phase-1 record is deleted so no
// empty-image product is left behind.
func (s *AdminService) CreateProduct(ctx context.Context, p Product, images []PendingImage, thumbnail *PendingImage) (Product, error) {
	if err := validateInput(p); err != nil {
		return Product{}, err
	}

	// Phase 1: persist without images; uploads need the stable id as
	// their storage path.
	p.Images = []string{}
	p.Image = ""
	id, err := s.products.Create(ctx, p.Fields())
	if err != nil {
		return Product{}, errors.Wrap(err, "create product")
	}
	p.ID = id

	urls, thumbURL, err := s.uploadImages(ctx, id, images, thumbnail)
	if err != nil {
		s.compensate(ctx, id, urls)
		return Product{}, errors.Wrap(err, "upload product images")
	}

	// Phase 3: patch the record with the uploaded URLs.
	p.Images = urls
	p.Image = thumbURL
	if err := s.products.Update(ctx, id, map[string]any{
		"images": urls,
		"image":  thumbURL,
	}); err != nil {
		objects := urls
		if thumbnail != nil && thumbURL != "" {
			objects = append(objects, thumbURL)
		}
		s.compensate(ctx, id, objects)
		return Product{}, errors.Wrap(err, "attach image urls")
	}

	return p, nil
}

// UpdateProduct fully replaces the mutable fields of an existing product.
func (s *AdminService) UpdateProduct(ctx context.Context, p Product) error {
	if p.ID == "" {
		return errors.Wrap(ErrInvalidProduct, "missing id")
	}
	if err := validateInput(p); err != nil {
		return err
	}
	if _, err := s.products.Get(ctx, p.ID); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrNotFound
		}
		return errors.Wrapf(err, "load product %q", p.ID)
	}
	if err := s.products.Set(ctx, p.ID, p.Fields()); err != nil {
		return errors.Wrapf(err, "update product %q", p.ID)
	}
	return nil
}

// RemoveImage detaches an image URL from the product and deletes the
// underlying object out of band. Storage deletion is best effort: the
// record mutation is the source of truth.
func (s *AdminService) RemoveImage(ctx context.Context, productID, imageURL string) error {
	doc, err := s.products.Get(ctx, productID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrNotFound
		}
		return errors.Wrapf(err, "load product %q", productID)
	}

	images := asStringSlice(doc.Fields["images"])
	kept := make([]string, 0, len(images))
	for _, u := range images {
		if u != imageURL {
			kept = append(kept, u)
		}
	}

	updates := map[string]any{"images": kept}
	if asString(doc.Fields["image"]) == imageURL {
		updates["image"] = ""
	}
	if err := s.products.Update(ctx, productID, updates); err != nil {
		return errors.Wrapf(err, "detach image from product %q", productID)
	}

	if path := s.files.PathFromURL(imageURL); path != "" {
		if err := s.files.Delete(ctx, path); err != nil {
			s.log.Warn("failed to delete detached image object",
				zap.String("product_id", productID),
				zap.String("path", path),
				zap.Error(err),
			)
		}
	}
	return nil
}

// ListProducts pages through the catalog for the admin table. Search is a
// name prefix match; category/subcategory/brand are equality filters.
func (s *AdminService) ListProducts(ctx context.Context, opts AdminListOptions) (Page, error) {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	b := NewQuery(s.products)
	if opts.Search != "" {
		// Prefix range: name >= q and name <= q + high codepoint.
		b.Where("name", docstore.OpGreaterEqual, opts.Search)
		b.Where("name", docstore.OpLessEqual, opts.Search+"\uf8ff")
	}
	if opts.Category != "" {
		b.Where("category", docstore.OpEqual, opts.Category)
	}
	if opts.SubCategory != "" {
		b.Where("subCategory", docstore.OpEqual, opts.SubCategory)
	}
	if opts.Brand != "" {
		b.Where("brand", docstore.OpEqual, opts.Brand)
	}
	b.OrderBy("name", docstore.Asc)

	if opts.StartAfterID != "" {
		cursor, err := s.products.Get(ctx, opts.StartAfterID)
		if err == nil {
			b.StartAfter(cursor)
		} else {
			s.log.Warn("admin list cursor did not resolve",
				zap.String("cursor_id", opts.StartAfterID),
				zap.Error(err),
			)
		}
	}
	b.Limit(pageSize + 1)

	docs, err := b.Execute(ctx)
	if err != nil {
		return Page{}, errors.Wrap(err, "list products")
	}

	hasMore := len(docs) > pageSize
	if hasMore {
		docs = docs[:pageSize]
	}

	products := make([]Product, 0, len(docs))
	for _, doc := range docs {
		p, invalid := Decode(doc)
		if invalid != nil {
			s.log.Warn("dropping invalid product record",
				zap.String("id", invalid.ID),
				zap.String("reason", invalid.Reason),
			)
			continue
		}
		products = append(products, p)
	}

	page := Page{Products: products, HasMore: hasMore}
	if n := len(docs); n > 0 {
		page.LastID = docs[n-1].ID
	}
	return page, nil
}

// uploadImages uploads the pending images. On failure it returns the URLs
// uploaded before the failing one so the caller can clean them up.
func (s *AdminService) uploadImages(ctx context.Context, id string, images []PendingImage, thumbnail *PendingImage) ([]string, string, error) {
	urls := make([]string, 0, len(images))
	for i, img := range images {
		path := fmt.Sprintf("products/%s/%d-%s", id, i, img.Name)
		url, err := s.files.Upload(ctx, path, img.Data, img.ContentType)
		if err != nil {
			return urls, "", err
		}
		urls = append(urls, url)
	}

	thumbURL := ""
	if thumbnail != nil {
		path := fmt.Sprintf("products/%s/thumbnail-%s", id, thumbnail.Name)
		url, err := s.files.Upload(ctx, path, thumbnail.Data, thumbnail.ContentType)
		if err != nil {
			return urls, "", err
		}
		thumbURL = url
	} else if len(urls) > 0 {
		// Position 0 is the default thumbnail candidate.
		thumbURL = urls[0]
	}
	return urls, thumbURL, nil
}

// compensate rolls back a failed phase 2/3: it deletes the phase-1 record
// and best-effort-deletes any objects the aborted create already uploaded,
// so the catalog keeps neither an empty-image product nor orphaned storage.
func (s *AdminService) compensate(ctx context.Context, id string, imageURLs []string) {
	if err := s.products.Delete(ctx, id); err != nil {
		s.log.Error("failed to roll back partially created product",
			zap.String("id", id),
			zap.Error(err),
		)
	}
	for _, u := range imageURLs {
		path := s.files.PathFromURL(u)
		if path == "" {
			continue
		}
		if err := s.files.Delete(ctx, path); err != nil {
			s.log.Warn("failed to delete image object of rolled back product",
				zap.String("id", id),
				zap.String("path", path),
				zap.Error(err),
			)
		}
	}
}

// validateInput checks an admin-supplied product against the schema,
// wrapping failures in ErrInvalidProduct so handlers map them to 400.
func validateInput(p Product) error {
	if err := validate.Struct(p); err != nil {
		return errors.Wrap(ErrInvalidProduct, err.Error())
	}
	if p.ActualPrice.IsNegative() {
		return errors.Wrap(ErrInvalidProduct, "actualPrice must not be negative")
	}
	if p.DiscountPercentage != nil && (*p.DiscountPercentage < 0 || *p.DiscountPercentage > 100) {
		return errors.Wrap(ErrInvalidProduct, "discountPercentage out of range")
	}
	if p.DiscountedPrice().GreaterThan(p.ActualPrice) {
		return errors.Wrap(ErrInvalidProduct, "discounted price exceeds actual price")
	}
	return nil
}
