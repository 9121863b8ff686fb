// Command catalog-seed loads a gzipped JSON product dump into Firestore and
// rebuilds the category structure document from it.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	"github.com/misterblack0101/letsride-sub000/internal/catalog"
	"github.com/misterblack0101/letsride-sub000/internal/docstore"
	"github.com/misterblack0101/letsride-sub000/internal/docstore/firestoredb"
)

const writeConcurrency = 8

type productJSON struct {
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

func main() {
	var (
		projectID       string
		credentialsFile string
		catalogFile     string
		skipStructure   bool
	)

	flag.StringVar(&projectID, "project", "", "GCP project id (or GOOGLE_CLOUD_PROJECT env)")
	flag.StringVar(&credentialsFile, "credentials", "", "path to a service account JSON file")
	flag.StringVar(&catalogFile, "catalog-file", "data/catalog.json.gz", "path to the product dump (.json or .json.gz)")
	flag.BoolVar(&skipStructure, "skip-structure", false, "do not rebuild the category structure document")
	flag.Parse()

	if projectID == "" {
		projectID = os.Getenv("GOOGLE_CLOUD_PROJECT")
	}
	if projectID == "" {
		slog.Error("project id is required: set --project or GOOGLE_CLOUD_PROJECT")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, projectID, credentialsFile, catalogFile, skipStructure); err != nil {
		slog.Error("catalog seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog seed completed successfully")
}

func run(ctx context.Context, projectID, credentialsFile, catalogFile string, skipStructure bool) error {
	products, err := loadCatalog(catalogFile)
	if err != nil {
		return errors.Wrap(err, "load catalog file")
	}
	slog.Info("catalog loaded", slog.Int("products", len(products)))

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return errors.Wrap(err, "connect firestore")
	}
	defer client.Close()

	store := firestoredb.New(client)
	if err := writeProducts(ctx, store, products); err != nil {
		return errors.Wrap(err, "write products")
	}
	slog.Info("products written", slog.Int("count", len(products)))

	if skipStructure {
		return nil
	}
	if err := writeStructure(ctx, store, products); err != nil {
		return errors.Wrap(err, "write category structure")
	}
	slog.Info("category structure written")
	return nil
}

// loadCatalog reads the dump, transparently decompressing .gz files.
func loadCatalog(path string) ([]productJSON, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip stream")
		}
		defer gz.Close()
		r = gz
	}

	var products []productJSON
	if err := json.NewDecoder(r).Decode(&products); err != nil {
		return nil, errors.Wrap(err, "decode products")
	}
	return products, nil
}

// writeProducts validates each record and writes the valid ones
// concurrently. Invalid records are logged and skipped so one bad row does
// not abort the whole seed.
func writeProducts(ctx context.Context, store docstore.Store, products []productJSON) error {
	col := store.Collection(catalog.ProductsCollection)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(writeConcurrency)

	for _, pj := range products {
		p := toProduct(pj)
		if err := validateSeed(p); err != nil {
			slog.Warn("skipping invalid seed record",
				slog.String("id", p.ID),
				slog.String("name", p.Name),
				slog.String("error", err.Error()),
			)
			continue
		}
		g.Go(func() error {
			if err := col.Set(ctx, p.ID, p.Fields()); err != nil {
				return errors.Wrapf(err, "write product %q", p.ID)
			}
			return nil
		})
	}
	return g.Wait()
}

// writeStructure derives category -> subcategory -> brands from the seeded
// products and replaces the structure document.
func writeStructure(ctx context.Context, store docstore.Store, products []productJSON) error {
	structure := catalog.Structure{}
	for _, p := range products {
		if p.Category == "" || p.SubCategory == "" || p.Brand == "" {
			continue
		}
		subs, ok := structure[p.Category]
		if !ok {
			subs = make(map[string][]string)
			structure[p.Category] = subs
		}
		listed := false
		for _, b := range subs[p.SubCategory] {
			if b == p.Brand {
				listed = true
				break
			}
		}
		if !listed {
			subs[p.SubCategory] = append(subs[p.SubCategory], p.Brand)
		}
	}
	return catalog.SaveStructure(ctx, store, structure)
}

func toProduct(pj productJSON) catalog.Product {
	id := pj.ID
	if id == "" {
		id = uuid.NewString()
	}
	p := catalog.Product{
		ID:                 id,
		Name:               pj.Name,
		Category:           pj.Category,
		SubCategory:        pj.SubCategory,
		Brand:              pj.Brand,
		Description:        pj.Description,
		Rating:             pj.Rating,
		Inventory:          pj.Inventory,
		ActualPrice:        decimal.NewFromFloat(pj.ActualPrice),
		DiscountPercentage: pj.DiscountPercentage,
		IsRecommended:      pj.IsRecommended,
		Images:             pj.Images,
		Image:              pj.Image,
	}
	if pj.Price != nil {
		d := decimal.NewFromFloat(*pj.Price)
		p.Price = &d
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	return p
}

func validateSeed(p catalog.Product) error {
	if p.Name == "" || p.Category == "" || p.SubCategory == "" {
		return errors.New("name, category and subCategory are required")
	}
	if p.ActualPrice.IsNegative() {
		return errors.New("actualPrice must not be negative")
	}
	if p.DiscountedPrice().GreaterThan(p.ActualPrice) {
		return errors.New("discounted price exceeds actual price")
	}
	return nil
}
