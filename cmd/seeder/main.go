package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/foxxcyber/trade-basket/internal/config"
	"github.com/foxxcyber/trade-basket/internal/database"
	"github.com/foxxcyber/trade-basket/internal/models"
)

func main() {
	// Command line flags
	supplierSlug := flag.String("supplier", "", "Slug of the database-catalog supplier to load (required)")
	supplierName := flag.String("create", "", "Create the supplier with this display name if it does not exist")
	localFile := flag.String("file", "", "Local CSV price file")
	remoteURL := flag.String("url", "", "Download the CSV price file from this URL")
	replace := flag.Bool("replace", false, "Delete the supplier's existing products before importing")
	dryRun := flag.Bool("dry-run", false, "Preview changes without writing to database")
	batchSize := flag.Int("batch", 500, "Products per transaction")
	flag.Parse()

	if *supplierSlug == "" || (*localFile == "") == (*remoteURL == "") {
		fmt.Fprintln(os.Stderr, "usage: seeder -supplier <slug> (-file <path> | -url <url>) [-create <name>] [-replace] [-dry-run]")
		os.Exit(2)
	}

	// Load .env
	godotenv.Load()

	cfg := config.Load()

	// Get CSV data
	var reader io.Reader
	if *localFile != "" {
		file, err := os.Open(*localFile)
		if err != nil {
			log.Fatalf("Failed to open local file: %v", err)
		}
		defer file.Close()
		reader = file
		log.Printf("Reading from local file: %s", *localFile)
	} else {
		log.Printf("Downloading price file from: %s", *remoteURL)
		resp, err := http.Get(*remoteURL)
		if err != nil {
			log.Fatalf("Failed to download price file: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			log.Fatalf("Failed to download: HTTP %d", resp.StatusCode)
		}
		reader = resp.Body
	}

	products, skipped, err := parseCatalogCSV(reader)
	if err != nil {
		log.Fatalf("Failed to parse price file: %v", err)
	}
	for _, s := range skipped {
		log.Printf("Warning: %s", s)
	}
	log.Printf("Found %d products (%d rows skipped)", len(products), len(skipped))

	if *dryRun {
		log.Println("DRY RUN - No changes will be made")
		printPreview(products, 20)
		return
	}

	db, err := database.Connect(cfg.DatabaseURL, cfg.SupplierKeySecret)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := database.RunMigrations(ctx, db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	supplier, err := findOrCreateSupplier(ctx, db, *supplierSlug, *supplierName)
	if err != nil {
		log.Fatalf("Failed to resolve supplier: %v", err)
	}
	if supplier.CatalogType != models.CatalogTypeDatabase {
		log.Fatalf("Supplier %s uses a %s catalog, not database", supplier.Slug, supplier.CatalogType)
	}

	if *replace {
		removed, err := db.DeleteSupplierProducts(ctx, supplier.ID)
		if err != nil {
			log.Fatalf("Failed to clear existing products: %v", err)
		}
		log.Printf("Removed %d existing products", removed)
	}

	imported, err := importProducts(ctx, db, supplier, products, *batchSize)
	if err != nil {
		log.Fatalf("Failed to import products: %v", err)
	}

	log.Printf("Import complete: %d products loaded for %s", imported, supplier.Name)
	log.Println("Remember to invalidate the supplier's cached lookups: DELETE /api/admin/cache/suppliers/" + supplier.Slug)
}

func findOrCreateSupplier(ctx context.Context, db *database.DB, slug, name string) (*models.Supplier, error) {
	supplier, err := db.GetSupplierBySlug(ctx, slug)
	if err == nil {
		return supplier, nil
	}
	if !errors.Is(err, database.ErrSupplierNotFound) || name == "" {
		return nil, err
	}

	log.Printf("Creating supplier %s (%s)", name, slug)
	return db.CreateSupplier(ctx, &models.CreateSupplierRequest{
		Name:        name,
		Slug:        slug,
		CatalogType: models.CatalogTypeDatabase,
	})
}

// importProducts upserts in batches to avoid long transactions
func importProducts(ctx context.Context, db *database.DB, supplier *models.Supplier, products []models.UpsertProductRequest, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 500
	}

	imported := 0
	for i := 0; i < len(products); i += batchSize {
		end := min(i+batchSize, len(products))

		n, err := db.UpsertSupplierProducts(ctx, supplier.ID, products[i:end])
		if err != nil {
			return imported, err
		}
		imported += n

		log.Printf("Progress: %d/%d products processed", end, len(products))
	}
	return imported, nil
}

// printPreview shows a sample of the data to be imported
func printPreview(products []models.UpsertProductRequest, limit int) {
	fmt.Println("\n=== Preview of products to import ===")
	fmt.Printf("Total: %d products\n\n", len(products))

	stockCount := make(map[models.StockStatus]int)
	for _, p := range products {
		stockCount[p.StockStatus]++
	}
	fmt.Println("Products by stock status:")
	for _, s := range []models.StockStatus{models.StockInStock, models.StockLowStock, models.StockOutOfStock, models.StockUnknown} {
		fmt.Printf("  %s: %d\n", s, stockCount[s])
	}

	fmt.Printf("\nSample products (first %d):\n", limit)
	for i, p := range products {
		if i >= limit {
			break
		}
		fmt.Printf("  %-12s £%s  %s\n", p.ProductCode, p.Price.StringFixed(2), strings.TrimSpace(p.Name))
	}
}
