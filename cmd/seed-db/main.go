// Command seed-db loads the demo catalog, inventory, discount codes, a demo
// user, and an API key into the database.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/shopsphere/storefront/internal/domain/discount"
	"github.com/shopsphere/storefront/internal/domain/product"
	"github.com/shopsphere/storefront/internal/repository"
)

type productJSON struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	Price           decimal.Decimal  `json:"price"`
	DiscountedPrice *decimal.Decimal `json:"discounted_price"`
	Category        string           `json:"category"`
	ImageURL        string           `json:"image_url"`
	Stock           map[string]int   `json:"stock"`
}

const demoUserID = "11111111-1111-1111-1111-111111111111"

func main() {
	var (
		databaseURL  string
		productsFile string
		apiKey       string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or SHOP_SEED_API_KEY env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("SHOP_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or SHOP_SEED_API_KEY")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, apiKey); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, apiKey string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedUsers(ctx, pool); err != nil {
		return errors.Wrap(err, "seed users")
	}
	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedDiscounts(ctx, pool); err != nil {
		return errors.Wrap(err, "seed discounts")
	}
	if err := seedAPIKey(ctx, pool, apiKey); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding demo user", slog.String("id", demoUserID))

	users := repository.NewUserRepository(pool)
	return users.Upsert(ctx, demoUserID, "demo@shopsphere.test", "Demo Shopper", 500)
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var items []productJSON
	if err := json.Unmarshal(data, &items); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(items)))

	products := repository.NewProductRepository(pool)
	stock := repository.NewInventoryRepository(pool)

	for _, item := range items {
		if err := products.Upsert(ctx, &product.Product{
			ID:              item.ID,
			Name:            item.Name,
			Description:     item.Description,
			Price:           item.Price,
			DiscountedPrice: item.DiscountedPrice,
			Category:        item.Category,
			ImageURL:        item.ImageURL,
			Active:          true,
		}); err != nil {
			return errors.Wrapf(err, "upsert product %s", item.ID)
		}

		for size, qty := range item.Stock {
			if err := stock.SetLevel(ctx, item.ID, size, qty); err != nil {
				return errors.Wrapf(err, "set stock for product %s size %s", item.ID, size)
			}
		}

		slog.Info("upserted product", slog.String("id", item.ID), slog.String("name", item.Name))
	}

	return nil
}

func seedDiscounts(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding discount codes")

	maxWelcome := decimal.NewFromInt(200)
	rules := []discount.Rule{
		{
			Code:        "WELCOME10",
			Description: "Welcome: 10% off, up to 200",
			Type:        discount.TypePercentage,
			Value:       decimal.NewFromInt(10),
			MaxDiscount: &maxWelcome,
			UsageLimit:  1000,
			Active:      true,
		},
		{
			Code:           "FLAT200",
			Description:    "Flat 200 off orders of 1000 or more",
			Type:           discount.TypeFixed,
			Value:          decimal.NewFromInt(200),
			MinOrderAmount: decimal.NewFromInt(1000),
			UsageLimit:     500,
			Active:         true,
		},
	}

	discounts := repository.NewDiscountRepository(pool)
	for i := range rules {
		if err := discounts.Upsert(ctx, &rules[i]); err != nil {
			return errors.Wrapf(err, "upsert discount %s", rules[i].Code)
		}
		slog.Info("upserted discount", slog.String("code", rules[i].Code))
	}

	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey string) error {
	slog.Info("seeding default API key")

	sum := sha256.Sum256([]byte(apiKey))
	keyHash := hex.EncodeToString(sum[:])

	apikeys := repository.NewAPIKeyRepository(pool)
	if err := apikeys.Upsert(ctx, "default", keyHash, "Default test key"); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", "default"))
	return nil
}
