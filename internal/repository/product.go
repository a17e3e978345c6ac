package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopsphere/storefront/internal/domain/product"
)

const (
	productColumns = `id, name, description, price, discounted_price, category, image_url, is_active`

	// prefixedProductColumns is productColumns qualified for joins against
	// a products table aliased as p.
	prefixedProductColumns = `p.id, p.name, p.description, p.price, p.discounted_price, p.category, p.image_url, p.is_active`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products
		WHERE is_active AND ($1 = '' OR category = $1)
		ORDER BY name`

	listCategoriesSQL = `SELECT DISTINCT category FROM products
		WHERE is_active AND category <> ''
		ORDER BY category`

	getProductSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	upsertProductSQL = `INSERT INTO products (id, name, description, price, discounted_price, category, image_url, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			discounted_price = EXCLUDED.discounted_price,
			category = EXCLUDED.category,
			image_url = EXCLUDED.image_url,
			is_active = EXCLUDED.is_active`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns active catalog products ordered by name, filtered to one
// category when the filter is non-empty.
func (r *ProductRepository) List(ctx context.Context, category string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL, category)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

// Categories returns the distinct category labels of active products.
func (r *ProductRepository) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// GetByID returns a single product by its identifier, including inactive
// ones so existing carts and orders stay resolvable.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	row := r.pool.QueryRow(ctx, getProductSQL, id)

	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return p, nil
}

// GetByIDs batch-fetches products. Missing IDs are simply absent from the
// result; the caller decides whether that is an error.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, getProductsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

// Upsert inserts or replaces a catalog product. Used by the seed tool.
func (r *ProductRepository) Upsert(ctx context.Context, p *product.Product) error {
	_, err := r.pool.Exec(ctx, upsertProductSQL,
		p.ID, p.Name, p.Description, p.Price, p.DiscountedPrice,
		p.Category, p.ImageURL, p.Active,
	)
	if err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}
	return nil
}

func scanProducts(rows pgx.Rows) ([]product.Product, error) {
	var products []product.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func scanProduct(row pgx.Row) (*product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.DiscountedPrice,
		&p.Category, &p.ImageURL, &p.Active,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
