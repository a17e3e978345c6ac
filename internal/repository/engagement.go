package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopsphere/storefront/internal/domain/engagement"
)

const (
	addWishlistSQL = `INSERT INTO wishlist_items (user_id, product_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, product_id) DO NOTHING`

	removeWishlistSQL = `DELETE FROM wishlist_items
		WHERE user_id = $1 AND product_id = $2`

	listWishlistSQL = `SELECT ` + prefixedProductColumns + `, w.added_at
		FROM wishlist_items w
		JOIN products p ON p.id = w.product_id
		WHERE w.user_id = $1
		ORDER BY w.added_at DESC`

	addCommentSQL = `INSERT INTO comments (user_id, product_id, content, rating)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	listCommentsSQL = `SELECT id, user_id, product_id, content, rating, created_at
		FROM comments
		WHERE product_id = $1
		ORDER BY created_at DESC, id DESC`

	unlikeSQL = `DELETE FROM likes WHERE user_id = $1 AND product_id = $2`

	likeSQL = `INSERT INTO likes (user_id, product_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, product_id) DO NOTHING`

	countLikesSQL = `SELECT count(*) FROM likes WHERE product_id = $1`
)

var _ engagement.Repository = (*EngagementRepository)(nil)

// EngagementRepository implements engagement.Repository backed by PostgreSQL.
type EngagementRepository struct {
	pool *pgxpool.Pool
}

// NewEngagementRepository returns an EngagementRepository that uses the
// given pool.
func NewEngagementRepository(pool *pgxpool.Pool) *EngagementRepository {
	return &EngagementRepository{pool: pool}
}

// AddToWishlist saves the product for the user; a duplicate add is a no-op.
func (r *EngagementRepository) AddToWishlist(ctx context.Context, userID, productID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, addWishlistSQL, userID, productID)
	if err != nil {
		return false, fmt.Errorf("adding product %q to wishlist: %w", productID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// RemoveFromWishlist deletes the user's wishlist entry for the product.
func (r *EngagementRepository) RemoveFromWishlist(ctx context.Context, userID, productID string) error {
	tag, err := r.pool.Exec(ctx, removeWishlistSQL, userID, productID)
	if err != nil {
		return fmt.Errorf("removing product %q from wishlist: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return engagement.ErrNotInWishlist
	}
	return nil
}

// Wishlist lists the user's saved products with their catalog entries,
// newest first.
func (r *EngagementRepository) Wishlist(ctx context.Context, userID string) ([]engagement.WishlistItem, error) {
	rows, err := r.pool.Query(ctx, listWishlistSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing wishlist: %w", err)
	}
	defer rows.Close()

	var items []engagement.WishlistItem
	for rows.Next() {
		var item engagement.WishlistItem
		p := &item.Product
		err := rows.Scan(
			&p.ID, &p.Name, &p.Description, &p.Price, &p.DiscountedPrice,
			&p.Category, &p.ImageURL, &p.Active, &item.AddedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning wishlist item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// AddComment stores the comment and fills in its generated ID and CreatedAt.
func (r *EngagementRepository) AddComment(ctx context.Context, c *engagement.Comment) error {
	err := r.pool.QueryRow(ctx, addCommentSQL, c.UserID, c.ProductID, c.Content, c.Rating).
		Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("adding comment on product %q: %w", c.ProductID, err)
	}
	return nil
}

// CommentsByProduct lists a product's comments, newest first.
func (r *EngagementRepository) CommentsByProduct(ctx context.Context, productID string) ([]engagement.Comment, error) {
	rows, err := r.pool.Query(ctx, listCommentsSQL, productID)
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}
	defer rows.Close()

	var comments []engagement.Comment
	for rows.Next() {
		var c engagement.Comment
		if err := rows.Scan(&c.ID, &c.UserID, &c.ProductID, &c.Content, &c.Rating, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// ToggleLike removes the user's like when one exists, otherwise records it,
// and returns the new state with the product's total like count.
func (r *EngagementRepository) ToggleLike(ctx context.Context, userID, productID string) (bool, int, error) {
	liked := false

	tag, err := r.pool.Exec(ctx, unlikeSQL, userID, productID)
	if err != nil {
		return false, 0, fmt.Errorf("removing like on product %q: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		// Nothing to remove: this toggle turns the like on. A concurrent
		// duplicate insert is absorbed by the conflict clause.
		if _, err := r.pool.Exec(ctx, likeSQL, userID, productID); err != nil {
			return false, 0, fmt.Errorf("liking product %q: %w", productID, err)
		}
		liked = true
	}

	count, err := r.LikeCount(ctx, productID)
	if err != nil {
		return false, 0, err
	}
	return liked, count, nil
}

// LikeCount returns how many users like the product.
func (r *EngagementRepository) LikeCount(ctx context.Context, productID string) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, countLikesSQL, productID).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting likes on product %q: %w", productID, err)
	}
	return count, nil
}
