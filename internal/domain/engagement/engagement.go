// Package engagement covers the social surface of the catalog: wishlists,
// product comments with optional ratings, and likes.
package engagement

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/shopsphere/storefront/internal/domain/product"
)

var (
	// ErrNotInWishlist is returned when removing a product the user never
	// wishlisted.
	ErrNotInWishlist = errors.New("product not in wishlist")

	// ErrEmptyComment is returned when a comment has no content.
	ErrEmptyComment = errors.New("comment content is empty")

	// ErrInvalidRating is returned when a comment rating falls outside 1-5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)

// WishlistItem is a product a user saved for later, with the catalog entry
// resolved so listings need no second lookup.
type WishlistItem struct {
	Product product.Product
	AddedAt time.Time
}

// Comment is a shopper's review of a product. Rating is optional; when set
// it is a 1-5 star score.
type Comment struct {
	ID        int64
	UserID    string
	ProductID string
	Content   string
	Rating    *int
	CreatedAt time.Time
}

// Validate normalizes the comment and rejects empty content or an
// out-of-range rating.
func (c *Comment) Validate() error {
	c.Content = strings.TrimSpace(c.Content)
	if c.Content == "" {
		return ErrEmptyComment
	}
	if c.Rating != nil && (*c.Rating < 1 || *c.Rating > 5) {
		return ErrInvalidRating
	}
	return nil
}

// Repository persists wishlist entries, comments, and likes.
type Repository interface {
	// AddToWishlist saves the product for the user. Adding a product that
	// is already wishlisted is a no-op; added reports whether a new entry
	// was created.
	AddToWishlist(ctx context.Context, userID, productID string) (added bool, err error)

	// RemoveFromWishlist deletes the entry, returning ErrNotInWishlist
	// when there is nothing to remove.
	RemoveFromWishlist(ctx context.Context, userID, productID string) error

	// Wishlist lists the user's saved products, newest first.
	Wishlist(ctx context.Context, userID string) ([]WishlistItem, error)

	// AddComment stores a validated comment and fills in its ID and
	// CreatedAt.
	AddComment(ctx context.Context, c *Comment) error

	// CommentsByProduct lists a product's comments, newest first.
	CommentsByProduct(ctx context.Context, productID string) ([]Comment, error)

	// ToggleLike flips the user's like on the product and returns the new
	// state plus the product's total like count.
	ToggleLike(ctx context.Context, userID, productID string) (liked bool, count int, err error)

	// LikeCount returns how many users like the product.
	LikeCount(ctx context.Context, productID string) (int, error)
}
