//go:build integration

package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopsphere/storefront/internal/domain/engagement"
	"github.com/shopsphere/storefront/internal/repository"
)

func TestWishlist_AddIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := seed(t, 1, 0)
	social := repository.NewEngagementRepository(pool)

	added, err := social.AddToWishlist(ctx, f.userID, f.productID)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = social.AddToWishlist(ctx, f.userID, f.productID)
	require.NoError(t, err)
	assert.False(t, added, "second add must be a no-op")

	items, err := social.Wishlist(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, f.productID, items[0].Product.ID)
	assert.Equal(t, "Test Tee", items[0].Product.Name)

	require.NoError(t, social.RemoveFromWishlist(ctx, f.userID, f.productID))
	assert.ErrorIs(t, social.RemoveFromWishlist(ctx, f.userID, f.productID), engagement.ErrNotInWishlist)
}

func TestToggleLike_FlipsState(t *testing.T) {
	ctx := context.Background()
	f := seed(t, 1, 0)
	social := repository.NewEngagementRepository(pool)

	liked, count, err := social.ToggleLike(ctx, f.userID, f.productID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, 1, count)

	liked, count, err = social.ToggleLike(ctx, f.userID, f.productID)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Equal(t, 0, count)
}

func TestComments_NewestFirst(t *testing.T) {
	ctx := context.Background()
	f := seed(t, 1, 0)
	social := repository.NewEngagementRepository(pool)

	rating := 4
	first := &engagement.Comment{UserID: f.userID, ProductID: f.productID, Content: "great fit", Rating: &rating}
	require.NoError(t, social.AddComment(ctx, first))
	require.NotZero(t, first.ID)
	require.False(t, first.CreatedAt.IsZero())

	second := &engagement.Comment{UserID: f.userID, ProductID: f.productID, Content: "runs small"}
	require.NoError(t, social.AddComment(ctx, second))

	comments, err := social.CommentsByProduct(ctx, f.productID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "runs small", comments[0].Content)
	assert.Nil(t, comments[0].Rating)
	require.NotNil(t, comments[1].Rating)
	assert.Equal(t, 4, *comments[1].Rating)
}
