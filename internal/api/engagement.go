package api

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/shopsphere/storefront/internal/domain/engagement"
	"github.com/shopsphere/storefront/internal/domain/product"
)

type wishlistItemResponse struct {
	productResponse
	AddedAt time.Time `json:"added_at"`
}

type wishlistAddResponse struct {
	ProductID string `json:"product_id"`
	Added     bool   `json:"added"`
}

type commentResponse struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	Rating    *int      `json:"rating,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type addCommentRequest struct {
	Content string `json:"content"`
	Rating  *int   `json:"rating,omitempty"`
}

type likeResponse struct {
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likes_count"`
}

func toCommentResponse(c engagement.Comment) commentResponse {
	return commentResponse{
		ID:        c.ID,
		UserID:    c.UserID,
		Content:   c.Content,
		Rating:    c.Rating,
		CreatedAt: c.CreatedAt,
	}
}

func (h *Handler) getWishlist(w http.ResponseWriter, r *http.Request, userID string) {
	items, err := h.engagement.Wishlist(r.Context(), userID)
	if err != nil {
		writeError(w, r, errors.Wrap(err, "list wishlist"))
		return
	}

	out := make([]wishlistItemResponse, len(items))
	for i, item := range items {
		out[i] = wishlistItemResponse{
			productResponse: toProductResponse(item.Product),
			AddedAt:         item.AddedAt,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) addToWishlist(w http.ResponseWriter, r *http.Request, userID string) {
	productID := r.PathValue("productID")

	p, err := h.products.GetByID(r.Context(), productID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !p.Active {
		writeError(w, r, product.ErrNotFound)
		return
	}

	added, err := h.engagement.AddToWishlist(r.Context(), userID, productID)
	if err != nil {
		writeError(w, r, errors.Wrap(err, "add to wishlist"))
		return
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	writeJSON(w, status, wishlistAddResponse{ProductID: productID, Added: added})
}

func (h *Handler) removeFromWishlist(w http.ResponseWriter, r *http.Request, userID string) {
	if err := h.engagement.RemoveFromWishlist(r.Context(), userID, r.PathValue("productID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listComments(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("id")

	if _, err := h.products.GetByID(r.Context(), productID); err != nil {
		writeError(w, r, err)
		return
	}

	comments, err := h.engagement.CommentsByProduct(r.Context(), productID)
	if err != nil {
		writeError(w, r, errors.Wrap(err, "list comments"))
		return
	}

	out := make([]commentResponse, len(comments))
	for i, c := range comments {
		out[i] = toCommentResponse(c)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) addComment(w http.ResponseWriter, r *http.Request, userID string) {
	productID := r.PathValue("id")

	var req addCommentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if _, err := h.products.GetByID(r.Context(), productID); err != nil {
		writeError(w, r, err)
		return
	}

	c := engagement.Comment{
		UserID:    userID,
		ProductID: productID,
		Content:   req.Content,
		Rating:    req.Rating,
	}
	if err := c.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.engagement.AddComment(r.Context(), &c); err != nil {
		writeError(w, r, errors.Wrap(err, "add comment"))
		return
	}
	writeJSON(w, http.StatusCreated, toCommentResponse(c))
}

func (h *Handler) toggleLike(w http.ResponseWriter, r *http.Request, userID string) {
	productID := r.PathValue("id")

	if _, err := h.products.GetByID(r.Context(), productID); err != nil {
		writeError(w, r, err)
		return
	}

	liked, count, err := h.engagement.ToggleLike(r.Context(), userID, productID)
	if err != nil {
		writeError(w, r, errors.Wrap(err, "toggle like"))
		return
	}
	writeJSON(w, http.StatusOK, likeResponse{Liked: liked, LikesCount: count})
}
