package api

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/shopsphere/storefront/internal/domain/product"
)

type productResponse struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Description     string   `json:"description,omitempty"`
	Price           float64  `json:"price"`
	DiscountedPrice *float64 `json:"discounted_price,omitempty"`
	EffectivePrice  float64  `json:"effective_price"`
	Category        string   `json:"category,omitempty"`
	ImageURL        string   `json:"image_url,omitempty"`
}

type stockResponse struct {
	Size     string `json:"size"`
	Quantity int    `json:"quantity"`
}

type productDetailResponse struct {
	productResponse
	Stock      []stockResponse `json:"stock"`
	LikesCount int             `json:"likes_count"`
}

func toProductResponse(p product.Product) productResponse {
	resp := productResponse{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		Price:          p.Price.InexactFloat64(),
		EffectivePrice: p.EffectivePrice().InexactFloat64(),
		Category:       p.Category,
		ImageURL:       p.ImageURL,
	}
	if p.DiscountedPrice != nil {
		v := p.DiscountedPrice.InexactFloat64()
		resp.DiscountedPrice = &v
	}
	return resp
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, r, errors.Wrap(err, "list products"))
		return
	}

	out := make([]productResponse, len(products))
	for i, p := range products {
		out[i] = toProductResponse(p)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.products.Categories(r.Context())
	if err != nil {
		writeError(w, r, errors.Wrap(err, "list categories"))
		return
	}
	if categories == nil {
		categories = []string{}
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	levels, err := h.stock.LevelsByProduct(r.Context(), id)
	if err != nil {
		writeError(w, r, errors.Wrap(err, "get stock levels"))
		return
	}

	likes, err := h.engagement.LikeCount(r.Context(), id)
	if err != nil {
		writeError(w, r, errors.Wrap(err, "count likes"))
		return
	}

	resp := productDetailResponse{
		productResponse: toProductResponse(*p),
		Stock:           make([]stockResponse, len(levels)),
		LikesCount:      likes,
	}
	for i, l := range levels {
		resp.Stock[i] = stockResponse{Size: l.Size, Quantity: l.Quantity}
	}
	writeJSON(w, http.StatusOK, resp)
}
