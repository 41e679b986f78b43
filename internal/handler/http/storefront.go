package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/pagination"
	"github.com/utafrali/storefront/pkg/validator"
)

// StorefrontHandler serves the cart and wishlist endpoints.
type StorefrontHandler struct {
	service *service.StorefrontService
	logger  *slog.Logger
}

// NewStorefrontHandler creates a new storefront HTTP handler.
func NewStorefrontHandler(svc *service.StorefrontService, logger *slog.Logger) *StorefrontHandler {
	return &StorefrontHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// UpdateQuantityRequest is the body of PATCH /cart/items/{productId}.
type UpdateQuantityRequest struct {
	SelectedSize *string `json:"selected_size" validate:"omitempty,max=50"`
	Delta        int     `json:"delta"`
}

// UpdateSizeRequest is the body of PUT /wishlist/items/{productId}/size. A
// null size clears the preference.
type UpdateSizeRequest struct {
	SelectedSize *string `json:"selected_size" validate:"omitempty,max=50"`
}

// ExistsResponse answers GET /wishlist/items/{productId}.
type ExistsResponse struct {
	ProductID domain.ProductID `json:"product_id"`
	Exists    bool             `json:"exists"`
}

// --- Cart ---

// GetCart handles GET /api/v1/storefront/cart
func (h *StorefrontHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Cart(r.Context(), sessionID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}

// AddToCart handles POST /api/v1/storefront/cart/items
func (h *StorefrontHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req service.AddToCartInput
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	view, err := h.service.AddToCart(r.Context(), sessionID(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}

// UpdateCartQuantity handles PATCH /api/v1/storefront/cart/items/{productId}
func (h *StorefrontHandler) UpdateCartQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	view, err := h.service.UpdateCartQuantity(r.Context(), sessionID(r), productID(r), req.SelectedSize, req.Delta)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}

// RemoveFromCart handles DELETE /api/v1/storefront/cart/items/{productId}.
// Without a size query parameter the line without a size is removed.
func (h *StorefrontHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	var size *string
	if q := r.URL.Query(); q.Has("size") {
		size = domain.Size(q.Get("size"))
	}

	view, err := h.service.RemoveFromCart(r.Context(), sessionID(r), productID(r), size)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}

// ClearCart handles DELETE /api/v1/storefront/cart
func (h *StorefrontHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.ClearCart(r.Context(), sessionID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}

// --- Wishlist ---

// GetWishlist handles GET /api/v1/storefront/wishlist
func (h *StorefrontHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.Wishlist(r.Context(), sessionID(r), pagination.FromRequest(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, page)
}

// AddToWishlist handles POST /api/v1/storefront/wishlist/items. It answers
// 201 when the product was saved and 200 when it already was.
func (h *StorefrontHandler) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	var req service.AddToWishlistInput
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	view, added, err := h.service.AddToWishlist(r.Context(), sessionID(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	httputil.WriteData(w, status, view)
}

// IsInWishlist handles GET /api/v1/storefront/wishlist/items/{productId}
func (h *StorefrontHandler) IsInWishlist(w http.ResponseWriter, r *http.Request) {
	id := productID(r)
	exists, err := h.service.IsInWishlist(r.Context(), sessionID(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, ExistsResponse{ProductID: id, Exists: exists})
}

// RemoveFromWishlist handles DELETE /api/v1/storefront/wishlist/items/{productId}
func (h *StorefrontHandler) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	view, _, err := h.service.RemoveFromWishlist(r.Context(), sessionID(r), productID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}

// UpdateWishlistItemSize handles PUT /api/v1/storefront/wishlist/items/{productId}/size
func (h *StorefrontHandler) UpdateWishlistItemSize(w http.ResponseWriter, r *http.Request) {
	var req UpdateSizeRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	view, _, err := h.service.UpdateWishlistItemSize(r.Context(), sessionID(r), productID(r), req.SelectedSize)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}

// --- helpers ---

func (h *StorefrontHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		httputil.WriteValidationError(w, r, err)
		return
	}
	httputil.WriteError(w, r, err, h.logger)
}

func sessionID(r *http.Request) string {
	return middleware.SessionIDFromContext(r.Context())
}

func productID(r *http.Request) domain.ProductID {
	return domain.ProductID(chi.URLParam(r, "productId"))
}
