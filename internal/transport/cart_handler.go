package transport

import (
	"net/http"

	"juya-shop/internal/domain"
	"juya-shop/internal/middleware"
	"juya-shop/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AddToCartRequest represents the add-to-cart request payload
type AddToCartRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// UpdateCartItemRequest represents the quantity update payload. The
// quantity is a pointer so an explicit zero (which removes the line) is
// distinguishable from a missing field.
type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// CartHandler handles HTTP requests for cart operations
type CartHandler struct {
	cartService service.CartService
	logger      *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		logger:      logger,
	}
}

// RegisterRoutes registers all cart routes. Every route requires auth.
func (h *CartHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.GetCart)
		r.Post("/", h.AddItem)
		r.Delete("/", h.Clear)
		r.Post("/sync", h.Sync)
		r.Patch("/{id}", h.UpdateQuantity)
		r.Delete("/{id}", h.RemoveItem)
	})
}

// GetCart returns the user's cart with the total computed from current
// product prices.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, _, err := requestUser(r)
	if err != nil {
		h.logger.Error("Failed to resolve user from context", zap.Error(err))
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	cart, err := h.cartService.GetCart(r.Context(), userID)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to get cart")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, cart)
}

// AddItem adds a product to the cart, merging quantities if the product is
// already in it.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, _, err := requestUser(r)
	if err != nil {
		h.logger.Error("Failed to resolve user from context", zap.Error(err))
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req AddToCartRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondDecodeError(w, h.logger, err)
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	item, err := h.cartService.AddItem(r.Context(), userID, productID, req.Quantity)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to add item to cart")
		return
	}

	h.logger.Info("Item added to cart",
		zap.String("user_id", userID.String()),
		zap.String("product_id", productID.String()),
		zap.Int("quantity", req.Quantity),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, item)
}

// UpdateQuantity overwrites a cart line's quantity. Zero removes the line.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	userID, _, err := requestUser(r)
	if err != nil {
		h.logger.Error("Failed to resolve user from context", zap.Error(err))
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	lineID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid cart item ID")
		return
	}

	var req UpdateCartItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondDecodeError(w, h.logger, err)
		return
	}

	item, err := h.cartService.UpdateQuantity(r.Context(), userID, lineID, *req.Quantity)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to update cart item")
		return
	}

	if item == nil {
		// Zero quantity removed the line.
		middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "item removed from cart"})
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, item)
}

// RemoveItem deletes a cart line.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, _, err := requestUser(r)
	if err != nil {
		h.logger.Error("Failed to resolve user from context", zap.Error(err))
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	lineID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid cart item ID")
		return
	}

	if err := h.cartService.RemoveItem(r.Context(), userID, lineID); err != nil {
		respondServiceError(w, h.logger, err, "failed to remove cart item")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "item removed from cart"})
}

// Clear empties the user's cart. Clearing an already-empty cart succeeds.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	userID, _, err := requestUser(r)
	if err != nil {
		h.logger.Error("Failed to resolve user from context", zap.Error(err))
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.cartService.Clear(r.Context(), userID); err != nil {
		respondServiceError(w, h.logger, err, "failed to clear cart")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "cart cleared"})
}

// Sync merges a client-local cart into the server cart and returns the
// merged cart plus a per-line account of what happened.
func (h *CartHandler) Sync(w http.ResponseWriter, r *http.Request) {
	userID, _, err := requestUser(r)
	if err != nil {
		h.logger.Error("Failed to resolve user from context", zap.Error(err))
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var local domain.LocalCart
	if err := middleware.DecodeAndValidate(r, &local); err != nil {
		respondDecodeError(w, h.logger, err)
		return
	}

	result, err := h.cartService.MergeLocalCart(r.Context(), userID, &local)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to sync cart")
		return
	}

	h.logger.Info("Local cart synced",
		zap.String("user_id", userID.String()),
		zap.Int("lines", len(result.Lines)),
		zap.Bool("local_discarded", result.LocalDiscarded),
	)
	middleware.RespondWithJSON(w, http.StatusOK, result)
}
