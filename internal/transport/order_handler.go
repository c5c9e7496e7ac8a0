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

// CreateOrderRequest represents the checkout request payload
type CreateOrderRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required"`
	Address   string `json:"address" validate:"required"`
	Comment   string `json:"comment"`
}

// UpdateOrderStatusRequest represents the status update payload
type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// OrderHandler handles HTTP requests for order operations
type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// RegisterRoutes registers all order routes. Checkout and reads require
// auth; status updates and deletion are admin-only.
func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/", h.Checkout)
		r.Get("/", h.ListOrders)
		r.Get("/{id}", h.GetOrder)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(h.logger))
			r.Patch("/{id}/status", h.UpdateStatus)
			r.Delete("/{id}", h.DeleteOrder)
		})
	})
}

// Checkout converts the user's cart into an order.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, _, err := requestUser(r)
	if err != nil {
		h.logger.Error("Failed to resolve user from context", zap.Error(err))
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateOrderRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondDecodeError(w, h.logger, err)
		return
	}

	order, err := h.orderService.Checkout(r.Context(), userID, service.ShippingDetails{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Address:   req.Address,
		Comment:   req.Comment,
	})
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to create order")
		return
	}

	h.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", userID.String()),
		zap.Float64("total", order.Total),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, order)
}

// ListOrders returns the caller's orders, or all orders for admins.
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, isAdmin, err := requestUser(r)
	if err != nil {
		h.logger.Error("Failed to resolve user from context", zap.Error(err))
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orders, err := h.orderService.ListOrders(r.Context(), userID, isAdmin)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to list orders")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

// GetOrder returns one order. Non-admins only see their own.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, isAdmin, err := requestUser(r)
	if err != nil {
		h.logger.Error("Failed to resolve user from context", zap.Error(err))
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	order, err := h.orderService.GetOrder(r.Context(), orderID, userID, isAdmin)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to get order")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// UpdateStatus sets an order's status to any of the enumerated values.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req UpdateOrderStatusRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondDecodeError(w, h.logger, err)
		return
	}

	order, err := h.orderService.UpdateStatus(r.Context(), orderID, domain.OrderStatus(req.Status))
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to update order status")
		return
	}

	h.logger.Info("Order status updated",
		zap.String("order_id", order.ID.String()),
		zap.String("status", string(order.Status)),
	)
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// DeleteOrder removes an order entirely.
func (h *OrderHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	if err := h.orderService.DeleteOrder(r.Context(), orderID); err != nil {
		respondServiceError(w, h.logger, err, "failed to delete order")
		return
	}

	h.logger.Info("Order deleted", zap.String("order_id", orderID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "order deleted"})
}
