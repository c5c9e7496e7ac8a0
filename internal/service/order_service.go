package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"juya-shop/internal/domain"
	"juya-shop/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrInvalidOrderStatus = errors.New("invalid order status")
)

// ShippingDetails carries the contact fields captured at checkout.
type ShippingDetails struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   string
	Comment   string
}

// OrderService defines the interface for order business logic
type OrderService interface {
	Checkout(ctx context.Context, userID uuid.UUID, details ShippingDetails) (*domain.Order, error)
	ListOrders(ctx context.Context, userID uuid.UUID, isAdmin bool) ([]*domain.Order, error)
	GetOrder(ctx context.Context, id, userID uuid.UUID, isAdmin bool) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) error
}

type orderService struct {
	orderRepo repository.OrderRepository
	cartRepo  repository.CartRepository
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(orderRepo repository.OrderRepository, cartRepo repository.CartRepository) OrderService {
	return &orderService{
		orderRepo: orderRepo,
		cartRepo:  cartRepo,
	}
}

// Checkout converts the user's cart into an order. Line prices and the
// total are captured from current product prices at this moment and frozen
// on the order. The write itself (order, items, stock decrements, cart
// clear) is one atomic unit in the repository; the per-line pre-check here
// exists to reject a doomed checkout before any write and to name the
// offending product, but the transaction's conditional decrements are what
// actually prevent overselling.
func (s *orderService) Checkout(ctx context.Context, userID uuid.UUID, details ShippingDetails) (*domain.Order, error) {
	items, err := s.cartRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart for checkout: %w", err)
	}

	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	now := time.Now()
	order := &domain.Order{
		ID:        uuid.New(),
		UserID:    userID,
		Status:    domain.OrderStatusPending,
		FirstName: details.FirstName,
		LastName:  details.LastName,
		Email:     details.Email,
		Phone:     details.Phone,
		Address:   details.Address,
		Comment:   details.Comment,
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, item := range items {
		if item.Quantity > item.Product.Stock {
			return nil, &repository.InsufficientStockError{
				ProductID:   item.ProductID,
				ProductName: item.Product.Name,
				Requested:   item.Quantity,
				Available:   item.Product.Stock,
			}
		}

		order.Items = append(order.Items, &domain.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Product.Price,
			CreatedAt: now,
		})
		order.Total += item.Product.Price * float64(item.Quantity)
	}

	if err := s.orderRepo.CreateFromCart(ctx, order); err != nil {
		return nil, err
	}

	return s.orderRepo.FindByID(ctx, order.ID)
}

// ListOrders returns the user's orders, or every order for admins.
func (s *orderService) ListOrders(ctx context.Context, userID uuid.UUID, isAdmin bool) ([]*domain.Order, error) {
	if isAdmin {
		return s.orderRepo.FindAll(ctx)
	}
	return s.orderRepo.FindByUser(ctx, userID)
}

// GetOrder returns one order. Non-admins only see their own orders; a
// foreign order reads as not found rather than forbidden.
func (s *orderService) GetOrder(ctx context.Context, id, userID uuid.UUID, isAdmin bool) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !isAdmin && order.UserID != userID {
		return nil, repository.ErrOrderNotFound
	}

	return order, nil
}

// UpdateStatus sets an order's status to any of the enumerated values.
// There is no transition graph.
func (s *orderService) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidOrderStatus
	}

	if err := s.orderRepo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}

	return s.orderRepo.FindByID(ctx, id)
}

// DeleteOrder removes an order entirely. Admin-only at the transport layer.
func (s *orderService) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	return s.orderRepo.Delete(ctx, id)
}
