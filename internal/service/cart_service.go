package service

import (
	"context"
	"errors"
	"fmt"

	"juya-shop/internal/domain"
	"juya-shop/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
)

// MergeLineResult records the outcome of merging one local cart line.
type MergeLineResult struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Merged    bool      `json:"merged"`
	Reason    string    `json:"reason,omitempty"`
}

// MergeResult is the observable outcome of a local-cart reconciliation.
// LocalDiscarded tells the client whether its local copy is now obsolete;
// it is false only when the server cart could not be fetched at all, in
// which case Cart holds the local lines reinterpreted as the cart.
type MergeResult struct {
	Cart           *domain.Cart      `json:"cart"`
	Lines          []MergeLineResult `json:"lines"`
	LocalDiscarded bool              `json:"local_discarded"`
}

// CartService defines the interface for cart business logic
type CartService interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.CartItem, error)
	UpdateQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int) (*domain.CartItem, error)
	RemoveItem(ctx context.Context, userID, lineID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
	MergeLocalCart(ctx context.Context, userID uuid.UUID, local *domain.LocalCart) (*MergeResult, error)
}

type cartService struct {
	cartRepo repository.CartRepository
	logger   *zap.Logger
}

// NewCartService creates a new instance of CartService
func NewCartService(cartRepo repository.CartRepository, logger *zap.Logger) CartService {
	return &cartService{
		cartRepo: cartRepo,
		logger:   logger,
	}
}

// GetCart returns the user's cart lines with the total computed from
// current product prices. Never fails for a valid user; an empty cart is
// a cart with no lines and a zero total.
func (s *cartService) GetCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	items, err := s.cartRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return &domain.Cart{
		Items: items,
		Total: domain.ComputeTotal(items),
	}, nil
}

// AddItem adds quantity of a product to the cart. Stock is checked but not
// reserved; the decrement happens at checkout.
func (s *cartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.CartItem, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	return s.cartRepo.AddItem(ctx, userID, productID, quantity)
}

// UpdateQuantity overwrites a line's quantity. A quantity of zero or less
// removes the line; removing an already-removed line this way is not an
// error, so repeated zero updates converge on the same empty state.
func (s *cartService) UpdateQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int) (*domain.CartItem, error) {
	if quantity <= 0 {
		err := s.cartRepo.RemoveItem(ctx, userID, lineID)
		if err != nil && !errors.Is(err, repository.ErrCartItemNotFound) {
			return nil, err
		}
		return nil, nil
	}

	return s.cartRepo.UpdateQuantity(ctx, userID, lineID, quantity)
}

// RemoveItem deletes a line. Unlike a zero-quantity update, an explicit
// removal of a missing or foreign line reports not found.
func (s *cartService) RemoveItem(ctx context.Context, userID, lineID uuid.UUID) error {
	return s.cartRepo.RemoveItem(ctx, userID, lineID)
}

// Clear deletes all lines of the user's cart. Idempotent.
func (s *cartService) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.cartRepo.Clear(ctx, userID)
}

// MergeLocalCart merges a client-local cart into the user's server cart.
// The merge is best-effort per line: a line that cannot be merged (stock
// exhausted, product removed) is recorded in the result and skipped, and
// the local cart is still considered consumed. Only a total failure to
// fetch the server cart preserves the local copy for a later retry, in
// which case the local lines are returned as the cart the client should
// keep showing.
func (s *cartService) MergeLocalCart(ctx context.Context, userID uuid.UUID, local *domain.LocalCart) (*MergeResult, error) {
	if err := local.Validate(); err != nil {
		return nil, err
	}

	serverItems, err := s.cartRepo.FindByUser(ctx, userID)
	if err != nil {
		s.logger.Warn("Cart merge fell back to local cart: server cart unavailable",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		items := local.AsItems()
		return &MergeResult{
			Cart:           &domain.Cart{Items: items, Total: domain.ComputeTotal(items)},
			Lines:          []MergeLineResult{},
			LocalDiscarded: false,
		}, nil
	}

	serverByProduct := make(map[uuid.UUID]*domain.CartItem, len(serverItems))
	for _, item := range serverItems {
		serverByProduct[item.ProductID] = item
	}

	results := make([]MergeLineResult, 0, len(local.Items))
	for _, line := range local.Items {
		result := MergeLineResult{ProductID: line.ProductID, Quantity: line.Quantity}

		var mergeErr error
		if serverLine, ok := serverByProduct[line.ProductID]; ok {
			// Product already in the server cart: combine the quantities.
			_, mergeErr = s.cartRepo.UpdateQuantity(ctx, userID, serverLine.ID, serverLine.Quantity+line.Quantity)
		} else if line.Quantity <= 0 {
			mergeErr = ErrInvalidQuantity
		} else {
			_, mergeErr = s.cartRepo.AddItem(ctx, userID, line.ProductID, line.Quantity)
		}

		if mergeErr != nil {
			result.Reason = mergeErr.Error()
			s.logger.Info("Cart merge skipped line",
				zap.String("user_id", userID.String()),
				zap.String("product_id", line.ProductID.String()),
				zap.Int("quantity", line.Quantity),
				zap.Error(mergeErr),
			)
		} else {
			result.Merged = true
		}
		results = append(results, result)
	}

	// Re-fetch for the authoritative post-merge state.
	mergedItems, err := s.cartRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cart after merge: %w", err)
	}

	return &MergeResult{
		Cart:           &domain.Cart{Items: mergedItems, Total: domain.ComputeTotal(mergedItems)},
		Lines:          results,
		LocalDiscarded: true,
	}, nil
}
