package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"juya-shop/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrCartItemNotFound = errors.New("cart item not found")
)

// CartRepository defines the interface for cart data access. The add and
// update mutations carry their stock check inside the mutating statement:
// a line is only written when the products row satisfies the guard at the
// moment the statement executes, so no read-then-write window exists within
// a single mutation.
type CartRepository interface {
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*domain.CartItem, error)
	FindLine(ctx context.Context, userID, lineID uuid.UUID) (*domain.CartItem, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.CartItem, error)
	UpdateQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int) (*domain.CartItem, error)
	RemoveItem(ctx context.Context, userID, lineID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository creates a new instance of CartRepository
func NewCartRepository(db *sql.DB) CartRepository {
	return &cartRepository{db: db}
}

const cartItemColumns = `
	ci.id, ci.user_id, ci.product_id, ci.quantity, ci.created_at, ci.updated_at,
	p.id, p.name, p.description, p.price, p.category_id, p.image_url, p.stock, p.active, p.created_at, p.updated_at
`

func scanCartItem(row interface{ Scan(...interface{}) error }) (*domain.CartItem, error) {
	item := &domain.CartItem{Origin: domain.LineOriginServer, Product: &domain.Product{}}
	err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.ProductID,
		&item.Quantity,
		&item.CreatedAt,
		&item.UpdatedAt,
		&item.Product.ID,
		&item.Product.Name,
		&item.Product.Description,
		&item.Product.Price,
		&item.Product.CategoryID,
		&item.Product.ImageURL,
		&item.Product.Stock,
		&item.Product.Active,
		&item.Product.CreatedAt,
		&item.Product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// FindByUser retrieves all cart lines for a user with their current product
// state joined in. Returns an empty slice for a user with no cart lines.
func (r *cartRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]*domain.CartItem, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1
		ORDER BY ci.created_at ASC
	`, cartItemColumns)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find cart items: %w", err)
	}
	defer rows.Close()

	items := []*domain.CartItem{}
	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return items, nil
}

// FindLine retrieves one cart line scoped to its owner.
func (r *cartRepository) FindLine(ctx context.Context, userID, lineID uuid.UUID) (*domain.CartItem, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.id = $1 AND ci.user_id = $2
	`, cartItemColumns)

	item, err := scanCartItem(r.db.QueryRowContext(ctx, query, lineID, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("failed to find cart item: %w", err)
	}

	return item, nil
}

// AddItem adds quantity of a product to the user's cart. An existing line
// for the same product is merged (quantity added, not replaced) and the
// stock guard is evaluated against the merged quantity.
func (r *cartRepository) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.CartItem, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()

	// Merge into an existing line. The guard compares stock against the
	// merged quantity in the same statement.
	mergeQuery := `
		UPDATE cart_items ci
		SET quantity = ci.quantity + $3, updated_at = $4
		FROM products p
		WHERE ci.user_id = $1 AND ci.product_id = $2
		  AND p.id = ci.product_id AND p.stock >= ci.quantity + $3
	`
	result, err := tx.ExecContext(ctx, mergeQuery, userID, productID, quantity, now)
	if err != nil {
		return nil, fmt.Errorf("failed to merge cart item: %w", err)
	}
	merged, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if merged == 0 {
		var existing int
		err = tx.QueryRowContext(ctx,
			`SELECT quantity FROM cart_items WHERE user_id = $1 AND product_id = $2`,
			userID, productID,
		).Scan(&existing)

		switch {
		case err == nil:
			// Line exists, so the merge guard failed on stock.
			return nil, r.stockError(ctx, tx, productID, existing+quantity)
		case err == sql.ErrNoRows:
			// No line yet: guarded insert against current stock.
			insertQuery := `
				INSERT INTO cart_items (id, user_id, product_id, quantity, created_at, updated_at)
				SELECT $1, $2, $3, $4, $5, $5
				FROM products
				WHERE id = $3 AND stock >= $4
			`
			result, err = tx.ExecContext(ctx, insertQuery, uuid.New(), userID, productID, quantity, now)
			if err != nil {
				return nil, fmt.Errorf("failed to insert cart item: %w", err)
			}
			inserted, err := result.RowsAffected()
			if err != nil {
				return nil, fmt.Errorf("failed to get rows affected: %w", err)
			}
			if inserted == 0 {
				return nil, r.stockError(ctx, tx, productID, quantity)
			}
		default:
			return nil, fmt.Errorf("failed to check existing cart item: %w", err)
		}
	}

	item, err := r.findLineByProduct(ctx, tx, userID, productID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit cart add: %w", err)
	}

	return item, nil
}

// UpdateQuantity overwrites a line's quantity, guarded against current
// stock. Quantities <= 0 are the service's concern and never reach here.
func (r *cartRepository) UpdateQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int) (*domain.CartItem, error) {
	query := `
		UPDATE cart_items ci
		SET quantity = $3, updated_at = $4
		FROM products p
		WHERE ci.id = $1 AND ci.user_id = $2
		  AND p.id = ci.product_id AND p.stock >= $3
	`

	result, err := r.db.ExecContext(ctx, query, lineID, userID, quantity, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to update cart item quantity: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		item, findErr := r.FindLine(ctx, userID, lineID)
		if findErr != nil {
			return nil, ErrCartItemNotFound
		}
		return nil, &InsufficientStockError{
			ProductID:   item.ProductID,
			ProductName: item.Product.Name,
			Requested:   quantity,
			Available:   item.Product.Stock,
		}
	}

	return r.FindLine(ctx, userID, lineID)
}

// RemoveItem deletes a line scoped to its owner.
func (r *cartRepository) RemoveItem(ctx context.Context, userID, lineID uuid.UUID) error {
	query := `DELETE FROM cart_items WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, lineID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrCartItemNotFound
	}

	return nil
}

// Clear deletes every line of the user's cart. Idempotent.
func (r *cartRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	query := `DELETE FROM cart_items WHERE user_id = $1`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	return nil
}

func (r *cartRepository) findLineByProduct(ctx context.Context, tx *sql.Tx, userID, productID uuid.UUID) (*domain.CartItem, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1 AND ci.product_id = $2
	`, cartItemColumns)

	item, err := scanCartItem(tx.QueryRowContext(ctx, query, userID, productID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("failed to read back cart item: %w", err)
	}

	return item, nil
}

// stockError reports why a guarded cart statement matched no rows: a
// missing product or a failed stock comparison.
func (r *cartRepository) stockError(ctx context.Context, tx *sql.Tx, productID uuid.UUID, requested int) error {
	var name string
	var stock int
	err := tx.QueryRowContext(ctx, `SELECT name, stock FROM products WHERE id = $1`, productID).Scan(&name, &stock)
	if err != nil {
		return ErrProductNotFound
	}
	return &InsufficientStockError{
		ProductID:   productID,
		ProductName: name,
		Requested:   requested,
		Available:   stock,
	}
}
