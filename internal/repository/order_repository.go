package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"juya-shop/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound = errors.New("order not found")
)

// OrderRepository defines the interface for order data access.
//
// CreateFromCart is the one multi-row atomic unit in the system: the order
// row, its items, every stock decrement and the cart clear either all
// commit or none do.
type OrderRepository interface {
	CreateFromCart(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
	FindAll(ctx context.Context) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

// CreateFromCart persists an order with its items, decrements stock for
// every line and clears the owner's cart, all inside one transaction.
// Each decrement is a conditional update; if any product cannot cover its
// line the whole transaction rolls back and an InsufficientStockError
// naming that product is returned.
func (r *orderRepository) CreateFromCart(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	orderQuery := `
		INSERT INTO orders (id, user_id, total, status, first_name, last_name, email, phone, address, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = tx.ExecContext(
		ctx,
		orderQuery,
		order.ID,
		order.UserID,
		order.Total,
		order.Status,
		order.FirstName,
		order.LastName,
		order.Email,
		order.Phone,
		order.Address,
		order.Comment,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, quantity, price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	decrementQuery := `
		UPDATE products
		SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2
	`

	for _, item := range order.Items {
		_, err = tx.ExecContext(ctx, itemQuery, item.ID, item.OrderID, item.ProductID, item.Quantity, item.Price, item.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}

		result, err := tx.ExecContext(ctx, decrementQuery, item.ProductID, item.Quantity)
		if err != nil {
			return fmt.Errorf("failed to decrement stock: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return r.decrementFailure(ctx, tx, item)
		}
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, order.UserID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}

	return nil
}

// FindByID retrieves an order with its items and product details joined in.
func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `
		SELECT id, user_id, total, status, first_name, last_name, email, phone, address, comment, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	order := &domain.Order{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&order.ID,
		&order.UserID,
		&order.Total,
		&order.Status,
		&order.FirstName,
		&order.LastName,
		&order.Email,
		&order.Phone,
		&order.Address,
		&order.Comment,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}

	if err := r.attachItems(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}

	return order, nil
}

// FindByUser retrieves a user's orders, newest first.
func (r *orderRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	return r.list(ctx, "WHERE user_id = $1", userID)
}

// FindAll retrieves every order, newest first.
func (r *orderRepository) FindAll(ctx context.Context) ([]*domain.Order, error) {
	return r.list(ctx, "")
}

func (r *orderRepository) list(ctx context.Context, whereClause string, args ...interface{}) ([]*domain.Order, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, total, status, first_name, last_name, email, phone, address, comment, created_at, updated_at
		FROM orders
		%s
		ORDER BY created_at DESC
	`, whereClause)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order := &domain.Order{}
		err := rows.Scan(
			&order.ID,
			&order.UserID,
			&order.Total,
			&order.Status,
			&order.FirstName,
			&order.LastName,
			&order.Email,
			&order.Phone,
			&order.Address,
			&order.Comment,
			&order.CreatedAt,
			&order.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

// attachItems loads the items for the given orders in one query and
// attaches them, preserving item insertion order.
func (r *orderRepository) attachItems(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*domain.Order, len(orders))
	placeholders := make([]string, len(orders))
	args := make([]interface{}, len(orders))
	for i, order := range orders {
		order.Items = []*domain.OrderItem{}
		byID[order.ID] = order
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = order.ID
	}

	query := fmt.Sprintf(`
		SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.price, oi.created_at,
		       p.id, p.name, p.description, p.price, p.category_id, p.image_url, p.stock, p.active, p.created_at, p.updated_at
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id IN (%s)
		ORDER BY oi.created_at ASC
	`, strings.Join(placeholders, ", "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item := &domain.OrderItem{Product: &domain.Product{}}
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Quantity,
			&item.Price,
			&item.CreatedAt,
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
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if order, ok := byID[item.OrderID]; ok {
			order.Items = append(order.Items, item)
		}
	}

	if err = rows.Err(); err != nil {
		return fmt.Errorf("error iterating order items: %w", err)
	}

	return nil
}

// UpdateStatus sets an order's status. Any of the enumerated values is
// accepted for any existing order.
func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error {
	query := `
		UPDATE orders
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrOrderNotFound
	}

	return nil
}

// Delete removes an order; its items go with it via ON DELETE CASCADE.
func (r *orderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM orders WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrOrderNotFound
	}

	return nil
}

// decrementFailure reports why a checkout decrement matched no rows.
func (r *orderRepository) decrementFailure(ctx context.Context, tx *sql.Tx, item *domain.OrderItem) error {
	var name string
	var stock int
	err := tx.QueryRowContext(ctx, `SELECT name, stock FROM products WHERE id = $1`, item.ProductID).Scan(&name, &stock)
	if err != nil {
		return ErrProductNotFound
	}
	return &InsufficientStockError{
		ProductID:   item.ProductID,
		ProductName: name,
		Requested:   item.Quantity,
		Available:   stock,
	}
}
