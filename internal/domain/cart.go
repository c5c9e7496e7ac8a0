package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// LineOrigin says where a cart line lives. Server lines are backed by a
// database row; local lines come from the client's local storage blob and
// carry no database identity.
type LineOrigin string

const (
	LineOriginServer LineOrigin = "server"
	LineOriginLocal  LineOrigin = "local"
)

// LocalCartSchemaVersion is the only accepted version of the client blob.
const LocalCartSchemaVersion = 1

var ErrLocalCartVersion = errors.New("unsupported local cart schema version")

// CartItem represents one (user, product) line of a cart. For local-origin
// lines ID is the zero UUID and Product holds the display snapshot captured
// at add time, which may be stale relative to the catalog.
type CartItem struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	ProductID uuid.UUID  `json:"product_id"`
	Quantity  int        `json:"quantity"`
	Origin    LineOrigin `json:"origin"`
	Product   *Product   `json:"product,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Cart is a user's cart with its computed total. The total is always
// Σ(quantity × current product price); it is never persisted.
type Cart struct {
	Items []*CartItem `json:"items"`
	Total float64     `json:"total"`
}

// ComputeTotal sums quantity times product price over the given lines.
// Lines without a product snapshot contribute nothing.
func ComputeTotal(items []*CartItem) float64 {
	var total float64
	for _, item := range items {
		if item.Product != nil {
			total += item.Product.Price * float64(item.Quantity)
		}
	}
	return total
}

// LocalProductSnapshot is the denormalized product view stored alongside a
// local cart line for display while unauthenticated.
type LocalProductSnapshot struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Price float64   `json:"price"`
	Image string    `json:"image,omitempty"`
}

// LocalCartItem is one line of the client-local cart.
type LocalCartItem struct {
	ProductID uuid.UUID            `json:"productId"`
	Quantity  int                  `json:"quantity"`
	Product   LocalProductSnapshot `json:"product"`
}

// LocalCart is the JSON blob the client keeps under its fixed storage key
// and posts to the sync endpoint on login.
type LocalCart struct {
	SchemaVersion int             `json:"schema_version"`
	Items         []LocalCartItem `json:"items"`
}

// Validate rejects blobs written by an unknown schema version.
func (c *LocalCart) Validate() error {
	if c.SchemaVersion != LocalCartSchemaVersion {
		return ErrLocalCartVersion
	}
	return nil
}

// AsItems reinterprets the local lines as cart items with local origin and
// no database identity. Used for the fallback cart when the server cart
// cannot be fetched during reconciliation.
func (c *LocalCart) AsItems() []*CartItem {
	items := make([]*CartItem, 0, len(c.Items))
	for _, line := range c.Items {
		snapshot := line.Product
		items = append(items, &CartItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Origin:    LineOriginLocal,
			Product: &Product{
				ID:       snapshot.ID,
				Name:     snapshot.Name,
				Price:    snapshot.Price,
				ImageURL: snapshot.Image,
			},
		})
	}
	return items
}
