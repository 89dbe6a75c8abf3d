package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// Poster is the catalog row as seen by the order transaction. Only stock is
// ever written from here.
type Poster struct {
	ID    int64
	Title string
	Price decimal.Decimal
	Stock int
}

type Order struct {
	ID        string          `json:"id"`
	UserID    int64           `json:"user_id"`
	Total     decimal.Decimal `json:"total"`
	Status    Status          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// AdminOrder is an order joined with its owner's username. Username is nil
// when the owner row is gone.
type AdminOrder struct {
	Order
	Username *string `json:"username"`
}

// LineItem is a persisted order item joined with the poster's current title
// and image. Quantity and Price are frozen at order time, title and image are
// not.
type LineItem struct {
	ID          int64           `json:"id"`
	OrderID     string          `json:"order_id"`
	PosterID    int64           `json:"poster_id"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	PosterTitle *string         `json:"poster_title"`
	ImageURL    *string         `json:"image_url"`
}

// Actor is the authenticated caller, passed explicitly into every operation.
type Actor struct {
	UserID   int64
	Username string
	Email    string
	Admin    bool
}
