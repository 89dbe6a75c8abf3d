package orders

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-poster-orders/internal/notifications"
	"github.com/ariefcatur/go-poster-orders/internal/postgres"
	"github.com/ariefcatur/go-poster-orders/internal/users"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type Repo struct {
	DB postgres.DB

	// VerifyTotal makes PlaceOrder check unit prices against the locked
	// catalog prices and the declared total against the line sum.
	VerifyTotal bool
	Tolerance   decimal.Decimal
}

// PlaceOrder checks and decrements stock, inserts the order, its items and an
// admin notification in one transaction. On any error nothing is committed.
func (r *Repo) PlaceOrder(ctx context.Context, actor Actor, req Request) (Order, error) {
	if actor.UserID <= 0 {
		return Order{}, &InvalidRequestError{Reason: "missing user"}
	}
	if err := req.Validate(); err != nil {
		return Order{}, err
	}
	d := req.demand()

	order := Order{
		ID:     uuid.NewString(),
		UserID: actor.UserID,
		Total:  req.Total,
		Status: InitialStatus,
	}

	err := postgres.WithTx(ctx, r.DB, func(tx pgx.Tx) error {
		u, err := users.Lookup(ctx, tx, actor.UserID)
		if errors.Is(err, users.ErrNotFound) {
			return ErrUnknownUser
		}
		if err != nil {
			return persist("lookup user", err)
		}

		posters, err := lockPosters(ctx, tx, d.sorted)
		if err != nil {
			return err
		}
		if err := checkStock(d, posters); err != nil {
			return err
		}
		if r.VerifyTotal {
			if err := r.verifyPrices(req, posters); err != nil {
				return err
			}
		}
		if err := decrementStock(ctx, tx, d, posters); err != nil {
			return err
		}

		if err := tx.QueryRow(ctx, `
			INSERT INTO orders (id, user_id, total, status)
			VALUES ($1, $2, $3, $4)
			RETURNING created_at`,
			order.ID, order.UserID, order.Total, string(order.Status),
		).Scan(&order.CreatedAt); err != nil {
			return persist("insert order", err)
		}

		for _, l := range req.Lines {
			if _, err := tx.Exec(ctx, `
				INSERT INTO order_items (order_id, poster_id, quantity, price)
				VALUES ($1, $2, $3, $4)`,
				order.ID, l.PosterID, l.Quantity, l.UnitPrice,
			); err != nil {
				return persist("insert order item", err)
			}
		}

		msg := notifications.PurchaseMessage(u.DisplayName(), order.ID)
		if _, err := notifications.Insert(ctx, tx, nil, msg); err != nil {
			return persist("insert notification", err)
		}
		return nil
	})
	if err != nil {
		return Order{}, classify(err)
	}
	return order, nil
}

func (r *Repo) verifyPrices(req Request, posters map[int64]Poster) error {
	for _, l := range req.Lines {
		p := posters[l.PosterID]
		if l.UnitPrice.Sub(p.Price).Abs().GreaterThan(r.Tolerance) {
			return &PriceMismatchError{PosterID: p.ID, Title: p.Title, Declared: l.UnitPrice, Current: p.Price}
		}
	}
	if sum := req.LinesTotal(); req.Total.Sub(sum).Abs().GreaterThan(r.Tolerance) {
		return &TotalMismatchError{Declared: req.Total, Computed: sum}
	}
	return nil
}

func scanOrder(row pgx.Row, o *Order) error {
	var status string
	if err := row.Scan(&o.ID, &o.UserID, &o.Total, &status, &o.CreatedAt); err != nil {
		return err
	}
	o.Status = Status(status)
	return nil
}

// ListByUser returns the user's orders, newest first.
func (r *Repo) ListByUser(ctx context.Context, userID int64) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, user_id, total, status, created_at
                                FROM orders WHERE user_id = $1
                                ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, persist("list orders", err)
	}
	defer rows.Close()

	out := []Order{}
	for rows.Next() {
		var o Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, persist("scan order", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, persist("list orders", err)
	}
	return out, nil
}

// ListAll returns every order with its owner's username, newest first.
func (r *Repo) ListAll(ctx context.Context) ([]AdminOrder, error) {
	rows, err := r.DB.Query(ctx, `SELECT o.id, o.user_id, o.total, o.status, o.created_at, u.username
                                FROM orders o LEFT JOIN users u ON o.user_id = u.id
                                ORDER BY o.created_at DESC, o.id`)
	if err != nil {
		return nil, persist("list all orders", err)
	}
	defer rows.Close()

	out := []AdminOrder{}
	for rows.Next() {
		var (
			o      AdminOrder
			status string
		)
		if err := rows.Scan(&o.ID, &o.UserID, &o.Total, &status, &o.CreatedAt, &o.Username); err != nil {
			return nil, persist("scan order", err)
		}
		o.Status = Status(status)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, persist("list all orders", err)
	}
	return out, nil
}

// UpdateStatus overwrites the status of an order.
func (r *Repo) UpdateStatus(ctx context.Context, orderID string, status Status) (Order, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return Order{}, ErrNotFound
	}
	var o Order
	err := scanOrder(r.DB.QueryRow(ctx, `
		UPDATE orders SET status = $1 WHERE id = $2
		RETURNING id, user_id, total, status, created_at`, string(status), orderID), &o)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, persist("update status", err)
	}
	return o, nil
}

// GetOrderItems returns the line items of an order the actor owns, or of any
// order when the actor is an admin. A foreign order and a missing order both
// yield ErrNotFound.
func (r *Repo) GetOrderItems(ctx context.Context, orderID string, actor Actor) ([]LineItem, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, ErrNotFound
	}
	var one int
	err := r.DB.QueryRow(ctx, `SELECT 1 FROM orders WHERE id = $1 AND (user_id = $2 OR $3)`,
		orderID, actor.UserID, actor.Admin).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persist("check order owner", err)
	}

	rows, err := r.DB.Query(ctx, `
		SELECT oi.id, oi.order_id, oi.poster_id, oi.quantity, oi.price, p.title, p.image_url
		FROM order_items oi
		LEFT JOIN posters p ON oi.poster_id = p.id
		WHERE oi.order_id = $1
		ORDER BY oi.id`, orderID)
	if err != nil {
		return nil, persist("list order items", err)
	}
	defer rows.Close()

	out := []LineItem{}
	for rows.Next() {
		var li LineItem
		if err := rows.Scan(&li.ID, &li.OrderID, &li.PosterID, &li.Quantity, &li.Price, &li.PosterTitle, &li.ImageURL); err != nil {
			return nil, persist("scan order item", err)
		}
		out = append(out, li)
	}
	if err := rows.Err(); err != nil {
		return nil, persist("list order items", err)
	}
	return out, nil
}
