package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-poster-orders/internal/postgres"
)

var ErrNotFound = errors.New("notification not found")

// Notification is an admin-facing record. UserID is nil for broadcasts to all
// admins.
type Notification struct {
	ID        int64     `json:"id"`
	UserID    *int64    `json:"user_id"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

func PurchaseMessage(displayName, orderID string) string {
	return fmt.Sprintf("User %s made a purchase (order %s)", displayName, orderID)
}

// Insert writes through q so it can join the caller's transaction.
func Insert(ctx context.Context, q postgres.Querier, userID *int64, message string) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, `INSERT INTO notifications (user_id, message) VALUES ($1, $2) RETURNING id`, userID, message).Scan(&id)
	return id, err
}

type Repo struct{ DB postgres.Querier }

func (r *Repo) List(ctx context.Context) ([]Notification, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, user_id, message, is_read, created_at
                                FROM notifications ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Notification{}
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *Repo) MarkRead(ctx context.Context, id int64) error {
	ct, err := r.DB.Exec(ctx, `UPDATE notifications SET is_read = true WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
