package users

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-poster-orders/internal/postgres"
	"github.com/jackc/pgx/v5"
)

var ErrNotFound = errors.New("user not found")

type User struct {
	ID       int64
	Username string
	Email    string
	Role     string
}

// DisplayName prefers the username and falls back to the email.
func (u User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

// Lookup reads a user through q, which may be a pool or an open transaction.
func Lookup(ctx context.Context, q postgres.Querier, id int64) (User, error) {
	var u User
	err := q.QueryRow(ctx, `SELECT id, username, email, role FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Username, &u.Email, &u.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

type Repo struct{ DB postgres.Querier }

// Role returns the current role from the database rather than from a token.
func (r *Repo) Role(ctx context.Context, id int64) (string, error) {
	u, err := Lookup(ctx, r.DB, id)
	if err != nil {
		return "", err
	}
	return u.Role, nil
}
