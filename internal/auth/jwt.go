package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidToken = errors.New("invalid token")

const RoleAdmin = "admin"

// Claims mirrors the token issued by the login service.
type Claims struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type Identity struct {
	UserID   int64
	Username string
	Email    string
	Role     string
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify checks an HS256 token and returns the identity it carries.
func (v *Verifier) Verify(token string) (Identity, error) {
	var c Claims
	t, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !t.Valid {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.ID <= 0 {
		return Identity{}, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}
	return Identity{UserID: c.ID, Username: c.Username, Email: c.Email, Role: c.Role}, nil
}

// Sign issues a token for id. A zero ttl means no expiry, as the login
// service does.
func (v *Verifier) Sign(id Identity, ttl time.Duration) (string, error) {
	c := Claims{ID: id.UserID, Email: id.Email, Username: id.Username, Role: id.Role}
	if ttl > 0 {
		c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(v.secret)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
