//go:build integration

package orders

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/ariefcatur/go-poster-orders/internal/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run with: POSTGRES_TEST_DSN=postgres://... go test -tags integration ./internal/orders/

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	ctx := context.Background()
	pool, err := postgres.Connect(ctx, dsn, postgres.PoolConfig{MaxConns: 8})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, postgres.Migrate(ctx, pool))
	return pool
}

func seedUser(t *testing.T, pool *pgxpool.Pool) Actor {
	t.Helper()
	ctx := context.Background()
	name := "it-" + uuid.NewString()[:8]
	var id int64
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash) VALUES ($1, $2, 'x') RETURNING id`,
		name, name+"@example.com").Scan(&id))
	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, `DELETE FROM orders WHERE user_id = $1`, id)
		_, _ = pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	})
	return Actor{UserID: id, Username: name}
}

func seedPoster(t *testing.T, pool *pgxpool.Pool, price string, stock int) int64 {
	t.Helper()
	ctx := context.Background()
	var id int64
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO posters (title, price, stock) VALUES ($1, $2, $3) RETURNING id`,
		"it-poster-"+uuid.NewString()[:8], dec(price), stock).Scan(&id))
	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, `DELETE FROM order_items WHERE poster_id = $1`, id)
		_, _ = pool.Exec(ctx, `DELETE FROM posters WHERE id = $1`, id)
	})
	return id
}

func stockOf(t *testing.T, pool *pgxpool.Pool, id int64) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(context.Background(), `SELECT stock FROM posters WHERE id = $1`, id).Scan(&n))
	return n
}

func countOrders(t *testing.T, pool *pgxpool.Pool, userID int64) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(context.Background(), `SELECT count(*) FROM orders WHERE user_id = $1`, userID).Scan(&n))
	return n
}

func TestIntegration_LastUnitSoldOnce(t *testing.T) {
	pool := testPool(t)
	buyer1, buyer2 := seedUser(t, pool), seedUser(t, pool)
	poster := seedPoster(t, pool, "10.00", 1)
	repo := &Repo{DB: pool, VerifyTotal: true, Tolerance: dec("0.01")}
	req := Request{Lines: []Line{{PosterID: poster, Quantity: 1, UnitPrice: dec("10.00")}}, Total: dec("10.00")}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, buyer := range []Actor{buyer1, buyer2} {
		wg.Add(1)
		go func(i int, a Actor) {
			defer wg.Done()
			_, errs[i] = repo.PlaceOrder(context.Background(), a, req)
		}(i, buyer)
	}
	wg.Wait()

	var sold int
	for _, err := range errs {
		if err == nil {
			sold++
			continue
		}
		require.ErrorIs(t, err, ErrInsufficientStock)
	}
	assert.Equal(t, 1, sold)
	assert.Equal(t, 0, stockOf(t, pool, poster))
	assert.Equal(t, 1, countOrders(t, pool, buyer1.UserID)+countOrders(t, pool, buyer2.UserID))
}

func TestIntegration_FailedCheckoutLeavesNoTrace(t *testing.T) {
	pool := testPool(t)
	buyer := seedUser(t, pool)
	plenty := seedPoster(t, pool, "5.00", 5)
	scarce := seedPoster(t, pool, "7.00", 1)
	repo := &Repo{DB: pool}

	_, err := repo.PlaceOrder(context.Background(), buyer, Request{
		Lines: []Line{
			{PosterID: plenty, Quantity: 2, UnitPrice: dec("5.00")},
			{PosterID: scarce, Quantity: 2, UnitPrice: dec("7.00")},
		},
		Total: dec("24.00"),
	})
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 5, stockOf(t, pool, plenty))
	assert.Equal(t, 1, stockOf(t, pool, scarce))
	assert.Equal(t, 0, countOrders(t, pool, buyer.UserID))

	o, err := repo.PlaceOrder(context.Background(), buyer, Request{
		Lines: []Line{{PosterID: plenty, Quantity: 2, UnitPrice: dec("5.00")}},
		Total: dec("10.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, stockOf(t, pool, plenty))

	items, err := repo.GetOrderItems(context.Background(), o.ID, buyer)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
}
