package notifier

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	kafkax "github.com/ariefcatur/go-poster-orders/internal/kafka"
	"github.com/ariefcatur/go-poster-orders/internal/orders"
	"github.com/ariefcatur/go-poster-orders/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return &Service{
		Redis:       rdb,
		Feed:        &redisx.Feed{RDB: rdb, Size: 10},
		Log:         zap.NewNop(),
		ServiceName: "notifier",
	}
}

func event(eventType, orderID string, payload any) kafkago.Message {
	env := orders.NewEnvelope(eventType, "orders-api", "", orderID, kafkax.MustMarshal(payload))
	return kafkago.Message{Value: kafkax.MustMarshal(env)}
}

func TestHandleOrderCreated(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	m := event(orders.EventOrderCreated, "o-1", orders.OrderCreatedPayload{
		OrderID:  "o-1",
		UserID:   7,
		Username: "alice",
		Items:    []orders.ItemPrice{{PosterID: 1, Qty: 2, Price: decimal.RequireFromString("10")}},
		Total:    decimal.RequireFromString("20"),
		Status:   orders.StatusPending,
	})
	require.NoError(t, s.Handle(ctx, m))
	// redelivery of the same event
	require.NoError(t, s.Handle(ctx, m))

	got, err := s.Feed.Latest(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "o-1", got[0].OrderID)
	assert.Equal(t, orders.EventOrderCreated, got[0].EventType)
	assert.Equal(t, "User alice made a purchase (order o-1) (20.00, 1 items)", got[0].Message)
}

func TestHandleStatusChangedAndAnonymousBuyer(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	require.NoError(t, s.Handle(ctx, event(orders.EventOrderCreated, "o-2", orders.OrderCreatedPayload{
		OrderID: "o-2", UserID: 9, Total: decimal.Zero,
	})))
	require.NoError(t, s.Handle(ctx, event(orders.EventOrderStatusChanged, "o-2", orders.OrderStatusChangedPayload{
		OrderID: "o-2", UserID: 9, Status: orders.StatusShipped,
	})))

	got, err := s.Feed.Latest(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Order o-2 is now shipped", got[0].Message)
	assert.Contains(t, got[1].Message, "User #9 made a purchase")
}

func TestHandleSkipsUnusableMessages(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	require.NoError(t, s.Handle(ctx, kafkago.Message{Value: []byte("{not json")}))
	require.NoError(t, s.Handle(ctx, event("InventoryReserved", "o-3", map[string]string{"x": "y"})))
	require.NoError(t, s.Handle(ctx, event(orders.EventOrderCreated, "o-3", "not an object")))

	got, err := s.Feed.Latest(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHandleRedisDown(t *testing.T) {
	s := newService(t)
	require.NoError(t, s.Redis.Close())

	err := s.Handle(context.Background(), event(orders.EventOrderStatusChanged, "o-4", orders.OrderStatusChangedPayload{
		OrderID: "o-4", Status: orders.StatusPaid,
	}))
	assert.Error(t, err)
}
