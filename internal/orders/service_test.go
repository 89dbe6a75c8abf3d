package orders

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	kafkax "github.com/ariefcatur/go-poster-orders/internal/kafka"
	"github.com/ariefcatur/go-poster-orders/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	order  Order
	err    error
	placed int
	status Status
}

func (f *fakeStore) PlaceOrder(_ context.Context, actor Actor, req Request) (Order, error) {
	f.placed++
	if f.err != nil {
		return Order{}, f.err
	}
	o := f.order
	o.UserID = actor.UserID
	o.Total = req.Total
	return o, nil
}

func (f *fakeStore) ListByUser(context.Context, int64) ([]Order, error) { return nil, f.err }
func (f *fakeStore) ListAll(context.Context) ([]AdminOrder, error)     { return nil, f.err }

func (f *fakeStore) UpdateStatus(_ context.Context, id string, st Status) (Order, error) {
	if f.err != nil {
		return Order{}, f.err
	}
	f.status = st
	return Order{ID: id, UserID: 7, Status: st, CreatedAt: time.Now()}, nil
}

func (f *fakeStore) GetOrderItems(context.Context, string, Actor) ([]LineItem, error) {
	return nil, f.err
}

type message struct {
	key, value []byte
	headers    []kafkago.Header
}

type fakePublisher struct{ sent []message }

func (p *fakePublisher) Publish(key, value []byte, headers ...kafkago.Header) {
	p.sent = append(p.sent, message{key: key, value: value, headers: headers})
}

func newService(store Store) (*Service, *fakePublisher, *fakePublisher, *metrics.OrderMetrics) {
	created, changed := &fakePublisher{}, &fakePublisher{}
	m := metrics.NewOrderMetrics(prometheus.NewRegistry(), "test")
	return &Service{
		Store:         store,
		Created:       created,
		StatusChanged: changed,
		Metrics:       m,
		Log:           zap.NewNop(),
		Name:          "orders-api",
	}, created, changed, m
}

func TestServicePlaceOrder_PublishesAfterCommit(t *testing.T) {
	store := &fakeStore{order: Order{ID: "o-1", Status: StatusPending}}
	svc, created, _, m := newService(store)

	o, err := svc.PlaceOrder(context.Background(), alice, Request{
		Lines: []Line{{PosterID: 1, Quantity: 2, UnitPrice: dec("10.00")}},
		Total: dec("20.00"),
	}, "req-1")
	require.NoError(t, err)
	assert.Equal(t, "o-1", o.ID)

	require.Len(t, created.sent, 1)
	msg := created.sent[0]
	assert.Equal(t, "o-1", string(msg.key))
	assert.Equal(t, EventOrderCreated, kafkax.Header(kafkago.Message{Headers: msg.headers}, kafkax.HeaderEventType))

	var env Envelope
	require.NoError(t, json.Unmarshal(msg.value, &env))
	assert.Equal(t, EventOrderCreated, env.EventType)
	assert.Equal(t, "orders-api", env.Producer)
	assert.Equal(t, "req-1", env.TraceID)
	assert.Equal(t, "o-1", env.CorrelationID)

	p, err := kafkax.UnwrapPayload[OrderCreatedPayload](env.Payload)
	require.NoError(t, err)
	assert.Equal(t, alice.UserID, p.UserID)
	assert.Equal(t, "alice", p.Username)
	require.Len(t, p.Items, 1)
	assert.Equal(t, 2, p.Items[0].Qty)
	assert.True(t, p.Total.Equal(dec("20")))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Placed.WithLabelValues("ok")))
}

func TestServicePlaceOrder_FailureSendsNothing(t *testing.T) {
	tests := []struct {
		err   error
		label string
	}{
		{&InsufficientStockError{Title: "Moon"}, "insufficient_stock"},
		{&ItemNotFoundError{PosterID: 3}, "item_not_found"},
		{&InvalidRequestError{Reason: "no items"}, "invalid"},
		{ErrUnknownUser, "unknown_user"},
		{persist("insert order", assert.AnError), "error"},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			svc, created, _, m := newService(&fakeStore{err: tt.err})
			_, err := svc.PlaceOrder(context.Background(), alice, Request{}, "")
			require.ErrorIs(t, err, tt.err)
			assert.Empty(t, created.sent)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.Placed.WithLabelValues(tt.label)))
		})
	}
}

func TestServicePlaceOrder_NilPublisher(t *testing.T) {
	svc := &Service{Store: &fakeStore{order: Order{ID: "o-1"}}, Log: zap.NewNop()}
	_, err := svc.PlaceOrder(context.Background(), alice, Request{}, "")
	require.NoError(t, err)
}

func TestServiceUpdateStatus(t *testing.T) {
	t.Run("unknown status never reaches the store", func(t *testing.T) {
		store := &fakeStore{}
		svc, _, changed, _ := newService(store)
		_, err := svc.UpdateStatus(context.Background(), "o-1", "teleported", "")
		require.ErrorIs(t, err, ErrInvalidRequest)
		assert.Empty(t, store.status)
		assert.Empty(t, changed.sent)
	})

	t.Run("publishes the new status", func(t *testing.T) {
		store := &fakeStore{}
		svc, _, changed, _ := newService(store)
		o, err := svc.UpdateStatus(context.Background(), "o-1", "DELIVERED", "req-2")
		require.NoError(t, err)
		assert.Equal(t, StatusDelivered, o.Status)
		assert.Equal(t, StatusDelivered, store.status)

		require.Len(t, changed.sent, 1)
		var env Envelope
		require.NoError(t, json.Unmarshal(changed.sent[0].value, &env))
		assert.Equal(t, EventOrderStatusChanged, env.EventType)
		p, err := kafkax.UnwrapPayload[OrderStatusChangedPayload](env.Payload)
		require.NoError(t, err)
		assert.Equal(t, StatusDelivered, p.Status)
	})

	t.Run("missing order", func(t *testing.T) {
		svc, _, changed, _ := newService(&fakeStore{err: ErrNotFound})
		_, err := svc.UpdateStatus(context.Background(), "o-1", "paid", "")
		require.ErrorIs(t, err, ErrNotFound)
		assert.Empty(t, changed.sent)
	})
}
