package orders

import (
	"context"
	"errors"

	kafkax "github.com/ariefcatur/go-poster-orders/internal/kafka"
	"github.com/ariefcatur/go-poster-orders/internal/metrics"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Store is the persistence side of the order flow; *Repo implements it.
type Store interface {
	PlaceOrder(ctx context.Context, actor Actor, req Request) (Order, error)
	ListByUser(ctx context.Context, userID int64) ([]Order, error)
	ListAll(ctx context.Context) ([]AdminOrder, error)
	UpdateStatus(ctx context.Context, orderID string, status Status) (Order, error)
	GetOrderItems(ctx context.Context, orderID string, actor Actor) ([]LineItem, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// Service wraps a Store with logging, metrics and event publication. Events
// are published only after the transaction committed; a lost event never
// undoes an order.
type Service struct {
	Store         Store
	Created       Publisher
	StatusChanged Publisher
	Metrics       *metrics.OrderMetrics
	Log           *zap.Logger
	Name          string
}

func (s *Service) PlaceOrder(ctx context.Context, actor Actor, req Request, traceID string) (Order, error) {
	o, err := s.Store.PlaceOrder(ctx, actor, req)
	s.Metrics.Observe(resultLabel(err))
	if err != nil {
		lvl := s.Log.Info
		if errors.Is(err, ErrPersistence) {
			lvl = s.Log.Error
		}
		lvl("order rejected",
			zap.Int64("user_id", actor.UserID),
			zap.Int("items", len(req.Lines)),
			zap.String("request_id", traceID),
			zap.Error(err))
		return Order{}, err
	}

	s.Log.Info("order placed",
		zap.String("order_id", o.ID),
		zap.Int64("user_id", o.UserID),
		zap.String("total", o.Total.StringFixed(2)),
		zap.String("request_id", traceID))

	s.publish(s.Created, EventOrderCreated, o.ID, traceID, OrderCreatedPayload{
		OrderID:  o.ID,
		UserID:   o.UserID,
		Username: actor.Username,
		Items:    toItemPrices(req.Lines),
		Total:    o.Total,
		Status:   o.Status,
	})
	return o, nil
}

func (s *Service) ListByUser(ctx context.Context, actor Actor) ([]Order, error) {
	return s.Store.ListByUser(ctx, actor.UserID)
}

func (s *Service) ListAll(ctx context.Context) ([]AdminOrder, error) {
	return s.Store.ListAll(ctx)
}

func (s *Service) GetOrderItems(ctx context.Context, orderID string, actor Actor) ([]LineItem, error) {
	return s.Store.GetOrderItems(ctx, orderID, actor)
}

// UpdateStatus parses the raw status and overwrites it on the order.
func (s *Service) UpdateStatus(ctx context.Context, orderID, rawStatus, traceID string) (Order, error) {
	st, err := ParseStatus(rawStatus)
	if err != nil {
		return Order{}, err
	}
	o, err := s.Store.UpdateStatus(ctx, orderID, st)
	if err != nil {
		return Order{}, err
	}
	s.Log.Info("order status updated",
		zap.String("order_id", o.ID),
		zap.String("status", string(o.Status)),
		zap.String("request_id", traceID))

	s.publish(s.StatusChanged, EventOrderStatusChanged, o.ID, traceID, OrderStatusChangedPayload{
		OrderID: o.ID,
		UserID:  o.UserID,
		Status:  o.Status,
	})
	return o, nil
}

func (s *Service) publish(p Publisher, eventType, orderID, traceID string, payload any) {
	if p == nil {
		return
	}
	ev := NewEnvelope(eventType, s.Name, traceID, orderID, kafkax.MustMarshal(payload))
	p.Publish(PartitionKey(orderID), kafkax.MustMarshal(ev), kafkax.EventHeaders(eventType, ev.EventVersion)...)
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid"
	case errors.Is(err, ErrItemNotFound):
		return "item_not_found"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrUnknownUser):
		return "unknown_user"
	default:
		return "error"
	}
}
