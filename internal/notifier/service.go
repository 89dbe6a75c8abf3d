package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	kafkax "github.com/ariefcatur/go-poster-orders/internal/kafka"
	"github.com/ariefcatur/go-poster-orders/internal/notifications"
	"github.com/ariefcatur/go-poster-orders/internal/orders"
	"github.com/ariefcatur/go-poster-orders/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Service turns order events into entries of the admin live feed.
type Service struct {
	Redis       *redis.Client
	Feed        *redisx.Feed
	Log         *zap.Logger
	ServiceName string
}

// Handle is installed as a kafka consumer handler for both order topics.
func (s *Service) Handle(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// poison message: log and let it be committed
		s.Log.Warn("undecodable event", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}

	msg, ok, err := describe(env)
	if err != nil {
		s.Log.Warn("undecodable payload", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}

	first, err := redisx.MarkOnce(ctx, s.Redis, s.ServiceName, env.EventID)
	if err != nil {
		return err
	}
	if !first {
		return nil
	}

	if err := s.Feed.Push(ctx, redisx.FeedEntry{
		EventID:    env.EventID,
		EventType:  env.EventType,
		OrderID:    env.CorrelationID,
		Message:    msg,
		OccurredAt: env.OccurredAt,
	}); err != nil {
		_ = redisx.Unmark(ctx, s.Redis, s.ServiceName, env.EventID)
		return err
	}
	s.Log.Debug("feed updated", zap.String("event_id", env.EventID), zap.String("order_id", env.CorrelationID))
	return nil
}

// describe renders the feed message for env. ok is false for event types the
// feed ignores.
func describe(env orders.Envelope) (msg string, ok bool, err error) {
	switch env.EventType {
	case orders.EventOrderCreated:
		p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
		if err != nil {
			return "", false, err
		}
		who := p.Username
		if who == "" {
			who = fmt.Sprintf("#%d", p.UserID)
		}
		return fmt.Sprintf("%s (%s, %d items)", notifications.PurchaseMessage(who, p.OrderID), p.Total.StringFixed(2), len(p.Items)), true, nil
	case orders.EventOrderStatusChanged:
		p, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
		if err != nil {
			return "", false, err
		}
		return fmt.Sprintf("Order %s is now %s", p.OrderID, p.Status), true, nil
	default:
		return "", false, nil
	}
}
