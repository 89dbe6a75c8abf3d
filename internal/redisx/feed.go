package redisx

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

type FeedEntry struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	OrderID    string    `json:"order_id"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Feed is a capped, newest-first list of admin notifications that is also
// broadcast on ChannelNotifications.
type Feed struct {
	RDB  *redis.Client
	Size int64
}

func (f *Feed) Push(ctx context.Context, e FeedEntry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = f.RDB.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, KeyNotificationFeed, b)
		p.LTrim(ctx, KeyNotificationFeed, 0, f.Size-1)
		p.Publish(ctx, ChannelNotifications, b)
		return nil
	})
	return err
}

// Latest returns up to n entries, newest first.
func (f *Feed) Latest(ctx context.Context, n int64) ([]FeedEntry, error) {
	if n <= 0 || n > f.Size {
		n = f.Size
	}
	raw, err := f.RDB.LRange(ctx, KeyNotificationFeed, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]FeedEntry, 0, len(raw))
	for _, s := range raw {
		var e FeedEntry
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
