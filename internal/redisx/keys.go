package redisx

import "time"

const (
	// idem:order:create:{user_id}:{key} -> order_id ("" while in flight)
	KeyIdemOrderCreate = "idem:order:create:%d:%s"

	// rate:checkout:{user_id} -> sorted set of request timestamps
	KeyCheckoutRate = "rate:checkout:%d"

	// dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// capped list of live admin notifications, newest first
	KeyNotificationFeed = "notifications:feed"

	// pub/sub channel mirrored from the feed
	ChannelNotifications = "notifications:live"
)

var (
	TTLDedup = 48 * time.Hour
)
