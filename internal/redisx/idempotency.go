package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultInFlightTTL bounds how long a claimed key blocks retries when the
// claiming request never settles it.
const DefaultInFlightTTL = 2 * time.Minute

// Idempotency remembers which order an Idempotency-Key produced for a user.
// TTL applies to completed keys, InFlightTTL to claimed but unsettled ones.
type Idempotency struct {
	RDB         *redis.Client
	TTL         time.Duration
	InFlightTTL time.Duration
}

func (i *Idempotency) inFlightTTL() time.Duration {
	if i.InFlightTTL > 0 {
		return i.InFlightTTL
	}
	return DefaultInFlightTTL
}

func (i *Idempotency) key(userID int64, key string) string {
	return fmt.Sprintf(KeyIdemOrderCreate, userID, key)
}

// Begin claims the key. started is true when the caller owns the key and must
// later call Complete or Abort. Otherwise orderID holds the earlier result,
// or is empty while the first request is still running.
func (i *Idempotency) Begin(ctx context.Context, userID int64, key string) (orderID string, started bool, err error) {
	k := i.key(userID, key)
	ok, err := i.RDB.SetNX(ctx, k, "", i.inFlightTTL()).Result()
	if err != nil {
		return "", false, err
	}
	if ok {
		return "", true, nil
	}
	v, err := i.RDB.Get(ctx, k).Result()
	if err == redis.Nil {
		// expired between SETNX and GET; treat as in flight
		return "", false, nil
	}
	return v, false, err
}

func (i *Idempotency) Complete(ctx context.Context, userID int64, key, orderID string) error {
	return i.RDB.Set(ctx, i.key(userID, key), orderID, i.TTL).Err()
}

func (i *Idempotency) Abort(ctx context.Context, userID int64, key string) error {
	return i.RDB.Del(ctx, i.key(userID, key)).Err()
}
