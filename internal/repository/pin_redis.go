package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/auth247/pin-server-go/internal/clock"
	"github.com/auth247/pin-server-go/internal/model"
	redisclient "github.com/auth247/pin-server-go/internal/redis"
)

const maxUpdateRetries = 10

// ErrUpdateConflict is returned when an optimistic update keeps losing races.
var ErrUpdateConflict = errors.New("pin update conflict: too many concurrent writers")

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisPinRepository stores records as JSON under pin:<userId>. Updates use
// WATCH/MULTI so every read-check-write is atomic across instances.
type RedisPinRepository struct {
	client    *redis.Client
	clock     clock.Clock
	retention time.Duration
}

func NewRedisPinRepository(client *redis.Client, clk clock.Clock, retention time.Duration) *RedisPinRepository {
	return &RedisPinRepository{
		client:    client,
		clock:     clk,
		retention: retention,
	}
}

func (r *RedisPinRepository) Get(ctx context.Context, userID string) (*model.PinRecord, error) {
	return getRecord(ctx, r.client, redisclient.PinKey(userID))
}

func (r *RedisPinRepository) Put(ctx context.Context, record *model.PinRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal pin record: %w", err)
	}
	if err := r.client.Set(ctx, redisclient.PinKey(record.UserID), data, r.ttl(record)).Err(); err != nil {
		return fmt.Errorf("store pin record: %w", err)
	}
	return nil
}

func (r *RedisPinRepository) Delete(ctx context.Context, userID string) (bool, error) {
	n, err := r.client.Del(ctx, redisclient.PinKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("delete pin record: %w", err)
	}
	return n > 0, nil
}

func (r *RedisPinRepository) Update(ctx context.Context, userID string, fn PinUpdateFunc) error {
	key := redisclient.PinKey(userID)

	txf := func(tx *redis.Tx) error {
		current, err := getRecord(ctx, tx, key)
		if err != nil {
			return err
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		if current == nil && next == nil {
			return nil
		}

		var data []byte
		if next != nil {
			if data, err = json.Marshal(next); err != nil {
				return fmt.Errorf("marshal pin record: %w", err)
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if next == nil {
				pipe.Del(ctx, key)
				return nil
			}
			pipe.Set(ctx, key, data, r.ttl(next))
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrUpdateConflict
}

// DeleteExpired is a no-op: every key carries its own TTL.
func (r *RedisPinRepository) DeleteExpired(ctx context.Context, now time.Time, maxAttempts int) (int64, error) {
	return 0, nil
}

func (r *RedisPinRepository) ttl(record *model.PinRecord) time.Duration {
	ttl := record.ExpiresAt.Sub(r.clock.Now())
	if ttl < 0 {
		ttl = 0
	}
	return ttl + r.retention
}

func getRecord(ctx context.Context, c stringGetter, key string) (*model.PinRecord, error) {
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pin record: %w", err)
	}

	var record model.PinRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("unmarshal pin record: %w", err)
	}
	return &record, nil
}
