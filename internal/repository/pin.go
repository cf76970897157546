package repository

import (
	"context"
	"time"

	"github.com/auth247/pin-server-go/internal/model"
)

// PinUpdateFunc receives the current record (nil when absent) and returns the
// record to store. Returning nil deletes the key.
type PinUpdateFunc func(current *model.PinRecord) (*model.PinRecord, error)

type PinRepository interface {
	Get(ctx context.Context, userID string) (*model.PinRecord, error)
	Put(ctx context.Context, record *model.PinRecord) error
	Delete(ctx context.Context, userID string) (bool, error)
	// Update runs fn as one atomic read-modify-write for userID. fn may be
	// invoked more than once when a store retries on conflict.
	Update(ctx context.Context, userID string, fn PinUpdateFunc) error
	// DeleteExpired drops records that expired before now or reached
	// maxAttempts. Stores with native expiry may return 0.
	DeleteExpired(ctx context.Context, now time.Time, maxAttempts int) (int64, error)
}
