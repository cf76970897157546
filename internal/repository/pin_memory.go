package repository

import (
	"context"
	"sync"
	"time"

	"github.com/auth247/pin-server-go/internal/model"
)

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// MemoryPinRepository keeps records in process memory. Each key has its own
// lock so updates for different users do not serialize behind each other.
type MemoryPinRepository struct {
	mu      sync.Mutex
	records map[string]model.PinRecord
	locks   map[string]*keyLock
}

func NewMemoryPinRepository() *MemoryPinRepository {
	return &MemoryPinRepository{
		records: make(map[string]model.PinRecord),
		locks:   make(map[string]*keyLock),
	}
}

func (r *MemoryPinRepository) lock(userID string) *keyLock {
	r.mu.Lock()
	l, ok := r.locks[userID]
	if !ok {
		l = &keyLock{}
		r.locks[userID] = l
	}
	l.refs++
	r.mu.Unlock()

	l.mu.Lock()
	return l
}

func (r *MemoryPinRepository) unlock(userID string, l *keyLock) {
	l.mu.Unlock()

	r.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(r.locks, userID)
	}
	r.mu.Unlock()
}

func (r *MemoryPinRepository) load(userID string) *model.PinRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[userID]
	if !ok {
		return nil
	}
	return &rec
}

func (r *MemoryPinRepository) store(userID string, rec *model.PinRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec == nil {
		delete(r.records, userID)
		return
	}
	r.records[userID] = *rec
}

func (r *MemoryPinRepository) Get(ctx context.Context, userID string) (*model.PinRecord, error) {
	return r.load(userID), nil
}

func (r *MemoryPinRepository) Put(ctx context.Context, record *model.PinRecord) error {
	l := r.lock(record.UserID)
	defer r.unlock(record.UserID, l)

	r.store(record.UserID, record)
	return nil
}

func (r *MemoryPinRepository) Delete(ctx context.Context, userID string) (bool, error) {
	l := r.lock(userID)
	defer r.unlock(userID, l)

	existed := r.load(userID) != nil
	r.store(userID, nil)
	return existed, nil
}

func (r *MemoryPinRepository) Update(ctx context.Context, userID string, fn PinUpdateFunc) error {
	l := r.lock(userID)
	defer r.unlock(userID, l)

	next, err := fn(r.load(userID))
	if err != nil {
		return err
	}
	r.store(userID, next)
	return nil
}

func (r *MemoryPinRepository) DeleteExpired(ctx context.Context, now time.Time, maxAttempts int) (int64, error) {
	r.mu.Lock()
	candidates := make([]string, 0)
	for userID, rec := range r.records {
		if rec.Status(now, maxAttempts) != model.PinStatusActive {
			candidates = append(candidates, userID)
		}
	}
	r.mu.Unlock()

	var count int64
	for _, userID := range candidates {
		err := r.Update(ctx, userID, func(current *model.PinRecord) (*model.PinRecord, error) {
			if current == nil {
				return nil, nil
			}
			// re-check: the record may have been replaced since the scan
			if current.Status(now, maxAttempts) != model.PinStatusActive {
				count++
				return nil, nil
			}
			return current, nil
		})
		if err != nil {
			return count, err
		}
	}
	return count, nil
}

// Len returns the number of stored records.
func (r *MemoryPinRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}
