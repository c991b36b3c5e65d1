package memory

import (
	"context"
	"sync"
	"time"

	"neuralmesh/application/ports"
)

// MaturationLock is a process-local lock for single-replica stations
// and tests
type MaturationLock struct {
	mu   sync.Mutex
	held map[string]time.Time
}

// NewMaturationLock creates an in-memory maturation lock
func NewMaturationLock() ports.MaturationLock {
	return &MaturationLock{held: make(map[string]time.Time)}
}

// TryAcquire takes the lock unless an unexpired holder exists
func (l *MaturationLock) TryAcquire(ctx context.Context, stationID string, ttl time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if expiry, ok := l.held[stationID]; ok && time.Now().Before(expiry) {
		return nil, false, nil
	}

	l.held[stationID] = time.Now().Add(ttl)

	release := func(ctx context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, stationID)
		return nil
	}
	return release, true, nil
}
