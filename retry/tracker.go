package retry

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Tracker counts delivery attempts per message ID. Counts are created on
// first failure and cleared on any terminal outcome.
type Tracker interface {
	// Increment bumps the attempt count for a message and returns the
	// new value.
	Increment(ctx context.Context, messageID string) (int, error)

	// Get returns the current attempt count, zero when unknown.
	Get(ctx context.Context, messageID string) (int, error)

	// Clear forgets the message.
	Clear(ctx context.Context, messageID string) error
}

// MemoryTracker keeps attempt counts in process memory. Counts are lost
// on restart, resetting a message's backoff to attempt one on its next
// delivery.
type MemoryTracker struct {
	mu       sync.Mutex
	attempts map[string]int
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{attempts: make(map[string]int)}
}

func (t *MemoryTracker) Increment(ctx context.Context, messageID string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.attempts[messageID]++
	return t.attempts[messageID], nil
}

func (t *MemoryTracker) Get(ctx context.Context, messageID string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attempts[messageID], nil
}

func (t *MemoryTracker) Clear(ctx context.Context, messageID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.attempts, messageID)
	return nil
}

// CreateTracker creates a Tracker from a connection string.
//
// Supported formats:
//   - redis://localhost:6379 (counts survive worker restarts)
//   - memory:// or "" (process-local)
func CreateTracker(connString string) (Tracker, error) {
	switch {
	case strings.HasPrefix(connString, "redis://"), strings.HasPrefix(connString, "rediss://"):
		return NewRedisTracker(connString)
	case connString == "" || strings.HasPrefix(connString, "memory://"):
		return NewMemoryTracker(), nil
	default:
		return nil, fmt.Errorf("unsupported retry tracker URL: %s", connString)
	}
}
