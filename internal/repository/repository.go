// Package repository defines persistence contracts for session state.
package repository

import (
	"context"
	"time"

	"github.com/as10896/saga-demo/internal/domain"
)

// SessionRepository persists sessions with a sliding expiration window.
// Get refreshes the expiration on every successful read. Implementations
// must treat corrupted records as absent and purge them.
type SessionRepository interface {
	// Get returns the session with the given ID, refreshing its expiration.
	// Returns errors.ErrNotFound when the session does not exist or has expired.
	Get(ctx context.Context, id string) (*domain.Session, error)

	// Save stores the session and (re)arms its expiration window.
	Save(ctx context.Context, session *domain.Session, ttl time.Duration) error

	// Delete removes the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error
}
