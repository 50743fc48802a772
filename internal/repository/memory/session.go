// Package memory implements an in-process session store for local
// development and tests. No external services are required.
package memory

import (
	"context"
	"log/slog"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/as10896/saga-demo/internal/domain"
	"github.com/as10896/saga-demo/internal/repository"
	apperrors "github.com/as10896/saga-demo/pkg/errors"
)

type entry struct {
	data      []byte
	expiresAt time.Time
	ttl       time.Duration
}

// SessionRepository keeps encoded sessions in a concurrent map. Entries are
// lazily expired on access; there is no background sweeper.
type SessionRepository struct {
	sessions *xsync.MapOf[string, entry]
	logger   *slog.Logger
	now      func() time.Time
}

// NewSessionRepository creates an in-memory session repository.
func NewSessionRepository(logger *slog.Logger) *SessionRepository {
	return &SessionRepository{
		sessions: xsync.NewMapOf[string, entry](),
		logger:   logger,
		now:      time.Now,
	}
}

// Get returns the session with the given ID, refreshing its expiration.
func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	e, ok := r.sessions.Load(id)
	if !ok {
		return nil, apperrors.NotFound("session", id)
	}

	if r.now().After(e.expiresAt) {
		r.sessions.Delete(id)
		return nil, apperrors.NotFound("session", id)
	}

	session, err := repository.DecodeSession(e.data)
	if err != nil {
		r.logger.WarnContext(ctx, "purging corrupted session record",
			slog.String("session_id", id),
			slog.String("error", err.Error()),
		)
		r.sessions.Delete(id)
		return nil, apperrors.NotFound("session", id)
	}

	e.expiresAt = r.now().Add(e.ttl)
	r.sessions.Store(id, e)

	return session, nil
}

// Save stores the session and arms its expiration window.
func (r *SessionRepository) Save(_ context.Context, session *domain.Session, ttl time.Duration) error {
	data, err := repository.EncodeSession(session)
	if err != nil {
		return err
	}

	r.sessions.Store(session.ID, entry{
		data:      data,
		expiresAt: r.now().Add(ttl),
		ttl:       ttl,
	})
	return nil
}

// Delete removes the session. Missing sessions are not an error.
func (r *SessionRepository) Delete(_ context.Context, id string) error {
	r.sessions.Delete(id)
	return nil
}
