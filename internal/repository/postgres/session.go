// Package postgres implements session persistence on PostgreSQL with a
// sliding expires_at window.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/as10896/saga-demo/internal/domain"
	"github.com/as10896/saga-demo/internal/repository"
	"github.com/as10896/saga-demo/pkg/database"
	apperrors "github.com/as10896/saga-demo/pkg/errors"
)

// SessionRepository stores sessions as versioned JSONB rows. The row carries
// its TTL so reads can re-arm the expiration window without the caller
// supplying it.
type SessionRepository struct {
	db     database.DBTX
	logger *slog.Logger
}

// NewSessionRepository creates a PostgreSQL-backed session repository.
func NewSessionRepository(db database.DBTX, logger *slog.Logger) *SessionRepository {
	return &SessionRepository{
		db:     db,
		logger: logger,
	}
}

// Get fetches a live session and slides its expiration forward by the row's
// stored TTL. Corrupted rows are purged and reported as not found.
func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	var data []byte
	err := r.db.QueryRow(ctx, `
		UPDATE sessions
		SET expires_at = NOW() + make_interval(secs => ttl_seconds)
		WHERE id = $1 AND expires_at > NOW()
		RETURNING data
	`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("session", id)
		}
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}

	session, err := repository.DecodeSession(data)
	if err != nil {
		r.logger.WarnContext(ctx, "purging corrupted session record",
			slog.String("session_id", id),
			slog.String("error", err.Error()),
		)
		if _, delErr := r.db.Exec(ctx, "DELETE FROM sessions WHERE id = $1", id); delErr != nil {
			r.logger.ErrorContext(ctx, "failed to purge corrupted session",
				slog.String("session_id", id),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, apperrors.NotFound("session", id)
	}

	return session, nil
}

// Save upserts the session and arms its expiration window.
func (r *SessionRepository) Save(ctx context.Context, session *domain.Session, ttl time.Duration) error {
	data, err := repository.EncodeSession(session)
	if err != nil {
		return err
	}

	ttlSeconds := int64(ttl / time.Second)
	_, err = r.db.Exec(ctx, `
		INSERT INTO sessions (id, data, ttl_seconds, expires_at)
		VALUES ($1, $2, $3, NOW() + make_interval(secs => $3))
		ON CONFLICT (id) DO UPDATE
		SET data = EXCLUDED.data,
		    ttl_seconds = EXCLUDED.ttl_seconds,
		    expires_at = EXCLUDED.expires_at
	`, session.ID, data, ttlSeconds)
	if err != nil {
		return fmt.Errorf("save session %s: %w", session.ID, err)
	}
	return nil
}

// Delete removes the session. Missing sessions are not an error.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, "DELETE FROM sessions WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}
