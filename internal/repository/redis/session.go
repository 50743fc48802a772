// Package redis implements session persistence on Redis with TTL-based
// sliding expiration.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/as10896/saga-demo/internal/domain"
	"github.com/as10896/saga-demo/internal/repository"
	apperrors "github.com/as10896/saga-demo/pkg/errors"
)

const keyPrefix = "session:"

// SessionRepository stores sessions as versioned JSON blobs keyed by
// session ID. Expiration rides on Redis key TTLs; reads re-arm the key to
// the full window.
type SessionRepository struct {
	client *goredis.Client
	window time.Duration
	logger *slog.Logger
}

// NewSessionRepository creates a Redis-backed session repository. The window
// is the sliding expiration applied on every read.
func NewSessionRepository(client *goredis.Client, window time.Duration, logger *slog.Logger) *SessionRepository {
	return &SessionRepository{
		client: client,
		window: window,
		logger: logger,
	}
}

func sessionKey(id string) string {
	return keyPrefix + id
}

// Get fetches a session and refreshes its TTL. Corrupted records are purged
// and reported as not found.
func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	key := sessionKey(id)

	// GETEX re-arms the sliding window atomically with the read.
	data, err := r.client.GetEx(ctx, key, r.window).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
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
		if delErr := r.client.Del(ctx, key).Err(); delErr != nil {
			r.logger.ErrorContext(ctx, "failed to purge corrupted session",
				slog.String("session_id", id),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, apperrors.NotFound("session", id)
	}

	return session, nil
}

// Save writes the session and arms its expiration window.
func (r *SessionRepository) Save(ctx context.Context, session *domain.Session, ttl time.Duration) error {
	data, err := repository.EncodeSession(session)
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, sessionKey(session.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", session.ID, err)
	}
	return nil
}

// Delete removes the session. Missing sessions are not an error.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}
