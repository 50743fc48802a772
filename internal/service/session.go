package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/as10896/saga-demo/internal/domain"
	"github.com/as10896/saga-demo/internal/repository"
	apperrors "github.com/as10896/saga-demo/pkg/errors"
)

// DefaultSessionTTL is the sliding expiration window applied to sessions
// when no explicit timeout is configured.
const DefaultSessionTTL = time.Hour

// SessionStore manages session lifecycle on top of a SessionRepository.
// Every visitor gets an isolated session seeded with default mock resources.
type SessionStore struct {
	repo   repository.SessionRepository
	ttl    time.Duration
	logger *slog.Logger
}

// NewSessionStore creates a session store. A non-positive ttl falls back to
// DefaultSessionTTL.
func NewSessionStore(repo repository.SessionRepository, ttl time.Duration, logger *slog.Logger) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{
		repo:   repo,
		ttl:    ttl,
		logger: logger,
	}
}

// newSessionID returns an unguessable URL-safe session identifier.
func newSessionID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Create allocates a new session seeded with default resources and persists it.
func (s *SessionStore) Create(ctx context.Context) (*domain.Session, error) {
	id, err := newSessionID()
	if err != nil {
		return nil, err
	}

	session := domain.NewSession(id)
	if err := s.repo.Save(ctx, session, s.ttl); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "session created", slog.String("session_id", id))
	return session, nil
}

// Get returns an existing session, refreshing its expiration window.
func (s *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	return s.repo.Get(ctx, id)
}

// GetOrCreate returns the session with the given ID if it is still live,
// otherwise it creates a fresh one. An empty ID always creates.
func (s *SessionStore) GetOrCreate(ctx context.Context, id string) (*domain.Session, error) {
	if id != "" {
		session, err := s.repo.Get(ctx, id)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
	}
	return s.Create(ctx)
}

// Save persists the session, re-arming its expiration window.
func (s *SessionStore) Save(ctx context.Context, session *domain.Session) error {
	return s.repo.Save(ctx, session, s.ttl)
}

// Reset clears the session's orders and sagas and reseeds its mock resources.
// The session keeps its identity.
func (s *SessionStore) Reset(ctx context.Context, id string) (*domain.Session, error) {
	session, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	session.ResetResources()
	if err := s.repo.Save(ctx, session, s.ttl); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "session resources reset", slog.String("session_id", id))
	return session, nil
}

// Delete removes the session entirely.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
