package memory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/as10896/saga-demo/internal/domain"
	apperrors "github.com/as10896/saga-demo/pkg/errors"
)

func newTestRepo() *SessionRepository {
	return NewSessionRepository(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSessionRepositorySaveAndGet(t *testing.T) {
	repo := newTestRepo()
	ctx := context.Background()

	sess := domain.NewSession("sess-1")
	sess.Inventory["product_2"] = 45

	require.NoError(t, repo.Save(ctx, sess, time.Hour))

	got, err := repo.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 45, got.Inventory["product_2"])
}

func TestSessionRepositoryGetNotFound(t *testing.T) {
	repo := newTestRepo()

	_, err := repo.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestSessionRepositorySlidingExpiration(t *testing.T) {
	repo := newTestRepo()
	ctx := context.Background()

	clock := time.Now()
	repo.now = func() time.Time { return clock }

	sess := domain.NewSession("sess-1")
	require.NoError(t, repo.Save(ctx, sess, time.Hour))

	// A read 50 minutes in re-arms the window.
	clock = clock.Add(50 * time.Minute)
	_, err := repo.Get(ctx, "sess-1")
	require.NoError(t, err)

	// 50 more minutes is still inside the refreshed window.
	clock = clock.Add(50 * time.Minute)
	_, err = repo.Get(ctx, "sess-1")
	require.NoError(t, err)

	// But 61 minutes of silence expires it.
	clock = clock.Add(61 * time.Minute)
	_, err = repo.Get(ctx, "sess-1")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestSessionRepositoryDelete(t *testing.T) {
	repo := newTestRepo()
	ctx := context.Background()

	sess := domain.NewSession("sess-1")
	require.NoError(t, repo.Save(ctx, sess, time.Hour))
	require.NoError(t, repo.Delete(ctx, "sess-1"))

	_, err := repo.Get(ctx, "sess-1")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, repo.Delete(ctx, "sess-1"))
}
