package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	perrors "github.com/abgdnv/productcatalog/internal/errors"
	"github.com/abgdnv/productcatalog/internal/store/db"
	"github.com/abgdnv/productcatalog/pkg/config"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore returns err from every lookup and counts the calls that reached it.
// Not thread-safe, should be used in sequential tests only.
type failingStore struct {
	ProductStore
	err   error
	calls int
}

func (f *failingStore) FindByID(_ context.Context, _ int64) (*db.Product, error) {
	f.calls++
	return nil, f.err
}

func newTestBreaker(next ProductStore) *BreakerStore {
	cfg := config.CircuitBreakerConfig{
		Enabled:             true,
		MaxRequests:         1,
		ConsecutiveFailures: 3,
		ErrorRatePercent:    60,
		OpenTimeout:         time.Minute,
	}
	return NewBreakerStore(next, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func Test_BreakerStore_OpensOnStoreFailures(t *testing.T) {
	// given
	inner := &failingStore{err: errors.New("connection refused")}
	breaker := newTestBreaker(inner)

	// when: ConsecutiveFailures > 3 trips the breaker on the 4th failure
	for range 4 {
		_, err := breaker.FindByID(context.Background(), 1)
		require.Error(t, err)
	}
	_, err := breaker.FindByID(context.Background(), 1)

	// then
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 4, inner.calls, "open breaker must not reach the store")
}

func Test_BreakerStore_IgnoresNotFound(t *testing.T) {
	inner := &failingStore{err: perrors.ErrProductNotFound}
	breaker := newTestBreaker(inner)

	for range 10 {
		_, err := breaker.FindByID(context.Background(), 1)
		require.ErrorIs(t, err, perrors.ErrProductNotFound)
	}

	assert.Equal(t, 10, inner.calls)
}

func Test_BreakerStore_PassesResultsThrough(t *testing.T) {
	ctx := context.Background()
	breaker := newTestBreaker(NewInMemoryStore())

	created, err := breaker.Insert(ctx, db.CreateParams{Name: "mug", Price: 4.5})
	require.NoError(t, err)

	found, err := breaker.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, found)

	count, err := breaker.CountAvailable(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
