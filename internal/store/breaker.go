package store

import (
	"context"
	"errors"
	"log/slog"

	perrors "github.com/abgdnv/productcatalog/internal/errors"
	"github.com/abgdnv/productcatalog/internal/store/db"
	"github.com/abgdnv/productcatalog/pkg/config"
	"github.com/sony/gobreaker/v2"
)

var _ ProductStore = (*BreakerStore)(nil)

// BreakerStore guards another ProductStore with a circuit breaker.
// While the breaker is open calls fail fast with gobreaker.ErrOpenState.
type BreakerStore struct {
	next ProductStore
	cb   *gobreaker.CircuitBreaker[any]
}

// NewBreakerStore wraps next. The breaker trips after more than ConsecutiveFailures failures in a row,
// or when the failure ratio exceeds ErrorRatePercent once more than ConsecutiveFailures calls were made.
func NewBreakerStore(next ProductStore, cfg config.CircuitBreakerConfig, logger *slog.Logger) *BreakerStore {
	st := gobreaker.Settings{
		Name:        "product-store",
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			total := counts.TotalSuccesses + counts.TotalFailures
			return counts.ConsecutiveFailures > cfg.ConsecutiveFailures ||
				(total > cfg.ConsecutiveFailures &&
					float64(counts.TotalFailures)/float64(total)*100 > float64(cfg.ErrorRatePercent))
		},
		IsSuccessful: isStoreSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}
	return &BreakerStore{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[any](st),
	}
}

// isStoreSuccess reports whether err says nothing about the health of the store.
// Missing rows and caller cancellations do not count as failures.
func isStoreSuccess(err error) bool {
	return err == nil ||
		errors.Is(err, perrors.ErrProductNotFound) ||
		errors.Is(err, context.Canceled)
}

// guard runs fn through the breaker, keeping fn's typed result.
func guard[T any](cb *gobreaker.CircuitBreaker[any], fn func() (T, error)) (T, error) {
	var out T
	_, err := cb.Execute(func() (any, error) {
		var err error
		out, err = fn()
		return nil, err
	})
	return out, err
}

func (b *BreakerStore) Insert(ctx context.Context, params db.CreateParams) (*db.Product, error) {
	return guard(b.cb, func() (*db.Product, error) { return b.next.Insert(ctx, params) })
}

func (b *BreakerStore) CountAvailable(ctx context.Context) (int64, error) {
	return guard(b.cb, func() (int64, error) { return b.next.CountAvailable(ctx) })
}

func (b *BreakerStore) FindPage(ctx context.Context, offset, limit int64) ([]db.Product, error) {
	return guard(b.cb, func() ([]db.Product, error) { return b.next.FindPage(ctx, offset, limit) })
}

func (b *BreakerStore) FindByID(ctx context.Context, id int64) (*db.Product, error) {
	return guard(b.cb, func() (*db.Product, error) { return b.next.FindByID(ctx, id) })
}

func (b *BreakerStore) FindByIDs(ctx context.Context, ids []int64) ([]db.Product, error) {
	return guard(b.cb, func() ([]db.Product, error) { return b.next.FindByIDs(ctx, ids) })
}

func (b *BreakerStore) ReplaceFields(ctx context.Context, id int64, patch db.Patch) (*db.Product, error) {
	return guard(b.cb, func() (*db.Product, error) { return b.next.ReplaceFields(ctx, id, patch) })
}
