// Package listing holds the list plumbing shared by the application services:
// concurrent page/count loading, the per-tenant list cache and write-side
// invalidation.
package listing

import (
	"context"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/shared"
	"github.com/ribotflow/backend/internal/infrastructure/cache"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Resource names used as list cache namespaces
const (
	ResourceQuotes    = "quotes"
	ResourceInvoices  = "invoices"
	ResourceExpenses  = "expenses"
	ResourceSuppliers = "suppliers"
	ResourceContacts  = "contacts"
	ResourceAudioJobs = "audio_jobs"
)

// CacheRecorder counts cache hits and misses
type CacheRecorder interface {
	RecordCacheLookup(resource string, hit bool)
}

// FindFunc loads one page of rows
type FindFunc[T any] func(ctx context.Context, q shared.ListQuery) ([]T, error)

// CountFunc counts the rows matching the query filters
type CountFunc func(ctx context.Context, q shared.ListQuery) (int64, error)

// Fetch runs the data and count queries concurrently and assembles the page
func Fetch[T any](ctx context.Context, q shared.ListQuery, find FindFunc[T], count CountFunc) (shared.Page[T], error) {
	q = q.Normalize()

	var (
		rows  []T
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = find(gctx, q)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = count(gctx, q)
		return err
	})
	if err := g.Wait(); err != nil {
		return shared.Page[T]{}, err
	}
	return shared.NewPage(rows, total, q), nil
}

// Lists fronts a list cache. Cache failures are logged and never fail a request.
type Lists struct {
	cache    cache.ListCache
	recorder CacheRecorder
	logger   *zap.Logger
}

// NewLists creates a Lists. A nil cache disables caching.
func NewLists(c cache.ListCache, recorder CacheRecorder, logger *zap.Logger) *Lists {
	if c == nil {
		c = cache.NopListCache{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lists{cache: c, recorder: recorder, logger: logger}
}

// Disabled returns a Lists without a backing cache
func Disabled() *Lists {
	return NewLists(nil, nil, nil)
}

// Cached returns the cached page for (tenant, resource, q) or loads and stores it
func Cached[T any](ctx context.Context, l *Lists, tenantID uuid.UUID, resource string, q shared.ListQuery, load func(ctx context.Context) (shared.Page[T], error)) (shared.Page[T], error) {
	if l == nil {
		return load(ctx)
	}
	key := cache.QueryKey(q.Normalize())

	var cached shared.Page[T]
	gen, hit, readErr := l.cache.Get(ctx, tenantID, resource, key, &cached)
	if readErr != nil {
		l.logger.Warn("List cache read failed",
			zap.String("resource", resource),
			zap.Error(readErr))
	}
	if l.recorder != nil {
		l.recorder.RecordCacheLookup(resource, hit)
	}
	if hit {
		return cached, nil
	}

	// The generation is read before loading: a write that lands in between
	// bumps it and the page below is not stored.
	page, err := load(ctx)
	if err != nil || readErr != nil {
		return page, err
	}
	if err := l.cache.Set(ctx, tenantID, resource, gen, key, page); err != nil {
		l.logger.Warn("List cache write failed",
			zap.String("resource", resource),
			zap.Error(err))
	}
	return page, nil
}

// Invalidate drops the cached pages of the given resources for a tenant
func (l *Lists) Invalidate(ctx context.Context, tenantID uuid.UUID, resources ...string) {
	if l == nil || len(resources) == 0 {
		return
	}
	if err := l.cache.Invalidate(ctx, tenantID, resources...); err != nil {
		l.logger.Warn("List cache invalidation failed",
			zap.Strings("resources", resources),
			zap.Error(err))
	}
}

// Changed runs after a successful write: it publishes the aggregate's pending
// events and invalidates the affected lists. A publishing error is logged,
// the write itself already succeeded.
func (l *Lists) Changed(ctx context.Context, publisher shared.EventPublisher, agg shared.AggregateRoot, tenantID uuid.UUID, resources ...string) {
	if agg != nil {
		if err := shared.PublishAndClear(ctx, publisher, agg); err != nil && l != nil {
			l.logger.Warn("Failed to publish domain events",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err))
		}
	}
	l.Invalidate(ctx, tenantID, resources...)
}
