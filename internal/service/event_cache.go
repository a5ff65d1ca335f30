package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-billing-api/internal/models"
	appErrors "github.com/noah-isme/campus-billing-api/pkg/errors"
)

// CachedEventRegistry keeps event cost lookups in Redis. Enrollment checks always hit the registry.
type CachedEventRegistry struct {
	registry eventRegistry
	cache    cacheStore
	ttl      time.Duration
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewCachedEventRegistry wraps registry with a read-through cache.
func NewCachedEventRegistry(registry eventRegistry, cache cacheStore, ttl time.Duration, metrics *MetricsService, logger *zap.Logger) *CachedEventRegistry {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedEventRegistry{registry: registry, cache: cache, ttl: ttl, metrics: metrics, logger: logger}
}

// FindEvent returns the cached event costs, loading them on a miss.
func (r *CachedEventRegistry) FindEvent(ctx context.Context, eventID string) (*models.EventCosts, error) {
	key := "event:" + eventID
	start := time.Now()

	var cached models.EventCosts
	err := r.cache.Get(ctx, key, &cached)
	if err == nil {
		r.metrics.RecordCacheOperation(true, time.Since(start))
		return &cached, nil
	}
	if !errors.Is(err, appErrors.ErrCacheMiss) {
		r.logger.Warn("event cache read failed", zap.String("event_id", eventID), zap.Error(err))
	}
	r.metrics.RecordCacheOperation(false, time.Since(start))

	event, err := r.registry.FindEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	writeStart := time.Now()
	if err := r.cache.Set(ctx, key, event, r.ttl); err != nil {
		r.logger.Warn("event cache write failed", zap.String("event_id", eventID), zap.Error(err))
	}
	r.metrics.ObserveCacheWrite(time.Since(writeStart))
	return event, nil
}

// IsEnrolled delegates to the registry.
func (r *CachedEventRegistry) IsEnrolled(ctx context.Context, studentID, eventID string) (bool, error) {
	return r.registry.IsEnrolled(ctx, studentID, eventID)
}
