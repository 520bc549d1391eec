package repository

import (
	"context"
	"time"

	"RegimeScan/internal/domain/models"
	domrepo "RegimeScan/internal/domain/repository"
	pkgcache "RegimeScan/pkg/cache"
)

// CachedResultStore keeps the most recent result per series under
// "result:<series>" so readers never have to wait on a sampler run.
type CachedResultStore struct {
	cache pkgcache.Service
	ttl   time.Duration
}

func NewCachedResultStore(cache pkgcache.Service, ttl time.Duration) *CachedResultStore {
	return &CachedResultStore{cache: cache, ttl: ttl}
}

var _ domrepo.ResultCache = (*CachedResultStore)(nil)

func (c *CachedResultStore) SetLatest(ctx context.Context, r *models.AnalysisResult) error {
	return c.cache.Set(ctx, pkgcache.GenerateKey("result", r.Series), r, c.ttl)
}

func (c *CachedResultStore) Latest(ctx context.Context, series string) (*models.AnalysisResult, error) {
	var r models.AnalysisResult
	if err := c.cache.Get(ctx, pkgcache.GenerateKey("result", series), &r); err != nil {
		return nil, err
	}
	return &r, nil
}
