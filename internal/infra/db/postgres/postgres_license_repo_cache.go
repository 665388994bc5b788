package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"lifeboard/internal/domain/model"
	"lifeboard/internal/domain/ports/repository"
	"lifeboard/internal/infra/metrics"
	red "lifeboard/internal/infra/redis"
)

var _ repository.LicenseRepository = (*licenseRepoCacheDecorator)(nil)

// licenseRepoCacheDecorator caches FindByEmail results. Absent rows are not
// cached, so a first activation is visible immediately.
type licenseRepoCacheDecorator struct {
	inner repository.LicenseRepository
	cache red.RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewLicenseRepoCacheDecorator(inner repository.LicenseRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.LicenseRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &licenseRepoCacheDecorator{
		inner: inner,
		cache: cache,
		ttl:   ttl,
		log:   logger,
	}
}

func licenseKey(email string) string { return fmt.Sprintf("license:email:%s", email) }

// Upsert drops the cached row before the write and again once the write is
// committed. A reader that missed the cache and read the previous row can
// still store it after that; such an entry lives at most one TTL.
func (d *licenseRepoCacheDecorator) Upsert(ctx context.Context, tx repository.Tx, l *model.License) (bool, error) {
	key := licenseKey(l.Email)
	d.invalidate(ctx, key)
	applied, err := d.inner.Upsert(ctx, tx, l)
	if err != nil {
		return applied, err
	}
	afterCommit(ctx, func() { d.invalidate(context.WithoutCancel(ctx), key) })
	return applied, nil
}

func (d *licenseRepoCacheDecorator) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.License, error) {
	// Locked reads inside a transaction must hit the database.
	if tx != nil {
		metrics.IncCacheRequest("license", "bypass")
		return d.inner.FindByEmail(ctx, tx, email)
	}

	key := licenseKey(email)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var lic model.License
		if json.Unmarshal([]byte(val), &lic) == nil {
			metrics.IncCacheRequest("license", "hit")
			return &lic, nil
		}
	} else if err != redis.Nil && d.log != nil {
		d.log.Warn().Err(err).Msg("license cache read failed")
	}

	metrics.IncCacheRequest("license", "miss")
	lic, err := d.inner.FindByEmail(ctx, tx, email)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(lic); err == nil {
		_ = d.cache.Set(ctx, key, b, d.ttl)
	}
	return lic, nil
}

func (d *licenseRepoCacheDecorator) invalidate(ctx context.Context, key string) {
	if err := d.cache.Del(ctx, key); err != nil && d.log != nil {
		d.log.Warn().Err(err).Str("key", key).Msg("license cache invalidation failed")
	}
}
