//go:build !integration

package postgres

import (
	"context"
	"time"

	"lifeboard/internal/domain/model"
	"lifeboard/internal/domain/ports/repository"
	red "lifeboard/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerLicenseRepo mocks the database repository that the License decorator wraps.
type mockInnerLicenseRepo struct {
	UpsertFunc      func(ctx context.Context, tx repository.Tx, l *model.License) (bool, error)
	FindByEmailFunc func(ctx context.Context, tx repository.Tx, email string) (*model.License, error)
}

func (m *mockInnerLicenseRepo) Upsert(ctx context.Context, tx repository.Tx, l *model.License) (bool, error) {
	return m.UpsertFunc(ctx, tx, l)
}
func (m *mockInnerLicenseRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.License, error) {
	return m.FindByEmailFunc(ctx, tx, email)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc    func(ctx context.Context, key string) (string, error)
	SetFunc    func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc    func(ctx context.Context, keys ...string) error
	PingFunc   func(ctx context.Context) error
	IncrFunc   func(ctx context.Context, key string) (int64, error)
	ExpireFunc func(ctx context.Context, key string, expiration time.Duration) error
	CloseFunc  func() error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc == nil {
		return nil
	}
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	if m.DelFunc == nil {
		return nil
	}
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return m.PingFunc(ctx) }
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return m.IncrFunc(ctx, key)
}
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return m.ExpireFunc(ctx, key, expiration)
}
func (m *mockRedisClient) Close() error { return m.CloseFunc() }
