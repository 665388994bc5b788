//go:build !integration

package api

import (
	"context"
	"io"
	"sync"
	"time"

	"lifeboard/internal/domain"
	"lifeboard/internal/domain/model"
	"lifeboard/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// memLicenseRepo mirrors the Postgres upsert: one row per email, purchase id
// and event time are kept when the new event omits them, older events lose.
type memLicenseRepo struct {
	mu        sync.Mutex
	rows      map[string]model.License
	upsertErr error
	findErr   error
}

func newMemLicenseRepo() *memLicenseRepo {
	return &memLicenseRepo{rows: map[string]model.License{}}
}

func (m *memLicenseRepo) Upsert(ctx context.Context, tx repository.Tx, l *model.License) (bool, error) {
	if m.upsertErr != nil {
		return false, m.upsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.rows[l.Email]
	if !ok {
		m.rows[l.Email] = *l
		return true, nil
	}
	if prev.LastEventAt != nil && l.LastEventAt != nil && l.LastEventAt.Before(*prev.LastEventAt) {
		return false, nil
	}
	next := *l
	next.CreatedAt = prev.CreatedAt
	if next.ExternalPurchaseID == nil {
		next.ExternalPurchaseID = prev.ExternalPurchaseID
	}
	if next.LastEventAt == nil {
		next.LastEventAt = prev.LastEventAt
	}
	next.UpdatedAt = time.Now().UTC()
	m.rows[l.Email] = next
	return true, nil
}

func (m *memLicenseRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.License, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.rows[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &l, nil
}

func (m *memLicenseRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type mockTxManager struct{}

func (mockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, repository.NoTX)
}

type stubLimiter struct {
	mu   sync.Mutex
	hits map[string]int
	err  error
}

func (s *stubLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hits == nil {
		s.hits = map[string]int{}
	}
	s.hits[key]++
	return s.hits[key] <= limit, nil
}

// recordingProvisioner counts EnsureUser calls and reports already_exists for
// repeated emails.
type recordingProvisioner struct {
	mu    sync.Mutex
	seen  map[string]int
	calls int
}

func (p *recordingProvisioner) Name() string { return "recording" }

func (p *recordingProvisioner) EnsureUser(ctx context.Context, email string) (model.ProvisionResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seen == nil {
		p.seen = map[string]int{}
	}
	p.calls++
	p.seen[email]++
	if p.seen[email] > 1 {
		return model.ProvisionAlreadyExists, nil
	}
	return model.ProvisionCreated, nil
}

func (p *recordingProvisioner) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}
