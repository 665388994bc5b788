//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"lifeboard/internal/domain"
	"lifeboard/internal/domain/model"
	"lifeboard/internal/domain/ports/adapter"
	"lifeboard/internal/domain/ports/repository"
)

// =============================
// Repositories
// =============================

// MockLicenseRepo keeps rows in memory and applies the same merge rules as the
// SQL upsert. Func fields override the default behavior.
type MockLicenseRepo struct {
	mu   sync.Mutex
	rows map[string]model.License

	UpsertFunc      func(ctx context.Context, tx repository.Tx, l *model.License) (bool, error)
	FindByEmailFunc func(ctx context.Context, tx repository.Tx, email string) (*model.License, error)

	UpsertCalls int
	LastTx      repository.Tx
}

var _ repository.LicenseRepository = (*MockLicenseRepo)(nil)

func NewMockLicenseRepo() *MockLicenseRepo {
	return &MockLicenseRepo{rows: make(map[string]model.License)}
}

func (m *MockLicenseRepo) Upsert(ctx context.Context, tx repository.Tx, l *model.License) (bool, error) {
	m.mu.Lock()
	m.UpsertCalls++
	m.LastTx = tx
	m.mu.Unlock()
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, tx, l)
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

func (m *MockLicenseRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.License, error) {
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(ctx, tx, email)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.rows[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &l, nil
}

func (m *MockLicenseRepo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// =============================
// Adapters
// =============================

type MockProvisioner struct {
	mu     sync.Mutex
	Emails []string

	EnsureUserFunc func(ctx context.Context, email string) (model.ProvisionResult, error)
}

var _ adapter.IdentityProvisioner = (*MockProvisioner)(nil)

func (m *MockProvisioner) Name() string { return "mock" }

func (m *MockProvisioner) EnsureUser(ctx context.Context, email string) (model.ProvisionResult, error) {
	m.mu.Lock()
	m.Emails = append(m.Emails, email)
	m.mu.Unlock()
	if m.EnsureUserFunc != nil {
		return m.EnsureUserFunc(ctx, email)
	}
	return model.ProvisionCreated, nil
}

func (m *MockProvisioner) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Emails)
}

// =============================
// Transactions
// =============================

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs fn immediately with NoTX unless WithTxFunc is set.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// newTestLogger writes to io.Discard to keep test output clean.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
