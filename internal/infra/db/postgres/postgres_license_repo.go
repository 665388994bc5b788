package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"lifeboard/internal/domain"
	"lifeboard/internal/domain/model"
	"lifeboard/internal/domain/ports/repository"
)

var _ repository.LicenseRepository = (*licenseRepo)(nil)

type licenseRepo struct{ pool *pgxpool.Pool }

func NewLicenseRepo(pool *pgxpool.Pool) *licenseRepo {
	return &licenseRepo{pool: pool}
}

// Upsert is a single statement so concurrent redeliveries for one email are
// resolved by Postgres (last write wins). The WHERE clause skips events older
// than the stored last_event_at; when either side has no event time the write applies.
func (r *licenseRepo) Upsert(ctx context.Context, tx repository.Tx, l *model.License) (bool, error) {
	if l == nil || l.Email == "" {
		return false, domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO licenses (
  email, status, external_purchase_id, last_event_status, last_event_type, last_event_at, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8
) ON CONFLICT (email) DO UPDATE SET
  status=EXCLUDED.status,
  external_purchase_id=COALESCE(EXCLUDED.external_purchase_id, licenses.external_purchase_id),
  last_event_status=EXCLUDED.last_event_status,
  last_event_type=EXCLUDED.last_event_type,
  last_event_at=COALESCE(EXCLUDED.last_event_at, licenses.last_event_at),
  updated_at=EXCLUDED.updated_at
WHERE licenses.last_event_at IS NULL
   OR EXCLUDED.last_event_at IS NULL
   OR EXCLUDED.last_event_at >= licenses.last_event_at;`

	cmd, err := execSQL(ctx, r.pool, tx, q,
		l.Email, string(l.Status), l.ExternalPurchaseID, l.LastEventStatus, l.LastEventType, l.LastEventAt, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return false, err
		}
		return false, fmt.Errorf("%w: %v", domain.ErrOperationFailed, err)
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *licenseRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.License, error) {
	q := `SELECT email, status, external_purchase_id, last_event_status, last_event_type, last_event_at, created_at, updated_at FROM licenses WHERE email=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, email)
	if err != nil {
		return nil, err
	}

	l := &model.License{}
	var status string
	if err := row.Scan(&l.Email, &status, &l.ExternalPurchaseID, &l.LastEventStatus, &l.LastEventType, &l.LastEventAt, &l.CreatedAt, &l.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	l.Status = model.LicenseStatus(status)
	return l, nil
}
