package repository

import (
	"context"

	"lifeboard/internal/domain/model"
)

// -----------------------------
// Licenses
// -----------------------------

type LicenseRepository interface {
	// Upsert creates or updates the row keyed by email. It reports applied=false
	// when the stored row carries a newer provider event time than l.LastEventAt.
	Upsert(ctx context.Context, tx Tx, l *model.License) (applied bool, err error)
	// FindByEmail returns domain.ErrNotFound when no row exists.
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.License, error)
}
