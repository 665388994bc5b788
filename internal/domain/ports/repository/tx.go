package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager executes fn within a database transaction and passes the
// underlying handle through tx. The concrete type is infra-defined (pgx.Tx for
// Postgres). Repositories must accept a nil tx and fall back to the pool.
//
//	tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx Tx) error {
//		l, err := licenses.FindByEmail(ctx, tx, email)
//		...
//		return err
//	})
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
