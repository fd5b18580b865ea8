package merge

import (
	"context"
	"database/sql"
	"time"

	dErrors "dojotrack/pkg/domain-errors"
	txcontext "dojotrack/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

// PostgresTx runs merge work inside a database transaction. The transaction
// rides the context, so the postgres stores pick it up through their execer.
type PostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgresTx(db *sql.DB) *PostgresTx {
	return &PostgresTx{db: db}
}

func (t *PostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}
	return tx.Commit()
}

// NopTx runs fn directly, with no transactional boundary. The in-memory
// stores are not transactional anyway.
type NopTx struct{}

func (NopTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var (
	_ TxRunner = (*PostgresTx)(nil)
	_ TxRunner = NopTx{}
)
