package permtools

import (
	"context"
	"time"

	"github.com/fernandezvara/dbkit"
)

// errNoTransactions is returned when the service was built over a handle that
// cannot open transactions.
func errNoTransactions() error {
	return NewError(ErrDatabaseError, "transaction support requires a dbkit.DBKit or dbkit.Tx instance")
}

// Transaction executes fn within a read-write transaction with automatic
// commit/rollback. fn receives a service bound to the transaction; use it for
// every operation that must share the transaction. Nested calls use savepoints.
//
// Example:
//
//	err := service.Transaction(ctx, func(ctx context.Context, tx *permtools.Service) error {
//	    if _, err := tx.GrantPermissions(ctx, "station.manager", perms); err != nil {
//	        return err // This will cause a rollback
//	    }
//	    _, err := tx.GrantPermissions(ctx, "head.of.music", perms)
//	    return err
//	})
func (s *Service) Transaction(ctx context.Context, fn func(ctx context.Context, tx *Service) error) error {
	return s.transact(ctx, "Transaction", nil, fn)
}

// TransactionWithOptions executes fn within a transaction opened with opts.
// Options are ignored for nested transactions.
func (s *Service) TransactionWithOptions(ctx context.Context, opts dbkit.TxOptions, fn func(ctx context.Context, tx *Service) error) error {
	return s.transact(ctx, "TransactionWithOptions", &opts, fn)
}

// ReadOnlyTransaction executes fn within a read-only transaction, giving every
// read inside it the same consistent view.
func (s *Service) ReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context, tx *Service) error) error {
	return s.transact(ctx, "ReadOnlyTransaction", readOnly(), fn)
}

func readOnly() *dbkit.TxOptions {
	opts := dbkit.ReadOnlyTxOptions()
	return &opts
}

// transact opens the scope, records it under op in the transaction monitor
// and guarantees commit on success and rollback on any error.
func (s *Service) transact(ctx context.Context, op string, opts *dbkit.TxOptions, fn func(ctx context.Context, tx *Service) error) error {
	start := time.Now()
	var err error

	switch db := s.db.(type) {
	case *dbkit.Tx:
		// Already in a transaction, use a savepoint
		err = db.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(ctx, s.withDB(tx))
		})
	case *dbkit.DBKit:
		if opts != nil {
			err = db.TransactionWithOptions(ctx, *opts, func(tx *dbkit.Tx) error {
				return fn(ctx, s.withDB(tx))
			})
		} else {
			err = db.Transaction(ctx, func(tx *dbkit.Tx) error {
				return fn(ctx, s.withDB(tx))
			})
		}
	default:
		err = errNoTransactions()
	}

	s.txMonitor.recordTransaction(op, time.Since(start), err == nil)
	return err
}
