package permtools

import (
	"log/slog"

	"github.com/fernandezvara/dbkit"
)

// Service exposes the role/permission queries and the grant operation.
// Every public operation runs in its own transaction scope and returns
// plain values that are not linked to the store.
//
// Error Handling:
// Store errors are wrapped with dbkit's operation context and then
// classified into the permtools sentinels, keeping the original error in
// the chain:
//
//	ids, err := service.GrantPermissions(ctx, "station.manager", perms)
//	switch {
//	case permtools.IsNotFound(err):
//	    // no role with that alias
//	case permtools.IsAmbiguousMatch(err):
//	    // alias collides with another role's alias or name
//	case permtools.IsConnectivity(err):
//	    // store unreachable
//	}
type Service struct {
	db        dbkit.IDB
	logger    *slog.Logger
	txMonitor *transactionMonitor
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger used for grant and failure logs.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a new permtools service over the given store handle.
//
// Example:
//
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	service := permtools.NewService(db, permtools.WithLogger(logger))
func NewService(db dbkit.IDB, opts ...Option) *Service {
	s := &Service{
		db:        db,
		logger:    slog.New(slog.DiscardHandler),
		txMonitor: newTransactionMonitor(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// withDB returns a shallow copy of the service bound to db, sharing the
// logger and transaction monitor.
func (s *Service) withDB(db dbkit.IDB) *Service {
	return &Service{
		db:        db,
		logger:    s.logger,
		txMonitor: s.txMonitor,
	}
}
