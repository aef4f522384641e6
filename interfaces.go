package permtools

import (
	"context"
	"time"

	"github.com/fernandezvara/dbkit"
)

// Querier is the read-only side of the Service.
type Querier interface {
	ListRoles(ctx context.Context) ([]RoleListing, error)
	ListPermissions(ctx context.Context) ([]PermissionListing, error)
	PermissionsForRoles(ctx context.Context, identifiers []string) ([]string, error)
	RolesForPeople(ctx context.Context, fullNames []string) ([]OccupancyRecord, error)
	RoleByAlias(ctx context.Context, alias string) (*RoleWithPermissions, error)
	OccupantsOfRoles(ctx context.Context, identifiers []string, asOf time.Time) ([]OccupancyRecord, error)
	GetGrantAudit(ctx context.Context, filter GrantAuditFilter) ([]GrantAudit, error)
}

// Granter is the mutating side of the Service.
type Granter interface {
	GrantPermissions(ctx context.Context, roleAlias string, shortNames []string) ([]int64, error)
}

// TransactionManager defines the transaction management interface
type TransactionManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context, tx *Service) error) error
	TransactionWithOptions(ctx context.Context, opts dbkit.TxOptions, fn func(ctx context.Context, tx *Service) error) error
	ReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context, tx *Service) error) error
}

// MigrationManager defines the migration management interface
type MigrationManager interface {
	Migrations() []dbkit.Migration
	RunMigrations(ctx context.Context) (*MigrationStatus, error)
}

// HealthMonitor defines the health monitoring interface
type HealthMonitor interface {
	Health(ctx context.Context) dbkit.HealthStatus
	IsHealthy(ctx context.Context) bool
	Ping(ctx context.Context) error
	GetPoolStats() dbkit.PoolStats
}

// PoolManager defines the connection pool management interface
type PoolManager interface {
	ConfigureConnectionPool(config PoolConfig) error
	ResetConnectionPool() error
}

// TransactionMonitor defines the transaction monitoring interface
type TransactionMonitor interface {
	GetTransactionMetrics() TransactionMetrics
	ResetTransactionMetrics()
	IsTransactionHealthy() bool
}

var (
	_ Querier            = (*Service)(nil)
	_ Granter            = (*Service)(nil)
	_ TransactionManager = (*Service)(nil)
	_ TransactionMonitor = (*Service)(nil)
	_ MigrationManager   = (*MigrationService)(nil)
	_ HealthMonitor      = (*HealthService)(nil)
	_ PoolManager        = (*PoolService)(nil)
)
