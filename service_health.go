package permtools

import (
	"context"

	"github.com/fernandezvara/dbkit"
)

// HealthService provides health monitoring functionality as an extension to Service
type HealthService struct {
	*Service
}

// NewHealthService creates a new health service extension
func NewHealthService(service *Service) *HealthService {
	return &HealthService{Service: service}
}

// Health performs a health check of the database connection, including
// latency and pool statistics when the handle supports them.
func (hs *HealthService) Health(ctx context.Context) dbkit.HealthStatus {
	if db, ok := hs.db.(*dbkit.DBKit); ok {
		return db.Health(ctx)
	}

	// In a transaction or a different handle type, fall back to a ping
	return dbkit.HealthStatus{Healthy: hs.IsHealthy(ctx)}
}

// IsHealthy reports whether the database is reachable.
func (hs *HealthService) IsHealthy(ctx context.Context) bool {
	if db, ok := hs.db.(*dbkit.DBKit); ok {
		return db.IsHealthy(ctx)
	}
	return hs.Ping(ctx) == nil
}

// GetPoolStats returns connection pool statistics for monitoring.
// Returns zero values if the database instance doesn't support pool statistics.
func (hs *HealthService) GetPoolStats() dbkit.PoolStats {
	if db, ok := hs.db.(*dbkit.DBKit); ok {
		return dbkit.PoolStatsFromSQL(db.Stats())
	}
	return dbkit.PoolStats{}
}

// Ping runs a trivial query against the store.
func (hs *HealthService) Ping(ctx context.Context) error {
	if hs.db == nil {
		return NewError(ErrConnectivity, "no database handle").WithOp("Ping")
	}
	var result int
	err := dbkit.WithErr1(hs.db.NewRaw("SELECT 1").Scan(ctx, &result), "Ping").Err()
	return classifyError("Ping", err)
}
