package permtools

import "time"

// GrantAuditFilter provides options for filtering grant audit queries.
type GrantAuditFilter struct {
	// Filter by actor who performed the grant
	ActorID string

	// Filter by role alias as recorded at grant time
	RoleAlias string

	// Filter by time range
	Since time.Time
	Until time.Time

	// Pagination
	Limit  int
	Offset int
}

// DefaultAuditLimit is used when a filter leaves Limit unset.
const DefaultAuditLimit = 100

// NewGrantAuditFilter creates a new GrantAuditFilter with default values.
func NewGrantAuditFilter() GrantAuditFilter {
	return GrantAuditFilter{
		Limit: DefaultAuditLimit,
	}
}

// WithActor sets the actor ID filter.
func (f GrantAuditFilter) WithActor(actorID string) GrantAuditFilter {
	f.ActorID = actorID
	return f
}

// WithRole sets the role alias filter.
func (f GrantAuditFilter) WithRole(alias string) GrantAuditFilter {
	f.RoleAlias = alias
	return f
}

// WithTimeRange sets the time range filter.
func (f GrantAuditFilter) WithTimeRange(since, until time.Time) GrantAuditFilter {
	f.Since = since
	f.Until = until
	return f
}

// WithPagination sets both limit and offset.
func (f GrantAuditFilter) WithPagination(limit, offset int) GrantAuditFilter {
	f.Limit = limit
	f.Offset = offset
	return f
}

func (f GrantAuditFilter) limit() int {
	if f.Limit <= 0 {
		return DefaultAuditLimit
	}
	return f.Limit
}
