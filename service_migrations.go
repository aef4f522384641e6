package permtools

import (
	"context"

	"github.com/fernandezvara/dbkit"
)

// MigrationService provides migration management functionality as an extension to Service
type MigrationService struct {
	*Service
}

// NewMigrationService creates a new migration service extension
func NewMigrationService(service *Service) *MigrationService {
	return &MigrationService{Service: service}
}

// MigrationStatus summarises a migration run.
type MigrationStatus struct {
	Applied []string
}

// Migrations returns the schema migrations permtools needs. Existing
// deployments already carry the officer/permission/member tables; every
// statement is idempotent so running them there only adds what is missing.
func (ms *MigrationService) Migrations() []dbkit.Migration {
	return []dbkit.Migration{
		{
			ID:          "permtools-001",
			Description: "Create l_action (permission) table",
			SQL: `
                CREATE TABLE IF NOT EXISTS l_action (
                    typeid SERIAL PRIMARY KEY,
                    descr VARCHAR(255) NOT NULL,
                    phpconstant VARCHAR(100) NOT NULL
                )`,
		},
		{
			ID:          "permtools-002",
			Description: "Create officer (role) table",
			SQL: `
                CREATE TABLE IF NOT EXISTS officer (
                    officerid SERIAL PRIMARY KEY,
                    officer_name VARCHAR(255) NOT NULL,
                    officer_alias VARCHAR(255),
                    teamid INTEGER,
                    ordering SMALLINT,
                    descr VARCHAR(255),
                    status CHAR(1),
                    type CHAR(1)
                )`,
		},
		{
			ID:          "permtools-003",
			Description: "Create auth_officer (role grant) table",
			SQL: `
                CREATE TABLE IF NOT EXISTS auth_officer (
                    officerid INTEGER NOT NULL REFERENCES officer (officerid),
                    lookupid INTEGER NOT NULL REFERENCES l_action (typeid)
                )`,
		},
		{
			ID:          "permtools-004",
			Description: "Create member (person) table",
			SQL: `
                CREATE TABLE IF NOT EXISTS member (
                    memberid SERIAL PRIMARY KEY,
                    fname VARCHAR(255) NOT NULL,
                    sname VARCHAR(255) NOT NULL
                )`,
		},
		{
			ID:          "permtools-005",
			Description: "Create member_officer (role occupancy) table",
			SQL: `
                CREATE TABLE IF NOT EXISTS member_officer (
                    member_officerid SERIAL PRIMARY KEY,
                    officerid INTEGER NOT NULL REFERENCES officer (officerid),
                    memberid INTEGER NOT NULL REFERENCES member (memberid),
                    from_date DATE,
                    till_date DATE
                )`,
		},
		{
			ID:          "permtools-006",
			Description: "Collapse duplicate auth_officer rows",
			SQL: `
                DELETE FROM auth_officer a
                USING auth_officer b
                WHERE a.ctid < b.ctid
                  AND a.officerid = b.officerid
                  AND a.lookupid = b.lookupid`,
		},
		{
			ID:          "permtools-007",
			Description: "Unique (officerid, lookupid) on auth_officer",
			SQL: `
                CREATE UNIQUE INDEX IF NOT EXISTS auth_officer_officerid_lookupid_key
                ON auth_officer (officerid, lookupid)`,
		},
		{
			ID:          "permtools-008",
			Description: "Create permtools_grant_audit table",
			SQL: `
                CREATE TABLE IF NOT EXISTS permtools_grant_audit (
                    id BIGSERIAL PRIMARY KEY,
                    timestamp TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    actor_id TEXT NOT NULL,
                    role_id INTEGER NOT NULL,
                    role_alias TEXT NOT NULL,
                    permission_ids INTEGER[] NOT NULL,
                    request_id TEXT
                )`,
		},
	}
}

// RunMigrations applies every pending migration.
func (ms *MigrationService) RunMigrations(ctx context.Context) (*MigrationStatus, error) {
	db, ok := ms.db.(*dbkit.DBKit)
	if !ok {
		return nil, NewError(ErrDatabaseError, "migrations require a dbkit.DBKit instance").WithOp("RunMigrations")
	}

	result, err := db.Migrate(ctx, ms.Migrations())
	if err != nil {
		return nil, classifyError("RunMigrations", err)
	}

	status := &MigrationStatus{Applied: make([]string, 0, len(result.Applied))}
	for _, m := range result.Applied {
		status.Applied = append(status.Applied, m.ID)
	}
	return status, nil
}
