package permtools

import (
	"context"
	"time"

	"github.com/fernandezvara/dbkit"
	"github.com/uptrace/bun"
)

// ============================================================================
// LISTINGS
// ============================================================================

// ListRoles returns every role ordered by status, then type, then name.
// Absent aliases and descriptions are returned as empty strings.
func (s *Service) ListRoles(ctx context.Context) ([]RoleListing, error) {
	var roles []Role
	err := s.transact(ctx, "ListRoles", readOnly(), func(ctx context.Context, tx *Service) error {
		return dbkit.WithErr1(tx.db.NewSelect().
			Model(&roles).
			Order("o.status ASC", "o.type ASC", "o.officer_name ASC").
			Scan(ctx), "ListRoles").Err()
	})
	if err != nil {
		return nil, classifyError("ListRoles", err)
	}

	listings := make([]RoleListing, 0, len(roles))
	for _, r := range roles {
		listings = append(listings, newRoleListing(r))
	}
	return listings, nil
}

// ListPermissions returns every permission ordered by short name.
func (s *Service) ListPermissions(ctx context.Context) ([]PermissionListing, error) {
	var perms []Permission
	err := s.transact(ctx, "ListPermissions", readOnly(), func(ctx context.Context, tx *Service) error {
		return dbkit.WithErr1(tx.db.NewSelect().
			Model(&perms).
			Order("p.phpconstant ASC").
			Scan(ctx), "ListPermissions").Err()
	})
	if err != nil {
		return nil, classifyError("ListPermissions", err)
	}

	listings := make([]PermissionListing, 0, len(perms))
	for _, p := range perms {
		listings = append(listings, PermissionListing{ShortName: p.ShortName, Description: p.Description})
	}
	return listings, nil
}

// ============================================================================
// ROLE PERMISSIONS
// ============================================================================

// PermissionsForRoles returns the sorted, de-duplicated short names of every
// permission granted to any of the given roles.
//
// An identifier matches a role by alias or by name. Roles without an alias
// can only be reached by name, so both are accepted; an alias equal to an
// unrelated role's name will match both roles. Pass identifiers that are
// unique in your deployment.
func (s *Service) PermissionsForRoles(ctx context.Context, identifiers []string) ([]string, error) {
	names := make([]string, 0)
	if len(identifiers) == 0 {
		return names, nil
	}

	err := s.transact(ctx, "PermissionsForRoles", readOnly(), func(ctx context.Context, tx *Service) error {
		return dbkit.WithErr1(tx.db.NewSelect().
			TableExpr("l_action AS p").
			ColumnExpr("DISTINCT p.phpconstant").
			Join("JOIN auth_officer AS ao ON ao.lookupid = p.typeid").
			Join("JOIN officer AS o ON o.officerid = ao.officerid").
			Where("o.officer_alias IN (?) OR o.officer_name IN (?)", bun.In(identifiers), bun.In(identifiers)).
			OrderExpr("p.phpconstant ASC").
			Scan(ctx, &names), "PermissionsForRoles").Err()
	})
	if err != nil {
		return nil, classifyError("PermissionsForRoles", err)
	}
	return names, nil
}

// RoleByAlias returns the single role matching alias together with the
// permissions it holds, ordered by short name. Both are read in one
// read-only transaction.
func (s *Service) RoleByAlias(ctx context.Context, alias string) (*RoleWithPermissions, error) {
	var result *RoleWithPermissions
	err := s.transact(ctx, "RoleByAlias", readOnly(), func(ctx context.Context, tx *Service) error {
		role, err := tx.resolveRole(ctx, alias)
		if err != nil {
			return err
		}

		perms, err := tx.permissionsOf(ctx, role.ID)
		if err != nil {
			return err
		}

		result = &RoleWithPermissions{Role: *role, Permissions: perms}
		return nil
	})
	if err != nil {
		return nil, classifyError("RoleByAlias", err)
	}
	return result, nil
}

// ============================================================================
// OCCUPANCY
// ============================================================================

const occupancySelect = `
SELECT m.fname || ' ' || m.sname AS full_name,
       m.memberid,
       mo.member_officerid,
       o.officer_alias,
       o.officer_name,
       mo.from_date,
       mo.till_date
FROM member AS m
JOIN member_officer AS mo ON mo.memberid = m.memberid
JOIN officer AS o ON o.officerid = mo.officerid`

const occupancyOrder = `
ORDER BY full_name ASC, mo.from_date ASC NULLS FIRST, mo.member_officerid ASC`

// RolesForPeople returns every occupancy, past and current, of every person
// whose full name ("First Last") exactly matches one of fullNames.
//
// Full names are not unique: two people sharing a name are both returned,
// distinguished only by PersonID.
func (s *Service) RolesForPeople(ctx context.Context, fullNames []string) ([]OccupancyRecord, error) {
	if len(fullNames) == 0 {
		return []OccupancyRecord{}, nil
	}

	var rows []occupancyRow
	err := s.transact(ctx, "RolesForPeople", readOnly(), func(ctx context.Context, tx *Service) error {
		return dbkit.WithErr1(tx.db.NewRaw(
			occupancySelect+`
WHERE m.fname || ' ' || m.sname IN (?)`+occupancyOrder,
			bun.In(fullNames),
		).Scan(ctx, &rows), "RolesForPeople").Err()
	})
	if err != nil {
		return nil, classifyError("RolesForPeople", err)
	}
	return toRecords(rows), nil
}

// OccupantsOfRoles returns the occupancies of the given roles whose tenure
// covers asOf. Role identifiers match by alias or name, as in
// PermissionsForRoles.
func (s *Service) OccupantsOfRoles(ctx context.Context, identifiers []string, asOf time.Time) ([]OccupancyRecord, error) {
	if len(identifiers) == 0 {
		return []OccupancyRecord{}, nil
	}

	var rows []occupancyRow
	err := s.transact(ctx, "OccupantsOfRoles", readOnly(), func(ctx context.Context, tx *Service) error {
		return dbkit.WithErr1(tx.db.NewRaw(
			occupancySelect+`
WHERE (o.officer_alias IN (?) OR o.officer_name IN (?))
  AND (mo.from_date IS NULL OR mo.from_date <= ?)
  AND (mo.till_date IS NULL OR mo.till_date > ?)`+occupancyOrder,
			bun.In(identifiers), bun.In(identifiers), asOf, asOf,
		).Scan(ctx, &rows), "OccupantsOfRoles").Err()
	})
	if err != nil {
		return nil, classifyError("OccupantsOfRoles", err)
	}
	return toRecords(rows), nil
}

func toRecords(rows []occupancyRow) []OccupancyRecord {
	records := make([]OccupancyRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.toRecord())
	}
	return records
}

// ============================================================================
// AUDIT LOG
// ============================================================================

// GetGrantAudit retrieves grant audit entries, newest first.
func (s *Service) GetGrantAudit(ctx context.Context, filter GrantAuditFilter) ([]GrantAudit, error) {
	var logs []GrantAudit
	err := s.transact(ctx, "GetGrantAudit", readOnly(), func(ctx context.Context, tx *Service) error {
		q := tx.db.NewSelect().Model(&logs)
		if filter.ActorID != "" {
			q = q.Where("actor_id = ?", filter.ActorID)
		}
		if filter.RoleAlias != "" {
			q = q.Where("role_alias = ?", filter.RoleAlias)
		}
		if !filter.Since.IsZero() {
			q = q.Where("timestamp >= ?", filter.Since)
		}
		if !filter.Until.IsZero() {
			q = q.Where("timestamp <= ?", filter.Until)
		}

		q = q.Limit(filter.limit())
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}

		q = q.Order("timestamp DESC", "id DESC")
		return dbkit.WithErr1(q.Scan(ctx), "GetGrantAudit").Err()
	})
	if err != nil {
		return nil, classifyError("GetGrantAudit", err)
	}
	return logs, nil
}
