package permtools

import (
	"context"

	"github.com/fernandezvara/dbkit"
)

// ============================================================================
// INTERNAL HELPERS
// ============================================================================

// resolveRole returns the one role whose alias or name is identifier.
func (s *Service) resolveRole(ctx context.Context, identifier string) (*Role, error) {
	var roles []Role
	err := dbkit.WithErr1(s.db.NewSelect().
		Model(&roles).
		Where("o.officer_alias = ? OR o.officer_name = ?", identifier, identifier).
		OrderExpr("o.officerid ASC").
		Limit(2).
		Scan(ctx), "ResolveRole").Err()
	if err != nil {
		return nil, err
	}

	switch len(roles) {
	case 0:
		return nil, errNotFoundRole(identifier)
	case 1:
		return &roles[0], nil
	default:
		return nil, errAmbiguousRole(identifier)
	}
}

// permissionsOf returns the permissions granted to a role, ordered by short name.
func (s *Service) permissionsOf(ctx context.Context, roleID int64) ([]Permission, error) {
	perms := make([]Permission, 0)
	err := dbkit.WithErr1(s.db.NewSelect().
		Model(&perms).
		Distinct().
		Join("JOIN auth_officer AS ao ON ao.lookupid = p.typeid").
		Where("ao.officerid = ?", roleID).
		Order("p.phpconstant ASC").
		Scan(ctx), "RolePermissions").Err()
	if err != nil {
		return nil, err
	}
	return perms, nil
}

func (s *Service) logAudit(ctx context.Context, entry *GrantAuditEntry) error {
	_, err := s.db.NewInsert().Model(entry.ToModel()).Exec(ctx)
	return dbkit.WithErr1(err, "LogGrantAudit").Err()
}
