package permtools

import (
	"context"
	"log/slog"

	"github.com/fernandezvara/dbkit"
	"github.com/uptrace/bun"
)

// ============================================================================
// GRANTS
// ============================================================================

// grantInsert inserts every (role, permission) pair for the named permissions
// that is not already present and returns the inserted permission ids.
// ON CONFLICT covers a concurrent grant that committed the same pair after
// the NOT EXISTS check ran.
const grantInsert = `
INSERT INTO auth_officer (officerid, lookupid)
SELECT ?, p.typeid
FROM l_action AS p
WHERE p.phpconstant IN (?)
  AND NOT EXISTS (
    SELECT 1 FROM auth_officer AS ao
    WHERE ao.officerid = ? AND ao.lookupid = p.typeid
  )
ON CONFLICT DO NOTHING
RETURNING lookupid`

// GrantPermissions grants the named permissions to the role matching
// roleAlias and returns the ids of the permissions that were newly granted.
//
// Permissions the role already holds are skipped, so repeating a grant
// returns an empty slice. Short names that match no permission are skipped
// as well. The role lookup, the insert and the audit entry share one
// transaction; on any error nothing is kept.
//
// Example:
//
//	ids, err := service.GrantPermissions(ctx, "station.manager", []string{"AUTH_ADDMEMBER"})
func (s *Service) GrantPermissions(ctx context.Context, roleAlias string, shortNames []string) ([]int64, error) {
	ids := make([]int64, 0)
	if len(shortNames) == 0 {
		return ids, nil
	}

	audit := GetAuditContext(ctx)
	err := s.transact(ctx, "GrantPermissions", nil, func(ctx context.Context, tx *Service) error {
		role, err := tx.resolveRole(ctx, roleAlias)
		if err != nil {
			return err
		}

		err = dbkit.WithErr1(tx.db.NewRaw(grantInsert, role.ID, bun.In(shortNames), role.ID).
			Scan(ctx, &ids), "GrantPermissions").Err()
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		return tx.logAudit(ctx, &GrantAuditEntry{
			ActorID:       audit.ActorID,
			RoleID:        role.ID,
			RoleAlias:     roleAlias,
			PermissionIDs: ids,
			RequestID:     audit.RequestID,
		})
	})
	if err != nil {
		err = classifyError("GrantPermissions", err)
		s.logger.ErrorContext(ctx, "grant failed",
			slog.String("role", roleAlias),
			slog.Any("permissions", shortNames),
			slog.String("actor", audit.ActorID),
			slog.String("request_id", audit.RequestID),
			slog.Any("error", err),
		)
		return nil, err
	}

	s.logger.InfoContext(ctx, "permissions granted",
		slog.String("role", roleAlias),
		slog.Int("requested", len(shortNames)),
		slog.Int("granted", len(ids)),
		slog.String("actor", audit.ActorID),
		slog.String("request_id", audit.RequestID),
	)
	return ids, nil
}
