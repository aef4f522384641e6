// Package permtools manages the officer/permission model: roles hold
// permissions through explicit grants, and members occupy roles for
// time-bounded tenures.
//
// # Core Concepts
//
// Role: a named position (an officer), optionally with a short alias such as
// "station.manager".
//
// Permission: a named capability identified by its short name, for example
// "AUTH_ADDMEMBER".
//
// Grant: a (role, permission) pair. Grants are only ever added, never
// duplicated, and never revoked by this package.
//
// Occupancy: a person holding a role from one date until another. Either
// date may be absent.
//
// # Basic Usage
//
//	db, err := dbkit.New(dbkit.Config{URL: dsn})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	service := permtools.NewService(db, permtools.WithLogger(logger))
//
//	// Read
//	roles, err := service.ListRoles(ctx)
//	perms, err := service.PermissionsForRoles(ctx, []string{"station.manager"})
//	tenures, err := service.RolesForPeople(ctx, []string{"John Smith"})
//
//	// Grant; already-held permissions are skipped
//	ctx = permtools.WithActorID(ctx, "jsmith")
//	ids, err := service.GrantPermissions(ctx, "station.manager", []string{"AUTH_ADDMEMBER"})
//
// # Transactions
//
// Each operation runs in its own transaction: reads in a read-only one, the
// grant in a read-write one that rolls back completely on failure. Callers
// needing several operations in one scope use Service.Transaction and call
// the operations on the service it hands them.
//
// # Known ambiguities
//
// Role identifiers match by alias or by name, because some roles have no
// alias. Full names are matched exactly and are not unique. Both are
// deliberate; use identifiers that are unique in your deployment.
package permtools
