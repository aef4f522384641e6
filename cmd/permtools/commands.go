package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/user"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fernandezvara/dbkit"
	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/UniversityRadioYork/permtools"
	"github.com/UniversityRadioYork/permtools/internal/config"
	"github.com/UniversityRadioYork/permtools/internal/output"
)

// store is everything the commands need from the database.
type store interface {
	permtools.Querier
	permtools.Granter
	RunMigrations(ctx context.Context) (*permtools.MigrationStatus, error)
	Ping(ctx context.Context) error
	PoolStats() dbkit.PoolStats
}

type opener func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store, func() error, error)

type app struct {
	cfg    *config.Config
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer
	open   opener
}

// command is one subcommand. Flags registers its flags; Run receives the
// parsed flag set and the positional arguments.
type command struct {
	Name    string
	Args    string
	Summary string
	MinArgs int
	MaxArgs int // -1 for no limit
	Flags   func(fs *pflag.FlagSet)
	Run     func(ctx context.Context, a *app, s store, fs *pflag.FlagSet, args []string) error
}

type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

var commands = []*command{
	{
		Name:    "rolelist",
		Summary: "list every role as alias:name:description:status:type",
		MaxArgs: 0,
		Run:     runRoleList,
	},
	{
		Name:    "permlist",
		Summary: "list every permission as shortname:description",
		MaxArgs: 0,
		Run:     runPermList,
	},
	{
		Name:    "roleperms",
		Args:    "ALIAS...",
		Summary: "list the permissions held by any of the given roles",
		MinArgs: 1,
		MaxArgs: -1,
		Run:     runRolePerms,
	},
	{
		Name:    "roleinfo",
		Args:    "ALIAS",
		Summary: "show one role followed by the permissions it holds",
		MinArgs: 1,
		MaxArgs: 1,
		Run:     runRoleInfo,
	},
	{
		Name:    "rolesfor",
		Args:    `"FIRST LAST"...`,
		Summary: "list every role tenure of the named people",
		MinArgs: 1,
		MaxArgs: -1,
		Run:     runRolesFor,
	},
	{
		Name:    "holders",
		Args:    "ALIAS...",
		Summary: "list who holds the given roles at a point in time",
		MinArgs: 1,
		MaxArgs: -1,
		Flags: func(fs *pflag.FlagSet) {
			fs.String("at", "", "RFC3339 timestamp to evaluate tenures at (default now)")
		},
		Run: runHolders,
	},
	{
		Name:    "grantperm",
		Args:    "ALIAS PERM...",
		Summary: "grant permissions to a role and print the newly granted ids",
		MinArgs: 2,
		MaxArgs: -1,
		Flags: func(fs *pflag.FlagSet) {
			fs.Bool("strict", false, "fail if any permission short name is unknown")
		},
		Run: runGrantPerm,
	},
	{
		Name:    "audit",
		Summary: "show recent grants as timestamp:actor:role:ids:request",
		MaxArgs: 0,
		Flags: func(fs *pflag.FlagSet) {
			fs.String("actor", "", "only grants made by this actor")
			fs.String("role", "", "only grants to this role alias")
			fs.Int("limit", permtools.DefaultAuditLimit, "maximum number of entries")
		},
		Run: runAudit,
	},
	{
		Name:    "migrate",
		Summary: "apply pending schema migrations",
		MaxArgs: 0,
		Run:     runMigrate,
	},
	{
		Name:    "health",
		Summary: "check that the database is reachable",
		MaxArgs: 0,
		Run:     runHealth,
	},
}

func findCommand(name string) *command {
	for _, c := range commands {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// execute dispatches args to a subcommand and returns the process exit code.
func (a *app) execute(ctx context.Context, args []string) int {
	if len(args) == 0 || isHelp(args[0]) {
		a.printUsage(a.stderr)
		if len(args) == 0 {
			return exitUsage
		}
		return exitOK
	}

	cmd := findCommand(args[0])
	if cmd == nil {
		fmt.Fprintf(a.stderr, "error: unknown command %q\n\n", args[0])
		a.printUsage(a.stderr)
		return exitUsage
	}

	err := a.runCommand(ctx, cmd, args[1:])
	if err == nil {
		return exitOK
	}
	if errors.Is(err, pflag.ErrHelp) {
		return exitOK
	}
	fmt.Fprintf(a.stderr, "error: %v\n", err)
	var usage *usageError
	if errors.As(err, &usage) {
		return exitUsage
	}
	return exitFailure
}

func (a *app) runCommand(ctx context.Context, cmd *command, args []string) error {
	fs := pflag.NewFlagSet(cmd.Name, pflag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.Usage = func() {
		fmt.Fprintf(a.stderr, "Usage: permtools %s [flags] %s\n\n%s\n", cmd.Name, cmd.Args, cmd.Summary)
		if fs.HasFlags() {
			fmt.Fprintf(a.stderr, "\nFlags:\n%s", fs.FlagUsages())
		}
	}
	if cmd.Flags != nil {
		cmd.Flags(fs)
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return usagef("%s: %v", cmd.Name, err)
	}

	positional := fs.Args()
	if len(positional) < cmd.MinArgs || (cmd.MaxArgs >= 0 && len(positional) > cmd.MaxArgs) {
		return usagef("usage: permtools %s %s", cmd.Name, cmd.Args)
	}

	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}
	ctx = a.auditContext(ctx)

	s, closeFn, err := a.open(ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}

	runErr := cmd.Run(ctx, a, s, fs, positional)
	if closeErr := closeFn(); closeErr != nil {
		a.logger.WarnContext(ctx, "close failed", slog.Any("error", closeErr))
	}
	return runErr
}

// auditContext attaches the acting user and a fresh request id.
func (a *app) auditContext(ctx context.Context) context.Context {
	actor := a.cfg.Actor
	if actor == "" {
		if u, err := user.Current(); err == nil {
			actor = u.Username
		}
	}
	return permtools.WithAuditContext(ctx, permtools.AuditContext{
		ActorID:   actor,
		RequestID: uuid.NewString(),
	})
}

func (a *app) printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: permtools COMMAND [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, c := range commands {
		fmt.Fprintf(tw, "  %s %s\t%s\n", c.Name, c.Args, c.Summary)
	}
	tw.Flush()
}

func isHelp(arg string) bool {
	return arg == "-h" || arg == "--help" || arg == "help"
}

// ============================================================================
// COMMANDS
// ============================================================================

func runRoleList(ctx context.Context, a *app, s store, _ *pflag.FlagSet, _ []string) error {
	roles, err := s.ListRoles(ctx)
	if err != nil {
		return err
	}
	return output.Write(a.stdout, output.Format(roles))
}

func runPermList(ctx context.Context, a *app, s store, _ *pflag.FlagSet, _ []string) error {
	perms, err := s.ListPermissions(ctx)
	if err != nil {
		return err
	}
	return output.Write(a.stdout, output.Format(perms))
}

func runRolePerms(ctx context.Context, a *app, s store, _ *pflag.FlagSet, args []string) error {
	names, err := s.PermissionsForRoles(ctx, args)
	if err != nil {
		return err
	}
	return output.Write(a.stdout, output.Strings(names))
}

func runRoleInfo(ctx context.Context, a *app, s store, _ *pflag.FlagSet, args []string) error {
	role, err := s.RoleByAlias(ctx, args[0])
	if err != nil {
		return err
	}

	listings := make([]permtools.PermissionListing, 0, len(role.Permissions))
	for _, p := range role.Permissions {
		listings = append(listings, permtools.PermissionListing{ShortName: p.ShortName, Description: p.Description})
	}

	if err := output.Write(a.stdout, output.FieldJoin(role.Listing().Fields())); err != nil {
		return err
	}
	return output.Write(a.stdout, output.Format(listings))
}

func runRolesFor(ctx context.Context, a *app, s store, _ *pflag.FlagSet, args []string) error {
	records, err := s.RolesForPeople(ctx, args)
	if err != nil {
		return err
	}
	return output.Write(a.stdout, output.Format(records))
}

func runHolders(ctx context.Context, a *app, s store, fs *pflag.FlagSet, args []string) error {
	at := time.Now()
	if raw, _ := fs.GetString("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return usagef("holders: --at: %v", err)
		}
		at = parsed
	}

	records, err := s.OccupantsOfRoles(ctx, args, at)
	if err != nil {
		return err
	}
	return output.Write(a.stdout, output.Format(records))
}

func runGrantPerm(ctx context.Context, a *app, s store, fs *pflag.FlagSet, args []string) error {
	alias, names := args[0], args[1:]

	if strict, _ := fs.GetBool("strict"); strict {
		unknown, err := unknownPermissions(ctx, s, names)
		if err != nil {
			return err
		}
		if len(unknown) > 0 {
			a.logger.WarnContext(ctx, "unknown permissions", slog.Any("permissions", unknown))
			joined := strings.Join(unknown, ",")
			return permtools.NewError(permtools.ErrNotFound, "unknown permissions "+joined).
				WithOp("grantperm").
				WithRole(alias).
				WithPermission(joined)
		}
	}

	ids, err := s.GrantPermissions(ctx, alias, names)
	if err != nil {
		return err
	}
	return output.Write(a.stdout, output.IDs(ids))
}

// unknownPermissions returns the names that match no permission, in input order.
func unknownPermissions(ctx context.Context, s store, names []string) ([]string, error) {
	perms, err := s.ListPermissions(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		known[p.ShortName] = struct{}{}
	}

	var unknown []string
	for _, n := range names {
		if _, ok := known[n]; !ok {
			unknown = append(unknown, n)
		}
	}
	return unknown, nil
}

func runAudit(ctx context.Context, a *app, s store, fs *pflag.FlagSet, _ []string) error {
	actor, _ := fs.GetString("actor")
	role, _ := fs.GetString("role")
	limit, _ := fs.GetInt("limit")

	filter := permtools.NewGrantAuditFilter().WithPagination(limit, 0)
	if actor != "" {
		filter = filter.WithActor(actor)
	}
	if role != "" {
		filter = filter.WithRole(role)
	}

	entries, err := s.GetGrantAudit(ctx, filter)
	if err != nil {
		return err
	}

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, output.FieldJoin(auditFields(e)))
	}
	return output.Write(a.stdout, output.RecordJoin(lines))
}

// auditFields renders an audit entry. The timestamp is epoch seconds and the
// permission ids are comma separated, keeping ':' free for field splitting.
func auditFields(e permtools.GrantAudit) []string {
	ids := make([]string, 0, len(e.PermissionIDs))
	for _, id := range e.PermissionIDs {
		ids = append(ids, strconv.FormatInt(id, 10))
	}
	return []string{
		strconv.FormatInt(e.Timestamp.Unix(), 10),
		e.ActorID,
		e.RoleAlias,
		strings.Join(ids, ","),
		e.RequestID,
	}
}

func runMigrate(ctx context.Context, a *app, s store, _ *pflag.FlagSet, _ []string) error {
	status, err := s.RunMigrations(ctx)
	if err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "migrations applied", slog.Int("count", len(status.Applied)))
	return output.Write(a.stdout, output.Strings(status.Applied))
}

func runHealth(ctx context.Context, a *app, s store, _ *pflag.FlagSet, _ []string) error {
	if err := s.Ping(ctx); err != nil {
		return err
	}
	a.logger.DebugContext(ctx, "pool stats", slog.String("stats", fmt.Sprintf("%+v", s.PoolStats())))
	return output.Write(a.stdout, "ok")
}
