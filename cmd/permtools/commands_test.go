package main

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/fernandezvara/dbkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UniversityRadioYork/permtools"
	"github.com/UniversityRadioYork/permtools/internal/config"
)

type stubStore struct {
	roles   []permtools.RoleListing
	perms   []permtools.PermissionListing
	held    map[string][]string
	records []permtools.OccupancyRecord
	role    *permtools.RoleWithPermissions
	audit   []permtools.GrantAudit

	granted      []string
	grantCalls   int
	lastAsOf     time.Time
	lastFilter   permtools.GrantAuditFilter
	lastActor    string
	lastRequest  string
	err          error
	migrationIDs []string
}

func (s *stubStore) ListRoles(context.Context) ([]permtools.RoleListing, error) {
	return s.roles, s.err
}

func (s *stubStore) ListPermissions(context.Context) ([]permtools.PermissionListing, error) {
	return s.perms, s.err
}

func (s *stubStore) PermissionsForRoles(_ context.Context, ids []string) ([]string, error) {
	var out []string
	for _, id := range ids {
		out = append(out, s.held[id]...)
	}
	return out, s.err
}

func (s *stubStore) RolesForPeople(context.Context, []string) ([]permtools.OccupancyRecord, error) {
	return s.records, s.err
}

func (s *stubStore) RoleByAlias(_ context.Context, alias string) (*permtools.RoleWithPermissions, error) {
	if s.role == nil {
		return nil, permtools.NewError(permtools.ErrNotFound, "no role").WithRole(alias)
	}
	return s.role, s.err
}

func (s *stubStore) OccupantsOfRoles(_ context.Context, _ []string, asOf time.Time) ([]permtools.OccupancyRecord, error) {
	s.lastAsOf = asOf
	return s.records, s.err
}

func (s *stubStore) GetGrantAudit(_ context.Context, filter permtools.GrantAuditFilter) ([]permtools.GrantAudit, error) {
	s.lastFilter = filter
	return s.audit, s.err
}

func (s *stubStore) GrantPermissions(ctx context.Context, _ string, names []string) ([]int64, error) {
	s.grantCalls++
	s.granted = names
	s.lastActor = permtools.GetActorID(ctx)
	s.lastRequest = permtools.GetRequestID(ctx)
	if s.err != nil {
		return nil, s.err
	}
	return []int64{7, 9}, nil
}

func (s *stubStore) RunMigrations(context.Context) (*permtools.MigrationStatus, error) {
	return &permtools.MigrationStatus{Applied: s.migrationIDs}, s.err
}

func (s *stubStore) Ping(context.Context) error { return s.err }

func (s *stubStore) PoolStats() dbkit.PoolStats { return dbkit.PoolStats{} }

func newTestApp(s *stubStore) (*app, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	a := &app{
		cfg:    &config.Config{Actor: "tester", Timeout: time.Second},
		logger: slog.New(slog.DiscardHandler),
		stdout: &stdout,
		stderr: &stderr,
		open: func(context.Context, *config.Config, *slog.Logger) (store, func() error, error) {
			return s, func() error { return nil }, nil
		},
	}
	return a, &stdout, &stderr
}

func strPtr(s string) *string { return &s }
func i64Ptr(v int64) *int64   { return &v }

func TestRoleList(t *testing.T) {
	s := &stubStore{roles: []permtools.RoleListing{
		{Alias: "station.manager", Name: "Station Manager", Description: "", Status: "c", RoleType: "o"},
		{Alias: "", Name: "Head of Music", Description: "Music", Status: "c", RoleType: "o"},
	}}
	a, stdout, _ := newTestApp(s)

	code := a.execute(context.Background(), []string{"rolelist"})

	assert.Equal(t, exitOK, code)
	assert.Equal(t, "station.manager:Station Manager::c:o\n:Head of Music:Music:c:o\n", stdout.String())
}

func TestEmptyResultPrintsNothing(t *testing.T) {
	a, stdout, _ := newTestApp(&stubStore{})

	code := a.execute(context.Background(), []string{"permlist"})

	assert.Equal(t, exitOK, code)
	assert.Empty(t, stdout.String())
}

func TestRolePerms(t *testing.T) {
	s := &stubStore{held: map[string][]string{"station.manager": {"AUTH_ADDMEMBER", "AUTH_EDITSHOWS"}}}
	a, stdout, _ := newTestApp(s)

	code := a.execute(context.Background(), []string{"roleperms", "station.manager"})

	assert.Equal(t, exitOK, code)
	assert.Equal(t, "AUTH_ADDMEMBER\nAUTH_EDITSHOWS\n", stdout.String())
}

func TestRoleInfo(t *testing.T) {
	s := &stubStore{role: &permtools.RoleWithPermissions{
		Role: permtools.Role{Name: "Station Manager", Alias: strPtr("station.manager"), Status: "c", RoleType: "o"},
		Permissions: []permtools.Permission{
			{ShortName: "AUTH_ADDMEMBER", Description: "Add members"},
		},
	}}
	a, stdout, _ := newTestApp(s)

	code := a.execute(context.Background(), []string{"roleinfo", "station.manager"})

	assert.Equal(t, exitOK, code)
	assert.Equal(t, "station.manager:Station Manager::c:o\nAUTH_ADDMEMBER:Add members\n", stdout.String())
}

func TestRoleInfoNotFound(t *testing.T) {
	a, stdout, stderr := newTestApp(&stubStore{})

	code := a.execute(context.Background(), []string{"roleinfo", "nobody"})

	assert.Equal(t, exitFailure, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "not found")
}

func TestRolesFor(t *testing.T) {
	s := &stubStore{records: []permtools.OccupancyRecord{
		{FullName: "John Smith", PersonID: 42, RoleAlias: "station.manager", RoleName: "Station Manager", From: i64Ptr(1262304000)},
	}}
	a, stdout, _ := newTestApp(s)

	code := a.execute(context.Background(), []string{"rolesfor", "John Smith"})

	assert.Equal(t, exitOK, code)
	assert.Equal(t, "John Smith:42:station.manager:Station Manager:1262304000:\n", stdout.String())
}

func TestHoldersAt(t *testing.T) {
	s := &stubStore{}
	a, _, _ := newTestApp(s)

	code := a.execute(context.Background(), []string{"holders", "--at", "2020-01-02T00:00:00Z", "station.manager"})

	assert.Equal(t, exitOK, code)
	assert.True(t, s.lastAsOf.Equal(time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)))
}

func TestHoldersBadTimestamp(t *testing.T) {
	a, _, _ := newTestApp(&stubStore{})

	code := a.execute(context.Background(), []string{"holders", "--at", "yesterday", "station.manager"})

	assert.Equal(t, exitUsage, code)
}

func TestGrantPerm(t *testing.T) {
	s := &stubStore{}
	a, stdout, _ := newTestApp(s)

	code := a.execute(context.Background(), []string{"grantperm", "station.manager", "AUTH_ADDMEMBER", "AUTH_EDITSHOWS"})

	require.Equal(t, exitOK, code)
	assert.Equal(t, "7\n9\n", stdout.String())
	assert.Equal(t, []string{"AUTH_ADDMEMBER", "AUTH_EDITSHOWS"}, s.granted)
	assert.Equal(t, "tester", s.lastActor)
	assert.NotEmpty(t, s.lastRequest)
}

func TestGrantPermStrict(t *testing.T) {
	s := &stubStore{perms: []permtools.PermissionListing{{ShortName: "AUTH_ADDMEMBER"}}}
	a, stdout, stderr := newTestApp(s)

	code := a.execute(context.Background(), []string{"grantperm", "--strict", "station.manager", "AUTH_ADDMEMBER", "AUTH_NOPE"})

	assert.Equal(t, exitFailure, code)
	assert.Zero(t, s.grantCalls)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "AUTH_NOPE")
}

func TestGrantPermNeedsPermission(t *testing.T) {
	s := &stubStore{}
	a, _, _ := newTestApp(s)

	code := a.execute(context.Background(), []string{"grantperm", "station.manager"})

	assert.Equal(t, exitUsage, code)
	assert.Zero(t, s.grantCalls)
}

func TestAudit(t *testing.T) {
	s := &stubStore{audit: []permtools.GrantAudit{{
		Timestamp:     time.Unix(1700000000, 0),
		ActorID:       "jsmith",
		RoleAlias:     "station.manager",
		PermissionIDs: []int64{3, 4},
		RequestID:     "req-1",
	}}}
	a, stdout, _ := newTestApp(s)

	code := a.execute(context.Background(), []string{"audit", "--actor", "jsmith", "--limit", "5"})

	require.Equal(t, exitOK, code)
	assert.Equal(t, "1700000000:jsmith:station.manager:3,4:req-1\n", stdout.String())
	assert.Equal(t, "jsmith", s.lastFilter.ActorID)
	assert.Equal(t, 5, s.lastFilter.Limit)
}

func TestMigrateAndHealth(t *testing.T) {
	s := &stubStore{migrationIDs: []string{"permtools-001"}}
	a, stdout, _ := newTestApp(s)

	assert.Equal(t, exitOK, a.execute(context.Background(), []string{"migrate"}))
	assert.Equal(t, exitOK, a.execute(context.Background(), []string{"health"}))
	assert.Equal(t, "permtools-001\nok\n", stdout.String())
}

func TestStoreErrorExitsOne(t *testing.T) {
	s := &stubStore{err: permtools.NewError(permtools.ErrConnectivity, "down")}
	a, _, stderr := newTestApp(s)

	code := a.execute(context.Background(), []string{"health"})

	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr.String(), "store unreachable")
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no command", nil, exitUsage},
		{"unknown command", []string{"frobnicate"}, exitUsage},
		{"unknown flag", []string{"rolelist", "--nope"}, exitUsage},
		{"extra argument", []string{"rolelist", "extra"}, exitUsage},
		{"missing argument", []string{"roleinfo"}, exitUsage},
		{"help", []string{"--help"}, exitOK},
		{"command help", []string{"audit", "--help"}, exitOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _, _ := newTestApp(&stubStore{})
			assert.Equal(t, tt.want, a.execute(context.Background(), tt.args))
		})
	}
}
