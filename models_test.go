package permtools

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }
func i64Ptr(v int64) *int64   { return &v }

// TestPersonFullName tests the lookup name of a person
func TestPersonFullName(t *testing.T) {
	p := Person{FirstName: "John", LastName: "Smith"}
	assert.Equal(t, "John Smith", p.FullName())
}

// TestGrantAuditEntry_ToModel tests conversion of audit entries
func TestGrantAuditEntry_ToModel(t *testing.T) {
	before := time.Now()
	entry := &GrantAuditEntry{
		ActorID:       "jsmith",
		RoleID:        4,
		RoleAlias:     "station.manager",
		PermissionIDs: []int64{1, 2},
		RequestID:     "req-1",
	}

	m := entry.ToModel()

	assert.Equal(t, "jsmith", m.ActorID)
	assert.Equal(t, int64(4), m.RoleID)
	assert.Equal(t, "station.manager", m.RoleAlias)
	assert.Equal(t, []int64{1, 2}, m.PermissionIDs)
	assert.Equal(t, "req-1", m.RequestID)
	assert.False(t, m.Timestamp.Before(before))
}

// TestRoleListing tests absent values rendering as empty strings
func TestRoleListing(t *testing.T) {
	t.Run("Absent alias and description", func(t *testing.T) {
		l := newRoleListing(Role{Name: "Head of Music", Status: "c", RoleType: "o"})
		assert.Equal(t, []string{"", "Head of Music", "", "c", "o"}, l.Fields())
	})

	t.Run("All present", func(t *testing.T) {
		l := newRoleListing(Role{
			Name:        "Station Manager",
			Alias:       strPtr("station.manager"),
			Description: strPtr("Runs the station"),
			Status:      "c",
			RoleType:    "o",
		})
		assert.Equal(t, []string{"station.manager", "Station Manager", "Runs the station", "c", "o"}, l.Fields())
	})
}

// TestRoleWithPermissions tests the eager-loaded role helpers
func TestRoleWithPermissions(t *testing.T) {
	r := &RoleWithPermissions{
		Role: Role{Name: "Station Manager", Alias: strPtr("station.manager")},
		Permissions: []Permission{
			{ShortName: "AUTH_ADDMEMBER"},
			{ShortName: "AUTH_EDITSHOWS"},
		},
	}

	assert.Equal(t, "station.manager", r.Listing().Alias)
	assert.Equal(t, []string{"AUTH_ADDMEMBER", "AUTH_EDITSHOWS"}, r.ShortNames())
	assert.Empty(t, (&RoleWithPermissions{}).ShortNames())
}

// TestOccupancyRow tests conversion of scanned rows to records
func TestOccupancyRow(t *testing.T) {
	from := time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)

	rec := occupancyRow{
		FullName: "John Smith",
		PersonID: 42,
		RoleName: "Station Manager",
		FromDate: &from,
	}.toRecord()

	assert.Equal(t, "John Smith", rec.FullName)
	assert.Equal(t, "", rec.RoleAlias)
	assert.Equal(t, int64(1262304000), *rec.From)
	assert.Nil(t, rec.Till)
	assert.Equal(t, []string{"John Smith", "42", "", "Station Manager", "1262304000", ""}, rec.Fields())
}

// TestOccupancyRecordCurrent tests whether a tenure covers an instant
func TestOccupancyRecordCurrent(t *testing.T) {
	at := time.Unix(1000, 0)

	tests := []struct {
		name string
		from *int64
		till *int64
		want bool
	}{
		{"open both ends", nil, nil, true},
		{"started before", i64Ptr(500), nil, true},
		{"starts exactly at", i64Ptr(1000), nil, true},
		{"starts after", i64Ptr(1500), nil, false},
		{"ends after", nil, i64Ptr(1500), true},
		{"ends exactly at", nil, i64Ptr(1000), false},
		{"ended before", i64Ptr(100), i64Ptr(500), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := OccupancyRecord{From: tt.from, Till: tt.till}
			assert.Equal(t, tt.want, rec.Current(at))
		})
	}
}

// TestPermissionListing tests permission field order
func TestPermissionListing(t *testing.T) {
	l := PermissionListing{ShortName: "AUTH_ADDMEMBER", Description: "Add members"}
	assert.Equal(t, []string{"AUTH_ADDMEMBER", "Add members"}, l.Fields())
}
