package permtools

import (
	"strconv"
	"time"
)

// RoleListing is one row of ListRoles. Absent alias and description are
// rendered as empty strings.
type RoleListing struct {
	Alias       string
	Name        string
	Description string
	Status      string
	RoleType    string
}

func newRoleListing(r Role) RoleListing {
	return RoleListing{
		Alias:       stringOrEmpty(r.Alias),
		Name:        r.Name,
		Description: stringOrEmpty(r.Description),
		Status:      r.Status,
		RoleType:    r.RoleType,
	}
}

// Fields returns the listing in alias, name, description, status, type order.
func (l RoleListing) Fields() []string {
	return []string{l.Alias, l.Name, l.Description, l.Status, l.RoleType}
}

// PermissionListing is one row of ListPermissions.
type PermissionListing struct {
	ShortName   string
	Description string
}

// Fields returns the short name and description.
func (l PermissionListing) Fields() []string {
	return []string{l.ShortName, l.Description}
}

// RoleWithPermissions is a role together with the permissions it currently holds.
type RoleWithPermissions struct {
	Role        Role
	Permissions []Permission
}

// Listing returns the role in ListRoles form.
func (r *RoleWithPermissions) Listing() RoleListing {
	return newRoleListing(r.Role)
}

// ShortNames returns the short names of the held permissions, in the order fetched.
func (r *RoleWithPermissions) ShortNames() []string {
	names := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		names = append(names, p.ShortName)
	}
	return names
}

// OccupancyRecord is one tenure of a person in a role. From and Till are
// epoch seconds, nil when the bound is absent.
type OccupancyRecord struct {
	FullName  string
	PersonID  int64
	RoleAlias string
	RoleName  string
	From      *int64
	Till      *int64
}

// Current reports whether the tenure covers at.
func (r OccupancyRecord) Current(at time.Time) bool {
	ts := at.Unix()
	if r.From != nil && *r.From > ts {
		return false
	}
	if r.Till != nil && *r.Till <= ts {
		return false
	}
	return true
}

// Fields returns full name, person id, alias, role name, from, till.
func (r OccupancyRecord) Fields() []string {
	return []string{
		r.FullName,
		strconv.FormatInt(r.PersonID, 10),
		r.RoleAlias,
		r.RoleName,
		int64OrEmpty(r.From),
		int64OrEmpty(r.Till),
	}
}

// occupancyRow is the raw shape scanned from the person/occupancy/role join.
type occupancyRow struct {
	FullName    string     `bun:"full_name"`
	PersonID    int64      `bun:"memberid"`
	OccupancyID int64      `bun:"member_officerid"`
	RoleAlias   *string    `bun:"officer_alias"`
	RoleName    string     `bun:"officer_name"`
	FromDate    *time.Time `bun:"from_date"`
	TillDate    *time.Time `bun:"till_date"`
}

func (r occupancyRow) toRecord() OccupancyRecord {
	return OccupancyRecord{
		FullName:  r.FullName,
		PersonID:  r.PersonID,
		RoleAlias: stringOrEmpty(r.RoleAlias),
		RoleName:  r.RoleName,
		From:      epochSeconds(r.FromDate),
		Till:      epochSeconds(r.TillDate),
	}
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func int64OrEmpty(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func epochSeconds(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	sec := t.Unix()
	return &sec
}
