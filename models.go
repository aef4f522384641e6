package permtools

import (
	"time"

	"github.com/uptrace/bun"
)

// Permission is a named capability that can be granted to a role.
type Permission struct {
	bun.BaseModel `bun:"table:l_action,alias:p"`

	ID          int64  `bun:"typeid,pk,autoincrement"`
	ShortName   string `bun:"phpconstant,notnull"` // e.g. AUTH_ADDMEMBER
	Description string `bun:"descr,notnull"`
}

// Role is a named position (officer) that holds permissions and is
// occupied by people over time.
type Role struct {
	bun.BaseModel `bun:"table:officer,alias:o"`

	ID          int64   `bun:"officerid,pk,autoincrement"`
	Name        string  `bun:"officer_name,notnull"`
	Alias       *string `bun:"officer_alias"`
	TeamID      *int64  `bun:"teamid"`
	Ordering    *int16  `bun:"ordering"`
	Description *string `bun:"descr"`
	Status      string  `bun:"status,type:char(1)"`
	RoleType    string  `bun:"type,type:char(1)"`
}

// RoleGrant records that a role holds a permission.
// Rows are only ever created by GrantPermissions.
type RoleGrant struct {
	bun.BaseModel `bun:"table:auth_officer,alias:ao"`

	RoleID       int64 `bun:"officerid,notnull"`
	PermissionID int64 `bun:"lookupid,notnull"`
}

// Person is a member of the organization.
type Person struct {
	bun.BaseModel `bun:"table:member,alias:m"`

	ID        int64  `bun:"memberid,pk,autoincrement"`
	FirstName string `bun:"fname,notnull"`
	LastName  string `bun:"sname,notnull"`
}

// FullName returns the name used to look people up. It is not unique.
func (p Person) FullName() string {
	return p.FirstName + " " + p.LastName
}

// RoleOccupancy is a tenure of a person in a role. Either bound may be absent.
type RoleOccupancy struct {
	bun.BaseModel `bun:"table:member_officer,alias:mo"`

	ID       int64      `bun:"member_officerid,pk,autoincrement"`
	RoleID   int64      `bun:"officerid,notnull"`
	PersonID int64      `bun:"memberid,notnull"`
	FromDate *time.Time `bun:"from_date,type:date"`
	TillDate *time.Time `bun:"till_date,type:date"`
}

// GrantAudit records a grant that inserted at least one RoleGrant row.
type GrantAudit struct {
	bun.BaseModel `bun:"table:permtools_grant_audit,alias:ga"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Timestamp time.Time `bun:"timestamp,notnull,default:current_timestamp"`

	ActorID   string `bun:"actor_id,notnull"`
	RoleID    int64  `bun:"role_id,notnull"`
	RoleAlias string `bun:"role_alias,notnull"`

	PermissionIDs []int64 `bun:"permission_ids,array"`

	RequestID string `bun:"request_id"`
}

// GrantAuditEntry is used to create new audit rows.
type GrantAuditEntry struct {
	ActorID       string
	RoleID        int64
	RoleAlias     string
	PermissionIDs []int64
	RequestID     string
}

// ToModel converts a GrantAuditEntry to a GrantAudit model.
func (e *GrantAuditEntry) ToModel() *GrantAudit {
	return &GrantAudit{
		ActorID:       e.ActorID,
		RoleID:        e.RoleID,
		RoleAlias:     e.RoleAlias,
		PermissionIDs: e.PermissionIDs,
		RequestID:     e.RequestID,
		Timestamp:     time.Now(),
	}
}
