package authz

import "slices"

// Table maps each role to its effective permission set. Effective sets are
// cumulative: each tier is the union of the previous tier and its own
// increment, so a more senior role always holds a superset of every junior
// role's permissions. The table is immutable after construction; enforcement
// code only reads it.
type Table struct {
	effective map[Role]map[Permission]struct{}
}

// Increments declares the per-tier permission additions a Table is built
// from. Declaring increments rather than full sets makes the monotonicity
// invariant hold by construction.
type Increments struct {
	User       []Permission
	Moderator  []Permission
	Admin      []Permission
	SuperAdmin []Permission
}

// NewTable builds a Table from per-tier increments.
func NewTable(inc Increments) *Table {
	t := &Table{effective: make(map[Role]map[Permission]struct{}, 4)}
	acc := make(map[Permission]struct{})
	for _, tier := range []struct {
		role Role
		add  []Permission
	}{
		{RoleUser, inc.User},
		{RoleModerator, inc.Moderator},
		{RoleAdmin, inc.Admin},
		{RoleSuperAdmin, inc.SuperAdmin},
	} {
		for _, p := range tier.add {
			acc[p] = struct{}{}
		}
		snapshot := make(map[Permission]struct{}, len(acc))
		for p := range acc {
			snapshot[p] = struct{}{}
		}
		t.effective[tier.role] = snapshot
	}
	return t
}

// defaultTable is built once at package initialisation and never mutated.
var defaultTable = NewTable(Increments{
	User: []Permission{
		PermViewProfile,
		PermEditProfile,
		PermViewContent,
		PermCreateComment,
		PermCreateEvent,
		PermAttendEvent,
		PermCreatePetition,
		PermSignPetition,
		PermVotePoll,
		PermJoinGroup,
		PermReportIssue,
		PermViewTransport,
	},
	Moderator: []Permission{
		PermViewConsole,
		PermCreateAnnouncement,
		PermModerateAnnouncement,
		PermModerateEvent,
		PermModeratePetition,
		PermModerateComment,
		PermUpdateIssueStatus,
	},
	Admin: []Permission{
		PermManageUsers,
		PermManageGroups,
		PermManagePolls,
		PermManageTransport,
		PermViewAuditLog,
	},
	SuperAdmin: []Permission{
		PermManageSystemSettings,
		PermManageAdmins,
	},
})

// Default returns the process-wide permission table.
func Default() *Table {
	return defaultTable
}

// Effective returns the role's effective permission set as a sorted-stable
// slice copy. Callers may retain the slice; the table itself is never
// exposed mutably.
func (t *Table) Effective(role Role) []Permission {
	set, ok := t.effective[role]
	if !ok {
		return nil
	}
	perms := make([]Permission, 0, len(set))
	for p := range set {
		perms = append(perms, p)
	}
	slices.Sort(perms)
	return perms
}
