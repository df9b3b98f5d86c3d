package authz

// Permission is an atomic named capability. The vocabulary is closed: every
// permission the platform knows is declared below, so a typo in a call site
// fails to compile instead of silently evaluating to "not granted".
// Permissions follow a verb:resource convention but carry no hierarchy of
// their own; seniority lives entirely in Role.
type Permission string

// Citizen-facing capabilities.
const (
	PermViewProfile   Permission = "view:profile"
	PermEditProfile   Permission = "edit:profile"
	PermViewContent   Permission = "view:content"
	PermCreateComment Permission = "create:comment"

	PermCreateEvent    Permission = "create:event"
	PermAttendEvent    Permission = "attend:event"
	PermCreatePetition Permission = "create:petition"
	PermSignPetition   Permission = "sign:petition"
	PermVotePoll       Permission = "vote:poll"
	PermJoinGroup      Permission = "join:group"
	PermReportIssue    Permission = "report:issue"
	PermViewTransport  Permission = "view:transport"
)

// Moderation capabilities.
const (
	PermModerateAnnouncement Permission = "moderate:announcement"
	PermModerateEvent        Permission = "moderate:event"
	PermModeratePetition     Permission = "moderate:petition"
	PermModerateComment      Permission = "moderate:comment"
	PermUpdateIssueStatus    Permission = "update:issue_status"
	PermCreateAnnouncement   Permission = "create:announcement"
	PermViewConsole          Permission = "view:console"
)

// Administrative capabilities.
const (
	PermManageUsers     Permission = "manage:users"
	PermManageGroups    Permission = "manage:groups"
	PermManagePolls     Permission = "manage:polls"
	PermManageTransport Permission = "manage:transport"
	PermViewAuditLog    Permission = "view:audit_log"
)

// Platform-owner capabilities.
const (
	PermManageSystemSettings Permission = "manage:system_settings"
	PermManageAdmins         Permission = "manage:admins"
)
