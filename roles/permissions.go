package roles

import "strings"

// Permission is a "resource:action:scope" grant drawn from a closed enumeration.
type Permission string

const (
	PermUserReadOwn   Permission = "user:read:own"
	PermUserUpdateOwn Permission = "user:update:own"
	PermUserReadTeam  Permission = "user:read:team"
	PermUserReadAll   Permission = "user:read:all"
	PermUserManageAll Permission = "user:manage:all"

	PermRoleReadAll   Permission = "role:read:all"
	PermRoleManageAll Permission = "role:manage:all"

	PermProjectReadOwn    Permission = "project:read:own"
	PermProjectCreateOwn  Permission = "project:create:own"
	PermProjectUpdateOwn  Permission = "project:update:own"
	PermProjectDeleteOwn  Permission = "project:delete:own"
	PermProjectReadTeam   Permission = "project:read:team"
	PermProjectManageTeam Permission = "project:manage:team"
	PermProjectReadAll    Permission = "project:read:all"
	PermProjectManageAll  Permission = "project:manage:all"

	PermTaskReadOwn    Permission = "task:read:own"
	PermTaskCreateOwn  Permission = "task:create:own"
	PermTaskUpdateOwn  Permission = "task:update:own"
	PermTaskDeleteOwn  Permission = "task:delete:own"
	PermTaskReadTeam   Permission = "task:read:team"
	PermTaskAssignTeam Permission = "task:assign:team"
	PermTaskManageTeam Permission = "task:manage:team"
	PermTaskReadAll    Permission = "task:read:all"
	PermTaskManageAll  Permission = "task:manage:all"

	PermNotificationReadOwn  Permission = "notification:read:own"
	PermNotificationSendTeam Permission = "notification:send:team"
	PermNotificationSendAll  Permission = "notification:send:all"

	PermChatReadOwn     Permission = "chat:read:own"
	PermChatWriteOwn    Permission = "chat:write:own"
	PermChatModerateAll Permission = "chat:moderate:all"

	PermAnalyticsReadTeam Permission = "analytics:read:team"
	PermAnalyticsReadAll  Permission = "analytics:read:all"

	PermSettingsReadAll   Permission = "settings:read:all"
	PermSettingsUpdateAll Permission = "settings:update:all"

	PermSessionReadOwn   Permission = "session:read:own"
	PermSessionManageOwn Permission = "session:manage:own"
	PermSessionManageAll Permission = "session:manage:all"
)

var allPermissions = []Permission{
	PermUserReadOwn, PermUserUpdateOwn, PermUserReadTeam, PermUserReadAll, PermUserManageAll,
	PermRoleReadAll, PermRoleManageAll,
	PermProjectReadOwn, PermProjectCreateOwn, PermProjectUpdateOwn, PermProjectDeleteOwn,
	PermProjectReadTeam, PermProjectManageTeam, PermProjectReadAll, PermProjectManageAll,
	PermTaskReadOwn, PermTaskCreateOwn, PermTaskUpdateOwn, PermTaskDeleteOwn,
	PermTaskReadTeam, PermTaskAssignTeam, PermTaskManageTeam, PermTaskReadAll, PermTaskManageAll,
	PermNotificationReadOwn, PermNotificationSendTeam, PermNotificationSendAll,
	PermChatReadOwn, PermChatWriteOwn, PermChatModerateAll,
	PermAnalyticsReadTeam, PermAnalyticsReadAll,
	PermSettingsReadAll, PermSettingsUpdateAll,
	PermSessionReadOwn, PermSessionManageOwn, PermSessionManageAll,
}

var knownPermissions = func() map[Permission]struct{} {
	known := make(map[Permission]struct{}, len(allPermissions))
	for _, p := range allPermissions {
		known[p] = struct{}{}
	}
	return known
}()

// AllPermissions returns a copy of the permission enumeration.
func AllPermissions() []Permission {
	return append([]Permission(nil), allPermissions...)
}

// IsKnownPermission reports whether p belongs to the enumeration.
func IsKnownPermission(p Permission) bool {
	_, ok := knownPermissions[p]
	return ok
}

// Parts splits a permission into resource, action and scope.
func (p Permission) Parts() (resource, action, scope string) {
	parts := strings.SplitN(string(p), ":", 3)
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	return parts[0], parts[1], parts[2]
}
