package roles

import (
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/taskhub-server/internal/errors"
)

// RoleName is one of the closed set of role names.
type RoleName string

const (
	RoleAdmin   RoleName = "admin"   // Full administrative access, bypasses maintenance mode
	RoleManager RoleName = "manager" // Team level management of projects and tasks
	RoleUser    RoleName = "user"    // Regular member working on their own tasks

	// DefaultRoleName is assigned to users that log in without a role.
	DefaultRoleName = RoleUser
)

// ValidRoleName reports whether name is one of the supported roles.
func ValidRoleName(name string) bool {
	switch RoleName(name) {
	case RoleAdmin, RoleManager, RoleUser:
		return true
	default:
		return false
	}
}

type Role struct {
	ID          string       `bson:"_id" json:"id"`
	Name        RoleName     `bson:"name" json:"name"`
	Description string       `bson:"description,omitempty" json:"description,omitempty"`
	Permissions []Permission `bson:"permissions" json:"permissions"`
	IsActive    bool         `bson:"isActive" json:"isActive"`
	CreatedAt   time.Time    `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time    `bson:"updatedAt" json:"updatedAt"`
}

// Validate checks the role name and that every permission is known.
func (r *Role) Validate() error {
	if !ValidRoleName(string(r.Name)) {
		return fmt.Errorf("%q: %w", r.Name, apperrors.ErrUnknownRole)
	}
	for _, p := range r.Permissions {
		if !IsKnownPermission(p) {
			return fmt.Errorf("%q: %w", p, apperrors.ErrUnknownPermission)
		}
	}
	return nil
}

// Grants reports whether p is in the role's permission set.
func (r *Role) Grants(p Permission) bool {
	for _, granted := range r.Permissions {
		if granted == p {
			return true
		}
	}
	return false
}

// DefaultRoles returns the seed definitions for admin, manager and user.
func DefaultRoles() []*Role {
	return []*Role{
		{
			Name:        RoleAdmin,
			Description: "Administrator",
			Permissions: AllPermissions(),
			IsActive:    true,
		},
		{
			Name:        RoleManager,
			Description: "Team manager",
			Permissions: []Permission{
				PermUserReadOwn, PermUserUpdateOwn, PermUserReadTeam,
				PermProjectReadOwn, PermProjectCreateOwn, PermProjectUpdateOwn, PermProjectDeleteOwn,
				PermProjectReadTeam, PermProjectManageTeam,
				PermTaskReadOwn, PermTaskCreateOwn, PermTaskUpdateOwn, PermTaskDeleteOwn,
				PermTaskReadTeam, PermTaskAssignTeam, PermTaskManageTeam,
				PermNotificationReadOwn, PermNotificationSendTeam,
				PermChatReadOwn, PermChatWriteOwn,
				PermAnalyticsReadTeam,
				PermSessionReadOwn, PermSessionManageOwn,
			},
			IsActive: true,
		},
		{
			Name:        RoleUser,
			Description: "Member",
			Permissions: []Permission{
				PermUserReadOwn, PermUserUpdateOwn,
				PermProjectReadOwn, PermProjectCreateOwn, PermProjectUpdateOwn,
				PermTaskReadOwn, PermTaskCreateOwn, PermTaskUpdateOwn,
				PermNotificationReadOwn,
				PermChatReadOwn, PermChatWriteOwn,
				PermSessionReadOwn, PermSessionManageOwn,
			},
			IsActive: true,
		},
	}
}
