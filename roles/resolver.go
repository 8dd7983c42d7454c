package roles

import (
	"context"
	"fmt"

	apperrors "github.com/jrsteele09/taskhub-server/internal/errors"
	"github.com/rs/zerolog/log"
)

// Subject is anything that carries a role reference, normally *users.User.
type Subject interface {
	RoleRef() string
}

// Resolver answers permission questions for a subject by fetching its role on
// every call, so role edits take effect without a new login.
type Resolver struct {
	repo Repo
}

func NewResolver(repo Repo) *Resolver {
	return &Resolver{repo: repo}
}

// RoleFor returns the subject's role record, whatever its active state.
func (r *Resolver) RoleFor(ctx context.Context, subject Subject) (*Role, error) {
	if subject == nil || subject.RoleRef() == "" {
		return nil, fmt.Errorf("[Resolver.RoleFor] no role reference: %w", apperrors.ErrRoleNotFound)
	}
	role, err := r.repo.Get(ctx, subject.RoleRef())
	if err != nil {
		return nil, fmt.Errorf("[Resolver.RoleFor] repo.Get: %w", err)
	}
	if role == nil {
		return nil, fmt.Errorf("[Resolver.RoleFor] %s: %w", subject.RoleRef(), apperrors.ErrRoleNotFound)
	}
	return role, nil
}

// HasPermission fails closed: a missing reference, a lookup failure or an
// inactive role all deny.
func (r *Resolver) HasPermission(ctx context.Context, subject Subject, permission Permission) (allowed bool) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Str("permission", string(permission)).Msg("permission check panicked, denying")
			allowed = false
		}
	}()

	role, ok := r.activeRole(ctx, subject)
	if !ok {
		return false
	}
	return role.Grants(permission)
}

// HasAnyPermission is true when at least one of permissions is granted. Fails closed like HasPermission.
func (r *Resolver) HasAnyPermission(ctx context.Context, subject Subject, permissions []Permission) (allowed bool) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Msg("permission check panicked, denying")
			allowed = false
		}
	}()

	role, ok := r.activeRole(ctx, subject)
	if !ok {
		return false
	}
	for _, p := range permissions {
		if role.Grants(p) {
			return true
		}
	}
	return false
}

// HasRole compares the resolved role's name directly. Inactive roles never match.
func (r *Resolver) HasRole(ctx context.Context, subject Subject, name RoleName) bool {
	role, ok := r.activeRole(ctx, subject)
	return ok && role.Name == name
}

func (r *Resolver) activeRole(ctx context.Context, subject Subject) (*Role, bool) {
	role, err := r.RoleFor(ctx, subject)
	if err != nil {
		log.Debug().Err(err).Msg("role lookup failed, denying")
		return nil, false
	}
	if !role.IsActive {
		return nil, false
	}
	return role, true
}
