package roles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/taskhub-server/internal/errors"
	"github.com/rs/zerolog/log"
)

// EnsureDefaults creates any of the default roles missing from repo. Existing
// roles are left untouched so admin edits survive restarts.
func EnsureDefaults(ctx context.Context, repo Repo) error {
	for _, role := range DefaultRoles() {
		_, err := repo.GetByName(ctx, role.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, apperrors.ErrRoleNotFound) {
			return fmt.Errorf("[roles.EnsureDefaults] GetByName %s: %w", role.Name, err)
		}

		now := time.Now().UTC()
		role.ID = uuid.NewString()
		role.CreatedAt = now
		role.UpdatedAt = now
		if err := repo.Upsert(ctx, role); err != nil {
			return fmt.Errorf("[roles.EnsureDefaults] Upsert %s: %w", role.Name, err)
		}
		log.Info().Str("role", string(role.Name)).Msg("seeded default role")
	}
	return nil
}
