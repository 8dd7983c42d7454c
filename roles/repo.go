package roles

import "context"

// Repo stores role records. Get and GetByName return an error wrapping
// errors.ErrRoleNotFound when nothing matches.
type Repo interface {
	Get(ctx context.Context, id string) (*Role, error)
	GetByName(ctx context.Context, name RoleName) (*Role, error)
	List(ctx context.Context) ([]*Role, error)
	Upsert(ctx context.Context, role *Role) error
	Delete(ctx context.Context, id string) error
}
