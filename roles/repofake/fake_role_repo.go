package fakerolerepo

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/taskhub-server/internal/errors"
	"github.com/jrsteele09/taskhub-server/roles"
)

var _ roles.Repo = (*FakeRoleRepo)(nil)

type FakeRoleRepo struct {
	roles map[string]*roles.Role
	lock  sync.RWMutex
}

func NewFakeRoleRepo() *FakeRoleRepo {
	return &FakeRoleRepo{
		roles: make(map[string]*roles.Role),
	}
}

func (rr *FakeRoleRepo) Get(_ context.Context, id string) (*roles.Role, error) {
	rr.lock.RLock()
	defer rr.lock.RUnlock()

	role, ok := rr.roles[id]
	if !ok {
		return nil, fmt.Errorf("role %s: %w", id, apperrors.ErrRoleNotFound)
	}
	copied := *role
	return &copied, nil
}

func (rr *FakeRoleRepo) GetByName(_ context.Context, name roles.RoleName) (*roles.Role, error) {
	rr.lock.RLock()
	defer rr.lock.RUnlock()

	for _, role := range rr.roles {
		if role.Name == name {
			copied := *role
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("role %s: %w", name, apperrors.ErrRoleNotFound)
}

func (rr *FakeRoleRepo) List(_ context.Context) ([]*roles.Role, error) {
	rr.lock.RLock()
	defer rr.lock.RUnlock()

	list := make([]*roles.Role, 0, len(rr.roles))
	for _, role := range rr.roles {
		copied := *role
		list = append(list, &copied)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})
	return list, nil
}

func (rr *FakeRoleRepo) Upsert(_ context.Context, role *roles.Role) error {
	if err := role.Validate(); err != nil {
		return err
	}

	rr.lock.Lock()
	defer rr.lock.Unlock()

	if role.ID == "" {
		role.ID = uuid.NewString()
	}
	for id, existing := range rr.roles {
		if existing.Name == role.Name && id != role.ID {
			return fmt.Errorf("role name %s already exists", role.Name)
		}
	}
	copied := *role
	rr.roles[role.ID] = &copied
	return nil
}

func (rr *FakeRoleRepo) Delete(_ context.Context, id string) error {
	rr.lock.Lock()
	defer rr.lock.Unlock()

	delete(rr.roles, id)
	return nil
}
