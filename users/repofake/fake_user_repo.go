package fakeuserrepo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/taskhub-server/internal/errors"
	"github.com/jrsteele09/taskhub-server/users"
)

var _ users.Repo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users map[string]*users.User
	lock  sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users: make(map[string]*users.User),
	}
}

func (ur *FakeUserRepo) GetByID(_ context.Context, id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	user, ok := ur.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, apperrors.ErrUserNotFound)
	}
	return copyUser(user), nil
}

func (ur *FakeUserRepo) GetByIdentifier(_ context.Context, identifier string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	if identifier == "" {
		return nil, apperrors.ErrUserNotFound
	}
	email := users.NormalizeEmail(identifier)
	for _, user := range ur.users {
		if user.Email == email {
			return copyUser(user), nil
		}
	}
	for _, user := range ur.users {
		if user.Username == identifier {
			return copyUser(user), nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", identifier, apperrors.ErrUserNotFound)
}

func (ur *FakeUserRepo) GetByResetTokenHash(_ context.Context, tokenHash string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	if tokenHash == "" {
		return nil, apperrors.ErrUserNotFound
	}
	for _, user := range ur.users {
		if user.PasswordResetTokenHash == tokenHash {
			return copyUser(user), nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (ur *FakeUserRepo) List(_ context.Context, offset, limit int) ([]*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	userList := make([]*users.User, 0, len(ur.users))
	for _, v := range ur.users {
		userList = append(userList, copyUser(v))
	}
	sort.Slice(userList, func(i, j int) bool {
		return userList[i].ID < userList[j].ID
	})

	if offset >= len(userList) {
		return []*users.User{}, nil
	}
	end := len(userList)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return userList[offset:end], nil
}

func (ur *FakeUserRepo) Upsert(_ context.Context, user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = users.NormalizeEmail(user.Email)
	for id, existing := range ur.users {
		if id == user.ID {
			continue
		}
		if existing.Email == user.Email || (user.Username != "" && existing.Username == user.Username) {
			return fmt.Errorf("user %s: %w", user.ID, apperrors.ErrUserExists)
		}
	}
	ur.users[user.ID] = copyUser(user)
	return nil
}

func (ur *FakeUserRepo) SetRole(_ context.Context, id, roleID string) error {
	return ur.update(id, func(u *users.User) {
		u.RoleID = roleID
	})
}

func (ur *FakeUserRepo) SetLoggedIn(_ context.Context, id string, loggedIn bool, lastLogin time.Time) error {
	return ur.update(id, func(u *users.User) {
		u.IsLoggedIn = loggedIn
		u.Status = users.StatusInactive
		if loggedIn {
			u.Status = users.StatusActive
		}
		if !lastLogin.IsZero() {
			u.LastLogin = lastLogin
		}
	})
}

func (ur *FakeUserRepo) SetPassword(_ context.Context, id, passwordHash string) error {
	return ur.update(id, func(u *users.User) {
		u.PasswordHash = passwordHash
		u.PasswordResetTokenHash = ""
		u.PasswordResetExpiresAt = nil
	})
}

func (ur *FakeUserRepo) SetResetToken(_ context.Context, id, tokenHash string, expiresAt time.Time) error {
	return ur.update(id, func(u *users.User) {
		u.PasswordResetTokenHash = tokenHash
		u.PasswordResetExpiresAt = &expiresAt
	})
}

func (ur *FakeUserRepo) SoftDelete(_ context.Context, id string, at time.Time) error {
	return ur.update(id, func(u *users.User) {
		u.IsDeleted = true
		u.DeletedAt = &at
	})
}

func (ur *FakeUserRepo) ListDeletedBefore(_ context.Context, cutoff time.Time) ([]*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	list := make([]*users.User, 0)
	for _, u := range ur.users {
		if u.IsDeleted && u.DeletedAt != nil && u.DeletedAt.Before(cutoff) {
			list = append(list, copyUser(u))
		}
	}
	return list, nil
}

func (ur *FakeUserRepo) Delete(_ context.Context, id string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	delete(ur.users, id)
	return nil
}

func (ur *FakeUserRepo) update(id string, fn func(u *users.User)) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	user, ok := ur.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, apperrors.ErrUserNotFound)
	}
	fn(user)
	return nil
}

func copyUser(u *users.User) *users.User {
	copied := *u
	return &copied
}
