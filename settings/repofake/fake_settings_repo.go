package fakesettingsrepo

import (
	"context"
	"sync"

	"github.com/jrsteele09/taskhub-server/settings"
)

var _ settings.Repo = (*FakeSettingsRepo)(nil)

type FakeSettingsRepo struct {
	current *settings.Settings
	err     error
	lock    sync.RWMutex
}

func NewFakeSettingsRepo() *FakeSettingsRepo {
	return &FakeSettingsRepo{}
}

func (sr *FakeSettingsRepo) Get(_ context.Context) (*settings.Settings, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	if sr.err != nil {
		return nil, sr.err
	}
	if sr.current == nil {
		return settings.Defaults(), nil
	}
	copied := *sr.current
	return &copied, nil
}

func (sr *FakeSettingsRepo) Save(_ context.Context, s *settings.Settings) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	if sr.err != nil {
		return sr.err
	}
	copied := *s
	copied.ID = settings.GlobalID
	sr.current = &copied
	return nil
}

// FailWith makes every call return err, nil restores normal behaviour.
func (sr *FakeSettingsRepo) FailWith(err error) {
	sr.lock.Lock()
	defer sr.lock.Unlock()
	sr.err = err
}
