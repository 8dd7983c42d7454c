package settings_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jrsteele09/taskhub-server/settings"
	fakesettingsrepo "github.com/jrsteele09/taskhub-server/settings/repofake"
	"github.com/stretchr/testify/require"
)

func TestFakeSettingsRepo(t *testing.T) {
	ctx := context.Background()
	repo := fakesettingsrepo.NewFakeSettingsRepo()

	s, err := repo.Get(ctx)
	require.NoError(t, err)
	require.False(t, s.MaintenanceMode)
	require.Equal(t, settings.DefaultMaintenanceMessage, s.Message())

	require.NoError(t, repo.Save(ctx, &settings.Settings{MaintenanceMode: true, MaintenanceMessage: "back at 5"}))
	s, err = repo.Get(ctx)
	require.NoError(t, err)
	require.True(t, s.MaintenanceMode)
	require.Equal(t, "back at 5", s.Message())
	require.Equal(t, settings.GlobalID, s.ID)

	repo.FailWith(errors.New("db down"))
	_, err = repo.Get(ctx)
	require.Error(t, err)
}

func TestMessageFallback(t *testing.T) {
	s := &settings.Settings{MaintenanceMode: true}
	require.Equal(t, settings.DefaultMaintenanceMessage, s.Message())
}
