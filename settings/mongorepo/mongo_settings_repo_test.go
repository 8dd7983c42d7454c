package mongosettingsrepo_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/taskhub-server/settings"
	mongosettingsrepo "github.com/jrsteele09/taskhub-server/settings/mongorepo"
	"github.com/jrsteele09/taskhub-server/store/mongodb/mongotest"
	"github.com/stretchr/testify/require"
)

func TestMongoSettingsRepo(t *testing.T) {
	db := mongotest.Database(t)
	ctx := context.Background()
	repo := mongosettingsrepo.New(db)

	s, err := repo.Get(ctx)
	require.NoError(t, err)
	require.False(t, s.MaintenanceMode)

	require.NoError(t, repo.Save(ctx, &settings.Settings{MaintenanceMode: true, MaintenanceMessage: "upgrading"}))
	require.NoError(t, repo.Save(ctx, &settings.Settings{MaintenanceMode: true, MaintenanceMessage: "still upgrading"}))

	s, err = repo.Get(ctx)
	require.NoError(t, err)
	require.True(t, s.MaintenanceMode)
	require.Equal(t, "still upgrading", s.Message())
}
