// Package mongotest provides a throwaway database for repository integration tests.
// Tests are skipped unless MONGO_TEST_URI points at a reachable server.
package mongotest

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const uriEnvVar = "MONGO_TEST_URI"

// Database returns a uniquely named database that is dropped when the test ends.
func Database(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv(uriEnvVar)
	if uri == "" {
		t.Skipf("%s not set, skipping mongodb integration test", uriEnvVar)
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri).SetTimeout(10 * time.Second))
	require.NoError(t, err)

	db := client.Database(fmt.Sprintf("taskhub_test_%s", uuid.NewString()[:8]))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db
}
