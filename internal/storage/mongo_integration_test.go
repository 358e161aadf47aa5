package storage

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"antigravity2api-go/internal/models"
)

func TestMongoDatabaseName(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"mongodb://localhost:27017":          "antigravity",
		"mongodb://localhost:27017/":         "antigravity",
		"mongodb://localhost:27017/gateway":  "gateway",
		"mongodb://u:p@host:27017/db?tls=on": "db",
	}
	for uri, want := range cases {
		require.Equal(t, want, mongoDatabaseName(uri), uri)
	}
}

func TestMongoStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("mongodb integration test skipped in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7.0",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp"),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("mongodb container unavailable: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "27017/tcp")
	require.NoError(t, err)

	uri := fmt.Sprintf("mongodb://%s:%s/itdb", host, port.Port())
	store, err := NewMongoStore(ctx, uri)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})

	t.Run("accounts round trip", func(t *testing.T) {
		_, err := store.LoadAccounts(ctx)
		require.ErrorIs(t, err, ErrNotFound)

		in := []*models.Account{testAccount(1), testAccount(2)}
		require.NoError(t, store.SaveAccounts(ctx, in))

		out, err := store.LoadAccounts(ctx)
		require.NoError(t, err)
		require.Len(t, out, 2)
		require.Equal(t, "refresh-001", out[0].RefreshToken)

		require.NoError(t, store.SaveAccounts(ctx, nil))
		out, err = store.LoadAccounts(ctx)
		require.NoError(t, err)
		require.Empty(t, out)
	})

	t.Run("history prune", func(t *testing.T) {
		total := models.DefaultHistoryLimit + 3
		for i := 1; i <= total; i++ {
			require.NoError(t, store.AppendHistory(ctx, testRecord(i)))
		}

		recs, err := store.ListHistory(ctx, 0)
		require.NoError(t, err)
		require.Len(t, recs, models.DefaultHistoryLimit)
		require.EqualValues(t, total, recs[0].DurationMS)
	})

	t.Run("health", func(t *testing.T) {
		require.NoError(t, store.Health(ctx))
	})
}
