package database

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bagumbayan/brgydocs/internal/config"
)

// startPostgres runs PostgreSQL in a container. Skipped unless TEST_INTEGRATION is set.
func startPostgres(t *testing.T) config.PostgresConfig {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("skipping integration test: TEST_INTEGRATION not set")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("brgydocs_test"),
		postgres.WithUsername("brgydocs"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	return config.PostgresConfig{
		Host: host, Port: portNum, Name: "brgydocs_test",
		User: "brgydocs", Password: "test-password", SSLMode: "disable",
	}
}

func TestMigrateAndConnect(t *testing.T) {
	cfg := startPostgres(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	require.NoError(t, Migrate(cfg, logger))
	require.NoError(t, Migrate(cfg, logger))

	ctx := context.Background()
	pool, err := Connect(ctx, cfg, logger)
	require.NoError(t, err)
	defer pool.Close()

	for _, table := range []string{"users", "certificates"} {
		var exists bool
		err := pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`, table,
		).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, table)
	}

	require.NoError(t, NewReadinessChecker(pool).CheckReady(ctx))
}
