//go:build integration

package executor

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// startTestPool boots a disposable Postgres container for the calling test
// and returns a pool pointed at it; the container and pool are torn down
// through t.Cleanup when that test ends.
func startTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("pggateway_test"),
		postgres.WithUsername("pggateway"),
		postgres.WithPassword("pggateway"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

func TestPoolExecutor_ExecuteAgainstRealPostgres(t *testing.T) {
	pool := startTestPool(t)
	exec := NewPoolExecutor(pool)

	result, err := exec.Execute(context.Background(), "SELECT 1 AS n", nil, Options{})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	require.EqualValues(t, 1, result.Rows[0]["n"])
}

func TestPoolExecutor_DeriveSessionThenDestroy(t *testing.T) {
	pool := startTestPool(t)
	exec := NewPoolExecutor(pool)

	sess, err := exec.DeriveSession(context.Background())
	require.NoError(t, err)

	_, err = sess.Execute(context.Background(), "CREATE TEMP TABLE scratch (n int)", nil, Options{})
	require.NoError(t, err)

	_, err = sess.Execute(context.Background(), "INSERT INTO scratch VALUES (1)", nil, Options{})
	require.NoError(t, err)

	require.NoError(t, sess.Close(context.Background(), true))

	sess2, err := exec.DeriveSession(context.Background())
	require.NoError(t, err)
	defer sess2.Close(context.Background(), true)

	// The temp table was scoped to the destroyed connection's session, so
	// a fresh session must not see it.
	_, err = sess2.Execute(context.Background(), "SELECT * FROM scratch", nil, Options{})
	require.Error(t, err)
}

func TestPoolExecutor_StatementTimeoutIsEnforced(t *testing.T) {
	pool := startTestPool(t)
	exec := NewPoolExecutor(pool)

	_, err := exec.Execute(context.Background(), "SELECT pg_sleep(1)", nil, Options{TimeoutMS: 50})
	require.Error(t, err)
}
