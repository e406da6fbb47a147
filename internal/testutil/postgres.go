// Package testutil starts throwaway infrastructure for integration tests.
package testutil

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cory-johannsen/realm/internal/config"
	"github.com/cory-johannsen/realm/internal/storage/postgres"
)

const (
	pgImage    = "postgres:16-alpine"
	pgUser     = "realm"
	pgPassword = "realm"
	pgDatabase = "realm_test"
)

// Database is a connected postgres running in a container owned by one test.
type Database struct {
	Pool   *postgres.Pool
	Raw    *pgxpool.Pool
	Config config.DatabaseConfig
}

// Option adjusts StartPostgres.
type Option func(*options)

type options struct {
	migrated bool
}

// Migrated applies every up migration before StartPostgres returns.
func Migrated() Option { return func(o *options) { o.migrated = true } }

// StartPostgres runs a postgres container for t and connects to it. Under
// -short the test is skipped.
//
// Precondition: Docker must be reachable.
// Postcondition: The container and pool are released on test cleanup.
func StartPostgres(t *testing.T, opts ...Option) *Database {
	t.Helper()
	if testing.Short() {
		t.Skip("needs docker; skipped with -short")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	ctx := context.Background()
	began := time.Now()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        pgImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     pgUser,
				"POSTGRES_PASSWORD": pgPassword,
				"POSTGRES_DB":       pgDatabase,
			},
			// postgres logs readiness once for the init server and once for
			// the real one.
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(45 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "starting %s", pgImage)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	db := &Database{Config: config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            pgUser,
		Password:        pgPassword,
		Name:            pgDatabase,
		SSLMode:         "disable",
		MaxConns:        4,
		MinConns:        1,
		MaxConnLifetime: time.Minute,
	}}
	if o.migrated {
		db.migrate(t)
	}

	db.Pool, err = postgres.NewPool(ctx, db.Config)
	require.NoError(t, err)
	t.Cleanup(db.Pool.Close)
	db.Raw = db.Pool.DB()

	t.Logf("postgres ready at %s:%d after %s", host, port.Int(), time.Since(began).Round(time.Millisecond))
	return db
}

// migrationsDir is migrations/postgres at the repository root.
func migrationsDir() string {
	_, here, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(here), "..", "..", "migrations", "postgres")
}

func (db *Database) migrate(t *testing.T) {
	t.Helper()
	m, err := migrate.New("file://"+filepath.ToSlash(migrationsDir()), db.Config.DSN())
	require.NoError(t, err)
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		require.NoError(t, err, "applying migrations")
	}
}
