package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/realm/internal/storage"
	"github.com/cory-johannsen/realm/internal/storage/postgres"
	"github.com/cory-johannsen/realm/internal/storage/storagetest"
	"github.com/cory-johannsen/realm/internal/testutil"
)

func TestCharacterStore(t *testing.T) {
	db := testutil.StartPostgres(t, testutil.Migrated())

	storagetest.Run(t, func(t *testing.T) storage.Store {
		_, err := db.Raw.Exec(context.Background(), `TRUNCATE characters`)
		require.NoError(t, err)
		return postgres.NewCharacterStore(db.Raw)
	})
}

func TestCharacterStore_MirrorsQueryColumns(t *testing.T) {
	ctx := context.Background()
	db := testutil.StartPostgres(t, testutil.Migrated())
	s := postgres.NewCharacterStore(db.Raw)

	hero := storagetest.Hero(t, "hero")
	hero.ZoneID = "dark-forest"
	hero.Level = 5
	require.NoError(t, s.SaveCharacter(ctx, hero))
	require.NoError(t, s.SaveCharacter(ctx, storagetest.Hero(t, "villager")))

	var level int
	var zone string
	err := db.Raw.QueryRow(ctx, `SELECT level, zone_id FROM characters WHERE id = 'hero'`).Scan(&level, &zone)
	require.NoError(t, err)
	assert.Equal(t, 5, level)
	assert.Equal(t, "dark-forest", zone)

	ids, err := s.ListInZone(ctx, "dark-forest")
	require.NoError(t, err)
	assert.Equal(t, []string{"hero"}, ids)

	var docZone string
	err = db.Raw.QueryRow(ctx, `SELECT doc->>'zoneId' FROM characters WHERE id = 'hero'`).Scan(&docZone)
	require.NoError(t, err)
	assert.Equal(t, "dark-forest", docZone)
}

func TestPool_Health(t *testing.T) {
	db := testutil.StartPostgres(t)
	assert.NoError(t, db.Pool.Health(context.Background(), time.Second))
	_, total := db.Pool.InUse()
	assert.GreaterOrEqual(t, total, int32(1))

	var name string
	require.NoError(t, db.Raw.QueryRow(context.Background(), `SELECT current_setting('application_name')`).Scan(&name))
	assert.Equal(t, "realm-gameserver", name)
}
