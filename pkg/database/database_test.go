package database

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdnyco/ichi/config"
)

func sqliteConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	cfg.Database.MaxOpenConns = 1
	cfg.Database.LogLevel = "silent"
	return cfg
}

func TestMigrate(t *testing.T) {
	db, err := InitDB(sqliteConfig())
	require.NoError(t, err)
	defer Close(db)

	require.NoError(t, Migrate(db, false))
	assert.True(t, db.Migrator().HasTable("ping_events"))
	assert.True(t, db.Migrator().HasTable("ping_recipients"))
	assert.True(t, db.Migrator().HasIndex("ping_events", "ux_ping_event_place_day"))
	assert.False(t, db.Migrator().HasTable("check_ins"))

	require.NoError(t, Migrate(db, true))
	for _, table := range []string{"users", "places", "check_ins", "place_profiles", "user_blocks"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestInitDB_UnknownDriver(t *testing.T) {
	cfg := sqliteConfig()
	cfg.Database.Driver = "oracle"
	_, err := InitDB(cfg)
	assert.Error(t, err)
}
