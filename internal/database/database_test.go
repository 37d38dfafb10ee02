package database

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"inkwell/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestConfigurePool(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	cfg := &config.Config{
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	}
	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestConnect_SQLiteMigrates(t *testing.T) {
	cfg := &config.Config{
		Env:      "test",
		DBDriver: "sqlite",
		DBPath:   filepath.Join(t.TempDir(), "inkwell.db"),
	}

	db, err := Connect(cfg)
	require.NoError(t, err)

	for _, table := range []string{"users", "blogs", "blog_collaborators"} {
		assert.True(t, db.Migrator().HasTable(table), "missing table %s", table)
	}
	assert.NoError(t, Ping(context.Background(), db))
}

func TestDialector_UnknownDriver(t *testing.T) {
	_, err := dialector(&config.Config{DBDriver: "oracle"})
	assert.Error(t, err)
}

func TestGormLogger_LogMode(t *testing.T) {
	l := NewGormLogger(slog.Default())
	silent := l.LogMode(logger.Silent).(*CustomGormLogger)

	assert.Equal(t, logger.Silent, silent.Config.LogLevel)
	assert.Equal(t, logger.Warn, l.Config.LogLevel)
}
