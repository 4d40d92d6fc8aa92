package core_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyloop/recall-go/pkg/core"
)

func TestLoadConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("DATABASE_PROVIDER", "")
	t.Setenv("SQLITE_PATH", "")

	config, err := core.LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", config.Store.Provider)
	assert.Equal(t, "./recall.db", config.Store.SQLite.Path)
	require.NoError(t, config.Validate())
}

func TestLoadConfigFromEnvPostgres(t *testing.T) {
	t.Setenv("DATABASE_PROVIDER", "postgres")
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("POSTGRES_PORT", "5433")
	t.Setenv("POSTGRES_USER", "recall")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DATABASE", "recall_prod")

	config, err := core.LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "postgres", config.Store.Provider)
	assert.Equal(t, "db.internal", config.Store.Postgres.Host)
	assert.Equal(t, 5433, config.Store.Postgres.Port)
	assert.Equal(t, "secret", config.Store.Postgres.Password)
	assert.Equal(t, "disable", config.Store.Postgres.SSLMode)
	require.NoError(t, config.Validate())
}

func TestLoadConfigFromEnvSchedulerOverrides(t *testing.T) {
	t.Setenv("DATABASE_PROVIDER", "sqlite")
	t.Setenv("SCHEDULER_DESIRED_RETENTION", "0.85")
	t.Setenv("SCHEDULER_GRADUATION_STREAK", "3")
	t.Setenv("SCHEDULER_LAPSE_INTERVAL", "15m")
	t.Setenv("SCHEDULER_MAX_INTERVAL_DAYS", "365")

	config, err := core.LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 0.85, config.Scheduler.DesiredRetention)
	assert.Equal(t, 3, config.Scheduler.GraduationStreak)
	assert.Equal(t, 15*time.Minute, config.Scheduler.LapseInterval)
	assert.Equal(t, 365.0, config.Scheduler.MaxIntervalDays)
}

func TestLoadConfigFromEnvRejectsBadScheduler(t *testing.T) {
	t.Setenv("DATABASE_PROVIDER", "sqlite")
	t.Setenv("SCHEDULER_LAPSE_INTERVAL", "soon")

	_, err := core.LoadConfigFromEnv()
	assert.Error(t, err)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recall.yaml")
	content := []byte(`
store:
  provider: mysql
  table_prefix: recall_
  mysql:
    host: 127.0.0.1
    port: 3306
    user: root
    db_name: recall
scheduler:
  desired_retention: 0.92
  graduation_streak: 2
`)
	require.NoError(t, os.WriteFile(path, content, 0644))

	config, err := core.LoadConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "mysql", config.Store.Provider)
	assert.Equal(t, "recall_", config.Store.TablePrefix)
	assert.Equal(t, "recall", config.Store.MySQL.DBName)
	assert.Equal(t, 0.92, config.Scheduler.DesiredRetention)
	require.NoError(t, config.Validate())
}

func TestLoadConfigFromFileMissing(t *testing.T) {
	_, err := core.LoadConfigFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	config := &core.Config{Store: core.StoreConfig{Provider: "redis"}}
	err := config.Validate()
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestValidateRequiresConnectionSettings(t *testing.T) {
	config := &core.Config{Store: core.StoreConfig{Provider: "sqlite"}}
	assert.ErrorIs(t, config.Validate(), core.ErrInvalidConfig)

	config = &core.Config{Store: core.StoreConfig{
		Provider: "postgres",
		Postgres: core.PostgresConfig{Host: "localhost"},
	}}
	assert.ErrorIs(t, config.Validate(), core.ErrInvalidConfig)
}
