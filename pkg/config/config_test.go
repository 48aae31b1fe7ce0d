package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("finsight-api")
	require.NoError(t, err)

	assert.Equal(t, "finsight-api", cfg.Server.ServiceName)
	assert.Equal(t, StoreDriverPostgres, cfg.Server.StoreDriver)
	assert.Equal(t, 4, cfg.Scan.Workers)
	assert.Equal(t, 3*time.Minute, cfg.Scan.Deadline)
	assert.Equal(t, 1, cfg.Scan.ClassifierRetries)
	assert.Equal(t, 2.0, cfg.Geo.TieBreakRadiusKm)
	assert.Equal(t, "/predict-spam", cfg.Classifier.Path)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("SCAN_WORKERS", "8")
	t.Setenv("SCAN_DEADLINE", "45s")
	t.Setenv("GEO_TIE_BREAK_RADIUS_KM", "1.5")
	t.Setenv("NATS_ENABLED", "true")

	cfg, err := Load("finsight-api")
	require.NoError(t, err)

	assert.Equal(t, StoreDriverMemory, cfg.Server.StoreDriver)
	assert.Equal(t, 8, cfg.Scan.Workers)
	assert.Equal(t, 45*time.Second, cfg.Scan.Deadline)
	assert.Equal(t, 1.5, cfg.Geo.TieBreakRadiusKm)
	assert.True(t, cfg.NATS.Enabled)
}

func TestLoad_InvalidValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("SCAN_WORKERS", "lots")
	t.Setenv("SCAN_DEADLINE", "soon")

	cfg, err := Load("finsight-api")
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Scan.Workers)
	assert.Equal(t, 3*time.Minute, cfg.Scan.Deadline)
}

func TestLoad_RejectsUnknownStoreDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "firestore")

	_, err := Load("finsight-api")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_DRIVER")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "zero workers", mutate: func(c *Config) { c.Scan.Workers = 0 }, wantErr: true},
		{name: "negative retries", mutate: func(c *Config) { c.Scan.ClassifierRetries = -1 }, wantErr: true},
		{name: "no retries", mutate: func(c *Config) { c.Scan.ClassifierRetries = 0 }},
		{name: "more than one retry", mutate: func(c *Config) { c.Scan.ClassifierRetries = 2 }, wantErr: true},
		{name: "zero radius", mutate: func(c *Config) { c.Geo.TieBreakRadiusKm = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Server: ServerConfig{StoreDriver: StoreDriverMemory},
				Scan:   ScanConfig{Workers: 2, ClassifierRetries: 1},
				Geo:    GeoConfig{TieBreakRadiusKm: 2},
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDatabaseConfig_DSNAndMigrationURL(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db",
		Port:     "5432",
		User:     "finsight",
		Password: "secret",
		DBName:   "finsight",
		SSLMode:  "disable",
	}

	assert.Equal(t, "host=db port=5432 user=finsight password=secret dbname=finsight sslmode=disable", cfg.DSN())
	assert.Equal(t, "pgx5://finsight:secret@db:5432/finsight?sslmode=disable", cfg.MigrationURL())
}
