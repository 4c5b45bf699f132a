package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "DB_DRIVER", "DB_PATH", "DATABASE_URL", "AUTH_TOKEN", "CORS_ORIGINS", "LOG_LEVEL", "LOG_FORMAT"} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "mybank.db", cfg.DBPath)
	assert.Empty(t, cfg.AuthToken)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:8080"}, cfg.CORSOrigins)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoad_EnvironmentAndFlags(t *testing.T) {
	// GIVEN: Settings in the environment
	// WHEN: Some of them are also passed as flags
	// THEN: Flags win over the environment

	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("DB_DRIVER", DriverMemory)
	t.Setenv("AUTH_TOKEN", "secret")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load([]string{"-port", "9100"})
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, DriverMemory, cfg.DBDriver)
	assert.Equal(t, "secret", cfg.AuthToken)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.NotNil(t, cfg.NewLogger())
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)

	t.Setenv("PORT", "not-a-number")
	_, err := Load(nil)
	assert.Error(t, err)

	t.Setenv("PORT", "8080")
	_, err = Load([]string{"-driver", "postgres"})
	assert.ErrorContains(t, err, "DATABASE_URL")

	_, err = Load([]string{"-driver", "oracle"})
	assert.ErrorContains(t, err, "unknown DB_DRIVER")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"sqlite", Config{Port: 1, DBDriver: DriverSQLite, DBPath: ":memory:"}, false},
		{"sqlite without path", Config{Port: 1, DBDriver: DriverSQLite}, true},
		{"postgres", Config{Port: 1, DBDriver: DriverPostgres, DatabaseURL: "postgres://x"}, false},
		{"memory", Config{Port: 1, DBDriver: DriverMemory}, false},
		{"port out of range", Config{Port: 70000, DBDriver: DriverMemory}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSlogLevel_Unknown(t *testing.T) {
	cfg := Config{LogLevel: "chatty"}
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}
