package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 300*time.Second, cfg.Database.ConnMaxLifetime)
	assert.True(t, cfg.Stock.AllowNegative)
	assert.Equal(t, "UTC", cfg.Reports.Location.String())
	assert.True(t, cfg.IsDevelopment())
	assert.Len(t, cfg.Warnings(), 2)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("DATABASE_DSN", "file:test.db")
	t.Setenv("STOCK_ALLOW_NEGATIVE", "false")
	t.Setenv("REPORT_TIMEZONE", "America/Sao_Paulo")
	t.Setenv("DB_MAX_OPEN_CONNS", "not-a-number")
	t.Setenv("APP_ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.False(t, cfg.Stock.AllowNegative)
	assert.Equal(t, "America/Sao_Paulo", cfg.Reports.Location.String())
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}},
		{"short secret", map[string]string{"JWT_SECRET": "short"}},
		{"bad driver", map[string]string{"DB_DRIVER": "mysql"}},
		{"bad encoding", map[string]string{"LOG_ENCODING": "xml"}},
		{"bad timezone", map[string]string{"REPORT_TIMEZONE": "Mars/Olympus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
