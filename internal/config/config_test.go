package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("JWT_TTL", "2h")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "permissive", cfg.OrphanPolicy)
	assert.Equal(t, 2*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.False(t, cfg.IsRelease())

	dsn, err := cfg.Database.DSN()
	require.NoError(t, err)
	assert.Contains(t, dsn, "dbname=hierarchy")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			GinMode:        "debug",
			RequestTimeout: time.Second,
			OrphanPolicy:   "strict",
			Database:       DatabaseOptions{Driver: "mysql"},
			Notify:         NotifyOptions{Sender: "amqp"},
			JWT:            JWTOptions{Secret: "short"},
		}
	}
	require.NoError(t, valid().Validate())

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "oracle" }},
		{"unknown orphan policy", func(c *Config) { c.OrphanPolicy = "lenient" }},
		{"unknown sender", func(c *Config) { c.Notify.Sender = "smtp" }},
		{"short secret in release", func(c *Config) { c.GinMode = "release" }},
		{"no timeout", func(c *Config) { c.RequestTimeout = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDatabaseOptions_DSN(t *testing.T) {
	dsn, err := DatabaseOptions{Driver: "mysql", User: "u", Password: "p", Host: "db", Port: "3306", Name: "h"}.DSN()
	require.NoError(t, err)
	assert.Equal(t, "u:p@tcp(db:3306)/h?charset=utf8mb4&parseTime=True&loc=Local", dsn)
}
