package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProductionConfig() *Config {
	return &Config{
		Env:            "production",
		Port:           "5000",
		DBDriver:       "postgres",
		DBSSLMode:      "require",
		DBPassword:     "a-very-strong-password",
		JWTSecret:      "secure-secret-at-least-32-chars-long",
		AllowedOrigins: "https://inkwell.example.com",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"Production valid", func(*Config) {}, false},
		{"Production default secret", func(c *Config) { c.JWTSecret = defaultJWTSecret }, true},
		{"Production short secret", func(c *Config) { c.JWTSecret = "short" }, true},
		{"Production weak DB password", func(c *Config) { c.DBPassword = "password" }, true},
		{"Production disabled TLS", func(c *Config) { c.DBSSLMode = "disable" }, true},
		{"Production wildcard origin", func(c *Config) { c.AllowedOrigins = "*" }, true},
		{"Production sqlite", func(c *Config) { c.DBDriver = "sqlite" }, true},
		{"Unknown driver", func(c *Config) { c.DBDriver = "mysql" }, true},
		{"Missing port", func(c *Config) { c.Port = "" }, true},
		{"Missing secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"Development relaxed", func(c *Config) {
			c.Env = "development"
			c.DBSSLMode = "disable"
			c.DBPassword = "password"
			c.JWTSecret = "dev"
			c.DBDriver = "sqlite"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validProductionConfig()
			tt.mutate(c)

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	defer viper.Reset()
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("DB_DRIVER")
	defer os.Unsetenv("PORT")

	os.Setenv("APP_ENV", "test")
	os.Setenv("DB_DRIVER", "  SQLite ")
	os.Setenv("PORT", "9099")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "9099", cfg.Port)
	assert.Equal(t, "inkwell", cfg.DBName)
	assert.False(t, cfg.IsProduction())
}
