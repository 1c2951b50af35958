package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoad_DefaultsAndEnvFile(t *testing.T) {
	req := require.New(t)

	dir := t.TempDir()
	file := filepath.Join(dir, "test.env")
	req.NoError(os.WriteFile(file, []byte("IDENTITY_SECRET=from-file\nPORT=9090\n"), 0o600))

	// godotenv never overrides variables that are already set.
	t.Setenv("PORT", "")
	os.Unsetenv("PORT")
	t.Setenv("IDENTITY_SECRET", "")
	os.Unsetenv("IDENTITY_SECRET")
	t.Setenv("READ_TIMEOUT", "30s")

	cfg, err := Load(file)
	req.NoError(err)
	req.Equal(9090, cfg.Port)
	req.Equal("from-file", cfg.IdentitySecret)
	req.Equal(30*time.Second, cfg.ReadTimeout)
	req.Equal("info", cfg.LogLevel)
	req.Equal(32, cfg.OutboxSize)
	req.Equal("0.0.0.0:9090", cfg.Addr())
}

func TestValidate(t *testing.T) {
	base := Config{Port: 8080, OutboxSize: 4, IdentitySecret: "s"}
	require.NoError(t, base.Validate())

	cases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "port", mutate: func(c *Config) { c.Port = 0 }},
		{name: "outbox", mutate: func(c *Config) { c.OutboxSize = 0 }},
		{name: "identity", mutate: func(c *Config) { c.IdentitySecret = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := base
			tc.mutate(&c)
			require.Error(t, c.Validate())
		})
	}
}

func TestNewLogger(t *testing.T) {
	log, err := Config{LogLevel: "warn"}.NewLogger()
	require.NoError(t, err)
	require.False(t, log.Core().Enabled(zapcore.InfoLevel))
	require.True(t, log.Core().Enabled(zapcore.WarnLevel))

	_, err = Config{LogLevel: "loud"}.NewLogger()
	require.Error(t, err)
}
