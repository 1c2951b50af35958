package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Host            string        `env:"HOST,default=0.0.0.0"`
	Port            int           `env:"PORT,default=8080"`
	LogLevel        string        `env:"LOG_LEVEL,default=info"`
	LogFormat       string        `env:"LOG_FORMAT,default=json"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	BadgerPath      string        `env:"BADGER_PATH"`
	IdentityAud     string        `env:"IDENTITY_AUDIENCE"`
	IdentityIssuer  string        `env:"IDENTITY_ISSUER"`
	IdentitySecret  string        `env:"IDENTITY_SECRET"`
	IdentityKeyFile string        `env:"IDENTITY_PUBLIC_KEY_FILE"`
	BannedNicknames string        `env:"BANNED_NICKNAMES"`
	PublicURL       string        `env:"PUBLIC_URL,default=http://localhost:8080/"`
	OutboxSize      int           `env:"OUTBOX_SIZE,default=32"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT,default=5m"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

// Load reads an optional .env file (or the given files) and then the
// process environment.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	if c.OutboxSize < 1 {
		return fmt.Errorf("OUTBOX_SIZE must be positive, got %d", c.OutboxSize)
	}
	if c.IdentitySecret == "" && c.IdentityKeyFile == "" {
		return errors.New("one of IDENTITY_SECRET or IDENTITY_PUBLIC_KEY_FILE is required")
	}
	return nil
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NewLogger builds the root logger from LOG_LEVEL and LOG_FORMAT.
func (c Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	zc := zap.NewProductionConfig()
	if c.LogFormat == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
