package config

import (
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Config struct {
	DBDSN         string `mapstructure:"db_dsn"`
	ServerPort    string `mapstructure:"server_port"`
	SessionSecret string `mapstructure:"session_secret"`
	LogLevel      string `mapstructure:"log_level"`
	TemplatesGlob string `mapstructure:"templates_glob"`

	// seed superuser, created only when no superuser exists
	AdminUsername string `mapstructure:"admin_username"`
	AdminPassword string `mapstructure:"admin_password"`
}

// Load reads .env, the optional configs/config.yaml and the environment, in that order of
// increasing precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile("configs/config.yaml")
	v.AutomaticEnv()

	v.SetDefault("server_port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("templates_glob", "web/templates/*.html")
	v.SetDefault("admin_username", "admin")
	v.SetDefault("admin_password", "Admin123!")
	// AutomaticEnv only answers keys viper already knows about
	v.SetDefault("db_dsn", "")
	v.SetDefault("session_secret", "")

	// config file is optional
	_ = v.ReadInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal: %w", err)
	}

	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN is not set")
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("SESSION_SECRET is not set")
	}

	return &cfg, nil
}

// InitLogger builds the production logger at the configured level and installs it globally.
func InitLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = lvl

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}
