package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration for the API server.
type Config struct {
	Port    string
	AppEnv  string
	CORS    []string
	Auth    AuthConfig
	DB      DatabaseConfig
	Overdue OverdueConfig
}

// AuthConfig controls bearer-token verification at the HTTP boundary.
type AuthConfig struct {
	JWTSecret string
	Disabled  bool
}

// DatabaseConfig selects and addresses the backing store.
type DatabaseConfig struct {
	Driver   string // postgres | sqlite
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	Path     string // sqlite file, ":memory:" allowed
}

// OverdueConfig drives the periodic overdue sweep. A zero interval disables it.
type OverdueConfig struct {
	SweepInterval time.Duration
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DSN builds the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.Name + "?sslmode=" + d.SSLMode
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Load reads envFile (if present) into the process environment and then
// resolves every setting from the environment with defaults applied.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		// A missing file is fine; the environment may already be populated.
		_ = godotenv.Load(envFile)
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Port:   v.GetString("PORT"),
		AppEnv: v.GetString("APP_ENV"),
		CORS:   splitList(v.GetString("CORS_ORIGINS")),
		Auth: AuthConfig{
			JWTSecret: v.GetString("JWT_SECRET"),
			Disabled:  v.GetBool("AUTH_DISABLED"),
		},
		DB: DatabaseConfig{
			Driver:   strings.ToLower(v.GetString("DB_DRIVER")),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
			Path:     v.GetString("DB_PATH"),
		},
		Overdue: OverdueConfig{
			SweepInterval: v.GetDuration("OVERDUE_SWEEP_INTERVAL"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173,http://localhost:5174")
	v.SetDefault("JWT_SECRET", "super_secret_jwt_key_12345")
	v.SetDefault("AUTH_DISABLED", false)

	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "postgres")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_PATH", "invoicing.db")

	v.SetDefault("OVERDUE_SWEEP_INTERVAL", "1h")
}

func (c *Config) validate() error {
	switch c.DB.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want %s or %s)", c.DB.Driver, DriverPostgres, DriverSQLite)
	}
	if c.Overdue.SweepInterval < 0 {
		return fmt.Errorf("OVERDUE_SWEEP_INTERVAL must not be negative, got %s", c.Overdue.SweepInterval)
	}
	if c.IsProduction() && !c.Auth.Disabled && c.Auth.JWTSecret == "super_secret_jwt_key_12345" {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
