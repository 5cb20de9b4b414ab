package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port         string        `mapstructure:"server_port"`
	ReadTimeout  time.Duration `mapstructure:"server_read_timeout"`
	WriteTimeout time.Duration `mapstructure:"server_write_timeout"`
}

type DatabaseConfig struct {
	Driver     string `mapstructure:"db_driver"` // postgres or sqlite
	URL        string `mapstructure:"database_url"`
	Host       string `mapstructure:"db_host"`
	Port       string `mapstructure:"db_port"`
	User       string `mapstructure:"db_user"`
	Password   string `mapstructure:"db_password"`
	Name       string `mapstructure:"db_name"`
	SSLMode    string `mapstructure:"db_sslmode"`
	SQLitePath string `mapstructure:"sqlite_path"`
	LogMode    bool   `mapstructure:"db_log_mode"`
}

type SupabaseConfig struct {
	URL       string        `mapstructure:"supabase_url"`
	AnonKey   string        `mapstructure:"supabase_anon_key"`
	JWTSecret string        `mapstructure:"supabase_jwt_secret"`
	Timeout   time.Duration `mapstructure:"identity_timeout"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"redis_addr"`
	Password string        `mapstructure:"redis_password"`
	DB       int           `mapstructure:"redis_db"`
	TokenTTL time.Duration `mapstructure:"token_cache_ttl"`
}

type SettingsConfig struct {
	Backend string `mapstructure:"settings_backend"` // db, file or redis
	File    string `mapstructure:"settings_file"`
}

type LogConfig struct {
	Level  string `mapstructure:"log_level"`
	Format string `mapstructure:"log_format"` // json or console
}

type Config struct {
	Server   ServerConfig   `mapstructure:",squash"`
	Database DatabaseConfig `mapstructure:",squash"`
	Supabase SupabaseConfig `mapstructure:",squash"`
	Redis    RedisConfig    `mapstructure:",squash"`
	Settings SettingsConfig `mapstructure:",squash"`
	Log      LogConfig      `mapstructure:",squash"`
}

var defaults = map[string]interface{}{
	"server_port":          "3000",
	"server_read_timeout":  "15s",
	"server_write_timeout": "30s",
	"db_driver":            "postgres",
	"db_host":              "localhost",
	"db_port":              "5432",
	"db_user":              "postgres",
	"db_password":          "",
	"db_name":              "postgres",
	"db_sslmode":           "require",
	"database_url":         "",
	"sqlite_path":          "data/finance.db",
	"db_log_mode":          false,
	"supabase_url":         "",
	"supabase_anon_key":    "",
	"supabase_jwt_secret":  "",
	"identity_timeout":     "10s",
	"redis_addr":           "",
	"redis_password":       "",
	"redis_db":             0,
	"token_cache_ttl":      "5m",
	"settings_backend":     "db",
	"settings_file":        "data/settings.json",
	"log_level":            "info",
	"log_format":           "json",
}

// LoadEnvFile copies variables from .env files into the process environment
// without overriding variables that are already set.
func LoadEnvFile(files ...string) error {
	return godotenv.Load(files...)
}

// Load builds the configuration from the process environment.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if c.Supabase.URL == "" || c.Supabase.AnonKey == "" {
		return fmt.Errorf("SUPABASE_URL and SUPABASE_ANON_KEY must be set")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	switch c.Settings.Backend {
	case "db", "file":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("SETTINGS_BACKEND=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unsupported SETTINGS_BACKEND %q", c.Settings.Backend)
	}
	return nil
}

// PostgresDSN returns DATABASE_URL when set, otherwise a key/value DSN built from the DB_* variables.
func (d DatabaseConfig) PostgresDSN() string {
	if d.URL != "" {
		return d.URL
	}
	dsn := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
	if d.Password != "" {
		dsn += fmt.Sprintf(" password=%s", d.Password)
	}
	return dsn
}
