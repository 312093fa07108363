package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Application ApplicationConfig `mapstructure:"application"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Log         LogConfig         `mapstructure:"log"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Ingest      IngestConfig      `mapstructure:"ingest"`
	CORS        CORSConfig        `mapstructure:"cors"`
}

type ApplicationConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	URL             string        `mapstructure:"url"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

type RedisConfig struct {
	URL       string        `mapstructure:"url"`
	LookupTTL time.Duration `mapstructure:"lookup_ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type IngestConfig struct {
	// StrictCreate rejects a CREATE whose data_id already has a final state.
	StrictCreate bool `mapstructure:"strict_create"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Application.Host, c.Application.Port)
}

// Load reads configuration from defaults, an optional config file and
// SECRET_-prefixed environment variables, in increasing precedence.
// With an empty configPath, config.toml is looked up in the working directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("application.host", "localhost")
	v.SetDefault("application.port", 12345)
	v.SetDefault("application.read_timeout", "15s")
	v.SetDefault("application.write_timeout", "15s")
	v.SetDefault("application.shutdown_timeout", "10s")
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "10m")
	v.SetDefault("database.max_conn_idle_time", "5m")
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.lookup_ttl", "5m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("ingest.strict_create", false)
	v.SetDefault("cors.allowed_origins", []string{"*"})

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}

	// Environment variables override (SECRET_DATABASE_URL, etc.)
	v.SetEnvPrefix("SECRET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			return errors.New("database.url is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Application.Port <= 0 || c.Application.Port > 65535 {
		return fmt.Errorf("invalid application port %d", c.Application.Port)
	}
	return nil
}
