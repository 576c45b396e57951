package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/yehey123/spending-tracker/internal/cache"
	"github.com/yehey123/spending-tracker/internal/common"
)

// Config holds the full application configuration.
type Config struct {
	Server   Server
	Database Database
	Cache    Cache
	Logging  Logging
}

// Server holds the HTTP listener settings.
type Server struct {
	Host string
	Port int
}

// Addr formats the listen address for net/http.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Database holds the SQLite settings.
type Database struct {
	Path string
}

// Cache holds the result cache settings.
type Cache struct {
	Backend    string
	Directory  string
	RedisURL   string
	TTLSeconds int
}

// TTL returns the configured entry lifetime.
func (c Cache) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// RedisConfigured reports whether a Redis URL has been supplied. The stats
// endpoint surfaces this so operators can see a half-finished Redis setup.
func (c Cache) RedisConfigured() bool {
	return c.RedisURL != ""
}

// Logging holds the log output settings.
type Logging struct {
	Level  string
	Format string
}

// SetDefaults registers the default value for every setting. Call it before
// viper reads config files or the environment so explicit values win.
func SetDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("database.path", filepath.Join("$HOME", ".local", "share", "spending-tracker", "transactions.db"))
	viper.SetDefault("cache.backend", cache.BackendFile)
	viper.SetDefault("cache.dir", filepath.Join(os.TempDir(), "spending-tracker-cache"))
	viper.SetDefault("cache.ttl_seconds", 300)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")
}

// Load assembles the configuration from Viper and validates it. It follows
// this precedence:
// 1. Command-line flags bound to Viper
// 2. SPENDING_TRACKER_* environment variables
// 3. Config file values
// 4. Defaults from SetDefaults
func Load() (*Config, error) {
	cfg := &Config{
		Server: Server{
			Host: viper.GetString("server.host"),
			Port: viper.GetInt("server.port"),
		},
		Database: Database{
			Path: ExpandPath(viper.GetString("database.path")),
		},
		Cache: Cache{
			Backend:    viper.GetString("cache.backend"),
			Directory:  ExpandPath(viper.GetString("cache.dir")),
			RedisURL:   viper.GetString("cache.redis_url"),
			TTLSeconds: viper.GetInt("cache.ttl_seconds"),
		},
		Logging: Logging{
			Level:  viper.GetString("logging.level"),
			Format: viper.GetString("logging.format"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects settings that would otherwise fail deep inside a request.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d out of range", common.ErrInvalidConfig, c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database path", common.ErrMissingConfig)
	}

	switch c.Cache.Backend {
	case cache.BackendFile, cache.BackendRedis:
	default:
		return fmt.Errorf("%w: unrecognized cache backend %q", common.ErrInvalidConfig, c.Cache.Backend)
	}
	if c.Cache.Backend == cache.BackendFile && c.Cache.Directory == "" {
		return fmt.Errorf("%w: cache directory", common.ErrMissingConfig)
	}
	if c.Cache.TTLSeconds <= 0 {
		return fmt.Errorf("%w: cache ttl must be positive, got %d", common.ErrInvalidConfig, c.Cache.TTLSeconds)
	}

	return nil
}
