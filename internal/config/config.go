package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/place-sync-service/internal/domain"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Cache    CacheConfig
	Log      LogConfig
	Worker   WorkerConfig
	Feed     FeedConfig
	Sources  []domain.SourceConfig
}

type ServerConfig struct {
	Host string
	Port int
	Env  string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CacheConfig struct {
	PlacesCacheTTL time.Duration
	StatusTTL      time.Duration
}

type LogConfig struct {
	Level string
}

type WorkerConfig struct {
	Enabled       bool
	ConsumerGroup string
	SyncInterval  time.Duration
}

type FeedConfig struct {
	EndpointURL    string
	RequestTimeout time.Duration
}

func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("API_HOST"),
			Port: viper.GetInt("API_PORT"),
			Env:  viper.GetString("API_ENV"),
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			DBName:          viper.GetString("DB_NAME"),
			SSLMode:         viper.GetString("DB_SSLMODE"),
			MaxConns:        viper.GetInt("DB_MAX_CONNS"),
			MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: time.Duration(viper.GetInt("DB_CONN_MAX_LIFETIME")) * time.Second,
			ConnMaxIdleTime: time.Duration(viper.GetInt("DB_CONN_MAX_IDLE_TIME")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetInt("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Cache: CacheConfig{
			PlacesCacheTTL: time.Duration(viper.GetInt("PLACES_CACHE_TTL")) * time.Second,
			StatusTTL:      time.Duration(viper.GetInt("SYNC_STATUS_TTL")) * time.Second,
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
		Worker: WorkerConfig{
			Enabled:       viper.GetBool("WORKER_ENABLED"),
			ConsumerGroup: viper.GetString("WORKER_CONSUMER_GROUP"),
			SyncInterval:  time.Duration(viper.GetInt("WORKER_SYNC_INTERVAL")) * time.Second,
		},
		Feed: FeedConfig{
			EndpointURL:    viper.GetString("FEED_ENDPOINT_URL"),
			RequestTimeout: time.Duration(viper.GetInt("FEED_REQUEST_TIMEOUT")) * time.Second,
		},
		Sources: parseSources(viper.GetString("SYNC_SOURCES")),
	}

	// Set default values if not provided
	if cfg.Worker.ConsumerGroup == "" {
		cfg.Worker.ConsumerGroup = "place-sync-workers"
	}
	if cfg.Worker.SyncInterval == 0 {
		cfg.Worker.SyncInterval = 6 * time.Hour
	}
	if cfg.Cache.PlacesCacheTTL == 0 {
		cfg.Cache.PlacesCacheTTL = 60 * time.Second
	}
	if cfg.Cache.StatusTTL == 0 {
		cfg.Cache.StatusTTL = 24 * time.Hour
	}
	if cfg.Feed.RequestTimeout == 0 {
		cfg.Feed.RequestTimeout = 30 * time.Second
	}
	if len(cfg.Sources) == 0 {
		return nil, fmt.Errorf("no sync sources configured, set SYNC_SOURCES")
	}

	return cfg, nil
}

// parseSources parses the static per-deployment source list. Entries are
// separated by ";", fields by "|": id|name|fetch_id|format.
func parseSources(s string) []domain.SourceConfig {
	if s == "" {
		return nil
	}

	var sources []domain.SourceConfig
	for _, entry := range strings.Split(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		fields := strings.Split(entry, "|")
		if len(fields) != 4 {
			continue
		}
		format := domain.FeedFormat(strings.TrimSpace(fields[3]))
		if format != domain.FormatKML && format != domain.FormatJSONList {
			continue
		}
		sources = append(sources, domain.SourceConfig{
			ID:      strings.TrimSpace(fields[0]),
			Name:    strings.TrimSpace(fields[1]),
			FetchID: strings.TrimSpace(fields[2]),
			Format:  format,
		})
	}
	return sources
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// SourceByID resolves a configured source.
func (c *Config) SourceByID(id string) (domain.SourceConfig, bool) {
	for _, src := range c.Sources {
		if src.ID == id {
			return src, true
		}
	}
	return domain.SourceConfig{}, false
}
