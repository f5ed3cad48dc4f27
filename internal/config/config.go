package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Write policies for overlapping recompute sweeps.
const (
	WritePolicyDiscardStale  = "discard-stale"
	WritePolicyLastWriteWins = "last-write-wins"
)

// Storage backends for the persisted dashboard document.
const (
	StorageNone     = "none"
	StorageFile     = "file"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// Config holds all service settings, populated from environment variables and
// an optional config file named by CONFIG_FILE.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Archive (Open-Meteo compatible) configuration.
	ArchiveBaseURL   string
	ArchiveField     string
	ArchiveTimeout   time.Duration
	ArchiveCacheSize int // 0 keeps every series for the process lifetime

	PlaybackInterval   time.Duration
	PlaybackWindowDays int
	WritePolicy        string

	// Persistence of regions, data sources, and rules.
	StorageBackend string
	StorageDir     string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	PostgresDSN    string

	// Region update events; disabled when no brokers are set.
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from the environment, applying defaults where unset.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read CONFIG_FILE: %w", err)
		}
	}

	shutdownTimeout, err := parsePositiveDuration(v, "shutdown_timeout")
	if err != nil {
		return nil, err
	}
	archiveTimeout, err := parsePositiveDuration(v, "archive_timeout")
	if err != nil {
		return nil, err
	}
	playbackInterval, err := parsePositiveDuration(v, "playback_interval")
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseInt(v, "archive_cache_size")
	if err != nil || cacheSize < 0 {
		return nil, errors.New("invalid ARCHIVE_CACHE_SIZE: must be a non-negative integer")
	}
	windowDays, err := parseInt(v, "playback_window_days")
	if err != nil || windowDays < 1 {
		return nil, errors.New("invalid PLAYBACK_WINDOW_DAYS: must be at least 1")
	}
	redisDB, err := parseInt(v, "redis_db")
	if err != nil || redisDB < 0 {
		return nil, errors.New("invalid REDIS_DB")
	}

	cfg := &Config{
		HTTPAddr:        v.GetString("http_addr"),
		LogLevel:        v.GetString("log_level"),
		LogFormat:       v.GetString("log_format"),
		ShutdownTimeout: shutdownTimeout,

		ArchiveBaseURL:   v.GetString("archive_base_url"),
		ArchiveField:     v.GetString("archive_field"),
		ArchiveTimeout:   archiveTimeout,
		ArchiveCacheSize: cacheSize,

		PlaybackInterval:   playbackInterval,
		PlaybackWindowDays: windowDays,
		WritePolicy:        strings.ToLower(v.GetString("write_policy")),

		StorageBackend: strings.ToLower(v.GetString("storage_backend")),
		StorageDir:     v.GetString("storage_dir"),
		RedisAddr:      v.GetString("redis_addr"),
		RedisPassword:  v.GetString("redis_password"),
		RedisDB:        redisDB,
		PostgresDSN:    v.GetString("postgres_dsn"),

		KafkaBrokers: parseBrokers(v.GetString("kafka_brokers")),
		KafkaTopic:   v.GetString("kafka_topic"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// KafkaEnabled reports whether region update events should be published.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func (c *Config) validate() error {
	if c.ArchiveBaseURL == "" {
		return errors.New("ARCHIVE_BASE_URL is required")
	}
	if c.ArchiveField == "" {
		return errors.New("ARCHIVE_FIELD is required")
	}
	switch c.WritePolicy {
	case WritePolicyDiscardStale, WritePolicyLastWriteWins:
	default:
		return fmt.Errorf("invalid WRITE_POLICY %q: must be %s or %s",
			c.WritePolicy, WritePolicyDiscardStale, WritePolicyLastWriteWins)
	}
	switch c.StorageBackend {
	case StorageNone, StorageRedis:
	case StorageFile:
		if c.StorageDir == "" {
			return errors.New("STORAGE_DIR is required for the file storage backend")
		}
	case StoragePostgres:
		if c.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required for the postgres storage backend")
		}
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.KafkaEnabled() && c.KafkaTopic == "" {
		return errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("shutdown_timeout", "10s")

	v.SetDefault("archive_base_url", "https://archive-api.open-meteo.com/v1/archive")
	v.SetDefault("archive_field", "temperature_2m")
	v.SetDefault("archive_timeout", "10s")
	v.SetDefault("archive_cache_size", "0")

	v.SetDefault("playback_interval", "200ms")
	v.SetDefault("playback_window_days", "15")
	v.SetDefault("write_policy", WritePolicyDiscardStale)

	v.SetDefault("storage_backend", StorageFile)
	v.SetDefault("storage_dir", "./data")
	v.SetDefault("redis_addr", "127.0.0.1:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", "0")
	v.SetDefault("postgres_dsn", "")

	v.SetDefault("kafka_brokers", "")
	v.SetDefault("kafka_topic", "region-updates")
}

func parsePositiveDuration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", strings.ToUpper(key))
	}
	return d, nil
}

func parseInt(v *viper.Viper, key string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(v.GetString(key)))
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
