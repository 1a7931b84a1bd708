package config

import (
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Storage   StorageConfig
	Planning  PlanningConfig
	LogLevel  string
	LogFormat string
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int64
}

type CacheConfig struct {
	Enabled              bool
	RedisURL             string
	RedisHost            string
	RedisPort            string
	RedisPassword        string
	RedisDB              int
	ProjectionTTLSeconds int
}

// StorageConfig points at an S3 compatible bucket.
type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

type PlanningConfig struct {
	// BundlePath is read from disk when set, otherwise BundleObjectKey is
	// downloaded from storage.
	BundlePath      string
	BundleObjectKey string
	SnapshotPrefix  string
	Workers         int
	// ApprovalStore is "memory" or "postgres".
	ApprovalStore string
	// BundleRetrySeconds spaces out reload attempts after a failed month
	// rollover.
	BundleRetrySeconds int
}

func (c PlanningConfig) BundleRetry() time.Duration {
	return time.Duration(c.BundleRetrySeconds) * time.Second
}

// TTL returns the projection cache lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.ProjectionTTLSeconds) * time.Second
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		v := viper.GetViper()
		SetDefaults(v)
		v.AutomaticEnv()

		instance = FromViper(v)
	})

	return instance
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 30)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "planejamento")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_PROJECTION_TTL_SECONDS", 600)
	v.SetDefault("STORAGE_ENABLED", false)
	v.SetDefault("STORAGE_ENDPOINT", "localhost:9000")
	v.SetDefault("STORAGE_BUCKET", "planejamento")
	v.SetDefault("STORAGE_REGION", "us-east-1")
	v.SetDefault("STORAGE_USE_SSL", false)
	v.SetDefault("PLANNING_BUNDLE_PATH", "./data/planning.json")
	v.SetDefault("PLANNING_BUNDLE_OBJECT_KEY", "bundles/latest.json")
	v.SetDefault("PLANNING_SNAPSHOT_PREFIX", "snapshots")
	v.SetDefault("PLANNING_WORKERS", 8)
	v.SetDefault("PLANNING_APPROVAL_STORE", "memory")
	v.SetDefault("PLANNING_BUNDLE_RETRY_SECONDS", 300)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
			MaxConns: v.GetInt64("DB_MAX_CONNS"),
		},
		Cache: CacheConfig{
			Enabled:              v.GetBool("CACHE_ENABLED"),
			RedisURL:             v.GetString("REDIS_URL"),
			RedisHost:            v.GetString("REDIS_HOST"),
			RedisPort:            v.GetString("REDIS_PORT"),
			RedisPassword:        v.GetString("REDIS_PASSWORD"),
			RedisDB:              v.GetInt("REDIS_DB"),
			ProjectionTTLSeconds: v.GetInt("CACHE_PROJECTION_TTL_SECONDS"),
		},
		Storage: StorageConfig{
			Enabled:   v.GetBool("STORAGE_ENABLED"),
			Endpoint:  v.GetString("STORAGE_ENDPOINT"),
			AccessKey: v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: v.GetString("STORAGE_SECRET_KEY"),
			Bucket:    v.GetString("STORAGE_BUCKET"),
			Region:    v.GetString("STORAGE_REGION"),
			UseSSL:    v.GetBool("STORAGE_USE_SSL"),
		},
		Planning: PlanningConfig{
			BundlePath:         v.GetString("PLANNING_BUNDLE_PATH"),
			BundleObjectKey:    v.GetString("PLANNING_BUNDLE_OBJECT_KEY"),
			SnapshotPrefix:     v.GetString("PLANNING_SNAPSHOT_PREFIX"),
			Workers:            v.GetInt("PLANNING_WORKERS"),
			ApprovalStore:      v.GetString("PLANNING_APPROVAL_STORE"),
			BundleRetrySeconds: v.GetInt("PLANNING_BUNDLE_RETRY_SECONDS"),
		},
		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),
	}
}
