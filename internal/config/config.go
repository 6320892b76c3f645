package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds configuration for the meal planner service.
type Config struct {
	HTTPPort   string
	Database   DatabaseConfig
	Redis      RedisConfig
	Assets     AssetsConfig
	Generation GenerationConfig
	Pipeline   PipelineConfig
	Ledger     LedgerConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Address      string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// AssetsConfig holds S3 asset store settings
type AssetsConfig struct {
	S3Bucket string
	S3Region string
}

// GenerationConfig holds image generation settings. The API key may be
// empty; generation then degrades to menus without illustrations.
type GenerationConfig struct {
	APIKey string
}

// PipelineConfig holds illustration pipeline settings
type PipelineConfig struct {
	TaskTimeout time.Duration
}

// LedgerConfig holds spend ledger settings
type LedgerConfig struct {
	SyncInterval time.Duration
}

func getEnvInt(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(val)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getEnvString(key string, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	s3Bucket := os.Getenv("ASSETS_S3_BUCKET")
	if s3Bucket == "" {
		return nil, fmt.Errorf("ASSETS_S3_BUCKET is required")
	}

	cfg := &Config{
		HTTPPort: getEnvString("HTTP_PORT", "8080"),
		Database: DatabaseConfig{
			URL:             dbURL,
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute),
		},
		Redis: RedisConfig{
			Address:      getEnvString("REDIS_ADDRESS", "localhost:6379"),
			Password:     getEnvString("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Assets: AssetsConfig{
			S3Bucket: s3Bucket,
			S3Region: getEnvString("ASSETS_S3_REGION", "us-east-1"),
		},
		Generation: GenerationConfig{
			APIKey: getEnvString("GEMINI_API_KEY", ""),
		},
		Pipeline: PipelineConfig{
			TaskTimeout: getEnvDuration("PIPELINE_TASK_TIMEOUT", 2*time.Minute),
		},
		Ledger: LedgerConfig{
			SyncInterval: getEnvDuration("LEDGER_SYNC_INTERVAL", 5*time.Minute),
		},
	}

	return cfg, nil
}
