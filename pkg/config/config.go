package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	Storage  StorageConfig
	OpenAI   OpenAIConfig
	Index    IndexConfig
	Uploads  UploadsConfig
	Shares   SharesConfig
	CORS     CORSConfig
	Log      LogConfig
	Cache    CacheConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// StorageConfig locates the versioned blob store and download signing.
type StorageConfig struct {
	BaseDir         string
	SignedURLSecret string
	SignedURLTTL    time.Duration
}

// OpenAIConfig points the index synchronizer at its embedding/completion backend.
type OpenAIConfig struct {
	APIKey          string
	BaseURL         string
	EmbeddingModel  string
	CompletionModel string
	Timeout         time.Duration
}

// IndexConfig tunes chunking and background sync workers.
type IndexConfig struct {
	ChunkSize         int
	ChunkOverlap      int
	TopK              int
	WorkerConcurrency int
	WorkerRetries     int
	RetryDelay        time.Duration
	WarmupOnStart     bool
}

// UploadsConfig bounds incoming document content.
type UploadsConfig struct {
	MaxFileSizeBytes int64
}

// SharesConfig governs share-link token minting.
type SharesConfig struct {
	Secret     string
	DefaultTTL time.Duration
	MaxTTL     time.Duration
}

// CacheConfig tunes read-side caching of document records.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	ListTTL time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Storage = StorageConfig{
		BaseDir:         v.GetString("STORAGE_BASE_DIR"),
		SignedURLSecret: v.GetString("STORAGE_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("STORAGE_SIGNED_URL_TTL"), 30*time.Minute),
	}

	cfg.OpenAI = OpenAIConfig{
		APIKey:          v.GetString("OPENAI_API_KEY"),
		BaseURL:         v.GetString("OPENAI_BASE_URL"),
		EmbeddingModel:  v.GetString("OPENAI_EMBEDDING_MODEL"),
		CompletionModel: v.GetString("OPENAI_COMPLETION_MODEL"),
		Timeout:         parseDuration(v.GetString("OPENAI_TIMEOUT"), 30*time.Second),
	}

	cfg.Index = IndexConfig{
		ChunkSize:         v.GetInt("INDEX_CHUNK_SIZE"),
		ChunkOverlap:      v.GetInt("INDEX_CHUNK_OVERLAP"),
		TopK:              v.GetInt("INDEX_TOP_K"),
		WorkerConcurrency: v.GetInt("INDEX_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("INDEX_WORKER_RETRIES"),
		RetryDelay:        parseDuration(v.GetString("INDEX_RETRY_DELAY"), 5*time.Second),
		WarmupOnStart:     v.GetBool("INDEX_WARMUP_ON_START"),
	}

	maxUpload := v.GetInt64("UPLOADS_MAX_FILE_SIZE")
	if maxUpload <= 0 {
		maxUpload = 50 * 1024 * 1024
	}
	cfg.Uploads = UploadsConfig{MaxFileSizeBytes: maxUpload}

	cfg.Shares = SharesConfig{
		Secret:     v.GetString("SHARES_SECRET"),
		DefaultTTL: parseDuration(v.GetString("SHARES_DEFAULT_TTL"), 72*time.Hour),
		MaxTTL:     parseDuration(v.GetString("SHARES_MAX_TTL"), 30*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_CACHE"),
		TTL:     parseDuration(v.GetString("CACHE_TTL"), 5*time.Minute),
		ListTTL: parseDuration(v.GetString("CACHE_LIST_TTL"), time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "docuvault")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("STORAGE_BASE_DIR", "./blobs")
	v.SetDefault("STORAGE_SIGNED_URL_SECRET", "dev_storage_secret")
	v.SetDefault("STORAGE_SIGNED_URL_TTL", "30m")

	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("OPENAI_BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small")
	v.SetDefault("OPENAI_COMPLETION_MODEL", "gpt-4o-mini")
	v.SetDefault("OPENAI_TIMEOUT", "30s")

	v.SetDefault("INDEX_CHUNK_SIZE", 1000)
	v.SetDefault("INDEX_CHUNK_OVERLAP", 200)
	v.SetDefault("INDEX_TOP_K", 5)
	v.SetDefault("INDEX_WORKER_CONCURRENCY", 2)
	v.SetDefault("INDEX_WORKER_RETRIES", 3)
	v.SetDefault("INDEX_RETRY_DELAY", "5s")
	v.SetDefault("INDEX_WARMUP_ON_START", true)

	v.SetDefault("UPLOADS_MAX_FILE_SIZE", 50*1024*1024)

	v.SetDefault("SHARES_SECRET", "dev_shares_secret")
	v.SetDefault("SHARES_DEFAULT_TTL", "72h")
	v.SetDefault("SHARES_MAX_TTL", "720h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_CACHE", true)
	v.SetDefault("CACHE_TTL", "5m")
	v.SetDefault("CACHE_LIST_TTL", "1m")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
