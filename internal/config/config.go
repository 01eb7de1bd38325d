package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Gemini   GeminiConfig
	Editor   EditorConfig
	Intake   IntakeConfig
	Tier     TierConfig
	Presets  PresetsConfig
	Session  SessionConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

// EditorConfig bounds every remote edit call.
type EditorConfig struct {
	AttemptTimeout time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

type IntakeConfig struct {
	MaxFileSize   int64
	AllowedTypes  []string
	ThumbnailSize int
}

type TierConfig struct {
	UploadLimit int
	BatchLimit  int
}

type PresetsConfig struct {
	File string
}

type SessionConfig struct {
	TTL time.Duration
}

// RedisConfig enables the edit cache when Addr is set.
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	CacheDuration time.Duration
}

// RabbitMQConfig enables run event publishing when URL is set.
type RabbitMQConfig struct {
	URL   string
	Queue string
}

// Load reads the given env files (".env" when none) and the process
// environment.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		log.Println("No .env file found")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getDuration("READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDuration("WRITE_TIMEOUT", 0),
		},
		Gemini: GeminiConfig{
			APIKey: getEnv("API_KEY", getEnv("GEMINI_API_KEY", "")),
			Model:  getEnv("GEMINI_MODEL", "gemini-2.5-flash-image"),
		},
		Editor: EditorConfig{
			AttemptTimeout: getDuration("EDIT_TIMEOUT", 60*time.Second),
			MaxAttempts:    getEnvAsInt("EDIT_MAX_ATTEMPTS", 3),
			InitialBackoff: getDuration("EDIT_INITIAL_BACKOFF", 500*time.Millisecond),
			MaxBackoff:     getDuration("EDIT_MAX_BACKOFF", 8*time.Second),
		},
		Intake: IntakeConfig{
			MaxFileSize:   getEnvAsInt64("MAX_FILE_SIZE", 10*1024*1024), // 10MB
			AllowedTypes:  getEnvAsList("ALLOWED_TYPES", []string{"image/jpeg", "image/png", "image/webp"}),
			ThumbnailSize: getEnvAsInt("THUMBNAIL_SIZE", 256),
		},
		Tier: TierConfig{
			UploadLimit: getEnvAsInt("FREE_TIER_UPLOAD_LIMIT", 10),
			BatchLimit:  getEnvAsInt("FREE_TIER_BATCH_LIMIT", 3),
		},
		Presets: PresetsConfig{
			File: getEnv("PRESETS_FILE", ""),
		},
		Session: SessionConfig{
			TTL: getDuration("SESSION_TTL", time.Hour),
		},
		Redis: RedisConfig{
			Addr:          getEnv("REDIS_ADDR", ""),
			Password:      getEnv("REDIS_PASSWORD", ""),
			DB:            getEnvAsInt("REDIS_DB", 0),
			CacheDuration: getDuration("CACHE_DURATION", 24*time.Hour),
		},
		RabbitMQ: RabbitMQConfig{
			URL:   getEnv("RABBITMQ_URL", ""),
			Queue: getEnv("RABBITMQ_QUEUE", "studio_run_events"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	if c.Tier.UploadLimit <= 0 || c.Tier.BatchLimit <= 0 {
		return fmt.Errorf("tier limits must be positive (upload=%d, batch=%d)", c.Tier.UploadLimit, c.Tier.BatchLimit)
	}
	if c.Tier.BatchLimit > c.Tier.UploadLimit {
		return fmt.Errorf("batch limit %d exceeds upload limit %d", c.Tier.BatchLimit, c.Tier.UploadLimit)
	}
	if c.Intake.MaxFileSize <= 0 {
		return fmt.Errorf("max file size must be positive")
	}
	if len(c.Intake.AllowedTypes) == 0 {
		return fmt.Errorf("at least one allowed type is required")
	}
	if c.Editor.MaxAttempts < 1 {
		return fmt.Errorf("edit max attempts must be at least 1")
	}
	if c.Editor.AttemptTimeout <= 0 {
		return fmt.Errorf("edit timeout must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsList(key string, defaultVal []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, strings.ToLower(item))
		}
	}
	if len(items) == 0 {
		return defaultVal
	}
	return items
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}
