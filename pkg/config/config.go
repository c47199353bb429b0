package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Storage    StorageConfig
	LiveKit    LiveKitConfig
	Assembly   AssemblyAIConfig
	Translator TranslatorConfig
	Pipeline   PipelineConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	AllowedOrigins  []string
	ShutdownTimeout int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host        string
	Port        string
	User        string
	Password    string
	Name        string
	SSLMode     string
	MaxConns    int
	MinConns    int
	AutoMigrate bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// StorageConfig holds object storage configuration for transcript archives
type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
}

// LiveKitConfig holds LiveKit server configuration for the push channel
type LiveKitConfig struct {
	URL       string
	APIKey    string
	APISecret string
	UseMock   bool
}

// AssemblyAIConfig holds realtime speech-to-text configuration
type AssemblyAIConfig struct {
	APIKey     string
	SampleRate int
}

// TranslatorConfig holds translation provider configuration
type TranslatorConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	CacheTTL    time.Duration
	RetryInit   time.Duration
	RetryMaxAge time.Duration
}

// PipelineConfig holds transcript buffer and continuity tuning
type PipelineConfig struct {
	FlushThreshold     int
	FlushInterval      time.Duration
	SweepInterval      time.Duration
	SessionEndTimeout  time.Duration
	ContextWindow      time.Duration
	ContextTTL         time.Duration
	PreferenceCacheTTL time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Host:            getEnv("HOST", "0.0.0.0"),
			Environment:     getEnv("ENVIRONMENT", "development"),
			AllowedOrigins:  []string{getEnv("ALLOWED_ORIGINS", "http://localhost:3000")},
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 10),
		},
		Database: DatabaseConfig{
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnv("DB_PORT", "5432"),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			Name:        getEnv("DB_NAME", "caption_pipeline"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			MaxConns:    getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:    getEnvAsInt("DB_MIN_CONNS", 5),
			AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Storage: StorageConfig{
			Endpoint:        getEnv("STORAGE_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
			SecretAccessKey: getEnv("STORAGE_SECRET_KEY", "minioadmin"),
			BucketName:      getEnv("STORAGE_BUCKET", "caption-archives"),
			UseSSL:          getEnvAsBool("STORAGE_USE_SSL", false),
		},
		LiveKit: LiveKitConfig{
			URL:       getEnv("LIVEKIT_URL", "http://localhost:7880"),
			APIKey:    getEnv("LIVEKIT_API_KEY", ""),
			APISecret: getEnv("LIVEKIT_API_SECRET", ""),
			UseMock:   getEnvAsBool("LIVEKIT_USE_MOCK", false),
		},
		Assembly: AssemblyAIConfig{
			APIKey:     getEnv("ASSEMBLYAI_API_KEY", ""),
			SampleRate: getEnvAsInt("ASSEMBLYAI_SAMPLE_RATE", 16000),
		},
		Translator: TranslatorConfig{
			BaseURL:     getEnv("TRANSLATOR_API_URL", "https://api.groq.com"),
			APIKey:      getEnv("TRANSLATOR_API_KEY", ""),
			Model:       getEnv("TRANSLATOR_MODEL", "llama-3.1-70b-versatile"),
			Timeout:     getEnvAsDuration("TRANSLATOR_TIMEOUT", "15s"),
			CacheTTL:    getEnvAsDuration("TRANSLATOR_CACHE_TTL", "10m"),
			RetryInit:   getEnvAsDuration("TRANSLATOR_RETRY_INITIAL", "500ms"),
			RetryMaxAge: getEnvAsDuration("TRANSLATOR_RETRY_MAX_ELAPSED", "10s"),
		},
		Pipeline: PipelineConfig{
			FlushThreshold:     getEnvAsInt("BUFFER_FLUSH_THRESHOLD", 30),
			FlushInterval:      getEnvAsDuration("BUFFER_FLUSH_INTERVAL", "30s"),
			SweepInterval:      getEnvAsDuration("BUFFER_SWEEP_INTERVAL", "1s"),
			SessionEndTimeout:  getEnvAsDuration("SESSION_END_FLUSH_TIMEOUT", "5s"),
			ContextWindow:      getEnvAsDuration("SPEAKER_CONTEXT_WINDOW", "30s"),
			ContextTTL:         getEnvAsDuration("SPEAKER_CONTEXT_TTL", "5m"),
			PreferenceCacheTTL: getEnvAsDuration("PREFERENCE_CACHE_TTL", "15s"),
		},
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Pipeline.FlushThreshold <= 0 {
		return fmt.Errorf("BUFFER_FLUSH_THRESHOLD must be positive")
	}
	if c.Pipeline.FlushInterval <= 0 {
		return fmt.Errorf("BUFFER_FLUSH_INTERVAL must be positive")
	}
	if c.Server.Environment == "production" {
		if c.LiveKit.APIKey == "" || c.LiveKit.APISecret == "" {
			return fmt.Errorf("LIVEKIT_API_KEY and LIVEKIT_API_SECRET are required in production")
		}
		if c.Translator.APIKey == "" {
			return fmt.Errorf("TRANSLATOR_API_KEY is required in production")
		}
	}
	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}
