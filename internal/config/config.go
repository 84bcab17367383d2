package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App    AppConfig
	OpenAI OpenAIConfig
	Auth   AuthConfig
	Ingest IngestConfig
	Retry  RetryConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	Debug              bool
	OtelEnabled        bool
	OtelEndpoint       string
}

type OpenAIConfig struct {
	BaseURL             string
	APIVersion          string
	ChatDeployment      string
	EmbeddingDeployment string
	SystemMessage       string
	Temperature         float64
	Timeout             time.Duration
}

type AuthConfig struct {
	Mode                 string // "api_key" | "bearer_token"
	APIKey               string
	TokenURL             string
	ClientID             string
	ClientSecret         string
	Scope                string
	TokenRefreshInterval time.Duration
}

type IngestConfig struct {
	MaxUploadSizeMB    int
	MaxFiles           int
	ChunkSize          int
	ChunkOverlap       int
	EmbeddingBatchSize int
	TopK               int
}

type RetryConfig struct {
	MaxAttempts int
	BackoffBase time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			Debug:              getEnvAsBool("DEBUG", false),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		OpenAI: OpenAIConfig{
			BaseURL:             getEnv("AZURE_OPENAI_BASE", ""),
			APIVersion:          getEnv("AZURE_OPENAI_VERSION", "2023-12-01-preview"),
			ChatDeployment:      getEnv("AZURE_OPENAI_DEPLOYMENT", ""),
			EmbeddingDeployment: getEnv("AZURE_OPENAI_ADA_DEPLOYMENT", ""),
			SystemMessage:       getEnv("AZURE_OPENAI_SYSTEM_MESSAGE", "You are a helpful assistant."),
			Temperature:         getEnvAsFloat("TEMPERATURE", 0.9),
			Timeout:             time.Duration(getEnvAsInt("TIMEOUT", 30)) * time.Second,
		},
		Auth: AuthConfig{
			Mode:                 getEnv("AZURE_OPENAI_TYPE", "api_key"),
			APIKey:               getEnv("AZURE_OPENAI_KEY", ""),
			TokenURL:             getEnv("AZURE_AD_TOKEN_URL", ""),
			ClientID:             getEnv("AZURE_AD_CLIENT_ID", ""),
			ClientSecret:         getEnv("AZURE_AD_CLIENT_SECRET", ""),
			Scope:                getEnv("AZURE_AD_SCOPE", "https://cognitiveservices.azure.com/.default"),
			TokenRefreshInterval: time.Duration(getEnvAsInt("TOKEN_REFRESH_INTERVAL", 1800)) * time.Second,
		},
		Ingest: IngestConfig{
			MaxUploadSizeMB:    getEnvAsInt("MAX_SIZE_MB", 100),
			MaxFiles:           getEnvAsInt("MAX_FILES", 10),
			ChunkSize:          getEnvAsInt("TEXT_SPLITTER_CHUNK_SIZE", 1000),
			ChunkOverlap:       getEnvAsInt("TEXT_SPLITTER_CHUNK_OVERLAP", 10),
			EmbeddingBatchSize: getEnvAsInt("EMBEDDINGS_CHUNK_SIZE", 16),
			TopK:               getEnvAsInt("RAG_TOP_K", 4),
		},
		Retry: RetryConfig{
			MaxAttempts: getEnvAsInt("MAX_RETRIES", 5),
			BackoffBase: time.Duration(getEnvAsFloat("BACKOFF_BASE_SECONDS", 1) * float64(time.Second)),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
