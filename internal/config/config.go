package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	SMTP     SMTPConfig
	Azure    AzureConfig
	Review   ReviewConfig
	Storage  StorageConfig
	Auth     AuthConfig
	Otel     OtelConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	WsLogFilePath      string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

type AzureConfig struct {
	Endpoint       string
	APIKey         string
	APIVersion     string
	RequestTimeout time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

type ReviewConfig struct {
	InputCostPerMillion  float64
	OutputCostPerMillion float64
	// Assistants maps a catalog persona to its deployed assistant id.
	Assistants   map[string]string
	PollInterval time.Duration
	RunTimeout   time.Duration
	CorpusName   string
	CatalogPath  string
	SessionTTL   time.Duration
}

type StorageConfig struct {
	Driver         string // "local" or "minio"
	LocalDir       string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type OtelConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			WsLogFilePath:      getEnv("WS_LOG_FILE_PATH", "logs/ws.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "Dokument Review"),
		},
		Azure: AzureConfig{
			Endpoint:       getEnv("AZURE_OPENAI_ENDPOINT", ""),
			APIKey:         getEnv("AZURE_OPENAI_API_KEY", ""),
			APIVersion:     getEnv("API_VERSION", "2024-05-01-preview"),
			RequestTimeout: getEnvAsDuration("AZURE_REQUEST_TIMEOUT", 60*time.Second),
			MaxRetries:     getEnvAsInt("AZURE_MAX_RETRIES", 3),
			InitialBackoff: getEnvAsDuration("AZURE_INITIAL_BACKOFF", 500*time.Millisecond),
			MaxBackoff:     getEnvAsDuration("AZURE_MAX_BACKOFF", 10*time.Second),
		},
		Review: ReviewConfig{
			InputCostPerMillion:  getEnvAsFloat("INPUT_COST_PER_MILLION", 2.50),
			OutputCostPerMillion: getEnvAsFloat("OUTPUT_COST_PER_MILLION", 7.50),
			Assistants: map[string]string{
				"review":         getEnv("ASSISTANT_ID_REVIEW", ""),
				"security":       getEnv("ASSISTANT_ID_SECURITY", ""),
				"responsibility": getEnv("ASSISTANT_ID_RESPONSIBILITY", ""),
				"guidelines":     getEnv("ASSISTANT_ID_GUIDELINES", ""),
			},
			PollInterval: getEnvAsDuration("RUN_POLL_INTERVAL", time.Second),
			RunTimeout:   getEnvAsDuration("RUN_TIMEOUT", 2*time.Minute),
			CorpusName:   getEnv("CORPUS_NAME", "dokument review"),
			CatalogPath:  getEnv("REVIEW_CATALOG_PATH", ""),
			SessionTTL:   getEnvAsDuration("SESSION_TTL", time.Hour),
		},
		Storage: StorageConfig{
			Driver:         getEnv("STORAGE_DRIVER", "local"),
			LocalDir:       getEnv("STORAGE_LOCAL_DIR", "uploads"),
			MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
			MinioBucket:    getEnv("MINIO_BUCKET", "review-documents"),
			MinioUseSSL:    getEnvAsBool("MINIO_USE_SSL", false),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "change-me"),
			TokenTTL:  getEnvAsDuration("SESSION_TOKEN_TTL", 24*time.Hour),
		},
		Otel: OtelConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "doc-review-be"),
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

// getEnvAsDuration accepts Go durations ("90s") or plain seconds ("90").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	if secs, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
