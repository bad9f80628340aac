package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Configuration struct {
	Server   ServerConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Database DatabaseConfig
	Storage  StorageConfig
	Upload   UploadConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type SecurityConfig struct {
	JWTSecret         string
	TokenTTL          time.Duration
	MaxFailedAttempts int
}

type LoggingConfig struct {
	Level       string
	Environment string
}

type DatabaseConfig struct {
	Driver          string // "postgres" or "sqlite"
	Host            string
	Port            string
	Username        string
	Password        string
	Name            string
	SSLMode         string
	SQLitePath      string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime int
}

type StorageConfig struct {
	Backend        string // "local" or "minio"
	LocalDir       string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

type UploadConfig struct {
	MaxFileSize       int64
	AllowedExtensions []string
}

// Load builds the configuration from environment variables, reading a .env
// file first when one is present.
func Load() *Configuration {
	_ = godotenv.Load()

	return &Configuration{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8000"),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvAsDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		Security: SecurityConfig{
			JWTSecret:         getEnv("JWT_SECRET", "change-this-in-production"),
			TokenTTL:          getEnvAsDuration("TOKEN_TTL", 8*24*time.Hour),
			MaxFailedAttempts: getEnvAsInt("MAX_FAILED_ATTEMPTS", 5),
		},
		Logging: LoggingConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Environment: getEnv("APP_ENV", "development"),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "postgres"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Username:        getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "password"),
			Name:            getEnv("DB_NAME", "kmrl_documents"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			SQLitePath:      getEnv("DB_SQLITE_PATH", "kmrl_documents.db"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvAsInt("DB_CONN_MAX_LIFETIME", 300),
		},
		Storage: StorageConfig{
			Backend:        getEnv("STORAGE_BACKEND", "local"),
			LocalDir:       getEnv("STORAGE_LOCAL_DIR", "uploads/documents"),
			MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
			MinioBucket:    getEnv("MINIO_BUCKET", "documents"),
			MinioUseSSL:    getEnvAsBool("MINIO_USE_SSL", false),
		},
		Upload: UploadConfig{
			MaxFileSize:       getEnvAsInt64("MAX_FILE_SIZE", 50*1024*1024),
			AllowedExtensions: getEnvAsList("ALLOWED_EXTENSIONS", []string{".pdf", ".doc", ".docx", ".txt"}),
		},
	}
}

func LogConfig(cfg *Configuration, logger *zap.Logger) {
	redacted := *cfg
	redacted.Security.JWTSecret = "[REDACTED]"
	redacted.Database.Password = "[REDACTED]"
	redacted.Storage.MinioSecretKey = "[REDACTED]"

	logger.Info("Application configuration",
		zap.String("port", redacted.Server.Port),
		zap.Duration("read_timeout", redacted.Server.ReadTimeout),
		zap.Duration("write_timeout", redacted.Server.WriteTimeout),
		zap.Duration("token_ttl", redacted.Security.TokenTTL),
		zap.String("db_driver", redacted.Database.Driver),
		zap.String("db_host", redacted.Database.Host),
		zap.String("db_name", redacted.Database.Name),
		zap.String("storage_backend", redacted.Storage.Backend),
		zap.Strings("allowed_extensions", redacted.Upload.AllowedExtensions),
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
