package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	GitHub   GitHubConfig
	S3       S3Config
	AI       AIConfig
	JWT      JWTConfig
	Uploads  UploadsConfig
	Refresh  RefreshConfig
	App      AppConfig
}

type ServerConfig struct {
	Port           string
	RequestTimeout time.Duration
	CORSOrigin     string
}

type DatabaseConfig struct {
	DSN string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// GitHubConfig holds access to the managed namespace (the bot organization)
// under which all canonical repositories are created.
type GitHubConfig struct {
	Token         string
	Org           string
	DefaultBranch string
}

type S3Config struct {
	Region          string
	Endpoint        string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
}

type AIConfig struct {
	BaseURL string
	APIKey  string
}

type JWTConfig struct {
	Secret    string
	ExpiresIn time.Duration
}

type UploadsConfig struct {
	MaxMB   int
	TempDir string
}

type RefreshConfig struct {
	Enabled bool
	MaxAge  time.Duration
	Rate    float64 // requests per second against the analysis service
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 2*time.Minute),
			CORSOrigin:     getEnv("CORS_ORIGIN", "*"),
		},
		Database: DatabaseConfig{
			DSN: getEnv("DB_DSN", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		GitHub: GitHubConfig{
			Token:         getEnv("GITHUB_TOKEN", ""),
			Org:           getEnv("GITHUB_ORG", ""),
			DefaultBranch: getEnv("GITHUB_DEFAULT_BRANCH", "main"),
		},
		S3: S3Config{
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			Bucket:          getEnv("S3_BUCKET", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			ForcePathStyle:  getEnvAsBool("S3_FORCE_PATH_STYLE", false),
		},
		AI: AIConfig{
			BaseURL: getEnv("AI_BASE_URL", ""),
			APIKey:  getEnv("AI_API_KEY", ""),
		},
		JWT: JWTConfig{
			Secret:    getEnv("JWT_SECRET", ""),
			ExpiresIn: getEnvAsDuration("JWT_EXPIRES_IN", 7*24*time.Hour),
		},
		Uploads: UploadsConfig{
			MaxMB:   getEnvAsInt("UPLOAD_MAX_MB", 50),
			TempDir: getEnv("UPLOAD_TEMP_DIR", os.TempDir()),
		},
		Refresh: RefreshConfig{
			Enabled: getEnvAsBool("REFRESH_ENABLED", false),
			MaxAge:  getEnvAsDuration("REFRESH_MAX_AGE", 30*24*time.Hour),
			Rate:    getEnvAsFloat("REFRESH_RATE", 0.5),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Database.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}

	if c.GitHub.Token == "" || c.GitHub.Org == "" {
		return fmt.Errorf("GITHUB_TOKEN and GITHUB_ORG are required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	return nil
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
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
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
		log.Printf("Warning: Invalid boolean for %s, using default: %v", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid float for %s, using default: %v", key, defaultValue)
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
		log.Printf("Warning: Invalid duration for %s, using default: %v", key, defaultValue)
		return defaultValue
	}

	return value
}
