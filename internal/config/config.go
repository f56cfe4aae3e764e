package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Sandbox   SandboxConfig   `yaml:"sandbox"`
	AI        AIConfig        `yaml:"ai"`
	OAuth     OAuthConfig     `yaml:"oauth"`
	JWT       JWTConfig       `yaml:"jwt"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig - конфигурация HTTP сервера
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	FrontendURL     string        `yaml:"frontend_url"` // куда редиректить после OAuth
}

// DatabaseConfig - конфигурация PostgreSQL
type DatabaseConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	User           string        `yaml:"user"`
	Password       string        `yaml:"password"`
	Name           string        `yaml:"name"`
	MaxConnections int           `yaml:"max_connections"`
	MaxIdle        int           `yaml:"max_idle"`
	MaxLifetime    time.Duration `yaml:"max_lifetime"`
}

// DSN возвращает строку подключения к PostgreSQL (формат key=value)
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Name,
	)
}

// DSNURL возвращает строку подключения в URL формате (для golang-migrate)
func (c DatabaseConfig) DSNURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Name,
	)
}

// RedisConfig - конфигурация Redis
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// Address возвращает адрес Redis
func (c RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SandboxConfig - конфигурация исполнителя кода (C2)
type SandboxConfig struct {
	Timeout          time.Duration `yaml:"timeout"`            // таймаут на один тест-кейс
	MemoryLimitBytes int64         `yaml:"memory_limit_bytes"` // лимит памяти при запуске
	BuildMemoryBytes int64         `yaml:"build_memory_bytes"` // лимит памяти при компиляции
	CPUQuota         int64         `yaml:"cpu_quota"`          // доля CPU при запуске (милликоры * 100)
	BuildCPUQuota    int64         `yaml:"build_cpu_quota"`    // доля CPU при компиляции
	PidsLimit        int64         `yaml:"pids_limit"`         // ограничение числа процессов
	NetworkDisabled  bool          `yaml:"network_disabled"`   // отключить сеть в контейнере
}

// AIConfig - конфигурация генератора задач (C7)
type AIConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Provider         string        `yaml:"provider"`
	APIKey           string        `yaml:"api_key"`
	Model            string        `yaml:"model"`
	BaseURL          string        `yaml:"base_url"`
	TickInterval     time.Duration `yaml:"tick_interval"`
	PoolFloorEasy    int           `yaml:"pool_floor_easy"`
	PoolFloorMedium  int           `yaml:"pool_floor_medium"`
	PoolFloorHard    int           `yaml:"pool_floor_hard"`
	MaxAttempts      int           `yaml:"max_attempts"`      // попыток валидации до Rejected
	DefaultRetryWait time.Duration `yaml:"default_retry_wait"` // Retry-After по умолчанию при 429
}

// OAuthConfig - конфигурация Google OAuth
type OAuthConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

// JWTConfig - конфигурация JWT токенов
type JWTConfig struct {
	Secret     string        `yaml:"secret"`
	AccessTTL  time.Duration `yaml:"access_ttl"`
	RefreshTTL time.Duration `yaml:"refresh_ttl"`
}

// LoggingConfig - конфигурация логирования
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	Async  bool   `yaml:"async"` // Асинхронное логирование с буферизацией
}

// MetricsConfig - конфигурация метрик
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// CORSConfig - конфигурация CORS
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
	MaxAge         int      `yaml:"max_age"`
}

// RateLimitConfig - конфигурация rate limiting по IP клиента: счётчик с
// фиксированным окном в 1 секунду, в окне допускается Burst(rps) = 2x запросов
// (это не token-bucket: равномерного пополнения внутри окна нет).
// Значения по умолчанию: /submit 2rps, auth 5rps, matchmaking 10rps, general 100rps.
type RateLimitConfig struct {
	Enabled         bool `yaml:"enabled"`
	SubmitRPS       int  `yaml:"submit_rps"`
	AuthRPS         int  `yaml:"auth_rps"`
	MatchmakingRPS  int  `yaml:"matchmaking_rps"`
	GeneralRPS      int  `yaml:"general_rps"`
}

// Burst возвращает размер всплеска для заданного лимита rps (2x согласно спецификации).
func (c RateLimitConfig) Burst(rps int) int {
	return rps * 2
}

// Validate валидирует конфигурацию
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max_connections must be positive")
	}

	if c.Redis.Host == "" {
		return fmt.Errorf("redis host is required")
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		return fmt.Errorf("invalid redis port: %d", c.Redis.Port)
	}

	if c.Sandbox.Timeout < 1*time.Second {
		return fmt.Errorf("sandbox timeout is too short")
	}
	if c.Sandbox.MemoryLimitBytes < 1 {
		return fmt.Errorf("sandbox memory_limit_bytes must be positive")
	}

	if c.AI.Enabled {
		if c.AI.Provider == "" {
			return fmt.Errorf("ai provider is required when ai is enabled")
		}
		if c.AI.TickInterval < 1*time.Second {
			return fmt.Errorf("ai tick_interval is too short")
		}
	}

	env := os.Getenv("ENVIRONMENT")
	if c.JWT.Secret == "" || c.JWT.Secret == "change-this-secret-in-production" {
		if env == "production" || env == "prod" {
			return fmt.Errorf("JWT secret must be changed in production")
		}
	}
	if c.JWT.AccessTTL < 1*time.Minute {
		return fmt.Errorf("JWT access_ttl is too short")
	}

	if (env == "production" || env == "prod") && (c.OAuth.ClientID == "" || c.OAuth.ClientSecret == "") {
		return fmt.Errorf("OAuth client credentials must be set in production")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	validLevel := false
	for _, level := range validLevels {
		if c.Logging.Level == level {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}

	return nil
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvInt("API_PORT", 8080),
			ReadTimeout:     getEnvDuration("READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvDuration("WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
			FrontendURL:     getEnv("FRONTEND_URL", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnvInt("DB_PORT", 5432),
			User:           getEnv("DB_USER", "bitbattle"),
			Password:       getEnvOrFile("DB_PASSWORD", "secret"),
			Name:           getEnv("DB_NAME", "bitbattle"),
			MaxConnections: getEnvInt("DB_MAX_CONNECTIONS", 50),
			MaxIdle:        getEnvInt("DB_MAX_IDLE", 10),
			MaxLifetime:    getEnvDuration("DB_MAX_LIFETIME", 1*time.Hour),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnvOrFile("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 100),
		},
		Sandbox: SandboxConfig{
			Timeout:          getEnvDuration("SANDBOX_TIMEOUT", 10*time.Second),
			MemoryLimitBytes: int64(getEnvInt("SANDBOX_MEMORY_LIMIT", 128*1024*1024)),
			BuildMemoryBytes: int64(getEnvInt("SANDBOX_BUILD_MEMORY_LIMIT", 256*1024*1024)),
			CPUQuota:         int64(getEnvInt("SANDBOX_CPU_QUOTA", 50000)),       // 0.5 core of 100000
			BuildCPUQuota:    int64(getEnvInt("SANDBOX_BUILD_CPU_QUOTA", 100000)), // 1.0 core during build
			PidsLimit:        int64(getEnvInt("SANDBOX_PIDS_LIMIT", 50)),
			NetworkDisabled:  getEnvBool("SANDBOX_NETWORK_DISABLED", true),
		},
		AI: AIConfig{
			Enabled:          getEnvBool("AI_ENABLED", false),
			Provider:         getEnv("AI_PROVIDER", "openai"),
			APIKey:           getEnvOrFile("AI_API_KEY", ""),
			Model:            getEnv("AI_MODEL", "gpt-4o-mini"),
			BaseURL:          getEnv("AI_BASE_URL", "https://api.openai.com/v1"),
			TickInterval:     getEnvDuration("AI_TICK_INTERVAL", 5*time.Minute),
			PoolFloorEasy:    getEnvInt("AI_POOL_FLOOR_EASY", 10),
			PoolFloorMedium:  getEnvInt("AI_POOL_FLOOR_MEDIUM", 10),
			PoolFloorHard:    getEnvInt("AI_POOL_FLOOR_HARD", 5),
			MaxAttempts:      getEnvInt("AI_MAX_ATTEMPTS", 3),
			DefaultRetryWait: getEnvDuration("AI_DEFAULT_RETRY_WAIT", 60*time.Second),
		},
		OAuth: OAuthConfig{
			ClientID:     getEnv("OAUTH_CLIENT_ID", ""),
			ClientSecret: getEnvOrFile("OAUTH_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("OAUTH_REDIRECT_URL", "http://localhost:8080/auth/callback"),
		},
		JWT: JWTConfig{
			Secret:     getEnvOrFile("JWT_SECRET", "change-this-secret-in-production"),
			AccessTTL:  getEnvDuration("JWT_ACCESS_TTL", 15*time.Minute),
			RefreshTTL: getEnvDuration("JWT_REFRESH_TTL", 168*time.Hour),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Output: getEnv("LOG_OUTPUT", "stdout"),
			Async:  getEnvBool("LOG_ASYNC", true),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Port:    getEnvInt("METRICS_PORT", 9090),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
			MaxAge:         getEnvInt("CORS_MAX_AGE", 3600),
		},
		RateLimit: RateLimitConfig{
			Enabled:        getEnvBool("RATE_LIMIT_ENABLED", true),
			SubmitRPS:      getEnvInt("RATE_LIMIT_SUBMIT_RPS", 2),
			AuthRPS:        getEnvInt("RATE_LIMIT_AUTH_RPS", 5),
			MatchmakingRPS: getEnvInt("RATE_LIMIT_MATCHMAKING_RPS", 10),
			GeneralRPS:     getEnvInt("RATE_LIMIT_GENERAL_RPS", 100),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvOrFile читает значение из переменной окружения или из файла.
// Сначала проверяет KEY, затем KEY_FILE. Поддерживает Docker secrets.
func getEnvOrFile(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	fileKey := key + "_FILE"
	if filePath := os.Getenv(fileKey); filePath != "" {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}

	return defaultValue
}
