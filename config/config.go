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
	Log      LogConfig
	Database DatabaseConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Redis    RedisConfig
	Cart     CartConfig
	Order    OrderConfig
	Metrics  MetricsConfig
}

type ServerConfig struct {
	Port            string
	GinMode         string
	Environment     string
	ShutdownTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type DatabaseConfig struct {
	Driver     string // postgres, sqlite
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
	SSLMode    string
	SQLitePath string
}

type JWTConfig struct {
	Secret             string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	LockTTL  time.Duration
	LockWait time.Duration
}

type CartConfig struct {
	DefaultMaxItemsPerOrder int
	CheckoutAttempts        int
}

type OrderConfig struct {
	ExpiryEnabled  bool
	ExpiryAfter    time.Duration
	ExpirySchedule string
}

type MetricsConfig struct {
	Enabled     bool
	ServiceName string
	Version     string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			GinMode:         getEnv("GIN_MODE", "debug"),
			Environment:     getEnv("ENVIRONMENT", "development"),
			ShutdownTimeout: parseDuration(getEnv("SERVER_SHUTDOWN_TIMEOUT", "10s"), 10*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", ""),
			Format: getEnv("LOG_FORMAT", ""),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "admin"),
			Password:   getEnv("DB_PASSWORD", "1234"),
			DBName:     getEnv("DB_NAME", "storefront"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			SQLitePath: getEnv("DB_SQLITE_PATH", "storefront.db"),
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", "your-secret-key"),
			AccessTokenExpiry:  parseDuration(getEnv("JWT_ACCESS_TOKEN_EXPIRY", "15m"), 15*time.Minute),
			RefreshTokenExpiry: parseDuration(getEnv("JWT_REFRESH_TOKEN_EXPIRY", "168h"), 168*time.Hour),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		Redis: RedisConfig{
			Enabled:  parseBool(getEnv("REDIS_ENABLED", "false")),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
			LockTTL:  parseDuration(getEnv("REDIS_LOCK_TTL", "10s"), 10*time.Second),
			LockWait: parseDuration(getEnv("REDIS_LOCK_WAIT", "5s"), 5*time.Second),
		},
		Cart: CartConfig{
			DefaultMaxItemsPerOrder: parseInt(getEnv("CART_DEFAULT_MAX_ITEMS_PER_ORDER", "10"), 10),
			CheckoutAttempts:        parseInt(getEnv("CHECKOUT_ATTEMPTS", "3"), 3),
		},
		Order: OrderConfig{
			ExpiryEnabled:  parseBool(getEnv("ORDER_EXPIRY_ENABLED", "false")),
			ExpiryAfter:    parseDuration(getEnv("ORDER_EXPIRY_AFTER", "24h"), 24*time.Hour),
			ExpirySchedule: getEnv("ORDER_EXPIRY_SCHEDULE", "*/15 * * * *"),
		},
		Metrics: MetricsConfig{
			Enabled:     parseBool(getEnv("METRICS_ENABLED", "true")),
			ServiceName: getEnv("METRICS_SERVICE_NAME", "storefront-backend"),
			Version:     getEnv("METRICS_SERVICE_VERSION", "dev"),
		},
	}

	if config.Database.Driver != "postgres" && config.Database.Driver != "sqlite" {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", config.Database.Driver)
	}

	return config, nil
}

func (c *DatabaseConfig) DSN() string {
	if c.Driver == "sqlite" {
		return c.SQLitePath
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("Invalid integer %s, using default %d", s, fallback)
		return fallback
	}
	return n
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
