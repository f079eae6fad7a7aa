package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Redis  RedisConfig
	DB     DBConfig
	Auth   AuthConfig
	HTTP   HTTPConfig
	Worker WorkerConfig
	Locale LocaleConfig
	Log    LogConfig
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type HTTPConfig struct {
	Port           string
	RateLimit      string
	AllowedOrigins []string
	RequestTimeout time.Duration
	ReconcilerAddr string
}

type WorkerConfig struct {
	Schedule    string
	GRPCPort    string
	LockTTL     time.Duration
	Epsilon     string
	SweepWindow time.Duration
}

type LocaleConfig struct {
	PhoneRegion string
	Currency    string
}

type LogConfig struct {
	Level string
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	return Config{
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		DB: DBConfig{
			DSN:             getEnv("DATABASE_DSN", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  getEnvDuration("TOKEN_TTL", 12*time.Hour),
		},
		HTTP: HTTPConfig{
			Port:           getEnv("HTTP_PORT", "8080"),
			RateLimit:      getEnv("RATE_LIMIT", "120-M"),
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
			RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 15*time.Second),
			ReconcilerAddr: getEnv("RECONCILER_GRPC_ADDR", "localhost:50061"),
		},
		Worker: WorkerConfig{
			Schedule:    getEnv("RECONCILE_SCHEDULE", "@every 15m"),
			GRPCPort:    getEnv("RECONCILER_GRPC_PORT", "50061"),
			LockTTL:     getEnvDuration("RECONCILE_LOCK_TTL", 5*time.Minute),
			Epsilon:     getEnv("RECONCILE_EPSILON", "0.01"),
			SweepWindow: getEnvDuration("RECONCILE_WINDOW", 30*24*time.Hour),
		},
		Locale: LocaleConfig{
			PhoneRegion: getEnv("PHONE_REGION", "BR"),
			Currency:    getEnv("CURRENCY", "BRL"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return defaultValue
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
