package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	// loads .env into the process environment before anything reads it
	_ "github.com/joho/godotenv/autoload"
)

const (
	ChangeFeedOff    = "off"
	ChangeFeedMemory = "memory"
	ChangeFeedRedis  = "redis"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	ChangeFeed ChangeFeedConfig
}

type ServerConfig struct {
	Port string `validate:"required,numeric"`
}

// DatabaseConfig holds PostgreSQL connection settings. Only certificate-validating
// TLS modes are accepted.
type DatabaseConfig struct {
	Host        string `validate:"required"`
	Port        string `validate:"required,numeric"`
	User        string `validate:"required"`
	Password    string
	DBName      string `validate:"required"`
	SSLMode     string `validate:"required,oneof=verify-ca verify-full"`
	SSLRootCert string `validate:"omitempty,file"`
	MaxConns    int32  `validate:"min=1"`
}

type RedisConfig struct {
	Host     string `validate:"required"`
	Port     string `validate:"required,numeric"`
	Password string
	DB       int `validate:"min=0"`
}

type ChangeFeedConfig struct {
	Mode       string `validate:"oneof=off memory redis"`
	BufferSize int    `validate:"min=1"`
	Workers    int    `validate:"min=1"`
}

var AppConfig *Config

// LoadConfig reads the environment once and validates the result.
func LoadConfig() (*Config, error) {
	dbConfig, err := GetDatabaseConfig()
	if err != nil {
		return nil, err
	}
	redisConfig, err := GetRedisConfig()
	if err != nil {
		return nil, err
	}
	feedConfig, err := GetChangeFeedConfig()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server:     ServerConfig{Port: getEnv("PORT", "3000")},
		Database:   dbConfig,
		Redis:      redisConfig,
		ChangeFeed: feedConfig,
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	AppConfig = cfg
	return AppConfig, nil
}

func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func GetDatabaseConfig() (DatabaseConfig, error) {
	maxConns, err := getEnvInt("DB_MAX_CONNS", 4)
	if err != nil {
		return DatabaseConfig{}, err
	}

	return DatabaseConfig{
		Host:        getEnv("DB_HOST", "localhost"),
		Port:        getEnv("DB_PORT", "5432"),
		User:        getEnv("DB_USER", "postgres"),
		Password:    getEnv("DB_PASSWORD", ""),
		DBName:      getEnv("DB_DATABASE", "postgres"),
		SSLMode:     getEnv("DB_SSL_MODE", "verify-full"),
		SSLRootCert: getEnv("DB_SSL_ROOT_CERT", ""),
		MaxConns:    int32(maxConns),
	}, nil
}

func GetRedisConfig() (RedisConfig, error) {
	db, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return RedisConfig{}, err
	}

	return RedisConfig{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       db,
	}, nil
}

func GetChangeFeedConfig() (ChangeFeedConfig, error) {
	buffer, err := getEnvInt("CHANGE_FEED_BUFFER", 256)
	if err != nil {
		return ChangeFeedConfig{}, err
	}
	workers, err := getEnvInt("CHANGE_WORKERS", 4)
	if err != nil {
		return ChangeFeedConfig{}, err
	}

	return ChangeFeedConfig{
		Mode:       getEnv("CHANGE_FEED", ChangeFeedOff),
		BufferSize: buffer,
		Workers:    workers,
	}, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
