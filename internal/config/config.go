package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Table backends
const (
	BackendMemory   = "memory"
	BackendSheets   = "sheets"
	BackendPostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Table    TableConfig    `yaml:"table"`
	Sheets   SheetsConfig   `yaml:"sheets"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string        `yaml:"port"`
	Host            string        `yaml:"host"`
	AllowedOrigin   string        `yaml:"allowed_origin"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TableConfig selects the backing table and the columns the gateway keys on
type TableConfig struct {
	Backend           string `yaml:"backend"`
	Name              string `yaml:"name"`
	KeyColumn         string `yaml:"key_column"`
	DateColumn        string `yaml:"date_column"`
	ResultColumn      string `yaml:"result_column"`
	UpdateColumnLimit int    `yaml:"update_column_limit"`
}

// SheetsConfig holds Google Sheets configuration
type SheetsConfig struct {
	URL         string `yaml:"url"`
	Credentials string `yaml:"credentials"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

// RedisConfig holds the distributed write lock configuration. An empty
// address keeps the lock in process.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	LockKey  string        `yaml:"lock_key"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

// KafkaConfig holds Kafka configuration. No brokers disables both the
// event producer and the trade consumer.
type KafkaConfig struct {
	Brokers    []string `yaml:"brokers"`
	Topic      string   `yaml:"topic"`
	TradeTopic string   `yaml:"trade_topic"`
	GroupID    string   `yaml:"group_id"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			AllowedOrigin:   getEnv("CORS_ALLOWED_ORIGIN", "*"),
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Table: TableConfig{
			Backend:           getEnv("TABLE_BACKEND", BackendMemory),
			Name:              getEnv("TABLE_NAME", "Earnings"),
			KeyColumn:         getEnv("KEY_COLUMN", "Ticker"),
			DateColumn:        getEnv("DATE_COLUMN", "Open Date"),
			ResultColumn:      getEnv("RESULT_COLUMN", "Result"),
			UpdateColumnLimit: getEnvInt("UPDATE_COLUMN_LIMIT", 12),
		},
		Sheets: SheetsConfig{
			URL:         getEnv("SHEETS_URL", ""),
			Credentials: getEnv("SHEETS_CREDENTIALS", ""),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "earnings"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			LockKey:  getEnv("REDIS_LOCK_KEY", "earnings-gateway:write-lock"),
			LockTTL:  getEnvDuration("REDIS_LOCK_TTL", 30*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    getEnvList("KAFKA_BROKERS"),
			Topic:      getEnv("KAFKA_TOPIC", "earnings-events"),
			TradeTopic: getEnv("KAFKA_TRADE_TOPIC", "earnings-trades"),
			GroupID:    getEnv("KAFKA_GROUP_ID", "earnings-gateway"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}
}

// LoadFile overlays a YAML file on the environment configuration. ${VAR}
// references in the file are expanded first.
func LoadFile(path string) (*Config, error) {
	cfg := Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

// Addr returns the HTTP listen address
func (s *ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	var list []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}
