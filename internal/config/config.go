package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	SinkLog  = "log"
	SinkAMQP = "amqp"
	SinkBoth = "both"
)

type Config struct {
	DBDriver       string
	DBHost         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBPort         string
	DBSSLMode      string
	DBMaxOpenConns int

	AppPort     string
	AppEnv      string
	LogLevel    string
	CORSOrigins []string

	JWTSecret         string
	AuthRequired      bool
	InternalSecretKey string

	KitchenSink     string
	AMQPURL         string
	KitchenExchange string

	// AllowOccupiedTransfer lets a full transfer land on a table that
	// already has an active order.
	AllowOccupiedTransfer bool
}

// Load reads the environment (and .env when present) into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBDriver:       getEnv("DB_DRIVER", DriverPostgres),
		DBHost:         os.Getenv("DB_HOST"),
		DBUser:         os.Getenv("DB_USER"),
		DBPassword:     os.Getenv("DB_PASSWORD"),
		DBName:         os.Getenv("DB_NAME"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBSSLMode:      getEnv("DB_SSLMODE", "disable"),
		DBMaxOpenConns: getInt("DB_MAX_OPEN_CONNS", 10),

		AppPort:     getEnv("APP_PORT", "8080"),
		AppEnv:      os.Getenv("APP_ENV"),
		LogLevel:    os.Getenv("LOG_LEVEL"),
		CORSOrigins: getList("CORS_ALLOWED_ORIGINS"),

		JWTSecret:         os.Getenv("JWT_SECRET"),
		AuthRequired:      getBool("AUTH_REQUIRED", false),
		InternalSecretKey: os.Getenv("INTERNAL_SECRET_KEY"),

		KitchenSink:     strings.ToLower(getEnv("KITCHEN_SINK", SinkLog)),
		AMQPURL:         os.Getenv("AMQP_URL"),
		KitchenExchange: getEnv("KITCHEN_EXCHANGE", "kitchen_tickets"),

		AllowOccupiedTransfer: getBool("TRANSFER_ALLOW_OCCUPIED", true),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadConfig is Load for main: any error is fatal.
func LoadConfig() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("Environment variables not loaded properly: %v", err)
	}
	return cfg
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case DriverPostgres:
		if c.DBHost == "" {
			return errors.New("DB_HOST is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return errors.New("DB_DRIVER must be postgres or memory")
	}

	switch c.KitchenSink {
	case SinkLog:
	case SinkAMQP, SinkBoth:
		if c.AMQPURL == "" {
			return errors.New("AMQP_URL is required when KITCHEN_SINK uses amqp")
		}
	default:
		return errors.New("KITCHEN_SINK must be log, amqp or both")
	}

	if c.AuthRequired && c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required when AUTH_REQUIRED is set")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
