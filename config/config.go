package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"lending-service/internal/database"

	"go.uber.org/zap"
)

type Config struct {
	App     App
	DB      DB
	Redis   Redis
	Kafka   Kafka
	JWT     JWT
	Storage Storage
	Engine  Engine
	Audit   Audit
	Tracing Tracing
}

type App struct {
	Port           string
	Env            string
	Timezone       string
	RequestTimeout time.Duration
	CORSOrigins    []string
}

type DB struct {
	database.Config
}

type Redis struct {
	Enabled    bool
	Addr       string
	Password   string
	DB         int
	TTLSeconds int
}

type Kafka struct {
	Brokers []string
	Topic   string
}

type JWT struct {
	Secret   string
	Issuer   string
	Audience string
}

type Storage struct {
	// postgres | memory
	Driver    string
	GCSBucket string
	GCSPrefix string
}

type Engine struct {
	SuggestionHorizonDays int
	SuggestionLimit       int
	MaxSuggestions        int
	DefaultMapDays        int
	MaxMapDays            int
	MaxRangeDays          int
}

type Audit struct {
	Enabled     bool
	Interval    time.Duration
	HorizonDays int
}

type Tracing struct {
	ServiceName string
}

func Load(log *zap.Logger) *Config {
	driver := getEnvDefault("STORAGE_DRIVER", "postgres")

	cfg := &Config{
		App: App{
			Port:           getEnv("APP_PORT", log),
			Env:            getEnvDefault("ENV", "production"),
			Timezone:       getEnvDefault("APP_TIMEZONE", "UTC"),
			RequestTimeout: parseDurationDefault(os.Getenv("REQUEST_TIMEOUT"), 15*time.Second),
			CORSOrigins:    splitAndTrim(getEnvDefault("CORS_ORIGINS", "*")),
		},
		Redis: Redis{
			Enabled:    os.Getenv("REDIS_ENABLED") == "true",
			Addr:       os.Getenv("REDIS_ADDR"),
			Password:   os.Getenv("REDIS_PASSWORD"),
			DB:         atoiDefault(os.Getenv("REDIS_DB"), 0),
			TTLSeconds: atoiDefault(os.Getenv("CACHE_TTL_SECONDS"), 60),
		},
		Kafka: Kafka{
			Brokers: splitAndTrim(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnvDefault("KAFKA_TOPIC_RESERVATIONS", "lending.reservations"),
		},
		JWT: JWT{
			Secret:   getEnv("JWT_SECRET", log),
			Issuer:   getEnv("JWT_ISSUER", log),
			Audience: getEnv("JWT_AUDIENCE", log),
		},
		Storage: Storage{
			Driver:    driver,
			GCSBucket: strings.TrimSpace(os.Getenv("GCS_BUCKET")),
			GCSPrefix: getEnvDefault("GCS_PREFIX", "reservations/"),
		},
		Engine: Engine{
			SuggestionHorizonDays: atoiDefault(os.Getenv("SUGGESTION_HORIZON_DAYS"), 30),
			SuggestionLimit:       atoiDefault(os.Getenv("SUGGESTION_LIMIT"), 1),
			MaxSuggestions:        atoiDefault(os.Getenv("SUGGESTION_MAX"), 5),
			DefaultMapDays:        atoiDefault(os.Getenv("AVAILABILITY_DEFAULT_DAYS"), 60),
			MaxMapDays:            atoiDefault(os.Getenv("AVAILABILITY_MAX_DAYS"), 365),
			MaxRangeDays:          atoiDefault(os.Getenv("RESERVATION_MAX_DAYS"), 365),
		},
		Audit: Audit{
			Enabled:     getEnvDefault("AUDIT_ENABLED", "true") == "true",
			Interval:    parseDurationDefault(os.Getenv("AUDIT_INTERVAL"), time.Hour),
			HorizonDays: atoiDefault(os.Getenv("AUDIT_HORIZON_DAYS"), 90),
		},
		Tracing: Tracing{
			ServiceName: getEnvDefault("OTEL_SERVICE_NAME", "lending-service"),
		},
	}

	// in-memory реестру БД не нужна
	if driver != "memory" {
		cfg.DB = DB{
			Config: database.Config{
				Host:     getEnv("DB_HOST", log),
				Port:     getEnv("DB_PORT", log),
				User:     getEnv("DB_USER", log),
				Password: getEnv("DB_PASSWORD", log),
				Name:     getEnv("DB_NAME", log),
				SSLMode:  getEnv("DB_SSLMODE", log),
			},
		}
	}

	return cfg
}

// LoadDB: только секция БД, для cmd/migrate
func LoadDB(log *zap.Logger) DB {
	return DB{
		Config: database.Config{
			Host:     getEnv("DB_HOST", log),
			Port:     getEnv("DB_PORT", log),
			User:     getEnv("DB_USER", log),
			Password: getEnv("DB_PASSWORD", log),
			Name:     getEnv("DB_NAME", log),
			SSLMode:  getEnv("DB_SSLMODE", log),
		},
	}
}

// Location: часовой пояс, в котором считается "сегодня"
func (a App) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key string, log *zap.Logger) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	log.Error("required environment variable is not set", zap.String("key", key))
	panic("missing required environment variable: " + key)
}

func getEnvDefault(key, def string) string {
	if val, exists := os.LookupEnv(key); exists && strings.TrimSpace(val) != "" {
		return val
	}
	return def
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func parseDurationDefault(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := []string{}
	for _, p := range strings.Split(s, ",") {
		pt := strings.TrimSpace(p)
		if pt != "" {
			parts = append(parts, pt)
		}
	}
	return parts
}
