package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	Env      string
	LogLevel string
	LogFile  string

	PostgresConnStr string
	MongoURI        string
	MongoDatabase   string
	RedisAddr       string
	RedisPassword   string

	JWTSecret     string
	SessionCookie string

	AIBaseURL         string
	AIAPIKey          string
	SearchBaseURL     string
	SearchAPIKey      string
	StorageGatewayURL string
	StorageAPIKey     string
	MailBaseURL       string
	MailAPIKey        string
	MailFrom          string
}

func Load() *Config {
	// .env values must be in the environment before any getEnv read;
	// godotenv never overrides variables that are already set
	_ = godotenv.Load()

	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", "opaq-server.log"),

		PostgresConnStr: getEnv("POSTGRES_CONN_STR", ""),
		MongoURI:        getEnv("MONGO_URI", ""),
		MongoDatabase:   getEnv("MONGO_DATABASE", "opaq"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),

		JWTSecret:     getEnv("JWT_SECRET", "supersecretjwtkey"),
		SessionCookie: getEnv("SESSION_COOKIE", "opaq_session"),

		AIBaseURL:         getEnv("AI_API_BASE_URL", ""),
		AIAPIKey:          getEnv("AI_API_KEY", ""),
		SearchBaseURL:     getEnv("SEARCH_API_BASE_URL", ""),
		SearchAPIKey:      getEnv("SEARCH_API_KEY", ""),
		StorageGatewayURL: getEnv("STORAGE_GATEWAY_URL", ""),
		StorageAPIKey:     getEnv("STORAGE_API_KEY", ""),
		MailBaseURL:       getEnv("MAIL_API_BASE_URL", ""),
		MailAPIKey:        getEnv("MAIL_API_KEY", ""),
		MailFrom:          getEnv("MAIL_FROM", "no-reply@opaq.social"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
