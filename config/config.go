package config

import (
	"os"
	"strconv"

	"github.com/go-redis/redis/v8"
)

type Config struct {
	Environment string
	Port        string
	DatabaseURL string
	RedisURL    string
	JWTSecret   string

	// Gemini Config
	GeminiAPIKey string

	// Firebase Config
	FirebaseCredentials string
	PushEnabled         bool

	// Twilio Config
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string
	SMSEnabled        bool

	// App Settings
	RateLimitRequest    int
	RateLimitWindow     int // minutes
	MaxConcurrentSends  int
	RetryWorkerInterval int // minutes
	RetryWorkerEnabled  bool
}

func Load() *Config {
	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", "mongodb://localhost:27017/aegis"),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379"),
		JWTSecret:   getEnv("JWT_SECRET", "change-me-in-production"),

		// Gemini
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),

		// Firebase
		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),
		PushEnabled:         getEnvAsBool("PUSH_ENABLED", false),

		// Twilio
		TwilioAccountSID:  getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:   getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioPhoneNumber: getEnv("TWILIO_PHONE_NUMBER", ""),
		SMSEnabled:        getEnvAsBool("SMS_ENABLED", false),

		// App Settings
		RateLimitRequest:    getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:     getEnvAsInt("RATE_LIMIT_WINDOW_MINUTES", 1),
		MaxConcurrentSends:  getEnvAsInt("MAX_CONCURRENT_SENDS", 5),
		RetryWorkerInterval: getEnvAsInt("RETRY_WORKER_INTERVAL_MINUTES", 5),
		RetryWorkerEnabled:  getEnvAsBool("RETRY_WORKER_ENABLED", true),
	}
}

func InitRedis(cfg *Config) *redis.Client {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		// Fallback to default config
		opt = &redis.Options{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
		}
	}

	client := redis.NewClient(opt)
	return client
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
