package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"

	"canteen/internal/logger"
)

var AppEnv Config

type Config struct {
	Port            string
	MongoURI        string
	DBName          string
	StoreDriver     string
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	FrontendURL     string
	UploadDir       string

	LogLevel  string
	LogFormat string
	LogDir    string

	Redis     RedisConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Events    EventsConfig
}

func Load() {
	if err := godotenv.Load(); err != nil {
		logger.For("config").Info(".env not loaded: ", err)
	}
	AppEnv = Config{
		Port:            getEnvOrDefault("PORT", "8080"),
		MongoURI:        getEnvOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		DBName:          getEnvOrDefault("DB_NAME", "theater_canteen"),
		StoreDriver:     strings.ToLower(getEnvOrDefault("STORE_DRIVER", "mongo")),
		JWTSecret:       getEnvOrDefault("JWT_SECRET", ""),
		AccessTokenTTL:  getDurationEnv("ACCESS_TOKEN_TTL", 20, time.Minute),
		RefreshTokenTTL: getDurationEnv("REFRESH_TOKEN_TTL", 7, 24*time.Hour),
		FrontendURL:     strings.TrimRight(getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"), "/"),
		UploadDir:       getEnvOrDefault("UPLOAD_DIR", "public"),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "text"),
		LogDir:    getEnvOrDefault("LOG_DIR", "logs"),

		Redis:     loadRedisConfig(),
		Cache:     loadCacheConfig(),
		RateLimit: loadRateLimitConfig(),
		Events:    loadEventsConfig(),
	}
}
