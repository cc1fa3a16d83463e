package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Port                 string
	AllowedOrigin        string
	SQLitePath           string
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	LiveCacheTTLSeconds  int
	DayCloseTokenSeconds int
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	cacheTTL, err := strconv.Atoi(getEnv("LIVE_CACHE_TTL_SECONDS", "30"))
	if err != nil || cacheTTL < 1 {
		cacheTTL = 30
	}
	tokenTTL, err := strconv.Atoi(getEnv("DAY_CLOSE_TOKEN_SECONDS", "120"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 120
	}

	return Config{
		Port:                 getEnv("PORT", "8080"),
		AllowedOrigin:        getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		SQLitePath:           os.Getenv("SQLITE_PATH"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              redisDB,
		LiveCacheTTLSeconds:  cacheTTL,
		DayCloseTokenSeconds: tokenTTL,
	}
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
