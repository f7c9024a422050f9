package config

import (
	"log"
	"os"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr        string
	DatabaseDSN     string
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	SeedFile        string
	MediaDir        string
	LogLevel        string
	CORSOrigins     []string
}

func Load() Config {
	cfg := Config{
		HTTPAddr:        getEnv("MRS_HTTP_ADDR", ":8080"),
		DatabaseDSN:     getEnv("MRS_DB_DSN", "file:mrs.db?cache=shared&mode=rwc"),
		JWTSecret:       getEnv("MRS_JWT_SECRET", "dev-secret-change"),
		AccessTokenTTL:  getDuration("MRS_ACCESS_TOKEN_TTL", time.Hour),
		RefreshTokenTTL: getDuration("MRS_REFRESH_TOKEN_TTL", 30*24*time.Hour),
		SeedFile:        getEnv("MRS_SEED_FILE", ""),
		MediaDir:        getEnv("MRS_MEDIA_DIR", "media"),
		LogLevel:        getEnv("MRS_LOG_LEVEL", "info"),
		CORSOrigins:     strings.Split(getEnv("MRS_CORS_ORIGINS", "*"), ","),
	}
	if cfg.JWTSecret == "dev-secret-change" {
		log.Println("WARNING: using development JWT secret; set MRS_JWT_SECRET")
	}
	return cfg
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("WARNING: invalid %s=%q, using %s", key, v, def)
		return def
	}
	return d
}
