package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.AccessTokenTTL != time.Hour {
		t.Errorf("AccessTokenTTL = %s", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL != 30*24*time.Hour {
		t.Errorf("RefreshTokenTTL = %s", cfg.RefreshTokenTTL)
	}
	if cfg.MediaDir != "media" {
		t.Errorf("MediaDir = %q", cfg.MediaDir)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MRS_HTTP_ADDR", ":9999")
	t.Setenv("MRS_ACCESS_TOKEN_TTL", "15m")
	t.Setenv("MRS_CORS_ORIGINS", "https://a.example,https://b.example")

	cfg := Load()
	if cfg.HTTPAddr != ":9999" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.AccessTokenTTL != 15*time.Minute {
		t.Errorf("AccessTokenTTL = %s", cfg.AccessTokenTTL)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("MRS_ACCESS_TOKEN_TTL", "not-a-duration")
	cfg := Load()
	if cfg.AccessTokenTTL != time.Hour {
		t.Errorf("AccessTokenTTL = %s", cfg.AccessTokenTTL)
	}
}
