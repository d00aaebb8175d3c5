package config

import (
	"fmt"
	"time"

	"github.com/Skotchmaster/returns/pkg/config"
)

type ServiceConfig struct {
	config.Config
}

func Load(envFile string) ServiceConfig {
	cfg := config.Load(envFile)

	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET")
	config.MustNonEmpty(cfg.AuthHTTPURL, "AUTH_URL")
	config.MustPositive(cfg.ReturnWindowDays, "RETURN_WINDOW_DAYS")
	if cfg.BlobBackend == "s3" {
		config.MustNonEmpty(cfg.S3Endpoint, "S3_ENDPOINT")
	}

	return ServiceConfig{Config: cfg}
}

func (c ServiceConfig) ReturnWindow() time.Duration {
	return time.Duration(c.ReturnWindowDays) * 24 * time.Hour
}

func (c ServiceConfig) Addr() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}
