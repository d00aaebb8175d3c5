package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/returns")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("AUTH_URL", "http://auth:8080")
	t.Setenv("RETURN_WINDOW_DAYS", "10")
	t.Setenv("SERVER_PORT", "9090")

	cfg := Load("")
	assert.Equal(t, 10*24*time.Hour, cfg.ReturnWindow())
	assert.Equal(t, ":9090", cfg.Addr())
	assert.Equal(t, []byte("s3cret"), cfg.JWTAccessSecret)
}
