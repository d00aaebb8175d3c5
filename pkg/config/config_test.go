package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCSV(t *testing.T) {
	assert.Nil(t, CSV(""))
	assert.Equal(t, []string{"a:9092", "b:9092"}, CSV(" a:9092, ,b:9092 "))
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SERVICE_NAME", "")
	t.Setenv("RETURN_WINDOW_DAYS", "")
	t.Setenv("SERVER_PORT", "not-a-number")
	t.Setenv("S3_USE_SSL", "false")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg := Load("")

	assert.Equal(t, "returns", cfg.ServiceName)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, 7, cfg.ReturnWindowDays)
	assert.False(t, cfg.S3UseSSL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "return_events", cfg.KafkaTopic)
	assert.Equal(t, "disk", cfg.BlobBackend)
}
