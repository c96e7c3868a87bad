package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("postgres:\n  dsn: \"host=db\"\n"))
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 100, cfg.Relay.BatchSize)
	assert.Equal(t, "outbox:relay:lease", cfg.Relay.LeaseKey)
	assert.Equal(t, "payment_intents", cfg.Kafka.Topic)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u@db/payments")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("HTTP_PORT", "8081")

	cfg, err := Parse([]byte("server:\n  port: 3000\nrelay:\n  interval: 250ms\n"))
	require.NoError(t, err)

	assert.Equal(t, "postgres://u@db/payments", cfg.Postgres.DSN)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.Relay.Interval)
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("server: [oops"))
	assert.Error(t, err)
}

func TestParse_PasswordKeptOutOfDSN(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u@db:5432/payments?sslmode=disable")
	t.Setenv("POSTGRES_PASSWORD", "s3cret")

	cfg, err := Parse([]byte("postgres:\n  dsn: \"host=db user=u\"\n"))
	require.NoError(t, err)

	assert.Equal(t, "postgres://u@db:5432/payments?sslmode=disable", cfg.Postgres.DSN)
	assert.Equal(t, "s3cret", cfg.Postgres.Password)
}
