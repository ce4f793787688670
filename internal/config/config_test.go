package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("", logger.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "verbfy", cfg.ServiceName)
	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 15*time.Minute, cfg.LiveKit.EarlyJoin)
	assert.Equal(t, 30*time.Minute, cfg.Booking.SlotStep)
	assert.Equal(t, int64(50<<20), cfg.Storage.MaxUploadSize)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("MONGO_DATABASE", "verbfy_test")
	t.Setenv("JWT_ACCESS_TTL", "5m")
	t.Setenv("BOOKING_TIMEZONE", "Europe/Istanbul")
	t.Setenv("LIVEKIT_EARLY_JOIN", "20m")

	cfg, err := LoadConfig("", logger.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "verbfy_test", cfg.Mongo.Database)
	assert.Equal(t, 5*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 20*time.Minute, cfg.LiveKit.EarlyJoin)
	assert.Equal(t, "Europe/Istanbul", cfg.Location().String())
}

func TestLoadConfig_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte("http:\n  port: \"9090\"\nbooking:\n  min_lead_time: 1h\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o600))

	cfg, err := LoadConfig(dir, logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.HTTP.Port)
	assert.Equal(t, time.Hour, cfg.Booking.MinLeadTime)
}

func TestLoadConfig_InvalidTimezone(t *testing.T) {
	t.Setenv("BOOKING_TIMEZONE", "Mars/Olympus")

	_, err := LoadConfig("", logger.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "booking.timezone")
}

func TestValidate_Durations(t *testing.T) {
	cfg := &Config{
		Mongo:   MongoConfig{URI: "mongodb://x", Database: "d"},
		JWT:     JWTConfig{Secret: "s"},
		Booking: BookingConfig{Timezone: "UTC", MinDuration: time.Hour, MaxDuration: 30 * time.Minute, SlotStep: time.Minute},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_duration")
}
