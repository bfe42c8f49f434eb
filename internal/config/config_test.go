package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFeeTiers(t *testing.T) {
	t.Run("empty uses defaults", func(t *testing.T) {
		tiers, err := parseFeeTiers("")
		require.NoError(t, err)
		assert.Equal(t, DefaultFeeTiers(), tiers)
	})

	t.Run("sorts by min days descending", func(t *testing.T) {
		tiers, err := parseFeeTiers("0:100, 7:50 ,14:10")
		require.NoError(t, err)
		assert.Equal(t, []FeeTier{{14, 10}, {7, 50}, {0, 100}}, tiers)
	})

	t.Run("rejects malformed entries", func(t *testing.T) {
		_, err := parseFeeTiers("10-15")
		assert.Error(t, err)

		_, err = parseFeeTiers("x:15")
		assert.Error(t, err)
	})
}

func TestCancellationConfigValidate(t *testing.T) {
	assert.NoError(t, CancellationConfig{Tiers: DefaultFeeTiers(), UnknownDatePercent: 100}.Validate())

	err := CancellationConfig{Tiers: []FeeTier{{MinDays: 3, Percent: 50}}, UnknownDatePercent: 100}.Validate()
	assert.Error(t, err, "last tier must start at zero")

	err = CancellationConfig{Tiers: []FeeTier{{MinDays: 0, Percent: 120}}, UnknownDatePercent: 100}.Validate()
	assert.Error(t, err)
}

func TestRemediationConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultRemediationConfig().Validate())

	cfg := DefaultRemediationConfig()
	cfg.EarlyPromoMinDays = cfg.LatePromoMinDays
	assert.Error(t, cfg.Validate())

	cfg = DefaultRemediationConfig()
	cfg.CancelOccupancyRatio = 0.8
	assert.Error(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/tours")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("BUSINESS_TIME_ZONE", "UTC")
	t.Setenv("REMEDIATION_WINDOW_DAYS", "14")
	t.Setenv("DATABASE_CONN_MAX_LIFETIME", "2m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 14, cfg.Remediation.WindowDays)
	assert.Equal(t, "TB", cfg.Booking.CodePrefix)
	assert.Equal(t, float64(100), cfg.Cancellation.UnknownDatePercent)
	assert.Equal(t, "2m0s", cfg.Database.ConnMaxLifetime.String())
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "secret")

	_, err := Load()
	assert.Error(t, err)
}
