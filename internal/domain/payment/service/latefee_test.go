package service

import (
	"testing"

	"kindergarten_billing/internal/pkg/config"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDefaultLateFeeRule(t *testing.T) {
	original := config.GlobalConfig.LateFee
	defer func() { config.GlobalConfig.LateFee = original }()

	t.Run("Missing config falls back to defaults", func(t *testing.T) {
		config.GlobalConfig.LateFee = config.LateFeeConfig{}

		rule := DefaultLateFeeRule()

		assert.True(t, rule.DailyRate.Equal(decimal.NewFromInt(10)))
		assert.True(t, rule.CapFraction.Equal(decimal.NewFromFloat(0.10)))
	})

	t.Run("Configured values are used", func(t *testing.T) {
		config.GlobalConfig.LateFee = config.LateFeeConfig{
			DailyRate:   "5.50",
			CapFraction: "0.20",
		}

		rule := DefaultLateFeeRule()

		assert.True(t, rule.DailyRate.Equal(decimal.RequireFromString("5.50")))
		assert.True(t, rule.CapFraction.Equal(decimal.RequireFromString("0.20")))
	})

	t.Run("Invalid values fall back to defaults", func(t *testing.T) {
		config.GlobalConfig.LateFee = config.LateFeeConfig{
			DailyRate:   "abc",
			CapFraction: "-1",
		}

		rule := DefaultLateFeeRule()

		assert.True(t, rule.DailyRate.Equal(decimal.NewFromInt(10)))
		assert.True(t, rule.CapFraction.Equal(decimal.NewFromFloat(0.10)))
	})
}
