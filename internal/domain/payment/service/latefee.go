package service

import (
	"log"

	"kindergarten_billing/internal/pkg/config"

	"github.com/shopspring/decimal"
)

// LateFeeRule 滞纳金规则，由配置提供
type LateFeeRule struct {
	DailyRate   decimal.Decimal // 每天累计的滞纳金额
	CapFraction decimal.Decimal // 上限占应缴金额的比例
}

// DefaultLateFeeRule 读取配置中的滞纳金规则
// 配置缺失或非法时回退到 10 元/天、上限 10%
func DefaultLateFeeRule() LateFeeRule {
	rule := LateFeeRule{
		DailyRate:   decimal.NewFromInt(10),
		CapFraction: decimal.NewFromFloat(0.10),
	}

	cfg := config.GlobalConfig.LateFee
	if cfg.DailyRate != "" {
		if d, err := decimal.NewFromString(cfg.DailyRate); err == nil && d.IsPositive() {
			rule.DailyRate = d
		} else {
			log.Printf("Invalid late_fee.daily_rate %q, using default", cfg.DailyRate)
		}
	}
	if cfg.CapFraction != "" {
		if f, err := decimal.NewFromString(cfg.CapFraction); err == nil && f.IsPositive() {
			rule.CapFraction = f
		} else {
			log.Printf("Invalid late_fee.cap_fraction %q, using default", cfg.CapFraction)
		}
	}

	return rule
}
