package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"kindergarten_billing/internal/domain/billing/model"
	"kindergarten_billing/internal/domain/billing/repository"
	"kindergarten_billing/pkg/logger"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// 收费标准变动低频，读多写少，走 Redis 旁路缓存
const ruleCacheTTL = 10 * time.Minute

var ErrRuleNotFound = errors.New("billing rule not found")

// BillingRuleService 收费标准查询，带缓存
type BillingRuleService interface {
	GetRule(ctx context.Context, kindergartenID, feeType string) (*model.BillingRule, error)
}

type billingRuleService struct {
	repo repository.BillingRuleRepository
	rdb  *redis.Client
}

func NewBillingRuleService(repo repository.BillingRuleRepository, rdb *redis.Client) BillingRuleService {
	return &billingRuleService{repo: repo, rdb: rdb}
}

func (s *billingRuleService) GetRule(ctx context.Context, kindergartenID, feeType string) (*model.BillingRule, error) {
	key := fmt.Sprintf("billing:rule:%s:%s", kindergartenID, feeType)

	// 1. 查缓存
	if s.rdb != nil {
		if data, err := s.rdb.Get(ctx, key).Bytes(); err == nil {
			var rule model.BillingRule
			if err := json.Unmarshal(data, &rule); err == nil {
				return &rule, nil
			}
		}
	}

	// 2. 回源数据库
	rule, err := s.repo.GetRule(kindergartenID, feeType)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRuleNotFound
		}
		return nil, err
	}

	// 3. 回填缓存，失败只记日志
	if s.rdb != nil {
		if data, err := json.Marshal(rule); err == nil {
			if err := s.rdb.Set(ctx, key, data, ruleCacheTTL).Err(); err != nil && logger.Log != nil {
				logger.Log.Warn("Failed to cache billing rule: " + err.Error())
			}
		}
	}

	return rule, nil
}
