package service

import (
	"context"
	"strings"
	"time"

	"github.com/salyqtech/salyq-backend/pkg/redis"
	"github.com/salyqtech/salyq-backend/pkg/util"
	"github.com/shopspring/decimal"
)

const consentCodeLength = 6

func generateConsentCode() (string, error) {
	return util.GenerateOTPCode(consentCodeLength)
}

func parseDecimal(value string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(value))
}

// RedisConsentStore — хранение кодов подтверждения в Redis.
type RedisConsentStore struct{}

func NewRedisConsentStore() *RedisConsentStore {
	return &RedisConsentStore{}
}

func (s *RedisConsentStore) Store(ctx context.Context, declarationID uint, code string, expiry time.Duration) error {
	return redis.StoreConsentCode(ctx, declarationID, code, expiry)
}

func (s *RedisConsentStore) Check(ctx context.Context, declarationID uint, code string, maxAttempts int) (bool, bool, error) {
	return redis.CheckConsentCode(ctx, declarationID, code, maxAttempts)
}
