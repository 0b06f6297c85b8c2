package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/salyqtech/salyq-backend/config"
	"github.com/salyqtech/salyq-backend/pkg/logger"
)

var client *redis.Client

// Init initializes Redis connection
func Init(cfg *config.RedisConfig) error {
	logger.Info("Initializing Redis connection", map[string]interface{}{
		"host": cfg.Host,
		"port": cfg.Port,
		"db":   cfg.DB,
	})

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", err, map[string]interface{}{
			"host": cfg.Host,
			"port": cfg.Port,
		})
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established successfully", nil)
	return nil
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	return client
}

// Close closes the Redis connection
func Close() error {
	if client != nil {
		logger.Info("Closing Redis connection", nil)
		return client.Close()
	}
	return nil
}

// BlacklistToken adds a token to the blacklist
func BlacklistToken(ctx context.Context, token string, expiry time.Duration) error {
	key := fmt.Sprintf("blacklist:%s", token)
	if err := client.Set(ctx, key, "revoked", expiry).Err(); err != nil {
		logger.Error("Failed to blacklist token", err, nil)
		return err
	}
	return nil
}

// IsTokenBlacklisted checks if a token is in the blacklist
func IsTokenBlacklisted(ctx context.Context, token string) (bool, error) {
	key := fmt.Sprintf("blacklist:%s", token)
	val, err := client.Get(ctx, key).Result()

	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		logger.Error("Failed to check token blacklist", err, nil)
		return false, err
	}

	return val == "revoked", nil
}

// StoreConsentCode stores a declaration signing OTP code.
// Код подтверждения хранится вместе со счётчиком попыток.
func StoreConsentCode(ctx context.Context, declarationID uint, code string, expiry time.Duration) error {
	key := fmt.Sprintf("consent:%d", declarationID)
	if err := client.Set(ctx, key, code, expiry).Err(); err != nil {
		return err
	}
	return client.Set(ctx, key+":attempts", 0, expiry).Err()
}

// CheckConsentCode verifies the OTP code for a declaration and enforces the
// attempt limit. Returns (matched, attemptsExhausted).
func CheckConsentCode(ctx context.Context, declarationID uint, code string, maxAttempts int) (bool, bool, error) {
	key := fmt.Sprintf("consent:%d", declarationID)

	stored, err := client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}

	attempts, err := client.Incr(ctx, key+":attempts").Result()
	if err != nil {
		return false, false, err
	}
	if attempts > int64(maxAttempts) {
		return false, true, nil
	}

	if stored != code {
		return false, false, nil
	}

	// одноразовый код: удаляем после успешной проверки
	client.Del(ctx, key, key+":attempts")
	return true, false, nil
}
