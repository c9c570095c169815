package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/montip/tipbot-middleware/pkg/config"
)

// WalletCache caches FID → smart wallet address lookups in redis with a TTL.
// Cache failures are logged and treated as misses; the chain remains the
// source of truth.
type WalletCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewWalletCache creates the cache and verifies connectivity.
func NewWalletCache(ctx context.Context, cfg *config.RedisConfig, logger *zap.Logger) (*WalletCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &WalletCache{
		client: client,
		ttl:    cfg.WalletTTL,
		logger: logger,
	}, nil
}

// Close releases the redis connection.
func (c *WalletCache) Close() error {
	return c.client.Close()
}

func walletKey(fid int64) string {
	return fmt.Sprintf("wallet:%d", fid)
}

// Get returns the cached wallet address for a FID, if present.
func (c *WalletCache) Get(ctx context.Context, fid int64) (string, bool) {
	addr, err := c.client.Get(ctx, walletKey(fid)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Wallet cache read failed", zap.Int64("fid", fid), zap.Error(err))
		}
		return "", false
	}
	return addr, true
}

// Set stores the wallet address for a FID with the configured TTL.
func (c *WalletCache) Set(ctx context.Context, fid int64, address string) {
	if err := c.client.Set(ctx, walletKey(fid), address, c.ttl).Err(); err != nil {
		c.logger.Warn("Wallet cache write failed", zap.Int64("fid", fid), zap.Error(err))
	}
}
