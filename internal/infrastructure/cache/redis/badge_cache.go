package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/garyjia/erp-requisitions/internal/application/port"
	"github.com/garyjia/erp-requisitions/internal/domain/entity"
)

const defaultBadgeTTL = 5 * time.Minute

// Config holds redis connection settings
type Config struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	TTL      time.Duration
}

// NewClient creates a redis client
func NewClient(cfg Config) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// BadgeCache stores pending counts as one hash per organization
type BadgeCache struct {
	client goredis.UniversalClient
	ttl    time.Duration
	logger *zap.Logger
}

// NewBadgeCache creates a badge cache; ttl <= 0 uses the default
func NewBadgeCache(client goredis.UniversalClient, ttl time.Duration, logger *zap.Logger) *BadgeCache {
	if ttl <= 0 {
		ttl = defaultBadgeTTL
	}
	return &BadgeCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func badgeKey(organizationID string) string {
	return "requisitions:badges:" + organizationID
}

func generationKey(organizationID string) string {
	return "requisitions:badges:" + organizationID + ":gen"
}

// Get returns ok=false on a cache miss
func (c *BadgeCache) Get(ctx context.Context, organizationID string) (map[entity.RequisitionStatus]int, bool, error) {
	values, err := c.client.HGetAll(ctx, badgeKey(organizationID)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis hgetall: %w", err)
	}
	if len(values) == 0 {
		return nil, false, nil
	}

	counts := make(map[entity.RequisitionStatus]int, len(values))
	for field, raw := range values {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.logger.Warn("Dropping corrupt badge cache entry",
				zap.String("organization_id", organizationID),
				zap.String("field", field),
				zap.String("value", raw))
			_ = c.Invalidate(ctx, organizationID)
			return nil, false, nil
		}
		counts[entity.RequisitionStatus(field)] = n
	}
	return counts, true, nil
}

// Generation returns the invalidation counter of an organization; zero when
// it was never invalidated
func (c *BadgeCache) Generation(ctx context.Context, organizationID string) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(organizationID)).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get generation: %w", err)
	}
	return gen, nil
}

// Set replaces the cached counts of an organization while the generation
// still equals generation. A concurrent Invalidate makes Set a no-op.
func (c *BadgeCache) Set(ctx context.Context, organizationID string, generation int64, counts map[entity.RequisitionStatus]int) error {
	if len(counts) == 0 {
		return nil
	}

	fields := make(map[string]interface{}, len(counts))
	for status, n := range counts {
		fields[status.String()] = n
	}

	key, genKey := badgeKey(organizationID), generationKey(organizationID)
	err := c.client.Watch(ctx, func(tx *goredis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, goredis.Nil) {
			return err
		}
		if current != generation {
			c.logger.Debug("Skipping stale badge counts",
				zap.String("organization_id", organizationID),
				zap.Int64("generation", generation),
				zap.Int64("current", current))
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.HSet(ctx, key, fields)
			pipe.Expire(ctx, key, c.ttl)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, goredis.TxFailedErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis set badges: %w", err)
	}
	return nil
}

// Invalidate drops the cached counts of an organization and advances its generation
func (c *BadgeCache) Invalidate(ctx context.Context, organizationID string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(organizationID))
		pipe.Del(ctx, badgeKey(organizationID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidate badges: %w", err)
	}
	return nil
}

// Ping checks connectivity
func (c *BadgeCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Verify interface compliance
var _ port.BadgeCache = (*BadgeCache)(nil)
