package authz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"backend/internal/metrics"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "authz:decision"

// DecisionCache 权限裁决缓存（Redis）
//
// 缓存只是加速层：任何读写错误都按未命中处理并记日志，绝不影响裁决结果
type DecisionCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *zap.Logger
}

// NewDecisionCache 创建裁决缓存，ttl<=0 时使用 5 分钟默认值
func NewDecisionCache(client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *DecisionCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DecisionCache{client: client, ttl: ttl, logger: logger}
}

func cacheKey(tenantID, role, resource, action string) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s",
		cacheKeyPrefix, tenantID, strings.ToLower(role), strings.ToLower(resource), action)
}

// Get 读取缓存中的裁决结果，未命中或出错时 ok=false
func (c *DecisionCache) Get(ctx context.Context, tenantID, role, resource, action string) (Decision, bool) {
	value, err := c.client.Get(ctx, cacheKey(tenantID, role, resource, action)).Result()
	if err == redis.Nil {
		return Decision{}, false
	}
	if err != nil {
		c.logger.Debug("裁决缓存读取失败", zap.Error(err))
		return Decision{}, false
	}

	// 值形如 "allow:default" / "deny:none"
	outcome, tier, found := strings.Cut(value, ":")
	if !found {
		return Decision{}, false
	}
	metrics.AuthzCacheHits.Inc()
	return Decision{Allowed: outcome == "allow", Tier: tier}, true
}

// Set 写入裁决结果，失败只记日志
func (c *DecisionCache) Set(ctx context.Context, tenantID, role, resource, action string, d Decision) {
	outcome := "deny"
	if d.Allowed {
		outcome = "allow"
	}
	value := outcome + ":" + d.Tier
	if err := c.client.Set(ctx, cacheKey(tenantID, role, resource, action), value, c.ttl).Err(); err != nil {
		c.logger.Debug("裁决缓存写入失败", zap.Error(err))
	}
}

// InvalidateTenant 授权变更后清空该租户的全部裁决缓存
func (c *DecisionCache) InvalidateTenant(ctx context.Context, tenantID string) error {
	pattern := fmt.Sprintf("%s:%s:*", cacheKeyPrefix, tenantID)
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= 100 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		return c.client.Del(ctx, keys...).Err()
	}
	return nil
}
