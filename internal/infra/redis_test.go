package infra

import (
	"testing"

	"backend/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestInitRedisRejectsUnknownMode(t *testing.T) {
	_, err := InitRedis(&config.RedisConfig{Mode: "mesh"})
	assert.ErrorContains(t, err, "不支持的 Redis 模式")
}

func TestInitRedisSentinelRequiresMasterAndAddrs(t *testing.T) {
	_, err := InitRedis(&config.RedisConfig{Mode: "sentinel"})
	assert.ErrorContains(t, err, "master_name")

	_, err = InitRedis(&config.RedisConfig{Mode: "sentinel", MasterName: "main"})
	assert.ErrorContains(t, err, "sentinel_addrs")
}

func TestInitRedisClusterRequiresAddrs(t *testing.T) {
	_, err := InitRedis(&config.RedisConfig{Mode: "cluster"})
	assert.ErrorContains(t, err, "cluster_addrs")
}
