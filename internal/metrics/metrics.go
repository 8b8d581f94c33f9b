package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 权限裁决指标
var (
	// AuthzDecisionsTotal 按结果与命中层级统计权限裁决次数
	AuthzDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "backend",
		Subsystem: "authz",
		Name:      "decisions_total",
		Help:      "Authorization decisions by outcome and tier.",
	}, []string{"outcome", "tier"})

	// AuthzStoreFailures 权限存储查询失败（触发降级）次数
	AuthzStoreFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "backend",
		Subsystem: "authz",
		Name:      "store_failures_total",
		Help:      "Permission store lookup failures that degraded to role defaults.",
	})

	// AuthzCacheHits 裁决缓存命中次数
	AuthzCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "backend",
		Subsystem: "authz",
		Name:      "cache_hits_total",
		Help:      "Authorization decision cache hits.",
	})
)

// HTTP 请求指标
var (
	// HTTPRequestsTotal 按方法、路由与状态码统计请求次数
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "backend",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	// HTTPRequestDuration 请求耗时分布
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "backend",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency distribution.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// 审计指标
var (
	// AuditEventsDropped 审计队列满时被丢弃的事件数
	AuditEventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "backend",
		Subsystem: "audit",
		Name:      "events_dropped_total",
		Help:      "Audit events dropped because the sink queue was full.",
	})

	// AuditWriteFailures 审计落库失败次数
	AuditWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "backend",
		Subsystem: "audit",
		Name:      "write_failures_total",
		Help:      "Audit event write failures.",
	})
)
