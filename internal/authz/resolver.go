package authz

import (
	"context"
	"strings"

	"backend/internal/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 裁决所命中的层级
const (
	TierExplicit = "explicit" // 显式授权
	TierWildcard = "wildcard" // 通配授权
	TierDefault  = "default"  // 角色默认表兜底
	TierNone     = "none"     // 无任何层级命中
)

// Decision 权限裁决结果
// Tier 仅用于日志与指标，对外响应不泄露策略形状
type Decision struct {
	Allowed bool
	Tier    string
}

// decisionCache 裁决缓存的读写面，由 *DecisionCache 实现
type decisionCache interface {
	Get(ctx context.Context, tenantID, role, resource, action string) (Decision, bool)
	Set(ctx context.Context, tenantID, role, resource, action string, d Decision)
}

// Resolver 权限裁决器，按 显式授权 → 通配授权 → 角色默认表 三层顺序裁决，
// 首个命中即返回
//
// 存储不可用时降级到只读的内置默认表而不是直接拒绝请求——
// 基础设施故障退化为静态策略，绝不退化为全量放行
type Resolver struct {
	db       *gorm.DB
	defaults RoleDefaults
	cache    decisionCache // 可为 nil
	logger   *zap.Logger
	tracer   trace.Tracer
}

// NewResolver 创建权限裁决器
// defaults 在进程启动时构建一次并显式传入；cache 可为 nil 表示不启用缓存
func NewResolver(db *gorm.DB, defaults RoleDefaults, cache *DecisionCache, logger *zap.Logger) *Resolver {
	r := &Resolver{
		db:       db,
		defaults: defaults,
		logger:   logger,
		tracer:   otel.Tracer("backend/internal/authz"),
	}
	if cache != nil {
		r.cache = cache
	}
	return r
}

// ResolveAction 裁决 (role, tenant, resource, action)
// 角色或租户声明缺失时直接拒绝
func (r *Resolver) ResolveAction(ctx context.Context, role, tenantID, resource, action string) Decision {
	ctx, span := r.tracer.Start(ctx, "authz.ResolveAction", trace.WithAttributes(
		attribute.String("authz.role", role),
		attribute.String("authz.resource", resource),
		attribute.String("authz.action", action),
	))
	defer span.End()

	if role == "" || tenantID == "" {
		return r.record(Decision{Allowed: false, Tier: TierNone})
	}
	resource = strings.ToLower(resource)

	// 缓存命中同样计入裁决指标
	if r.cache != nil {
		if d, ok := r.cache.Get(ctx, tenantID, role, resource, action); ok {
			return r.record(d)
		}
	}

	d, degraded := r.resolveStored(ctx, role, tenantID,
		// 第一层：显式授权
		func(q *gorm.DB) *gorm.DB {
			return q.Where("permissions.resource = ? AND permissions.action = ?", resource, action)
		},
		// 第三层：角色默认表
		func() bool { return r.defaults.AllowsAction(role, resource, action) },
	)

	// 降级裁决不写缓存，避免故障期间的结论在恢复后残留
	if r.cache != nil && !degraded {
		r.cache.Set(ctx, tenantID, role, resource, action, d)
	}
	return r.record(d)
}

// ResolveName 裁决 (role, tenant, permission-name)
func (r *Resolver) ResolveName(ctx context.Context, role, tenantID, name string) Decision {
	ctx, span := r.tracer.Start(ctx, "authz.ResolveName", trace.WithAttributes(
		attribute.String("authz.role", role),
		attribute.String("authz.name", name),
	))
	defer span.End()

	if role == "" || tenantID == "" {
		return r.record(Decision{Allowed: false, Tier: TierNone})
	}

	d, _ := r.resolveStored(ctx, role, tenantID,
		func(q *gorm.DB) *gorm.DB {
			return q.Where("permissions.name = ?", name)
		},
		func() bool { return r.defaults.AllowsName(role, name) },
	)
	return r.record(d)
}

// resolveStored 执行三层裁决
// 显式层条件由调用方注入，通配层与兜底层对两种裁决方式一致
func (r *Resolver) resolveStored(ctx context.Context, role, tenantID string, explicit func(*gorm.DB) *gorm.DB, fallback func() bool) (Decision, bool) {
	// 第一层：显式授权
	granted, err := r.grantExists(ctx, role, tenantID, explicit)
	if err != nil {
		return r.degrade(role, tenantID, err, fallback), true
	}
	if granted {
		return Decision{Allowed: true, Tier: TierExplicit}, false
	}

	// 第二层：通配授权（资源或权限名等于哨兵值，此时不再限定动作）
	granted, err = r.grantExists(ctx, role, tenantID, func(q *gorm.DB) *gorm.DB {
		return q.Where("permissions.resource IN ? OR permissions.name IN ?",
			[]string{WildcardAll, WildcardStar}, []string{WildcardAll, WildcardStar})
	})
	if err != nil {
		return r.degrade(role, tenantID, err, fallback), true
	}
	if granted {
		return Decision{Allowed: true, Tier: TierWildcard}, false
	}

	// 第三层：角色默认表
	if fallback() {
		return Decision{Allowed: true, Tier: TierDefault}, false
	}
	return Decision{Allowed: false, Tier: TierNone}, false
}

// grantExists 查询是否存在满足条件的有效授权记录
// 显式 IsGranted=false 等同于无授权，不做覆盖语义
func (r *Resolver) grantExists(ctx context.Context, role, tenantID string, cond func(*gorm.DB) *gorm.DB) (bool, error) {
	q := r.db.WithContext(ctx).Model(&RolePermission{}).
		Joins("JOIN permissions ON permissions.id = role_permissions.permission_id").
		Where("role_permissions.tenant_id = ?", tenantID).
		Where("LOWER(role_permissions.role) = LOWER(?)", role).
		Where("role_permissions.is_granted = ?", true).
		Where("role_permissions.deleted_at IS NULL").
		Where("permissions.tenant_id = ?", tenantID).
		Where("permissions.is_active = ?", true).
		Where("permissions.deleted_at IS NULL")

	var count int64
	if err := cond(q).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// degrade 存储不可用时降级到内置默认表
// 降级裁决不写缓存，避免故障期间的结论在恢复后残留
func (r *Resolver) degrade(role, tenantID string, err error, fallback func() bool) Decision {
	r.logger.Warn("权限查询失败，降级到角色默认表",
		zap.Error(err),
		zap.String("role", role),
		zap.String("tenantId", tenantID),
	)
	metrics.AuthzStoreFailures.Inc()
	if fallback() {
		return Decision{Allowed: true, Tier: TierDefault}
	}
	return Decision{Allowed: false, Tier: TierNone}
}

// record 上报裁决指标
func (r *Resolver) record(d Decision) Decision {
	outcome := "deny"
	if d.Allowed {
		outcome = "allow"
	}
	metrics.AuthzDecisionsTotal.WithLabelValues(outcome, d.Tier).Inc()
	return d
}
