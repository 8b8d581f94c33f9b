package authz

import (
	"encoding/json"
	"net/http"
	"strings"

	"backend/internal/audit"
	"backend/internal/common"
	"backend/internal/tenant"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// MiddlewareConfig 授权中间件配置
type MiddlewareConfig struct {
	// BypassPaths 跳过授权检查的路径前缀（大小写不敏感），如 /health、/swagger
	BypassPaths []string
	// APIPrefix 业务路由前缀，资源名取其后的第一段，默认 /api
	APIPrefix string
	// FailOpen 裁决器内部 panic 时是否放行，默认关闭（拒绝）
	FailOpen bool
}

// Middleware 授权中间件
//
// 在认证中间件之后挂载：从请求上下文读取租户身份，按三层策略裁决，
// 拒绝时写入审计事件并返回统一的 403
func Middleware(resolver *Resolver, sink *audit.Sink, logger *zap.Logger, cfg MiddlewareConfig) gin.HandlerFunc {
	apiPrefix := cfg.APIPrefix
	if apiPrefix == "" {
		apiPrefix = "/api"
	}
	bypass := make([]string, 0, len(cfg.BypassPaths))
	for _, p := range cfg.BypassPaths {
		bypass = append(bypass, strings.ToLower(p))
	}

	return func(c *gin.Context) {
		path := strings.ToLower(c.Request.URL.Path)
		for _, prefix := range bypass {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		// 未认证请求放行给后面的处理器，公开端点由认证层决定
		tc, ok := tenant.FromContext(c.Request.Context())
		if !ok {
			c.Next()
			return
		}

		resource := deriveResource(c.Request.URL.Path, apiPrefix)
		action := ActionFromMethod(c.Request.Method)

		// 角色或租户声明缺失：有身份却不完整，视为策略违规而不是未认证
		if !tc.HasIdentity() {
			deny(c, sink, tc, resource, action, "missing role or tenant claim")
			return
		}

		decision := resolve(c, resolver, tc, resource, action, logger, cfg.FailOpen)
		if !decision.Allowed {
			deny(c, sink, tc, resource, action, "permission denied")
			return
		}

		c.Next()
	}
}

// resolve 调用裁决器并吞掉内部 panic
// 裁决器自身的缺陷不应让整个 API 返回 500，按 FailOpen 配置决定放行或拒绝
func resolve(c *gin.Context, resolver *Resolver, tc tenant.TenantContext, resource, action string, logger *zap.Logger, failOpen bool) (d Decision) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("权限裁决器 panic",
				zap.Any("panic", r),
				zap.String("path", c.Request.URL.Path),
			)
			d = Decision{Allowed: failOpen, Tier: TierNone}
		}
	}()
	return resolver.ResolveAction(c.Request.Context(), tc.Role, tc.TenantID, resource, action)
}

// deny 记录审计事件并返回统一的 403，不泄露策略细节
func deny(c *gin.Context, sink *audit.Sink, tc tenant.TenantContext, resource, action, reason string) {
	if sink != nil {
		details, _ := json.Marshal(map[string]string{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"action": action,
			"reason": reason,
		})
		sink.Record(audit.AuditLog{
			TenantID:  tc.TenantID,
			UserID:    tc.UserID,
			Email:     tc.Email,
			Action:    audit.ActionPermissionDenied,
			Resource:  resource,
			Details:   datatypes.JSON(details),
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
	}
	common.AbortWithError(c, common.CodeForbidden, "access denied")
}

// ActionFromMethod 将 HTTP 动词映射为动作标识
func ActionFromMethod(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead:
		return ActionRead
	case http.MethodPost:
		return ActionCreate
	case http.MethodPut, http.MethodPatch:
		return ActionUpdate
	case http.MethodDelete:
		return ActionDelete
	default:
		return ActionUnknown
	}
}

// deriveResource 从路径中提取资源名：API 前缀后的第一段，小写
// 形如 /api/trips/123 -> "trips"；前缀不匹配时取路径第一段
func deriveResource(path, apiPrefix string) string {
	trimmed := path
	if strings.HasPrefix(strings.ToLower(path), strings.ToLower(apiPrefix)) {
		trimmed = path[len(apiPrefix):]
	}
	trimmed = strings.Trim(trimmed, "/")
	if trimmed == "" {
		return ""
	}
	segment, _, _ := strings.Cut(trimmed, "/")
	return strings.ToLower(segment)
}
