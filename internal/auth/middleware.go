package auth

import (
	"backend/internal/common"
	"backend/internal/tenant"

	"github.com/gin-gonic/gin"
)

// Middleware 认证中间件：验证 Bearer 令牌并把身份写入请求上下文
// 后续的授权中间件与服务层都从 tenant.TenantContext 读取身份
func Middleware(jwtService *JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			common.AbortWithError(c, common.CodeUnauthorized, "missing authorization header")
			return
		}

		claims, err := jwtService.ValidateToken(c.Request.Context(), ExtractTokenFromBearer(header))
		if err != nil {
			common.AbortWithError(c, common.CodeUnauthorized, "invalid token")
			return
		}
		if claims.TokenType != "access" {
			common.AbortWithError(c, common.CodeUnauthorized, "invalid token")
			return
		}

		injectIdentity(c, claims)
		c.Next()
	}
}

// OptionalMiddleware 可选认证：有有效令牌则注入身份，无令牌或令牌无效时匿名放行
func OptionalMiddleware(jwtService *JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header != "" {
			claims, err := jwtService.ValidateToken(c.Request.Context(), ExtractTokenFromBearer(header))
			if err == nil && claims.TokenType == "access" {
				injectIdentity(c, claims)
			}
		}
		c.Next()
	}
}

func injectIdentity(c *gin.Context, claims *TokenClaims) {
	tc := tenant.TenantContext{
		TenantID: claims.TenantID,
		UserID:   claims.UserID,
		Role:     claims.Role,
		Email:    claims.Email,
	}
	c.Request = c.Request.WithContext(tenant.WithTenantContext(c.Request.Context(), tc))
}
