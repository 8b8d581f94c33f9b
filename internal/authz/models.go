package authz

import "backend/internal/common"

// 动作标识，由 HTTP 动词映射而来
const (
	ActionCreate  = "Create"
	ActionRead    = "Read"
	ActionUpdate  = "Update"
	ActionDelete  = "Delete"
	ActionUnknown = "Unknown" // 未映射动词，任何默认表都不授予
)

// 通配哨兵值：资源或权限名等于其一即视为全量授权
const (
	WildcardAll  = "All"
	WildcardStar = "*"
)

// IsWildcard 判断资源或权限名是否为通配哨兵
func IsWildcard(s string) bool {
	return s == WildcardAll || s == WildcardStar
}

// Permission describes an action that can be performed on a resource within a
// tenant. Name is unique per tenant and can be used for name-based checks.
type Permission struct {
	common.TenantModel
	Name        string `json:"name" gorm:"size:100;not null;index"`
	Resource    string `json:"resource" gorm:"size:100;not null;index"` // 小写资源名，如 "trips"
	Action      string `json:"action" gorm:"size:50;not null"`
	Description string `json:"description" gorm:"type:text"`
	IsActive    bool   `json:"isActive" gorm:"not null;default:true"`
}

// RolePermission links a role to a permission within a tenant. IsGranted
// false is treated the same as an absent grant: it does not override the
// wildcard or role-default tiers.
type RolePermission struct {
	common.TenantModel
	Role         string     `json:"role" gorm:"size:100;not null;index"`
	PermissionID string     `json:"permissionId" gorm:"type:uuid;not null;index"`
	Permission   Permission `json:"permission" gorm:"foreignKey:PermissionID"`
	IsGranted    bool       `json:"isGranted" gorm:"not null;default:true"`
}
