package audit

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 审计动作
const (
	ActionPermissionDenied = "PermissionDenied" // 权限裁决拒绝
	ActionLogin            = "Login"
	ActionLogout           = "Logout"
	ActionCreate           = "Create"
	ActionUpdate           = "Update"
	ActionDelete           = "Delete"
)

// AuditLog is an append-only record of a security-relevant event. Rows are
// never updated or soft deleted; retention is handled outside the
// application.
type AuditLog struct {
	ID        string         `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID  string         `json:"tenantId" gorm:"type:uuid;index"`
	UserID    string         `json:"userId" gorm:"type:uuid;index"`
	Email     string         `json:"email" gorm:"size:255"`
	Action    string         `json:"action" gorm:"size:100;not null;index"`
	Resource  string         `json:"resource" gorm:"size:255"`
	Details   datatypes.JSON `json:"details"`
	IPAddress string         `json:"ipAddress" gorm:"size:45"`
	UserAgent string         `json:"userAgent" gorm:"size:512"`
	CreatedAt time.Time      `json:"createdAt" gorm:"index"`
}

// TableName 指定表名
func (AuditLog) TableName() string {
	return "audit_logs"
}

// BeforeCreate 入库前分配主键
func (l *AuditLog) BeforeCreate(_ *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
