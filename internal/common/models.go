package common

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UpdatedBySystem 未指定操作人时写入的哨兵值
const UpdatedBySystem = "System"

// Model 所有持久化实体的公共字段
// 各业务模型嵌入此结构体即可获得统一的主键、审计时间戳和软删除能力
type Model struct {
	ID        string     `json:"id" gorm:"primaryKey;type:uuid"`
	CreatedAt time.Time  `json:"createdAt" gorm:"not null"`
	UpdatedAt time.Time  `json:"updatedAt" gorm:"not null"`
	UpdatedBy string     `json:"updatedBy,omitempty" gorm:"size:100"`
	DeletedAt *time.Time `json:"deletedAt,omitempty" gorm:"index"`
	DeletedBy string     `json:"deletedBy,omitempty" gorm:"size:100"`
}

// Entity 仓储层对实体的最小要求，由 *Model 实现
type Entity interface {
	GetID() string
	StampCreated(now time.Time)
	StampUpdated(now time.Time, by string)
	MarkDeleted(by string)
	IsDeleted() bool
}

// TenantOwned 租户归属能力标记
// 仅租户隔离的模型实现此接口（通过嵌入 TenantModel），
// 仓储在构造时做一次类型断言决定是否应用租户过滤，热路径上无反射
type TenantOwned interface {
	GetTenantID() string
}

// TenantModel 租户隔离模型的公共字段，嵌入即实现 TenantOwned
type TenantModel struct {
	Model
	TenantID string `json:"tenantId" gorm:"type:uuid;not null;index"`
}

// GetTenantID 实现 TenantOwned
func (m *TenantModel) GetTenantID() string {
	return m.TenantID
}

// GetID 返回实体主键
func (m *Model) GetID() string {
	return m.ID
}

// StampCreated 记录创建时间，不分配主键（主键由存储层在写入时生成）
func (m *Model) StampCreated(now time.Time) {
	m.CreatedAt = now
	m.UpdatedAt = now
}

// StampUpdated 记录更新时间与操作人，操作人为空时写入 System 哨兵值
func (m *Model) StampUpdated(now time.Time, by string) {
	if by == "" {
		by = UpdatedBySystem
	}
	m.UpdatedAt = now
	m.UpdatedBy = by
}

// MarkDeleted 执行逻辑删除，记录本身保留在存储中
func (m *Model) MarkDeleted(by string) {
	now := time.Now().UTC()
	m.DeletedAt = &now
	m.DeletedBy = by
}

// IsDeleted 检查记录是否已被软删除
func (m *Model) IsDeleted() bool {
	return m.DeletedAt != nil
}

// BeforeCreate GORM 钩子，主键在写入时由存储层分配
func (m *Model) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
