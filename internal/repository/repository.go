package repository

import (
	"context"
	"fmt"
	"time"

	"backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository 泛型仓储，对单一实体类型提供租户隔离、软删除感知的CRUD与查询组合
// 实例由 UnitOfWork 按类型缓存分发，与工作单元共享同一事务上下文
//
// T 是否租户隔离在构造时通过一次 TenantOwned 类型断言确定，
// 查询热路径上不做任何运行时类型检查
type Repository[T any] struct {
	u            *UnitOfWork
	tenantScoped bool
}

// newRepository 构造仓储，仅由 UnitOfWork.Of 调用
func newRepository[T any](u *UnitOfWork) *Repository[T] {
	var probe *T
	if _, ok := any(probe).(common.Entity); !ok {
		panic(fmt.Sprintf("repository: %T does not embed common.Model", probe))
	}
	_, tenantScoped := any(probe).(common.TenantOwned)
	return &Repository[T]{u: u, tenantScoped: tenantScoped}
}

// TenantScoped T 是否为租户隔离类型
func (r *Repository[T]) TenantScoped() bool {
	return r.tenantScoped
}

// validateTenantID 校验租户ID格式，非法输入快速失败而不是退化为无租户查询
func validateTenantID(tenantID string) error {
	if _, err := uuid.Parse(tenantID); err != nil {
		return common.NewValidationError("tenantId", "must be a valid UUID")
	}
	return nil
}

// base 构建基础查询：软删除过滤始终生效
func (r *Repository[T]) base(ctx context.Context) *gorm.DB {
	var model T
	return r.u.conn().WithContext(ctx).Model(&model).Where("deleted_at IS NULL")
}

// baseForTenant 在基础查询上叠加租户过滤
// T 非租户隔离时租户参数被忽略，行为与无租户版本一致（既定策略，非静默缺陷）
func (r *Repository[T]) baseForTenant(ctx context.Context, tenantID string) (*gorm.DB, error) {
	if err := validateTenantID(tenantID); err != nil {
		return nil, err
	}
	q := r.base(ctx)
	if r.tenantScoped {
		q = q.Where("tenant_id = ?", tenantID)
	}
	return q, nil
}

// ============================================================================
// 读路径：软删除记录对所有读操作不可见
// ============================================================================

// GetByID 按主键查询，未命中时返回 (nil, nil)，不存在不是错误
func (r *Repository[T]) GetByID(ctx context.Context, id string) (*T, error) {
	return r.firstWhere(r.base(ctx), id)
}

// GetByIDForTenant 按主键查询并限定租户
func (r *Repository[T]) GetByIDForTenant(ctx context.Context, id, tenantID string) (*T, error) {
	q, err := r.baseForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return r.firstWhere(q, id)
}

func (r *Repository[T]) firstWhere(q *gorm.DB, id string) (*T, error) {
	var out T
	res := q.Where("id = ?", id).Limit(1).Find(&out)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &out, nil
}

// GetAll 查询全部未删除记录
func (r *Repository[T]) GetAll(ctx context.Context) ([]T, error) {
	var out []T
	if err := r.base(ctx).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// GetAllForTenant 查询指定租户的全部未删除记录
func (r *Repository[T]) GetAllForTenant(ctx context.Context, tenantID string) ([]T, error) {
	q, err := r.baseForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Find 按条件查询，调用方条件与基础过滤按 AND 组合，无法绕过软删除过滤
func (r *Repository[T]) Find(ctx context.Context, scopes ...common.Scope) ([]T, error) {
	var out []T
	if err := applyScopes(r.base(ctx), scopes).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// FindForTenant 按条件查询并限定租户
func (r *Repository[T]) FindForTenant(ctx context.Context, tenantID string, scopes ...common.Scope) ([]T, error) {
	q, err := r.baseForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := applyScopes(q, scopes).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Exists 检查是否存在满足条件的记录
func (r *Repository[T]) Exists(ctx context.Context, scopes ...common.Scope) (bool, error) {
	count, err := r.Count(ctx, scopes...)
	return count > 0, err
}

// ExistsForTenant 检查指定租户内是否存在满足条件的记录
func (r *Repository[T]) ExistsForTenant(ctx context.Context, tenantID string, scopes ...common.Scope) (bool, error) {
	count, err := r.CountForTenant(ctx, tenantID, scopes...)
	return count > 0, err
}

// Count 统计满足条件的记录数
func (r *Repository[T]) Count(ctx context.Context, scopes ...common.Scope) (int64, error) {
	var count int64
	err := applyScopes(r.base(ctx), scopes).Count(&count).Error
	return count, err
}

// CountForTenant 统计指定租户内满足条件的记录数
func (r *Repository[T]) CountForTenant(ctx context.Context, tenantID string, scopes ...common.Scope) (int64, error) {
	q, err := r.baseForTenant(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	var count int64
	err = applyScopes(q, scopes).Count(&count).Error
	return count, err
}

// Query 返回已应用软删除过滤的可组合查询句柄
func (r *Repository[T]) Query(ctx context.Context) *gorm.DB {
	return r.base(ctx)
}

// QueryForTenant 返回已应用软删除与租户过滤的查询句柄
func (r *Repository[T]) QueryForTenant(ctx context.Context, tenantID string) (*gorm.DB, error) {
	return r.baseForTenant(ctx, tenantID)
}

// QueryWithIncludes 在查询句柄上叠加关联预加载
func (r *Repository[T]) QueryWithIncludes(ctx context.Context, includes ...string) *gorm.DB {
	q := r.base(ctx)
	for _, include := range includes {
		q = q.Preload(include)
	}
	return q
}

// ============================================================================
// 写路径：变更进入工作单元队列，SaveChanges 时统一生效
// ============================================================================

// Add 排队一条新增，记录创建时间但不分配主键（主键由存储层在写入时生成）
func (r *Repository[T]) Add(entity *T) *T {
	ent := any(entity).(common.Entity)
	ent.StampCreated(time.Now().UTC())
	r.u.enqueue(changeInsert, entity)
	return entity
}

// Update 排队一条更新，记录更新时间与操作人（缺省为 System 哨兵值）
func (r *Repository[T]) Update(entity *T, updatedBy string) *T {
	ent := any(entity).(common.Entity)
	ent.StampUpdated(time.Now().UTC(), updatedBy)
	r.u.enqueue(changeSave, entity)
	return entity
}

// Delete 逻辑删除：置软删除标记后走更新路径，记录保留在存储中
func (r *Repository[T]) Delete(entity *T, deletedBy string) {
	ent := any(entity).(common.Entity)
	ent.MarkDeleted(deletedBy)
	r.Update(entity, deletedBy)
}

// applyScopes 依次叠加查询条件，gorm 的链式 Where 按 AND 组合
func applyScopes(q *gorm.DB, scopes []common.Scope) *gorm.DB {
	for _, scope := range scopes {
		q = scope(q)
	}
	return q
}
