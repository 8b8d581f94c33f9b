package common

import (
	"fmt"

	"gorm.io/gorm"
)

// Scope 可组合的查询条件，与仓储的基础过滤（软删除/租户）按 AND 叠加
// 使用方法：repo.Find(ctx, common.ByStatus("active"))
type Scope func(db *gorm.DB) *gorm.DB

// NotDeleted 过滤已软删除的记录（默认查询行为）
func NotDeleted() Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("deleted_at IS NULL")
	}
}

// OnlyDeleted 仅查询已软删除的记录（管理工具旁路，核心读路径不使用）
func OnlyDeleted() Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("deleted_at IS NOT NULL")
	}
}

// ByTenant 按租户ID过滤（多租户查询通用Scope）
func ByTenant(tenantID string) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID)
	}
}

// ByStatus 按状态过滤
func ByStatus(status string) Scope {
	return func(db *gorm.DB) *gorm.DB {
		if status == "" {
			return db
		}
		return db.Where("status = ?", status)
	}
}

// Paginate 应用分页条件
func Paginate(page, pageSize int) Scope {
	return func(db *gorm.DB) *gorm.DB {
		if page < 1 {
			page = 1
		}
		if pageSize < 1 {
			pageSize = 20
		}
		if pageSize > 100 {
			pageSize = 100
		}
		return db.Offset((page - 1) * pageSize).Limit(pageSize)
	}
}

// SortBy 应用排序条件，带字段白名单检查
func SortBy(field, order string, allowedFields []string) Scope {
	return func(db *gorm.DB) *gorm.DB {
		if field == "" {
			return db.Order("created_at DESC")
		}
		if len(allowedFields) > 0 {
			allowed := false
			for _, f := range allowedFields {
				if f == field {
					allowed = true
					break
				}
			}
			if !allowed {
				return db.Order("created_at DESC")
			}
		}
		if order != "asc" && order != "desc" {
			order = "desc"
		}
		return db.Order(fmt.Sprintf("%s %s", field, order))
	}
}

// DateBetween 按日期范围过滤
func DateBetween(fieldName string, dateRange *DateRange) Scope {
	return func(db *gorm.DB) *gorm.DB {
		if dateRange == nil {
			return db
		}
		if !dateRange.Start.IsZero() {
			db = db.Where(fmt.Sprintf("%s >= ?", fieldName), dateRange.Start)
		}
		if !dateRange.End.IsZero() {
			db = db.Where(fmt.Sprintf("%s <= ?", fieldName), dateRange.End)
		}
		return db
	}
}
