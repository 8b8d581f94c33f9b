package tenant

import (
	"context"
	"errors"
	"strings"
	"time"

	"backend/internal/repository"

	"gorm.io/gorm"
)

var (
	ErrTenantNotFound = errors.New("租户不存在")
	ErrSlugTaken      = errors.New("租户标识已被占用")
)

// 租户状态
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

// Service 租户管理服务，仅限平台管理员调用
type Service struct {
	db *gorm.DB
}

// NewService 创建服务
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CreateRequest 创建租户请求
type CreateRequest struct {
	Name          string `json:"name" binding:"required"`
	Slug          string `json:"slug" binding:"required"`
	ContactEmail  string `json:"contactEmail"`
	ContactPhone  string `json:"contactPhone"`
	ContactPerson string `json:"contactPerson"`
	Tier          string `json:"tier"`
	Timezone      string `json:"timezone"`
	Country       string `json:"country"`
}

// Create 创建租户，slug 全局唯一
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Tenant, error) {
	uow := repository.NewUnitOfWork(s.db)
	defer uow.Close()
	repo := repository.Of[Tenant](uow)

	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	taken, err := repo.Exists(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("slug = ?", slug)
	})
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrSlugTaken
	}

	t := &Tenant{
		Name:          req.Name,
		Slug:          slug,
		Status:        StatusActive,
		ContactEmail:  req.ContactEmail,
		ContactPhone:  req.ContactPhone,
		ContactPerson: req.ContactPerson,
		Tier:          req.Tier,
		Timezone:      req.Timezone,
		Country:       req.Country,
	}
	if t.Tier == "" {
		t.Tier = "standard"
	}
	if t.Timezone == "" {
		t.Timezone = "UTC"
	}

	repo.Add(t)
	if _, err := uow.SaveChanges(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

// Get 按主键获取租户
func (s *Service) Get(ctx context.Context, id string) (*Tenant, error) {
	uow := repository.NewUnitOfWork(s.db)
	defer uow.Close()

	t, err := repository.Of[Tenant](uow).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTenantNotFound
	}
	return t, nil
}

// GetBySlug 按 slug 获取租户
func (s *Service) GetBySlug(ctx context.Context, slug string) (*Tenant, error) {
	uow := repository.NewUnitOfWork(s.db)
	defer uow.Close()

	matches, err := repository.Of[Tenant](uow).Find(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("slug = ?", strings.ToLower(slug))
	})
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrTenantNotFound
	}
	return &matches[0], nil
}

// SubscriptionActive 租户订阅在给定时刻是否有效
// 未设置到期时间视为长期有效
func (t *Tenant) SubscriptionActive(at time.Time) bool {
	if t.Status != StatusActive {
		return false
	}
	return t.SubscriptionEndsAt == nil || t.SubscriptionEndsAt.After(at)
}

// Suspend 停用租户
func (s *Service) Suspend(ctx context.Context, id, updatedBy string) error {
	uow := repository.NewUnitOfWork(s.db)
	defer uow.Close()
	repo := repository.Of[Tenant](uow)

	t, err := repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if t == nil {
		return ErrTenantNotFound
	}

	t.Status = StatusSuspended
	repo.Update(t, updatedBy)
	_, err = uow.SaveChanges(ctx)
	return err
}
