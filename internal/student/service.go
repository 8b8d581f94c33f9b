package student

import (
	"context"
	"errors"

	"backend/internal/common"
	"backend/internal/repository"

	"gorm.io/gorm"
)

var ErrStudentNotFound = errors.New("学生不存在")

// Service 学生档案服务
type Service struct {
	db *gorm.DB
}

// NewService 创建服务
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CreateRequest 创建学生请求
type CreateRequest struct {
	TenantID       string `json:"tenantId" binding:"required"`
	FirstName      string `json:"firstName" binding:"required"`
	LastName       string `json:"lastName" binding:"required"`
	Grade          string `json:"grade"`
	SchoolName     string `json:"schoolName"`
	GuardianName   string `json:"guardianName"`
	GuardianPhone  string `json:"guardianPhone"`
	GuardianEmail  string `json:"guardianEmail"`
	PickupAddress  string `json:"pickupAddress"`
	DropoffAddress string `json:"dropoffAddress"`
	SpecialNeeds   string `json:"specialNeeds"`
}

// Create 创建学生档案
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Student, error) {
	uow := repository.NewUnitOfWork(s.db)
	defer uow.Close()

	student := &Student{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Grade:          req.Grade,
		SchoolName:     req.SchoolName,
		Status:         StatusActive,
		GuardianName:   req.GuardianName,
		GuardianPhone:  req.GuardianPhone,
		GuardianEmail:  req.GuardianEmail,
		PickupAddress:  req.PickupAddress,
		DropoffAddress: req.DropoffAddress,
		SpecialNeeds:   req.SpecialNeeds,
	}
	student.TenantID = req.TenantID

	repository.Of[Student](uow).Add(student)
	if _, err := uow.SaveChanges(ctx); err != nil {
		return nil, err
	}
	return student, nil
}

// Get 按主键获取学生，限定租户
func (s *Service) Get(ctx context.Context, id, tenantID string) (*Student, error) {
	uow := repository.NewUnitOfWork(s.db)
	defer uow.Close()

	student, err := repository.Of[Student](uow).GetByIDForTenant(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, ErrStudentNotFound
	}
	return student, nil
}

// List 分页列出租户内的学生
func (s *Service) List(ctx context.Context, tenantID, status string, page *common.PaginationRequest) ([]Student, int64, error) {
	uow := repository.NewUnitOfWork(s.db)
	defer uow.Close()
	repo := repository.Of[Student](uow)

	scopes := []common.Scope{}
	if status != "" {
		scopes = append(scopes, common.ByStatus(status))
	}

	total, err := repo.CountForTenant(ctx, tenantID, scopes...)
	if err != nil {
		return nil, 0, err
	}

	if page != nil {
		scopes = append(scopes, common.Paginate(page.Page, page.GetPageSize()))
	}
	students, err := repo.FindForTenant(ctx, tenantID, scopes...)
	if err != nil {
		return nil, 0, err
	}
	return students, total, nil
}

// UpdateRequest 更新学生请求，nil 字段保持不变
type UpdateRequest struct {
	Grade          *string `json:"grade"`
	Status         *string `json:"status"`
	GuardianName   *string `json:"guardianName"`
	GuardianPhone  *string `json:"guardianPhone"`
	GuardianEmail  *string `json:"guardianEmail"`
	PickupAddress  *string `json:"pickupAddress"`
	DropoffAddress *string `json:"dropoffAddress"`
	SpecialNeeds   *string `json:"specialNeeds"`
}

// Update 更新学生档案
func (s *Service) Update(ctx context.Context, id, tenantID string, req *UpdateRequest, updatedBy string) (*Student, error) {
	uow := repository.NewUnitOfWork(s.db)
	defer uow.Close()
	repo := repository.Of[Student](uow)

	student, err := repo.GetByIDForTenant(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, ErrStudentNotFound
	}

	if req.Grade != nil {
		student.Grade = *req.Grade
	}
	if req.Status != nil {
		student.Status = *req.Status
	}
	if req.GuardianName != nil {
		student.GuardianName = *req.GuardianName
	}
	if req.GuardianPhone != nil {
		student.GuardianPhone = *req.GuardianPhone
	}
	if req.GuardianEmail != nil {
		student.GuardianEmail = *req.GuardianEmail
	}
	if req.PickupAddress != nil {
		student.PickupAddress = *req.PickupAddress
	}
	if req.DropoffAddress != nil {
		student.DropoffAddress = *req.DropoffAddress
	}
	if req.SpecialNeeds != nil {
		student.SpecialNeeds = *req.SpecialNeeds
	}

	repo.Update(student, updatedBy)
	if _, err := uow.SaveChanges(ctx); err != nil {
		return nil, err
	}
	return student, nil
}

// Delete 逻辑删除学生档案
func (s *Service) Delete(ctx context.Context, id, tenantID, deletedBy string) error {
	uow := repository.NewUnitOfWork(s.db)
	defer uow.Close()
	repo := repository.Of[Student](uow)

	student, err := repo.GetByIDForTenant(ctx, id, tenantID)
	if err != nil {
		return err
	}
	if student == nil {
		return ErrStudentNotFound
	}

	repo.Delete(student, deletedBy)
	_, err = uow.SaveChanges(ctx)
	return err
}
