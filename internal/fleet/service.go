package fleet

import (
	"context"
	"errors"
	"time"

	"backend/internal/common"
	"backend/internal/repository"

	"gorm.io/gorm"
)

var (
	ErrDriverNotFound     = errors.New("司机不存在")
	ErrVehicleNotFound    = errors.New("车辆不存在")
	ErrLicenseExpired     = errors.New("司机驾照已过期或未登记")
	ErrVehicleUnavailable = errors.New("车辆当前不可排班")
)

// Service 车队服务：司机与车辆档案，及排班前的资格校验
type Service struct {
	db *gorm.DB
}

// NewService 创建服务
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CreateDriverRequest 创建司机请求
type CreateDriverRequest struct {
	TenantID         string     `json:"tenantId" binding:"required"`
	FirstName        string     `json:"firstName" binding:"required"`
	LastName         string     `json:"lastName" binding:"required"`
	Phone            string     `json:"phone"`
	Email            string     `json:"email"`
	LicenseNumber    string     `json:"licenseNumber" binding:"required"`
	LicenseClass     string     `json:"licenseClass"`
	LicenseExpiresAt *time.Time `json:"licenseExpiresAt"`
}

// CreateDriver 创建司机档案
func (s *Service) CreateDriver(ctx context.Context, req *CreateDriverRequest) (*Driver, error) {
	uow := repository.NewUnitOfWork(s.db)
	defer uow.Close()

	driver := &Driver{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Phone:            req.Phone,
		Email:            req.Email,
		Status:           DriverStatusActive,
		LicenseNumber:    req.LicenseNumber,
		LicenseClass:     req.LicenseClass,
		LicenseExpiresAt: req.LicenseExpiresAt,
	}
	driver.TenantID = req.TenantID

	repository.Of[Driver](uow).Add(driver)
	if _, err := uow.SaveChanges(ctx); err != nil {
		return nil, err
	}
	return driver, nil
}

// GetDriver 按主键获取司机，限定租户
func (s *Service) GetDriver(ctx context.Context, id, tenantID string) (*Driver, error) {
	uow := repository.NewUnitOfWork(s.db)
	defer uow.Close()

	driver, err := repository.Of[Driver](uow).GetByIDForTenant(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	if driver == nil {
		return nil, ErrDriverNotFound
	}
	return driver, nil
}

// ListDrivers 列出租户内的司机
func (s *Service) ListDrivers(ctx context.Context, tenantID, status string) ([]Driver, error) {
	uow := repository.NewUnitOfWork(s.db)
	defer uow.Close()

	scopes := []common.Scope{}
	if status != "" {
		scopes = append(scopes, common.ByStatus(status))
	}
	return repository.Of[Driver](uow).FindForTenant(ctx, tenantID, scopes...)
}

// VerifyDriverAssignable 校验司机可被排班：状态正常且驾照在行程时刻有效
func (s *Service) VerifyDriverAssignable(ctx context.Context, driverID, tenantID string, at time.Time) (*Driver, error) {
	driver, err := s.GetDriver(ctx, driverID, tenantID)
	if err != nil {
		return nil, err
	}
	if driver.Status != DriverStatusActive || !driver.LicenseValidAt(at) {
		return nil, ErrLicenseExpired
	}
	return driver, nil
}

// CreateVehicleRequest 创建车辆请求
type CreateVehicleRequest struct {
	TenantID    string `json:"tenantId" binding:"required"`
	PlateNumber string `json:"plateNumber" binding:"required"`
	Make        string `json:"make"`
	ModelName   string `json:"modelName"`
	Year        int    `json:"year"`
	Capacity    int    `json:"capacity" binding:"required,min=1"`
}

// CreateVehicle 创建车辆档案
func (s *Service) CreateVehicle(ctx context.Context, req *CreateVehicleRequest) (*Vehicle, error) {
	uow := repository.NewUnitOfWork(s.db)
	defer uow.Close()

	vehicle := &Vehicle{
		PlateNumber: req.PlateNumber,
		Make:        req.Make,
		ModelName:   req.ModelName,
		Year:        req.Year,
		Capacity:    req.Capacity,
		Status:      VehicleStatusAvailable,
	}
	vehicle.TenantID = req.TenantID

	repository.Of[Vehicle](uow).Add(vehicle)
	if _, err := uow.SaveChanges(ctx); err != nil {
		return nil, err
	}
	return vehicle, nil
}

// GetVehicle 按主键获取车辆，限定租户
func (s *Service) GetVehicle(ctx context.Context, id, tenantID string) (*Vehicle, error) {
	uow := repository.NewUnitOfWork(s.db)
	defer uow.Close()

	vehicle, err := repository.Of[Vehicle](uow).GetByIDForTenant(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	if vehicle == nil {
		return nil, ErrVehicleNotFound
	}
	return vehicle, nil
}

// ListVehicles 列出租户内的车辆
func (s *Service) ListVehicles(ctx context.Context, tenantID, status string) ([]Vehicle, error) {
	uow := repository.NewUnitOfWork(s.db)
	defer uow.Close()

	scopes := []common.Scope{}
	if status != "" {
		scopes = append(scopes, common.ByStatus(status))
	}
	return repository.Of[Vehicle](uow).FindForTenant(ctx, tenantID, scopes...)
}

// VerifyVehicleAssignable 校验车辆可被排班
func (s *Service) VerifyVehicleAssignable(ctx context.Context, vehicleID, tenantID string) (*Vehicle, error) {
	vehicle, err := s.GetVehicle(ctx, vehicleID, tenantID)
	if err != nil {
		return nil, err
	}
	if !vehicle.Assignable() {
		return nil, ErrVehicleUnavailable
	}
	return vehicle, nil
}

// SetVehicleStatus 更新车辆状态
func (s *Service) SetVehicleStatus(ctx context.Context, id, tenantID, status, updatedBy string) error {
	uow := repository.NewUnitOfWork(s.db)
	defer uow.Close()
	repo := repository.Of[Vehicle](uow)

	vehicle, err := repo.GetByIDForTenant(ctx, id, tenantID)
	if err != nil {
		return err
	}
	if vehicle == nil {
		return ErrVehicleNotFound
	}

	vehicle.Status = status
	repo.Update(vehicle, updatedBy)
	_, err = uow.SaveChanges(ctx)
	return err
}
