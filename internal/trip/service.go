package trip

import (
	"context"
	"errors"
	"time"

	"backend/internal/common"
	"backend/internal/fleet"
	"backend/internal/repository"

	"gorm.io/gorm"
)

var (
	ErrTripNotFound      = errors.New("行程不存在")
	ErrInvalidTransition = errors.New("行程状态不允许该操作")
	ErrOverCapacity      = errors.New("乘客数超出车辆容量")
	ErrNoPassengers      = errors.New("行程至少需要一名乘客")
)

// Service 行程服务
// 创建行程与乘客名单在同一事务内生效，不会出现有行程无乘客的中间状态
type Service struct {
	db    *gorm.DB
	fleet *fleet.Service
}

// NewService 创建服务
func NewService(db *gorm.DB, fleetService *fleet.Service) *Service {
	return &Service{db: db, fleet: fleetService}
}

// PassengerRequest 行程乘客
type PassengerRequest struct {
	StudentID  string `json:"studentId" binding:"required"`
	PickupStop string `json:"pickupStop"`
}

// CreateRequest 创建行程请求
type CreateRequest struct {
	TenantID    string             `json:"tenantId" binding:"required"`
	RouteName   string             `json:"routeName" binding:"required"`
	Direction   string             `json:"direction" binding:"required"`
	ScheduledAt time.Time          `json:"scheduledAt" binding:"required"`
	DriverID    string             `json:"driverId"`
	VehicleID   string             `json:"vehicleId"`
	Passengers  []PassengerRequest `json:"passengers" binding:"required"`
}

// Create 创建行程及乘客名单
// 排班信息可选；提供时先校验司机驾照与车辆状态再入库
func (s *Service) Create(ctx context.Context, req *CreateRequest, createdBy string) (*Trip, error) {
	if len(req.Passengers) == 0 {
		return nil, ErrNoPassengers
	}

	if req.DriverID != "" {
		if _, err := s.fleet.VerifyDriverAssignable(ctx, req.DriverID, req.TenantID, req.ScheduledAt); err != nil {
			return nil, err
		}
	}
	if req.VehicleID != "" {
		vehicle, err := s.fleet.VerifyVehicleAssignable(ctx, req.VehicleID, req.TenantID)
		if err != nil {
			return nil, err
		}
		if len(req.Passengers) > vehicle.Capacity {
			return nil, ErrOverCapacity
		}
	}

	uow := repository.NewUnitOfWork(s.db)
	defer uow.Close()

	if err := uow.BeginTransaction(); err != nil {
		return nil, err
	}

	t := &Trip{
		RouteName:   req.RouteName,
		Direction:   req.Direction,
		Status:      StatusScheduled,
		ScheduledAt: req.ScheduledAt,
		DriverID:    req.DriverID,
		VehicleID:   req.VehicleID,
	}
	t.TenantID = req.TenantID
	t.UpdatedBy = createdBy

	// 先落行程拿到主键，再挂乘客，两步同属一个事务
	repository.Of[Trip](uow).Add(t)
	if _, err := uow.SaveChanges(ctx); err != nil {
		return nil, err
	}

	passengerRepo := repository.Of[TripPassenger](uow)
	passengers := make([]*TripPassenger, 0, len(req.Passengers))
	for _, p := range req.Passengers {
		passenger := &TripPassenger{
			TripID:     t.ID,
			StudentID:  p.StudentID,
			PickupStop: p.PickupStop,
			Status:     PassengerStatusBooked,
		}
		passenger.TenantID = req.TenantID
		passengerRepo.Add(passenger)
		passengers = append(passengers, passenger)
	}
	if _, err := uow.SaveChanges(ctx); err != nil {
		return nil, err
	}
	for _, p := range passengers {
		t.Passengers = append(t.Passengers, *p)
	}

	if err := uow.CommitTransaction(); err != nil {
		return nil, err
	}
	return t, nil
}

// Get 按主键获取行程及乘客名单，限定租户
func (s *Service) Get(ctx context.Context, id, tenantID string) (*Trip, error) {
	uow := repository.NewUnitOfWork(s.db)
	defer uow.Close()
	repo := repository.Of[Trip](uow)

	t, err := repo.GetByIDForTenant(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTripNotFound
	}

	passengers, err := repository.Of[TripPassenger](uow).FindForTenant(ctx, tenantID,
		func(db *gorm.DB) *gorm.DB { return db.Where("trip_id = ?", t.ID) })
	if err != nil {
		return nil, err
	}
	t.Passengers = passengers
	return t, nil
}

// List 分页列出租户内的行程
func (s *Service) List(ctx context.Context, tenantID, status string, page *common.PaginationRequest) ([]Trip, int64, error) {
	uow := repository.NewUnitOfWork(s.db)
	defer uow.Close()
	repo := repository.Of[Trip](uow)

	scopes := []common.Scope{}
	if status != "" {
		scopes = append(scopes, common.ByStatus(status))
	}

	total, err := repo.CountForTenant(ctx, tenantID, scopes...)
	if err != nil {
		return nil, 0, err
	}

	scopes = append(scopes, common.SortBy("scheduled_at", "desc", []string{"scheduled_at", "created_at"}))
	if page != nil {
		scopes = append(scopes, common.Paginate(page.Page, page.GetPageSize()))
	}
	trips, err := repo.FindForTenant(ctx, tenantID, scopes...)
	if err != nil {
		return nil, 0, err
	}
	return trips, total, nil
}

// Assign 改派司机与车辆，仅允许在行程开始前
func (s *Service) Assign(ctx context.Context, id, tenantID, driverID, vehicleID, updatedBy string) (*Trip, error) {
	uow := repository.NewUnitOfWork(s.db)
	defer uow.Close()
	repo := repository.Of[Trip](uow)

	t, err := repo.GetByIDForTenant(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTripNotFound
	}
	if t.Status != StatusScheduled {
		return nil, ErrInvalidTransition
	}

	if driverID != "" {
		if _, err := s.fleet.VerifyDriverAssignable(ctx, driverID, tenantID, t.ScheduledAt); err != nil {
			return nil, err
		}
		t.DriverID = driverID
	}
	if vehicleID != "" {
		if _, err := s.fleet.VerifyVehicleAssignable(ctx, vehicleID, tenantID); err != nil {
			return nil, err
		}
		t.VehicleID = vehicleID
	}

	repo.Update(t, updatedBy)
	if _, err := uow.SaveChanges(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

// Start 开始行程：scheduled -> in_progress
func (s *Service) Start(ctx context.Context, id, tenantID, updatedBy string) (*Trip, error) {
	return s.transition(ctx, id, tenantID, updatedBy, StatusScheduled, StatusInProgress, func(t *Trip, now time.Time) {
		t.StartedAt = &now
	})
}

// Complete 完成行程：in_progress -> completed
func (s *Service) Complete(ctx context.Context, id, tenantID, updatedBy string) (*Trip, error) {
	return s.transition(ctx, id, tenantID, updatedBy, StatusInProgress, StatusCompleted, func(t *Trip, now time.Time) {
		t.CompletedAt = &now
	})
}

// Cancel 取消行程，终态行程不可取消
func (s *Service) Cancel(ctx context.Context, id, tenantID, updatedBy string) (*Trip, error) {
	uow := repository.NewUnitOfWork(s.db)
	defer uow.Close()
	repo := repository.Of[Trip](uow)

	t, err := repo.GetByIDForTenant(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTripNotFound
	}
	if t.Status == StatusCompleted || t.Status == StatusCancelled {
		return nil, ErrInvalidTransition
	}

	t.Status = StatusCancelled
	repo.Update(t, updatedBy)
	if _, err := uow.SaveChanges(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

// transition 执行一次状态迁移
func (s *Service) transition(ctx context.Context, id, tenantID, updatedBy, from, to string, stamp func(*Trip, time.Time)) (*Trip, error) {
	uow := repository.NewUnitOfWork(s.db)
	defer uow.Close()
	repo := repository.Of[Trip](uow)

	t, err := repo.GetByIDForTenant(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTripNotFound
	}
	if t.Status != from {
		return nil, ErrInvalidTransition
	}

	t.Status = to
	stamp(t, time.Now().UTC())
	repo.Update(t, updatedBy)
	if _, err := uow.SaveChanges(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

// MarkPassenger 更新乘客状态（上车、下车、未出现）
func (s *Service) MarkPassenger(ctx context.Context, passengerID, tenantID, status, updatedBy string) error {
	uow := repository.NewUnitOfWork(s.db)
	defer uow.Close()
	repo := repository.Of[TripPassenger](uow)

	passenger, err := repo.GetByIDForTenant(ctx, passengerID, tenantID)
	if err != nil {
		return err
	}
	if passenger == nil {
		return ErrTripNotFound
	}

	passenger.Status = status
	repo.Update(passenger, updatedBy)
	_, err = uow.SaveChanges(ctx)
	return err
}
