package trip

import (
	"context"
	"testing"
	"time"

	"backend/internal/fleet"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testTenant = uuid.NewString()

func setupTripService(t *testing.T) (*Service, *fleet.Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Trip{}, &TripPassenger{}, &fleet.Driver{}, &fleet.Vehicle{}))

	fleetService := fleet.NewService(db)
	return NewService(db, fleetService), fleetService, db
}

func seedDriver(t *testing.T, fs *fleet.Service, licenseExpiry time.Time) *fleet.Driver {
	t.Helper()

	driver, err := fs.CreateDriver(context.Background(), &fleet.CreateDriverRequest{
		TenantID:         testTenant,
		FirstName:        "伟",
		LastName:         "张",
		LicenseNumber:    "D-1001",
		LicenseExpiresAt: &licenseExpiry,
	})
	require.NoError(t, err)
	return driver
}

func seedVehicle(t *testing.T, fs *fleet.Service, capacity int) *fleet.Vehicle {
	t.Helper()

	vehicle, err := fs.CreateVehicle(context.Background(), &fleet.CreateVehicleRequest{
		TenantID:    testTenant,
		PlateNumber: "京A-12345",
		Capacity:    capacity,
	})
	require.NoError(t, err)
	return vehicle
}

func morningRun(passengers int) *CreateRequest {
	req := &CreateRequest{
		TenantID:    testTenant,
		RouteName:   "城东线早班",
		Direction:   DirectionPickup,
		ScheduledAt: time.Now().Add(24 * time.Hour),
	}
	for i := 0; i < passengers; i++ {
		req.Passengers = append(req.Passengers, PassengerRequest{StudentID: uuid.NewString()})
	}
	return req
}

func TestCreateTripWithPassengers(t *testing.T) {
	svc, _, db := setupTripService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, morningRun(3), "System")
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, StatusScheduled, created.Status)
	assert.Len(t, created.Passengers, 3)

	// 乘客与行程在同一事务中落库
	var count int64
	require.NoError(t, db.Model(&TripPassenger{}).Where("trip_id = ?", created.ID).Count(&count).Error)
	assert.EqualValues(t, 3, count)

	got, err := svc.Get(ctx, created.ID, testTenant)
	require.NoError(t, err)
	assert.Len(t, got.Passengers, 3)
	assert.Equal(t, PassengerStatusBooked, got.Passengers[0].Status)
}

func TestCreateTripRequiresPassengers(t *testing.T) {
	svc, _, _ := setupTripService(t)

	_, err := svc.Create(context.Background(), morningRun(0), "System")
	assert.ErrorIs(t, err, ErrNoPassengers)
}

func TestCreateTripChecksCapacity(t *testing.T) {
	svc, fs, _ := setupTripService(t)
	vehicle := seedVehicle(t, fs, 2)

	req := morningRun(3)
	req.VehicleID = vehicle.ID
	_, err := svc.Create(context.Background(), req, "System")
	assert.ErrorIs(t, err, ErrOverCapacity)
}

func TestCreateTripChecksDriverLicense(t *testing.T) {
	svc, fs, _ := setupTripService(t)
	ctx := context.Background()

	// 驾照在行程时刻已过期
	expired := seedDriver(t, fs, time.Now().Add(time.Hour))
	req := morningRun(1)
	req.DriverID = expired.ID
	_, err := svc.Create(ctx, req, "System")
	assert.ErrorIs(t, err, fleet.ErrLicenseExpired)
}

func TestAssignDriverAndVehicle(t *testing.T) {
	svc, fs, _ := setupTripService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, morningRun(1), "System")
	require.NoError(t, err)

	driver := seedDriver(t, fs, time.Now().Add(365*24*time.Hour))
	vehicle := seedVehicle(t, fs, 20)

	updated, err := svc.Assign(ctx, created.ID, testTenant, driver.ID, vehicle.ID, "dispatcher")
	require.NoError(t, err)
	assert.Equal(t, driver.ID, updated.DriverID)
	assert.Equal(t, vehicle.ID, updated.VehicleID)
}

func TestAssignRejectsUnavailableVehicle(t *testing.T) {
	svc, fs, _ := setupTripService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, morningRun(1), "System")
	require.NoError(t, err)

	vehicle := seedVehicle(t, fs, 20)
	require.NoError(t, fs.SetVehicleStatus(ctx, vehicle.ID, testTenant, fleet.VehicleStatusMaintenance, "System"))

	_, err = svc.Assign(ctx, created.ID, testTenant, "", vehicle.ID, "dispatcher")
	assert.ErrorIs(t, err, fleet.ErrVehicleUnavailable)
}

func TestTripLifecycle(t *testing.T) {
	svc, _, _ := setupTripService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, morningRun(1), "System")
	require.NoError(t, err)

	// 未开始不能完成
	_, err = svc.Complete(ctx, created.ID, testTenant, "driver")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	started, err := svc.Start(ctx, created.ID, testTenant, "driver")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, started.Status)
	assert.NotNil(t, started.StartedAt)

	// 不能重复开始
	_, err = svc.Start(ctx, created.ID, testTenant, "driver")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	completed, err := svc.Complete(ctx, created.ID, testTenant, "driver")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)

	// 终态不可取消
	_, err = svc.Cancel(ctx, created.ID, testTenant, "dispatcher")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTripTenantIsolation(t *testing.T) {
	svc, _, _ := setupTripService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, morningRun(1), "System")
	require.NoError(t, err)

	_, err = svc.Get(ctx, created.ID, uuid.NewString())
	assert.ErrorIs(t, err, ErrTripNotFound)
}

func TestListTripsByStatus(t *testing.T) {
	svc, _, _ := setupTripService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, morningRun(1), "System")
	require.NoError(t, err)
	_, err = svc.Create(ctx, morningRun(1), "System")
	require.NoError(t, err)
	_, err = svc.Start(ctx, first.ID, testTenant, "driver")
	require.NoError(t, err)

	scheduled, total, err := svc.List(ctx, testTenant, StatusScheduled, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, scheduled, 1)

	all, total, err := svc.List(ctx, testTenant, "", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, all, 2)
}

func TestMarkPassenger(t *testing.T) {
	svc, _, _ := setupTripService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, morningRun(1), "System")
	require.NoError(t, err)
	passengerID := created.Passengers[0].ID

	require.NoError(t, svc.MarkPassenger(ctx, passengerID, testTenant, PassengerStatusBoarded, "driver"))

	got, err := svc.Get(ctx, created.ID, testTenant)
	require.NoError(t, err)
	assert.Equal(t, PassengerStatusBoarded, got.Passengers[0].Status)
}
