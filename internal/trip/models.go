package trip

import (
	"time"

	"backend/internal/common"
)

// 行程状态机：scheduled -> in_progress -> completed，任意非终态可取消
const (
	StatusScheduled  = "scheduled"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// 行程方向
const (
	DirectionPickup  = "pickup"  // 接（家 -> 学校）
	DirectionDropoff = "dropoff" // 送（学校 -> 家）
)

// 乘客状态
const (
	PassengerStatusBooked     = "booked"
	PassengerStatusBoarded    = "boarded"
	PassengerStatusDroppedOff = "dropped_off"
	PassengerStatusNoShow     = "no_show"
)

// Trip 一次班次行程
type Trip struct {
	common.TenantModel
	RouteName   string     `json:"routeName" gorm:"size:255;not null"`
	Direction   string     `json:"direction" gorm:"size:20;not null"`
	Status      string     `json:"status" gorm:"size:50;not null;default:scheduled;index"`
	ScheduledAt time.Time  `json:"scheduledAt" gorm:"not null;index"`
	StartedAt   *time.Time `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt"`

	// 排班信息，创建后可改派
	DriverID  string `json:"driverId" gorm:"type:uuid;index"`
	VehicleID string `json:"vehicleId" gorm:"type:uuid;index"`

	Passengers []TripPassenger `json:"passengers,omitempty" gorm:"foreignKey:TripID"`
}

// TripPassenger 行程中的一名学生乘客
type TripPassenger struct {
	common.TenantModel
	TripID     string `json:"tripId" gorm:"type:uuid;not null;index"`
	StudentID  string `json:"studentId" gorm:"type:uuid;not null;index"`
	PickupStop string `json:"pickupStop" gorm:"size:500"`
	Status     string `json:"status" gorm:"size:50;not null;default:booked"`
}
