package fleet

import (
	"time"

	"backend/internal/common"
)

// 司机状态
const (
	DriverStatusActive    = "active"
	DriverStatusSuspended = "suspended"
	DriverStatusInactive  = "inactive"
)

// 车辆状态
const (
	VehicleStatusAvailable   = "available"
	VehicleStatusInService   = "in_service"
	VehicleStatusMaintenance = "maintenance"
	VehicleStatusRetired     = "retired"
)

// Driver 司机档案
type Driver struct {
	common.TenantModel
	FirstName string `json:"firstName" gorm:"size:100;not null"`
	LastName  string `json:"lastName" gorm:"size:100;not null"`
	Phone     string `json:"phone" gorm:"size:50"`
	Email     string `json:"email" gorm:"size:255"`
	Status    string `json:"status" gorm:"size:50;not null;default:active;index"`

	// 驾照信息，排班前校验有效期
	LicenseNumber    string     `json:"licenseNumber" gorm:"size:100;not null"`
	LicenseClass     string     `json:"licenseClass" gorm:"size:20"`
	LicenseExpiresAt *time.Time `json:"licenseExpiresAt"`
}

// FullName 司机姓名
func (d *Driver) FullName() string {
	return d.FirstName + " " + d.LastName
}

// LicenseValidAt 驾照在给定时刻是否有效
// 未登记有效期按无效处理，排班必须先补齐驾照信息
func (d *Driver) LicenseValidAt(at time.Time) bool {
	return d.LicenseExpiresAt != nil && d.LicenseExpiresAt.After(at)
}

// Vehicle 车辆档案
type Vehicle struct {
	common.TenantModel
	PlateNumber string `json:"plateNumber" gorm:"size:50;not null;index"`
	Make        string `json:"make" gorm:"size:100"`
	ModelName   string `json:"modelName" gorm:"size:100"`
	Year        int    `json:"year"`
	Capacity    int    `json:"capacity" gorm:"not null"` // 含司机外的座位数
	Status      string `json:"status" gorm:"size:50;not null;default:available;index"`
}

// Assignable 车辆当前是否可排班
func (v *Vehicle) Assignable() bool {
	return v.Status == VehicleStatusAvailable
}
