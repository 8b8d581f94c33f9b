package student

import (
	"time"

	"backend/internal/common"
)

// 学生状态
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Student 学生档案，含监护人联系方式与接送地址
type Student struct {
	common.TenantModel
	FirstName   string     `json:"firstName" gorm:"size:100;not null"`
	LastName    string     `json:"lastName" gorm:"size:100;not null"`
	DateOfBirth *time.Time `json:"dateOfBirth"`
	Grade       string     `json:"grade" gorm:"size:20"`
	SchoolName  string     `json:"schoolName" gorm:"size:255"`
	Status      string     `json:"status" gorm:"size:50;not null;default:active;index"`

	// 监护人信息
	GuardianName  string `json:"guardianName" gorm:"size:200"`
	GuardianPhone string `json:"guardianPhone" gorm:"size:50"`
	GuardianEmail string `json:"guardianEmail" gorm:"size:255"`

	// 接送地址
	PickupAddress  string `json:"pickupAddress" gorm:"size:500"`
	DropoffAddress string `json:"dropoffAddress" gorm:"size:500"`

	// 特殊需求说明（过敏、轮椅等），司机端可见
	SpecialNeeds string `json:"specialNeeds" gorm:"type:text"`
}
