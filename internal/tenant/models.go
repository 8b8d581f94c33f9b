package tenant

import (
	"time"

	"backend/internal/common"
)

// Tenant represents an isolated customer organization (a school district or
// transport operator). All tenant-owned data references TenantID to ensure
// proper isolation.
type Tenant struct {
	common.Model
	Name   string `json:"name" gorm:"size:255;not null"`
	Slug   string `json:"slug" gorm:"size:100;uniqueIndex;not null"`
	Status string `json:"status" gorm:"size:50;not null;default:active"`

	// 联系信息
	ContactEmail  string `json:"contactEmail" gorm:"size:255"`
	ContactPhone  string `json:"contactPhone" gorm:"size:50"`
	ContactPerson string `json:"contactPerson" gorm:"size:100"`

	// 套餐信息
	Tier               string     `json:"tier" gorm:"size:50;not null;default:standard"`
	SubscriptionEndsAt *time.Time `json:"subscriptionEndsAt"`

	// 地区信息
	Timezone string `json:"timezone" gorm:"size:50;default:UTC"`
	Country  string `json:"country" gorm:"size:100"`
}
