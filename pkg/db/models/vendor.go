package models

import (
	"time"

	"github.com/google/uuid"
)

// Vendor is a campus outlet (canteen, laundry, print shop) that receives orders.
type Vendor struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerUserID *uuid.UUID `gorm:"column:owner_user_id;type:uuid"`
	Name        string     `gorm:"column:name;not null"`
	Category    string     `gorm:"column:category;not null"`
	Phone       *string    `gorm:"column:phone"`
	Email       *string    `gorm:"column:email"`
	IsActive    bool       `gorm:"column:is_active;not null"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Vendor) TableName() string { return "vendors" }
