package model

import (
	"time"

	"github.com/google/uuid"
)

// Role enum constants
const (
	RoleEmployee = "employee"
	RoleVendor   = "vendor"
	RoleManager  = "manager"
	RoleAdmin    = "admin"
)

// User represents an account in the system. Users are never hard-deleted:
// admin deletion flips IsActive to false.
type User struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name       string    `gorm:"type:varchar(100);not null" json:"name"`
	Email      string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password   string    `gorm:"type:varchar(255);not null" json:"-"` // bcrypt hash, never serialized
	Role       string    `gorm:"type:varchar(20);not null;default:'employee';index" json:"role"`
	Department string    `gorm:"type:varchar(100)" json:"department"`
	Phone      string    `gorm:"type:varchar(20)" json:"phone"`
	Avatar     string    `gorm:"type:text" json:"avatar"`
	IsActive   bool      `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// RefreshToken stores long-lived tokens allowing users to request new access tokens
type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Token     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"token"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// ValidRole reports whether role is one of the known roles
func ValidRole(role string) bool {
	switch role {
	case RoleEmployee, RoleVendor, RoleManager, RoleAdmin:
		return true
	}
	return false
}
