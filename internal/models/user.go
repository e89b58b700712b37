package models

import (
	"time"
)

type User struct {
	ID                  uint64     `gorm:"primarykey" json:"id"`
	Name                string     `gorm:"type:varchar(255);not null" json:"name"`
	Email               string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash        string     `gorm:"type:varchar(255);not null" json:"-"`
	Role                Role       `gorm:"type:varchar(20);not null;default:'admin'" json:"role"`
	Active              bool       `gorm:"not null;default:true" json:"active"`
	ParentID            *uint64    `gorm:"index" json:"parent_id"`
	BranchID            *uint64    `gorm:"index" json:"branch_id"`
	// TenantID is the parent the user belongs to even while unplaced. Nil for admins.
	TenantID            *uint64    `gorm:"index" json:"tenant_id"`
	ResetPasswordToken  *string    `gorm:"type:varchar(64);index" json:"-"`
	ResetPasswordExpire *time.Time `json:"-"`
	Version             uint64     `gorm:"not null;default:0" json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Placed reports whether the user belongs to a parent or a branch.
func (u *User) Placed() bool {
	return u.ParentID != nil || u.BranchID != nil
}

// ClearResetToken drops any issued password reset secret.
func (u *User) ClearResetToken() {
	u.ResetPasswordToken = nil
	u.ResetPasswordExpire = nil
}
