package models

import "time"

type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RoleChef   UserRole = "chef"
	RoleViewer UserRole = "viewer"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleChef, RoleViewer:
		return true
	}
	return false
}

type User struct {
	ID           uint       `gorm:"primaryKey"`
	Username     string     `gorm:"size:50;uniqueIndex;not null"`
	Email        *string    `gorm:"size:100"`
	Name         string     `gorm:"size:100"`
	PasswordHash string     `gorm:"size:255;not null"`
	Role         UserRole   `gorm:"size:20;not null"`
	Active       bool       `gorm:"not null"`
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
