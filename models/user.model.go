package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	ProfileImage    string    `gorm:"default:''" json:"profileImage"`
	Name            string    `gorm:"default:''" json:"name"`
	Email           string    `gorm:"unique;not null" json:"email"`
	Mobile          string    `gorm:"default:''" json:"mobile"`
	Role            string    `gorm:"default:'USER'" json:"role"` // USER, INSTRUCTOR, ADMIN
	Password        string    `gorm:"not null" json:"-"`
	IsEmailVerified bool      `gorm:"default:false" json:"isEmailVerified"`
	LastLogin       time.Time `gorm:"default:NULL" json:"lastLogin"`
	IsDeleted       bool      `gorm:"default:false" json:"-"`
}
