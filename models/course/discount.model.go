package course

import (
	"time"

	"lms/models"

	"gorm.io/gorm"
)

// Discount is a per-course discount code. CurrentUses never exceeds MaxUses
// when a cap is set; the increment happens under a row lock in the discount
// service.
type Discount struct {
	gorm.Model
	CourseID       uint          `json:"course_id" gorm:"index;not null"`
	Code           string        `gorm:"uniqueIndex;not null" json:"code"`
	Percentage     uint          `gorm:"not null" json:"percentage"` // 1-100
	StartDate      time.Time     `gorm:"not null" json:"start_date"`
	EndDate        time.Time     `gorm:"not null" json:"end_date"`
	IsActive       bool          `gorm:"default:true" json:"is_active"`
	MaxUses        *uint         `json:"max_uses"`
	CurrentUses    uint          `gorm:"default:0" json:"current_uses"`
	MinCoursePrice *models.Money `json:"min_course_price"`

	Course Course `gorm:"foreignKey:CourseID" json:"-"`
}
