package course

import (
	"time"

	"lms/models"

	"gorm.io/gorm"
)

// Enrollment statuses
const (
	EnrollmentActive    = "ACTIVE"
	EnrollmentCompleted = "COMPLETED"
	EnrollmentExpired   = "EXPIRED"
)

// Enrollment tracks a user's purchased access to a course. The (user, course)
// pair is unique; fulfilment paths use get-or-create so a retried order never
// enrolls twice.
type Enrollment struct {
	gorm.Model
	UserID         uint         `json:"user_id" gorm:"index;not null;uniqueIndex:idx_user_course"`
	CourseID       uint         `json:"course_id" gorm:"index;not null;uniqueIndex:idx_user_course"`
	PricePaid      models.Money `gorm:"not null;default:0" json:"price_paid"`
	DiscountID     *uint        `json:"discount_id"`
	Status         string       `json:"status" gorm:"default:'ACTIVE'"`
	CompletionDate *time.Time   `json:"completion_date"`
	IsDeleted      bool         `gorm:"default:false" json:"-"`

	User   models.User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Course Course      `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
}
