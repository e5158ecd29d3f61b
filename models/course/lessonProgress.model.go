package course

import (
	"time"

	"lms/models"

	"gorm.io/gorm"
)

// Lesson progress statuses
const (
	ProgressNotStarted = "NOT_STARTED"
	ProgressInProgress = "IN_PROGRESS"
	ProgressCompleted  = "COMPLETED"
)

// LessonProgress records one user's watch state for one lesson. Durations are
// in minutes, matching Lesson.Duration.
type LessonProgress struct {
	gorm.Model
	UserID          uint       `json:"user_id" gorm:"index;not null;uniqueIndex:idx_user_lesson"`
	LessonID        uint       `json:"lesson_id" gorm:"index;not null;uniqueIndex:idx_user_lesson"`
	Status          string     `json:"status" gorm:"default:'NOT_STARTED'"`
	IsCompleted     bool       `gorm:"default:false" json:"is_completed"`
	WatchedDuration uint       `gorm:"default:0" json:"watched_duration"`
	LastPosition    uint       `gorm:"default:0" json:"last_position"`
	CompletionDate  *time.Time `json:"completion_date"`
	LastActivity    time.Time  `json:"last_activity"`

	User   models.User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Lesson Lesson      `gorm:"foreignKey:LessonID;constraint:OnDelete:CASCADE" json:"-"`
}

func (LessonProgress) TableName() string {
	return "lesson_progress"
}
