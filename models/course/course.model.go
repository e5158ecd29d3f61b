package course

import (
	"lms/models"

	"gorm.io/gorm"
)

// Course represents a learning course
type Course struct {
	gorm.Model
	Title        string       `json:"title"`
	Slug         string       `gorm:"uniqueIndex" json:"slug"`
	Description  string       `json:"description"`
	Author       string       `json:"author"`
	Price        models.Money `gorm:"not null;default:0" json:"price"`
	IsFree       bool         `gorm:"default:false" json:"is_free"`
	Status       string       `json:"status" gorm:"default:'DRAFT'"` // DRAFT, ACTIVE, INACTIVE
	Level        string       `json:"level" gorm:"default:'BEGINNER'"`
	ThumbnailURL string       `json:"thumbnail_url"`
	IsDeleted    bool         `gorm:"default:false" json:"-"`
}

// EffectivePrice is the price charged at purchase time. Free courses always
// cost zero regardless of the stored price.
func (c *Course) EffectivePrice() models.Money {
	if c.IsFree {
		return 0
	}
	return c.Price
}

// Chapter groups lessons inside a course. Position is unique per course and
// drives the learn-view ordering.
type Chapter struct {
	gorm.Model
	CourseID    uint   `json:"course_id" gorm:"index;not null;uniqueIndex:idx_course_position"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Position    uint   `json:"position" gorm:"not null;uniqueIndex:idx_course_position"`
}

// Lesson is a single unit of content inside a chapter. Duration is in minutes
// and may be zero for non-video content.
type Lesson struct {
	gorm.Model
	ChapterID     uint   `json:"chapter_id" gorm:"index;not null;uniqueIndex:idx_chapter_position"`
	Title         string `json:"title"`
	Content       string `json:"content" gorm:"type:text"`
	ContentType   string `json:"content_type" gorm:"default:'VIDEO'"` // VIDEO, TEXT, QUIZ, ASSIGNMENT
	VideoURL      string `json:"video_url"`
	Duration      uint   `json:"duration" gorm:"default:0"`
	Position      uint   `json:"position" gorm:"not null;uniqueIndex:idx_chapter_position"`
	IsFreePreview bool   `json:"is_free_preview" gorm:"default:false"`
	Points        uint   `json:"points" gorm:"default:0"`
}
