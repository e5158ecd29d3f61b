package progressService

import (
	"errors"
	"fmt"
	"time"

	"lms/models"
	courseModels "lms/models/course"

	"gorm.io/gorm"
)

var (
	ErrAlreadyEnrolled = errors.New("user is already enrolled in this course")
	ErrNotEnrolled     = errors.New("user is not enrolled in this course")
	ErrLessonNotFound  = errors.New("lesson not found")
)

// Lessons counting at least this share of their duration watched complete
// automatically.
const completionThreshold = 0.9

type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Enroll creates an active enrollment for the user.
func (s *Service) Enroll(userID, courseID uint, pricePaid models.Money, discountID *uint) (*courseModels.Enrollment, error) {
	var enrollment *courseModels.Enrollment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		enrollment, err = EnrollTx(tx, userID, courseID, pricePaid, discountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return enrollment, nil
}

// EnrollTx enrolls inside a caller-owned transaction, so discount redemption
// and wallet charges can commit together with the enrollment.
func EnrollTx(tx *gorm.DB, userID, courseID uint, pricePaid models.Money, discountID *uint) (*courseModels.Enrollment, error) {
	var existing courseModels.Enrollment
	err := tx.Where("user_id = ? AND course_id = ? AND is_deleted = false", userID, courseID).First(&existing).Error
	if err == nil {
		return nil, ErrAlreadyEnrolled
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	enrollment := courseModels.Enrollment{
		UserID:     userID,
		CourseID:   courseID,
		PricePaid:  pricePaid,
		DiscountID: discountID,
		Status:     courseModels.EnrollmentActive,
	}
	if err := tx.Create(&enrollment).Error; err != nil {
		return nil, fmt.Errorf("create enrollment: %w", err)
	}
	return &enrollment, nil
}

// RecordProgress upserts the user's progress for a lesson from a playback
// report. Watching at least 90% of a timed lesson completes it; any watching
// moves a fresh lesson to in-progress. The owning enrollment's aggregate is
// recomputed in the same transaction.
func (s *Service) RecordProgress(userID, lessonID, watchedDuration, lastPosition uint) (*courseModels.LessonProgress, error) {
	var progress *courseModels.LessonProgress
	err := s.db.Transaction(func(tx *gorm.DB) error {
		lesson, courseID, err := loadLessonTx(tx, lessonID)
		if err != nil {
			return err
		}
		if err := requireEnrollmentTx(tx, userID, courseID); err != nil {
			return err
		}

		p, err := getOrCreateProgressTx(tx, userID, lessonID)
		if err != nil {
			return err
		}

		p.WatchedDuration = watchedDuration
		p.LastPosition = lastPosition
		p.LastActivity = time.Now()

		if lesson.Duration > 0 && float64(watchedDuration) >= completionThreshold*float64(lesson.Duration) {
			complete(p)
		} else if p.Status == courseModels.ProgressNotStarted && watchedDuration > 0 {
			p.Status = courseModels.ProgressInProgress
		}

		if err := tx.Save(p).Error; err != nil {
			return fmt.Errorf("save progress: %w", err)
		}
		if err := recomputeEnrollmentTx(tx, userID, courseID); err != nil {
			return err
		}

		progress = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return progress, nil
}

// MarkCompleted completes a lesson unconditionally, independent of watch
// duration. Used for non-video content. Idempotent.
func (s *Service) MarkCompleted(userID, lessonID uint) (*courseModels.LessonProgress, error) {
	var progress *courseModels.LessonProgress
	err := s.db.Transaction(func(tx *gorm.DB) error {
		_, courseID, err := loadLessonTx(tx, lessonID)
		if err != nil {
			return err
		}
		if err := requireEnrollmentTx(tx, userID, courseID); err != nil {
			return err
		}

		p, err := getOrCreateProgressTx(tx, userID, lessonID)
		if err != nil {
			return err
		}

		if !p.IsCompleted {
			complete(p)
			p.LastActivity = time.Now()
			if err := tx.Save(p).Error; err != nil {
				return fmt.Errorf("save progress: %w", err)
			}
			if err := recomputeEnrollmentTx(tx, userID, courseID); err != nil {
				return err
			}
		}

		progress = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return progress, nil
}

func complete(p *courseModels.LessonProgress) {
	if p.IsCompleted {
		return
	}
	now := time.Now()
	p.IsCompleted = true
	p.Status = courseModels.ProgressCompleted
	p.CompletionDate = &now
}

// recomputeEnrollmentTx flips the enrollment to completed once every lesson
// in the course is done.
func recomputeEnrollmentTx(tx *gorm.DB, userID, courseID uint) error {
	var enrollment courseModels.Enrollment
	err := tx.Where("user_id = ? AND course_id = ? AND is_deleted = false", userID, courseID).First(&enrollment).Error
	if err != nil {
		return err
	}
	if enrollment.Status != courseModels.EnrollmentActive {
		return nil
	}

	lessonIDs, err := courseLessonIDsTx(tx, courseID)
	if err != nil {
		return err
	}
	if len(lessonIDs) == 0 {
		return nil
	}

	var completed int64
	err = tx.Model(&courseModels.LessonProgress{}).
		Where("user_id = ? AND lesson_id IN ? AND is_completed = true", userID, lessonIDs).
		Count(&completed).Error
	if err != nil {
		return err
	}

	if completed == int64(len(lessonIDs)) {
		now := time.Now()
		updates := map[string]interface{}{
			"status":          courseModels.EnrollmentCompleted,
			"completion_date": &now,
		}
		if err := tx.Model(&enrollment).Updates(updates).Error; err != nil {
			return err
		}
	}
	return nil
}

// courseLessonIDsTx returns the course's lesson ids ordered by chapter
// position, then lesson position.
func courseLessonIDsTx(tx *gorm.DB, courseID uint) ([]uint, error) {
	var ids []uint
	err := tx.Model(&courseModels.Lesson{}).
		Joins("JOIN chapters ON chapters.id = lessons.chapter_id").
		Where("chapters.course_id = ?", courseID).
		Order("chapters.position, lessons.position").
		Pluck("lessons.id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func loadLessonTx(tx *gorm.DB, lessonID uint) (*courseModels.Lesson, uint, error) {
	var lesson courseModels.Lesson
	if err := tx.First(&lesson, lessonID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrLessonNotFound
		}
		return nil, 0, err
	}

	var chapter courseModels.Chapter
	if err := tx.First(&chapter, lesson.ChapterID).Error; err != nil {
		return nil, 0, err
	}
	return &lesson, chapter.CourseID, nil
}

func requireEnrollmentTx(tx *gorm.DB, userID, courseID uint) error {
	var count int64
	err := tx.Model(&courseModels.Enrollment{}).
		Where("user_id = ? AND course_id = ? AND is_deleted = false", userID, courseID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotEnrolled
	}
	return nil
}

func getOrCreateProgressTx(tx *gorm.DB, userID, lessonID uint) (*courseModels.LessonProgress, error) {
	p := courseModels.LessonProgress{
		UserID:   userID,
		LessonID: lessonID,
	}
	err := tx.Where("user_id = ? AND lesson_id = ?", userID, lessonID).
		Attrs(courseModels.LessonProgress{
			Status:       courseModels.ProgressNotStarted,
			LastActivity: time.Now(),
		}).
		FirstOrCreate(&p).Error
	if err != nil {
		return nil, fmt.Errorf("get or create progress: %w", err)
	}
	return &p, nil
}
