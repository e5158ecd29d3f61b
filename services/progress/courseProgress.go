package progressService

import (
	"time"

	courseModels "lms/models/course"
)

// CourseProgress is the read-side aggregate of one user's progress through a
// course. It is derived on demand and never written back.
type CourseProgress struct {
	TotalLessons         int                  `json:"total_lessons"`
	CompletedLessons     int                  `json:"completed_lessons"`
	InProgressLessons    int                  `json:"in_progress_lessons"`
	TotalDuration        uint                 `json:"total_duration"`
	WatchedDuration      uint                 `json:"watched_duration"`
	CompletionPercentage float64              `json:"completion_percentage"`
	TimeSpentPercentage  float64              `json:"time_spent_percentage"`
	NextLesson           *courseModels.Lesson `json:"next_lesson,omitempty"`
	LastActivity         *time.Time           `json:"last_activity,omitempty"`
}

// Progress computes the aggregate for a (user, course) pair. Lessons are
// walked in chapter order, then lesson order; the first one not completed is
// the next lesson.
func (s *Service) Progress(userID, courseID uint) (*CourseProgress, error) {
	if err := requireEnrollmentTx(s.db, userID, courseID); err != nil {
		return nil, err
	}

	var lessons []courseModels.Lesson
	err := s.db.Model(&courseModels.Lesson{}).
		Joins("JOIN chapters ON chapters.id = lessons.chapter_id").
		Where("chapters.course_id = ?", courseID).
		Order("chapters.position, lessons.position").
		Find(&lessons).Error
	if err != nil {
		return nil, err
	}

	lessonIDs := make([]uint, len(lessons))
	for i := range lessons {
		lessonIDs[i] = lessons[i].ID
	}

	var progresses []courseModels.LessonProgress
	if len(lessonIDs) > 0 {
		err = s.db.Where("user_id = ? AND lesson_id IN ?", userID, lessonIDs).Find(&progresses).Error
		if err != nil {
			return nil, err
		}
	}

	byLesson := make(map[uint]*courseModels.LessonProgress, len(progresses))
	for i := range progresses {
		byLesson[progresses[i].LessonID] = &progresses[i]
	}

	cp := &CourseProgress{TotalLessons: len(lessons)}
	for i := range lessons {
		cp.TotalDuration += lessons[i].Duration

		p, ok := byLesson[lessons[i].ID]
		if !ok {
			if cp.NextLesson == nil {
				cp.NextLesson = &lessons[i]
			}
			continue
		}

		cp.WatchedDuration += p.WatchedDuration
		if p.IsCompleted {
			cp.CompletedLessons++
		} else {
			if p.Status == courseModels.ProgressInProgress {
				cp.InProgressLessons++
			}
			if cp.NextLesson == nil {
				cp.NextLesson = &lessons[i]
			}
		}
		if cp.LastActivity == nil || p.LastActivity.After(*cp.LastActivity) {
			t := p.LastActivity
			cp.LastActivity = &t
		}
	}

	if cp.TotalLessons > 0 {
		cp.CompletionPercentage = float64(cp.CompletedLessons) / float64(cp.TotalLessons) * 100
	}
	if cp.TotalDuration > 0 {
		cp.TimeSpentPercentage = float64(cp.WatchedDuration) / float64(cp.TotalDuration) * 100
	}
	return cp, nil
}
