package courseController

import (
	"errors"

	"lms/database"
	"lms/middleware"
	progressService "lms/services/progress"
	courseValidator "lms/validators/course"

	"github.com/gofiber/fiber/v2"
)

// UpdateLessonProgress records a playback progress report for a lesson
func UpdateLessonProgress(c *fiber.Ctx) error {
	userId := c.Locals("userId").(uint)
	lessonIdInt, _ := c.ParamsInt("lessonId", 0)
	lessonId := uint(lessonIdInt)

	reqData, ok := c.Locals("validatedLessonProgress").(*courseValidator.LessonProgressRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	progress, err := progressService.New(database.Database.Db).
		RecordProgress(userId, lessonId, reqData.WatchedDuration, reqData.LastPosition)
	if err != nil {
		return progressErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress updated!", progress)
}

// MarkLessonComplete completes a lesson regardless of watch duration
func MarkLessonComplete(c *fiber.Ctx) error {
	userId := c.Locals("userId").(uint)
	lessonIdInt, _ := c.ParamsInt("lessonId", 0)
	lessonId := uint(lessonIdInt)

	progress, err := progressService.New(database.Database.Db).MarkCompleted(userId, lessonId)
	if err != nil {
		return progressErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson completed!", progress)
}

// GetCourseProgress returns the caller's aggregated progress for a course
func GetCourseProgress(c *fiber.Ctx) error {
	userId := c.Locals("userId").(uint)
	courseIdInt, _ := c.ParamsInt("id", 0)
	courseId := uint(courseIdInt)

	progress, err := progressService.New(database.Database.Db).Progress(userId, courseId)
	if err != nil {
		return progressErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course progress fetched!", progress)
}

func progressErrorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, progressService.ErrLessonNotFound):
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Lesson not found!", nil)
	case errors.Is(err, progressService.ErrNotEnrolled):
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Not enrolled in this course!", nil)
	default:
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update progress!", nil)
	}
}
