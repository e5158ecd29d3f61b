package courseRoutes

import (
	courseController "lms/controllers/course"
	"lms/middleware"
	courseValidator "lms/validators/course"

	"github.com/gofiber/fiber/v2"
)

func SetupCourseRoutes(app *fiber.App) {
	courseGroup := app.Group("/course")

	// Catalog. Static paths are registered before the :id routes so they
	// never get captured as an id.
	courseGroup.Get("/list", courseController.GetCourses)
	courseGroup.Get("/enrollments/list", middleware.JWTMiddleware, courseController.GetEnrollments)
	courseGroup.Get("/:id", courseController.GetCourse)
	courseGroup.Get("/:id/discount", courseController.CheckDiscount)

	// Enrollment
	courseGroup.Post("/:id/enroll", courseValidator.Enroll(), middleware.JWTMiddleware, courseController.EnrollInCourse)

	// Progress
	courseGroup.Get("/:id/progress", middleware.JWTMiddleware, courseController.GetCourseProgress)

	lessonGroup := app.Group("/lesson")
	lessonGroup.Post("/:lessonId/progress", courseValidator.LessonProgress(), middleware.JWTMiddleware, courseController.UpdateLessonProgress)
	lessonGroup.Post("/:lessonId/complete", middleware.JWTMiddleware, courseController.MarkLessonComplete)
}
