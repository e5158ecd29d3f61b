package courseValidator

import (
	"lms/middleware"

	"github.com/gofiber/fiber/v2"
)

type EnrollRequest struct {
	DiscountCode string `json:"discountCode"`
}

type LessonProgressRequest struct {
	WatchedDuration uint `json:"watchedDuration"`
	LastPosition    uint `json:"lastPosition"`
}

// Enroll validates the course enrollment request
func Enroll() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(EnrollRequest)

		// Body is optional: enrolling without a discount code is allowed
		if len(c.Body()) > 0 {
			if err := c.BodyParser(reqData); err != nil {
				return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
			}
		}

		c.Locals("validatedEnroll", reqData)
		return c.Next()
	}
}

// LessonProgress validates a playback progress report
func LessonProgress() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(LessonProgressRequest)

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		c.Locals("validatedLessonProgress", reqData)
		return c.Next()
	}
}
