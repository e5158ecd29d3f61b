package courseController

import (
	"time"

	"lms/database"
	"lms/middleware"
	courseModels "lms/models/course"
	discountService "lms/services/discount"

	"github.com/gofiber/fiber/v2"
)

// GetCourses returns the active course catalog
func GetCourses(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 10)
	level := c.Query("level")

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	offset := (page - 1) * limit

	db := database.Database.Db
	query := db.Model(&courseModels.Course{}).Where("is_deleted = false AND status = ?", "ACTIVE")
	if level != "" {
		query = query.Where("level = ?", level)
	}

	var total int64
	query.Count(&total)

	var courses []courseModels.Course
	if err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&courses).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch courses!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Courses fetched!", fiber.Map{
		"courses": courses,
		"pagination": fiber.Map{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

// GetCourse returns one active course with its chapters and lessons
func GetCourse(c *fiber.Ctx) error {
	courseIdInt, _ := c.ParamsInt("id", 0)
	courseId := uint(courseIdInt)

	var course courseModels.Course
	err := database.Database.Db.
		Where("id = ? AND is_deleted = false AND status = ?", courseId, "ACTIVE").
		First(&course).Error
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	db := database.Database.Db

	var chapters []courseModels.Chapter
	if err := db.Where("course_id = ?", course.ID).Order("position").Find(&chapters).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch course content!", nil)
	}

	chapterIDs := make([]uint, len(chapters))
	for i := range chapters {
		chapterIDs[i] = chapters[i].ID
	}

	var lessons []courseModels.Lesson
	if len(chapterIDs) > 0 {
		if err := db.Where("chapter_id IN ?", chapterIDs).Order("position").Find(&lessons).Error; err != nil {
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch course content!", nil)
		}
	}

	lessonsByChapter := make(map[uint][]courseModels.Lesson, len(chapters))
	for _, lesson := range lessons {
		lessonsByChapter[lesson.ChapterID] = append(lessonsByChapter[lesson.ChapterID], lesson)
	}

	outline := make([]fiber.Map, 0, len(chapters))
	for _, chapter := range chapters {
		outline = append(outline, fiber.Map{
			"chapter": chapter,
			"lessons": lessonsByChapter[chapter.ID],
		})
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course fetched!", fiber.Map{
		"course":   course,
		"chapters": outline,
	})
}

// CheckDiscount previews a discount code against a course without consuming
// a use. The answer can go stale; redemption re-validates.
func CheckDiscount(c *fiber.Ctx) error {
	courseIdInt, _ := c.ParamsInt("id", 0)
	courseId := uint(courseIdInt)
	code := c.Query("code")

	if code == "" {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Discount code is required!", nil)
	}

	db := database.Database.Db

	var course courseModels.Course
	if err := db.Where("id = ? AND is_deleted = false", courseId).First(&course).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	var discount courseModels.Discount
	if err := db.Where("code = ?", code).First(&discount).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Discount code not found!", nil)
	}

	valid, reason := discountService.Validate(&discount, &course, time.Now())
	if !valid {
		return middleware.JsonResponse(c, fiber.StatusOK, false, "Discount code is not valid!", fiber.Map{
			"valid":  false,
			"reason": reason,
		})
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Discount code is valid!", fiber.Map{
		"valid":           true,
		"percentage":      discount.Percentage,
		"originalPrice":   course.EffectivePrice(),
		"discountedPrice": course.EffectivePrice().PercentOff(discount.Percentage),
	})
}
