package courseController

import (
	"errors"
	"fmt"

	"lms/database"
	"lms/middleware"
	"lms/models"
	courseModels "lms/models/course"
	"lms/utils"
	courseValidator "lms/validators/course"

	discountService "lms/services/discount"
	progressService "lms/services/progress"
	walletService "lms/services/wallet"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// EnrollInCourse enrolls the caller into a course, charging their wallet.
// Discount redemption, the wallet charge and the enrollment commit in one
// transaction: a failed charge leaves the discount unconsumed.
func EnrollInCourse(c *fiber.Ctx) error {
	userId := c.Locals("userId").(uint)
	courseIdInt, _ := c.ParamsInt("id", 0)
	courseId := uint(courseIdInt)

	reqData, ok := c.Locals("validatedEnroll").(*courseValidator.EnrollRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	db := database.Database.Db

	var course courseModels.Course
	err := db.Where("id = ? AND is_deleted = false AND status = ?", courseId, "ACTIVE").First(&course).Error
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	var enrollment *courseModels.Enrollment
	var pricePaid models.Money

	err = db.Transaction(func(tx *gorm.DB) error {
		price := course.EffectivePrice()
		var discountID *uint

		if reqData.DiscountCode != "" {
			discounted, discount, err := discountService.RedeemTx(tx, reqData.DiscountCode, course.ID)
			if err != nil {
				return err
			}
			price = discounted
			discountID = &discount.ID
		}

		if price > 0 {
			var wallet models.Wallet
			if err := tx.Where("user_id = ?", userId).First(&wallet).Error; err != nil {
				return walletService.ErrWalletNotFound
			}

			reference := fmt.Sprintf("enroll_course_%d", course.ID)
			description := "Enrollment in course: " + course.Title
			if _, err := walletService.PayTx(tx, wallet.ID, price, description, reference); err != nil {
				return err
			}
		}

		e, err := progressService.EnrollTx(tx, userId, course.ID, price, discountID)
		if err != nil {
			return err
		}

		enrollment = e
		pricePaid = price
		return nil
	})
	if err != nil {
		return enrollErrorResponse(c, err)
	}

	var user models.User
	if err := db.First(&user, userId).Error; err == nil {
		go utils.SendEnrollmentConfirmation(user.Email, user.Name, course.Title)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Enrolled successfully!", fiber.Map{
		"enrollmentId": enrollment.ID,
		"courseId":     course.ID,
		"pricePaid":    pricePaid,
		"status":       enrollment.Status,
	})
}

// GetEnrollments returns the caller's enrollments
func GetEnrollments(c *fiber.Ctx) error {
	userId := c.Locals("userId").(uint)

	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 10)
	status := c.Query("status")

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	offset := (page - 1) * limit

	db := database.Database.Db
	query := db.Model(&courseModels.Enrollment{}).Where("user_id = ? AND is_deleted = false", userId)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)

	var enrollments []courseModels.Enrollment
	if err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&enrollments).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch enrollments!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollments fetched!", fiber.Map{
		"enrollments": enrollments,
		"pagination": fiber.Map{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

func enrollErrorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, progressService.ErrAlreadyEnrolled):
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Already enrolled in this course!", nil)
	case errors.Is(err, discountService.ErrDiscountNotFound):
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Discount code not found!", nil)
	case errors.Is(err, discountService.ErrDiscountInvalid):
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, err.Error(), nil)
	case errors.Is(err, walletService.ErrInsufficientFunds):
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Insufficient wallet funds!", nil)
	case errors.Is(err, walletService.ErrWalletInactive):
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Wallet is deactivated!", nil)
	case errors.Is(err, walletService.ErrWalletNotFound):
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Wallet not found!", nil)
	default:
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Enrollment failed!", nil)
	}
}
