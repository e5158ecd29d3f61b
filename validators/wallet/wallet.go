package walletValidator

import (
	"lms/middleware"

	"github.com/gofiber/fiber/v2"
)

type AmountRequest struct {
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

type AdminAdjustRequest struct {
	UserID uint   `json:"userId"`
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

// Deposit validates user deposit request
func Deposit() fiber.Handler {
	return amountBody("validatedDeposit")
}

// Withdraw validates user withdrawal request
func Withdraw() fiber.Handler {
	return amountBody("validatedWithdraw")
}

func amountBody(key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(AmountRequest)

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)
		if reqData.Amount <= 0 {
			errors["amount"] = "Amount must be greater than 0!"
		}
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals(key, reqData)
		return c.Next()
	}
}

// AdminAdjust validates admin add/deduct balance requests
func AdminAdjust() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(AdminAdjustRequest)

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)
		if reqData.UserID == 0 {
			errors["userId"] = "User ID is required!"
		}
		if reqData.Amount <= 0 {
			errors["amount"] = "Amount must be greater than 0!"
		}
		if reqData.Reason == "" {
			errors["reason"] = "Reason is required!"
		}
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedAdminAdjust", reqData)
		return c.Next()
	}
}
