package orderValidator

import (
	"lms/middleware"
	orderModels "lms/models/order"

	"github.com/gofiber/fiber/v2"
)

type ItemRequest struct {
	CourseID *uint  `json:"courseId"`
	RefKind  string `json:"refKind"`
	RefID    *uint  `json:"refId"`
	Quantity uint   `json:"quantity"`
}

type CreateOrderRequest struct {
	Items []ItemRequest `json:"items"`
}

type AddPaymentRequest struct {
	Amount int64  `json:"amount"`
	Method string `json:"method"`
}

func validateItem(item ItemRequest) string {
	hasCourse := item.CourseID != nil
	hasRef := item.RefKind != "" && item.RefID != nil
	if hasCourse == hasRef {
		return "Exactly one of courseId or refKind/refId must be set!"
	}
	return ""
}

// CreateOrder validates the order creation request
func CreateOrder() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(CreateOrderRequest)

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)
		if len(reqData.Items) == 0 {
			errors["items"] = "At least one item is required!"
		}
		for _, item := range reqData.Items {
			if msg := validateItem(item); msg != "" {
				errors["items"] = msg
				break
			}
		}
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedCreateOrder", reqData)
		return c.Next()
	}
}

// AddItem validates a single item addition
func AddItem() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(ItemRequest)

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		if msg := validateItem(*reqData); msg != "" {
			return middleware.ValidationErrorResponse(c, map[string]string{"item": msg})
		}

		c.Locals("validatedAddItem", reqData)
		return c.Next()
	}
}

// AddPayment validates the payment creation request
func AddPayment() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(AddPaymentRequest)

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)
		if reqData.Amount <= 0 {
			errors["amount"] = "Amount must be greater than 0!"
		}
		switch reqData.Method {
		case orderModels.MethodOnline, orderModels.MethodWallet, orderModels.MethodBankTransfer:
		default:
			errors["method"] = "Method must be ONLINE, WALLET or BANK_TRANSFER!"
		}
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedAddPayment", reqData)
		return c.Next()
	}
}
