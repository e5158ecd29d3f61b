package paymentController

import (
	"log"

	"lms/database"
	"lms/gateway"
	"lms/middleware"
	"lms/models"
	orderModels "lms/models/order"
	orderService "lms/services/order"
	"lms/utils"

	"github.com/gofiber/fiber/v2"
)

// InitiatePayment creates an online payment for the order's outstanding
// balance and asks the gateway for a redirect URL.
func InitiatePayment(c *fiber.Ctx) error {
	userId := c.Locals("userId").(uint)
	orderIdInt, _ := c.ParamsInt("id", 0)
	orderId := uint(orderIdInt)

	svc := orderService.New(database.Database.Db)
	order, err := svc.Get(userId, orderId)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Order not found!", nil)
	}
	if order.Status != orderModels.OrderPending {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Order is not pending!", nil)
	}

	remaining := order.TotalAmount
	for _, p := range order.Payments {
		if p.Status == orderModels.PaymentSuccessful {
			remaining -= p.Amount
		}
	}
	if remaining <= 0 {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Order has no outstanding balance!", nil)
	}

	payment, err := svc.AddPayment(order.ID, remaining, orderModels.MethodOnline)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create payment!", nil)
	}

	var user models.User
	if err := database.Database.Db.First(&user, userId).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to load user!", nil)
	}

	result, err := gateway.New().Initiate(remaining, "Payment for order #"+order.OrderNumber, user.Email, user.Mobile)
	if err != nil {
		// The gateway never saw this payment, so it is safe to void.
		if voidErr := svc.FailGatewayPayment(payment.ID); voidErr != nil {
			log.Printf("[PAYMENT] Failed to void payment %d: %v", payment.ID, voidErr)
		}
		return middleware.JsonResponse(c, fiber.StatusBadGateway, false, "Payment gateway is unavailable!", nil)
	}

	if err := svc.AttachGatewayAuthority(payment.ID, result.Authority); err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to save gateway reference!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Payment initiated!", fiber.Map{
		"paymentId":   payment.ID,
		"authority":   result.Authority,
		"redirectUrl": result.RedirectURL,
	})
}

// VerifyPayment is the gateway callback. The customer lands here after paying
// (or aborting); the payment is looked up by the redirect token and verified
// against the gateway before any state changes.
func VerifyPayment(c *fiber.Ctx) error {
	authority := c.Query("Authority")
	status := c.Query("Status")

	if authority == "" {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Missing gateway authority!", nil)
	}

	svc := orderService.New(database.Database.Db)
	payment, err := svc.PaymentByAuthority(authority)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Payment not found!", nil)
	}
	if payment.Status != orderModels.PaymentPending {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Payment already processed!", nil)
	}

	if status != "OK" {
		if voidErr := svc.FailGatewayPayment(payment.ID); voidErr != nil {
			log.Printf("[PAYMENT] Failed to void payment %d: %v", payment.ID, voidErr)
		}
		return middleware.JsonResponse(c, fiber.StatusOK, false, "Payment was cancelled!", fiber.Map{
			"paymentId": payment.ID,
			"status":    orderModels.PaymentFailed,
		})
	}

	ok, refID, err := gateway.New().Verify(payment.Amount, authority)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadGateway, false, "Payment verification failed, please retry!", nil)
	}
	if !ok {
		if voidErr := svc.FailGatewayPayment(payment.ID); voidErr != nil {
			log.Printf("[PAYMENT] Failed to void payment %d: %v", payment.ID, voidErr)
		}
		return middleware.JsonResponse(c, fiber.StatusOK, false, "Payment was declined by the gateway!", fiber.Map{
			"paymentId": payment.ID,
			"status":    orderModels.PaymentFailed,
		})
	}

	confirmed, err := svc.ConfirmGatewayPayment(payment.ID, refID)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to finalize payment!", nil)
	}

	var order orderModels.Order
	if err := database.Database.Db.First(&order, confirmed.OrderID).Error; err == nil {
		var user models.User
		if err := database.Database.Db.First(&user, order.UserID).Error; err == nil {
			go utils.SendPaymentReceipt(user.Email, user.Name, order.OrderNumber, int64(confirmed.Amount))
		}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Payment verified!", fiber.Map{
		"paymentId": confirmed.ID,
		"refId":     refID,
		"status":    confirmed.Status,
	})
}
