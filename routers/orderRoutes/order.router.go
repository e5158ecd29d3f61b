package orderRoutes

import (
	orderController "lms/controllers/order"
	paymentController "lms/controllers/payment"
	"lms/middleware"
	orderValidator "lms/validators/order"

	"github.com/gofiber/fiber/v2"
)

func SetupOrderRoutes(app *fiber.App) {
	orderGroup := app.Group("/order")

	orderGroup.Post("/create", orderValidator.CreateOrder(), middleware.JWTMiddleware, orderController.CreateOrder)
	orderGroup.Get("/list", middleware.JWTMiddleware, orderController.GetOrders)
	orderGroup.Get("/:id", middleware.JWTMiddleware, orderController.GetOrder)
	orderGroup.Post("/:id/item", orderValidator.AddItem(), middleware.JWTMiddleware, orderController.AddOrderItem)
	orderGroup.Post("/:id/cancel", middleware.JWTMiddleware, orderController.CancelOrder)
	orderGroup.Post("/:id/refund", middleware.JWTMiddleware, orderController.RefundOrder)

	// Payments
	orderGroup.Post("/:id/payment", orderValidator.AddPayment(), middleware.JWTMiddleware, orderController.AddPayment)
	orderGroup.Post("/:id/payment/:paymentId/settle", middleware.JWTMiddleware, orderController.SettleWalletPayment)
	orderGroup.Post("/:id/payment/initiate", middleware.JWTMiddleware, paymentController.InitiatePayment)

	// Gateway callback, reached by redirect without a JWT
	app.Get("/payment/verify", paymentController.VerifyPayment)
}
