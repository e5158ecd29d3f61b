package walletRoutes

import (
	walletController "lms/controllers/wallet"
	"lms/middleware"
	walletValidator "lms/validators/wallet"

	"github.com/gofiber/fiber/v2"
)

func SetupWalletRoutes(app *fiber.App) {
	walletGroup := app.Group("/wallet")

	// User routes
	walletGroup.Get("/balance", middleware.JWTMiddleware, walletController.GetWalletBalance)
	walletGroup.Post("/deposit", walletValidator.Deposit(), middleware.JWTMiddleware, walletController.Deposit)
	walletGroup.Post("/withdraw", walletValidator.Withdraw(), middleware.JWTMiddleware, walletController.Withdraw)
	walletGroup.Get("/history", middleware.JWTMiddleware, walletController.GetWalletHistory)

	// Admin routes
	adminGroup := walletGroup.Group("/admin")
	adminGroup.Post("/add-balance", walletValidator.AdminAdjust(), middleware.JWTMiddleware, walletController.AddBalance)
	adminGroup.Post("/deduct-balance", walletValidator.AdminAdjust(), middleware.JWTMiddleware, walletController.DeductBalance)
}
