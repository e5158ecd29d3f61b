package walletController

import (
	"errors"

	"lms/database"
	"lms/middleware"
	"lms/models"
	walletService "lms/services/wallet"
	walletValidator "lms/validators/wallet"

	"github.com/gofiber/fiber/v2"
)

// GetWalletBalance returns user's current wallet balance
func GetWalletBalance(c *fiber.Ctx) error {
	userId := c.Locals("userId").(uint)

	wallet, err := walletService.New(database.Database.Db).ForUser(userId)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Wallet not found!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Wallet balance fetched!", fiber.Map{
		"balance":  wallet.Balance,
		"isActive": wallet.IsActive,
	})
}

// Deposit adds funds to the caller's own wallet
func Deposit(c *fiber.Ctx) error {
	userId := c.Locals("userId").(uint)

	reqData, ok := c.Locals("validatedDeposit").(*walletValidator.AmountRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	svc := walletService.New(database.Database.Db)
	wallet, err := svc.ForUser(userId)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Wallet not found!", nil)
	}

	description := reqData.Description
	if description == "" {
		description = "Deposit to wallet"
	}

	txn, err := svc.Deposit(wallet.ID, models.Money(reqData.Amount), description, "")
	if err != nil {
		return walletErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Deposit successful!", fiber.Map{
		"transactionId": txn.ID,
		"amount":        txn.Amount,
		"balanceAfter":  txn.BalanceAfter,
	})
}

// Withdraw removes funds from the caller's own wallet
func Withdraw(c *fiber.Ctx) error {
	userId := c.Locals("userId").(uint)

	reqData, ok := c.Locals("validatedWithdraw").(*walletValidator.AmountRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	svc := walletService.New(database.Database.Db)
	wallet, err := svc.ForUser(userId)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Wallet not found!", nil)
	}

	description := reqData.Description
	if description == "" {
		description = "Withdrawal from wallet"
	}

	txn, err := svc.Withdraw(wallet.ID, models.Money(reqData.Amount), description, "")
	if err != nil {
		return walletErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Withdrawal successful!", fiber.Map{
		"transactionId": txn.ID,
		"amount":        txn.Amount,
		"balanceAfter":  txn.BalanceAfter,
	})
}

// GetWalletHistory returns user's wallet transaction history
func GetWalletHistory(c *fiber.Ctx) error {
	userId := c.Locals("userId").(uint)

	svc := walletService.New(database.Database.Db)
	wallet, err := svc.ForUser(userId)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Wallet not found!", nil)
	}

	// Parse query params
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 10)
	txnType := c.Query("type") // DEPOSIT, WITHDRAWAL, etc.

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	offset := (page - 1) * limit
	db := database.Database.Db

	query := db.Model(&models.Transaction{}).Where("wallet_id = ?", wallet.ID)
	if txnType != "" {
		query = query.Where("type = ?", txnType)
	}

	var total int64
	query.Count(&total)

	var transactions []models.Transaction
	if err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&transactions).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch history!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Wallet history fetched!", fiber.Map{
		"transactions":   transactions,
		"currentBalance": wallet.Balance,
		"pagination": fiber.Map{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

// AddBalance credits a user's wallet (Admin only)
func AddBalance(c *fiber.Ctx) error {
	adminId := c.Locals("userId").(uint)

	admin, err := requireAdmin(adminId)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Access Denied! Admin role required.", nil)
	}

	reqData, ok := c.Locals("validatedAdminAdjust").(*walletValidator.AdminAdjustRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	svc := walletService.New(database.Database.Db)
	wallet, err := svc.ForUser(reqData.UserID)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "User wallet not found!", nil)
	}

	txn, err := svc.Deposit(wallet.ID, models.Money(reqData.Amount), "Admin credit: "+reqData.Reason, "")
	if err != nil {
		return walletErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Balance added successfully!", fiber.Map{
		"transactionId": txn.ID,
		"userId":        reqData.UserID,
		"amountAdded":   reqData.Amount,
		"newBalance":    txn.BalanceAfter,
		"reason":        reqData.Reason,
		"addedBy":       admin.Name,
	})
}

// DeductBalance debits a user's wallet (Admin only)
func DeductBalance(c *fiber.Ctx) error {
	adminId := c.Locals("userId").(uint)

	admin, err := requireAdmin(adminId)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Access Denied! Admin role required.", nil)
	}

	reqData, ok := c.Locals("validatedAdminAdjust").(*walletValidator.AdminAdjustRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	svc := walletService.New(database.Database.Db)
	wallet, err := svc.ForUser(reqData.UserID)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "User wallet not found!", nil)
	}

	txn, err := svc.Withdraw(wallet.ID, models.Money(reqData.Amount), "Admin debit: "+reqData.Reason, "")
	if err != nil {
		return walletErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Balance deducted successfully!", fiber.Map{
		"transactionId":  txn.ID,
		"userId":         reqData.UserID,
		"amountDeducted": reqData.Amount,
		"newBalance":     txn.BalanceAfter,
		"reason":         reqData.Reason,
		"deductedBy":     admin.Name,
	})
}

func requireAdmin(userId uint) (*models.User, error) {
	var admin models.User
	err := database.Database.Db.
		Where("id = ? AND is_deleted = false AND role = ?", userId, "ADMIN").
		First(&admin).Error
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

// walletErrorResponse maps ledger errors onto HTTP responses with the
// specific rejection reason.
func walletErrorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, walletService.ErrInvalidAmount):
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Amount must be positive!", nil)
	case errors.Is(err, walletService.ErrInsufficientFunds):
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Insufficient funds!", nil)
	case errors.Is(err, walletService.ErrWalletInactive):
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Wallet is deactivated!", nil)
	case errors.Is(err, walletService.ErrWalletNotFound):
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Wallet not found!", nil)
	default:
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Transaction failed!", nil)
	}
}
