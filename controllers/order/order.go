package orderController

import (
	"errors"

	"lms/database"
	"lms/middleware"
	"lms/models"
	orderModels "lms/models/order"
	orderService "lms/services/order"
	"lms/utils"
	orderValidator "lms/validators/order"

	"github.com/gofiber/fiber/v2"
)

// CreateOrder creates a pending order from the requested items
func CreateOrder(c *fiber.Ctx) error {
	userId := c.Locals("userId").(uint)

	reqData, ok := c.Locals("validatedCreateOrder").(*orderValidator.CreateOrderRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	items := make([]orderService.ItemInput, 0, len(reqData.Items))
	for _, item := range reqData.Items {
		items = append(items, orderService.ItemInput{
			CourseID: item.CourseID,
			RefKind:  item.RefKind,
			RefID:    item.RefID,
			Quantity: item.Quantity,
		})
	}

	order, err := orderService.New(database.Database.Db).Create(userId, items)
	if err != nil {
		return orderErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Order created!", order)
}

// GetOrders returns the caller's orders
func GetOrders(c *fiber.Ctx) error {
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
	query := db.Model(&orderModels.Order{}).Where("user_id = ? AND is_deleted = false", userId)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)

	var orders []orderModels.Order
	if err := query.
		Preload("Items").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&orders).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch orders!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Orders fetched!", fiber.Map{
		"orders": orders,
		"pagination": fiber.Map{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

// GetOrder returns one of the caller's orders with items and payments
func GetOrder(c *fiber.Ctx) error {
	userId := c.Locals("userId").(uint)
	orderIdInt, _ := c.ParamsInt("id", 0)
	orderId := uint(orderIdInt)

	order, err := orderService.New(database.Database.Db).Get(userId, orderId)
	if err != nil {
		return orderErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Order fetched!", order)
}

// AddOrderItem appends an item to a pending order
func AddOrderItem(c *fiber.Ctx) error {
	userId := c.Locals("userId").(uint)
	orderIdInt, _ := c.ParamsInt("id", 0)
	orderId := uint(orderIdInt)

	reqData, ok := c.Locals("validatedAddItem").(*orderValidator.ItemRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	svc := orderService.New(database.Database.Db)
	if _, err := svc.Get(userId, orderId); err != nil {
		return orderErrorResponse(c, err)
	}

	item, err := svc.AddItem(orderId, orderService.ItemInput{
		CourseID: reqData.CourseID,
		RefKind:  reqData.RefKind,
		RefID:    reqData.RefID,
		Quantity: reqData.Quantity,
	})
	if err != nil {
		return orderErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Item added!", item)
}

// AddPayment creates a pending payment against the order
func AddPayment(c *fiber.Ctx) error {
	userId := c.Locals("userId").(uint)
	orderIdInt, _ := c.ParamsInt("id", 0)
	orderId := uint(orderIdInt)

	reqData, ok := c.Locals("validatedAddPayment").(*orderValidator.AddPaymentRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	svc := orderService.New(database.Database.Db)
	if _, err := svc.Get(userId, orderId); err != nil {
		return orderErrorResponse(c, err)
	}

	payment, err := svc.AddPayment(orderId, models.Money(reqData.Amount), reqData.Method)
	if err != nil {
		return orderErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Payment created!", payment)
}

// SettleWalletPayment charges a pending wallet payment. A failed charge is a
// normal response, not an error.
func SettleWalletPayment(c *fiber.Ctx) error {
	userId := c.Locals("userId").(uint)
	orderIdInt, _ := c.ParamsInt("id", 0)
	orderId := uint(orderIdInt)
	paymentIdInt, _ := c.ParamsInt("paymentId", 0)
	paymentId := uint(paymentIdInt)

	svc := orderService.New(database.Database.Db)
	order, err := svc.Get(userId, orderId)
	if err != nil {
		return orderErrorResponse(c, err)
	}

	owned := false
	for _, p := range order.Payments {
		if p.ID == paymentId {
			owned = true
			break
		}
	}
	if !owned {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Payment not found!", nil)
	}

	payment, err := svc.SettleWalletPayment(paymentId)
	if err != nil {
		return orderErrorResponse(c, err)
	}

	if payment.Status == orderModels.PaymentFailed {
		return middleware.JsonResponse(c, fiber.StatusOK, false, "Payment failed: insufficient wallet funds!", payment)
	}

	// Send the receipt after the transaction committed
	var user models.User
	if err := database.Database.Db.First(&user, userId).Error; err == nil {
		go utils.SendPaymentReceipt(user.Email, user.Name, order.OrderNumber, int64(payment.Amount))
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Payment successful!", payment)
}

// CancelOrder cancels a pending order and refunds its payments
func CancelOrder(c *fiber.Ctx) error {
	userId := c.Locals("userId").(uint)
	orderIdInt, _ := c.ParamsInt("id", 0)
	orderId := uint(orderIdInt)

	svc := orderService.New(database.Database.Db)
	if _, err := svc.Get(userId, orderId); err != nil {
		return orderErrorResponse(c, err)
	}

	if err := svc.Cancel(orderId); err != nil {
		return orderErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Order cancelled!", nil)
}

// RefundOrder refunds a completed order
func RefundOrder(c *fiber.Ctx) error {
	userId := c.Locals("userId").(uint)
	orderIdInt, _ := c.ParamsInt("id", 0)
	orderId := uint(orderIdInt)

	svc := orderService.New(database.Database.Db)
	if _, err := svc.Get(userId, orderId); err != nil {
		return orderErrorResponse(c, err)
	}

	if err := svc.Refund(orderId); err != nil {
		return orderErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Order refunded!", nil)
}

// orderErrorResponse maps settlement errors onto HTTP responses with the
// specific rejection reason.
func orderErrorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, orderService.ErrOrderNotFound):
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Order not found!", nil)
	case errors.Is(err, orderService.ErrCourseNotFound):
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found or not active!", nil)
	case errors.Is(err, orderService.ErrPaymentNotFound):
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Payment not found!", nil)
	case errors.Is(err, orderService.ErrOrderNotPending):
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Order is not pending!", nil)
	case errors.Is(err, orderService.ErrNotCancellable):
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Order cannot be cancelled in its current status!", nil)
	case errors.Is(err, orderService.ErrNotRefundable):
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Order cannot be refunded in its current status!", nil)
	case errors.Is(err, orderService.ErrRemainingBalance):
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Order has remaining unpaid amount!", nil)
	case errors.Is(err, orderService.ErrPaymentNotPending):
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Payment is not pending!", nil)
	case errors.Is(err, orderService.ErrPaymentNotSuccessful):
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Only successful payments can be refunded!", nil)
	case errors.Is(err, orderService.ErrNotWalletPayment):
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Payment method is not wallet!", nil)
	case errors.Is(err, orderService.ErrExceedsRemaining):
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Payment amount exceeds remaining balance!", nil)
	case errors.Is(err, orderService.ErrInvalidItem):
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, err.Error(), nil)
	case errors.Is(err, orderService.ErrEmptyOrder):
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Order must contain at least one item!", nil)
	default:
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Operation failed!", nil)
	}
}
