package orderService

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"lms/models"
	courseModels "lms/models/course"
	orderModels "lms/models/order"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrOrderNotPending  = errors.New("order is not pending")
	ErrNotCancellable   = errors.New("order cannot be cancelled in its current status")
	ErrNotRefundable    = errors.New("order cannot be refunded in its current status")
	ErrRemainingBalance = errors.New("order has remaining unpaid amount")
	ErrInvalidItem      = errors.New("invalid order item")
	ErrEmptyOrder       = errors.New("order must contain at least one item")
	ErrCourseNotFound   = errors.New("course not found or not active")
)

// ItemInput describes one requested line item. Exactly one of CourseID or
// RefKind/RefID must be set.
type ItemInput struct {
	CourseID *uint
	RefKind  string
	RefID    *uint
	Quantity uint
}

type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Create builds an order from the requested items, snapshotting each item's
// current price. The order number is globally unique; on the off chance of a
// collision a new one is generated.
func (s *Service) Create(userID uint, items []ItemInput) (*orderModels.Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}

	var created *orderModels.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		orderItems := make([]orderModels.OrderItem, 0, len(items))
		var total models.Money

		for _, in := range items {
			item, err := buildItemTx(tx, in)
			if err != nil {
				return err
			}
			total += item.TotalPrice()
			orderItems = append(orderItems, *item)
		}

		number, err := generateOrderNumberTx(tx)
		if err != nil {
			return err
		}

		o := orderModels.Order{
			UserID:      userID,
			OrderNumber: number,
			Status:      orderModels.OrderPending,
			TotalAmount: total,
		}
		if err := tx.Create(&o).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		for i := range orderItems {
			orderItems[i].OrderID = o.ID
		}
		if err := tx.Create(&orderItems).Error; err != nil {
			return fmt.Errorf("create order items: %w", err)
		}

		o.Items = orderItems
		created = &o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// AddItem appends a line item to a pending order and recomputes the total
// from the stored items.
func (s *Service) AddItem(orderID uint, in ItemInput) (*orderModels.OrderItem, error) {
	var added *orderModels.OrderItem
	err := s.db.Transaction(func(tx *gorm.DB) error {
		o, err := loadOrderTx(tx, orderID)
		if err != nil {
			return err
		}
		if o.Status != orderModels.OrderPending {
			return ErrOrderNotPending
		}

		item, err := buildItemTx(tx, in)
		if err != nil {
			return err
		}
		item.OrderID = o.ID
		if err := tx.Create(item).Error; err != nil {
			return fmt.Errorf("create order item: %w", err)
		}

		var items []orderModels.OrderItem
		if err := tx.Where("order_id = ?", o.ID).Find(&items).Error; err != nil {
			return err
		}
		var total models.Money
		for i := range items {
			total += items[i].TotalPrice()
		}
		if err := tx.Model(o).Update("total_amount", total).Error; err != nil {
			return err
		}

		added = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// Get returns one of the user's orders with items and payments loaded.
func (s *Service) Get(userID, orderID uint) (*orderModels.Order, error) {
	var o orderModels.Order
	err := s.db.Where("id = ? AND user_id = ? AND is_deleted = false", orderID, userID).
		Preload("Items").
		Preload("Payments").
		First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

// MarkAsPaid completes the order once nothing remains unpaid, then fulfils
// every item. Fulfilment and the status flip share one transaction: if any
// item fails, the order stays pending.
func (s *Service) MarkAsPaid(orderID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		o, err := loadOrderTx(tx, orderID)
		if err != nil {
			return err
		}
		return markAsPaidTx(tx, o)
	})
}

// Cancel cancels a pending order and refunds any successful payments on it.
func (s *Service) Cancel(orderID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		o, err := loadOrderTx(tx, orderID)
		if err != nil {
			return err
		}
		if !o.CanCancel() {
			return ErrNotCancellable
		}

		if err := tx.Model(o).Update("status", orderModels.OrderCancelled).Error; err != nil {
			return err
		}
		if err := voidPendingPaymentsTx(tx, o); err != nil {
			return err
		}
		return refundSuccessfulPaymentsTx(tx, o)
	})
}

// Refund refunds a completed order and all of its successful payments.
func (s *Service) Refund(orderID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		o, err := loadOrderTx(tx, orderID)
		if err != nil {
			return err
		}
		if !o.CanRefund() {
			return ErrNotRefundable
		}

		if err := tx.Model(o).Update("status", orderModels.OrderRefunded).Error; err != nil {
			return err
		}
		if err := voidPendingPaymentsTx(tx, o); err != nil {
			return err
		}
		return refundSuccessfulPaymentsTx(tx, o)
	})
}

// voidPendingPaymentsTx fails every still-pending payment on an order leaving
// the PENDING status, so none of them can be settled or confirmed afterwards.
func voidPendingPaymentsTx(tx *gorm.DB, o *orderModels.Order) error {
	return tx.Model(&orderModels.Payment{}).
		Where("order_id = ? AND status = ?", o.ID, orderModels.PaymentPending).
		Update("status", orderModels.PaymentFailed).Error
}

func markAsPaidTx(tx *gorm.DB, o *orderModels.Order) error {
	if o.Status != orderModels.OrderPending {
		return ErrOrderNotPending
	}

	remaining, err := remainingTx(tx, o)
	if err != nil {
		return err
	}
	if remaining > 0 {
		return ErrRemainingBalance
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":  orderModels.OrderCompleted,
		"paid_at": &now,
	}
	if err := tx.Model(o).Updates(updates).Error; err != nil {
		return fmt.Errorf("complete order: %w", err)
	}

	var items []orderModels.OrderItem
	if err := tx.Where("order_id = ?", o.ID).Find(&items).Error; err != nil {
		return err
	}
	for i := range items {
		if err := fulfilItemTx(tx, o, &items[i]); err != nil {
			return err
		}
	}
	return nil
}

// fulfilItemTx grants whatever the item was paid for. Course items enroll the
// buyer via get-or-create, so replays are harmless; other kinds go through
// their registered purchase hook.
func fulfilItemTx(tx *gorm.DB, o *orderModels.Order, item *orderModels.OrderItem) error {
	if item.ItemType == orderModels.ItemTypeCourse && item.CourseID != nil {
		enrollment := courseModels.Enrollment{
			UserID:   o.UserID,
			CourseID: *item.CourseID,
		}
		err := tx.Where("user_id = ? AND course_id = ?", o.UserID, *item.CourseID).
			Attrs(courseModels.Enrollment{
				PricePaid: item.Price,
				Status:    courseModels.EnrollmentActive,
			}).
			FirstOrCreate(&enrollment).Error
		if err != nil {
			return fmt.Errorf("create enrollment: %w", err)
		}
		return nil
	}

	p, err := purchasableFor(item.RefKind)
	if err != nil {
		return err
	}
	return p.OnPurchased(tx, item, o.UserID)
}

// remainingTx computes the outstanding balance: total minus the sum of
// successful payments.
func remainingTx(tx *gorm.DB, o *orderModels.Order) (models.Money, error) {
	var paid int64
	err := tx.Model(&orderModels.Payment{}).
		Where("order_id = ? AND status = ?", o.ID, orderModels.PaymentSuccessful).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&paid).Error
	if err != nil {
		return 0, err
	}
	remaining := o.TotalAmount - models.Money(paid)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func loadOrderTx(tx *gorm.DB, orderID uint) (*orderModels.Order, error) {
	var o orderModels.Order
	if err := tx.Where("id = ? AND is_deleted = false", orderID).First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

// buildItemTx validates the item reference and snapshots its current price.
func buildItemTx(tx *gorm.DB, in ItemInput) (*orderModels.OrderItem, error) {
	hasCourse := in.CourseID != nil
	hasRef := in.RefKind != "" && in.RefID != nil
	if hasCourse == hasRef {
		return nil, fmt.Errorf("%w: exactly one of course or content reference must be set", ErrInvalidItem)
	}

	quantity := in.Quantity
	if quantity == 0 {
		quantity = 1
	}

	if hasCourse {
		var c courseModels.Course
		err := tx.Where("id = ? AND is_deleted = false AND status = ?", *in.CourseID, "ACTIVE").First(&c).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrCourseNotFound
			}
			return nil, err
		}
		return &orderModels.OrderItem{
			ItemType: orderModels.ItemTypeCourse,
			CourseID: in.CourseID,
			Quantity: quantity,
			Price:    c.EffectivePrice(),
		}, nil
	}

	p, err := purchasableFor(in.RefKind)
	if err != nil {
		return nil, err
	}
	price, err := p.Price(tx, *in.RefID)
	if err != nil {
		return nil, fmt.Errorf("price lookup for %s: %w", in.RefKind, err)
	}
	return &orderModels.OrderItem{
		ItemType: orderModels.ItemTypeOther,
		RefKind:  in.RefKind,
		RefID:    in.RefID,
		Quantity: quantity,
		Price:    price,
	}, nil
}

// generateOrderNumberTx produces a unique 8-character order number,
// regenerating on collision.
func generateOrderNumberTx(tx *gorm.DB) (string, error) {
	for {
		number := strings.ToUpper(uuid.New().String()[:8])
		var count int64
		if err := tx.Model(&orderModels.Order{}).Where("order_number = ?", number).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return number, nil
		}
	}
}
