package orderService

import (
	"testing"

	"lms/models"
	courseModels "lms/models/course"
	orderModels "lms/models/order"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Wallet{},
		&models.Transaction{},
		&courseModels.Course{},
		&courseModels.Enrollment{},
		&orderModels.Order{},
		&orderModels.OrderItem{},
		&orderModels.Payment{},
	))
	return db
}

type fixture struct {
	user   models.User
	wallet models.Wallet
	course courseModels.Course
}

func setupFixture(t *testing.T, db *gorm.DB, balance models.Money, coursePrice models.Money) *fixture {
	t.Helper()

	f := &fixture{
		user: models.User{Name: "Buyer", Email: "buyer@example.com"},
	}
	require.NoError(t, db.Create(&f.user).Error)

	f.wallet = models.Wallet{UserID: f.user.ID, Balance: balance, IsActive: true}
	require.NoError(t, db.Create(&f.wallet).Error)

	f.course = courseModels.Course{
		Title:  "Go Fundamentals",
		Slug:   "go-fundamentals",
		Price:  coursePrice,
		Status: "ACTIVE",
	}
	require.NoError(t, db.Create(&f.course).Error)
	return f
}

func courseItem(courseID uint) ItemInput {
	return ItemInput{CourseID: &courseID}
}

func TestCreateSnapshotsPrices(t *testing.T) {
	db := setupTestDB(t)
	f := setupFixture(t, db, 0, 1000)
	svc := New(db)

	order, err := svc.Create(f.user.ID, []ItemInput{courseItem(f.course.ID)})
	require.NoError(t, err)

	assert.Equal(t, orderModels.OrderPending, order.Status)
	assert.Equal(t, models.Money(1000), order.TotalAmount)
	assert.Len(t, order.OrderNumber, 8)
	require.Len(t, order.Items, 1)
	assert.Equal(t, models.Money(1000), order.Items[0].Price)

	// A later price change must not affect the stored snapshot
	require.NoError(t, db.Model(&f.course).Update("price", 9999).Error)
	stored, err := svc.Get(f.user.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Money(1000), stored.TotalAmount)
	assert.Equal(t, models.Money(1000), stored.Items[0].Price)
}

func TestCreateWithQuantity(t *testing.T) {
	db := setupTestDB(t)
	f := setupFixture(t, db, 0, 250)
	svc := New(db)

	in := courseItem(f.course.ID)
	in.Quantity = 3

	order, err := svc.Create(f.user.ID, []ItemInput{in})
	require.NoError(t, err)
	assert.Equal(t, models.Money(750), order.TotalAmount)
}

func TestCreateEmptyOrder(t *testing.T) {
	db := setupTestDB(t)
	f := setupFixture(t, db, 0, 1000)

	_, err := New(db).Create(f.user.ID, nil)
	assert.ErrorIs(t, err, ErrEmptyOrder)
}

func TestCreateRejectsInactiveCourse(t *testing.T) {
	db := setupTestDB(t)
	f := setupFixture(t, db, 0, 1000)
	require.NoError(t, db.Model(&f.course).Update("status", "DRAFT").Error)

	_, err := New(db).Create(f.user.ID, []ItemInput{courseItem(f.course.ID)})
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestCreateRejectsAmbiguousItem(t *testing.T) {
	db := setupTestDB(t)
	f := setupFixture(t, db, 0, 1000)

	refID := uint(7)
	_, err := New(db).Create(f.user.ID, []ItemInput{{
		CourseID: &f.course.ID,
		RefKind:  "certificate",
		RefID:    &refID,
	}})
	assert.ErrorIs(t, err, ErrInvalidItem)
}

func TestFreeCourseOrderHasZeroTotal(t *testing.T) {
	db := setupTestDB(t)
	f := setupFixture(t, db, 0, 1000)
	require.NoError(t, db.Model(&f.course).Update("is_free", true).Error)
	svc := New(db)

	order, err := svc.Create(f.user.ID, []ItemInput{courseItem(f.course.ID)})
	require.NoError(t, err)
	assert.Equal(t, models.Money(0), order.TotalAmount)

	// Nothing outstanding, so it completes without any payments
	require.NoError(t, svc.MarkAsPaid(order.ID))

	var enrollment courseModels.Enrollment
	require.NoError(t, db.Where("user_id = ? AND course_id = ?", f.user.ID, f.course.ID).First(&enrollment).Error)
	assert.Equal(t, models.Money(0), enrollment.PricePaid)
}

func TestAddItemRecomputesTotal(t *testing.T) {
	db := setupTestDB(t)
	f := setupFixture(t, db, 0, 1000)
	svc := New(db)

	other := courseModels.Course{Title: "Advanced Go", Slug: "advanced-go", Price: 500, Status: "ACTIVE"}
	require.NoError(t, db.Create(&other).Error)

	order, err := svc.Create(f.user.ID, []ItemInput{courseItem(f.course.ID)})
	require.NoError(t, err)

	_, err = svc.AddItem(order.ID, courseItem(other.ID))
	require.NoError(t, err)

	stored, err := svc.Get(f.user.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Money(1500), stored.TotalAmount)
	assert.Len(t, stored.Items, 2)
}

func TestAddItemOnlyWhenPending(t *testing.T) {
	db := setupTestDB(t)
	f := setupFixture(t, db, 0, 1000)
	svc := New(db)

	order, err := svc.Create(f.user.ID, []ItemInput{courseItem(f.course.ID)})
	require.NoError(t, err)
	require.NoError(t, db.Model(&orderModels.Order{}).Where("id = ?", order.ID).
		Update("status", orderModels.OrderCompleted).Error)

	_, err = svc.AddItem(order.ID, courseItem(f.course.ID))
	assert.ErrorIs(t, err, ErrOrderNotPending)
}

func TestMarkAsPaidRequiresFullPayment(t *testing.T) {
	db := setupTestDB(t)
	f := setupFixture(t, db, 0, 1000)
	svc := New(db)

	order, err := svc.Create(f.user.ID, []ItemInput{courseItem(f.course.ID)})
	require.NoError(t, err)

	err = svc.MarkAsPaid(order.ID)
	assert.ErrorIs(t, err, ErrRemainingBalance)

	stored, err := svc.Get(f.user.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderModels.OrderPending, stored.Status)
}

func TestAddPaymentCannotExceedRemaining(t *testing.T) {
	db := setupTestDB(t)
	f := setupFixture(t, db, 0, 1000)
	svc := New(db)

	order, err := svc.Create(f.user.ID, []ItemInput{courseItem(f.course.ID)})
	require.NoError(t, err)

	_, err = svc.AddPayment(order.ID, 1500, orderModels.MethodWallet)
	assert.ErrorIs(t, err, ErrExceedsRemaining)
}

func TestSettleWalletPaymentCompletesOrder(t *testing.T) {
	db := setupTestDB(t)
	f := setupFixture(t, db, 2000, 1000)
	svc := New(db)

	order, err := svc.Create(f.user.ID, []ItemInput{courseItem(f.course.ID)})
	require.NoError(t, err)

	payment, err := svc.AddPayment(order.ID, 1000, orderModels.MethodWallet)
	require.NoError(t, err)
	assert.Equal(t, orderModels.PaymentPending, payment.Status)
	assert.NotEmpty(t, payment.TransactionID)

	settled, err := svc.SettleWalletPayment(payment.ID)
	require.NoError(t, err)
	assert.Equal(t, orderModels.PaymentSuccessful, settled.Status)
	assert.Equal(t, "order_"+order.OrderNumber, settled.WalletReference)

	// Wallet was debited through the ledger
	var wallet models.Wallet
	require.NoError(t, db.First(&wallet, f.wallet.ID).Error)
	assert.Equal(t, models.Money(1000), wallet.Balance)

	var entry models.Transaction
	require.NoError(t, db.Where("reference = ?", "order_"+order.OrderNumber).First(&entry).Error)
	assert.Equal(t, models.TransactionTypePayment, entry.Type)
	assert.Equal(t, models.Money(-1000), entry.Amount)

	// Order completed and the course was fulfilled
	stored, err := svc.Get(f.user.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderModels.OrderCompleted, stored.Status)
	require.NotNil(t, stored.PaidAt)

	var enrollment courseModels.Enrollment
	require.NoError(t, db.Where("user_id = ? AND course_id = ?", f.user.ID, f.course.ID).First(&enrollment).Error)
	assert.Equal(t, courseModels.EnrollmentActive, enrollment.Status)
	assert.Equal(t, models.Money(1000), enrollment.PricePaid)
}

func TestSettleWalletPaymentInsufficientFunds(t *testing.T) {
	db := setupTestDB(t)
	f := setupFixture(t, db, 300, 1000)
	svc := New(db)

	order, err := svc.Create(f.user.ID, []ItemInput{courseItem(f.course.ID)})
	require.NoError(t, err)

	payment, err := svc.AddPayment(order.ID, 1000, orderModels.MethodWallet)
	require.NoError(t, err)

	// A short wallet is a business outcome: FAILED payment, nil error
	settled, err := svc.SettleWalletPayment(payment.ID)
	require.NoError(t, err)
	assert.Equal(t, orderModels.PaymentFailed, settled.Status)

	// Nothing moved: wallet untouched, no ledger entry, order still pending
	var wallet models.Wallet
	require.NoError(t, db.First(&wallet, f.wallet.ID).Error)
	assert.Equal(t, models.Money(300), wallet.Balance)

	var count int64
	db.Model(&models.Transaction{}).Count(&count)
	assert.Equal(t, int64(0), count)

	stored, err := svc.Get(f.user.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderModels.OrderPending, stored.Status)
}

func TestSettleRejectsNonWalletPayment(t *testing.T) {
	db := setupTestDB(t)
	f := setupFixture(t, db, 2000, 1000)
	svc := New(db)

	order, err := svc.Create(f.user.ID, []ItemInput{courseItem(f.course.ID)})
	require.NoError(t, err)

	payment, err := svc.AddPayment(order.ID, 1000, orderModels.MethodOnline)
	require.NoError(t, err)

	_, err = svc.SettleWalletPayment(payment.ID)
	assert.ErrorIs(t, err, ErrNotWalletPayment)
}

func TestSettleIsNotRepeatable(t *testing.T) {
	db := setupTestDB(t)
	f := setupFixture(t, db, 2000, 1000)
	svc := New(db)

	order, err := svc.Create(f.user.ID, []ItemInput{courseItem(f.course.ID)})
	require.NoError(t, err)

	payment, err := svc.AddPayment(order.ID, 1000, orderModels.MethodWallet)
	require.NoError(t, err)

	_, err = svc.SettleWalletPayment(payment.ID)
	require.NoError(t, err)

	_, err = svc.SettleWalletPayment(payment.ID)
	assert.ErrorIs(t, err, ErrPaymentNotPending)

	// Charged exactly once
	var wallet models.Wallet
	require.NoError(t, db.First(&wallet, f.wallet.ID).Error)
	assert.Equal(t, models.Money(1000), wallet.Balance)
}

func TestPartialPaymentsCompleteWhenCovered(t *testing.T) {
	db := setupTestDB(t)
	f := setupFixture(t, db, 2000, 1000)
	svc := New(db)

	order, err := svc.Create(f.user.ID, []ItemInput{courseItem(f.course.ID)})
	require.NoError(t, err)

	first, err := svc.AddPayment(order.ID, 400, orderModels.MethodWallet)
	require.NoError(t, err)
	_, err = svc.SettleWalletPayment(first.ID)
	require.NoError(t, err)

	stored, err := svc.Get(f.user.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderModels.OrderPending, stored.Status)

	second, err := svc.AddPayment(order.ID, 600, orderModels.MethodWallet)
	require.NoError(t, err)
	_, err = svc.SettleWalletPayment(second.ID)
	require.NoError(t, err)

	stored, err = svc.Get(f.user.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderModels.OrderCompleted, stored.Status)
}

func TestConfirmGatewayPaymentCompletesOrder(t *testing.T) {
	db := setupTestDB(t)
	f := setupFixture(t, db, 0, 1000)
	svc := New(db)

	order, err := svc.Create(f.user.ID, []ItemInput{courseItem(f.course.ID)})
	require.NoError(t, err)

	payment, err := svc.AddPayment(order.ID, 1000, orderModels.MethodOnline)
	require.NoError(t, err)

	require.NoError(t, svc.AttachGatewayAuthority(payment.ID, "A0001"))

	found, err := svc.PaymentByAuthority("A0001")
	require.NoError(t, err)
	assert.Equal(t, payment.ID, found.ID)

	confirmed, err := svc.ConfirmGatewayPayment(payment.ID, "REF123")
	require.NoError(t, err)
	assert.Equal(t, orderModels.PaymentSuccessful, confirmed.Status)
	assert.Equal(t, "REF123", confirmed.GatewayRefID)

	stored, err := svc.Get(f.user.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderModels.OrderCompleted, stored.Status)
}

func TestFailGatewayPaymentKeepsOrderPending(t *testing.T) {
	db := setupTestDB(t)
	f := setupFixture(t, db, 0, 1000)
	svc := New(db)

	order, err := svc.Create(f.user.ID, []ItemInput{courseItem(f.course.ID)})
	require.NoError(t, err)

	payment, err := svc.AddPayment(order.ID, 1000, orderModels.MethodOnline)
	require.NoError(t, err)

	require.NoError(t, svc.FailGatewayPayment(payment.ID))

	stored, err := svc.Get(f.user.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderModels.OrderPending, stored.Status)
	assert.Equal(t, orderModels.PaymentFailed, stored.Payments[0].Status)
}

func TestCancelRefundsWalletPayments(t *testing.T) {
	db := setupTestDB(t)
	f := setupFixture(t, db, 2000, 1000)
	svc := New(db)

	order, err := svc.Create(f.user.ID, []ItemInput{courseItem(f.course.ID)})
	require.NoError(t, err)

	payment, err := svc.AddPayment(order.ID, 400, orderModels.MethodWallet)
	require.NoError(t, err)
	_, err = svc.SettleWalletPayment(payment.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(order.ID))

	stored, err := svc.Get(f.user.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderModels.OrderCancelled, stored.Status)
	assert.Equal(t, orderModels.PaymentRefunded, stored.Payments[0].Status)
	assert.Equal(t, "refund_order_"+order.OrderNumber, stored.Payments[0].RefundReference)

	// The charge came back through the ledger
	var wallet models.Wallet
	require.NoError(t, db.First(&wallet, f.wallet.ID).Error)
	assert.Equal(t, models.Money(2000), wallet.Balance)

	var entry models.Transaction
	require.NoError(t, db.Where("reference = ?", "refund_order_"+order.OrderNumber).First(&entry).Error)
	assert.Equal(t, models.TransactionTypeRefund, entry.Type)
	assert.Equal(t, models.Money(400), entry.Amount)
}

func TestCancelOnlyWhenPending(t *testing.T) {
	db := setupTestDB(t)
	f := setupFixture(t, db, 2000, 1000)
	svc := New(db)

	order, err := svc.Create(f.user.ID, []ItemInput{courseItem(f.course.ID)})
	require.NoError(t, err)

	payment, err := svc.AddPayment(order.ID, 1000, orderModels.MethodWallet)
	require.NoError(t, err)
	_, err = svc.SettleWalletPayment(payment.ID)
	require.NoError(t, err)

	err = svc.Cancel(order.ID)
	assert.ErrorIs(t, err, ErrNotCancellable)
}

func TestCancelVoidsPendingPayments(t *testing.T) {
	db := setupTestDB(t)
	f := setupFixture(t, db, 2000, 1000)
	svc := New(db)

	order, err := svc.Create(f.user.ID, []ItemInput{courseItem(f.course.ID)})
	require.NoError(t, err)

	_, err = svc.AddPayment(order.ID, 1000, orderModels.MethodWallet)
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(order.ID))

	stored, err := svc.Get(f.user.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderModels.OrderCancelled, stored.Status)
	require.Len(t, stored.Payments, 1)
	assert.Equal(t, orderModels.PaymentFailed, stored.Payments[0].Status)
}

func TestSettleAfterCancelRejected(t *testing.T) {
	db := setupTestDB(t)
	f := setupFixture(t, db, 2000, 1000)
	svc := New(db)

	order, err := svc.Create(f.user.ID, []ItemInput{courseItem(f.course.ID)})
	require.NoError(t, err)

	payment, err := svc.AddPayment(order.ID, 1000, orderModels.MethodWallet)
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(order.ID))

	// Cancellation is terminal: the leftover payment must not charge the
	// wallet or resurrect the order
	_, err = svc.SettleWalletPayment(payment.ID)
	assert.ErrorIs(t, err, ErrPaymentNotPending)

	stored, err := svc.Get(f.user.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderModels.OrderCancelled, stored.Status)

	var wallet models.Wallet
	require.NoError(t, db.First(&wallet, f.wallet.ID).Error)
	assert.Equal(t, models.Money(2000), wallet.Balance)

	var count int64
	db.Model(&models.Transaction{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestSettleRejectedWhenOrderNotPending(t *testing.T) {
	db := setupTestDB(t)
	f := setupFixture(t, db, 2000, 1000)
	svc := New(db)

	order, err := svc.Create(f.user.ID, []ItemInput{courseItem(f.course.ID)})
	require.NoError(t, err)

	payment, err := svc.AddPayment(order.ID, 1000, orderModels.MethodWallet)
	require.NoError(t, err)

	// Flip the order directly, leaving the payment pending
	require.NoError(t, db.Model(&orderModels.Order{}).Where("id = ?", order.ID).
		Update("status", orderModels.OrderCancelled).Error)

	_, err = svc.SettleWalletPayment(payment.ID)
	assert.ErrorIs(t, err, ErrOrderNotPending)

	var wallet models.Wallet
	require.NoError(t, db.First(&wallet, f.wallet.ID).Error)
	assert.Equal(t, models.Money(2000), wallet.Balance)
}

func TestConfirmAfterCancelRejected(t *testing.T) {
	db := setupTestDB(t)
	f := setupFixture(t, db, 0, 1000)
	svc := New(db)

	order, err := svc.Create(f.user.ID, []ItemInput{courseItem(f.course.ID)})
	require.NoError(t, err)

	payment, err := svc.AddPayment(order.ID, 1000, orderModels.MethodOnline)
	require.NoError(t, err)
	require.NoError(t, svc.AttachGatewayAuthority(payment.ID, "A0002"))

	// Flip the order directly, as if cancelled while the customer sat on the
	// gateway redirect; a late verification must not complete it
	require.NoError(t, db.Model(&orderModels.Order{}).Where("id = ?", order.ID).
		Update("status", orderModels.OrderCancelled).Error)

	_, err = svc.ConfirmGatewayPayment(payment.ID, "REF456")
	assert.ErrorIs(t, err, ErrOrderNotPending)

	stored, err := svc.Get(f.user.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderModels.OrderCancelled, stored.Status)
	assert.Equal(t, orderModels.PaymentPending, stored.Payments[0].Status)
}

func TestRefundCompletedOrder(t *testing.T) {
	db := setupTestDB(t)
	f := setupFixture(t, db, 2000, 1000)
	svc := New(db)

	order, err := svc.Create(f.user.ID, []ItemInput{courseItem(f.course.ID)})
	require.NoError(t, err)

	payment, err := svc.AddPayment(order.ID, 1000, orderModels.MethodWallet)
	require.NoError(t, err)
	_, err = svc.SettleWalletPayment(payment.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Refund(order.ID))

	stored, err := svc.Get(f.user.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderModels.OrderRefunded, stored.Status)
	assert.Equal(t, orderModels.PaymentRefunded, stored.Payments[0].Status)

	var wallet models.Wallet
	require.NoError(t, db.First(&wallet, f.wallet.ID).Error)
	assert.Equal(t, models.Money(2000), wallet.Balance)
}

func TestRefundOnlyWhenCompleted(t *testing.T) {
	db := setupTestDB(t)
	f := setupFixture(t, db, 2000, 1000)
	svc := New(db)

	order, err := svc.Create(f.user.ID, []ItemInput{courseItem(f.course.ID)})
	require.NoError(t, err)

	err = svc.Refund(order.ID)
	assert.ErrorIs(t, err, ErrNotRefundable)
}

func TestRefundNonWalletPaymentRecordsReference(t *testing.T) {
	db := setupTestDB(t)
	f := setupFixture(t, db, 0, 1000)
	svc := New(db)

	order, err := svc.Create(f.user.ID, []ItemInput{courseItem(f.course.ID)})
	require.NoError(t, err)

	payment, err := svc.AddPayment(order.ID, 1000, orderModels.MethodOnline)
	require.NoError(t, err)
	_, err = svc.ConfirmGatewayPayment(payment.ID, "REF9")
	require.NoError(t, err)

	require.NoError(t, svc.Refund(order.ID))

	stored, err := svc.Get(f.user.ID, order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Payments, 1)
	assert.Equal(t, orderModels.PaymentRefunded, stored.Payments[0].Status)
	assert.Contains(t, stored.Payments[0].RefundReference, "REFUND_")
	assert.Len(t, stored.Payments[0].RefundReference, len("REFUND_")+8)
}

func TestFulfilmentIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	f := setupFixture(t, db, 2000, 1000)
	svc := New(db)

	// Already enrolled before the order completes
	enrollment := courseModels.Enrollment{
		UserID: f.user.ID, CourseID: f.course.ID,
		PricePaid: 0, Status: courseModels.EnrollmentActive,
	}
	require.NoError(t, db.Create(&enrollment).Error)

	order, err := svc.Create(f.user.ID, []ItemInput{courseItem(f.course.ID)})
	require.NoError(t, err)

	payment, err := svc.AddPayment(order.ID, 1000, orderModels.MethodWallet)
	require.NoError(t, err)
	_, err = svc.SettleWalletPayment(payment.ID)
	require.NoError(t, err)

	var count int64
	db.Model(&courseModels.Enrollment{}).
		Where("user_id = ? AND course_id = ?", f.user.ID, f.course.ID).
		Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestGetScopedToOwner(t *testing.T) {
	db := setupTestDB(t)
	f := setupFixture(t, db, 0, 1000)
	svc := New(db)

	order, err := svc.Create(f.user.ID, []ItemInput{courseItem(f.course.ID)})
	require.NoError(t, err)

	_, err = svc.Get(f.user.ID+1, order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
