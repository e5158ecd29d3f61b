package order

import (
	"time"

	"lms/models"

	"gorm.io/gorm"
)

// Order statuses. CANCELLED and REFUNDED are terminal.
const (
	OrderPending    = "PENDING"
	OrderProcessing = "PROCESSING"
	OrderCompleted  = "COMPLETED"
	OrderCancelled  = "CANCELLED"
	OrderRefunded   = "REFUNDED"
)

// Order aggregates purchasable line items for one user. TotalAmount is the
// sum of item quantity*price at creation time; item prices are snapshots, not
// live lookups.
type Order struct {
	gorm.Model
	UserID      uint         `json:"user_id" gorm:"index;not null"`
	OrderNumber string       `gorm:"uniqueIndex;size:32;not null" json:"order_number"`
	Status      string       `json:"status" gorm:"default:'PENDING';index"`
	TotalAmount models.Money `gorm:"not null;default:0" json:"total_amount"`
	PaidAt      *time.Time   `json:"paid_at"`
	Notes       string       `gorm:"type:text" json:"notes"`
	IsDeleted   bool         `gorm:"default:false" json:"-"`

	User     models.User `gorm:"foreignKey:UserID" json:"-"`
	Items    []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Payments []Payment   `gorm:"foreignKey:OrderID" json:"payments,omitempty"`
}

// CanCancel reports whether the order may still be cancelled.
func (o *Order) CanCancel() bool {
	return o.Status == OrderPending
}

// CanRefund reports whether the order may be refunded.
func (o *Order) CanRefund() bool {
	return o.Status == OrderCompleted
}

// IsPaid reports whether payment has been taken for the order.
func (o *Order) IsPaid() bool {
	return o.Status == OrderCompleted || o.Status == OrderProcessing
}

// Order item kinds
const (
	ItemTypeCourse = "COURSE"
	ItemTypeOther  = "OTHER"
)

// OrderItem is one purchasable line. Course items set CourseID; generic items
// set RefKind/RefID and are fulfilled through the purchasable registry.
// Exactly one of the two references is set, never both.
type OrderItem struct {
	gorm.Model
	OrderID  uint         `json:"order_id" gorm:"index;not null"`
	ItemType string       `json:"item_type" gorm:"default:'COURSE'"`
	CourseID *uint        `json:"course_id" gorm:"index"`
	RefKind  string       `json:"ref_kind" gorm:"type:varchar(50)"`
	RefID    *uint        `json:"ref_id"`
	Quantity uint         `gorm:"not null;default:1" json:"quantity"`
	Price    models.Money `gorm:"not null" json:"price"` // snapshot at order time
}

// TotalPrice is quantity times the snapshotted unit price.
func (i *OrderItem) TotalPrice() models.Money {
	return i.Price * models.Money(i.Quantity)
}

// Payment methods
const (
	MethodOnline       = "ONLINE"
	MethodWallet       = "WALLET"
	MethodBankTransfer = "BANK_TRANSFER"
)

// Payment statuses
const (
	PaymentPending    = "PENDING"
	PaymentSuccessful = "SUCCESSFUL"
	PaymentFailed     = "FAILED"
	PaymentRefunded   = "REFUNDED"
)

// Payment is one payment attempt against an order. A payment only ever moves
// PENDING -> SUCCESSFUL/FAILED and SUCCESSFUL -> REFUNDED.
type Payment struct {
	gorm.Model
	OrderID          uint         `json:"order_id" gorm:"index;not null"`
	Amount           models.Money `gorm:"not null" json:"amount"`
	Method           string       `json:"method" gorm:"type:varchar(20);not null"`
	TransactionID    string       `gorm:"uniqueIndex;size:100" json:"transaction_id"`
	Status           string       `json:"status" gorm:"default:'PENDING';index"`
	WalletReference  string       `gorm:"type:varchar(100)" json:"wallet_reference"`
	GatewayAuthority string       `gorm:"type:varchar(100);index" json:"gateway_authority"`
	GatewayRefID     string       `gorm:"type:varchar(100)" json:"gateway_ref_id"`
	RefundReference  string       `gorm:"type:varchar(100)" json:"refund_reference"`

	Order Order `gorm:"foreignKey:OrderID" json:"-"`
}
