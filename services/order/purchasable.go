package orderService

import (
	"fmt"

	"lms/models"
	orderModels "lms/models/order"

	"gorm.io/gorm"
)

// Purchasable is the capability a non-course item kind must implement to be
// sold through orders: a price lookup for the snapshot at order time and a
// fulfilment hook invoked when the order completes.
type Purchasable interface {
	Price(tx *gorm.DB, refID uint) (models.Money, error)
	OnPurchased(tx *gorm.DB, item *orderModels.OrderItem, userID uint) error
}

var purchasableKinds = map[string]Purchasable{}

// RegisterKind registers an item kind under its RefKind tag. The set of valid
// kinds is closed at startup; unknown kinds are rejected at order creation.
func RegisterKind(kind string, p Purchasable) {
	purchasableKinds[kind] = p
}

func purchasableFor(kind string) (Purchasable, error) {
	p, ok := purchasableKinds[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown item kind %q", ErrInvalidItem, kind)
	}
	return p, nil
}
