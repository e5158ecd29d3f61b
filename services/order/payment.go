package orderService

import (
	"errors"
	"fmt"
	"strings"

	"lms/models"
	orderModels "lms/models/order"
	walletService "lms/services/wallet"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentNotPending    = errors.New("payment is not in pending status")
	ErrPaymentNotSuccessful = errors.New("only successful payments can be refunded")
	ErrNotWalletPayment     = errors.New("payment method is not wallet")
	ErrExceedsRemaining     = errors.New("payment amount exceeds remaining balance")
)

// AddPayment creates a pending payment against a pending order. The amount
// may not exceed the outstanding balance.
func (s *Service) AddPayment(orderID uint, amount models.Money, method string) (*orderModels.Payment, error) {
	if !amount.IsPositive() {
		return nil, walletService.ErrInvalidAmount
	}

	var payment *orderModels.Payment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		o, err := loadOrderTx(tx, orderID)
		if err != nil {
			return err
		}
		if o.Status != orderModels.OrderPending {
			return ErrOrderNotPending
		}

		remaining, err := remainingTx(tx, o)
		if err != nil {
			return err
		}
		if amount > remaining {
			return ErrExceedsRemaining
		}

		p := orderModels.Payment{
			OrderID:       o.ID,
			Amount:        amount,
			Method:        method,
			TransactionID: uuid.New().String(),
			Status:        orderModels.PaymentPending,
		}
		if err := tx.Create(&p).Error; err != nil {
			return fmt.Errorf("create payment: %w", err)
		}
		payment = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// SettleWalletPayment charges a pending wallet payment against the payer's
// wallet. Insufficient funds is a business outcome, not a fault: the payment
// is marked FAILED and returned with a nil error. When the charge clears the
// outstanding balance, the order completes in the same transaction.
func (s *Service) SettleWalletPayment(paymentID uint) (*orderModels.Payment, error) {
	var settled *orderModels.Payment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		p, err := loadPaymentTx(tx, paymentID)
		if err != nil {
			return err
		}
		if p.Method != orderModels.MethodWallet {
			return ErrNotWalletPayment
		}
		if p.Status != orderModels.PaymentPending {
			return ErrPaymentNotPending
		}

		o, err := loadOrderTx(tx, p.OrderID)
		if err != nil {
			return err
		}
		if o.Status != orderModels.OrderPending {
			return ErrOrderNotPending
		}

		var wallet models.Wallet
		if err := tx.Where("user_id = ?", o.UserID).First(&wallet).Error; err != nil {
			return fmt.Errorf("load payer wallet: %w", err)
		}

		reference := "order_" + o.OrderNumber
		description := fmt.Sprintf("Payment for order #%s", o.OrderNumber)

		_, err = walletService.PayTx(tx, wallet.ID, p.Amount, description, reference)
		if errors.Is(err, walletService.ErrInsufficientFunds) || errors.Is(err, walletService.ErrWalletInactive) {
			if err := tx.Model(p).Update("status", orderModels.PaymentFailed).Error; err != nil {
				return err
			}
			p.Status = orderModels.PaymentFailed
			settled = p
			return nil
		}
		if err != nil {
			return err
		}

		updates := map[string]interface{}{
			"status":           orderModels.PaymentSuccessful,
			"wallet_reference": reference,
		}
		if err := tx.Model(p).Updates(updates).Error; err != nil {
			return err
		}
		p.Status = orderModels.PaymentSuccessful
		p.WalletReference = reference

		remaining, err := remainingTx(tx, o)
		if err != nil {
			return err
		}
		if remaining == 0 {
			if err := markAsPaidTx(tx, o); err != nil {
				return err
			}
		}

		settled = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settled, nil
}

// ConfirmGatewayPayment finalizes a pending online payment after the gateway
// verified it, completing the order when nothing remains unpaid.
func (s *Service) ConfirmGatewayPayment(paymentID uint, gatewayRefID string) (*orderModels.Payment, error) {
	var confirmed *orderModels.Payment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		p, err := loadPaymentTx(tx, paymentID)
		if err != nil {
			return err
		}
		if p.Status != orderModels.PaymentPending {
			return ErrPaymentNotPending
		}

		o, err := loadOrderTx(tx, p.OrderID)
		if err != nil {
			return err
		}
		if o.Status != orderModels.OrderPending {
			return ErrOrderNotPending
		}

		updates := map[string]interface{}{
			"status":         orderModels.PaymentSuccessful,
			"gateway_ref_id": gatewayRefID,
		}
		if err := tx.Model(p).Updates(updates).Error; err != nil {
			return err
		}
		p.Status = orderModels.PaymentSuccessful
		p.GatewayRefID = gatewayRefID

		remaining, err := remainingTx(tx, o)
		if err != nil {
			return err
		}
		if remaining == 0 {
			if err := markAsPaidTx(tx, o); err != nil {
				return err
			}
		}

		confirmed = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return confirmed, nil
}

// FailGatewayPayment marks a pending online payment as failed. The order
// stays pending; no financial state is created.
func (s *Service) FailGatewayPayment(paymentID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		p, err := loadPaymentTx(tx, paymentID)
		if err != nil {
			return err
		}
		if p.Status != orderModels.PaymentPending {
			return ErrPaymentNotPending
		}
		return tx.Model(p).Update("status", orderModels.PaymentFailed).Error
	})
}

// AttachGatewayAuthority stores the redirect token the gateway issued for a
// pending payment, so the verify callback can find it again.
func (s *Service) AttachGatewayAuthority(paymentID uint, authority string) error {
	return s.db.Model(&orderModels.Payment{}).
		Where("id = ? AND status = ?", paymentID, orderModels.PaymentPending).
		Update("gateway_authority", authority).Error
}

// PaymentByAuthority looks up a payment by its gateway redirect token.
func (s *Service) PaymentByAuthority(authority string) (*orderModels.Payment, error) {
	var p orderModels.Payment
	if err := s.db.Where("gateway_authority = ?", authority).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

// RefundPayment refunds one successful payment. Wallet payments are deposited
// back through the ledger with a correlation reference; other methods record
// an external refund reference for the gateway integration.
func (s *Service) RefundPayment(paymentID uint) (*orderModels.Payment, error) {
	var refunded *orderModels.Payment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		p, err := loadPaymentTx(tx, paymentID)
		if err != nil {
			return err
		}
		o, err := loadOrderTx(tx, p.OrderID)
		if err != nil {
			return err
		}
		if err := refundPaymentTx(tx, o, p); err != nil {
			return err
		}
		refunded = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refunded, nil
}

func refundSuccessfulPaymentsTx(tx *gorm.DB, o *orderModels.Order) error {
	var payments []orderModels.Payment
	if err := tx.Where("order_id = ? AND status = ?", o.ID, orderModels.PaymentSuccessful).Find(&payments).Error; err != nil {
		return err
	}
	for i := range payments {
		if err := refundPaymentTx(tx, o, &payments[i]); err != nil {
			return err
		}
	}
	return nil
}

func refundPaymentTx(tx *gorm.DB, o *orderModels.Order, p *orderModels.Payment) error {
	if p.Status != orderModels.PaymentSuccessful {
		return ErrPaymentNotSuccessful
	}

	var refundReference string
	if p.Method == orderModels.MethodWallet {
		var wallet models.Wallet
		if err := tx.Where("user_id = ?", o.UserID).First(&wallet).Error; err != nil {
			return fmt.Errorf("load payer wallet: %w", err)
		}

		refundReference = "refund_order_" + o.OrderNumber
		description := fmt.Sprintf("Refund for order #%s", o.OrderNumber)
		if _, err := walletService.RefundTx(tx, wallet.ID, p.Amount, description, refundReference); err != nil {
			return err
		}
	} else {
		// External refunds settle through the gateway integration; only the
		// correlation reference is recorded here.
		refundReference = "REFUND_" + strings.ToUpper(uuid.New().String()[:8])
	}

	updates := map[string]interface{}{
		"status":           orderModels.PaymentRefunded,
		"refund_reference": refundReference,
	}
	if err := tx.Model(p).Updates(updates).Error; err != nil {
		return err
	}
	p.Status = orderModels.PaymentRefunded
	p.RefundReference = refundReference
	return nil
}

func loadPaymentTx(tx *gorm.DB, paymentID uint) (*orderModels.Payment, error) {
	var p orderModels.Payment
	if err := tx.First(&p, paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}
