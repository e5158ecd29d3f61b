package walletService

import (
	"errors"
	"fmt"

	"lms/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrWalletInactive    = errors.New("wallet is deactivated")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrSameWallet        = errors.New("cannot transfer to the same wallet")
)

// Service is the only sanctioned way to change a wallet balance. Every
// balance delta is paired with exactly one ledger entry; nothing else writes
// the balance column.
type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service {
	return &Service{db: db}
}

// ForUser returns the wallet owned by the given user.
func (s *Service) ForUser(userID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := s.db.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &wallet, nil
}

// Deposit adds funds to the wallet and appends a ledger entry, atomically.
func (s *Service) Deposit(walletID uint, amount models.Money, description, reference string) (*models.Transaction, error) {
	var txn *models.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		txn, err = DepositTx(tx, walletID, amount, description, reference)
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// Withdraw removes funds from the wallet and appends a negative-amount ledger
// entry, atomically. The balance never goes below zero.
func (s *Service) Withdraw(walletID uint, amount models.Money, description, reference string) (*models.Transaction, error) {
	var txn *models.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		txn, err = WithdrawTx(tx, walletID, amount, description, reference)
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// Transfer moves funds between two wallets. Both legs share one correlation
// reference and run in a single transaction; if the deposit leg fails the
// withdrawal is rolled back with it.
func (s *Service) Transfer(fromID, toID uint, amount models.Money, description string) (string, error) {
	if fromID == toID {
		return "", ErrSameWallet
	}

	reference := uuid.New().String()
	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Lock both rows in ascending id order before touching balances, so
		// opposing transfers between the same pair cannot deadlock.
		firstID, secondID := fromID, toID
		if secondID < firstID {
			firstID, secondID = secondID, firstID
		}
		if _, err := lockWallet(tx, firstID); err != nil {
			return err
		}
		if _, err := lockWallet(tx, secondID); err != nil {
			return err
		}

		if _, err := debit(tx, fromID, amount, models.TransactionTypeTransfer, description, reference); err != nil {
			return err
		}
		if _, err := credit(tx, toID, amount, models.TransactionTypeTransfer, description, reference); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return reference, nil
}

// DepositTx is the deposit leg usable inside a caller-owned transaction, so
// settlement and refunds can pair a balance change with their own writes.
func DepositTx(tx *gorm.DB, walletID uint, amount models.Money, description, reference string) (*models.Transaction, error) {
	return credit(tx, walletID, amount, models.TransactionTypeDeposit, description, reference)
}

// WithdrawTx is the withdrawal leg usable inside a caller-owned transaction.
func WithdrawTx(tx *gorm.DB, walletID uint, amount models.Money, description, reference string) (*models.Transaction, error) {
	return debit(tx, walletID, amount, models.TransactionTypeWithdrawal, description, reference)
}

// PayTx debits a wallet for an order payment, recorded as a PAYMENT entry.
func PayTx(tx *gorm.DB, walletID uint, amount models.Money, description, reference string) (*models.Transaction, error) {
	return debit(tx, walletID, amount, models.TransactionTypePayment, description, reference)
}

// RefundTx credits a refunded payment back, recorded as a REFUND entry.
func RefundTx(tx *gorm.DB, walletID uint, amount models.Money, description, reference string) (*models.Transaction, error) {
	return credit(tx, walletID, amount, models.TransactionTypeRefund, description, reference)
}

func credit(tx *gorm.DB, walletID uint, amount models.Money, txnType models.TransactionType, description, reference string) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	return applyDelta(tx, walletID, amount, txnType, description, reference)
}

func debit(tx *gorm.DB, walletID uint, amount models.Money, txnType models.TransactionType, description, reference string) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	return applyDelta(tx, walletID, -amount, txnType, description, reference)
}

// applyDelta performs the locked read-modify-write shared by all ledger
// operations. delta is signed: negative for debits.
func applyDelta(tx *gorm.DB, walletID uint, delta models.Money, txnType models.TransactionType, description, reference string) (*models.Transaction, error) {
	wallet, err := lockWallet(tx, walletID)
	if err != nil {
		return nil, err
	}
	if !wallet.IsActive {
		return nil, ErrWalletInactive
	}

	newBalance := wallet.Balance + delta
	if newBalance < 0 {
		return nil, ErrInsufficientFunds
	}

	if err := tx.Model(wallet).Update("balance", newBalance).Error; err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}

	txn := models.Transaction{
		WalletID:     walletID,
		Amount:       delta,
		BalanceAfter: newBalance,
		Type:         txnType,
		Description:  description,
		Reference:    reference,
	}
	if err := tx.Create(&txn).Error; err != nil {
		return nil, fmt.Errorf("create ledger entry: %w", err)
	}
	return &txn, nil
}

// lockWallet loads the wallet row under an exclusive lock so concurrent
// operations on the same wallet cannot interleave their read-modify-write.
// SQLite rejects FOR UPDATE syntax; its single-writer lock already serializes
// the transaction.
func lockWallet(tx *gorm.DB, walletID uint) (*models.Wallet, error) {
	q := tx
	if tx.Dialector.Name() != "sqlite" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var wallet models.Wallet
	if err := q.First(&wallet, walletID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &wallet, nil
}
