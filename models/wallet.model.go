package models

import (
	"gorm.io/gorm"
)

// TransactionType defines the type of wallet transaction
type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
	TransactionTypeTransfer   TransactionType = "TRANSFER"
	TransactionTypePayment    TransactionType = "PAYMENT"
	TransactionTypeRefund     TransactionType = "REFUND"
)

// Wallet holds a user's stored-value balance. One wallet per user, created
// together with the user. Balance is only ever changed through the ledger
// service; nothing else writes this column.
type Wallet struct {
	gorm.Model
	UserID   uint  `gorm:"uniqueIndex;not null" json:"userId"`
	Balance  Money `gorm:"not null;default:0" json:"balance"`
	IsActive bool  `gorm:"default:true" json:"isActive"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (Wallet) TableName() string {
	return "wallets"
}

// Transaction is an append-only ledger entry. Amount is signed: positive for
// credits, negative for debits. Rows are never updated or deleted, so the sum
// of amounts for a wallet always equals its current balance.
type Transaction struct {
	gorm.Model
	WalletID     uint            `gorm:"not null;index" json:"walletId"`
	Amount       Money           `gorm:"not null" json:"amount"`
	BalanceAfter Money           `gorm:"not null" json:"balanceAfter"`
	Type         TransactionType `gorm:"type:varchar(20);not null" json:"type"`
	Description  string          `gorm:"type:varchar(255)" json:"description"`
	Reference    string          `gorm:"type:varchar(100);index" json:"reference"`

	Wallet Wallet `gorm:"foreignKey:WalletID" json:"-"`
}

func (Transaction) TableName() string {
	return "wallet_transactions"
}

// IsDebit reports whether the entry removed funds.
func (t *Transaction) IsDebit() bool {
	return t.Amount < 0
}

// IsCredit reports whether the entry added funds.
func (t *Transaction) IsCredit() bool {
	return t.Amount > 0
}
