package models

import "fmt"

// Money is an amount in the smallest currency unit. It is shared by the
// wallet ledger and the order subsystem so amounts are never mixed with
// plain integers by accident.
type Money int64

// IsPositive reports whether the amount is strictly greater than zero.
func (m Money) IsPositive() bool {
	return m > 0
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool {
	return m < 0
}

// PercentOff returns the amount after applying a percentage discount.
// A 100 percent discount yields zero.
func (m Money) PercentOff(percentage uint) Money {
	if percentage >= 100 {
		return 0
	}
	return m * Money(100-percentage) / 100
}

func (m Money) String() string {
	return fmt.Sprintf("%d", int64(m))
}
