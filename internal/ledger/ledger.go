// Package ledger holds the balance arithmetic behind wallet transactions.
//
// Apply computes the effect of a new transaction on a wallet balance and
// Reverse computes the compensating adjustment when that transaction is
// deleted. Both are pure; callers run them while holding the wallet row lock.
package ledger

import (
	"fmt"

	"github.com/rongwang/expense-tracker-server/internal/models"
	"github.com/shopspring/decimal"
)

// Direction of a wallet adjustment
type Direction string

const (
	Add      Direction = "add"
	Subtract Direction = "subtract"
)

// Entry is the before/after bookkeeping of one applied transaction
type Entry struct {
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
}

// Adjustment is a signed change to a wallet balance
type Adjustment struct {
	Direction Direction
	Amount    decimal.Decimal
}

// Delta returns the adjustment as a signed amount
func (a Adjustment) Delta() decimal.Decimal {
	if a.Direction == Subtract {
		return a.Amount.Neg()
	}
	return a.Amount
}

// ApplyTo returns balance after the adjustment
func (a Adjustment) ApplyTo(balance decimal.Decimal) decimal.Decimal {
	return balance.Add(a.Delta())
}

// Settle is ApplyTo that refuses to leave the balance negative
func (a Adjustment) Settle(balance decimal.Decimal) (decimal.Decimal, error) {
	next := a.ApplyTo(balance)
	if next.IsNegative() {
		return decimal.Zero, models.ErrInsufficientFunds
	}
	return next, nil
}

// ValidateAmount checks an amount against the rules of a transaction type.
// update_balance may set a wallet to zero; every other type moves a positive amount.
func ValidateAmount(t models.TransactionType, amount decimal.Decimal) error {
	if !t.Valid() {
		return models.NewValidationError("transactionType", fmt.Sprintf("unknown transaction type %q", t))
	}
	if amount.IsNegative() {
		return models.NewValidationError("amount", "amount must not be negative")
	}
	if !amount.Equal(amount.Round(2)) {
		return models.NewValidationError("amount", "amount must have at most 2 decimal places")
	}
	if t != models.TransactionUpdateBalance && amount.IsZero() {
		return models.NewValidationError("amount", "amount must be greater than zero")
	}
	return nil
}

// Apply computes the wallet balance after a transaction of type t and amount.
// expense and deduct_funds fail with ErrInsufficientFunds when the balance
// does not cover the amount.
func Apply(t models.TransactionType, balance, amount decimal.Decimal) (Entry, error) {
	if err := ValidateAmount(t, amount); err != nil {
		return Entry{}, err
	}

	entry := Entry{BalanceBefore: balance}
	switch t {
	case models.TransactionExpense, models.TransactionDeductFunds:
		if balance.LessThan(amount) {
			return Entry{}, models.ErrInsufficientFunds
		}
		entry.BalanceAfter = balance.Sub(amount)
	case models.TransactionAddFunds:
		entry.BalanceAfter = balance.Add(amount)
	case models.TransactionUpdateBalance:
		entry.BalanceAfter = amount
	}
	return entry, nil
}

// Reverse computes the adjustment that undoes tx on its wallet.
// update_balance is undone by its recorded delta (after - before), so a later
// movement on the same wallet is preserved.
func Reverse(tx *models.Transaction) (Adjustment, error) {
	switch tx.Type {
	case models.TransactionExpense, models.TransactionDeductFunds:
		return Adjustment{Direction: Add, Amount: tx.Amount}, nil
	case models.TransactionAddFunds:
		return Adjustment{Direction: Subtract, Amount: tx.Amount}, nil
	case models.TransactionUpdateBalance:
		delta := tx.BalanceAfter.Sub(tx.BalanceBefore)
		if delta.IsNegative() {
			return Adjustment{Direction: Add, Amount: delta.Neg()}, nil
		}
		return Adjustment{Direction: Subtract, Amount: delta}, nil
	}
	return Adjustment{}, fmt.Errorf("reverse transaction %s: unknown type %q", tx.ID, tx.Type)
}

// ExpenseDelta is the change to the running total_expenses counter caused by
// creating (sign +1) or deleting (sign -1) tx.
func ExpenseDelta(tx *models.Transaction, sign int) decimal.Decimal {
	if tx.Type != models.TransactionExpense {
		return decimal.Zero
	}
	if sign < 0 {
		return tx.Amount.Neg()
	}
	return tx.Amount
}
