package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType enumerates the balance-affecting events a wallet accepts
type TransactionType string

const (
	TransactionExpense       TransactionType = "expense"
	TransactionAddFunds      TransactionType = "add_funds"
	TransactionDeductFunds   TransactionType = "deduct_funds"
	TransactionUpdateBalance TransactionType = "update_balance"
)

// Valid reports whether t is one of the known transaction types
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionExpense, TransactionAddFunds, TransactionDeductFunds, TransactionUpdateBalance:
		return true
	}
	return false
}

// ExpenseType classifies rows of the legacy expenses table
type ExpenseType string

const (
	ExpenseDaily ExpenseType = "daily"
	ExpenseOther ExpenseType = "other"
)

// User represents a user in the system
type User struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Username  string    `db:"username" json:"username"`
	Email     string    `db:"email" json:"email"`
	Password  string    `db:"password" json:"-"` // Password hash, not returned in JSON
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Wallet is a named balance bucket owned by a user
type Wallet struct {
	ID        string          `db:"id" json:"id"`
	UserID    string          `db:"user_id" json:"userId"`
	Name      string          `db:"name" json:"name"`
	Balance   decimal.Decimal `db:"balance" json:"balance"`
	IsEnabled bool            `db:"is_enabled" json:"isEnabled"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`
}

// Transaction records one balance-affecting event on a wallet.
// BalanceAfter is always BalanceBefore adjusted by Amount according to Type.
type Transaction struct {
	ID              string          `db:"id" json:"id"`
	UserID          string          `db:"user_id" json:"userId"`
	WalletID        string          `db:"wallet_id" json:"walletId"`
	CategoryID      *string         `db:"category_id" json:"categoryId"`
	Note            *string         `db:"note" json:"note"`
	Amount          decimal.Decimal `db:"amount" json:"amount"`
	BalanceBefore   decimal.Decimal `db:"balance_before" json:"balanceBefore"`
	BalanceAfter    decimal.Decimal `db:"balance_after" json:"balanceAfter"`
	Type            TransactionType `db:"transaction_type" json:"transactionType"`
	TransactionDate time.Time       `db:"transaction_date" json:"transactionDate"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updatedAt"`
}

// TransactionDetail is a transaction joined with its wallet and category names
type TransactionDetail struct {
	Transaction
	WalletName    *string          `db:"wallet_name" json:"walletName"`
	WalletBalance *decimal.Decimal `db:"current_wallet_balance" json:"currentWalletBalance"`
	CategoryName  *string          `db:"category_name" json:"categoryName"`
}

// Budget is the spending cap of a user for one month.
// Remaining is kept equal to TotalBudget - Spent.
type Budget struct {
	ID          string          `db:"id" json:"id"`
	UserID      string          `db:"user_id" json:"userId"`
	TotalBudget decimal.Decimal `db:"total_budget" json:"totalBudget"`
	Spent       decimal.Decimal `db:"spent" json:"spent"`
	Remaining   decimal.Decimal `db:"remaining" json:"remaining"`
	Month       string          `db:"month" json:"month"`
	Year        int             `db:"year" json:"year"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updatedAt"`
}

// Category is reference data used to classify transactions
type Category struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Icon      string    `db:"icon" json:"icon"`
	Color     string    `db:"color" json:"color"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// UserSettings holds per-user scalar preferences
type UserSettings struct {
	ID            string          `db:"id" json:"id"`
	UserID        string          `db:"user_id" json:"userId"`
	DailyBudget   decimal.Decimal `db:"daily_budget" json:"dailyBudget"`
	TotalExpenses decimal.Decimal `db:"total_expenses" json:"totalExpenses"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updatedAt"`
}

// Expense is a row of the legacy expenses table, kept alongside transactions
type Expense struct {
	ID          string          `db:"id" json:"id"`
	UserID      string          `db:"user_id" json:"userId"`
	Category    string          `db:"category" json:"category"`
	Note        *string         `db:"note" json:"note"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Date        time.Time       `db:"date" json:"date"`
	Type        ExpenseType     `db:"type" json:"type"`
	IsRecurring bool            `db:"is_recurring" json:"isRecurring"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
}

// CategoryTotal aggregates legacy expenses by category
type CategoryTotal struct {
	Category string          `db:"category" json:"category"`
	Total    decimal.Decimal `db:"total" json:"total"`
	Count    int             `db:"count" json:"count"`
}

// ExpenseSummary is the dashboard view over legacy expenses
type ExpenseSummary struct {
	TodayTotal   decimal.Decimal `json:"todayTotal"`
	MonthlyTotal decimal.Decimal `json:"monthlyTotal"`
	Categories   []CategoryTotal `json:"categories"`
}

// TransactionFilter narrows a transaction listing. Zero values are ignored.
type TransactionFilter struct {
	WalletID string
	Type     TransactionType
	DateFrom *time.Time
	DateTo   *time.Time
}
