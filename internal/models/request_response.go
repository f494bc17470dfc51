package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Request models. Money fields are pointers so "required" can tell a missing
// value from zero; the "money" tag rejects negatives and sub-cent precision.
type RegisterRequest struct {
	Name     string `json:"name" form:"name" binding:"required,min=2,max=100"`
	Username string `json:"username" form:"username" binding:"required,min=3,max=50,excludes=@"`
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Identifier string `json:"identifier" form:"identifier" binding:"required,min=3"`
	Password   string `json:"password" form:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	Name     string `json:"name" form:"name" binding:"required,min=2,max=100"`
	Username string `json:"username" form:"username" binding:"omitempty,min=3,max=50,excludes=@"`
	Email    string `json:"email" form:"email" binding:"required,email"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" form:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" form:"newPassword" binding:"required,min=6"`
}

type CreateWalletRequest struct {
	Name      string           `json:"name" form:"name" binding:"required,min=2,max=100"`
	Balance   *decimal.Decimal `json:"balance" form:"balance" binding:"required,money"`
	IsEnabled *bool            `json:"isEnabled" form:"isEnabled"`
}

type UpdateWalletRequest struct {
	Name      *string          `json:"name" form:"name" binding:"omitempty,min=2,max=100"`
	Balance   *decimal.Decimal `json:"balance" form:"balance" binding:"omitempty,money"`
	IsEnabled *bool            `json:"isEnabled" form:"isEnabled"`
}

type CreateTransactionRequest struct {
	WalletID        string           `json:"walletId" form:"walletId" binding:"required"`
	Amount          *decimal.Decimal `json:"amount" form:"amount" binding:"required,money"`
	Type            TransactionType  `json:"transactionType" form:"transactionType" binding:"required,oneof=expense add_funds deduct_funds update_balance"`
	CategoryID      *string          `json:"categoryId" form:"categoryId"`
	Note            *string          `json:"note" form:"note" binding:"omitempty,max=255"`
	TransactionDate *time.Time       `json:"transactionDate" form:"transactionDate" time_format:"2006-01-02T15:04:05Z07:00"`
}

type UpdateTransactionRequest struct {
	Note *string `json:"note" form:"note" binding:"omitempty,max=255"`
}

type BudgetRequest struct {
	TotalBudget *decimal.Decimal `json:"totalBudget" form:"totalBudget" binding:"required,money"`
	Month       string           `json:"month" form:"month"`
	Year        int              `json:"year" form:"year"`
}

type UpdateBudgetRequest struct {
	TotalBudget *decimal.Decimal `json:"totalBudget" form:"totalBudget" binding:"required,money"`
}

type PeriodRequest struct {
	Month string `json:"month" form:"month"`
	Year  int    `json:"year" form:"year"`
}

type CategoryRequest struct {
	Name  string `json:"name" form:"name" binding:"required,max=100"`
	Icon  string `json:"icon" form:"icon" binding:"max=50"`
	Color string `json:"color" form:"color" binding:"max=20"`
}

type UpdateCategoryRequest struct {
	Name  *string `json:"name" form:"name" binding:"omitempty,min=1,max=100"`
	Icon  *string `json:"icon" form:"icon" binding:"omitempty,max=50"`
	Color *string `json:"color" form:"color" binding:"omitempty,max=20"`
}

type ExpenseRequest struct {
	Category    string           `json:"category" form:"category" binding:"required,max=50"`
	Note        *string          `json:"note" form:"note" binding:"omitempty,max=255"`
	Amount      *decimal.Decimal `json:"amount" form:"amount" binding:"required,money"`
	Date        string           `json:"date" form:"date" binding:"required,datetime=2006-01-02"`
	Type        ExpenseType      `json:"type" form:"type" binding:"omitempty,oneof=daily other"`
	IsRecurring bool             `json:"isRecurring" form:"isRecurring"`
}

type UpdateExpenseRequest struct {
	Category    *string          `json:"category" form:"category" binding:"omitempty,max=50"`
	Note        *string          `json:"note" form:"note" binding:"omitempty,max=255"`
	Amount      *decimal.Decimal `json:"amount" form:"amount" binding:"omitempty,money"`
	Date        *string          `json:"date" form:"date" binding:"omitempty,datetime=2006-01-02"`
	Type        *ExpenseType     `json:"type" form:"type" binding:"omitempty,oneof=daily other"`
	IsRecurring *bool            `json:"isRecurring" form:"isRecurring"`
}

type SettingsRequest struct {
	DailyBudget *decimal.Decimal `json:"dailyBudget" form:"dailyBudget" binding:"required,money"`
}

type UpdateSettingsRequest struct {
	DailyBudget *decimal.Decimal `json:"dailyBudget" form:"dailyBudget" binding:"omitempty,money"`
}

// Response models
type APIResponse struct {
	Status  string            `json:"status"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message,omitempty"`
	Data    interface{}       `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

type AuthResponse struct {
	User      *User  `json:"user"`
	Token     string `json:"token,omitempty"`
	ExpiresIn int    `json:"expiresIn,omitempty"`
}

type TodayTotalResponse struct {
	Total decimal.Decimal `json:"total"`
	Date  string          `json:"date"`
}
