package models

import "errors"

// Errors shared by the repository, service and API layers. Callers match
// them with errors.Is; layers add context with fmt.Errorf("...: %w").
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrCategoryExists     = errors.New("category already exists")
)

// Ledger rule violations
var (
	ErrInvalidWallet         = errors.New("invalid wallet")
	ErrInsufficientFunds     = errors.New("insufficient wallet balance")
	ErrWalletHasTransactions = errors.New("wallet has transactions")
	ErrNoBudget              = errors.New("no budget set for this period")
)

// ValidationError carries field-keyed messages for a rejected input
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// Unwrap lets errors.Is(err, ErrValidation) match
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError builds a ValidationError for a single field
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}
