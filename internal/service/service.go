package service

import (
	"context"
	"errors"
	"time"

	"github.com/rongwang/expense-tracker-server/internal/cache"
	"github.com/rongwang/expense-tracker-server/internal/events"
	"github.com/rongwang/expense-tracker-server/internal/models"
	"github.com/rongwang/expense-tracker-server/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Service defines all the business logic operations.
// userID is always the authenticated caller; rows of other users are reported as not found.
type Service interface {
	// Authentication
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	Profile(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error)
	ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error

	// Wallets
	CreateWallet(ctx context.Context, userID string, req models.CreateWalletRequest) (*models.Wallet, error)
	GetWallet(ctx context.Context, userID, id string) (*models.Wallet, error)
	ListWallets(ctx context.Context, userID string, enabledOnly bool) ([]models.Wallet, error)
	UpdateWallet(ctx context.Context, userID, id string, req models.UpdateWalletRequest) (*models.Wallet, error)
	DeleteWallet(ctx context.Context, userID, id string) error

	// Transaction ledger
	CreateTransaction(ctx context.Context, userID string, req models.CreateTransactionRequest) (*models.Transaction, error)
	GetTransaction(ctx context.Context, userID, id string) (*models.TransactionDetail, error)
	UpdateTransaction(ctx context.Context, userID, id string, req models.UpdateTransactionRequest) (*models.TransactionDetail, error)
	DeleteTransaction(ctx context.Context, userID, id string) error
	ListTransactions(ctx context.Context, userID string, filter models.TransactionFilter) ([]models.TransactionDetail, error)
	TodayTotal(ctx context.Context, userID string) (*models.TodayTotalResponse, error)
	DateRange(ctx context.Context, userID string, start, end time.Time) ([]models.TransactionDetail, error)

	// Budgets
	GetBudget(ctx context.Context, userID string, req models.PeriodRequest) (*models.Budget, error)
	SaveBudget(ctx context.Context, userID string, req models.BudgetRequest) (*models.Budget, error)
	UpdateBudget(ctx context.Context, userID, id string, req models.UpdateBudgetRequest) (*models.Budget, error)
	RecomputeBudget(ctx context.Context, userID string, req models.PeriodRequest) (*models.Budget, error)

	// Categories
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	CreateCategory(ctx context.Context, req models.CategoryRequest) (*models.Category, error)
	UpdateCategory(ctx context.Context, id string, req models.UpdateCategoryRequest) (*models.Category, error)
	DeleteCategory(ctx context.Context, id string) error

	// Legacy expenses
	CreateExpense(ctx context.Context, userID string, req models.ExpenseRequest) (*models.Expense, error)
	GetExpense(ctx context.Context, userID, id string) (*models.Expense, error)
	ListExpenses(ctx context.Context, userID string) ([]models.Expense, error)
	UpdateExpense(ctx context.Context, userID, id string, req models.UpdateExpenseRequest) (*models.Expense, error)
	DeleteExpense(ctx context.Context, userID, id string) error
	TodayExpenses(ctx context.Context, userID string) ([]models.Expense, error)
	MonthlyExpenses(ctx context.Context, userID string, req models.PeriodRequest) ([]models.Expense, error)
	ExpenseSummary(ctx context.Context, userID string) (*models.ExpenseSummary, error)

	// User settings
	GetSettings(ctx context.Context, userID string) (*models.UserSettings, error)
	SaveSettings(ctx context.Context, userID string, req models.SettingsRequest) (*models.UserSettings, error)
	UpdateSettings(ctx context.Context, userID, id string, req models.UpdateSettingsRequest) (*models.UserSettings, error)
	RecalculateTotalExpenses(ctx context.Context, userID string) (*models.UserSettings, error)
}

// DefaultService implements the Service interface
type DefaultService struct {
	repo          repository.Repository
	jwtSecret     []byte
	tokenDuration time.Duration
	bcryptCost    int
	dummyHash     []byte
	categories    cache.CategoryCache
	publisher     events.Publisher
	logger        *zap.Logger
	now           func() time.Time
}

// Option customises a DefaultService
type Option func(*DefaultService)

func WithTokenDuration(d time.Duration) Option {
	return func(s *DefaultService) { s.tokenDuration = d }
}

func WithBcryptCost(cost int) Option {
	return func(s *DefaultService) { s.bcryptCost = cost }
}

func WithCategoryCache(c cache.CategoryCache) Option {
	return func(s *DefaultService) { s.categories = c }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *DefaultService) { s.publisher = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *DefaultService) { s.logger = l }
}

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(s *DefaultService) { s.now = now }
}

// NewDefaultService creates a new DefaultService
func NewDefaultService(repo repository.Repository, jwtSecret string, opts ...Option) *DefaultService {
	s := &DefaultService{
		repo:          repo,
		jwtSecret:     []byte(jwtSecret),
		tokenDuration: 24 * time.Hour, // 24 hours token validity
		bcryptCost:    bcrypt.DefaultCost,
		categories:    cache.Noop{},
		publisher:     events.Noop{},
		logger:        zap.NewNop(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Compared against when a login names an unknown user so both paths cost one bcrypt run
	s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.bcryptCost)
	return s
}

// requireMoney checks a money input: present, not negative, at most two decimals
func requireMoney(field string, v *decimal.Decimal) (decimal.Decimal, error) {
	if v == nil {
		return decimal.Zero, models.NewValidationError(field, field+" is required")
	}
	if err := checkMoney(field, *v); err != nil {
		return decimal.Zero, err
	}
	return *v, nil
}

func checkMoney(field string, v decimal.Decimal) error {
	if v.IsNegative() {
		return models.NewValidationError(field, field+" must not be negative")
	}
	if !v.Equal(v.Round(2)) {
		return models.NewValidationError(field, field+" must have at most 2 decimal places")
	}
	return nil
}

// logIgnoring logs err unless it matches one of the expected sentinels
func (s *DefaultService) logIgnoring(msg string, err error, expected error, fields ...zap.Field) {
	if err == nil || errors.Is(err, expected) {
		return
	}
	s.logger.Warn(msg, append(fields, zap.Error(err))...)
}
