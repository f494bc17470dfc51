package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rongwang/expense-tracker-server/internal/ledger"
	"github.com/rongwang/expense-tracker-server/internal/models"
	"github.com/shopspring/decimal"
)

// Repository interface defines the methods that any repository implementation must satisfy.
// Single-row getters return nil, nil when the row does not exist.
type Repository interface {
	// User operations
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	IdentityTaken(ctx context.Context, username, email, excludeUserID string) (bool, error)
	UpdateUser(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error

	// Category operations
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	UpdateCategory(ctx context.Context, category *models.Category) error
	DeleteCategory(ctx context.Context, id string) error

	// Wallet operations
	CreateWallet(ctx context.Context, wallet *models.Wallet) error
	GetWallet(ctx context.Context, id string) (*models.Wallet, error)
	ListWallets(ctx context.Context, userID string, enabledOnly bool) ([]models.Wallet, error)
	UpdateWallet(ctx context.Context, wallet *models.Wallet, balanceChange *models.Transaction) error
	DeleteWallet(ctx context.Context, id string) error
	AdjustWalletBalance(ctx context.Context, id string, adj ledger.Adjustment) (*models.Wallet, error)

	// Transaction ledger operations
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransaction(ctx context.Context, id string) (*models.TransactionDetail, error)
	DeleteTransaction(ctx context.Context, userID, id string) (*models.Transaction, error)
	UpdateTransactionNote(ctx context.Context, id string, note *string) error
	ListTransactions(ctx context.Context, userID string, filter models.TransactionFilter) ([]models.TransactionDetail, error)
	SumExpenseTransactions(ctx context.Context, userID string, from, to time.Time) (decimal.Decimal, error)

	// Budget operations
	GetBudget(ctx context.Context, userID string, period models.Period) (*models.Budget, error)
	GetBudgetByID(ctx context.Context, id string) (*models.Budget, error)
	UpsertBudget(ctx context.Context, budget *models.Budget) error
	UpdateBudgetTotal(ctx context.Context, id string, total decimal.Decimal) (*models.Budget, error)
	RecomputeBudgetSpent(ctx context.Context, userID string, period models.Period) (*models.Budget, error)

	// Settings operations
	GetSettings(ctx context.Context, userID string) (*models.UserSettings, error)
	GetSettingsByID(ctx context.Context, id string) (*models.UserSettings, error)
	UpsertSettings(ctx context.Context, userID string, dailyBudget decimal.Decimal) (*models.UserSettings, error)
	UpdateSettings(ctx context.Context, id string, dailyBudget decimal.Decimal) (*models.UserSettings, error)
	RecalculateTotalExpenses(ctx context.Context, userID string) (*models.UserSettings, error)

	// Legacy expense operations
	CreateExpense(ctx context.Context, expense *models.Expense) error
	GetExpense(ctx context.Context, id string) (*models.Expense, error)
	ListExpenses(ctx context.Context, userID string, from, to *time.Time) ([]models.Expense, error)
	UpdateExpense(ctx context.Context, expense *models.Expense) error
	DeleteExpense(ctx context.Context, id string) error
	SumExpenses(ctx context.Context, userID string, from, to time.Time) (decimal.Decimal, error)
	ExpenseCategoryTotals(ctx context.Context, userID string, from, to time.Time) ([]models.CategoryTotal, error)
}

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
	}
}

// GetDB returns the underlying database connection
func (r *PostgresRepository) GetDB() *sqlx.DB {
	return r.db
}

// Postgres error codes the repository translates
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	checkViolation      = "23514"
)

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func rowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// getOne runs a single-row query and maps sql.ErrNoRows to a nil result
func getOne[T any](ctx context.Context, q sqlx.QueryerContext, query string, args ...interface{}) (*T, error) {
	var dest T
	if err := sqlx.GetContext(ctx, q, &dest, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &dest, nil
}

// User repository methods
func (r *PostgresRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, name, username, email, password, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	// Generate a new UUID if not provided
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Name, user.Username, user.Email, user.Password, user.CreatedAt, user.UpdatedAt)
	if pqCode(err) == uniqueViolation {
		return models.ErrUserAlreadyExists
	}
	return err
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return getOne[models.User](ctx, r.db, `SELECT * FROM users WHERE id = $1`, id)
}

// GetUserByIdentifier finds a user whose username or email equals identifier.
// An email match wins over a username match.
func (r *PostgresRepository) GetUserByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	query := `
		SELECT * FROM users
		WHERE username = $1 OR LOWER(email) = LOWER($1)
		ORDER BY (LOWER(email) = LOWER($1)) DESC
		LIMIT 1
	`
	return getOne[models.User](ctx, r.db, query, identifier)
}

// IdentityTaken reports whether another user already owns username or email,
// in either field
func (r *PostgresRepository) IdentityTaken(ctx context.Context, username, email, excludeUserID string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM users
			WHERE (username IN ($1, $2) OR LOWER(email) IN (LOWER($1), LOWER($2))) AND id <> $3
		)
	`

	var taken bool
	if err := r.db.GetContext(ctx, &taken, query, username, email, excludeUserID); err != nil {
		return false, err
	}
	return taken, nil
}

func (r *PostgresRepository) UpdateUser(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users SET name = $1, username = $2, email = $3, updated_at = $4
		WHERE id = $5
	`

	user.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, query, user.Name, user.Username, user.Email, user.UpdatedAt, user.ID)
	if err != nil {
		if pqCode(err) == uniqueViolation {
			return models.ErrUserAlreadyExists
		}
		return err
	}
	return rowsAffected(res)
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password = $1, updated_at = $2 WHERE id = $3`,
		passwordHash, time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	return rowsAffected(res)
}

func (r *PostgresRepository) beginTx(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return tx, nil
}
