package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rongwang/expense-tracker-server/internal/ledger"
	"github.com/rongwang/expense-tracker-server/internal/models"
	"github.com/shopspring/decimal"
)

const transactionDetailSelect = `
	SELECT t.*,
		w.name AS wallet_name,
		w.balance AS current_wallet_balance,
		c.name AS category_name
	FROM transactions t
	LEFT JOIN wallets w ON w.id = t.wallet_id
	LEFT JOIN categories c ON c.id = t.category_id
`

// CreateTransaction records tx and applies it to its wallet in one database
// transaction. The wallet row is locked for the whole unit; on any failure
// nothing is written. BalanceBefore and BalanceAfter are filled in on success.
func (r *PostgresRepository) CreateTransaction(ctx context.Context, t *models.Transaction) (err error) {
	tx, err := r.beginTx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = insertTransaction(ctx, tx, t); err != nil {
		return err
	}

	return tx.Commit()
}

// insertTransaction locks the wallet of t, books t against it and updates the
// expense counter, all inside tx
func insertTransaction(ctx context.Context, tx *sqlx.Tx, t *models.Transaction) error {
	wallet, err := lockWallet(ctx, tx, t.WalletID)
	if errors.Is(err, models.ErrNotFound) || (err == nil && wallet.UserID != t.UserID) {
		return models.ErrInvalidWallet
	}
	if err != nil {
		return err
	}

	entry, err := ledger.Apply(t.Type, wallet.Balance, t.Amount)
	if err != nil {
		return err
	}

	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if t.TransactionDate.IsZero() {
		t.TransactionDate = now
	}
	t.BalanceBefore = entry.BalanceBefore
	t.BalanceAfter = entry.BalanceAfter
	t.CreatedAt = now
	t.UpdatedAt = now

	query := `
		INSERT INTO transactions (id, user_id, wallet_id, category_id, note, amount,
			balance_before, balance_after, transaction_type, transaction_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = tx.ExecContext(ctx, query,
		t.ID, t.UserID, t.WalletID, t.CategoryID, t.Note, t.Amount,
		t.BalanceBefore, t.BalanceAfter, t.Type, t.TransactionDate, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if pqCode(err) == foreignKeyViolation {
			return models.NewValidationError("categoryId", "category does not exist")
		}
		return fmt.Errorf("insert transaction: %w", err)
	}

	wallet.Balance = entry.BalanceAfter
	if err := writeWalletBalance(ctx, tx, wallet); err != nil {
		return err
	}

	if delta := ledger.ExpenseDelta(t, 1); !delta.IsZero() {
		return addTotalExpenses(ctx, tx, t.UserID, delta)
	}
	return nil
}

func (r *PostgresRepository) GetTransaction(ctx context.Context, id string) (*models.TransactionDetail, error) {
	return getOne[models.TransactionDetail](ctx, r.db, transactionDetailSelect+` WHERE t.id = $1`, id)
}

// DeleteTransaction removes a transaction of userID and reverses its effect
// on the wallet and the expense counter. It refuses with ErrInsufficientFunds
// when the reversal would leave the wallet negative. The deleted row is returned.
func (r *PostgresRepository) DeleteTransaction(ctx context.Context, userID, id string) (_ *models.Transaction, err error) {
	tx, err := r.beginTx(ctx)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	t, err := getOne[models.Transaction](ctx, tx, `SELECT * FROM transactions WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, err
	}
	if t == nil || t.UserID != userID {
		err = models.ErrNotFound
		return nil, err
	}

	wallet, err := lockWallet(ctx, tx, t.WalletID)
	if err != nil {
		return nil, err
	}

	adj, err := ledger.Reverse(t)
	if err != nil {
		return nil, err
	}
	if err = adjustWallet(ctx, tx, wallet, adj); err != nil {
		return nil, err
	}

	if delta := ledger.ExpenseDelta(t, -1); !delta.IsZero() {
		if err = addTotalExpenses(ctx, tx, t.UserID, delta); err != nil {
			return nil, err
		}
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return t, nil
}

// UpdateTransactionNote changes the only mutable field of a transaction
func (r *PostgresRepository) UpdateTransactionNote(ctx context.Context, id string, note *string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET note = $1, updated_at = $2 WHERE id = $3`,
		note, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return rowsAffected(res)
}

// ListTransactions returns the transactions of a user matching every set
// filter field, newest first
func (r *PostgresRepository) ListTransactions(ctx context.Context, userID string, filter models.TransactionFilter) ([]models.TransactionDetail, error) {
	conds := []string{"t.user_id = $1"}
	args := []interface{}{userID}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.WalletID != "" {
		add("t.wallet_id = $%d", filter.WalletID)
	}
	if filter.Type != "" {
		add("t.transaction_type = $%d", filter.Type)
	}
	if filter.DateFrom != nil {
		add("t.transaction_date >= $%d", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		add("t.transaction_date < $%d", *filter.DateTo)
	}

	query := transactionDetailSelect +
		` WHERE ` + strings.Join(conds, " AND ") +
		` ORDER BY t.transaction_date DESC, t.created_at DESC`

	transactions := []models.TransactionDetail{}
	if err := r.db.SelectContext(ctx, &transactions, query, args...); err != nil {
		return nil, err
	}
	return transactions, nil
}

// SumExpenseTransactions totals expense transactions dated in [from, to)
func (r *PostgresRepository) SumExpenseTransactions(ctx context.Context, userID string, from, to time.Time) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE user_id = $1 AND transaction_type = 'expense'
			AND transaction_date >= $2 AND transaction_date < $3
	`

	var total decimal.Decimal
	if err := r.db.GetContext(ctx, &total, query, userID, from, to); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
