package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rongwang/expense-tracker-server/internal/ledger"
	"github.com/rongwang/expense-tracker-server/internal/models"
	"github.com/shopspring/decimal"
)

func (r *PostgresRepository) CreateWallet(ctx context.Context, wallet *models.Wallet) error {
	query := `
		INSERT INTO wallets (id, user_id, name, balance, is_enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if wallet.ID == "" {
		wallet.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	wallet.CreatedAt = now
	wallet.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		wallet.ID, wallet.UserID, wallet.Name, wallet.Balance, wallet.IsEnabled, wallet.CreatedAt, wallet.UpdatedAt)
	return err
}

func (r *PostgresRepository) GetWallet(ctx context.Context, id string) (*models.Wallet, error) {
	return getOne[models.Wallet](ctx, r.db, `SELECT * FROM wallets WHERE id = $1`, id)
}

func (r *PostgresRepository) ListWallets(ctx context.Context, userID string, enabledOnly bool) ([]models.Wallet, error) {
	query := `SELECT * FROM wallets WHERE user_id = $1`
	if enabledOnly {
		query += ` AND is_enabled = TRUE`
	}
	query += ` ORDER BY created_at ASC`

	wallets := []models.Wallet{}
	if err := r.db.SelectContext(ctx, &wallets, query, userID); err != nil {
		return nil, err
	}
	return wallets, nil
}

// UpdateWallet writes name and is_enabled. The balance only moves through the
// ledger: a non-nil balanceChange is booked in the same database transaction,
// so the rename and the balance change commit or fail together.
func (r *PostgresRepository) UpdateWallet(ctx context.Context, wallet *models.Wallet, balanceChange *models.Transaction) (err error) {
	tx, err := r.beginTx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	wallet.UpdatedAt = time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`UPDATE wallets SET name = $1, is_enabled = $2, updated_at = $3 WHERE id = $4`,
		wallet.Name, wallet.IsEnabled, wallet.UpdatedAt, wallet.ID)
	if err != nil {
		return err
	}
	if err = rowsAffected(res); err != nil {
		return err
	}

	if balanceChange != nil {
		if err = insertTransaction(ctx, tx, balanceChange); err != nil {
			return err
		}
		wallet.Balance = balanceChange.BalanceAfter
	}

	return tx.Commit()
}

// DeleteWallet removes a wallet that no transaction references
func (r *PostgresRepository) DeleteWallet(ctx context.Context, id string) (err error) {
	tx, err := r.beginTx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = lockWallet(ctx, tx, id); err != nil {
		return err
	}

	var used bool
	err = tx.GetContext(ctx, &used, `SELECT EXISTS(SELECT 1 FROM transactions WHERE wallet_id = $1)`, id)
	if err != nil {
		return err
	}
	if used {
		err = models.ErrWalletHasTransactions
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM wallets WHERE id = $1`, id); err != nil {
		return err
	}

	return tx.Commit()
}

// AdjustWalletBalance moves a wallet balance by adj under a row lock. It
// fails with ErrInsufficientFunds when the result would be negative.
func (r *PostgresRepository) AdjustWalletBalance(ctx context.Context, id string, adj ledger.Adjustment) (_ *models.Wallet, err error) {
	tx, err := r.beginTx(ctx)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	wallet, err := lockWallet(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err = adjustWallet(ctx, tx, wallet, adj); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return wallet, nil
}

// adjustWallet applies adj to a wallet already locked by tx and writes the new balance
func adjustWallet(ctx context.Context, tx *sqlx.Tx, wallet *models.Wallet, adj ledger.Adjustment) error {
	next, err := adj.Settle(wallet.Balance)
	if err != nil {
		return err
	}
	wallet.Balance = next
	return writeWalletBalance(ctx, tx, wallet)
}

// lockWallet loads a wallet with SELECT ... FOR UPDATE, holding the row until tx ends
func lockWallet(ctx context.Context, tx *sqlx.Tx, id string) (*models.Wallet, error) {
	wallet, err := getOne[models.Wallet](ctx, tx, `SELECT * FROM wallets WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, fmt.Errorf("lock wallet: %w", err)
	}
	if wallet == nil {
		return nil, models.ErrNotFound
	}
	return wallet, nil
}

func writeWalletBalance(ctx context.Context, tx *sqlx.Tx, wallet *models.Wallet) error {
	wallet.UpdatedAt = time.Now().UTC()
	_, err := tx.ExecContext(ctx,
		`UPDATE wallets SET balance = $1, updated_at = $2 WHERE id = $3`,
		wallet.Balance, wallet.UpdatedAt, wallet.ID)
	if err != nil {
		// wallets.balance carries CHECK (balance >= 0)
		if pqCode(err) == checkViolation {
			return models.ErrInsufficientFunds
		}
		return fmt.Errorf("write wallet balance: %w", err)
	}
	return nil
}

// addTotalExpenses moves the running expense counter of a user, creating the settings row if needed
func addTotalExpenses(ctx context.Context, tx *sqlx.Tx, userID string, delta decimal.Decimal) error {
	query := `
		INSERT INTO user_settings (id, user_id, daily_budget, total_expenses, created_at, updated_at)
		VALUES ($1, $2, 0, $3, $4, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET total_expenses = user_settings.total_expenses + EXCLUDED.total_expenses,
			updated_at = EXCLUDED.updated_at
	`
	_, err := tx.ExecContext(ctx, query, uuid.New().String(), userID, delta, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update total expenses: %w", err)
	}
	return nil
}
