package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rongwang/expense-tracker-server/internal/models"
	"github.com/shopspring/decimal"
)

func (r *PostgresRepository) GetBudget(ctx context.Context, userID string, period models.Period) (*models.Budget, error) {
	return getOne[models.Budget](ctx, r.db,
		`SELECT * FROM budgets WHERE user_id = $1 AND month = $2 AND year = $3`,
		userID, period.MonthName(), period.Year)
}

func (r *PostgresRepository) GetBudgetByID(ctx context.Context, id string) (*models.Budget, error) {
	return getOne[models.Budget](ctx, r.db, `SELECT * FROM budgets WHERE id = $1`, id)
}

// UpsertBudget creates the budget of (user, month, year) or updates its
// total. An existing row keeps its spent value; remaining follows the total.
// budget is overwritten with the stored row.
func (r *PostgresRepository) UpsertBudget(ctx context.Context, budget *models.Budget) error {
	query := `
		INSERT INTO budgets (id, user_id, total_budget, spent, remaining, month, year, created_at, updated_at)
		VALUES ($1, $2, $3, 0, $3, $4, $5, $6, $6)
		ON CONFLICT (user_id, month, year) DO UPDATE
		SET total_budget = EXCLUDED.total_budget,
			remaining = EXCLUDED.total_budget - budgets.spent,
			updated_at = EXCLUDED.updated_at
		RETURNING *
	`

	if budget.ID == "" {
		budget.ID = uuid.New().String()
	}
	return r.db.GetContext(ctx, budget, query,
		budget.ID, budget.UserID, budget.TotalBudget, budget.Month, budget.Year, time.Now().UTC())
}

func (r *PostgresRepository) UpdateBudgetTotal(ctx context.Context, id string, total decimal.Decimal) (*models.Budget, error) {
	query := `
		UPDATE budgets SET total_budget = $1, remaining = $1 - spent, updated_at = $2
		WHERE id = $3
		RETURNING *
	`
	budget, err := getOne[models.Budget](ctx, r.db, query, total, time.Now().UTC(), id)
	if err != nil {
		return nil, err
	}
	if budget == nil {
		return nil, models.ErrNotFound
	}
	return budget, nil
}

// RecomputeBudgetSpent sets spent to the sum of legacy expenses and expense
// transactions dated in the period, holding the budget row lock while it does.
// It returns ErrNoBudget when the period has no budget.
func (r *PostgresRepository) RecomputeBudgetSpent(ctx context.Context, userID string, period models.Period) (_ *models.Budget, err error) {
	tx, err := r.beginTx(ctx)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	budget, err := getOne[models.Budget](ctx, tx,
		`SELECT * FROM budgets WHERE user_id = $1 AND month = $2 AND year = $3 FOR UPDATE`,
		userID, period.MonthName(), period.Year)
	if err != nil {
		return nil, fmt.Errorf("lock budget: %w", err)
	}
	if budget == nil {
		err = models.ErrNoBudget
		return nil, err
	}

	start, end := period.Bounds(time.Local)
	query := `
		SELECT
			(SELECT COALESCE(SUM(amount), 0) FROM expenses
				WHERE user_id = $1 AND date >= $2::date AND date < $3::date)
			+
			(SELECT COALESCE(SUM(amount), 0) FROM transactions
				WHERE user_id = $1 AND transaction_type = 'expense'
					AND transaction_date >= $4 AND transaction_date < $5)
	`
	var spent decimal.Decimal
	err = tx.GetContext(ctx, &spent, query,
		userID, start.Format(dateLayout), end.Format(dateLayout), start, end)
	if err != nil {
		return nil, fmt.Errorf("sum spent: %w", err)
	}

	budget.Spent = spent
	budget.Remaining = budget.TotalBudget.Sub(spent)
	budget.UpdatedAt = time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`UPDATE budgets SET spent = $1, remaining = $2, updated_at = $3 WHERE id = $4`,
		budget.Spent, budget.Remaining, budget.UpdatedAt, budget.ID)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return budget, nil
}
