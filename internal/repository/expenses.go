package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rongwang/expense-tracker-server/internal/models"
	"github.com/shopspring/decimal"
)

// dateLayout is how calendar dates are bound against DATE columns
const dateLayout = "2006-01-02"

func (r *PostgresRepository) CreateExpense(ctx context.Context, expense *models.Expense) error {
	query := `
		INSERT INTO expenses (id, user_id, category, note, amount, date, type, is_recurring, created_at)
		VALUES ($1, $2, $3, $4, $5, $6::date, $7, $8, $9)
	`

	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.Type == "" {
		expense.Type = models.ExpenseDaily
	}
	expense.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, query,
		expense.ID, expense.UserID, expense.Category, expense.Note, expense.Amount,
		expense.Date.Format(dateLayout), expense.Type, expense.IsRecurring, expense.CreatedAt)
	return err
}

func (r *PostgresRepository) GetExpense(ctx context.Context, id string) (*models.Expense, error) {
	return getOne[models.Expense](ctx, r.db, `SELECT * FROM expenses WHERE id = $1`, id)
}

// ListExpenses returns the expenses of a user, optionally limited to dates in [from, to)
func (r *PostgresRepository) ListExpenses(ctx context.Context, userID string, from, to *time.Time) ([]models.Expense, error) {
	conds := []string{"user_id = $1"}
	args := []interface{}{userID}
	if from != nil {
		args = append(args, from.Format(dateLayout))
		conds = append(conds, fmt.Sprintf("date >= $%d::date", len(args)))
	}
	if to != nil {
		args = append(args, to.Format(dateLayout))
		conds = append(conds, fmt.Sprintf("date < $%d::date", len(args)))
	}

	query := `SELECT * FROM expenses WHERE ` + strings.Join(conds, " AND ") +
		` ORDER BY date DESC, created_at DESC`

	expenses := []models.Expense{}
	if err := r.db.SelectContext(ctx, &expenses, query, args...); err != nil {
		return nil, err
	}
	return expenses, nil
}

func (r *PostgresRepository) UpdateExpense(ctx context.Context, expense *models.Expense) error {
	query := `
		UPDATE expenses
		SET category = $1, note = $2, amount = $3, date = $4::date, type = $5, is_recurring = $6
		WHERE id = $7
	`
	res, err := r.db.ExecContext(ctx, query,
		expense.Category, expense.Note, expense.Amount, expense.Date.Format(dateLayout),
		expense.Type, expense.IsRecurring, expense.ID)
	if err != nil {
		return err
	}
	return rowsAffected(res)
}

func (r *PostgresRepository) DeleteExpense(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return rowsAffected(res)
}

// SumExpenses totals the expenses of a user dated in [from, to)
func (r *PostgresRepository) SumExpenses(ctx context.Context, userID string, from, to time.Time) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0) FROM expenses
		WHERE user_id = $1 AND date >= $2::date AND date < $3::date
	`

	var total decimal.Decimal
	if err := r.db.GetContext(ctx, &total, query, userID, from.Format(dateLayout), to.Format(dateLayout)); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// ExpenseCategoryTotals groups the expenses of a user dated in [from, to) by category, largest first
func (r *PostgresRepository) ExpenseCategoryTotals(ctx context.Context, userID string, from, to time.Time) ([]models.CategoryTotal, error) {
	query := `
		SELECT category, SUM(amount) AS total, COUNT(*) AS count
		FROM expenses
		WHERE user_id = $1 AND date >= $2::date AND date < $3::date
		GROUP BY category
		ORDER BY total DESC
	`

	totals := []models.CategoryTotal{}
	if err := r.db.SelectContext(ctx, &totals, query, userID, from.Format(dateLayout), to.Format(dateLayout)); err != nil {
		return nil, err
	}
	return totals, nil
}
