package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rongwang/expense-tracker-server/internal/models"
	"github.com/shopspring/decimal"
)

func (r *PostgresRepository) GetSettings(ctx context.Context, userID string) (*models.UserSettings, error) {
	return getOne[models.UserSettings](ctx, r.db, `SELECT * FROM user_settings WHERE user_id = $1`, userID)
}

func (r *PostgresRepository) GetSettingsByID(ctx context.Context, id string) (*models.UserSettings, error) {
	return getOne[models.UserSettings](ctx, r.db, `SELECT * FROM user_settings WHERE id = $1`, id)
}

// UpsertSettings sets the daily budget of a user, creating the row when missing
func (r *PostgresRepository) UpsertSettings(ctx context.Context, userID string, dailyBudget decimal.Decimal) (*models.UserSettings, error) {
	query := `
		INSERT INTO user_settings (id, user_id, daily_budget, total_expenses, created_at, updated_at)
		VALUES ($1, $2, $3, 0, $4, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET daily_budget = EXCLUDED.daily_budget, updated_at = EXCLUDED.updated_at
		RETURNING *
	`

	var settings models.UserSettings
	err := r.db.GetContext(ctx, &settings, query, uuid.New().String(), userID, dailyBudget, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *PostgresRepository) UpdateSettings(ctx context.Context, id string, dailyBudget decimal.Decimal) (*models.UserSettings, error) {
	settings, err := getOne[models.UserSettings](ctx, r.db,
		`UPDATE user_settings SET daily_budget = $1, updated_at = $2 WHERE id = $3 RETURNING *`,
		dailyBudget, time.Now().UTC(), id)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		return nil, models.ErrNotFound
	}
	return settings, nil
}

// RecalculateTotalExpenses rebuilds total_expenses from the expense transactions of a user
func (r *PostgresRepository) RecalculateTotalExpenses(ctx context.Context, userID string) (*models.UserSettings, error) {
	query := `
		INSERT INTO user_settings (id, user_id, daily_budget, total_expenses, created_at, updated_at)
		SELECT $1, $2, 0, COALESCE(SUM(amount), 0), $3, $3
		FROM transactions
		WHERE user_id = $2 AND transaction_type = 'expense'
		ON CONFLICT (user_id) DO UPDATE
		SET total_expenses = EXCLUDED.total_expenses, updated_at = EXCLUDED.updated_at
		RETURNING *
	`

	var settings models.UserSettings
	err := r.db.GetContext(ctx, &settings, query, uuid.New().String(), userID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return &settings, nil
}
