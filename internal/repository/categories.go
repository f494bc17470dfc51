package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rongwang/expense-tracker-server/internal/models"
)

func (r *PostgresRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	if err := r.db.SelectContext(ctx, &categories, `SELECT * FROM categories ORDER BY name ASC`); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *PostgresRepository) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	return getOne[models.Category](ctx, r.db, `SELECT * FROM categories WHERE id = $1`, id)
}

// CreateCategory inserts a category; names are unique ignoring case
func (r *PostgresRepository) CreateCategory(ctx context.Context, category *models.Category) error {
	query := `
		INSERT INTO categories (id, name, icon, color, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if category.ID == "" {
		category.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	category.CreatedAt = now
	category.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		category.ID, category.Name, category.Icon, category.Color, category.CreatedAt, category.UpdatedAt)
	if pqCode(err) == uniqueViolation {
		return models.ErrCategoryExists
	}
	return err
}

func (r *PostgresRepository) UpdateCategory(ctx context.Context, category *models.Category) error {
	category.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = $1, icon = $2, color = $3, updated_at = $4 WHERE id = $5`,
		category.Name, category.Icon, category.Color, category.UpdatedAt, category.ID)
	if err != nil {
		if pqCode(err) == uniqueViolation {
			return models.ErrCategoryExists
		}
		return err
	}
	return rowsAffected(res)
}

// DeleteCategory removes a category. Transactions that referenced it keep a NULL category_id.
func (r *PostgresRepository) DeleteCategory(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return rowsAffected(res)
}
