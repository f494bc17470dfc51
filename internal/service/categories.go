package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rongwang/expense-tracker-server/internal/models"
)

// ListCategories serves the category list from the cache when it can
func (s *DefaultService) ListCategories(ctx context.Context) ([]models.Category, error) {
	if categories, ok := s.categories.Categories(ctx); ok {
		return categories, nil
	}

	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing categories: %w", err)
	}
	s.categories.StoreCategories(ctx, categories)
	return categories, nil
}

func (s *DefaultService) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	category, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error getting category: %w", err)
	}
	if category == nil {
		return nil, models.ErrNotFound
	}
	return category, nil
}

func (s *DefaultService) CreateCategory(ctx context.Context, req models.CategoryRequest) (*models.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, models.NewValidationError("name", "name is required")
	}

	category := &models.Category{
		ID:    uuid.New().String(),
		Name:  name,
		Icon:  strings.TrimSpace(req.Icon),
		Color: strings.TrimSpace(req.Color),
	}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, fmt.Errorf("error creating category: %w", err)
	}

	s.categories.InvalidateCategories(ctx)
	return category, nil
}

func (s *DefaultService) UpdateCategory(ctx context.Context, id string, req models.UpdateCategoryRequest) (*models.Category, error) {
	category, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, models.NewValidationError("name", "name must not be empty")
		}
		category.Name = name
	}
	if req.Icon != nil {
		category.Icon = strings.TrimSpace(*req.Icon)
	}
	if req.Color != nil {
		category.Color = strings.TrimSpace(*req.Color)
	}

	if err := s.repo.UpdateCategory(ctx, category); err != nil {
		return nil, fmt.Errorf("error updating category: %w", err)
	}

	s.categories.InvalidateCategories(ctx)
	return category, nil
}

func (s *DefaultService) DeleteCategory(ctx context.Context, id string) error {
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("error deleting category: %w", err)
	}

	s.categories.InvalidateCategories(ctx)
	return nil
}
