package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rongwang/expense-tracker-server/internal/models"
)

// GetBudget returns the budget of the requested period, defaulting to the
// current month. ErrNoBudget signals that none was set.
func (s *DefaultService) GetBudget(ctx context.Context, userID string, req models.PeriodRequest) (*models.Budget, error) {
	period, err := models.ResolvePeriod(req.Month, req.Year, s.now())
	if err != nil {
		return nil, err
	}

	budget, err := s.repo.GetBudget(ctx, userID, period)
	if err != nil {
		return nil, fmt.Errorf("error getting budget: %w", err)
	}
	if budget == nil {
		return nil, models.ErrNoBudget
	}
	return budget, nil
}

// SaveBudget creates or updates the budget of a period. Updating keeps the
// spent amount; remaining always equals total minus spent.
func (s *DefaultService) SaveBudget(ctx context.Context, userID string, req models.BudgetRequest) (*models.Budget, error) {
	total, err := requireMoney("totalBudget", req.TotalBudget)
	if err != nil {
		return nil, err
	}
	period, err := models.ResolvePeriod(req.Month, req.Year, s.now())
	if err != nil {
		return nil, err
	}

	budget := &models.Budget{
		ID:          uuid.New().String(),
		UserID:      userID,
		TotalBudget: total,
		Month:       period.MonthName(),
		Year:        period.Year,
	}
	if err := s.repo.UpsertBudget(ctx, budget); err != nil {
		return nil, fmt.Errorf("error saving budget: %w", err)
	}
	return budget, nil
}

func (s *DefaultService) UpdateBudget(ctx context.Context, userID, id string, req models.UpdateBudgetRequest) (*models.Budget, error) {
	total, err := requireMoney("totalBudget", req.TotalBudget)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetBudgetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error getting budget: %w", err)
	}
	if existing == nil || existing.UserID != userID {
		return nil, models.ErrNotFound
	}

	budget, err := s.repo.UpdateBudgetTotal(ctx, id, total)
	if err != nil {
		return nil, fmt.Errorf("error updating budget: %w", err)
	}
	return budget, nil
}

// RecomputeBudget rebuilds spent for a period from expenses and expense transactions
func (s *DefaultService) RecomputeBudget(ctx context.Context, userID string, req models.PeriodRequest) (*models.Budget, error) {
	period, err := models.ResolvePeriod(req.Month, req.Year, s.now())
	if err != nil {
		return nil, err
	}

	budget, err := s.repo.RecomputeBudgetSpent(ctx, userID, period)
	if err != nil {
		return nil, fmt.Errorf("error recomputing budget: %w", err)
	}
	return budget, nil
}
