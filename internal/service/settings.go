package service

import (
	"context"
	"fmt"

	"github.com/rongwang/expense-tracker-server/internal/models"
	"github.com/shopspring/decimal"
)

// GetSettings returns the settings of a user, or unsaved zero settings when none exist yet
func (s *DefaultService) GetSettings(ctx context.Context, userID string) (*models.UserSettings, error) {
	settings, err := s.repo.GetSettings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting settings: %w", err)
	}
	if settings == nil {
		return &models.UserSettings{
			UserID:        userID,
			DailyBudget:   decimal.Zero,
			TotalExpenses: decimal.Zero,
		}, nil
	}
	return settings, nil
}

// SaveSettings sets the daily budget, creating the settings row if needed
func (s *DefaultService) SaveSettings(ctx context.Context, userID string, req models.SettingsRequest) (*models.UserSettings, error) {
	dailyBudget, err := requireMoney("dailyBudget", req.DailyBudget)
	if err != nil {
		return nil, err
	}

	settings, err := s.repo.UpsertSettings(ctx, userID, dailyBudget)
	if err != nil {
		return nil, fmt.Errorf("error saving settings: %w", err)
	}
	return settings, nil
}

func (s *DefaultService) UpdateSettings(ctx context.Context, userID, id string, req models.UpdateSettingsRequest) (*models.UserSettings, error) {
	existing, err := s.repo.GetSettingsByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error getting settings: %w", err)
	}
	if existing == nil || existing.UserID != userID {
		return nil, models.ErrNotFound
	}
	if req.DailyBudget == nil {
		return existing, nil
	}
	if err := checkMoney("dailyBudget", *req.DailyBudget); err != nil {
		return nil, err
	}

	settings, err := s.repo.UpdateSettings(ctx, id, *req.DailyBudget)
	if err != nil {
		return nil, fmt.Errorf("error updating settings: %w", err)
	}
	return settings, nil
}

// RecalculateTotalExpenses rebuilds the running expense counter from the ledger
func (s *DefaultService) RecalculateTotalExpenses(ctx context.Context, userID string) (*models.UserSettings, error) {
	settings, err := s.repo.RecalculateTotalExpenses(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error recalculating total expenses: %w", err)
	}
	return settings, nil
}
