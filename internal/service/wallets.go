package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rongwang/expense-tracker-server/internal/events"
	"github.com/rongwang/expense-tracker-server/internal/metrics"
	"github.com/rongwang/expense-tracker-server/internal/models"
)

func (s *DefaultService) CreateWallet(ctx context.Context, userID string, req models.CreateWalletRequest) (*models.Wallet, error) {
	balance, err := requireMoney("balance", req.Balance)
	if err != nil {
		return nil, err
	}

	wallet := &models.Wallet{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      strings.TrimSpace(req.Name),
		Balance:   balance,
		IsEnabled: true,
	}
	if req.IsEnabled != nil {
		wallet.IsEnabled = *req.IsEnabled
	}

	if err := s.repo.CreateWallet(ctx, wallet); err != nil {
		return nil, fmt.Errorf("error creating wallet: %w", err)
	}
	return wallet, nil
}

// GetWallet returns a wallet owned by userID
func (s *DefaultService) GetWallet(ctx context.Context, userID, id string) (*models.Wallet, error) {
	wallet, err := s.repo.GetWallet(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error getting wallet: %w", err)
	}
	if wallet == nil || wallet.UserID != userID {
		return nil, models.ErrNotFound
	}
	return wallet, nil
}

func (s *DefaultService) ListWallets(ctx context.Context, userID string, enabledOnly bool) ([]models.Wallet, error) {
	wallets, err := s.repo.ListWallets(ctx, userID, enabledOnly)
	if err != nil {
		return nil, fmt.Errorf("error listing wallets: %w", err)
	}
	return wallets, nil
}

// UpdateWallet changes name and enabled flag. A new balance is recorded as an
// update_balance transaction so the wallet history stays consistent; the
// settings and the balance change are written in one repository call.
func (s *DefaultService) UpdateWallet(ctx context.Context, userID, id string, req models.UpdateWalletRequest) (*models.Wallet, error) {
	wallet, err := s.GetWallet(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	var change *models.Transaction
	if req.Balance != nil {
		if err := checkMoney("balance", *req.Balance); err != nil {
			return nil, err
		}
		if !req.Balance.Equal(wallet.Balance) {
			note := "Balance updated from wallet settings"
			change = &models.Transaction{
				ID:              uuid.New().String(),
				UserID:          userID,
				WalletID:        wallet.ID,
				Note:            &note,
				Amount:          *req.Balance,
				Type:            models.TransactionUpdateBalance,
				TransactionDate: s.now().UTC(),
			}
		}
	}

	if req.Name == nil && req.IsEnabled == nil && change == nil {
		return wallet, nil
	}
	if req.Name != nil {
		wallet.Name = strings.TrimSpace(*req.Name)
	}
	if req.IsEnabled != nil {
		wallet.IsEnabled = *req.IsEnabled
	}

	err = s.repo.UpdateWallet(ctx, wallet, change)
	if change != nil {
		metrics.ObserveTransaction("create", string(change.Type), err)
	}
	if err != nil {
		return nil, fmt.Errorf("error updating wallet: %w", err)
	}

	if change != nil {
		s.afterLedgerChange(ctx, events.TransactionCreated, change)
	}
	return wallet, nil
}

// DeleteWallet removes a wallet without transactions
func (s *DefaultService) DeleteWallet(ctx context.Context, userID, id string) error {
	if _, err := s.GetWallet(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.DeleteWallet(ctx, id); err != nil {
		return fmt.Errorf("error deleting wallet: %w", err)
	}
	return nil
}
