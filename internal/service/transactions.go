package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rongwang/expense-tracker-server/internal/events"
	"github.com/rongwang/expense-tracker-server/internal/ledger"
	"github.com/rongwang/expense-tracker-server/internal/metrics"
	"github.com/rongwang/expense-tracker-server/internal/models"
	"go.uber.org/zap"
)

// CreateTransaction records a wallet movement. The wallet balance and the
// expense counter change atomically with the row; the budget of the affected
// month is recomputed afterwards.
func (s *DefaultService) CreateTransaction(ctx context.Context, userID string, req models.CreateTransactionRequest) (*models.Transaction, error) {
	if strings.TrimSpace(req.WalletID) == "" {
		return nil, models.NewValidationError("walletId", "walletId is required")
	}
	if req.Amount == nil {
		return nil, models.NewValidationError("amount", "amount is required")
	}
	if err := ledger.ValidateAmount(req.Type, *req.Amount); err != nil {
		return nil, err
	}

	tx := &models.Transaction{
		ID:         uuid.New().String(),
		UserID:     userID,
		WalletID:   req.WalletID,
		CategoryID: nonEmpty(req.CategoryID),
		Note:       nonEmpty(req.Note),
		Amount:     *req.Amount,
		Type:       req.Type,
	}
	if req.TransactionDate != nil {
		tx.TransactionDate = req.TransactionDate.UTC()
	} else {
		tx.TransactionDate = s.now().UTC()
	}

	err := s.repo.CreateTransaction(ctx, tx)
	metrics.ObserveTransaction("create", string(req.Type), err)
	if err != nil {
		return nil, fmt.Errorf("error creating transaction: %w", err)
	}

	s.afterLedgerChange(ctx, events.TransactionCreated, tx)
	return tx, nil
}

func (s *DefaultService) GetTransaction(ctx context.Context, userID, id string) (*models.TransactionDetail, error) {
	tx, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error getting transaction: %w", err)
	}
	if tx == nil || tx.UserID != userID {
		return nil, models.ErrNotFound
	}
	return tx, nil
}

// UpdateTransaction changes the note; amounts and types are immutable
func (s *DefaultService) UpdateTransaction(ctx context.Context, userID, id string, req models.UpdateTransactionRequest) (*models.TransactionDetail, error) {
	if _, err := s.GetTransaction(ctx, userID, id); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateTransactionNote(ctx, id, nonEmpty(req.Note)); err != nil {
		return nil, fmt.Errorf("error updating transaction: %w", err)
	}
	return s.GetTransaction(ctx, userID, id)
}

// DeleteTransaction removes a transaction and reverses its effect on the wallet
func (s *DefaultService) DeleteTransaction(ctx context.Context, userID, id string) error {
	tx, err := s.repo.DeleteTransaction(ctx, userID, id)
	txType := ""
	if tx != nil {
		txType = string(tx.Type)
	}
	metrics.ObserveTransaction("delete", txType, err)
	if err != nil {
		return fmt.Errorf("error deleting transaction: %w", err)
	}

	s.afterLedgerChange(ctx, events.TransactionDeleted, tx)
	return nil
}

func (s *DefaultService) ListTransactions(ctx context.Context, userID string, filter models.TransactionFilter) ([]models.TransactionDetail, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, models.NewValidationError("transactionType", fmt.Sprintf("unknown transaction type %q", filter.Type))
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateTo.Before(*filter.DateFrom) {
		return nil, models.NewValidationError("dateTo", "dateTo must not be before dateFrom")
	}

	transactions, err := s.repo.ListTransactions(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("error listing transactions: %w", err)
	}
	return transactions, nil
}

// TodayTotal sums the expense transactions of the current local day
func (s *DefaultService) TodayTotal(ctx context.Context, userID string) (*models.TodayTotalResponse, error) {
	now := s.now().In(time.Local)
	start, end := models.DayBounds(now)

	total, err := s.repo.SumExpenseTransactions(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("error summing today's expenses: %w", err)
	}
	return &models.TodayTotalResponse{Total: total, Date: now.Format("2006-01-02")}, nil
}

// DateRange lists expense transactions dated from start through the whole of
// the day containing end, newest first
func (s *DefaultService) DateRange(ctx context.Context, userID string, start, end time.Time) ([]models.TransactionDetail, error) {
	if end.Before(start) {
		return nil, models.NewValidationError("endDate", "endDate must not be before startDate")
	}
	from, _ := models.DayBounds(start)
	_, to := models.DayBounds(end)

	return s.ListTransactions(ctx, userID, models.TransactionFilter{
		Type:     models.TransactionExpense,
		DateFrom: &from,
		DateTo:   &to,
	})
}

// afterLedgerChange runs the follow-ups of a committed ledger write. Failures
// are logged; the ledger write itself already succeeded.
func (s *DefaultService) afterLedgerChange(ctx context.Context, event string, tx *models.Transaction) {
	if tx.Type == models.TransactionExpense {
		s.refreshBudget(ctx, tx.UserID, models.PeriodOf(tx.TransactionDate.In(time.Local)))
	}

	err := s.publisher.PublishTransaction(ctx, events.NewTransactionEvent(event, tx, s.now().UTC()))
	s.logIgnoring("event publish failed", err, nil,
		zap.String("event", event), zap.String("transactionId", tx.ID))
}

// nonEmpty maps a blank optional string to nil
func nonEmpty(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
