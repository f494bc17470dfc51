package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rongwang/expense-tracker-server/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const expenseDateLayout = "2006-01-02"

func parseExpenseDate(v string) (time.Time, error) {
	date, err := time.ParseInLocation(expenseDateLayout, strings.TrimSpace(v), time.Local)
	if err != nil {
		return time.Time{}, models.NewValidationError("date", "date must be formatted as YYYY-MM-DD")
	}
	return date, nil
}

func (s *DefaultService) CreateExpense(ctx context.Context, userID string, req models.ExpenseRequest) (*models.Expense, error) {
	amount, err := requireMoney("amount", req.Amount)
	if err != nil {
		return nil, err
	}
	date, err := parseExpenseDate(req.Date)
	if err != nil {
		return nil, err
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		return nil, models.NewValidationError("category", "category is required")
	}

	expense := &models.Expense{
		ID:          uuid.New().String(),
		UserID:      userID,
		Category:    category,
		Note:        nonEmpty(req.Note),
		Amount:      amount,
		Date:        date,
		Type:        req.Type,
		IsRecurring: req.IsRecurring,
	}
	if expense.Type == "" {
		expense.Type = models.ExpenseDaily
	}

	if err := s.repo.CreateExpense(ctx, expense); err != nil {
		return nil, fmt.Errorf("error creating expense: %w", err)
	}

	s.refreshBudget(ctx, userID, models.PeriodOf(date))
	return expense, nil
}

func (s *DefaultService) GetExpense(ctx context.Context, userID, id string) (*models.Expense, error) {
	expense, err := s.repo.GetExpense(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error getting expense: %w", err)
	}
	if expense == nil || expense.UserID != userID {
		return nil, models.ErrNotFound
	}
	return expense, nil
}

func (s *DefaultService) ListExpenses(ctx context.Context, userID string) ([]models.Expense, error) {
	expenses, err := s.repo.ListExpenses(ctx, userID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("error listing expenses: %w", err)
	}
	return expenses, nil
}

// UpdateExpense applies the set fields. When the date moves to another month
// both budgets are recomputed.
func (s *DefaultService) UpdateExpense(ctx context.Context, userID, id string, req models.UpdateExpenseRequest) (*models.Expense, error) {
	expense, err := s.GetExpense(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	before := models.PeriodOf(expense.Date)

	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if category == "" {
			return nil, models.NewValidationError("category", "category must not be empty")
		}
		expense.Category = category
	}
	if req.Note != nil {
		expense.Note = nonEmpty(req.Note)
	}
	if req.Amount != nil {
		if err := checkMoney("amount", *req.Amount); err != nil {
			return nil, err
		}
		expense.Amount = *req.Amount
	}
	if req.Date != nil {
		if expense.Date, err = parseExpenseDate(*req.Date); err != nil {
			return nil, err
		}
	}
	if req.Type != nil {
		expense.Type = *req.Type
	}
	if req.IsRecurring != nil {
		expense.IsRecurring = *req.IsRecurring
	}

	if err := s.repo.UpdateExpense(ctx, expense); err != nil {
		return nil, fmt.Errorf("error updating expense: %w", err)
	}

	after := models.PeriodOf(expense.Date)
	s.refreshBudget(ctx, userID, after)
	if after != before {
		s.refreshBudget(ctx, userID, before)
	}
	return expense, nil
}

func (s *DefaultService) DeleteExpense(ctx context.Context, userID, id string) error {
	expense, err := s.GetExpense(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("error deleting expense: %w", err)
	}

	s.refreshBudget(ctx, userID, models.PeriodOf(expense.Date))
	return nil
}

func (s *DefaultService) TodayExpenses(ctx context.Context, userID string) ([]models.Expense, error) {
	start, end := models.DayBounds(s.now().In(time.Local))
	expenses, err := s.repo.ListExpenses(ctx, userID, &start, &end)
	if err != nil {
		return nil, fmt.Errorf("error listing today's expenses: %w", err)
	}
	return expenses, nil
}

func (s *DefaultService) MonthlyExpenses(ctx context.Context, userID string, req models.PeriodRequest) ([]models.Expense, error) {
	period, err := models.ResolvePeriod(req.Month, req.Year, s.now())
	if err != nil {
		return nil, err
	}
	start, end := period.Bounds(time.Local)

	expenses, err := s.repo.ListExpenses(ctx, userID, &start, &end)
	if err != nil {
		return nil, fmt.Errorf("error listing monthly expenses: %w", err)
	}
	return expenses, nil
}

// ExpenseSummary reports today's total, this month's total and this month's
// per-category totals. The three aggregates are queried concurrently.
func (s *DefaultService) ExpenseSummary(ctx context.Context, userID string) (*models.ExpenseSummary, error) {
	now := s.now().In(time.Local)
	dayStart, dayEnd := models.DayBounds(now)
	monthStart, monthEnd := models.PeriodOf(now).Bounds(time.Local)

	summary := &models.ExpenseSummary{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		total, err := s.repo.SumExpenses(gctx, userID, dayStart, dayEnd)
		summary.TodayTotal = total
		return err
	})
	g.Go(func() error {
		total, err := s.repo.SumExpenses(gctx, userID, monthStart, monthEnd)
		summary.MonthlyTotal = total
		return err
	})
	g.Go(func() error {
		categories, err := s.repo.ExpenseCategoryTotals(gctx, userID, monthStart, monthEnd)
		summary.Categories = categories
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("error building expense summary: %w", err)
	}
	return summary, nil
}

// refreshBudget recomputes the budget of a period after a legacy expense write
func (s *DefaultService) refreshBudget(ctx context.Context, userID string, period models.Period) {
	_, err := s.repo.RecomputeBudgetSpent(ctx, userID, period)
	s.logIgnoring("budget recompute failed", err, models.ErrNoBudget,
		zap.String("userId", userID), zap.Stringer("period", period))
}
