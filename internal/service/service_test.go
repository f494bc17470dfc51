package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rongwang/expense-tracker-server/internal/models"
	"github.com/rongwang/expense-tracker-server/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var _ repository.Repository = (*fakeRepository)(nil)

var testNow = time.Date(2025, time.October, 18, 12, 0, 0, 0, time.Local)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func newTestService(opts ...Option) (*DefaultService, *fakeRepository) {
	repo := newFakeRepository()
	opts = append([]Option{WithBcryptCost(bcrypt.MinCost), WithClock(func() time.Time { return testNow })}, opts...)
	return NewDefaultService(repo, "test-secret-key", opts...), repo
}

func registerUser(t *testing.T, svc *DefaultService, username string) string {
	t.Helper()
	resp, err := svc.Register(context.Background(), models.RegisterRequest{
		Name:     "Test User",
		Username: username,
		Email:    username + "@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	return resp.User.ID
}

func createWallet(t *testing.T, svc *DefaultService, userID, balance string) *models.Wallet {
	t.Helper()
	wallet, err := svc.CreateWallet(context.Background(), userID, models.CreateWalletRequest{
		Name:    "Main",
		Balance: dec(balance),
	})
	require.NoError(t, err)
	return wallet
}

func TestRegisterAndLogin(t *testing.T) {
	svc := NewDefaultService(newFakeRepository(), "test-secret-key", WithBcryptCost(bcrypt.MinCost))
	ctx := context.Background()

	registered, err := svc.Register(ctx, models.RegisterRequest{
		Name: "Rong", Username: "rong", Email: "rong@example.com", Password: "secret1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, registered.Token)
	assert.Equal(t, 86400, registered.ExpiresIn)

	for _, identifier := range []string{"rong", "rong@example.com", "RONG@example.com"} {
		resp, err := svc.Login(ctx, models.LoginRequest{Identifier: identifier, Password: "secret1"})
		require.NoError(t, err, identifier)
		assert.Equal(t, registered.User.ID, resp.User.ID)

		claims, err := ParseToken([]byte("test-secret-key"), resp.Token)
		require.NoError(t, err)
		assert.Equal(t, registered.User.ID, claims.Subject)
		assert.Equal(t, "rong", claims.Username)
	}

	_, err = svc.Login(ctx, models.LoginRequest{Identifier: "rong", Password: "wrong"})
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	_, err = svc.Login(ctx, models.LoginRequest{Identifier: "nobody", Password: "secret1"})
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	_, err = svc.Register(ctx, models.RegisterRequest{
		Name: "Other", Username: "rong", Email: "other@example.com", Password: "secret1",
	})
	assert.ErrorIs(t, err, models.ErrUserAlreadyExists)
}

func TestUsernameCannotShadowEmail(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	alice := registerUser(t, svc, "alice")
	bob := registerUser(t, svc, "bob")

	_, err := svc.Register(ctx, models.RegisterRequest{
		Name: "Mallory", Username: "alice@example.com", Email: "mallory@example.com", Password: "password123",
	})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.UpdateProfile(ctx, bob, models.UpdateProfileRequest{
		Name: "Bob", Username: "alice@example.com", Email: "bob@example.com",
	})
	assert.ErrorIs(t, err, models.ErrValidation)

	// An email equal to someone else's username is taken too
	_, err = svc.Register(ctx, models.RegisterRequest{
		Name: "Carol", Username: "carol", Email: "bob", Password: "password123",
	})
	assert.ErrorIs(t, err, models.ErrUserAlreadyExists)

	for i := 0; i < 50; i++ {
		resp, err := svc.Login(ctx, models.LoginRequest{Identifier: "alice@example.com", Password: "password123"})
		require.NoError(t, err)
		require.Equal(t, alice, resp.User.ID)
	}
}

func TestLoginPrefersEmailMatch(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	alice := registerUser(t, svc, "alice")

	// A row written before usernames were restricted
	require.NoError(t, repo.CreateUser(ctx, &models.User{
		ID: "legacy", Name: "Legacy", Username: "alice@example.com", Email: "legacy@example.com",
	}))

	for i := 0; i < 50; i++ {
		user, err := repo.GetUserByIdentifier(ctx, "alice@example.com")
		require.NoError(t, err)
		require.Equal(t, alice, user.ID)
	}
}

func TestParseTokenRejectsOtherSecret(t *testing.T) {
	svc := NewDefaultService(newFakeRepository(), "test-secret-key", WithBcryptCost(bcrypt.MinCost))
	resp, err := svc.Register(context.Background(), models.RegisterRequest{
		Name: "Rong", Username: "rong", Email: "rong@example.com", Password: "secret1",
	})
	require.NoError(t, err)

	_, err = ParseToken([]byte("another-secret"), resp.Token)
	assert.Error(t, err)
}

func TestProfileUpdateAndChangePassword(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	alice := registerUser(t, svc, "alice")
	registerUser(t, svc, "bob")

	_, err := svc.UpdateProfile(ctx, alice, models.UpdateProfileRequest{Name: "Alice", Email: "bob@example.com"})
	assert.ErrorIs(t, err, models.ErrUserAlreadyExists)

	user, err := svc.UpdateProfile(ctx, alice, models.UpdateProfileRequest{Name: "Alice", Email: "alice@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)
	assert.Equal(t, "alice", user.Username)

	err = svc.ChangePassword(ctx, alice, models.ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "newpass1"})
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	require.NoError(t, svc.ChangePassword(ctx, alice, models.ChangePasswordRequest{
		CurrentPassword: "password123", NewPassword: "newpass1",
	}))
	_, err = svc.Login(ctx, models.LoginRequest{Identifier: "alice", Password: "newpass1"})
	assert.NoError(t, err)
}

func TestExpenseTransactionRoundTrip(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	userID := registerUser(t, svc, "alice")
	wallet := createWallet(t, svc, userID, "1000.00")

	tx, err := svc.CreateTransaction(ctx, userID, models.CreateTransactionRequest{
		WalletID: wallet.ID,
		Amount:   dec("200.00"),
		Type:     models.TransactionExpense,
	})
	require.NoError(t, err)
	assert.True(t, tx.BalanceBefore.Equal(decimal.RequireFromString("1000")))
	assert.True(t, tx.BalanceAfter.Equal(decimal.RequireFromString("800")))

	current, err := svc.GetWallet(ctx, userID, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, "800", current.Balance.String())
	assert.Equal(t, "200", repo.settings[userID].TotalExpenses.String())

	require.NoError(t, svc.DeleteTransaction(ctx, userID, tx.ID))

	current, err = svc.GetWallet(ctx, userID, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, "1000", current.Balance.String())
	assert.True(t, repo.settings[userID].TotalExpenses.IsZero())
}

func TestCreateTransactionInsufficientFunds(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	userID := registerUser(t, svc, "alice")
	wallet := createWallet(t, svc, userID, "100.00")

	for _, typ := range []models.TransactionType{models.TransactionExpense, models.TransactionDeductFunds} {
		_, err := svc.CreateTransaction(ctx, userID, models.CreateTransactionRequest{
			WalletID: wallet.ID,
			Amount:   dec("150.00"),
			Type:     typ,
		})
		assert.ErrorIs(t, err, models.ErrInsufficientFunds)
	}

	assert.Empty(t, repo.transactions)
	current, err := svc.GetWallet(ctx, userID, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, "100", current.Balance.String())
}

func TestCreateTransactionRejectsForeignWallet(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	alice := registerUser(t, svc, "alice")
	bob := registerUser(t, svc, "bob")
	wallet := createWallet(t, svc, alice, "100.00")

	_, err := svc.CreateTransaction(ctx, bob, models.CreateTransactionRequest{
		WalletID: wallet.ID,
		Amount:   dec("10.00"),
		Type:     models.TransactionAddFunds,
	})
	assert.ErrorIs(t, err, models.ErrInvalidWallet)

	_, err = svc.GetWallet(ctx, bob, wallet.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCreateTransactionValidatesAmount(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	userID := registerUser(t, svc, "alice")
	wallet := createWallet(t, svc, userID, "100.00")

	for _, amount := range []string{"0", "-5", "1.005"} {
		_, err := svc.CreateTransaction(ctx, userID, models.CreateTransactionRequest{
			WalletID: wallet.ID,
			Amount:   dec(amount),
			Type:     models.TransactionExpense,
		})
		assert.ErrorIs(t, err, models.ErrValidation, amount)
	}
}

func TestUpdateWalletBalanceGoesThroughLedger(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	userID := registerUser(t, svc, "alice")
	wallet := createWallet(t, svc, userID, "100.00")

	name := "Savings"
	updated, err := svc.UpdateWallet(ctx, userID, wallet.ID, models.UpdateWalletRequest{
		Name:    &name,
		Balance: dec("300.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Savings", updated.Name)
	assert.Equal(t, "300", updated.Balance.String())

	txs, err := svc.ListTransactions(ctx, userID, models.TransactionFilter{WalletID: wallet.ID})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, models.TransactionUpdateBalance, txs[0].Type)
	assert.Equal(t, "100", txs[0].BalanceBefore.String())

	// Spend, then undo the balance update: the later expense survives
	_, err = svc.CreateTransaction(ctx, userID, models.CreateTransactionRequest{
		WalletID: wallet.ID, Amount: dec("50.00"), Type: models.TransactionExpense,
	})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteTransaction(ctx, userID, txs[0].ID))

	current, err := svc.GetWallet(ctx, userID, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, "50", current.Balance.String())
}

func TestUpdateWalletIsOneUnit(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	userID := registerUser(t, svc, "alice")
	wallet := createWallet(t, svc, userID, "100.00")
	name := "Renamed"

	// An invalid balance is rejected before anything is written
	_, err := svc.UpdateWallet(ctx, userID, wallet.ID, models.UpdateWalletRequest{
		Name: &name, Balance: dec("10.001"),
	})
	assert.ErrorIs(t, err, models.ErrValidation)

	// A failing ledger write leaves the rename undone
	repo.ledgerErr = errors.New("connection reset")
	_, err = svc.UpdateWallet(ctx, userID, wallet.ID, models.UpdateWalletRequest{
		Name: &name, Balance: dec("250.00"),
	})
	require.Error(t, err)

	current, err := svc.GetWallet(ctx, userID, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, "Main", current.Name)
	assert.Equal(t, "100", current.Balance.String())

	txs, err := svc.ListTransactions(ctx, userID, models.TransactionFilter{WalletID: wallet.ID})
	require.NoError(t, err)
	assert.Empty(t, txs)

	// Name only never touches the ledger
	updated, err := svc.UpdateWallet(ctx, userID, wallet.ID, models.UpdateWalletRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
}

func TestDeleteWalletWithTransactions(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	userID := registerUser(t, svc, "alice")
	used := createWallet(t, svc, userID, "100.00")
	empty := createWallet(t, svc, userID, "0")

	_, err := svc.CreateTransaction(ctx, userID, models.CreateTransactionRequest{
		WalletID: used.ID, Amount: dec("1.00"), Type: models.TransactionAddFunds,
	})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteWallet(ctx, userID, used.ID), models.ErrWalletHasTransactions)
	assert.NoError(t, svc.DeleteWallet(ctx, userID, empty.ID))
	_, err = svc.GetWallet(ctx, userID, empty.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestTodayTotalAndDateRange(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	userID := registerUser(t, svc, "alice")
	wallet := createWallet(t, svc, userID, "1000.00")

	yesterday := testNow.AddDate(0, 0, -1)
	for _, req := range []models.CreateTransactionRequest{
		{WalletID: wallet.ID, Amount: dec("12.50"), Type: models.TransactionExpense},
		{WalletID: wallet.ID, Amount: dec("7.50"), Type: models.TransactionExpense},
		{WalletID: wallet.ID, Amount: dec("40.00"), Type: models.TransactionExpense, TransactionDate: &yesterday},
		{WalletID: wallet.ID, Amount: dec("99.00"), Type: models.TransactionAddFunds},
	} {
		_, err := svc.CreateTransaction(ctx, userID, req)
		require.NoError(t, err)
	}

	today, err := svc.TodayTotal(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "20", today.Total.String())
	assert.Equal(t, "2025-10-18", today.Date)

	ranged, err := svc.DateRange(ctx, userID, yesterday, yesterday)
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, "40", ranged[0].Amount.String())

	ranged, err = svc.DateRange(ctx, userID, yesterday, testNow)
	require.NoError(t, err)
	assert.Len(t, ranged, 3)

	_, err = svc.DateRange(ctx, userID, testNow, yesterday)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestBudgetSpentFollowsExpensesAndTransactions(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	userID := registerUser(t, svc, "alice")
	wallet := createWallet(t, svc, userID, "2000.00")

	_, err := svc.GetBudget(ctx, userID, models.PeriodRequest{})
	assert.ErrorIs(t, err, models.ErrNoBudget)

	budget, err := svc.SaveBudget(ctx, userID, models.BudgetRequest{TotalBudget: dec("5000"), Month: "october", Year: 2025})
	require.NoError(t, err)
	assert.Equal(t, "October", budget.Month)
	assert.Equal(t, "5000", budget.Remaining.String())

	_, err = svc.CreateExpense(ctx, userID, models.ExpenseRequest{
		Category: "Food & Dining", Amount: dec("1200"), Date: "2025-10-03",
	})
	require.NoError(t, err)
	_, err = svc.CreateTransaction(ctx, userID, models.CreateTransactionRequest{
		WalletID: wallet.ID, Amount: dec("300"), Type: models.TransactionExpense,
	})
	require.NoError(t, err)

	budget, err = svc.GetBudget(ctx, userID, models.PeriodRequest{})
	require.NoError(t, err)
	assert.Equal(t, "1500", budget.Spent.String())
	assert.Equal(t, "3500", budget.Remaining.String())

	// Saving again keeps spent and is idempotent
	again, err := svc.SaveBudget(ctx, userID, models.BudgetRequest{TotalBudget: dec("5000"), Month: "10", Year: 2025})
	require.NoError(t, err)
	assert.Equal(t, budget.ID, again.ID)
	assert.Equal(t, "1500", again.Spent.String())
	assert.Equal(t, "3500", again.Remaining.String())

	updated, err := svc.UpdateBudget(ctx, userID, budget.ID, models.UpdateBudgetRequest{TotalBudget: dec("2000")})
	require.NoError(t, err)
	assert.Equal(t, "500", updated.Remaining.String())

	recomputed, err := svc.RecomputeBudget(ctx, userID, models.PeriodRequest{Month: "Oct"})
	require.NoError(t, err)
	assert.Equal(t, "1500", recomputed.Spent.String())

	_, err = svc.RecomputeBudget(ctx, userID, models.PeriodRequest{Month: "March"})
	assert.ErrorIs(t, err, models.ErrNoBudget)
}

func TestUpdateBudgetOfOtherUser(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	alice := registerUser(t, svc, "alice")
	bob := registerUser(t, svc, "bob")

	budget, err := svc.SaveBudget(ctx, alice, models.BudgetRequest{TotalBudget: dec("100")})
	require.NoError(t, err)

	_, err = svc.UpdateBudget(ctx, bob, budget.ID, models.UpdateBudgetRequest{TotalBudget: dec("1")})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestExpenseSummary(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	userID := registerUser(t, svc, "alice")

	for _, req := range []models.ExpenseRequest{
		{Category: "Food & Dining", Amount: dec("10.00"), Date: "2025-10-18"},
		{Category: "Food & Dining", Amount: dec("5.00"), Date: "2025-10-02"},
		{Category: "Travel", Amount: dec("100.00"), Date: "2025-10-05"},
		{Category: "Travel", Amount: dec("70.00"), Date: "2025-09-30"},
	} {
		_, err := svc.CreateExpense(ctx, userID, req)
		require.NoError(t, err)
	}

	summary, err := svc.ExpenseSummary(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "10", summary.TodayTotal.String())
	assert.Equal(t, "115", summary.MonthlyTotal.String())
	require.Len(t, summary.Categories, 2)
	assert.Equal(t, "Travel", summary.Categories[0].Category)
	assert.Equal(t, 2, summary.Categories[1].Count)

	today, err := svc.TodayExpenses(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, today, 1)

	september, err := svc.MonthlyExpenses(ctx, userID, models.PeriodRequest{Month: "9", Year: 2025})
	require.NoError(t, err)
	assert.Len(t, september, 1)
}

func TestUpdateAndDeleteExpense(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	userID := registerUser(t, svc, "alice")

	_, err := svc.SaveBudget(ctx, userID, models.BudgetRequest{TotalBudget: dec("100")})
	require.NoError(t, err)

	expense, err := svc.CreateExpense(ctx, userID, models.ExpenseRequest{
		Category: "Shopping", Amount: dec("40"), Date: "2025-10-10",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ExpenseDaily, expense.Type)

	moved := "2025-09-10"
	_, err = svc.UpdateExpense(ctx, userID, expense.ID, models.UpdateExpenseRequest{Date: &moved})
	require.NoError(t, err)

	budget, err := svc.GetBudget(ctx, userID, models.PeriodRequest{})
	require.NoError(t, err)
	assert.True(t, budget.Spent.IsZero())

	bad := "10/09/2025"
	_, err = svc.UpdateExpense(ctx, userID, expense.ID, models.UpdateExpenseRequest{Date: &bad})
	assert.ErrorIs(t, err, models.ErrValidation)

	require.NoError(t, svc.DeleteExpense(ctx, userID, expense.ID))
	_, err = svc.GetExpense(ctx, userID, expense.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

type countingCache struct {
	stored      []models.Category
	invalidated int
}

func (c *countingCache) Categories(context.Context) ([]models.Category, bool) {
	return c.stored, c.stored != nil
}

func (c *countingCache) StoreCategories(_ context.Context, categories []models.Category) {
	c.stored = categories
}

func (c *countingCache) InvalidateCategories(context.Context) {
	c.stored = nil
	c.invalidated++
}

func TestCategoriesUseCache(t *testing.T) {
	cache := &countingCache{}
	svc, repo := newTestService(WithCategoryCache(cache))
	ctx := context.Background()

	food, err := svc.CreateCategory(ctx, models.CategoryRequest{Name: "Food", Icon: "fa-utensils", Color: "#FF6B6B"})
	require.NoError(t, err)

	_, err = svc.CreateCategory(ctx, models.CategoryRequest{Name: "food"})
	assert.ErrorIs(t, err, models.ErrCategoryExists)

	for i := 0; i < 3; i++ {
		categories, err := svc.ListCategories(ctx)
		require.NoError(t, err)
		assert.Len(t, categories, 1)
	}
	assert.Equal(t, 1, repo.categoryReads)

	name := "Groceries"
	_, err = svc.UpdateCategory(ctx, food.ID, models.UpdateCategoryRequest{Name: &name})
	require.NoError(t, err)
	categories, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", categories[0].Name)
	assert.Equal(t, 2, repo.categoryReads)

	require.NoError(t, svc.DeleteCategory(ctx, food.ID))
	assert.ErrorIs(t, svc.DeleteCategory(ctx, food.ID), models.ErrNotFound)
	assert.Equal(t, 3, cache.invalidated)
}

func TestSettings(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	userID := registerUser(t, svc, "alice")
	wallet := createWallet(t, svc, userID, "500")

	settings, err := svc.GetSettings(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, settings.ID)
	assert.True(t, settings.DailyBudget.IsZero())

	settings, err = svc.SaveSettings(ctx, userID, models.SettingsRequest{DailyBudget: dec("25.50")})
	require.NoError(t, err)
	assert.Equal(t, "25.5", settings.DailyBudget.String())

	settings, err = svc.UpdateSettings(ctx, userID, settings.ID, models.UpdateSettingsRequest{DailyBudget: dec("30")})
	require.NoError(t, err)
	assert.Equal(t, "30", settings.DailyBudget.String())

	_, err = svc.CreateTransaction(ctx, userID, models.CreateTransactionRequest{
		WalletID: wallet.ID, Amount: dec("45"), Type: models.TransactionExpense,
	})
	require.NoError(t, err)

	settings, err = svc.RecalculateTotalExpenses(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "45", settings.TotalExpenses.String())
	assert.Equal(t, "30", settings.DailyBudget.String())
}
