package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rongwang/expense-tracker-server/internal/ledger"
	"github.com/rongwang/expense-tracker-server/internal/models"
	"github.com/shopspring/decimal"
)

// fakeRepository is an in-memory Repository with the same ledger semantics as Postgres
type fakeRepository struct {
	mu           sync.Mutex
	users        map[string]*models.User
	categories   map[string]*models.Category
	wallets      map[string]*models.Wallet
	transactions map[string]*models.Transaction
	budgets      map[string]*models.Budget
	settings     map[string]*models.UserSettings
	expenses     map[string]*models.Expense

	categoryReads int
	// ledgerErr, when set, fails every ledger write after validation
	ledgerErr error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		users:        map[string]*models.User{},
		categories:   map[string]*models.Category{},
		wallets:      map[string]*models.Wallet{},
		transactions: map[string]*models.Transaction{},
		budgets:      map[string]*models.Budget{},
		settings:     map[string]*models.UserSettings{},
		expenses:     map[string]*models.Expense{},
	}
}

func copyOf[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func (f *fakeRepository) CreateUser(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == user.Username || strings.EqualFold(u.Email, user.Email) {
			return models.ErrUserAlreadyExists
		}
	}
	user.CreatedAt, user.UpdatedAt = time.Now(), time.Now()
	f.users[user.ID] = copyOf(user)
	return nil
}

func (f *fakeRepository) GetUserByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyOf(f.users[id]), nil
}

func (f *fakeRepository) GetUserByIdentifier(_ context.Context, identifier string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, identifier) {
			return copyOf(u), nil
		}
	}
	for _, u := range f.users {
		if u.Username == identifier {
			return copyOf(u), nil
		}
	}
	return nil, nil
}

func (f *fakeRepository) IdentityTaken(_ context.Context, username, email, excludeUserID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == excludeUserID {
			continue
		}
		if u.Username == username || strings.EqualFold(u.Email, email) ||
			strings.EqualFold(u.Email, username) || u.Username == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepository) UpdateUser(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.ID]; !ok {
		return models.ErrNotFound
	}
	f.users[user.ID] = copyOf(user)
	return nil
}

func (f *fakeRepository) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return models.ErrNotFound
	}
	u.Password = passwordHash
	return nil
}

func (f *fakeRepository) ListCategories(_ context.Context) ([]models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.categoryReads++
	categories := []models.Category{}
	for _, c := range f.categories {
		categories = append(categories, *c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

func (f *fakeRepository) GetCategory(_ context.Context, id string) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyOf(f.categories[id]), nil
}

func (f *fakeRepository) CreateCategory(_ context.Context, category *models.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.categories {
		if strings.EqualFold(c.Name, category.Name) {
			return models.ErrCategoryExists
		}
	}
	f.categories[category.ID] = copyOf(category)
	return nil
}

func (f *fakeRepository) UpdateCategory(_ context.Context, category *models.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.categories[category.ID]; !ok {
		return models.ErrNotFound
	}
	for _, c := range f.categories {
		if c.ID != category.ID && strings.EqualFold(c.Name, category.Name) {
			return models.ErrCategoryExists
		}
	}
	f.categories[category.ID] = copyOf(category)
	return nil
}

func (f *fakeRepository) DeleteCategory(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.categories[id]; !ok {
		return models.ErrNotFound
	}
	delete(f.categories, id)
	return nil
}

func (f *fakeRepository) CreateWallet(_ context.Context, wallet *models.Wallet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	wallet.CreatedAt = time.Now()
	f.wallets[wallet.ID] = copyOf(wallet)
	return nil
}

func (f *fakeRepository) GetWallet(_ context.Context, id string) (*models.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyOf(f.wallets[id]), nil
}

func (f *fakeRepository) ListWallets(_ context.Context, userID string, enabledOnly bool) ([]models.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wallets := []models.Wallet{}
	for _, w := range f.wallets {
		if w.UserID == userID && (!enabledOnly || w.IsEnabled) {
			wallets = append(wallets, *w)
		}
	}
	sort.Slice(wallets, func(i, j int) bool { return wallets[i].CreatedAt.Before(wallets[j].CreatedAt) })
	return wallets, nil
}

func (f *fakeRepository) UpdateWallet(_ context.Context, wallet *models.Wallet, balanceChange *models.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.wallets[wallet.ID]
	if !ok {
		return models.ErrNotFound
	}
	if balanceChange != nil {
		if err := f.insertTransaction(balanceChange); err != nil {
			return err
		}
		wallet.Balance = balanceChange.BalanceAfter
	}
	w.Name, w.IsEnabled = wallet.Name, wallet.IsEnabled
	return nil
}

func (f *fakeRepository) DeleteWallet(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.wallets[id]; !ok {
		return models.ErrNotFound
	}
	for _, t := range f.transactions {
		if t.WalletID == id {
			return models.ErrWalletHasTransactions
		}
	}
	delete(f.wallets, id)
	return nil
}

func (f *fakeRepository) AdjustWalletBalance(_ context.Context, id string, adj ledger.Adjustment) (*models.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.wallets[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	next, err := adj.Settle(w.Balance)
	if err != nil {
		return nil, err
	}
	w.Balance = next
	return copyOf(w), nil
}

func (f *fakeRepository) addTotalExpenses(userID string, delta decimal.Decimal) {
	s, ok := f.settings[userID]
	if !ok {
		s = &models.UserSettings{ID: uuid.New().String(), UserID: userID}
		f.settings[userID] = s
	}
	s.TotalExpenses = s.TotalExpenses.Add(delta)
}

func (f *fakeRepository) CreateTransaction(_ context.Context, t *models.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insertTransaction(t)
}

func (f *fakeRepository) insertTransaction(t *models.Transaction) error {
	w, ok := f.wallets[t.WalletID]
	if !ok || w.UserID != t.UserID {
		return models.ErrInvalidWallet
	}
	if t.CategoryID != nil {
		if _, ok := f.categories[*t.CategoryID]; !ok {
			return models.NewValidationError("categoryId", "category does not exist")
		}
	}
	entry, err := ledger.Apply(t.Type, w.Balance, t.Amount)
	if err != nil {
		return err
	}
	if f.ledgerErr != nil {
		return f.ledgerErr
	}
	t.BalanceBefore, t.BalanceAfter = entry.BalanceBefore, entry.BalanceAfter
	t.CreatedAt = time.Now()
	w.Balance = entry.BalanceAfter
	if delta := ledger.ExpenseDelta(t, 1); !delta.IsZero() {
		f.addTotalExpenses(t.UserID, delta)
	}
	f.transactions[t.ID] = copyOf(t)
	return nil
}

func (f *fakeRepository) detail(t *models.Transaction) models.TransactionDetail {
	d := models.TransactionDetail{Transaction: *t}
	if w, ok := f.wallets[t.WalletID]; ok {
		name, balance := w.Name, w.Balance
		d.WalletName, d.WalletBalance = &name, &balance
	}
	if t.CategoryID != nil {
		if c, ok := f.categories[*t.CategoryID]; ok {
			name := c.Name
			d.CategoryName = &name
		}
	}
	return d
}

func (f *fakeRepository) GetTransaction(_ context.Context, id string) (*models.TransactionDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.transactions[id]
	if !ok {
		return nil, nil
	}
	d := f.detail(t)
	return &d, nil
}

func (f *fakeRepository) DeleteTransaction(_ context.Context, userID, id string) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.transactions[id]
	if !ok || t.UserID != userID {
		return nil, models.ErrNotFound
	}
	w := f.wallets[t.WalletID]
	adj, err := ledger.Reverse(t)
	if err != nil {
		return nil, err
	}
	next, err := adj.Settle(w.Balance)
	if err != nil {
		return nil, err
	}
	w.Balance = next
	if delta := ledger.ExpenseDelta(t, -1); !delta.IsZero() {
		f.addTotalExpenses(t.UserID, delta)
	}
	delete(f.transactions, id)
	return copyOf(t), nil
}

func (f *fakeRepository) UpdateTransactionNote(_ context.Context, id string, note *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.transactions[id]
	if !ok {
		return models.ErrNotFound
	}
	t.Note = note
	return nil
}

func (f *fakeRepository) ListTransactions(_ context.Context, userID string, filter models.TransactionFilter) ([]models.TransactionDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.TransactionDetail{}
	for _, t := range f.transactions {
		switch {
		case t.UserID != userID,
			filter.WalletID != "" && t.WalletID != filter.WalletID,
			filter.Type != "" && t.Type != filter.Type,
			filter.DateFrom != nil && t.TransactionDate.Before(*filter.DateFrom),
			filter.DateTo != nil && !t.TransactionDate.Before(*filter.DateTo):
			continue
		}
		out = append(out, f.detail(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TransactionDate.After(out[j].TransactionDate) })
	return out, nil
}

func (f *fakeRepository) sumExpenseTransactions(userID string, from, to time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, t := range f.transactions {
		if t.UserID == userID && t.Type == models.TransactionExpense &&
			!t.TransactionDate.Before(from) && t.TransactionDate.Before(to) {
			total = total.Add(t.Amount)
		}
	}
	return total
}

func (f *fakeRepository) SumExpenseTransactions(_ context.Context, userID string, from, to time.Time) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sumExpenseTransactions(userID, from, to), nil
}

func budgetKey(userID string, period models.Period) string {
	return userID + "|" + period.String()
}

func (f *fakeRepository) GetBudget(_ context.Context, userID string, period models.Period) (*models.Budget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyOf(f.budgets[budgetKey(userID, period)]), nil
}

func (f *fakeRepository) GetBudgetByID(_ context.Context, id string) (*models.Budget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.budgets {
		if b.ID == id {
			return copyOf(b), nil
		}
	}
	return nil, nil
}

func (f *fakeRepository) UpsertBudget(_ context.Context, budget *models.Budget) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	month, _ := models.ParseMonth(budget.Month)
	key := budgetKey(budget.UserID, models.Period{Month: month, Year: budget.Year})
	if existing, ok := f.budgets[key]; ok {
		existing.TotalBudget = budget.TotalBudget
		existing.Remaining = budget.TotalBudget.Sub(existing.Spent)
		*budget = *existing
		return nil
	}
	budget.Spent = decimal.Zero
	budget.Remaining = budget.TotalBudget
	f.budgets[key] = copyOf(budget)
	return nil
}

func (f *fakeRepository) UpdateBudgetTotal(_ context.Context, id string, total decimal.Decimal) (*models.Budget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.budgets {
		if b.ID == id {
			b.TotalBudget = total
			b.Remaining = total.Sub(b.Spent)
			return copyOf(b), nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeRepository) RecomputeBudgetSpent(_ context.Context, userID string, period models.Period) (*models.Budget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.budgets[budgetKey(userID, period)]
	if !ok {
		return nil, models.ErrNoBudget
	}
	start, end := period.Bounds(time.Local)
	spent := f.sumExpenses(userID, start, end).Add(f.sumExpenseTransactions(userID, start, end))
	b.Spent = spent
	b.Remaining = b.TotalBudget.Sub(spent)
	return copyOf(b), nil
}

func (f *fakeRepository) GetSettings(_ context.Context, userID string) (*models.UserSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyOf(f.settings[userID]), nil
}

func (f *fakeRepository) GetSettingsByID(_ context.Context, id string) (*models.UserSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.settings {
		if s.ID == id {
			return copyOf(s), nil
		}
	}
	return nil, nil
}

func (f *fakeRepository) UpsertSettings(_ context.Context, userID string, dailyBudget decimal.Decimal) (*models.UserSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.settings[userID]
	if !ok {
		s = &models.UserSettings{ID: uuid.New().String(), UserID: userID}
		f.settings[userID] = s
	}
	s.DailyBudget = dailyBudget
	return copyOf(s), nil
}

func (f *fakeRepository) UpdateSettings(_ context.Context, id string, dailyBudget decimal.Decimal) (*models.UserSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.settings {
		if s.ID == id {
			s.DailyBudget = dailyBudget
			return copyOf(s), nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeRepository) RecalculateTotalExpenses(_ context.Context, userID string) (*models.UserSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := decimal.Zero
	for _, t := range f.transactions {
		if t.UserID == userID && t.Type == models.TransactionExpense {
			total = total.Add(t.Amount)
		}
	}
	s, ok := f.settings[userID]
	if !ok {
		s = &models.UserSettings{ID: uuid.New().String(), UserID: userID}
		f.settings[userID] = s
	}
	s.TotalExpenses = total
	return copyOf(s), nil
}

func (f *fakeRepository) CreateExpense(_ context.Context, expense *models.Expense) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	expense.CreatedAt = time.Now()
	f.expenses[expense.ID] = copyOf(expense)
	return nil
}

func (f *fakeRepository) GetExpense(_ context.Context, id string) (*models.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyOf(f.expenses[id]), nil
}

func (f *fakeRepository) inRange(e *models.Expense, from, to *time.Time) bool {
	return (from == nil || !e.Date.Before(*from)) && (to == nil || e.Date.Before(*to))
}

func (f *fakeRepository) ListExpenses(_ context.Context, userID string, from, to *time.Time) ([]models.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Expense{}
	for _, e := range f.expenses {
		if e.UserID == userID && f.inRange(e, from, to) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (f *fakeRepository) UpdateExpense(_ context.Context, expense *models.Expense) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.expenses[expense.ID]; !ok {
		return models.ErrNotFound
	}
	f.expenses[expense.ID] = copyOf(expense)
	return nil
}

func (f *fakeRepository) DeleteExpense(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.expenses[id]; !ok {
		return models.ErrNotFound
	}
	delete(f.expenses, id)
	return nil
}

func (f *fakeRepository) sumExpenses(userID string, from, to time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, e := range f.expenses {
		if e.UserID == userID && f.inRange(e, &from, &to) {
			total = total.Add(e.Amount)
		}
	}
	return total
}

func (f *fakeRepository) SumExpenses(_ context.Context, userID string, from, to time.Time) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sumExpenses(userID, from, to), nil
}

func (f *fakeRepository) ExpenseCategoryTotals(_ context.Context, userID string, from, to time.Time) ([]models.CategoryTotal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	byCategory := map[string]*models.CategoryTotal{}
	for _, e := range f.expenses {
		if e.UserID != userID || !f.inRange(e, &from, &to) {
			continue
		}
		ct, ok := byCategory[e.Category]
		if !ok {
			ct = &models.CategoryTotal{Category: e.Category}
			byCategory[e.Category] = ct
		}
		ct.Total = ct.Total.Add(e.Amount)
		ct.Count++
	}
	out := []models.CategoryTotal{}
	for _, ct := range byCategory {
		out = append(out, *ct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Total.GreaterThan(out[j].Total) })
	return out, nil
}
