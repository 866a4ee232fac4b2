package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"scontrini/internal/core"
	"scontrini/internal/log"
	"scontrini/internal/storage"
)

// BudgetService answers budget mutations and the monthly summary.
type BudgetService struct {
	store  storage.Store
	logger *log.Logger
	now    func() time.Time
}

func NewBudgetService(store storage.Store, logger *log.Logger) *BudgetService {
	return &BudgetService{
		store:  store,
		logger: logger.WithComponent("budget"),
		now:    time.Now,
	}
}

// CurrentMonth returns the active ledger month key.
func (s *BudgetService) CurrentMonth() string {
	return core.MonthKey(s.now())
}

// SetBudget sets the budget for a category, creating the category at
// zero first. A malformed amount keeps the prior value; an empty
// category is ignored. Neither is an error for the caller.
func (s *BudgetService) SetBudget(ctx context.Context, category, amount string) error {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil
	}

	parsed, parseErr := core.ParseAmount(amount)
	if parseErr != nil {
		s.logger.DebugContext(ctx, "Ignoring malformed budget amount",
			"category", category, "amount", amount)
		// The category still comes into existence at its prior value,
		// or zero if it is new.
		budgets, err := s.store.Budgets(ctx)
		if err != nil {
			return err
		}
		if _, ok := budgets[category]; ok {
			return nil
		}
		return s.store.SetBudget(ctx, category, core.Money{})
	}
	return s.store.SetBudget(ctx, category, parsed)
}

// Categories returns the budget table categories, sorted by name.
func (s *BudgetService) Categories(ctx context.Context) ([]string, error) {
	budgets, err := s.store.Budgets(ctx)
	if err != nil {
		return nil, err
	}
	categories := make([]string, 0, len(budgets))
	for category := range budgets {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	return categories, nil
}

// Summary builds the current month's rows: the union of budgeted
// categories and categories with spend, sorted by name.
func (s *BudgetService) Summary(ctx context.Context) ([]core.BudgetRow, error) {
	budgets, err := s.store.Budgets(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.MonthExpenses(ctx, s.CurrentMonth())
	if err != nil {
		return nil, err
	}

	spent := make(map[string]core.Money)
	for _, e := range entries {
		spent[e.Category] = spent[e.Category].Add(e.Amount)
	}

	seen := make(map[string]bool)
	var categories []string
	for category := range budgets {
		seen[category] = true
		categories = append(categories, category)
	}
	for category := range spent {
		if !seen[category] {
			categories = append(categories, category)
		}
	}
	sort.Strings(categories)

	rows := make([]core.BudgetRow, 0, len(categories))
	for _, category := range categories {
		budget := budgets[category]
		rows = append(rows, core.BudgetRow{
			Category:  category,
			Budget:    budget,
			Spent:     spent[category],
			Remaining: budget.Sub(spent[category]),
		})
	}
	return rows, nil
}
