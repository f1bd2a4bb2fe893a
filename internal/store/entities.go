package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/LiftThanakorn/income-expense-tracker/internal/core"
	"github.com/LiftThanakorn/income-expense-tracker/internal/log"
	"github.com/google/uuid"
)

// TransactionStore lists newest first.
type TransactionStore struct {
	*Store[core.Transaction]
}

func NewTransactionStore(owner uuid.UUID, remote Remote[core.Transaction], logger *log.Logger) *TransactionStore {
	return &TransactionStore{newStore("transaction", owner, remote, options[core.Transaction]{
		less: func(a, b core.Transaction) bool { return a.CreatedAt.After(b.CreatedAt) },
		createKey: func(t core.Transaction) string {
			return strings.Join([]string{string(t.Type), t.Category, t.Amount.String(), t.Note}, "|")
		},
		logger: logger,
	})}
}

// BudgetRemote adds the (owner, category) upsert to the budget collection.
type BudgetRemote interface {
	Remote[core.Budget]
	Upsert(ctx context.Context, owner uuid.UUID, b core.Budget) (core.Budget, error)
}

// BudgetStore holds at most one budget per category name.
type BudgetStore struct {
	*Store[core.Budget]
	budgets BudgetRemote
}

func NewBudgetStore(owner uuid.UUID, remote BudgetRemote, logger *log.Logger) *BudgetStore {
	return &BudgetStore{
		Store: newStore[core.Budget]("budget", owner, remote, options[core.Budget]{
			createKey: func(b core.Budget) string { return b.Category },
			logger:    logger,
		}),
		budgets: remote,
	}
}

// Upsert sets the budget amount for category. The returned row is merged
// into the cache by category name since the id may not be known yet.
func (s *BudgetStore) Upsert(ctx context.Context, category string, amount core.Money) (core.Budget, error) {
	b := core.Budget{Category: strings.TrimSpace(category), Amount: amount}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	release, err := s.acquire("create:" + b.Category)
	if err != nil {
		return core.Budget{}, err
	}
	defer release()

	saved, err := s.budgets.Upsert(ctx, s.owner, b)
	if err != nil {
		return core.Budget{}, s.remoteError(ctx, log.OpUpsert, "", err)
	}
	s.replace(func(it core.Budget) bool { return it.Category == saved.Category }, saved)
	s.logger.InfoContext(ctx, "Upserted", log.FieldOperation, log.OpUpsert, log.FieldCategory, saved.Category, log.FieldAmount, saved.Amount.String())
	return saved, nil
}

// ForCategory returns the cached budget for a category name.
func (s *BudgetStore) ForCategory(category string) (core.Budget, bool) {
	return s.Find(func(b core.Budget) bool { return b.Category == category })
}

// ActiveBudget asks the remote store for a budget on category with a
// positive amount.
func (s *BudgetStore) ActiveBudget(ctx context.Context, category string) (core.Budget, bool, error) {
	rows, err := s.budgets.Select(ctx, s.owner)
	if err != nil {
		return core.Budget{}, false, &core.PersistenceError{Op: "budget lookup", Err: err}
	}
	for _, b := range rows {
		if b.Category == category && b.Amount.IsPositive() {
			return b, true, nil
		}
	}
	return core.Budget{}, false, nil
}

// BudgetLookup reports whether an active budget references a category.
type BudgetLookup interface {
	ActiveBudget(ctx context.Context, category string) (core.Budget, bool, error)
}

// CategoryStore enforces (name, type) uniqueness and refuses to delete a
// category an active budget still points at.
type CategoryStore struct {
	*Store[core.Category]
	budgets BudgetLookup
}

func NewCategoryStore(owner uuid.UUID, remote Remote[core.Category], budgets BudgetLookup, logger *log.Logger) *CategoryStore {
	return &CategoryStore{
		Store: newStore[core.Category]("category", owner, remote, options[core.Category]{
			createKey: func(c core.Category) string { return string(c.Type) + "|" + c.Name },
			logger:    logger,
		}),
		budgets: budgets,
	}
}

func (s *CategoryStore) Create(ctx context.Context, c core.Category) (core.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if s.duplicate(c) {
		return core.Category{}, core.NewValidationError("name", fmt.Sprintf("category %q already exists", c.Name))
	}
	return s.Store.Create(ctx, c)
}

// Update renames or retypes a category. The result must not collide with
// another category of the same name and type.
func (s *CategoryStore) Update(ctx context.Context, c core.Category) (core.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	_, updated, err := s.Modify(ctx, c.ID, func(core.Category) (core.Category, error) {
		if s.duplicate(c) {
			return core.Category{}, core.NewValidationError("name", fmt.Sprintf("category %q already exists", c.Name))
		}
		return c, nil
	})
	return updated, err
}

func (s *CategoryStore) duplicate(c core.Category) bool {
	_, exists := s.Find(func(it core.Category) bool {
		return it.ID != c.ID && it.Name == c.Name && it.Type == c.Type
	})
	return exists
}

// Delete checks the budgets first. The check and the delete are not atomic.
func (s *CategoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	release, err := s.acquire("id:" + id.String())
	if err != nil {
		return err
	}
	defer release()

	if c, ok := s.Get(id); ok && s.budgets != nil {
		_, inUse, err := s.budgets.ActiveBudget(ctx, c.Name)
		if err != nil {
			return err
		}
		if inUse {
			s.logger.WarnContext(ctx, "Delete blocked by budget", log.FieldOperation, log.OpDelete, log.FieldCategory, c.Name)
			return &core.CategoryInUseError{Category: c.Name}
		}
	}
	return s.deleteLocked(ctx, id)
}

// Names returns the category names of type t.
func (s *CategoryStore) Names(t core.TransactionType) []string {
	return core.CategoryNames(s.List(), t)
}

// SeedDefaults inserts the default categories when the owner has none.
func (s *CategoryStore) SeedDefaults(ctx context.Context) (bool, error) {
	if s.Len() > 0 {
		return false, nil
	}
	if _, err := s.CreateMany(ctx, core.DefaultCategories()); err != nil {
		return false, err
	}
	s.logger.InfoContext(ctx, "Seeded default categories", log.FieldOperation, log.OpSeed)
	return true, nil
}

// GoalStore lists goals by deadline, soonest first. Goals without a
// deadline come last. Ties keep creation order.
type GoalStore struct {
	*Store[core.Goal]
}

func NewGoalStore(owner uuid.UUID, remote Remote[core.Goal], logger *log.Logger) *GoalStore {
	return &GoalStore{newStore("goal", owner, remote, options[core.Goal]{
		less:      goalLess,
		createKey: func(g core.Goal) string { return g.Name },
		logger:    logger,
	})}
}

func goalLess(a, b core.Goal) bool {
	switch {
	case a.Deadline == nil && b.Deadline == nil:
		return a.CreatedAt.Before(b.CreatedAt)
	case a.Deadline == nil:
		return false
	case b.Deadline == nil:
		return true
	case !a.Deadline.Equal(*b.Deadline):
		return a.Deadline.Before(*b.Deadline)
	default:
		return a.CreatedAt.Before(b.CreatedAt)
	}
}

// Remotes groups the collections one backend provides.
type Remotes struct {
	Transactions Remote[core.Transaction]
	Categories   Remote[core.Category]
	Budgets      BudgetRemote
	Goals        Remote[core.Goal]
}
