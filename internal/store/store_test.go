package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/LiftThanakorn/income-expense-tracker/internal/core"
	"github.com/LiftThanakorn/income-expense-tracker/internal/storage/memory"
	"github.com/google/uuid"
)

// flakyRemote wraps a remote and can fail or block its calls.
type flakyRemote[T core.Entity] struct {
	Remote[T]
	fail    error
	inserts int
	entered chan struct{}
	unblock chan struct{}
}

func (f *flakyRemote[T]) Insert(ctx context.Context, owner uuid.UUID, items ...T) ([]T, error) {
	f.inserts++
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.unblock
	}
	if f.fail != nil {
		return nil, f.fail
	}
	return f.Remote.Insert(ctx, owner, items...)
}

func (f *flakyRemote[T]) Update(ctx context.Context, owner uuid.UUID, item T) (T, error) {
	if f.fail != nil {
		var zero T
		return zero, f.fail
	}
	return f.Remote.Update(ctx, owner, item)
}

func (f *flakyRemote[T]) Delete(ctx context.Context, owner, id uuid.UUID) (int, error) {
	if f.fail != nil {
		return 0, f.fail
	}
	return f.Remote.Delete(ctx, owner, id)
}

func expense(category string, amount int64) core.Transaction {
	return core.Transaction{Type: core.Expense, Category: category, Amount: core.NewMoney(amount)}
}

func TestTransactionStore_CreateThenList(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	s := NewTransactionStore(uuid.New(), repo.Transactions(), nil)

	in := core.Transaction{Type: core.Income, Category: "เงินเดือน", Amount: core.MustParseMoney("25000.00"), Note: "June"}
	created, err := s.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	list := s.List()
	if len(list) != 1 {
		t.Fatalf("List has %d entries, want 1", len(list))
	}
	got := list[0]
	if got.ID == uuid.Nil || got.ID != created.ID {
		t.Fatalf("missing server id: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Fatalf("missing server timestamp")
	}
	if got.Type != in.Type || got.Category != in.Category || !got.Amount.Equal(in.Amount) || got.Note != in.Note {
		t.Fatalf("fields differ: got %+v, want %+v", got, in)
	}
}

func TestTransactionStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewTransactionStore(uuid.New(), memory.New().Transactions(), nil)

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		tx := expense("อาหาร", int64(i+1))
		tx.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		if _, err := s.Create(ctx, tx); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	list := s.List()
	for i := 1; i < len(list); i++ {
		if list[i].CreatedAt.After(list[i-1].CreatedAt) {
			t.Fatalf("not newest first at %d: %v after %v", i, list[i].CreatedAt, list[i-1].CreatedAt)
		}
	}
}

func TestStore_ValidationNeverReachesRemote(t *testing.T) {
	remote := &flakyRemote[core.Transaction]{Remote: memory.New().Transactions()}
	s := NewTransactionStore(uuid.New(), remote, nil)

	tests := []struct {
		name string
		tx   core.Transaction
	}{
		{"zero amount", expense("อาหาร", 0)},
		{"negative amount", core.Transaction{Type: core.Expense, Category: "อาหาร", Amount: core.MustParseMoney("1").Sub(core.NewMoney(2))}},
		{"bad type", core.Transaction{Type: "transfer", Category: "อาหาร", Amount: core.NewMoney(1)}},
		{"empty category", core.Transaction{Type: core.Income, Category: " ", Amount: core.NewMoney(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Create(context.Background(), tt.tx)
			if !core.IsValidation(err) {
				t.Fatalf("want ValidationError, got %v", err)
			}
		})
	}
	if remote.inserts != 0 {
		t.Fatalf("remote called %d times", remote.inserts)
	}
}

func TestStore_DeleteMissingPrunesCache(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	owner := uuid.New()
	s := NewTransactionStore(owner, repo.Transactions(), nil)

	created, err := s.Create(ctx, expense("อาหาร", 50))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	// The row disappears remotely behind the store's back.
	if _, err := repo.Transactions().Delete(ctx, owner, created.ID); err != nil {
		t.Fatalf("remote delete: %v", err)
	}

	err = s.Delete(ctx, created.ID)
	if !core.IsNotFound(err) {
		t.Fatalf("want NotFoundError, got %v", err)
	}
	if _, ok := s.Get(created.ID); ok {
		t.Fatalf("cache still holds deleted entry")
	}
	if s.Len() != 0 {
		t.Fatalf("cache size = %d", s.Len())
	}
}

func TestStore_PersistenceFailureLeavesCache(t *testing.T) {
	ctx := context.Background()
	remote := &flakyRemote[core.Transaction]{Remote: memory.New().Transactions()}
	s := NewTransactionStore(uuid.New(), remote, nil)

	created, err := s.Create(ctx, expense("อาหาร", 50))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	remote.fail = errors.New("connection reset")

	if _, err := s.Create(ctx, expense("เดินทาง", 20)); !core.IsPersistence(err) {
		t.Fatalf("Create: want PersistenceError, got %v", err)
	}
	upd := created
	upd.Note = "changed"
	if _, err := s.Update(ctx, upd); !core.IsPersistence(err) {
		t.Fatalf("Update: want PersistenceError, got %v", err)
	}
	if err := s.Delete(ctx, created.ID); !core.IsPersistence(err) {
		t.Fatalf("Delete: want PersistenceError, got %v", err)
	}

	list := s.List()
	if len(list) != 1 || list[0].Note != "" {
		t.Fatalf("cache changed after failures: %+v", list)
	}
}

func TestStore_UpdateVanishedTargetPrunes(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	owner := uuid.New()
	s := NewTransactionStore(owner, repo.Transactions(), nil)

	created, _ := s.Create(ctx, expense("อาหาร", 50))
	repo.Transactions().Delete(ctx, owner, created.ID)

	created.Note = "edit"
	if _, err := s.Update(ctx, created); !core.IsNotFound(err) {
		t.Fatalf("want NotFoundError, got %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("stale entry kept")
	}
}

func TestStore_InFlightLock(t *testing.T) {
	ctx := context.Background()
	remote := &flakyRemote[core.Transaction]{
		Remote:  memory.New().Transactions(),
		entered: make(chan struct{}),
		unblock: make(chan struct{}),
	}
	s := NewTransactionStore(uuid.New(), remote, nil)

	tx := expense("อาหาร", 99)
	done := make(chan error, 1)
	go func() {
		_, err := s.Create(ctx, tx)
		done <- err
	}()
	<-remote.entered

	if _, err := s.Create(ctx, tx); !errors.Is(err, core.ErrInFlight) {
		t.Fatalf("double submit: want ErrInFlight, got %v", err)
	}

	close(remote.unblock)
	if err := <-done; err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("want exactly one entry, got %d", s.Len())
	}
}

func TestCategoryStore_DeleteGuardedByBudget(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	owner := uuid.New()
	budgets := NewBudgetStore(owner, repo.Budgets(), nil)
	cats := NewCategoryStore(owner, repo.Categories(), budgets, nil)

	food, err := cats.Create(ctx, core.Category{Name: "อาหาร", Type: core.Expense})
	if err != nil {
		t.Fatalf("Create category: %v", err)
	}
	if _, err := budgets.Upsert(ctx, "อาหาร", core.NewMoney(3000)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	err = cats.Delete(ctx, food.ID)
	var inUse *core.CategoryInUseError
	if !errors.As(err, &inUse) || inUse.Category != "อาหาร" {
		t.Fatalf("want CategoryInUseError naming the category, got %v", err)
	}
	if _, ok := cats.Get(food.ID); !ok {
		t.Fatalf("blocked delete removed the category")
	}

	if _, err := budgets.Upsert(ctx, "อาหาร", core.Zero); err != nil {
		t.Fatalf("Upsert 0: %v", err)
	}
	if err := cats.Delete(ctx, food.ID); err != nil {
		t.Fatalf("Delete after budget cleared: %v", err)
	}
	for _, c := range cats.List() {
		if c.ID == food.ID {
			t.Fatalf("category still listed")
		}
	}
}

func TestCategoryStore_UniqueNameAndType(t *testing.T) {
	ctx := context.Background()
	cats := NewCategoryStore(uuid.New(), memory.New().Categories(), nil, nil)

	if _, err := cats.Create(ctx, core.Category{Name: "โบนัส", Type: core.Income}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := cats.Create(ctx, core.Category{Name: " โบนัส ", Type: core.Income}); !core.IsValidation(err) {
		t.Fatalf("duplicate: want ValidationError, got %v", err)
	}
	if _, err := cats.Create(ctx, core.Category{Name: "โบนัส", Type: core.Expense}); err != nil {
		t.Fatalf("same name other type: %v", err)
	}
}

func TestCategoryStore_RenameToExisting(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	owner := uuid.New()
	cats := NewCategoryStore(owner, repo.Categories(), nil, nil)

	if _, err := cats.Create(ctx, core.Category{Name: "Food", Type: core.Expense}); err != nil {
		t.Fatalf("Create Food: %v", err)
	}
	travel, err := cats.Create(ctx, core.Category{Name: "Travel", Type: core.Expense})
	if err != nil {
		t.Fatalf("Create Travel: %v", err)
	}

	renamed := travel
	renamed.Name = " Food "
	if _, err := cats.Update(ctx, renamed); !core.IsValidation(err) {
		t.Fatalf("rename onto existing: want ValidationError, got %v", err)
	}
	if got := len(core.CategoryNames(cats.List(), core.Expense)); got != 2 {
		t.Fatalf("expense categories = %d, want 2", got)
	}
	if cur, _ := cats.Get(travel.ID); cur.Name != "Travel" {
		t.Fatalf("cached name = %q after rejected rename", cur.Name)
	}

	// The same name under the other type is a different category
	renamed.Type = core.Income
	updated, err := cats.Update(ctx, renamed)
	if err != nil {
		t.Fatalf("retype: %v", err)
	}
	if updated.Name != "Food" || updated.Type != core.Income {
		t.Fatalf("updated = %+v", updated)
	}

	// The remote refuses the collision even when the cache is bypassed
	clash := updated
	clash.Type = core.Expense
	if _, err := repo.Categories().Update(ctx, owner, clash); !core.IsValidation(err) {
		t.Fatalf("remote update onto Food/expense: want ValidationError, got %v", err)
	}
}

func TestStore_ModifySeesLatestRow(t *testing.T) {
	ctx := context.Background()
	goals := NewGoalStore(uuid.New(), memory.New().Goals(), nil)
	g, err := goals.Create(ctx, core.Goal{Name: "Car", Type: core.Saving,
		TargetAmount: core.NewMoney(1000), CurrentAmount: core.NewMoney(100)})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	add := func(cur core.Goal) (core.Goal, error) {
		cur.CurrentAmount = cur.CurrentAmount.Add(core.NewMoney(50))
		return cur, nil
	}
	for i := 0; i < 2; i++ {
		if _, _, err := goals.Modify(ctx, g.ID, add); err != nil {
			t.Fatalf("Modify %d: %v", i, err)
		}
	}
	prev, updated, err := goals.Modify(ctx, g.ID, add)
	if err != nil {
		t.Fatalf("Modify: %v", err)
	}
	if !prev.CurrentAmount.Equal(core.NewMoney(200)) || !updated.CurrentAmount.Equal(core.NewMoney(250)) {
		t.Fatalf("prev=%s updated=%s, want 200 and 250", prev.CurrentAmount, updated.CurrentAmount)
	}

	refuse := errors.New("no")
	if _, _, err := goals.Modify(ctx, g.ID, func(core.Goal) (core.Goal, error) { return core.Goal{}, refuse }); !errors.Is(err, refuse) {
		t.Fatalf("fn error: got %v", err)
	}
	if _, _, err := goals.Modify(ctx, uuid.New(), add); !core.IsNotFound(err) {
		t.Fatalf("unknown id: want NotFound, got %v", err)
	}
}

func TestCategoryStore_SeedDefaults(t *testing.T) {
	ctx := context.Background()
	cats := NewCategoryStore(uuid.New(), memory.New().Categories(), nil, nil)

	seeded, err := cats.SeedDefaults(ctx)
	if err != nil || !seeded {
		t.Fatalf("SeedDefaults = %v, %v", seeded, err)
	}
	if cats.Len() != len(core.DefaultCategories()) {
		t.Fatalf("seeded %d categories", cats.Len())
	}
	if seeded, _ := cats.SeedDefaults(ctx); seeded {
		t.Fatalf("seeded twice")
	}
	if names := cats.Names(core.Income); len(names) != 5 {
		t.Fatalf("income names = %v", names)
	}
}

func TestBudgetStore_UpsertMergesByCategory(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	owner := uuid.New()
	budgets := NewBudgetStore(owner, repo.Budgets(), nil)

	if _, err := budgets.Upsert(ctx, "อาหาร", core.NewMoney(100)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if _, err := budgets.Upsert(ctx, "อาหาร", core.NewMoney(250)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if budgets.Len() != 1 {
		t.Fatalf("want one budget per category, got %d", budgets.Len())
	}
	b, ok := budgets.ForCategory("อาหาร")
	if !ok || !b.Amount.Equal(core.NewMoney(250)) {
		t.Fatalf("ForCategory = %+v, %v", b, ok)
	}
	if _, err := budgets.Upsert(ctx, "อาหาร", core.MustParseMoney("0").Sub(core.NewMoney(1))); !core.IsValidation(err) {
		t.Fatalf("negative budget: want ValidationError, got %v", err)
	}
}

func TestGoalStore_DeadlineOrder(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := memory.NewWithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	})
	goals := NewGoalStore(uuid.New(), repo.Goals(), nil)

	soon := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	later := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	for _, g := range []core.Goal{
		{Name: "none-1", Type: core.Saving, TargetAmount: core.NewMoney(10)},
		{Name: "later", Type: core.Debt, TargetAmount: core.NewMoney(10), Deadline: &later},
		{Name: "none-2", Type: core.Saving, TargetAmount: core.NewMoney(10)},
		{Name: "soon", Type: core.Saving, TargetAmount: core.NewMoney(10), Deadline: &soon},
	} {
		if _, err := goals.Create(ctx, g); err != nil {
			t.Fatalf("Create %s: %v", g.Name, err)
		}
	}

	want := []string{"soon", "later", "none-1", "none-2"}
	list := goals.List()
	for i, name := range want {
		if list[i].Name != name {
			t.Fatalf("position %d = %s, want %s", i, list[i].Name, name)
		}
	}
}

func TestStore_Load(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	owner := uuid.New()
	repo.Transactions().Insert(ctx, owner, expense("อาหาร", 1), expense("เดินทาง", 2))

	s := NewTransactionStore(owner, repo.Transactions(), nil)
	if err := s.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("loaded %d rows", s.Len())
	}
}
