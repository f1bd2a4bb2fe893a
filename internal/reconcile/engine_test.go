package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/LiftThanakorn/income-expense-tracker/internal/core"
	"github.com/LiftThanakorn/income-expense-tracker/internal/storage/memory"
	"github.com/LiftThanakorn/income-expense-tracker/internal/store"
	"github.com/google/uuid"
)

type fixture struct {
	engine *Engine
	goals  *store.GoalStore
	txs    *store.TransactionStore
	cats   *store.CategoryStore
}

func newFixture(t *testing.T, categories ...core.Category) fixture {
	t.Helper()
	repo := memory.New()
	owner := uuid.New()
	f := fixture{
		goals: store.NewGoalStore(owner, repo.Goals(), nil),
		txs:   store.NewTransactionStore(owner, repo.Transactions(), nil),
		cats:  store.NewCategoryStore(owner, repo.Categories(), nil, nil),
	}
	if len(categories) > 0 {
		if _, err := f.cats.CreateMany(context.Background(), categories); err != nil {
			t.Fatalf("seed categories: %v", err)
		}
	}
	f.engine = NewEngine(owner, f.goals, f.cats, f.txs, nil, nil)
	return f
}

func (f fixture) goal(t *testing.T, target, current int64) core.Goal {
	t.Helper()
	res, err := f.engine.CreateGoal(context.Background(), core.Goal{
		Name: "Emergency fund", Type: core.Saving,
		TargetAmount: core.NewMoney(target), CurrentAmount: core.NewMoney(current),
	})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	if res.Proposal != nil {
		if err := f.engine.Decline(context.Background(), res.Proposal.ID); err != nil {
			t.Fatalf("Decline opening proposal: %v", err)
		}
	}
	return res.Goal
}

func TestCategoryFor(t *testing.T) {
	expense := func(name string) core.Category { return core.Category{Name: name, Type: core.Expense} }
	income := func(name string) core.Category { return core.Category{Name: name, Type: core.Income} }

	tests := []struct {
		name string
		goal core.GoalType
		cats []core.Category
		want string
	}{
		{"saving with savings category", core.Saving, []core.Category{expense(core.CategorySavings)}, core.CategorySavings},
		{"saving ignores income savings", core.Saving, []core.Category{income(core.CategorySavings)}, core.CategoryOther},
		{"saving without savings", core.Saving, []core.Category{expense("อาหาร")}, core.CategoryOther},
		{"debt prefers debt payment", core.Debt, []core.Category{expense(core.CategoryBills), expense(core.CategoryDebtPayment)}, core.CategoryDebtPayment},
		{"debt falls back to bills", core.Debt, []core.Category{expense(core.CategoryBills)}, core.CategoryBills},
		{"debt without either", core.Debt, []core.Category{expense("อาหาร")}, core.CategoryOther},
		{"empty list", core.Saving, nil, core.CategoryOther},
		{"empty list debt", core.Debt, nil, core.CategoryOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CategoryFor(tt.goal, tt.cats); got != tt.want {
				t.Fatalf("CategoryFor = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCreateGoal_ProposesOpeningExpense(t *testing.T) {
	f := newFixture(t, core.Category{Name: core.CategorySavings, Type: core.Expense})

	res, err := f.engine.CreateGoal(context.Background(), core.Goal{
		Name: "Car", Type: core.Saving, TargetAmount: core.NewMoney(50000), CurrentAmount: core.NewMoney(5000),
	})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	p := res.Proposal
	if p == nil {
		t.Fatalf("expected a proposal")
	}
	if p.Type != core.Expense || p.Category != core.CategorySavings || !p.Amount.Equal(core.NewMoney(5000)) || p.Note != "opened new goal: Car" {
		t.Fatalf("proposal = %+v", p)
	}
	if f.txs.Len() != 0 {
		t.Fatalf("proposal must not be recorded before confirmation")
	}

	res, err = f.engine.CreateGoal(context.Background(), core.Goal{
		Name: "Loan", Type: core.Debt, TargetAmount: core.NewMoney(1000),
	})
	if err != nil || res.Proposal != nil {
		t.Fatalf("zero opening amount must not propose: %+v, %v", res.Proposal, err)
	}
}

func TestQuickAdd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := f.goal(t, 1000, 800)

	_, err := f.engine.QuickAdd(ctx, g.ID, core.NewMoney(300))
	if !core.IsValidation(err) {
		t.Fatalf("quick-add past target: want ValidationError, got %v", err)
	}
	cur, _ := f.goals.Get(g.ID)
	if !cur.CurrentAmount.Equal(core.NewMoney(800)) {
		t.Fatalf("current_amount changed to %s after rejected quick-add", cur.CurrentAmount)
	}

	res, err := f.engine.QuickAdd(ctx, g.ID, core.NewMoney(200))
	if err != nil {
		t.Fatalf("QuickAdd: %v", err)
	}
	if !res.Goal.CurrentAmount.Equal(core.NewMoney(1000)) {
		t.Fatalf("current_amount = %s, want 1000", res.Goal.CurrentAmount)
	}
	p := res.Proposal
	if p == nil || p.Type != core.Expense || !p.Amount.Equal(core.NewMoney(200)) || p.Note != "goal top-up: Emergency fund" {
		t.Fatalf("proposal = %+v", p)
	}
	if f.txs.Len() != 0 {
		t.Fatalf("quick-add must only offer the expense")
	}
	if _, err := f.engine.QuickAdd(ctx, g.ID, core.Zero); !core.IsValidation(err) {
		t.Fatalf("zero quick-add: want ValidationError, got %v", err)
	}
}

func TestUpdateGoal_DecreaseConfirmAndDecline(t *testing.T) {
	for _, confirm := range []bool{true, false} {
		name := "decline"
		if confirm {
			name = "confirm"
		}
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			g := f.goal(t, 1000, 500)

			g.CurrentAmount = core.NewMoney(200)
			res, err := f.engine.UpdateGoal(ctx, g)
			if err != nil {
				t.Fatalf("UpdateGoal: %v", err)
			}
			if !res.Goal.CurrentAmount.Equal(core.NewMoney(200)) {
				t.Fatalf("current_amount = %s", res.Goal.CurrentAmount)
			}
			p := res.Proposal
			if p == nil || p.Type != core.Income || p.Category != core.CategoryOther || !p.Amount.Equal(core.NewMoney(300)) {
				t.Fatalf("proposal = %+v", p)
			}
			if p.Note != "goal adjustment (decrease): Emergency fund" {
				t.Fatalf("note = %q", p.Note)
			}

			if confirm {
				tx, err := f.engine.Confirm(ctx, p.ID)
				if err != nil {
					t.Fatalf("Confirm: %v", err)
				}
				if tx.Type != core.Income || !tx.Amount.Equal(core.NewMoney(300)) {
					t.Fatalf("recorded %+v", tx)
				}
				if f.txs.Len() != 1 {
					t.Fatalf("want exactly 1 transaction, got %d", f.txs.Len())
				}
			} else {
				if err := f.engine.Decline(ctx, p.ID); err != nil {
					t.Fatalf("Decline: %v", err)
				}
				if f.txs.Len() != 0 {
					t.Fatalf("decline recorded %d transactions", f.txs.Len())
				}
			}

			cur, _ := f.goals.Get(g.ID)
			if !cur.CurrentAmount.Equal(core.NewMoney(200)) {
				t.Fatalf("goal current_amount = %s, want 200", cur.CurrentAmount)
			}
		})
	}
}

func TestUpdateGoal_IncreaseProposesExpense(t *testing.T) {
	f := newFixture(t, core.Category{Name: core.CategoryDebtPayment, Type: core.Expense})
	res, err := f.engine.CreateGoal(context.Background(), core.Goal{
		Name: "Card", Type: core.Debt, TargetAmount: core.NewMoney(900),
	})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	g := res.Goal
	g.CurrentAmount = core.NewMoney(150)

	res, err = f.engine.UpdateGoal(context.Background(), g)
	if err != nil {
		t.Fatalf("UpdateGoal: %v", err)
	}
	p := res.Proposal
	if p == nil || p.Type != core.Expense || p.Category != core.CategoryDebtPayment || !p.Amount.Equal(core.NewMoney(150)) {
		t.Fatalf("proposal = %+v", p)
	}
	if p.Note != "goal adjustment (increase): Card" {
		t.Fatalf("note = %q", p.Note)
	}

	g.Name = "Credit card"
	res, err = f.engine.UpdateGoal(context.Background(), g)
	if err != nil || res.Proposal != nil {
		t.Fatalf("rename without amount change must not propose: %+v, %v", res.Proposal, err)
	}
}

func TestDeleteGoal_ProposesRefund(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := f.goal(t, 1000, 400)

	p, err := f.engine.DeleteGoal(ctx, g.ID)
	if err != nil {
		t.Fatalf("DeleteGoal: %v", err)
	}
	if _, ok := f.goals.Get(g.ID); ok {
		t.Fatalf("goal not deleted")
	}
	if p == nil || p.Type != core.Income || p.Category != core.CategoryOther || !p.Amount.Equal(core.NewMoney(400)) {
		t.Fatalf("refund proposal = %+v", p)
	}
	if p.Note != "refund from deleted goal: Emergency fund" {
		t.Fatalf("note = %q", p.Note)
	}

	empty := f.goal(t, 1000, 0)
	p, err = f.engine.DeleteGoal(ctx, empty.ID)
	if err != nil || p != nil {
		t.Fatalf("empty goal delete: %+v, %v", p, err)
	}
}

func TestConfirm_OnlyOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := f.goal(t, 1000, 0)

	res, err := f.engine.QuickAdd(ctx, g.ID, core.NewMoney(100))
	if err != nil {
		t.Fatalf("QuickAdd: %v", err)
	}
	if got := f.engine.Pending(); len(got) != 1 || got[0].ID != res.Proposal.ID {
		t.Fatalf("Pending = %+v", got)
	}
	if _, err := f.engine.Confirm(ctx, res.Proposal.ID); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if _, err := f.engine.Confirm(ctx, res.Proposal.ID); !core.IsNotFound(err) {
		t.Fatalf("second Confirm: want NotFound, got %v", err)
	}
	if err := f.engine.Decline(ctx, res.Proposal.ID); !core.IsNotFound(err) {
		t.Fatalf("Decline after confirm: want NotFound, got %v", err)
	}
	if f.txs.Len() != 1 {
		t.Fatalf("transactions = %d", f.txs.Len())
	}
	if len(f.engine.Pending()) != 0 {
		t.Fatalf("pending not cleared")
	}
}

func TestUpdateGoal_UnknownGoal(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.UpdateGoal(context.Background(), core.Goal{
		ID: uuid.New(), Name: "x", Type: core.Saving, TargetAmount: core.NewMoney(1),
	})
	if !core.IsNotFound(err) {
		t.Fatalf("want NotFound, got %v", err)
	}
}

// gatedGoals holds every remote update until release is closed.
type gatedGoals struct {
	store.Remote[core.Goal]
	entered chan struct{}
	release chan struct{}
}

func (g *gatedGoals) Update(ctx context.Context, owner uuid.UUID, goal core.Goal) (core.Goal, error) {
	g.entered <- struct{}{}
	<-g.release
	return g.Remote.Update(ctx, owner, goal)
}

func TestQuickAdd_ConcurrentTopUpsDoNotLoseUpdates(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	owner := uuid.New()
	remote := &gatedGoals{Remote: repo.Goals(), entered: make(chan struct{}, 1), release: make(chan struct{})}
	goals := store.NewGoalStore(owner, remote, nil)
	engine := NewEngine(owner, goals,
		store.NewCategoryStore(owner, repo.Categories(), nil, nil),
		store.NewTransactionStore(owner, repo.Transactions(), nil), nil, nil)

	g, err := goals.Create(ctx, core.Goal{Name: "Trip", Type: core.Saving,
		TargetAmount: core.NewMoney(1000), CurrentAmount: core.NewMoney(600)})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	first := make(chan error, 1)
	go func() {
		_, err := engine.QuickAdd(ctx, g.ID, core.NewMoney(200))
		first <- err
	}()
	<-remote.entered

	if _, err := engine.QuickAdd(ctx, g.ID, core.NewMoney(200)); !errors.Is(err, core.ErrInFlight) {
		t.Fatalf("overlapping quick-add: want ErrInFlight, got %v", err)
	}
	close(remote.release)
	if err := <-first; err != nil {
		t.Fatalf("first QuickAdd: %v", err)
	}

	res, err := engine.QuickAdd(ctx, g.ID, core.NewMoney(200))
	if err != nil {
		t.Fatalf("retried QuickAdd: %v", err)
	}
	if !res.Goal.CurrentAmount.Equal(core.NewMoney(1000)) {
		t.Fatalf("current_amount = %s, want 1000 after two top-ups of 200", res.Goal.CurrentAmount)
	}
	if got := len(engine.Pending()); got != 2 {
		t.Fatalf("pending proposals = %d, want 2", got)
	}

	if _, err := engine.QuickAdd(ctx, g.ID, core.NewMoney(1)); !core.IsValidation(err) {
		t.Fatalf("top-up past a full goal: want ValidationError, got %v", err)
	}
}
