package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/LiftThanakorn/income-expense-tracker/internal/core"
	"github.com/google/uuid"
)

func newTestSQLite(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "tracker.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteTransactions_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := newTestSQLite(t)
	owner, other := uuid.New(), uuid.New()
	txs := repo.Transactions()

	inserted, err := txs.Insert(ctx, owner, core.Transaction{
		Type: core.Expense, Category: "อาหาร", Amount: core.MustParseMoney("120.50"), Note: "lunch",
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if len(inserted) != 1 || inserted[0].ID == uuid.Nil || inserted[0].CreatedAt.IsZero() {
		t.Fatalf("Insert returned %+v", inserted)
	}

	got, err := txs.Select(ctx, owner)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(got) != 1 || !got[0].Amount.Equal(core.MustParseMoney("120.50")) || got[0].Category != "อาหาร" {
		t.Fatalf("Select = %+v", got)
	}
	if others, _ := txs.Select(ctx, other); len(others) != 0 {
		t.Fatalf("rows leaked across owners: %+v", others)
	}

	upd := got[0]
	upd.Note = "dinner"
	saved, err := txs.Update(ctx, owner, upd)
	if err != nil || saved.Note != "dinner" {
		t.Fatalf("Update = %+v, %v", saved, err)
	}
	if _, err := txs.Update(ctx, other, upd); !core.IsNotFound(err) {
		t.Fatalf("Update by another owner: want NotFound, got %v", err)
	}

	n, err := txs.Delete(ctx, owner, upd.ID)
	if err != nil || n != 1 {
		t.Fatalf("Delete = %d, %v", n, err)
	}
	n, err = txs.Delete(ctx, owner, upd.ID)
	if err != nil || n != 0 {
		t.Fatalf("second Delete = %d, %v", n, err)
	}
}

func TestSQLiteCategories_Unique(t *testing.T) {
	ctx := context.Background()
	repo := newTestSQLite(t)
	owner := uuid.New()

	if _, err := repo.Categories().Insert(ctx, owner, core.DefaultCategories()...); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_, err := repo.Categories().Insert(ctx, owner, core.Category{Name: "อาหาร", Type: core.Expense})
	if !core.IsValidation(err) {
		t.Fatalf("duplicate insert: want ValidationError, got %v", err)
	}
	// Same name with the other type is allowed.
	if _, err := repo.Categories().Insert(ctx, owner, core.Category{Name: "อาหาร", Type: core.Income}); err != nil {
		t.Fatalf("insert other type: %v", err)
	}
}

func TestSQLiteBudgets_Upsert(t *testing.T) {
	ctx := context.Background()
	repo := newTestSQLite(t)
	owner := uuid.New()
	budgets := repo.Budgets()

	first, err := budgets.Upsert(ctx, owner, core.Budget{Category: "อาหาร", Amount: core.NewMoney(3000)})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	second, err := budgets.Upsert(ctx, owner, core.Budget{Category: "อาหาร", Amount: core.NewMoney(0)})
	if err != nil {
		t.Fatalf("Upsert again: %v", err)
	}
	if second.ID != first.ID || !second.Amount.IsZero() {
		t.Fatalf("upsert did not replace amount in place: first=%+v second=%+v", first, second)
	}
	all, _ := budgets.Select(ctx, owner)
	if len(all) != 1 {
		t.Fatalf("want 1 budget row, got %d", len(all))
	}
}

func TestSQLiteGoals_Deadline(t *testing.T) {
	ctx := context.Background()
	repo := newTestSQLite(t)
	owner := uuid.New()
	deadline := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)

	inserted, err := repo.Goals().Insert(ctx, owner, core.Goal{
		Name: "Emergency fund", Type: core.Saving,
		TargetAmount: core.NewMoney(10000), CurrentAmount: core.NewMoney(500), Deadline: &deadline,
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	g := inserted[0]
	if g.Deadline == nil || !g.Deadline.Equal(deadline) {
		t.Fatalf("deadline = %v", g.Deadline)
	}

	g.Deadline = nil
	g.CurrentAmount = core.NewMoney(700)
	updated, err := repo.Goals().Update(ctx, owner, g)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Deadline != nil || !updated.CurrentAmount.Equal(core.NewMoney(700)) {
		t.Fatalf("Update = %+v", updated)
	}
}

func TestSQLiteUsersAndReports(t *testing.T) {
	ctx := context.Background()
	repo := newTestSQLite(t)

	u, err := repo.CreateUser(ctx, core.User{Email: " Lift@Example.com ", PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := repo.CreateUser(ctx, core.User{Email: "lift@example.com", PasswordHash: "x"}); err != core.ErrEmailTaken {
		t.Fatalf("duplicate email: got %v", err)
	}
	found, err := repo.UserByEmail(ctx, "LIFT@example.com")
	if err != nil || found.ID != u.ID {
		t.Fatalf("UserByEmail = %+v, %v", found, err)
	}

	rep, err := repo.CreateReport(ctx, core.Report{OwnerID: u.ID, Window: "thisMonth", Status: core.ReportPending})
	if err != nil {
		t.Fatalf("CreateReport: %v", err)
	}
	pending, err := repo.PendingReports(ctx, 10)
	if err != nil || len(pending) != 1 {
		t.Fatalf("PendingReports = %v, %v", pending, err)
	}

	now := time.Now()
	rep.Status = core.ReportDone
	rep.CompletedAt = &now
	rep.Summary = &core.SpendingSummary{Summary: "ok", SavingsSuggestions: []string{"cook at home"}}
	if err := repo.UpdateReport(ctx, rep); err != nil {
		t.Fatalf("UpdateReport: %v", err)
	}
	got, err := repo.GetReport(ctx, u.ID, rep.ID)
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if got.Status != core.ReportDone || got.Summary == nil || got.Summary.Summary != "ok" {
		t.Fatalf("GetReport = %+v", got)
	}
	if _, err := repo.GetReport(ctx, uuid.New(), rep.ID); !core.IsNotFound(err) {
		t.Fatalf("GetReport by other owner: want NotFound, got %v", err)
	}
}

func TestSQLite_CreatedAtMatchesStoredValue(t *testing.T) {
	ctx := context.Background()
	repo := newTestSQLite(t)
	bangkok := time.FixedZone("ICT", 7*60*60)
	at := time.Date(2024, 6, 12, 10, 0, 0, 123456789, bangkok)
	repo.now = func() time.Time { return at }
	owner := uuid.New()

	cats, err := repo.Categories().Insert(ctx, owner, core.Category{Name: "อาหาร", Type: core.Expense})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if !cats[0].CreatedAt.Equal(at) || cats[0].CreatedAt.Location() != time.UTC {
		t.Fatalf("category CreatedAt = %v, want %v in UTC", cats[0].CreatedAt, at)
	}
	stored, err := repo.Categories().Select(ctx, owner)
	if err != nil || len(stored) != 1 || !stored[0].CreatedAt.Equal(cats[0].CreatedAt) {
		t.Fatalf("stored = %+v, %v", stored, err)
	}

	u, err := repo.CreateUser(ctx, core.User{Email: "a@example.com", PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	found, err := repo.UserByEmail(ctx, "a@example.com")
	if err != nil || !found.CreatedAt.Equal(u.CreatedAt) || !u.CreatedAt.Equal(at) {
		t.Fatalf("user CreatedAt = %v, stored %v (%v)", u.CreatedAt, found.CreatedAt, err)
	}
}
