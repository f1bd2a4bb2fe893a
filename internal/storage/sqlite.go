package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/LiftThanakorn/income-expense-tracker/internal/core"
	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// Fixed width, so TEXT ordering matches time ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const sqliteDateLayout = "2006-01-02"

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite has a single writer; one connection avoids SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Transactions() *SQLiteTransactions { return &SQLiteTransactions{r} }
func (r *SQLiteRepository) Categories() *SQLiteCategories     { return &SQLiteCategories{r} }
func (r *SQLiteRepository) Budgets() *SQLiteBudgets           { return &SQLiteBudgets{r} }
func (r *SQLiteRepository) Goals() *SQLiteGoals               { return &SQLiteGoals{r} }

// stamp is the creation time of a new row, at the precision the column
// keeps.
func (r *SQLiteRepository) stamp() time.Time {
	return r.now().UTC()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(sqliteTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// === Transactions ===

type SQLiteTransactions struct{ r *SQLiteRepository }

const sqliteTransactionColumns = `id, owner_id, type, category, amount, note, created_at`

func scanSQLiteTransaction(s rowScanner) (core.Transaction, error) {
	var t core.Transaction
	var created string
	if err := s.Scan(&t.ID, &t.OwnerID, &t.Type, &t.Category, &t.Amount, &t.Note, &created); err != nil {
		return core.Transaction{}, err
	}
	at, err := parseTime(created)
	if err != nil {
		return core.Transaction{}, err
	}
	t.CreatedAt = at
	return t, nil
}

func (s *SQLiteTransactions) Select(ctx context.Context, owner uuid.UUID) ([]core.Transaction, error) {
	rows, err := s.r.db.QueryContext(ctx,
		`SELECT `+sqliteTransactionColumns+` FROM transactions WHERE owner_id = ? ORDER BY created_at`, owner)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanSQLiteTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteTransactions) Insert(ctx context.Context, owner uuid.UUID, items ...core.Transaction) ([]core.Transaction, error) {
	tx, err := s.r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	out := make([]core.Transaction, 0, len(items))
	for _, it := range items {
		it.ID, it.OwnerID = uuid.New(), owner
		if it.CreatedAt.IsZero() {
			it.CreatedAt = s.r.stamp()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO transactions (`+sqliteTransactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			it.ID, it.OwnerID, it.Type, it.Category, it.Amount, it.Note, formatTime(it.CreatedAt))
		if err != nil {
			return nil, fmt.Errorf("insert transaction: %w", err)
		}
		it.CreatedAt = it.CreatedAt.UTC()
		out = append(out, it)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

func (s *SQLiteTransactions) Update(ctx context.Context, owner uuid.UUID, t core.Transaction) (core.Transaction, error) {
	row := s.r.db.QueryRowContext(ctx, `
		UPDATE transactions SET type = ?, category = ?, amount = ?, note = ?
		WHERE id = ? AND owner_id = ?
		RETURNING `+sqliteTransactionColumns,
		t.Type, t.Category, t.Amount, t.Note, t.ID, owner)
	updated, err := scanSQLiteTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, &core.NotFoundError{Entity: "transaction", ID: t.ID.String()}
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	return updated, nil
}

func (s *SQLiteTransactions) Delete(ctx context.Context, owner, id uuid.UUID) (int, error) {
	return s.r.deleteRow(ctx, "transactions", owner, id)
}

func (r *SQLiteRepository) deleteRow(ctx context.Context, table string, owner, id uuid.UUID) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ? AND owner_id = ?`, id, owner)
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

// === Categories ===

type SQLiteCategories struct{ r *SQLiteRepository }

const sqliteCategoryColumns = `id, owner_id, name, type, created_at`

func scanSQLiteCategory(s rowScanner) (core.Category, error) {
	var c core.Category
	var created string
	if err := s.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Type, &created); err != nil {
		return core.Category{}, err
	}
	at, err := parseTime(created)
	if err != nil {
		return core.Category{}, err
	}
	c.CreatedAt = at
	return c, nil
}

func (s *SQLiteCategories) Select(ctx context.Context, owner uuid.UUID) ([]core.Category, error) {
	rows, err := s.r.db.QueryContext(ctx,
		`SELECT `+sqliteCategoryColumns+` FROM categories WHERE owner_id = ? ORDER BY created_at, rowid`, owner)
	if err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c, err := scanSQLiteCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteCategories) Insert(ctx context.Context, owner uuid.UUID, items ...core.Category) ([]core.Category, error) {
	tx, err := s.r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	at := s.r.stamp()
	out := make([]core.Category, 0, len(items))
	for _, it := range items {
		it.ID, it.OwnerID = uuid.New(), owner
		_, err := tx.ExecContext(ctx,
			`INSERT INTO categories (`+sqliteCategoryColumns+`) VALUES (?, ?, ?, ?, ?)`,
			it.ID, it.OwnerID, it.Name, it.Type, formatTime(at))
		if isUniqueViolation(err) {
			return nil, core.NewValidationError("name", fmt.Sprintf("category %q already exists", it.Name))
		}
		if err != nil {
			return nil, fmt.Errorf("insert category: %w", err)
		}
		it.CreatedAt = at
		out = append(out, it)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

func (s *SQLiteCategories) Update(ctx context.Context, owner uuid.UUID, c core.Category) (core.Category, error) {
	row := s.r.db.QueryRowContext(ctx, `
		UPDATE categories SET name = ?, type = ?
		WHERE id = ? AND owner_id = ?
		RETURNING `+sqliteCategoryColumns,
		c.Name, c.Type, c.ID, owner)
	updated, err := scanSQLiteCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, &core.NotFoundError{Entity: "category", ID: c.ID.String()}
	}
	if isUniqueViolation(err) {
		return core.Category{}, core.NewValidationError("name", fmt.Sprintf("category %q already exists", c.Name))
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	return updated, nil
}

func (s *SQLiteCategories) Delete(ctx context.Context, owner, id uuid.UUID) (int, error) {
	return s.r.deleteRow(ctx, "categories", owner, id)
}

// === Budgets ===

type SQLiteBudgets struct{ r *SQLiteRepository }

const sqliteBudgetColumns = `id, owner_id, category, amount, created_at`

func scanSQLiteBudget(s rowScanner) (core.Budget, error) {
	var b core.Budget
	var created string
	if err := s.Scan(&b.ID, &b.OwnerID, &b.Category, &b.Amount, &created); err != nil {
		return core.Budget{}, err
	}
	at, err := parseTime(created)
	if err != nil {
		return core.Budget{}, err
	}
	b.CreatedAt = at
	return b, nil
}

func (s *SQLiteBudgets) Select(ctx context.Context, owner uuid.UUID) ([]core.Budget, error) {
	rows, err := s.r.db.QueryContext(ctx,
		`SELECT `+sqliteBudgetColumns+` FROM budgets WHERE owner_id = ? ORDER BY created_at, rowid`, owner)
	if err != nil {
		return nil, fmt.Errorf("select budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		b, err := scanSQLiteBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *SQLiteBudgets) Insert(ctx context.Context, owner uuid.UUID, items ...core.Budget) ([]core.Budget, error) {
	out := make([]core.Budget, 0, len(items))
	for _, it := range items {
		b, err := s.Upsert(ctx, owner, it)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// Upsert inserts or replaces the amount of the owner's budget for the category.
func (s *SQLiteBudgets) Upsert(ctx context.Context, owner uuid.UUID, b core.Budget) (core.Budget, error) {
	row := s.r.db.QueryRowContext(ctx, `
		INSERT INTO budgets (`+sqliteBudgetColumns+`) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (owner_id, category) DO UPDATE SET amount = excluded.amount
		RETURNING `+sqliteBudgetColumns,
		uuid.New(), owner, b.Category, b.Amount, formatTime(s.r.stamp()))
	saved, err := scanSQLiteBudget(row)
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}
	return saved, nil
}

func (s *SQLiteBudgets) Update(ctx context.Context, owner uuid.UUID, b core.Budget) (core.Budget, error) {
	row := s.r.db.QueryRowContext(ctx, `
		UPDATE budgets SET category = ?, amount = ?
		WHERE id = ? AND owner_id = ?
		RETURNING `+sqliteBudgetColumns,
		b.Category, b.Amount, b.ID, owner)
	updated, err := scanSQLiteBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, &core.NotFoundError{Entity: "budget", ID: b.ID.String()}
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	return updated, nil
}

func (s *SQLiteBudgets) Delete(ctx context.Context, owner, id uuid.UUID) (int, error) {
	return s.r.deleteRow(ctx, "budgets", owner, id)
}

// === Goals ===

type SQLiteGoals struct{ r *SQLiteRepository }

const sqliteGoalColumns = `id, owner_id, name, type, target_amount, current_amount, deadline, created_at`

func scanSQLiteGoal(s rowScanner) (core.Goal, error) {
	var g core.Goal
	var deadline sql.NullString
	var created string
	if err := s.Scan(&g.ID, &g.OwnerID, &g.Name, &g.Type, &g.TargetAmount, &g.CurrentAmount, &deadline, &created); err != nil {
		return core.Goal{}, err
	}
	at, err := parseTime(created)
	if err != nil {
		return core.Goal{}, err
	}
	g.CreatedAt = at
	if deadline.Valid && deadline.String != "" {
		d, err := time.Parse(sqliteDateLayout, deadline.String)
		if err != nil {
			return core.Goal{}, fmt.Errorf("parse deadline %q: %w", deadline.String, err)
		}
		g.Deadline = &d
	}
	return g, nil
}

func deadlineValue(d *time.Time) any {
	if d == nil {
		return nil
	}
	return d.Format(sqliteDateLayout)
}

func (s *SQLiteGoals) Select(ctx context.Context, owner uuid.UUID) ([]core.Goal, error) {
	rows, err := s.r.db.QueryContext(ctx,
		`SELECT `+sqliteGoalColumns+` FROM goals WHERE owner_id = ? ORDER BY created_at, rowid`, owner)
	if err != nil {
		return nil, fmt.Errorf("select goals: %w", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		g, err := scanSQLiteGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *SQLiteGoals) Insert(ctx context.Context, owner uuid.UUID, items ...core.Goal) ([]core.Goal, error) {
	out := make([]core.Goal, 0, len(items))
	for _, it := range items {
		row := s.r.db.QueryRowContext(ctx, `
			INSERT INTO goals (`+sqliteGoalColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING `+sqliteGoalColumns,
			uuid.New(), owner, it.Name, it.Type, it.TargetAmount, it.CurrentAmount, deadlineValue(it.Deadline), formatTime(s.r.stamp()))
		g, err := scanSQLiteGoal(row)
		if err != nil {
			return nil, fmt.Errorf("insert goal: %w", err)
		}
		out = append(out, g)
	}
	return out, nil
}

func (s *SQLiteGoals) Update(ctx context.Context, owner uuid.UUID, g core.Goal) (core.Goal, error) {
	row := s.r.db.QueryRowContext(ctx, `
		UPDATE goals SET name = ?, type = ?, target_amount = ?, current_amount = ?, deadline = ?
		WHERE id = ? AND owner_id = ?
		RETURNING `+sqliteGoalColumns,
		g.Name, g.Type, g.TargetAmount, g.CurrentAmount, deadlineValue(g.Deadline), g.ID, owner)
	updated, err := scanSQLiteGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, &core.NotFoundError{Entity: "goal", ID: g.ID.String()}
	}
	if err != nil {
		return core.Goal{}, fmt.Errorf("update goal: %w", err)
	}
	return updated, nil
}

func (s *SQLiteGoals) Delete(ctx context.Context, owner, id uuid.UUID) (int, error) {
	return s.r.deleteRow(ctx, "goals", owner, id)
}

// === Users ===

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Email = core.NormalizeEmail(u.Email)
	at := r.stamp()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, formatTime(at))
	if isUniqueViolation(err) {
		return core.User{}, core.ErrEmailTaken
	}
	if err != nil {
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	u.CreatedAt = at
	return u, nil
}

func (r *SQLiteRepository) UserByEmail(ctx context.Context, email string) (core.User, error) {
	email = core.NormalizeEmail(email)
	u, err := r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, &core.NotFoundError{Entity: "user", ID: email}
	}
	return u, err
}

func (r *SQLiteRepository) UserByID(ctx context.Context, id uuid.UUID) (core.User, error) {
	u, err := r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, &core.NotFoundError{Entity: "user", ID: id.String()}
	}
	return u, err
}

func (r *SQLiteRepository) scanUser(row *sql.Row) (core.User, error) {
	var u core.User
	var created string
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &created); err != nil {
		return core.User{}, err
	}
	at, err := parseTime(created)
	if err != nil {
		return core.User{}, err
	}
	u.CreatedAt = at
	return u, nil
}

// === Reports ===

const sqliteReportColumns = `id, owner_id, window_key, status, summary, error, created_at, completed_at`

func scanSQLiteReport(s rowScanner) (core.Report, error) {
	var rep core.Report
	var summary, completed sql.NullString
	var created string
	if err := s.Scan(&rep.ID, &rep.OwnerID, &rep.Window, &rep.Status, &summary, &rep.Error, &created, &completed); err != nil {
		return core.Report{}, err
	}
	at, err := parseTime(created)
	if err != nil {
		return core.Report{}, err
	}
	rep.CreatedAt = at
	if completed.Valid {
		done, err := parseTime(completed.String)
		if err != nil {
			return core.Report{}, err
		}
		rep.CompletedAt = &done
	}
	if summary.Valid && summary.String != "" {
		var s core.SpendingSummary
		if err := json.Unmarshal([]byte(summary.String), &s); err != nil {
			return core.Report{}, fmt.Errorf("decode report summary: %w", err)
		}
		rep.Summary = &s
	}
	return rep, nil
}

func encodeSummary(s *core.SpendingSummary) (sql.NullString, error) {
	if s == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode report summary: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func completedValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func (r *SQLiteRepository) CreateReport(ctx context.Context, rep core.Report) (core.Report, error) {
	if rep.ID == uuid.Nil {
		rep.ID = uuid.New()
	}
	if rep.CreatedAt.IsZero() {
		rep.CreatedAt = r.now()
	}
	summary, err := encodeSummary(rep.Summary)
	if err != nil {
		return core.Report{}, err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO reports (`+sqliteReportColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rep.ID, rep.OwnerID, rep.Window, rep.Status, summary, rep.Error, formatTime(rep.CreatedAt), completedValue(rep.CompletedAt))
	if err != nil {
		return core.Report{}, fmt.Errorf("insert report: %w", err)
	}
	return rep, nil
}

func (r *SQLiteRepository) UpdateReport(ctx context.Context, rep core.Report) error {
	summary, err := encodeSummary(rep.Summary)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE reports SET status = ?, summary = ?, error = ?, completed_at = ?
		WHERE id = ? AND owner_id = ?`,
		rep.Status, summary, rep.Error, completedValue(rep.CompletedAt), rep.ID, rep.OwnerID)
	if err != nil {
		return fmt.Errorf("update report: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &core.NotFoundError{Entity: "report", ID: rep.ID.String()}
	}
	return nil
}

func (r *SQLiteRepository) GetReport(ctx context.Context, owner, id uuid.UUID) (core.Report, error) {
	rep, err := scanSQLiteReport(r.db.QueryRowContext(ctx,
		`SELECT `+sqliteReportColumns+` FROM reports WHERE id = ? AND owner_id = ?`, id, owner))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Report{}, &core.NotFoundError{Entity: "report", ID: id.String()}
	}
	if err != nil {
		return core.Report{}, fmt.Errorf("get report: %w", err)
	}
	return rep, nil
}

func (r *SQLiteRepository) PendingReports(ctx context.Context, limit int) ([]core.Report, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sqliteReportColumns+` FROM reports WHERE status = ? ORDER BY created_at LIMIT ?`,
		core.ReportPending, limit)
	if err != nil {
		return nil, fmt.Errorf("select pending reports: %w", err)
	}
	defer rows.Close()

	var out []core.Report
	for rows.Next() {
		rep, err := scanSQLiteReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}
