package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/LiftThanakorn/income-expense-tracker/internal/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository connects to databaseURL and applies migrations.
func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &PostgresRepository{db: pool}, nil
}

func (r *PostgresRepository) Close() error {
	r.db.Close()
	return nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *PostgresRepository) Transactions() *PostgresTransactions { return &PostgresTransactions{r.db} }
func (r *PostgresRepository) Categories() *PostgresCategories     { return &PostgresCategories{r.db} }
func (r *PostgresRepository) Budgets() *PostgresBudgets           { return &PostgresBudgets{r.db} }
func (r *PostgresRepository) Goals() *PostgresGoals               { return &PostgresGoals{r.db} }

func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (T, error)) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func deletePg(ctx context.Context, db *pgxpool.Pool, table string, owner, id uuid.UUID) (int, error) {
	tag, err := db.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1 AND owner_id = $2`, id, owner)
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", table, err)
	}
	return int(tag.RowsAffected()), nil
}

// === Transactions ===

type PostgresTransactions struct{ db *pgxpool.Pool }

const pgTransactionColumns = `id, owner_id, type, category, amount::text, note, created_at`

func scanPgTransaction(row pgx.Row) (core.Transaction, error) {
	var t core.Transaction
	err := row.Scan(&t.ID, &t.OwnerID, &t.Type, &t.Category, &t.Amount, &t.Note, &t.CreatedAt)
	return t, err
}

func (s *PostgresTransactions) Select(ctx context.Context, owner uuid.UUID) ([]core.Transaction, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+pgTransactionColumns+` FROM transactions WHERE owner_id = $1 ORDER BY created_at`, owner)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	out, err := collect(rows, scanPgTransaction)
	if err != nil {
		return nil, fmt.Errorf("scan transactions: %w", err)
	}
	return out, nil
}

func (s *PostgresTransactions) Insert(ctx context.Context, owner uuid.UUID, items ...core.Transaction) ([]core.Transaction, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	out := make([]core.Transaction, 0, len(items))
	for _, it := range items {
		var created any
		if !it.CreatedAt.IsZero() {
			created = it.CreatedAt
		}
		t, err := scanPgTransaction(tx.QueryRow(ctx, `
			INSERT INTO transactions (id, owner_id, type, category, amount, note, created_at)
			VALUES ($1, $2, $3, $4, $5::numeric, $6, COALESCE($7::timestamptz, now()))
			RETURNING `+pgTransactionColumns,
			uuid.New(), owner, it.Type, it.Category, it.Amount.String(), it.Note, created))
		if err != nil {
			return nil, fmt.Errorf("insert transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

func (s *PostgresTransactions) Update(ctx context.Context, owner uuid.UUID, t core.Transaction) (core.Transaction, error) {
	updated, err := scanPgTransaction(s.db.QueryRow(ctx, `
		UPDATE transactions SET type = $1, category = $2, amount = $3::numeric, note = $4
		WHERE id = $5 AND owner_id = $6
		RETURNING `+pgTransactionColumns,
		t.Type, t.Category, t.Amount.String(), t.Note, t.ID, owner))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, &core.NotFoundError{Entity: "transaction", ID: t.ID.String()}
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	return updated, nil
}

func (s *PostgresTransactions) Delete(ctx context.Context, owner, id uuid.UUID) (int, error) {
	return deletePg(ctx, s.db, "transactions", owner, id)
}

// === Categories ===

type PostgresCategories struct{ db *pgxpool.Pool }

const pgCategoryColumns = `id, owner_id, name, type, created_at`

func scanPgCategory(row pgx.Row) (core.Category, error) {
	var c core.Category
	err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Type, &c.CreatedAt)
	return c, err
}

func (s *PostgresCategories) Select(ctx context.Context, owner uuid.UUID) ([]core.Category, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+pgCategoryColumns+` FROM categories WHERE owner_id = $1 ORDER BY created_at, name`, owner)
	if err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}
	out, err := collect(rows, scanPgCategory)
	if err != nil {
		return nil, fmt.Errorf("scan categories: %w", err)
	}
	return out, nil
}

func (s *PostgresCategories) Insert(ctx context.Context, owner uuid.UUID, items ...core.Category) ([]core.Category, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	out := make([]core.Category, 0, len(items))
	for _, it := range items {
		c, err := scanPgCategory(tx.QueryRow(ctx, `
			INSERT INTO categories (id, owner_id, name, type) VALUES ($1, $2, $3, $4)
			RETURNING `+pgCategoryColumns,
			uuid.New(), owner, it.Name, it.Type))
		if isPgUniqueViolation(err) {
			return nil, core.NewValidationError("name", fmt.Sprintf("category %q already exists", it.Name))
		}
		if err != nil {
			return nil, fmt.Errorf("insert category: %w", err)
		}
		out = append(out, c)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

func (s *PostgresCategories) Update(ctx context.Context, owner uuid.UUID, c core.Category) (core.Category, error) {
	updated, err := scanPgCategory(s.db.QueryRow(ctx, `
		UPDATE categories SET name = $1, type = $2 WHERE id = $3 AND owner_id = $4
		RETURNING `+pgCategoryColumns,
		c.Name, c.Type, c.ID, owner))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Category{}, &core.NotFoundError{Entity: "category", ID: c.ID.String()}
	}
	if isPgUniqueViolation(err) {
		return core.Category{}, core.NewValidationError("name", fmt.Sprintf("category %q already exists", c.Name))
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	return updated, nil
}

func (s *PostgresCategories) Delete(ctx context.Context, owner, id uuid.UUID) (int, error) {
	return deletePg(ctx, s.db, "categories", owner, id)
}

// === Budgets ===

type PostgresBudgets struct{ db *pgxpool.Pool }

const pgBudgetColumns = `id, owner_id, category, amount::text, created_at`

func scanPgBudget(row pgx.Row) (core.Budget, error) {
	var b core.Budget
	err := row.Scan(&b.ID, &b.OwnerID, &b.Category, &b.Amount, &b.CreatedAt)
	return b, err
}

func (s *PostgresBudgets) Select(ctx context.Context, owner uuid.UUID) ([]core.Budget, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+pgBudgetColumns+` FROM budgets WHERE owner_id = $1 ORDER BY created_at`, owner)
	if err != nil {
		return nil, fmt.Errorf("select budgets: %w", err)
	}
	out, err := collect(rows, scanPgBudget)
	if err != nil {
		return nil, fmt.Errorf("scan budgets: %w", err)
	}
	return out, nil
}

func (s *PostgresBudgets) Insert(ctx context.Context, owner uuid.UUID, items ...core.Budget) ([]core.Budget, error) {
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
func (s *PostgresBudgets) Upsert(ctx context.Context, owner uuid.UUID, b core.Budget) (core.Budget, error) {
	saved, err := scanPgBudget(s.db.QueryRow(ctx, `
		INSERT INTO budgets (id, owner_id, category, amount) VALUES ($1, $2, $3, $4::numeric)
		ON CONFLICT (owner_id, category) DO UPDATE SET amount = EXCLUDED.amount
		RETURNING `+pgBudgetColumns,
		uuid.New(), owner, b.Category, b.Amount.String()))
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}
	return saved, nil
}

func (s *PostgresBudgets) Update(ctx context.Context, owner uuid.UUID, b core.Budget) (core.Budget, error) {
	updated, err := scanPgBudget(s.db.QueryRow(ctx, `
		UPDATE budgets SET category = $1, amount = $2::numeric WHERE id = $3 AND owner_id = $4
		RETURNING `+pgBudgetColumns,
		b.Category, b.Amount.String(), b.ID, owner))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Budget{}, &core.NotFoundError{Entity: "budget", ID: b.ID.String()}
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	return updated, nil
}

func (s *PostgresBudgets) Delete(ctx context.Context, owner, id uuid.UUID) (int, error) {
	return deletePg(ctx, s.db, "budgets", owner, id)
}

// === Goals ===

type PostgresGoals struct{ db *pgxpool.Pool }

const pgGoalColumns = `id, owner_id, name, type, target_amount::text, current_amount::text, deadline, created_at`

func scanPgGoal(row pgx.Row) (core.Goal, error) {
	var g core.Goal
	err := row.Scan(&g.ID, &g.OwnerID, &g.Name, &g.Type, &g.TargetAmount, &g.CurrentAmount, &g.Deadline, &g.CreatedAt)
	return g, err
}

func (s *PostgresGoals) Select(ctx context.Context, owner uuid.UUID) ([]core.Goal, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+pgGoalColumns+` FROM goals WHERE owner_id = $1 ORDER BY created_at`, owner)
	if err != nil {
		return nil, fmt.Errorf("select goals: %w", err)
	}
	out, err := collect(rows, scanPgGoal)
	if err != nil {
		return nil, fmt.Errorf("scan goals: %w", err)
	}
	return out, nil
}

func (s *PostgresGoals) Insert(ctx context.Context, owner uuid.UUID, items ...core.Goal) ([]core.Goal, error) {
	out := make([]core.Goal, 0, len(items))
	for _, it := range items {
		g, err := scanPgGoal(s.db.QueryRow(ctx, `
			INSERT INTO goals (id, owner_id, name, type, target_amount, current_amount, deadline)
			VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7)
			RETURNING `+pgGoalColumns,
			uuid.New(), owner, it.Name, it.Type, it.TargetAmount.String(), it.CurrentAmount.String(), it.Deadline))
		if err != nil {
			return nil, fmt.Errorf("insert goal: %w", err)
		}
		out = append(out, g)
	}
	return out, nil
}

func (s *PostgresGoals) Update(ctx context.Context, owner uuid.UUID, g core.Goal) (core.Goal, error) {
	updated, err := scanPgGoal(s.db.QueryRow(ctx, `
		UPDATE goals SET name = $1, type = $2, target_amount = $3::numeric, current_amount = $4::numeric, deadline = $5
		WHERE id = $6 AND owner_id = $7
		RETURNING `+pgGoalColumns,
		g.Name, g.Type, g.TargetAmount.String(), g.CurrentAmount.String(), g.Deadline, g.ID, owner))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Goal{}, &core.NotFoundError{Entity: "goal", ID: g.ID.String()}
	}
	if err != nil {
		return core.Goal{}, fmt.Errorf("update goal: %w", err)
	}
	return updated, nil
}

func (s *PostgresGoals) Delete(ctx context.Context, owner, id uuid.UUID) (int, error) {
	return deletePg(ctx, s.db, "goals", owner, id)
}

// === Users ===

func (r *PostgresRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Email = core.NormalizeEmail(u.Email)
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (id, email, password_hash) VALUES ($1, $2, $3)
		RETURNING created_at`,
		u.ID, u.Email, u.PasswordHash).Scan(&u.CreatedAt)
	if isPgUniqueViolation(err) {
		return core.User{}, core.ErrEmailTaken
	}
	if err != nil {
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) UserByEmail(ctx context.Context, email string) (core.User, error) {
	email = core.NormalizeEmail(email)
	var u core.User
	err := r.db.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = $1`, email).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.User{}, &core.NotFoundError{Entity: "user", ID: email}
	}
	if err != nil {
		return core.User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) UserByID(ctx context.Context, id uuid.UUID) (core.User, error) {
	var u core.User
	err := r.db.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.User{}, &core.NotFoundError{Entity: "user", ID: id.String()}
	}
	if err != nil {
		return core.User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

// === Reports ===

const pgReportColumns = `id, owner_id, window_key, status, summary, error, created_at, completed_at`

func scanPgReport(row pgx.Row) (core.Report, error) {
	var rep core.Report
	var summary []byte
	if err := row.Scan(&rep.ID, &rep.OwnerID, &rep.Window, &rep.Status, &summary, &rep.Error, &rep.CreatedAt, &rep.CompletedAt); err != nil {
		return core.Report{}, err
	}
	if len(summary) > 0 {
		var s core.SpendingSummary
		if err := json.Unmarshal(summary, &s); err != nil {
			return core.Report{}, fmt.Errorf("decode report summary: %w", err)
		}
		rep.Summary = &s
	}
	return rep, nil
}

func summaryJSON(s *core.SpendingSummary) (any, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode report summary: %w", err)
	}
	return string(b), nil
}

func (r *PostgresRepository) CreateReport(ctx context.Context, rep core.Report) (core.Report, error) {
	if rep.ID == uuid.Nil {
		rep.ID = uuid.New()
	}
	if rep.CreatedAt.IsZero() {
		rep.CreatedAt = time.Now()
	}
	summary, err := summaryJSON(rep.Summary)
	if err != nil {
		return core.Report{}, err
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO reports (id, owner_id, window_key, status, summary, error, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8)`,
		rep.ID, rep.OwnerID, rep.Window, rep.Status, summary, rep.Error, rep.CreatedAt, rep.CompletedAt)
	if err != nil {
		return core.Report{}, fmt.Errorf("insert report: %w", err)
	}
	return rep, nil
}

func (r *PostgresRepository) UpdateReport(ctx context.Context, rep core.Report) error {
	summary, err := summaryJSON(rep.Summary)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE reports SET status = $1, summary = $2::jsonb, error = $3, completed_at = $4
		WHERE id = $5 AND owner_id = $6`,
		rep.Status, summary, rep.Error, rep.CompletedAt, rep.ID, rep.OwnerID)
	if err != nil {
		return fmt.Errorf("update report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &core.NotFoundError{Entity: "report", ID: rep.ID.String()}
	}
	return nil
}

func (r *PostgresRepository) GetReport(ctx context.Context, owner, id uuid.UUID) (core.Report, error) {
	rep, err := scanPgReport(r.db.QueryRow(ctx,
		`SELECT `+pgReportColumns+` FROM reports WHERE id = $1 AND owner_id = $2`, id, owner))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Report{}, &core.NotFoundError{Entity: "report", ID: id.String()}
	}
	if err != nil {
		return core.Report{}, fmt.Errorf("get report: %w", err)
	}
	return rep, nil
}

func (r *PostgresRepository) PendingReports(ctx context.Context, limit int) ([]core.Report, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+pgReportColumns+` FROM reports WHERE status = $1 ORDER BY created_at LIMIT $2`,
		core.ReportPending, limit)
	if err != nil {
		return nil, fmt.Errorf("select pending reports: %w", err)
	}
	out, err := collect(rows, scanPgReport)
	if err != nil {
		return nil, fmt.Errorf("scan reports: %w", err)
	}
	return out, nil
}
