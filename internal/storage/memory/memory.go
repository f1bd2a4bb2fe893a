// Package memory keeps every collection in process memory. It backs the
// memory data backend and the package tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/LiftThanakorn/income-expense-tracker/internal/core"
	"github.com/google/uuid"
)

// Collection is one owner-scoped entity collection.
type Collection[T core.Entity] struct {
	mu     sync.Mutex
	entity string
	rows   []T
	now    func() time.Time
	fields fields[T]
}

type fields[T any] struct {
	owner     func(T) uuid.UUID
	createdAt func(T) time.Time
	stamp     func(row T, id, owner uuid.UUID, at time.Time) T
	conflicts func(a, b T) bool
}

func newCollection[T core.Entity](entity string, now func() time.Time, f fields[T]) *Collection[T] {
	return &Collection[T]{entity: entity, now: now, fields: f}
}

// Select returns the owner's rows in insertion order.
func (c *Collection[T]) Select(_ context.Context, owner uuid.UUID) ([]T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []T
	for _, r := range c.rows {
		if c.fields.owner(r) == owner {
			out = append(out, r)
		}
	}
	return out, nil
}

// Insert assigns ids and timestamps and stores the rows as one batch.
func (c *Collection[T]) Insert(_ context.Context, owner uuid.UUID, items ...T) ([]T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	at := c.now()
	out := make([]T, 0, len(items))
	for _, it := range items {
		row := c.fields.stamp(it, uuid.New(), owner, at)
		if c.conflict(row, out) {
			return nil, core.NewValidationError(c.entity, "already exists")
		}
		out = append(out, row)
	}
	c.rows = append(c.rows, out...)
	return out, nil
}

func (c *Collection[T]) conflict(row T, pending []T) bool {
	if c.fields.conflicts == nil {
		return false
	}
	for _, r := range c.rows {
		if c.fields.owner(r) == c.fields.owner(row) && c.fields.conflicts(r, row) {
			return true
		}
	}
	for _, r := range pending {
		if c.fields.conflicts(r, row) {
			return true
		}
	}
	return false
}

// conflictOnUpdate checks row against the owner's other rows.
func (c *Collection[T]) conflictOnUpdate(row T) bool {
	if c.fields.conflicts == nil {
		return false
	}
	for _, r := range c.rows {
		if r.EntityID() != row.EntityID() && c.fields.owner(r) == c.fields.owner(row) && c.fields.conflicts(r, row) {
			return true
		}
	}
	return false
}

// Update replaces the owner's row with the same id. Owner and createdAt are
// kept from the stored row.
func (c *Collection[T]) Update(_ context.Context, owner uuid.UUID, item T) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, r := range c.rows {
		if r.EntityID() == item.EntityID() && c.fields.owner(r) == owner {
			row := c.fields.stamp(item, r.EntityID(), owner, c.fields.createdAt(r))
			if c.conflictOnUpdate(row) {
				var zero T
				return zero, core.NewValidationError(c.entity, "already exists")
			}
			c.rows[i] = row
			return row, nil
		}
	}
	var zero T
	return zero, &core.NotFoundError{Entity: c.entity, ID: item.EntityID().String()}
}

// Delete removes the owner's row and reports how many rows were removed.
func (c *Collection[T]) Delete(_ context.Context, owner, id uuid.UUID) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, r := range c.rows {
		if r.EntityID() == id && c.fields.owner(r) == owner {
			c.rows = append(c.rows[:i], c.rows[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

// BudgetCollection adds upsert keyed by (owner, category).
type BudgetCollection struct {
	*Collection[core.Budget]
}

func (b *BudgetCollection) Upsert(_ context.Context, owner uuid.UUID, budget core.Budget) (core.Budget, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, r := range b.rows {
		if r.OwnerID == owner && r.Category == budget.Category {
			r.Amount = budget.Amount
			b.rows[i] = r
			return r, nil
		}
	}
	row := budget
	row.ID = uuid.New()
	row.OwnerID = owner
	row.CreatedAt = b.now()
	b.rows = append(b.rows, row)
	return row, nil
}

// Repository is the in-memory persistence backend.
type Repository struct {
	transactions *Collection[core.Transaction]
	categories   *Collection[core.Category]
	budgets      *BudgetCollection
	goals        *Collection[core.Goal]

	mu      sync.Mutex
	users   map[uuid.UUID]core.User
	reports map[uuid.UUID]core.Report
	now     func() time.Time
}

func New() *Repository {
	return NewWithClock(time.Now)
}

// NewWithClock builds a repository whose timestamps come from now.
func NewWithClock(now func() time.Time) *Repository {
	return &Repository{
		transactions: newCollection("transaction", now, fields[core.Transaction]{
			owner:     func(t core.Transaction) uuid.UUID { return t.OwnerID },
			createdAt: func(t core.Transaction) time.Time { return t.CreatedAt },
			stamp: func(t core.Transaction, id, owner uuid.UUID, at time.Time) core.Transaction {
				t.ID, t.OwnerID = id, owner
				// Synthetic and imported transactions may carry their own timestamp.
				if t.CreatedAt.IsZero() {
					t.CreatedAt = at
				}
				return t
			},
		}),
		categories: newCollection("category", now, fields[core.Category]{
			owner:     func(c core.Category) uuid.UUID { return c.OwnerID },
			createdAt: func(c core.Category) time.Time { return c.CreatedAt },
			stamp: func(c core.Category, id, owner uuid.UUID, at time.Time) core.Category {
				c.ID, c.OwnerID, c.CreatedAt = id, owner, at
				return c
			},
			conflicts: func(a, b core.Category) bool { return a.Name == b.Name && a.Type == b.Type },
		}),
		budgets: &BudgetCollection{newCollection("budget", now, fields[core.Budget]{
			owner:     func(b core.Budget) uuid.UUID { return b.OwnerID },
			createdAt: func(b core.Budget) time.Time { return b.CreatedAt },
			stamp: func(b core.Budget, id, owner uuid.UUID, at time.Time) core.Budget {
				b.ID, b.OwnerID, b.CreatedAt = id, owner, at
				return b
			},
			conflicts: func(a, b core.Budget) bool { return a.Category == b.Category },
		})},
		goals: newCollection("goal", now, fields[core.Goal]{
			owner:     func(g core.Goal) uuid.UUID { return g.OwnerID },
			createdAt: func(g core.Goal) time.Time { return g.CreatedAt },
			stamp: func(g core.Goal, id, owner uuid.UUID, at time.Time) core.Goal {
				g.ID, g.OwnerID, g.CreatedAt = id, owner, at
				return g
			},
		}),
		users:   make(map[uuid.UUID]core.User),
		reports: make(map[uuid.UUID]core.Report),
		now:     now,
	}
}

func (r *Repository) Transactions() *Collection[core.Transaction] { return r.transactions }
func (r *Repository) Categories() *Collection[core.Category]     { return r.categories }
func (r *Repository) Budgets() *BudgetCollection                 { return r.budgets }
func (r *Repository) Goals() *Collection[core.Goal]              { return r.goals }

func (r *Repository) Ping(context.Context) error { return nil }

func (r *Repository) Close() error { return nil }

// CreateUser stores a new user. Emails are unique.
func (r *Repository) CreateUser(_ context.Context, u core.User) (core.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u.Email = core.NormalizeEmail(u.Email)
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return core.User{}, core.ErrEmailTaken
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = r.now()
	r.users[u.ID] = u
	return u, nil
}

func (r *Repository) UserByEmail(_ context.Context, email string) (core.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email = core.NormalizeEmail(email)
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return core.User{}, &core.NotFoundError{Entity: "user", ID: email}
}

func (r *Repository) UserByID(_ context.Context, id uuid.UUID) (core.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return core.User{}, &core.NotFoundError{Entity: "user", ID: id.String()}
	}
	return u, nil
}

func (r *Repository) CreateReport(_ context.Context, rep core.Report) (core.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rep.ID == uuid.Nil {
		rep.ID = uuid.New()
	}
	if rep.CreatedAt.IsZero() {
		rep.CreatedAt = r.now()
	}
	r.reports[rep.ID] = rep
	return rep, nil
}

func (r *Repository) UpdateReport(_ context.Context, rep core.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.reports[rep.ID]
	if !ok || existing.OwnerID != rep.OwnerID {
		return &core.NotFoundError{Entity: "report", ID: rep.ID.String()}
	}
	rep.CreatedAt = existing.CreatedAt
	r.reports[rep.ID] = rep
	return nil
}

func (r *Repository) GetReport(_ context.Context, owner, id uuid.UUID) (core.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rep, ok := r.reports[id]
	if !ok || rep.OwnerID != owner {
		return core.Report{}, &core.NotFoundError{Entity: "report", ID: id.String()}
	}
	return rep, nil
}

// PendingReports returns up to limit pending reports, oldest first.
func (r *Repository) PendingReports(_ context.Context, limit int) ([]core.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []core.Report
	for _, rep := range r.reports {
		if rep.Status == core.ReportPending {
			out = append(out, rep)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
