// Package reconcile keeps the available balance honest when money moves
// into or out of a goal. Every goal mutation may return a Proposal for an
// offsetting transaction that the caller confirms or declines separately.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/LiftThanakorn/income-expense-tracker/internal/cache"
	"github.com/LiftThanakorn/income-expense-tracker/internal/core"
	"github.com/LiftThanakorn/income-expense-tracker/internal/log"
	"github.com/google/uuid"
)

// Reason says which goal mutation produced a proposal.
type Reason string

const (
	ReasonGoalOpened   Reason = "goal_opened"
	ReasonGoalIncrease Reason = "goal_increase"
	ReasonGoalDecrease Reason = "goal_decrease"
	ReasonGoalTopUp    Reason = "goal_top_up"
	ReasonGoalRefund   Reason = "goal_refund"
)

// PendingTTL is how long an unanswered proposal stays confirmable.
const PendingTTL = 30 * time.Minute

// Proposal describes an offsetting transaction that has not been recorded.
type Proposal struct {
	ID        uuid.UUID            `json:"id"`
	OwnerID   uuid.UUID            `json:"-"`
	GoalID    uuid.UUID            `json:"goalId"`
	Reason    Reason               `json:"reason"`
	Type      core.TransactionType `json:"type"`
	Category  string               `json:"category"`
	Amount    core.Money           `json:"amount"`
	Note      string               `json:"note"`
	CreatedAt time.Time            `json:"createdAt"`
}

// Transaction returns the transaction a confirmation records.
func (p Proposal) Transaction() core.Transaction {
	return core.Transaction{Type: p.Type, Category: p.Category, Amount: p.Amount, Note: p.Note}
}

// GoalResult is the outcome of a goal mutation. Proposal is nil when no
// money moved.
type GoalResult struct {
	Goal     core.Goal `json:"goal"`
	Proposal *Proposal `json:"proposal,omitempty"`
}

// Goals is the goal store the engine mutates.
type Goals interface {
	Get(id uuid.UUID) (core.Goal, bool)
	Create(ctx context.Context, g core.Goal) (core.Goal, error)
	// Modify rewrites the cached goal under its in-flight lock and returns
	// the goal as it was and as stored.
	Modify(ctx context.Context, id uuid.UUID, fn func(current core.Goal) (core.Goal, error)) (prev, updated core.Goal, err error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Categories supplies the owner's current categories for the lookup rule.
type Categories interface {
	List() []core.Category
}

// Transactions records confirmed proposals.
type Transactions interface {
	Create(ctx context.Context, t core.Transaction) (core.Transaction, error)
}

type Engine struct {
	owner        uuid.UUID
	goals        Goals
	categories   Categories
	transactions Transactions
	pending      *cache.LRUCache[Proposal]
	logger       *log.Logger
	now          func() time.Time
}

// NewEngine builds an engine for one owner. pending may be shared between
// owners; keys are owner-prefixed.
func NewEngine(owner uuid.UUID, goals Goals, categories Categories, transactions Transactions, pending *cache.LRUCache[Proposal], logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Discard()
	}
	if pending == nil {
		pending = cache.NewLRUCache[Proposal](256, PendingTTL)
	}
	return &Engine{
		owner:        owner,
		goals:        goals,
		categories:   categories,
		transactions: transactions,
		pending:      pending,
		logger:       logger.WithComponent(log.ComponentReconcile).WithOwner(owner.String()),
		now:          time.Now,
	}
}

// CategoryFor picks the expense category for money moving into a goal.
// Saving goals use the savings category, debt goals the debt payment or
// bills category. Anything else, or a missing category, falls back to
// "other" even when no such category exists.
func CategoryFor(goalType core.GoalType, categories []core.Category) string {
	switch goalType {
	case core.Saving:
		if core.HasCategory(categories, core.CategorySavings, core.Expense) {
			return core.CategorySavings
		}
	case core.Debt:
		for _, name := range []string{core.CategoryDebtPayment, core.CategoryBills} {
			if core.HasCategory(categories, name, core.Expense) {
				return name
			}
		}
	}
	return core.CategoryOther
}

// CreateGoal creates g. A non-zero opening amount proposes an expense.
func (e *Engine) CreateGoal(ctx context.Context, g core.Goal) (GoalResult, error) {
	created, err := e.goals.Create(ctx, g)
	if err != nil {
		return GoalResult{}, err
	}
	res := GoalResult{Goal: created}
	if created.CurrentAmount.IsPositive() {
		res.Proposal = e.propose(ctx, created, ReasonGoalOpened, core.Expense,
			CategoryFor(created.Type, e.categories.List()), created.CurrentAmount,
			"opened new goal: "+created.Name)
	}
	return res, nil
}

// UpdateGoal writes g and proposes a transaction for any change in
// current_amount: an expense when it grew, an income when it shrank.
func (e *Engine) UpdateGoal(ctx context.Context, g core.Goal) (GoalResult, error) {
	prev, updated, err := e.goals.Modify(ctx, g.ID, func(core.Goal) (core.Goal, error) { return g, nil })
	if err != nil {
		return GoalResult{}, err
	}

	res := GoalResult{Goal: updated}
	delta := updated.CurrentAmount.Sub(prev.CurrentAmount)
	switch {
	case delta.IsPositive():
		res.Proposal = e.propose(ctx, updated, ReasonGoalIncrease, core.Expense,
			CategoryFor(updated.Type, e.categories.List()), delta,
			"goal adjustment (increase): "+updated.Name)
	case delta.IsNegative():
		res.Proposal = e.propose(ctx, updated, ReasonGoalDecrease, core.Income,
			core.CategoryOther, delta.Abs(),
			"goal adjustment (decrease): "+updated.Name)
	}
	return res, nil
}

// QuickAdd tops up a goal by amount. It never fills partially: a top-up
// past the target is rejected and the goal is left as it was.
func (e *Engine) QuickAdd(ctx context.Context, goalID uuid.UUID, amount core.Money) (GoalResult, error) {
	if !amount.IsPositive() {
		return GoalResult{}, &core.ValidationError{Field: "amount", Message: "must be greater than zero", Err: core.ErrInvalidAmount}
	}
	_, updated, err := e.goals.Modify(ctx, goalID, func(g core.Goal) (core.Goal, error) {
		next := g.CurrentAmount.Add(amount)
		if next.GreaterThan(g.TargetAmount) {
			return core.Goal{}, core.NewValidationError("amount",
				fmt.Sprintf("top-up of %s would bring %q to %s, above its target of %s", amount, g.Name, next, g.TargetAmount))
		}
		g.CurrentAmount = next
		return g, nil
	})
	if err != nil {
		return GoalResult{}, err
	}
	return GoalResult{
		Goal: updated,
		Proposal: e.propose(ctx, updated, ReasonGoalTopUp, core.Expense,
			CategoryFor(updated.Type, e.categories.List()), amount,
			"goal top-up: "+updated.Name),
	}, nil
}

// DeleteGoal deletes the goal. When it still held money, a refund income
// for that amount is proposed.
func (e *Engine) DeleteGoal(ctx context.Context, goalID uuid.UUID) (*Proposal, error) {
	g, known := e.goals.Get(goalID)
	if err := e.goals.Delete(ctx, goalID); err != nil {
		return nil, err
	}
	if !known || !g.CurrentAmount.IsPositive() {
		return nil, nil
	}
	return e.propose(ctx, g, ReasonGoalRefund, core.Income, core.CategoryOther, g.CurrentAmount,
		"refund from deleted goal: "+g.Name), nil
}

// Confirm records the proposed transaction. A proposal can be confirmed
// once; a retry after a persistence failure is allowed.
func (e *Engine) Confirm(ctx context.Context, proposalID uuid.UUID) (core.Transaction, error) {
	key := e.key(proposalID)
	p, ok := e.pending.Take(key)
	if !ok {
		return core.Transaction{}, &core.NotFoundError{Entity: "proposal", ID: proposalID.String()}
	}
	tx, err := e.transactions.Create(ctx, p.Transaction())
	if err != nil {
		if !core.IsValidation(err) {
			e.pending.Set(key, p)
		}
		return core.Transaction{}, err
	}
	e.logger.InfoContext(ctx, "Proposal confirmed",
		log.FieldOperation, log.OpConfirm, log.FieldProposalID, p.ID.String(), log.FieldEntityID, tx.ID.String())
	return tx, nil
}

// Decline discards the proposal. The goal mutation that produced it stands.
func (e *Engine) Decline(ctx context.Context, proposalID uuid.UUID) error {
	if _, ok := e.pending.Take(e.key(proposalID)); !ok {
		return &core.NotFoundError{Entity: "proposal", ID: proposalID.String()}
	}
	e.logger.InfoContext(ctx, "Proposal declined", log.FieldOperation, log.OpDecline, log.FieldProposalID, proposalID.String())
	return nil
}

// Pending lists the owner's unanswered proposals, most recent first.
func (e *Engine) Pending() []Proposal {
	return e.pending.Values(e.owner.String() + "/")
}

func (e *Engine) key(id uuid.UUID) string {
	return e.owner.String() + "/" + id.String()
}

func (e *Engine) propose(ctx context.Context, g core.Goal, reason Reason, t core.TransactionType, category string, amount core.Money, note string) *Proposal {
	p := Proposal{
		ID:        uuid.New(),
		OwnerID:   e.owner,
		GoalID:    g.ID,
		Reason:    reason,
		Type:      t,
		Category:  category,
		Amount:    amount,
		Note:      note,
		CreatedAt: e.now(),
	}
	e.pending.Set(e.key(p.ID), p)
	e.logger.InfoContext(ctx, "Proposed offsetting transaction",
		log.FieldOperation, log.OpPropose, log.FieldProposalID, p.ID.String(), log.FieldGoal, g.Name,
		log.FieldTxType, string(t), log.FieldCategory, category, log.FieldAmount, amount.String())
	return &p
}
