package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/LiftThanakorn/income-expense-tracker/internal/ai"
	"github.com/LiftThanakorn/income-expense-tracker/internal/cache"
	"github.com/LiftThanakorn/income-expense-tracker/internal/core"
	"github.com/LiftThanakorn/income-expense-tracker/internal/log"
	"github.com/LiftThanakorn/income-expense-tracker/internal/reconcile"
	"github.com/LiftThanakorn/income-expense-tracker/internal/report"
	"github.com/LiftThanakorn/income-expense-tracker/internal/store"
)

// Session is one owner's loaded ledger: the four entity stores and the
// reconciliation engine over them.
type Session struct {
	Owner        uuid.UUID
	Transactions *store.TransactionStore
	Categories   *store.CategoryStore
	Budgets      *store.BudgetStore
	Goals        *store.GoalStore
	Engine       *reconcile.Engine

	loc *time.Location
	now func() time.Time
}

// Dashboard derives the dashboard view from the session's cached entities.
func (s *Session) Dashboard(window report.Window, filter report.TypeFilter) report.Dashboard {
	return report.Build(report.Input{
		Transactions: s.Transactions.List(),
		Budgets:      s.Budgets.List(),
		Window:       window,
		Type:         filter,
		Now:          s.now().In(s.loc),
	})
}

// Vocabulary returns the owner's category names by type.
func (s *Session) Vocabulary() ai.Vocabulary {
	return ai.VocabularyFrom(s.Categories.List())
}

// LedgerOptions tunes the session cache.
type LedgerOptions struct {
	SessionCacheSize int
	SessionTTL       time.Duration
	Location         *time.Location
}

// LedgerService opens, caches and closes owner sessions. Sessions expire
// after SessionTTL without use and are reloaded from the remote on the next
// request.
type LedgerService struct {
	remotes  store.Remotes
	sessions *cache.LRUCache[*Session]
	pending  *cache.LRUCache[reconcile.Proposal]
	opening  singleflight.Group
	loc      *time.Location
	logger   *log.Logger
	now      func() time.Time
}

func NewLedgerService(remotes store.Remotes, opts LedgerOptions, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.Discard()
	}
	if opts.SessionCacheSize < 1 {
		opts.SessionCacheSize = 256
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * time.Minute
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	s := &LedgerService{
		remotes:  remotes,
		sessions: cache.NewLRUCache[*Session](opts.SessionCacheSize, opts.SessionTTL),
		pending:  cache.NewLRUCache[reconcile.Proposal](opts.SessionCacheSize*16, reconcile.PendingTTL),
		loc:      opts.Location,
		logger:   logger.WithComponent(log.ComponentLedger),
		now:      time.Now,
	}
	s.sessions.OnEvict(func(key string, _ *Session) {
		s.logger.Debug("Session evicted", log.FieldOwnerID, key)
	})
	return s
}

// Caches returns the caches that need periodic expiry.
func (s *LedgerService) Caches() []cache.Cleaner {
	return []cache.Cleaner{s.sessions, s.pending}
}

// Session returns the owner's session, loading it on first use. Concurrent
// first requests for the same owner share one load.
func (s *LedgerService) Session(ctx context.Context, owner uuid.UUID) (*Session, error) {
	if owner == uuid.Nil {
		return nil, core.ErrNoSession
	}
	key := owner.String()
	if sess, ok := s.sessions.Get(key); ok {
		return sess, nil
	}

	v, err, _ := s.opening.Do(key, func() (any, error) {
		if sess, ok := s.sessions.Get(key); ok {
			return sess, nil
		}
		sess, err := s.open(ctx, owner)
		if err != nil {
			return nil, err
		}
		s.sessions.Set(key, sess)
		return sess, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

func (s *LedgerService) open(ctx context.Context, owner uuid.UUID) (*Session, error) {
	logger := s.logger.WithOwner(owner.String())
	start := time.Now()

	budgets := store.NewBudgetStore(owner, s.remotes.Budgets, logger)
	sess := &Session{
		Owner:        owner,
		Transactions: store.NewTransactionStore(owner, s.remotes.Transactions, logger),
		Categories:   store.NewCategoryStore(owner, s.remotes.Categories, budgets, logger),
		Budgets:      budgets,
		Goals:        store.NewGoalStore(owner, s.remotes.Goals, logger),
		loc:          s.loc,
		now:          s.now,
	}
	sess.Engine = reconcile.NewEngine(owner, sess.Goals, sess.Categories, sess.Transactions, s.pending, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sess.Transactions.Load(gctx) })
	g.Go(func() error { return sess.Categories.Load(gctx) })
	g.Go(func() error { return sess.Budgets.Load(gctx) })
	g.Go(func() error { return sess.Goals.Load(gctx) })
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	if _, err := sess.Categories.SeedDefaults(ctx); err != nil {
		return nil, fmt.Errorf("seed categories: %w", err)
	}

	logger.InfoContext(ctx, "Session opened",
		log.FieldOperation, log.OpLoad,
		"transactions", sess.Transactions.Len(),
		"categories", sess.Categories.Len(),
		log.FieldDuration, time.Since(start).Milliseconds())
	return sess, nil
}

// EndSession drops the owner's cached session and discards any proposals
// still waiting for an answer.
func (s *LedgerService) EndSession(ctx context.Context, owner uuid.UUID) {
	key := owner.String()
	if sess, ok := s.sessions.Get(key); ok {
		for _, p := range sess.Engine.Pending() {
			_ = sess.Engine.Decline(ctx, p.ID)
		}
	}
	s.sessions.Delete(key)
	s.logger.InfoContext(ctx, "Session ended", log.FieldOwnerID, key)
}
