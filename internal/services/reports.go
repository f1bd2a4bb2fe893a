package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/LiftThanakorn/income-expense-tracker/internal/amqp"
	"github.com/LiftThanakorn/income-expense-tracker/internal/cache"
	"github.com/LiftThanakorn/income-expense-tracker/internal/core"
	"github.com/LiftThanakorn/income-expense-tracker/internal/log"
	"github.com/LiftThanakorn/income-expense-tracker/internal/report"
	"github.com/LiftThanakorn/income-expense-tracker/internal/store"
)

// ReportRepository persists spending reports. GetReport and UpdateReport
// return *core.NotFoundError for unknown or foreign reports.
type ReportRepository interface {
	CreateReport(ctx context.Context, rep core.Report) (core.Report, error)
	UpdateReport(ctx context.Context, rep core.Report) error
	GetReport(ctx context.Context, owner, id uuid.UUID) (core.Report, error)
	PendingReports(ctx context.Context, limit int) ([]core.Report, error)
}

// SpendingAnalyzer summarizes a set of transactions.
type SpendingAnalyzer interface {
	AnalyzeSpending(ctx context.Context, txs []core.Transaction) (core.SpendingSummary, error)
}

// ReportPublisher hands a pending report to the worker.
type ReportPublisher interface {
	PublishReportRequest(ctx context.Context, msg *amqp.ReportRequestMessage) error
}

// ReportService produces spending reports. Without a publisher the analysis
// runs inside the request; with one the request only records a pending
// report and the worker completes it.
type ReportService struct {
	reports      ReportRepository
	transactions store.Remote[core.Transaction]
	analyzer     SpendingAnalyzer
	publisher    ReportPublisher
	completed    *cache.LRUCache[core.Report]
	loc          *time.Location
	logger       *log.Logger
	now          func() time.Time
}

func NewReportService(reports ReportRepository, transactions store.Remote[core.Transaction], analyzer SpendingAnalyzer, publisher ReportPublisher, loc *time.Location, logger *log.Logger) *ReportService {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &ReportService{
		reports:      reports,
		transactions: transactions,
		analyzer:     analyzer,
		publisher:    publisher,
		completed:    cache.NewLRUCache[core.Report](512, time.Hour),
		loc:          loc,
		logger:       logger.WithComponent(log.ComponentReport),
		now:          time.Now,
	}
}

// Cache returns the completed-report cache for periodic expiry.
func (s *ReportService) Cache() cache.Cleaner { return s.completed }

// Async reports whether requests are handed to the worker.
func (s *ReportService) Async() bool { return s.publisher != nil }

// Request records a report for window and either completes it immediately
// or publishes it for the worker. A failed publish leaves the report
// pending for the worker's sweep.
func (s *ReportService) Request(ctx context.Context, owner uuid.UUID, window string) (core.Report, error) {
	if owner == uuid.Nil {
		return core.Report{}, core.ErrNoSession
	}
	w, err := report.ParseWindow(window)
	if err != nil {
		return core.Report{}, err
	}

	rep, err := s.reports.CreateReport(ctx, core.Report{
		ID:      uuid.New(),
		OwnerID: owner,
		Window:  string(w),
		Status:  core.ReportPending,
	})
	if err != nil {
		return core.Report{}, &core.PersistenceError{Op: "create report", Err: err}
	}

	logger := s.logger.With(log.FieldReportID, rep.ID.String(), log.FieldOwnerID, owner.String(), log.FieldWindow, rep.Window)

	if s.publisher == nil {
		return s.complete(ctx, rep)
	}

	if err := s.publisher.PublishReportRequest(ctx, amqp.NewReportRequestMessage(rep.ID, owner, rep.Window)); err != nil {
		logger.ErrorContext(ctx, "Failed to publish report request, leaving it for the sweep", log.FieldError, err)
	} else {
		logger.InfoContext(ctx, "Report requested")
	}
	return rep, nil
}

// Get returns a report owned by owner.
func (s *ReportService) Get(ctx context.Context, owner, id uuid.UUID) (core.Report, error) {
	if rep, ok := s.completed.Get(id.String()); ok && rep.OwnerID == owner {
		return rep, nil
	}
	rep, err := s.reports.GetReport(ctx, owner, id)
	if err != nil {
		if core.IsNotFound(err) {
			return core.Report{}, err
		}
		return core.Report{}, &core.PersistenceError{Op: "get report", Err: err}
	}
	if rep.Status != core.ReportPending {
		s.completed.Set(id.String(), rep)
	}
	return rep, nil
}

// Process completes one pending report. Reports that are no longer pending
// are skipped so redelivered messages are harmless.
func (s *ReportService) Process(ctx context.Context, owner, id uuid.UUID) error {
	rep, err := s.reports.GetReport(ctx, owner, id)
	if core.IsNotFound(err) {
		s.logger.WarnContext(ctx, "Report vanished before processing", log.FieldReportID, id.String())
		return nil
	}
	if err != nil {
		return fmt.Errorf("load report: %w", err)
	}
	if rep.Status != core.ReportPending {
		return nil
	}
	_, err = s.complete(ctx, rep)
	if core.IsAdapter(err) || core.IsValidation(err) {
		// Recorded as failed; retrying will not help
		return nil
	}
	return err
}

// SweepPending processes up to limit pending reports and returns how many
// were completed.
func (s *ReportService) SweepPending(ctx context.Context, limit int) (int, error) {
	pending, err := s.reports.PendingReports(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list pending reports: %w", err)
	}
	done := 0
	for _, rep := range pending {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}
		if err := s.Process(ctx, rep.OwnerID, rep.ID); err != nil {
			s.logger.ErrorContext(ctx, "Failed to process pending report", log.FieldReportID, rep.ID.String(), log.FieldError, err)
			continue
		}
		done++
	}
	return done, nil
}

// complete runs the analysis and stores the outcome. An analysis failure is
// stored as a failed report and returned to the caller.
func (s *ReportService) complete(ctx context.Context, rep core.Report) (core.Report, error) {
	logger := s.logger.With(log.FieldReportID, rep.ID.String(), log.FieldOwnerID, rep.OwnerID.String(), log.FieldWindow, rep.Window)

	summary, analyzeErr := s.analyze(ctx, rep.OwnerID, report.Window(rep.Window))
	if analyzeErr != nil && core.IsPersistence(analyzeErr) {
		return rep, analyzeErr
	}

	finished := s.now()
	rep.CompletedAt = &finished
	if analyzeErr != nil {
		rep.Status = core.ReportFailed
		rep.Error = analyzeErr.Error()
	} else {
		rep.Status = core.ReportDone
		rep.Summary = &summary
	}

	if err := s.reports.UpdateReport(ctx, rep); err != nil {
		return rep, &core.PersistenceError{Op: "update report", Err: err}
	}
	s.completed.Set(rep.ID.String(), rep)

	if analyzeErr != nil {
		logger.ErrorContext(ctx, "Report failed", log.FieldError, analyzeErr)
		return rep, analyzeErr
	}
	logger.InfoContext(ctx, "Report completed", log.FieldOperation, log.OpAnalyze)
	return rep, nil
}

// analyze summarizes the owner's transactions inside window. The totals are
// recomputed locally rather than trusted from the model.
func (s *ReportService) analyze(ctx context.Context, owner uuid.UUID, window report.Window) (core.SpendingSummary, error) {
	all, err := s.transactions.Select(ctx, owner)
	if err != nil {
		return core.SpendingSummary{}, &core.PersistenceError{Op: "load transactions", Err: err}
	}
	txs := report.FilterByWindow(all, report.WindowRange(window, s.now().In(s.loc)))

	summary, err := s.analyzer.AnalyzeSpending(ctx, txs)
	if err != nil {
		return core.SpendingSummary{}, err
	}
	summary.MonthlyTotals = report.MonthlyTotals(txs)
	return summary, nil
}
