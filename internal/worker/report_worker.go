package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/LiftThanakorn/income-expense-tracker/internal/amqp"
	"github.com/LiftThanakorn/income-expense-tracker/internal/log"
)

// ReportProcessor completes pending spending reports.
type ReportProcessor interface {
	Process(ctx context.Context, owner, id uuid.UUID) error
	SweepPending(ctx context.Context, limit int) (int, error)
}

// Consumer delivers report requests until ctx is cancelled.
type Consumer interface {
	ConsumeReportRequests(ctx context.Context, handler func(context.Context, *amqp.ReportRequestMessage) error) error
}

// Config holds configuration for the report worker
type Config struct {
	// SweepInterval is how often pending reports are swept (default: 1m)
	SweepInterval time.Duration

	// BatchSize is the max number of reports per sweep (default: 10)
	BatchSize int
}

func DefaultConfig() Config {
	return Config{
		SweepInterval: time.Minute,
		BatchSize:     10,
	}
}

// ReportWorker completes report requests from the queue. A periodic sweep
// catches reports whose message was lost or never published.
type ReportWorker struct {
	processor ReportProcessor
	consumer  Consumer
	config    Config
	logger    *log.Logger
}

// NewReportWorker builds a worker. consumer may be nil, in which case the
// worker only sweeps.
func NewReportWorker(processor ReportProcessor, consumer Consumer, config Config, logger *log.Logger) *ReportWorker {
	def := DefaultConfig()
	if config.SweepInterval <= 0 {
		config.SweepInterval = def.SweepInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &ReportWorker{
		processor: processor,
		consumer:  consumer,
		config:    config,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleReportRequest processes a single report request message from AMQP
func (w *ReportWorker) HandleReportRequest(ctx context.Context, msg *amqp.ReportRequestMessage) error {
	w.logger.InfoContext(ctx, "Processing report request",
		log.FieldReportID, msg.ReportID.String(),
		log.FieldOwnerID, msg.OwnerID.String(),
		log.FieldWindow, msg.Window)
	return w.processor.Process(ctx, msg.OwnerID, msg.ReportID)
}

// Sweep processes one batch of pending reports.
func (w *ReportWorker) Sweep(ctx context.Context) int {
	n, err := w.processor.SweepPending(ctx, w.config.BatchSize)
	if err != nil && !errors.Is(err, context.Canceled) {
		w.logger.ErrorContext(ctx, "Sweep failed", log.FieldError, err)
	}
	if n > 0 {
		w.logger.InfoContext(ctx, "Swept pending reports", log.FieldCount, n)
	}
	return n
}

// Run sweeps once at startup, then consumes and sweeps until ctx is
// cancelled. It returns nil on cancellation.
func (w *ReportWorker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Report worker started",
		"sweep_interval", w.config.SweepInterval,
		"batch_size", w.config.BatchSize,
		"consuming", w.consumer != nil)

	w.Sweep(ctx)

	g, gctx := errgroup.WithContext(ctx)
	if w.consumer != nil {
		g.Go(func() error {
			return w.consumer.ConsumeReportRequests(gctx, w.HandleReportRequest)
		})
	}
	g.Go(func() error {
		ticker := time.NewTicker(w.config.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				w.Sweep(gctx)
			}
		}
	})

	err := g.Wait()
	w.logger.InfoContext(ctx, "Report worker stopped")
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}
