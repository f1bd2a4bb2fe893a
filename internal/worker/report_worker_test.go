package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/LiftThanakorn/income-expense-tracker/internal/amqp"
)

type fakeProcessor struct {
	mu        sync.Mutex
	processed []uuid.UUID
	sweeps    int
	swept     chan struct{}
}

func (f *fakeProcessor) Process(_ context.Context, _, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed = append(f.processed, id)
	return nil
}

func (f *fakeProcessor) SweepPending(context.Context, int) (int, error) {
	f.mu.Lock()
	f.sweeps++
	n := f.sweeps
	f.mu.Unlock()
	if n == 2 && f.swept != nil {
		close(f.swept)
	}
	return 0, nil
}

type fakeConsumer struct {
	msgs []*amqp.ReportRequestMessage
	err  error
}

func (f *fakeConsumer) ConsumeReportRequests(ctx context.Context, handler func(context.Context, *amqp.ReportRequestMessage) error) error {
	for _, m := range f.msgs {
		if err := handler(ctx, m); err != nil {
			return err
		}
	}
	if f.err != nil {
		return f.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestReportWorker_RunConsumesAndSweeps(t *testing.T) {
	proc := &fakeProcessor{swept: make(chan struct{})}
	msg := amqp.NewReportRequestMessage(uuid.New(), uuid.New(), "thisMonth")
	w := NewReportWorker(proc, &fakeConsumer{msgs: []*amqp.ReportRequestMessage{msg}}, Config{SweepInterval: 10 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case <-proc.swept:
	case <-time.After(2 * time.Second):
		t.Fatal("periodic sweep never ran")
	}
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Run returned %v after cancellation", err)
	}
	proc.mu.Lock()
	defer proc.mu.Unlock()
	if len(proc.processed) != 1 || proc.processed[0] != msg.ReportID {
		t.Fatalf("processed = %v", proc.processed)
	}
}

func TestReportWorker_ConsumerFailureStopsRun(t *testing.T) {
	proc := &fakeProcessor{}
	boom := errors.New("queue deleted")
	w := NewReportWorker(proc, &fakeConsumer{err: boom}, Config{SweepInterval: time.Hour}, nil)

	if err := w.Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Run = %v, want %v", err, boom)
	}
}

func TestReportWorker_Defaults(t *testing.T) {
	w := NewReportWorker(&fakeProcessor{}, nil, Config{}, nil)
	if w.config != DefaultConfig() {
		t.Fatalf("config = %+v", w.config)
	}
}
