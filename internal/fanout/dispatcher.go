package fanout

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/user/paywatch/internal/domain"
	"github.com/user/paywatch/internal/monitoring"
)

// Recorder appends a failure row to the tabular store.
type Recorder interface {
	Record(ctx context.Context, rec domain.FailureRecord) error
}

// Notifier sends the alert email.
type Notifier interface {
	Notify(ctx context.Context, rec domain.FailureRecord) error
}

// Result carries the per-collaborator outcome of one fan-out. Either leg may
// have taken effect even when the other failed; there is no compensation.
type Result struct {
	RecordErr error
	NotifyErr error
}

// Err collapses the result into a single error for the HTTP contract.
func (r Result) Err() error {
	switch {
	case r.RecordErr != nil && r.NotifyErr != nil:
		return fmt.Errorf("recorder: %v; notifier: %v", r.RecordErr, r.NotifyErr)
	case r.RecordErr != nil:
		return fmt.Errorf("recorder: %w", r.RecordErr)
	case r.NotifyErr != nil:
		return fmt.Errorf("notifier: %w", r.NotifyErr)
	}
	return nil
}

// Dispatcher issues the two downstream calls for one failure record.
type Dispatcher struct {
	recorder Recorder
	notifier Notifier
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

func NewDispatcher(r Recorder, n Notifier, m *monitoring.Metrics, l *zap.Logger) *Dispatcher {
	return &Dispatcher{recorder: r, notifier: n, metrics: m, logger: l}
}

// Dispatch calls the recorder and the notifier concurrently and waits for
// both to settle. Each leg runs to completion regardless of the other.
func (d *Dispatcher) Dispatch(ctx context.Context, rec domain.FailureRecord) Result {
	var res Result
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		res.RecordErr = d.recorder.Record(ctx, rec)
	}()
	go func() {
		defer wg.Done()
		res.NotifyErr = d.notifier.Notify(ctx, rec)
	}()
	wg.Wait()

	if res.RecordErr != nil {
		d.metrics.IncFanoutErrors("recorder")
	}
	if res.NotifyErr != nil {
		d.metrics.IncFanoutErrors("notifier")
	}
	if err := res.Err(); err != nil {
		d.logger.Error("fan-out failed", zap.String("payment_id", rec.ID), zap.Error(err))
	} else {
		d.logger.Info("failure processed", zap.String("payment_id", rec.ID))
	}
	return res
}
