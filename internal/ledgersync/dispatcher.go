package ledgersync

import (
	"context"
	"sync"

	"suki-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type JobKind string

const (
	JobNewCustomer   JobKind = "new_customer"
	JobProfileUpdate JobKind = "profile_update"
)

// Job is a sync requested by a request handler and run after it returns.
type Job struct {
	Kind       JobKind
	CustomerID uuid.UUID
	Returning  bool
	RequestID  string
}

// Dispatcher runs sync jobs off the request path. Submit never blocks; a job
// that does not fit the buffer is dropped and the customer stays pending for
// the next queue pass.
type Dispatcher struct {
	svc     Service
	rec     Recorder
	workers int

	mu     sync.Mutex
	jobs   chan Job
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(svc Service, buffer, workers int, rec Recorder) *Dispatcher {
	if buffer <= 0 {
		buffer = 64
	}
	if workers <= 0 {
		workers = 1
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Dispatcher{
		svc:     svc,
		rec:     rec,
		workers: workers,
		jobs:    make(chan Job, buffer),
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for job := range d.jobs {
				d.run(ctx, job)
			}
		}()
	}
}

// Submit queues job and reports whether it was accepted.
func (d *Dispatcher) Submit(job Job) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	log := logger.L().With(
		zap.String("component", "SyncDispatcher"),
		zap.String("customer_id", job.CustomerID.String()),
		zap.String("kind", string(job.Kind)),
	)
	if job.RequestID != "" {
		log = log.With(zap.String("request_id", job.RequestID))
	}

	if d.closed {
		log.Warn("dispatcher stopped, sync job dropped")
		d.rec.ObserveDispatchDropped()
		return false
	}

	select {
	case d.jobs <- job:
		return true
	default:
		log.Warn("dispatch buffer full, sync job dropped")
		d.rec.ObserveDispatchDropped()
		return false
	}
}

// Stop refuses new jobs and waits for the queued ones to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) run(ctx context.Context, job Job) {
	if job.RequestID != "" {
		ctx = logger.WithRequestID(ctx, job.RequestID)
	}

	defer func() {
		if r := recover(); r != nil {
			logger.FromCtx(ctx).Error("sync job panicked",
				zap.String("customer_id", job.CustomerID.String()),
				zap.Any("panic", r),
			)
		}
	}()

	switch job.Kind {
	case JobNewCustomer:
		d.svc.SyncNewCustomer(ctx, job.CustomerID, job.Returning)
	case JobProfileUpdate:
		if _, err := d.svc.SyncProfile(ctx, job.CustomerID); err != nil {
			logger.FromCtx(ctx).Warn("profile sync not applied",
				zap.String("customer_id", job.CustomerID.String()),
				zap.Error(err),
			)
		}
	default:
		logger.FromCtx(ctx).Error("unknown sync job kind", zap.String("kind", string(job.Kind)))
	}
}
