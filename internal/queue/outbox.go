package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/iliyamo/table-booking/internal/model"
)

// ErrOutboxFull is returned by Submit when the buffer has no room.
var ErrOutboxFull = errors.New("notification outbox is full")

// ErrOutboxClosed is returned by Submit after Close.
var ErrOutboxClosed = errors.New("notification outbox is closed")

// LocalOutbox runs notification jobs on a fixed pool of goroutines inside
// the API process.  Submit never blocks the request.
type LocalOutbox struct {
	jobs       chan model.NotificationJob
	handler    Handler
	log        *slog.Logger
	jobTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewLocalOutbox starts workers goroutines reading from a buffer of size
// buffer.
func NewLocalOutbox(h Handler, workers, buffer int, log *slog.Logger) *LocalOutbox {
	if workers < 1 {
		workers = 1
	}
	if buffer < 1 {
		buffer = 64
	}
	if log == nil {
		log = slog.Default()
	}
	o := &LocalOutbox{
		jobs:       make(chan model.NotificationJob, buffer),
		handler:    h,
		log:        log.With(slog.String("component", "notification-outbox")),
		jobTimeout: 30 * time.Second,
	}
	o.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go o.worker()
	}
	return o
}

func (o *LocalOutbox) Submit(ctx context.Context, job model.NotificationJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return ErrOutboxClosed
	}
	select {
	case o.jobs <- job:
		return nil
	default:
		return ErrOutboxFull
	}
}

func (o *LocalOutbox) worker() {
	defer o.wg.Done()
	for job := range o.jobs {
		// Jobs outlive the request that queued them.
		ctx, cancel := context.WithTimeout(context.Background(), o.jobTimeout)
		if err := o.handler.Dispatch(ctx, job); err != nil {
			o.log.Warn("notification job finished with errors",
				slog.String("job_id", job.ID),
				slog.String("reservation_id", job.Reservation.ID),
				slog.Any("err", err))
		}
		cancel()
	}
}

// Close stops accepting jobs and waits for queued ones to finish or for ctx
// to end.
func (o *LocalOutbox) Close(ctx context.Context) error {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.jobs)
	}
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
