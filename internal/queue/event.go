// Package queue moves notification jobs from the request path to the
// dispatcher, either through an in-process worker pool or through RabbitMQ.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/iliyamo/table-booking/internal/model"
)

// Handler processes one notification job.  Its error is logged only; jobs
// are never retried.
type Handler interface {
	Dispatch(ctx context.Context, job model.NotificationJob) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, job model.NotificationJob) error

func (f HandlerFunc) Dispatch(ctx context.Context, job model.NotificationJob) error { return f(ctx, job) }

func decodeJob(body []byte) (model.NotificationJob, error) {
	var job model.NotificationJob
	if err := json.Unmarshal(body, &job); err != nil {
		return model.NotificationJob{}, fmt.Errorf("unmarshal: %w", err)
	}
	if job.Kind == "" {
		return model.NotificationJob{}, fmt.Errorf("job %s has no kind", job.ID)
	}
	return job, nil
}
