// Package worker implements background task handlers for out-of-band rate refresh.
package worker

import (
	"context"
	"encoding/json"
	"time"

	"limitservice/internal/service"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// NewRateRefreshHandler returns a function to handle rate refresh tasks.
func NewRateRefreshHandler(svc service.RateServiceInterface, logger *zap.SugaredLogger) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload service.RefreshRatePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			logger.Errorw("Invalid task payload", "type", t.Type(), "error", err)
			return nil
		}

		if err := svc.RefreshPair(ctx, payload.From, payload.To); err != nil {
			logger.Errorw("Task processing failed", "from", payload.From, "to", payload.To, "error", err)
			return err
		}

		logger.Infow("Task completed", "from", payload.From, "to", payload.To)
		return nil
	}
}

// AsynqEnqueuer enqueues rate refresh tasks with retry, timeout and
// uniqueness options. Uniqueness keeps repeated reads of the same expired
// pair from piling up duplicate refresh jobs.
type AsynqEnqueuer struct {
	client    *asynq.Client
	maxRetry  int
	timeout   time.Duration
	uniqueTTL time.Duration
}

// NewAsynqEnqueuer creates a new AsynqEnqueuer with the given client, retry limit, task timeout and uniqueness window.
func NewAsynqEnqueuer(client *asynq.Client, maxRetry int, timeout, uniqueTTL time.Duration) *AsynqEnqueuer {
	return &AsynqEnqueuer{
		client:    client,
		maxRetry:  maxRetry,
		timeout:   timeout,
		uniqueTTL: uniqueTTL,
	}
}

// EnqueueRefresh enqueues a rate refresh task for the given pair.
func (e *AsynqEnqueuer) EnqueueRefresh(ctx context.Context, payload service.RefreshRatePayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(service.TaskTypeRateRefresh, data,
		asynq.MaxRetry(e.maxRetry),
		asynq.Timeout(e.timeout),
		asynq.Unique(e.uniqueTTL),
	)

	_, err = e.client.EnqueueContext(ctx, task)
	return err
}

var _ service.RefreshEnqueuer = (*AsynqEnqueuer)(nil)
