// Package transferworker consumes the transfer execution queue.
package transferworker

import (
	"context"
	"encoding/json"

	"github.com/go-petr/fx-bank/internal/transferservice"
	"github.com/go-petr/fx-bank/pkg/mqpkg"
	"github.com/rs/zerolog"
)

// Executor runs one scheduled transfer to its terminal status.
//
//go:generate mockgen -source worker.go -destination worker_mock.go -package transferworker
type Executor interface {
	Execute(ctx context.Context, transferID int64) error
}

// Consumer delivers queue messages with manual acknowledgment.
type Consumer interface {
	Consume(ctx context.Context, queue string, handle mqpkg.HandlerFunc) error
}

// Worker consumes transfer execution messages. The queue acknowledges only
// after the executor returns nil, which happens once a terminal status is
// durably committed; anything else is redelivered.
type Worker struct {
	consumer Consumer
	executor Executor
	queue    string
}

// New returns transfer Worker.
func New(consumer Consumer, executor Executor, queue string) *Worker {
	return &Worker{
		consumer: consumer,
		executor: executor,
		queue:    queue,
	}
}

// Run consumes the queue until ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	return w.consumer.Consume(ctx, w.queue, w.Handle)
}

// Handle processes one delivered execution message.
//
// Malformed messages are dropped: requeueing them can never succeed. A nil
// return acknowledges the message.
func (w *Worker) Handle(ctx context.Context, body []byte) error {
	l := zerolog.Ctx(ctx)

	var msg transferservice.ExecuteMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		l.Error().Err(err).Str("body", string(body)).Msg("malformed execution message")
		return nil
	}

	if msg.TransferID == 0 {
		l.Error().Str("body", string(body)).Msg("execution message without transfer id")
		return nil
	}

	return w.executor.Execute(ctx, msg.TransferID)
}
