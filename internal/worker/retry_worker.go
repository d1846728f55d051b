// Package worker replays remote operations that failed their first,
// fire-and-forget attempt from the serving process.
package worker

import (
	"context"
	"fmt"

	"onetouch/internal/amqp"
	applog "onetouch/internal/log"
	"onetouch/internal/remote"
)

type RetryWorker struct {
	remote remote.Store
	logger *applog.Logger
}

func NewRetryWorker(remoteStore remote.Store, logger *applog.Logger) *RetryWorker {
	return &RetryWorker{remote: remoteStore, logger: logger}
}

// Handle replays a single retry message against the remote store. Returning
// an error requeues the message.
func (w *RetryWorker) Handle(ctx context.Context, msg *amqp.RetryMessage) error {
	switch msg.Op {
	case amqp.OpInsert:
		if err := w.remote.Insert(ctx, *msg.Transaction); err != nil {
			return fmt.Errorf("replay insert %s: %w", msg.ID, err)
		}
		w.logger.Info("Replayed insert", "id", msg.ID)
	case amqp.OpRemove:
		if err := w.remote.Remove(ctx, msg.ID); err != nil {
			return fmt.Errorf("replay delete %s: %w", msg.ID, err)
		}
		w.logger.Info("Replayed delete", "id", msg.ID)
	default:
		// Validated at decode time, but a queue outlives deploys.
		w.logger.Warn("Dropping retry message with unknown op", "op", msg.Op)
	}
	return nil
}
