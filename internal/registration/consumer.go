package registration

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"rollcall/internal/queue"
)

// Consume drains registration jobs from the queue until ctx is done.
// Shared by the worker binary and the api's inline consumer when the
// in-memory queue backend is selected (a channel nobody reads would
// otherwise swallow jobs and eventually block publishers). Per-job
// failures are logged and skipped, never fatal to the loop.
func Consume(ctx context.Context, q queue.Queue, reg *Registrar, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	messages, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	for msg := range messages {
		if msg.Type != JobType {
			continue
		}

		var job Job
		if err := json.Unmarshal(msg.Body, &job); err != nil {
			logger.Warn("bad registration payload", zap.Error(err))
			continue
		}

		rec, err := reg.FromCard(ctx, job)
		if err != nil {
			logger.Error("registration failed", zap.Error(err))
			continue
		}
		logger.Info("student registered",
			zap.String("id", rec.ID),
			zap.String("name", rec.Name),
			zap.String("class", rec.Class))
	}
	return nil
}
