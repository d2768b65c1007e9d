package taskpool

import (
	"context"
	"time"
)

// Middleware wraps a task function with extra behavior. The pool applies
// middleware in Use order, first registered outermost. Each task snapshots
// the chain at submission, so middleware added later never touches it.
type Middleware func(TaskFunc) TaskFunc

// TaskLogging returns a middleware that logs every execution: a debug line
// when the task starts and an info or error line with the duration when it
// returns. Task and worker identity are taken from the context.
func TaskLogging(logger Logger) Middleware {
	return func(next TaskFunc) TaskFunc {
		return func(ctx context.Context, args ...any) (any, error) {
			log := logger
			if info, ok := TaskInfoFromContext(ctx); ok {
				log = log.With(
					Field{Key: "task_id", Value: info.ID},
					Field{Key: "task", Value: info.Name},
				)
			}
			if w, ok := WorkerFromContext(ctx); ok {
				log = log.With(Field{Key: "worker", Value: w.Index})
			}

			log.Debug(ctx, "task started")
			start := time.Now()
			val, err := next(ctx, args...)
			elapsed := time.Since(start)
			if err != nil {
				log.Error(ctx, "task failed", err,
					Field{Key: "duration", Value: elapsed.String()},
				)
				return val, err
			}
			log.Info(ctx, "task finished",
				Field{Key: "duration", Value: elapsed.String()},
			)
			return val, err
		}
	}
}
