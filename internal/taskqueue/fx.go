package taskqueue

import (
	"context"

	"github.com/smallbiznis/catalogd/internal/config"
	obsmetrics "github.com/smallbiznis/catalogd/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func provideQueue(cfg config.Config, log *zap.Logger, m *obsmetrics.Metrics) (*Queue, StatusStore) {
	status := NewMemoryStatusStore()
	q := New(Config{
		Workers:  cfg.TaskQueueWorkers,
		Capacity: cfg.TaskQueueCapacity,
	}, log, status, m)
	return q, status
}

func runQueue(lc fx.Lifecycle, q *Queue) {
	runCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			q.Start(runCtx)
			return nil
		},
		OnStop: func(context.Context) error {
			q.Close()
			q.Wait()
			cancel()
			return nil
		},
	})
}

// Module wires the in-process task queue and its worker pool.
var Module = fx.Module("taskqueue",
	fx.Provide(provideQueue),
	fx.Invoke(runQueue),
)
