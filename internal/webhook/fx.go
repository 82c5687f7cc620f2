package webhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/smallbiznis/catalogd/internal/taskqueue"
	"github.com/smallbiznis/catalogd/internal/webhook/domain"
	"github.com/smallbiznis/catalogd/internal/webhook/repository"
	"github.com/smallbiznis/catalogd/internal/webhook/service"
	"go.uber.org/fx"
)

var Module = fx.Module("webhook.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(service.NewDispatcher),
	fx.Invoke(registerTasks),
)

func registerTasks(q *taskqueue.Queue, dispatcher *service.Dispatcher) {
	q.Register(domain.TaskKindDispatch, func(ctx context.Context, task *taskqueue.Task) (map[string]any, error) {
		var ev domain.DispatchEvent
		if err := json.Unmarshal(task.Payload, &ev); err != nil {
			return nil, fmt.Errorf("decode dispatch payload: %w", err)
		}
		if err := dispatcher.Dispatch(ctx, ev); err != nil {
			return nil, err
		}
		return map[string]any{"event": ev.Event, "resource_id": ev.ResourceID}, nil
	})
}
