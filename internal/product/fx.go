package product

import (
	"context"

	"github.com/smallbiznis/catalogd/internal/product/domain"
	"github.com/smallbiznis/catalogd/internal/product/repository"
	"github.com/smallbiznis/catalogd/internal/product/service"
	"github.com/smallbiznis/catalogd/internal/taskqueue"
	"go.uber.org/fx"
)

// TaskKindBulkDelete is the queue kind that wipes the catalog.
const TaskKindBulkDelete = "products.bulk_delete"

var Module = fx.Module("product.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Invoke(registerTasks),
)

func registerTasks(q *taskqueue.Queue, svc domain.Service) {
	q.Register(TaskKindBulkDelete, func(ctx context.Context, _ *taskqueue.Task) (map[string]any, error) {
		count, err := svc.BulkDelete(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"deleted_count": count}, nil
	})
}
