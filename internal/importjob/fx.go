package importjob

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/catalogd/internal/importjob/domain"
	"github.com/smallbiznis/catalogd/internal/importjob/repository"
	"github.com/smallbiznis/catalogd/internal/importjob/service"
	"github.com/smallbiznis/catalogd/internal/taskqueue"
	"go.uber.org/fx"
)

var Module = fx.Module("importjob.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Invoke(registerTasks),
)

func registerTasks(q *taskqueue.Queue, svc domain.Service) {
	q.Register(domain.TaskKindImport, func(ctx context.Context, task *taskqueue.Task) (map[string]any, error) {
		var payload domain.ImportTaskPayload
		if err := json.Unmarshal(task.Payload, &payload); err != nil {
			return nil, fmt.Errorf("decode import payload: %w", err)
		}

		jobID, err := snowflake.ParseString(payload.JobID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrInvalidID, payload.JobID)
		}

		result, err := svc.RunImport(ctx, jobID.Int64(), payload.Content, func(current, total int, status string) {
			task.ReportProgress(map[string]any{
				"current": current,
				"total":   total,
				"status":  status,
			})
		})
		if err != nil {
			return nil, err
		}

		return map[string]any{
			"status":    result.Status,
			"processed": result.Processed,
			"total":     result.Total,
			"errors":    result.ErrorCount,
		}, nil
	})
}
