package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/catalogd/internal/clock"
	"github.com/smallbiznis/catalogd/internal/config"
	"github.com/smallbiznis/catalogd/internal/importjob/domain"
	obsmetrics "github.com/smallbiznis/catalogd/internal/observability/metrics"
	productdomain "github.com/smallbiznis/catalogd/internal/product/domain"
	"github.com/smallbiznis/catalogd/internal/taskqueue"
	webhookdomain "github.com/smallbiznis/catalogd/internal/webhook/domain"
	"gorm.io/datatypes"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// progressEvery is how many successfully processed rows pass between
// intra-batch progress checkpoints.
const progressEvery = 100

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	ProductSvc productdomain.Service
	Clock      clock.Clock
	Cfg        config.Config
	Queue      *taskqueue.Queue    `optional:"true"`
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	repo       domain.Repository
	productSvc productdomain.Service
	genID      *snowflake.Node
	clock      clock.Clock
	queue      *taskqueue.Queue
	metrics    *obsmetrics.Metrics
	batchSize  int
}

func New(p Params) domain.Service {
	batchSize := p.Cfg.ImportBatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("importjob.service"),
		repo:       p.Repo,
		productSvc: p.ProductSvc,
		genID:      p.GenID,
		clock:      p.Clock,
		queue:      p.Queue,
		metrics:    p.Metrics,
		batchSize:  batchSize,
	}
}

func (s *Service) Create(ctx context.Context, fileName string) (*domain.Response, error) {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return nil, domain.ErrInvalidFile
	}

	job := &domain.ImportJob{
		ID:        s.genID.Generate().Int64(),
		FileName:  fileName,
		Status:    domain.StatusPending,
		Errors:    datatypes.JSON([]byte("[]")),
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Create(ctx, s.db, job); err != nil {
		return nil, err
	}

	resp := toResponse(job)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	job, err := s.repo.FindByID(ctx, s.db, parsed.Int64())
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, domain.ErrNotFound
	}

	resp := toResponse(job)
	return &resp, nil
}

func (s *Service) AttachTask(ctx context.Context, id string, taskID string) error {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.ErrInvalidID
	}
	return s.repo.UpdateFields(ctx, s.db, parsed.Int64(), map[string]any{
		"task_id": taskID,
	})
}

func (s *Service) RunImport(ctx context.Context, jobID int64, content string, report domain.ProgressReporter) (*domain.ImportResult, error) {
	started := time.Now()
	log := s.log.With(zap.String("job_id", snowflake.ID(jobID).String()))

	job, err := s.repo.FindByID(ctx, s.db, jobID)
	if err != nil {
		s.failJob(ctx, jobID, err)
		return nil, fmt.Errorf("load import job: %w", err)
	}
	if job == nil {
		return nil, fmt.Errorf("%w: %d", domain.ErrNotFound, jobID)
	}
	if job.Status != domain.StatusPending {
		// The job belongs to whichever run observed Pending first.
		return nil, fmt.Errorf("%w: status %s", domain.ErrJobNotPending, job.Status)
	}

	records, err := parseRecords(content)
	if err != nil {
		s.failJob(ctx, jobID, err)
		s.metrics.IncImportJob(string(domain.StatusFailed))
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	total := len(records)
	if err := s.repo.UpdateFields(ctx, s.db, jobID, map[string]any{
		"status":        domain.StatusProcessing,
		"total_records": total,
	}); err != nil {
		s.failJob(ctx, jobID, err)
		s.metrics.IncImportJob(string(domain.StatusFailed))
		return nil, fmt.Errorf("mark job processing: %w", err)
	}

	log.Info("import started",
		zap.String("file_name", job.FileName),
		zap.Int("total_records", total),
	)

	processed := 0
	rowErrors := make([]string, 0)

	for offset := 0; offset < total; offset += s.batchSize {
		end := offset + s.batchSize
		if end > total {
			end = total
		}
		batch := records[offset:end]

		// Events accumulate during the batch and are enqueued only
		// after the transaction commits, so nothing is dispatched for
		// a write that rolls back.
		var events []webhookdomain.DispatchEvent

		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, rec := range batch {
				sku := strings.ToLower(strings.TrimSpace(rec.SKU))
				if sku == "" {
					rowErrors = append(rowErrors, fmt.Sprintf("Row %d: SKU is required", rec.Line))
					s.metrics.IncImportRowError()
					continue
				}

				// Each row runs under a savepoint so a failed insert
				// aborts only that row, not the batch transaction. On
				// postgres a constraint violation otherwise poisons
				// every later statement in the transaction.
				var product *productdomain.Product
				var created bool
				err := tx.Transaction(func(rowTx *gorm.DB) error {
					var rowErr error
					product, created, rowErr = s.productSvc.Upsert(ctx, rowTx, productdomain.UpsertRequest{
						SKU:         rec.SKU,
						Name:        rec.Name,
						Description: rec.Description,
					})
					return rowErr
				})
				if err != nil {
					if errors.Is(err, productdomain.ErrDuplicateSKU) {
						rowErrors = append(rowErrors, fmt.Sprintf("Row %d: Duplicate SKU %s", rec.Line, sku))
					} else {
						rowErrors = append(rowErrors, fmt.Sprintf("Row %d: %v", rec.Line, err))
					}
					s.metrics.IncImportRowError()
					continue
				}

				processed++
				event := webhookdomain.EventProductUpdated
				outcome := "updated"
				if created {
					event = webhookdomain.EventProductCreated
					outcome = "created"
				}
				s.metrics.IncImportRow(outcome)
				events = append(events, webhookdomain.DispatchEvent{
					Event:      event,
					ResourceID: snowflake.ID(product.ID).String(),
				})

				if processed%progressEvery == 0 {
					s.checkpoint(ctx, tx, jobID, processed, total, report)
				}
			}
			return nil
		})
		if err != nil {
			s.failJob(ctx, jobID, err)
			s.metrics.IncImportJob(string(domain.StatusFailed))
			return nil, fmt.Errorf("import batch at row %d: %w", batch[0].Line, err)
		}

		for _, ev := range events {
			s.publishEvent(ctx, ev)
		}
		s.checkpoint(ctx, s.db, jobID, processed, total, report)
	}

	errsJSON, err := json.Marshal(rowErrors)
	if err != nil {
		errsJSON = []byte("[]")
	}
	completedAt := s.clock.Now()
	if err := s.repo.UpdateFields(ctx, s.db, jobID, map[string]any{
		"status":            domain.StatusCompleted,
		"processed_records": processed,
		"errors":            datatypes.JSON(errsJSON),
		"completed_at":      completedAt,
	}); err != nil {
		s.failJob(ctx, jobID, err)
		s.metrics.IncImportJob(string(domain.StatusFailed))
		return nil, fmt.Errorf("finalize job: %w", err)
	}

	s.publishEvent(ctx, webhookdomain.DispatchEvent{
		Event:      webhookdomain.EventImportCompleted,
		ResourceID: snowflake.ID(jobID).String(),
	})

	s.metrics.IncImportJob(string(domain.StatusCompleted))
	s.metrics.ObserveImportDuration(time.Since(started).Seconds())

	log.Info("import completed",
		zap.Int("processed", processed),
		zap.Int("total", total),
		zap.Int("row_errors", len(rowErrors)),
	)

	return &domain.ImportResult{
		Status:     string(domain.StatusCompleted),
		Processed:  processed,
		Total:      total,
		ErrorCount: len(rowErrors),
	}, nil
}

// checkpoint persists the processed counter and pushes progress meta
// for pollers. Checkpoint failures are logged, never fatal.
func (s *Service) checkpoint(ctx context.Context, dbh *gorm.DB, jobID int64, current, total int, report domain.ProgressReporter) {
	if err := s.repo.UpdateFields(ctx, dbh, jobID, map[string]any{
		"processed_records": current,
	}); err != nil {
		s.log.Warn("progress checkpoint failed",
			zap.String("job_id", snowflake.ID(jobID).String()),
			zap.Error(err),
		)
	}
	if report != nil {
		report(current, total, fmt.Sprintf("Processed %d/%d", current, total))
	}
}

func (s *Service) failJob(ctx context.Context, jobID int64, cause error) {
	errsJSON, err := json.Marshal([]string{cause.Error()})
	if err != nil {
		errsJSON = []byte("[]")
	}
	if err := s.repo.UpdateFields(ctx, s.db, jobID, map[string]any{
		"status":       domain.StatusFailed,
		"errors":       datatypes.JSON(errsJSON),
		"completed_at": s.clock.Now(),
	}); err != nil {
		s.log.Error("mark job failed",
			zap.String("job_id", snowflake.ID(jobID).String()),
			zap.Error(err),
		)
	}
}

func (s *Service) publishEvent(ctx context.Context, ev webhookdomain.DispatchEvent) {
	if s.queue == nil {
		return
	}
	if _, err := s.queue.Enqueue(ctx, webhookdomain.TaskKindDispatch, ev); err != nil {
		s.log.Warn("enqueue webhook dispatch failed",
			zap.String("event", ev.Event),
			zap.String("resource_id", ev.ResourceID),
			zap.Error(err),
		)
	}
}

func toResponse(job *domain.ImportJob) domain.Response {
	var errs []string
	if len(job.Errors) > 0 {
		_ = json.Unmarshal(job.Errors, &errs)
	}
	if errs == nil {
		errs = []string{}
	}
	return domain.Response{
		ID:               snowflake.ID(job.ID).String(),
		FileName:         job.FileName,
		Status:           job.Status,
		TotalRecords:     job.TotalRecords,
		ProcessedRecords: job.ProcessedRecords,
		Errors:           errs,
		TaskID:           job.TaskID,
		CreatedAt:        job.CreatedAt,
		CompletedAt:      job.CompletedAt,
	}
}
