package domain

import (
	"context"
	"errors"
	"time"
)

// TaskKindImport is the queue kind that runs the CSV import pipeline.
const TaskKindImport = "products.import"

// ImportTaskPayload is the queue payload for one import run.
type ImportTaskPayload struct {
	JobID   string `json:"job_id"`
	Content string `json:"content"`
}

// ProgressReporter publishes pipeline progress to whatever channel the
// caller polls (the task status store in production).
type ProgressReporter func(current, total int, status string)

// ImportResult summarizes a finished import run.
type ImportResult struct {
	Status     string `json:"status"`
	Processed  int    `json:"processed"`
	Total      int    `json:"total"`
	ErrorCount int    `json:"errors"`
}

type Service interface {
	// Create records a pending job for an uploaded file.
	Create(ctx context.Context, fileName string) (*Response, error)

	Get(ctx context.Context, id string) (*Response, error)

	// AttachTask stores the queue handle on the job for later polling.
	AttachTask(ctx context.Context, id string, taskID string) error

	// RunImport executes the pipeline for a pending job: batch-wise
	// parse and upsert, per-row error capture, progress checkpoints,
	// terminal completion or failure. Fatal failures are recorded on
	// the job and returned to the caller.
	RunImport(ctx context.Context, jobID int64, content string, report ProgressReporter) (*ImportResult, error)
}

type Response struct {
	ID               string     `json:"id"`
	FileName         string     `json:"file_name"`
	Status           Status     `json:"status"`
	TotalRecords     int        `json:"total_records"`
	ProcessedRecords int        `json:"processed_records"`
	Errors           []string   `json:"errors"`
	TaskID           string     `json:"task_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

var (
	ErrNotFound      = errors.New("not_found")
	ErrInvalidID     = errors.New("invalid_id")
	ErrInvalidFile   = errors.New("invalid_file")
	ErrJobNotPending = errors.New("job_not_pending")
)
