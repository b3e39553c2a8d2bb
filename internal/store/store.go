package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ifcore/checkd/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")
var ErrInvalidTransition = errors.New("invalid job status transition")

// Store is the data access interface. All database operations go through
// here. The engine only creates, appends, and reads; finalized check
// results are never mutated.
type Store interface {
	Ping(ctx context.Context) error

	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	UpdateJobStatus(ctx context.Context, id uuid.UUID, status string, opts ...JobUpdateOption) error
	// ListRunningJobs returns jobs still marked running whose created_at
	// is before olderThan. The watchdog uses it to find stuck runs.
	ListRunningJobs(ctx context.Context, olderThan time.Time) ([]*models.Job, error)

	// AppendCheckResult persists one finalized check result together with
	// its element rows in a single transaction. Returns ErrDuplicateKey
	// when a result for (job_id, check_name) already exists.
	AppendCheckResult(ctx context.Context, result *models.CheckResult) error
	GetCheckResult(ctx context.Context, jobID uuid.UUID, checkName string) (*models.CheckResult, error)
	// ListCheckResults returns a job's finalized results with their
	// elements, in finalization order.
	ListCheckResults(ctx context.Context, jobID uuid.UUID) ([]*models.CheckResult, error)
}

type jobUpdateParams struct {
	ErrorMessage *string
}

type JobUpdateOption func(*jobUpdateParams)

func WithErrorMessage(msg string) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.ErrorMessage = &msg
	}
}
