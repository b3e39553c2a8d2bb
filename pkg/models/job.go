package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusRunning = "running"
	JobStatusDone    = "done"
	JobStatusError   = "error"
)

// Job tracks one validation run over one uploaded model. The API returns a
// job id on POST /api/v1/jobs; the client polls GET /api/v1/jobs/{id} and
// sees check results appear as they finalize. Status reaches "done" once
// every check known at dispatch time has a final result, or "error" if
// orchestration itself cannot proceed.
type Job struct {
	ID           uuid.UUID      `db:"id"            json:"id"`
	ProjectID    string         `db:"project_id"    json:"project_id"`
	Status       string         `db:"status"        json:"status"`
	ErrorMessage *string        `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time      `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"    json:"updated_at"`
	CheckResults []*CheckResult `db:"-"             json:"check_results,omitempty"`
}

// Terminal reports whether the job can no longer change state.
func (j *Job) Terminal() bool {
	return j.Status == JobStatusDone || j.Status == JobStatusError
}
