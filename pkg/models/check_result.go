package models

import (
	"time"

	"github.com/google/uuid"
)

// Aggregate verdict of one executed check.
const (
	CheckStatusRunning = "running"
	CheckStatusPass    = "pass"
	CheckStatusFail    = "fail"
	CheckStatusUnknown = "unknown"
	CheckStatusError   = "error"
)

// CheckResult is the outcome of one check routine within a job. Status is
// write-once after aggregation; a persisted CheckResult is never "running".
type CheckResult struct {
	ID          uuid.UUID       `db:"id"           json:"id"`
	ProjectID   string          `db:"project_id"   json:"project_id"`
	JobID       uuid.UUID       `db:"job_id"       json:"job_id"`
	CheckName   string          `db:"check_name"   json:"check_name"`
	Team        string          `db:"team"         json:"team"`
	Status      string          `db:"status"       json:"status"`
	Summary     string          `db:"summary"      json:"summary"`
	HasElements bool            `db:"has_elements" json:"has_elements"`
	CreatedAt   time.Time       `db:"created_at"   json:"created_at"`
	Elements    []ElementResult `db:"-"            json:"elements"`
}
