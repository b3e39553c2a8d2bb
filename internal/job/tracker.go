// Package job tracks the lifecycle of validation runs. Each job moves
// running -> done once every check dispatched for it has a final result,
// or running -> error when orchestration itself fails or the watchdog
// times the job out. Completion reports arrive at-least-once and are
// absorbed idempotently by (job id, check name).
package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ifcore/checkd/internal/cache"
	"github.com/ifcore/checkd/internal/store"
	"github.com/ifcore/checkd/pkg/models"
)

var ErrUnexpectedCheck = errors.New("check was not dispatched for this job")
var ErrNotFinal = errors.New("check result status is not final")

// Status cache entries outlive the longest plausible poll interval.
const statusTTL = 30 * time.Minute

// Tracker is the single logical writer for job state. The execution side
// finishes checks concurrently, but every mutation of one job's result
// set goes through that job's lock, so partial persistence never
// interleaves.
type Tracker struct {
	store  store.Store
	cache  cache.Cache
	maxAge time.Duration

	mu   sync.Mutex
	jobs map[uuid.UUID]*jobState
}

type jobState struct {
	mu       sync.Mutex
	job      *models.Job
	expected map[string]bool
	results  map[string]*models.CheckResult
	order    []string
}

// NewTracker creates a Tracker. maxAge is how long a job may stay running
// before the watchdog escalates it to error.
func NewTracker(st store.Store, ca cache.Cache, maxAge time.Duration) *Tracker {
	return &Tracker{
		store:  st,
		cache:  ca,
		maxAge: maxAge,
		jobs:   make(map[uuid.UUID]*jobState),
	}
}

// Create starts a new job in status running. checkNames is the set of
// checks known at dispatch time; the job completes when all of them have
// finalized.
func (t *Tracker) Create(ctx context.Context, projectID string, checkNames []string) (*models.Job, error) {
	now := time.Now().UTC()
	j := &models.Job{
		ID:        uuid.New(),
		ProjectID: projectID,
		Status:    models.JobStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := store.WithRetry(ctx, func() error {
		return t.store.CreateJob(ctx, j)
	})
	if err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}

	if err := t.cache.SetJobStatus(ctx, j.ID, j.Status, statusTTL); err != nil {
		slog.Warn("cache job status", "job_id", j.ID, "error", err)
	}

	expected := make(map[string]bool, len(checkNames))
	for _, name := range checkNames {
		expected[name] = true
	}

	t.mu.Lock()
	t.jobs[j.ID] = &jobState{
		job:      j,
		expected: expected,
		results:  make(map[string]*models.CheckResult),
	}
	t.mu.Unlock()

	snapshot := *j
	return &snapshot, nil
}

// RecordCheckResult finalizes one check for a job. It is idempotent on
// (job id, check name): a duplicate report is a no-op returning the
// result stored by the first delivery. When the last expected check
// finalizes, the job transitions to done.
func (t *Tracker) RecordCheckResult(ctx context.Context, jobID uuid.UUID, res *models.CheckResult) (*models.CheckResult, error) {
	if res.Status == models.CheckStatusRunning || res.Status == "" {
		return nil, ErrNotFinal
	}

	state := t.state(jobID)
	if state == nil {
		// Job no longer tracked in memory (finished long ago or owned by
		// a previous process). A stored result still answers duplicates.
		stored, err := t.store.GetCheckResult(ctx, jobID, res.CheckName)
		if err != nil {
			return nil, err
		}
		return stored, nil
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	if existing, ok := state.results[res.CheckName]; ok {
		return existing, nil
	}
	if !state.expected[res.CheckName] {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedCheck, res.CheckName)
	}

	err := store.WithRetry(ctx, func() error {
		return t.store.AppendCheckResult(ctx, res)
	})
	if errors.Is(err, store.ErrDuplicateKey) {
		// Another delivery won the race against the database; adopt its row.
		stored, getErr := t.store.GetCheckResult(ctx, jobID, res.CheckName)
		if getErr != nil {
			return nil, getErr
		}
		res = stored
	} else if err != nil {
		return nil, fmt.Errorf("persisting check result: %w", err)
	}

	state.results[res.CheckName] = res
	state.order = append(state.order, res.CheckName)

	if state.job.Status == models.JobStatusRunning && len(state.results) == len(state.expected) {
		t.transition(ctx, state, models.JobStatusDone)
		slog.Info("job done", "job_id", jobID, "checks", len(state.results))
	}

	return res, nil
}

// Snapshot returns a job's current status and every check result
// finalized so far. Safe to call while the job is running.
func (t *Tracker) Snapshot(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	state := t.state(jobID)
	if state == nil {
		return t.loadStored(ctx, jobID)
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	snapshot := *state.job
	snapshot.CheckResults = make([]*models.CheckResult, 0, len(state.order))
	for _, name := range state.order {
		snapshot.CheckResults = append(snapshot.CheckResults, state.results[name])
	}
	return &snapshot, nil
}

// Fail moves a job to error for an orchestration-level fault (e.g. the
// model context could not be materialized). Finalized check results are
// untouched.
func (t *Tracker) Fail(ctx context.Context, jobID uuid.UUID, msg string) error {
	state := t.state(jobID)
	if state == nil {
		return store.WithRetry(ctx, func() error {
			return t.store.UpdateJobStatus(ctx, jobID, models.JobStatusError, store.WithErrorMessage(msg))
		})
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	if state.job.Terminal() {
		return nil
	}
	state.job.ErrorMessage = &msg
	t.transition(ctx, state, models.JobStatusError)
	return nil
}

// Watchdog sweeps periodically until ctx is cancelled.
func (t *Tracker) Watchdog(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.SweepOnce(ctx, time.Now().UTC())
		}
	}
}

// SweepOnce escalates jobs that have been running past the maximum age to
// error, and evicts terminal jobs from memory once they age out. It also
// catches running rows left behind by a previous process.
func (t *Tracker) SweepOnce(ctx context.Context, now time.Time) {
	cutoff := now.Add(-t.maxAge)

	t.mu.Lock()
	tracked := make(map[uuid.UUID]*jobState, len(t.jobs))
	for id, state := range t.jobs {
		tracked[id] = state
	}
	t.mu.Unlock()

	for id, state := range tracked {
		state.mu.Lock()
		stuck := state.job.Status == models.JobStatusRunning && state.job.CreatedAt.Before(cutoff)
		evict := state.job.Terminal() && state.job.UpdatedAt.Before(cutoff)
		state.mu.Unlock()

		if stuck {
			slog.Warn("watchdog escalating stuck job", "job_id", id, "max_age", t.maxAge)
			if err := t.Fail(ctx, id, fmt.Sprintf("job exceeded maximum age of %s", t.maxAge)); err != nil {
				slog.Error("watchdog escalation failed", "job_id", id, "error", err)
			}
		}
		if evict {
			t.mu.Lock()
			delete(t.jobs, id)
			t.mu.Unlock()
		}
	}

	// Orphans: running rows with no in-memory state, e.g. after a restart.
	stale, err := t.store.ListRunningJobs(ctx, cutoff)
	if err != nil {
		slog.Error("watchdog list running jobs", "error", err)
		return
	}
	for _, j := range stale {
		if _, ok := tracked[j.ID]; ok {
			continue
		}
		slog.Warn("watchdog escalating orphaned job", "job_id", j.ID)
		err := t.store.UpdateJobStatus(ctx, j.ID, models.JobStatusError,
			store.WithErrorMessage(fmt.Sprintf("job exceeded maximum age of %s", t.maxAge)))
		if err != nil {
			slog.Error("watchdog escalation failed", "job_id", j.ID, "error", err)
			continue
		}
		if err := t.cache.SetJobStatus(ctx, j.ID, models.JobStatusError, statusTTL); err != nil {
			slog.Warn("cache job status", "job_id", j.ID, "error", err)
		}
	}
}

func (t *Tracker) state(jobID uuid.UUID) *jobState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.jobs[jobID]
}

// transition persists a terminal status change. Caller holds state.mu.
func (t *Tracker) transition(ctx context.Context, state *jobState, status string) {
	var opts []store.JobUpdateOption
	if state.job.ErrorMessage != nil {
		opts = append(opts, store.WithErrorMessage(*state.job.ErrorMessage))
	}

	err := store.WithRetry(ctx, func() error {
		return t.store.UpdateJobStatus(ctx, state.job.ID, status, opts...)
	})
	if err != nil {
		// The job stays running in the database; the watchdog will
		// escalate if the store never recovers.
		slog.Error("persist job transition", "job_id", state.job.ID, "status", status, "error", err)
		return
	}

	state.job.Status = status
	state.job.UpdatedAt = time.Now().UTC()
	if err := t.cache.SetJobStatus(ctx, state.job.ID, status, statusTTL); err != nil {
		slog.Warn("cache job status", "job_id", state.job.ID, "error", err)
	}
}

func (t *Tracker) loadStored(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	j, err := t.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	results, err := t.store.ListCheckResults(ctx, jobID)
	if err != nil {
		return nil, err
	}
	j.CheckResults = results
	return j, nil
}
