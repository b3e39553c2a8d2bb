package job_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifcore/checkd/internal/job"
	"github.com/ifcore/checkd/internal/store"
	"github.com/ifcore/checkd/pkg/models"
)

// memStore is an in-memory Store with the same sentinel semantics as the
// Postgres implementation.
type memStore struct {
	mu      sync.Mutex
	jobs    map[uuid.UUID]*models.Job
	results map[uuid.UUID][]*models.CheckResult
}

func newMemStore() *memStore {
	return &memStore{
		jobs:    make(map[uuid.UUID]*models.Job),
		results: make(map[uuid.UUID][]*models.CheckResult),
	}
}

func (m *memStore) Ping(context.Context) error { return nil }

func (m *memStore) CreateJob(_ context.Context, j *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *j
	m.jobs[j.ID] = &cp
	return nil
}

func (m *memStore) GetJob(_ context.Context, id uuid.UUID) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memStore) UpdateJobStatus(_ context.Context, id uuid.UUID, status string, opts ...store.JobUpdateOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	if j.Status != models.JobStatusRunning {
		return store.ErrInvalidTransition
	}
	j.Status = status
	j.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memStore) ListRunningJobs(_ context.Context, olderThan time.Time) ([]*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Job
	for _, j := range m.jobs {
		if j.Status == models.JobStatusRunning && j.CreatedAt.Before(olderThan) {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) AppendCheckResult(_ context.Context, res *models.CheckResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.results[res.JobID] {
		if existing.CheckName == res.CheckName {
			return store.ErrDuplicateKey
		}
	}
	cp := *res
	m.results[res.JobID] = append(m.results[res.JobID], &cp)
	return nil
}

func (m *memStore) GetCheckResult(_ context.Context, jobID uuid.UUID, checkName string) (*models.CheckResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, res := range m.results[jobID] {
		if res.CheckName == checkName {
			cp := *res
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) ListCheckResults(_ context.Context, jobID uuid.UUID) ([]*models.CheckResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.CheckResult, 0, len(m.results[jobID]))
	for _, res := range m.results[jobID] {
		cp := *res
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memStore) jobStatus(id uuid.UUID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs[id].Status
}

// memCache records job status writes.
type memCache struct {
	mu       sync.Mutex
	statuses map[uuid.UUID]string
}

func newMemCache() *memCache {
	return &memCache{statuses: make(map[uuid.UUID]string)}
}

func (c *memCache) Ping(context.Context) error { return nil }

func (c *memCache) SetJobStatus(_ context.Context, jobID uuid.UUID, status string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[jobID] = status
	return nil
}

func (c *memCache) GetJobStatus(_ context.Context, jobID uuid.UUID) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.statuses[jobID]
	return s, ok, nil
}

func (c *memCache) IncrWithExpiry(context.Context, string, time.Duration) (int64, error) {
	return 1, nil
}

func result(jobID uuid.UUID, checkName, status string) *models.CheckResult {
	return &models.CheckResult{
		ID:        uuid.New(),
		ProjectID: "duplex",
		JobID:     jobID,
		CheckName: checkName,
		Team:      "regulations",
		Status:    status,
		Summary:   "1 door checked: 1 " + status,
		CreatedAt: time.Now().UTC(),
	}
}

func TestCreate(t *testing.T) {
	st := newMemStore()
	ca := newMemCache()
	tr := job.NewTracker(st, ca, time.Hour)

	j, err := tr.Create(context.Background(), "duplex", []string{"check_a", "check_b"})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, j.ID)
	assert.Equal(t, models.JobStatusRunning, j.Status)
	assert.Equal(t, "duplex", j.ProjectID)

	stored, err := st.GetJob(context.Background(), j.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusRunning, stored.Status)

	cached, ok, _ := ca.GetJobStatus(context.Background(), j.ID)
	assert.True(t, ok)
	assert.Equal(t, models.JobStatusRunning, cached)
}

func TestRecordCheckResult_CompletesJob(t *testing.T) {
	st := newMemStore()
	tr := job.NewTracker(st, newMemCache(), time.Hour)
	ctx := context.Background()

	j, err := tr.Create(ctx, "duplex", []string{"check_a", "check_b"})
	require.NoError(t, err)

	_, err = tr.RecordCheckResult(ctx, j.ID, result(j.ID, "check_a", models.CheckStatusPass))
	require.NoError(t, err)

	snap, err := tr.Snapshot(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusRunning, snap.Status, "job stays running until all checks finalize")
	assert.Len(t, snap.CheckResults, 1)

	_, err = tr.RecordCheckResult(ctx, j.ID, result(j.ID, "check_b", models.CheckStatusFail))
	require.NoError(t, err)

	snap, err = tr.Snapshot(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusDone, snap.Status)
	assert.Len(t, snap.CheckResults, 2)
	assert.Equal(t, models.JobStatusDone, st.jobStatus(j.ID))
}

func TestRecordCheckResult_Idempotent(t *testing.T) {
	st := newMemStore()
	tr := job.NewTracker(st, newMemCache(), time.Hour)
	ctx := context.Background()

	j, err := tr.Create(ctx, "duplex", []string{"check_a"})
	require.NoError(t, err)

	first := result(j.ID, "check_a", models.CheckStatusPass)
	got1, err := tr.RecordCheckResult(ctx, j.ID, first)
	require.NoError(t, err)

	// A duplicate delivery with a different verdict is absorbed; the
	// first-delivered result stands.
	dup := result(j.ID, "check_a", models.CheckStatusFail)
	got2, err := tr.RecordCheckResult(ctx, j.ID, dup)
	require.NoError(t, err)

	assert.Equal(t, got1.ID, got2.ID)
	assert.Equal(t, models.CheckStatusPass, got2.Status)

	snap, err := tr.Snapshot(ctx, j.ID)
	require.NoError(t, err)
	require.Len(t, snap.CheckResults, 1)
	assert.Equal(t, models.CheckStatusPass, snap.CheckResults[0].Status)
}

func TestRecordCheckResult_UnexpectedCheck(t *testing.T) {
	tr := job.NewTracker(newMemStore(), newMemCache(), time.Hour)
	ctx := context.Background()

	j, err := tr.Create(ctx, "duplex", []string{"check_a"})
	require.NoError(t, err)

	_, err = tr.RecordCheckResult(ctx, j.ID, result(j.ID, "check_rogue", models.CheckStatusPass))
	assert.ErrorIs(t, err, job.ErrUnexpectedCheck)
}

func TestRecordCheckResult_NonFinalStatus(t *testing.T) {
	tr := job.NewTracker(newMemStore(), newMemCache(), time.Hour)
	ctx := context.Background()

	j, err := tr.Create(ctx, "duplex", []string{"check_a"})
	require.NoError(t, err)

	_, err = tr.RecordCheckResult(ctx, j.ID, result(j.ID, "check_a", models.CheckStatusRunning))
	assert.ErrorIs(t, err, job.ErrNotFinal)
}

func TestRecordCheckResult_UntrackedJobFallsBackToStore(t *testing.T) {
	st := newMemStore()
	tr := job.NewTracker(st, newMemCache(), time.Hour)
	ctx := context.Background()

	// A result persisted by a previous process.
	orphanID := uuid.New()
	stored := result(orphanID, "check_a", models.CheckStatusPass)
	require.NoError(t, st.AppendCheckResult(ctx, stored))

	got, err := tr.RecordCheckResult(ctx, orphanID, result(orphanID, "check_a", models.CheckStatusFail))
	require.NoError(t, err)
	assert.Equal(t, stored.ID, got.ID)
	assert.Equal(t, models.CheckStatusPass, got.Status)

	// No stored result either: the report is unanswerable.
	_, err = tr.RecordCheckResult(ctx, uuid.New(), result(uuid.New(), "check_a", models.CheckStatusPass))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFail(t *testing.T) {
	st := newMemStore()
	ca := newMemCache()
	tr := job.NewTracker(st, ca, time.Hour)
	ctx := context.Background()

	j, err := tr.Create(ctx, "duplex", []string{"check_a"})
	require.NoError(t, err)

	require.NoError(t, tr.Fail(ctx, j.ID, "load model: file missing"))

	snap, err := tr.Snapshot(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusError, snap.Status)
	require.NotNil(t, snap.ErrorMessage)
	assert.Equal(t, "load model: file missing", *snap.ErrorMessage)

	cached, ok, _ := ca.GetJobStatus(ctx, j.ID)
	assert.True(t, ok)
	assert.Equal(t, models.JobStatusError, cached)

	// Failing an already terminal job is a no-op.
	require.NoError(t, tr.Fail(ctx, j.ID, "late fault"))
	snap, _ = tr.Snapshot(ctx, j.ID)
	assert.Equal(t, "load model: file missing", *snap.ErrorMessage)
}

func TestSnapshot_StoredJob(t *testing.T) {
	st := newMemStore()
	tr := job.NewTracker(st, newMemCache(), time.Hour)
	ctx := context.Background()

	// Job owned by another process: only the database knows it.
	j := &models.Job{ID: uuid.New(), ProjectID: "duplex", Status: models.JobStatusDone,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	require.NoError(t, st.CreateJob(ctx, j))
	require.NoError(t, st.AppendCheckResult(ctx, result(j.ID, "check_a", models.CheckStatusPass)))

	snap, err := tr.Snapshot(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusDone, snap.Status)
	assert.Len(t, snap.CheckResults, 1)

	_, err = tr.Snapshot(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSweepOnce_EscalatesStuckJob(t *testing.T) {
	st := newMemStore()
	tr := job.NewTracker(st, newMemCache(), time.Hour)
	ctx := context.Background()

	j, err := tr.Create(ctx, "duplex", []string{"check_a"})
	require.NoError(t, err)

	// Not yet past the maximum age: untouched.
	tr.SweepOnce(ctx, time.Now().UTC())
	snap, _ := tr.Snapshot(ctx, j.ID)
	assert.Equal(t, models.JobStatusRunning, snap.Status)

	// Two hours later the watchdog escalates.
	tr.SweepOnce(ctx, time.Now().UTC().Add(2*time.Hour))
	snap, _ = tr.Snapshot(ctx, j.ID)
	assert.Equal(t, models.JobStatusError, snap.Status)
	require.NotNil(t, snap.ErrorMessage)
	assert.Contains(t, *snap.ErrorMessage, "maximum age")
}

func TestSweepOnce_EscalatesOrphanedRow(t *testing.T) {
	st := newMemStore()
	ca := newMemCache()
	tr := job.NewTracker(st, ca, time.Hour)
	ctx := context.Background()

	orphan := &models.Job{ID: uuid.New(), ProjectID: "duplex", Status: models.JobStatusRunning,
		CreatedAt: time.Now().UTC().Add(-3 * time.Hour), UpdatedAt: time.Now().UTC().Add(-3 * time.Hour)}
	require.NoError(t, st.CreateJob(ctx, orphan))

	tr.SweepOnce(ctx, time.Now().UTC())

	assert.Equal(t, models.JobStatusError, st.jobStatus(orphan.ID))
	cached, ok, _ := ca.GetJobStatus(ctx, orphan.ID)
	assert.True(t, ok)
	assert.Equal(t, models.JobStatusError, cached)
}

func TestSweepOnce_EvictsAgedTerminalJobs(t *testing.T) {
	st := newMemStore()
	tr := job.NewTracker(st, newMemCache(), time.Hour)
	ctx := context.Background()

	j, err := tr.Create(ctx, "duplex", []string{"check_a"})
	require.NoError(t, err)
	_, err = tr.RecordCheckResult(ctx, j.ID, result(j.ID, "check_a", models.CheckStatusPass))
	require.NoError(t, err)

	tr.SweepOnce(ctx, time.Now().UTC().Add(2*time.Hour))

	// Memory state is gone but the stored job still answers polls.
	snap, err := tr.Snapshot(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusDone, snap.Status)
	assert.Len(t, snap.CheckResults, 1)
}
