package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ifcore/checkd/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Jobs ---

func (s *PostgresStore) CreateJob(ctx context.Context, job *models.Job) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (id, project_id, status, error_message, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		job.ID, job.ProjectID, job.Status, job.ErrorMessage, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var j models.Job
	err := s.pool.QueryRow(ctx,
		`SELECT id, project_id, status, error_message, created_at, updated_at
		 FROM jobs WHERE id = $1`, id,
	).Scan(&j.ID, &j.ProjectID, &j.Status, &j.ErrorMessage, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &j, nil
}

var validTransitions = map[string][]string{
	models.JobStatusRunning: {models.JobStatusDone, models.JobStatusError},
}

func (s *PostgresStore) UpdateJobStatus(ctx context.Context, id uuid.UUID, status string, opts ...JobUpdateOption) error {
	params := &jobUpdateParams{}
	for _, opt := range opts {
		opt(params)
	}

	var currentStatus string
	err := s.pool.QueryRow(ctx, `SELECT status FROM jobs WHERE id = $1`, id).Scan(&currentStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get job status: %w", err)
	}

	valid := false
	for _, allowed := range validTransitions[currentStatus] {
		if allowed == status {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, currentStatus, status)
	}

	now := time.Now().UTC()
	query := `UPDATE jobs SET status = $2, updated_at = $3`
	args := []any{id, status, now}

	if params.ErrorMessage != nil {
		query += ", error_message = $4"
		args = append(args, *params.ErrorMessage)
	}
	query += " WHERE id = $1"

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRunningJobs(ctx context.Context, olderThan time.Time) ([]*models.Job, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, project_id, status, error_message, created_at, updated_at
		 FROM jobs WHERE status = $1 AND created_at < $2 ORDER BY created_at`,
		models.JobStatusRunning, olderThan)
	if err != nil {
		return nil, fmt.Errorf("list running jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		var j models.Job
		if err := rows.Scan(&j.ID, &j.ProjectID, &j.Status, &j.ErrorMessage,
			&j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, &j)
	}
	return jobs, rows.Err()
}

// --- Check results ---

func (s *PostgresStore) AppendCheckResult(ctx context.Context, result *models.CheckResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin append check result: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO check_results (id, project_id, job_id, check_name, team, status, summary, has_elements, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		result.ID, result.ProjectID, result.JobID, result.CheckName, result.Team,
		result.Status, result.Summary, result.HasElements, result.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert check result: %w", err)
	}

	// Inserted one at a time in emission order; seq preserves that order
	// for reads.
	for _, el := range result.Elements {
		_, err = tx.Exec(ctx,
			`INSERT INTO element_results (id, check_result_id, element_id, element_type, element_name, element_name_long, check_status, actual_value, required_value, comment, log)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			el.ID, el.CheckResultID, el.ElementID, el.ElementType, el.ElementName,
			el.ElementNameLong, el.CheckStatus, el.ActualValue, el.RequiredValue,
			el.Comment, el.Log)
		if err != nil {
			return fmt.Errorf("insert element result: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit append check result: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCheckResult(ctx context.Context, jobID uuid.UUID, checkName string) (*models.CheckResult, error) {
	var r models.CheckResult
	err := s.pool.QueryRow(ctx,
		`SELECT id, project_id, job_id, check_name, team, status, summary, has_elements, created_at
		 FROM check_results WHERE job_id = $1 AND check_name = $2`, jobID, checkName,
	).Scan(&r.ID, &r.ProjectID, &r.JobID, &r.CheckName, &r.Team, &r.Status,
		&r.Summary, &r.HasElements, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get check result: %w", err)
	}

	elements, err := s.listElements(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	r.Elements = elements
	return &r, nil
}

func (s *PostgresStore) ListCheckResults(ctx context.Context, jobID uuid.UUID) ([]*models.CheckResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, project_id, job_id, check_name, team, status, summary, has_elements, created_at
		 FROM check_results WHERE job_id = $1 ORDER BY created_at, check_name`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list check results: %w", err)
	}
	defer rows.Close()

	var results []*models.CheckResult
	for rows.Next() {
		var r models.CheckResult
		if err := rows.Scan(&r.ID, &r.ProjectID, &r.JobID, &r.CheckName, &r.Team,
			&r.Status, &r.Summary, &r.HasElements, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan check result: %w", err)
		}
		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, r := range results {
		elements, err := s.listElements(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		r.Elements = elements
	}
	return results, nil
}

func (s *PostgresStore) listElements(ctx context.Context, checkResultID uuid.UUID) ([]models.ElementResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, check_result_id, element_id, element_type, element_name, element_name_long, check_status, actual_value, required_value, comment, log
		 FROM element_results WHERE check_result_id = $1 ORDER BY seq`, checkResultID)
	if err != nil {
		return nil, fmt.Errorf("list element results: %w", err)
	}
	defer rows.Close()

	elements := []models.ElementResult{}
	for rows.Next() {
		var el models.ElementResult
		if err := rows.Scan(&el.ID, &el.CheckResultID, &el.ElementID, &el.ElementType,
			&el.ElementName, &el.ElementNameLong, &el.CheckStatus, &el.ActualValue,
			&el.RequiredValue, &el.Comment, &el.Log); err != nil {
			return nil, fmt.Errorf("scan element result: %w", err)
		}
		elements = append(elements, el)
	}
	return elements, rows.Err()
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
