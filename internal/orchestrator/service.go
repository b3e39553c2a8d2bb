// Package orchestrator glues the pipeline together: it starts a job,
// loads the model context, fans out checks through the engine, pushes
// outcomes through the schema normalizer and the aggregator, and reports
// completions through the job tracker.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ifcore/checkd/internal/aggregate"
	"github.com/ifcore/checkd/internal/engine"
	"github.com/ifcore/checkd/internal/job"
	"github.com/ifcore/checkd/internal/model"
	"github.com/ifcore/checkd/internal/registry"
	"github.com/ifcore/checkd/internal/schema"
	"github.com/ifcore/checkd/pkg/models"
)

var ErrProjectRequired = errors.New("project id is required")
var ErrUnknownCheck = errors.New("unknown check")

// CheckOutcome is the payload of a completion report delivered by an
// execution backend: either the raw element records a check emitted, or
// the fault that stopped it.
type CheckOutcome struct {
	Elements []map[string]any `json:"elements"`
	Fault    string           `json:"fault,omitempty"`
}

// Service orchestrates validation runs.
type Service struct {
	registry *registry.Registry
	loader   model.Loader
	engine   *engine.Engine
	tracker  *job.Tracker
}

func New(reg *registry.Registry, loader model.Loader, eng *engine.Engine, tracker *job.Tracker) *Service {
	return &Service{registry: reg, loader: loader, engine: eng, tracker: tracker}
}

// StartJob creates a job covering every check in the catalog and
// dispatches the run in a background goroutine. Returns the job
// immediately; the client polls JobSnapshot for progress.
func (s *Service) StartJob(ctx context.Context, projectID string) (*models.Job, error) {
	if projectID == "" {
		return nil, ErrProjectRequired
	}

	descriptors := s.registry.List()
	names := make([]string, len(descriptors))
	for i, d := range descriptors {
		names[i] = d.Name
	}

	j, err := s.tracker.Create(ctx, projectID, names)
	if err != nil {
		return nil, err
	}

	go s.run(j.ID, projectID, descriptors)

	return j, nil
}

// run executes all checks for one job. It recovers from panics and never
// lets a per-check fault escape; only a model load failure moves the job
// itself to error.
func (s *Service) run(jobID uuid.UUID, projectID string, descriptors []registry.Descriptor) {
	ctx := context.Background()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in job run", "job_id", jobID, "panic", r)
			_ = s.tracker.Fail(ctx, jobID, fmt.Sprintf("panic: %v", r))
		}
	}()

	m, err := s.loader.Load(ctx, projectID)
	if err != nil {
		slog.Error("model context unavailable", "job_id", jobID, "project_id", projectID, "error", err)
		_ = s.tracker.Fail(ctx, jobID, fmt.Sprintf("load model: %v", err))
		return
	}

	slog.Info("job dispatched", "job_id", jobID, "project_id", projectID, "checks", len(descriptors))

	for outcome := range s.engine.Run(ctx, m, descriptors, nil) {
		res := s.finalize(jobID, projectID, outcome)
		if _, err := s.tracker.RecordCheckResult(ctx, jobID, res); err != nil {
			slog.Error("record check result", "job_id", jobID, "check", res.CheckName, "error", err)
		}
	}
}

// finalize turns one raw engine outcome into an aggregated CheckResult.
func (s *Service) finalize(jobID uuid.UUID, projectID string, outcome engine.Outcome) *models.CheckResult {
	in := aggregate.Input{
		JobID:     jobID,
		ProjectID: projectID,
		CheckName: outcome.Descriptor.Name,
		Team:      outcome.Descriptor.Team,
	}

	if outcome.Err != nil {
		in.Kind = aggregate.Failure
		in.FaultText = outcome.Err.Error()
		return aggregate.Reduce(in)
	}

	elements, rejections := schema.Normalize(outcome.Elements)
	for _, rej := range rejections {
		slog.Warn("element rejected",
			"job_id", jobID,
			"check", outcome.Descriptor.Name,
			"diagnostic", rej.String(),
		)
	}

	if schema.Malformed(outcome.Elements, elements) {
		in.Kind = aggregate.Malformed
		in.RejectedCount = len(rejections)
		return aggregate.Reduce(in)
	}

	in.Kind = aggregate.Normal
	in.Elements = elements
	return aggregate.Reduce(in)
}

// CompleteCheck is the idempotent completion callback for an external
// execution backend delivering results at-least-once. The outcome runs
// through the same normalization and aggregation as in-process checks.
func (s *Service) CompleteCheck(ctx context.Context, jobID uuid.UUID, checkName string, outcome CheckOutcome) (*models.CheckResult, error) {
	d, ok := s.registry.Lookup(checkName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCheck, checkName)
	}

	in := aggregate.Input{
		JobID:     jobID,
		ProjectID: "",
		CheckName: d.Name,
		Team:      d.Team,
	}
	if j, err := s.tracker.Snapshot(ctx, jobID); err == nil {
		in.ProjectID = j.ProjectID
	}

	switch {
	case outcome.Fault != "":
		in.Kind = aggregate.Failure
		in.FaultText = outcome.Fault
	default:
		elements, rejections := schema.Normalize(outcome.Elements)
		for _, rej := range rejections {
			slog.Warn("element rejected", "job_id", jobID, "check", checkName, "diagnostic", rej.String())
		}
		if schema.Malformed(outcome.Elements, elements) {
			in.Kind = aggregate.Malformed
			in.RejectedCount = len(rejections)
		} else {
			in.Kind = aggregate.Normal
			in.Elements = elements
		}
	}

	return s.tracker.RecordCheckResult(ctx, jobID, aggregate.Reduce(in))
}

// JobSnapshot returns the job's current status and finalized results.
func (s *Service) JobSnapshot(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	return s.tracker.Snapshot(ctx, jobID)
}

// Catalog lists the registered, runnable checks.
func (s *Service) Catalog() []registry.Descriptor {
	return s.registry.List()
}
