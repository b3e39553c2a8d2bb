package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ifcore/checkd/internal/api/response"
	"github.com/ifcore/checkd/internal/job"
	"github.com/ifcore/checkd/internal/orchestrator"
	"github.com/ifcore/checkd/internal/store"
	"github.com/ifcore/checkd/pkg/models"
)

// Orchestrator defines the interface the job handlers depend on.
type Orchestrator interface {
	StartJob(ctx context.Context, projectID string) (*models.Job, error)
	JobSnapshot(ctx context.Context, jobID uuid.UUID) (*models.Job, error)
	CompleteCheck(ctx context.Context, jobID uuid.UUID, checkName string, outcome orchestrator.CheckOutcome) (*models.CheckResult, error)
}

// NewStartJobHandler returns an http.HandlerFunc for POST /api/v1/jobs.
func NewStartJobHandler(svc Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ProjectID string `json:"project_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.ProjectID == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "project_id is required", nil)
			return
		}

		j, err := svc.StartJob(r.Context(), req.ProjectID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Could not start validation job", nil)
			return
		}

		response.Accepted(w, jobResponseFrom(j))
	}
}

// NewGetJobHandler returns an http.HandlerFunc for GET /api/v1/jobs/{jobID}.
// The snapshot shows whatever check results have finalized so far, so a
// client may poll while the job is still running.
func NewGetJobHandler(svc Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "job id must be a UUID", nil)
			return
		}

		j, err := svc.JobSnapshot(r.Context(), jobID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "No such job", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		response.JSON(w, jobResponseFrom(j))
	}
}

// NewCompleteCheckHandler returns an http.HandlerFunc for
// POST /api/v1/jobs/{jobID}/checks/{checkName}/complete. Completion
// reports are delivered at-least-once; a duplicate is answered with the
// result stored by the first delivery.
func NewCompleteCheckHandler(svc Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "job id must be a UUID", nil)
			return
		}
		checkName := chi.URLParam(r, "checkName")

		var outcome orchestrator.CheckOutcome
		if err := json.NewDecoder(r.Body).Decode(&outcome); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		res, err := svc.CompleteCheck(r.Context(), jobID, checkName, outcome)
		if err != nil {
			switch {
			case errors.Is(err, orchestrator.ErrUnknownCheck):
				response.Error(w, http.StatusNotFound, "UNKNOWN_CHECK",
					"No such check in the catalog", nil)
			case errors.Is(err, job.ErrUnexpectedCheck):
				response.Error(w, http.StatusConflict, "UNEXPECTED_CHECK",
					"Check was not dispatched for this job", nil)
			case errors.Is(err, store.ErrNotFound):
				response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "No such job", nil)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"An unexpected error occurred", nil)
			}
			return
		}

		response.JSON(w, checkResultResponseFrom(res))
	}
}

type jobResponse struct {
	ID           uuid.UUID             `json:"id"`
	ProjectID    string                `json:"project_id"`
	Status       string                `json:"status"`
	ErrorMessage *string               `json:"error_message,omitempty"`
	CreatedAt    string                `json:"created_at"`
	CheckResults []checkResultResponse `json:"check_results"`
}

type checkResultResponse struct {
	CheckName   string                 `json:"check_name"`
	Team        string                 `json:"team"`
	Status      string                 `json:"status"`
	Summary     string                 `json:"summary"`
	HasElements bool                   `json:"has_elements"`
	Elements    []models.ElementResult `json:"elements"`
}

func jobResponseFrom(j *models.Job) jobResponse {
	resp := jobResponse{
		ID:           j.ID,
		ProjectID:    j.ProjectID,
		Status:       j.Status,
		ErrorMessage: j.ErrorMessage,
		CreatedAt:    j.CreatedAt.UTC().Format(time.RFC3339),
		CheckResults: make([]checkResultResponse, 0, len(j.CheckResults)),
	}
	for _, cr := range j.CheckResults {
		resp.CheckResults = append(resp.CheckResults, checkResultResponseFrom(cr))
	}
	return resp
}

func checkResultResponseFrom(cr *models.CheckResult) checkResultResponse {
	elements := cr.Elements
	if elements == nil {
		elements = []models.ElementResult{}
	}
	return checkResultResponse{
		CheckName:   cr.CheckName,
		Team:        cr.Team,
		Status:      cr.Status,
		Summary:     cr.Summary,
		HasElements: cr.HasElements,
		Elements:    elements,
	}
}
