package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/me/hpcq/pkg/model"
)

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req struct {
		StudentID string `json:"student_id"`
		JobName   string `json:"job_name"`
		TotalTime int    `json:"total_time"`
		Priority  int    `json:"priority"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, reqID, http.StatusBadRequest, &model.APIError{
			Code:    model.ErrValidation,
			Message: "Invalid JSON body: " + err.Error(),
		})
		return
	}

	job := &model.JobRecord{
		ID:        "job_" + uuid.New().String(),
		StudentID: req.StudentID,
		JobName:   req.JobName,
		TotalTime: req.TotalTime,
		Priority:  req.Priority,
		CreatedAt: time.Now().UTC(),
	}

	// Invariants are enforced here, at the submission boundary; the
	// engine trusts whatever it loads from the queue.
	if errs := job.Validate(); errs != nil {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("invalid job request", errs...))
		return
	}

	if err := s.store.AppendJob(r.Context(), job); err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}

	s.logger.Info("job queued",
		"id", job.ID,
		"student_id", job.StudentID,
		"job_name", job.JobName,
		"position", job.Position,
	)
	respondCreated(w, reqID, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	jobs, err := s.store.ListPending(r.Context())
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	if jobs == nil {
		jobs = []*model.JobRecord{}
	}
	respondOK(w, reqID, jobs)
}
