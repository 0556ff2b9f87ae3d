package handlers

import (
	"net/http"

	"github.com/wonny/fundnav/internal/scheduler"
)

// JobStatsSource reports scheduler statistics
type JobStatsSource interface {
	GetJobStats() map[string]scheduler.JobStats
}

// JobsHandler exposes scheduler job statistics
type JobsHandler struct {
	source JobStatsSource
}

// NewJobsHandler creates a new jobs handler
func NewJobsHandler(source JobStatsSource) *JobsHandler {
	return &JobsHandler{source: source}
}

// Stats returns per-job run statistics
// GET /api/jobs
func (h *JobsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.source.GetJobStats())
}
