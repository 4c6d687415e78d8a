package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gateway/internal/service"
)

// JobsHandler exposes pipeline progress for dashboards and test harnesses.
type JobsHandler struct {
	paymentService *service.PaymentService
}

// NewJobsHandler creates a new JobsHandler.
func NewJobsHandler(paymentService *service.PaymentService) *JobsHandler {
	return &JobsHandler{paymentService: paymentService}
}

// JobStatusResponse is the HTTP response for job status.
type JobStatusResponse struct {
	service.JobStats
	WorkerStatus string `json:"worker_status"`
}

// JobStatus handles GET /api/v1/test/jobs/status
func (h *JobsHandler) JobStatus(c *gin.Context) {
	stats, err := h.paymentService.JobStatus(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, JobStatusResponse{JobStats: *stats, WorkerStatus: "running"})
}

// HealthCheck reports an error if a dependency is unavailable.
type HealthCheck func(ctx context.Context) error

// HealthHandler reports liveness of the API and its dependencies.
type HealthHandler struct {
	checks map[string]HealthCheck
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			deps[name] = err.Error()
			continue
		}
		deps[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}

	respondJSON(c, status, gin.H{"status": overall, "dependencies": deps})
}
