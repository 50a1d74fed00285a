package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/launchsignal/validator-backend/internal/http/response"
	"github.com/launchsignal/validator-backend/internal/platform/ctxutil"
	"github.com/launchsignal/validator-backend/internal/services"
)

type JobHandler struct {
	jobs services.JobService
}

func NewJobHandler(jobs services.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// GET /api/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	job, err := h.jobs.GetForUser(c.Request.Context(), ctxutil.UserID(c.Request.Context()), jobID)
	if err != nil {
		if errors.Is(err, services.ErrJobNotFound) {
			response.RespondError(c, http.StatusNotFound, "job_not_found", err)
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "job_lookup_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}
