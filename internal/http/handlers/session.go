package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/launchsignal/validator-backend/internal/domain/validation"
	"github.com/launchsignal/validator-backend/internal/http/response"
	"github.com/launchsignal/validator-backend/internal/platform/ctxutil"
	"github.com/launchsignal/validator-backend/internal/services"
)

type SessionHandler struct {
	sessions services.SessionService
	jobs     services.JobService
}

func NewSessionHandler(sessions services.SessionService, jobs services.JobService) *SessionHandler {
	return &SessionHandler{sessions: sessions, jobs: jobs}
}

// POST /api/sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	userID := ctxutil.UserID(c.Request.Context())

	var profile validation.Profile
	if err := c.ShouldBindJSON(&profile); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_profile", err)
		return
	}

	session, err := h.sessions.Create(c.Request.Context(), userID, profile)
	if err != nil {
		if errors.Is(err, services.ErrEmptyProfile) {
			response.RespondError(c, http.StatusBadRequest, "empty_profile", err)
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "create_session_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"session": session})
}

// GET /api/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	session, ok := h.ownedSession(c)
	if !ok {
		return
	}
	response.RespondOK(c, gin.H{"session": session})
}

// POST /api/sessions/:id/validate
func (h *SessionHandler) Validate(c *gin.Context) {
	session, ok := h.ownedSession(c)
	if !ok {
		return
	}

	job, err := h.jobs.EnqueueValidate(c.Request.Context(), ctxutil.UserID(c.Request.Context()), session.ID)
	if err != nil {
		if errors.Is(err, services.ErrJobDuplicate) {
			response.RespondError(c, http.StatusConflict, "validation_in_progress", err)
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "enqueue_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"job": job})
}

// POST /api/sessions/:id/regenerate
func (h *SessionHandler) Regenerate(c *gin.Context) {
	session, ok := h.ownedSession(c)
	if !ok {
		return
	}

	var req struct {
		Dimension string `json:"dimension"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
	}

	var dimension *validation.DimensionID
	if req.Dimension != "" {
		dim, err := validation.ParseDimensionID(req.Dimension)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_dimension", err)
			return
		}
		dimension = &dim
	}

	// Enqueue under the caller's identity, not the session row's: the job
	// payload's user id is what the regeneration controller authorizes.
	job, err := h.jobs.EnqueueRegenerate(c.Request.Context(), ctxutil.UserID(c.Request.Context()), session.ID, dimension)
	if err != nil {
		if errors.Is(err, services.ErrJobDuplicate) {
			response.RespondError(c, http.StatusConflict, "regeneration_in_progress", err)
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "enqueue_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"job": job})
}

// ownedSession resolves :id to a session the caller owns, writing the error
// response itself when it cannot.
func (h *SessionHandler) ownedSession(c *gin.Context) (*validation.ValidatorSession, bool) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_session_id", err)
		return nil, false
	}
	return h.ownedSessionByID(c, sessionID)
}

func (h *SessionHandler) ownedSessionByID(c *gin.Context, sessionID uuid.UUID) (*validation.ValidatorSession, bool) {
	session, err := h.sessions.GetForUser(c.Request.Context(), ctxutil.UserID(c.Request.Context()), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSessionNotFound):
			response.RespondError(c, http.StatusNotFound, "session_not_found", err)
		case errors.Is(err, services.ErrSessionForbidden):
			response.RespondError(c, http.StatusForbidden, "forbidden", err)
		default:
			response.RespondError(c, http.StatusInternalServerError, "session_lookup_failed", err)
		}
		return nil, false
	}
	return session, true
}
