package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	repovalidation "github.com/launchsignal/validator-backend/internal/data/repos/validation"
	"github.com/launchsignal/validator-backend/internal/http/response"
	"github.com/launchsignal/validator-backend/internal/modules/validator/aggregate"
	"github.com/launchsignal/validator-backend/internal/modules/validator/views"
	"github.com/launchsignal/validator-backend/internal/platform/dbctx"
)

var errNoReport = errors.New("no report for session")

type ReportHandler struct {
	sessions *SessionHandler
	reports  repovalidation.ReportRepo
	cfg      aggregate.Config
}

func NewReportHandler(sessions *SessionHandler, reports repovalidation.ReportRepo, cfg aggregate.Config) *ReportHandler {
	return &ReportHandler{sessions: sessions, reports: reports, cfg: cfg}
}

// GET /api/sessions/:id/report
func (h *ReportHandler) GetCurrentReport(c *gin.Context) {
	session, ok := h.sessions.ownedSession(c)
	if !ok {
		return
	}
	report, err := h.reports.GetCurrent(dbctx.Context{Ctx: c.Request.Context()}, session.ID)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "report_lookup_failed", err)
		return
	}
	if report == nil {
		response.RespondError(c, http.StatusNotFound, "report_not_found", errNoReport)
		return
	}
	response.RespondOK(c, gin.H{"report": report})
}

// GET /api/sessions/:id/reports
//
// The full chain, newest first. Superseded rows stay readable; only the
// chain tail is "the" report.
func (h *ReportHandler) ListReports(c *gin.Context) {
	session, ok := h.sessions.ownedSession(c)
	if !ok {
		return
	}
	reports, err := h.reports.ListBySession(dbctx.Context{Ctx: c.Request.Context()}, session.ID)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "report_lookup_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"reports": reports})
}

// GET /api/reports/:id/views
//
// Derived read models (maturity, gaps, benchmark) computed on the fly from
// one report row; nothing here is persisted. Works on any row in the chain,
// current or superseded.
func (h *ReportHandler) GetReportViews(c *gin.Context) {
	reportID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_report_id", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	report, err := h.reports.GetByID(dbc, reportID)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "report_lookup_failed", err)
		return
	}
	if report == nil {
		response.RespondError(c, http.StatusNotFound, "report_not_found", errNoReport)
		return
	}
	if _, ok := h.sessions.ownedSessionByID(c, report.SessionID); !ok {
		return
	}
	derived, err := views.Derive(report, h.cfg)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "derive_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"views": derived})
}
