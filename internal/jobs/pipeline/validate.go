// Package pipeline holds the job handlers that bind queued job runs to the
// validation service: one handler per job type, registered with the worker's
// registry at startup.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	jobtypes "github.com/launchsignal/validator-backend/internal/domain/jobs"
	"github.com/launchsignal/validator-backend/internal/domain/validation"
	"github.com/launchsignal/validator-backend/internal/jobs/runtime"
	"github.com/launchsignal/validator-backend/internal/modules/validator"
	"github.com/launchsignal/validator-backend/internal/platform/dbctx"
	"github.com/launchsignal/validator-backend/internal/platform/logger"
)

// ValidateHandler runs the full scoring pipeline for the session named in
// the job payload.
type ValidateHandler struct {
	log *logger.Logger
	svc *validator.Service
}

func NewValidateHandler(log *logger.Logger, svc *validator.Service) *ValidateHandler {
	return &ValidateHandler{
		log: log.With("handler", jobtypes.JobTypeValidate),
		svc: svc,
	}
}

func (h *ValidateHandler) Type() string { return jobtypes.JobTypeValidate }

func (h *ValidateHandler) Run(jc *runtime.Context) error {
	sessionID, ok := jc.PayloadUUID("session_id")
	if !ok {
		jc.Fail("payload", fmt.Errorf("payload missing session_id"))
		return nil
	}

	jc.Progress("scoring", 10, "scoring dimensions")
	report, err := h.svc.RunFull(jc.Ctx, sessionID)
	if err != nil {
		stage := "run"
		switch {
		case errors.Is(err, validator.ErrEmptyRun):
			// The session already landed in the empty state; a retry may
			// still succeed once the oracle recovers.
			stage = "scoring"
		case errors.Is(err, validator.ErrSessionNotFound):
			stage = "lookup"
		case errors.Is(err, validator.ErrRegenerationConflict):
			stage = "commit"
		}
		jc.Fail(stage, err)
		failAbandonedSession(jc, h.svc.Sessions(), sessionID, err)
		return nil
	}

	jc.Progress("commit", 90, "report committed")
	jc.Succeed("done", map[string]any{
		"report_id":     report.ID,
		"overall_score": report.OverallScore,
		"signal":        report.Signal,
	})
	h.log.Info("validation job finished",
		"job_id", jc.Job.ID,
		"session_id", sessionID,
		"report_id", report.ID,
	)
	return nil
}

// failAbandonedSession moves a session out of running once the job has no
// retries left. A canceled run keeps the running status between attempts so
// the next claim owns the transition, but after the final attempt nobody
// ever will. Runs on a detached context so worker shutdown cannot skip it.
func failAbandonedSession(jc *runtime.Context, sessions validator.SessionStore, sessionID uuid.UUID, cause error) {
	if !jc.FinalAttempt() {
		return
	}
	ctx := jc.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	dbc := dbctx.Context{Ctx: context.WithoutCancel(ctx)}
	session, err := sessions.GetByID(dbc, sessionID)
	if err != nil || session == nil || session.Status != validation.SessionStatusRunning {
		return
	}
	msg := "run abandoned"
	if cause != nil {
		msg = cause.Error()
	}
	_ = sessions.UpdateStatus(dbc, sessionID, validation.SessionStatusFailed, msg)
}
