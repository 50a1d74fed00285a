package pipeline

import (
	"errors"
	"fmt"

	jobtypes "github.com/launchsignal/validator-backend/internal/domain/jobs"
	"github.com/launchsignal/validator-backend/internal/domain/validation"
	"github.com/launchsignal/validator-backend/internal/jobs/runtime"
	"github.com/launchsignal/validator-backend/internal/modules/validator"
	"github.com/launchsignal/validator-backend/internal/modules/validator/regen"
	"github.com/launchsignal/validator-backend/internal/platform/logger"
)

// RegenerateHandler re-runs scoring for a session, fully or for the single
// dimension named in the payload, through the regeneration controller.
type RegenerateHandler struct {
	log      *logger.Logger
	ctrl     *regen.Controller
	sessions validator.SessionStore
}

func NewRegenerateHandler(log *logger.Logger, ctrl *regen.Controller, sessions validator.SessionStore) *RegenerateHandler {
	return &RegenerateHandler{
		log:      log.With("handler", jobtypes.JobTypeRegenerate),
		ctrl:     ctrl,
		sessions: sessions,
	}
}

func (h *RegenerateHandler) Type() string { return jobtypes.JobTypeRegenerate }

func (h *RegenerateHandler) Run(jc *runtime.Context) error {
	sessionID, ok := jc.PayloadUUID("session_id")
	if !ok {
		jc.Fail("payload", fmt.Errorf("payload missing session_id"))
		return nil
	}
	userID, ok := jc.PayloadUUID("user_id")
	if !ok {
		jc.Fail("payload", fmt.Errorf("payload missing user_id"))
		return nil
	}

	req := regen.Request{SessionID: sessionID, UserID: userID}
	if raw := jc.PayloadString("dimension"); raw != "" {
		dim, err := validation.ParseDimensionID(raw)
		if err != nil {
			jc.Fail("payload", err)
			return nil
		}
		req.Dimension = &dim
	}

	stage := "regenerate"
	if req.Dimension != nil {
		stage = "regenerate:" + string(*req.Dimension)
	}
	jc.Progress(stage, 10, "regenerating")

	res, err := h.ctrl.Regenerate(jc.Ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, regen.ErrNotOwner):
			jc.Fail("authorize", err)
		case errors.Is(err, regen.ErrNoPriorReport):
			jc.Fail("lookup", err)
		case errors.Is(err, validator.ErrRegenerationConflict):
			jc.Fail("commit", err)
		default:
			jc.Fail(stage, err)
		}
		// Full regenerations own the session status the same way first runs
		// do; single-dimension runs never touch it.
		if req.Dimension == nil {
			failAbandonedSession(jc, h.sessions, sessionID, err)
		}
		return nil
	}

	jc.Succeed("done", map[string]any{
		"report_id":     res.Report.ID,
		"overall_score": res.Report.OverallScore,
		"signal":        res.Report.Signal,
	})
	h.log.Info("regeneration job finished",
		"job_id", jc.Job.ID,
		"session_id", sessionID,
		"report_id", res.Report.ID,
	)
	return nil
}

// RegisterAll wires every pipeline handler into the worker registry.
func RegisterAll(reg *runtime.Registry, log *logger.Logger, svc *validator.Service, ctrl *regen.Controller) error {
	if err := reg.Register(NewValidateHandler(log, svc)); err != nil {
		return err
	}
	return reg.Register(NewRegenerateHandler(log, ctrl, svc.Sessions()))
}
