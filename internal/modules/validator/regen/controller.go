// Package regen is the regeneration controller: it re-runs the pipeline for
// a session, either fully or for one named dimension, and advances the
// report chain without ever mutating a prior report in place.
package regen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/launchsignal/validator-backend/internal/domain/validation"
	"github.com/launchsignal/validator-backend/internal/modules/validator"
	"github.com/launchsignal/validator-backend/internal/platform/dbctx"
	"github.com/launchsignal/validator-backend/internal/platform/logger"
)

// State is where a regeneration request ended up. Requests move
// idle -> authorizing -> running -> verifying -> committed, or stop at
// failed; the terminal state is reported on the result for observability.
type State string

const (
	StateIdle        State = "idle"
	StateAuthorizing State = "authorizing"
	StateRunning     State = "running"
	StateVerifying   State = "verifying"
	StateCommitted   State = "committed"
	StateFailed      State = "failed"
)

var (
	// ErrNotOwner means the caller does not own the session.
	ErrNotOwner = errors.New("regen: caller does not own session")

	// ErrNoPriorReport means a single-dimension regeneration was requested
	// for a session that has no dimension-based report to carry results from.
	ErrNoPriorReport = errors.New("regen: no prior dimension-based report")

	// ErrStageFailed means the regenerated dimension's stage failed. The
	// prior report stays current.
	ErrStageFailed = errors.New("regen: regenerated dimension failed")
)

// Request describes one regeneration. A nil Dimension re-runs the full
// pipeline; a set Dimension re-scores only that axis and carries every other
// dimension result over from the prior current report.
type Request struct {
	SessionID uuid.UUID
	UserID    uuid.UUID
	Dimension *validation.DimensionID
}

// Result is the terminal state plus the committed report, when one exists.
type Result struct {
	State  State
	Report *validation.ValidationReport
}

type Controller struct {
	log *logger.Logger
	svc *validator.Service
}

func NewController(log *logger.Logger, svc *validator.Service) *Controller {
	return &Controller{
		log: log.With("service", "RegenController"),
		svc: svc,
	}
}

// Regenerate drives one request through the state machine. All failure paths
// leave the prior current report untouched; the commit itself is a
// compare-and-set against the exact report the run was based on, so two
// concurrent regenerations can never both claim to supersede it.
func (c *Controller) Regenerate(ctx context.Context, req Request) (Result, error) {
	dbc := dbctx.Context{Ctx: ctx}

	// authorizing
	session, err := c.svc.Sessions().GetByID(dbc, req.SessionID)
	if err != nil {
		return Result{State: StateFailed}, err
	}
	if session == nil {
		return Result{State: StateFailed}, validator.ErrSessionNotFound
	}
	if session.UserID != req.UserID {
		return Result{State: StateAuthorizing}, ErrNotOwner
	}

	if req.Dimension == nil {
		return c.regenerateFull(ctx, req)
	}
	return c.regenerateSingle(ctx, dbc, session, *req.Dimension)
}

func (c *Controller) regenerateFull(ctx context.Context, req Request) (Result, error) {
	report, err := c.svc.RunFull(ctx, req.SessionID)
	if err != nil {
		state := StateFailed
		if errors.Is(err, validator.ErrRegenerationConflict) {
			state = StateVerifying
		}
		return Result{State: state}, err
	}
	c.log.Info("full regeneration committed", "session_id", req.SessionID, "report_id", report.ID)
	return Result{State: StateCommitted, Report: report}, nil
}

func (c *Controller) regenerateSingle(ctx context.Context, dbc dbctx.Context, session *validation.ValidatorSession, dim validation.DimensionID) (Result, error) {
	start := time.Now()

	prior, err := c.svc.Reports().GetCurrent(dbc, session.ID)
	if err != nil {
		return Result{State: StateFailed}, err
	}
	if prior == nil || prior.ReportVersion != validation.ReportVersionDimensions {
		return Result{State: StateFailed}, ErrNoPriorReport
	}
	priorResults, err := prior.DecodeDimensions()
	if err != nil {
		return Result{State: StateFailed}, err
	}

	// running(single)
	var profile validation.Profile
	if len(session.Profile) > 0 {
		if err := json.Unmarshal(session.Profile, &profile); err != nil {
			return Result{State: StateFailed}, fmt.Errorf("decode session profile: %w", err)
		}
	}

	outcome, err := c.svc.ScoreOne(ctx, profile, dim, nil)
	if err != nil {
		return Result{State: StateRunning}, err
	}
	fresh, ok := outcome.Results[dim]
	if !ok {
		reason := ""
		if len(outcome.Failures) > 0 {
			reason = outcome.Failures[0].Reason
		}
		c.log.Warn("single-dimension regeneration stage failed",
			"session_id", session.ID,
			"dimension", dim,
			"reason", reason,
		)
		return Result{State: StateFailed}, ErrStageFailed
	}

	// verifying: the fresh result passed scorer validation; carried-over
	// results were validated when first produced. Re-aggregation happens
	// inside Assemble and never trusts the prior overall score.
	merged := priorResults.Clone()
	merged[dim] = fresh

	priorFailures, err := prior.DecodeFailedDimensions()
	if err != nil {
		return Result{State: StateVerifying}, err
	}
	var failures []validation.StageFailure
	for _, f := range priorFailures {
		if f.DimensionID == dim {
			continue
		}
		failures = append(failures, f)
	}

	report, err := c.svc.Assemble(session.ID, validator.Outcome{Results: merged, Failures: failures}, time.Since(start))
	if err != nil {
		return Result{State: StateVerifying}, err
	}

	// committed: one atomic CAS against the exact report the merge was
	// based on. A lost race rolls the insert back with it.
	created, committed, err := c.svc.Reports().Advance(dbc, report, prior.ID)
	if err != nil {
		return Result{State: StateVerifying}, err
	}
	if !committed {
		return Result{State: StateVerifying}, validator.ErrRegenerationConflict
	}

	c.log.Info("single-dimension regeneration committed",
		"session_id", session.ID,
		"dimension", dim,
		"report_id", created.ID,
		"overall_score", created.OverallScore,
	)
	return Result{State: StateCommitted, Report: created}, nil
}
