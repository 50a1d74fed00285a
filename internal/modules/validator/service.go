package validator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/launchsignal/validator-backend/internal/domain/validation"
	"github.com/launchsignal/validator-backend/internal/modules/validator/aggregate"
	"github.com/launchsignal/validator-backend/internal/platform/dbctx"
	"github.com/launchsignal/validator-backend/internal/platform/logger"
	"github.com/launchsignal/validator-backend/internal/services"
)

var (
	// ErrSessionNotFound means the run referenced a session that does not
	// exist.
	ErrSessionNotFound = errors.New("validator: session not found")

	// ErrRegenerationConflict means the commit lost the supersede race: the
	// session's current report changed after this run read it. The prior
	// report stays current and nothing from this run is kept.
	ErrRegenerationConflict = errors.New("validator: current report changed during regeneration")

	// ErrEmptyRun means every scored dimension failed. No report row exists
	// for the run; the session lands in the empty state.
	ErrEmptyRun = errors.New("validator: no scored dimension settled")
)

// ReportStore is the slice of the report repository the pipeline needs.
// Advance must be atomic: the insert and the supersede of the prior tail
// land together or not at all.
type ReportStore interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*validation.ValidationReport, error)
	GetCurrent(dbc dbctx.Context, sessionID uuid.UUID) (*validation.ValidationReport, error)
	Advance(dbc dbctx.Context, report *validation.ValidationReport, priorID uuid.UUID) (*validation.ValidationReport, bool, error)
}

// SessionStore is the slice of the session repository the pipeline needs.
type SessionStore interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*validation.ValidatorSession, error)
	UpdateStatus(dbc dbctx.Context, id uuid.UUID, status string, errMsg string) error
}

// Service runs full validation passes for sessions.
type Service struct {
	log       *logger.Logger
	fanout    *FanOut
	assembler *Assembler
	model     string
	sessions  SessionStore
	reports   ReportStore
	notify    services.PipelineNotifier
}

func NewService(
	log *logger.Logger,
	sc DimensionScorer,
	cfg aggregate.Config,
	stagger time.Duration,
	sessions SessionStore,
	reports ReportStore,
	notify services.PipelineNotifier,
) *Service {
	return &Service{
		log:       log.With("service", "ValidatorService"),
		fanout:    NewFanOut(sc, stagger, log),
		assembler: NewAssembler(cfg),
		model:     sc.Model(),
		sessions:  sessions,
		reports:   reports,
		notify:    notify,
	}
}

// RunFull executes the complete pipeline for a session and commits the
// resulting report as the session's new current. Session status lands on
// complete (all nine settled), partial (report exists, some stages failed),
// empty (no scored dimension settled), or failed. Cancellation returns the
// context error and persists nothing.
func (s *Service) RunFull(ctx context.Context, sessionID uuid.UUID) (*validation.ValidationReport, error) {
	dbc := dbctx.Context{Ctx: ctx}
	start := time.Now()

	session, err := s.sessions.GetByID(dbc, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	var profile validation.Profile
	if len(session.Profile) > 0 {
		if err := json.Unmarshal(session.Profile, &profile); err != nil {
			_ = s.sessions.UpdateStatus(dbc, sessionID, validation.SessionStatusFailed, "malformed profile")
			return nil, fmt.Errorf("decode session profile: %w", err)
		}
	}

	if err := s.sessions.UpdateStatus(dbc, sessionID, validation.SessionStatusRunning, ""); err != nil {
		return nil, err
	}

	obs := &notifierObserver{notify: s.notify, userID: session.UserID, sessionID: sessionID}
	outcome, err := s.fanout.Run(ctx, profile, validation.AllDimensions(), obs)
	if err != nil {
		// Cancellation: results are discarded and the session keeps its
		// running status for the retrying worker to overwrite.
		return nil, err
	}

	report, err := s.assembler.Build(sessionID, outcome, s.model, time.Since(start))
	if err != nil {
		if errors.Is(err, aggregate.ErrAggregationEmpty) {
			_ = s.sessions.UpdateStatus(dbc, sessionID, validation.SessionStatusEmpty, "all scored dimensions failed")
			s.notify.PipelineFailed(session.UserID, sessionID, "all scored dimensions failed")
			return nil, ErrEmptyRun
		}
		_ = s.sessions.UpdateStatus(dbc, sessionID, validation.SessionStatusFailed, err.Error())
		s.notify.PipelineFailed(session.UserID, sessionID, err.Error())
		return nil, err
	}

	committed, err := s.Commit(dbc, sessionID, report)
	if err != nil {
		_ = s.sessions.UpdateStatus(dbc, sessionID, validation.SessionStatusFailed, err.Error())
		s.notify.PipelineFailed(session.UserID, sessionID, err.Error())
		return nil, err
	}

	status := validation.SessionStatusComplete
	if len(outcome.Failures) > 0 {
		status = validation.SessionStatusPartial
	}
	if err := s.sessions.UpdateStatus(dbc, sessionID, status, ""); err != nil {
		return nil, err
	}
	s.notify.PipelineComplete(session.UserID, sessionID, committed.ID, status)

	s.log.Info("validation run committed",
		"session_id", sessionID,
		"report_id", committed.ID,
		"overall_score", committed.OverallScore,
		"signal", committed.Signal,
		"failed_dimensions", len(outcome.Failures),
		"status", status,
	)
	return committed, nil
}

// Commit advances the session's current pointer with a compare-and-set
// against the chain tail read at commit time. The insert and the supersede
// run in one store transaction, so a failed or conflicted commit leaves no
// trace and the prior report is never silently overwritten.
func (s *Service) Commit(dbc dbctx.Context, sessionID uuid.UUID, report *validation.ValidationReport) (*validation.ValidationReport, error) {
	prior, err := s.reports.GetCurrent(dbc, sessionID)
	if err != nil {
		return nil, err
	}
	priorID := uuid.Nil
	if prior != nil {
		priorID = prior.ID
	}
	created, ok, err := s.reports.Advance(dbc, report, priorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRegenerationConflict
	}
	return created, nil
}

// Reports exposes the store for collaborators that share the commit path.
func (s *Service) Reports() ReportStore { return s.reports }

// Sessions exposes the session store.
func (s *Service) Sessions() SessionStore { return s.sessions }

// Assemble builds a report row without committing it.
func (s *Service) Assemble(sessionID uuid.UUID, outcome Outcome, elapsed time.Duration) (*validation.ValidationReport, error) {
	return s.assembler.Build(sessionID, outcome, s.model, elapsed)
}

// ScoreOne runs a single dimension's scorer, used by single-dimension
// regeneration.
func (s *Service) ScoreOne(ctx context.Context, profile validation.Profile, id validation.DimensionID, obs Observer) (Outcome, error) {
	return s.fanout.Run(ctx, profile, []validation.DimensionID{id}, obs)
}

type notifierObserver struct {
	notify    services.PipelineNotifier
	userID    uuid.UUID
	sessionID uuid.UUID
}

func (o *notifierObserver) DimensionStarted(id validation.DimensionID) {
	o.notify.DimensionStarted(o.userID, o.sessionID, id)
}

func (o *notifierObserver) DimensionSettled(id validation.DimensionID, ok bool, reason string) {
	o.notify.DimensionSettled(o.userID, o.sessionID, id, ok, reason)
}
