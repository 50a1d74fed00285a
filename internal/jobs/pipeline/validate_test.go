package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	jobtypes "github.com/launchsignal/validator-backend/internal/domain/jobs"
	"github.com/launchsignal/validator-backend/internal/domain/validation"
	"github.com/launchsignal/validator-backend/internal/jobs/runtime"
	"github.com/launchsignal/validator-backend/internal/modules/validator"
	"github.com/launchsignal/validator-backend/internal/modules/validator/aggregate"
	"github.com/launchsignal/validator-backend/internal/modules/validator/scorer"
	"github.com/launchsignal/validator-backend/internal/platform/dbctx"
	"github.com/launchsignal/validator-backend/internal/platform/logger"
)

// blockingScorer parks every call until the context is canceled, standing in
// for an oracle that never answers before the run is abandoned.
type blockingScorer struct {
	failAll bool
}

func (s *blockingScorer) Score(ctx context.Context, _ validation.Profile, id validation.DimensionID) (validation.DimensionResult, error) {
	if s.failAll {
		return validation.DimensionResult{}, &scorer.StageError{
			DimensionID: id,
			Reason:      scorer.ReasonOracleError,
			Err:         errors.New("oracle down"),
		}
	}
	<-ctx.Done()
	return validation.DimensionResult{}, ctx.Err()
}

func (s *blockingScorer) Model() string { return "blocking-oracle" }

type trackedSessions struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*validation.ValidatorSession
}

func (m *trackedSessions) GetByID(_ dbctx.Context, id uuid.UUID) (*validation.ValidatorSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *trackedSessions) UpdateStatus(_ dbctx.Context, id uuid.UUID, status string, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.Status = status
		s.Error = errMsg
	}
	return nil
}

func (m *trackedSessions) status(id uuid.UUID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id].Status
}

type nilReports struct{}

func (nilReports) GetByID(dbctx.Context, uuid.UUID) (*validation.ValidationReport, error) {
	return nil, nil
}

func (nilReports) GetCurrent(dbctx.Context, uuid.UUID) (*validation.ValidationReport, error) {
	return nil, nil
}

func (nilReports) Advance(dbctx.Context, *validation.ValidationReport, uuid.UUID) (*validation.ValidationReport, bool, error) {
	return nil, false, errors.New("no commit expected")
}

type silentNotifier struct{}

func (silentNotifier) DimensionStarted(uuid.UUID, uuid.UUID, validation.DimensionID) {}

func (silentNotifier) DimensionSettled(uuid.UUID, uuid.UUID, validation.DimensionID, bool, string) {}

func (silentNotifier) PipelineComplete(uuid.UUID, uuid.UUID, uuid.UUID, string) {}

func (silentNotifier) PipelineFailed(uuid.UUID, uuid.UUID, string) {}

// guardedJobs mirrors the SQL repo's terminal-write behavior: updates on a
// canceled context do not land.
type guardedJobs struct{}

func (guardedJobs) Create(_ dbctx.Context, job *jobtypes.JobRun) (*jobtypes.JobRun, error) {
	return job, nil
}

func (guardedJobs) GetByID(dbctx.Context, uuid.UUID) (*jobtypes.JobRun, error) { return nil, nil }

func (guardedJobs) ClaimNextRunnable(dbctx.Context, int, time.Duration, time.Duration) (*jobtypes.JobRun, error) {
	return nil, nil
}

func (guardedJobs) UpdateFields(dbctx.Context, uuid.UUID, map[string]interface{}) error { return nil }

func (guardedJobs) UpdateFieldsUnlessStatus(dbc dbctx.Context, _ uuid.UUID, _ []string, _ map[string]interface{}) (bool, error) {
	if dbc.Ctx != nil && dbc.Ctx.Err() != nil {
		return false, dbc.Ctx.Err()
	}
	return true, nil
}

func (guardedJobs) Heartbeat(dbctx.Context, uuid.UUID) error { return nil }

func (guardedJobs) HasRunnableForSession(dbctx.Context, uuid.UUID, string) (bool, error) {
	return false, nil
}

func newValidateFixture(t *testing.T, sc validator.DimensionScorer) (*ValidateHandler, *trackedSessions, *validation.ValidatorSession) {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	session := &validation.ValidatorSession{
		ID:      uuid.New(),
		UserID:  uuid.New(),
		Profile: datatypes.JSON([]byte(`{"idea":"solar microgrids"}`)),
		Status:  validation.SessionStatusRunning,
	}
	sessions := &trackedSessions{sessions: map[uuid.UUID]*validation.ValidatorSession{session.ID: session}}
	svc := validator.NewService(log, sc, aggregate.Default(), 0, sessions, nilReports{}, silentNotifier{})
	return NewValidateHandler(log, svc), sessions, session
}

func newJobContext(ctx context.Context, session *validation.ValidatorSession, attempts, maxAttempts int) *runtime.Context {
	job := &jobtypes.JobRun{
		ID:          uuid.New(),
		OwnerUserID: session.UserID,
		JobType:     jobtypes.JobTypeValidate,
		SessionID:   session.ID,
		Status:      "running",
		Attempts:    attempts,
		Payload:     datatypes.JSON([]byte(`{"session_id":"` + session.ID.String() + `"}`)),
	}
	return runtime.NewContext(ctx, nil, job, guardedJobs{}, nil, maxAttempts)
}

func TestValidateFinalAttemptFailsAbandonedSession(t *testing.T) {
	h, sessions, session := newValidateFixture(t, &blockingScorer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	jc := newJobContext(ctx, session, 3, 3)

	if err := h.Run(jc); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := sessions.status(session.ID); got != validation.SessionStatusFailed {
		t.Fatalf("session status = %q after the final attempt, want failed", got)
	}
	sessions.mu.Lock()
	errMsg := sessions.sessions[session.ID].Error
	sessions.mu.Unlock()
	if errMsg == "" {
		t.Fatal("abandoned session carries no error message")
	}
}

func TestValidateRetriableAttemptKeepsSessionRunning(t *testing.T) {
	h, sessions, session := newValidateFixture(t, &blockingScorer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	jc := newJobContext(ctx, session, 1, 3)

	if err := h.Run(jc); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// A later claim owns the next transition while retries remain.
	if got := sessions.status(session.ID); got != validation.SessionStatusRunning {
		t.Fatalf("session status = %q with retries left, want running", got)
	}
}

func TestValidateFinalAttemptDoesNotClobberEmptyStatus(t *testing.T) {
	h, sessions, session := newValidateFixture(t, &blockingScorer{failAll: true})

	jc := newJobContext(context.Background(), session, 3, 3)
	if err := h.Run(jc); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := sessions.status(session.ID); got != validation.SessionStatusEmpty {
		t.Fatalf("session status = %q, want empty to survive the final attempt", got)
	}
}
