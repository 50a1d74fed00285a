package regen

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/launchsignal/validator-backend/internal/domain/validation"
	"github.com/launchsignal/validator-backend/internal/modules/validator"
	"github.com/launchsignal/validator-backend/internal/modules/validator/aggregate"
	"github.com/launchsignal/validator-backend/internal/modules/validator/scorer"
	"github.com/launchsignal/validator-backend/internal/platform/dbctx"
	"github.com/launchsignal/validator-backend/internal/platform/logger"
)

type stubScorer struct {
	mu    sync.Mutex
	calls int
	score map[validation.DimensionID]int
	fail  map[validation.DimensionID]error
}

func newStubScorer(defaultScore int) *stubScorer {
	score := make(map[validation.DimensionID]int, 9)
	for _, id := range validation.AllDimensions() {
		score[id] = defaultScore
	}
	return &stubScorer{score: score, fail: make(map[validation.DimensionID]error)}
}

func (s *stubScorer) Score(_ context.Context, _ validation.Profile, id validation.DimensionID) (validation.DimensionResult, error) {
	s.mu.Lock()
	s.calls++
	failErr := s.fail[id]
	composite := s.score[id]
	s.mu.Unlock()
	if failErr != nil {
		return validation.DimensionResult{}, failErr
	}
	return validation.DimensionResult{
		DimensionID:    id,
		CompositeScore: composite,
		Headline:       "headline for " + string(id),
	}, nil
}

func (s *stubScorer) Model() string { return "stub-oracle" }

func (s *stubScorer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubSessions struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*validation.ValidatorSession
}

func (m *stubSessions) GetByID(_ dbctx.Context, id uuid.UUID) (*validation.ValidatorSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *stubSessions) UpdateStatus(_ dbctx.Context, id uuid.UUID, status string, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.Status = status
		s.Error = errMsg
	}
	return nil
}

type stubReports struct {
	mu      sync.Mutex
	reports map[uuid.UUID]*validation.ValidationReport
	seq     int

	loseNextAdvance bool
}

func newStubReports() *stubReports {
	return &stubReports{reports: make(map[uuid.UUID]*validation.ValidationReport)}
}

func (m *stubReports) Create(_ dbctx.Context, report *validation.ValidationReport) (*validation.ValidationReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *report
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	m.seq++
	cp.CreatedAt = time.Unix(int64(m.seq), 0)
	m.reports[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *stubReports) GetByID(_ dbctx.Context, id uuid.UUID) (*validation.ValidationReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *stubReports) GetCurrent(_ dbctx.Context, sessionID uuid.UUID) (*validation.ValidationReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var current *validation.ValidationReport
	for _, r := range m.reports {
		if r.SessionID != sessionID || r.SupersededBy != nil {
			continue
		}
		if current == nil || r.CreatedAt.After(current.CreatedAt) {
			current = r
		}
	}
	if current == nil {
		return nil, nil
	}
	cp := *current
	return &cp, nil
}

// Advance mirrors the SQL repository: a conflicted compare-and-set rolls the
// insert back with it.
func (m *stubReports) Advance(_ dbctx.Context, report *validation.ValidationReport, priorID uuid.UUID) (*validation.ValidationReport, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loseNextAdvance {
		m.loseNextAdvance = false
		return nil, false, nil
	}
	if priorID != uuid.Nil {
		prior, ok := m.reports[priorID]
		if !ok || prior.SupersededBy != nil {
			return nil, false, nil
		}
	}
	cp := *report
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	m.seq++
	cp.CreatedAt = time.Unix(int64(m.seq), 0)
	m.reports[cp.ID] = &cp
	if priorID != uuid.Nil {
		id := cp.ID
		m.reports[priorID].SupersededBy = &id
	}
	out := cp
	return &out, true, nil
}

func (m *stubReports) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reports)
}

type nopNotifier struct{}

func (nopNotifier) DimensionStarted(uuid.UUID, uuid.UUID, validation.DimensionID) {}

func (nopNotifier) DimensionSettled(uuid.UUID, uuid.UUID, validation.DimensionID, bool, string) {}

func (nopNotifier) PipelineComplete(uuid.UUID, uuid.UUID, uuid.UUID, string) {}

func (nopNotifier) PipelineFailed(uuid.UUID, uuid.UUID, string) {}

type fixture struct {
	ctrl    *Controller
	svc     *validator.Service
	scorer  *stubScorer
	reports *stubReports
	session *validation.ValidatorSession
}

func newFixture(t *testing.T, sc *stubScorer) *fixture {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	session := &validation.ValidatorSession{
		ID:      uuid.New(),
		UserID:  uuid.New(),
		Profile: datatypes.JSON([]byte(`{"idea":"drone delivery for pharmacies"}`)),
		Status:  validation.SessionStatusPending,
	}
	sessions := &stubSessions{sessions: map[uuid.UUID]*validation.ValidatorSession{session.ID: session}}
	reports := newStubReports()
	svc := validator.NewService(log, sc, aggregate.Default(), 0, sessions, reports, nopNotifier{})
	return &fixture{
		ctrl:    NewController(log, svc),
		svc:     svc,
		scorer:  sc,
		reports: reports,
		session: session,
	}
}

func (f *fixture) seedBaseline(t *testing.T) *validation.ValidationReport {
	t.Helper()
	report, err := f.svc.RunFull(context.Background(), f.session.ID)
	if err != nil {
		t.Fatalf("seed RunFull: %v", err)
	}
	return report
}

func dimPtr(id validation.DimensionID) *validation.DimensionID { return &id }

func TestRegenerateSingleDimensionCarryover(t *testing.T) {
	sc := newStubScorer(80)
	f := newFixture(t, sc)
	baseline := f.seedBaseline(t)

	sc.score[validation.DimensionMarket] = 95
	before := sc.callCount()

	res, err := f.ctrl.Regenerate(context.Background(), Request{
		SessionID: f.session.ID,
		UserID:    f.session.UserID,
		Dimension: dimPtr(validation.DimensionMarket),
	})
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if res.State != StateCommitted {
		t.Fatalf("state = %q, want committed", res.State)
	}
	if got := sc.callCount() - before; got != 1 {
		t.Fatalf("regeneration scored %d dimensions, want 1", got)
	}

	dims, err := res.Report.DecodeDimensions()
	if err != nil {
		t.Fatalf("DecodeDimensions: %v", err)
	}
	if dims[validation.DimensionMarket].CompositeScore != 95 {
		t.Fatalf("market score = %d, want 95", dims[validation.DimensionMarket].CompositeScore)
	}
	for _, id := range validation.AllDimensions() {
		if id == validation.DimensionMarket {
			continue
		}
		if dims[id].CompositeScore != 80 {
			t.Fatalf("dimension %s = %d, want carried-over 80", id, dims[id].CompositeScore)
		}
	}

	// Market carries weight 0.15, so 80 + 0.15*15 = 82.25 rounds to 82.
	if res.Report.OverallScore != 82 {
		t.Fatalf("overall score = %d, want 82", res.Report.OverallScore)
	}

	current, err := f.reports.GetCurrent(dbctx.Context{}, f.session.ID)
	if err != nil {
		t.Fatalf("GetCurrent: %v", err)
	}
	if current.ID != res.Report.ID {
		t.Fatalf("committed report is not current")
	}
	prior, err := f.reports.GetByID(dbctx.Context{}, baseline.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if prior.SupersededBy == nil || *prior.SupersededBy != res.Report.ID {
		t.Fatalf("baseline does not point at the regenerated report")
	}
}

func TestRegenerateSingleClearsPriorFailureEntry(t *testing.T) {
	sc := newStubScorer(80)
	sc.fail[validation.DimensionMarket] = &scorer.StageError{
		DimensionID: validation.DimensionMarket,
		Reason:      scorer.ReasonOracleError,
		Err:         errors.New("down"),
	}
	f := newFixture(t, sc)
	baseline := f.seedBaseline(t)
	if f.session.Status != validation.SessionStatusPartial {
		t.Fatalf("seed status = %q, want partial", f.session.Status)
	}
	if dims, _ := baseline.DecodeDimensions(); len(dims) != 8 {
		t.Fatalf("baseline has %d dimensions, want 8", len(dims))
	}

	sc.mu.Lock()
	delete(sc.fail, validation.DimensionMarket)
	sc.mu.Unlock()

	res, err := f.ctrl.Regenerate(context.Background(), Request{
		SessionID: f.session.ID,
		UserID:    f.session.UserID,
		Dimension: dimPtr(validation.DimensionMarket),
	})
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}

	dims, err := res.Report.DecodeDimensions()
	if err != nil {
		t.Fatalf("DecodeDimensions: %v", err)
	}
	if len(dims) != 9 {
		t.Fatalf("regenerated report has %d dimensions, want 9", len(dims))
	}
	failures, err := res.Report.DecodeFailedDimensions()
	if err != nil {
		t.Fatalf("DecodeFailedDimensions: %v", err)
	}
	if len(failures) != 0 {
		t.Fatalf("failure log still has %d entries after the dimension recovered", len(failures))
	}
}

func TestRegenerateRejectsNonOwner(t *testing.T) {
	f := newFixture(t, newStubScorer(80))
	f.seedBaseline(t)

	_, err := f.ctrl.Regenerate(context.Background(), Request{
		SessionID: f.session.ID,
		UserID:    uuid.New(),
		Dimension: dimPtr(validation.DimensionMarket),
	})
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("err = %v, want ErrNotOwner", err)
	}
}

func TestRegenerateSingleWithoutPriorReport(t *testing.T) {
	f := newFixture(t, newStubScorer(80))

	_, err := f.ctrl.Regenerate(context.Background(), Request{
		SessionID: f.session.ID,
		UserID:    f.session.UserID,
		Dimension: dimPtr(validation.DimensionMarket),
	})
	if !errors.Is(err, ErrNoPriorReport) {
		t.Fatalf("err = %v, want ErrNoPriorReport", err)
	}
}

func TestRegenerateSingleRejectsLegacyPrior(t *testing.T) {
	f := newFixture(t, newStubScorer(80))
	if _, err := f.reports.Create(dbctx.Context{}, &validation.ValidationReport{
		SessionID:     f.session.ID,
		ReportVersion: validation.ReportVersionLegacy,
		OverallScore:  64,
		Signal:        validation.SignalCaution,
	}); err != nil {
		t.Fatalf("Create legacy report: %v", err)
	}

	_, err := f.ctrl.Regenerate(context.Background(), Request{
		SessionID: f.session.ID,
		UserID:    f.session.UserID,
		Dimension: dimPtr(validation.DimensionMarket),
	})
	if !errors.Is(err, ErrNoPriorReport) {
		t.Fatalf("err = %v, want ErrNoPriorReport", err)
	}
}

func TestRegenerateSingleStageFailureKeepsPrior(t *testing.T) {
	sc := newStubScorer(80)
	f := newFixture(t, sc)
	baseline := f.seedBaseline(t)

	sc.mu.Lock()
	sc.fail[validation.DimensionMarket] = &scorer.StageError{
		DimensionID: validation.DimensionMarket,
		Reason:      scorer.ReasonInvalidResult,
		Err:         errors.New("score out of range"),
	}
	sc.mu.Unlock()

	res, err := f.ctrl.Regenerate(context.Background(), Request{
		SessionID: f.session.ID,
		UserID:    f.session.UserID,
		Dimension: dimPtr(validation.DimensionMarket),
	})
	if !errors.Is(err, ErrStageFailed) {
		t.Fatalf("err = %v, want ErrStageFailed", err)
	}
	if res.State != StateFailed {
		t.Fatalf("state = %q, want failed", res.State)
	}

	current, err := f.reports.GetCurrent(dbctx.Context{}, f.session.ID)
	if err != nil {
		t.Fatalf("GetCurrent: %v", err)
	}
	if current.ID != baseline.ID {
		t.Fatalf("prior report lost its current status")
	}
	if f.reports.count() != 1 {
		t.Fatalf("failed regeneration left %d rows, want 1", f.reports.count())
	}
}

func TestRegenerateFullRun(t *testing.T) {
	sc := newStubScorer(80)
	f := newFixture(t, sc)
	baseline := f.seedBaseline(t)

	for _, id := range validation.AllDimensions() {
		sc.score[id] = 60
	}
	res, err := f.ctrl.Regenerate(context.Background(), Request{
		SessionID: f.session.ID,
		UserID:    f.session.UserID,
	})
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if res.State != StateCommitted {
		t.Fatalf("state = %q, want committed", res.State)
	}
	if res.Report.OverallScore != 60 {
		t.Fatalf("overall score = %d, want 60", res.Report.OverallScore)
	}
	if res.Report.ID == baseline.ID {
		t.Fatalf("full regeneration reused the baseline row")
	}
}

func TestRegenerateSingleConflictRollsBack(t *testing.T) {
	sc := newStubScorer(80)
	f := newFixture(t, sc)
	baseline := f.seedBaseline(t)

	f.reports.loseNextAdvance = true
	_, err := f.ctrl.Regenerate(context.Background(), Request{
		SessionID: f.session.ID,
		UserID:    f.session.UserID,
		Dimension: dimPtr(validation.DimensionMarket),
	})
	if !errors.Is(err, validator.ErrRegenerationConflict) {
		t.Fatalf("err = %v, want ErrRegenerationConflict", err)
	}

	current, err := f.reports.GetCurrent(dbctx.Context{}, f.session.ID)
	if err != nil {
		t.Fatalf("GetCurrent: %v", err)
	}
	if current.ID != baseline.ID {
		t.Fatalf("conflicting commit displaced the prior report")
	}
	if f.reports.count() != 1 {
		t.Fatalf("losing commit left %d rows, want 1", f.reports.count())
	}
}
