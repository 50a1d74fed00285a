package validation

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/launchsignal/validator-backend/internal/data/repos/testutil"
	types "github.com/launchsignal/validator-backend/internal/domain/validation"
	"github.com/launchsignal/validator-backend/internal/platform/dbctx"
)

func seedSession(t *testing.T, db *gorm.DB) *types.ValidatorSession {
	t.Helper()
	repo := NewSessionRepo(db, testutil.Logger(t))
	session, err := repo.Create(dbctx.Context{Ctx: context.Background()}, &types.ValidatorSession{
		UserID:  uuid.New(),
		Profile: datatypes.JSON([]byte(`{"idea":"test"}`)),
		Status:  types.SessionStatusPending,
	})
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}
	t.Cleanup(func() {
		db.Where("session_id = ?", session.ID).Delete(&types.ValidationReport{})
		db.Where("id = ?", session.ID).Delete(&types.ValidatorSession{})
	})
	return session
}

func newReport(sessionID uuid.UUID, score int) *types.ValidationReport {
	return &types.ValidationReport{
		SessionID:     sessionID,
		ReportVersion: types.CurrentReportVersion,
		OverallScore:  score,
		Signal:        types.SignalCaution,
	}
}

func TestReportChainCurrentIsTail(t *testing.T) {
	db := testutil.DB(t)
	repo := NewReportRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}
	session := seedSession(t, db)

	first, err := repo.Create(dbc, newReport(session.ID, 60))
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	current, err := repo.GetCurrent(dbc, session.ID)
	if err != nil {
		t.Fatalf("get current: %v", err)
	}
	if current == nil || current.ID != first.ID {
		t.Fatalf("current = %v, want first report", current)
	}

	second, err := repo.Create(dbc, newReport(session.ID, 72))
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	ok, err := repo.Supersede(dbc, first.ID, second.ID)
	if err != nil {
		t.Fatalf("supersede: %v", err)
	}
	if !ok {
		t.Fatal("supersede returned false for unsuperseded prior")
	}

	current, err = repo.GetCurrent(dbc, session.ID)
	if err != nil {
		t.Fatalf("get current: %v", err)
	}
	if current == nil || current.ID != second.ID {
		t.Fatalf("current = %v, want second report", current)
	}

	chain, err := repo.ListBySession(dbc, session.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(chain) != 2 {
		t.Fatalf("chain length = %d, want 2", len(chain))
	}
	if chain[0].ID != second.ID {
		t.Fatalf("chain head = %s, want newest report", chain[0].ID)
	}
	if chain[1].SupersededBy == nil || *chain[1].SupersededBy != second.ID {
		t.Fatalf("prior backlink = %v, want %s", chain[1].SupersededBy, second.ID)
	}
}

func TestSupersedeSecondCommitterLoses(t *testing.T) {
	db := testutil.DB(t)
	repo := NewReportRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}
	session := seedSession(t, db)

	prior, err := repo.Create(dbc, newReport(session.ID, 55))
	if err != nil {
		t.Fatalf("create prior: %v", err)
	}
	left, err := repo.Create(dbc, newReport(session.ID, 61))
	if err != nil {
		t.Fatalf("create left: %v", err)
	}
	right, err := repo.Create(dbc, newReport(session.ID, 66))
	if err != nil {
		t.Fatalf("create right: %v", err)
	}

	ok, err := repo.Supersede(dbc, prior.ID, left.ID)
	if err != nil || !ok {
		t.Fatalf("first supersede = (%v, %v), want success", ok, err)
	}
	ok, err = repo.Supersede(dbc, prior.ID, right.ID)
	if err != nil {
		t.Fatalf("second supersede: %v", err)
	}
	if ok {
		t.Fatal("second supersede of the same prior must report a conflict")
	}
}

func TestAdvanceCommitsInsertAndSupersedeTogether(t *testing.T) {
	db := testutil.DB(t)
	repo := NewReportRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}
	session := seedSession(t, db)

	root, ok, err := repo.Advance(dbc, newReport(session.ID, 58), uuid.Nil)
	if err != nil || !ok {
		t.Fatalf("root advance = (%v, %v), want success", ok, err)
	}
	next, ok, err := repo.Advance(dbc, newReport(session.ID, 71), root.ID)
	if err != nil || !ok {
		t.Fatalf("chained advance = (%v, %v), want success", ok, err)
	}

	current, err := repo.GetCurrent(dbc, session.ID)
	if err != nil {
		t.Fatalf("get current: %v", err)
	}
	if current == nil || current.ID != next.ID {
		t.Fatalf("current = %v, want the advanced report", current)
	}
	reloaded, err := repo.GetByID(dbc, root.ID)
	if err != nil {
		t.Fatalf("reload root: %v", err)
	}
	if reloaded.SupersededBy == nil || *reloaded.SupersededBy != next.ID {
		t.Fatalf("root backlink = %v, want %s", reloaded.SupersededBy, next.ID)
	}
}

func TestAdvanceConflictRollsBackInsert(t *testing.T) {
	db := testutil.DB(t)
	repo := NewReportRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}
	session := seedSession(t, db)

	prior, ok, err := repo.Advance(dbc, newReport(session.ID, 52), uuid.Nil)
	if err != nil || !ok {
		t.Fatalf("seed advance = (%v, %v), want success", ok, err)
	}
	if _, ok, err = repo.Advance(dbc, newReport(session.ID, 64), prior.ID); err != nil || !ok {
		t.Fatalf("winning advance = (%v, %v), want success", ok, err)
	}

	_, ok, err = repo.Advance(dbc, newReport(session.ID, 69), prior.ID)
	if err != nil {
		t.Fatalf("losing advance: %v", err)
	}
	if ok {
		t.Fatal("advance against a superseded prior must report a conflict")
	}

	chain, err := repo.ListBySession(dbc, session.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(chain) != 2 {
		t.Fatalf("chain length = %d after a lost advance, want 2", len(chain))
	}
}

func TestAdvanceCanceledContextLeavesChainIntact(t *testing.T) {
	db := testutil.DB(t)
	repo := NewReportRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}
	session := seedSession(t, db)

	prior, ok, err := repo.Advance(dbc, newReport(session.ID, 55), uuid.Nil)
	if err != nil || !ok {
		t.Fatalf("seed advance = (%v, %v), want success", ok, err)
	}

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := repo.Advance(dbctx.Context{Ctx: canceled}, newReport(session.ID, 80), prior.ID); err == nil {
		t.Fatal("advance on a canceled context must fail")
	}

	// The aborted advance must not leave an orphan row as a second
	// unsuperseded tail.
	current, err := repo.GetCurrent(dbc, session.ID)
	if err != nil {
		t.Fatalf("get current: %v", err)
	}
	if current == nil || current.ID != prior.ID {
		t.Fatalf("current = %v, want the pre-cancellation report", current)
	}
	chain, err := repo.ListBySession(dbc, session.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(chain) != 1 {
		t.Fatalf("chain length = %d after an aborted advance, want 1", len(chain))
	}
	if chain[0].SupersededBy != nil {
		t.Fatalf("prior superseded by %v after an aborted advance", chain[0].SupersededBy)
	}
}

func TestSupersedeConcurrentExactlyOneWins(t *testing.T) {
	db := testutil.DB(t)
	repo := NewReportRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}
	session := seedSession(t, db)

	prior, err := repo.Create(dbc, newReport(session.ID, 50))
	if err != nil {
		t.Fatalf("create prior: %v", err)
	}

	const racers = 8
	contenders := make([]uuid.UUID, racers)
	for i := range contenders {
		rep, err := repo.Create(dbc, newReport(session.ID, 60+i))
		if err != nil {
			t.Fatalf("create contender: %v", err)
		}
		contenders[i] = rep.ID
	}

	var wg sync.WaitGroup
	wins := make(chan uuid.UUID, racers)
	for _, id := range contenders {
		wg.Add(1)
		go func(newID uuid.UUID) {
			defer wg.Done()
			ok, err := repo.Supersede(dbc, prior.ID, newID)
			if err != nil {
				t.Errorf("supersede: %v", err)
				return
			}
			if ok {
				wins <- newID
			}
		}(id)
	}
	wg.Wait()
	close(wins)

	var winners []uuid.UUID
	for id := range wins {
		winners = append(winners, id)
	}
	if len(winners) != 1 {
		t.Fatalf("winner count = %d, want exactly 1", len(winners))
	}

	reloaded, err := repo.GetByID(dbc, prior.ID)
	if err != nil {
		t.Fatalf("reload prior: %v", err)
	}
	if reloaded.SupersededBy == nil || *reloaded.SupersededBy != winners[0] {
		t.Fatalf("prior backlink = %v, want %s", reloaded.SupersededBy, winners[0])
	}
}
