package validation

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/launchsignal/validator-backend/internal/domain/validation"
	"github.com/launchsignal/validator-backend/internal/platform/dbctx"
	"github.com/launchsignal/validator-backend/internal/platform/logger"
)

type ReportRepo interface {
	Create(dbc dbctx.Context, report *types.ValidationReport) (*types.ValidationReport, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ValidationReport, error)
	// GetCurrent returns the chain tail for a session: the newest report with
	// no superseded_by backlink. Nil when the session has no report yet.
	GetCurrent(dbc dbctx.Context, sessionID uuid.UUID) (*types.ValidationReport, error)
	// ListBySession returns the full version chain, newest first.
	ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.ValidationReport, error)
	// Supersede is the commit compare-and-set: it points priorID at newID only
	// if priorID is still unsuperseded. False means another regeneration won
	// the race and the caller must treat the commit as conflicted.
	Supersede(dbc dbctx.Context, priorID uuid.UUID, newID uuid.UUID) (bool, error)
	// Advance appends a report to a session's chain in one transaction: the
	// insert and the supersede of priorID commit together or not at all, so
	// readers never observe the new row as a second unsuperseded tail. A Nil
	// priorID starts the chain. False with a nil error means priorID was
	// already superseded and the insert was rolled back.
	Advance(dbc dbctx.Context, report *types.ValidationReport, priorID uuid.UUID) (*types.ValidationReport, bool, error)
}

type reportRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReportRepo(db *gorm.DB, baseLog *logger.Logger) ReportRepo {
	return &reportRepo{
		db:  db,
		log: baseLog.With("repo", "ReportRepo"),
	}
}

func (r *reportRepo) Create(dbc dbctx.Context, report *types.ValidationReport) (*types.ValidationReport, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if report == nil {
		return nil, errors.New("nil report")
	}
	if err := transaction.WithContext(dbc.Ctx).Create(report).Error; err != nil {
		return nil, err
	}
	return report, nil
}

func (r *reportRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ValidationReport, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var report types.ValidationReport
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&report).Error
	if err != nil {
		return nil, err
	}
	if report.ID == uuid.Nil {
		return nil, nil
	}
	return &report, nil
}

func (r *reportRepo) GetCurrent(dbc dbctx.Context, sessionID uuid.UUID) (*types.ValidationReport, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if sessionID == uuid.Nil {
		return nil, nil
	}
	var report types.ValidationReport
	err := transaction.WithContext(dbc.Ctx).
		Where("session_id = ? AND superseded_by IS NULL", sessionID).
		Order("created_at DESC").
		Limit(1).
		Find(&report).Error
	if err != nil {
		return nil, err
	}
	if report.ID == uuid.Nil {
		return nil, nil
	}
	return &report, nil
}

func (r *reportRepo) ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.ValidationReport, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ValidationReport
	if sessionID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *reportRepo) Supersede(dbc dbctx.Context, priorID uuid.UUID, newID uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if priorID == uuid.Nil || newID == uuid.Nil {
		return false, errors.New("supersede requires both report ids")
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.ValidationReport{}).
		Where("id = ? AND superseded_by IS NULL", priorID).
		Update("superseded_by", newID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// errChainTailMoved aborts the Advance transaction so the insert rolls back
// when the compare-and-set misses. Never returned to callers.
var errChainTailMoved = errors.New("chain tail moved")

func (r *reportRepo) Advance(dbc dbctx.Context, report *types.ValidationReport, priorID uuid.UUID) (*types.ValidationReport, bool, error) {
	handle := dbc.Tx
	if handle == nil {
		handle = r.db
	}
	if report == nil {
		return nil, false, errors.New("nil report")
	}
	err := handle.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		if _, err := r.Create(txc, report); err != nil {
			return err
		}
		if priorID == uuid.Nil {
			return nil
		}
		ok, err := r.Supersede(txc, priorID, report.ID)
		if err != nil {
			return err
		}
		if !ok {
			return errChainTailMoved
		}
		return nil
	})
	if errors.Is(err, errChainTailMoved) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return report, true, nil
}
