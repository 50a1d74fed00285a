package validation

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/launchsignal/validator-backend/internal/domain/validation"
	"github.com/launchsignal/validator-backend/internal/platform/dbctx"
	"github.com/launchsignal/validator-backend/internal/platform/logger"
)

type SessionRepo interface {
	Create(dbc dbctx.Context, session *types.ValidatorSession) (*types.ValidatorSession, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ValidatorSession, error)
	UpdateStatus(dbc dbctx.Context, id uuid.UUID, status string, errMsg string) error
}

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return &sessionRepo{
		db:  db,
		log: baseLog.With("repo", "SessionRepo"),
	}
}

func (r *sessionRepo) Create(dbc dbctx.Context, session *types.ValidatorSession) (*types.ValidatorSession, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if session == nil {
		return nil, errors.New("nil session")
	}
	if session.Status == "" {
		session.Status = types.SessionStatusPending
	}
	if err := transaction.WithContext(dbc.Ctx).Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

func (r *sessionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ValidatorSession, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var session types.ValidatorSession
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&session).Error
	if err != nil {
		return nil, err
	}
	if session.ID == uuid.Nil {
		return nil, nil
	}
	return &session, nil
}

func (r *sessionRepo) UpdateStatus(dbc dbctx.Context, id uuid.UUID, status string, errMsg string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.ValidatorSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"error":      errMsg,
			"updated_at": time.Now(),
		}).Error
}
