package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	repovalidation "github.com/launchsignal/validator-backend/internal/data/repos/validation"
	"github.com/launchsignal/validator-backend/internal/domain/validation"
	"github.com/launchsignal/validator-backend/internal/platform/dbctx"
	"github.com/launchsignal/validator-backend/internal/platform/logger"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionForbidden = errors.New("session belongs to another user")
	ErrEmptyProfile     = errors.New("profile must not be empty")
)

// SessionService owns the request-facing lifecycle of validator sessions:
// creation from a submitted profile and ownership-checked reads.
type SessionService interface {
	Create(ctx context.Context, userID uuid.UUID, profile validation.Profile) (*validation.ValidatorSession, error)
	GetForUser(ctx context.Context, userID uuid.UUID, sessionID uuid.UUID) (*validation.ValidatorSession, error)
}

type sessionService struct {
	log      *logger.Logger
	sessions repovalidation.SessionRepo
}

func NewSessionService(log *logger.Logger, sessions repovalidation.SessionRepo) SessionService {
	return &sessionService{
		log:      log.With("service", "SessionService"),
		sessions: sessions,
	}
}

func (s *sessionService) Create(ctx context.Context, userID uuid.UUID, profile validation.Profile) (*validation.ValidatorSession, error) {
	if len(profile) == 0 {
		return nil, ErrEmptyProfile
	}
	raw, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}

	session, err := s.sessions.Create(dbctx.Context{Ctx: ctx}, &validation.ValidatorSession{
		UserID:  userID,
		Profile: datatypes.JSON(raw),
		Status:  validation.SessionStatusPending,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("session created", "session_id", session.ID, "user_id", userID)
	return session, nil
}

func (s *sessionService) GetForUser(ctx context.Context, userID uuid.UUID, sessionID uuid.UUID) (*validation.ValidatorSession, error) {
	session, err := s.sessions.GetByID(dbctx.Context{Ctx: ctx}, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.UserID != userID {
		return nil, ErrSessionForbidden
	}
	return session, nil
}
