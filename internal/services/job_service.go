package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	repojobs "github.com/launchsignal/validator-backend/internal/data/repos/jobs"
	jobtypes "github.com/launchsignal/validator-backend/internal/domain/jobs"
	"github.com/launchsignal/validator-backend/internal/domain/validation"
	"github.com/launchsignal/validator-backend/internal/platform/dbctx"
	"github.com/launchsignal/validator-backend/internal/platform/logger"
)

var (
	ErrJobNotFound  = errors.New("job not found")
	ErrJobDuplicate = errors.New("a runnable job for this session already exists")
)

// JobService enqueues background runs and serves ownership-checked job
// lookups. One runnable job per session and type at a time; duplicates are
// rejected rather than queued behind each other.
type JobService interface {
	EnqueueValidate(ctx context.Context, userID uuid.UUID, sessionID uuid.UUID) (*jobtypes.JobRun, error)
	EnqueueRegenerate(ctx context.Context, userID uuid.UUID, sessionID uuid.UUID, dimension *validation.DimensionID) (*jobtypes.JobRun, error)
	GetForUser(ctx context.Context, userID uuid.UUID, jobID uuid.UUID) (*jobtypes.JobRun, error)
}

type jobService struct {
	log    *logger.Logger
	jobs   repojobs.JobRunRepo
	notify JobNotifier
}

func NewJobService(log *logger.Logger, jobs repojobs.JobRunRepo, notify JobNotifier) JobService {
	return &jobService{
		log:    log.With("service", "JobService"),
		jobs:   jobs,
		notify: notify,
	}
}

func (s *jobService) EnqueueValidate(ctx context.Context, userID uuid.UUID, sessionID uuid.UUID) (*jobtypes.JobRun, error) {
	payload := map[string]any{"session_id": sessionID}
	return s.enqueue(ctx, userID, sessionID, jobtypes.JobTypeValidate, payload)
}

func (s *jobService) EnqueueRegenerate(ctx context.Context, userID uuid.UUID, sessionID uuid.UUID, dimension *validation.DimensionID) (*jobtypes.JobRun, error) {
	payload := map[string]any{
		"session_id": sessionID,
		"user_id":    userID,
	}
	if dimension != nil {
		payload["dimension"] = string(*dimension)
	}
	return s.enqueue(ctx, userID, sessionID, jobtypes.JobTypeRegenerate, payload)
}

func (s *jobService) enqueue(ctx context.Context, userID uuid.UUID, sessionID uuid.UUID, jobType string, payload map[string]any) (*jobtypes.JobRun, error) {
	dbc := dbctx.Context{Ctx: ctx}

	busy, err := s.jobs.HasRunnableForSession(dbc, sessionID, jobType)
	if err != nil {
		return nil, err
	}
	if busy {
		return nil, ErrJobDuplicate
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	job, err := s.jobs.Create(dbc, &jobtypes.JobRun{
		OwnerUserID: userID,
		JobType:     jobType,
		SessionID:   sessionID,
		Status:      "queued",
		Stage:       "queued",
		Payload:     datatypes.JSON(raw),
	})
	if err != nil {
		return nil, err
	}

	if s.notify != nil {
		s.notify.JobCreated(userID, job)
	}
	s.log.Info("job enqueued", "job_id", job.ID, "job_type", jobType, "session_id", sessionID)
	return job, nil
}

func (s *jobService) GetForUser(ctx context.Context, userID uuid.UUID, jobID uuid.UUID) (*jobtypes.JobRun, error) {
	job, err := s.jobs.GetByID(dbctx.Context{Ctx: ctx}, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil || job.OwnerUserID != userID {
		return nil, ErrJobNotFound
	}
	return job, nil
}
