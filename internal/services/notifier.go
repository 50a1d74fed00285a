package services

import (
	"context"

	"github.com/google/uuid"

	jobtypes "github.com/launchsignal/validator-backend/internal/domain/jobs"
	"github.com/launchsignal/validator-backend/internal/domain/validation"
	"github.com/launchsignal/validator-backend/internal/realtime"
)

// =========================
// Job notifier
// =========================

type JobNotifier interface {
	JobCreated(userID uuid.UUID, job *jobtypes.JobRun)
	JobProgress(userID uuid.UUID, job *jobtypes.JobRun, stage string, progress int, message string)
	JobFailed(userID uuid.UUID, job *jobtypes.JobRun, stage string, errorMessage string)
	JobDone(userID uuid.UUID, job *jobtypes.JobRun)
}

type jobNotifier struct {
	emit SSEEmitter
}

func NewJobNotifier(emit SSEEmitter) JobNotifier {
	return &jobNotifier{emit: emit}
}

func (n *jobNotifier) JobCreated(userID uuid.UUID, job *jobtypes.JobRun) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: userID.String(),
		Event:   realtime.SSEEventJobCreated,
		Data:    map[string]any{"job": job},
	})
}

func (n *jobNotifier) JobProgress(userID uuid.UUID, job *jobtypes.JobRun, stage string, progress int, message string) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: userID.String(),
		Event:   realtime.SSEEventJobProgress,
		Data: map[string]any{
			"job_id":   safeJobID(job),
			"job_type": safeJobType(job),
			"stage":    stage,
			"progress": progress,
			"message":  message,
			"job":      job,
		},
	})
}

func (n *jobNotifier) JobFailed(userID uuid.UUID, job *jobtypes.JobRun, stage string, errorMessage string) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: userID.String(),
		Event:   realtime.SSEEventJobFailed,
		Data: map[string]any{
			"job_id":   safeJobID(job),
			"job_type": safeJobType(job),
			"stage":    stage,
			"error":    errorMessage,
			"job":      job,
		},
	})
}

func (n *jobNotifier) JobDone(userID uuid.UUID, job *jobtypes.JobRun) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: userID.String(),
		Event:   realtime.SSEEventJobDone,
		Data: map[string]any{
			"job_id":   safeJobID(job),
			"job_type": safeJobType(job),
			"job":      job,
		},
	})
}

func safeJobID(job *jobtypes.JobRun) uuid.UUID {
	if job == nil {
		return uuid.Nil
	}
	return job.ID
}

func safeJobType(job *jobtypes.JobRun) string {
	if job == nil {
		return ""
	}
	return job.JobType
}

// =========================
// Pipeline notifier
// =========================

// PipelineNotifier streams per-dimension progress of a validation run.
type PipelineNotifier interface {
	DimensionStarted(userID uuid.UUID, sessionID uuid.UUID, dimension validation.DimensionID)
	DimensionSettled(userID uuid.UUID, sessionID uuid.UUID, dimension validation.DimensionID, ok bool, reason string)
	PipelineComplete(userID uuid.UUID, sessionID uuid.UUID, reportID uuid.UUID, status string)
	PipelineFailed(userID uuid.UUID, sessionID uuid.UUID, reason string)
}

type pipelineNotifier struct {
	emit SSEEmitter
}

func NewPipelineNotifier(emit SSEEmitter) PipelineNotifier {
	return &pipelineNotifier{emit: emit}
}

func (n *pipelineNotifier) DimensionStarted(userID uuid.UUID, sessionID uuid.UUID, dimension validation.DimensionID) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: userID.String(),
		Event:   realtime.SSEEventDimensionStarted,
		Data: map[string]any{
			"session_id": sessionID,
			"dimension":  dimension,
		},
	})
}

func (n *pipelineNotifier) DimensionSettled(userID uuid.UUID, sessionID uuid.UUID, dimension validation.DimensionID, ok bool, reason string) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: userID.String(),
		Event:   realtime.SSEEventDimensionSettled,
		Data: map[string]any{
			"session_id": sessionID,
			"dimension":  dimension,
			"ok":         ok,
			"reason":     reason,
		},
	})
}

func (n *pipelineNotifier) PipelineComplete(userID uuid.UUID, sessionID uuid.UUID, reportID uuid.UUID, status string) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: userID.String(),
		Event:   realtime.SSEEventPipelineComplete,
		Data: map[string]any{
			"session_id": sessionID,
			"report_id":  reportID,
			"status":     status,
		},
	})
}

func (n *pipelineNotifier) PipelineFailed(userID uuid.UUID, sessionID uuid.UUID, reason string) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: userID.String(),
		Event:   realtime.SSEEventPipelineFailed,
		Data: map[string]any{
			"session_id": sessionID,
			"reason":     reason,
		},
	})
}
