package realtime

// SSEEvent names the event types pushed to clients. Pipeline events mirror
// the stages a validation run moves through so the UI can animate progress
// dimension by dimension.
type SSEEvent string

const (
	SSEEventJobCreated  SSEEvent = "JobCreated"
	SSEEventJobProgress SSEEvent = "JobProgress"
	SSEEventJobFailed   SSEEvent = "JobFailed"
	SSEEventJobDone     SSEEvent = "JobDone"

	SSEEventDimensionStarted SSEEvent = "ValidationDimensionStarted"
	SSEEventDimensionSettled SSEEvent = "ValidationDimensionSettled"
	SSEEventPipelineComplete SSEEvent = "ValidationPipelineComplete"
	SSEEventPipelineFailed   SSEEvent = "ValidationPipelineFailed"
)

// SSEMessage is one fan-out unit. Channel is the owning user's id; a client
// only ever sees messages for channels it subscribed to.
type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}
