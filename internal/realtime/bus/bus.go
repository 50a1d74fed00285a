package bus

import (
	"context"

	"github.com/launchsignal/validator-backend/internal/realtime"
)

// Bus carries SSE messages between processes. The worker publishes pipeline
// events here; the API process forwards them into its local hub.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}
