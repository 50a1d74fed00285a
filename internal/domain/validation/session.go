package validation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Session statuses. "empty" is the distinct terminal state for a run in which
// every scored dimension failed: no report row exists and the absence is not
// the same thing as a zero score.
const (
	SessionStatusPending  = "pending"
	SessionStatusRunning  = "running"
	SessionStatusComplete = "complete"
	SessionStatusPartial  = "partial"
	SessionStatusFailed   = "failed"
	SessionStatusEmpty    = "empty"
)

// ValidatorSession is the input profile a pipeline run scores. The profile is
// opaque to the pipeline: it is forwarded to the scoring oracle without
// business validation beyond presence.
type ValidatorSession struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Profile   datatypes.JSON `gorm:"column:profile;type:jsonb;not null" json:"profile"`
	Status    string         `gorm:"column:status;not null;index" json:"status"`
	Error     string         `gorm:"column:error" json:"error,omitempty"`
	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (ValidatorSession) TableName() string { return "validator_session" }
