package repos

import (
	"gorm.io/gorm"

	"github.com/launchsignal/validator-backend/internal/data/repos/jobs"
	"github.com/launchsignal/validator-backend/internal/data/repos/validation"
	"github.com/launchsignal/validator-backend/internal/platform/logger"
)

type SessionRepo = validation.SessionRepo
type ReportRepo = validation.ReportRepo
type JobRunRepo = jobs.JobRunRepo

// All bundles the repository set the app wires once at startup.
type All struct {
	Session SessionRepo
	Report  ReportRepo
	JobRun  JobRunRepo
}

func New(db *gorm.DB, log *logger.Logger) All {
	return All{
		Session: validation.NewSessionRepo(db, log),
		Report:  validation.NewReportRepo(db, log),
		JobRun:  jobs.NewJobRunRepo(db, log),
	}
}
