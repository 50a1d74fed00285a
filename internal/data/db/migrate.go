package db

import (
	"gorm.io/gorm"

	jobtypes "github.com/launchsignal/validator-backend/internal/domain/jobs"
	"github.com/launchsignal/validator-backend/internal/domain/validation"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// Validation pipeline
		&validation.ValidatorSession{},
		&validation.ValidationReport{},

		// Background execution
		&jobtypes.JobRun{},
	)
}
