package validation

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Signal is the three-valued overall verdict.
type Signal string

const (
	SignalGo      Signal = "go"
	SignalCaution Signal = "caution"
	SignalNoGo    Signal = "no_go"
)

// Report-shape versions. v2 reports carry a flat overall score only; v3
// reports carry the per-dimension map. Readers must branch on ReportVersion,
// never on the absence of individual dimension keys.
const (
	ReportVersionLegacy     = "v2"
	ReportVersionDimensions = "v3"
	CurrentReportVersion    = ReportVersionDimensions
)

// ValidationReport is one persisted pipeline output. Rows are immutable after
// insert except for SupersededBy, which is set exactly once when a newer
// report for the same session commits.
type ValidationReport struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"session_id"`
	ReportVersion    string         `gorm:"column:report_version;not null" json:"report_version"`
	OverallScore     int            `gorm:"column:overall_score;not null" json:"overall_score"`
	Signal           Signal         `gorm:"column:signal;not null" json:"signal"`
	OneLiner         string         `gorm:"column:one_liner" json:"one_liner,omitempty"`
	Dimensions       datatypes.JSON `gorm:"column:dimensions;type:jsonb" json:"dimensions,omitempty"`
	Strengths        datatypes.JSON `gorm:"column:strengths;type:jsonb" json:"strengths,omitempty"`
	Concerns         datatypes.JSON `gorm:"column:concerns;type:jsonb" json:"concerns,omitempty"`
	NextSteps        datatypes.JSON `gorm:"column:next_steps;type:jsonb" json:"next_steps,omitempty"`
	FailedDimensions datatypes.JSON `gorm:"column:failed_dimensions;type:jsonb" json:"failed_dimensions,omitempty"`
	GenerationMillis int64          `gorm:"column:generation_millis" json:"generation_millis,omitempty"`
	OracleModel      string         `gorm:"column:oracle_model" json:"oracle_model,omitempty"`
	SupersededBy     *uuid.UUID     `gorm:"type:uuid;column:superseded_by;index" json:"superseded_by,omitempty"`
	CreatedAt        time.Time      `gorm:"not null;default:now();index" json:"created_at"`
}

func (ValidationReport) TableName() string { return "validation_report" }

// ReportShape is the decoded, version-aware view of a report row. Exactly one
// of the two concrete shapes applies to any report; read-side consumers
// switch on the concrete type instead of null-checking fields.
type ReportShape interface {
	isReportShape()
}

// LegacyShape is a pre-dimension (v2) report: a flat score with no
// per-dimension breakdown. The dimension map being absent here is a property
// of the format, not a record of failed stages.
type LegacyShape struct {
	FlatScore int
	Signal    Signal
}

// DimensionShape is a current (v3) report: a possibly-partial dimension map.
// A missing key means that dimension's stage failed for this run.
type DimensionShape struct {
	OverallScore int
	Signal       Signal
	Dimensions   ResultMap
}

func (LegacyShape) isReportShape()    {}
func (DimensionShape) isReportShape() {}

// Shape decodes the row into its version-specific form.
func (r *ValidationReport) Shape() (ReportShape, error) {
	switch r.ReportVersion {
	case ReportVersionLegacy:
		return LegacyShape{FlatScore: r.OverallScore, Signal: r.Signal}, nil
	case ReportVersionDimensions:
		dims, err := r.DecodeDimensions()
		if err != nil {
			return nil, err
		}
		return DimensionShape{OverallScore: r.OverallScore, Signal: r.Signal, Dimensions: dims}, nil
	default:
		return nil, fmt.Errorf("unknown report version %q", r.ReportVersion)
	}
}

// DecodeDimensions unmarshals the dimension map column. Returns an empty map
// for a row with no column value.
func (r *ValidationReport) DecodeDimensions() (ResultMap, error) {
	if len(r.Dimensions) == 0 {
		return ResultMap{}, nil
	}
	var out ResultMap
	if err := json.Unmarshal(r.Dimensions, &out); err != nil {
		return nil, fmt.Errorf("decode report dimensions: %w", err)
	}
	return out, nil
}

// DecodeFailedDimensions unmarshals the per-run stage-failure log.
func (r *ValidationReport) DecodeFailedDimensions() ([]StageFailure, error) {
	if len(r.FailedDimensions) == 0 {
		return nil, nil
	}
	var out []StageFailure
	if err := json.Unmarshal(r.FailedDimensions, &out); err != nil {
		return nil, fmt.Errorf("decode failed dimensions: %w", err)
	}
	return out, nil
}

// StageFailure records why one dimension produced no result in a run.
type StageFailure struct {
	DimensionID DimensionID `json:"dimension_id"`
	Reason      string      `json:"reason"`
}
