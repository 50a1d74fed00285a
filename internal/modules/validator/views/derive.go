package views

import (
	"github.com/launchsignal/validator-backend/internal/domain/validation"
	"github.com/launchsignal/validator-backend/internal/modules/validator/aggregate"
)

// Derived bundles all three views for one report. For legacy reports the
// maturity and gap views are nil and the benchmark view carries the fallback
// state; clients see the report's age explicitly instead of empty buckets.
type Derived struct {
	ReportID      string        `json:"report_id"`
	ReportVersion string        `json:"report_version"`
	Maturity      *MaturityView `json:"maturity,omitempty"`
	Gap           *GapView      `json:"gap,omitempty"`
	Benchmark     BenchmarkView `json:"benchmark"`
}

// Derive computes the full view bundle from a stored report row.
func Derive(report *validation.ValidationReport, cfg aggregate.Config) (Derived, error) {
	shape, err := report.Shape()
	if err != nil {
		return Derived{}, err
	}
	out := Derived{
		ReportID:      report.ID.String(),
		ReportVersion: report.ReportVersion,
	}
	switch s := shape.(type) {
	case validation.LegacyShape:
		out.Benchmark = BenchmarkLegacy(s.FlatScore, cfg)
	case validation.DimensionShape:
		maturity := Maturity(s.Dimensions, cfg)
		gap := Gap(s.Dimensions, cfg)
		out.Maturity = &maturity
		out.Gap = &gap
		out.Benchmark = Benchmark(s.OverallScore, s.Dimensions, cfg)
	}
	return out, nil
}
