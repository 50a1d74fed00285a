package validation

import (
	"testing"

	"gorm.io/datatypes"
)

func TestShapeBranchesOnVersion(t *testing.T) {
	legacy := &ValidationReport{ReportVersion: ReportVersionLegacy, OverallScore: 64, Signal: SignalCaution}
	shape, err := legacy.Shape()
	if err != nil {
		t.Fatalf("Shape: %v", err)
	}
	ls, ok := shape.(LegacyShape)
	if !ok {
		t.Fatalf("legacy report decoded as %T", shape)
	}
	if ls.FlatScore != 64 || ls.Signal != SignalCaution {
		t.Fatalf("legacy shape = %+v", ls)
	}

	current := &ValidationReport{
		ReportVersion: ReportVersionDimensions,
		OverallScore:  80,
		Signal:        SignalGo,
		Dimensions:    datatypes.JSON([]byte(`{"market":{"dimension_id":"market","composite_score":80,"headline":"h"}}`)),
	}
	shape, err = current.Shape()
	if err != nil {
		t.Fatalf("Shape: %v", err)
	}
	ds, ok := shape.(DimensionShape)
	if !ok {
		t.Fatalf("dimension report decoded as %T", shape)
	}
	if ds.Dimensions[DimensionMarket].CompositeScore != 80 {
		t.Fatalf("dimension shape = %+v", ds)
	}
	if _, present := ds.Dimensions[DimensionRisk]; present {
		t.Fatalf("absent dimension appeared in decoded map")
	}

	if _, err := (&ValidationReport{ReportVersion: "v1"}).Shape(); err == nil {
		t.Fatalf("unknown version did not error")
	}
}

func TestDecodeDimensionsEmptyColumn(t *testing.T) {
	r := &ValidationReport{ReportVersion: ReportVersionDimensions}
	dims, err := r.DecodeDimensions()
	if err != nil {
		t.Fatalf("DecodeDimensions: %v", err)
	}
	if len(dims) != 0 {
		t.Fatalf("empty column decoded to %d entries", len(dims))
	}
}

func TestResultMapCloneIsIndependent(t *testing.T) {
	orig := ResultMap{
		DimensionMarket: {DimensionID: DimensionMarket, CompositeScore: 70},
	}
	cp := orig.Clone()
	cp[DimensionMarket] = DimensionResult{DimensionID: DimensionMarket, CompositeScore: 95}
	if orig[DimensionMarket].CompositeScore != 70 {
		t.Fatalf("clone write leaked into the original map")
	}
}

func TestDimensionResultValidate(t *testing.T) {
	valid := &DimensionResult{DimensionID: DimensionProblem, CompositeScore: 50, Headline: "h"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid result rejected: %v", err)
	}

	outOfRange := &DimensionResult{DimensionID: DimensionProblem, CompositeScore: 140, Headline: "h"}
	if err := outOfRange.Validate(); err == nil {
		t.Fatalf("out-of-range score accepted")
	}
	unknown := &DimensionResult{DimensionID: "vibes", CompositeScore: 50, Headline: "h"}
	if err := unknown.Validate(); err == nil {
		t.Fatalf("unknown dimension accepted")
	}
}
