package views

import (
	"sort"

	"github.com/launchsignal/validator-backend/internal/domain/validation"
	"github.com/launchsignal/validator-backend/internal/modules/validator/aggregate"
)

// BenchmarkState says how much of the comparison could be computed.
type BenchmarkState string

const (
	// BenchmarkOK means the full comparison is available.
	BenchmarkOK BenchmarkState = "ok"
	// BenchmarkInsufficientData means no dimension result was present, so no
	// comparison is fabricated.
	BenchmarkInsufficientData BenchmarkState = "insufficient_data"
	// BenchmarkLegacyFallback means the report predates per-dimension data;
	// only the overall deltas are available.
	BenchmarkLegacyFallback BenchmarkState = "v2_fallback"
)

// BenchmarkDelta compares one score against the reference constants.
type BenchmarkDelta struct {
	Score             int `json:"score"`
	VersusTopQuartile int `json:"versus_top_quartile"`
	VersusMedian      int `json:"versus_median"`
}

// WeakDimension is one of the lowest-scoring dimensions with its deltas.
type WeakDimension struct {
	DimensionID validation.DimensionID `json:"dimension_id"`
	Label       string                 `json:"label"`
	BenchmarkDelta
}

// BenchmarkView compares the overall score and the two weakest dimensions
// against the fixed top-quartile and median reference values.
type BenchmarkView struct {
	State          BenchmarkState  `json:"state"`
	TopQuartile    int             `json:"top_quartile"`
	Median         int             `json:"median"`
	Overall        *BenchmarkDelta `json:"overall,omitempty"`
	WeakDimensions []WeakDimension `json:"weak_dimensions,omitempty"`
}

func delta(score int, cfg aggregate.Config) BenchmarkDelta {
	return BenchmarkDelta{
		Score:             score,
		VersusTopQuartile: score - cfg.BenchmarkTopQuartile,
		VersusMedian:      score - cfg.BenchmarkMedian,
	}
}

// Benchmark builds the comparison view for a dimension-based report.
func Benchmark(overallScore int, results validation.ResultMap, cfg aggregate.Config) BenchmarkView {
	view := BenchmarkView{
		State:       BenchmarkOK,
		TopQuartile: cfg.BenchmarkTopQuartile,
		Median:      cfg.BenchmarkMedian,
	}
	if len(results) == 0 {
		view.State = BenchmarkInsufficientData
		return view
	}
	overall := delta(overallScore, cfg)
	view.Overall = &overall

	weak := make([]WeakDimension, 0, len(results))
	for _, id := range validation.AllDimensions() {
		res, ok := results[id]
		if !ok {
			continue
		}
		weak = append(weak, WeakDimension{
			DimensionID:    id,
			Label:          id.Label(),
			BenchmarkDelta: delta(res.CompositeScore, cfg),
		})
	}
	sort.SliceStable(weak, func(i, j int) bool {
		return weak[i].Score < weak[j].Score
	})
	if len(weak) > 2 {
		weak = weak[:2]
	}
	view.WeakDimensions = weak
	return view
}

// BenchmarkLegacy builds the reduced comparison for a flat-score report.
func BenchmarkLegacy(flatScore int, cfg aggregate.Config) BenchmarkView {
	overall := delta(flatScore, cfg)
	return BenchmarkView{
		State:       BenchmarkLegacyFallback,
		TopQuartile: cfg.BenchmarkTopQuartile,
		Median:      cfg.BenchmarkMedian,
		Overall:     &overall,
	}
}
