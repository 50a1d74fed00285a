// Package aggregate folds per-dimension scoring results into a single
// session-level score and signal. The fold is pure: it never touches
// storage and identical inputs always produce identical outcomes.
package aggregate

import (
	"errors"
	"math"

	"github.com/launchsignal/validator-backend/internal/domain/validation"
)

// ErrAggregationEmpty is returned when no scored dimension is present at all.
// A modifier dimension on its own cannot anchor a score.
var ErrAggregationEmpty = errors.New("aggregate: no scored dimensions present")

// Outcome is the result of one aggregation pass.
type Outcome struct {
	// OverallScore is the final 0..100 score after modifier rules.
	OverallScore int
	// BaseScore is the renormalized weighted mean before modifiers.
	BaseScore int
	// Signal is the verdict derived from OverallScore.
	Signal validation.Signal
	// RiskPenaltyApplied is true when the risk modifier rule fired.
	RiskPenaltyApplied bool
	// ScoredCount is how many scored dimensions participated in the mean.
	ScoredCount int
}

// Aggregate computes the weighted overall score for whichever dimensions are
// present in results. Weights of absent scored dimensions are redistributed
// across the present ones, so a partial result set still yields a score on
// the same 0..100 scale. Modifier dimensions never contribute weight; they
// only subtract via their penalty rule.
func Aggregate(results validation.ResultMap, cfg Config) (Outcome, error) {
	var weightSum, acc float64
	scored := 0
	for _, id := range validation.ScoredDimensions() {
		res, ok := results[id]
		if !ok {
			continue
		}
		w := cfg.WeightFor(id)
		weightSum += w
		acc += w * float64(res.CompositeScore)
		scored++
	}
	if scored == 0 || weightSum <= 0 {
		return Outcome{}, ErrAggregationEmpty
	}

	base := int(math.Round(acc / weightSum))
	overall := base
	penalized := false
	if risk, ok := results[validation.DimensionRisk]; ok && risk.CompositeScore < cfg.RiskScoreThreshold {
		overall -= cfg.RiskPenalty
		penalized = true
		if overall < 0 {
			overall = 0
		}
	}

	return Outcome{
		OverallScore:       overall,
		BaseScore:          base,
		Signal:             SignalFor(overall, cfg),
		RiskPenaltyApplied: penalized,
		ScoredCount:        scored,
	}, nil
}

// SignalFor maps a 0..100 score onto the go / caution / no_go ladder.
func SignalFor(score int, cfg Config) validation.Signal {
	switch {
	case score >= cfg.GoThreshold:
		return validation.SignalGo
	case score < cfg.NoGoThreshold:
		return validation.SignalNoGo
	default:
		return validation.SignalCaution
	}
}
