package validation

import "fmt"

// SubScore is one descriptive component of a dimension's composite score.
// Sub-score weights are informational: they are produced by the scoring stage
// and are never re-aggregated, so they do not have to sum to 1.
type SubScore struct {
	Label       string  `json:"label"`
	Score       int     `json:"score"`
	Weight      float64 `json:"weight"`
	Description string  `json:"description,omitempty"`
}

// DimensionResult is the complete output of one scoring stage. A stage that
// failed produces no DimensionResult at all; there is no partial form.
type DimensionResult struct {
	DimensionID      DimensionID `json:"dimension_id"`
	CompositeScore   int         `json:"composite_score"`
	Headline         string      `json:"headline"`
	SubScores        []SubScore  `json:"sub_scores,omitempty"`
	ExecutiveSummary string      `json:"executive_summary,omitempty"`
	PriorityActions  []string    `json:"priority_actions,omitempty"`
	RiskSignals      []string    `json:"risk_signals,omitempty"`
}

// Validate checks the shape invariants a DimensionResult must satisfy before
// it may enter a report. A result that fails here is treated exactly like a
// stage failure by callers.
func (r *DimensionResult) Validate() error {
	if r == nil {
		return fmt.Errorf("nil dimension result")
	}
	if !r.DimensionID.Valid() {
		return fmt.Errorf("unknown dimension id %q", r.DimensionID)
	}
	if r.CompositeScore < 0 || r.CompositeScore > 100 {
		return fmt.Errorf("dimension %s: composite score %d out of range [0,100]", r.DimensionID, r.CompositeScore)
	}
	for i, s := range r.SubScores {
		if s.Score < 0 || s.Score > 100 {
			return fmt.Errorf("dimension %s: sub-score %d (%q) out of range [0,100]: %d", r.DimensionID, i, s.Label, s.Score)
		}
	}
	return nil
}

// ResultMap is the possibly-partial map produced by the scorer fan-out.
// Missing keys mean the stage failed; they are never filled with zeros.
type ResultMap map[DimensionID]DimensionResult

// Clone returns a shallow copy, used when a regeneration merges prior
// results with a freshly scored dimension.
func (m ResultMap) Clone() ResultMap {
	out := make(ResultMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
