package views

import (
	"sort"

	"github.com/launchsignal/validator-backend/internal/domain/validation"
	"github.com/launchsignal/validator-backend/internal/modules/validator/aggregate"
)

// GapEntry is one dimension's distance to the fundable threshold.
type GapEntry struct {
	DimensionID validation.DimensionID `json:"dimension_id"`
	Label       string                 `json:"label"`
	Score       int                    `json:"score"`
	Gap         int                    `json:"gap"`
	Fundable    bool                   `json:"fundable"`
}

// GapView lists every present dimension ordered ascending by score, so the
// largest gap is always first. Dimensions with no result do not appear.
type GapView struct {
	FundableThreshold int        `json:"fundable_threshold"`
	Entries           []GapEntry `json:"entries"`
}

// Gap builds the gap-analysis view over a dimension-result map.
func Gap(results validation.ResultMap, cfg aggregate.Config) GapView {
	entries := make([]GapEntry, 0, len(results))
	for _, id := range validation.AllDimensions() {
		res, ok := results[id]
		if !ok {
			continue
		}
		gap := cfg.FundableThreshold - res.CompositeScore
		if gap < 0 {
			gap = 0
		}
		entries = append(entries, GapEntry{
			DimensionID: id,
			Label:       id.Label(),
			Score:       res.CompositeScore,
			Gap:         gap,
			Fundable:    gap == 0,
		})
	}
	// Stable sort over the canonical-order slice keeps equal scores in a
	// deterministic order across runs.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score < entries[j].Score
	})
	return GapView{FundableThreshold: cfg.FundableThreshold, Entries: entries}
}
