package validator

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/launchsignal/validator-backend/internal/domain/validation"
	"github.com/launchsignal/validator-backend/internal/modules/validator/aggregate"
)

// Assembler merges settled dimension results and the aggregate outcome into
// one report row. The overall score is always recomputed here from the
// dimension map; a caller-supplied score is never trusted onto disk.
type Assembler struct {
	cfg aggregate.Config
}

func NewAssembler(cfg aggregate.Config) *Assembler {
	return &Assembler{cfg: cfg}
}

// Build produces an unsaved report row. ErrAggregationEmpty passes through
// when no scored dimension settled; the caller maps that to the session's
// empty state instead of writing a report.
func (a *Assembler) Build(sessionID uuid.UUID, outcome Outcome, oracleModel string, elapsed time.Duration) (*validation.ValidationReport, error) {
	agg, err := aggregate.Aggregate(outcome.Results, a.cfg)
	if err != nil {
		return nil, err
	}

	dims, err := json.Marshal(outcome.Results)
	if err != nil {
		return nil, fmt.Errorf("encode dimensions: %w", err)
	}

	report := &validation.ValidationReport{
		SessionID:        sessionID,
		ReportVersion:    validation.CurrentReportVersion,
		OverallScore:     agg.OverallScore,
		Signal:           agg.Signal,
		OneLiner:         oneLiner(agg),
		Dimensions:       datatypes.JSON(dims),
		GenerationMillis: elapsed.Milliseconds(),
		OracleModel:      oracleModel,
	}

	if strengths := encodeList(strengths(outcome.Results)); strengths != nil {
		report.Strengths = strengths
	}
	if concerns := encodeList(concerns(outcome.Results, a.cfg)); concerns != nil {
		report.Concerns = concerns
	}
	if steps := encodeList(nextSteps(outcome.Results, a.cfg)); steps != nil {
		report.NextSteps = steps
	}
	if len(outcome.Failures) > 0 {
		failed, err := json.Marshal(outcome.Failures)
		if err != nil {
			return nil, fmt.Errorf("encode failed dimensions: %w", err)
		}
		report.FailedDimensions = datatypes.JSON(failed)
	}

	return report, nil
}

func encodeList(items []string) datatypes.JSON {
	if len(items) == 0 {
		return nil
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

func oneLiner(agg aggregate.Outcome) string {
	switch agg.Signal {
	case validation.SignalGo:
		return fmt.Sprintf("Scored %d/100 across %d dimensions: worth pursuing.", agg.OverallScore, agg.ScoredCount)
	case validation.SignalNoGo:
		return fmt.Sprintf("Scored %d/100 across %d dimensions: fundamental gaps outweigh the upside.", agg.OverallScore, agg.ScoredCount)
	default:
		return fmt.Sprintf("Scored %d/100 across %d dimensions: promising but unproven.", agg.OverallScore, agg.ScoredCount)
	}
}

// strengths lists the headlines of the top-scoring dimensions, strongest
// first, capped at three.
func strengths(results validation.ResultMap) []string {
	ranked := rankedResults(results)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].CompositeScore > ranked[j].CompositeScore
	})
	var out []string
	for _, res := range ranked {
		if res.CompositeScore < 60 || res.Headline == "" {
			continue
		}
		out = append(out, fmt.Sprintf("%s: %s", res.DimensionID.Label(), res.Headline))
		if len(out) == 3 {
			break
		}
	}
	return out
}

// concerns lists dimensions below the fundable threshold, weakest first,
// capped at three, plus every risk signal the risk stage raised.
func concerns(results validation.ResultMap, cfg aggregate.Config) []string {
	ranked := rankedResults(results)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].CompositeScore < ranked[j].CompositeScore
	})
	var out []string
	for _, res := range ranked {
		if res.CompositeScore >= cfg.FundableThreshold {
			break
		}
		if res.Headline == "" {
			continue
		}
		out = append(out, fmt.Sprintf("%s: %s", res.DimensionID.Label(), res.Headline))
		if len(out) == 3 {
			break
		}
	}
	if risk, ok := results[validation.DimensionRisk]; ok {
		for _, signal := range risk.RiskSignals {
			out = append(out, signal)
		}
	}
	return out
}

// nextSteps takes the highest-priority action from each of the weakest
// dimensions, capped at five.
func nextSteps(results validation.ResultMap, cfg aggregate.Config) []string {
	ranked := rankedResults(results)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].CompositeScore < ranked[j].CompositeScore
	})
	var out []string
	for _, res := range ranked {
		if len(res.PriorityActions) == 0 {
			continue
		}
		out = append(out, res.PriorityActions[0])
		if len(out) == 5 {
			break
		}
	}
	return out
}

// rankedResults returns the present results in canonical order so equal
// scores sort deterministically.
func rankedResults(results validation.ResultMap) []validation.DimensionResult {
	out := make([]validation.DimensionResult, 0, len(results))
	for _, id := range validation.AllDimensions() {
		if res, ok := results[id]; ok {
			out = append(out, res)
		}
	}
	return out
}
