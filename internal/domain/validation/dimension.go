package validation

import "fmt"

// DimensionID identifies one of the nine fixed evaluation axes. The set is
// closed: every switch over it should enumerate all nine values.
type DimensionID string

const (
	DimensionProblem     DimensionID = "problem"
	DimensionCustomer    DimensionID = "customer"
	DimensionMarket      DimensionID = "market"
	DimensionCompetition DimensionID = "competition"
	DimensionRevenue     DimensionID = "revenue"
	DimensionAIStrategy  DimensionID = "ai_strategy"
	DimensionExecution   DimensionID = "execution"
	DimensionTraction    DimensionID = "traction"
	DimensionRisk        DimensionID = "risk"
)

// DimensionRole distinguishes dimensions that contribute a weighted term to
// the overall average from those that adjust the result afterwards.
type DimensionRole string

const (
	RoleScored   DimensionRole = "scored"
	RoleModifier DimensionRole = "modifier"
)

// DimensionConfig is the static per-dimension configuration. Weights are
// fractions of 1.0 across the scored dimensions; modifiers carry weight 0.
type DimensionConfig struct {
	ID     DimensionID
	Label  string
	Color  string
	Act    int // narrative act 1..3
	Role   DimensionRole
	Weight float64
}

// dimensionOrder is the canonical call and display order.
var dimensionOrder = []DimensionID{
	DimensionProblem,
	DimensionCustomer,
	DimensionMarket,
	DimensionCompetition,
	DimensionRevenue,
	DimensionAIStrategy,
	DimensionExecution,
	DimensionTraction,
	DimensionRisk,
}

var dimensionConfigs = map[DimensionID]DimensionConfig{
	DimensionProblem:     {ID: DimensionProblem, Label: "Problem Fit", Color: "#f43f5e", Act: 1, Role: RoleScored, Weight: 0.15},
	DimensionCustomer:    {ID: DimensionCustomer, Label: "Target Customer", Color: "#fb923c", Act: 1, Role: RoleScored, Weight: 0.10},
	DimensionMarket:      {ID: DimensionMarket, Label: "Market Opportunity", Color: "#facc15", Act: 1, Role: RoleScored, Weight: 0.15},
	DimensionCompetition: {ID: DimensionCompetition, Label: "Competitive Edge", Color: "#4ade80", Act: 2, Role: RoleScored, Weight: 0.10},
	DimensionRevenue:     {ID: DimensionRevenue, Label: "Revenue Model", Color: "#2dd4bf", Act: 2, Role: RoleScored, Weight: 0.15},
	DimensionAIStrategy:  {ID: DimensionAIStrategy, Label: "Tech & AI Advantage", Color: "#38bdf8", Act: 2, Role: RoleScored, Weight: 0.10},
	DimensionExecution:   {ID: DimensionExecution, Label: "Founder Execution", Color: "#818cf8", Act: 3, Role: RoleScored, Weight: 0.125},
	DimensionTraction:    {ID: DimensionTraction, Label: "Traction & Evidence", Color: "#c084fc", Act: 3, Role: RoleScored, Weight: 0.125},
	DimensionRisk:        {ID: DimensionRisk, Label: "Startup Risk", Color: "#94a3b8", Act: 3, Role: RoleModifier, Weight: 0},
}

// AllDimensions returns the nine dimension ids in canonical order.
func AllDimensions() []DimensionID {
	out := make([]DimensionID, len(dimensionOrder))
	copy(out, dimensionOrder)
	return out
}

// ScoredDimensions returns the ids with role "scored" in canonical order.
func ScoredDimensions() []DimensionID {
	out := make([]DimensionID, 0, len(dimensionOrder))
	for _, id := range dimensionOrder {
		if dimensionConfigs[id].Role == RoleScored {
			out = append(out, id)
		}
	}
	return out
}

// ConfigFor returns the static configuration for a dimension id.
func ConfigFor(id DimensionID) (DimensionConfig, bool) {
	cfg, ok := dimensionConfigs[id]
	return cfg, ok
}

// ParseDimensionID validates a wire-format dimension id.
func ParseDimensionID(s string) (DimensionID, error) {
	id := DimensionID(s)
	if _, ok := dimensionConfigs[id]; !ok {
		return "", fmt.Errorf("unknown dimension id %q", s)
	}
	return id, nil
}

func (d DimensionID) Valid() bool {
	_, ok := dimensionConfigs[d]
	return ok
}

func (d DimensionID) Label() string {
	return dimensionConfigs[d].Label
}
