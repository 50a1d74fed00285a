package scorer

import (
	"fmt"
	"strings"

	"github.com/launchsignal/validator-backend/internal/domain/validation"
)

// dimensionFocus is the analyst brief for each evaluation axis. The scoring
// rubric and output shape are shared; only the lens changes per dimension.
var dimensionFocus = map[validation.DimensionID]string{
	validation.DimensionProblem:     "Assess problem severity and urgency: who has the problem, how the pain is quantified (hours wasted, dollars lost), what today's workaround is and why it structurally fails.",
	validation.DimensionCustomer:    "Assess the target customer: how specific the buyer persona is, whether the buyer has authority and budget, and how painful the current workflow is for them.",
	validation.DimensionMarket:      "Assess market opportunity: credible TAM/SAM/SOM sizing, growth rate, and why now. Punish sizing that is top-down hand-waving with no methodology.",
	validation.DimensionCompetition: "Assess competitive position: named alternatives, switching costs, and whether the claimed differentiation survives a funded competitor copying it.",
	validation.DimensionRevenue:     "Assess the revenue model: pricing logic, unit economics plausibility, path to first paying customers, and whether the price matches the quantified pain.",
	validation.DimensionAIStrategy:  "Assess the technology and AI strategy: whether AI is load-bearing or decorative, data moat potential, and dependence on third-party model providers.",
	validation.DimensionExecution:   "Assess founder execution capacity: relevant domain background, shipping evidence, and whether the stated plan fits the team's actual capabilities.",
	validation.DimensionTraction:    "Assess traction and evidence quality: revenue, usage, waitlists, or letters of intent, graded by evidence tier (revenue beats prototypes beats surveys beats desk research).",
	validation.DimensionRisk:        "Assess startup risk: the assumptions that must hold, regulatory or platform dependencies, and tarpit signals. High risk means a LOW score on this axis.",
}

const analystSystem = "You are a blunt, evidence-driven startup analyst. " +
	"Score strictly against the rubric: 0-25 means no evidence, 26-50 weak or secondhand evidence, " +
	"51-75 credible partial evidence, 76-100 strong direct evidence. " +
	"Never award points for enthusiasm or polish. Respond only with the requested JSON."

func systemPrompt(id validation.DimensionID) string {
	return analystSystem + "\n\nLens for this evaluation: " + dimensionFocus[id]
}

func userPrompt(profile validation.Profile, id validation.DimensionID) string {
	var sb strings.Builder
	sb.WriteString("Evaluate the \"")
	sb.WriteString(id.Label())
	sb.WriteString("\" dimension of the following startup profile.\n\n")
	sb.WriteString(profile.Render())
	sb.WriteString("\nProduce a composite score, 2-4 sub-scores with weights, an executive summary, ")
	sb.WriteString("priority actions ranked by impact, and any risk signals you see.")
	return sb.String()
}

func schemaName(id validation.DimensionID) string {
	return fmt.Sprintf("dimension_%s", id)
}

// dimensionSchema is the structured-output contract for every scoring call.
// One shared shape keeps deserialization uniform across all nine dimensions.
func dimensionSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"composite_score": map[string]any{
				"type":        "integer",
				"description": "Overall 0-100 score for this dimension",
			},
			"headline": map[string]any{
				"type":        "string",
				"description": "One-sentence verdict for this dimension",
			},
			"sub_scores": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"label":       map[string]any{"type": "string"},
						"score":       map[string]any{"type": "integer", "description": "0-100"},
						"weight":      map[string]any{"type": "number", "description": "Fraction of the composite"},
						"description": map[string]any{"type": "string"},
					},
					"required": []string{"label", "score", "weight"},
				},
			},
			"executive_summary": map[string]any{
				"type":        "string",
				"description": "2-4 sentence analyst summary",
			},
			"priority_actions": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Concrete next actions, highest impact first",
			},
			"risk_signals": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Specific risks observed, empty if none",
			},
		},
		"required": []string{"composite_score", "headline", "sub_scores", "executive_summary", "priority_actions", "risk_signals"},
	}
}
