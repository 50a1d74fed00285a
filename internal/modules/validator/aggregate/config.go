package aggregate

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/launchsignal/validator-backend/internal/domain/validation"
)

// Config carries the product scoring constants. The zero value is not usable;
// start from Default and optionally overlay a YAML file.
type Config struct {
	// Signal thresholds: score >= GoThreshold maps to go, score < NoGoThreshold
	// maps to no_go, everything between is caution.
	GoThreshold   int `yaml:"go_threshold"`
	NoGoThreshold int `yaml:"no_go_threshold"`

	// Risk modifier rule: when the risk dimension is present and its composite
	// score is below RiskScoreThreshold, RiskPenalty points are subtracted from
	// the weighted mean (floored at 0).
	RiskScoreThreshold int `yaml:"risk_score_threshold"`
	RiskPenalty        int `yaml:"risk_penalty"`

	// Read-side view constants.
	FundableThreshold    int    `yaml:"fundable_threshold"`
	StageBounds          [3]int `yaml:"stage_bounds"`
	BenchmarkTopQuartile int    `yaml:"benchmark_top_quartile"`
	BenchmarkMedian      int    `yaml:"benchmark_median"`

	// Weights overlays the static per-dimension weight table. Only scored
	// dimensions may carry a non-zero weight and the total must stay 1.0.
	Weights map[validation.DimensionID]float64 `yaml:"weights"`
}

// Default returns the compiled-in product constants.
func Default() Config {
	weights := make(map[validation.DimensionID]float64)
	for _, id := range validation.AllDimensions() {
		cfg, _ := validation.ConfigFor(id)
		weights[id] = cfg.Weight
	}
	return Config{
		GoThreshold:          75,
		NoGoThreshold:        50,
		RiskScoreThreshold:   40,
		RiskPenalty:          10,
		FundableThreshold:    75,
		StageBounds:          [3]int{25, 50, 75},
		BenchmarkTopQuartile: 78,
		BenchmarkMedian:      62,
		Weights:              weights,
	}
}

// Load reads an optional YAML override file on top of the defaults. An empty
// path returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read scoring config: %w", err)
	}
	var overlay struct {
		GoThreshold          *int               `yaml:"go_threshold"`
		NoGoThreshold        *int               `yaml:"no_go_threshold"`
		RiskScoreThreshold   *int               `yaml:"risk_score_threshold"`
		RiskPenalty          *int               `yaml:"risk_penalty"`
		FundableThreshold    *int               `yaml:"fundable_threshold"`
		StageBounds          *[3]int            `yaml:"stage_bounds"`
		BenchmarkTopQuartile *int               `yaml:"benchmark_top_quartile"`
		BenchmarkMedian      *int               `yaml:"benchmark_median"`
		Weights              map[string]float64 `yaml:"weights"`
	}
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return Config{}, fmt.Errorf("parse scoring config: %w", err)
	}
	if overlay.GoThreshold != nil {
		cfg.GoThreshold = *overlay.GoThreshold
	}
	if overlay.NoGoThreshold != nil {
		cfg.NoGoThreshold = *overlay.NoGoThreshold
	}
	if overlay.RiskScoreThreshold != nil {
		cfg.RiskScoreThreshold = *overlay.RiskScoreThreshold
	}
	if overlay.RiskPenalty != nil {
		cfg.RiskPenalty = *overlay.RiskPenalty
	}
	if overlay.FundableThreshold != nil {
		cfg.FundableThreshold = *overlay.FundableThreshold
	}
	if overlay.StageBounds != nil {
		cfg.StageBounds = *overlay.StageBounds
	}
	if overlay.BenchmarkTopQuartile != nil {
		cfg.BenchmarkTopQuartile = *overlay.BenchmarkTopQuartile
	}
	if overlay.BenchmarkMedian != nil {
		cfg.BenchmarkMedian = *overlay.BenchmarkMedian
	}
	for key, w := range overlay.Weights {
		id, err := validation.ParseDimensionID(key)
		if err != nil {
			return Config{}, fmt.Errorf("scoring config weights: %w", err)
		}
		cfg.Weights[id] = w
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

const weightEpsilon = 1e-9

// Validate enforces the structural constraints on the constants.
func (c Config) Validate() error {
	if c.NoGoThreshold > c.GoThreshold {
		return fmt.Errorf("no_go_threshold %d exceeds go_threshold %d", c.NoGoThreshold, c.GoThreshold)
	}
	if c.RiskPenalty < 0 {
		return fmt.Errorf("risk_penalty must be non-negative, got %d", c.RiskPenalty)
	}
	if c.StageBounds[0] >= c.StageBounds[1] || c.StageBounds[1] >= c.StageBounds[2] {
		return fmt.Errorf("stage_bounds must be strictly increasing: %v", c.StageBounds)
	}
	sum := 0.0
	for _, id := range validation.AllDimensions() {
		dim, _ := validation.ConfigFor(id)
		w := c.Weights[id]
		if dim.Role == validation.RoleModifier && w != 0 {
			return fmt.Errorf("modifier dimension %s must carry weight 0, got %v", id, w)
		}
		if w < 0 {
			return fmt.Errorf("dimension %s has negative weight %v", id, w)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > weightEpsilon {
		return fmt.Errorf("scored dimension weights sum to %v, want 1.0", sum)
	}
	return nil
}

// WeightFor returns the effective weight for a dimension.
func (c Config) WeightFor(id validation.DimensionID) float64 {
	return c.Weights[id]
}
