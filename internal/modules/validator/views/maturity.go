// Package views derives the read-time projections of a stored report:
// maturity staging, gap analysis, and benchmark comparison. Everything here
// is pure computation over already-decoded report data; nothing is persisted
// and nothing blocks.
package views

import (
	"github.com/launchsignal/validator-backend/internal/domain/validation"
	"github.com/launchsignal/validator-backend/internal/modules/validator/aggregate"
)

// MaturityStage is one of the four ordered bands, least to most mature.
type MaturityStage string

const (
	StageNascent    MaturityStage = "nascent"
	StageEmerging   MaturityStage = "emerging"
	StageValidating MaturityStage = "validating"
	StageInvestable MaturityStage = "investable"
)

var stageOrder = []MaturityStage{StageNascent, StageEmerging, StageValidating, StageInvestable}

// MaturityEntry places one dimension inside a stage band.
type MaturityEntry struct {
	DimensionID validation.DimensionID `json:"dimension_id"`
	Label       string                 `json:"label"`
	Score       int                    `json:"score"`
}

// MaturityBucket is one band with its member dimensions in canonical order.
type MaturityBucket struct {
	Stage      MaturityStage   `json:"stage"`
	Dimensions []MaturityEntry `json:"dimensions"`
}

// MaturityView partitions the present dimensions across the four bands.
// Dimensions with no result are listed in NoData, never defaulted into the
// lowest band: "no data" and "lowest stage" are different statements.
type MaturityView struct {
	Buckets []MaturityBucket         `json:"buckets"`
	NoData  []validation.DimensionID `json:"no_data"`
}

// StageFor maps a 0..100 score into its band using the configured bounds.
func StageFor(score int, cfg aggregate.Config) MaturityStage {
	switch {
	case score < cfg.StageBounds[0]:
		return StageNascent
	case score < cfg.StageBounds[1]:
		return StageEmerging
	case score < cfg.StageBounds[2]:
		return StageValidating
	default:
		return StageInvestable
	}
}

// Maturity builds the staging view over a dimension-result map.
func Maturity(results validation.ResultMap, cfg aggregate.Config) MaturityView {
	byStage := make(map[MaturityStage][]MaturityEntry, len(stageOrder))
	var noData []validation.DimensionID
	for _, id := range validation.AllDimensions() {
		res, ok := results[id]
		if !ok {
			noData = append(noData, id)
			continue
		}
		stage := StageFor(res.CompositeScore, cfg)
		byStage[stage] = append(byStage[stage], MaturityEntry{
			DimensionID: id,
			Label:       id.Label(),
			Score:       res.CompositeScore,
		})
	}
	buckets := make([]MaturityBucket, 0, len(stageOrder))
	for _, stage := range stageOrder {
		buckets = append(buckets, MaturityBucket{Stage: stage, Dimensions: byStage[stage]})
	}
	return MaturityView{Buckets: buckets, NoData: noData}
}
