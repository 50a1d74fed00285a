// Package validator orchestrates a validation run end to end: fan-out
// scoring of the nine dimensions, aggregation, report assembly, and the
// supersede commit that advances a session's current report.
package validator

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/launchsignal/validator-backend/internal/domain/validation"
	"github.com/launchsignal/validator-backend/internal/modules/validator/scorer"
	"github.com/launchsignal/validator-backend/internal/platform/logger"
)

// DimensionScorer is what the pipeline needs from the scoring stage.
type DimensionScorer interface {
	Score(ctx context.Context, profile validation.Profile, id validation.DimensionID) (validation.DimensionResult, error)
	Model() string
}

// Observer receives per-dimension progress. Implementations must not block;
// the pipeline calls them from scoring goroutines.
type Observer interface {
	DimensionStarted(id validation.DimensionID)
	DimensionSettled(id validation.DimensionID, ok bool, reason string)
}

// NopObserver is used when nobody is listening.
type NopObserver struct{}

func (NopObserver) DimensionStarted(validation.DimensionID) {}

func (NopObserver) DimensionSettled(validation.DimensionID, bool, string) {}

// FanOut is the scoring stage of a run: it dispatches every requested
// dimension concurrently, staggered to avoid a thundering herd against the
// oracle, and waits for ALL of them to settle before returning. Each
// goroutine writes only its own slot; failures are recorded, never fatal.
// The single exception is context cancellation: a canceled run returns the
// context error and all partial results are discarded by the caller.
type FanOut struct {
	scorer  DimensionScorer
	stagger time.Duration
	log     *logger.Logger
}

func NewFanOut(sc DimensionScorer, stagger time.Duration, log *logger.Logger) *FanOut {
	return &FanOut{
		scorer:  sc,
		stagger: stagger,
		log:     log.With("component", "ValidationFanOut"),
	}
}

// Outcome is the settled state of one fan-out pass.
type Outcome struct {
	Results  validation.ResultMap
	Failures []validation.StageFailure
}

func (f *FanOut) Run(ctx context.Context, profile validation.Profile, dims []validation.DimensionID, obs Observer) (Outcome, error) {
	if obs == nil {
		obs = NopObserver{}
	}

	var mu sync.Mutex
	results := make(validation.ResultMap, len(dims))
	var failures []validation.StageFailure

	var g errgroup.Group
	for i, id := range dims {
		delay := time.Duration(i) * f.stagger
		id := id
		g.Go(func() error {
			if delay > 0 {
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					return ctx.Err()
				}
			}

			obs.DimensionStarted(id)
			res, err := f.scorer.Score(ctx, profile, id)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				reason := err.Error()
				var stageErr *scorer.StageError
				if errors.As(err, &stageErr) {
					reason = stageErr.Reason
				}
				f.log.Warn("dimension stage failed", "dimension", id, "reason", reason, "error", err)
				mu.Lock()
				failures = append(failures, validation.StageFailure{DimensionID: id, Reason: reason})
				mu.Unlock()
				obs.DimensionSettled(id, false, reason)
				return nil
			}

			mu.Lock()
			results[id] = res
			mu.Unlock()
			obs.DimensionSettled(id, true, "")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Outcome{}, err
	}
	sortFailures(failures)
	return Outcome{Results: results, Failures: failures}, nil
}

// sortFailures orders the failure log canonically so identical runs persist
// identical rows.
func sortFailures(failures []validation.StageFailure) {
	order := make(map[validation.DimensionID]int, 9)
	for i, id := range validation.AllDimensions() {
		order[id] = i
	}
	for i := 1; i < len(failures); i++ {
		for j := i; j > 0 && order[failures[j].DimensionID] < order[failures[j-1].DimensionID]; j-- {
			failures[j], failures[j-1] = failures[j-1], failures[j]
		}
	}
}
