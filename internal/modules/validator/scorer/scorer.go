// Package scorer runs one oracle call per evaluation dimension and turns the
// structured output into a validated DimensionResult. Calls are independent
// of each other; a failure here is a typed StageError that the pipeline
// records without aborting the other dimensions.
package scorer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/launchsignal/validator-backend/internal/domain/validation"
	"github.com/launchsignal/validator-backend/internal/platform/gemini"
	"github.com/launchsignal/validator-backend/internal/platform/logger"
)

// Failure reasons recorded on a report's failed-dimensions log.
const (
	ReasonOracleError   = "oracle_error"
	ReasonInvalidResult = "invalid_result"
)

// StageError is the typed failure of one dimension's scoring stage.
type StageError struct {
	DimensionID validation.DimensionID
	Reason      string
	Err         error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("dimension %s failed (%s): %v", e.DimensionID, e.Reason, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Scorer scores single dimensions against a startup profile.
type Scorer struct {
	oracle      gemini.Client
	policy      Policy
	callTimeout time.Duration
	log         *logger.Logger
}

// New builds a Scorer. callTimeout bounds each individual oracle attempt;
// zero means no per-attempt bound beyond the caller's context.
func New(oracle gemini.Client, policy Policy, callTimeout time.Duration, log *logger.Logger) *Scorer {
	return &Scorer{
		oracle:      oracle,
		policy:      policy,
		callTimeout: callTimeout,
		log:         log.With("service", "DimensionScorer"),
	}
}

// Model exposes the oracle model identifier for report stamping.
func (s *Scorer) Model() string { return s.oracle.Model() }

// Score produces the DimensionResult for one dimension, or a *StageError.
// The result is complete and schema-valid or it does not exist; there is no
// partial output. Context cancellation is returned as-is so callers can
// distinguish shutdown from stage failure.
func (s *Scorer) Score(ctx context.Context, profile validation.Profile, id validation.DimensionID) (validation.DimensionResult, error) {
	if !id.Valid() {
		return validation.DimensionResult{}, &StageError{DimensionID: id, Reason: ReasonInvalidResult, Err: fmt.Errorf("unknown dimension id %q", id)}
	}

	var raw map[string]any
	err := s.policy.Do(ctx, s.log, string(id), func(ctx context.Context) error {
		callCtx := ctx
		if s.callTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, s.callTimeout)
			defer cancel()
		}
		obj, callErr := s.oracle.GenerateJSON(callCtx, systemPrompt(id), userPrompt(profile, id), schemaName(id), dimensionSchema())
		if callErr != nil {
			return callErr
		}
		raw = obj
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return validation.DimensionResult{}, ctx.Err()
		}
		return validation.DimensionResult{}, &StageError{DimensionID: id, Reason: ReasonOracleError, Err: err}
	}

	result, err := decodeResult(id, raw)
	if err != nil {
		return validation.DimensionResult{}, &StageError{DimensionID: id, Reason: ReasonInvalidResult, Err: err}
	}
	return result, nil
}

// decodeResult converts the oracle's JSON object into a DimensionResult and
// enforces the shape invariants. The dimension id is stamped from the call,
// never trusted from the output.
func decodeResult(id validation.DimensionID, raw map[string]any) (validation.DimensionResult, error) {
	buf, err := json.Marshal(raw)
	if err != nil {
		return validation.DimensionResult{}, fmt.Errorf("re-encode oracle output: %w", err)
	}
	var result validation.DimensionResult
	if err := json.Unmarshal(buf, &result); err != nil {
		return validation.DimensionResult{}, fmt.Errorf("malformed oracle output: %w", err)
	}
	result.DimensionID = id
	if err := result.Validate(); err != nil {
		return validation.DimensionResult{}, err
	}
	return result, nil
}
