// Package scoring asks the generative model for a two-axis résumé score and
// accepts only responses that satisfy the score invariants.
package scoring

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/resume-optimizer/internal/llm"
	"github.com/jonathan/resume-optimizer/internal/logging"
	"github.com/jonathan/resume-optimizer/internal/metrics"
	"github.com/jonathan/resume-optimizer/internal/prompts"
	"github.com/jonathan/resume-optimizer/internal/retry"
	"github.com/jonathan/resume-optimizer/internal/schemas"
	"github.com/jonathan/resume-optimizer/internal/types"
)

// OracleName labels scoring calls in metrics.
const OracleName = "scoring"

// Scorer scores anonymized, normalized résumé text.
type Scorer interface {
	// Score makes a single attempt.
	Score(ctx context.Context, text string) (*types.AnalysisResult, error)
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(ctx context.Context, text string) (*types.AnalysisResult, error)

// Score calls f.
func (f ScorerFunc) Score(ctx context.Context, text string) (*types.AnalysisResult, error) {
	return f(ctx, text)
}

// LLMScorer scores with the generative model.
type LLMScorer struct {
	client llm.Client
	tier   llm.ModelTier
}

// NewLLMScorer creates a scorer using the advanced model tier.
func NewLLMScorer(client llm.Client) *LLMScorer {
	return &LLMScorer{client: client, tier: llm.TierAdvanced}
}

// Score sends one scoring request and validates the response.
func (s *LLMScorer) Score(ctx context.Context, text string) (*types.AnalysisResult, error) {
	prompt, err := prompts.Render("scoring.json", "score-resume", map[string]string{"Resume": text})
	if err != nil {
		return nil, fmt.Errorf("failed to build scoring prompt: %w", err)
	}

	raw, err := s.client.GenerateJSON(ctx, prompt, s.tier)
	if err != nil {
		return nil, &APICallError{Message: "scoring request failed", Cause: err}
	}

	return ParseAnalysis(raw)
}

// ParseAnalysis decodes and checks a raw scoring response. Each axis total is
// recomputed from its categories, so a response whose total disagrees with
// its own categories is corrected rather than rejected; a category out of its
// range, or a total above the maximum, fails validation.
func ParseAnalysis(raw string) (*types.AnalysisResult, error) {
	raw = llm.CleanJSONBlock(raw)

	if err := schemas.Validate(schemas.Analysis, raw); err != nil {
		return nil, &ValidationError{Message: "response does not match the analysis schema", Cause: err}
	}

	var result types.AnalysisResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, &ParseError{Message: "failed to decode analysis", Cause: err}
	}

	result.ATSScore.Recompute()
	result.ContentScore.Recompute()

	if err := result.Validate(); err != nil {
		return nil, &ValidationError{Message: "score invariants violated", Cause: err}
	}
	return &result, nil
}

// Retrying wraps a Scorer with a bounded retry policy.
type Retrying struct {
	inner   Scorer
	policy  retry.Policy
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewRetrying wraps inner. logger and m may be nil.
func NewRetrying(inner Scorer, policy retry.Policy, logger *zap.Logger, m *metrics.Metrics) *Retrying {
	return &Retrying{
		inner:   inner,
		policy:  policy,
		logger:  logging.OrNop(logger).Named("scoring"),
		metrics: m,
	}
}

// Score retries inner until it succeeds. Running out of attempts, or the
// caller's context ending, yields an error matching ErrScoringUnavailable.
func (r *Retrying) Score(ctx context.Context, text string) (*types.AnalysisResult, error) {
	observe := func(attempt int, err error) {
		r.metrics.OracleAttempt(OracleName, err)
		if err != nil {
			r.logger.Warn("scoring attempt failed",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", r.policy.MaxAttempts),
				zap.String("error", logging.TruncateForLog(err.Error(), 300)))
		}
	}

	result, err := retry.Do(ctx, r.policy, observe, func(ctx context.Context, _ int) (*types.AnalysisResult, error) {
		return r.inner.Score(ctx, text)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScoringUnavailable, err)
	}

	r.logger.Debug("scored",
		zap.String("language", result.Language),
		zap.Int("ats", result.ATSScore.Total),
		zap.Int("content", result.ContentScore.Total))
	return result, nil
}
