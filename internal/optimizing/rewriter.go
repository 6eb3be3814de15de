// Package optimizing asks the generative model to rewrite an anonymized
// résumé into named sections with a change log.
package optimizing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonathan/resume-optimizer/internal/llm"
	"github.com/jonathan/resume-optimizer/internal/prompts"
	"github.com/jonathan/resume-optimizer/internal/schemas"
	"github.com/jonathan/resume-optimizer/internal/types"
)

// OracleName labels rewriting calls in metrics.
const OracleName = "rewriting"

// Rewriter rewrites anonymized résumé text. One call is one attempt.
type Rewriter interface {
	Rewrite(ctx context.Context, anonymizedText string) (*types.OptimizationResult, error)
}

// RewriterFunc adapts a function to Rewriter.
type RewriterFunc func(ctx context.Context, anonymizedText string) (*types.OptimizationResult, error)

// Rewrite calls f.
func (f RewriterFunc) Rewrite(ctx context.Context, anonymizedText string) (*types.OptimizationResult, error) {
	return f(ctx, anonymizedText)
}

// LLMRewriter rewrites with the generative model.
type LLMRewriter struct {
	client llm.Client
	tier   llm.ModelTier
}

// NewLLMRewriter creates a rewriter using the advanced model tier.
func NewLLMRewriter(client llm.Client) *LLMRewriter {
	return &LLMRewriter{client: client, tier: llm.TierAdvanced}
}

// Rewrite sends one rewrite request and checks the response structure.
func (r *LLMRewriter) Rewrite(ctx context.Context, anonymizedText string) (*types.OptimizationResult, error) {
	prompt, err := prompts.Render("optimizing.json", "optimize-resume", map[string]string{"Resume": anonymizedText})
	if err != nil {
		return nil, fmt.Errorf("failed to build rewrite prompt: %w", err)
	}

	raw, err := r.client.GenerateJSON(ctx, prompt, r.tier)
	if err != nil {
		return nil, &APICallError{Message: "rewrite request failed", Cause: err}
	}

	return ParseOptimization(raw)
}

// ParseOptimization decodes a raw rewrite response. The change log and the
// placeholder list are truncated to their caps; empty sections are rejected.
func ParseOptimization(raw string) (*types.OptimizationResult, error) {
	raw = llm.CleanJSONBlock(raw)

	if err := schemas.Validate(schemas.Optimization, raw); err != nil {
		return nil, &StructureError{Message: "response does not match the optimization schema", Cause: err}
	}

	var result types.OptimizationResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, &ParseError{Message: "failed to decode rewrite", Cause: err}
	}

	if err := Check(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Check rejects a result without usable sections and applies the caps in place.
func Check(result *types.OptimizationResult) error {
	if result == nil {
		return &StructureError{Message: "empty rewrite"}
	}
	if err := result.Validate(); err != nil {
		return &StructureError{Message: "invalid sections", Cause: err}
	}
	result.Cap()
	return nil
}
