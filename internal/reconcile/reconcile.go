// Package reconcile turns fresh scores of a rewritten document into the score
// shown to the user.
//
// A reported axis never falls below the score the document had before it was
// rewritten. The scorer is asked once; if either axis came back lower, it is
// asked a second time and the better value per axis is kept. An axis that is
// still lower after that is clamped up to the original (StageFloorApplied).
// The clamp is part of the product contract: the reported score of a
// floor-applied result is a lower bound set by the original, not a
// measurement of the rewritten text.
package reconcile

import (
	"context"

	"go.uber.org/zap"

	"github.com/jonathan/resume-optimizer/internal/logging"
	"github.com/jonathan/resume-optimizer/internal/metrics"
	"github.com/jonathan/resume-optimizer/internal/scoring"
	"github.com/jonathan/resume-optimizer/internal/types"
)

// Original holds the scores from the free analysis of the source document.
type Original struct {
	ATS     int
	Content int
}

// Reconciler runs the reconciliation for one request at a time; it holds no
// per-request state and is safe for concurrent use.
type Reconciler struct {
	scorer  scoring.Scorer
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// New creates a Reconciler. scorer should already carry its own retry policy,
// e.g. a *scoring.Retrying; one failed call here means that budget is spent.
func New(scorer scoring.Scorer, logger *zap.Logger, m *metrics.Metrics) *Reconciler {
	return &Reconciler{
		scorer:  scorer,
		logger:  logging.OrNop(logger).Named("reconcile"),
		metrics: m,
	}
}

// Reconcile scores canonicalText against original and never fails: when no
// score can be obtained the result is unscored.
func (r *Reconciler) Reconcile(ctx context.Context, canonicalText string, original Original) types.ReconciledScore {
	result := r.reconcile(ctx, canonicalText, original)

	fields := []zap.Field{
		zap.String("stage", string(result.Stage)),
		zap.Int("original_ats", original.ATS),
		zap.Int("original_content", original.Content),
	}
	if result.Scored() {
		fields = append(fields, zap.Int("ats", *result.ATS), zap.Int("content", *result.Content))
	}
	r.logger.Info("score reconciled", fields...)
	r.metrics.ReconcileStage(string(result.Stage))

	return result
}

func (r *Reconciler) reconcile(ctx context.Context, text string, original Original) types.ReconciledScore {
	// Initial
	first, err := r.scorer.Score(ctx, text)
	if err != nil {
		r.logger.Warn("first score unavailable", zap.Error(err))
		return types.ReconciledScore{Stage: types.StageUnscored}
	}

	ats, content := first.ATSScore.Total, first.ContentScore.Total
	if ats >= original.ATS && content >= original.Content {
		return scored(ats, content, types.StageAccepted)
	}

	// Retrying: the second attempt only ever raises an axis.
	second, err := r.scorer.Score(ctx, text)
	if err != nil {
		r.logger.Warn("second score unavailable, keeping first", zap.Error(err))
	} else {
		ats = max(ats, second.ATSScore.Total)
		content = max(content, second.ContentScore.Total)
	}

	if ats >= original.ATS && content >= original.Content {
		return scored(ats, content, types.StageRetried)
	}

	return scored(max(ats, original.ATS), max(content, original.Content), types.StageFloorApplied)
}

func scored(ats, content int, stage types.Stage) types.ReconciledScore {
	return types.ReconciledScore{ATS: &ats, Content: &content, Stage: stage}
}
