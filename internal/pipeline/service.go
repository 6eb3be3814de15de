// Package pipeline orchestrates the two caller-facing operations: a free
// analysis that scores a document and hands out a token, and a paid
// optimization that redeems the token for a rewritten document and a
// reconciled score.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/resume-optimizer/internal/anonymize"
	"github.com/jonathan/resume-optimizer/internal/logging"
	"github.com/jonathan/resume-optimizer/internal/metrics"
	"github.com/jonathan/resume-optimizer/internal/normalize"
	"github.com/jonathan/resume-optimizer/internal/optimizing"
	"github.com/jonathan/resume-optimizer/internal/reconcile"
	"github.com/jonathan/resume-optimizer/internal/retry"
	"github.com/jonathan/resume-optimizer/internal/scoring"
	"github.com/jonathan/resume-optimizer/internal/tokenstore"
	"github.com/jonathan/resume-optimizer/internal/types"
)

// Operation names used in metrics.
const (
	OperationAnalyze  = "analyze"
	OperationOptimize = "optimize"
)

// Recorder persists non-identifying summaries of finished operations.
type Recorder interface {
	RecordAnalysis(ctx context.Context, rec types.AnalysisRecord) error
	RecordOptimization(ctx context.Context, rec types.OptimizationRecord) error
}

// Deps holds the collaborators of a Service. Store, Scorer and Rewriter are
// required; everything else has a usable zero value.
type Deps struct {
	Store tokenstore.Store
	// Scorer is used as is for Analyze and for reconciliation, so it should
	// carry its own retry policy (see scoring.NewRetrying).
	Scorer   scoring.Scorer
	Rewriter optimizing.Rewriter
	// RewritePolicy bounds the rewriter calls. Zero means retry.DefaultPolicy.
	RewritePolicy retry.Policy
	Redactor      *anonymize.Redactor
	Recorder      Recorder
	Logger        *zap.Logger
	Metrics       *metrics.Metrics
	OnProgress    ProgressCallback
	Now           func() time.Time
}

// Service runs Analyze and Optimize. It is safe for concurrent use.
type Service struct {
	store      tokenstore.Store
	scorer     scoring.Scorer
	rewriter   optimizing.Rewriter
	policy     retry.Policy
	redactor   *anonymize.Redactor
	reconciler *reconcile.Reconciler
	recorder   Recorder
	logger     *zap.Logger
	metrics    *metrics.Metrics
	onProgress ProgressCallback
	now        func() time.Time
}

// AnalysisOutput is the result of Analyze.
type AnalysisOutput struct {
	Result *types.AnalysisResult `json:"result"`
	Token  string                `json:"token"`
}

// OptimizeRequest redeems a token. The original scores are the ones the
// caller received from Analyze.
type OptimizeRequest struct {
	Token           string `json:"token"`
	OriginalATS     int    `json:"original_ats_score"`
	OriginalContent int    `json:"original_content_score"`
}

// OptimizeOutput is the result of Optimize, with contact values restored.
type OptimizeOutput struct {
	Result *types.OptimizationResult `json:"result"`
	Score  types.ReconciledScore     `json:"score"`
}

// New creates a Service.
func New(d Deps) (*Service, error) {
	if d.Store == nil {
		return nil, errors.New("pipeline: token store is required")
	}
	if d.Scorer == nil {
		return nil, errors.New("pipeline: scorer is required")
	}
	if d.Rewriter == nil {
		return nil, errors.New("pipeline: rewriter is required")
	}

	policy := d.RewritePolicy
	if policy.MaxAttempts <= 0 {
		policy = retry.DefaultPolicy()
	}
	redactor := d.Redactor
	if redactor == nil {
		redactor = anonymize.Default()
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	logger := logging.OrNop(d.Logger)

	return &Service{
		store:      d.Store,
		scorer:     d.Scorer,
		rewriter:   d.Rewriter,
		policy:     policy,
		redactor:   redactor,
		reconciler: reconcile.New(d.Scorer, logger, d.Metrics),
		recorder:   d.Recorder,
		logger:     logger.Named("pipeline"),
		metrics:    d.Metrics,
		onProgress: d.OnProgress,
		now:        now,
	}, nil
}

// Analyze scores text and stores its anonymized form under a fresh token.
// Only anonymized text reaches the scorer.
func (s *Service) Analyze(ctx context.Context, text string) (*AnalysisOutput, error) {
	out, err := s.analyze(ctx, text)
	s.metrics.Request(OperationAnalyze, resultLabel(err))
	return out, err
}

func (s *Service) analyze(ctx context.Context, text string) (*AnalysisOutput, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &MalformedInputError{Field: "text", Message: "document is empty"}
	}

	canonical := normalize.Normalize(text)
	doc := s.redactor.Anonymize(canonical)
	s.logger.Debug("document anonymized",
		append(logging.ContactFields(doc.Contacts), zap.Int("length", len(doc.Text)))...)

	result, err := s.scorer.Score(ctx, doc.Text)
	if err != nil {
		s.logger.Warn("analysis unavailable", zap.Error(err))
		return nil, err
	}

	token, err := tokenstore.NewToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	if err := s.store.Put(ctx, token, doc.Text, doc.Contacts); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	s.logger.Info("analysis complete",
		logging.TokenField(token),
		zap.String("language", result.Language),
		zap.Int("ats", result.ATSScore.Total),
		zap.Int("content", result.ContentScore.Total))

	s.record(ctx, func(ctx context.Context) error {
		return s.recorder.RecordAnalysis(ctx, types.AnalysisRecord{
			Language:     result.Language,
			ATSScore:     result.ATSScore.Total,
			ContentScore: result.ContentScore.Total,
			TipCount:     len(result.Tips),
			CreatedAt:    s.now(),
		})
	})

	return &AnalysisOutput{Result: result, Token: token}, nil
}

// Optimize redeems req.Token once. On success the token is deleted; on
// OptimizationFailed it stays valid so the caller can retry.
func (s *Service) Optimize(ctx context.Context, req OptimizeRequest) (*OptimizeOutput, error) {
	out, err := s.optimize(ctx, req)
	s.metrics.Request(OperationOptimize, resultLabel(err))
	return out, err
}

func (s *Service) optimize(ctx context.Context, req OptimizeRequest) (*OptimizeOutput, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	// 1. Claim and lookup
	s.emit(ctx, StepLookup, "looking up session", 0)
	if err := s.store.Claim(ctx, req.Token); err != nil {
		switch {
		case errors.Is(err, tokenstore.ErrNotFound):
			return nil, &SessionExpiredError{Message: "token unknown or expired", Cause: err}
		case errors.Is(err, tokenstore.ErrClaimed):
			return nil, &SessionExpiredError{Message: "token is being redeemed by another request", Cause: err}
		default:
			return nil, fmt.Errorf("failed to claim session: %w", err)
		}
	}
	redeemed := false
	defer func() {
		if redeemed {
			return
		}
		if err := s.store.Release(context.WithoutCancel(ctx), req.Token); err != nil {
			s.logger.Warn("failed to release token claim", logging.TokenField(req.Token), zap.Error(err))
		}
	}()

	entry, err := s.store.Get(ctx, req.Token)
	if err != nil {
		if errors.Is(err, tokenstore.ErrNotFound) {
			return nil, &SessionExpiredError{Message: "token unknown or expired", Cause: err}
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	// 2. Rewrite
	attempts := 0
	observe := func(attempt int, err error) {
		attempts = attempt
		s.metrics.OracleAttempt(optimizing.OracleName, err)
		if err != nil {
			s.logger.Warn("rewrite attempt failed",
				logging.TokenField(req.Token),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", s.policy.MaxAttempts),
				zap.String("error", logging.TruncateForLog(err.Error(), 300)))
		}
	}
	result, err := retry.Do(ctx, s.policy, observe, func(ctx context.Context, attempt int) (*types.OptimizationResult, error) {
		s.emit(ctx, StepRewrite, "rewriting document", attempt)
		res, err := s.rewriter.Rewrite(ctx, entry.AnonymizedText)
		if err != nil {
			return nil, err
		}
		if err := optimizing.Check(res); err != nil {
			return nil, err
		}
		return res, nil
	})
	if err != nil {
		return nil, &OptimizationFailedError{Message: "no usable rewrite", Cause: err}
	}

	// 3. Reconcile on the anonymized sections
	s.emit(ctx, StepReconcile, "scoring rewritten document", 0)
	canonical := normalize.Reassemble(result.Sections)
	score := s.reconciler.Reconcile(ctx, canonical, reconcile.Original{
		ATS:     req.OriginalATS,
		Content: req.OriginalContent,
	})

	// 4. Reinsert
	s.emit(ctx, StepReinsert, "restoring contact details", 0)
	restored := reinsertContacts(result, entry.Contacts)

	redeemed = true
	if err := s.store.Delete(ctx, req.Token); err != nil {
		s.logger.Error("failed to delete redeemed token", logging.TokenField(req.Token), zap.Error(err))
	}

	s.logger.Info("optimization complete",
		logging.TokenField(req.Token),
		zap.String("stage", string(score.Stage)),
		zap.Int("sections", len(restored.Sections)),
		zap.Int("attempts", attempts))

	s.record(ctx, func(ctx context.Context) error {
		return s.recorder.RecordOptimization(ctx, types.OptimizationRecord{
			Language:             restored.Language,
			SectionCount:         len(restored.Sections),
			ChangeCount:          len(restored.ChangesSummary),
			PlaceholderCount:     len(restored.Placeholders),
			OriginalATSScore:     req.OriginalATS,
			OriginalContentScore: req.OriginalContent,
			ATSScore:             score.ATS,
			ContentScore:         score.Content,
			Stage:                score.Stage,
			Attempts:             attempts,
			CreatedAt:            s.now(),
		})
	})

	s.emit(ctx, StepComplete, string(score.Stage), 0)
	return &OptimizeOutput{Result: restored, Score: score}, nil
}

func (r OptimizeRequest) validate() error {
	if strings.TrimSpace(r.Token) == "" {
		return &MalformedInputError{Field: "token", Message: "token is empty"}
	}
	if r.OriginalATS < types.MinScore || r.OriginalATS > types.MaxScore {
		return &MalformedInputError{Field: "original_ats_score", Message: fmt.Sprintf("%d out of range [%d,%d]", r.OriginalATS, types.MinScore, types.MaxScore)}
	}
	if r.OriginalContent < types.MinScore || r.OriginalContent > types.MaxScore {
		return &MalformedInputError{Field: "original_content_score", Message: fmt.Sprintf("%d out of range [%d,%d]", r.OriginalContent, types.MinScore, types.MaxScore)}
	}
	return nil
}

// reinsertContacts returns a copy of result with contact values restored in
// section contents and in the text after each change. Placeholders of fields
// that were never captured are removed, and a section left without content
// is dropped.
func reinsertContacts(result *types.OptimizationResult, contacts types.ContactRecord) *types.OptimizationResult {
	out := *result
	out.Sections = make([]types.Section, 0, len(result.Sections))
	for _, sec := range result.Sections {
		sec.Content = restore(sec.Content, contacts)
		if strings.TrimSpace(sec.Content) == "" {
			continue
		}
		out.Sections = append(out.Sections, sec)
	}
	out.ChangesSummary = make([]types.Change, len(result.ChangesSummary))
	for i, c := range result.ChangesSummary {
		c.After = restore(c.After, contacts)
		out.ChangesSummary[i] = c
	}
	out.Placeholders = append([]types.Placeholder(nil), result.Placeholders...)
	return &out
}

func restore(text string, contacts types.ContactRecord) string {
	text = anonymize.Reinsert(text, contacts)
	if anonymize.ContainsPlaceholder(text) {
		text = anonymize.StripPlaceholders(text)
	}
	return text
}

// record runs fn against the recorder, if any. Failures are logged only.
func (s *Service) record(ctx context.Context, fn func(ctx context.Context) error) {
	if s.recorder == nil {
		return
	}
	if err := fn(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("failed to record result", zap.Error(err))
	}
}

// resultLabel maps an operation error to its metrics label.
func resultLabel(err error) string {
	var (
		expired   *SessionExpiredError
		failed    *OptimizationFailedError
		malformed *MalformedInputError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &malformed):
		return "malformed_input"
	case errors.As(err, &expired):
		return "session_expired"
	case errors.As(err, &failed):
		return "optimization_failed"
	case errors.Is(err, ErrScoringUnavailable):
		return "scoring_unavailable"
	default:
		return "error"
	}
}
