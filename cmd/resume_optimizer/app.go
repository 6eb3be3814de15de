package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/resume-optimizer/internal/config"
	"github.com/jonathan/resume-optimizer/internal/db"
	"github.com/jonathan/resume-optimizer/internal/llm"
	"github.com/jonathan/resume-optimizer/internal/logging"
	"github.com/jonathan/resume-optimizer/internal/metrics"
	"github.com/jonathan/resume-optimizer/internal/optimizing"
	"github.com/jonathan/resume-optimizer/internal/pipeline"
	"github.com/jonathan/resume-optimizer/internal/scoring"
	"github.com/jonathan/resume-optimizer/internal/tokenstore"
)

// newLLMClient is replaced in tests.
var newLLMClient = llm.NewClient

// app holds the process-wide collaborators. They are built once and shared
// by every request.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	store   tokenstore.Store
	client  llm.Client
	db      *db.DB
	svc     *pipeline.Service
}

// loadConfig reads the configuration and applies the global log flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logJSON {
		cfg.Log.JSON = true
	}
	if logDebug {
		cfg.Log.Debug = true
	}
	return cfg, nil
}

// newApp wires the pipeline from cfg. The database is optional: without a
// URL nothing is recorded.
func newApp(ctx context.Context, cfg *config.Config, onProgress pipeline.ProgressCallback) (_ *app, err error) {
	logger, err := logging.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, metrics: metrics.New()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.store, err = tokenstore.Open(ctx, cfg.TokenStoreOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open token store: %w", err)
	}
	if mem, ok := a.store.(*tokenstore.MemoryStore); ok {
		a.metrics.TrackTokens(mem.Len)
	}

	if cfg.LLM.APIKey == "" {
		return nil, errors.New("an API key is required: set GEMINI_API_KEY or llm.api_key")
	}
	a.client, err = newLLMClient(ctx, cfg.LLMClientConfig(), cfg.LLM.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	var recorder pipeline.Recorder
	if cfg.DatabaseURL != "" {
		a.db, err = db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		recorder = a.db
	}

	policy := cfg.RetryPolicy()
	scorer := scoring.NewRetrying(scoring.NewLLMScorer(a.client), policy, logger, a.metrics)
	a.svc, err = pipeline.New(pipeline.Deps{
		Store:         a.store,
		Scorer:        scorer,
		Rewriter:      optimizing.NewLLMRewriter(a.client),
		RewritePolicy: policy,
		Recorder:      recorder,
		Logger:        logger,
		Metrics:       a.metrics,
		OnProgress:    onProgress,
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("application ready",
		zap.String("token_store", cfg.TokenStore.Backend),
		zap.String("model", a.client.GetModel(llm.TierAdvanced)),
		zap.Bool("database", a.db != nil))
	return a, nil
}

// Close releases everything newApp acquired.
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.client != nil {
		if err := a.client.Close(); err != nil {
			a.logger.Warn("failed to close LLM client", zap.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("failed to close token store", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
