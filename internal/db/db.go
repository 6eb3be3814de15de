// Package db provides PostgreSQL persistence for analysis and optimization
// summaries. Only scores, stages and counts are stored; document text and
// contact values never reach the database.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/resume-optimizer/internal/types"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// RecordAnalysis stores the summary of one analysis.
func (db *DB) RecordAnalysis(ctx context.Context, rec types.AnalysisRecord) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO analyses (id, language, ats_score, content_score, tip_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New(), rec.Language, rec.ATSScore, rec.ContentScore, rec.TipCount, createdAt(rec.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to record analysis: %w", err)
	}
	return nil
}

// RecordOptimization stores the summary of one optimization. Unscored
// results are stored with NULL scores.
func (db *DB) RecordOptimization(ctx context.Context, rec types.OptimizationRecord) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO optimizations (
			id, language, section_count, change_count, placeholder_count,
			original_ats_score, original_content_score, ats_score, content_score,
			stage, attempts, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		uuid.New(), rec.Language, rec.SectionCount, rec.ChangeCount, rec.PlaceholderCount,
		rec.OriginalATSScore, rec.OriginalContentScore, rec.ATSScore, rec.ContentScore,
		string(rec.Stage), rec.Attempts, createdAt(rec.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to record optimization: %w", err)
	}
	return nil
}

// StageSummary counts optimizations per reconciliation stage.
type StageSummary struct {
	Stage types.Stage `json:"stage"`
	Count int         `json:"count"`
	// AvgATSGain is the mean reported ATS gain over the original; nil for unscored rows.
	AvgATSGain     *float64 `json:"avg_ats_gain,omitempty"`
	AvgContentGain *float64 `json:"avg_content_gain,omitempty"`
}

// SummarizeStages aggregates the optimizations created at or after since.
func (db *DB) SummarizeStages(ctx context.Context, since time.Time) ([]StageSummary, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT stage, COUNT(*),
		        AVG(ats_score - original_ats_score)::float8,
		        AVG(content_score - original_content_score)::float8
		 FROM optimizations
		 WHERE created_at >= $1
		 GROUP BY stage
		 ORDER BY stage`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize stages: %w", err)
	}
	defer rows.Close()

	var out []StageSummary
	for rows.Next() {
		var (
			s     StageSummary
			stage string
		)
		if err := rows.Scan(&stage, &s.Count, &s.AvgATSGain, &s.AvgContentGain); err != nil {
			return nil, fmt.Errorf("failed to scan stage summary: %w", err)
		}
		s.Stage = types.Stage(stage)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stage summaries: %w", err)
	}
	return out, nil
}

func createdAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
