//go:build integration

package db

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jonathan/resume-optimizer/internal/types"
)

// setupTestDB uses DATABASE_URL when set, otherwise a throwaway postgres
// container, and applies the migrations.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "postgres:16-alpine",
				ExposedPorts: []string{"5432/tcp"},
				Env: map[string]string{
					"POSTGRES_USER":     "resume",
					"POSTGRES_PASSWORD": "resume_dev",
					"POSTGRES_DB":       "resume_optimizer",
				},
				WaitingFor: wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60 * time.Second),
			},
			Started: true,
		})
		require.NoError(t, err, "postgres container")
		t.Cleanup(func() { _ = c.Terminate(ctx) })

		host, err := c.Host(ctx)
		require.NoError(t, err)
		port, err := c.MappedPort(ctx, "5432")
		require.NoError(t, err)
		dbURL = fmt.Sprintf("postgres://resume:resume_dev@%s:%s/resume_optimizer?sslmode=disable", host, port.Port())
	}

	require.NoError(t, Migrate(dbURL, DirectionUp, 0))

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	db, err := Connect(connectCtx, dbURL)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	_, err = db.pool.Exec(ctx, `TRUNCATE analyses, optimizations`)
	require.NoError(t, err)
	return db
}

func TestMigrate_Idempotent_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	db := setupTestDB(t)
	require.NoError(t, db.Ping(context.Background()))

	url := db.pool.Config().ConnString()
	assert.NoError(t, Migrate(url, DirectionUp, 0), "second up is a no-op")
}

func TestRecordAnalysis_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	db := setupTestDB(t)
	ctx := context.Background()

	err := db.RecordAnalysis(ctx, types.AnalysisRecord{Language: "de", ATSScore: 61, ContentScore: 54, TipCount: 3})
	require.NoError(t, err)

	var ats, content int
	err = db.pool.QueryRow(ctx, `SELECT ats_score, content_score FROM analyses`).Scan(&ats, &content)
	require.NoError(t, err)
	assert.Equal(t, 61, ats)
	assert.Equal(t, 54, content)

	err = db.RecordAnalysis(ctx, types.AnalysisRecord{Language: "de", ATSScore: 101, ContentScore: 0})
	assert.Error(t, err, "check constraint rejects out-of-range scores")
}

func TestSummarizeStages_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	ptr := func(v int) *int { return &v }
	records := []types.OptimizationRecord{
		{Language: "de", SectionCount: 4, OriginalATSScore: 60, OriginalContentScore: 55, ATSScore: ptr(70), ContentScore: ptr(65), Stage: types.StageAccepted, Attempts: 1, CreatedAt: now},
		{Language: "de", SectionCount: 4, OriginalATSScore: 60, OriginalContentScore: 55, ATSScore: ptr(64), ContentScore: ptr(57), Stage: types.StageAccepted, Attempts: 2, CreatedAt: now},
		{Language: "en", SectionCount: 3, OriginalATSScore: 40, OriginalContentScore: 40, Stage: types.StageUnscored, Attempts: 1, CreatedAt: now},
		{Language: "en", SectionCount: 3, OriginalATSScore: 40, OriginalContentScore: 40, ATSScore: ptr(41), ContentScore: ptr(41), Stage: types.StageAccepted, CreatedAt: now.Add(-48 * time.Hour)},
	}
	for _, rec := range records {
		require.NoError(t, db.RecordOptimization(ctx, rec))
	}

	summary, err := db.SummarizeStages(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, summary, 2)

	assert.Equal(t, types.StageAccepted, summary[0].Stage)
	assert.Equal(t, 2, summary[0].Count)
	require.NotNil(t, summary[0].AvgATSGain)
	assert.InDelta(t, 7.0, *summary[0].AvgATSGain, 0.001)
	assert.InDelta(t, 6.0, *summary[0].AvgContentGain, 0.001)

	assert.Equal(t, types.StageUnscored, summary[1].Stage)
	assert.Equal(t, 1, summary[1].Count)
	assert.Nil(t, summary[1].AvgATSGain)
}
