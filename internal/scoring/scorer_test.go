package scoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-optimizer/internal/llm"
	"github.com/jonathan/resume-optimizer/internal/metrics"
	"github.com/jonathan/resume-optimizer/internal/retry"
	"github.com/jonathan/resume-optimizer/internal/types"
)

// MockLLMClient implements llm.Client for testing
type MockLLMClient struct {
	GenerateJSONFunc func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
}

func (m *MockLLMClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return "", nil
}

func (m *MockLLMClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, prompt, tier)
	}
	return analysisJSON(70, 60), nil
}

func (m *MockLLMClient) GetModel(tier llm.ModelTier) string { return "mock-model" }

func (m *MockLLMClient) Close() error { return nil }

// analysisJSON builds a valid response with two categories per axis.
func analysisJSON(ats, content int) string {
	return fmt.Sprintf(`{
  "language": "de",
  "ats_score": {"total": %d, "categories": {
    "struktur": {"score": %d, "max": 50, "reasoning": "klar gegliedert"},
    "keywords": {"score": %d, "max": 50, "reasoning": "gute Abdeckung"}}},
  "content_score": {"total": %d, "categories": {
    "wirkung": {"score": %d, "max": 50, "reasoning": "Ergebnisse fehlen"},
    "sprache": {"score": %d, "max": 50, "reasoning": "präzise"}}},
  "tips": [
    {"title": "Zahlen nennen", "description": "Ergebnisse quantifizieren"},
    {"title": "Aktive Verben", "description": "Mit Verben beginnen"},
    {"title": "Kürzen", "description": "Auf zwei Seiten begrenzen"}
  ]
}`, ats, ats/2, ats-ats/2, content, content/2, content-content/2)
}

func TestLLMScorer_Success(t *testing.T) {
	var gotPrompt string
	var gotTier llm.ModelTier
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, prompt string, tier llm.ModelTier) (string, error) {
			gotPrompt, gotTier = prompt, tier
			return "```json\n" + analysisJSON(72, 64) + "\n```", nil
		},
	}

	result, err := NewLLMScorer(client).Score(context.Background(), "[NAME]\nBerufserfahrung")
	require.NoError(t, err)

	assert.Equal(t, llm.TierAdvanced, gotTier)
	assert.Contains(t, gotPrompt, "[NAME]\nBerufserfahrung")
	assert.Equal(t, "de", result.Language)
	assert.Equal(t, 72, result.ATSScore.Total)
	assert.Equal(t, 64, result.ContentScore.Total)
	assert.Len(t, result.Tips, types.TipCount)
}

func TestLLMScorer_APIError(t *testing.T) {
	client := &MockLLMClient{
		GenerateJSONFunc: func(context.Context, string, llm.ModelTier) (string, error) {
			return "", errors.New("quota exceeded")
		},
	}

	_, err := NewLLMScorer(client).Score(context.Background(), "text")
	var apiErr *APICallError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestParseAnalysis(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantErr   bool
		wantTotal int
	}{
		{
			name:      "valid",
			raw:       analysisJSON(50, 40),
			wantTotal: 50,
		},
		{
			name:      "preamble is stripped",
			raw:       "Hier ist die Bewertung:\n" + analysisJSON(50, 40),
			wantTotal: 50,
		},
		{
			name:      "inconsistent total is recomputed",
			raw:       strings.Replace(analysisJSON(50, 40), `"total": 50`, `"total": 99`, 1),
			wantTotal: 50,
		},
		{
			name:    "category above max",
			raw:     strings.Replace(analysisJSON(50, 40), `"score": 25, "max": 50`, `"score": 60, "max": 50`, 1),
			wantErr: true,
		},
		{
			name:    "category sum above 100",
			raw:     strings.Replace(analysisJSON(50, 40), `"struktur": {"score": 25, "max": 50`, `"struktur": {"score": 80, "max": 80`, 1),
			wantErr: true,
		},
		{
			name:    "missing tips",
			raw:     `{"language":"de","ats_score":{"total":1,"categories":{"a":{"score":1,"max":1}}},"content_score":{"total":1,"categories":{"a":{"score":1,"max":1}}}}`,
			wantErr: true,
		},
		{
			name:    "missing language",
			raw:     strings.Replace(analysisJSON(50, 40), `"language": "de",`, ``, 1),
			wantErr: true,
		},
		{
			name:    "malformed",
			raw:     `{"language": "de", "ats_score": `,
			wantErr: true,
		},
		{
			name:    "refusal",
			raw:     "Ich kann das nicht bewerten.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseAnalysis(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				var ve *ValidationError
				var pe *ParseError
				assert.True(t, errors.As(err, &ve) || errors.As(err, &pe), "unexpected error type %T", err)
				return
			}
			require.NoError(t, err)
			if tt.wantTotal != 0 {
				assert.Equal(t, tt.wantTotal, result.ATSScore.Total)
			}
			assert.Equal(t, result.ATSScore.Sum(), result.ATSScore.Total)
			assert.Equal(t, result.ContentScore.Sum(), result.ContentScore.Total)
		})
	}
}

func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, AttemptTimeout: time.Second}
}

func TestRetrying_RecoversFromMalformedResponses(t *testing.T) {
	var calls int32
	client := &MockLLMClient{
		GenerateJSONFunc: func(context.Context, string, llm.ModelTier) (string, error) {
			if atomic.AddInt32(&calls, 1) < 3 {
				return `{"language": "de"`, nil
			}
			return analysisJSON(80, 75), nil
		},
	}
	m := metrics.New()

	result, err := NewRetrying(NewLLMScorer(client), fastPolicy(), nil, m).Score(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, 80, result.ATSScore.Total)
	assert.Equal(t, int32(3), calls)
}

func TestRetrying_Exhausted(t *testing.T) {
	var calls int32
	inner := ScorerFunc(func(context.Context, string) (*types.AnalysisResult, error) {
		atomic.AddInt32(&calls, 1)
		return nil, &ParseError{Message: "bad json"}
	})

	_, err := NewRetrying(inner, fastPolicy(), nil, nil).Score(context.Background(), "text")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrScoringUnavailable)
	assert.True(t, retry.IsExhausted(err))
	assert.Equal(t, int32(3), calls)
}

func TestRetrying_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRetrying(panicScorer{}, fastPolicy(), nil, nil).Score(ctx, "text")
	assert.ErrorIs(t, err, ErrScoringUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}

// panicScorer must never be reached.
type panicScorer struct{}

func (panicScorer) Score(context.Context, string) (*types.AnalysisResult, error) {
	panic("scorer must not be called with a cancelled context")
}
