package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/jonathan/resume-optimizer/internal/logging"
	"github.com/jonathan/resume-optimizer/internal/pipeline"
)

// AnalyzeRequest represents the request body for /analyze
type AnalyzeRequest struct {
	Text string `json:"text"`
}

// OptimizeRequestBody represents the request body for /optimize. Scores are
// pointers so a missing field can be told apart from zero.
type OptimizeRequestBody struct {
	Token                string `json:"token"`
	OriginalATSScore     *int   `json:"original_ats_score"`
	OriginalContentScore *int   `json:"original_content_score"`
}

func (b OptimizeRequestBody) toRequest() (pipeline.OptimizeRequest, error) {
	if b.OriginalATSScore == nil {
		return pipeline.OptimizeRequest{}, &ErrValidation{Field: "original_ats_score", Message: "is required"}
	}
	if b.OriginalContentScore == nil {
		return pipeline.OptimizeRequest{}, &ErrValidation{Field: "original_content_score", Message: "is required"}
	}
	return pipeline.OptimizeRequest{
		Token:           b.Token,
		OriginalATS:     *b.OriginalATSScore,
		OriginalContent: *b.OriginalContentScore,
	}, nil
}

// handleAnalyze scores a document and returns the result with a token.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := s.decode(w, r, &req); err != nil {
		s.errorResponse(w, err)
		return
	}

	out, err := s.svc.Analyze(r.Context(), req.Text)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, out)
}

// handleOptimize redeems a token for a rewritten document.
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeOptimize(w, r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	out, err := s.svc.Optimize(r.Context(), req)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, out)
}

// handleOptimizeStream is handleOptimize with progress streamed as SSE
// "step" events, followed by one "result" or "error" event.
func (s *Server) handleOptimizeStream(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeOptimize(w, r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	ctx := pipeline.WithProgress(r.Context(), func(event pipeline.ProgressEvent) {
		if err := sse.WriteEvent("step", event); err != nil {
			s.logger.Debug("failed to write SSE event", zap.Error(err))
		}
	})

	out, err := s.svc.Optimize(ctx, req)
	if err != nil {
		body := errorBody(err)
		if HTTPStatus(err) >= http.StatusInternalServerError {
			s.logger.Warn("streamed optimization failed", zapError(err))
		}
		sse.WriteError(body)
		return
	}
	sse.WriteResult(out)
}

func (s *Server) decodeOptimize(w http.ResponseWriter, r *http.Request) (pipeline.OptimizeRequest, error) {
	var body OptimizeRequestBody
	if err := s.decode(w, r, &body); err != nil {
		return pipeline.OptimizeRequest{}, err
	}
	return body.toRequest()
}

// decode reads a single JSON object from a size-limited body.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return tooLarge
		}
		if errors.Is(err, io.EOF) {
			return &ErrValidation{Field: "body", Message: "request body is empty"}
		}
		return &ErrValidation{Field: "body", Message: "invalid JSON: " + logging.TruncateForLog(err.Error(), 200)}
	}
	if dec.More() {
		return &ErrValidation{Field: "body", Message: "unexpected data after JSON object"}
	}
	return nil
}

func zapError(err error) zap.Field {
	return zap.String("error", logging.TruncateForLog(err.Error(), 300))
}
