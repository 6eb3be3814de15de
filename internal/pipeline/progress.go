package pipeline

import "context"

// Optimize steps, in the order they run.
const (
	StepLookup    = "lookup"
	StepRewrite   = "rewrite"
	StepReconcile = "reconcile"
	StepReinsert  = "reinsert"
	StepComplete  = "complete"
)

// ProgressEvent represents a progress update during Optimize.
// It never carries document text or contact values.
type ProgressEvent struct {
	Step    string `json:"step"`
	Message string `json:"message"`
	Attempt int    `json:"attempt,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

type progressKey struct{}

// WithProgress returns a context whose Optimize calls report to cb in
// addition to the service-wide callback.
func WithProgress(ctx context.Context, cb ProgressCallback) context.Context {
	return context.WithValue(ctx, progressKey{}, cb)
}

func (s *Service) emit(ctx context.Context, step, message string, attempt int) {
	event := ProgressEvent{Step: step, Message: message, Attempt: attempt}
	if s.onProgress != nil {
		s.onProgress(event)
	}
	if cb, ok := ctx.Value(progressKey{}).(ProgressCallback); ok && cb != nil {
		cb(event)
	}
}
