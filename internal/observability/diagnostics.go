package observability

import (
	"context"

	"go.uber.org/zap"
)

// Reporter is the diagnostics sink for failures that must not go unnoticed.
// A nil *Reporter discards reports.
type Reporter struct {
	logger  *zap.Logger
	metrics *Metrics
}

// NewReporter builds a reporter writing to logger and metrics.
func NewReporter(logger *zap.Logger, metrics *Metrics) *Reporter {
	return &Reporter{logger: logger, metrics: metrics}
}

// Report records err as a failure of component.
func (r *Reporter) Report(_ context.Context, component string, err error, fields ...zap.Field) {
	if r == nil || err == nil {
		return
	}
	r.metrics.RecordFailure(component)
	if r.logger != nil {
		r.logger.Error("failure reported",
			append([]zap.Field{zap.String("component", component), zap.Error(err)}, fields...)...)
	}
}
