package tracing

import (
	"go.uber.org/zap"
)

// LogTracer writes every operation into a structured log at debug level.
type LogTracer struct {
	logger *zap.Logger
}

// NewLogTracer creates a LogTracer.
func NewLogTracer(logger *zap.Logger) *LogTracer {
	return &LogTracer{logger: logger}
}

// StartOperation logs the beginning of an operation.
func (t *LogTracer) StartOperation(op Operation) {
	t.logger.Debug("operation begin",
		zap.String("operation", op.ID),
		zap.String("parent", op.ParentID),
		zap.Int("depth", op.Depth),
	)
}

// EndOperation logs the end of an operation with its timing.
func (t *LogTracer) EndOperation(op Operation) {
	t.logger.Debug("operation end",
		zap.String("operation", op.ID),
		zap.String("parent", op.ParentID),
		zap.Int("depth", op.Depth),
		zap.Duration("elapsed", op.Elapsed),
		zap.Duration("self", op.SelfTime),
	)
}
