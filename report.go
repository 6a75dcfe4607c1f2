package gmd

import (
	"errors"

	"go.uber.org/zap"
)

// Reporter funnels converter diagnostics through zap. In strict mode every
// recoverable problem is promoted to an error, so a conversion that would
// silently lose data fails instead.
type Reporter struct {
	log    *zap.Logger
	strict bool
}

func NewReporter(log *zap.Logger, strict bool) *Reporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reporter{log: log, strict: strict}
}

// NopReporter discards everything and never fails.
func NopReporter() *Reporter {
	return NewReporter(zap.NewNop(), false)
}

func (r *Reporter) Strict() bool {
	return r.strict
}

func (r *Reporter) Debug(msg string, fields ...zap.Field) {
	r.log.Debug(msg, fields...)
}

func (r *Reporter) Info(msg string, fields ...zap.Field) {
	r.log.Info(msg, fields...)
}

// Recoverable logs a problem the conversion can survive by dropping or
// substituting data. The returned error is nil unless the reporter is
// strict.
func (r *Reporter) Recoverable(msg string, fields ...zap.Field) error {
	if r.strict {
		r.log.Error(msg, fields...)
		return errors.New(msg)
	}
	r.log.Warn(msg, fields...)
	return nil
}

// Fatal logs a problem the conversion cannot survive and always returns an
// error for the caller to propagate.
func (r *Reporter) Fatal(msg string, fields ...zap.Field) error {
	r.log.Error(msg, fields...)
	return errors.New(msg)
}
