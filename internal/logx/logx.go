// Package logx is the Logger collaborator (spec.md §6): four levels,
// backed by go.uber.org/zap, replacing the teacher's bare
// timestamp-prefixed writeLog with structured fields.
package logx

// Logger is the four-level interface every component logs through.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}
