package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Tee creates a logger that writes every entry to all provided loggers'
// cores. Used by serve to write console output to stdout and JSON to a log
// file simultaneously.
func Tee(loggers ...*zap.Logger) *zap.Logger {
	cores := make([]zapcore.Core, len(loggers))
	for i, l := range loggers {
		cores[i] = l.Core()
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}
