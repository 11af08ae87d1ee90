// SPDX-License-Identifier: Apache-2.0

// Package qaillog provides the structured logging conventions shared by
// pkg/shadow, pkg/outbox, and cmd/: a pterm-backed Logger for
// key/value structured events, and a pterm-based human report writer
// for CLI output.
package qaillog

import "github.com/pterm/pterm"

// Logger is the structured event sink used by long-running components
// (shadow orchestration, the outbox worker). Implementations must be
// safe for concurrent use.
type Logger interface {
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

type ptermLogger struct {
	logger pterm.Logger
}

// New returns a Logger backed by pterm's default structured logger.
func New() Logger {
	return &ptermLogger{logger: pterm.DefaultLogger}
}

func (l *ptermLogger) Info(msg string, kv ...any) {
	l.logger.Info(msg, l.logger.Args(kv...))
}

func (l *ptermLogger) Warn(msg string, kv ...any) {
	l.logger.Warn(msg, l.logger.Args(kv...))
}

func (l *ptermLogger) Error(msg string, kv ...any) {
	l.logger.Error(msg, l.logger.Args(kv...))
}

type noopLogger struct{}

// NewNoop returns a Logger that discards every event, for tests.
func NewNoop() Logger { return &noopLogger{} }

func (*noopLogger) Info(msg string, kv ...any)  {}
func (*noopLogger) Warn(msg string, kv ...any)  {}
func (*noopLogger) Error(msg string, kv ...any) {}

// Step prints one numbered step of a multi-step CLI operation, e.g.
// "[2/4] Applying migration to shadow...".
func Step(n, total int, msg string) {
	pterm.Info.Printfln("[%d/%d] %s", n, total, msg)
}

// Success prints a green checkmark line.
func Success(format string, args ...any) {
	pterm.Success.Printfln(format, args...)
}

// Warn prints a yellow warning line.
func Warn(format string, args ...any) {
	pterm.Warning.Printfln(format, args...)
}
