// SPDX-License-Identifier: Apache-2.0

package qaillog

import "testing"

func TestNoopLoggerDiscardsEverything(t *testing.T) {
	l := NewNoop()
	l.Info("hello", "k", "v")
	l.Warn("careful", "k", "v")
	l.Error("broke", "k", "v")
}

func TestNewReturnsPtermBackedLogger(t *testing.T) {
	l := New()
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	l.Info("ready")
}
