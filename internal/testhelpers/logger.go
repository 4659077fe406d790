// Package testhelpers provides shared fixtures for tests.
package testhelpers

import (
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/jonesrussell/north-cloud/medgraph/internal/logger"
)

// NewTestLogger returns a debug logger that writes through t.Log.
func NewTestLogger(t *testing.T) logger.Logger {
	t.Helper()
	return logger.NewFromZap(zaptest.NewLogger(t))
}
