package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSecretsAreRedacted(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.With("service", "Test", "api_key", "sk-123").Warn("call failed",
		"Authorization", "Bearer abc",
		"source", "primary",
	)

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "[REDACTED]", fields["api_key"])
		assert.Equal(t, "[REDACTED]", fields["Authorization"])
		assert.Equal(t, "primary", fields["source"])
		assert.Equal(t, "Test", fields["service"])
	}
}

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"dev", "prod", ""} {
		l, err := New(mode)
		assert.NoError(t, err, mode)
		assert.NotNil(t, l)
	}
	NewNop().Info("discarded", "k", "v")
}
