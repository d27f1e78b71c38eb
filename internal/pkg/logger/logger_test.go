package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerForwardsFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := Wrap(zap.New(core))

	log.Debug("snapshot written", map[string]interface{}{"prompt_id": 3, "version": 2})
	log.Warn("history gap", nil)
	log.Error("write failed", errors.New("disk full"), map[string]interface{}{"path": "/tmp/x"})

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "snapshot written", entries[0].Message)
	assert.EqualValues(t, 3, entries[0].ContextMap()["prompt_id"])
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, "disk full", entries[2].ContextMap()["error"])
}

func TestNewRespectsVerbosity(t *testing.T) {
	quiet := New(Options{})
	assert.False(t, quiet.log.Core().Enabled(zap.DebugLevel))
	assert.True(t, quiet.log.Core().Enabled(zap.WarnLevel))

	loud := New(Options{Verbose: true, JSON: true})
	assert.True(t, loud.log.Core().Enabled(zap.DebugLevel))
}
