package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapWrapper_RedactsSensitiveFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core)).WithFields(map[string]interface{}{"component": "oauth"})

	log.Info("quickbooks connected", map[string]interface{}{
		"access_token": "tok-123",
		"Code":         "auth-code",
		"realmId":      "realm-1",
	})

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, redacted, fields["access_token"])
	assert.Equal(t, redacted, fields["Code"])
	assert.Equal(t, "realm-1", fields["realmId"])
	assert.Equal(t, "oauth", fields["component"])
}

func TestZapWrapper_Levels(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := NewZapAdapter(zap.New(core))

	log.Debug("hidden", nil)
	log.Warn("visible", map[string]interface{}{"error": errors.New("boom"), "status": 502})
	log.WithError(errors.New("store down")).Error("failed", nil)

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
	assert.Equal(t, "boom", logs.All()[0].ContextMap()["error"])
	assert.EqualValues(t, 502, logs.All()[0].ContextMap()["status"])
	assert.Equal(t, "store down", logs.All()[1].ContextMap()["error"])
}

func TestNew_FallsBackOnBadOutput(t *testing.T) {
	l := New("debug", "json", "/nonexistent-dir/portal.log")
	assert.NotNil(t, l)
	assert.NotNil(t, NewStructured("info", "console", "stdout"))
}
