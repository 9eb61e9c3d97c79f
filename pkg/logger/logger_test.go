package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(log *Logger) *bytes.Buffer {
	buf := &bytes.Buffer{}
	log.entry.Logger.SetOutput(buf)
	return buf
}

func TestNew_JSONFormat(t *testing.T) {
	log := New(LoggingConfig{Level: "debug", Format: "json", Output: "stdout"})
	buf := capture(log)

	log.WithField("product_id", "p1").Info("published")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "published", line["msg"])
	assert.Equal(t, "p1", line["product_id"])
	assert.Equal(t, "info", line["level"])
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	log := New(LoggingConfig{Level: "loud", Format: "text", Output: "stdout"})
	buf := capture(log)

	log.Debug("should be suppressed")
	assert.Empty(t, buf.String())

	log.Info("should appear")
	assert.Contains(t, buf.String(), "should appear")
}

func TestWithFieldsChainDoesNotMutateParent(t *testing.T) {
	log := New(LoggingConfig{Level: "info", Format: "json", Output: "stdout"})
	child := log.WithFields(map[string]any{"service": "wallet"}).WithError(errors.New("boom"))

	buf := capture(log)
	log.Info("parent")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.NotContains(t, line, "service")
	assert.NotContains(t, line, "error")

	buf.Reset()
	child.Warn("child")
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "wallet", line["service"])
	assert.Equal(t, "boom", line["error"])
}

func TestNewDefault_TagsComponent(t *testing.T) {
	log := NewDefault("stocksync")
	buf := capture(log)
	log.entry.Logger.SetFormatter(&logrus.JSONFormatter{})

	log.Info("resync completed")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "stocksync", line["component"])
}
