package observability_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/timgst1/policyd/internal/observability"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := observability.NewLogger("debug", "json", &buf)
	require.NoError(t, err)

	log.Debug("hello", "k", "v")
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "hello", rec["msg"])
	require.Equal(t, "v", rec["k"])
}

func TestNewLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := observability.NewLogger("warn", "text", &buf)
	require.NoError(t, err)

	log.Info("quiet")
	require.Zero(t, buf.Len())
	log.Warn("loud")
	require.Contains(t, buf.String(), "loud")
}

func TestNewLoggerRejectsUnknownSettings(t *testing.T) {
	_, err := observability.NewLogger("verbose", "json", &bytes.Buffer{})
	require.Error(t, err)
	_, err = observability.NewLogger("info", "xml", &bytes.Buffer{})
	require.Error(t, err)
}
