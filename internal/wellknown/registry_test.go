package wellknown_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/timgst1/policyd/internal/wellknown"
)

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := wellknown.NewRegistry()
	require.NoError(t, r.Register("platform_issuer", "https://idp.example.com"))
	require.Error(t, r.Register("platform_issuer", "https://other.example.com"))
	require.Error(t, r.Register("", 1))

	require.Equal(t, map[string]any{"platform_issuer": "https://idp.example.com"}, r.Configuration())
}

func TestFingerprintIsStableAndSensitive(t *testing.T) {
	a := wellknown.NewRegistry()
	require.NoError(t, a.Register("health", map[string]any{"endpoint": "/healthz"}))
	require.NoError(t, a.Register("grpc", map[string]any{"address": "0.0.0.0:9090"}))

	b := wellknown.NewRegistry()
	require.NoError(t, b.Register("grpc", map[string]any{"address": "0.0.0.0:9090"}))
	require.NoError(t, b.Register("health", map[string]any{"endpoint": "/healthz"}))

	fa, err := a.Fingerprint()
	require.NoError(t, err)
	fb, err := b.Fingerprint()
	require.NoError(t, err)
	require.Equal(t, fa, fb)
	require.Len(t, fa, 64)

	require.NoError(t, b.Register("platform_issuer", "https://idp.example.com"))
	fc, err := b.Fingerprint()
	require.NoError(t, err)
	require.NotEqual(t, fa, fc)
}
