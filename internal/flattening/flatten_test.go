package flattening_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/timgst1/policyd/internal/flattening"
)

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	return m
}

func TestFlattenNested(t *testing.T) {
	m := decode(t, `{
		"email": "alice@example.com",
		"groups": ["eng", "ops"],
		"address": {"country": "DE", "zip": 10115},
		"roles": [{"name": "admin"}, {"name": "viewer"}],
		"verified": true
	}`)

	f, err := flattening.Flatten(m)
	require.NoError(t, err)

	require.Equal(t, []any{"alice@example.com"}, flattening.GetFromFlattened(f, ".email"))
	require.Equal(t, []any{"eng", "ops"}, flattening.GetFromFlattened(f, ".groups[]"))
	require.Equal(t, []any{"ops"}, flattening.GetFromFlattened(f, ".groups[1]"))
	require.Equal(t, []any{"DE"}, flattening.GetFromFlattened(f, "address.country"))
	require.Equal(t, []any{float64(10115)}, flattening.GetFromFlattened(f, ".address.zip"))
	require.Equal(t, []any{"admin", "viewer"}, flattening.GetFromFlattened(f, ".roles[].name"))
	require.Equal(t, []any{true}, flattening.GetFromFlattened(f, ".verified"))
	require.Empty(t, flattening.GetFromFlattened(f, ".missing"))
}

func TestFlattenIsDeterministic(t *testing.T) {
	m := decode(t, `{"b": 1, "a": {"d": 2, "c": 3}}`)
	f1, err := flattening.Flatten(m)
	require.NoError(t, err)
	f2, err := flattening.Flatten(m)
	require.NoError(t, err)
	require.Equal(t, f1, f2)

	keys := make([]string, 0, len(f1.Items))
	for _, it := range f1.Items {
		keys = append(keys, it.Key)
	}
	require.Equal(t, []string{".a.c", ".a.d", ".b"}, keys)
}

func TestFlattenTypedCollections(t *testing.T) {
	f, err := flattening.Flatten(map[string]any{
		"groups": []string{"x", "y"},
		"claims": map[string]string{"tier": "gold"},
	})
	require.NoError(t, err)
	require.Equal(t, []any{"x", "y"}, flattening.GetFromFlattened(f, ".groups[]"))
	require.Equal(t, []any{"gold"}, flattening.GetFromFlattened(f, ".claims.tier"))
}

func TestFlattenRejectsUnsupportedTypes(t *testing.T) {
	_, err := flattening.Flatten(map[string]any{"ch": make(chan int)})
	require.Error(t, err)
}
