package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/timgst1/policyd/internal/authn"
	"github.com/timgst1/policyd/internal/events"
)

func TestBusDeliversToSubscribers(t *testing.T) {
	bus := events.NewBus(nil)
	var got []events.Event
	bus.Subscribe(func(e events.Event) { got = append(got, e) })

	e := events.Event{Type: events.GrantValueAssigned, ResourceID: "v1", Actor: "bearer:admin", Details: map[string]string{"key_access_server_id": "k1"}}
	require.NoError(t, bus.Publish(context.Background(), e))
	require.Equal(t, []events.Event{e}, got)
}

func TestEventJSON(t *testing.T) {
	e := events.Event{Type: events.SubjectMappingCreated, ResourceID: "sm1", Actor: "system", Time: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(e.JSON(), &decoded))
	require.Equal(t, "subject_mapping.created", decoded["type"])
	require.Equal(t, "2026-01-02T03:04:05Z", decoded["time"])
	require.NotContains(t, decoded, "details")
}

func TestRecorder(t *testing.T) {
	var r events.Recorder
	require.NoError(t, r.Publish(context.Background(), events.Event{Type: events.KeyAccessServerCreated}))
	require.NoError(t, r.Publish(context.Background(), events.Event{Type: events.KeyAccessServerDeleted}))
	require.Equal(t, []string{events.KeyAccessServerCreated, events.KeyAccessServerDeleted}, r.Types())
}

func TestEmitterStampsActor(t *testing.T) {
	rec := &events.Recorder{}
	em := events.NewEmitter(rec, nil)

	ctx := authn.WithSubject(context.Background(), authn.Subject{Kind: "token", Name: "ops"})
	em.Emit(ctx, events.GrantValueAssigned, "v1", map[string]string{"key_access_server_id": "k1"})

	got := rec.Events()
	require.Len(t, got, 1)
	require.Equal(t, "token:ops", got[0].Actor)
	require.Equal(t, "k1", got[0].Details["key_access_server_id"])
	require.False(t, got[0].Time.IsZero())
}
