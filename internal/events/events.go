// Package events publishes policy change notifications. Key access servers
// and other consumers subscribe to learn about new grants and mappings
// without polling the policy API.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/timgst1/policyd/internal/observability"
)

// Event types. They double as NATS subject suffixes.
const (
	NamespaceCreated     = "namespace.created"
	NamespaceUpdated     = "namespace.updated"
	NamespaceDeactivated = "namespace.deactivated"

	AttributeCreated     = "attribute.created"
	AttributeUpdated     = "attribute.updated"
	AttributeDeactivated = "attribute.deactivated"

	ValueCreated     = "value.created"
	ValueUpdated     = "value.updated"
	ValueDeactivated = "value.deactivated"

	KeyAccessServerCreated = "kas.created"
	KeyAccessServerUpdated = "kas.updated"
	KeyAccessServerDeleted = "kas.deleted"

	GrantAttributeAssigned = "grant.attribute.assigned"
	GrantAttributeRemoved  = "grant.attribute.removed"
	GrantValueAssigned     = "grant.value.assigned"
	GrantValueRemoved      = "grant.value.removed"

	SubjectConditionSetCreated = "subject_condition_set.created"
	SubjectConditionSetUpdated = "subject_condition_set.updated"
	SubjectConditionSetDeleted = "subject_condition_set.deleted"

	SubjectMappingCreated = "subject_mapping.created"
	SubjectMappingUpdated = "subject_mapping.updated"
	SubjectMappingDeleted = "subject_mapping.deleted"
)

type Event struct {
	Type       string            `json:"type"`
	ResourceID string            `json:"resource_id"`
	Actor      string            `json:"actor"`
	Time       time.Time         `json:"time"`
	Details    map[string]string `json:"details,omitempty"`
}

func (e Event) JSON() []byte {
	b, _ := json.Marshal(e)
	return b
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Bus is an in-process Publisher used when no broker is configured and in
// tests. Subscribers run synchronously on the publishing goroutine.
type Bus struct {
	mu   sync.RWMutex
	subs []func(Event)
	log  *slog.Logger
}

func NewBus(log *slog.Logger) *Bus {
	if log == nil {
		log = slog.Default()
	}
	return &Bus{log: log}
}

func (b *Bus) Subscribe(fn func(Event)) {
	b.mu.Lock()
	b.subs = append(b.subs, fn)
	b.mu.Unlock()
}

func (b *Bus) Publish(_ context.Context, e Event) error {
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()

	b.log.Debug("policy event", "type", e.Type, "resource_id", e.ResourceID, "actor", e.Actor)
	for _, fn := range subs {
		fn(e)
	}
	return nil
}

// Recorder collects events; handy for asserting on what a call published.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types lists the recorded event types in order.
func (r *Recorder) Types() []string {
	var out []string
	for _, e := range r.Events() {
		out = append(out, e.Type)
	}
	return out
}

type counted struct {
	next Publisher
}

// Counted wraps p so that every publish attempt shows up in
// policyd_events_published_total.
func Counted(p Publisher) Publisher {
	return counted{next: p}
}

func (c counted) Publish(ctx context.Context, e Event) error {
	err := c.next.Publish(ctx, e)
	result := "ok"
	if err != nil {
		result = "error"
	}
	observability.EventsPublished.WithLabelValues(e.Type, result).Inc()
	return err
}
