package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/timgst1/policyd/internal/authn"
)

// Emitter stamps events with the calling subject and the current time.
// A failed publish is logged and never fails the write that caused it.
type Emitter struct {
	pub Publisher
	log *slog.Logger
	now func() time.Time
}

func NewEmitter(pub Publisher, log *slog.Logger) *Emitter {
	if log == nil {
		log = slog.Default()
	}
	if pub == nil {
		pub = NewBus(log)
	}
	return &Emitter{pub: Counted(pub), log: log, now: time.Now}
}

func (e *Emitter) Emit(ctx context.Context, typ, resourceID string, details map[string]string) {
	ev := Event{
		Type:       typ,
		ResourceID: resourceID,
		Actor:      authn.ActorFromContext(ctx),
		Time:       e.now().UTC(),
		Details:    details,
	}
	if err := e.pub.Publish(ctx, ev); err != nil {
		e.log.Warn("publish policy event failed", "type", typ, "resource_id", resourceID, "err", err)
	}
}
