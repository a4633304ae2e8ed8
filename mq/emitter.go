package mq

import (
	"context"
	"time"
)

// Event names emitted by the domain packages.
const (
	BatchOpened        = "batch.opened"
	BatchClosed        = "batch.closed"
	BatchConflict      = "batch.conflict"
	InputLogged        = "input.logged"
	HarvestLogged      = "harvest.logged"
	HarvestTransported = "harvest.transported"
	IdentityRollback   = "identity.rollback"
)

type Index struct {
	EntityType string    `json:"entity_type"`
	Method     string    `json:"method"`
	EntityId   string    `json:"entity_id"`
	OwnerId    string    `json:"owner_id"`
	ZoneId     string    `json:"zone_id,omitempty"`
	BatchId    string    `json:"batch_id,omitempty"`
	Action     string    `json:"action,omitempty"`
	Date       time.Time `json:"date"`
}

// Emitter receives domain events. Emit must not block on slow consumers and
// its failure never fails the operation that produced the event.
type Emitter interface {
	Emit(ctx context.Context, eventName string, content Index)
}

type Nop struct{}

func (Nop) Emit(context.Context, string, Index) {}

// Fanout delivers every event to each emitter in order.
type Fanout []Emitter

func (f Fanout) Emit(ctx context.Context, eventName string, content Index) {
	for _, e := range f {
		e.Emit(ctx, eventName, content)
	}
}

// Recorder keeps emitted events in memory.
type Recorder struct {
	Events []Recorded
}

type Recorded struct {
	Name    string
	Content Index
}

func (r *Recorder) Emit(_ context.Context, eventName string, content Index) {
	r.Events = append(r.Events, Recorded{Name: eventName, Content: content})
}

func (r *Recorder) Names() []string {
	names := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		names = append(names, e.Name)
	}
	return names
}
