// Package tangible implements the tracked-marker registry and the
// interaction engine that turns marker add/update/remove events into
// semantic tabletop events.
package tangible

import "github.com/banshee-data/tabletop/internal/event"

// Symbol ids form the fixed command vocabulary of the table. A symbol id
// denotes the role of a physical token; it is not unique per token.
const (
	SymbolRotateWheel     = 0
	SymbolSelector        = 1
	SymbolBack            = 12
	SymbolNurseMode       = 13
	SymbolViewPatientInfo = 14
	SymbolEditMedications = 15
)

// EventKind is the kind of a tracking event.
type EventKind string

const (
	KindAdded   EventKind = "add"
	KindUpdated EventKind = "update"
	KindRemoved EventKind = "remove"
)

// Valid reports whether k is one of the three known kinds.
func (k EventKind) Valid() bool {
	switch k {
	case KindAdded, KindUpdated, KindRemoved:
		return true
	}
	return false
}

// Object is the latest known pose of one physical marker. Identity is the
// transient SessionID assigned by the tracking collaborator; SymbolID is
// the persistent role of the token.
type Object struct {
	SymbolID  int
	SessionID int64
	X         float64 // normalized [0,1]
	Y         float64 // normalized [0,1]
	Angle     float64 // radians
}

// ObjectEvent is the canonical intake record: one tracking event already
// resolved to the fixed shape at the collaborator boundary.
type ObjectEvent struct {
	Kind   EventKind
	Object Object
}

// Payload converts the event to its wire republish form.
func (ev ObjectEvent) Payload() event.ObjectPayload {
	return event.ObjectPayload{
		Event:     string(ev.Kind),
		SymbolID:  ev.Object.SymbolID,
		SessionID: ev.Object.SessionID,
		X:         ev.Object.X,
		Y:         ev.Object.Y,
		Angle:     ev.Object.Angle,
	}
}

// Handler consumes canonical tracking events. The interaction engine
// implements it; intake adapters call it.
type Handler interface {
	Handle(ObjectEvent)
}

// Publisher fans an event out to all connected subscribers. The broadcast
// hub implements it.
type Publisher interface {
	Publish(v any) error
}
