package tangible

import (
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/tabletop/internal/event"
	"github.com/banshee-data/tabletop/internal/monitoring"
	"github.com/banshee-data/tabletop/internal/timeutil"
)

// EngineConfig holds the tuning parameters of the interaction engine.
type EngineConfig struct {
	// Medications is the wheel sector table; its length defines the number
	// of sectors.
	Medications []string

	// ProximityThreshold is the co-location confirm distance in normalized
	// table coordinates. Strictly-less-than comparison: two markers at
	// exactly the threshold do not confirm.
	ProximityThreshold float64

	// HoverInterval throttles per-session hover emissions. Zero emits a
	// hover for every add/update event.
	HoverInterval time.Duration

	// Clock drives the hover throttle. Defaults to the real clock.
	Clock timeutil.Clock
}

// Engine applies the per-symbol reaction rules to canonical tracking
// events: it keeps the registry current, derives wheel sectors from marker
// rotation, confirms selections by token co-location, and owns the shared
// gesture-enabled flag.
type Engine struct {
	registry *Registry
	pub      Publisher
	meds     []string
	hoverGap time.Duration
	clock    timeutil.Clock

	mu             sync.Mutex
	proximity      float64
	gestureEnabled bool
	lastHover      map[int64]time.Time
}

// NewEngine creates an engine publishing through pub and tracking markers
// in registry.
func NewEngine(registry *Registry, pub Publisher, cfg EngineConfig) *Engine {
	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Engine{
		registry:  registry,
		pub:       pub,
		meds:      cfg.Medications,
		hoverGap:  cfg.HoverInterval,
		clock:     clock,
		proximity: cfg.ProximityThreshold,
		lastHover: make(map[int64]time.Time),
	}
}

// GestureEnabled reports the shared gesture-detection flag.
func (e *Engine) GestureEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gestureEnabled
}

// SetGestureEnabled sets the shared gesture-detection flag.
func (e *Engine) SetGestureEnabled(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gestureEnabled = enabled
}

// ProximityThreshold returns the current confirm distance.
func (e *Engine) ProximityThreshold() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.proximity
}

// SetProximityThreshold updates the confirm distance at runtime.
func (e *Engine) SetProximityThreshold(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.proximity = v
}

// Medications returns the wheel sector table.
func (e *Engine) Medications() []string {
	return e.meds
}

// Handle consumes one canonical tracking event. Malformed events are logged
// and dropped without touching the registry.
func (e *Engine) Handle(ev ObjectEvent) {
	if !ev.Kind.Valid() {
		monitoring.Logf("engine: dropping event with unknown kind %q (session %d)", ev.Kind, ev.Object.SessionID)
		return
	}

	switch ev.Kind {
	case KindAdded, KindUpdated:
		e.registry.Upsert(ev.Object)
	case KindRemoved:
		e.registry.Remove(ev.Object.SessionID)
		e.mu.Lock()
		delete(e.lastHover, ev.Object.SessionID)
		e.mu.Unlock()
	}

	e.publish(event.NewTuioObject(ev.Payload()))

	switch ev.Object.SymbolID {
	case SymbolRotateWheel:
		e.handlePatientWheel(ev)
	case SymbolNurseMode:
		e.handleNurseWheel(ev)
	case SymbolBack:
		if ev.Kind == KindAdded {
			e.SetGestureEnabled(false)
			e.publish(event.NewBackPressed())
		}
	case SymbolEditMedications:
		if ev.Kind == KindAdded {
			e.handleGestureToggle(ev.Object)
		}
	}
}

// handlePatientWheel runs the patient-mode wheel rules.
func (e *Engine) handlePatientWheel(ev ObjectEvent) {
	obj := ev.Object
	if ev.Kind == KindRemoved {
		return
	}

	if ev.Kind == KindAdded {
		e.publish(event.NewWheelOpen(obj.X, obj.Y))
	}

	sector, angle := e.sectorFor(obj.Angle)
	medication := e.meds[sector]

	if e.hoverDue(obj.SessionID) {
		e.publish(event.NewWheelHover(sector, angle, obj.X, obj.Y, medication))
	}

	if _, ok := e.findNearby(obj, SymbolSelector); ok {
		e.publish(event.NewWheelSelectConfirm(sector, medication))
	}
}

// handleNurseWheel runs the nurse-mode wheel rules.
func (e *Engine) handleNurseWheel(ev ObjectEvent) {
	obj := ev.Object
	if ev.Kind == KindRemoved {
		return
	}

	if ev.Kind == KindAdded {
		e.publish(event.NewNurseWheelOpen(obj.X, obj.Y))
	}

	sector, angle := e.sectorFor(obj.Angle)
	medication := e.meds[sector]

	if e.hoverDue(obj.SessionID) {
		e.publish(event.NewNurseWheelHover(sector, angle, obj.X, obj.Y, medication))
	}

	if _, ok := e.findNearby(obj, SymbolViewPatientInfo); ok {
		e.publish(event.NewNurseWheelSelect(sector, medication))
	}
	if _, ok := e.findNearby(obj, SymbolEditMedications); ok {
		e.publish(event.NewNurseEditMedSelect(sector, medication))
	}
}

// handleGestureToggle enables gesture detection when the edit-medications
// token is placed on its own, away from a nurse-mode token.
func (e *Engine) handleGestureToggle(obj Object) {
	if _, ok := e.findNearby(obj, SymbolNurseMode); ok {
		return
	}
	e.SetGestureEnabled(true)
	e.publish(event.NewGestureModeToggled(true))
}

// sectorFor normalizes the angle into [0,2π) and maps it onto one of the
// N equal wheel sectors, sector 0 starting at angle 0.
func (e *Engine) sectorFor(angle float64) (int, float64) {
	n := len(e.meds)
	theta := math.Mod(angle, 2*math.Pi)
	if theta < 0 {
		theta += 2 * math.Pi
	}
	sector := int(theta/(2*math.Pi)*float64(n)) % n
	return sector, theta
}

// findNearby scans a registry snapshot for a marker of the given role
// strictly within the proximity threshold of obj. The snapshot is taken
// before any distance work so the registry lock is never held here.
func (e *Engine) findNearby(obj Object, symbolID int) (Object, bool) {
	threshold := e.ProximityThreshold()
	origin := r2.Vec{X: obj.X, Y: obj.Y}
	for _, other := range e.registry.Snapshot() {
		if other.SymbolID != symbolID || other.SessionID == obj.SessionID {
			continue
		}
		d := r2.Norm(r2.Sub(r2.Vec{X: other.X, Y: other.Y}, origin))
		if d < threshold {
			return other, true
		}
	}
	return Object{}, false
}

// hoverDue reports whether a hover event should be emitted for the session,
// applying the optional per-session throttle.
func (e *Engine) hoverDue(sessionID int64) bool {
	if e.hoverGap <= 0 {
		return true
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.clock.Now()
	if last, ok := e.lastHover[sessionID]; ok && now.Sub(last) < e.hoverGap {
		return false
	}
	e.lastHover[sessionID] = now
	return true
}

func (e *Engine) publish(v any) {
	if err := e.pub.Publish(v); err != nil {
		monitoring.Logf("engine: publish failed: %v", err)
	}
}
