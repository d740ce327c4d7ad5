package tangible

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tabletop/internal/event"
	"github.com/banshee-data/tabletop/internal/timeutil"
)

var testMedications = []string{
	"Paracetamol",
	"Amoxicillin",
	"Aspirin",
	"Metformin",
	"Lisinopril",
	"Atorvastatin",
}

// capturePublisher records everything published, in order.
type capturePublisher struct {
	mu     sync.Mutex
	events []any
}

func (p *capturePublisher) Publish(v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, v)
	return nil
}

func (p *capturePublisher) all() []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]any, len(p.events))
	copy(out, p.events)
	return out
}

func (p *capturePublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

func newTestEngine(t *testing.T) (*Engine, *Registry, *capturePublisher) {
	t.Helper()
	reg := NewRegistry()
	pub := &capturePublisher{}
	eng := NewEngine(reg, pub, EngineConfig{
		Medications:        testMedications,
		ProximityThreshold: 0.08,
	})
	return eng, reg, pub
}

func TestSectorComputation(t *testing.T) {
	t.Parallel()

	eng, _, _ := newTestEngine(t)

	tests := []struct {
		angle  float64
		sector int
	}{
		{0, 0},
		{0.01, 0},
		{math.Pi/3 + 0.01, 1},
		{math.Pi - 0.01, 2},
		{math.Pi, 3},
		{4*math.Pi/3 + 0.01, 4},
		{5*math.Pi/3 + 0.01, 5},
		{2*math.Pi - 1e-9, 5},
		{2 * math.Pi, 0},                  // wraps at a full revolution
		{2*math.Pi + math.Pi/3 + 0.01, 1}, // second revolution
		{-0.1, 5},                         // negative angles normalize into [0,2π)
	}

	for _, tt := range tests {
		sector, theta := eng.sectorFor(tt.angle)
		assert.Equal(t, tt.sector, sector, "angle %v", tt.angle)
		assert.GreaterOrEqual(t, theta, 0.0)
		assert.Less(t, theta, 2*math.Pi)
	}

	// Non-decreasing within one revolution.
	prev := -1
	for theta := 0.0; theta < 2*math.Pi; theta += 0.01 {
		sector, _ := eng.sectorFor(theta)
		assert.GreaterOrEqual(t, sector, prev, "sector decreased at angle %v", theta)
		prev = sector
	}
}

func TestPatientWheelOpenAndHover(t *testing.T) {
	t.Parallel()

	eng, _, pub := newTestEngine(t)

	eng.Handle(ObjectEvent{Kind: KindAdded, Object: Object{
		SymbolID: SymbolRotateWheel, SessionID: 1, X: 0.4, Y: 0.6, Angle: 0,
	}})

	events := pub.all()
	require.Len(t, events, 3)

	tuio, ok := events[0].(event.TuioObject)
	require.True(t, ok, "first event must be the tuio_obj republish, got %T", events[0])
	assert.Equal(t, "add", tuio.Payload.Event)

	open, ok := events[1].(event.WheelOpen)
	require.True(t, ok, "got %T", events[1])
	assert.Equal(t, 0.4, open.X)
	assert.Equal(t, 0.6, open.Y)
	assert.Equal(t, "patient", open.Marker)

	hover, ok := events[2].(event.WheelHover)
	require.True(t, ok, "got %T", events[2])
	assert.Equal(t, 0, hover.Sector)
	assert.Equal(t, "Paracetamol", hover.Medication)
	assert.Equal(t, "patient", hover.Marker)
}

func TestPatientWheelUpdateEmitsHoverOnly(t *testing.T) {
	t.Parallel()

	eng, _, pub := newTestEngine(t)

	eng.Handle(ObjectEvent{Kind: KindAdded, Object: Object{
		SymbolID: SymbolRotateWheel, SessionID: 1, Angle: 0,
	}})
	pub.reset()

	eng.Handle(ObjectEvent{Kind: KindUpdated, Object: Object{
		SymbolID: SymbolRotateWheel, SessionID: 1, Angle: math.Pi,
	}})

	events := pub.all()
	require.Len(t, events, 2)
	assert.IsType(t, event.TuioObject{}, events[0])
	hover, ok := events[1].(event.WheelHover)
	require.True(t, ok, "got %T", events[1])
	assert.Equal(t, 3, hover.Sector)
	assert.Equal(t, "Metformin", hover.Medication)
}

func TestSelectorProximityConfirm(t *testing.T) {
	t.Parallel()

	t.Run("selector within threshold confirms", func(t *testing.T) {
		t.Parallel()
		eng, _, pub := newTestEngine(t)

		eng.Handle(ObjectEvent{Kind: KindAdded, Object: Object{
			SymbolID: SymbolSelector, SessionID: 2, X: 0.55, Y: 0.5,
		}})
		pub.reset()

		// Distance 0.05, strictly below the 0.08 threshold.
		eng.Handle(ObjectEvent{Kind: KindAdded, Object: Object{
			SymbolID: SymbolRotateWheel, SessionID: 1, X: 0.5, Y: 0.5, Angle: 0,
		}})

		events := pub.all()
		require.Len(t, events, 4)
		confirm, ok := events[3].(event.WheelSelectConfirm)
		require.True(t, ok, "got %T", events[3])
		assert.Equal(t, 0, confirm.Sector)
		assert.Equal(t, "Paracetamol", confirm.Medication)
	})

	t.Run("distance exactly at threshold does not confirm", func(t *testing.T) {
		t.Parallel()
		eng, _, pub := newTestEngine(t)

		// Distance is the threshold value itself, bit for bit: the wheel
		// sits at the origin so no subtraction error creeps in.
		eng.Handle(ObjectEvent{Kind: KindAdded, Object: Object{
			SymbolID: SymbolSelector, SessionID: 2, X: 0.08, Y: 0,
		}})
		pub.reset()

		eng.Handle(ObjectEvent{Kind: KindAdded, Object: Object{
			SymbolID: SymbolRotateWheel, SessionID: 1, X: 0, Y: 0, Angle: 0,
		}})

		for _, ev := range pub.all() {
			_, isConfirm := ev.(event.WheelSelectConfirm)
			assert.False(t, isConfirm, "confirm must not fire at exactly the threshold")
		}
	})

	t.Run("removed selector no longer confirms", func(t *testing.T) {
		t.Parallel()
		eng, _, pub := newTestEngine(t)

		eng.Handle(ObjectEvent{Kind: KindAdded, Object: Object{
			SymbolID: SymbolSelector, SessionID: 2, X: 0.52, Y: 0.5,
		}})
		eng.Handle(ObjectEvent{Kind: KindRemoved, Object: Object{
			SymbolID: SymbolSelector, SessionID: 2,
		}})
		pub.reset()

		eng.Handle(ObjectEvent{Kind: KindUpdated, Object: Object{
			SymbolID: SymbolRotateWheel, SessionID: 1, X: 0.5, Y: 0.5, Angle: 0,
		}})

		for _, ev := range pub.all() {
			_, isConfirm := ev.(event.WheelSelectConfirm)
			assert.False(t, isConfirm, "confirm must not fire after selector removal")
		}
	})
}

func TestNurseWheelRules(t *testing.T) {
	t.Parallel()

	eng, _, pub := newTestEngine(t)

	// view-patient-info and edit-medications tokens near the nurse wheel.
	eng.Handle(ObjectEvent{Kind: KindAdded, Object: Object{
		SymbolID: SymbolViewPatientInfo, SessionID: 2, X: 0.52, Y: 0.5,
	}})
	eng.Handle(ObjectEvent{Kind: KindAdded, Object: Object{
		SymbolID: SymbolEditMedications, SessionID: 3, X: 0.48, Y: 0.5,
	}})
	pub.reset()

	eng.Handle(ObjectEvent{Kind: KindAdded, Object: Object{
		SymbolID: SymbolNurseMode, SessionID: 1, X: 0.5, Y: 0.5, Angle: math.Pi/3 + 0.05,
	}})

	events := pub.all()
	require.Len(t, events, 5)

	assert.IsType(t, event.TuioObject{}, events[0])

	open, ok := events[1].(event.NurseWheelOpen)
	require.True(t, ok, "got %T", events[1])
	assert.Equal(t, 0.5, open.X)

	hover, ok := events[2].(event.NurseWheelHover)
	require.True(t, ok, "got %T", events[2])
	assert.Equal(t, 1, hover.Sector)
	assert.Equal(t, "Amoxicillin", hover.Medication)

	sel, ok := events[3].(event.NurseWheelSelect)
	require.True(t, ok, "got %T", events[3])
	assert.Equal(t, 1, sel.Sector)
	assert.Equal(t, "Amoxicillin", sel.Item)

	med, ok := events[4].(event.NurseEditMedSelect)
	require.True(t, ok, "got %T", events[4])
	assert.Equal(t, "Amoxicillin", med.Medication)
}

func TestBackDisablesGestures(t *testing.T) {
	t.Parallel()

	eng, _, pub := newTestEngine(t)
	eng.SetGestureEnabled(true)

	eng.Handle(ObjectEvent{Kind: KindAdded, Object: Object{
		SymbolID: SymbolBack, SessionID: 1,
	}})

	assert.False(t, eng.GestureEnabled())

	events := pub.all()
	require.Len(t, events, 2)
	assert.IsType(t, event.BackPressed{}, events[1])

	// Updates of the back token do nothing beyond the republish.
	pub.reset()
	eng.Handle(ObjectEvent{Kind: KindUpdated, Object: Object{
		SymbolID: SymbolBack, SessionID: 1,
	}})
	require.Len(t, pub.all(), 1)
}

func TestEditMedicationsTogglesGestureMode(t *testing.T) {
	t.Parallel()

	t.Run("enables when no nurse token is nearby", func(t *testing.T) {
		t.Parallel()
		eng, _, pub := newTestEngine(t)

		eng.Handle(ObjectEvent{Kind: KindAdded, Object: Object{
			SymbolID: SymbolEditMedications, SessionID: 1, X: 0.5, Y: 0.5,
		}})

		assert.True(t, eng.GestureEnabled())
		events := pub.all()
		require.Len(t, events, 2)
		toggled, ok := events[1].(event.GestureModeToggled)
		require.True(t, ok, "got %T", events[1])
		assert.True(t, toggled.Enabled)
	})

	t.Run("stays disabled when a nurse token is nearby", func(t *testing.T) {
		t.Parallel()
		eng, _, pub := newTestEngine(t)

		eng.Handle(ObjectEvent{Kind: KindAdded, Object: Object{
			SymbolID: SymbolNurseMode, SessionID: 2, X: 0.51, Y: 0.5,
		}})
		pub.reset()

		eng.Handle(ObjectEvent{Kind: KindAdded, Object: Object{
			SymbolID: SymbolEditMedications, SessionID: 1, X: 0.5, Y: 0.5,
		}})

		assert.False(t, eng.GestureEnabled())
		for _, ev := range pub.all() {
			_, isToggle := ev.(event.GestureModeToggled)
			assert.False(t, isToggle, "toggle must not fire next to a nurse token")
		}
	})
}

func TestUnknownSymbolOnlyRepublishes(t *testing.T) {
	t.Parallel()

	eng, reg, pub := newTestEngine(t)

	eng.Handle(ObjectEvent{Kind: KindAdded, Object: Object{
		SymbolID: 42, SessionID: 9, X: 0.3, Y: 0.3,
	}})

	events := pub.all()
	require.Len(t, events, 1)
	assert.IsType(t, event.TuioObject{}, events[0])
	assert.Equal(t, 1, reg.Len())
}

func TestMalformedKindIsDropped(t *testing.T) {
	t.Parallel()

	eng, reg, pub := newTestEngine(t)

	eng.Handle(ObjectEvent{Kind: EventKind("explode"), Object: Object{
		SymbolID: SymbolRotateWheel, SessionID: 1,
	}})

	assert.Empty(t, pub.all())
	assert.Equal(t, 0, reg.Len())
}

func TestHoverThrottle(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	pub := &capturePublisher{}
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	eng := NewEngine(reg, pub, EngineConfig{
		Medications:        testMedications,
		ProximityThreshold: 0.08,
		HoverInterval:      500 * time.Millisecond,
		Clock:              clock,
	})

	countHovers := func() int {
		n := 0
		for _, ev := range pub.all() {
			if _, ok := ev.(event.WheelHover); ok {
				n++
			}
		}
		return n
	}

	update := ObjectEvent{Kind: KindUpdated, Object: Object{
		SymbolID: SymbolRotateWheel, SessionID: 1, Angle: 0,
	}}

	eng.Handle(ObjectEvent{Kind: KindAdded, Object: update.Object})
	assert.Equal(t, 1, countHovers())

	// Within the interval: suppressed.
	clock.Advance(200 * time.Millisecond)
	eng.Handle(update)
	assert.Equal(t, 1, countHovers())

	// Past the interval: emitted again.
	clock.Advance(400 * time.Millisecond)
	eng.Handle(update)
	assert.Equal(t, 2, countHovers())
}

// End-to-end property from the reference behavior: wheel add at angle 0,
// then a selector at distance 0.05 confirms Paracetamol in sector 0.
func TestEndToEndWheelSelection(t *testing.T) {
	t.Parallel()

	eng, _, pub := newTestEngine(t)

	eng.Handle(ObjectEvent{Kind: KindAdded, Object: Object{
		SymbolID: SymbolRotateWheel, SessionID: 1, X: 0.5, Y: 0.5, Angle: 0,
	}})

	events := pub.all()
	require.Len(t, events, 3)
	assert.IsType(t, event.WheelOpen{}, events[1])
	hover := events[2].(event.WheelHover)
	assert.Equal(t, 0, hover.Sector)

	pub.reset()
	eng.Handle(ObjectEvent{Kind: KindAdded, Object: Object{
		SymbolID: SymbolSelector, SessionID: 2, X: 0.5, Y: 0.55,
	}})
	// Selector add alone does not confirm; the confirm fires on the next
	// wheel event.
	eng.Handle(ObjectEvent{Kind: KindUpdated, Object: Object{
		SymbolID: SymbolRotateWheel, SessionID: 1, X: 0.5, Y: 0.5, Angle: 0,
	}})

	var confirm *event.WheelSelectConfirm
	for _, ev := range pub.all() {
		if c, ok := ev.(event.WheelSelectConfirm); ok {
			confirm = &c
			break
		}
	}
	require.NotNil(t, confirm, "expected a wheel_select_confirm")
	assert.Equal(t, 0, confirm.Sector)
	assert.Equal(t, "Paracetamol", confirm.Medication)
}
