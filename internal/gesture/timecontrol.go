package gesture

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/banshee-data/tabletop/internal/event"
	"github.com/banshee-data/tabletop/internal/monitoring"
	"github.com/banshee-data/tabletop/internal/timeutil"
)

// minutesPerDay bounds the selectable time to a 24-hour clock.
const minutesPerDay = 1440

// Publisher fans an event out to all connected subscribers.
type Publisher interface {
	Publish(v any) error
}

// TimeControllerConfig holds the hand-position time mapping parameters.
type TimeControllerConfig struct {
	// BaseMinutes is the time selected when the hand sits at the center of
	// the frame (x=0.5), in minutes from midnight.
	BaseMinutes int

	// MaxAdjustmentMinutes is the offset reached at either frame edge.
	MaxAdjustmentMinutes int

	// UpdateInterval rate-limits provisional gesture_time_update events.
	UpdateInterval time.Duration

	// Clock drives the rate limiter. Defaults to the real clock.
	Clock timeutil.Clock
}

// TimeController maps the continuous hand-position signal onto a
// time-of-day value: center of frame is the base time, the edges are
// ±MaxAdjustmentMinutes. Provisional updates are rate-limited; a commit (or
// an external disable while active) publishes the final value immediately,
// exactly once, followed by the mode-off toggle.
type TimeController struct {
	pub      Publisher
	base     int
	maxAdj   int
	interval time.Duration
	clock    timeutil.Clock

	mu       sync.Mutex
	active   bool
	minutes  int
	lastEmit time.Time
}

// NewTimeController creates a controller publishing through pub.
func NewTimeController(pub Publisher, cfg TimeControllerConfig) *TimeController {
	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &TimeController{
		pub:      pub,
		base:     cfg.BaseMinutes,
		maxAdj:   cfg.MaxAdjustmentMinutes,
		interval: cfg.UpdateInterval,
		clock:    clock,
	}
}

// Active reports whether the controller has observed a hand since the last
// finalization.
func (tc *TimeController) Active() bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.active
}

// Minutes returns the currently selected time in minutes from midnight.
func (tc *TimeController) Minutes() int {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if !tc.active {
		return tc.base
	}
	return tc.minutes
}

// Observe consumes one hand-position sample and emits a rate-limited
// gesture_time_update computed from the most recent x once the interval
// has elapsed.
func (tc *TimeController) Observe(x float64) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if !tc.active {
		tc.active = true
		tc.lastEmit = time.Time{}
	}
	tc.minutes = tc.mapMinutes(x)

	now := tc.clock.Now()
	if !tc.lastEmit.IsZero() && now.Sub(tc.lastEmit) < tc.interval {
		return
	}
	tc.lastEmit = now
	tc.publish(event.NewGestureTimeUpdate(FormatMinutes(tc.minutes), tc.minutes))
}

// Commit publishes the final time immediately, bypassing the rate limiter,
// then switches gesture mode off. A second commit without an intervening
// Observe is a no-op.
func (tc *TimeController) Commit() {
	tc.finalize()
}

// Finalize flushes the final time when the controller is disabled
// externally while active. Idempotent, like Commit.
func (tc *TimeController) Finalize() {
	tc.finalize()
}

func (tc *TimeController) finalize() {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if !tc.active {
		return
	}
	tc.active = false
	tc.publish(event.NewGestureTimeFinal(FormatMinutes(tc.minutes), tc.minutes))
	tc.publish(event.NewGestureModeToggled(false))
}

// mapMinutes converts a normalized hand position to clamped minutes from
// midnight. Callers hold tc.mu.
func (tc *TimeController) mapMinutes(x float64) int {
	offset := (x - 0.5) * 2 * float64(tc.maxAdj)
	minutes := tc.base + int(math.Round(offset))
	if minutes < 0 {
		minutes = 0
	}
	if minutes > minutesPerDay-1 {
		minutes = minutesPerDay - 1
	}
	return minutes
}

func (tc *TimeController) publish(v any) {
	if err := tc.pub.Publish(v); err != nil {
		monitoring.Logf("timecontrol: publish failed: %v", err)
	}
}

// FormatMinutes renders minutes from midnight as zero-padded HH:MM.
func FormatMinutes(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
