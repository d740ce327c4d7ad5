package gesture

import (
	"context"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/tabletop/internal/event"
	"github.com/banshee-data/tabletop/internal/monitoring"
	"github.com/banshee-data/tabletop/internal/timeutil"
)

// maxStrokePoints caps the capture buffer so a hand held in frame for a
// long stretch cannot grow it without bound.
const maxStrokePoints = 512

// ModeFlag is the shared gesture-enabled flag. The interaction engine
// implements it.
type ModeFlag interface {
	GestureEnabled() bool
	SetGestureEnabled(bool)
}

// PipelineConfig holds the pipeline cadence parameters.
type PipelineConfig struct {
	// RetryBackoff is the wait after a frame-source failure (camera or
	// collaborator unavailable).
	RetryBackoff time.Duration

	// IdleInterval is the nap between flag checks while gesture detection
	// is disabled.
	IdleInterval time.Duration

	// Clock drives the naps and backoff. Defaults to the real clock.
	Clock timeutil.Clock
}

// Pipeline is the long-running loop tying the camera/ML collaborator to the
// time controller and the trajectory recognizer. While the shared gesture
// flag is off it naps and keeps the controller finalized; while on it feeds
// hand positions to the controller, captures them as a stroke, commits on a
// fist, and classifies the stroke when the hand leaves the frame.
type Pipeline struct {
	source  FrameSource
	flag    ModeFlag
	ctrl    *TimeController
	rec     *Recognizer
	pub     Publisher
	clock   timeutil.Clock
	backoff time.Duration
	idle    time.Duration

	stroke []r2.Vec
}

// NewPipeline wires a pipeline together.
func NewPipeline(source FrameSource, flag ModeFlag, ctrl *TimeController, rec *Recognizer, pub Publisher, cfg PipelineConfig) *Pipeline {
	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	backoff := cfg.RetryBackoff
	if backoff == 0 {
		backoff = 5 * time.Second
	}
	idle := cfg.IdleInterval
	if idle == 0 {
		idle = 100 * time.Millisecond
	}
	return &Pipeline{
		source:  source,
		flag:    flag,
		ctrl:    ctrl,
		rec:     rec,
		pub:     pub,
		clock:   clock,
		backoff: backoff,
		idle:    idle,
	}
}

// Run executes the pipeline until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if !p.flag.GestureEnabled() {
			// Disabled externally while a selection was in flight: flush
			// the final time before going idle.
			if p.ctrl.Active() {
				p.ctrl.Finalize()
				p.stroke = p.stroke[:0]
			}
			if err := p.nap(ctx, p.idle); err != nil {
				return err
			}
			continue
		}

		frame, err := p.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			monitoring.Logf("gesture: frame source unavailable: %v (retrying in %s)", err, p.backoff)
			if err := p.nap(ctx, p.backoff); err != nil {
				return err
			}
			continue
		}

		p.handleFrame(frame)
	}
}

// handleFrame applies one hand sample.
func (p *Pipeline) handleFrame(frame Frame) {
	if !frame.HandPresent {
		p.classifyStroke()
		return
	}

	if frame.Fist {
		p.ctrl.Commit()
		p.flag.SetGestureEnabled(false)
		p.stroke = p.stroke[:0]
		return
	}

	p.ctrl.Observe(frame.X)
	if len(p.stroke) < maxStrokePoints {
		p.stroke = append(p.stroke, r2.Vec{X: frame.X, Y: 0.5})
	}
}

// classifyStroke runs the recognizer once the hand has left the frame. A
// match publishes the swipe and clears the buffer; on no-match the buffer
// is kept so a briefly lost hand can continue the stroke.
func (p *Pipeline) classifyStroke() {
	if len(p.stroke) < minStrokePoints {
		return
	}
	label, score, ok := p.rec.Recognize(p.stroke)
	if !ok {
		monitoring.Logf("gesture: no template match (best score %.3f)", score)
		return
	}
	monitoring.Logf("gesture: recognized %q swipe (score %.3f)", label, score)
	if err := p.pub.Publish(event.NewGestureSwipe(label)); err != nil {
		monitoring.Logf("gesture: publish failed: %v", err)
	}
	p.stroke = p.stroke[:0]
}

// nap sleeps for d, observing cancellation.
func (p *Pipeline) nap(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.clock.After(d):
		return nil
	}
}
