package gesture

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tabletop/internal/event"
)

// scriptSource feeds frames (or one-shot errors) to the pipeline.
type scriptSource struct {
	frames chan Frame
	errs   chan error
}

func newScriptSource() *scriptSource {
	return &scriptSource{
		frames: make(chan Frame, 64),
		errs:   make(chan error, 4),
	}
}

func (s *scriptSource) Next(ctx context.Context) (Frame, error) {
	select {
	case err := <-s.errs:
		return Frame{}, err
	default:
	}
	select {
	case err := <-s.errs:
		return Frame{}, err
	case f := <-s.frames:
		return f, nil
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

// fakeFlag is an in-memory gesture-enabled flag.
type fakeFlag struct {
	mu      sync.Mutex
	enabled bool
}

func (f *fakeFlag) GestureEnabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enabled
}

func (f *fakeFlag) SetGestureEnabled(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = v
}

func newTestPipeline(source FrameSource, flag ModeFlag, pub Publisher) *Pipeline {
	ctrl := NewTimeController(pub, TimeControllerConfig{
		BaseMinutes:          450,
		MaxAdjustmentMinutes: 240,
		UpdateInterval:       0, // every observation emits, keeps tests deterministic
	})
	rec := NewRecognizer(RecognizerConfig{ResamplePoints: 64, Acceptance: 0.5})
	return NewPipeline(source, flag, ctrl, rec, pub, PipelineConfig{
		RetryBackoff: time.Millisecond,
		IdleInterval: time.Millisecond,
	})
}

func countByType[T any](events []any) int {
	n := 0
	for _, ev := range events {
		if _, ok := ev.(T); ok {
			n++
		}
	}
	return n
}

func TestPipelineFistCommitsAndDisables(t *testing.T) {
	t.Parallel()

	source := newScriptSource()
	flag := &fakeFlag{enabled: true}
	pub := &capturePublisher{}
	p := newTestPipeline(source, flag, pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	source.frames <- Frame{X: 0.5, HandPresent: true}
	source.frames <- Frame{X: 0.75, HandPresent: true}
	source.frames <- Frame{Fist: true, HandPresent: true}

	require.Eventually(t, func() bool {
		return countByType[event.GestureTimeFinal](pub.all()) == 1
	}, 2*time.Second, 5*time.Millisecond, "expected a final time event")

	events := pub.all()
	assert.Equal(t, 2, countByType[event.GestureTimeUpdate](events))
	assert.Equal(t, 1, countByType[event.GestureModeToggled](events))
	assert.False(t, flag.GestureEnabled(), "fist must switch gesture mode off")

	var final event.GestureTimeFinal
	for _, ev := range events {
		if f, ok := ev.(event.GestureTimeFinal); ok {
			final = f
		}
	}
	assert.Equal(t, 570, final.Minutes) // 450 + round(0.25*480)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not stop after cancellation")
	}
}

func TestPipelineRecognizesSwipeWhenHandLeaves(t *testing.T) {
	t.Parallel()

	source := newScriptSource()
	flag := &fakeFlag{enabled: true}
	pub := &capturePublisher{}
	p := newTestPipeline(source, flag, pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	// A rightward stroke, then the hand leaves the frame.
	for i := 0; i <= 8; i++ {
		source.frames <- Frame{X: 0.2 + float64(i)*0.075, HandPresent: true}
	}
	source.frames <- Frame{HandPresent: false}

	require.Eventually(t, func() bool {
		for _, ev := range pub.all() {
			if swipe, ok := ev.(event.GestureSwipe); ok {
				return swipe.Direction == SwipeRight
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond, "expected a right swipe event")
}

func TestPipelineFinalizesWhenDisabledExternally(t *testing.T) {
	t.Parallel()

	source := newScriptSource()
	flag := &fakeFlag{enabled: true}
	pub := &capturePublisher{}
	p := newTestPipeline(source, flag, pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	source.frames <- Frame{X: 0.5, HandPresent: true}
	require.Eventually(t, func() bool {
		return countByType[event.GestureTimeUpdate](pub.all()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	// The back token disables gesture mode from the tracking side.
	flag.SetGestureEnabled(false)

	require.Eventually(t, func() bool {
		return countByType[event.GestureTimeFinal](pub.all()) == 1
	}, 2*time.Second, 5*time.Millisecond, "expected the pipeline to flush the final time")
}

func TestPipelineRetriesSourceFailures(t *testing.T) {
	t.Parallel()

	source := newScriptSource()
	flag := &fakeFlag{enabled: true}
	pub := &capturePublisher{}
	p := newTestPipeline(source, flag, pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	source.errs <- errors.New("camera unavailable")
	source.frames <- Frame{X: 0.5, HandPresent: true}

	require.Eventually(t, func() bool {
		return countByType[event.GestureTimeUpdate](pub.all()) == 1
	}, 2*time.Second, 5*time.Millisecond, "expected the pipeline to retry after a source failure")
}
