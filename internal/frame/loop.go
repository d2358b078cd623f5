// Package frame drives the per-frame acquire, record, submit and present
// cycle and recovers from stale swapchains.
//
// One frame is in flight at a time. The CPU waits on the in-flight fence
// before touching the command buffer or any resource it references, so
// descriptors and mapped buffers can be written between frames without
// locking.
package frame

import (
	"log/slog"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/scenedemo/internal/gpuerr"
)

type State int

const (
	Idle State = iota
	Acquiring
	Recording
	Submitted
	Presenting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Acquiring:
		return "acquiring"
	case Recording:
		return "recording"
	case Submitted:
		return "submitted"
	case Presenting:
		return "presenting"
	}
	return "unknown"
}

// Presenter is the swapchain side of the loop.
type Presenter interface {
	Acquire(signal core1_0.Semaphore) (int, error)
	Present(wait core1_0.Semaphore, imageIndex int) error
	Rebuild() error
}

// Sync is the fence and semaphores of the frame in flight.
type Sync interface {
	Wait() error
	Reset() error
	Fence() core1_0.Fence
	ImageAvailable() core1_0.Semaphore
	RenderFinished() core1_0.Semaphore
	Renew() error
}

// Recorder fills the frame's command buffer for a swapchain image.
type Recorder interface {
	Reset() error
	Record(imageIndex int) (core1_0.CommandBuffer, error)
}

type Submitter interface {
	Submit(commandBuffer core1_0.CommandBuffer, wait, signal core1_0.Semaphore, fence core1_0.Fence) error
}

type Loop struct {
	presenter Presenter
	sync      Sync
	recorder  Recorder
	submitter Submitter
	logger    *slog.Logger

	// OnRebuild runs after the swapchain and semaphores have been
	// recreated, for state that points at swapchain-sized objects.
	OnRebuild func() error
	Stats     *Stats

	state   State
	resized atomic.Bool
}

func NewLoop(presenter Presenter, sync Sync, recorder Recorder, submitter Submitter, logger *slog.Logger) *Loop {
	return &Loop{
		presenter: presenter,
		sync:      sync,
		recorder:  recorder,
		submitter: submitter,
		logger:    logger,
	}
}

func (l *Loop) State() State {
	return l.state
}

// NotifyResize flags the swapchain as stale. It only sets a flag; the
// rebuild happens on the loop's own thread after the next present.
func (l *Loop) NotifyResize(width, height int) {
	l.resized.Store(true)
}

// DrawFrame runs one iteration of the frame cycle. Out-of-date and
// suboptimal surfaces are recovered by rebuilding the swapchain; every other
// error is returned.
func (l *Loop) DrawFrame() error {
	start := hrtime.Now()

	err := l.drawFrame()
	if gpuerr.IsTransient(err) {
		l.logger.Debug("swapchain stale", slog.String("reason", err.Error()), slog.String("state", l.state.String()))
		err = l.rebuild()
	}
	if err != nil {
		return err
	}

	if l.Stats != nil {
		l.Stats.Observe(hrtime.Since(start))
		l.Stats.Report(l.logger)
	}
	return nil
}

func (l *Loop) drawFrame() error {
	err := l.sync.Wait()
	if err != nil {
		return err
	}

	l.state = Acquiring
	imageIndex, err := l.presenter.Acquire(l.sync.ImageAvailable())
	if err != nil {
		// The fence is still signaled; the next iteration waits on it again
		// without blocking.
		return err
	}

	err = l.sync.Reset()
	if err != nil {
		return err
	}

	l.state = Recording
	err = l.recorder.Reset()
	if err != nil {
		return err
	}

	commandBuffer, err := l.recorder.Record(imageIndex)
	if err != nil {
		return errors.Wrap(err, "record frame")
	}

	err = l.submitter.Submit(commandBuffer, l.sync.ImageAvailable(), l.sync.RenderFinished(), l.sync.Fence())
	if err != nil {
		return err
	}
	l.state = Submitted

	l.state = Presenting
	err = l.presenter.Present(l.sync.RenderFinished(), imageIndex)
	if err != nil {
		return err
	}

	if l.resized.Swap(false) {
		return gpuerr.ErrSurfaceOutOfDate
	}

	l.state = Idle
	return nil
}

func (l *Loop) rebuild() error {
	l.resized.Store(false)

	err := l.presenter.Rebuild()
	if errors.Is(err, gpuerr.ErrWindowClosed) {
		// Nothing was rebuilt, so the semaphores are left alone.
		l.logger.Debug("window closed during rebuild")
		l.state = Idle
		return nil
	}
	if err != nil {
		return err
	}

	err = l.sync.Renew()
	if err != nil {
		return err
	}

	if l.OnRebuild != nil {
		err = l.OnRebuild()
		if err != nil {
			return err
		}
	}

	if l.Stats != nil {
		l.Stats.Rebuilt()
	}
	l.state = Idle
	return nil
}
