package frame

import (
	"io"
	"log/slog"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/scenedemo/internal/gpuerr"
	"github.com/vkngwrapper/scenedemo/internal/lifetime"
)

// journal records the order of calls across every fake.
type journal struct {
	calls []string
}

func (j *journal) add(call string) {
	j.calls = append(j.calls, call)
}

func (j *journal) count(call string) int {
	n := 0
	for _, c := range j.calls {
		if c == call {
			n++
		}
	}
	return n
}

// fakePresenter scripts acquire and present results. Each build owns a set
// of handles on a lifetime stack so double frees show up as a negative live
// count.
type fakePresenter struct {
	j        *journal
	acquire  []error
	present  []error
	live     int
	handles  *lifetime.Stack
	rebuilds int
	// closing makes the next Rebuild report a closed window without
	// touching any handle.
	closing bool
}

func newFakePresenter(j *journal) *fakePresenter {
	p := &fakePresenter{j: j, handles: lifetime.NewStack(nil)}
	p.build()
	return p
}

func (p *fakePresenter) build() {
	for i := 0; i < 3; i++ {
		p.live++
		p.handles.Push("view", func() { p.live-- })
	}
}

func (p *fakePresenter) Acquire(signal core1_0.Semaphore) (int, error) {
	p.j.add("acquire")
	if len(p.acquire) > 0 {
		err := p.acquire[0]
		p.acquire = p.acquire[1:]
		if err != nil {
			return 0, err
		}
	}
	return 1, nil
}

func (p *fakePresenter) Present(wait core1_0.Semaphore, imageIndex int) error {
	p.j.add("present")
	if len(p.present) > 0 {
		err := p.present[0]
		p.present = p.present[1:]
		return err
	}
	return nil
}

func (p *fakePresenter) Rebuild() error {
	p.j.add("rebuild")
	if p.closing {
		return errors.Wrap(gpuerr.ErrWindowClosed, "rebuild swapchain")
	}
	p.handles.Release()
	p.handles.Release()
	p.build()
	p.rebuilds++
	return nil
}

type fakeSync struct {
	j        *journal
	signaled bool
	renewed  int
}

func (s *fakeSync) Wait() error {
	s.j.add("wait")
	if !s.signaled {
		return errors.New("wait on a fence that will never signal")
	}
	return nil
}

func (s *fakeSync) Reset() error {
	s.j.add("reset fence")
	s.signaled = false
	return nil
}

func (s *fakeSync) Fence() core1_0.Fence              { return core1_0.Fence{} }
func (s *fakeSync) ImageAvailable() core1_0.Semaphore { return core1_0.Semaphore{} }
func (s *fakeSync) RenderFinished() core1_0.Semaphore { return core1_0.Semaphore{} }
func (s *fakeSync) Renew() error                      { s.renewed++; s.j.add("renew"); return nil }

type fakeRecorder struct {
	j   *journal
	err error
}

func (r *fakeRecorder) Reset() error {
	r.j.add("reset commands")
	return nil
}

func (r *fakeRecorder) Record(imageIndex int) (core1_0.CommandBuffer, error) {
	r.j.add("record")
	return core1_0.CommandBuffer{}, r.err
}

// fakeSubmitter signals the fence as if the GPU finished immediately.
type fakeSubmitter struct {
	j    *journal
	sync *fakeSync
}

func (s *fakeSubmitter) Submit(commandBuffer core1_0.CommandBuffer, wait, signal core1_0.Semaphore, fence core1_0.Fence) error {
	s.j.add("submit")
	s.sync.signaled = true
	return nil
}

type harness struct {
	j         *journal
	presenter *fakePresenter
	sync      *fakeSync
	recorder  *fakeRecorder
	loop      *Loop
}

func newHarness() *harness {
	j := &journal{}
	h := &harness{
		j:         j,
		presenter: newFakePresenter(j),
		sync:      &fakeSync{j: j, signaled: true},
		recorder:  &fakeRecorder{j: j},
	}
	h.loop = NewLoop(h.presenter, h.sync, h.recorder, &fakeSubmitter{j: j, sync: h.sync}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return h
}

func TestDrawFrameOrder(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.loop.DrawFrame())
	assert.Equal(t, []string{"wait", "acquire", "reset fence", "reset commands", "record", "submit", "present"}, h.j.calls)
	assert.Equal(t, Idle, h.loop.State())
	assert.True(t, h.sync.signaled)
}

func TestAcquireOutOfDateLeavesFenceSignaled(t *testing.T) {
	h := newHarness()
	h.presenter.acquire = []error{gpuerr.ErrSurfaceOutOfDate}

	require.NoError(t, h.loop.DrawFrame())
	assert.Equal(t, []string{"wait", "acquire", "rebuild", "renew"}, h.j.calls)
	assert.True(t, h.sync.signaled, "fence must not be reset before a successful acquire")
	assert.Equal(t, Idle, h.loop.State())

	h.j.calls = nil
	require.NoError(t, h.loop.DrawFrame())
	assert.Equal(t, "wait", h.j.calls[0])
	assert.Equal(t, 1, h.j.count("submit"))
}

func TestConsecutiveOutOfDateRebuildsTwice(t *testing.T) {
	h := newHarness()
	h.presenter.acquire = []error{gpuerr.ErrSurfaceOutOfDate, gpuerr.ErrSurfaceOutOfDate}

	require.NoError(t, h.loop.DrawFrame())
	require.NoError(t, h.loop.DrawFrame())
	assert.Equal(t, 2, h.presenter.rebuilds)
	assert.Equal(t, 2, h.sync.renewed)
	assert.Equal(t, 3, h.presenter.live)
	assert.Equal(t, 0, h.j.count("reset fence"))

	require.NoError(t, h.loop.DrawFrame())
	assert.Equal(t, 1, h.j.count("present"))
	assert.Equal(t, 3, h.presenter.live)
}

func TestPresentSuboptimalRebuildsAfterSubmit(t *testing.T) {
	for _, presentErr := range []error{gpuerr.ErrSurfaceSuboptimal, gpuerr.ErrSurfaceOutOfDate} {
		h := newHarness()
		h.presenter.present = []error{presentErr}

		require.NoError(t, h.loop.DrawFrame())
		assert.Equal(t, []string{"wait", "acquire", "reset fence", "reset commands", "record", "submit", "present", "rebuild", "renew"}, h.j.calls)
		assert.True(t, h.sync.signaled)
	}
}

func TestResizeFlagRebuildsAfterPresent(t *testing.T) {
	h := newHarness()

	h.loop.NotifyResize(800, 600)
	require.NoError(t, h.loop.DrawFrame())
	assert.Equal(t, 1, h.presenter.rebuilds)
	assert.Equal(t, "rebuild", h.j.calls[len(h.j.calls)-2])

	h.j.calls = nil
	require.NoError(t, h.loop.DrawFrame())
	assert.Equal(t, 0, h.j.count("rebuild"))
}

func TestFatalErrorsPropagate(t *testing.T) {
	h := newHarness()
	boom := errors.New("device lost")
	h.presenter.acquire = []error{boom}

	err := h.loop.DrawFrame()
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, h.presenter.rebuilds)

	h = newHarness()
	h.recorder.err = errors.Wrap(gpuerr.ErrUnsupportedLayoutTransition, "x")
	err = h.loop.DrawFrame()
	require.ErrorIs(t, err, gpuerr.ErrUnsupportedLayoutTransition)
	assert.Equal(t, 0, h.j.count("submit"))
}

func TestOnRebuildRunsAfterRenew(t *testing.T) {
	h := newHarness()
	h.presenter.acquire = []error{gpuerr.ErrSurfaceOutOfDate}
	h.loop.OnRebuild = func() error {
		h.j.add("rebind")
		return nil
	}

	require.NoError(t, h.loop.DrawFrame())
	assert.Equal(t, []string{"wait", "acquire", "rebuild", "renew", "rebind"}, h.j.calls)
}

func TestWindowClosedDuringRebuildKeepsSync(t *testing.T) {
	h := newHarness()
	h.presenter.acquire = []error{gpuerr.ErrSurfaceOutOfDate}
	h.presenter.closing = true
	h.loop.Stats = NewStats(0)
	rebinds := 0
	h.loop.OnRebuild = func() error {
		rebinds++
		return nil
	}

	require.NoError(t, h.loop.DrawFrame())
	assert.Equal(t, []string{"wait", "acquire", "rebuild"}, h.j.calls)
	assert.Equal(t, 0, h.sync.renewed, "semaphores may still be in use")
	assert.Equal(t, 0, rebinds)
	assert.Equal(t, 0, h.loop.Stats.rebuilds)
	assert.Equal(t, 3, h.presenter.live)
	assert.Equal(t, Idle, h.loop.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "presenting", Presenting.String())
	assert.Equal(t, "unknown", State(42).String())
}
