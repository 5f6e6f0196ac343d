// File: hub/hub.go
// Package hub - event loop ownership, listener registry, timer and
// immediate scheduling, signal interception.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package hub

import (
	"log"
	"os"
	"time"

	"github.com/eapache/queue"

	"github.com/momentics/taskhub/api"
	"github.com/momentics/taskhub/backend"
	"github.com/momentics/taskhub/task"
)

// listenerKey identifies a registration slot: at most one listener may
// be active per descriptor per direction.
type listenerKey struct {
	fd     int
	events api.IOEvent
}

// Hub owns the event loop for one scheduling thread. All hub state is
// mutated only while the hub's context (the reactor, or a task it
// resumed) holds control, so no locking is required.
type Hub struct {
	backend api.Backend
	logger  *log.Logger

	signalEnabled bool
	cancelSignal  func()
	interrupted   bool

	running  bool
	stopping bool
	closed   bool

	listeners map[listenerKey]*Listener

	immediates     *queue.Queue
	immediateArmed bool
}

// New constructs a hub. Without WithBackend the platform backend is
// used; without WithSignalHandling(false) the interrupt signal is
// intercepted and funneled to Run's caller as api.ErrInterrupted.
func New(opts ...Option) (*Hub, error) {
	h := &Hub{
		listeners:     make(map[listenerKey]*Listener),
		immediates:    queue.New(),
		signalEnabled: true,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.backend == nil {
		b, err := backend.New()
		if err != nil {
			return nil, err
		}
		h.backend = b
	}
	if h.signalEnabled {
		cancel, err := h.backend.Notify(os.Interrupt, h.signalReceived)
		if err != nil {
			return nil, err
		}
		h.cancelSignal = cancel
	}
	return h, nil
}

// Run enters the event loop and blocks the calling context until Abort
// is invoked or no listeners or timers remain. The caller of Run is the
// root context: an intercepted interrupt signal surfaces here, and only
// here, as api.ErrInterrupted.
func (h *Hub) Run() error {
	if h.stopping {
		return nil
	}
	if h.running {
		return api.ErrLoopAlreadyRunning
	}
	h.debugf("start runloop")
	h.running = true
	h.stopping = false
	defer func() {
		h.running = false
		h.stopping = false
	}()
	if err := h.backend.Run(api.RunDefault); err != nil {
		return err
	}
	if h.interrupted {
		h.interrupted = false
		return api.ErrInterrupted
	}
	return nil
}

// Abort requests loop termination. Idempotent; safe from a dispatched
// callback and from the signal path.
func (h *Hub) Abort() {
	h.debugf("abort runloop")
	if h.running {
		h.stopping = true
	}
	h.backend.Stop()
}

// AddListener registers interest in readiness of fd for exactly one
// direction. ready runs when the descriptor becomes ready; closed runs
// instead when the backend detects the descriptor closed or invalid.
func (h *Hub) AddListener(events api.IOEvent, fd int, ready func(), closed func(error)) (*Listener, error) {
	if events != api.EventRead && events != api.EventWrite {
		panic("taskhub: listener direction must be exactly one of read or write")
	}
	key := listenerKey{fd: fd, events: events}
	if _, ok := h.listeners[key]; ok {
		return nil, api.WrapError(api.ErrCodeAlreadyExists, api.ErrListenerExists,
			"listener already active for descriptor and direction").
			WithContext("fd", fd).
			WithContext("direction", events.String())
	}
	ph, err := h.backend.NewPoll(fd)
	if err != nil {
		return nil, err
	}
	l := &Listener{Events: events, FD: fd, handle: ph}
	err = ph.Start(events, func(_ api.IOEvent, err error) {
		if err != nil {
			closed(err)
			return
		}
		ready()
	})
	if err != nil {
		_ = ph.Close()
		return nil, err
	}
	h.listeners[key] = l
	h.debugf("add listener fd=%d dir=%s", fd, events)
	return l, nil
}

// RemoveListener tears down a registration. Must be called exactly once
// by the listener's owner before discarding interest; removing a
// listener the hub does not hold is a resource-tracking bug and panics.
func (h *Hub) RemoveListener(l *Listener) {
	if l == nil {
		panic("taskhub: RemoveListener(nil)")
	}
	key := listenerKey{fd: l.FD, events: l.Events}
	if h.listeners[key] != l {
		panic("taskhub: removing a listener that is not registered")
	}
	delete(h.listeners, key)
	l.retire()
	h.debugf("remove listener fd=%d dir=%s", l.FD, l.Events)
}

// ListenerCount returns the number of active listeners.
func (h *Hub) ListenerCount() int {
	return len(h.listeners)
}

// ScheduleTimer schedules fn(args...) to run once on the reactor
// context after delay. The timer is a hub-owned resource: it fires even
// if the task that requested it has since terminated, unless cancelled.
// The backend handle self-closes after firing, even if fn panics.
func (h *Hub) ScheduleTimer(delay time.Duration, fn func(args ...any), args ...any) *Timer {
	th := h.backend.NewTimer()
	t := &Timer{handle: th}
	if err := th.Start(delay, func() {
		defer t.close()
		fn(args...)
	}); err != nil {
		panic("taskhub: timer scheduling failed: " + err.Error())
	}
	return t
}

// ScheduleImmediate schedules fn to run at the start of the next loop
// pass. Multiple immediates run FIFO by submission order.
func (h *Hub) ScheduleImmediate(fn func()) {
	h.immediates.Add(fn)
	if h.immediateArmed {
		return
	}
	h.immediateArmed = true
	th := h.backend.NewTimer()
	if err := th.Start(0, func() {
		defer func() { _ = th.Close() }()
		// Disarm before draining so immediates scheduled by the
		// drained callbacks land in a fresh pass.
		h.immediateArmed = false
		h.drainImmediates()
	}); err != nil {
		panic("taskhub: immediate scheduling failed: " + err.Error())
	}
}

// drainImmediates runs the callbacks present at pass start; later
// submissions wait for the next pass.
func (h *Hub) drainImmediates() {
	n := h.immediates.Length()
	for i := 0; i < n; i++ {
		fn := h.immediates.Remove().(func())
		fn()
	}
}

// Spawn creates a task running fn and schedules its first resumption on
// the next loop pass.
func (h *Hub) Spawn(fn func()) *task.T {
	t := task.New(fn)
	h.ScheduleImmediate(func() { t.Resume(nil) })
	return t
}

// signalReceived runs on the loop context when the interrupt signal is
// delivered: disable further delivery, stop the loop, and record the
// interrupt so Run's caller, the root context, sees it exactly once.
func (h *Hub) signalReceived() {
	h.debugf("interrupt signal received")
	if h.cancelSignal != nil {
		h.cancelSignal()
		h.cancelSignal = nil
	}
	h.interrupted = true
	h.Abort()
}

// Close releases the backend. The hub must not be running; leftover
// listeners indicate a leak and are reported via the logger.
func (h *Hub) Close() error {
	if h.closed {
		return api.WrapError(api.ErrCodeClosed, api.ErrBackendClosed, "hub closed twice")
	}
	if h.running {
		return api.WrapError(api.ErrCodeAlreadyRunning, api.ErrLoopAlreadyRunning,
			"cannot close a running hub")
	}
	if h.cancelSignal != nil {
		h.cancelSignal()
		h.cancelSignal = nil
	}
	if n := len(h.listeners); n != 0 {
		h.debugf("closing hub with %d leaked listeners", n)
	}
	h.closed = true
	return h.backend.Close()
}

func (h *Hub) debugf(format string, args ...any) {
	if h.logger != nil {
		h.logger.Printf(format, args...)
	}
}
