// File: backend/backend_linux.go
// Package backend - Linux epoll implementation of the api.Backend
// event-loop contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Single epoll instance plus an eventfd used to wake the loop from
// foreign contexts (Stop, Wake, signal forwarding). Timers live in a
// binary min-heap that drives the epoll wait timeout. Poll watches are
// level-triggered; up to one handle per direction may be active on the
// same descriptor, with the registered epoll mask kept as the union of
// the active handles.

//go:build linux

package backend

import (
	"encoding/binary"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/taskhub/api"
)

const maxPollEvents = 128

// New constructs the platform backend.
func New() (api.Backend, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, api.WrapError(api.ErrCodeInternal, err, "epoll create failed")
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, api.WrapError(api.ErrCodeInternal, err, "eventfd create failed")
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		unix.Close(wakefd)
		unix.Close(epfd)
		return nil, api.WrapError(api.ErrCodeInternal, err, "epoll ctl add wakefd failed")
	}
	return &epollBackend{
		epfd:    epfd,
		wakefd:  wakefd,
		watches: make(map[int]*fdWatch),
		events:  make([]unix.EpollEvent, maxPollEvents),
	}, nil
}

type epollBackend struct {
	epfd   int
	wakefd int

	watches map[int]*fdWatch
	timers  timerHeap
	seq     uint64

	// refs counts started+referenced poll handles and armed timers;
	// the default run mode exits when it reaches zero.
	refs int

	wakeMu sync.Mutex
	wakes  []func()

	running bool
	stopped atomic.Bool
	closed  bool

	events []unix.EpollEvent
}

// fdWatch aggregates the active poll handles for one descriptor and
// tracks the epoll mask currently registered for it.
type fdWatch struct {
	fd      int
	handles []*pollHandle
	mask    uint32
}

func (b *epollBackend) NewPoll(fd int) (api.PollHandle, error) {
	if b.closed {
		return nil, api.WrapError(api.ErrCodeClosed, api.ErrBackendClosed, "backend is closed").
			WithContext("fd", fd)
	}
	return &pollHandle{b: b, fd: fd, refed: true}, nil
}

func (b *epollBackend) NewTimer() api.TimerHandle {
	return &timerHandle{b: b, index: -1}
}

func (b *epollBackend) Run(mode api.RunMode) error {
	if b.closed {
		return api.WrapError(api.ErrCodeClosed, api.ErrBackendClosed, "backend is closed")
	}
	if b.running {
		return api.WrapError(api.ErrCodeAlreadyRunning, api.ErrLoopAlreadyRunning,
			"backend loop is already running")
	}
	b.running = true
	b.stopped.Store(false)
	defer func() { b.running = false }()

	for {
		b.runWakes()
		b.fireDueTimers()
		if b.stopped.Load() {
			return nil
		}
		if b.refs == 0 && !b.havePendingWakes() {
			return nil
		}

		n, err := unix.EpollWait(b.epfd, b.events, b.pollTimeout(mode))
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return api.WrapError(api.ErrCodeInternal, err, "epoll wait failed")
		}
		for i := 0; i < n; i++ {
			b.dispatch(b.events[i])
		}

		if mode != api.RunDefault {
			b.runWakes()
			b.fireDueTimers()
			return nil
		}
	}
}

// pollTimeout derives the epoll timeout in milliseconds from the timer
// heap: block forever when no timer is armed, otherwise until the
// earliest deadline (rounded up so a timer never fires early only to
// spin).
func (b *epollBackend) pollTimeout(mode api.RunMode) int {
	if mode == api.RunNoWait {
		return 0
	}
	if b.timers.Len() == 0 {
		return -1
	}
	d := time.Until(b.timers[0].deadline)
	if d <= 0 {
		return 0
	}
	ms := (d + time.Millisecond - 1) / time.Millisecond
	return int(ms)
}

func (b *epollBackend) dispatch(ev unix.EpollEvent) {
	fd := int(ev.Fd)
	if fd == b.wakefd {
		b.drainWakeFd()
		b.runWakes()
		return
	}
	w := b.watches[fd]
	if w == nil {
		return
	}
	var ready api.IOEvent
	if ev.Events&unix.EPOLLIN != 0 {
		ready |= api.EventRead
	}
	if ev.Events&unix.EPOLLOUT != 0 {
		ready |= api.EventWrite
	}
	errcond := ev.Events&unix.EPOLLERR != 0
	hangup := ev.Events&unix.EPOLLHUP != 0

	// Callbacks may stop or close handles on this descriptor, so
	// iterate over a snapshot and re-check liveness per handle.
	handles := append([]*pollHandle(nil), w.handles...)
	for _, h := range handles {
		if !h.started {
			continue
		}
		switch {
		case errcond:
			// EPOLLERR (e.g. broken pipe) outranks any simultaneous
			// readiness flag.
			h.cb(api.EventClosed,
				api.WrapError(api.ErrCodeClosed, api.ErrDescriptorClosed,
					"descriptor closed while watched").WithContext("fd", fd))
		case ready&h.events != 0:
			// Readiness wins over a simultaneous hangup flag: pending
			// data or EOF on a half-closed pipe is still readable.
			h.cb(ready&h.events, nil)
		case hangup:
			h.cb(api.EventClosed,
				api.WrapError(api.ErrCodeClosed, api.ErrDescriptorClosed,
					"descriptor closed while watched").WithContext("fd", fd))
		}
	}
}

func (b *epollBackend) Stop() {
	b.stopped.Store(true)
	b.wakeLoop()
}

func (b *epollBackend) Wake(fn func()) {
	b.wakeMu.Lock()
	b.wakes = append(b.wakes, fn)
	b.wakeMu.Unlock()
	b.wakeLoop()
}

func (b *epollBackend) runWakes() {
	for {
		b.wakeMu.Lock()
		fns := b.wakes
		b.wakes = nil
		b.wakeMu.Unlock()
		if len(fns) == 0 {
			return
		}
		for _, fn := range fns {
			fn()
		}
	}
}

func (b *epollBackend) havePendingWakes() bool {
	b.wakeMu.Lock()
	defer b.wakeMu.Unlock()
	return len(b.wakes) > 0
}

func (b *epollBackend) wakeLoop() {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	// EAGAIN means the counter is saturated and the loop is already
	// due to wake.
	_, _ = unix.Write(b.wakefd, buf[:])
}

func (b *epollBackend) drainWakeFd() {
	var buf [8]byte
	for {
		if _, err := unix.Read(b.wakefd, buf[:]); err != nil {
			return
		}
	}
}

func (b *epollBackend) Notify(sig os.Signal, fn func()) (func(), error) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sig)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ch:
				b.Wake(fn)
			}
		}
	}()
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			signal.Stop(ch)
			close(done)
		})
	}
	return cancel, nil
}

func (b *epollBackend) Close() error {
	if b.closed {
		return api.WrapError(api.ErrCodeClosed, api.ErrBackendClosed, "backend closed twice")
	}
	if b.running {
		return api.WrapError(api.ErrCodeAlreadyRunning, api.ErrLoopAlreadyRunning,
			"cannot close a running backend")
	}
	b.closed = true
	unix.Close(b.wakefd)
	return unix.Close(b.epfd)
}

// updateWatch reconciles the epoll registration for one descriptor with
// the union mask of its active handles.
func (b *epollBackend) updateWatch(w *fdWatch) error {
	var mask uint32
	for _, h := range w.handles {
		if !h.started {
			continue
		}
		if h.events&api.EventRead != 0 {
			mask |= unix.EPOLLIN
		}
		if h.events&api.EventWrite != 0 {
			mask |= unix.EPOLLOUT
		}
	}
	switch {
	case mask == w.mask:
		return nil
	case w.mask == 0:
		ev := unix.EpollEvent{Events: mask, Fd: int32(w.fd)}
		if err := unix.EpollCtl(b.epfd, unix.EPOLL_CTL_ADD, w.fd, &ev); err != nil {
			return api.WrapError(api.ErrCodeInternal, err, "epoll ctl add failed").
				WithContext("fd", w.fd)
		}
		b.watches[w.fd] = w
	case mask == 0:
		err := unix.EpollCtl(b.epfd, unix.EPOLL_CTL_DEL, w.fd, nil)
		delete(b.watches, w.fd)
		w.mask = 0
		// ENOENT/EBADF mean the kernel already dropped the fd (closed
		// externally); the bookkeeping above is still required.
		if err != nil && err != unix.ENOENT && err != unix.EBADF {
			return api.WrapError(api.ErrCodeInternal, err, "epoll ctl del failed").
				WithContext("fd", w.fd)
		}
		return nil
	default:
		ev := unix.EpollEvent{Events: mask, Fd: int32(w.fd)}
		if err := unix.EpollCtl(b.epfd, unix.EPOLL_CTL_MOD, w.fd, &ev); err != nil {
			return api.WrapError(api.ErrCodeInternal, err, "epoll ctl mod failed").
				WithContext("fd", w.fd)
		}
	}
	w.mask = mask
	return nil
}
