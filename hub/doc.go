// Copyright (c) 2026
// Author: momentics <momentics@gmail.com>

// Package hub implements the reactor core of the cooperative-task
// runtime: a single-threaded event loop multiplexing descriptor
// readiness, one-shot timers, and signal interception across many
// lightweight tasks.
//
// Tasks written in a blocking style park themselves in Trampoline,
// which registers a readiness listener (and optionally a timeout
// timer) with the hub, suspends the task, and guarantees listener
// removal and timer cancellation on every exit path: normal readiness,
// descriptor close, timeout, and externally injected cancellation.
//
// One hub exists per scheduling thread. Default returns the
// process-wide instance, lazily constructed on first use.
package hub
