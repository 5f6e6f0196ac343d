// Copyright (c) 2026
// Author: momentics <momentics@gmail.com>

// Package backend provides the default event-loop backend driving a
// hub: an epoll(7)-based implementation on Linux and a stub factory on
// other platforms. Any other implementation of api.Backend can be
// plugged in instead.
package backend
