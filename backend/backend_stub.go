// File: backend/backend_stub.go
// Package backend - stub factory for unsupported platforms.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

//go:build !linux

package backend

import "github.com/momentics/taskhub/api"

// New reports that no native backend exists for this platform. Use the
// fake backend or supply a custom api.Backend implementation.
func New() (api.Backend, error) {
	return nil, api.WrapError(api.ErrCodeNotSupported, api.ErrNotSupported,
		"no event-loop backend for this platform")
}
