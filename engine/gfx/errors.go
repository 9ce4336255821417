package gfx

import "errors"

var (
	// ErrBackendNotAvailable is returned when the requested renderer type has no registered backend.
	ErrBackendNotAvailable = errors.New("gfx: backend not available")

	// ErrInvalidConfig is returned by Init.Validate for out-of-range configuration values.
	ErrInvalidConfig = errors.New("gfx: invalid configuration")

	// ErrShutdown is returned when the context has already been shut down.
	ErrShutdown = errors.New("gfx: context is shut down")

	// ErrInvalidHandle is returned in strict mode when a draw references a handle that was never valid.
	ErrInvalidHandle = errors.New("gfx: invalid handle")

	// ErrStaleHandle is returned in strict mode when a draw references a destroyed resource.
	ErrStaleHandle = errors.New("gfx: stale handle")

	// ErrMissingVertexBuffer is returned in strict mode when a draw has no vertex source.
	ErrMissingVertexBuffer = errors.New("gfx: draw has no vertex buffer")

	// ErrDrawLimit is returned in strict mode when the per-frame draw limit is exhausted.
	ErrDrawLimit = errors.New("gfx: per-frame draw limit reached")

	// ErrInvalidArgument is returned in strict mode for out-of-range stream, stage or matrix arguments.
	ErrInvalidArgument = errors.New("gfx: invalid argument")

	// ErrInvalidView is returned in strict mode for a view id outside the configured range.
	ErrInvalidView = errors.New("gfx: view id out of range")
)
