package gfx

import (
	"fmt"
	"sync"
)

// Backend executes recorded frames on a concrete graphics API.
//
// All methods except Type are called on the render goroutine: the caller's goroutine
// in ThreadingSingle and ThreadingManual, the dedicated render goroutine in
// ThreadingMulti. A backend never sees concurrent calls.
type Backend interface {
	// Type returns the renderer type the backend implements.
	Type() RendererType

	// Init creates the device and the backbuffer described by init.
	//
	// Parameters:
	//   - init: the validated context configuration
	//
	// Returns:
	//   - error: error if the backend cannot run on this system
	Init(init Init) error

	// Caps returns the capabilities of the initialized backend.
	Caps() Caps

	// RenderFrame executes f: its PreCommands, then each view's clear and items in
	// order, then its PostCommands, then presents. Memory blocks referenced by the
	// commands may be retained only until RenderFrame returns.
	//
	// Parameters:
	//   - f: the frame to render
	//
	// Returns:
	//   - error: error if the frame could not be rendered; the context logs it and
	//     continues with the next frame
	RenderFrame(f *Frame) error

	// Shutdown releases every backend object.
	Shutdown()
}

// BackendFactory creates a new backend instance.
type BackendFactory func() Backend

var (
	registryMu sync.RWMutex
	backends   = make(map[RendererType]BackendFactory)
)

// RegisterBackend registers a backend factory for a renderer type. Backend packages
// call this from init. A later registration for the same type replaces the earlier one.
func RegisterBackend(t RendererType, factory BackendFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[t] = factory
}

// UnregisterBackend removes a backend from the registry.
func UnregisterBackend(t RendererType) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, t)
}

// Backends returns the registered renderer types in automatic selection order.
func Backends() []RendererType {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]RendererType, 0, len(backends))
	for _, t := range backendPriority {
		if _, ok := backends[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// IsBackendRegistered reports whether a backend is registered for t.
func IsBackendRegistered(t RendererType) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[t]
	return ok
}

// NewBackend returns a new backend instance for t. RendererTypeCount selects the
// first registered type in priority order.
func NewBackend(t RendererType) (Backend, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	candidates := []RendererType{t}
	if t == RendererTypeCount {
		candidates = backendPriority
	}
	for _, c := range candidates {
		if factory, ok := backends[c]; ok {
			if b := factory(); b != nil {
				return b, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrBackendNotAvailable, t)
}
