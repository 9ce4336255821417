// Package gfx implements a frame submission protocol for cross-platform rendering.
//
// A Context owns generation-checked handle tables for every resource kind, the
// persistent state of each view, a main Encoder that accumulates draw state, and a
// sequencer that hands finished frames to a Backend. Resource creation and destruction
// are recorded as commands in the current frame so the backend only touches GPU
// objects on its render goroutine; destroyed slot indices are reused only after the
// frame carrying the destroy has been rendered.
//
// A typical frame:
//
//	ctx.SetViewClear(0, gfx.ClearColor|gfx.ClearDepth, 0x303030ff, 1, 0)
//	ctx.SetViewRect(0, 0, 0, width, height)
//	ctx.Touch(0)
//	ctx.SetTransform(model)
//	ctx.SetVertexBuffer(0, vbh, 0, gfx.NumAll)
//	ctx.SetIndexBuffer(ibh, 0, gfx.NumAll)
//	ctx.SetState(gfx.StateDefault, 0)
//	ctx.Submit(0, program, 0, gfx.DiscardAll)
//	ctx.Frame(false)
//
// The package is lenient by default: invalid or stale handles are dropped from the
// draw and logged. Init.Strict turns the same conditions into errors returned from
// Submit, Dispatch and Touch.
package gfx
