// Package wgpu_backend renders gfx frames with WebGPU through cogentcore/webgpu.
//
// Importing the package registers the backend for gfx.RendererTypeWebGPU:
//
//	import _ "github.com/Carmen-Shannon/oxy-gfx/engine/wgpu_backend"
//
// Shaders are WGSL. Vertex attributes are read from @location(n) where n is the
// gfx.Attrib id, the per-draw uniform block lives at @group(0) @binding(0) and texture
// stage s binds its texture at @group(1) @binding(2*s) and its sampler at 2*s+1. See
// package shader for the predefined uniform names.
//
// Debug text is rasterized with package font and drawn over the backbuffer after the
// last view.
//
// Without a native window handle the backend renders into an offscreen target, which
// lets it run on machines without a display.
package wgpu_backend
