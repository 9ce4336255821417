package wgpu_backend

import (
	"fmt"
	"slices"

	"github.com/cogentcore/webgpu/wgpu"
)

// renderTexture is a texture owned by the backend together with its default view.
type renderTexture struct {
	tex  *wgpu.Texture
	view *wgpu.TextureView
}

func newRenderTexture(device *wgpu.Device, label string, format wgpu.TextureFormat, width, height, samples uint32, usage wgpu.TextureUsage) (*renderTexture, error) {
	tex, err := device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   samples,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: %s texture: %w", label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("wgpu: %s view: %w", label, err)
	}
	return &renderTexture{tex: tex, view: view}, nil
}

func (t *renderTexture) release() {
	if t == nil {
		return
	}
	t.view.Release()
	t.tex.Destroy()
	t.tex.Release()
}

// swapChain is a presentable color target with its own MSAA and depth textures. The
// backbuffer and every window frame buffer each own one. Without a surface it renders
// into an offscreen texture, which is how the backend runs headless.
type swapChain struct {
	surface     *wgpu.Surface
	format      wgpu.TextureFormat
	depthFormat wgpu.TextureFormat
	width       uint32
	height      uint32
	samples     uint32
	vsync       bool

	offscreen *renderTexture
	msaa      *renderTexture
	depth     *renderTexture

	// Set between acquire and present.
	current     *wgpu.Texture
	currentView *wgpu.TextureView
}

// configure (re)creates the surface configuration and the attachments for a new size.
//
// Parameters:
//   - adapter: the adapter the surface was made compatible with
//   - device: the device that renders into the surface
//   - width, height: the size in pixels
//
// Returns:
//   - error: error if an attachment could not be created
func (s *swapChain) configure(adapter *wgpu.Adapter, device *wgpu.Device, width, height uint32) error {
	s.releaseAttachments()
	s.width, s.height = max(width, 1), max(height, 1)

	if s.surface != nil {
		capabilities := s.surface.GetCapabilities(adapter)
		if len(capabilities.Formats) > 0 && !slices.Contains(capabilities.Formats, s.format) {
			s.format = capabilities.Formats[0]
		}
		alpha := wgpu.CompositeAlphaModeAuto
		if len(capabilities.AlphaModes) > 0 {
			alpha = capabilities.AlphaModes[0]
		}
		s.surface.Configure(adapter, device, &wgpu.SurfaceConfiguration{
			Usage:       wgpu.TextureUsageRenderAttachment,
			Format:      s.format,
			Width:       s.width,
			Height:      s.height,
			PresentMode: presentMode(s.vsync, capabilities.PresentModes),
			AlphaMode:   alpha,
		})
	} else {
		var err error
		s.offscreen, err = newRenderTexture(device, "Offscreen Backbuffer", s.format, s.width, s.height, 1,
			wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageCopySrc)
		if err != nil {
			return err
		}
	}

	var err error
	if s.samples > 1 {
		// The pass draws into the MSAA texture and resolves into the swap chain image.
		s.msaa, err = newRenderTexture(device, "MSAA", s.format, s.width, s.height, s.samples, wgpu.TextureUsageRenderAttachment)
		if err != nil {
			return err
		}
	}
	if s.depthFormat != wgpu.TextureFormatUndefined {
		// Depth sample count must match the color attachment.
		s.depth, err = newRenderTexture(device, "Depth", s.depthFormat, s.width, s.height, max(s.samples, 1), wgpu.TextureUsageRenderAttachment)
		if err != nil {
			return err
		}
	}
	return nil
}

// presentMode picks FIFO for vsync, otherwise the first uncapped mode available.
func presentMode(vsync bool, available []wgpu.PresentMode) wgpu.PresentMode {
	if vsync {
		return wgpu.PresentModeFifo
	}
	for _, m := range []wgpu.PresentMode{wgpu.PresentModeImmediate, wgpu.PresentModeMailbox} {
		if len(available) == 0 || slices.Contains(available, m) {
			return m
		}
	}
	return wgpu.PresentModeFifo
}

// acquire returns the view to render into this frame. The surface image is acquired
// once and held until present.
func (s *swapChain) acquire() (*wgpu.TextureView, error) {
	if s.surface == nil {
		return s.offscreen.view, nil
	}
	if s.currentView != nil {
		return s.currentView, nil
	}
	tex, err := s.surface.GetCurrentTexture()
	if err != nil {
		return nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}
	s.current, s.currentView = tex, view
	return view, nil
}

// target describes the attachments of a pass drawing into the swap chain.
func (s *swapChain) target(view *wgpu.TextureView) renderTarget {
	t := renderTarget{width: s.width, height: s.height}
	t.key.numColors = 1
	t.key.colors[0] = s.format
	t.key.samples = max(s.samples, 1)
	if s.msaa != nil {
		t.colors = []colorAttachment{{view: s.msaa.view, resolve: view}}
	} else {
		t.colors = []colorAttachment{{view: view}}
	}
	if s.depth != nil {
		t.depth = s.depth.view
		t.key.depth = s.depthFormat
	}
	return t
}

// present shows the acquired image, if any.
func (s *swapChain) present() {
	if s.currentView == nil {
		return
	}
	s.surface.Present()
	s.currentView.Release()
	s.current.Release()
	s.currentView, s.current = nil, nil
}

func (s *swapChain) releaseAttachments() {
	s.offscreen.release()
	s.msaa.release()
	s.depth.release()
	s.offscreen, s.msaa, s.depth = nil, nil, nil
}

func (s *swapChain) release() {
	if s.currentView != nil {
		s.currentView.Release()
		s.current.Release()
		s.currentView, s.current = nil, nil
	}
	s.releaseAttachments()
	if s.surface != nil {
		s.surface.Release()
		s.surface = nil
	}
}

// colorAttachment is one color target of a pass, with the view it resolves into when
// multisampled.
type colorAttachment struct {
	view    *wgpu.TextureView
	resolve *wgpu.TextureView
}

// renderTarget is everything a view needs to begin a render pass.
type renderTarget struct {
	colors []colorAttachment
	depth  *wgpu.TextureView
	key    targetKey
	width  uint32
	height uint32
}
