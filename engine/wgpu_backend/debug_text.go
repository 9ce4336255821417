package wgpu_backend

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/Carmen-Shannon/oxy-gfx/engine/font"
	"github.com/Carmen-Shannon/oxy-gfx/engine/gfx"
	"github.com/cogentcore/webgpu/wgpu"
)

const (
	// debugCellWidth and debugCellHeight are the pixel size of one debug text cell.
	debugCellWidth  = 8
	debugCellHeight = 16
	// debugFontSize is the em size that fits a line into one cell.
	debugFontSize = 13
)

// debugPalette maps the 4-bit color indices of a debug text attribute. The low nibble
// selects the glyph color and the high nibble the background. Index 0 is transparent.
var debugPalette = [16]color.RGBA{
	{0x00, 0x00, 0x00, 0x00},
	{0x00, 0x00, 0xaa, 0xff},
	{0x00, 0xaa, 0x00, 0xff},
	{0x00, 0xaa, 0xaa, 0xff},
	{0xaa, 0x00, 0x00, 0xff},
	{0xaa, 0x00, 0xaa, 0xff},
	{0xaa, 0x55, 0x00, 0xff},
	{0xaa, 0xaa, 0xaa, 0xff},
	{0x55, 0x55, 0x55, 0xff},
	{0x55, 0x55, 0xff, 0xff},
	{0x55, 0xff, 0x55, 0xff},
	{0x55, 0xff, 0xff, 0xff},
	{0xff, 0x55, 0x55, 0xff},
	{0xff, 0x55, 0xff, 0xff},
	{0xff, 0xff, 0x55, 0xff},
	{0xff, 0xff, 0xff, 0xff},
}

const debugTextShader = `
@group(0) @binding(0) var t_text: texture_2d<f32>;

struct VertexOutput {
	@builtin(position) position: vec4<f32>,
};

@vertex
fn vs_main(@builtin(vertex_index) index: u32) -> VertexOutput {
	let uv = vec2<f32>(f32((index << 1u) & 2u), f32(index & 2u));
	var out: VertexOutput;
	out.position = vec4<f32>(uv.x * 2.0 - 1.0, 1.0 - uv.y * 2.0, 0.0, 1.0);
	return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
	let size = vec2<i32>(textureDimensions(t_text));
	let p = min(vec2<i32>(in.position.xy), size - vec2<i32>(1, 1));
	return textureLoad(t_text, p, 0);
}
`

// debugTextLines returns the lines a frame asks to be drawn, or nil when debug text is
// off.
func debugTextLines(f *gfx.Frame) []gfx.DebugTextLine {
	if f.Debug&gfx.DebugText == 0 {
		return nil
	}
	return f.DebugText
}

// debugTextLayer rasterizes debug text into a backbuffer-sized image with a
// transparent background.
type debugTextLayer struct {
	face *font.Face
	img  *image.RGBA
}

// render draws lines on the character grid and returns the image, reused between
// calls of the same size.
//
// Parameters:
//   - lines: the debug text of the frame
//   - width, height: the backbuffer size in pixels
//
// Returns:
//   - *image.RGBA: premultiplied pixels, transparent where nothing was drawn
//   - error: error if the font face could not be created
func (l *debugTextLayer) render(lines []gfx.DebugTextLine, width, height uint32) (*image.RGBA, error) {
	if l.face == nil {
		face, err := font.NewDefaultFace(debugFontSize)
		if err != nil {
			return nil, fmt.Errorf("debug text face: %w", err)
		}
		l.face = face
	}

	bounds := image.Rect(0, 0, int(width), int(height))
	if l.img == nil || l.img.Bounds() != bounds {
		l.img = image.NewRGBA(bounds)
	} else {
		draw.Draw(l.img, bounds, image.Transparent, image.Point{}, draw.Src)
	}

	for _, line := range lines {
		pt := image.Pt(int(line.X)*debugCellWidth, int(line.Y)*debugCellHeight)
		if !pt.In(bounds) || line.Text == "" {
			continue
		}
		if bg := debugPalette[line.Attr>>4]; bg.A != 0 {
			cells := image.Rect(pt.X, pt.Y, pt.X+len(line.Text)*debugCellWidth, pt.Y+debugCellHeight)
			draw.Draw(l.img, cells.Intersect(bounds), image.NewUniform(bg), image.Point{}, draw.Src)
		}
		if fg := debugPalette[line.Attr&0x0f]; fg.A != 0 {
			l.face.DrawColored(l.img, pt, line.Text, fg)
		}
	}
	return l.img, nil
}

func (l *debugTextLayer) release() {
	if l.face != nil {
		l.face.Close()
		l.face = nil
	}
	l.img = nil
}

// debugOverlay draws the debug text layer over the backbuffer after every view.
type debugOverlay struct {
	layer debugTextLayer

	module      *wgpu.ShaderModule
	groupLayout *wgpu.BindGroupLayout
	layout      *wgpu.PipelineLayout
	pipelines   map[targetKey]*wgpu.RenderPipeline

	texture *renderTexture
	group   *wgpu.BindGroup
	width   uint32
	height  uint32
}

func (o *debugOverlay) init(device *wgpu.Device) error {
	if o.module != nil {
		return nil
	}
	var err error
	o.module, err = device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "gfx debug text",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: debugTextShader},
	})
	if err != nil {
		return fmt.Errorf("wgpu: debug text shader: %w", err)
	}
	o.groupLayout, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "gfx debug text",
		Entries: []wgpu.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: wgpu.ShaderStageFragment,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeFloat,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		}},
	})
	if err != nil {
		return fmt.Errorf("wgpu: debug text bind group layout: %w", err)
	}
	o.layout, err = device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "gfx debug text",
		BindGroupLayouts: []*wgpu.BindGroupLayout{o.groupLayout},
	})
	if err != nil {
		return fmt.Errorf("wgpu: debug text pipeline layout: %w", err)
	}
	o.pipelines = make(map[targetKey]*wgpu.RenderPipeline)
	return nil
}

// resize recreates the texture and its bind group when the backbuffer size changed.
func (o *debugOverlay) resize(device *wgpu.Device, width, height uint32) error {
	if o.texture != nil && o.width == width && o.height == height {
		return nil
	}
	o.releaseTexture()
	var err error
	o.texture, err = newRenderTexture(device, "Debug Text", wgpu.TextureFormatRGBA8Unorm, width, height, 1,
		wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopyDst)
	if err != nil {
		return err
	}
	o.group, err = device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "gfx debug text",
		Layout:  o.groupLayout,
		Entries: []wgpu.BindGroupEntry{{Binding: 0, TextureView: o.texture.view}},
	})
	if err != nil {
		o.releaseTexture()
		return fmt.Errorf("wgpu: debug text bind group: %w", err)
	}
	o.width, o.height = width, height
	return nil
}

func (o *debugOverlay) pipeline(device *wgpu.Device, key targetKey) (*wgpu.RenderPipeline, error) {
	if rp, ok := o.pipelines[key]; ok {
		return rp, nil
	}
	rp, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "gfx debug text",
		Layout: o.layout,
		Vertex: wgpu.VertexState{
			Module:     o.module,
			EntryPoint: "vs_main",
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: max(key.samples, 1),
			Mask:  0xFFFFFFFF,
		},
		Fragment: &wgpu.FragmentState{
			Module:     o.module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format: key.colors[0],
				// The layer is premultiplied.
				Blend: &wgpu.BlendState{
					Color: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorOne,
						DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						Operation: wgpu.BlendOperationAdd,
					},
					Alpha: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorOne,
						DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						Operation: wgpu.BlendOperationAdd,
					},
				},
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: debug text pipeline: %w", err)
	}
	o.pipelines[key] = rp
	return rp, nil
}

func (o *debugOverlay) releaseTexture() {
	if o.group != nil {
		o.group.Release()
		o.group = nil
	}
	o.texture.release()
	o.texture = nil
	o.width, o.height = 0, 0
}

func (o *debugOverlay) release() {
	o.releaseTexture()
	for key, rp := range o.pipelines {
		rp.Release()
		delete(o.pipelines, key)
	}
	if o.layout != nil {
		o.layout.Release()
		o.layout = nil
	}
	if o.groupLayout != nil {
		o.groupLayout.Release()
		o.groupLayout = nil
	}
	if o.module != nil {
		o.module.Release()
		o.module = nil
	}
	o.layer.release()
}

// encodeDebugText uploads the debug text of f and draws it over the backbuffer.
func (b *wgpuBackend) encodeDebugText(enc *wgpu.CommandEncoder, f *gfx.Frame) error {
	lines := debugTextLines(f)
	if len(lines) == 0 {
		return nil
	}
	o := &b.debug
	if err := o.init(b.device); err != nil {
		return err
	}

	target, err := b.viewTarget(gfx.FrameBufferHandle{})
	if err != nil {
		return fmt.Errorf("debug text: %w", err)
	}
	if err := o.resize(b.device, target.width, target.height); err != nil {
		return err
	}
	img, err := o.layer.render(lines, target.width, target.height)
	if err != nil {
		return err
	}
	err = b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture: o.texture.tex,
			Aspect:  wgpu.TextureAspectAll,
		},
		img.Pix,
		&wgpu.TextureDataLayout{
			BytesPerRow:  uint32(img.Stride),
			RowsPerImage: target.height,
		},
		&wgpu.Extent3D{Width: target.width, Height: target.height, DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("wgpu: debug text upload: %w", err)
	}

	// Drawn without depth so the overlay never fails a depth test.
	target.depth = nil
	target.key.depth = wgpu.TextureFormatUndefined
	rp, err := o.pipeline(b.device, target.key)
	if err != nil {
		return err
	}
	pass, err := beginRenderPass(enc, "debug text", target, gfx.ClearState{}, false)
	if err != nil {
		return err
	}
	defer pass.Release()
	pass.SetPipeline(rp)
	pass.SetBindGroup(0, o.group, nil)
	pass.Draw(3, 1, 0, 0)
	if err := pass.End(); err != nil {
		return fmt.Errorf("wgpu: end debug text pass: %w", err)
	}
	return nil
}
