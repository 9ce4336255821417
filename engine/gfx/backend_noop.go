package gfx

func init() {
	RegisterBackend(RendererTypeNoop, func() Backend { return &noopBackend{} })
}

// noopBackend accepts every frame and draws nothing. It reports support for every
// feature so headless tools and tests exercise the full API.
type noopBackend struct {
	caps Caps
}

func (b *noopBackend) Type() RendererType { return RendererTypeNoop }

func (b *noopBackend) Init(init Init) error {
	b.caps = Caps{
		RendererType: RendererTypeNoop,
		Supported: CapsCompute | CapsIndex32 | CapsInstancing | CapsDrawIndirect |
			CapsSwapChain | CapsTexture2DArray | CapsVertexAttribHalf | CapsRendererMultithreaded,
		Limits:           init.Limits,
		HomogeneousDepth: false,
		MaxTextureSize:   16384,
	}
	all := FormatSupport2D | FormatSupportFrameBuffer | FormatSupportMSAA | FormatSupportMips
	for f := TextureFormatR8; f < TextureFormatCount; f++ {
		b.caps.Formats[f] = all
		if f.IsDepth() {
			b.caps.Formats[f] = FormatSupport2D | FormatSupportFrameBuffer
		}
	}
	Logger().Info("gfx: noop backend initialized", "width", init.Resolution.Width, "height", init.Resolution.Height)
	return nil
}

func (b *noopBackend) Caps() Caps { return b.caps }

func (b *noopBackend) RenderFrame(*Frame) error { return nil }

func (b *noopBackend) Shutdown() {}
