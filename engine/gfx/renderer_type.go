package gfx

// RendererType identifies a backend implementation.
type RendererType uint8

const (
	// RendererTypeNoop renders nothing. Useful for tests and headless tools.
	RendererTypeNoop RendererType = iota
	RendererTypeDirect3D11
	RendererTypeDirect3D12
	RendererTypeMetal
	RendererTypeOpenGLES
	RendererTypeOpenGL
	RendererTypeVulkan
	RendererTypeWebGPU

	// RendererTypeCount selects the best registered backend at init.
	RendererTypeCount
)

var rendererTypeInfo = [...]struct {
	name string
	ext  string
}{
	RendererTypeNoop:       {"Noop", "bin"},
	RendererTypeDirect3D11: {"Direct3D11", "dx11"},
	RendererTypeDirect3D12: {"Direct3D12", "dx12"},
	RendererTypeMetal:      {"Metal", "mt"},
	RendererTypeOpenGLES:   {"OpenGLES", "essl"},
	RendererTypeOpenGL:     {"OpenGL", "gl"},
	RendererTypeVulkan:     {"Vulkan", "vk"},
	RendererTypeWebGPU:     {"WebGPU", "wgsl"},
	RendererTypeCount:      {"Auto", ""},
}

func (t RendererType) String() string {
	if int(t) < len(rendererTypeInfo) {
		return rendererTypeInfo[t].name
	}
	return "Unknown"
}

// ShaderExtension returns the file extension used for precompiled shaders of this
// renderer type, without the leading dot.
func (t RendererType) ShaderExtension() string {
	if int(t) < len(rendererTypeInfo) {
		return rendererTypeInfo[t].ext
	}
	return ""
}

// backendPriority orders renderer types for automatic selection.
var backendPriority = []RendererType{
	RendererTypeWebGPU,
	RendererTypeVulkan,
	RendererTypeMetal,
	RendererTypeDirect3D12,
	RendererTypeDirect3D11,
	RendererTypeOpenGL,
	RendererTypeOpenGLES,
	RendererTypeNoop,
}
