package gfx

// Command is a resource operation recorded into a frame. Backends execute a frame's
// PreCommands before its draws and its PostCommands after them, always on the
// render goroutine. Type-switch on the concrete command types below.
type Command interface {
	// Resource returns the kind and handle of the resource the command targets.
	Resource() (ResourceKind, Handle)
}

// CreateVertexBufferCommand creates a static vertex buffer.
type CreateVertexBufferCommand struct {
	Handle VertexBufferHandle
	Layout *VertexLayout
	Data   *Memory
	Flags  BufferFlags
}

func (c *CreateVertexBufferCommand) Resource() (ResourceKind, Handle) {
	return ResourceVertexBuffer, c.Handle.Handle
}

// CreateIndexBufferCommand creates a static index buffer.
type CreateIndexBufferCommand struct {
	Handle IndexBufferHandle
	Data   *Memory
	Flags  BufferFlags
}

func (c *CreateIndexBufferCommand) Resource() (ResourceKind, Handle) {
	return ResourceIndexBuffer, c.Handle.Handle
}

// CreateDynamicVertexBufferCommand creates an updatable vertex buffer of Size bytes.
type CreateDynamicVertexBufferCommand struct {
	Handle DynamicVertexBufferHandle
	Layout *VertexLayout
	Size   uint32
	Flags  BufferFlags
}

func (c *CreateDynamicVertexBufferCommand) Resource() (ResourceKind, Handle) {
	return ResourceDynamicVertexBuffer, c.Handle.Handle
}

// UpdateDynamicVertexBufferCommand writes Data at byte Offset. Size is the buffer size
// after the update, larger than before when the buffer was created with
// BufferAllowResize and the write extends past its end.
type UpdateDynamicVertexBufferCommand struct {
	Handle DynamicVertexBufferHandle
	Offset uint32
	Size   uint32
	Data   *Memory
}

func (c *UpdateDynamicVertexBufferCommand) Resource() (ResourceKind, Handle) {
	return ResourceDynamicVertexBuffer, c.Handle.Handle
}

// CreateDynamicIndexBufferCommand creates an updatable index buffer of Size bytes.
type CreateDynamicIndexBufferCommand struct {
	Handle DynamicIndexBufferHandle
	Size   uint32
	Flags  BufferFlags
}

func (c *CreateDynamicIndexBufferCommand) Resource() (ResourceKind, Handle) {
	return ResourceDynamicIndexBuffer, c.Handle.Handle
}

// UpdateDynamicIndexBufferCommand writes Data at byte Offset.
type UpdateDynamicIndexBufferCommand struct {
	Handle DynamicIndexBufferHandle
	Offset uint32
	Size   uint32
	Data   *Memory
}

func (c *UpdateDynamicIndexBufferCommand) Resource() (ResourceKind, Handle) {
	return ResourceDynamicIndexBuffer, c.Handle.Handle
}

// CreateShaderCommand creates a shader module from Code, which has any trailing NUL
// terminator removed.
type CreateShaderCommand struct {
	Handle ShaderHandle
	Code   []byte
}

func (c *CreateShaderCommand) Resource() (ResourceKind, Handle) {
	return ResourceShader, c.Handle.Handle
}

// CreateProgramCommand links a program. Compute programs set Compute and leave
// Vertex and Fragment invalid.
type CreateProgramCommand struct {
	Handle   ProgramHandle
	Vertex   ShaderHandle
	Fragment ShaderHandle
	Compute  ShaderHandle
}

func (c *CreateProgramCommand) Resource() (ResourceKind, Handle) {
	return ResourceProgram, c.Handle.Handle
}

// CreateUniformCommand declares a uniform.
type CreateUniformCommand struct {
	Handle UniformHandle
	Info   UniformInfo
}

func (c *CreateUniformCommand) Resource() (ResourceKind, Handle) {
	return ResourceUniform, c.Handle.Handle
}

// CreateTextureCommand creates a texture, optionally with initial contents laid out
// mip by mip, layer by layer.
type CreateTextureCommand struct {
	Handle TextureHandle
	Info   TextureInfo
	Flags  TextureFlags
	Data   *Memory
}

func (c *CreateTextureCommand) Resource() (ResourceKind, Handle) {
	return ResourceTexture, c.Handle.Handle
}

// UpdateTextureCommand replaces a rectangle of one mip level of one layer.
type UpdateTextureCommand struct {
	Handle TextureHandle
	Layer  uint16
	Mip    uint8
	X      uint16
	Y      uint16
	Width  uint16
	Height uint16
	Pitch  uint32
	Data   *Memory
}

func (c *UpdateTextureCommand) Resource() (ResourceKind, Handle) {
	return ResourceTexture, c.Handle.Handle
}

// CreateFrameBufferCommand creates a frame buffer. Window-backed frame buffers set
// Window to the native window handle and carry no attachments.
type CreateFrameBufferCommand struct {
	Handle      FrameBufferHandle
	Attachments []Attachment
	Window      any
	Width       uint32
	Height      uint32
	Format      TextureFormat
	DepthFormat TextureFormat
}

func (c *CreateFrameBufferCommand) Resource() (ResourceKind, Handle) {
	return ResourceFrameBuffer, c.Handle.Handle
}

// DestroyCommand releases the backend object behind a handle.
type DestroyCommand struct {
	Kind   ResourceKind
	Handle Handle
}

func (c *DestroyCommand) Resource() (ResourceKind, Handle) { return c.Kind, c.Handle }
