package gfx

import (
	"fmt"
	"os"
	"path/filepath"
)

// ShaderPath returns the path of a precompiled shader for renderer t:
// <dir>/<name>.<ext> where ext comes from RendererType.ShaderExtension.
func ShaderPath(dir, name string, t RendererType) string {
	return filepath.Join(dir, name+"."+t.ShaderExtension())
}

// LoadShaderFile reads a precompiled shader and appends the NUL terminator that
// CreateShader expects.
//
// Parameters:
//   - dir: directory holding the shaders
//   - name: shader name without extension
//   - t: renderer type selecting the extension
//
// Returns:
//   - *Memory: the shader code, ready for CreateShader
//   - error: error if the file cannot be read
func LoadShaderFile(dir, name string, t RendererType) (*Memory, error) {
	path := ShaderPath(dir, name, t)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gfx: load shader %q: %w", path, err)
	}
	return &Memory{data: append(data, 0)}, nil
}

// LoadProgram loads a vertex and fragment shader for the context's renderer and links
// them. The program owns the shaders.
//
// Parameters:
//   - ctx: the context to create the program in
//   - dir: directory holding the shaders
//   - vsName: vertex shader name
//   - fsName: fragment shader name
//
// Returns:
//   - ProgramHandle: the linked program
//   - error: error if a file cannot be read or the program cannot be created
func LoadProgram(ctx Context, dir, vsName, fsName string) (ProgramHandle, error) {
	t := ctx.RendererType()
	vsMem, err := LoadShaderFile(dir, vsName, t)
	if err != nil {
		return ProgramHandle{}, err
	}
	fsMem, err := LoadShaderFile(dir, fsName, t)
	if err != nil {
		return ProgramHandle{}, err
	}

	vsh := ctx.CreateShader(vsMem)
	fsh := ctx.CreateShader(fsMem)
	ph := ctx.CreateProgram(vsh, fsh, true)
	if !ph.IsValid() {
		return ProgramHandle{}, fmt.Errorf("gfx: create program %s/%s: %w", vsName, fsName, ErrInvalidHandle)
	}
	return ph, nil
}

// LoadComputeProgram loads a compute shader for the context's renderer and links it.
func LoadComputeProgram(ctx Context, dir, csName string) (ProgramHandle, error) {
	csMem, err := LoadShaderFile(dir, csName, ctx.RendererType())
	if err != nil {
		return ProgramHandle{}, err
	}
	ph := ctx.CreateComputeProgram(ctx.CreateShader(csMem), true)
	if !ph.IsValid() {
		return ProgramHandle{}, fmt.Errorf("gfx: create compute program %s: %w", csName, ErrInvalidHandle)
	}
	return ph, nil
}
