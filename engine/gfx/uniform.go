package gfx

// UniformType is the element type of a uniform.
type UniformType uint8

const (
	// UniformSampler binds a texture stage index.
	UniformSampler UniformType = iota
	UniformVec4
	UniformMat3
	UniformMat4
)

var uniformTypeInfo = [...]struct {
	name   string
	floats uint16
}{
	UniformSampler: {"Sampler", 1},
	UniformVec4:    {"Vec4", 4},
	UniformMat3:    {"Mat3", 9},
	UniformMat4:    {"Mat4", 16},
}

func (t UniformType) String() string {
	if int(t) < len(uniformTypeInfo) {
		return uniformTypeInfo[t].name
	}
	return "Unknown"
}

// Floats returns the number of float32 values in one element of the type.
func (t UniformType) Floats() uint16 {
	if int(t) < len(uniformTypeInfo) {
		return uniformTypeInfo[t].floats
	}
	return 0
}

// UniformInfo describes a created uniform.
type UniformInfo struct {
	Name string
	Type UniformType
	Num  uint16
}

// UseCreationNum passed as the element count to SetUniform uses the count the uniform
// was created with.
const UseCreationNum = 0xffff
