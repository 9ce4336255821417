package wgpu_backend

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gfx/common"
	"github.com/Carmen-Shannon/oxy-gfx/engine/gfx"
	"github.com/Carmen-Shannon/oxy-gfx/engine/wgpu_backend/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// uniformStaging packs the uniform blocks of every draw of a frame into one byte slice.
// Each block starts at a multiple of align so it can be bound with a dynamic offset.
type uniformStaging struct {
	align uint32
	data  []byte
}

func (s *uniformStaging) reset() { s.data = s.data[:0] }

// alloc reserves size zeroed bytes and returns their offset and the slice to fill.
func (s *uniformStaging) alloc(size uint32) (uint32, []byte) {
	off := alignTo(uint32(len(s.data)), max(s.align, 1))
	end := off + size
	if uint32(cap(s.data)) < end {
		grown := make([]byte, len(s.data), max(end, uint32(cap(s.data))*2))
		copy(grown, s.data)
		s.data = grown
	}
	s.data = s.data[:end]
	clear(s.data[off:end])
	return off, s.data[off:end]
}

// streamBuffer is a GPU buffer rewritten every frame: the packed uniforms and the
// transient vertex and index data. It only grows; every reallocation bumps gen so bind
// groups referring to it know to be rebuilt.
type streamBuffer struct {
	label string
	usage wgpu.BufferUsage
	buf   *wgpu.Buffer
	size  uint64
	gen   uint64
}

// upload writes data to the start of the buffer, growing it first when needed.
//
// Parameters:
//   - device: the device that owns the buffer
//   - queue: the queue used for the write
//   - data: the bytes of this frame
//
// Returns:
//   - error: error if the buffer could not be created or written
func (u *streamBuffer) upload(device *wgpu.Device, queue *wgpu.Queue, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	need := uint64(alignTo(uint32(len(data)), 256))
	if u.buf == nil || u.size < need {
		size := max(need, u.size*2, 64<<10)
		buf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: u.label,
			Usage: u.usage | wgpu.BufferUsageCopyDst,
			Size:  size,
		})
		if err != nil {
			return fmt.Errorf("wgpu: %s buffer of %d bytes: %w", u.label, size, err)
		}
		u.release()
		u.buf, u.size = buf, size
		u.gen++
	}
	return queue.WriteBuffer(u.buf, 0, padded(data))
}

func (u *streamBuffer) release() {
	if u.buf != nil {
		u.buf.Destroy()
		u.buf.Release()
		u.buf = nil
	}
}

// drawMatrices are the predefined matrices of one draw.
type drawMatrices struct {
	viewRect  [4]float32
	viewTexel [4]float32
	view      [16]float32
	invView   [16]float32
	proj      [16]float32
	viewProj  [16]float32
}

func newDrawMatrices(v *gfx.View, x, y, w, h uint32) drawMatrices {
	m := drawMatrices{
		viewRect: [4]float32{float32(x), float32(y), float32(w), float32(h)},
		view:     v.ViewMatrix,
		proj:     v.Projection,
	}
	if w > 0 && h > 0 {
		m.viewTexel = [4]float32{1 / float32(w), 1 / float32(h), 0, 0}
	}
	if !common.Invert4(m.invView[:], m.view[:]) {
		common.Identity(m.invView[:])
	}
	common.Mul4(m.viewProj[:], m.proj[:], m.view[:])
	return m
}

// fillUniforms writes the predefined and user uniforms of draw it into dst, laid out
// per block.
func fillUniforms(dst []byte, block *shader.UniformBlock, m *drawMatrices, f *gfx.Frame, it *gfx.RenderItem) {
	block.Write(dst, shader.UniformViewRect, m.viewRect[:], 1, 4)
	block.Write(dst, shader.UniformViewTexel, m.viewTexel[:], 1, 4)
	block.Write(dst, shader.UniformView, m.view[:], 4, 4)
	block.Write(dst, shader.UniformInvView, m.invView[:], 4, 4)
	block.Write(dst, shader.UniformProj, m.proj[:], 4, 4)
	block.Write(dst, shader.UniformViewProj, m.viewProj[:], 4, 4)

	if _, ok := block.Member(shader.UniformModel); ok {
		n := max(int(it.NumTransforms), 1)
		models := make([]float32, 0, n*16)
		for i := range n {
			mtx := f.Transform(it.Transform + uint32(i))
			models = append(models, mtx[:]...)
		}
		block.Write(dst, shader.UniformModel, models, 4, 4)
	}

	model := f.Transform(it.Transform)
	var mv, mvp [16]float32
	common.Mul4(mv[:], m.view[:], model[:])
	common.Mul4(mvp[:], m.viewProj[:], model[:])
	block.Write(dst, shader.UniformModelView, mv[:], 4, 4)
	block.Write(dst, shader.UniformModelViewProj, mvp[:], 4, 4)

	for _, u := range it.Uniforms {
		switch u.Type {
		case gfx.UniformVec4:
			block.Write(dst, u.Name, u.Values, 1, 4)
		case gfx.UniformMat3:
			block.Write(dst, u.Name, u.Values, 3, 3)
		case gfx.UniformMat4:
			block.Write(dst, u.Name, u.Values, 4, 4)
		}
	}
}
