package gfx

import (
	"bytes"
	"sync"

	"github.com/Carmen-Shannon/oxy-gfx/common"
)

// Memory is a block of data handed to a creation or update call. Each block is
// consumed by exactly one call.
//
// Copy duplicates the data immediately and is always safe. Reference keeps the
// caller's slice: the caller must not modify it until the frame that consumes it has
// been rendered, which in ThreadingMulti mode can be several Frame calls later.
// MakeRef additionally reports when the backend is done with the data.
type Memory struct {
	data    []byte
	release func()
	once    sync.Once
}

// Copy returns a Memory holding a private copy of data.
func Copy(data []byte) *Memory {
	return &Memory{data: bytes.Clone(data)}
}

// CopyOf returns a Memory holding a private copy of the raw bytes of a typed slice.
func CopyOf[T any](data []T) *Memory {
	return Copy(common.SliceToBytes(data))
}

// Reference returns a Memory that aliases data without copying.
func Reference(data []byte) *Memory {
	return &Memory{data: data}
}

// ReferenceOf returns a Memory that aliases the raw bytes of a typed slice.
func ReferenceOf[T any](data []T) *Memory {
	return Reference(common.SliceToBytes(data))
}

// MakeRef returns a Memory that aliases data and calls release once the backend has
// consumed it. release runs on the render goroutine.
func MakeRef(data []byte, release func()) *Memory {
	return &Memory{data: data, release: release}
}

// Data returns the bytes held by the block.
func (m *Memory) Data() []byte {
	if m == nil {
		return nil
	}
	return m.data
}

// Size returns the length of the block in bytes.
func (m *Memory) Size() uint32 {
	if m == nil {
		return 0
	}
	return uint32(len(m.data))
}

// finish runs the release callback at most once.
func (m *Memory) finish() {
	if m == nil || m.release == nil {
		return
	}
	m.once.Do(m.release)
}
