// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The Syndesi Project

package sdp

import (
	"errors"
	"fmt"
)

// Buffer errors
var (
	// ErrBufferReleased is returned when reading through a buffer whose
	// storage has been released. Sub-views share their parent's storage, so
	// releasing the parent deterministically invalidates every view.
	ErrBufferReleased = errors.New("sdp: buffer storage released")

	// ErrOffsetOutOfRange is returned by SubView when the requested offset
	// lies beyond the parent's length.
	ErrOffsetOutOfRange = errors.New("sdp: sub-view offset beyond parent length")

	// ErrAllocationFailed is returned for allocation requests outside the
	// supported range.
	ErrAllocationFailed = errors.New("sdp: buffer allocation failed")
)

// maxAllocation bounds a single buffer allocation. Frame sizes are limited by
// the 16-bit length field, so anything near this limit is a caller bug.
const maxAllocation = 1 << 20

// block is the shared storage behind a Buffer and all of its sub-views.
type block struct {
	data     []byte
	owned    bool
	released bool
}

// Buffer is a view over a byte region: a shared storage block plus an offset
// and an optional clip length. A Buffer either owns its storage (allocated
// here, or adopted from a caller) or borrows it from a parent view. Borrowed
// views stay valid until the owning buffer is released or reallocated; after
// that every access fails with ErrBufferReleased instead of touching stale
// storage.
type Buffer struct {
	blk      *block
	off      int
	clip     int // 0 means no clip
	borrowed bool
}

// NewBuffer allocates an owned buffer of n bytes.
func NewBuffer(n int) (*Buffer, error) {
	b := &Buffer{}
	if err := b.Allocate(n); err != nil {
		return nil, err
	}
	return b, nil
}

// Allocate replaces the buffer's content with n freshly owned bytes. Any
// previously owned storage is released first, which invalidates outstanding
// sub-views of it.
func (b *Buffer) Allocate(n int) error {
	if n < 0 || n > maxAllocation {
		return fmt.Errorf("%w: %d bytes", ErrAllocationFailed, n)
	}
	if b.blk != nil && b.blk.owned {
		b.blk.released = true
		b.blk.data = nil
	}
	b.blk = &block{data: make([]byte, n), owned: true}
	b.off = 0
	b.clip = 0
	return nil
}

// FromBytes wraps or copies caller-supplied bytes. With copyData the bytes
// are duplicated into a freshly owned allocation; with takeOwnership the
// slice itself is adopted and released by this buffer; with neither, the
// slice is wrapped as externally owned storage that Release will not drop.
func FromBytes(data []byte, copyData, takeOwnership bool) *Buffer {
	if copyData {
		dup := make([]byte, len(data))
		copy(dup, data)
		return &Buffer{blk: &block{data: dup, owned: true}}
	}
	return &Buffer{blk: &block{data: data, owned: takeOwnership}}
}

// SubView returns a borrowed view starting at offset within b. A clip of 0
// extends the view to the end of b; otherwise the effective length is
// min(b.Length()-offset, clip). An offset beyond the parent's length is a
// contract violation, not an empty view.
func (b *Buffer) SubView(offset, clip int) (*Buffer, error) {
	if b.blk == nil || b.blk.released {
		return nil, ErrBufferReleased
	}
	if offset < 0 || offset > b.Length() {
		return nil, fmt.Errorf("%w: offset %d, parent length %d", ErrOffsetOutOfRange, offset, b.Length())
	}
	if clip < 0 {
		clip = 0
	}
	if remain := b.Length() - offset; clip == 0 || clip > remain {
		clip = remain
	}
	return &Buffer{blk: b.blk, off: b.off + offset, clip: clip, borrowed: true}, nil
}

// Length returns the effective byte count of the view. A view whose offset
// fell beyond the underlying storage (after a reallocation) reports 0.
func (b *Buffer) Length() int {
	if b.blk == nil || b.blk.released || b.off > len(b.blk.data) {
		return 0
	}
	n := len(b.blk.data) - b.off
	if b.clip > 0 && b.clip < n {
		n = b.clip
	}
	return n
}

// Bytes returns the view's byte range, clipped to its length. Mutations are
// visible through every view sharing the same storage.
func (b *Buffer) Bytes() ([]byte, error) {
	if b.blk == nil || b.blk.released {
		return nil, ErrBufferReleased
	}
	return b.blk.data[b.off : b.off+b.Length()], nil
}

// Release drops the buffer's storage. Owned storage is detached so reads
// through this buffer or any sub-view fail with ErrBufferReleased from now
// on; externally owned storage is only marked invalid, never freed here.
func (b *Buffer) Release() {
	if b.blk == nil {
		return
	}
	b.blk.released = true
	if b.blk.owned {
		b.blk.data = nil
	}
}

// Owned reports whether this buffer's storage is owned (allocated here or
// adopted) rather than borrowed from a parent or wrapped externally.
func (b *Buffer) Owned() bool {
	return b.blk != nil && b.blk.owned && !b.borrowed
}

// Offset returns the view's offset into the underlying storage.
func (b *Buffer) Offset() int {
	return b.off
}
