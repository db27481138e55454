// Copyright 2018-2019 The logrange Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package datatype

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/spykewave/spykewave/pkg/memmap"
	"github.com/spykewave/spykewave/pkg/ndarray"
	"github.com/spykewave/spykewave/pkg/util"
	"github.com/spykewave/spykewave/pkg/virtual"
)

type (
	// Buffer is the data storage of an object
	Buffer interface {
		Shape() []int
		DType() ndarray.DType
		// Index returns the sub-array, which can be a view of the buffer
		Index(idx ...ndarray.Slice) (*ndarray.Array, error)
		// Filename returns the backing file, empty if there is no single one
		Filename() string
		Flush() error
		// Clear releases resident memory keeping the buffer usable
		Clear() error
		Close() error
	}

	// MemMapBuffer is a Buffer over one memory-mapped .npy file
	MemMapBuffer struct {
		MM *memmap.MemMap
	}

	// VirtualBuffer is a Buffer over a virtual array of raw chunk files
	VirtualBuffer struct {
		VA      *virtual.Array
		Files   []string
		Headers []virtual.ChunkHeader
	}

	// backing is a Buffer shared by shallow copies of an object. The last
	// owner closes the buffer and removes the file if it is managed.
	backing struct {
		buf     Buffer
		managed bool
		refs    int32
	}
)

func (mb *MemMapBuffer) Shape() []int {
	return mb.MM.Shape()
}

func (mb *MemMapBuffer) DType() ndarray.DType {
	return mb.MM.DType()
}

func (mb *MemMapBuffer) Index(idx ...ndarray.Slice) (*ndarray.Array, error) {
	arr := mb.MM.Array()
	if arr == nil {
		return nil, util.ErrWrongState
	}
	return arr.Index(idx...)
}

func (mb *MemMapBuffer) Filename() string {
	return mb.MM.Filename()
}

func (mb *MemMapBuffer) Flush() error {
	return mb.MM.Flush()
}

// Clear flushes the file and maps it again in the same mode
func (mb *MemMapBuffer) Clear() error {
	return mb.MM.Reopen(mb.MM.Mode())
}

func (mb *MemMapBuffer) Close() error {
	return mb.MM.Close()
}

func (vb *VirtualBuffer) Shape() []int {
	return vb.VA.Shape()
}

func (vb *VirtualBuffer) DType() ndarray.DType {
	return vb.VA.DType()
}

// Index supports up to two unit step slices
func (vb *VirtualBuffer) Index(idx ...ndarray.Slice) (*ndarray.Array, error) {
	if len(idx) > 2 {
		return nil, util.ValueError("at most 2 indices", "idx", fmt.Sprint(len(idx)))
	}
	row, col := ndarray.Full(), ndarray.Full()
	if len(idx) > 0 {
		row = idx[0]
	}
	if len(idx) > 1 {
		col = idx[1]
	}
	return vb.VA.At(row, col)
}

func (vb *VirtualBuffer) Filename() string {
	return ""
}

func (vb *VirtualBuffer) Flush() error {
	return nil
}

func (vb *VirtualBuffer) Clear() error {
	return vb.VA.Clear()
}

func (vb *VirtualBuffer) Close() error {
	return vb.VA.Close()
}

func newBacking(buf Buffer, managed bool) *backing {
	return &backing{buf: buf, managed: managed, refs: 1}
}

func (b *backing) acquire() *backing {
	atomic.AddInt32(&b.refs, 1)
	return b
}

// release drops one reference. The last one closes the buffer and deletes
// the managed file.
func (b *backing) release() error {
	if atomic.AddInt32(&b.refs, -1) > 0 {
		return nil
	}
	fn := b.buf.Filename()
	err := b.buf.Close()
	if b.managed && fn != "" && util.FileExists(fn) {
		if err2 := os.Remove(fn); err2 != nil && err == nil {
			err = util.IOError(fn, err2)
		}
	}
	return err
}
