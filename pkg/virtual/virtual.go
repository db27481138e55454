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

package virtual

import (
	"fmt"

	"github.com/jrivets/log4g"
	"github.com/spykewave/spykewave/pkg/memmap"
	"github.com/spykewave/spykewave/pkg/ndarray"
	"github.com/spykewave/spykewave/pkg/util"
)

type (
	// Chunk is one 2-D piece of a virtual array, usually a memory-mapped file
	Chunk interface {
		Array() *ndarray.Array
	}

	// Reopener is implemented by chunks which can release their resident
	// memory by mapping their file again
	Reopener interface {
		Reopen(mode memmap.Mode) error
	}

	// Array is a read-only 2-D array made of chunks with the same number of
	// columns stacked along the rows. It is safe to call At concurrently,
	// but Clear must not run concurrently with At.
	Array struct {
		chunks []Chunk
		ranges [][2]int
		m, n   int
		dtype  ndarray.DType
		logger log4g.Logger
	}

	arrayChunk struct {
		arr *ndarray.Array
	}
)

func (ac arrayChunk) Array() *ndarray.Array {
	return ac.arr
}

// New creates the virtual array. chunks must be a slice of Chunk,
// *memmap.MemMap, *ndarray.Array, or a []interface{} holding any of them.
func New(chunks interface{}) (*Array, error) {
	cl, err := toChunks(chunks)
	if err != nil {
		return nil, err
	}
	if len(cl) == 0 {
		return nil, util.ValueError("non-empty list of chunks", "chunk_list", "[]")
	}

	va := new(Array)
	va.chunks = cl
	va.ranges = make([][2]int, len(cl))
	dts := make([]ndarray.DType, len(cl))
	for i, c := range cl {
		a := c.Array()
		if a == nil {
			return nil, util.TypeError(c, "chunk in chunk_list", "2d-array-like")
		}
		if a.NDim() != 2 {
			return nil, util.ValueError("2d-array", "chunk in chunk_list", fmt.Sprintf("%d-dimensional array", a.NDim()))
		}
		shp := a.Shape()
		if i == 0 {
			va.n = shp[1]
		} else if shp[1] != va.n {
			return nil, util.ValueError("identical number of samples per chunk", "chunk_list",
				fmt.Sprintf("chunk %d has %d columns instead of %d", i, shp[1], va.n))
		}
		va.ranges[i] = [2]int{va.m, va.m + shp[0]}
		va.m += shp[0]
		dts[i] = a.DType()
	}
	va.dtype = ndarray.PromoteAll(dts...)
	va.logger = log4g.GetLogger("virtual").WithId(fmt.Sprintf("{%dx%d}", va.m, va.n)).(log4g.Logger)
	return va, nil
}

func toChunks(chunks interface{}) ([]Chunk, error) {
	switch cl := chunks.(type) {
	case []Chunk:
		for _, c := range cl {
			if c == nil {
				return nil, util.TypeError(c, "chunk in chunk_list", "2d-array-like")
			}
		}
		return cl, nil
	case []*memmap.MemMap:
		res := make([]Chunk, len(cl))
		for i, mm := range cl {
			if mm == nil {
				return nil, util.TypeError(mm, "chunk in chunk_list", "2d-array-like")
			}
			res[i] = mm
		}
		return res, nil
	case []*ndarray.Array:
		res := make([]Chunk, len(cl))
		for i, a := range cl {
			if a == nil {
				return nil, util.TypeError(a, "chunk in chunk_list", "2d-array-like")
			}
			res[i] = arrayChunk{a}
		}
		return res, nil
	case []interface{}:
		res := make([]Chunk, len(cl))
		for i, v := range cl {
			switch c := v.(type) {
			case *ndarray.Array:
				if c == nil {
					return nil, util.TypeError(v, "chunk in chunk_list", "2d-array-like")
				}
				res[i] = arrayChunk{c}
			case Chunk:
				res[i] = c
			default:
				return nil, util.TypeError(v, "chunk in chunk_list", "2d-array-like")
			}
		}
		return res, nil
	}
	return nil, util.TypeError(chunks, "chunk_list", "array_like")
}

// M returns the total number of rows
func (va *Array) M() int {
	return va.m
}

// N returns the number of columns shared by all chunks
func (va *Array) N() int {
	return va.n
}

// Shape returns [M, N]
func (va *Array) Shape() []int {
	return []int{va.m, va.n}
}

// Size returns M*N
func (va *Array) Size() int {
	return va.m * va.n
}

// DType returns the widest element type among the chunks
func (va *Array) DType() ndarray.DType {
	return va.dtype
}

// NumChunks returns the number of chunks
func (va *Array) NumChunks() int {
	return len(va.chunks)
}

// Chunks returns the chunks in row order
func (va *Array) Chunks() []Chunk {
	return va.chunks
}

// ChunkRanges returns [start, stop) global row ranges of the chunks. The
// ranges partition [0, M) without gaps.
func (va *Array) ChunkRanges() [][2]int {
	res := make([][2]int, len(va.ranges))
	copy(res, va.ranges)
	return res
}

// At returns the [row, col] sub-array. row and col are an integer or an
// ndarray.Slice with unset bounds meaning the full axis. Requests inside
// one chunk return a view of that chunk, requests crossing chunk
// boundaries are copied into a new array.
func (va *Array) At(row, col interface{}) (*ndarray.Array, error) {
	r0, r1, err := toBounds(row, "row", va.m)
	if err != nil {
		return nil, err
	}
	c0, c1, err := toBounds(col, "col", va.n)
	if err != nil {
		return nil, err
	}
	cs := ndarray.Range(c0, c1)

	i1, i2 := va.chunkOf(r0), va.chunkOf(r1-1)
	if i1 == i2 {
		arr := va.chunks[i1].Array()
		if arr == nil {
			return nil, util.ErrWrongState
		}
		off := va.ranges[i1][0]
		return arr.Index(ndarray.Range(r0-off, r1-off), cs)
	}

	va.logger.Debug("Rows [", r0, ":", r1, ") span chunks ", i1, "..", i2)
	parts := make([]*ndarray.Array, 0, i2-i1+1)
	for i := i1; i <= i2; i++ {
		off := va.ranges[i][0]
		rs := ndarray.Full()
		if i == i1 {
			rs = ndarray.From(r0 - off)
		} else if i == i2 {
			rs = ndarray.Until(r1 - off)
		}
		arr := va.chunks[i].Array()
		if arr == nil {
			return nil, util.ErrWrongState
		}
		p, err := arr.Index(rs, cs)
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	res, err := ndarray.VStack(parts...)
	if err != nil {
		return nil, err
	}
	if res.DType() != va.dtype {
		res = res.AsType(va.dtype)
	}
	return res, nil
}

func (va *Array) chunkOf(row int) int {
	for i, r := range va.ranges {
		if row >= r[0] && row < r[1] {
			return i
		}
	}
	return -1
}

func toBounds(v interface{}, name string, bound int) (int, int, error) {
	legal := fmt.Sprintf("value between 0 and %d", bound)
	switch s := v.(type) {
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		i := toInt(s)
		if i < 0 || i >= bound {
			return 0, 0, util.ValueError(legal, name, fmt.Sprint(i))
		}
		return i, i + 1, nil
	case ndarray.Slice:
		start, stop := 0, bound
		if s.HasStart {
			start = s.Start
		}
		if s.HasStop {
			stop = s.Stop
		}
		if s.HasStep && s.Step != 1 {
			return 0, 0, util.ValueError("slice with unit step", name, s.String())
		}
		if !(0 <= start && start < bound) || !(0 < stop && stop <= bound) || start >= stop {
			return 0, 0, util.ValueError(legal, name, ndarray.Range(start, stop).String())
		}
		return start, stop, nil
	}
	return 0, 0, util.TypeError(v, name, "int_like or slice")
}

func toInt(v interface{}) int {
	switch i := v.(type) {
	case int:
		return i
	case int8:
		return int(i)
	case int16:
		return int(i)
	case int32:
		return int(i)
	case int64:
		return int(i)
	case uint8:
		return int(i)
	case uint16:
		return int(i)
	case uint32:
		return int(i)
	}
	return 0
}

// Clear releases resident memory of the chunks which support it by mapping
// them again read-only. Other chunks are left as is.
func (va *Array) Clear() error {
	for i, c := range va.chunks {
		if r, ok := c.(Reopener); ok {
			if err := r.Reopen(memmap.ModeRead); err != nil {
				return util.Wrapf(err, "could not reopen chunk %d", i)
			}
		}
	}
	va.logger.Debug("Cleared ", len(va.chunks), " chunks")
	return nil
}

// Close closes the chunks which are memory-mapped files
func (va *Array) Close() error {
	var err error
	for _, c := range va.chunks {
		if mm, ok := c.(*memmap.MemMap); ok {
			if err2 := mm.Close(); err2 != nil && err == nil {
				err = err2
			}
		}
	}
	return err
}

func (va *Array) String() string {
	return fmt.Sprintf("[%d x %d] element %s virtual array of %d chunks", va.m, va.n, va.dtype, len(va.chunks))
}
