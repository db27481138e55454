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

package ndarray

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
	"github.com/zeebo/blake3"
)

// Array is an N-dimensional strided view over a little-endian byte buffer.
// Several arrays may share one buffer, e.g. a memory-mapped file region and
// the views created by Index.
type Array struct {
	dtype   DType
	shape   []int
	strides []int // in elements
	offset  int   // in elements
	buf     []byte
}

// New allocates a zero-filled C-ordered array
func New(dt DType, shape ...int) *Array {
	n := prod(shape)
	return &Array{
		dtype:   dt,
		shape:   copyInts(shape),
		strides: cStrides(shape),
		buf:     make([]byte, n*dt.Size()),
	}
}

// FromBytes wraps buf as a C-ordered array without copying
func FromBytes(buf []byte, dt DType, shape ...int) (*Array, error) {
	if dt.Size() == 0 {
		return nil, fmt.Errorf("invalid dtype %d", dt)
	}
	need := prod(shape) * dt.Size()
	if len(buf) < need {
		return nil, fmt.Errorf("buffer of %d bytes is too small for %v %s array, need %d bytes", len(buf), shape, dt, need)
	}
	return &Array{
		dtype:   dt,
		shape:   copyInts(shape),
		strides: cStrides(shape),
		buf:     buf[:need],
	}, nil
}

// FromFloat64 makes a float64 array holding a copy of data. Without shape the
// result is 1-D. It panics if the shape does not match len(data).
func FromFloat64(data []float64, shape ...int) *Array {
	shape = defShape(len(data), shape)
	a := New(Float64, shape...)
	for i, v := range data {
		writeScalar(Float64, a.buf[i*8:], scalar{kind: 'f', f: v})
	}
	return a
}

// FromInt64 is like FromFloat64, but makes an int64 array.
func FromInt64(data []int64, shape ...int) *Array {
	shape = defShape(len(data), shape)
	a := New(Int64, shape...)
	for i, v := range data {
		writeScalar(Int64, a.buf[i*8:], scalar{kind: 'i', i: v})
	}
	return a
}

// Arange returns a C-ordered array filled with start, start+1, ...
func Arange(dt DType, start int, shape ...int) *Array {
	a := New(dt, shape...)
	sz := dt.Size()
	for i := 0; i < a.Size(); i++ {
		writeScalar(dt, a.buf[i*sz:], scalar{kind: 'i', i: int64(start + i)})
	}
	return a
}

func defShape(n int, shape []int) []int {
	if len(shape) == 0 {
		return []int{n}
	}
	if prod(shape) != n {
		panic(fmt.Sprintf("cannot shape %d values into %v", n, shape))
	}
	return shape
}

// DType returns the element type
func (a *Array) DType() DType {
	return a.dtype
}

// Shape returns a copy of the array dimensions
func (a *Array) Shape() []int {
	return copyInts(a.shape)
}

// NDim returns the number of dimensions
func (a *Array) NDim() int {
	return len(a.shape)
}

// Size returns the number of elements
func (a *Array) Size() int {
	return prod(a.shape)
}

// Len returns the length of the first axis, 0 for a scalar array
func (a *Array) Len() int {
	if len(a.shape) == 0 {
		return 0
	}
	return a.shape[0]
}

// Index returns a view selecting idx[i] along axis i. Missing trailing
// slices select the full axis. The view shares the buffer with a.
func (a *Array) Index(idx ...Slice) (*Array, error) {
	if len(idx) > len(a.shape) {
		return nil, fmt.Errorf("too many indices for array: array is %d-dimensional, but %d were indexed", len(a.shape), len(idx))
	}
	res := &Array{
		dtype:   a.dtype,
		shape:   copyInts(a.shape),
		strides: copyInts(a.strides),
		offset:  a.offset,
		buf:     a.buf,
	}
	for ax, s := range idx {
		start, stop, step, err := s.Resolve(a.shape[ax])
		if err != nil {
			return nil, err
		}
		n := sliceLen(start, stop, step)
		if n > 0 {
			res.offset += start * a.strides[ax]
		}
		res.shape[ax] = n
		res.strides[ax] = a.strides[ax] * step
	}
	return res, nil
}

// Take returns a new array built from the given positions along axis. The
// positions may repeat and be in any order.
func (a *Array) Take(axis int, positions []int) (*Array, error) {
	if axis < 0 || axis >= len(a.shape) {
		return nil, fmt.Errorf("axis %d is out of bounds for array of dimension %d", axis, len(a.shape))
	}
	parts := make([]*Array, 0, len(positions))
	for _, p := range positions {
		if p < 0 || p >= a.shape[axis] {
			return nil, fmt.Errorf("index %d is out of bounds for axis %d with size %d", p, axis, a.shape[axis])
		}
		idx := make([]Slice, axis+1)
		idx[axis] = Range(p, p+1)
		v, _ := a.Index(idx...)
		parts = append(parts, v)
	}
	shape := a.Shape()
	shape[axis] = len(positions)
	res := New(a.dtype, shape...)
	// copy each part into its place along axis
	for i, p := range parts {
		idx := make([]Slice, axis+1)
		idx[axis] = Range(i, i+1)
		dst, _ := res.Index(idx...)
		dst.assign(p)
	}
	return res, nil
}

// IsContiguous returns whether the array elements are laid out in C order
// without gaps.
func (a *Array) IsContiguous() bool {
	exp := 1
	for i := len(a.shape) - 1; i >= 0; i-- {
		if a.shape[i] == 1 {
			continue
		}
		if a.strides[i] != exp {
			return false
		}
		exp *= a.shape[i]
	}
	return true
}

// Materialize returns a C-ordered copy which does not share memory with a
func (a *Array) Materialize() *Array {
	return a.AsType(a.dtype)
}

// AsType returns a C-ordered copy converted to dt
func (a *Array) AsType(dt DType) *Array {
	res := New(dt, a.shape...)
	if dt == a.dtype && a.IsContiguous() {
		copy(res.buf, a.rawBytes())
		return res
	}
	sz, dsz := a.dtype.Size(), dt.Size()
	i := 0
	a.walk(func(pos int) {
		writeScalar(dt, res.buf[i*dsz:], readScalar(a.dtype, a.buf[pos*sz:]))
		i++
	})
	return res
}

// Reshape returns an array with the same elements in C order and the new
// shape. The result is a view if a is contiguous.
func (a *Array) Reshape(shape ...int) (*Array, error) {
	if prod(shape) != a.Size() {
		return nil, fmt.Errorf("cannot reshape array of size %d into shape %v", a.Size(), shape)
	}
	src := a
	if !a.IsContiguous() {
		src = a.Materialize()
	}
	return &Array{
		dtype:   a.dtype,
		shape:   copyInts(shape),
		strides: cStrides(shape),
		offset:  src.offset,
		buf:     src.buf,
	}, nil
}

// Float64At returns the element at idx converted to float64. It panics if
// idx is out of range.
func (a *Array) Float64At(idx ...int) float64 {
	return a.at(idx).float64()
}

// Int64At returns the element at idx converted to int64
func (a *Array) Int64At(idx ...int) int64 {
	return a.at(idx).int64()
}

// Complex128At returns the element at idx converted to complex128
func (a *Array) Complex128At(idx ...int) complex128 {
	return a.at(idx).complex128()
}

// SetFloat64 stores v at idx converting it to the array type
func (a *Array) SetFloat64(v float64, idx ...int) {
	writeScalar(a.dtype, a.buf[a.pos(idx)*a.dtype.Size():], scalar{kind: 'f', f: v})
}

// SetComplex128 stores v at idx converting it to the array type
func (a *Array) SetComplex128(v complex128, idx ...int) {
	writeScalar(a.dtype, a.buf[a.pos(idx)*a.dtype.Size():], scalar{kind: 'c', c: v})
}

// Float64s returns all elements in C order converted to float64
func (a *Array) Float64s() []float64 {
	res := make([]float64, 0, a.Size())
	sz := a.dtype.Size()
	a.walk(func(pos int) {
		res = append(res, readScalar(a.dtype, a.buf[pos*sz:]).float64())
	})
	return res
}

// Int64s returns all elements in C order converted to int64
func (a *Array) Int64s() []int64 {
	res := make([]int64, 0, a.Size())
	sz := a.dtype.Size()
	a.walk(func(pos int) {
		res = append(res, readScalar(a.dtype, a.buf[pos*sz:]).int64())
	})
	return res
}

// Bytes returns the elements in C order. For a contiguous array the result
// shares memory with the array.
func (a *Array) Bytes() []byte {
	if a.IsContiguous() {
		return a.rawBytes()
	}
	return a.Materialize().buf
}

// Assign copies src elements into a. Both arrays must have the same shape,
// the values are converted to the type of a.
func (a *Array) Assign(src *Array) error {
	if !equalInts(a.shape, src.shape) {
		return fmt.Errorf("could not broadcast array from shape %v into shape %v", src.shape, a.shape)
	}
	a.assign(src)
	return nil
}

func (a *Array) assign(src *Array) {
	var vals []scalar
	ssz := src.dtype.Size()
	src.walk(func(pos int) {
		vals = append(vals, readScalar(src.dtype, src.buf[pos*ssz:]))
	})
	sz := a.dtype.Size()
	i := 0
	a.walk(func(pos int) {
		writeScalar(a.dtype, a.buf[pos*sz:], vals[i])
		i++
	})
}

// Equal returns whether a and b have the same type, shape and bytes
func (a *Array) Equal(b *Array) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.dtype != b.dtype || !equalInts(a.shape, b.shape) {
		return false
	}
	return string(a.Bytes()) == string(b.Bytes())
}

// Hash returns xxhash64 of the C-ordered element bytes
func (a *Array) Hash() uint64 {
	return xxhash.Sum64(a.Bytes())
}

// Checksum returns hex encoded BLAKE3 digest of the C-ordered element bytes
func (a *Array) Checksum() string {
	sum := blake3.Sum256(a.Bytes())
	return hex.EncodeToString(sum[:])
}

func (a *Array) String() string {
	dims := make([]string, len(a.shape))
	for i, d := range a.shape {
		dims[i] = fmt.Sprint(d)
	}
	return fmt.Sprintf("[%s] element %s array", strings.Join(dims, " x "), a.dtype)
}

// VStack concatenates arrays along the first axis into a new buffer. All
// arrays must have the same number of dimensions and the same trailing
// dimensions, the result type is the widest of the input types.
func VStack(arrays ...*Array) (*Array, error) {
	return Concat(0, arrays...)
}

// Concat joins arrays along axis into a new buffer. All other dimensions
// must match, the result type is the widest of the input types.
func Concat(axis int, arrays ...*Array) (*Array, error) {
	if len(arrays) == 0 {
		return nil, errors.New("need at least one array to concatenate")
	}
	first := arrays[0]
	if axis < 0 || axis >= first.NDim() {
		return nil, fmt.Errorf("axis %d is out of bounds for array of dimension %d", axis, first.NDim())
	}
	dts := make([]DType, len(arrays))
	total := 0
	for i, a := range arrays {
		if !sameExcept(a.shape, first.shape, axis) {
			return nil, fmt.Errorf("all the input array dimensions except for the concatenation axis must match exactly, but array 0 has shape %v and array %d has shape %v", first.shape, i, a.shape)
		}
		dts[i] = a.dtype
		total += a.shape[axis]
	}
	shape := first.Shape()
	shape[axis] = total
	res := New(PromoteAll(dts...), shape...)
	pos := 0
	for _, a := range arrays {
		n := a.shape[axis]
		if n == 0 {
			continue
		}
		idx := make([]Slice, axis+1)
		idx[axis] = Range(pos, pos+n)
		dst, _ := res.Index(idx...)
		dst.assign(a)
		pos += n
	}
	return res, nil
}

func sameExcept(a, b []int, axis int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if i != axis && a[i] != b[i] {
			return false
		}
	}
	return true
}

// rawBytes returns the underlying bytes of a contiguous array
func (a *Array) rawBytes() []byte {
	sz := a.dtype.Size()
	return a.buf[a.offset*sz : (a.offset+a.Size())*sz]
}

func (a *Array) at(idx []int) scalar {
	return readScalar(a.dtype, a.buf[a.pos(idx)*a.dtype.Size():])
}

func (a *Array) pos(idx []int) int {
	if len(idx) != len(a.shape) {
		panic(fmt.Sprintf("%d indices for %d-dimensional array", len(idx), len(a.shape)))
	}
	p := a.offset
	for i, v := range idx {
		if v < 0 || v >= a.shape[i] {
			panic(fmt.Sprintf("index %d is out of bounds for axis %d with size %d", v, i, a.shape[i]))
		}
		p += v * a.strides[i]
	}
	return p
}

// walk calls fn with the element position of every element in C order
func (a *Array) walk(fn func(pos int)) {
	n := a.Size()
	if n == 0 {
		return
	}
	nd := len(a.shape)
	if nd == 0 {
		fn(a.offset)
		return
	}
	idx := make([]int, nd)
	pos := a.offset
	for k := 0; k < n; k++ {
		fn(pos)
		for d := nd - 1; d >= 0; d-- {
			idx[d]++
			pos += a.strides[d]
			if idx[d] < a.shape[d] {
				break
			}
			pos -= idx[d] * a.strides[d]
			idx[d] = 0
		}
	}
}

func prod(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

func cStrides(shape []int) []int {
	st := make([]int, len(shape))
	s := 1
	for i := len(shape) - 1; i >= 0; i-- {
		st[i] = s
		s *= shape[i]
	}
	return st
}

func copyInts(v []int) []int {
	res := make([]int, len(v))
	copy(res, v)
	return res
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
