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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceResolve(t *testing.T) {
	s, e, st, err := From(-2).Resolve(10)
	require.Nil(t, err)
	assert.Equal(t, []int{8, 10, 1}, []int{s, e, st})

	s, e, st, err = Full().Resolve(5)
	require.Nil(t, err)
	assert.Equal(t, []int{0, 5, 1}, []int{s, e, st})

	s, e, _, _ = Range(3, 100).Resolve(5)
	assert.Equal(t, []int{3, 5}, []int{s, e})

	_, _, _, err = RangeStep(0, 3, -1).Resolve(5)
	assert.NotNil(t, err)

	assert.Equal(t, 3, RangeStep(0, 9, 3).Len(10))
	assert.Equal(t, 0, Range(5, 1).Len(10))
	assert.Equal(t, "slice(8, 10, 1)", RangeStep(8, 10, 1).String())
	assert.Equal(t, "slice(None, 4, None)", Until(4).String())
}

func TestArrayIndexView(t *testing.T) {
	a := Arange(Int64, 0, 6, 4)
	v, err := a.Index(Range(2, 4), Range(1, 3))
	require.Nil(t, err)
	assert.Equal(t, []int{2, 2}, v.Shape())
	assert.Equal(t, []int64{9, 10, 13, 14}, v.Int64s())
	assert.False(t, v.IsContiguous())

	// the view shares memory
	v.SetFloat64(100, 0, 0)
	assert.Equal(t, int64(100), a.Int64At(2, 1))

	r, err := a.Index(RangeStep(0, 6, 2))
	require.Nil(t, err)
	assert.Equal(t, []int{3, 4}, r.Shape())
	assert.Equal(t, float64(8), r.Float64At(1, 0))

	_, err = a.Index(Full(), Full(), Full())
	assert.NotNil(t, err)
}

func TestArrayMaterialize(t *testing.T) {
	a := Arange(Int32, 0, 5, 5)
	v, _ := a.Index(Range(1, 3), Range(0, 2))
	m := v.Materialize()
	assert.True(t, m.IsContiguous())
	assert.Equal(t, v.Bytes(), m.Bytes())
	m.SetFloat64(-1, 0, 0)
	assert.Equal(t, float64(5), a.Float64At(1, 0))
}

func TestArrayAsType(t *testing.T) {
	a := FromFloat64([]float64{1.5, -2.25, 3}, 3, 1)
	i := a.AsType(Int16)
	assert.Equal(t, Int16, i.DType())
	assert.Equal(t, []int64{1, -2, 3}, i.Int64s())

	c := a.AsType(Complex64)
	assert.Equal(t, complex(-2.25, 0), c.Complex128At(1, 0))
	assert.Equal(t, 3*8, len(c.Bytes()))
}

func TestArrayTake(t *testing.T) {
	a := Arange(Float64, 0, 3, 4)
	tk, err := a.Take(1, []int{3, 0, 3})
	require.Nil(t, err)
	assert.Equal(t, []int{3, 3}, tk.Shape())
	assert.Equal(t, []float64{3, 0, 3, 7, 4, 7, 11, 8, 11}, tk.Float64s())

	_, err = a.Take(1, []int{4})
	assert.NotNil(t, err)
	_, err = a.Take(2, []int{0})
	assert.NotNil(t, err)
}

func TestVStack(t *testing.T) {
	a := Arange(Int32, 0, 2, 3)
	b := Arange(Float32, 6, 1, 3)
	res, err := VStack(a, b)
	require.Nil(t, err)
	assert.Equal(t, Float64, res.DType())
	assert.Equal(t, []int{3, 3}, res.Shape())
	assert.Equal(t, []float64{0, 1, 2, 3, 4, 5, 6, 7, 8}, res.Float64s())

	_, err = VStack(a, Arange(Int32, 0, 2, 2))
	assert.NotNil(t, err)
	_, err = VStack()
	assert.NotNil(t, err)
}

func TestArrayEqualHash(t *testing.T) {
	a := Arange(Int64, 0, 4, 4)
	v, _ := a.Index(Range(1, 3))
	b := Arange(Int64, 4, 2, 4)
	assert.True(t, v.Equal(b))
	assert.Equal(t, v.Hash(), b.Hash())
	assert.Equal(t, v.Checksum(), b.Checksum())
	assert.Len(t, b.Checksum(), 64)
	assert.False(t, a.Equal(b))
	assert.False(t, b.Equal(b.AsType(Int32)))
}

func TestArrayReshape(t *testing.T) {
	a := Arange(Uint16, 0, 12)
	r, err := a.Reshape(3, 4)
	require.Nil(t, err)
	assert.Equal(t, float64(6), r.Float64At(1, 2))
	_, err = a.Reshape(5, 2)
	assert.NotNil(t, err)
	assert.Equal(t, "[3 x 4] element <u2 array", r.String())
}

func TestFromBytes(t *testing.T) {
	buf := make([]byte, 16)
	a, err := FromBytes(buf, Float32, 2, 2)
	require.Nil(t, err)
	a.SetFloat64(2.5, 1, 1)
	b, _ := FromBytes(buf, Float32, 2, 2)
	assert.Equal(t, 2.5, b.Float64At(1, 1))

	_, err = FromBytes(buf, Float64, 3, 1)
	assert.NotNil(t, err)
}

func TestConcat(t *testing.T) {
	a := Arange(Int64, 0, 2, 2)
	b := Arange(Int64, 10, 2, 1)
	res, err := Concat(1, a, b)
	require.Nil(t, err)
	assert.Equal(t, []int{2, 3}, res.Shape())
	assert.Equal(t, []int64{0, 1, 10, 2, 3, 11}, res.Int64s())

	_, err = Concat(0, a, b)
	assert.NotNil(t, err)
	_, err = Concat(2, a)
	assert.NotNil(t, err)
}
