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

package indexer

import (
	"fmt"
	"testing"

	"github.com/spykewave/spykewave/pkg/ndarray"
	"github.com/spykewave/spykewave/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingSeq returns a sequence of n 2x3 arrays, element i filled from i*10,
// and a pointer to the number of produced elements
func countingSeq(n int) (*Sequence, *int) {
	calls := 0
	gen := Range(n, func(i int) (*ndarray.Array, error) {
		calls++
		return ndarray.Arange(ndarray.Float64, i*10, 2, 3), nil
	})
	return New(gen, n), &calls
}

func TestGetInt(t *testing.T) {
	s, calls := countingSeq(5)
	assert.Equal(t, 5, s.Len())

	a, err := s.Get(3)
	require.Nil(t, err)
	assert.Equal(t, float64(30), a.Float64At(0, 0))
	assert.Equal(t, 4, *calls)

	// no caching: the same element is produced again from the beginning
	_, err = s.Get(3)
	require.Nil(t, err)
	assert.Equal(t, 8, *calls)

	_, err = s.Get(0)
	require.Nil(t, err)
	assert.Equal(t, 9, *calls)
	assert.Equal(t, 5, s.Len())
}

func TestIntsMatchFullSlice(t *testing.T) {
	s, _ := countingSeq(6)
	full, err := s.Get(ndarray.Full())
	require.Nil(t, err)
	assert.Equal(t, []int{12, 3}, full.Shape())

	var parts []*ndarray.Array
	for i := 0; i < s.Len(); i++ {
		a, err := s.Get(i)
		require.Nil(t, err)
		parts = append(parts, a)
	}
	exp, err := ndarray.VStack(parts...)
	require.Nil(t, err)
	assert.True(t, exp.Equal(full))

	n := 0
	require.Nil(t, s.Each(func(i int, a *ndarray.Array) error {
		assert.True(t, parts[i].Equal(a))
		n++
		return nil
	}))
	assert.Equal(t, 6, n)
}

func TestGetSlice(t *testing.T) {
	s, calls := countingSeq(10)
	a, err := s.Get(ndarray.RangeStep(1, 8, 3))
	require.Nil(t, err)
	assert.Equal(t, []int{6, 3}, a.Shape())
	assert.Equal(t, float64(10), a.Float64At(0, 0))
	assert.Equal(t, float64(40), a.Float64At(2, 0))
	assert.Equal(t, float64(70), a.Float64At(4, 0))
	// one pass over the producer up to element 7
	assert.Equal(t, 8, *calls)

	a, err = s.Get(ndarray.From(8))
	require.Nil(t, err)
	assert.Equal(t, []int{4, 3}, a.Shape())
}

func TestGetList(t *testing.T) {
	s, calls := countingSeq(10)
	a, err := s.Get([]int{4, 1, 4})
	require.Nil(t, err)
	assert.Equal(t, []int{6, 3}, a.Shape())
	assert.Equal(t, []float64{40, 10, 40}, []float64{a.Float64At(0, 0), a.Float64At(2, 0), a.Float64At(4, 0)})
	// duplicates are produced again
	assert.Equal(t, 5+2+5, *calls)
}

func TestGetErrors(t *testing.T) {
	s, _ := countingSeq(4)
	for _, idx := range []interface{}{4, -1, ndarray.Range(0, 5), ndarray.Range(-1, 2), ndarray.Range(3, 1), []int{0, 4}, []int{-1}} {
		_, err := s.Get(idx)
		assert.True(t, util.IsValue(err), "%v", idx)
	}
	for _, idx := range []interface{}{"1", 1.0, []string{"a"}, nil} {
		_, err := s.Get(idx)
		assert.True(t, util.IsType(err), "%v", idx)
	}
}

func TestShortProducer(t *testing.T) {
	s := New(Range(2, func(i int) (*ndarray.Array, error) {
		return ndarray.New(ndarray.Int8, 1, 1), nil
	}), 3)
	_, err := s.Get(2)
	assert.NotNil(t, err)

	s = New(Range(3, func(i int) (*ndarray.Array, error) {
		if i == 1 {
			return nil, fmt.Errorf("broken trial")
		}
		return ndarray.New(ndarray.Int8, 1, 1), nil
	}), 3)
	_, err = s.Get(ndarray.Full())
	assert.NotNil(t, err)
	assert.NotNil(t, s.Each(func(int, *ndarray.Array) error { return nil }))
}
