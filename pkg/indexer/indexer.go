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
	"io"

	"github.com/pkg/errors"
	"github.com/spykewave/spykewave/pkg/ndarray"
	"github.com/spykewave/spykewave/pkg/util"
)

type (
	// Iterator produces elements one by one. Next returns io.EOF when the
	// elements are over.
	Iterator interface {
		Next() (*ndarray.Array, error)
	}

	// Generator creates a fresh Iterator positioned at the first element
	Generator func() Iterator

	// IteratorFunc adapts a function to Iterator
	IteratorFunc func() (*ndarray.Array, error)

	// Sequence makes a one-shot element producer indexable. No element is
	// cached: every access creates a new iterator and skips to the requested
	// position by consuming the elements in front of it.
	Sequence struct {
		gen    Generator
		length int
	}
)

func (f IteratorFunc) Next() (*ndarray.Array, error) {
	return f()
}

// New returns a Sequence of the declared length over gen
func New(gen Generator, length int) *Sequence {
	return &Sequence{gen: gen, length: length}
}

// Range returns a Generator which calls get(0), get(1), ... get(n-1)
func Range(n int, get func(i int) (*ndarray.Array, error)) Generator {
	return func() Iterator {
		i := 0
		return IteratorFunc(func() (*ndarray.Array, error) {
			if i >= n {
				return nil, io.EOF
			}
			i++
			return get(i - 1)
		})
	}
}

// Len returns the declared length
func (s *Sequence) Len() int {
	return s.length
}

// Get returns an element for an integer index, or the elements stacked
// along the first axis for an ndarray.Slice or a []int index.
func (s *Sequence) Get(idx interface{}) (*ndarray.Array, error) {
	switch v := idx.(type) {
	case int:
		return s.getOne(v)
	case int64:
		return s.getOne(int(v))
	case int32:
		return s.getOne(int(v))
	case ndarray.Slice:
		return s.getSlice(v)
	case []int:
		return s.getList(v)
	}
	return nil, util.TypeError(idx, "trial index", "int, slice or list of ints")
}

func (s *Sequence) getOne(i int) (*ndarray.Array, error) {
	if i < 0 || i >= s.length {
		return nil, util.ValueError(fmt.Sprintf("value between 0 and %d", s.length-1), "trial index", fmt.Sprint(i))
	}
	it := s.gen()
	return skipTo(it, 0, i)
}

func (s *Sequence) getSlice(sl ndarray.Slice) (*ndarray.Array, error) {
	start, stop, step := 0, s.length, sl.StepOr(1)
	if sl.HasStart {
		start = sl.Start
	}
	if sl.HasStop {
		stop = sl.Stop
	}
	if start < 0 || start > s.length || stop < 0 || stop > s.length || step <= 0 {
		return nil, util.ValueError(fmt.Sprintf("slice within [0, %d] and positive step", s.length), "trial index", sl.String())
	}

	var parts []*ndarray.Array
	it := s.gen()
	pos := 0
	for i := start; i < stop; i += step {
		a, err := skipTo(it, pos, i)
		if err != nil {
			return nil, err
		}
		pos = i + 1
		parts = append(parts, a)
	}
	return stack(parts)
}

func (s *Sequence) getList(lst []int) (*ndarray.Array, error) {
	for _, i := range lst {
		if i < 0 || i >= s.length {
			return nil, util.ValueError(fmt.Sprintf("values between 0 and %d", s.length-1), "trial index", fmt.Sprint(lst))
		}
	}
	parts := make([]*ndarray.Array, 0, len(lst))
	for _, i := range lst {
		a, err := s.getOne(i)
		if err != nil {
			return nil, err
		}
		parts = append(parts, a)
	}
	return stack(parts)
}

// Each calls fn for every element in order, consuming one iterator
func (s *Sequence) Each(fn func(i int, a *ndarray.Array) error) error {
	it := s.gen()
	for i := 0; i < s.length; i++ {
		a, err := it.Next()
		if err != nil {
			return shortErr(err, i)
		}
		if err := fn(i, a); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sequence) String() string {
	return fmt.Sprintf("{length: %d}", s.length)
}

// skipTo consumes it, currently at position pos, up to element i and returns it
func skipTo(it Iterator, pos, i int) (*ndarray.Array, error) {
	for ; pos < i; pos++ {
		if _, err := it.Next(); err != nil {
			return nil, shortErr(err, pos)
		}
	}
	a, err := it.Next()
	if err != nil {
		return nil, shortErr(err, i)
	}
	return a, nil
}

func shortErr(err error, pos int) error {
	if err == io.EOF {
		return errors.Errorf("sequence is exhausted at element %d, shorter than declared", pos)
	}
	return errors.Wrapf(err, "could not produce element %d", pos)
}

func stack(parts []*ndarray.Array) (*ndarray.Array, error) {
	if len(parts) == 0 {
		return nil, util.ValueError("non-empty selection", "trial index", "empty")
	}
	return ndarray.VStack(parts...)
}
