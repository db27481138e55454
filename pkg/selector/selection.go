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

package selector

import (
	"fmt"
	"strings"

	"github.com/spykewave/spykewave/pkg/ndarray"
)

type (
	// Selection is the canonical selection along one axis: everything, a
	// slice with explicit start, stop and step, or an ordered list of
	// positions. The zero value selects everything.
	Selection struct {
		slice *ndarray.Slice
		list  []int
	}

	// Range is range(Start, Stop, Step) of positions. Zero
	// Step means 1.
	Range struct {
		Start, Stop, Step int
	}
)

// All returns the full axis selection
func All() Selection {
	return Selection{}
}

// SliceOf returns the selection slice(start, stop, step)
func SliceOf(start, stop, step int) Selection {
	s := ndarray.RangeStep(start, stop, step)
	return Selection{slice: &s}
}

// ListOf returns the selection of positions in the given order
func ListOf(positions ...int) Selection {
	return Selection{list: append([]int{}, positions...)}
}

// IsAll returns whether the whole axis is selected
func (s Selection) IsAll() bool {
	return s.slice == nil && s.list == nil
}

// IsSlice returns whether the selection is a slice
func (s Selection) IsSlice() bool {
	return s.slice != nil
}

// Slice returns the slice of a slice selection
func (s Selection) Slice() (ndarray.Slice, bool) {
	if s.slice == nil {
		return ndarray.Slice{}, false
	}
	return *s.slice, true
}

// List returns the positions of a list selection, nil otherwise
func (s Selection) List() []int {
	return s.list
}

// Indices returns the selected positions on an axis of length n
func (s Selection) Indices(n int) []int {
	switch {
	case s.list != nil:
		return append([]int{}, s.list...)
	case s.slice != nil:
		start, stop, step, _ := s.slice.Resolve(n)
		res := make([]int, 0, s.slice.Len(n))
		for i := start; i < stop; i += step {
			res = append(res, i)
		}
		return res
	}
	res := make([]int, n)
	for i := range res {
		res[i] = i
	}
	return res
}

// Len returns the number of positions selected on an axis of length n
func (s Selection) Len(n int) int {
	switch {
	case s.list != nil:
		return len(s.list)
	case s.slice != nil:
		return s.slice.Len(n)
	}
	return n
}

// Equal compares two selections by their canonical form
func (s Selection) Equal(o Selection) bool {
	if s.IsAll() || o.IsAll() {
		return s.IsAll() == o.IsAll()
	}
	if s.slice != nil || o.slice != nil {
		return s.slice != nil && o.slice != nil && *s.slice == *o.slice
	}
	if len(s.list) != len(o.list) {
		return false
	}
	for i := range s.list {
		if s.list[i] != o.list[i] {
			return false
		}
	}
	return true
}

func (s Selection) String() string {
	switch {
	case s.slice != nil:
		return s.slice.String()
	case s.list != nil:
		return intsString(s.list)
	}
	return "None"
}

func (r Range) step() int {
	if r.Step == 0 {
		return 1
	}
	return r.Step
}

// positions returns the range values
func (r Range) positions() []int {
	var res []int
	st := r.step()
	for i := r.Start; (st > 0 && i < r.Stop) || (st < 0 && i > r.Stop); i += st {
		res = append(res, i)
	}
	return res
}

func (r Range) String() string {
	return fmt.Sprintf("range(%d, %d, %d)", r.Start, r.Stop, r.step())
}

// canonical turns validated positions into a slice when they go with a
// constant positive step, and keeps them as a list otherwise
func canonical(pos []int) Selection {
	if len(pos) == 1 {
		return SliceOf(pos[0], pos[0]+1, 1)
	}
	step := pos[1] - pos[0]
	if step <= 0 {
		return ListOf(pos...)
	}
	for i := 2; i < len(pos); i++ {
		if pos[i]-pos[i-1] != step {
			return ListOf(pos...)
		}
	}
	return SliceOf(pos[0], pos[len(pos)-1]+1, step)
}

func intsString(v []int) string {
	ss := make([]string, len(v))
	for i, p := range v {
		ss[i] = fmt.Sprint(p)
	}
	return "[" + strings.Join(ss, ", ") + "]"
}
