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
	"fmt"
	"strings"
)

// Slice is slice(start, stop, step) over an axis. Unset fields take their
// defaults, so the zero value selects everything.
type Slice struct {
	Start, Stop, Step          int
	HasStart, HasStop, HasStep bool
}

// Full returns slice(None, None, None)
func Full() Slice {
	return Slice{}
}

// Range returns slice(start, stop)
func Range(start, stop int) Slice {
	return Slice{Start: start, Stop: stop, HasStart: true, HasStop: true}
}

// RangeStep returns slice(start, stop, step)
func RangeStep(start, stop, step int) Slice {
	return Slice{Start: start, Stop: stop, Step: step, HasStart: true, HasStop: true, HasStep: true}
}

// From returns slice(start, None)
func From(start int) Slice {
	return Slice{Start: start, HasStart: true}
}

// Until returns slice(None, stop)
func Until(stop int) Slice {
	return Slice{Stop: stop, HasStop: true}
}

// StepOr returns the step or def if the step is not set
func (s Slice) StepOr(def int) int {
	if s.HasStep {
		return s.Step
	}
	return def
}

// Resolve normalizes the slice against an axis of length n. Negative bounds
// count from the end and everything is clamped into [0, n]. Only positive steps are supported.
func (s Slice) Resolve(n int) (start, stop, step int, err error) {
	step = s.StepOr(1)
	if step <= 0 {
		return 0, 0, 0, fmt.Errorf("slice step must be positive, but %d", step)
	}
	start, stop = 0, n
	if s.HasStart {
		start = clampIdx(s.Start, n)
	}
	if s.HasStop {
		stop = clampIdx(s.Stop, n)
	}
	return start, stop, step, nil
}

// Len returns the number of elements selected on an axis of length n
func (s Slice) Len(n int) int {
	start, stop, step, err := s.Resolve(n)
	if err != nil {
		return 0
	}
	return sliceLen(start, stop, step)
}

func sliceLen(start, stop, step int) int {
	if stop <= start {
		return 0
	}
	return (stop - start + step - 1) / step
}

func clampIdx(i, n int) int {
	if i < 0 {
		i += n
		if i < 0 {
			i = 0
		}
	}
	if i > n {
		i = n
	}
	return i
}

func (s Slice) String() string {
	var sb strings.Builder
	sb.WriteString("slice(")
	sb.WriteString(optInt(s.Start, s.HasStart))
	sb.WriteString(", ")
	sb.WriteString(optInt(s.Stop, s.HasStop))
	sb.WriteString(", ")
	sb.WriteString(optInt(s.Step, s.HasStep))
	sb.WriteString(")")
	return sb.String()
}

func optInt(v int, ok bool) string {
	if !ok {
		return "None"
	}
	return fmt.Sprint(v)
}
