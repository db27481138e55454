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
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

// describe renders the object summary, one line per field. value returns
// the description of a field.
func describe(clname string, fields []string, value func(field string) string) string {
	width := 0
	for _, f := range fields {
		if len(f) > width {
			width = len(f)
		}
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "SpykeWave %s object with fields\n\n", clname)
	for _, f := range fields {
		fmt.Fprintf(&sb, "%*s : %s\n", width+4, f, value(f))
	}
	sb.WriteString("\nUse .Log() to see object history")
	return sb.String()
}

// field describes the fields all continuous variants have
func (c *continuous) field(name string) string {
	switch name {
	case "cfg":
		keys := make([]string, 0)
		for k := range c.cfg.Last() {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return fmt.Sprintf("dictionary with keys '%s'", strings.Join(keys, "', '"))
	case "data":
		buf := c.Data()
		if buf == nil {
			return "None"
		}
		size := uint64(buf.DType().Size())
		for _, d := range buf.Shape() {
			size *= uint64(d)
		}
		kind := "memory map"
		if _, ok := buf.(*VirtualBuffer); ok {
			kind = "virtual array"
		}
		return fmt.Sprintf("%d trials defined on %s %s %s of size %s", c.NumTrials(),
			shapeString(buf.Shape()), buf.DType().Name(), kind, humanize.Bytes(size))
	case "dimord":
		return fmt.Sprintf("%d element list", len(c.dimord))
	case "filename":
		return c.filename
	case "mode":
		return string(c.mode)
	case "samplerate":
		return fmt.Sprint(c.samplerate)
	case "sampleinfo", "trialinfo":
		if c.trialdef == nil {
			return "None"
		}
		cols := 2
		if name == "trialinfo" {
			cols = 0
			if len(c.trialdef) > 0 {
				cols = len(c.trialdef[0]) - 3
			}
		}
		return fmt.Sprintf("%s element array", shapeString([]int{len(c.trialdef), cols}))
	case "t0":
		return fmt.Sprintf("[%d] element array", len(c.trialdef))
	case "time", "trials":
		return fmt.Sprintf("%d element iterable", len(c.trialdef))
	case "version":
		return c.version
	}
	if lbs, ok := c.labels[name]; ok {
		return fmt.Sprintf("[%d] element list", len(lbs))
	}
	return "None"
}

func shapeString(shape []int) string {
	ss := make([]string, len(shape))
	for i, d := range shape {
		ss[i] = fmt.Sprint(d)
	}
	return "[" + strings.Join(ss, " x ") + "]"
}
