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

	"github.com/spykewave/spykewave/pkg/ndarray"
	"github.com/spykewave/spykewave/pkg/selector"
	"github.com/spykewave/spykewave/pkg/util"
)

// newSelector validates kwargs, with trials added as the trials selection,
// against obj.
func newSelector(obj selector.Selectable, trials []int, kwargs map[string]interface{}) (*selector.Selector, error) {
	req := make(map[string]interface{}, len(kwargs)+1)
	for k, v := range kwargs {
		req[k] = v
	}
	if trials != nil {
		if _, ok := req["trials"]; ok {
			return nil, util.ValueError("trials given once", "trials", fmt.Sprint(trials))
		}
		req["trials"] = trials
	}
	return selector.New(obj, req)
}

// selectInto builds dst from the selected part of c. The selected trials
// are concatenated along the time axis into a new managed file, and the
// trial definition is rebuilt over it.
func (c *continuous) selectInto(dst *continuous, sel *selector.Selector, clname string) error {
	if c.Data() == nil {
		return util.ValueError("object with data", "data", "None")
	}
	tax := c.axisIndex("time")
	if tax < 0 {
		return util.ValueError("data with time axis", "dimord", fmt.Sprint(c.dimord))
	}

	dst.init(c.sess, clname, c.Dimord())
	dst.mode = c.mode
	dst.samplerate = c.samplerate
	dst.cfg = c.cfg.clone()
	dst.log = c.log.clone()

	trials := sel.Trials()
	parts := make([]*ndarray.Array, 0, len(trials))
	trialdef := make([][]float64, 0, len(trials))
	off := 0
	for _, t := range trials {
		arr, err := c.Trial(t)
		if err != nil {
			return err
		}
		tlen := arr.Shape()[tax]
		first := 0
		for ax, name := range c.dimord {
			s := axisSelection(sel, name, t)
			if name == "time" {
				if pos := s.Indices(tlen); len(pos) > 0 {
					first = pos[0]
				}
			}
			if arr, err = selectAxis(arr, ax, s); err != nil {
				return err
			}
		}
		n := arr.Shape()[tax]
		row := append([]float64{}, c.trialdef[t]...)
		row[0], row[1] = float64(off), float64(off+n)
		row[2] += float64(first)
		trialdef = append(trialdef, row)
		parts = append(parts, arr)
		off += n
	}

	data, err := ndarray.Concat(tax, parts...)
	if err != nil {
		return err
	}
	if err := dst.writeData(data); err != nil {
		return err
	}
	dst.trialdef = trialdef

	for ax, name := range c.dimord {
		lbs := c.labels[name]
		if lbs == nil || name == "time" {
			continue
		}
		s := axisSelection(sel, name, -1)
		pos := s.Indices(c.Data().Shape()[ax])
		res := make([]string, len(pos))
		for i, p := range pos {
			res[i] = lbs[p]
		}
		dst.labels[name] = res
	}

	dst.cfg = dst.cfg.Append(map[string]interface{}{
		"selectdata": map[string]interface{}{"select": sel.String(), "source": c.filename},
	})
	dst.AppendLog(fmt.Sprintf("selected %s from %s", sel, c.filename))
	return nil
}

// selectAxis applies s to the axis ax of arr
func selectAxis(arr *ndarray.Array, ax int, s selector.Selection) (*ndarray.Array, error) {
	if s.IsAll() {
		return arr, nil
	}
	if sl, ok := s.Slice(); ok {
		idx := make([]ndarray.Slice, ax+1)
		idx[ax] = sl
		return arr.Index(idx...)
	}
	return arr.Take(ax, s.List())
}
