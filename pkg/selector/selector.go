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
	"math"
	"sort"
	"strings"

	"github.com/jrivets/log4g"
	"github.com/mitchellh/mapstructure"
	"github.com/spykewave/spykewave/pkg/ndarray"
	"github.com/spykewave/spykewave/pkg/util"
)

type (
	// Selectable is a data object which selections are validated against
	Selectable interface {
		// NumTrials returns the number of defined trials
		NumTrials() int
		// Dimord returns the axis names in axis order
		Dimord() []string
		// AxisLen returns the axis length, or -1 if the object has no such axis
		AxisLen(axis string) int
		// AxisLabels returns the axis labels, nil if the axis is not labeled
		AxisLabels(axis string) []string
	}

	// TimeSelectable objects support toi and toilim selections
	TimeSelectable interface {
		Selectable
		// TrialTime returns the time of every sample of the trial
		TrialTime(trial int) []float64
	}

	// FreqSelectable objects support foi and foilim selections
	FreqSelectable interface {
		Selectable
		// Freqs returns the frequency axis values
		Freqs() []float64
	}

	// Selector holds validated and canonical selections for one data object
	Selector struct {
		trials []int
		axes   map[string]Selection
		time   []Selection
		freq   Selection
	}

	request struct {
		Trials   interface{} `mapstructure:"trials"`
		Channels interface{} `mapstructure:"channels"`
		Tapers   interface{} `mapstructure:"tapers"`
		Units    interface{} `mapstructure:"units"`
		EventIDs interface{} `mapstructure:"eventids"`
		Toi      interface{} `mapstructure:"toi"`
		Toilim   interface{} `mapstructure:"toilim"`
		Foi      interface{} `mapstructure:"foi"`
		Foilim   interface{} `mapstructure:"foilim"`
	}
)

// Axes which can be narrowed by label or position
var Axes = []string{"channel", "taper", "unit", "eventid"}

var logger = log4g.GetLogger("selector")

// New validates the request against data. The request keys are trials,
// channels, tapers, units, eventids, toi, toilim, foi and foilim. Nothing is
// returned unless every selection is valid.
func New(data Selectable, req map[string]interface{}) (*Selector, error) {
	if data == nil {
		return nil, util.TypeError(data, "data", "spykewave data object")
	}
	if len(data.Dimord()) == 0 || data.NumTrials() <= 0 {
		return nil, util.ValueError("non-empty data object with trials", "data", "empty")
	}

	var r request
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{ErrorUnused: true, Result: &r})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(req); err != nil {
		keys := make([]string, 0, len(req))
		for k := range req {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return nil, util.ValueError("dict with keys trials, channels, tapers, units, eventids, toi, toilim, foi, foilim",
			"select", strings.Join(keys, ", "))
	}

	s := &Selector{axes: make(map[string]Selection)}
	if s.trials, err = selectTrials(r.Trials, data.NumTrials()); err != nil {
		return nil, err
	}

	for i, v := range []interface{}{r.Channels, r.Tapers, r.Units, r.EventIDs} {
		axis := Axes[i]
		n := data.AxisLen(axis)
		if n < 0 {
			if v != nil {
				return nil, util.ValueError(fmt.Sprintf("no %q selection, the object has no %s axis", axis+"s", axis), axis, fmt.Sprint(v))
			}
			continue
		}
		sel, err := selectAxis(v, axis, n, data.AxisLabels(axis))
		if err != nil {
			return nil, err
		}
		s.axes[axis] = sel
	}

	if err := s.selectTime(data, r.Toi, r.Toilim); err != nil {
		return nil, err
	}
	if err := s.selectFreq(data, r.Foi, r.Foilim); err != nil {
		return nil, err
	}
	logger.Debug("New selection ", s)
	return s, nil
}

// Trials returns the selected trials in the requested order
func (s *Selector) Trials() []int {
	return append([]int{}, s.trials...)
}

// Axis returns the selection along the axis, and false if the bound object
// has no such axis.
func (s *Selector) Axis(axis string) (Selection, bool) {
	sel, ok := s.axes[axis]
	return sel, ok
}

func (s *Selector) Channel() Selection {
	return s.axes["channel"]
}

func (s *Selector) Taper() Selection {
	return s.axes["taper"]
}

func (s *Selector) Unit() Selection {
	return s.axes["unit"]
}

func (s *Selector) EventID() Selection {
	return s.axes["eventid"]
}

// Time returns the sample selection of every selected trial, in the order
// of Trials(). It is nil when no time selection was requested.
func (s *Selector) Time() []Selection {
	return s.time
}

// Freq returns the frequency selection
func (s *Selector) Freq() Selection {
	return s.freq
}

// IsIdentity returns whether the selector narrows nothing, so every trial is
// selected in order and all axes are complete.
func (s *Selector) IsIdentity(numTrials int) bool {
	if len(s.trials) != numTrials {
		return false
	}
	for i, t := range s.trials {
		if t != i {
			return false
		}
	}
	for _, sel := range s.axes {
		if !sel.IsAll() {
			return false
		}
	}
	return s.time == nil && s.freq.IsAll()
}

func (s *Selector) String() string {
	var sb strings.Builder
	sb.WriteString("{trials: ")
	sb.WriteString(intsString(s.trials))
	for _, a := range Axes {
		if sel, ok := s.axes[a]; ok {
			fmt.Fprintf(&sb, ", %s: %s", a, sel)
		}
	}
	if s.time != nil {
		ts := make([]string, len(s.time))
		for i, t := range s.time {
			ts[i] = t.String()
		}
		fmt.Fprintf(&sb, ", time: [%s]", strings.Join(ts, ", "))
	}
	if !s.freq.IsAll() {
		fmt.Fprintf(&sb, ", freq: %s", s.freq)
	}
	sb.WriteString("}")
	return sb.String()
}

func selectTrials(v interface{}, n int) ([]int, error) {
	var pos []int
	switch t := v.(type) {
	case nil:
		pos = make([]int, n)
		for i := range pos {
			pos[i] = i
		}
		return pos, nil
	case Range:
		pos = t.positions()
	case ndarray.Slice:
		sel, err := selectSlice(t, "trials", n)
		if err != nil {
			return nil, err
		}
		return sel.Indices(n), nil
	default:
		var ok bool
		if pos, ok = toInts(v); !ok {
			return nil, util.TypeError(v, "trials", "list of integers")
		}
	}
	if err := checkPositions(pos, "trials", n); err != nil {
		return nil, err
	}
	return pos, nil
}

func selectAxis(v interface{}, axis string, n int, labels []string) (Selection, error) {
	switch t := v.(type) {
	case nil:
		return All(), nil
	case ndarray.Slice:
		return selectSlice(t, axis, n)
	case Range:
		pos := t.positions()
		if err := checkPositions(pos, axis, n); err != nil {
			return Selection{}, err
		}
		return canonical(pos), nil
	case []string:
		return selectLabels(t, axis, labels)
	}

	if ss, ok := toStrings(v); ok {
		return selectLabels(ss, axis, labels)
	}
	pos, ok := toInts(v)
	if !ok {
		return Selection{}, util.TypeError(v, axis, "list of labels, list of integers, range, slice or None")
	}
	if err := checkPositions(pos, axis, n); err != nil {
		return Selection{}, err
	}
	return canonical(pos), nil
}

func selectLabels(ss []string, axis string, labels []string) (Selection, error) {
	if len(ss) == 0 {
		return Selection{}, util.ValueError("non-empty list", axis, "[]")
	}
	idx := make(map[string]int, len(labels))
	for i := len(labels) - 1; i >= 0; i-- {
		idx[labels[i]] = i
	}
	pos := make([]int, len(ss))
	var missing []string
	for i, l := range ss {
		p, ok := idx[l]
		if !ok {
			missing = append(missing, l)
			continue
		}
		pos[i] = p
	}
	if len(missing) > 0 {
		return Selection{}, util.ValueError(fmt.Sprintf("existing %s labels", axis), axis, strings.Join(missing, ", "))
	}
	return ListOf(pos...), nil
}

func selectSlice(s ndarray.Slice, name string, n int) (Selection, error) {
	start, stop, step := 0, n, s.StepOr(1)
	if s.HasStart {
		start = s.Start
		if start < 0 {
			start += n
		}
	}
	if s.HasStop {
		stop = s.Stop
		if stop < 0 {
			stop += n
		}
	}
	if !(0 <= start && start < n) || !(0 < stop && stop <= n) || start >= stop || step <= 0 {
		return Selection{}, util.ValueError(fmt.Sprintf("slice with bounds between 0 and %d", n), name, s.String())
	}
	return SliceOf(start, stop, step), nil
}

func checkPositions(pos []int, name string, n int) error {
	if len(pos) == 0 {
		return util.ValueError("non-empty selection", name, "[]")
	}
	for _, p := range pos {
		if p < 0 || p >= n {
			return util.ValueError(fmt.Sprintf("values between 0 and %d", n-1), name, intsString(pos))
		}
	}
	return nil
}

func (s *Selector) selectTime(data Selectable, toi, toilim interface{}) error {
	if toi == nil && toilim == nil {
		return nil
	}
	ts, ok := data.(TimeSelectable)
	if !ok || data.AxisLen("time") < 0 {
		return util.ValueError("no time selection, the object has no time axis", "toi/toilim", fmt.Sprint(toi, toilim))
	}
	if toi != nil && toilim != nil {
		return util.ValueError("either toi or toilim", "toi/toilim", "both")
	}

	var ps points
	if toilim != nil {
		lim, err := toLimits(toilim, "toilim")
		if err != nil {
			return err
		}
		ps = points{lim: &lim, open: true}
	} else {
		var err error
		if ps, err = parsePoints(toi, "toi"); err != nil {
			return err
		}
	}

	name := "toi"
	if toilim != nil {
		name = "toilim"
	}
	time := make([]Selection, 0, len(s.trials))
	for _, trl := range s.trials {
		tt := ts.TrialTime(trl)
		var sel Selection
		switch {
		case ps.all:
			sel = All()
		case ps.lim != nil:
			var err error
			if sel, err = ps.limSelection(tt, name); err != nil {
				return err
			}
		default:
			pos, err := pointPositions(tt, ps.values, name)
			if err != nil {
				return err
			}
			sel = contiguous(pos)
		}
		time = append(time, sel)
	}
	s.time = time
	return nil
}

func (s *Selector) selectFreq(data Selectable, foi, foilim interface{}) error {
	if foi == nil && foilim == nil {
		return nil
	}
	fs, ok := data.(FreqSelectable)
	if !ok || data.AxisLen("freq") < 0 {
		return util.ValueError("no frequency selection, the object has no freq axis", "foi/foilim", fmt.Sprint(foi, foilim))
	}
	if foi != nil && foilim != nil {
		return util.ValueError("either foi or foilim", "foi/foilim", "both")
	}

	freqs := fs.Freqs()
	if foilim != nil {
		lim, err := toLimits(foilim, "foilim")
		if err != nil {
			return err
		}
		s.freq, err = points{lim: &lim, open: true}.limSelection(freqs, "foilim")
		return err
	}

	ps, err := parsePoints(foi, "foi")
	if err != nil {
		return err
	}
	switch {
	case ps.all:
		s.freq = All()
	case ps.lim != nil:
		s.freq, err = ps.limSelection(freqs, "foi")
	default:
		var pos []int
		if pos, err = nearestPositions(freqs, ps.values, "foi"); err == nil {
			s.freq = canonical(pos)
		}
	}
	return err
}

type points struct {
	all    bool
	values []float64
	// lim holds the bounds of a slice, infinite when not set
	lim *[2]float64
	// open limits may exceed the axis as long as they cover some values
	open bool
}

// parsePoints accepts a list of numbers, a Range or a slice of axis values
func parsePoints(v interface{}, name string) (points, error) {
	switch t := v.(type) {
	case string:
		return points{}, util.TypeError(v, name, "list of numbers")
	case ndarray.Slice:
		if t == ndarray.Full() {
			return points{all: true}, nil
		}
		if t.HasStep {
			return points{}, util.ValueError("slice of values without step", name, t.String())
		}
		lim := [2]float64{math.Inf(-1), math.Inf(1)}
		if t.HasStart {
			lim[0] = float64(t.Start)
		}
		if t.HasStop {
			lim[1] = float64(t.Stop)
		}
		if lim[0] >= lim[1] {
			return points{}, util.ValueError("slice with start < stop", name, t.String())
		}
		return points{lim: &lim}, nil
	case Range:
		var res []float64
		for _, p := range t.positions() {
			res = append(res, float64(p))
		}
		return points{values: res}, nil
	}

	fs, ok := toFloats(v)
	if ok {
		return points{values: fs}, nil
	}
	switch v.(type) {
	case []interface{}, []string:
		return points{}, util.ValueError("list of numbers", name, fmt.Sprint(v))
	}
	return points{}, util.TypeError(v, name, "list of numbers")
}

// limSelection selects the positions of axis values within the limits
func (ps points) limSelection(axis []float64, name string) (Selection, error) {
	span := spanString(axis)
	if len(axis) == 0 {
		return Selection{}, util.ValueError("non-empty axis", name, span)
	}
	lim := *ps.lim
	if !ps.open {
		lo, hi := axis[0], axis[len(axis)-1]
		if (!math.IsInf(lim[0], -1) && (lim[0] < lo || lim[0] > hi)) ||
			(!math.IsInf(lim[1], 1) && (lim[1] < lo || lim[1] > hi)) {
			return Selection{}, util.ValueError(fmt.Sprintf("limits within %s", span), name, fmt.Sprint(lim))
		}
	}
	first, last := -1, -1
	for i, v := range axis {
		if v >= lim[0] && v <= lim[1] {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return Selection{}, util.ValueError(fmt.Sprintf("limits within %s", span), name, fmt.Sprint(lim))
	}
	return SliceOf(first, last+1, 1), nil
}

func toLimits(v interface{}, name string) ([2]float64, error) {
	var res [2]float64
	if a, ok := v.([2]float64); ok {
		v = a[:]
	}
	if _, ok := v.(string); ok {
		return res, util.TypeError(v, name, "list of two numbers")
	}
	fs, ok := toFloats(v)
	if !ok {
		return res, util.TypeError(v, name, "list of two numbers")
	}
	if len(fs) != 2 {
		return res, util.ValueError("list of two numbers", name, fmt.Sprint(v))
	}
	if fs[0] > fs[1] {
		return res, util.ValueError("lower limit not greater than upper limit", name, fmt.Sprint(v))
	}
	res[0], res[1] = fs[0], fs[1]
	return res, nil
}

// pointPositions maps every time point to the position of the nearest
// preceding sample. Every point must be within the trial time span.
func pointPositions(tt []float64, pts []float64, name string) ([]int, error) {
	if len(tt) == 0 {
		return nil, util.ValueError("trials with samples", name, "empty trial")
	}
	if len(pts) == 0 {
		return nil, util.ValueError("non-empty list of time points", name, "[]")
	}
	pos := make([]int, len(pts))
	for i, p := range pts {
		if p < tt[0] || p > tt[len(tt)-1] || math.IsNaN(p) {
			return nil, util.ValueError(fmt.Sprintf("values within %s", spanString(tt)), name, fmt.Sprint(pts))
		}
		idx := sort.Search(len(tt), func(k int) bool { return tt[k] > p })
		if idx > 0 {
			idx--
		}
		pos[i] = idx
	}
	return pos, nil
}

// nearestPositions maps every value to the position of the closest axis value
func nearestPositions(axis []float64, vals []float64, name string) ([]int, error) {
	if len(axis) == 0 || len(vals) == 0 {
		return nil, util.ValueError("non-empty selection", name, fmt.Sprint(vals))
	}
	lo, hi := axis[0], axis[len(axis)-1]
	pos := make([]int, len(vals))
	for i, v := range vals {
		if v < lo || v > hi || math.IsNaN(v) {
			return nil, util.ValueError(fmt.Sprintf("values within %s", spanString(axis)), name, fmt.Sprint(vals))
		}
		best := 0
		for k, a := range axis {
			if math.Abs(a-v) < math.Abs(axis[best]-v) {
				best = k
			}
		}
		pos[i] = best
	}
	return pos, nil
}

// contiguous turns positions into a unit step slice when they are a
// contiguous ascending run
func contiguous(pos []int) Selection {
	for i := 1; i < len(pos); i++ {
		if pos[i]-pos[i-1] != 1 {
			return ListOf(pos...)
		}
	}
	return SliceOf(pos[0], pos[len(pos)-1]+1, 1)
}

func spanString(v []float64) string {
	if len(v) == 0 {
		return "[]"
	}
	return fmt.Sprintf("[%g, %g]", v[0], v[len(v)-1])
}

func toInts(v interface{}) ([]int, bool) {
	switch t := v.(type) {
	case []int:
		return append([]int{}, t...), true
	case []int64:
		res := make([]int, len(t))
		for i, x := range t {
			res[i] = int(x)
		}
		return res, true
	case []int32:
		res := make([]int, len(t))
		for i, x := range t {
			res[i] = int(x)
		}
		return res, true
	case []interface{}:
		res := make([]int, len(t))
		for i, x := range t {
			switch n := x.(type) {
			case int:
				res[i] = n
			case int64:
				res[i] = int(n)
			case int32:
				res[i] = int(n)
			default:
				return nil, false
			}
		}
		return res, true
	}
	return nil, false
}

func toStrings(v interface{}) ([]string, bool) {
	l, ok := v.([]interface{})
	if !ok || len(l) == 0 {
		return nil, false
	}
	res := make([]string, len(l))
	for i, x := range l {
		s, ok := x.(string)
		if !ok {
			return nil, false
		}
		res[i] = s
	}
	return res, true
}

func toFloats(v interface{}) ([]float64, bool) {
	switch t := v.(type) {
	case []float64:
		return append([]float64{}, t...), true
	case []float32:
		res := make([]float64, len(t))
		for i, x := range t {
			res[i] = float64(x)
		}
		return res, true
	case []interface{}:
		res := make([]float64, len(t))
		for i, x := range t {
			switch n := x.(type) {
			case float64:
				res[i] = n
			case float32:
				res[i] = float64(n)
			case int:
				res[i] = float64(n)
			case int64:
				res[i] = float64(n)
			default:
				return nil, false
			}
		}
		return res, true
	}
	if is, ok := toInts(v); ok {
		res := make([]float64, len(is))
		for i, x := range is {
			res[i] = float64(x)
		}
		return res, true
	}
	return nil, false
}
