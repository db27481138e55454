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
	"math"
	"os"

	"github.com/jrivets/log4g"
	"github.com/spykewave/spykewave/pkg/indexer"
	"github.com/spykewave/spykewave/pkg/memmap"
	"github.com/spykewave/spykewave/pkg/ndarray"
	"github.com/spykewave/spykewave/pkg/selector"
	"github.com/spykewave/spykewave/pkg/util"
	"github.com/spykewave/spykewave/pkg/virtual"
)

type (
	// TrialSource is implemented by the data variants which are made of
	// trials
	TrialSource interface {
		Kind() Kind
		NumTrials() int
		// Shapes returns the array shape of every trial
		Shapes() [][]int
		// Trial returns a trial, possibly a view of the data
		Trial(i int) (*ndarray.Array, error)
		// CopyTrial reads a trial from the backing files into a new array
		CopyTrial(i int) (*ndarray.Array, error)
		// PreviewTrial describes a trial without reading it
		PreviewTrial(i int, sel *selector.Selector) (FauxTrial, error)
	}

	// FauxTrial describes the shape and the data index of a trial
	FauxTrial struct {
		Shape []int
		// Index selects the trial along every axis of the data, the time
		// selection is in absolute samples
		Index []selector.Selection
		DType ndarray.DType
	}

	// continuous is the sample-interval based trial machinery shared by
	// AnalogData and SpectralData
	continuous struct {
		BaseData
		samplerate float64
		hdr        []virtual.ChunkHeader
		files      []string
	}
)

var unitConverter = map[string]float64{"h": 1.0 / 3600, "min": 1.0 / 60, "s": 1, "ms": 1e3, "ns": 1e9}

// Samplerate returns the sampling rate in Hz, 0 if it is not set
func (c *continuous) Samplerate() float64 {
	return c.samplerate
}

// SetSamplerate sets the sampling rate, which must be positive
func (c *continuous) SetSamplerate(sr float64) error {
	if !(sr >= math.SmallestNonzeroFloat64) || math.IsInf(sr, 1) {
		return util.ValueError("value greater than 0", "samplerate", fmt.Sprint(sr))
	}
	c.samplerate = sr
	return nil
}

// Header returns the raw chunk headers for data read from raw chunks
func (c *continuous) Header() []virtual.ChunkHeader {
	return c.hdr
}

// ChunkFiles returns the raw chunk files for data read from raw chunks
func (c *continuous) ChunkFiles() []string {
	return c.files
}

// NumTrials returns the number of defined trials
func (c *continuous) NumTrials() int {
	return len(c.trialdef)
}

// AxisLen returns the data length along axis, -1 if there is no such axis
// or no data
func (c *continuous) AxisLen(axis string) int {
	ax := c.axisIndex(axis)
	buf := c.Data()
	if ax < 0 || buf == nil {
		return -1
	}
	return buf.Shape()[ax]
}

// AxisLabels returns the labels of the axis
func (c *continuous) AxisLabels(axis string) []string {
	return c.labels[axis]
}

// TrialDefinition returns a copy of the trial definition table: start and
// stop samples, t0 offset and the trial info columns.
func (c *continuous) TrialDefinition() [][]float64 {
	res := make([][]float64, len(c.trialdef))
	for i, r := range c.trialdef {
		res[i] = append([]float64{}, r...)
	}
	return res
}

// DefineTrial sets the trial definition. The table must have at least 3
// columns: start sample, stop sample and t0 offset. nil defines one trial
// over all the data.
func (c *continuous) DefineTrial(trl *ndarray.Array) error {
	tlen := c.AxisLen("time")
	if tlen < 0 {
		return util.ValueError("data with time axis", "trialdefinition", "no data")
	}
	if trl == nil {
		c.trialdef = [][]float64{{0, float64(tlen), 0}}
		return nil
	}
	shp := trl.Shape()
	if len(shp) != 2 || shp[1] < 3 {
		return util.ValueError("2-D array with at least 3 columns", "trialdefinition", fmt.Sprint(shp))
	}
	def := make([][]float64, shp[0])
	for i := range def {
		def[i] = make([]float64, shp[1])
		for j := range def[i] {
			def[i][j] = trl.Float64At(i, j)
		}
		if err := checkInterval(def[i][0], def[i][1], tlen, "trialdefinition"); err != nil {
			return err
		}
	}
	c.trialdef = def
	return nil
}

// SampleInfo returns [start, stop) samples of every trial as an N x 2 int64
// array, nil without trials.
func (c *continuous) SampleInfo() *ndarray.Array {
	if c.trialdef == nil {
		return nil
	}
	si := ndarray.New(ndarray.Int64, len(c.trialdef), 2)
	for i, r := range c.trialdef {
		si.SetFloat64(r[0], i, 0)
		si.SetFloat64(r[1], i, 1)
	}
	return si
}

// SetSampleInfo replaces the trial intervals. si must be an N x 2 integer
// array. The t0 offsets and trial info are kept when the number of trials
// does not change, otherwise they are reset.
func (c *continuous) SetSampleInfo(si *ndarray.Array) error {
	if si == nil {
		return util.TypeError(si, "sampleinfo", "2-D array")
	}
	if k := si.DType().Kind(); k != 'i' && k != 'u' {
		return util.ValueError("integer array", "sampleinfo", si.DType().Name())
	}
	shp := si.Shape()
	if len(shp) != 2 || shp[1] != 2 {
		return util.ValueError("N x 2 array", "sampleinfo", fmt.Sprint(shp))
	}
	tlen := c.AxisLen("time")
	if tlen < 0 {
		return util.ValueError("data with time axis", "sampleinfo", "no data")
	}
	def := make([][]float64, shp[0])
	for i := range def {
		start, stop := si.Float64At(i, 0), si.Float64At(i, 1)
		if err := checkInterval(start, stop, tlen, "sampleinfo"); err != nil {
			return err
		}
		if len(c.trialdef) == shp[0] {
			def[i] = append([]float64{}, c.trialdef[i]...)
		} else {
			def[i] = make([]float64, 3)
		}
		def[i][0], def[i][1] = start, stop
	}
	c.trialdef = def
	return nil
}

func checkInterval(start, stop float64, tlen int, name string) error {
	if start != math.Trunc(start) || stop != math.Trunc(stop) || start < 0 || stop > float64(tlen) || start > stop {
		return util.ValueError(fmt.Sprintf("integer intervals within [0, %d]", tlen), name, fmt.Sprintf("[%g, %g]", start, stop))
	}
	return nil
}

// T0 returns the t0 offset of every trial
func (c *continuous) T0() []float64 {
	res := make([]float64, len(c.trialdef))
	for i, r := range c.trialdef {
		res[i] = r[2]
	}
	return res
}

// TrialInfo returns the user columns of the trial definition
func (c *continuous) TrialInfo() [][]float64 {
	res := make([][]float64, len(c.trialdef))
	for i, r := range c.trialdef {
		res[i] = append([]float64{}, r[3:]...)
	}
	return res
}

// TrialTime returns the trigger-relative time of every sample of the trial
func (c *continuous) TrialTime(trial int) []float64 {
	if c.samplerate == 0 || trial < 0 || trial >= len(c.trialdef) {
		return nil
	}
	r := c.trialdef[trial]
	n := int(r[1] - r[0])
	res := make([]float64, n)
	for i := range res {
		res[i] = (float64(i) + r[2]) / c.samplerate
	}
	return res
}

// Time returns TrialTime of all trials, nil without samplerate or trials
func (c *continuous) Time() [][]float64 {
	if c.samplerate == 0 || c.trialdef == nil {
		return nil
	}
	res := make([][]float64, len(c.trialdef))
	for i := range res {
		res[i] = c.TrialTime(i)
	}
	return res
}

// TrialTimes returns the absolute sample times of the trial in unit, which
// is one of h, min, s, ms or ns. The result is nil without samplerate.
func (c *continuous) TrialTimes(trial int, unit string) ([]float64, error) {
	conv, ok := unitConverter[unit]
	if !ok {
		return nil, util.ValueError("h, min, s, ms, ns", "unit", unit)
	}
	if trial < 0 || trial >= len(c.trialdef) {
		return nil, util.ValueError(fmt.Sprintf("value between 0 and %d", len(c.trialdef)-1), "trialno", fmt.Sprint(trial))
	}
	if c.samplerate == 0 {
		return nil, nil
	}
	r := c.trialdef[trial]
	res := make([]float64, 0, int(r[1]-r[0]))
	for s := r[0]; s < r[1]; s++ {
		res = append(res, s*conv/c.samplerate)
	}
	return res, nil
}

// Shapes returns the data shape of every trial
func (c *continuous) Shapes() [][]int {
	buf := c.Data()
	tax := c.axisIndex("time")
	if buf == nil || tax < 0 || c.trialdef == nil {
		return nil
	}
	res := make([][]int, len(c.trialdef))
	for i, r := range c.trialdef {
		res[i] = append([]int{}, buf.Shape()...)
		res[i][tax] = int(r[1] - r[0])
	}
	return res
}

func (c *continuous) trialIndex(i int) ([]ndarray.Slice, error) {
	if i < 0 || i >= len(c.trialdef) {
		return nil, util.ValueError(fmt.Sprintf("value between 0 and %d", len(c.trialdef)-1), "trialno", fmt.Sprint(i))
	}
	tax := c.axisIndex("time")
	if tax < 0 {
		return nil, util.ValueError("data with time axis", "dimord", fmt.Sprint(c.dimord))
	}
	idx := make([]ndarray.Slice, len(c.dimord))
	idx[tax] = ndarray.Range(int(c.trialdef[i][0]), int(c.trialdef[i][1]))
	return idx, nil
}

// Trial returns the trial data as a view of the buffer where possible
func (c *continuous) Trial(i int) (*ndarray.Array, error) {
	buf := c.Data()
	if buf == nil {
		return nil, util.ValueError("object with data", "data", "None")
	}
	idx, err := c.trialIndex(i)
	if err != nil {
		return nil, err
	}
	return buf.Index(idx...)
}

// CopyTrial reads the trial into a new array by mapping the backing files
// again, so it does not use the object buffer.
func (c *continuous) CopyTrial(i int) (*ndarray.Array, error) {
	buf := c.Data()
	if buf == nil {
		return nil, util.ValueError("object with data", "data", "None")
	}
	idx, err := c.trialIndex(i)
	if err != nil {
		return nil, err
	}
	if _, ok := buf.(*VirtualBuffer); ok && c.hdr == nil {
		t, err := buf.Index(idx...)
		if err != nil {
			return nil, err
		}
		return t.Materialize(), nil
	}
	if c.hdr != nil {
		va, err := virtual.OpenChunks(c.files, c.hdr)
		if err != nil {
			return nil, err
		}
		defer va.Close()
		arr, err := (&VirtualBuffer{VA: va}).Index(idx...)
		if err != nil {
			return nil, err
		}
		return arr.Materialize(), nil
	}

	if err := c.Flush(); err != nil {
		return nil, err
	}
	mm, err := memmap.Open(c.filename, memmap.ModeCopyOnWrite)
	if err != nil {
		return nil, err
	}
	defer mm.Close()
	arr, err := mm.Array().Index(idx...)
	if err != nil {
		return nil, err
	}
	return arr.Materialize(), nil
}

// PreviewTrial returns the shape and the index of the trial with the sel
// selection applied. sel can be nil.
func (c *continuous) PreviewTrial(i int, sel *selector.Selector) (FauxTrial, error) {
	var ft FauxTrial
	buf := c.Data()
	if buf == nil {
		return ft, util.ValueError("object with data", "data", "None")
	}
	if _, err := c.trialIndex(i); err != nil {
		return ft, err
	}
	start, stop := int(c.trialdef[i][0]), int(c.trialdef[i][1])
	ft.DType = buf.DType()
	ft.Shape = append([]int{}, buf.Shape()...)
	ft.Index = make([]selector.Selection, len(c.dimord))
	for ax, name := range c.dimord {
		s := axisSelection(sel, name, i)
		if name == "time" {
			s = shiftSelection(s, start, stop)
		}
		ft.Shape[ax] = s.Len(ft.Shape[ax])
		ft.Index[ax] = s
	}
	return ft, nil
}

// axisSelection returns the sel selection of the axis for the trial
func axisSelection(sel *selector.Selector, axis string, trial int) selector.Selection {
	if sel == nil {
		return selector.All()
	}
	switch axis {
	case "time":
		if tm := sel.Time(); tm != nil {
			for k, t := range sel.Trials() {
				if t == trial {
					return tm[k]
				}
			}
		}
		return selector.All()
	case "freq":
		return sel.Freq()
	}
	s, _ := sel.Axis(axis)
	return s
}

// shiftSelection turns a trial relative time selection into the absolute one
func shiftSelection(s selector.Selection, start, stop int) selector.Selection {
	if l := s.List(); l != nil {
		res := make([]int, len(l))
		for i, p := range l {
			res[i] = p + start
		}
		return selector.ListOf(res...)
	}
	if sl, ok := s.Slice(); ok {
		st, sp, step, _ := sl.Resolve(stop - start)
		return selector.SliceOf(st+start, sp+start, step)
	}
	return selector.SliceOf(start, stop, 1)
}

// Trials returns the indexable sequence of materialized trials, nil if no
// trials are defined
func (c *continuous) Trials() *indexer.Sequence {
	if c.trialdef == nil || c.Data() == nil {
		return nil
	}
	return indexer.New(indexer.Range(len(c.trialdef), func(i int) (*ndarray.Array, error) {
		t, err := c.Trial(i)
		if err != nil {
			return nil, err
		}
		return t.Materialize(), nil
	}), len(c.trialdef))
}

// copyTo makes dst a copy of c. A deep copy duplicates the backing file.
func (c *continuous) copyTo(dst *continuous, deep bool) (CopyResult, error) {
	if c.closed {
		return CopyUnsupported, util.ErrWrongState
	}
	if deep {
		if _, ok := c.Data().(*VirtualBuffer); ok {
			c.logger.Warn("Deep copy not possible for virtual data objects, please save the object instead")
			return CopyUnsupported, nil
		}
	}

	dst.BaseData = c.shallowCopy()
	dst.samplerate = c.samplerate
	dst.hdr = append([]virtual.ChunkHeader(nil), c.hdr...)
	dst.files = append([]string(nil), c.files...)
	if !deep || c.back == nil {
		return CopyDone, nil
	}

	// the copy must not share the buffer
	dst.back.release()
	dst.back = nil
	if err := c.Flush(); err != nil {
		return CopyUnsupported, err
	}
	fn := c.sess.GenFilename("npy")
	if _, err := util.CopyFile(c.filename, fn); err != nil {
		os.Remove(fn)
		return CopyUnsupported, util.IOError(fn, err)
	}
	mode := c.mode
	if mode == memmap.ModeWrite {
		mode = memmap.ModeReadWrite
	}
	mm, err := memmap.Open(fn, mode)
	if err != nil {
		os.Remove(fn)
		return CopyUnsupported, err
	}
	dst.filename = fn
	dst.back = newBacking(&MemMapBuffer{MM: mm}, c.sess.IsManaged(fn))
	dst.logger = log4g.GetLogger("datatype").WithId("{" + fn + "}").(log4g.Logger)
	return CopyDone, nil
}
