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
	"os"

	"github.com/spykewave/spykewave/pkg/memmap"
	"github.com/spykewave/spykewave/pkg/ndarray"
	"github.com/spykewave/spykewave/pkg/util"
)

type (
	// Option configures a data object at construction
	Option func(o *options)

	options struct {
		src        string
		loader     Loader
		kwargs     map[string]interface{}
		data       *ndarray.Array
		buf        Buffer
		trl        *ndarray.Array
		samplerate float64
		channels   []string
		tapers     []string
		freqs      []float64
		dimord     []string
		mode       memmap.Mode
	}
)

// WithSource makes loader populate the object from src
func WithSource(src string, loader Loader, kwargs map[string]interface{}) Option {
	return func(o *options) {
		o.src = src
		o.loader = loader
		o.kwargs = kwargs
	}
}

// WithData writes arr into a new managed .npy file used as the object data
func WithData(arr *ndarray.Array) Option {
	return func(o *options) {
		o.data = arr
	}
}

// WithBuffer uses buf as the object data as is
func WithBuffer(buf Buffer) Option {
	return func(o *options) {
		o.buf = buf
	}
}

// WithTrialDefinition defines the trials, see DefineTrial
func WithTrialDefinition(trl *ndarray.Array) Option {
	return func(o *options) {
		o.trl = trl
	}
}

func WithSamplerate(sr float64) Option {
	return func(o *options) {
		o.samplerate = sr
	}
}

func WithChannels(channels []string) Option {
	return func(o *options) {
		o.channels = channels
	}
}

func WithTapers(tapers []string) Option {
	return func(o *options) {
		o.tapers = tapers
	}
}

func WithFreqs(freqs []float64) Option {
	return func(o *options) {
		o.freqs = freqs
	}
}

func WithDimord(dimord []string) Option {
	return func(o *options) {
		o.dimord = dimord
	}
}

// WithMode sets the access mode of the backing file
func WithMode(m memmap.Mode) Option {
	return func(o *options) {
		o.mode = m
	}
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// populate fills c from the options. obj is the variant embedding c, it is
// passed to the loader.
func (c *continuous) populate(obj Loadable, o *options) error {
	if o.mode != "" {
		if _, err := memmap.ParseMode(string(o.mode)); err != nil {
			return err
		}
		c.mode = o.mode
	}
	if o.dimord != nil {
		if err := c.SetDimord(o.dimord); err != nil {
			return err
		}
	}

	n := 0
	for _, set := range []bool{o.src != "", o.data != nil, o.buf != nil} {
		if set {
			n++
		}
	}
	if n > 1 {
		return util.ValueError("one of source, data or buffer", "data", fmt.Sprintf("%d sources", n))
	}

	switch {
	case o.src != "":
		if o.loader == nil {
			return util.TypeError(o.loader, "loader", "datatype.Loader")
		}
		if err := o.loader.Load(obj, o.src, o.kwargs); err != nil {
			return err
		}
	case o.data != nil:
		if err := c.writeData(o.data); err != nil {
			return err
		}
	case o.buf != nil:
		if err := obj.Attach(o.buf); err != nil {
			return err
		}
	}

	if o.samplerate != 0 {
		if err := c.SetSamplerate(o.samplerate); err != nil {
			return err
		}
	}
	if c.Data() == nil {
		if o.trl != nil {
			c.logger.Warn("Cannot define trials without data. Please assign data first")
		}
		return nil
	}
	if o.trl != nil || c.trialdef == nil {
		if err := c.DefineTrial(o.trl); err != nil {
			return err
		}
	}
	if o.channels != nil {
		return c.SetLabels("channel", o.channels)
	}
	if c.labels["channel"] == nil && c.AxisLen("channel") >= 0 {
		lbs := make([]string, c.AxisLen("channel"))
		for i := range lbs {
			lbs[i] = fmt.Sprintf("channel%d", i+1)
		}
		return c.SetLabels("channel", lbs)
	}
	return nil
}

// writeData stores arr into a new managed memmap and attaches it. The file
// is removed if arr cannot become the object data.
func (c *continuous) writeData(arr *ndarray.Array) error {
	if len(c.dimord) > 0 && arr.NDim() != len(c.dimord) {
		return util.ValueError(fmt.Sprintf("%d-dimensional data", len(c.dimord)), "data", fmt.Sprint(arr.Shape()))
	}
	mm, err := memmap.Create(c.filename, arr.DType(), arr.Shape()...)
	if err != nil {
		return err
	}
	if err = mm.Array().Assign(arr); err == nil && c.mode != memmap.ModeWrite {
		err = mm.Reopen(c.mode)
	}
	if err == nil {
		err = c.Attach(&MemMapBuffer{MM: mm})
	}
	if err != nil {
		mm.Close()
		os.Remove(mm.Filename())
	}
	return err
}
