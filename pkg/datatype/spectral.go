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

	"github.com/spykewave/spykewave/pkg/storage"
	"github.com/spykewave/spykewave/pkg/util"
)

// SpectralData keeps trial-wise spectra with time, taper, freq and channel
// axes
type SpectralData struct {
	continuous
	freqs []float64
}

var spectralFields = []string{"cfg", "channel", "data", "dimord", "filename", "freq", "mode", "sampleinfo",
	"samplerate", "t0", "taper", "time", "trialinfo", "trials", "version"}

// NewSpectralData creates the object in the sess storage
func NewSpectralData(sess *storage.Session, opts ...Option) (*SpectralData, error) {
	if sess == nil {
		return nil, util.TypeError(sess, "sess", "storage session")
	}
	sd := new(SpectralData)
	sd.init(sess, "SpectralData", []string{"time", "taper", "freq", "channel"})
	o := newOptions(opts)
	err := sd.populate(sd, o)
	if err == nil {
		err = sd.populateSpectral(o)
	}
	if err != nil {
		sd.Close()
		return nil, err
	}
	sd.AppendLog("created SpectralData object")
	return sd, nil
}

func (sd *SpectralData) populateSpectral(o *options) error {
	if sd.Data() == nil {
		return nil
	}
	if o.tapers != nil {
		if err := sd.SetLabels("taper", o.tapers); err != nil {
			return err
		}
	} else if sd.labels["taper"] == nil && sd.AxisLen("taper") >= 0 {
		lbs := make([]string, sd.AxisLen("taper"))
		for i := range lbs {
			lbs[i] = fmt.Sprintf("taper%d", i+1)
		}
		if err := sd.SetLabels("taper", lbs); err != nil {
			return err
		}
	}
	if o.freqs != nil {
		return sd.SetFreqs(o.freqs)
	}
	if sd.freqs == nil && sd.AxisLen("freq") >= 0 {
		freqs := make([]float64, sd.AxisLen("freq"))
		for i := range freqs {
			freqs[i] = float64(i)
		}
		sd.freqs = freqs
	}
	return nil
}

func (sd *SpectralData) Kind() Kind {
	return SpectralKind
}

// Attach makes buf the object data. Virtual buffers are not supported.
func (sd *SpectralData) Attach(buf Buffer) error {
	if _, ok := buf.(*VirtualBuffer); ok {
		return util.TypeError(buf, "data", "memory mapped array")
	}
	return sd.continuous.Attach(buf)
}

// Freqs returns the frequency of every position of the freq axis
func (sd *SpectralData) Freqs() []float64 {
	return append([]float64(nil), sd.freqs...)
}

// SetFreqs sets the frequency axis values, one per freq position
func (sd *SpectralData) SetFreqs(freqs []float64) error {
	if n := sd.AxisLen("freq"); n >= 0 && n != len(freqs) {
		return util.ValueError(fmt.Sprintf("%d frequencies", n), "freq", fmt.Sprintf("%d frequencies", len(freqs)))
	}
	sd.freqs = append([]float64(nil), freqs...)
	return nil
}

// Copy returns a copy of the object, see AnalogData.Copy
func (sd *SpectralData) Copy(deep bool) (*SpectralData, CopyResult, error) {
	res := new(SpectralData)
	cr, err := sd.copyTo(&res.continuous, deep)
	if err != nil || cr != CopyDone {
		return nil, cr, err
	}
	res.freqs = sd.Freqs()
	return res, cr, nil
}

// SelectData returns a new object with the selection applied, see
// AnalogData.SelectData
func (sd *SpectralData) SelectData(trials []int, deep bool, kwargs map[string]interface{}) (*SpectralData, error) {
	if sd.closed {
		return nil, util.ErrWrongState
	}
	sel, err := newSelector(sd, trials, kwargs)
	if err != nil {
		return nil, err
	}
	if !deep && sel.IsIdentity(sd.NumTrials()) {
		res, _, err := sd.Copy(false)
		return res, err
	}
	res := new(SpectralData)
	if err := sd.selectInto(&res.continuous, sel, "SpectralData"); err != nil {
		res.Close()
		return nil, err
	}
	for _, p := range sel.Freq().Indices(len(sd.freqs)) {
		res.freqs = append(res.freqs, sd.freqs[p])
	}
	return res, nil
}

func (sd *SpectralData) String() string {
	return describe("SpectralData", spectralFields, func(f string) string {
		if f == "freq" {
			return fmt.Sprintf("[%d] element array", len(sd.freqs))
		}
		return sd.field(f)
	})
}
