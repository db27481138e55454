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


// Package specest runs spectral estimation over the trials of data objects
package specest

import (
	"fmt"
	"os"

	"github.com/jrivets/log4g"
	"github.com/spykewave/spykewave/pkg/datatype"
	"github.com/spykewave/spykewave/pkg/memmap"
	"github.com/spykewave/spykewave/pkg/ndarray"
	"github.com/spykewave/spykewave/pkg/util"
)

// configurer is implemented by the compute functions which add their
// settings to the result provenance
type configurer interface {
	Cfg() map[string]interface{}
}

var logger = log4g.GetLogger("specest")

// Cfg returns the periodogram settings
func (p *Periodogram) Cfg() map[string]interface{} {
	return map[string]interface{}{
		"method":     "periodogram",
		"samplerate": p.Samplerate,
		"foi":        append([]float64(nil), p.Freqs...),
		"taper":      p.Taper,
	}
}

// Run applies fn to every trial of ad and collects the results in a new
// SpectralData. The trials are computed one by one. A non-nil sel is
// applied to ad first, see AnalogData.SelectData.
func Run(ad *datatype.AnalogData, fn ComputeFunc, sel map[string]interface{}) (*datatype.SpectralData, error) {
	if ad == nil || fn == nil {
		return nil, util.TypeError(fn, "fn", "ComputeFunc with AnalogData")
	}
	if sel != nil {
		sub, err := ad.SelectData(nil, false, sel)
		if err != nil {
			return nil, err
		}
		defer sub.Close()
		ad = sub
	}
	n := ad.NumTrials()
	if n == 0 {
		return nil, util.ValueError("object with trials", "data", "no trials")
	}

	first, err := ad.Trial(0)
	if err != nil {
		return nil, err
	}
	dry, err := fn.Compute(first, true)
	if err != nil {
		return nil, err
	}
	if len(dry.Shape) != 4 {
		return nil, util.ValueError("[time x taper x freq x channel] result", "result", fmt.Sprint(dry.Shape))
	}
	shape := append([]int{}, dry.Shape...)
	shape[0] *= n

	sess := ad.Session()
	mm, err := memmap.Create(sess.GenFilename("npy"), dry.DType, shape...)
	if err != nil {
		return nil, err
	}
	buf := &datatype.MemMapBuffer{MM: mm}
	logger.Info("Computing ", n, " trials of ", ad.Filename(), " into ", mm.Filename(), " ", shape)

	info := ad.TrialInfo()
	trl := ndarray.New(ndarray.Float64, n, 3+len(info[0]))
	bins := dry.Shape[0]
	for i := 0; i < n; i++ {
		if err := computeTrial(ad, fn, i, mm.Array(), dry); err != nil {
			buf.Close()
			os.Remove(mm.Filename())
			return nil, err
		}
		trl.SetFloat64(float64(i*bins), i, 0)
		trl.SetFloat64(float64((i+1)*bins), i, 1)
		for j, v := range info[i] {
			trl.SetFloat64(v, i, 3+j)
		}
	}

	opts := []datatype.Option{
		datatype.WithBuffer(buf),
		datatype.WithTrialDefinition(trl),
		datatype.WithChannels(ad.Labels("channel")),
	}
	if sr := ad.Samplerate(); sr > 0 {
		opts = append(opts, datatype.WithSamplerate(sr))
	}
	if dry.Freqs != nil {
		opts = append(opts, datatype.WithFreqs(dry.Freqs))
	}
	sd, err := datatype.NewSpectralData(sess, opts...)
	if err != nil {
		return nil, err
	}
	for _, c := range ad.Cfg() {
		sd.SetCfg(c)
	}
	if c, ok := fn.(configurer); ok {
		sd.SetCfg(c.Cfg())
	}
	sd.AppendLog(fmt.Sprintf("computed spectra of %d trials of %s", n, ad.Filename()))
	return sd, nil
}

func computeTrial(ad *datatype.AnalogData, fn ComputeFunc, i int, dst *ndarray.Array, dry Result) error {
	trial, err := ad.Trial(i)
	if err != nil {
		return err
	}
	res, err := fn.Compute(trial, false)
	if err != nil {
		return util.Wrapf(err, "trial %d", i)
	}
	if res.Data == nil || !sameShape(res.Data.Shape(), dry.Shape) {
		return util.ValueError(fmt.Sprintf("result of shape %v", dry.Shape), "result", fmt.Sprint(res.Data))
	}
	bins := dry.Shape[0]
	part, err := dst.Index(ndarray.Range(i*bins, (i+1)*bins))
	if err != nil {
		return err
	}
	return part.Assign(res.Data)
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
