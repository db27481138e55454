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

package specest

import (
	"fmt"

	"github.com/cwbudde/algo-dsp/dsp/spectrum"
	"github.com/cwbudde/algo-dsp/dsp/window"
	"github.com/spykewave/spykewave/pkg/ndarray"
	"github.com/spykewave/spykewave/pkg/util"
)

type (
	// Result is the output of a ComputeFunc for one trial
	Result struct {
		// Shape and DType are always set, Data is nil for a dry run
		Shape []int
		DType ndarray.DType
		Data  *ndarray.Array
		// Freqs are the values of the output freq axis
		Freqs []float64
	}

	// ComputeFunc transforms one [time x channel] trial into a
	// [time x taper x freq x channel] spectrum
	ComputeFunc interface {
		// Compute returns the trial spectrum. With noCompute only the shape
		// and the type of the result are returned.
		Compute(trial *ndarray.Array, noCompute bool) (Result, error)
	}

	// Periodogram computes the power at the given frequencies over the
	// whole trial, optionally Hann tapered
	Periodogram struct {
		Samplerate float64
		Freqs      []float64
		Taper      bool
	}
)

// Compute returns one time bin and one taper of power per frequency and
// channel
func (p *Periodogram) Compute(trial *ndarray.Array, noCompute bool) (Result, error) {
	if trial == nil || trial.NDim() != 2 {
		return Result{}, util.ValueError("2-D [time x channel] trial", "trial", fmt.Sprint(trial))
	}
	if trial.DType().Kind() == 'c' {
		return Result{}, util.ValueError("real-valued trial", "trial", trial.DType().Name())
	}
	if !(p.Samplerate > 0) {
		return Result{}, util.ValueError("value greater than 0", "samplerate", fmt.Sprint(p.Samplerate))
	}
	if len(p.Freqs) == 0 {
		return Result{}, util.ValueError("non-empty frequencies", "freqs", "[]")
	}
	nt, nc := trial.Shape()[0], trial.Shape()[1]
	res := Result{Shape: []int{1, 1, len(p.Freqs), nc}, DType: ndarray.Float64, Freqs: append([]float64(nil), p.Freqs...)}
	if noCompute {
		return res, nil
	}
	if nt == 0 {
		return Result{}, util.ValueError("trial with samples", "trial", "empty")
	}

	mg, err := spectrum.NewMultiGoertzel(p.Freqs, p.Samplerate)
	if err != nil {
		return Result{}, util.ValueError(fmt.Sprintf("frequencies within [0, %g]", p.Samplerate/2), "freqs", err.Error())
	}
	var coeffs []float64
	norm := float64(nt)
	if p.Taper {
		coeffs = window.Generate(window.TypeHann, nt)
		norm = 0
		for _, c := range coeffs {
			norm += c * c
		}
	}
	norm *= p.Samplerate

	res.Data = ndarray.New(ndarray.Float64, res.Shape...)
	for ch := 0; ch < nc; ch++ {
		col, err := trial.Index(ndarray.Full(), ndarray.Range(ch, ch+1))
		if err != nil {
			return Result{}, err
		}
		samples := col.Float64s()
		if coeffs != nil {
			if samples, err = window.ApplyCoefficients(samples, coeffs); err != nil {
				return Result{}, err
			}
		}
		mg.Reset()
		mg.ProcessBlock(samples)
		for f, pw := range mg.Powers() {
			res.Data.SetFloat64(pw/norm, 0, 0, f, ch)
		}
	}
	return res, nil
}
