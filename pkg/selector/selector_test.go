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
	"testing"

	"github.com/spykewave/spykewave/pkg/ndarray"
	"github.com/spykewave/spykewave/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type (
	plainData struct {
		nTrials int
		dimord  []string
		lens    map[string]int
		labels  map[string][]string
	}

	timeData struct {
		plainData
		trialLen int
		t0       float64
		sr       float64
	}

	specData struct {
		timeData
		freqs []float64
	}
)

func (d *plainData) NumTrials() int   { return d.nTrials }
func (d *plainData) Dimord() []string { return d.dimord }
func (d *plainData) AxisLabels(axis string) []string {
	return d.labels[axis]
}
func (d *plainData) AxisLen(axis string) int {
	if n, ok := d.lens[axis]; ok {
		return n
	}
	return -1
}

func (d *timeData) TrialTime(trial int) []float64 {
	res := make([]float64, d.trialLen)
	for i := range res {
		res[i] = (float64(i) + d.t0) / d.sr
	}
	return res
}

func (d *specData) Freqs() []float64 { return d.freqs }

func labels(prefix string, n int) []string {
	res := make([]string, n)
	for i := range res {
		res[i] = fmt.Sprintf("%s%d", prefix, i+1)
	}
	return res
}

// analog mimics 6 trials of 5 samples with 10 channels, samplerate 2 and t0 1
func analog() *timeData {
	return &timeData{
		plainData: plainData{
			nTrials: 6,
			dimord:  []string{"time", "channel"},
			lens:    map[string]int{"time": 30, "channel": 10},
			labels:  map[string][]string{"channel": labels("channel", 10)},
		},
		trialLen: 5,
		t0:       1,
		sr:       2,
	}
}

func spectral() *specData {
	d := &specData{timeData: *analog(), freqs: []float64{0, 0.5, 1, 1.5, 2, 2.5, 3}}
	d.dimord = []string{"time", "taper", "freq", "channel"}
	d.lens = map[string]int{"time": 30, "taper": 5, "freq": 7, "channel": 10}
	return d
}

func events() *plainData {
	return &plainData{
		nTrials: 6,
		dimord:  []string{"sample", "eventid"},
		lens:    map[string]int{"sample": 6, "eventid": 2},
	}
}

func TestGeneral(t *testing.T) {
	_, err := New(nil, nil)
	assert.True(t, util.IsType(err))
	_, err = New(&plainData{}, nil)
	assert.True(t, util.IsValue(err))

	_, err = New(analog(), map[string]interface{}{"wrongkey": []int{1}})
	assert.True(t, util.IsValue(err))

	s, err := New(analog(), nil)
	require.Nil(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, s.Trials())
	assert.True(t, s.Channel().IsAll())
	assert.True(t, s.IsIdentity(6))
	_, ok := s.Axis("taper")
	assert.False(t, ok)
}

func TestTrials(t *testing.T) {
	s, err := New(analog(), map[string]interface{}{"trials": []int{3, 1}})
	require.Nil(t, err)
	assert.Equal(t, []int{3, 1}, s.Trials())
	assert.False(t, s.IsIdentity(6))

	s, err = New(analog(), map[string]interface{}{"trials": Range{Start: 1, Stop: 4}})
	require.Nil(t, err)
	assert.Equal(t, []int{1, 2, 3}, s.Trials())

	s, err = New(analog(), map[string]interface{}{"trials": []interface{}{0, 1, 2, 3}})
	require.Nil(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, s.Trials())

	for _, v := range []interface{}{[]int{-1, 9}, []int{6}, []int{}, Range{Start: 0, Stop: 7}} {
		_, err = New(analog(), map[string]interface{}{"trials": v})
		assert.True(t, util.IsValue(err), "%v", v)
	}
	_, err = New(analog(), map[string]interface{}{"trials": "all"})
	assert.True(t, util.IsType(err))
}

func TestChannelValid(t *testing.T) {
	cases := []struct {
		in  interface{}
		exp Selection
	}{
		{[]string{"channel3", "channel1"}, ListOf(2, 0)},
		{[]interface{}{"channel3", "channel1", "channel3"}, ListOf(2, 0, 2)},
		{[]int{4, 2, 5}, ListOf(4, 2, 5)},
		{Range{0, 3, 0}, SliceOf(0, 3, 1)},
		{Range{5, 8, 1}, SliceOf(5, 8, 1)},
		{ndarray.Full(), SliceOf(0, 10, 1)},
		{ndarray.Range(0, 5), SliceOf(0, 5, 1)},
		{ndarray.From(7), SliceOf(7, 10, 1)},
		{ndarray.Range(2, 8), SliceOf(2, 8, 1)},
		{ndarray.RangeStep(0, 10, 2), SliceOf(0, 10, 2)},
		{ndarray.From(-2), SliceOf(8, 10, 1)},
		{[]int{0, 1, 2, 3}, SliceOf(0, 4, 1)},
		{[]int{2, 3, 5}, ListOf(2, 3, 5)},
		{[]int{1, 3, 5}, SliceOf(1, 6, 2)},
		{[]int{1, 0}, ListOf(1, 0)},
		{[]int{6}, SliceOf(6, 7, 1)},
		{nil, All()},
	}
	for _, c := range cases {
		s, err := New(analog(), map[string]interface{}{"channels": c.in})
		require.Nil(t, err, "%v", c.in)
		assert.True(t, c.exp.Equal(s.Channel()), "%v: expected %s, got %s", c.in, c.exp, s.Channel())
	}
}

func TestChannelInvalid(t *testing.T) {
	values := []interface{}{
		[]string{"channel200", "channel400"},
		[]string{"invalid"},
		Range{0, 100, 1},
		ndarray.From(80),
		ndarray.From(-20),
		ndarray.Range(-15, -2),
		ndarray.Range(5, 1),
		ndarray.RangeStep(0, 5, -1),
		[]int{40, 60, 80},
		[]int{-1},
	}
	for _, v := range values {
		_, err := New(analog(), map[string]interface{}{"channels": v})
		assert.True(t, util.IsValue(err), "%v", v)
	}
	for _, v := range []interface{}{"wrongtype", 3, []float64{1, 2}, []interface{}{"channel1", 2}} {
		_, err := New(analog(), map[string]interface{}{"channels": v})
		assert.True(t, util.IsType(err), "%v", v)
	}
}

func TestMissingAxis(t *testing.T) {
	for _, k := range []string{"tapers", "units", "eventids"} {
		_, err := New(analog(), map[string]interface{}{k: []int{0}})
		assert.True(t, util.IsValue(err), k)
	}
	_, err := New(events(), map[string]interface{}{"toi": []float64{0}})
	assert.True(t, util.IsValue(err))
	_, err = New(events(), map[string]interface{}{"toilim": []float64{0, 1}})
	assert.True(t, util.IsValue(err))
	_, err = New(analog(), map[string]interface{}{"foi": []float64{1}})
	assert.True(t, util.IsValue(err))
}

func TestTaperAndEventID(t *testing.T) {
	s, err := New(spectral(), map[string]interface{}{"tapers": ndarray.From(-2), "channels": []int{1, 3, 4}})
	require.Nil(t, err)
	assert.True(t, SliceOf(3, 5, 1).Equal(s.Taper()))
	assert.True(t, ListOf(1, 3, 4).Equal(s.Channel()))

	_, err = New(spectral(), map[string]interface{}{"tapers": []string{"taper_typo"}})
	assert.True(t, util.IsValue(err))

	s, err = New(events(), map[string]interface{}{"eventids": []int{1, 0}})
	require.Nil(t, err)
	assert.True(t, ListOf(1, 0).Equal(s.EventID()))
	s, err = New(events(), map[string]interface{}{"eventids": Range{0, 2, 1}})
	require.Nil(t, err)
	assert.True(t, SliceOf(0, 2, 1).Equal(s.EventID()))
	_, err = New(events(), map[string]interface{}{"eventids": []string{"eventid", "eventid"}})
	assert.True(t, util.IsValue(err))
}

func TestToi(t *testing.T) {
	// trial times are 0.5, 1, 1.5, 2, 2.5
	s, err := New(analog(), map[string]interface{}{"trials": []int{0, 2}, "toi": []float64{1.5, 1}})
	require.Nil(t, err)
	require.Len(t, s.Time(), 2)
	assert.True(t, ListOf(2, 1).Equal(s.Time()[0]))

	s, err = New(analog(), map[string]interface{}{"toi": []float64{1.5, 2, 2.5}})
	require.Nil(t, err)
	assert.True(t, SliceOf(2, 5, 1).Equal(s.Time()[5]))

	s, err = New(analog(), map[string]interface{}{"toi": []float64{2.5, 0.5, 1.2}})
	require.Nil(t, err)
	assert.True(t, ListOf(4, 0, 1).Equal(s.Time()[0]))

	s, err = New(analog(), map[string]interface{}{"toi": ndarray.Full()})
	require.Nil(t, err)
	assert.True(t, s.Time()[0].IsAll())

	s, err = New(analog(), map[string]interface{}{"toi": ndarray.Range(1, 2)})
	require.Nil(t, err)
	assert.True(t, SliceOf(1, 4, 1).Equal(s.Time()[0]))
}

func TestToiInvalid(t *testing.T) {
	values := []interface{}{
		[]string{"notnumeric", "stillnotnumeric"},
		Range{0, 100, 1},
		ndarray.From(80),
		ndarray.From(-40),
		ndarray.Range(-40, -2),
		ndarray.Range(5, 1),
		[]int{40, 60, 80},
		[]float64{},
	}
	for _, v := range values {
		_, err := New(analog(), map[string]interface{}{"toi": v})
		assert.True(t, util.IsValue(err), "%v", v)
	}
	_, err := New(analog(), map[string]interface{}{"toi": "wrongtype"})
	assert.True(t, util.IsType(err))
	_, err = New(analog(), map[string]interface{}{"toi": []float64{1}, "toilim": []float64{0, 1}})
	assert.True(t, util.IsValue(err))
}

func TestToilim(t *testing.T) {
	s, err := New(analog(), map[string]interface{}{"toilim": []float64{0.9, 2.1}})
	require.Nil(t, err)
	assert.True(t, SliceOf(1, 4, 1).Equal(s.Time()[3]))

	s, err = New(analog(), map[string]interface{}{"toilim": [2]float64{-10, 10}})
	require.Nil(t, err)
	assert.True(t, SliceOf(0, 5, 1).Equal(s.Time()[0]))

	for _, v := range []interface{}{[]float64{0}, []float64{2, 1}, []float64{10, 20}, []interface{}{"a", "b"}} {
		_, err = New(analog(), map[string]interface{}{"toilim": v})
		assert.NotNil(t, err, "%v", v)
		assert.False(t, util.IsIO(err))
	}
	_, err = New(analog(), map[string]interface{}{"toilim": []float64{0}})
	assert.True(t, util.IsValue(err))
	_, err = New(analog(), map[string]interface{}{"toilim": "wrongtype"})
	assert.True(t, util.IsType(err))
}

func TestFoi(t *testing.T) {
	s, err := New(spectral(), map[string]interface{}{"foi": []float64{1, 1.4, 2.1}})
	require.Nil(t, err)
	assert.True(t, SliceOf(2, 5, 1).Equal(s.Freq()))

	s, err = New(spectral(), map[string]interface{}{"foilim": []float64{0.7, 2.5}})
	require.Nil(t, err)
	assert.True(t, SliceOf(2, 6, 1).Equal(s.Freq()))
	assert.False(t, s.IsIdentity(6))

	_, err = New(spectral(), map[string]interface{}{"foi": []float64{10}})
	assert.True(t, util.IsValue(err))
	_, err = New(spectral(), map[string]interface{}{"foi": "x"})
	assert.True(t, util.IsType(err))
}

func TestSelectionIndices(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2}, All().Indices(3))
	assert.Equal(t, []int{1, 3}, SliceOf(1, 5, 2).Indices(10))
	assert.Equal(t, []int{4, 0}, ListOf(4, 0).Indices(10))
	assert.Equal(t, 2, SliceOf(1, 5, 2).Len(10))
	assert.Equal(t, "slice(8, 10, 1)", SliceOf(8, 10, 1).String())
	assert.Equal(t, "[2, 3, 5]", ListOf(2, 3, 5).String())
	assert.Equal(t, "None", All().String())
	assert.False(t, SliceOf(0, 3, 1).Equal(ListOf(0, 1, 2)))
}
