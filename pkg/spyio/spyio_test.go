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

package spyio

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spykewave/spykewave/pkg/datatype"
	"github.com/spykewave/spykewave/pkg/ndarray"
	"github.com/spykewave/spykewave/pkg/storage"
	"github.com/spykewave/spykewave/pkg/util"
	"github.com/spykewave/spykewave/pkg/virtual"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEnv(t *testing.T) (*storage.Session, string) {
	dir, err := ioutil.TempDir("", "spyioTest")
	require.Nil(t, err)
	s, err := storage.NewSession(&storage.Config{Dir: filepath.Join(dir, "tmp_storage"), SizeLimitGB: 1})
	require.Nil(t, err)
	return s, dir
}

func newAnalog(t *testing.T, sess *storage.Session) *datatype.AnalogData {
	ad, err := datatype.NewAnalogData(sess,
		datatype.WithData(ndarray.Arange(ndarray.Float32, 0, 10, 3)),
		datatype.WithTrialDefinition(ndarray.FromFloat64([]float64{0, 4, -1, 4, 10, 0}, 2, 3)),
		datatype.WithSamplerate(500),
		datatype.WithChannels([]string{"a", "b", "c"}))
	require.Nil(t, err)
	return ad
}

func data(t *testing.T, b datatype.Buffer) *ndarray.Array {
	arr, err := b.Index()
	require.Nil(t, err)
	return arr
}

func TestParseFormat(t *testing.T) {
	for _, f := range []Format{FormatSPW, FormatNPY, FormatZstd, FormatLZ4} {
		f2, err := ParseFormat(f.String())
		assert.Nil(t, err)
		assert.Equal(t, f, f2)
	}
	_, err := ParseFormat("mat")
	assert.True(t, util.IsValue(err))
	assert.Equal(t, ".npy.zst", FormatZstd.Ext())
	assert.Equal(t, ".spw", FormatSPW.Ext())
}

func TestNpyRoundTrip(t *testing.T) {
	sess, dir := newTestEnv(t)
	defer os.RemoveAll(dir)
	defer sess.Close()
	ad := newAnalog(t, sess)
	defer ad.Close()

	fn := filepath.Join(dir, "data.npy")
	require.Nil(t, Save(ad, fn, FormatNPY))

	ld, err := datatype.NewAnalogData(sess, datatype.WithSource(fn, NewLoader(),
		map[string]interface{}{"samplerate": 1000, "trialdefinition": [][]float64{{0, 5, 0}, {5, 10, 0}}, "mode": "r"}))
	require.Nil(t, err)
	assert.Equal(t, fn, ld.Filename())
	assert.Equal(t, "r", string(ld.Mode()))
	assert.True(t, data(t, ad.Data()).Equal(data(t, ld.Data())))
	assert.Equal(t, 2, ld.NumTrials())
	assert.Equal(t, 1000.0, ld.Samplerate())
	assert.Equal(t, "channel1", ld.Labels("channel")[0])
	assert.True(t, strings.Contains(ld.LogString(), "loaded data from "+fn))

	require.Nil(t, ld.Close())
	assert.True(t, util.FileExists(fn))
}

func TestCompressedRoundTrip(t *testing.T) {
	sess, dir := newTestEnv(t)
	defer os.RemoveAll(dir)
	defer sess.Close()
	ad := newAnalog(t, sess)
	defer ad.Close()

	for _, f := range []Format{FormatZstd, FormatLZ4} {
		fn := filepath.Join(dir, "data"+f.Ext())
		require.Nil(t, Save(ad, fn, f))

		ld, err := datatype.NewAnalogData(sess, datatype.WithSource(fn, NewLoader(), nil))
		require.Nil(t, err)
		assert.True(t, sess.IsManaged(ld.Filename()), f.String())
		assert.True(t, data(t, ad.Data()).Equal(data(t, ld.Data())), f.String())
		assert.Equal(t, 1, ld.NumTrials())

		lfn := ld.Filename()
		require.Nil(t, ld.Close())
		assert.False(t, util.FileExists(lfn))
		assert.True(t, util.FileExists(fn))
	}
}

func TestContainerRoundTrip(t *testing.T) {
	sess, dir := newTestEnv(t)
	defer os.RemoveAll(dir)
	defer sess.Close()
	ad := newAnalog(t, sess)
	defer ad.Close()

	fn := filepath.Join(dir, "data.spw")
	require.Nil(t, Save(ad, fn, FormatSPW))

	ld, err := datatype.NewAnalogData(sess, datatype.WithSource(fn, NewLoader(), nil))
	require.Nil(t, err)
	defer ld.Close()
	assert.True(t, sess.IsManaged(ld.Filename()))
	assert.True(t, data(t, ad.Data()).Equal(data(t, ld.Data())))
	assert.Equal(t, ndarray.Float32, ld.Data().DType())
	assert.Equal(t, []string{"a", "b", "c"}, ld.Labels("channel"))
	assert.Equal(t, 500.0, ld.Samplerate())
	assert.Equal(t, ad.TrialDefinition(), ld.TrialDefinition())
	assert.Equal(t, ad.Dimord(), ld.Dimord())

	sd, err := datatype.NewSpectralData(sess, datatype.WithData(ndarray.Arange(ndarray.Complex64, 0, 2, 1, 3, 2)),
		datatype.WithFreqs([]float64{1, 2, 4}))
	require.Nil(t, err)
	defer sd.Close()
	fn = filepath.Join(dir, "spectrum.spw")
	require.Nil(t, Save(sd, fn, FormatSPW))
	ls, err := datatype.NewSpectralData(sess, datatype.WithSource(fn, NewLoader(), nil))
	require.Nil(t, err)
	defer ls.Close()
	assert.Equal(t, []float64{1, 2, 4}, ls.Freqs())
	assert.Equal(t, ndarray.Complex64, ls.Data().DType())
	assert.True(t, data(t, sd.Data()).Equal(data(t, ls.Data())))
}

func TestRawLoader(t *testing.T) {
	sess, dir := newTestEnv(t)
	defer os.RemoveAll(dir)
	defer sess.Close()

	var files []string
	var hdrs []virtual.ChunkHeader
	for i, rows := range []int{3, 5} {
		arr := ndarray.Arange(ndarray.Int16, 100*i, rows, 2)
		fn := filepath.Join(dir, "chunk"+string(rune('0'+i))+".raw")
		require.Nil(t, ioutil.WriteFile(fn, append(make([]byte, 16), arr.Bytes()...), 0640))
		files = append(files, fn)
		hdrs = append(hdrs, virtual.ChunkHeader{Length: 16, DType: ndarray.Int16, M: rows, N: 2})
	}

	src := strings.Join(files, string(os.PathListSeparator))
	ad, err := datatype.NewAnalogData(sess, datatype.WithSource(src, RawLoader{Headers: hdrs},
		map[string]interface{}{"trialdefinition": [][]float64{{1, 6, 0}}}))
	require.Nil(t, err)
	defer ad.Close()

	assert.Equal(t, []int{8, 2}, ad.Data().Shape())
	assert.Equal(t, hdrs, ad.Header())
	assert.Equal(t, files, ad.ChunkFiles())
	trl, err := ad.CopyTrial(0)
	require.Nil(t, err)
	assert.Equal(t, []int{5, 2}, trl.Shape())
	assert.Equal(t, int64(2), trl.Int64At(0, 0))
	assert.Equal(t, int64(100), trl.Int64At(2, 0))

	_, err = datatype.NewAnalogData(sess, datatype.WithSource(files[0], RawLoader{Headers: hdrs}, nil))
	assert.True(t, util.IsValue(err))

	fn := filepath.Join(dir, "virtual.npy")
	require.Nil(t, Save(ad, fn, FormatNPY))
	ld, err := datatype.NewAnalogData(sess, datatype.WithSource(fn, NewLoader(), nil))
	require.Nil(t, err)
	defer ld.Close()
	assert.True(t, data(t, ad.Data()).Equal(data(t, ld.Data())))
}

func TestLoadErrors(t *testing.T) {
	sess, dir := newTestEnv(t)
	defer os.RemoveAll(dir)
	defer sess.Close()

	_, err := datatype.NewAnalogData(sess, datatype.WithSource(filepath.Join(dir, "nothing.npy"), NewLoader(), nil))
	assert.True(t, util.IsIO(err))

	fn := filepath.Join(dir, "data.mat")
	require.Nil(t, ioutil.WriteFile(fn, []byte("matlab"), 0640))
	_, err = datatype.NewAnalogData(sess, datatype.WithSource(fn, NewLoader(), nil))
	assert.True(t, util.IsValue(err))

	fn = filepath.Join(dir, "data.npy")
	require.Nil(t, ioutil.WriteFile(fn, []byte("not an npy file at all"), 0640))
	_, err = datatype.NewAnalogData(sess, datatype.WithSource(fn, NewLoader(), map[string]interface{}{"unknown": 1}))
	assert.True(t, util.IsValue(err))
	_, err = datatype.NewAnalogData(sess, datatype.WithSource(fn, nil, nil))
	assert.True(t, util.IsType(err))

	ad, err := datatype.NewAnalogData(sess)
	require.Nil(t, err)
	defer ad.Close()
	assert.True(t, util.IsValue(Save(ad, filepath.Join(dir, "empty.npy"), FormatNPY)))
}
