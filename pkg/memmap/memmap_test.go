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

package memmap

import (
	"bytes"
	"encoding/binary"
	"io/ioutil"
	"os"
	"path"
	"testing"

	"github.com/spykewave/spykewave/pkg/ndarray"
	"github.com/spykewave/spykewave/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderWriteRead(t *testing.T) {
	var buf bytes.Buffer
	h := Header{DType: ndarray.Float32, Shape: []int{30, 5}}
	require.Nil(t, WriteHeader(&buf, &h))
	assert.Equal(t, int64(0), h.DataOffset%64)
	assert.Equal(t, int64(buf.Len()), h.DataOffset)
	assert.Equal(t, byte('\n'), buf.Bytes()[buf.Len()-1])

	h2, err := ReadHeader(bytes.NewReader(buf.Bytes()))
	require.Nil(t, err)
	assert.Equal(t, ndarray.Float32, h2.DType)
	assert.Equal(t, []int{30, 5}, h2.Shape)
	assert.Equal(t, h.DataOffset, h2.DataOffset)
	assert.Equal(t, int64(600), h2.DataSize())
}

func TestHeader1D(t *testing.T) {
	var buf bytes.Buffer
	h := Header{DType: ndarray.Int64, Shape: []int{7}}
	require.Nil(t, WriteHeader(&buf, &h))
	assert.Contains(t, buf.String(), "'shape': (7,)")

	h2, err := ReadHeader(&buf)
	require.Nil(t, err)
	assert.Equal(t, []int{7}, h2.Shape)
}

func TestHeaderBad(t *testing.T) {
	_, err := ReadHeader(bytes.NewReader([]byte("not a numpy file")))
	assert.Equal(t, ErrNotNpy, err)

	var buf bytes.Buffer
	buf.WriteString(npyMagic)
	buf.Write([]byte{1, 0})
	d := "{'descr': '<f8', 'fortran_order': True, 'shape': (2, 2), }\n"
	binary.Write(&buf, binary.LittleEndian, uint16(len(d)))
	buf.WriteString(d)
	_, err = ReadHeader(&buf)
	assert.NotNil(t, err)
}

func TestCreateFlushOpen(t *testing.T) {
	dir, err := ioutil.TempDir("", "memmapTest")
	require.Nil(t, err)
	defer os.RemoveAll(dir)

	fn := path.Join(dir, "a.npy")
	mm, err := Create(fn, ndarray.Float64, 4, 3)
	require.Nil(t, err)
	assert.Equal(t, ModeWrite, mm.Mode())
	assert.True(t, mm.IsNpy())
	mm.Array().Assign(ndarray.Arange(ndarray.Int32, 0, 4, 3))
	require.Nil(t, mm.Flush())
	require.Nil(t, mm.Close())
	assert.Nil(t, mm.Array())
	assert.Equal(t, util.ErrWrongState, mm.Close())

	ro, err := Open(fn, ModeRead)
	require.Nil(t, err)
	defer ro.Close()
	assert.Equal(t, []int{4, 3}, ro.Shape())
	assert.Equal(t, ndarray.Float64, ro.DType())
	assert.Equal(t, float64(7), ro.Array().Float64At(2, 1))
}

func TestCopyOnWrite(t *testing.T) {
	dir, err := ioutil.TempDir("", "memmapTest")
	require.Nil(t, err)
	defer os.RemoveAll(dir)

	fn := path.Join(dir, "c.npy")
	mm, err := Create(fn, ndarray.Int16, 10, 2)
	require.Nil(t, err)
	mm.Close()

	c, err := Open(fn, ModeCopyOnWrite)
	require.Nil(t, err)
	c.Array().SetFloat64(42, 9, 1)
	assert.Equal(t, float64(42), c.Array().Float64At(9, 1))
	require.Nil(t, c.Flush())

	// unsaved private pages are dropped
	require.Nil(t, c.Reopen(ModeCopyOnWrite))
	assert.Equal(t, float64(0), c.Array().Float64At(9, 1))
	c.Close()

	rw, err := Open(fn, ModeReadWrite)
	require.Nil(t, err)
	rw.Array().SetFloat64(-3, 0, 0)
	require.Nil(t, rw.Reopen(ModeRead))
	assert.Equal(t, ModeRead, rw.Mode())
	assert.Equal(t, float64(-3), rw.Array().Float64At(0, 0))
	rw.Close()
}

func TestOpenRaw(t *testing.T) {
	dir, err := ioutil.TempDir("", "memmapTest")
	require.Nil(t, err)
	defer os.RemoveAll(dir)

	// 5000 bytes of a custom header followed by a 30x5 int32 array
	fn := path.Join(dir, "chunk.dat")
	arr := ndarray.Arange(ndarray.Int32, 100, 30, 5)
	data := append(make([]byte, 5000), arr.Bytes()...)
	require.Nil(t, ioutil.WriteFile(fn, data, 0640))

	mm, err := OpenRaw(fn, ModeRead, 5000, ndarray.Int32, 30, 5)
	require.Nil(t, err)
	defer mm.Close()
	assert.False(t, mm.IsNpy())
	assert.Equal(t, int64(5000), mm.Offset())
	assert.True(t, arr.Equal(mm.Array()))

	_, err = OpenRaw(fn, ModeRead, 5000, ndarray.Int32, 31, 5)
	assert.True(t, util.IsValue(err))

	_, err = OpenRaw(path.Join(dir, "absent"), ModeRead, 0, ndarray.Int32, 1, 1)
	assert.True(t, util.IsIO(err))

	_, err = OpenRaw(fn, ModeWrite, 0, ndarray.Int32, 1, 1)
	assert.True(t, util.IsValue(err))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("r+")
	assert.Nil(t, err)
	assert.Equal(t, ModeReadWrite, m)
	assert.True(t, m.Writable())
	assert.False(t, ModeRead.Writable())
	_, err = ParseMode("rw")
	assert.True(t, util.IsValue(err))
}
