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
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/robert-malhotra/go-hdf5/hdf5"
	"github.com/spykewave/spykewave/pkg/datatype"
	"github.com/spykewave/spykewave/pkg/memmap"
	"github.com/spykewave/spykewave/pkg/ndarray"
	"github.com/spykewave/spykewave/pkg/util"
)

type (
	// Format is the file format Save writes
	Format int

	// Savable is a data object Save can write
	Savable interface {
		Data() datatype.Buffer
		Dimord() []string
		Labels(axis string) []string
		Samplerate() float64
		TrialDefinition() [][]float64
		Flush() error
	}

	freqGetter interface {
		Freqs() []float64
	}
)

const (
	// FormatSPW is the HDF5 container keeping the data with its properties
	FormatSPW Format = iota
	// FormatNPY is a plain .npy file, only the data is saved
	FormatNPY
	// FormatZstd is a zstd compressed .npy file
	FormatZstd
	// FormatLZ4 is a lz4 compressed .npy file
	FormatLZ4
)

func (f Format) String() string {
	switch f {
	case FormatSPW:
		return "spw"
	case FormatNPY:
		return "npy"
	case FormatZstd:
		return "zst"
	case FormatLZ4:
		return "lz4"
	}
	return fmt.Sprintf("Unknown format=%d", int(f))
}

// Ext returns the file extension of the format
func (f Format) Ext() string {
	switch f {
	case FormatNPY:
		return ExtNpy
	case FormatZstd:
		return ExtZstd
	case FormatLZ4:
		return ExtLZ4
	}
	return ExtSpw
}

// ParseFormat returns the format by its name
func ParseFormat(s string) (Format, error) {
	for _, f := range []Format{FormatSPW, FormatNPY, FormatZstd, FormatLZ4} {
		if f.String() == s {
			return f, nil
		}
	}
	return FormatSPW, util.ValueError("one of spw, npy, zst or lz4", "format", s)
}

// Save writes the obj data to dest. Pending changes of the data are
// flushed first. An existing dest file is overwritten.
func Save(obj Savable, dest string, format Format) error {
	buf := obj.Data()
	if buf == nil {
		return util.ValueError("object with data", "data", "None")
	}
	if err := obj.Flush(); err != nil {
		return err
	}
	arr, err := buf.Index()
	if err != nil {
		return err
	}

	switch format {
	case FormatSPW:
		err = saveContainer(obj, arr, dest)
	case FormatNPY, FormatZstd, FormatLZ4:
		err = saveNpy(arr, dest, format)
	default:
		return util.ValueError("one of spw, npy, zst or lz4", "format", format.String())
	}
	if err != nil {
		os.Remove(dest)
		return err
	}
	return nil
}

func saveNpy(arr *ndarray.Array, dest string, format Format) error {
	f, err := os.Create(dest)
	if err != nil {
		return util.IOError(dest, err)
	}
	defer f.Close()

	var w io.WriteCloser
	switch format {
	case FormatZstd:
		if w, err = zstd.NewWriter(f); err != nil {
			return util.IOError(dest, err)
		}
	case FormatLZ4:
		w = lz4.NewWriter(f)
	}

	if w == nil {
		err = writeNpy(f, arr)
	} else {
		err = writeNpy(w, arr)
		if err2 := w.Close(); err == nil {
			err = err2
		}
	}
	if err != nil {
		return util.IOError(dest, err)
	}
	return f.Close()
}

func writeNpy(w io.Writer, arr *ndarray.Array) error {
	hdr := memmap.Header{DType: arr.DType(), Shape: arr.Shape()}
	if err := memmap.WriteHeader(w, &hdr); err != nil {
		return err
	}
	_, err := w.Write(arr.Bytes())
	return err
}

func saveContainer(obj Savable, arr *ndarray.Array, dest string) error {
	data := arr.Materialize()
	f, err := hdf5.Create(dest)
	if err != nil {
		return util.IOError(dest, err)
	}

	opts := []hdf5.DatasetOption{
		hdf5.WithAttribute("dtype", data.DType().Descr()),
		hdf5.WithAttribute("shape", toInt64s(data.Shape())),
		hdf5.WithAttribute("checksum", data.Checksum()),
		hdf5.WithAttribute("version", datatype.Version),
	}
	dimord := obj.Dimord()
	if len(dimord) > 0 {
		opts = append(opts, hdf5.WithAttribute("dimord", dimord))
	}
	if sr := obj.Samplerate(); sr > 0 {
		opts = append(opts, hdf5.WithAttribute("samplerate", sr))
	}
	for _, axis := range dimord {
		if lbs := obj.Labels(axis); len(lbs) > 0 {
			opts = append(opts, hdf5.WithAttribute(labelAttrPrefix+axis, lbs))
		}
	}

	root := f.Root()
	_, err = root.CreateDataset(dataDataset, data.Bytes(), opts...)
	if err == nil {
		if trl := obj.TrialDefinition(); len(trl) > 0 {
			flat := make([]float64, 0, len(trl)*len(trl[0]))
			for _, r := range trl {
				flat = append(flat, r...)
			}
			_, err = root.CreateDataset(trialDataset, flat,
				hdf5.WithAttribute("shape", []int64{int64(len(trl)), int64(len(trl[0]))}))
		}
	}
	if fg, ok := obj.(freqGetter); ok && err == nil {
		if freqs := fg.Freqs(); len(freqs) > 0 {
			_, err = root.CreateDataset(freqDataset, freqs)
		}
	}
	if err2 := f.Close(); err == nil {
		err = err2
	}
	if err != nil {
		return util.IOError(dest, err)
	}
	return nil
}

func toInt64s(v []int) []int64 {
	res := make([]int64, len(v))
	for i, x := range v {
		res[i] = int64(x)
	}
	return res
}
