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


// Package spyio reads data objects from and writes them to files. Sources
// are .npy files, .spw HDF5 containers, zstd or lz4 compressed .npy files
// and lists of raw chunk files.
package spyio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jrivets/log4g"
	"github.com/klauspost/compress/zstd"
	"github.com/mitchellh/mapstructure"
	"github.com/pierrec/lz4/v4"
	"github.com/robert-malhotra/go-hdf5/hdf5"
	"github.com/spykewave/spykewave/pkg/datatype"
	"github.com/spykewave/spykewave/pkg/memmap"
	"github.com/spykewave/spykewave/pkg/ndarray"
	"github.com/spykewave/spykewave/pkg/util"
	"github.com/spykewave/spykewave/pkg/virtual"
)

type (
	// Loader reads files into data objects. It implements datatype.Loader
	Loader struct {
		logger log4g.Logger
	}

	// RawLoader reads raw chunk files. The source is the list of the files
	// joined with os.PathListSeparator, one header per file.
	RawLoader struct {
		Headers []virtual.ChunkHeader
	}

	// loadOptions are the keyword arguments of the loaders
	loadOptions struct {
		TrialDefinition [][]float64 `mapstructure:"trialdefinition"`
		Samplerate      float64     `mapstructure:"samplerate"`
		Channel         []string    `mapstructure:"channel"`
		Mode            string      `mapstructure:"mode"`
		Dimord          []string    `mapstructure:"dimord"`
	}

	freqSetter interface {
		SetFreqs(freqs []float64) error
	}
)

const (
	ExtNpy  = ".npy"
	ExtSpw  = ".spw"
	ExtZstd = ".npy.zst"
	ExtLZ4  = ".npy.lz4"

	dataDataset     = "data"
	trialDataset    = "trialdefinition"
	freqDataset     = "freq"
	labelAttrPrefix = "label_"
)

// NewLoader returns the file loader
func NewLoader() *Loader {
	return &Loader{logger: log4g.GetLogger("spyio.Loader")}
}

// Load fills obj from the src file. The file type is chosen by the file
// extension. Files other than plain .npy are copied into a new .npy file
// in the object storage.
func (l *Loader) Load(obj datatype.Loadable, src string, kwargs map[string]interface{}) error {
	opts, err := decodeOptions(kwargs)
	if err != nil {
		return err
	}
	mode := obj.Mode()
	if opts.Mode != "" {
		if mode, err = memmap.ParseMode(opts.Mode); err != nil {
			return err
		}
		obj.SetMode(mode)
	}
	if !util.FileExists(src) {
		return util.IOError(src, os.ErrNotExist)
	}
	if opts.Dimord != nil {
		if err := obj.SetDimord(opts.Dimord); err != nil {
			return err
		}
	}

	l.logger.Debug("Loading ", src, " in mode ", mode)
	var (
		buf  datatype.Buffer
		meta *containerMeta
	)
	switch {
	case strings.HasSuffix(src, ExtZstd), strings.HasSuffix(src, ExtLZ4):
		buf, err = l.loadCompressed(obj, src, mode)
	case strings.HasSuffix(src, ExtSpw), strings.HasSuffix(src, ".h5"):
		buf, meta, err = l.loadContainer(obj, src, mode, opts.Dimord == nil)
	case strings.HasSuffix(src, ExtNpy):
		var mm *memmap.MemMap
		if mm, err = memmap.Open(src, mode); err == nil {
			buf = &datatype.MemMapBuffer{MM: mm}
		}
	default:
		return util.ValueError("one of .npy, .spw, .h5, .npy.zst or .npy.lz4 files", "filename", src)
	}
	if err != nil {
		return err
	}
	if err := obj.Attach(buf); err != nil {
		if obj.Session().IsManaged(buf.Filename()) {
			closeAndRemove(buf)
		} else {
			buf.Close()
		}
		return err
	}
	if meta != nil {
		if err := meta.apply(obj); err != nil {
			return err
		}
	}
	if err := applyOptions(obj, opts); err != nil {
		return err
	}
	obj.AppendLog(fmt.Sprintf("loaded data from %s", src))
	return nil
}

func (l *Loader) loadCompressed(obj datatype.Loadable, src string, mode memmap.Mode) (datatype.Buffer, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, util.IOError(src, err)
	}
	defer f.Close()

	var r io.Reader
	if strings.HasSuffix(src, ExtZstd) {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, util.IOError(src, err)
		}
		defer dec.Close()
		r = dec
	} else {
		r = lz4.NewReader(f)
	}

	fn := obj.Session().GenFilename("npy")
	out, err := os.Create(fn)
	if err != nil {
		return nil, util.IOError(fn, err)
	}
	n, err := io.Copy(out, r)
	if err2 := out.Close(); err == nil {
		err = err2
	}
	if err != nil {
		os.Remove(fn)
		return nil, util.IOError(src, err)
	}
	l.logger.Debug("Decompressed ", src, " into ", fn, ", ", n, " bytes")
	return openManaged(fn, mode)
}

// containerMeta is what a .spw container keeps besides the data
type containerMeta struct {
	samplerate float64
	labels     map[string][]string
	trl        *ndarray.Array
	freqs      *ndarray.Array
}

// loadContainer copies the data of a .spw container into a new .npy file.
// The dimord is applied to obj when setDimord is true, the rest of the
// stored properties are returned.
func (l *Loader) loadContainer(obj datatype.Loadable, src string, mode memmap.Mode, setDimord bool) (datatype.Buffer, *containerMeta, error) {
	f, err := hdf5.Open(src)
	if err != nil {
		return nil, nil, util.IOError(src, err)
	}
	defer f.Close()

	ds, err := f.OpenDataset(dataDataset)
	if err != nil {
		return nil, nil, util.ValueError("container with data dataset", "filename", src)
	}
	dt, shape, err := readArrayAttrs(ds)
	if err != nil {
		return nil, nil, util.Wrapf(err, "wrong data attributes in %s", src)
	}
	raw, err := ds.ReadUint8()
	if err != nil {
		return nil, nil, util.IOError(src, err)
	}
	arr, err := ndarray.FromBytes(raw, dt, shape...)
	if err != nil {
		return nil, nil, util.Wrapf(err, "data of %s does not match its shape", src)
	}
	if a := ds.Attr("checksum"); a != nil {
		sum, err := a.ReadScalarString()
		if err == nil && sum != arr.Checksum() {
			return nil, nil, util.ValueError("data matching its checksum "+sum, "data", arr.Checksum())
		}
	}

	meta := &containerMeta{labels: make(map[string][]string)}
	dimord := obj.Dimord()
	if a := ds.Attr("dimord"); a != nil && setDimord {
		if dimord, err = a.ReadString(); err != nil {
			return nil, nil, util.IOError(src, err)
		}
		if err := obj.SetDimord(dimord); err != nil {
			return nil, nil, err
		}
	}
	if a := ds.Attr("samplerate"); a != nil {
		if sr, err := a.ReadScalarFloat64(); err == nil {
			meta.samplerate = sr
		}
	}
	for _, axis := range dimord {
		if a := ds.Attr(labelAttrPrefix + axis); a != nil {
			if meta.labels[axis], err = a.ReadString(); err != nil {
				return nil, nil, util.IOError(src, err)
			}
		}
	}
	if meta.trl, err = readFlat(f, trialDataset); err != nil {
		return nil, nil, err
	}
	if meta.freqs, err = readFlat(f, freqDataset); err != nil {
		return nil, nil, err
	}

	fn := obj.Session().GenFilename("npy")
	mm, err := memmap.Create(fn, dt, shape...)
	if err != nil {
		return nil, nil, err
	}
	buf := &datatype.MemMapBuffer{MM: mm}
	if err := mm.Array().Assign(arr); err != nil {
		closeAndRemove(buf)
		return nil, nil, err
	}
	if mode != memmap.ModeWrite {
		if err := mm.Reopen(mode); err != nil {
			closeAndRemove(buf)
			return nil, nil, err
		}
	}
	return buf, meta, nil
}

func (cm *containerMeta) apply(obj datatype.Loadable) error {
	if cm.samplerate > 0 {
		if err := obj.SetSamplerate(cm.samplerate); err != nil {
			return err
		}
	}
	for _, axis := range obj.Dimord() {
		if lbs, ok := cm.labels[axis]; ok {
			if err := obj.SetLabels(axis, lbs); err != nil {
				return err
			}
		}
	}
	if cm.trl != nil {
		if err := obj.DefineTrial(cm.trl); err != nil {
			return err
		}
	}
	if fs, ok := obj.(freqSetter); ok && cm.freqs != nil {
		return fs.SetFreqs(cm.freqs.Float64s())
	}
	return nil
}

// readFlat reads a float64 dataset stored flat with its shape attribute, it
// returns nil if there is no such dataset.
func readFlat(f *hdf5.File, name string) (*ndarray.Array, error) {
	ds, err := f.OpenDataset(name)
	if err != nil {
		return nil, nil
	}
	vals, err := ds.ReadFloat64()
	if err != nil {
		return nil, util.IOError(f.Path(), err)
	}
	shape := []int{len(vals)}
	if a := ds.Attr("shape"); a != nil {
		s, err := a.ReadInt64()
		if err != nil {
			return nil, util.IOError(f.Path(), err)
		}
		shape = toInts(s)
	}
	if len(vals) == 0 {
		return ndarray.New(ndarray.Float64, shape...), nil
	}
	return ndarray.FromFloat64(vals, shape...), nil
}

func readArrayAttrs(ds *hdf5.Dataset) (ndarray.DType, []int, error) {
	a := ds.Attr("dtype")
	if a == nil {
		return ndarray.Invalid, nil, util.ValueError("dtype attribute", "data", "none")
	}
	descr, err := a.ReadScalarString()
	if err != nil {
		return ndarray.Invalid, nil, err
	}
	dt, err := ndarray.ParseDType(descr)
	if err != nil {
		return ndarray.Invalid, nil, err
	}
	if a = ds.Attr("shape"); a == nil {
		return ndarray.Invalid, nil, util.ValueError("shape attribute", "data", "none")
	}
	s, err := a.ReadInt64()
	if err != nil {
		return ndarray.Invalid, nil, err
	}
	return dt, toInts(s), nil
}

// Load fills obj with a virtual array over the raw chunk files listed in
// src
func (rl RawLoader) Load(obj datatype.Loadable, src string, kwargs map[string]interface{}) error {
	opts, err := decodeOptions(kwargs)
	if err != nil {
		return err
	}
	files := filepath.SplitList(src)
	if len(files) != len(rl.Headers) {
		return util.ValueError(fmt.Sprintf("%d headers", len(files)), "headers", fmt.Sprint(len(rl.Headers)))
	}
	if opts.Dimord != nil {
		if err := obj.SetDimord(opts.Dimord); err != nil {
			return err
		}
	}
	va, err := virtual.OpenChunks(files, rl.Headers)
	if err != nil {
		return err
	}
	if err := obj.Attach(&datatype.VirtualBuffer{VA: va, Files: files, Headers: rl.Headers}); err != nil {
		va.Close()
		return err
	}
	obj.SetHeader(files, rl.Headers)
	if err := applyOptions(obj, opts); err != nil {
		return err
	}
	obj.AppendLog(fmt.Sprintf("loaded %d raw chunks", len(files)))
	return nil
}

func decodeOptions(kwargs map[string]interface{}) (loadOptions, error) {
	var opts loadOptions
	if len(kwargs) == 0 {
		return opts, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           &opts,
	})
	if err != nil {
		return opts, err
	}
	if err := dec.Decode(kwargs); err != nil {
		return opts, util.ValueError("trialdefinition, samplerate, channel, mode, dimord", "kwargs", err.Error())
	}
	return opts, nil
}

func applyOptions(obj datatype.Loadable, opts loadOptions) error {
	if opts.Samplerate != 0 {
		if err := obj.SetSamplerate(opts.Samplerate); err != nil {
			return err
		}
	}
	if opts.TrialDefinition != nil {
		rows := opts.TrialDefinition
		cols := 0
		if len(rows) > 0 {
			cols = len(rows[0])
		}
		flat := make([]float64, 0, len(rows)*cols)
		for _, r := range rows {
			if len(r) != cols {
				return util.ValueError("rows of equal length", "trialdefinition", fmt.Sprint(rows))
			}
			flat = append(flat, r...)
		}
		if err := obj.DefineTrial(ndarray.FromFloat64(flat, len(rows), cols)); err != nil {
			return err
		}
	}
	if opts.Channel != nil {
		return obj.SetLabels("channel", opts.Channel)
	}
	return nil
}

func openManaged(fn string, mode memmap.Mode) (datatype.Buffer, error) {
	if mode == memmap.ModeWrite {
		mode = memmap.ModeReadWrite
	}
	mm, err := memmap.Open(fn, mode)
	if err != nil {
		os.Remove(fn)
		return nil, err
	}
	return &datatype.MemMapBuffer{MM: mm}, nil
}

func closeAndRemove(buf datatype.Buffer) {
	fn := buf.Filename()
	buf.Close()
	os.Remove(fn)
}

func toInts(v []int64) []int {
	res := make([]int, len(v))
	for i, x := range v {
		res[i] = int(x)
	}
	return res
}
