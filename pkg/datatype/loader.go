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
	"github.com/spykewave/spykewave/pkg/memmap"
	"github.com/spykewave/spykewave/pkg/ndarray"
	"github.com/spykewave/spykewave/pkg/storage"
	"github.com/spykewave/spykewave/pkg/virtual"
)

type (
	// Loader populates a data object from a source. The spyio package
	// provides the file based one.
	Loader interface {
		Load(obj Loadable, src string, kwargs map[string]interface{}) error
	}

	// Loadable is the part of a data object a Loader fills
	Loadable interface {
		Kind() Kind
		Session() *storage.Session
		Mode() memmap.Mode
		SetMode(m memmap.Mode)
		Dimord() []string
		SetDimord(dimord []string) error
		// Attach makes buf the object data
		Attach(buf Buffer) error
		SetLabels(axis string, labels []string) error
		DefineTrial(trl *ndarray.Array) error
		SetSamplerate(sr float64) error
		// SetHeader records the raw chunks a virtual buffer is made of
		SetHeader(files []string, hdr []virtual.ChunkHeader)
		AppendLog(msg string)
	}
)

// SetHeader records the raw chunk files and headers of the data
func (c *continuous) SetHeader(files []string, hdr []virtual.ChunkHeader) {
	c.files = append([]string(nil), files...)
	c.hdr = append([]virtual.ChunkHeader(nil), hdr...)
}
