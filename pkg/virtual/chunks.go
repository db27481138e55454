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

package virtual

import (
	"fmt"

	"github.com/spykewave/spykewave/pkg/memmap"
	"github.com/spykewave/spykewave/pkg/ndarray"
	"github.com/spykewave/spykewave/pkg/util"
)

type (
	// ChunkHeader describes a raw chunk file: the array of M rows and N
	// columns starts Length bytes into the file.
	ChunkHeader struct {
		Length int64
		DType  ndarray.DType
		M, N   int
	}
)

// OpenChunks maps the raw chunk files read-only and stacks them into a
// virtual array. Already mapped files are closed if an error happens.
func OpenChunks(files []string, headers []ChunkHeader) (*Array, error) {
	if len(files) != len(headers) {
		return nil, util.ValueError(fmt.Sprintf("%d headers", len(files)), "hdr", fmt.Sprintf("%d headers", len(headers)))
	}
	mms := make([]*memmap.MemMap, 0, len(files))
	closeAll := func() {
		for _, mm := range mms {
			mm.Close()
		}
	}
	for i, fn := range files {
		h := headers[i]
		mm, err := memmap.OpenRaw(fn, memmap.ModeRead, h.Length, h.DType, h.M, h.N)
		if err != nil {
			closeAll()
			return nil, err
		}
		mms = append(mms, mm)
	}
	va, err := New(mms)
	if err != nil {
		closeAll()
		return nil, err
	}
	return va, nil
}

func (ch ChunkHeader) String() string {
	return fmt.Sprintf("{length: %d, dtype: %s, M: %d, N: %d}", ch.Length, ch.DType, ch.M, ch.N)
}
