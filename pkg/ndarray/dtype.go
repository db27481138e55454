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

package ndarray

import (
	"fmt"
	"strings"

	"github.com/spykewave/spykewave/pkg/util"
)

// DType is an element type of an Array. All types are stored little-endian.
type DType int

const (
	Invalid DType = iota
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
	Complex64
	Complex128
)

type dtypeInfo struct {
	kind byte
	size int
	name string
}

var dtypeInfos = map[DType]dtypeInfo{
	Int8:       {'i', 1, "int8"},
	Int16:      {'i', 2, "int16"},
	Int32:      {'i', 4, "int32"},
	Int64:      {'i', 8, "int64"},
	Uint8:      {'u', 1, "uint8"},
	Uint16:     {'u', 2, "uint16"},
	Uint32:     {'u', 4, "uint32"},
	Uint64:     {'u', 8, "uint64"},
	Float32:    {'f', 4, "float32"},
	Float64:    {'f', 8, "float64"},
	Complex64:  {'c', 8, "complex64"},
	Complex128: {'c', 16, "complex128"},
}

// Size returns the element size in bytes, 0 for Invalid
func (dt DType) Size() int {
	return dtypeInfos[dt].size
}

// Kind returns numpy kind character: 'i', 'u', 'f' or 'c'
func (dt DType) Kind() byte {
	return dtypeInfos[dt].kind
}

// Name returns the type name like "float64"
func (dt DType) Name() string {
	if di, ok := dtypeInfos[dt]; ok {
		return di.name
	}
	return "invalid"
}

// Descr returns the numpy array-protocol type string, e.g. "<f8" or "|u1"
func (dt DType) Descr() string {
	di, ok := dtypeInfos[dt]
	if !ok {
		return ""
	}
	order := "<"
	if di.size == 1 {
		order = "|"
	}
	return fmt.Sprintf("%s%c%d", order, di.kind, di.size)
}

func (dt DType) String() string {
	return dt.Descr()
}

// ParseDType accepts numpy type strings ("<f8", "|u1", "i4") and type names
// ("float64"). Big-endian types are not supported.
func ParseDType(s string) (DType, error) {
	s = strings.TrimSpace(s)
	for dt, di := range dtypeInfos {
		if s == di.name {
			return dt, nil
		}
	}
	if len(s) > 0 && (s[0] == '<' || s[0] == '|' || s[0] == '=') {
		s = s[1:]
	} else if len(s) > 0 && s[0] == '>' {
		if s[1:] != "i1" && s[1:] != "u1" {
			return Invalid, util.ValueError("little-endian type", "dtype", s)
		}
		s = s[1:]
	}
	for dt, di := range dtypeInfos {
		if s == fmt.Sprintf("%c%d", di.kind, di.size) {
			return dt, nil
		}
	}
	return Invalid, util.ValueError("numpy type string like '<f8'", "dtype", s)
}

var intBySize = map[int]DType{1: Int8, 2: Int16, 4: Int32, 8: Int64}

// PromoteTypes returns the smallest type both a and b can be safely cast to,
// following numpy promotion rules for the supported types.
func PromoteTypes(a, b DType) DType {
	if a == b {
		return a
	}
	ka, kb := a.Kind(), b.Kind()
	if kindRank(ka) > kindRank(kb) {
		a, b = b, a
		ka, kb = kb, ka
	}
	sa, sb := a.Size(), b.Size()

	switch {
	case ka == kb:
		if sa > sb {
			return a
		}
		return b
	case ka == 'u' && kb == 'i':
		if sb > sa {
			return b
		}
		if t, ok := intBySize[2*sa]; ok {
			return t
		}
		return Float64
	case kb == 'f':
		// a is an integer type here
		if sa <= 2 && sb == 4 {
			return Float32
		}
		return Float64
	case kb == 'c':
		if b == Complex128 {
			return Complex128
		}
		if (ka == 'f' && sa == 4) || ((ka == 'i' || ka == 'u') && sa <= 2) {
			return Complex64
		}
		return Complex128
	}
	return Invalid
}

// PromoteAll folds PromoteTypes over dts. It returns Invalid for an empty list.
func PromoteAll(dts ...DType) DType {
	if len(dts) == 0 {
		return Invalid
	}
	res := dts[0]
	for _, dt := range dts[1:] {
		res = PromoteTypes(res, dt)
	}
	return res
}

func kindRank(k byte) int {
	switch k {
	case 'u':
		return 1
	case 'i':
		return 2
	case 'f':
		return 3
	case 'c':
		return 4
	}
	return 0
}

