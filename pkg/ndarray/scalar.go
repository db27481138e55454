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
	"encoding/binary"
	"math"
)

// scalar holds one element value in the widest representation of its kind
type scalar struct {
	kind byte
	i    int64
	u    uint64
	f    float64
	c    complex128
}

var le = binary.LittleEndian

func readScalar(dt DType, b []byte) scalar {
	switch dt {
	case Int8:
		return scalar{kind: 'i', i: int64(int8(b[0]))}
	case Int16:
		return scalar{kind: 'i', i: int64(int16(le.Uint16(b)))}
	case Int32:
		return scalar{kind: 'i', i: int64(int32(le.Uint32(b)))}
	case Int64:
		return scalar{kind: 'i', i: int64(le.Uint64(b))}
	case Uint8:
		return scalar{kind: 'u', u: uint64(b[0])}
	case Uint16:
		return scalar{kind: 'u', u: uint64(le.Uint16(b))}
	case Uint32:
		return scalar{kind: 'u', u: uint64(le.Uint32(b))}
	case Uint64:
		return scalar{kind: 'u', u: le.Uint64(b)}
	case Float32:
		return scalar{kind: 'f', f: float64(math.Float32frombits(le.Uint32(b)))}
	case Float64:
		return scalar{kind: 'f', f: math.Float64frombits(le.Uint64(b))}
	case Complex64:
		re := math.Float32frombits(le.Uint32(b))
		im := math.Float32frombits(le.Uint32(b[4:]))
		return scalar{kind: 'c', c: complex(float64(re), float64(im))}
	case Complex128:
		re := math.Float64frombits(le.Uint64(b))
		im := math.Float64frombits(le.Uint64(b[8:]))
		return scalar{kind: 'c', c: complex(re, im)}
	}
	return scalar{}
}

func (s scalar) int64() int64 {
	switch s.kind {
	case 'u':
		return int64(s.u)
	case 'f':
		return int64(s.f)
	case 'c':
		return int64(real(s.c))
	}
	return s.i
}

func (s scalar) uint64() uint64 {
	switch s.kind {
	case 'i':
		return uint64(s.i)
	case 'f':
		return uint64(s.f)
	case 'c':
		return uint64(real(s.c))
	}
	return s.u
}

func (s scalar) float64() float64 {
	switch s.kind {
	case 'i':
		return float64(s.i)
	case 'u':
		return float64(s.u)
	case 'c':
		return real(s.c)
	}
	return s.f
}

func (s scalar) complex128() complex128 {
	if s.kind == 'c' {
		return s.c
	}
	return complex(s.float64(), 0)
}

func writeScalar(dt DType, b []byte, s scalar) {
	switch dt {
	case Int8:
		b[0] = byte(int8(s.int64()))
	case Int16:
		le.PutUint16(b, uint16(int16(s.int64())))
	case Int32:
		le.PutUint32(b, uint32(int32(s.int64())))
	case Int64:
		le.PutUint64(b, uint64(s.int64()))
	case Uint8:
		b[0] = byte(s.uint64())
	case Uint16:
		le.PutUint16(b, uint16(s.uint64()))
	case Uint32:
		le.PutUint32(b, uint32(s.uint64()))
	case Uint64:
		le.PutUint64(b, s.uint64())
	case Float32:
		le.PutUint32(b, math.Float32bits(float32(s.float64())))
	case Float64:
		le.PutUint64(b, math.Float64bits(s.float64()))
	case Complex64:
		c := s.complex128()
		le.PutUint32(b, math.Float32bits(float32(real(c))))
		le.PutUint32(b[4:], math.Float32bits(float32(imag(c))))
	case Complex128:
		c := s.complex128()
		le.PutUint64(b, math.Float64bits(real(c)))
		le.PutUint64(b[8:], math.Float64bits(imag(c)))
	}
}
