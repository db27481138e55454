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
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/spykewave/spykewave/pkg/ndarray"
)

type (
	// Header describes the array stored in a .npy file
	Header struct {
		DType        ndarray.DType
		Shape        []int
		FortranOrder bool

		// DataOffset is the byte offset of the array data in the file. It is
		// filled by ReadHeader and WriteHeader.
		DataOffset int64
	}
)

const (
	npyMagic     = "\x93NUMPY"
	npyAlignment = 64
)

var (
	ErrNotNpy = fmt.Errorf("not a .npy file, magic string mismatch")

	reDescr   = regexp.MustCompile(`'descr'\s*:\s*'([^']*)'`)
	reFortran = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	reShape   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

// DataSize returns the number of bytes the array data occupies
func (h Header) DataSize() int64 {
	n := int64(h.DType.Size())
	for _, d := range h.Shape {
		n *= int64(d)
	}
	return n
}

func (h Header) String() string {
	return fmt.Sprintf("{descr: %s, shape: %v, fortran: %t, offset: %d}", h.DType, h.Shape, h.FortranOrder, h.DataOffset)
}

// ReadHeader reads and parses the .npy preamble from r. Only format versions
// 1.0 and 2.0 and little-endian numeric types are supported.
func ReadHeader(r io.Reader) (Header, error) {
	var h Header
	pre := make([]byte, 8)
	if _, err := io.ReadFull(r, pre); err != nil {
		return h, err
	}
	if string(pre[:6]) != npyMagic {
		return h, ErrNotNpy
	}

	var hlen int
	major := pre[6]
	switch major {
	case 1:
		b := make([]byte, 2)
		if _, err := io.ReadFull(r, b); err != nil {
			return h, err
		}
		hlen = int(binary.LittleEndian.Uint16(b))
		h.DataOffset = 10
	case 2:
		b := make([]byte, 4)
		if _, err := io.ReadFull(r, b); err != nil {
			return h, err
		}
		hlen = int(binary.LittleEndian.Uint32(b))
		h.DataOffset = 12
	default:
		return h, fmt.Errorf("unsupported .npy format version %d.%d", major, pre[7])
	}

	hdr := make([]byte, hlen)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return h, err
	}
	h.DataOffset += int64(hlen)
	err := parseDict(string(hdr), &h)
	return h, err
}

func parseDict(s string, h *Header) error {
	m := reDescr.FindStringSubmatch(s)
	if m == nil {
		return fmt.Errorf("no 'descr' in .npy header %q", s)
	}
	dt, err := ndarray.ParseDType(m[1])
	if err != nil {
		return err
	}
	h.DType = dt

	m = reFortran.FindStringSubmatch(s)
	if m == nil {
		return fmt.Errorf("no 'fortran_order' in .npy header %q", s)
	}
	h.FortranOrder = m[1] == "True"
	if h.FortranOrder {
		return fmt.Errorf("fortran ordered arrays are not supported")
	}

	m = reShape.FindStringSubmatch(s)
	if m == nil {
		return fmt.Errorf("no 'shape' in .npy header %q", s)
	}
	h.Shape = h.Shape[:0]
	for _, f := range strings.Split(m[1], ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		d, err := strconv.Atoi(f)
		if err != nil || d < 0 {
			return fmt.Errorf("bad dimension %q in .npy header", f)
		}
		h.Shape = append(h.Shape, d)
	}
	return nil
}

// WriteHeader writes the .npy preamble for h. Version 1.0 is used unless the
// header does not fit into it. The total preamble length is a multiple of 64.
func WriteHeader(w io.Writer, h *Header) error {
	dims := make([]string, len(h.Shape))
	for i, d := range h.Shape {
		dims[i] = strconv.Itoa(d)
	}
	shape := strings.Join(dims, ", ")
	if len(dims) == 1 {
		shape += ","
	}
	dict := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': (%s), }", h.DType.Descr(), shape)

	var buf bytes.Buffer
	buf.WriteString(npyMagic)
	pre := 10
	if len(dict)+1+pre > 65535 {
		pre = 12
	}
	total := pre + len(dict) + 1
	pad := (npyAlignment - total%npyAlignment) % npyAlignment
	hlen := len(dict) + pad + 1
	if pre == 10 {
		buf.Write([]byte{1, 0})
		binary.Write(&buf, binary.LittleEndian, uint16(hlen))
	} else {
		buf.Write([]byte{2, 0})
		binary.Write(&buf, binary.LittleEndian, uint32(hlen))
	}
	buf.WriteString(dict)
	buf.WriteString(strings.Repeat(" ", pad))
	buf.WriteByte('\n')

	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}
	h.DataOffset = int64(buf.Len())
	return nil
}
