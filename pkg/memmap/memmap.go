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
	"fmt"
	"os"

	"github.com/jrivets/log4g"
	"github.com/pkg/errors"
	"github.com/spykewave/spykewave/pkg/ndarray"
	"github.com/spykewave/spykewave/pkg/util"
	"golang.org/x/sys/unix"
)

type (
	// Mode is a numpy-like memmap access mode
	Mode string

	// MemMap is an array backed by a memory-mapped file region. Array views
	// may be read concurrently, but Reopen and Close must not run while
	// anybody reads the array.
	MemMap struct {
		path   string
		mode   Mode
		offset int64
		dtype  ndarray.DType
		shape  []int
		npy    bool

		region []byte // the whole mapped region, page aligned
		arr    *ndarray.Array
		logger log4g.Logger
	}
)

const (
	// ModeRead maps the file read-only
	ModeRead Mode = "r"
	// ModeReadWrite maps an existing file for reading and writing
	ModeReadWrite Mode = "r+"
	// ModeWrite creates or overwrites the file, then maps it for reading and writing
	ModeWrite Mode = "w+"
	// ModeCopyOnWrite maps the file privately: writes never reach the disk
	ModeCopyOnWrite Mode = "c"
)

// ParseMode checks that s is one of the known modes
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeRead, ModeReadWrite, ModeWrite, ModeCopyOnWrite:
		return m, nil
	}
	return "", util.ValueError("one of 'r', 'r+', 'w+' or 'c'", "mode", s)
}

// Writable returns whether the mapping can be modified
func (m Mode) Writable() bool {
	return m != ModeRead
}

// Open maps an existing .npy file. ModeWrite is not allowed here, use Create.
func Open(path string, mode Mode) (*MemMap, error) {
	if mode == ModeWrite {
		return nil, util.ValueError("'r', 'r+' or 'c' for an existing file", "mode", string(mode))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, util.IOError(path, err)
	}
	hdr, err := ReadHeader(f)
	f.Close()
	if err != nil {
		return nil, errors.Wrapf(err, "could not read .npy header of %s", path)
	}
	mm := newMemMap(path, mode, hdr.DataOffset, hdr.DType, hdr.Shape)
	mm.npy = true
	return mm, mm.mmap()
}

// OpenRaw maps a headerless binary file holding a C-ordered array of dtype
// and shape, which starts at offset bytes into the file.
func OpenRaw(path string, mode Mode, offset int64, dtype ndarray.DType, shape ...int) (*MemMap, error) {
	if mode == ModeWrite {
		return nil, util.ValueError("'r', 'r+' or 'c' for an existing file", "mode", string(mode))
	}
	if offset < 0 {
		return nil, util.ValueError("non-negative byte offset", "offset", fmt.Sprint(offset))
	}
	mm := newMemMap(path, mode, offset, dtype, shape)
	return mm, mm.mmap()
}

// Create makes a new zero-filled .npy file and maps it in ModeWrite. An
// existing file is overwritten.
func Create(path string, dtype ndarray.DType, shape ...int) (*MemMap, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0640)
	if err != nil {
		return nil, util.IOError(path, err)
	}
	hdr := Header{DType: dtype, Shape: shape}
	err = WriteHeader(f, &hdr)
	if err == nil {
		err = f.Truncate(hdr.DataOffset + hdr.DataSize())
	}
	f.Close()
	if err != nil {
		os.Remove(path)
		return nil, util.IOError(path, err)
	}
	mm := newMemMap(path, ModeWrite, hdr.DataOffset, dtype, shape)
	mm.npy = true
	return mm, mm.mmap()
}

func newMemMap(path string, mode Mode, offset int64, dtype ndarray.DType, shape []int) *MemMap {
	mm := new(MemMap)
	mm.path = path
	mm.mode = mode
	mm.offset = offset
	mm.dtype = dtype
	mm.shape = append([]int(nil), shape...)
	mm.logger = log4g.GetLogger("memmap").WithId("{" + path + "}").(log4g.Logger)
	return mm
}

func (mm *MemMap) mmap() error {
	size := int64(mm.dtype.Size())
	for _, d := range mm.shape {
		size *= int64(d)
	}

	flags := unix.O_RDONLY
	prot := unix.PROT_READ
	share := unix.MAP_SHARED
	switch mm.mode {
	case ModeReadWrite, ModeWrite:
		flags = unix.O_RDWR
		prot |= unix.PROT_WRITE
	case ModeCopyOnWrite:
		prot |= unix.PROT_WRITE
		share = unix.MAP_PRIVATE
	}

	fd, err := unix.Open(mm.path, flags|unix.O_CLOEXEC, 0)
	if err != nil {
		return util.IOError(mm.path, err)
	}
	defer unix.Close(fd)

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return util.IOError(mm.path, err)
	}
	if st.Size < mm.offset+size {
		return util.ValueError(fmt.Sprintf("file of at least %d bytes", mm.offset+size), "file size", fmt.Sprint(st.Size))
	}

	var data []byte
	if size > 0 {
		pg := int64(os.Getpagesize())
		aligned := mm.offset - mm.offset%pg
		region, err := unix.Mmap(fd, aligned, int(mm.offset-aligned+size), prot, share)
		if err != nil {
			return util.IOError(mm.path, errors.Wrapf(err, "mmap of %d bytes at %d", size, mm.offset))
		}
		mm.region = region
		data = region[mm.offset-aligned:]
	}

	arr, err := ndarray.FromBytes(data, mm.dtype, mm.shape...)
	if err != nil {
		mm.unmap()
		return err
	}
	mm.arr = arr
	mm.logger.Debug("Mapped ", size, " bytes in mode ", mm.mode)
	return nil
}

func (mm *MemMap) unmap() error {
	mm.arr = nil
	if mm.region == nil {
		return nil
	}
	err := unix.Munmap(mm.region)
	mm.region = nil
	return err
}

// Array returns the mapped array, or nil if the map is closed
func (mm *MemMap) Array() *ndarray.Array {
	return mm.arr
}

// Filename returns the mapped file path
func (mm *MemMap) Filename() string {
	return mm.path
}

// Mode returns the access mode
func (mm *MemMap) Mode() Mode {
	return mm.mode
}

// Offset returns the byte offset of the array data in the file
func (mm *MemMap) Offset() int64 {
	return mm.offset
}

// DType returns the element type
func (mm *MemMap) DType() ndarray.DType {
	return mm.dtype
}

// Shape returns the array dimensions
func (mm *MemMap) Shape() []int {
	return append([]int(nil), mm.shape...)
}

// IsNpy returns whether the file has a .npy header
func (mm *MemMap) IsNpy() bool {
	return mm.npy
}

// Flush writes dirty pages of a shared writable mapping to the file
func (mm *MemMap) Flush() error {
	if mm.arr == nil {
		return util.ErrWrongState
	}
	if mm.region == nil || (mm.mode != ModeReadWrite && mm.mode != ModeWrite) {
		return nil
	}
	if err := unix.Msync(mm.region, unix.MS_SYNC); err != nil {
		return util.IOError(mm.path, err)
	}
	return nil
}

// Reopen unmaps the file and maps it again in mode. Resident pages are
// released, unsaved copy-on-write changes are lost. ModeWrite reopens the
// existing file in ModeReadWrite.
func (mm *MemMap) Reopen(mode Mode) error {
	if mm.arr == nil {
		return util.ErrWrongState
	}
	if err := mm.Flush(); err != nil {
		return err
	}
	if err := mm.unmap(); err != nil {
		return util.IOError(mm.path, err)
	}
	if mode == ModeWrite {
		mode = ModeReadWrite
	}
	mm.mode = mode
	mm.logger.Debug("Reopening in mode ", mode)
	return mm.mmap()
}

// Close flushes and unmaps the file. The file itself is left on disk.
func (mm *MemMap) Close() error {
	if mm.arr == nil {
		return util.ErrWrongState
	}
	err := mm.Flush()
	if err2 := mm.unmap(); err == nil && err2 != nil {
		err = util.IOError(mm.path, err2)
	}
	return err
}

func (mm *MemMap) String() string {
	return fmt.Sprintf("{file: %s, mode: %s, offset: %d, dtype: %s, shape: %v, closed: %t}", mm.path, mm.mode, mm.offset, mm.dtype, mm.shape, mm.arr == nil)
}
