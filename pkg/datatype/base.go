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
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/jrivets/log4g"
	"github.com/mohae/deepcopy"
	"github.com/spykewave/spykewave/pkg/memmap"
	"github.com/spykewave/spykewave/pkg/storage"
	"github.com/spykewave/spykewave/pkg/util"
)

type (
	// Kind is a data object variant
	Kind int

	// CopyResult tells whether Copy produced a copy
	CopyResult int

	// BaseData keeps what all data objects have: the data buffer and its
	// file, the axes and their labels, the trial definition, provenance and
	// the log. A BaseData must be closed by its owner, the last Close of
	// objects sharing one buffer removes a managed backing file.
	BaseData struct {
		sess     *storage.Session
		back     *backing
		dimord   []string
		labels   map[string][]string
		trialdef [][]float64
		cfg      Provenance
		mode     memmap.Mode
		version  string
		log      *Log
		filename string
		closed   bool
		logger   log4g.Logger
	}
)

const (
	ContinuousKind Kind = iota + 1
	SpectralKind
)

const (
	// CopyDone means the copy is returned
	CopyDone CopyResult = iota
	// CopyUnsupported means the buffer cannot be copied, no copy is returned
	CopyUnsupported
)

func (k Kind) String() string {
	switch k {
	case ContinuousKind:
		return "ContinuousKind"
	case SpectralKind:
		return "SpectralKind"
	}
	return fmt.Sprintf("Unknown kind=%d", int(k))
}

func (cr CopyResult) String() string {
	if cr == CopyDone {
		return "CopyDone"
	}
	return "CopyUnsupported"
}

func (bd *BaseData) init(sess *storage.Session, clname string, dimord []string) {
	bd.sess = sess
	bd.dimord = dimord
	bd.labels = make(map[string][]string)
	bd.mode = memmap.ModeReadWrite
	bd.version = Version
	bd.filename = sess.GenFilename("npy")
	bd.log = newLog(time.Now())
	bd.logger = log4g.GetLogger("datatype").WithId("{" + clname + ":" + bd.filename + "}").(log4g.Logger)
}

// Session returns the storage session the object was created in
func (bd *BaseData) Session() *storage.Session {
	return bd.sess
}

// Data returns the data buffer, or nil if the object has no data
func (bd *BaseData) Data() Buffer {
	if bd.back == nil {
		return nil
	}
	return bd.back.buf
}

// Filename returns the backing file name. Objects without data have a
// generated name in the storage root.
func (bd *BaseData) Filename() string {
	return bd.filename
}

// Mode returns the access mode of the backing file
func (bd *BaseData) Mode() memmap.Mode {
	return bd.mode
}

// SetMode sets the mode used when the backing file is opened
func (bd *BaseData) SetMode(m memmap.Mode) {
	bd.mode = m
}

// Version returns the version the object was created with
func (bd *BaseData) Version() string {
	return bd.version
}

// Dimord returns the axis names in axis order
func (bd *BaseData) Dimord() []string {
	return append([]string{}, bd.dimord...)
}

// SetDimord sets the axis names. With data attached the number of names
// must match the data dimensions.
func (bd *BaseData) SetDimord(dimord []string) error {
	seen := make(map[string]bool, len(dimord))
	for _, d := range dimord {
		if d == "" || seen[d] {
			return util.ValueError("unique non-empty axis names", "dimord", strings.Join(dimord, ", "))
		}
		seen[d] = true
	}
	if buf := bd.Data(); buf != nil && len(buf.Shape()) != len(dimord) {
		return util.ValueError(fmt.Sprintf("%d axis names", len(buf.Shape())), "dimord", strings.Join(dimord, ", "))
	}
	bd.dimord = append([]string{}, dimord...)
	return nil
}

// Labels returns the labels of axis, nil if there are no labels
func (bd *BaseData) Labels(axis string) []string {
	return bd.labels[axis]
}

// SetLabels assigns the axis labels. The axis must exist, and the labels
// number must match the axis length when data is attached.
func (bd *BaseData) SetLabels(axis string, labels []string) error {
	ax := bd.axisIndex(axis)
	if ax < 0 {
		return util.ValueError("existing axis", "axis", axis)
	}
	buf := bd.Data()
	if buf == nil {
		bd.logger.Warn("Cannot assign ", axis, " labels without data. Please assign data first")
		return nil
	}
	if n := buf.Shape()[ax]; n != len(labels) {
		return util.ValueError(fmt.Sprintf("%d labels", n), axis, fmt.Sprintf("%d labels", len(labels)))
	}
	bd.labels[axis] = append([]string{}, labels...)
	return nil
}

// Cfg returns the configurations applied to the object
func (bd *BaseData) Cfg() Provenance {
	return bd.cfg
}

// SetCfg appends a copy of cfg to the object provenance
func (bd *BaseData) SetCfg(cfg map[string]interface{}) error {
	if cfg == nil {
		return util.TypeError(cfg, "cfg", "dictionary")
	}
	bd.cfg = bd.cfg.Append(cfg)
	return nil
}

// AppendLog adds msg to the object log, captioned by the calling function
func (bd *BaseData) AppendLog(msg string) {
	caller := ""
	if pc, _, _, ok := runtime.Caller(1); ok {
		if f := runtime.FuncForPC(pc); f != nil {
			caller = f.Name()
			if idx := strings.LastIndex(caller, "/"); idx >= 0 {
				caller = caller[idx+1:]
			}
		}
	}
	bd.log.Append(caller, msg)
}

// Log returns the object log
func (bd *BaseData) Log() *Log {
	return bd.log
}

// LogString returns the log header followed by all entries
func (bd *BaseData) LogString() string {
	return bd.log.String()
}

// GenFilename returns a new temporary file name in the storage root
func (bd *BaseData) GenFilename() string {
	return bd.sess.GenFilename("npy")
}

// Attach makes buf the object data. A previous buffer is released. The
// buffer file is removed with the last owner if it is in the storage root.
func (bd *BaseData) Attach(buf Buffer) error {
	if bd.closed {
		return util.ErrWrongState
	}
	if len(bd.dimord) > 0 && len(buf.Shape()) != len(bd.dimord) {
		return util.ValueError(fmt.Sprintf("%d-dimensional data", len(bd.dimord)), "data", fmt.Sprintf("%v", buf.Shape()))
	}
	if bd.back != nil {
		if err := bd.back.release(); err != nil {
			bd.logger.Warn("Could not release the previous buffer, err=", err)
		}
	}
	fn := buf.Filename()
	bd.back = newBacking(buf, fn != "" && bd.sess.IsManaged(fn))
	if fn != "" {
		bd.filename = fn
	}
	bd.logger.Debug("Attached ", buf.Shape(), " buffer, managed=", bd.back.managed)
	return nil
}

// Flush writes pending changes of the data to the disk
func (bd *BaseData) Flush() error {
	if buf := bd.Data(); buf != nil {
		return buf.Flush()
	}
	return nil
}

// Clear releases memory held by the data buffer. It must not be called
// concurrently with reading the data.
func (bd *BaseData) Clear() error {
	if buf := bd.Data(); buf != nil {
		return buf.Clear()
	}
	return nil
}

// Close releases the data buffer. The backing file is removed when it is
// in the storage root and no other copy uses it. Files outside of the
// storage root are never removed.
func (bd *BaseData) Close() error {
	if bd.closed {
		return util.ErrWrongState
	}
	bd.closed = true
	if bd.back == nil {
		return nil
	}
	err := bd.back.release()
	bd.back = nil
	bd.logger.Debug("Closed")
	return err
}

// IsClosed returns whether Close was called
func (bd *BaseData) IsClosed() bool {
	return bd.closed
}

func (bd *BaseData) axisIndex(axis string) int {
	for i, d := range bd.dimord {
		if d == axis {
			return i
		}
	}
	return -1
}

// shallowCopy returns a copy sharing the buffer
func (bd *BaseData) shallowCopy() BaseData {
	res := *bd
	if bd.back != nil {
		res.back = bd.back.acquire()
	}
	res.dimord = bd.Dimord()
	res.labels = deepcopy.Copy(bd.labels).(map[string][]string)
	res.trialdef = deepcopy.Copy(bd.trialdef).([][]float64)
	res.cfg = bd.cfg.clone()
	res.log = bd.log.clone()
	return res
}
