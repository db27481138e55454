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
	"github.com/spykewave/spykewave/pkg/storage"
	"github.com/spykewave/spykewave/pkg/util"
)

// AnalogData keeps continuous multi-channel recordings
type AnalogData struct {
	continuous
}

var analogFields = []string{"cfg", "channel", "data", "dimord", "filename", "mode", "sampleinfo",
	"samplerate", "t0", "time", "trialinfo", "trials", "version"}

// NewAnalogData creates the object in the sess storage. Without data
// options the object is empty, and gets the data later by Attach.
func NewAnalogData(sess *storage.Session, opts ...Option) (*AnalogData, error) {
	if sess == nil {
		return nil, util.TypeError(sess, "sess", "storage session")
	}
	ad := new(AnalogData)
	ad.init(sess, "AnalogData", []string{"time", "channel"})
	if err := ad.populate(ad, newOptions(opts)); err != nil {
		ad.Close()
		return nil, err
	}
	ad.AppendLog("created AnalogData object")
	return ad, nil
}

func (ad *AnalogData) Kind() Kind {
	return ContinuousKind
}

// Copy returns a copy of the object. The shallow copy shares the data, the
// deep one copies the backing file. Objects over raw chunks cannot be
// copied deeply, CopyUnsupported is returned for them.
func (ad *AnalogData) Copy(deep bool) (*AnalogData, CopyResult, error) {
	res := new(AnalogData)
	cr, err := ad.copyTo(&res.continuous, deep)
	if err != nil || cr != CopyDone {
		return nil, cr, err
	}
	return res, cr, nil
}

// SelectData returns a new object with the trials and the kwargs selections
// applied. An empty selection without deep returns a shallow copy.
func (ad *AnalogData) SelectData(trials []int, deep bool, kwargs map[string]interface{}) (*AnalogData, error) {
	if ad.closed {
		return nil, util.ErrWrongState
	}
	sel, err := newSelector(ad, trials, kwargs)
	if err != nil {
		return nil, err
	}
	if !deep && sel.IsIdentity(ad.NumTrials()) {
		res, _, err := ad.Copy(false)
		return res, err
	}
	res := new(AnalogData)
	if err := ad.selectInto(&res.continuous, sel, "AnalogData"); err != nil {
		res.Close()
		return nil, err
	}
	return res, nil
}

func (ad *AnalogData) String() string {
	return describe("AnalogData", analogFields, ad.field)
}
