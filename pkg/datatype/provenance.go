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
	"github.com/mohae/deepcopy"
)

// Provenance is the ordered list of configurations applied to a data
// object, oldest first
type Provenance []map[string]interface{}

// Append adds a deep copy of cfg
func (p Provenance) Append(cfg map[string]interface{}) Provenance {
	return append(p, deepcopy.Copy(cfg).(map[string]interface{}))
}

// Last returns the most recent configuration or nil
func (p Provenance) Last() map[string]interface{} {
	if len(p) == 0 {
		return nil
	}
	return p[len(p)-1]
}

// Nested returns the configurations as one map where every configuration
// keeps the next one under the "cfg" key.
func (p Provenance) Nested() map[string]interface{} {
	var res map[string]interface{}
	for i := len(p) - 1; i >= 0; i-- {
		m := deepcopy.Copy(p[i]).(map[string]interface{})
		if res != nil {
			m["cfg"] = res
		}
		res = m
	}
	if res == nil {
		res = map[string]interface{}{}
	}
	return res
}

func (p Provenance) clone() Provenance {
	if p == nil {
		return nil
	}
	return deepcopy.Copy(p).(Provenance)
}
