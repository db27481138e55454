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

package util

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	te := TypeError("abc", "row", "int_like or slice")
	ve := ValueError("value between 0 and 60", "row", "slice(0, 90)")
	ie := IOError("/no/such/dir", fmt.Errorf("permission denied"))

	assert.True(t, IsType(te))
	assert.False(t, IsValue(te))
	assert.True(t, IsValue(ve))
	assert.True(t, IsIO(ie))
	assert.Equal(t, Kind(0), KindOf(fmt.Errorf("plain")))
	assert.Equal(t, Kind(0), KindOf(nil))

	assert.Equal(t, `Wrong type of "row": expected int_like or slice found string`, te.Error())
	assert.Equal(t, `Invalid value of "row": "slice(0, 90)"; expected value between 0 and 60`, ve.Error())
	assert.Equal(t, "Cannot access /no/such/dir: permission denied", ie.Error())
}

func TestErrorKindsWrapped(t *testing.T) {
	ve := ValueError("existing label", "channel", "channel200")
	err := errors.Wrapf(ve, "selecting from %s", "AnalogData")
	assert.True(t, IsValue(err))
	assert.Equal(t, ve, errors.Cause(err))

	err = Wrapf(IOError("/tmp/x", nil), "deep copy")
	assert.True(t, IsIO(err))
	assert.Nil(t, Wrapf(nil, "nothing"))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "TypeError", KindType.String())
	assert.Equal(t, "ValueError", KindValue.String())
	assert.Equal(t, "IOError", KindIO.String())
	assert.Equal(t, "Unknown kind=42", Kind(42).String())
}
