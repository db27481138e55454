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


package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFloats(t *testing.T) {
	res, err := parseFloats("10, 20.5,30")
	assert.Nil(t, err)
	assert.Equal(t, []float64{10, 20.5, 30}, res)

	_, err = parseFloats("")
	assert.NotNil(t, err)

	_, err = parseFloats("10,abc")
	assert.NotNil(t, err)
}
