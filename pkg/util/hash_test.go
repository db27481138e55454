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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandomDigest(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 5000; i++ {
		d := RandomDigest(4)
		assert.Len(t, d, 8)
		seen[d] = true
	}
	// 5000 draws out of 2^32 practically never collide
	assert.True(t, len(seen) >= 4998)

	assert.Len(t, RandomDigest(2), 4)
}
