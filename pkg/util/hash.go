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
	"crypto/rand"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// RandomDigest returns a hex string of a size-bytes BLAKE2b digest, which
// is keyed and salted by random bytes. Two calls return the same value with
// probability 2^(-8*size).
func RandomDigest(size int) string {
	var key [blake2b.Size]byte
	var salt [2 * blake2b.Size]byte
	Rand(key[:])
	Rand(salt[:])
	h, err := blake2b.New(size, key[:])
	if err != nil {
		panic(err)
	}
	h.Write(salt[:])
	return hex.EncodeToString(h.Sum(nil))
}

// Rand fills bts with cryptographically random bytes
func Rand(bts []byte) {
	if _, err := rand.Read(bts); err != nil {
		panic(err)
	}
}
