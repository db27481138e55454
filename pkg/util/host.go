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
	"os"
	"os/user"
)

// UserHost returns "user@host" string for the current process. Unknown parts
// are substituted by "unknown".
func UserHost() string {
	un := "unknown"
	if u, err := user.Current(); err == nil {
		un = u.Username
	}
	hn, err := os.Hostname()
	if err != nil {
		hn = "unknown"
	}
	return un + "@" + hn
}
