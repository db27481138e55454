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

package storage

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/flock"
	"github.com/spykewave/spykewave/pkg/util"
)

// Cleanup removes the session files and the temporary files of sessions
// which are not running anymore. With dryRun nothing is removed. It returns
// the files which are (or would be) removed.
func Cleanup(dir string, dryRun bool) ([]string, error) {
	fis, err := ioutil.ReadDir(dir)
	if err != nil {
		return nil, util.IOError(dir, err)
	}

	sessions := make(map[string]bool) // id -> stale
	for _, fi := range fis {
		name := fi.Name()
		if !strings.HasPrefix(name, sessionPrefix) || !strings.HasSuffix(name, sessionExt) {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(name, sessionPrefix), sessionExt)
		fl := flock.New(filepath.Join(dir, name))
		ok, err := fl.TryLock()
		if err != nil {
			configLog.Warn("Could not check session file ", name, ", err=", err)
			continue
		}
		sessions[id] = ok
		if ok {
			fl.Unlock()
		}
	}

	var res []string
	for _, fi := range fis {
		name := fi.Name()
		id, ok := sessionOf(name)
		if !ok || !sessions[id] {
			continue
		}
		res = append(res, filepath.Join(dir, name))
	}
	sort.Strings(res)
	if dryRun {
		return res, nil
	}

	for _, fn := range res {
		if err := os.Remove(fn); err != nil && !os.IsNotExist(err) {
			return res, util.IOError(fn, err)
		}
	}
	if len(res) > 0 {
		configLog.Info("Removed ", len(res), " stale files from ", dir)
	}
	return res, nil
}

// sessionOf returns the session id of a session file or a temporary file
func sessionOf(name string) (string, bool) {
	if strings.HasPrefix(name, sessionPrefix) && strings.HasSuffix(name, sessionExt) {
		return strings.TrimSuffix(strings.TrimPrefix(name, sessionPrefix), sessionExt), true
	}
	if !strings.HasPrefix(name, tempPrefix) {
		return "", false
	}
	rest := strings.TrimPrefix(name, tempPrefix)
	idx := strings.IndexByte(rest, '_')
	if idx <= 0 {
		return "", false
	}
	return rest[:idx], true
}
