// Copyright 2018 The logrange Authors
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
	"io"
	"os"
	"path/filepath"
	"strings"
)

// IsUnder returns whether file lives directly in the dir. Both paths are
// cleaned and made absolute before the comparison, so "/a/b/../c/f" is
// under "/a/c".
func IsUnder(file, dir string) bool {
	if file == "" || dir == "" {
		return false
	}
	af, err := filepath.Abs(file)
	if err != nil {
		return false
	}
	ad, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	return filepath.Dir(af) == ad
}

// FileExists returns true if the file exists and it is not a directory
func FileExists(file string) bool {
	fi, err := os.Stat(file)
	return err == nil && !fi.IsDir()
}

// SetFileExt changes file extension to ext. ext can be empty, then the result
// will have no extension
func SetFileExt(file, ext string) string {
	if len(ext) > 0 && ext[0] != '.' {
		ext = "." + ext
	}
	e := filepath.Ext(file)
	return file[:len(file)-len(e)] + ext
}

// FullExt returns everything after the first dot of the file base name, so
// for "/a/b.npy.zst" it returns ".npy.zst"
func FullExt(file string) string {
	base := filepath.Base(file)
	if idx := strings.Index(base, "."); idx > 0 {
		return base[idx:]
	}
	return ""
}

// CopyFile copies content of src to the dst, the dst is created or truncated.
func CopyFile(src, dst string) (int64, error) {
	sf, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer sf.Close()

	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0640)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(df, sf)
	if err != nil {
		df.Close()
		return n, err
	}
	if err = df.Sync(); err != nil {
		df.Close()
		return n, err
	}
	return n, df.Close()
}
