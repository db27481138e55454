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
	"strings"
	"testing"

	rerrors "github.com/logrange/range/pkg/utils/errors"
	"github.com/spykewave/spykewave/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) (*Session, string) {
	dir, err := ioutil.TempDir("", "storageTest")
	require.Nil(t, err)
	s, err := NewSession(&Config{Dir: filepath.Join(dir, "tmp_storage"), SizeLimitGB: 1})
	require.Nil(t, err)
	return s, dir
}

func TestConfigApply(t *testing.T) {
	os.Setenv(EnvStorageDir, "/tmp/spwtest")
	defer os.Unsetenv(EnvStorageDir)

	c := GetDefaultConfig()
	assert.Equal(t, "/tmp/spwtest", c.Dir)
	assert.Equal(t, float64(DefaultSizeLimitGB), c.SizeLimitGB)
	assert.Equal(t, uint64(10*1024*1024*1024), c.SizeLimit())

	c.Apply(&Config{SizeLimitGB: 2, LogConfigFile: "log4g.properties"})
	assert.Equal(t, "/tmp/spwtest", c.Dir)
	assert.Equal(t, float64(2), c.SizeLimitGB)
	assert.Equal(t, "log4g.properties", c.LogConfigFile)
	c.Apply(nil)
}

func TestReadConfigFromFile(t *testing.T) {
	c, err := ReadConfigFromFile("")
	assert.Nil(t, c)
	assert.Nil(t, err)
	c, err = ReadConfigFromFile("/this/file/does/not/exist")
	assert.Nil(t, c)
	assert.Nil(t, err)

	f, err := ioutil.TempFile("", "spwcfg")
	require.Nil(t, err)
	defer os.Remove(f.Name())
	f.WriteString("dir: /data/spw\nsizeLimitGB: 0.5\n")
	f.Close()

	c, err = ReadConfigFromFile(f.Name())
	require.Nil(t, err)
	assert.Equal(t, "/data/spw", c.Dir)
	assert.Equal(t, 0.5, c.SizeLimitGB)

	ioutil.WriteFile(f.Name(), []byte("dir: [unclosed"), 0640)
	_, err = ReadConfigFromFile(f.Name())
	assert.NotNil(t, err)
}

func TestSession(t *testing.T) {
	s, dir := newTestSession(t)
	defer os.RemoveAll(dir)

	assert.Len(t, s.ID(), 4)
	assert.True(t, util.FileExists(filepath.Join(s.Dir(), "session_"+s.ID()+".id")))

	fn := s.GenFilename(".npy")
	assert.True(t, s.IsManaged(fn))
	assert.True(t, strings.HasPrefix(filepath.Base(fn), "spw_"+s.ID()+"_"))
	assert.Equal(t, ".npy", filepath.Ext(fn))
	assert.Len(t, filepath.Base(fn), len("spw_")+4+1+8+len(".npy"))
	assert.False(t, s.IsManaged(filepath.Join(dir, "other.npy")))
	assert.False(t, s.IsManaged(filepath.Join(s.Dir(), "sub", "other.npy")))

	require.Nil(t, ioutil.WriteFile(fn, make([]byte, 1000), 0640))
	u, err := s.Usage()
	require.Nil(t, err)
	assert.Equal(t, 2, u.Files)
	assert.True(t, u.Bytes >= 1000)

	require.Nil(t, s.Close())
	assert.Equal(t, rerrors.ClosedState, s.Close())
	assert.False(t, util.FileExists(filepath.Join(s.Dir(), "session_"+s.ID()+".id")))
}

func TestGenFilenameUnique(t *testing.T) {
	s, dir := newTestSession(t)
	defer os.RemoveAll(dir)
	defer s.Close()

	names := make(map[string]bool)
	for i := 0; i < 2000; i++ {
		names[s.GenFilename("npy")] = true
	}
	assert.True(t, len(names) >= 1999)
}

func TestNewSessionIOError(t *testing.T) {
	f, err := ioutil.TempFile("", "notadir")
	require.Nil(t, err)
	defer os.Remove(f.Name())
	f.Close()

	_, err = NewSession(&Config{Dir: filepath.Join(f.Name(), "storage")})
	assert.True(t, util.IsIO(err))
}

func TestCleanup(t *testing.T) {
	s, dir := newTestSession(t)
	defer os.RemoveAll(dir)
	defer s.Close()

	live := s.GenFilename("npy")
	require.Nil(t, ioutil.WriteFile(live, []byte("live"), 0640))

	// files of a session which is gone
	root := s.Dir()
	stale := []string{
		filepath.Join(root, "session_dead.id"),
		filepath.Join(root, "spw_dead_0011aabb.npy"),
		filepath.Join(root, "spw_dead_0011aabc.spw"),
	}
	for _, fn := range stale {
		require.Nil(t, ioutil.WriteFile(fn, []byte("x"), 0640))
	}
	foreign := filepath.Join(root, "mydata.npy")
	require.Nil(t, ioutil.WriteFile(foreign, []byte("x"), 0640))

	res, err := Cleanup(root, true)
	require.Nil(t, err)
	assert.Equal(t, stale, res)
	for _, fn := range stale {
		assert.True(t, util.FileExists(fn))
	}

	res, err = Cleanup(root, false)
	require.Nil(t, err)
	assert.Len(t, res, 3)
	for _, fn := range stale {
		assert.False(t, util.FileExists(fn))
	}
	assert.True(t, util.FileExists(live))
	assert.True(t, util.FileExists(foreign))

	_, err = Cleanup(filepath.Join(dir, "absent"), true)
	assert.True(t, util.IsIO(err))
}
