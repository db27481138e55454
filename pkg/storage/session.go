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
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/jrivets/log4g"
	"github.com/logrange/range/pkg/utils/errors"
	"github.com/logrange/range/pkg/utils/fileutil"
	"github.com/spykewave/spykewave/pkg/util"
)

type (
	// Session owns the managed storage root for one process. The session
	// file session_<id>.id stays locked while the session is open, so
	// Cleanup never removes files of a running session.
	Session struct {
		cfg      Config
		id       string
		lockFile string
		started  time.Time

		lock   sync.Mutex
		fl     *flock.Flock
		logger log4g.Logger
	}

	// Usage describes the storage root content
	Usage struct {
		Bytes uint64
		Files int
	}
)

const (
	sessionPrefix = "session_"
	sessionExt    = ".id"
	tempPrefix    = "spw_"
)

// NewSession creates the storage root if needed and starts a new session
func NewSession(cfg *Config) (*Session, error) {
	if cfg == nil {
		cfg = GetDefaultConfig()
	}
	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, util.IOError(cfg.Dir, err)
	}
	if err := fileutil.EnsureDirExists(dir); err != nil {
		return nil, util.IOError(dir, err)
	}

	s := new(Session)
	s.cfg = *cfg
	s.cfg.Dir = dir
	s.started = time.Now()
	for {
		s.id = util.RandomDigest(2)
		s.lockFile = filepath.Join(dir, sessionPrefix+s.id+sessionExt)
		if !util.FileExists(s.lockFile) {
			break
		}
	}
	s.logger = log4g.GetLogger("storage.Session").WithId("{" + s.id + "}").(log4g.Logger)

	fl := flock.New(s.lockFile)
	if ok, err := fl.TryLock(); !ok || err != nil {
		if err == nil {
			err = fmt.Errorf("the session file is locked by another process")
		}
		return nil, util.IOError(s.lockFile, err)
	}
	info := fmt.Sprintf("%s pid=%d started=%s\n", util.UserHost(), os.Getpid(), s.started.Format(time.RFC3339))
	if err := ioutil.WriteFile(s.lockFile, []byte(info), 0640); err != nil {
		fl.Unlock()
		os.Remove(s.lockFile)
		return nil, util.IOError(s.lockFile, err)
	}
	s.fl = fl

	if u, err := s.Usage(); err == nil && u.Bytes > s.cfg.SizeLimit() {
		s.logger.Warn("Temporary storage ", dir, " holds ", humanize.Bytes(u.Bytes), " in ", humanize.Comma(int64(u.Files)),
			" files, which is more than the limit of ", humanize.Bytes(s.cfg.SizeLimit()), ". Consider running cleanup.")
	}
	s.logger.Info("New session in ", dir)
	return s, nil
}

// ID returns the session id, 4 hex digits
func (s *Session) ID() string {
	return s.id
}

// Dir returns the absolute path to the storage root
func (s *Session) Dir() string {
	return s.cfg.Dir
}

// Config returns the session configuration
func (s *Session) Config() Config {
	return s.cfg
}

// GenFilename returns a new unique file name in the storage root. The
// name is spw_<session id>_<8 hex digits>.<ext>
func (s *Session) GenFilename(ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	for {
		fn := filepath.Join(s.cfg.Dir, fmt.Sprintf("%s%s_%s.%s", tempPrefix, s.id, util.RandomDigest(4), ext))
		if !util.FileExists(fn) {
			return fn
		}
	}
}

// IsManaged returns whether the file is located in the storage root
func (s *Session) IsManaged(fn string) bool {
	return util.IsUnder(fn, s.cfg.Dir)
}

// Usage returns the size and the number of files in the storage root
func (s *Session) Usage() (Usage, error) {
	return dirUsage(s.cfg.Dir)
}

// Close releases the session file
func (s *Session) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.fl == nil {
		return errors.ClosedState
	}
	os.Remove(s.lockFile)
	err := s.fl.Unlock()
	s.fl = nil
	s.logger.Info("Session closed after ", time.Since(s.started))
	return err
}

func (s *Session) String() string {
	return fmt.Sprintf("{id: %s, dir: %s, limit: %s}", s.id, s.cfg.Dir, humanize.Bytes(s.cfg.SizeLimit()))
}

func (u Usage) String() string {
	return fmt.Sprintf("%s in %s files", humanize.Bytes(u.Bytes), humanize.Comma(int64(u.Files)))
}

func dirUsage(dir string) (Usage, error) {
	var u Usage
	fis, err := ioutil.ReadDir(dir)
	if err != nil {
		return u, util.IOError(dir, err)
	}
	for _, fi := range fis {
		if fi.Mode().IsRegular() {
			u.Files++
			u.Bytes += uint64(fi.Size())
		}
	}
	return u, nil
}
