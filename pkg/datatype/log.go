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
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spykewave/spykewave/pkg/util"
)

type (
	// Log is the append-only history of a data object. The header is written
	// once when the object is created.
	Log struct {
		header  string
		entries []LogEntry
	}

	// LogEntry is one captioned record of the Log
	LogEntry struct {
		UserHost string
		Time     time.Time
		Caller   string
		Msg      string
	}
)

// Version of the data objects format
const Version = "0.1.0"

func newLog(now time.Time) *Log {
	l := new(Log)
	l.header = fmt.Sprintf("\n\t\t>>> SpykeWave v. %s <<< \n\nCreated: %s \n\nSystem Profile: \n%s %s/%s\n\n--- LOG ---",
		Version, now.Format(time.ANSIC), runtime.Version(), runtime.GOOS, runtime.GOARCH)
	return l
}

// Append adds the entry captioned by the user, host, time and the caller
func (l *Log) Append(caller, msg string) {
	l.entries = append(l.entries, LogEntry{UserHost: util.UserHost(), Time: time.Now(), Caller: caller, Msg: msg})
}

// Header returns the log header
func (l *Log) Header() string {
	return l.header
}

// Entries returns the log entries in the order they were added
func (l *Log) Entries() []LogEntry {
	return append([]LogEntry{}, l.entries...)
}

func (l *Log) clone() *Log {
	return &Log{header: l.header, entries: l.Entries()}
}

func (l *Log) String() string {
	var sb strings.Builder
	sb.WriteString(l.header)
	for _, e := range l.entries {
		sb.WriteString(e.String())
	}
	return sb.String()
}

func (e LogEntry) String() string {
	caller := ""
	if e.Caller != "" {
		caller = e.Caller + ": "
	}
	return fmt.Sprintf("\n\n|=== %s: %s ===|\n\n\t%s%s", e.UserHost, e.Time.Format(time.ANSIC), caller, e.Msg)
}
