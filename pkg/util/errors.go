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

	"github.com/pkg/errors"
)

type (
	// Kind is the semantic category of a validation or storage failure.
	Kind int

	// Error is returned by all validation code of the module. It carries the
	// name of the offending argument, what was expected and what was received,
	// so the message can be shown to a user as is.
	Error struct {
		Kind     Kind
		VarName  string
		Expected string
		Actual   string
		Err      error
	}
)

const (
	// KindType means the argument has a wrong type
	KindType Kind = iota + 1
	// KindValue means the argument type is fine, but its value is illegal
	KindValue
	// KindIO means a backing storage could not be created or accessed
	KindIO
)

var ErrWrongState = fmt.Errorf("Wrong state, probably already closed.")

var kindNames = map[Kind]string{
	KindType:  "TypeError",
	KindValue: "ValueError",
	KindIO:    "IOError",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Unknown kind=%d", int(k))
}

// TypeError returns an error of KindType for the variable varname, which
// received actual, but expected is required.
func TypeError(actual interface{}, varname, expected string) error {
	return &Error{Kind: KindType, VarName: varname, Expected: expected, Actual: fmt.Sprintf("%T", actual)}
}

// ValueError returns an error of KindValue. legal describes the acceptable
// values and actual is the received value as it should appear in the message.
func ValueError(legal, varname, actual string) error {
	return &Error{Kind: KindValue, VarName: varname, Expected: legal, Actual: actual}
}

// IOError returns an error of KindIO for the path. cause can be nil.
func IOError(path string, cause error) error {
	return &Error{Kind: KindIO, VarName: path, Err: cause}
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindType:
		return fmt.Sprintf("Wrong type of %q: expected %s found %s", e.VarName, e.Expected, e.Actual)
	case KindValue:
		msg := fmt.Sprintf("Invalid value of %q", e.VarName)
		if e.Actual != "" {
			msg += fmt.Sprintf(": %q", e.Actual)
		}
		if e.Expected != "" {
			msg += "; expected " + e.Expected
		}
		return msg
	case KindIO:
		if e.Err != nil {
			return fmt.Sprintf("Cannot access %s: %s", e.VarName, e.Err)
		}
		return fmt.Sprintf("Cannot access %s", e.VarName)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.VarName)
}

// Cause allows github.com/pkg/errors to unwrap the error
func (e *Error) Cause() error {
	return e.Err
}

// KindOf returns the kind of err, wrapped or not. It returns 0 if err is not
// an *Error.
func KindOf(err error) Kind {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind
		}
		c, ok := err.(interface{ Cause() error })
		if !ok {
			return 0
		}
		err = c.Cause()
	}
	return 0
}

func IsType(err error) bool {
	return KindOf(err) == KindType
}

func IsValue(err error) bool {
	return KindOf(err) == KindValue
}

func IsIO(err error) bool {
	return KindOf(err) == KindIO
}

// Wrapf annotates err keeping its kind discoverable by KindOf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, format, args...)
}
