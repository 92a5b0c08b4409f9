// Licensed to Elasticsearch B.V. under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. Elasticsearch B.V. licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Package diskqueue implements a durable, disk-backed message queue: a
// synchronous, mutex-guarded facade (push_tail/pop_head/ack_backlog/
// rewind_backlog/save_queue/load_queue) over a circular queue file, in
// either a reliable or a non-reliable variant.
package diskqueue

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a diskqueue.Error the way ublk.UblkErrorCode
// classifies device errors: a short, stable string safe to switch on or
// log, independent of the wrapped cause's exact text.
type ErrorKind string

const (
	KindFull                  ErrorKind = "full"
	KindCorruptQueue          ErrorKind = "corrupt_queue"
	KindShortWrite            ErrorKind = "short_write"
	KindIOError               ErrorKind = "io_error"
	KindIncompatibleSuccessor ErrorKind = "incompatible_successor"
)

// Error is the structured error type returned by every diskqueue
// operation that can fail, mirroring the teacher pack's ublk.Error shape:
// an operation tag, the persist-name identifying which queue raised it,
// a stable Kind, and the wrapped underlying cause.
type Error struct {
	Op          string
	PersistName string
	Kind        ErrorKind
	Inner       error
}

func (e *Error) Error() string {
	if e.Inner != nil {
		return fmt.Sprintf("diskqueue: %s: %s (%s): %v", e.Op, e.PersistName, e.Kind, e.Inner)
	}
	return fmt.Sprintf("diskqueue: %s: %s (%s)", e.Op, e.PersistName, e.Kind)
}

func (e *Error) Unwrap() error { return e.Inner }

// Is reports equality on Kind alone, so callers can write
// errors.Is(err, &diskqueue.Error{Kind: diskqueue.KindFull}) without also
// having to match Op/PersistName/Inner.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newError(op, persistName string, kind ErrorKind, inner error) *Error {
	return &Error{Op: op, PersistName: persistName, Kind: kind, Inner: inner}
}

// IsKind reports whether err is a *diskqueue.Error (directly or wrapped)
// whose Kind equals kind, mirroring ublk.IsCode.
func IsKind(err error, kind ErrorKind) bool {
	var de *Error
	if !errors.As(err, &de) {
		return false
	}
	return de.Kind == kind
}
