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

package logmsg

import (
	"errors"
	"fmt"
)

// Sentinel codec failures. All of them are fatal to the record being
// decoded, never to the process.
var (
	ErrTruncated      = errors.New("logmsg: truncated record")
	ErrVersionMismatch = errors.New("logmsg: wire format version mismatch")
	ErrBadFamily      = errors.New("logmsg: unknown socket address family")
	ErrBadPayload     = errors.New("logmsg: malformed name-value payload")
)

// wrap annotates a sentinel with the operation that produced it, the way
// ublk.WrapError annotates syscall errors with the failing op.
func wrap(op string, sentinel error) error {
	return fmt.Errorf("logmsg: %s: %w", op, sentinel)
}
