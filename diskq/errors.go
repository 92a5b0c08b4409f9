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

package diskq

import "errors"

// ErrCorrupt is returned when the header fails to validate, or a record
// read implies a length that cannot possibly fit the file. Open leaves a
// file with a corrupt header in place; Start renames it to
// <path>.corrupted and opens a fresh one. A record-level ErrCorrupt (from
// PopHead or SkipRecord) is only returned: the file is not renamed, and
// diskqueue passes it on as a CorruptQueue error.
var ErrCorrupt = errors.New("diskq: corrupt queue file")

// ErrSidecarTooLarge is returned by SaveState when the caller-provided
// sidecar bytes don't fit in the reserved prefix past the fixed header.
// The caller may fall back to saving the header alone.
var ErrSidecarTooLarge = errors.New("diskq: sidecar state too large")
