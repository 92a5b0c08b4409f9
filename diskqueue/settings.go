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

package diskqueue

// Settings carries the tuning knobs a Queue is constructed with. Which
// fields apply depends on the variant: QOutSize/QOverflowSize are only
// meaningful for the non-reliable variant, MemBufSize only for the
// reliable one.
type Settings struct {
	// PersistName identifies this queue across config reloads and in
	// logged/returned errors.
	PersistName string

	// Dir is the directory the queue file lives in.
	Dir string

	// QDiskSize is the size, in bytes, of the circular file's data
	// region (excluding the reserved header).
	QDiskSize uint64

	// Reliable selects the variant: true constructs a reliableQueue
	// (every push durable before the producer is acked), false a
	// nonReliableQueue (qout/qdisk/qoverflow tiering, best-effort).
	Reliable bool

	// UseBacklog mirrors the source's use_backlog flag: when false,
	// popped records are immediately considered acked and never enter
	// qbacklog/qreliable-in-flight bookkeeping.
	UseBacklog bool

	// MemBufSize is the reliable variant's in-memory reservation
	// threshold: when the on-disk free space left after a push is below
	// this many bytes, the pushed record is also kept resident in
	// qreliable so PopHead can serve it without a disk read.
	MemBufSize uint64

	// QOutSize is the non-reliable variant's qout capacity, in messages.
	QOutSize int

	// QOverflowSize is the non-reliable variant's qoverflow capacity, in
	// messages.
	QOverflowSize int

	// ReadOnly changes how the non-reliable variant drains: PopHead also
	// serves qoverflow directly, and the refill/drain step after each pop
	// is skipped. PushTail does not check it. Nothing in this module sets
	// it; plugin.Acquire closes an incompatible parked queue rather than
	// draining it.
	ReadOnly bool
}

// FilePath returns the on-disk path this queue's file should live at.
func (s Settings) FilePath() string {
	if s.Dir == "" {
		return s.PersistName + ".qf"
	}
	return s.Dir + "/" + s.PersistName + ".qf"
}
