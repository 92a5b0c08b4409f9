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

import (
	"github.com/elastic/elastic-agent-libs/logp"
	"github.com/elastic/elastic-agent-libs/monitoring"

	"github.com/bkil-syslogng/syslog-ng/logmsg"
)

// Queue is the synchronous queue facade of §4.5: every method takes the
// queue's lock for its whole logical operation and returns once applied.
// There is no producer/consumer actor goroutine and no channel
// handoff for the operations themselves — only NotifyChan signals a
// waiting consumer that new data may be available, mirroring the small
// non-blocking push the teacher's memqueue broker uses for backpressure
// signaling.
type Queue interface {
	// PushTail appends msg at the tail, consuming it into whichever tier
	// (qout, disk, qreliable/qoverflow) the variant's policy picks.
	// Returns false if the record could not be stored anywhere (Full);
	// the caller must treat msg as dropped.
	PushTail(msg *logmsg.Message, opts PathOptions) (bool, error)

	// PushHead re-inserts msg at the front, used after a consumer-side
	// transient refusal. It is never counted as a drop. Only the
	// non-reliable variant supports it; the reliable variant returns an
	// error and does not store msg.
	PushHead(msg *logmsg.Message, opts PathOptions) error

	// PopHead returns the next record in FIFO order, or ok=false when
	// the queue is empty. If the variant's UseBacklog is set, the
	// popped record is recorded as a backlog entry pending ack/rewind.
	PopHead() (msg *logmsg.Message, opts PathOptions, ok bool, err error)

	// AckBacklog releases up to n of the oldest backlog entries.
	AckBacklog(n uint64) error

	// RewindBacklog moves up to n backlog entries back into the
	// consumable region, preserving order, as if they had never been
	// popped.
	RewindBacklog(n uint64) error

	// RewindBacklogAll rewinds the entire backlog.
	RewindBacklogAll() error

	// Length returns the total number of records currently stored
	// across every tier.
	Length() uint64

	// SaveQueue persists the header, plus the non-reliable variant's
	// in-memory lists, so a subsequent LoadQueue can resume. When those
	// lists do not fit in the reserved prefix, only the header is
	// written. persistent reports whether the
	// queue had been initialized at all (a queue that was never
	// started has nothing to persist).
	SaveQueue() (persistent bool, err error)

	// LoadQueue opens (or creates) the backing file at path and
	// restores sidecar state. Must be called before any other method.
	LoadQueue(path string) error

	// Close releases the underlying file descriptor without
	// persisting; callers that want durability call SaveQueue first.
	Close() error

	// NotifyChan is sent to (non-blocking) whenever PushTail succeeds,
	// so a consumer can block-select on it instead of polling Length.
	NotifyChan() <-chan struct{}

	// IsReliable reports which variant this Queue is, so the plugin
	// registry can detect an IncompatibleSuccessor (§4.6/§7) across a
	// config reload.
	IsReliable() bool
}

// base holds the fields and notify-signaling helper shared by both
// concrete Queue implementations — the "small trait" the facade is built
// from instead of a virtual-dispatch base class.
type base struct {
	logger      *logp.Logger
	observer    *Observer
	settings    Settings
	notify      chan struct{}
	droppedSoFar uint64
}

func newBase(settings Settings, logger *logp.Logger, reg *monitoring.Registry) base {
	if logger == nil {
		logger = logp.NewLogger("diskqueue")
	}
	logger = logger.Named(settings.PersistName)
	return base{
		logger:   logger,
		observer: NewObserver(reg, settings.PersistName),
		settings: settings,
		notify:   make(chan struct{}, 1),
	}
}

func (b *base) signalNotify() {
	select {
	case b.notify <- struct{}{}:
	default:
	}
}

func (b *base) NotifyChan() <-chan struct{} { return b.notify }

// New constructs the appropriate Queue variant for settings.Reliable,
// mirroring the source's log_queue_disk_reliable_new /
// log_queue_disk_non_reliable_new pair — chosen once at construction, not
// by a runtime type-switch, per Design Note 2.
func New(settings Settings, logger *logp.Logger, reg *monitoring.Registry) Queue {
	if settings.Reliable {
		return newReliableQueue(settings, logger, reg)
	}
	return newNonReliableQueue(settings, logger, reg)
}
