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
	"errors"
	"sync"

	"github.com/elastic/elastic-agent-libs/logp"
	"github.com/elastic/elastic-agent-libs/monitoring"

	"github.com/bkil-syslogng/syslog-ng/diskq"
	"github.com/bkil-syslogng/syslog-ng/logmsg"
)

// reliableQueue is the reliable variant of §4.3: every push is durable on
// disk before the producer is acknowledged. qreliable caches records near
// the tail that are still within the memory-reservation threshold so pops
// can be served without a disk read; qbacklog records the (position, msg,
// opts) triplets for records handed to the consumer but not yet acked.
type reliableQueue struct {
	base
	mu        sync.Mutex
	file      *diskq.File
	qreliable []pendingEntry
	qbacklog  []pendingEntry
}

func newReliableQueue(settings Settings, logger *logp.Logger, reg *monitoring.Registry) *reliableQueue {
	return &reliableQueue{base: newBase(settings, logger, reg)}
}

func (q *reliableQueue) LoadQueue(path string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	file, renamed, err := diskq.Start(path, q.settings.QDiskSize, q.logger)
	if err != nil {
		return newError("load_queue", q.settings.PersistName, KindIOError, err)
	}
	if renamed {
		q.logger.Warnf("queue file was corrupt, started fresh at %s", path)
	}
	q.file = file
	q.qreliable = nil
	return nil
}

func (q *reliableQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.file == nil {
		return nil
	}
	return q.file.Close()
}

func (q *reliableQueue) Length() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.file == nil {
		return 0
	}
	return q.file.Length()
}

// PushTail serializes msg and writes it to disk; the push only succeeds if
// the on-disk write succeeds. If the remaining free space then falls below
// MemBufSize, the record is additionally kept resident in qreliable so a
// following PopHead can be served from memory, mirroring §4.3's "memory-
// reservation threshold" behavior.
func (q *reliableQueue) PushTail(msg *logmsg.Message, opts PathOptions) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.file == nil {
		return false, newError("push_tail", q.settings.PersistName, KindIOError, errors.New("queue not loaded"))
	}

	lastWritePos := q.file.WriteHead()
	data := logmsg.Serialize(msg)
	ok, err := q.file.PushTail(data)
	if err != nil {
		if errors.Is(err, diskq.ErrCorrupt) {
			return false, newError("push_tail", q.settings.PersistName, KindCorruptQueue, err)
		}
		return false, newError("push_tail", q.settings.PersistName, KindIOError, err)
	}
	if !ok {
		q.logger.Errorf("destination reliable queue full, dropping message (queue_len=%d disk_buf_size=%d)",
			q.file.Length(), q.settings.QDiskSize)
		q.observer.recordDrop()
		return false, nil
	}

	if q.file.FreeBytes() < q.settings.MemBufSize {
		q.qreliable = append(q.qreliable, pendingEntry{msg: msg, opts: opts, diskPos: lastWritePos})
	}

	q.signalNotify()
	q.observer.recordPush()
	return true, nil
}

// PushHead is not supported by the reliable variant (the source never
// wires push_head for it either); callers always use PushTail.
func (q *reliableQueue) PushHead(msg *logmsg.Message, opts PathOptions) error {
	return newError("push_head", q.settings.PersistName, KindIOError, errors.New("push_head not supported by reliable queue"))
}

// PopHead first checks whether the record at the disk's current read_head
// is cached in qreliable (still within the memory-reservation window); if
// so it's served from memory and the disk position is simply skipped.
// Otherwise it is read from disk directly.
func (q *reliableQueue) PopHead() (*logmsg.Message, PathOptions, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.file == nil {
		return nil, PathOptions{}, false, nil
	}

	var (
		msg  *logmsg.Message
		opts PathOptions
	)

	if len(q.qreliable) > 0 {
		head := q.qreliable[0]
		if head.diskPos == q.file.ReadHead() {
			q.qreliable = q.qreliable[1:]
			msg, opts = head.msg, head.opts
			if _, _, err := q.file.PopHead(); err != nil {
				return nil, PathOptions{}, false, newError("pop_head", q.settings.PersistName, KindCorruptQueue, err)
			}
			if q.settings.UseBacklog {
				q.qbacklog = append(q.qbacklog, pendingEntry{msg: msg, opts: opts, diskPos: head.diskPos})
			}
		}
		// else: not yet at the front of the disk queue — leave qreliable
		// untouched and fall through to a normal disk read.
	}

	if msg == nil {
		oldReadHead := q.file.ReadHead()
		data, ok, err := q.file.PopHead()
		if err != nil {
			if errors.Is(err, diskq.ErrCorrupt) {
				return nil, PathOptions{}, false, newError("pop_head", q.settings.PersistName, KindCorruptQueue, err)
			}
			return nil, PathOptions{}, false, newError("pop_head", q.settings.PersistName, KindIOError, err)
		}
		if !ok {
			return nil, PathOptions{}, false, nil
		}
		m, derr := logmsg.Deserialize(data)
		if derr != nil {
			return nil, PathOptions{}, false, newError("pop_head", q.settings.PersistName, KindCorruptQueue, derr)
		}
		msg = m
		opts = PathOptions{AckNeeded: false}
		if q.settings.UseBacklog {
			q.qbacklog = append(q.qbacklog, pendingEntry{msg: msg, opts: opts, diskPos: oldReadHead})
		}
	}

	if q.settings.UseBacklog {
		q.file.IncBacklog()
	} else {
		q.file.SetBacklogHead(q.file.ReadHead())
	}

	q.observer.recordPop()
	return msg, opts, true, nil
}

// AckBacklog walks qbacklog from the head, releasing entries whose disk
// position matches the queue's current backlog_head and advancing
// backlog_head past them — the source's exact lock-step matching, which
// tolerates qbacklog and the disk backlog region drifting out of step
// when UseBacklog was toggled mid-flight.
func (q *reliableQueue) AckBacklog(n uint64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.file == nil {
		return nil
	}

	for i := uint64(0); i < n; i++ {
		if q.file.BacklogHead() == q.file.ReadHead() {
			break
		}
		if len(q.qbacklog) > 0 {
			entry := q.qbacklog[0]
			if entry.diskPos == q.file.BacklogHead() {
				q.qbacklog = q.qbacklog[1:]
			}
		}
		next, err := q.file.SkipRecord(q.file.BacklogHead())
		if err != nil {
			return newError("ack_backlog", q.settings.PersistName, KindCorruptQueue, err)
		}
		q.file.SetBacklogHead(next)
		q.file.DecBacklog()
	}
	q.file.ResetFileIfPossible()
	return nil
}

// RewindBacklog moves up to n of the most recently popped-but-unacked
// backlog entries back in front of read_head, preserving order, by
// walking backlog_head forward by (backlogCount - rewindCount) records
// and replaying the corresponding qbacklog tail into qreliable's head.
func (q *reliableQueue) RewindBacklog(n uint64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.file == nil {
		return nil
	}

	backlogCount := q.file.BacklogCount()
	if n > backlogCount {
		n = backlogCount
	}
	stay := backlogCount - n

	newReadHead := q.file.BacklogHead()
	for i := uint64(0); i < stay; i++ {
		next, err := q.file.SkipRecord(newReadHead)
		if err != nil {
			return newError("rewind_backlog", q.settings.PersistName, KindCorruptQueue, err)
		}
		newReadHead = next
	}

	rewoundFromQueue := q.rewindQbacklogTo(newReadHead)

	q.file.SetBacklogCount(stay)
	q.file.SetReadHead(newReadHead)
	q.file.SetLength(q.file.Length() + n)
	q.observer.recordRewind(n)
	_ = rewoundFromQueue
	return nil
}

func (q *reliableQueue) RewindBacklogAll() error {
	q.mu.Lock()
	backlogCount := q.file.BacklogCount()
	q.mu.Unlock()
	return q.RewindBacklog(backlogCount)
}

// rewindQbacklogTo moves every qbacklog entry from the tail forward that
// lies at or after newPos back into qreliable's head, in the original
// order, mirroring __rewind_from_qbacklog/__find_pos_in_qbacklog.
func (q *reliableQueue) rewindQbacklogTo(newPos uint64) int {
	idx := -1
	for i := len(q.qbacklog) - 1; i >= 0; i-- {
		if q.qbacklog[i].diskPos == newPos {
			idx = i
			break
		}
	}
	if idx == -1 {
		return 0
	}
	moved := q.qbacklog[idx:]
	rest := q.qbacklog[:idx]
	front := make([]pendingEntry, 0, len(moved)+len(q.qreliable))
	front = append(front, moved...)
	front = append(front, q.qreliable...)
	q.qreliable = front
	q.qbacklog = rest
	return len(moved)
}

func (q *reliableQueue) SaveQueue() (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.file == nil {
		return false, nil
	}
	if err := q.file.SaveState(nil); err != nil {
		return false, newError("save_queue", q.settings.PersistName, KindIOError, err)
	}
	return true, nil
}

func (q *reliableQueue) IsReliable() bool { return true }
