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

// nonReliableQueue is the non-reliable variant of §4.4: a three-tier
// pipeline (qout -> disk -> qoverflow) with best-effort durability. A push
// that fits in qout with the disk empty bypasses the disk entirely (the
// documented-but-undefended fast path of Design Note/Open Question (a):
// this record is never counted against disk_buf_size for admission
// control, matching the source).
type nonReliableQueue struct {
	base
	mu        sync.Mutex
	file      *diskq.File
	qout      []pendingEntry
	qoverflow []pendingEntry
	qbacklog  []pendingEntry
}

func newNonReliableQueue(settings Settings, logger *logp.Logger, reg *monitoring.Registry) *nonReliableQueue {
	return &nonReliableQueue{base: newBase(settings, logger, reg)}
}

func (q *nonReliableQueue) LoadQueue(path string) error {
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
	q.qout, q.qbacklog, q.qoverflow = nil, nil, nil

	if !renamed {
		raw, err := file.SidecarBytes()
		if err != nil {
			return newError("load_queue", q.settings.PersistName, KindIOError, err)
		}
		qout, qbacklog, qoverflow, err := decodeSidecar(raw)
		if err != nil {
			q.logger.Warnf("sidecar state in %s could not be decoded, starting with empty in-memory queues: %v", path, err)
		} else {
			q.qout, q.qbacklog, q.qoverflow = qout, qbacklog, qoverflow
		}
	}
	return nil
}

func (q *nonReliableQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.file == nil {
		return nil
	}
	return q.file.Close()
}

func (q *nonReliableQueue) Length() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lengthLocked()
}

func (q *nonReliableQueue) lengthLocked() uint64 {
	n := uint64(len(q.qout) + len(q.qoverflow))
	if q.file != nil {
		n += q.file.Length()
	}
	return n
}

func (q *nonReliableQueue) qoutHasSpace() bool {
	return q.settings.QOutSize <= 0 || len(q.qout) < q.settings.QOutSize
}

func (q *nonReliableQueue) qoverflowHasSpace() bool {
	return q.settings.QOverflowSize <= 0 || len(q.qoverflow) < q.settings.QOverflowSize
}

// PushTail implements §4.4's push policy exactly: fast-path into qout when
// it has room and the disk is empty; otherwise write to disk unless
// qoverflow already has pending entries (keep FIFO order across the two);
// on disk failure, spill into qoverflow if it has room; otherwise drop.
func (q *nonReliableQueue) PushTail(msg *logmsg.Message, opts PathOptions) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	diskEmpty := q.file == nil || q.file.Length() == 0

	if q.qoutHasSpace() && diskEmpty {
		q.qout = append(q.qout, pendingEntry{msg: msg, opts: PathOptions{AckNeeded: false}})
		q.signalNotify()
		q.observer.recordPush()
		return true, nil
	}

	if len(q.qoverflow) == 0 && q.file != nil {
		data := logmsg.Serialize(msg)
		ok, err := q.file.PushTail(data)
		if err != nil {
			if !errors.Is(err, diskq.ErrCorrupt) {
				return false, newError("push_tail", q.settings.PersistName, KindIOError, err)
			}
			// fall through to overflow spill on corruption, same as a
			// plain write failure.
		} else if ok {
			q.signalNotify()
			q.observer.recordPush()
			return true, nil
		}
	}

	if q.qoverflowHasSpace() {
		o := opts
		o.AckNeeded = false
		q.qoverflow = append(q.qoverflow, pendingEntry{msg: msg, opts: o})
		q.signalNotify()
		q.observer.recordPush()
		return true, nil
	}

	q.logger.Debugf("destination queue full, dropping message (queue_len=%d qoverflow_size=%d disk_buf_size=%d)",
		q.lengthLocked(), q.settings.QOverflowSize, q.settings.QDiskSize)
	q.observer.recordDrop()
	return false, nil
}

// PushHead re-inserts at the very front of qout, used after a transient
// consumer-side refusal.
func (q *nonReliableQueue) PushHead(msg *logmsg.Message, opts PathOptions) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.qout = append([]pendingEntry{{msg: msg, opts: opts}}, q.qout...)
	q.observer.recordPush()
	return nil
}

func (q *nonReliableQueue) readFromDisk() (*logmsg.Message, error) {
	data, ok, err := q.file.PopHead()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return logmsg.Deserialize(data)
}

func (q *nonReliableQueue) PopHead() (*logmsg.Message, PathOptions, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var (
		msg  *logmsg.Message
		opts PathOptions
	)

	if len(q.qout) > 0 {
		head := q.qout[0]
		q.qout = q.qout[1:]
		msg, opts = head.msg, head.opts
	}

	if msg == nil && q.file != nil && q.file.Length() > 0 {
		m, err := q.readFromDisk()
		if err != nil {
			return nil, PathOptions{}, false, newError("pop_head", q.settings.PersistName, KindCorruptQueue, err)
		}
		msg = m
		opts = PathOptions{AckNeeded: false}
	}

	if msg == nil && len(q.qoverflow) > 0 && q.settings.ReadOnly {
		head := q.qoverflow[0]
		q.qoverflow = q.qoverflow[1:]
		msg, opts = head.msg, head.opts
	}

	if msg == nil {
		return nil, PathOptions{}, false, nil
	}

	if q.settings.UseBacklog {
		q.qbacklog = append(q.qbacklog, pendingEntry{msg: msg, opts: opts})
	}
	q.moveDisk()
	q.observer.recordPop()
	return msg, opts, true, nil
}

// moveDisk is the source's __move_disk: it tops qout back up to half
// capacity from disk (falling back to qoverflow once disk is empty), then
// drains as much of qoverflow into disk (or straight into qout, when disk
// is empty and qout has room) as currently fits. It runs synchronously at
// the end of every PopHead, under the same lock — there is no background
// goroutine, matching the source exactly (despite the name, __move_disk
// is not asynchronous there either).
func (q *nonReliableQueue) moveDisk() {
	if q.settings.ReadOnly {
		return
	}

	if len(q.qout) == 0 && q.settings.QOutSize > 0 {
		for {
			var (
				msg  *logmsg.Message
				opts PathOptions
			)
			if q.file != nil && q.file.Length() > 0 {
				m, err := q.readFromDisk()
				if err == nil {
					msg = m
					opts = PathOptions{AckNeeded: false}
				}
			} else if len(q.qoverflow) > 0 {
				head := q.qoverflow[0]
				q.qoverflow = q.qoverflow[1:]
				msg, opts = head.msg, head.opts
			}
			if msg == nil {
				break
			}
			q.qout = append(q.qout, pendingEntry{msg: msg, opts: PathOptions{AckNeeded: false}})
			_ = opts
			if len(q.qout) >= q.settings.QOutSize/2 {
				break
			}
		}
	}

	for len(q.qoverflow) > 0 {
		diskEmpty := q.file == nil || q.file.Length() == 0
		canGoDirect := diskEmpty && q.qoutHasSpace()
		canWriteDisk := q.file != nil && q.file.IsSpaceAvail(4096)
		if !canGoDirect && !canWriteDisk {
			break
		}

		head := q.qoverflow[0]
		if canGoDirect {
			q.qoverflow = q.qoverflow[1:]
			q.qout = append(q.qout, pendingEntry{msg: head.msg, opts: PathOptions{AckNeeded: false}})
			continue
		}

		data := logmsg.Serialize(head.msg)
		ok, err := q.file.PushTail(data)
		if err != nil || !ok {
			break
		}
		q.qoverflow = q.qoverflow[1:]
	}
}

func (q *nonReliableQueue) AckBacklog(n uint64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := uint64(0); i < n; i++ {
		if len(q.qbacklog) == 0 {
			return nil
		}
		q.qbacklog = q.qbacklog[1:]
	}
	return nil
}

func (q *nonReliableQueue) RewindBacklog(n uint64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n > uint64(len(q.qbacklog)) {
		n = uint64(len(q.qbacklog))
	}
	for i := uint64(0); i < n; i++ {
		last := q.qbacklog[len(q.qbacklog)-1]
		q.qbacklog = q.qbacklog[:len(q.qbacklog)-1]
		q.qout = append([]pendingEntry{last}, q.qout...)
	}
	q.observer.recordRewind(n)
	return nil
}

func (q *nonReliableQueue) RewindBacklogAll() error {
	q.mu.Lock()
	n := uint64(len(q.qbacklog))
	q.mu.Unlock()
	return q.RewindBacklog(n)
}

func (q *nonReliableQueue) SaveQueue() (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.file == nil {
		return false, nil
	}

	sidecar, err := encodeSidecar(q.qout, q.qbacklog, q.qoverflow)
	if err != nil {
		return false, newError("save_queue", q.settings.PersistName, KindIOError, err)
	}

	if err := q.file.SaveState(sidecar); err != nil {
		if errors.Is(err, diskq.ErrSidecarTooLarge) {
			q.logger.Warnf("in-memory queue state for %s is too large to persist (%d bytes), saving header only: %v",
				q.settings.PersistName, len(sidecar), err)
			if err := q.file.SaveState(nil); err != nil {
				return false, newError("save_queue", q.settings.PersistName, KindIOError, err)
			}
			return true, nil
		}
		return false, newError("save_queue", q.settings.PersistName, KindIOError, err)
	}
	return true, nil
}

func (q *nonReliableQueue) IsReliable() bool { return false }
