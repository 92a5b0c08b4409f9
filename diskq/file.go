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

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/elastic/elastic-agent-libs/logp"
)

// File is a fixed-size circular queue file: a 4KiB reserved header
// followed by a data region used as a ring buffer of length-prefixed
// records. It has no internal locking — the caller (the diskqueue
// package) is expected to serialize all access under its own mutex, per
// the lock discipline of the queue facade.
type File struct {
	path   string
	f      *os.File
	hdr    header
	logger *logp.Logger
}

// Open opens an existing queue file at path, or creates one of the given
// data-region size if none exists. If the existing file's header fails to
// validate, Open returns ErrCorrupt and leaves the file untouched; the
// caller is expected to rename it aside and call Open again for a fresh
// file (see Start, which does exactly that).
func Open(path string, size uint64, logger *logp.Logger) (*File, error) {
	if logger == nil {
		logger = logp.NewLogger("diskq")
	} else {
		logger = logger.Named("diskq")
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("diskq: open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("diskq: stat %s: %w", path, err)
	}

	qf := &File{path: path, f: f, logger: logger}

	if info.Size() == 0 {
		qf.hdr = header{
			size:        size,
			writeHead:   Reserved,
			readHead:    Reserved,
			backlogHead: Reserved,
		}
		if err := qf.SaveState(nil); err != nil {
			f.Close()
			return nil, err
		}
		if err := f.Truncate(int64(Reserved + size)); err != nil {
			f.Close()
			return nil, fmt.Errorf("diskq: truncate %s: %w", path, err)
		}
		logger.Debugf("created new queue file %s (%d bytes)", path, size)
		return qf, nil
	}

	buf := make([]byte, fixedHeaderSize)
	if _, err := f.ReadAt(buf, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: reading header of %s: %v", ErrCorrupt, path, err)
	}
	hdr, ok := decodeHeader(buf)
	if !ok {
		f.Close()
		return nil, fmt.Errorf("%w: invalid header in %s", ErrCorrupt, path)
	}
	qf.hdr = hdr
	logger.Infof("loaded queue file %s: length=%d backlog=%d", path, hdr.length, hdr.backlogCount)
	return qf, nil
}

// SidecarBytes returns the raw bytes stored in the header's sidecar area
// (the reserved region past the fixed header fields), for callers that
// embed serialized qout/qbacklog/qoverflow state there.
func (f *File) SidecarBytes() ([]byte, error) {
	buf := make([]byte, Reserved-fixedHeaderSize)
	if _, err := f.f.ReadAt(buf, fixedHeaderSize); err != nil {
		return nil, fmt.Errorf("diskq: reading sidecar area: %w", err)
	}
	return buf, nil
}

// Close closes the underlying file descriptor without persisting the
// header; callers that want a clean shutdown must call SaveState first.
func (f *File) Close() error {
	return f.f.Close()
}

// Path returns the file path this File was opened from.
func (f *File) Path() string { return f.path }

func (f *File) Size() uint64         { return f.hdr.size }
func (f *File) Length() uint64       { return f.hdr.length }
func (f *File) BacklogCount() uint64 { return f.hdr.backlogCount }
func (f *File) WriteHead() uint64    { return f.hdr.writeHead }
func (f *File) ReadHead() uint64     { return f.hdr.readHead }
func (f *File) BacklogHead() uint64  { return f.hdr.backlogHead }

func (f *File) end() uint64 { return Reserved + f.hdr.size }

// FreeBytes returns the number of bytes available to a future push,
// measured cyclically from write_head up to (but not including)
// backlog_head — the space-availability arithmetic of spec §4.2.
func (f *File) FreeBytes() uint64 {
	end := f.end()
	w, b := f.hdr.writeHead, f.hdr.backlogHead
	if w >= b {
		return (end - w) + (b - Reserved)
	}
	return b - w
}

// IsSpaceAvail reports whether a record of `need` payload bytes (plus its
// 4-byte length prefix) currently fits in a single contiguous run. Unlike
// FreeBytes, this does not sum the tail run (write_head..end) with the head
// run (Reserved..backlog_head): a record is never split across the wrap
// point, so admission must fit in whichever one run the write would
// actually land in, per spec §4.2.
func (f *File) IsSpaceAvail(need uint64) bool {
	_, ok := f.admissiblePos(need + 4)
	return ok
}

// admissiblePos returns the position a record of `total` bytes (including
// its length prefix) would be written at, and whether a single contiguous
// run of that size is available there. If the tail run starting at
// write_head is too small, the candidate position wraps to Reserved, but
// only the head run up to backlog_head may then be used — never both runs
// summed together.
func (f *File) admissiblePos(total uint64) (uint64, bool) {
	end := f.end()
	pos := f.snapForward(f.hdr.writeHead)
	b := f.hdr.backlogHead

	// write_head meeting backlog_head while records are still held means
	// the ring is full, not empty.
	if pos == b && f.hdr.length+f.hdr.backlogCount > 0 {
		return 0, false
	}

	if pos < b {
		if b-pos >= total {
			return pos, true
		}
		return 0, false
	}

	if end-pos >= total {
		return pos, true
	}
	if b-Reserved >= total {
		return Reserved, true
	}
	return 0, false
}

// snapForward moves pos to Reserved whenever fewer than 4 bytes remain
// before the end of the data region — not enough room for even a length
// prefix. This, combined with the same rule applied to the position a
// write or read leaves behind, keeps push_tail/pop_head/skip_record in
// lockstep without ever needing an on-disk wrap marker: neither side can
// ever be asked to interpret a 1-3 byte sliver as a record, because
// neither side ever leaves one unconsumed.
func (f *File) snapForward(pos uint64) uint64 {
	if f.end()-pos < 4 {
		return Reserved
	}
	return pos
}

// PushTail writes a length-prefixed record at write_head, advancing it
// (wrapping to Reserved when the remaining run is too small). Returns
// false, with length unchanged, if there isn't enough free space.
func (f *File) PushTail(data []byte) (bool, error) {
	need := uint64(4 + len(data))
	pos, ok := f.admissiblePos(need)
	if !ok {
		return false, nil
	}

	buf := make([]byte, need)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(data)))
	copy(buf[4:], data)
	n, err := f.f.WriteAt(buf, int64(pos))
	if err != nil {
		return false, fmt.Errorf("diskq: write: %w", err)
	}
	if n != len(buf) {
		return false, fmt.Errorf("diskq: short write: wrote %d of %d bytes", n, len(buf))
	}

	f.hdr.writeHead = f.snapForward(pos + need)
	f.hdr.length++
	return true, nil
}

// PopHead reads the next record at read_head and advances it. Returns
// false when the queue has no unread records; it never advances
// backlog_head — that is left to the caller's ack/rewind logic.
func (f *File) PopHead() ([]byte, bool, error) {
	if f.hdr.length == 0 {
		return nil, false, nil
	}
	data, newPos, err := f.readRecordAt(f.hdr.readHead)
	if err != nil {
		return nil, false, err
	}
	f.hdr.readHead = newPos
	f.hdr.length--
	return data, true, nil
}

// SkipRecord reads the record at pos, discards its payload, and returns
// the position of the following record. Used by ack/rewind bookkeeping to
// walk backlog_head forward without touching read_head.
func (f *File) SkipRecord(pos uint64) (uint64, error) {
	_, newPos, err := f.readRecordAt(pos)
	return newPos, err
}

func (f *File) readRecordAt(pos uint64) (data []byte, newPos uint64, err error) {
	pos = f.snapForward(pos)

	var lb [4]byte
	if _, err := f.f.ReadAt(lb[:], int64(pos)); err != nil {
		return nil, 0, fmt.Errorf("%w: reading length prefix: %v", ErrCorrupt, err)
	}
	length := binary.LittleEndian.Uint32(lb[:])
	if uint64(length) > f.hdr.size {
		return nil, 0, fmt.Errorf("%w: implausible record length %d", ErrCorrupt, length)
	}

	data = make([]byte, length)
	if length > 0 {
		if _, err := f.f.ReadAt(data, int64(pos)+4); err != nil {
			return nil, 0, fmt.Errorf("%w: reading record body: %v", ErrCorrupt, err)
		}
	}

	newPos = f.snapForward(pos + 4 + uint64(length))
	return data, newPos, nil
}

// IncBacklog, DecBacklog, SetBacklogHead and SetBacklogCount are the
// backlog-pointer arithmetic primitives the queue layer composes into
// ack_backlog/rewind_backlog.
func (f *File) IncBacklog() { f.hdr.backlogCount++ }

func (f *File) DecBacklog() {
	if f.hdr.backlogCount > 0 {
		f.hdr.backlogCount--
	}
}

func (f *File) SetBacklogHead(pos uint64)    { f.hdr.backlogHead = pos }
func (f *File) SetBacklogCount(n uint64)     { f.hdr.backlogCount = n }
func (f *File) SetReadHead(pos uint64)       { f.hdr.readHead = pos }
func (f *File) SetLength(n uint64)           { f.hdr.length = n }

// ResetFileIfPossible resets all pointers to Reserved once the file holds
// neither unread nor unacked records, keeping a long-lived queue file
// compact instead of drifting forever around the ring.
func (f *File) ResetFileIfPossible() {
	if f.hdr.length == 0 && f.hdr.backlogCount == 0 {
		f.hdr.writeHead = Reserved
		f.hdr.readHead = Reserved
		f.hdr.backlogHead = Reserved
	}
}

// SaveState atomically rewrites the header (and, if provided, the
// sidecar bytes following it) and fsyncs.
func (f *File) SaveState(sidecar []byte) error {
	buf := encodeHeader(f.hdr)
	if len(sidecar) > 0 {
		if len(sidecar) > Reserved-fixedHeaderSize {
			return fmt.Errorf("%w: %d > %d", ErrSidecarTooLarge, len(sidecar), Reserved-fixedHeaderSize)
		}
		full := make([]byte, Reserved)
		copy(full, buf)
		copy(full[fixedHeaderSize:], sidecar)
		buf = full
	}
	if _, err := f.f.WriteAt(buf, 0); err != nil {
		return fmt.Errorf("diskq: writing header: %w", err)
	}
	return f.f.Sync()
}

// Start opens path as a queue file, renaming it aside and starting fresh
// if the header is corrupt — the §7 CorruptQueue recovery behavior.
func Start(path string, size uint64, logger *logp.Logger) (qf *File, renamed bool, err error) {
	qf, err = Open(path, size, logger)
	if err == nil {
		return qf, false, nil
	}
	if logger == nil {
		logger = logp.NewLogger("diskq")
	}
	if !errors.Is(err, ErrCorrupt) {
		return nil, false, err
	}
	corruptPath := path + ".corrupted"
	logger.Warnf("queue file %s is corrupt, renaming to %s and starting fresh: %v", path, corruptPath, err)
	if renameErr := os.Rename(path, corruptPath); renameErr != nil {
		return nil, false, fmt.Errorf("diskq: renaming corrupt file: %w", renameErr)
	}
	qf, err = Open(path, size, logger)
	return qf, true, err
}
