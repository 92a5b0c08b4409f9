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
	"bytes"
	"encoding/binary"
)

// FormatVersion is the only wire format Serialize emits and Deserialize
// accepts. A mismatch is reported as ErrVersionMismatch rather than an
// attempt at cross-version decoding.
const FormatVersion uint8 = 1

// nvPayloadMagic tags the start of the inner name-value payload encoding,
// independent of the outer record's version byte.
const nvPayloadMagic uint32 = 0x4e565401 // "NVT" + version 1

// Serialize converts m to its wire representation. It is total and pure:
// the only state it touches is m itself and the returned buffer.
func Serialize(m *Message) []byte {
	var buf bytes.Buffer
	buf.WriteByte(FormatVersion)

	writeUint64(&buf, m.ReceiptID)
	writeUint32(&buf, m.Flags&^runtimeStateMask)
	writeUint16(&buf, m.Priority)

	writeSockAddr(&buf, m.SourceAddr)

	writeTimestamp(&buf, m.Origin)
	writeTimestamp(&buf, m.Received)
	writeTimestamp(&buf, m.Processed)

	writeUint32(&buf, m.HostID)

	for _, tag := range m.Tags {
		writeUint16(&buf, uint16(len(tag)))
		buf.WriteString(tag)
	}
	// zero-length string terminates the tag list
	writeUint16(&buf, 0)

	buf.WriteByte(m.InitialParse)
	buf.WriteByte(m.NumMatches)

	buf.WriteByte(uint8(len(m.SDataHandles)))
	buf.WriteByte(m.AllocSData)
	for _, h := range m.SDataHandles {
		writeUint32(&buf, h)
	}

	writeNVTable(&buf, m.Payload)

	return buf.Bytes()
}

// Deserialize parses the wire representation produced by Serialize.
// Structured-data handles are validated against the decoded payload before
// returning.
func Deserialize(data []byte) (*Message, error) {
	r := &reader{buf: data}

	version, err := r.uint8()
	if err != nil {
		return nil, wrap("deserialize", ErrTruncated)
	}
	if version != FormatVersion {
		return nil, wrap("deserialize", ErrVersionMismatch)
	}

	m := &Message{}

	if m.ReceiptID, err = r.uint64(); err != nil {
		return nil, wrap("deserialize", ErrTruncated)
	}
	flags, err := r.uint32()
	if err != nil {
		return nil, wrap("deserialize", ErrTruncated)
	}
	m.Flags = (flags &^ runtimeStateMask) | FlagsRuntimeInit

	if m.Priority, err = r.uint16(); err != nil {
		return nil, wrap("deserialize", ErrTruncated)
	}

	if m.SourceAddr, err = readSockAddr(r); err != nil {
		return nil, err
	}

	if m.Origin, err = readTimestamp(r); err != nil {
		return nil, wrap("deserialize", ErrTruncated)
	}
	if m.Received, err = readTimestamp(r); err != nil {
		return nil, wrap("deserialize", ErrTruncated)
	}
	if m.Processed, err = readTimestamp(r); err != nil {
		return nil, wrap("deserialize", ErrTruncated)
	}

	if m.HostID, err = r.uint32(); err != nil {
		return nil, wrap("deserialize", ErrTruncated)
	}

	for {
		tagLen, err := r.uint16()
		if err != nil {
			return nil, wrap("deserialize", ErrTruncated)
		}
		if tagLen == 0 {
			break
		}
		tag, err := r.bytes(int(tagLen))
		if err != nil {
			return nil, wrap("deserialize", ErrTruncated)
		}
		m.Tags = append(m.Tags, string(tag))
	}

	if m.InitialParse, err = r.uint8(); err != nil {
		return nil, wrap("deserialize", ErrTruncated)
	}
	if m.NumMatches, err = r.uint8(); err != nil {
		return nil, wrap("deserialize", ErrTruncated)
	}

	numSData, err := r.uint8()
	if err != nil {
		return nil, wrap("deserialize", ErrTruncated)
	}
	if m.AllocSData, err = r.uint8(); err != nil {
		return nil, wrap("deserialize", ErrTruncated)
	}
	m.SDataHandles = make([]uint32, numSData)
	for i := range m.SDataHandles {
		if m.SDataHandles[i], err = r.uint32(); err != nil {
			return nil, wrap("deserialize", ErrTruncated)
		}
	}

	m.Payload, err = readNVTable(r)
	if err != nil {
		return nil, err
	}

	for _, h := range m.SDataHandles {
		if _, ok := m.Payload.Lookup(h); !ok {
			return nil, wrap("deserialize", ErrBadPayload)
		}
	}

	return m, nil
}

func writeSockAddr(buf *bytes.Buffer, a SockAddr) {
	writeUint16(buf, uint16(a.Family))
	switch a.Family {
	case AddrFamilyInet:
		buf.Write(pad(a.IP, 4))
		writeUint16BE(buf, a.Port)
	case AddrFamilyInet6:
		buf.Write(pad(a.IP, 16))
		writeUint16BE(buf, a.Port)
	case AddrFamilyUnix, AddrFamilyNone:
		// no extra bytes
	}
}

func readSockAddr(r *reader) (SockAddr, error) {
	family, err := r.uint16()
	if err != nil {
		return SockAddr{}, wrap("deserialize", ErrTruncated)
	}
	a := SockAddr{Family: AddrFamily(family)}
	switch a.Family {
	case AddrFamilyInet:
		ip, err := r.bytes(4)
		if err != nil {
			return SockAddr{}, wrap("deserialize", ErrTruncated)
		}
		a.IP = ip
		if a.Port, err = r.uint16BE(); err != nil {
			return SockAddr{}, wrap("deserialize", ErrTruncated)
		}
	case AddrFamilyInet6:
		ip, err := r.bytes(16)
		if err != nil {
			return SockAddr{}, wrap("deserialize", ErrTruncated)
		}
		a.IP = ip
		if a.Port, err = r.uint16BE(); err != nil {
			return SockAddr{}, wrap("deserialize", ErrTruncated)
		}
	case AddrFamilyUnix, AddrFamilyNone:
		// nothing further to read
	default:
		return SockAddr{}, wrap("deserialize", ErrBadFamily)
	}
	return a, nil
}

func writeTimestamp(buf *bytes.Buffer, t Timestamp) {
	writeUint64(buf, t.Sec)
	writeUint32(buf, t.USec)
	writeUint32(buf, uint32(t.ZoneOffset))
}

func readTimestamp(r *reader) (Timestamp, error) {
	sec, err := r.uint64()
	if err != nil {
		return Timestamp{}, err
	}
	usec, err := r.uint32()
	if err != nil {
		return Timestamp{}, err
	}
	zone, err := r.uint32()
	if err != nil {
		return Timestamp{}, err
	}
	return Timestamp{Sec: sec, USec: usec, ZoneOffset: int32(zone)}, nil
}

func writeNVTable(buf *bytes.Buffer, t *NVTable) {
	writeUint32(buf, nvPayloadMagic)
	var entries []NVEntry
	if t != nil {
		entries = t.Entries
	}
	writeUint32(buf, uint32(len(entries)))
	for _, e := range entries {
		buf.WriteByte(uint8(e.Kind))
		writeUint32(buf, e.Handle)
		switch e.Kind {
		case NVEntryDirect:
			writeUint32(buf, uint32(len(e.Value)))
			buf.Write(e.Value)
		case NVEntryIndirect:
			writeUint32(buf, e.RefHandle)
			writeUint32(buf, e.Offset)
			writeUint32(buf, e.Length)
			buf.WriteByte(e.ValueType)
		}
	}
}

func readNVTable(r *reader) (*NVTable, error) {
	magic, err := r.uint32()
	if err != nil {
		return nil, wrap("deserialize", ErrTruncated)
	}
	if magic != nvPayloadMagic {
		return nil, wrap("deserialize", ErrBadPayload)
	}
	count, err := r.uint32()
	if err != nil {
		return nil, wrap("deserialize", ErrTruncated)
	}
	t := &NVTable{Entries: make([]NVEntry, count)}
	for i := range t.Entries {
		kind, err := r.uint8()
		if err != nil {
			return nil, wrap("deserialize", ErrTruncated)
		}
		handle, err := r.uint32()
		if err != nil {
			return nil, wrap("deserialize", ErrTruncated)
		}
		e := NVEntry{Kind: NVEntryKind(kind), Handle: handle}
		switch e.Kind {
		case NVEntryDirect:
			n, err := r.uint32()
			if err != nil {
				return nil, wrap("deserialize", ErrTruncated)
			}
			v, err := r.bytes(int(n))
			if err != nil {
				return nil, wrap("deserialize", ErrTruncated)
			}
			e.Value = v
		case NVEntryIndirect:
			if e.RefHandle, err = r.uint32(); err != nil {
				return nil, wrap("deserialize", ErrTruncated)
			}
			if e.Offset, err = r.uint32(); err != nil {
				return nil, wrap("deserialize", ErrTruncated)
			}
			if e.Length, err = r.uint32(); err != nil {
				return nil, wrap("deserialize", ErrTruncated)
			}
			if e.ValueType, err = r.uint8(); err != nil {
				return nil, wrap("deserialize", ErrTruncated)
			}
		default:
			return nil, wrap("deserialize", ErrBadPayload)
		}
		t.Entries[i] = e
	}
	return t, nil
}

func pad(b []byte, n int) []byte {
	out := make([]byte, n)
	copy(out, b)
	return out
}

// --- little-endian field writers, grounded on uapi.Marshal's manual
// binary.LittleEndian.PutUint* style ---

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeUint16BE(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

// reader is a bounds-checked cursor over a decode buffer.
type reader struct {
	buf []byte
	pos int
}

func (r *reader) bytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, ErrTruncated
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) uint8() (uint8, error) {
	b, err := r.bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) uint16() (uint16, error) {
	b, err := r.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *reader) uint16BE() (uint16, error) {
	b, err := r.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *reader) uint32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) uint64() (uint64, error) {
	b, err := r.bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}
