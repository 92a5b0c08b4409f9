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

// Package logmsg defines the structured log record the queue core moves
// around, and its fixed binary wire format.
package logmsg

// AddrFamily identifies the kind of source address attached to a Message.
type AddrFamily uint16

const (
	AddrFamilyNone AddrFamily = 0
	AddrFamilyUnix AddrFamily = 1
	AddrFamilyInet AddrFamily = 2
	AddrFamilyInet6 AddrFamily = 10
)

// SockAddr is the optional source network address of a Message. Only
// Family, IP and Port survive serialization; AF_UNIX paths are never
// persisted (matches the source format, which keeps the path out of the
// wire record entirely).
type SockAddr struct {
	Family AddrFamily
	IP     []byte // 4 bytes for Inet, 16 bytes for Inet6, nil otherwise
	Port   uint16
}

// Timestamp is a (seconds, microseconds, zone-offset-seconds) triple, the
// unit used for all three of a Message's timestamps.
type Timestamp struct {
	Sec         uint64
	USec        uint32
	ZoneOffset  int32
}

// Flag bits. The low 16 bits are runtime state that must never be trusted
// across a serialize/deserialize round trip: they are masked off on write
// and re-asserted to FlagsRuntimeInit on read (see codec.go). The high 16
// bits are persistent and round-trip unchanged.
const (
	runtimeStateMask uint32 = 0x0000ffff
	persistentMask   uint32 = 0xffff0000

	// FlagsRuntimeInit is OR'd into the low bits of every deserialized
	// Message, representing "freshly loaded, not yet touched by this
	// process" runtime state.
	FlagsRuntimeInit uint32 = 0x1
)

// NVEntryKind discriminates a name-value payload entry.
type NVEntryKind uint8

const (
	NVEntryDirect   NVEntryKind = 0
	NVEntryIndirect NVEntryKind = 1
)

// NVEntry is one entry of the name-value payload: either a direct
// byte-string value, or an indirect view into another entry's value
// (a byte-range slice, tagged with a value type).
type NVEntry struct {
	Kind NVEntryKind

	// Handle this entry is stored under.
	Handle uint32

	// Direct
	Value []byte

	// Indirect
	RefHandle uint32
	Offset    uint32
	Length    uint32
	ValueType uint8
}

// NVTable is the name-value payload: a mapping from interned name handles
// to byte-string values (direct), or to byte-range views of another
// entry's value (indirect). Order is preserved for deterministic
// serialization.
type NVTable struct {
	Entries []NVEntry
}

// Lookup returns the entry stored under handle, if any.
func (t *NVTable) Lookup(handle uint32) (NVEntry, bool) {
	if t == nil {
		return NVEntry{}, false
	}
	for _, e := range t.Entries {
		if e.Handle == handle {
			return e, true
		}
	}
	return NVEntry{}, false
}

// Message is the structured log record moved through the queue: a
// monotonic receipt id, priority/facility, three timestamps, an optional
// source address, an origin host id, a flags word, an ordered/deduplicated
// tag set, structured-data handles, and a name-value payload.
type Message struct {
	ReceiptID uint64
	Flags     uint32
	Priority  uint16

	SourceAddr SockAddr

	// Origin, Received, Processed, in that order — matches wire item 6.
	Origin    Timestamp
	Received  Timestamp
	Processed Timestamp

	HostID uint32

	// Tags is ordered and deduplicated; duplicates are rejected by
	// AddTag, not silently collapsed at serialize time.
	Tags []string

	InitialParse uint8
	NumMatches   uint8

	// SDataHandles references entries of Payload by handle. After
	// Deserialize, every handle here is guaranteed to resolve in Payload.
	SDataHandles []uint32
	// AllocSData mirrors the source's distinction between the number of
	// structured-data slots allocated and the number in use (NumSData).
	AllocSData uint8

	Payload *NVTable
}

// AddTag appends name to the tag set if it is not already present,
// preserving insertion order.
func (m *Message) AddTag(name string) {
	for _, t := range m.Tags {
		if t == name {
			return
		}
	}
	m.Tags = append(m.Tags, name)
}

// PersistentFlags returns the flag bits that survive serialization.
func (m *Message) PersistentFlags() uint32 {
	return m.Flags & persistentMask
}
